/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"net"

	"github.com/facebookincubator/spotmicro/gait"
	"github.com/facebookincubator/spotmicro/stats"

	log "github.com/sirupsen/logrus"
)

// maxCommandSize bounds a single command datagram. Commands are small
// JSON objects, anything bigger is garbage.
const maxCommandSize = 512

// CommandListener receives drive commands as JSON datagrams over UDP
// and feeds them to the control loop. The loop only ever takes the
// newest command, so a slow tick drops stale ones rather than queueing.
type CommandListener struct {
	addr  string
	cmds  chan<- gait.Command
	stats stats.StatsServer
}

// NewCommandListener returns a listener that will accept commands on addr.
func NewCommandListener(addr string, cmds chan<- gait.Command, stats stats.StatsServer) *CommandListener {
	return &CommandListener{
		addr:  addr,
		cmds:  cmds,
		stats: stats,
	}
}

// Run listens for commands until ctx is cancelled.
func (l *CommandListener) Run(ctx context.Context) error {
	conn, err := net.ListenPacket("udp", l.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", l.addr, err)
	}
	log.Infof("Listening for commands on %s", conn.LocalAddr())
	return l.serve(ctx, conn)
}

func (l *CommandListener) serve(ctx context.Context, conn net.PacketConn) error {
	// unblocks ReadFrom on shutdown
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	buf := make([]byte, maxCommandSize)
	for {
		n, addr, err := conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("reading command: %w", err)
		}
		cmd := gait.Command{}
		if err := json.Unmarshal(buf[:n], &cmd); err != nil {
			log.Warningf("Ignoring malformed command from %s: %v", addr, err)
			l.stats.UpdateCounterBy("commands.invalid", 1)
			continue
		}
		l.stats.UpdateCounterBy("commands.received", 1)
		select {
		case l.cmds <- cmd:
		default:
			log.Debugf("Dropping command from %s, control loop is behind", addr)
			l.stats.UpdateCounterBy("commands.dropped", 1)
		}
	}
}

// Send delivers one command to a daemon listening on addr. Command line
// tooling uses it, the daemon itself never does.
func Send(addr string, cmd *gait.Command) error {
	b, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("encoding command: %w", err)
	}
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return err
	}
	defer conn.Close()
	_, err = conn.Write(b)
	return err
}
