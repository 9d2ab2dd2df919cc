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

package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"

	_ "net/http/pprof"

	sd "github.com/coreos/go-systemd/daemon"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/facebookincubator/spotmicro/actuation"
	"github.com/facebookincubator/spotmicro/daemon"
	"github.com/facebookincubator/spotmicro/stats"
)

func main() {
	var (
		cfg       = daemon.DefaultConfig()
		err       error
		cfgPath   string
		pprofaddr string
		fake      bool
		verbose   bool
	)

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "spotd, the SpotMicro control daemon\n")
		fmt.Fprintf(flag.CommandLine.Output(), "%s\n\nFlags:\n", daemon.HealthHelp)
		flag.PrintDefaults()
	}

	flag.StringVar(&cfgPath, "cfg", "", "Path to config, defaults describe a stock robot")
	flag.StringVar(&cfg.SerialPort, "serialport", cfg.SerialPort, "Serial device of the servo controller")
	flag.StringVar(&cfg.ListenAddr, "listenaddr", cfg.ListenAddr, "UDP address to receive drive commands on")
	flag.IntVar(&cfg.MonitoringPort, "monitoringport", cfg.MonitoringPort, "Port to run monitoring server on")
	flag.StringVar(&cfg.Health.Check, "healthcheck", cfg.Health.Check, "Health expression over the control loop counters")
	flag.StringVar(&cfg.CSVLog, "csvlog", cfg.CSVLog, "Write per-tick telemetry as CSV into this file")
	flag.StringVar(&pprofaddr, "pprofaddr", "", "host:port for the pprof to bind")
	flag.BoolVar(&fake, "fake", false, "Drive a recording fake instead of the servo controller")
	flag.BoolVar(&verbose, "verbose", false, "Verbose logging")

	flag.Parse()

	log.SetReportCaller(true)
	if verbose {
		log.SetLevel(log.DebugLevel)
	}
	if cfgPath != "" {
		log.Warningf("using config from %s, flag values are ignored", cfgPath)
		cfg, err = daemon.ReadConfig(cfgPath)
		if err != nil {
			log.Fatal(err)
		}
	}
	// -fake survives a config file, it is the dry-run switch
	if fake {
		cfg.Actuator = daemon.ActuatorFake
	}
	if err := cfg.EvalAndValidate(); err != nil {
		log.Fatal(err)
	}
	log.Debugf("Config: %+v", *cfg)

	if pprofaddr != "" {
		log.Warningf("Starting profiler on %s", pprofaddr)
		go func() {
			log.Println(http.ListenAndServe(pprofaddr, nil))
		}()
	}

	var act actuation.Actuator
	switch cfg.Actuator {
	case daemon.ActuatorFake:
		act, err = actuation.NewFake(cfg.Servos)
	default:
		act, err = actuation.NewMaestro(cfg.SerialPort, cfg.BaudRate, cfg.Servos)
	}
	if err != nil {
		log.Fatal(err)
	}
	defer act.Close()

	var l daemon.Logger
	if cfg.CSVLog != "" {
		f, err := os.Create(cfg.CSVLog)
		if err != nil {
			log.Fatal(err)
		}
		defer f.Close()
		l = daemon.NewCSVLogger(f)
	}

	st := stats.NewJSONStats()
	go func() {
		if err := st.Start(cfg.MonitoringPort); err != nil {
			log.Errorf("monitoring server died: %v", err)
		}
	}()

	s, err := daemon.New(cfg, st, act, l)
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigStop := make(chan os.Signal, 1)
	signal.Notify(sigStop, unix.SIGTERM, unix.SIGINT)
	go func() {
		<-sigStop
		log.Warning("Shutting down spotd")
		if _, err := sd.SdNotify(false, sd.SdNotifyStopping); err != nil {
			log.Debugf("sd_notify: %v", err)
		}
		cancel()
	}()

	if _, err := sd.SdNotify(false, sd.SdNotifyReady); err != nil {
		log.Debugf("sd_notify: %v", err)
	}
	if err := s.Run(ctx); err != nil {
		log.Fatal(err)
	}
}
