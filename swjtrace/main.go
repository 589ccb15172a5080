// Copyright 2020 Sebastian Lehmann. All rights reserved.
// Use of this source code is governed by a GNU-style
// license that can be found in the LICENSE file.

package main

import (
	"flag"
	"os"

	"github.com/bbnote/goswjdap"
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

var (
	logger *logrus.Logger
)

func initLogger() {
	formatter := &prefixed.TextFormatter{
		DisableColors:   false,
		TimestampFormat: "15:04:05",
		FullTimestamp:   true,
		ForceFormatting: true,
	}

	logger = logrus.New()

	logger.SetFormatter(formatter)
	logger.SetOutput(os.Stdout)
}

func main() {
	initLogger()
	goswjdap.SetLogger(logger)

	logger.Info("Welcome to the goswjdap trace tool...")

	flagLogLevel := flag.Int("LogLevel", int(logrus.InfoLevel), "Logging verbosity [0 - 7]")
	flagClockDiv := flag.Int("ClockDiv", 32, "Reference clock ticks per target clock half period")
	flagTurnaround := flag.Int("Turnaround", 1, "SWD turnaround cycles [1 - 4]")
	flagDataphase := flag.Bool("Dataphase", false, "Clock a dataphase cooloff after WAIT/FAULT")
	flagCount := flag.Int("Count", 4, "Number of scratch register round trips")

	flag.Parse()

	logger.SetLevel(logrus.Level(*flagLogLevel))

	cfg := goswjdap.DefaultConfig()
	cfg.ClockDivisor = uint32(*flagClockDiv)
	cfg.Turnaround = uint32(*flagTurnaround)
	cfg.Dataphase = *flagDataphase

	dap := goswjdap.NewSwjDap(cfg)
	sim := goswjdap.NewSwdTargetSim(cfg)
	dap.Attach(sim)

	logger.Infof("driving a simulated target, capabilities: %s", dap.CapabilityString())

	if err := goswjdap.SwitchMode(dap, goswjdap.ModeSwj); err != nil {
		logger.Fatal("could not power up the interface: ", err)
	}

	if err := goswjdap.ResetTarget(dap); err != nil {
		logger.Fatal("target reset failed: ", err)
	}

	if err := goswjdap.SwitchMode(dap, goswjdap.ModeSwd); err != nil {
		logger.Fatal("could not switch to SWD: ", err)
	}

	code, err := goswjdap.Idcode(dap)
	if err != nil {
		logger.Fatal("could not read the id code: ", err)
	}

	logger.Infof("got id code: %08x", code)

	for i := 0; i < *flagCount; i++ {
		value := uint32(0xC0DE0000) + uint32(i)

		if err := goswjdap.TransactWrite(dap, false, goswjdap.DpRegSelect, value); err != nil {
			logger.Error("scratch write failed: ", err)
			continue
		}

		read, err := goswjdap.TransactRead(dap, false, goswjdap.DpRegSelect)
		if err != nil {
			logger.Error("scratch read failed: ", err)
			continue
		}

		logger.Infof("scratch round trip %d: wrote %08x, read %08x", i, value, read)
	}

	// let the target stall once so the retry path shows up in the log
	sim.QueueAck(goswjdap.AckWait)

	if _, err := goswjdap.TransactRead(dap, false, goswjdap.DpRegCtrlStat); err != nil {
		logger.Error("ctrl/stat read failed: ", err)
	}

	logger.Infof("target observed %d transfers within %d simulated microseconds",
		len(sim.Transfers), dap.Micros())

	for i, t := range sim.Transfers {
		logger.Debugf("transfer %2d: APnDP=%v RnW=%v addr=%d ack=%s data=%08x",
			i, t.APnDP, t.RnW, t.Addr, t.Ack, t.Data)
	}
}
