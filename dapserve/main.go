// Copyright 2020 Sebastian Lehmann. All rights reserved.
// Use of this source code is governed by a GNU-style
// license that can be found in the LICENSE file.

package main

import (
	"flag"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/bbnote/goswjdap"
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

var (
	exitProgram chan bool

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

func setUpSignalHandler(link io.Closer) {
	signals := make(chan os.Signal, 1)
	exitProgram = make(chan bool, 1)

	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-signals
		logger.Infof("got signal %v, shutting down...", sig)

		if link != nil {
			link.Close()
		} else {
			os.Exit(0)
		}

		exitProgram <- true
	}()
}

// stdioLink serves frames over the process pipes when no serial
// port was given. Log output moves to stderr in that case so it
// does not corrupt the frame stream.
type stdioLink struct{}

func (stdioLink) Read(p []byte) (int, error) {
	return os.Stdin.Read(p)
}

func (stdioLink) Write(p []byte) (int, error) {
	return os.Stdout.Write(p)
}

func main() {
	initLogger()
	goswjdap.SetLogger(logger)

	logger.Info("Welcome to the goswjdap frame server...")

	flagLogLevel := flag.Int("LogLevel", int(logrus.InfoLevel), "Logging verbosity [0 - 7]")
	flagPort := flag.String("Port", "", "Serial port to serve on, empty for stdio")
	flagBaud := flag.Int("Baud", goswjdap.DefaultSerialBaud, "Serial baud rate")
	flagClockDiv := flag.Int("ClockDiv", 32, "Reference clock ticks per target clock half period")
	flagIdcode := flag.Uint64("Idcode", 0x2BA01477, "Id code reported by the simulated target")

	flag.Parse()

	logger.SetLevel(logrus.Level(*flagLogLevel))

	cfg := goswjdap.DefaultConfig()
	cfg.ClockDivisor = uint32(*flagClockDiv)

	dap := goswjdap.NewSwjDap(cfg)
	sim := goswjdap.NewSwdTargetSim(cfg)
	sim.Idcode = uint32(*flagIdcode)
	dap.Attach(sim)

	logger.Infof("serving a simulated target, capabilities: %s", dap.CapabilityString())

	var rw io.ReadWriter
	var closer io.Closer = nil

	if *flagPort != "" {
		link, err := goswjdap.OpenSerialLink(*flagPort, *flagBaud)
		if err != nil {
			logger.Fatal("could not open serial port: ", err)
		}

		rw = link
		closer = link
	} else {
		logger.SetOutput(os.Stderr)
		logger.Info("no serial port given, serving on stdio")

		rw = stdioLink{}
	}

	setUpSignalHandler(closer)

	if err := goswjdap.ServeFrames(rw, dap); err != nil {
		logger.Error("frame server stopped with error: ", err)
	} else {
		logger.Info("frame server stopped")
	}

	if closer != nil {
		closer.Close()
	}
}
