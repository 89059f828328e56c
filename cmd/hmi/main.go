package main

import (
	"flag"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ohowland/ecc_core/internal/pkg/hmi"
	"github.com/ohowland/ecc_core/internal/pkg/logging"
)

func main() {
	addr := flag.String("addr", "http://localhost:8080", "controller api address")
	refresh := flag.Duration("refresh", 500*time.Millisecond, "status refresh interval")
	level := flag.String("log-level", "error", "log level, written to stderr")
	flag.Parse()

	logger := logging.New(logging.Config{Level: *level})
	client := hmi.NewClient(*addr, *refresh)
	if err := hmi.New(client, *refresh, logging.Component(logger, "Main")).Run(); err != nil {
		logrus.WithError(err).Fatal("hmi exited")
	}
}
