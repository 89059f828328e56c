package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/ohowland/ecc_core/internal/pkg/comm/modbuscomm"
	"github.com/ohowland/ecc_core/internal/pkg/datastreams/mongodb"
	"github.com/ohowland/ecc_core/internal/pkg/datastreams/mqtt"
	"github.com/ohowland/ecc_core/internal/pkg/datastreams/natshandler"
	"github.com/ohowland/ecc_core/internal/pkg/datastreams/sqldb"
	"github.com/ohowland/ecc_core/internal/pkg/datastreams/webhook"
	"github.com/ohowland/ecc_core/internal/pkg/logging"
	"github.com/ohowland/ecc_core/internal/pkg/metrics"
	"github.com/ohowland/ecc_core/internal/pkg/root"
	"github.com/ohowland/ecc_core/internal/pkg/scenario"
	"github.com/ohowland/ecc_core/internal/pkg/webservice"
)

// process is a long running component started after the system.
type process interface {
	Process()
	Stop()
}

func main() {
	configPath := flag.String("config", "./config/ecc.json", "path to the process config")
	envFile := flag.String("env", ".env", "optional dotenv file of ECC_* overrides")
	flag.Parse()

	if err := loadEnv(*envFile); err != nil {
		logrus.WithError(err).Fatal("unable to read env file")
	}
	cfg, err := loadConfig(*configPath)
	if err != nil {
		logrus.WithError(err).Fatal("unable to read config")
	}

	logger := logging.New(cfg.Log)
	log := logging.Component(logger, "Main")
	log.Info("Starting ECC_Core v0.1.0")

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	log.WithField("scenario", cfg.Scenario).Info("Building Controller")
	sc, err := scenario.Load(cfg.Scenario)
	if err != nil {
		log.WithError(err).Fatal("unable to load scenario")
	}
	ctrl, err := sc.Build(nil, logging.Component(logger, "Scenario"))
	if err != nil {
		log.WithError(err).Fatal("unable to build controller")
	}

	log.Info("Registering Metrics")
	collector, err := metrics.NewCollector(prometheus.NewRegistry())
	if err != nil {
		log.WithError(err).Fatal("unable to register metrics")
	}

	log.Info("Assembling System")
	system, err := root.New(ctrl, root.Config{
		TickRate: cfg.TickRate(),
		Logger:   logging.Component(logger, "System"),
		Recorder: collector,
	})
	if err != nil {
		log.WithError(err).Fatal("unable to build system")
	}

	log.Info("Linking Datastreams")
	streams, err := buildDatastreams(cfg.Datastreams, system, logger)
	if err != nil {
		log.WithError(err).Fatal("unable to build datastreams")
	}

	log.Info("Starting update loops")
	var wg sync.WaitGroup
	start(&wg, system)
	for _, s := range streams {
		start(&wg, s)
	}

	if cfg.Modbus != "" {
		log.WithField("config", cfg.Modbus).Info("Connecting Modbus Panel")
		poller, err := modbuscomm.New(cfg.Modbus, system, logging.Component(logger, "Modbus"))
		if err != nil {
			log.WithError(err).Fatal("unable to build modbus poller")
		}
		start(&wg, poller)
		streams = append(streams, poller)
	}

	server := &http.Server{
		Addr:    cfg.Listen,
		Handler: webservice.New(system, collector.Handler(), logging.Component(logger, "Webservice")).Router(),
	}
	go func() {
		log.WithField("addr", cfg.Listen).Info("Starting Server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("server failed")
			sigs <- syscall.SIGTERM
		}
	}()

	select {
	case sig := <-sigs:
		log.WithField("signal", sig).Info("Stopping system")
	case <-system.Done():
		log.Warn("system stopped unexpectedly")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Warn("server shutdown")
	}
	for _, s := range streams {
		s.Stop()
	}
	system.Stop()
	wg.Wait()
	log.Info("Shutdown complete")
}

func start(wg *sync.WaitGroup, p process) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		p.Process()
	}()
}

func buildDatastreams(cfg StreamConfigs, system *root.System, logger *logrus.Logger) ([]process, error) {
	streams := []process{}
	if cfg.NATS != "" {
		h, err := natshandler.New(cfg.NATS, system, logger.WithField("config", cfg.NATS))
		if err != nil {
			return nil, err
		}
		streams = append(streams, h)
	}
	if cfg.MQTT != "" {
		h, err := mqtt.New(cfg.MQTT, system, logger.WithField("config", cfg.MQTT))
		if err != nil {
			return nil, err
		}
		streams = append(streams, h)
	}
	if cfg.MongoDB != "" {
		h, err := mongodb.New(cfg.MongoDB, system, logger.WithField("config", cfg.MongoDB))
		if err != nil {
			return nil, err
		}
		streams = append(streams, h)
	}
	if cfg.SQL != "" {
		h, err := sqldb.New(cfg.SQL, system, logger.WithField("config", cfg.SQL))
		if err != nil {
			return nil, err
		}
		streams = append(streams, h)
	}
	if cfg.Webhook != "" {
		h, err := webhook.New(cfg.Webhook, system, logger.WithField("config", cfg.Webhook))
		if err != nil {
			return nil, err
		}
		streams = append(streams, h)
	}
	return streams, nil
}
