package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"voiceauth-server/pkg/config"
	"voiceauth-server/pkg/detection"
	"voiceauth-server/pkg/httpapi"
	"voiceauth-server/pkg/messaging"
	"voiceauth-server/pkg/metrics"
)

var logger = logrus.New()

func main() {
	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
	})
	logger.SetOutput(os.Stdout)

	cfg, err := config.Load(logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	cfg.ApplyLogging(logger)

	metrics.Init(logger)

	pipeline := detection.NewPipeline(logger, cfg.Models.Dir)
	if err := pipeline.EnsureReady(); err != nil {
		logger.WithError(err).Fatal("Failed to prepare detection models")
	}
	logger.WithField("model_dir", cfg.Models.Dir).Info("Detection models ready")

	var publisher *messaging.AMQPClient
	if cfg.Messaging.Enabled {
		publisher = messaging.NewAMQPClient(logger, messaging.AMQPConfig{
			URL:       cfg.Messaging.AMQPUrl,
			QueueName: cfg.Messaging.QueueName,
		})
		if err := publisher.Connect(); err != nil {
			// Results are still served over HTTP; the client keeps retrying
			// in the background.
			logger.WithError(err).Warn("AMQP connection failed, continuing without messaging")
		} else {
			logger.WithField("queue", cfg.Messaging.QueueName).Info("AMQP publisher connected")
		}
	}

	server := httpapi.NewServer(logger, cfg, pipeline, publisher)

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	select {
	case err := <-errChan:
		if err != nil {
			logger.WithError(err).Fatal("HTTP server failed")
		}
	case sig := <-sigChan:
		logger.WithField("signal", sig.String()).Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Error during HTTP server shutdown")
	} else {
		logger.Info("HTTP server shut down successfully")
	}

	if publisher != nil {
		publisher.Close()
		logger.Info("AMQP publisher closed")
	}

	logger.Info("Application shut down gracefully")
}
