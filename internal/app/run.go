package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/007-hpr/orbitdeterminator/internal/config"
	"github.com/007-hpr/orbitdeterminator/internal/db"
	"github.com/007-hpr/orbitdeterminator/internal/httpapi"
	"github.com/007-hpr/orbitdeterminator/internal/metrics"
	"github.com/007-hpr/orbitdeterminator/internal/migrate"
	"github.com/007-hpr/orbitdeterminator/internal/modules/observations"
	"github.com/007-hpr/orbitdeterminator/internal/mqtt"
)

func Run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"dbDriver", cfg.Driver,
		"dbPath", cfg.Path,
		"dbMaxOpenConns", cfg.MaxOpenConns,
		"dbMaxIdleConns", cfg.MaxIdleConns,
		"dbConnMaxLifetime", cfg.ConnMaxLifetime,
		"dbLogSQL", cfg.LogSQL,
		"mqttBroker", cfg.MQTTBroker,
		"mqttPort", cfg.MQTTPort,
		"mqttTopic", cfg.MQTTTopic,
		"decodeWorkers", cfg.DecodeWorkers,
		"maxReportBytes", cfg.MaxReportBytes,
	)

	dbConn, err := db.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeErr := db.Close(dbConn)
		if closeErr != nil {
			logger.Error("db close", "error", closeErr)
		}
	}()

	applied, err := migrate.Run(ctx, dbConn)
	if err != nil {
		return err
	}
	logger.Info("database ready", "migrationsApplied", applied)

	collector, err := metrics.NewCollector(nil)
	if err != nil {
		return err
	}

	// The handler must be set before Connect: the broker may deliver queued
	// reports right after CONNACK.
	mqttSubscriber := mqtt.NewSubscriber(cfg, logger)
	mux := httpapi.NewMux(dbConn, mqttSubscriber, collector.Handler())
	observations.RegisterFeature(mux, dbConn, mqttSubscriber, observations.Options{
		Metrics:        collector,
		DecodeWorkers:  cfg.DecodeWorkers,
		MaxReportBytes: cfg.MaxReportBytes,
		Logger:         logger,
	})

	connectCtx, connectCancel := context.WithTimeout(ctx, 5*time.Second)
	err = mqttSubscriber.Connect(connectCtx)
	connectCancel()
	if err != nil {
		logger.Warn("mqtt connection failed (continuing without mqtt)", "error", err)
	}

	srv := httpapi.NewServer(cfg, mux)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		mqttSubscriber.Disconnect()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("mqtt disconnecting")
	mqttSubscriber.Disconnect()

	logger.Info("http shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	err = <-errCh
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return ctx.Err()
}
