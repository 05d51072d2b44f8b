package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/007-hpr/orbitdeterminator/internal/iod"
	"github.com/007-hpr/orbitdeterminator/internal/metrics"
	"github.com/007-hpr/orbitdeterminator/internal/modules/observations/repository"
	"github.com/007-hpr/orbitdeterminator/internal/mqtt"
)

type Service struct {
	repository repository.ObservationsRepository
	metrics    *metrics.Collector
	workers    int
	logger     *slog.Logger
}

// NewService builds the observation service. collector may be nil.
func NewService(repository repository.ObservationsRepository, collector *metrics.Collector, workers int, logger *slog.Logger) *Service {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repository: repository,
		metrics:    collector,
		workers:    workers,
		logger:     logger,
	}
}

// IsMalformed reports whether err was caused by the report's content rather
// than by the server.
func IsMalformed(err error) bool {
	return errors.Is(err, iod.ErrMalformedLine)
}

// Decode parses an IOD report without storing it.
func (s *Service) Decode(ctx context.Context, r io.Reader) (*iod.Dataset, error) {
	ds, took, err := s.decode(ctx, r)
	if err != nil {
		s.metrics.ObserveDecode(nil, took, failureResult(err))
		return nil, err
	}
	s.metrics.ObserveDecode(ds, took, metrics.ResultOK)
	return ds, nil
}

// Ingest parses an IOD report and stores every line under source. Either the
// whole report is stored or nothing is.
func (s *Service) Ingest(ctx context.Context, source string, r io.Reader) (int, error) {
	ds, took, err := s.decode(ctx, r)
	if err != nil {
		s.metrics.ObserveDecode(nil, took, failureResult(err))
		return 0, err
	}

	n, err := s.repository.InsertDataset(ctx, source, ds)
	if err != nil {
		s.metrics.ObserveDecode(ds, took, metrics.ResultError)
		return 0, fmt.Errorf("store report: %w", err)
	}
	s.metrics.ObserveDecode(ds, took, metrics.ResultOK)
	s.metrics.ObserveStored(n)

	s.logger.Debug("report stored", "source", source, "observations", n)
	return n, nil
}

func (s *Service) decode(ctx context.Context, r io.Reader) (*iod.Dataset, time.Duration, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	ds, err := iod.Parse(r, iod.WithWorkers(s.workers))
	return ds, time.Since(start), err
}

func failureResult(err error) string {
	if IsMalformed(err) {
		return metrics.ResultMalformed
	}
	return metrics.ResultError
}

// Register routes reports received over MQTT into Ingest.
func (s *Service) Register(subscriber mqtt.MQTTSubscriber) {
	registerMQTTHandler(subscriber, s, s.logger)
}
