package controller

import (
	"context"
	"io"
	"net/http"

	"github.com/007-hpr/orbitdeterminator/internal/iod"
	"github.com/007-hpr/orbitdeterminator/internal/modules/observations/repository"
)

// ObservationService decodes and stores IOD reports.
type ObservationService interface {
	Decode(ctx context.Context, r io.Reader) (*iod.Dataset, error)
	Ingest(ctx context.Context, source string, r io.Reader) (int, error)
}

type ObservationsController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type observationsControllerImpl struct {
	service        ObservationService
	repository     repository.ObservationsRepository
	maxReportBytes int64
}

func NewObservationsController(service ObservationService, repository repository.ObservationsRepository, maxReportBytes int64) ObservationsController {
	return &observationsControllerImpl{
		service:        service,
		repository:     repository,
		maxReportBytes: maxReportBytes,
	}
}

func (c *observationsControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/iod/decode", c.handleDecode)
	mux.HandleFunc("POST /api/v1/iod", c.handleIngest)
	mux.HandleFunc("GET /api/v1/stations", c.handleStations)
	mux.HandleFunc("GET /api/v1/stations/{id}/observations", c.handleStationObservations)
	mux.HandleFunc("GET /api/v1/objects/{object}/observations", c.handleObjectObservations)
}
