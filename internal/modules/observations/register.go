package observations

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/007-hpr/orbitdeterminator/internal/metrics"
	"github.com/007-hpr/orbitdeterminator/internal/modules/observations/controller"
	"github.com/007-hpr/orbitdeterminator/internal/modules/observations/repository"
	"github.com/007-hpr/orbitdeterminator/internal/modules/observations/service"
	"github.com/007-hpr/orbitdeterminator/internal/mqtt"
)

type Options struct {
	Metrics        *metrics.Collector
	DecodeWorkers  int
	MaxReportBytes int64
	Logger         *slog.Logger
}

// RegisterFeature wires the observations HTTP routes into mux and, when
// subscriber is non-nil, stores reports received over MQTT.
func RegisterFeature(mux *http.ServeMux, db *sql.DB, subscriber mqtt.MQTTSubscriber, opts Options) {
	observationsRepository := repository.NewRepository(db)
	observationsService := service.NewService(observationsRepository, opts.Metrics, opts.DecodeWorkers, opts.Logger)
	if subscriber != nil {
		observationsService.Register(subscriber)
	}
	observationsController := controller.NewObservationsController(observationsService, observationsRepository, opts.MaxReportBytes)
	observationsController.RegisterRoutes(mux)
}
