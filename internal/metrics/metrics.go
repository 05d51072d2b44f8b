package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/007-hpr/orbitdeterminator/internal/iod"
)

// Report outcomes used as the result label of iod_reports_total.
const (
	ResultOK        = "ok"
	ResultMalformed = "malformed"
	ResultError     = "error"
)

// Collector bundles the decoder and ingest metrics.
type Collector struct {
	gatherer prometheus.Gatherer

	LinesDecoded       *prometheus.CounterVec
	Reports            *prometheus.CounterVec
	ObservationsStored prometheus.Counter
	DecodeDuration     prometheus.Histogram
}

// NewCollector registers the metrics against reg, defaulting to the global
// Prometheus registry when nil. Registering twice returns the existing
// collectors.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	lines, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "iod_lines_decoded_total",
		Help: "IOD lines decoded, labeled by the angle frame they populated.",
	}, []string{"frame"}), "iod_lines_decoded_total")
	if err != nil {
		return nil, err
	}

	reports, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "iod_reports_total",
		Help: "IOD reports processed, labeled by result (ok, malformed, error).",
	}, []string{"result"}), "iod_reports_total")
	if err != nil {
		return nil, err
	}

	stored, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "iod_observations_stored_total",
		Help: "Observations written to the store.",
	}), "iod_observations_stored_total")
	if err != nil {
		return nil, err
	}

	duration, err := register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "iod_decode_duration_seconds",
		Help:    "Time to decode one IOD report.",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}), "iod_decode_duration_seconds")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:           gatherer,
		LinesDecoded:       lines,
		Reports:            reports,
		ObservationsStored: stored,
		DecodeDuration:     duration,
	}, nil
}

// Handler exposes the /metrics endpoint.
func (c *Collector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// ObserveDecode records one decoded report. ds may be nil when decoding
// failed.
func (c *Collector) ObserveDecode(ds *iod.Dataset, took time.Duration, result string) {
	if c == nil {
		return
	}
	c.Reports.WithLabelValues(result).Inc()
	c.DecodeDuration.Observe(took.Seconds())
	if ds == nil {
		return
	}
	for i := range ds.Len() {
		frame := iod.AngleFormat(ds.AngFormat[i]).Frame()
		c.LinesDecoded.WithLabelValues(frame.String()).Inc()
	}
}

// ObserveStored adds n stored observations.
func (c *Collector) ObserveStored(n int) {
	if c == nil {
		return
	}
	c.ObservationsStored.Add(float64(n))
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T, name string) (T, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
			var zero T
			return zero, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		var zero T
		return zero, err
	}
	return c, nil
}
