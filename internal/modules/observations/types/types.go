package types

import (
	"time"

	"github.com/007-hpr/orbitdeterminator/internal/iod"
)

// Station summarises the observations stored for one observing station.
type Station struct {
	ID             int        `json:"id"`
	Observations   int        `json:"observations"`
	LastObservedAt *time.Time `json:"lastObservedAt,omitempty"`
}

// Vector is a unit line-of-sight vector in the equatorial frame.
type Vector struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Observation is one stored IOD line.
type Observation struct {
	ID     int64  `json:"id"`
	Source string `json:"source"`
	Row    int    `json:"row"`

	iod.Observation

	ObservedAt  *time.Time `json:"observedAt,omitempty"`
	ReceivedAt  time.Time  `json:"receivedAt"`
	LineOfSight *Vector    `json:"los,omitempty"`
}

// ObservationPage is one page of an object's observation history.
type ObservationPage struct {
	Items  []Observation `json:"items"`
	Total  int           `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

// IngestResult is returned after a report has been stored.
type IngestResult struct {
	Stored int `json:"stored"`
}
