package httpapi

import (
	"database/sql"
	"net/http"
)

// NewMux serves /healthz and, when metrics is non-nil, /metrics.
func NewMux(db *sql.DB, mqtt ConnectionChecker, metrics http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	registerHealthcheck(mux, db, mqtt)
	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}
	return mux
}
