package controller

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/007-hpr/orbitdeterminator/internal/export"
)

const (
	defaultPageLimit = 100
	maxPageLimit     = 1000
)

func parsePageQuery(r *http.Request) (limit int, offset int, err error) {
	q := r.URL.Query()

	limit = defaultPageLimit
	if s := q.Get("limit"); s != "" {
		n, convErr := strconv.Atoi(s)
		if convErr != nil {
			return 0, 0, errors.New("invalid 'limit' (expected integer)")
		}
		if n <= 0 {
			return 0, 0, errors.New("'limit' must be > 0")
		}
		if n > maxPageLimit {
			return 0, 0, errors.New("'limit' must be <= 1000")
		}
		limit = n
	}

	if s := q.Get("offset"); s != "" {
		n, convErr := strconv.Atoi(s)
		if convErr != nil {
			return 0, 0, errors.New("invalid 'offset' (expected integer)")
		}
		if n < 0 {
			return 0, 0, errors.New("'offset' must be >= 0")
		}
		offset = n
	}

	return limit, offset, nil
}

func parseStationID(s string) (int, error) {
	if s == "" {
		return 0, errors.New("missing station id")
	}
	id, err := strconv.Atoi(s)
	if err != nil || id < 0 {
		return 0, errors.New("invalid station id (expected non-negative integer)")
	}
	return id, nil
}

// parseDecodeQuery reads the output format (default json) and whether the
// dataset should be returned as per-line records.
func parseDecodeQuery(r *http.Request) (format export.Format, rows bool, err error) {
	q := r.URL.Query()

	format = export.FormatJSON
	if s := q.Get("format"); s != "" {
		format, err = export.ParseFormat(s)
		if err != nil {
			return "", false, err
		}
	}

	if s := q.Get("rows"); s != "" {
		rows, err = strconv.ParseBool(strings.TrimSpace(s))
		if err != nil {
			return "", false, errors.New("invalid 'rows' (expected boolean)")
		}
	}
	return format, rows, nil
}
