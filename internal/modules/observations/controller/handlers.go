package controller

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"

	"github.com/007-hpr/orbitdeterminator/internal/export"
	"github.com/007-hpr/orbitdeterminator/internal/modules/observations/service"
	"github.com/007-hpr/orbitdeterminator/internal/modules/observations/types"
	"github.com/007-hpr/orbitdeterminator/internal/utils"
)

const defaultSource = "http"

var contentTypes = map[export.Format]string{
	export.FormatJSON: "application/json; charset=utf-8",
	export.FormatCSV:  "text/csv; charset=utf-8",
	export.FormatYAML: "application/yaml; charset=utf-8",
}

func (c *observationsControllerImpl) handleDecode(w http.ResponseWriter, r *http.Request) {
	format, rows, err := parseDecodeQuery(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	body := http.MaxBytesReader(w, r.Body, c.maxReportBytes)
	ds, err := c.service.Decode(r.Context(), body)
	if err != nil {
		writeReportError(w, err)
		return
	}

	if format == export.FormatJSON {
		if rows {
			utils.WriteJSON(w, http.StatusOK, ds.Rows())
			return
		}
		utils.WriteJSON(w, http.StatusOK, ds)
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, ds, format, rows); err != nil {
		slog.Error("decode: export failed", "format", format, "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to encode dataset")
		return
	}
	w.Header().Set("Content-Type", contentTypes[format])
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Error("decode: write response failed", "error", err)
	}
}

func (c *observationsControllerImpl) handleIngest(w http.ResponseWriter, r *http.Request) {
	source := r.URL.Query().Get("source")
	if source == "" {
		source = defaultSource
	}

	body := http.MaxBytesReader(w, r.Body, c.maxReportBytes)
	n, err := c.service.Ingest(r.Context(), source, body)
	if err != nil {
		writeReportError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, types.IngestResult{Stored: n})
}

func (c *observationsControllerImpl) handleStations(w http.ResponseWriter, r *http.Request) {
	stations, err := c.repository.GetStations(r.Context())
	if err != nil {
		slog.Error("stations: query failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load stations")
		return
	}
	utils.WriteJSON(w, http.StatusOK, stations)
}

func (c *observationsControllerImpl) handleStationObservations(w http.ResponseWriter, r *http.Request) {
	id, err := parseStationID(r.PathValue("id"))
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	limit, offset, err := parsePageQuery(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	observations, err := c.repository.GetObservationsByStation(r.Context(), id, limit, offset)
	if err != nil {
		slog.Error("station observations: query failed", "station", id, "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load observations")
		return
	}
	utils.WriteJSON(w, http.StatusOK, observations)
}

func (c *observationsControllerImpl) handleObjectObservations(w http.ResponseWriter, r *http.Request) {
	object := r.PathValue("object")
	if object == "" {
		utils.WriteError(w, http.StatusBadRequest, "missing object")
		return
	}

	limit, offset, err := parsePageQuery(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	total, err := c.repository.CountObservationsByObject(r.Context(), object)
	if err != nil {
		slog.Error("object observations: count failed", "object", object, "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to count observations")
		return
	}

	items, err := c.repository.GetObservationsByObject(r.Context(), object, limit, offset)
	if err != nil {
		slog.Error("object observations: query failed", "object", object, "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load observations")
		return
	}

	utils.WriteJSON(w, http.StatusOK, types.ObservationPage{
		Items:  items,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

// writeReportError maps a decode or ingest failure to a response status.
func writeReportError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		utils.WriteError(w, http.StatusRequestEntityTooLarge, err.Error())
	case service.IsMalformed(err):
		utils.WriteError(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("report processing failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to process report")
	}
}
