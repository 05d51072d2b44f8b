package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/007-hpr/orbitdeterminator/internal/iod"
	"github.com/007-hpr/orbitdeterminator/internal/modules/observations/types"
)

//go:embed sql/insert-observation.sql
var insertObservationSQL string

//go:embed sql/get-stations.sql
var getStationsSQL string

//go:embed sql/get-observations-by-object.sql
var getObservationsByObjectSQL string

//go:embed sql/get-observations-by-station.sql
var getObservationsByStationSQL string

//go:embed sql/count-observations-by-object.sql
var countObservationsByObjectSQL string

type ObservationsRepository interface {
	// InsertDataset stores every line of ds in one transaction and returns
	// the number of rows written. Nothing is stored on error.
	InsertDataset(ctx context.Context, source string, ds *iod.Dataset) (int, error)
	GetStations(ctx context.Context) ([]types.Station, error)
	GetObservationsByObject(ctx context.Context, object string, limit int, offset int) ([]types.Observation, error)
	GetObservationsByStation(ctx context.Context, station int, limit int, offset int) ([]types.Observation, error)
	CountObservationsByObject(ctx context.Context, object string) (int, error)
}

type repositoryImpl struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) ObservationsRepository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) InsertDataset(ctx context.Context, source string, ds *iod.Dataset) (int, error) {
	if ds == nil || ds.Len() == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin insert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, insertObservationSQL)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer func() {
		if err := stmt.Close(); err != nil {
			slog.Error("close insert statement", "error", err)
		}
	}()

	for i := range ds.Len() {
		o := ds.Row(i)
		var observedAt any
		if ts, ok := o.Time(); ok {
			observedAt = ts.Format(time.RFC3339Nano)
		}
		_, err := stmt.ExecContext(ctx,
			source, o.Index,
			o.Object, o.Station, o.StationStatus,
			o.Year, o.Month, o.Day, o.Hour, o.Minute, o.Second, o.Millisecond, o.TimeM, o.TimeX,
			o.AngFormat, o.Epoch,
			o.RAAZ, o.DECEL, o.RADecAzElM, o.RADecAzElX,
			o.Optical, o.VisMagSign, o.VisMag, o.VisMagUncertainty, o.FlashPeriod,
			o.RightAscension, o.Declination, o.Azimuth, o.Elevation,
			observedAt,
		)
		if err != nil {
			return 0, fmt.Errorf("insert observation %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit insert: %w", err)
	}
	return ds.Len(), nil
}

func (r *repositoryImpl) GetStations(ctx context.Context) ([]types.Station, error) {
	rows, err := r.db.QueryContext(ctx, getStationsSQL)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close stations rows", "error", err)
		}
	}()

	out := []types.Station{}
	for rows.Next() {
		var s types.Station
		var last sql.NullString
		if err := rows.Scan(&s.ID, &s.Observations, &last); err != nil {
			return nil, err
		}
		if last.Valid {
			t, err := parseTimestamp(last.String)
			if err != nil {
				return nil, err
			}
			s.LastObservedAt = &t
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *repositoryImpl) GetObservationsByObject(ctx context.Context, object string, limit int, offset int) ([]types.Observation, error) {
	rows, err := r.db.QueryContext(ctx, getObservationsByObjectSQL, object, limit, offset)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close object observations rows", "error", err)
		}
	}()
	return scanObservations(rows)
}

func (r *repositoryImpl) GetObservationsByStation(ctx context.Context, station int, limit int, offset int) ([]types.Observation, error) {
	rows, err := r.db.QueryContext(ctx, getObservationsByStationSQL, station, limit, offset)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close station observations rows", "error", err)
		}
	}()
	return scanObservations(rows)
}

func (r *repositoryImpl) CountObservationsByObject(ctx context.Context, object string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, countObservationsByObjectSQL, object).Scan(&n)
	return n, err
}

func scanObservations(rows *sql.Rows) ([]types.Observation, error) {
	out := []types.Observation{}
	for rows.Next() {
		var (
			rec        types.Observation
			o          = &rec.Observation
			observedAt sql.NullString
			receivedAt string
		)
		err := rows.Scan(
			&rec.ID, &rec.Source, &rec.Row,
			&o.Object, &o.Station, &o.StationStatus,
			&o.Year, &o.Month, &o.Day, &o.Hour, &o.Minute, &o.Second, &o.Millisecond, &o.TimeM, &o.TimeX,
			&o.AngFormat, &o.Epoch,
			&o.RAAZ, &o.DECEL, &o.RADecAzElM, &o.RADecAzElX,
			&o.Optical, &o.VisMagSign, &o.VisMag, &o.VisMagUncertainty, &o.FlashPeriod,
			&o.RightAscension, &o.Declination, &o.Azimuth, &o.Elevation,
			&observedAt, &receivedAt,
		)
		if err != nil {
			return nil, err
		}

		o.Index = rec.Row
		o.Digits = iod.SplitDigits(o.RAAZ, o.DECEL)
		o.Angles = iod.Angles{
			Frame:          iod.AngleFormat(o.AngFormat).Frame(),
			RightAscension: o.RightAscension,
			Declination:    o.Declination,
			Azimuth:        o.Azimuth,
			Elevation:      o.Elevation,
		}
		if p, err := o.Angles.LineOfSight(); err == nil {
			rec.LineOfSight = &types.Vector{X: p.X, Y: p.Y, Z: p.Z}
		}

		if observedAt.Valid {
			t, err := parseTimestamp(observedAt.String)
			if err != nil {
				return nil, err
			}
			rec.ObservedAt = &t
		}
		rec.ReceivedAt, err = parseTimestamp(receivedAt)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func parseTimestamp(ts string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		var err2 error
		t, err2 = time.Parse(time.RFC3339, ts)
		if err2 != nil {
			return time.Time{}, fmt.Errorf("parse timestamp %q: RFC3339Nano: %w; RFC3339: %w", ts, err, err2)
		}
	}
	return t, nil
}
