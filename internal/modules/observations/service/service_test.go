package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/007-hpr/orbitdeterminator/internal/iod"
	"github.com/007-hpr/orbitdeterminator/internal/metrics"
	"github.com/007-hpr/orbitdeterminator/internal/modules/observations/types"
	"github.com/007-hpr/orbitdeterminator/internal/mqtt"
)

var lineDefaults = map[string]string{
	"object": "96 010A", "station": "2701", "stationstatus": "G",
	"yr": "2004", "month": "05", "day": "06", "hr": "01", "min": "26", "sec": "14", "msec": "270",
	"timeM": "17", "angformat": "2", "epoch": "5",
	"raaz": "1234567", "decel": "-123456", "radecazelM": "37",
	"optical": "S", "vismagsign": "+", "vismag": "050", "vismaguncertainty": "010",
}

func iodLine(overrides map[string]string) string {
	var b strings.Builder
	for _, f := range iod.Schema {
		v, ok := overrides[f.Name]
		if !ok {
			v = lineDefaults[f.Name]
		}
		b.WriteString(v + strings.Repeat(" ", f.Width-len(v)))
	}
	return b.String()
}

type insertCall struct {
	source string
	ds     *iod.Dataset
}

type mockRepo struct {
	inserts   []insertCall
	insertErr error
}

func (m *mockRepo) InsertDataset(ctx context.Context, source string, ds *iod.Dataset) (int, error) {
	if m.insertErr != nil {
		return 0, m.insertErr
	}
	m.inserts = append(m.inserts, insertCall{source: source, ds: ds})
	return ds.Len(), nil
}

func (m *mockRepo) GetStations(ctx context.Context) ([]types.Station, error) {
	return nil, nil
}

func (m *mockRepo) GetObservationsByObject(ctx context.Context, object string, limit, offset int) ([]types.Observation, error) {
	return nil, nil
}

func (m *mockRepo) GetObservationsByStation(ctx context.Context, station int, limit, offset int) ([]types.Observation, error) {
	return nil, nil
}

func (m *mockRepo) CountObservationsByObject(ctx context.Context, object string) (int, error) {
	return 0, nil
}

type fakeSubscriber struct {
	handler mqtt.ReportHandler
}

func (f *fakeSubscriber) SetMessageHandler(h mqtt.ReportHandler) {
	f.handler = h
}

func newTestService(t *testing.T, repo *mockRepo) (*Service, *metrics.Collector) {
	t.Helper()
	collector, err := metrics.NewCollector(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}
	return NewService(repo, collector, 2, nil), collector
}

func report(lines ...string) *strings.Reader {
	return strings.NewReader(strings.Join(lines, "\n") + "\n")
}

func TestDecode(t *testing.T) {
	svc, collector := newTestService(t, &mockRepo{})

	ds, err := svc.Decode(context.Background(), report(
		iodLine(nil),
		"# comment",
		iodLine(map[string]string{"angformat": "4", "raaz": "1234607"}),
	))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if ds.Len() != 2 {
		t.Fatalf("Decode: got %d lines, want 2", ds.Len())
	}
	if got := testutil.ToFloat64(collector.Reports.WithLabelValues(metrics.ResultOK)); got != 1 {
		t.Errorf("ok reports = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.LinesDecoded.WithLabelValues("horizontal")); got != 1 {
		t.Errorf("horizontal lines = %v, want 1", got)
	}
}

func TestDecode_Malformed(t *testing.T) {
	svc, collector := newTestService(t, &mockRepo{})

	_, err := svc.Decode(context.Background(), report(iodLine(nil), "too short"))
	if !errors.Is(err, iod.ErrMalformedLine) {
		t.Fatalf("Decode err = %v, want ErrMalformedLine", err)
	}
	if !IsMalformed(err) {
		t.Error("IsMalformed = false, want true")
	}
	if got := testutil.ToFloat64(collector.Reports.WithLabelValues(metrics.ResultMalformed)); got != 1 {
		t.Errorf("malformed reports = %v, want 1", got)
	}
}

func TestDecode_CanceledContext(t *testing.T) {
	svc, collector := newTestService(t, &mockRepo{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := svc.Decode(ctx, report(iodLine(nil))); !errors.Is(err, context.Canceled) {
		t.Fatalf("Decode err = %v, want context.Canceled", err)
	}
	if got := testutil.ToFloat64(collector.Reports.WithLabelValues(metrics.ResultError)); got != 1 {
		t.Errorf("error reports = %v, want 1", got)
	}
}

func TestIngest(t *testing.T) {
	repo := &mockRepo{}
	svc, collector := newTestService(t, repo)

	n, err := svc.Ingest(context.Background(), "http", report(iodLine(nil), iodLine(map[string]string{"station": "4353"})))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if n != 2 {
		t.Errorf("Ingest stored %d, want 2", n)
	}
	if len(repo.inserts) != 1 || repo.inserts[0].source != "http" {
		t.Fatalf("inserts = %+v, want one insert from http", repo.inserts)
	}
	if got := repo.inserts[0].ds.Station; len(got) != 2 || got[1] != 4353 {
		t.Errorf("stored stations = %v", got)
	}
	if got := testutil.ToFloat64(collector.ObservationsStored); got != 2 {
		t.Errorf("stored observations = %v, want 2", got)
	}
	if got := testutil.ToFloat64(collector.Reports.WithLabelValues(metrics.ResultOK)); got != 1 {
		t.Errorf("ok reports = %v, want 1", got)
	}
}

func TestIngest_MalformedStoresNothing(t *testing.T) {
	repo := &mockRepo{}
	svc, _ := newTestService(t, repo)

	_, err := svc.Ingest(context.Background(), "http", report(iodLine(nil), iodLine(map[string]string{"station": "27x1"})))
	if !IsMalformed(err) {
		t.Fatalf("Ingest err = %v, want malformed", err)
	}
	if len(repo.inserts) != 0 {
		t.Errorf("inserts = %d, want 0", len(repo.inserts))
	}
}

func TestIngest_StoreError(t *testing.T) {
	repo := &mockRepo{insertErr: errors.New("disk full")}
	svc, collector := newTestService(t, repo)

	_, err := svc.Ingest(context.Background(), "http", report(iodLine(nil)))
	if err == nil || IsMalformed(err) {
		t.Fatalf("Ingest err = %v, want store error", err)
	}
	if !strings.Contains(err.Error(), "disk full") {
		t.Errorf("err = %v, want wrapped repository error", err)
	}
	if got := testutil.ToFloat64(collector.Reports.WithLabelValues(metrics.ResultError)); got != 1 {
		t.Errorf("error reports = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.Reports.WithLabelValues(metrics.ResultOK)); got != 0 {
		t.Errorf("ok reports = %v, want 0", got)
	}
}

func TestRegister(t *testing.T) {
	repo := &mockRepo{}
	svc, _ := newTestService(t, repo)
	sub := &fakeSubscriber{}

	svc.Register(sub)
	if sub.handler == nil {
		t.Fatal("Register did not set a message handler")
	}

	if err := sub.handler("observers/2701/iod", []byte(iodLine(nil))); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if len(repo.inserts) != 1 || repo.inserts[0].source != "observers/2701/iod" {
		t.Errorf("inserts = %+v, want one insert with topic as source", repo.inserts)
	}

	if err := sub.handler("observers/2701/iod", []byte("garbage")); err == nil {
		t.Error("handler: error = nil for malformed payload")
	}
}
