package controller

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/007-hpr/orbitdeterminator/internal/export"
)

func Test_parsePageQuery(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantLimit  int
		wantOffset int
		wantErr    bool
	}{
		{name: "defaults", query: "", wantLimit: 100, wantOffset: 0},
		{name: "explicit", query: "?limit=20&offset=40", wantLimit: 20, wantOffset: 40},
		{name: "max limit", query: "?limit=1000", wantLimit: 1000},
		{name: "limit too large", query: "?limit=1001", wantErr: true},
		{name: "zero limit", query: "?limit=0", wantErr: true},
		{name: "non-numeric limit", query: "?limit=ten", wantErr: true},
		{name: "negative offset", query: "?offset=-1", wantErr: true},
		{name: "non-numeric offset", query: "?offset=x", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/observations"+tt.query, nil)
			limit, offset, err := parsePageQuery(req)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parsePageQuery() err = nil; want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parsePageQuery() err = %v; want nil", err)
			}
			if limit != tt.wantLimit || offset != tt.wantOffset {
				t.Errorf("limit, offset = %d, %d; want %d, %d", limit, offset, tt.wantLimit, tt.wantOffset)
			}
		})
	}
}

func Test_parseStationID(t *testing.T) {
	if id, err := parseStationID("2701"); err != nil || id != 2701 {
		t.Errorf("parseStationID(2701) = %d, %v; want 2701, nil", id, err)
	}
	for _, s := range []string{"", "abc", "-4"} {
		if _, err := parseStationID(s); err == nil {
			t.Errorf("parseStationID(%q) err = nil; want error", s)
		}
	}
}

func Test_parseDecodeQuery(t *testing.T) {
	tests := []struct {
		query      string
		wantFormat export.Format
		wantRows   bool
		wantErr    bool
	}{
		{query: "", wantFormat: export.FormatJSON},
		{query: "?rows=true", wantFormat: export.FormatJSON, wantRows: true},
		{query: "?format=yml&rows=1", wantFormat: export.FormatYAML, wantRows: true},
		{query: "?format=csv", wantFormat: export.FormatCSV},
		{query: "?format=xml", wantErr: true},
		{query: "?rows=maybe", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/iod/decode"+tt.query, nil)
			format, rows, err := parseDecodeQuery(req)
			if tt.wantErr {
				if err == nil {
					t.Fatal("parseDecodeQuery() err = nil; want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parseDecodeQuery() err = %v; want nil", err)
			}
			if format != tt.wantFormat || rows != tt.wantRows {
				t.Errorf("format, rows = %q, %v; want %q, %v", format, rows, tt.wantFormat, tt.wantRows)
			}
		})
	}
}
