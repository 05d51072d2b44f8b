// Package export writes decoded IOD datasets as JSON, CSV or YAML.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/007-hpr/orbitdeterminator/internal/iod"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatYAML Format = "yaml"
)

// Formats lists the supported output formats.
var Formats = []Format{FormatJSON, FormatCSV, FormatYAML}

// ParseFormat accepts a format name, case-insensitively; "yml" is YAML.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown format %q (allowed: json, csv, yaml)", s)
	}
}

// Write encodes ds to w. With rows set, JSON and YAML output is a list of
// per-line records instead of a mapping of columns. CSV is always one record
// per line under a header of iod.ColumnNames.
func Write(w io.Writer, ds *iod.Dataset, format Format, rows bool) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if rows {
			return enc.Encode(ds.Rows())
		}
		return enc.Encode(ds)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		var err error
		if rows {
			err = enc.Encode(ds.Rows())
		} else {
			err = enc.Encode(ds)
		}
		if err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case FormatCSV:
		return writeCSV(w, ds)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func writeCSV(w io.Writer, ds *iod.Dataset) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(iod.ColumnNames); err != nil {
		return fmt.Errorf("csv write header: %w", err)
	}
	for i := range ds.Len() {
		if err := cw.Write(record(ds.Row(i))); err != nil {
			return fmt.Errorf("csv write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// record flattens o in iod.ColumnNames order.
func record(o iod.Observation) []string {
	itoa := strconv.Itoa
	ftoa := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	return []string{
		o.Object, itoa(o.Station), o.StationStatus,
		itoa(o.Year), itoa(o.Month), itoa(o.Day),
		itoa(o.Hour), itoa(o.Minute), itoa(o.Second), itoa(o.Millisecond), itoa(o.TimeM), itoa(o.TimeX),
		itoa(o.AngFormat), itoa(o.Epoch),
		o.RAAZ, o.DECEL, itoa(o.RADecAzElM), itoa(o.RADecAzElX),
		o.Optical, o.VisMagSign, itoa(o.VisMag), itoa(o.VisMagUncertainty), itoa(o.FlashPeriod),
		ftoa(o.RightAscension), ftoa(o.Declination), ftoa(o.Azimuth), ftoa(o.Elevation),
		o.RAHH, o.RAMM, o.RAmmm,
		o.DecDD, o.DecMM, o.Decmmm,
	}
}
