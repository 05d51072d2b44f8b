package iod

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// ColumnNames lists every Dataset column in output order.
var ColumnNames = []string{
	"object", "station", "stationstatus",
	"yr", "month", "day",
	"hr", "min", "sec", "msec", "timeM", "timeX",
	"angformat", "epoch",
	"raaz", "decel", "radecazelM", "radecazelX",
	"optical", "vismagsign", "vismag", "vismaguncertainty", "flashperiod",
	"right_ascension", "declination", "azimuth", "elevation",
	"raHH", "raMM", "rammm",
	"decDD", "decMM", "decmmm",
}

// Observation is the row view of one decoded IOD line.
type Observation struct {
	Line   `yaml:",inline"`
	Angles Angles `json:"-" yaml:"-"`
	Digits `yaml:",inline"`

	RightAscension float64 `json:"right_ascension" yaml:"right_ascension"`
	Declination    float64 `json:"declination" yaml:"declination"`
	Azimuth        float64 `json:"azimuth" yaml:"azimuth"`
	Elevation      float64 `json:"elevation" yaml:"elevation"`

	// Index is the 0-based line of the source the observation was read from.
	Index int `json:"-" yaml:"-"`
}

// Time returns the UTC observation epoch. ok is false when a date or time
// field is missing from the line or out of range (month 13, day 31 of a
// 30-day month, hour 24).
func (o Observation) Time() (t time.Time, ok bool) {
	for _, v := range []int{o.Year, o.Month, o.Day, o.Hour, o.Minute, o.Second} {
		if v == Missing {
			return time.Time{}, false
		}
	}
	msec := max(o.Millisecond, 0)
	t = time.Date(o.Year, time.Month(o.Month), o.Day, o.Hour, o.Minute, o.Second, msec*int(time.Millisecond), time.UTC)
	if t.Year() != o.Year || int(t.Month()) != o.Month || t.Day() != o.Day ||
		t.Hour() != o.Hour || t.Minute() != o.Minute || t.Second() != o.Second {
		return time.Time{}, false
	}
	return t, true
}

// Decode tokenizes and decodes a single line.
func Decode(index int, text string) (Observation, error) {
	l, err := ParseLine(index, text)
	if err != nil {
		return Observation{}, err
	}
	a, err := DecodeAngles(l.AngFormat, l.RAAZ, l.DECEL)
	if err != nil {
		var mle *MalformedLineError
		if errors.As(err, &mle) {
			mle.Line = index
		}
		return Observation{}, err
	}
	return Observation{
		Line:           l,
		Angles:         a,
		Digits:         SplitDigits(l.RAAZ, l.DECEL),
		RightAscension: a.RightAscension,
		Declination:    a.Declination,
		Azimuth:        a.Azimuth,
		Elevation:      a.Elevation,
		Index:          index,
	}, nil
}

// Dataset is the column-oriented result of decoding an IOD source. Every
// column has one entry per decoded line, in input order.
type Dataset struct {
	Object        []string `json:"object" yaml:"object"`
	Station       []int    `json:"station" yaml:"station"`
	StationStatus []string `json:"stationstatus" yaml:"stationstatus"`

	Year  []int `json:"yr" yaml:"yr"`
	Month []int `json:"month" yaml:"month"`
	Day   []int `json:"day" yaml:"day"`

	Hour        []int `json:"hr" yaml:"hr"`
	Minute      []int `json:"min" yaml:"min"`
	Second      []int `json:"sec" yaml:"sec"`
	Millisecond []int `json:"msec" yaml:"msec"`
	TimeM       []int `json:"timeM" yaml:"timeM"`
	TimeX       []int `json:"timeX" yaml:"timeX"`

	AngFormat []int `json:"angformat" yaml:"angformat"`
	Epoch     []int `json:"epoch" yaml:"epoch"`

	RAAZ       []string `json:"raaz" yaml:"raaz"`
	DECEL      []string `json:"decel" yaml:"decel"`
	RADecAzElM []int    `json:"radecazelM" yaml:"radecazelM"`
	RADecAzElX []int    `json:"radecazelX" yaml:"radecazelX"`

	Optical           []string `json:"optical" yaml:"optical"`
	VisMagSign        []string `json:"vismagsign" yaml:"vismagsign"`
	VisMag            []int    `json:"vismag" yaml:"vismag"`
	VisMagUncertainty []int    `json:"vismaguncertainty" yaml:"vismaguncertainty"`
	FlashPeriod       []int    `json:"flashperiod" yaml:"flashperiod"`

	RightAscension []float64 `json:"right_ascension" yaml:"right_ascension"`
	Declination    []float64 `json:"declination" yaml:"declination"`
	Azimuth        []float64 `json:"azimuth" yaml:"azimuth"`
	Elevation      []float64 `json:"elevation" yaml:"elevation"`

	RAHH   []string `json:"raHH" yaml:"raHH"`
	RAMM   []string `json:"raMM" yaml:"raMM"`
	RAmmm  []string `json:"rammm" yaml:"rammm"`
	DecDD  []string `json:"decDD" yaml:"decDD"`
	DecMM  []string `json:"decMM" yaml:"decMM"`
	Decmmm []string `json:"decmmm" yaml:"decmmm"`

	frames []Frame
	lines  []int
}

// NewDataset returns an empty dataset with every column allocated, so that
// an empty source still encodes as empty sequences.
func NewDataset(capacity int) *Dataset {
	return &Dataset{
		Object:            make([]string, 0, capacity),
		Station:           make([]int, 0, capacity),
		StationStatus:     make([]string, 0, capacity),
		Year:              make([]int, 0, capacity),
		Month:             make([]int, 0, capacity),
		Day:               make([]int, 0, capacity),
		Hour:              make([]int, 0, capacity),
		Minute:            make([]int, 0, capacity),
		Second:            make([]int, 0, capacity),
		Millisecond:       make([]int, 0, capacity),
		TimeM:             make([]int, 0, capacity),
		TimeX:             make([]int, 0, capacity),
		AngFormat:         make([]int, 0, capacity),
		Epoch:             make([]int, 0, capacity),
		RAAZ:              make([]string, 0, capacity),
		DECEL:             make([]string, 0, capacity),
		RADecAzElM:        make([]int, 0, capacity),
		RADecAzElX:        make([]int, 0, capacity),
		Optical:           make([]string, 0, capacity),
		VisMagSign:        make([]string, 0, capacity),
		VisMag:            make([]int, 0, capacity),
		VisMagUncertainty: make([]int, 0, capacity),
		FlashPeriod:       make([]int, 0, capacity),
		RightAscension:    make([]float64, 0, capacity),
		Declination:       make([]float64, 0, capacity),
		Azimuth:           make([]float64, 0, capacity),
		Elevation:         make([]float64, 0, capacity),
		RAHH:              make([]string, 0, capacity),
		RAMM:              make([]string, 0, capacity),
		RAmmm:             make([]string, 0, capacity),
		DecDD:             make([]string, 0, capacity),
		DecMM:             make([]string, 0, capacity),
		Decmmm:            make([]string, 0, capacity),
		frames:            make([]Frame, 0, capacity),
		lines:             make([]int, 0, capacity),
	}
}

// Append adds one observation to the end of every column.
func (d *Dataset) Append(o Observation) {
	d.Object = append(d.Object, o.Object)
	d.Station = append(d.Station, o.Station)
	d.StationStatus = append(d.StationStatus, o.StationStatus)
	d.Year = append(d.Year, o.Year)
	d.Month = append(d.Month, o.Month)
	d.Day = append(d.Day, o.Day)
	d.Hour = append(d.Hour, o.Hour)
	d.Minute = append(d.Minute, o.Minute)
	d.Second = append(d.Second, o.Second)
	d.Millisecond = append(d.Millisecond, o.Millisecond)
	d.TimeM = append(d.TimeM, o.TimeM)
	d.TimeX = append(d.TimeX, o.TimeX)
	d.AngFormat = append(d.AngFormat, o.AngFormat)
	d.Epoch = append(d.Epoch, o.Epoch)
	d.RAAZ = append(d.RAAZ, o.RAAZ)
	d.DECEL = append(d.DECEL, o.DECEL)
	d.RADecAzElM = append(d.RADecAzElM, o.RADecAzElM)
	d.RADecAzElX = append(d.RADecAzElX, o.RADecAzElX)
	d.Optical = append(d.Optical, o.Optical)
	d.VisMagSign = append(d.VisMagSign, o.VisMagSign)
	d.VisMag = append(d.VisMag, o.VisMag)
	d.VisMagUncertainty = append(d.VisMagUncertainty, o.VisMagUncertainty)
	d.FlashPeriod = append(d.FlashPeriod, o.FlashPeriod)
	d.RightAscension = append(d.RightAscension, o.RightAscension)
	d.Declination = append(d.Declination, o.Declination)
	d.Azimuth = append(d.Azimuth, o.Azimuth)
	d.Elevation = append(d.Elevation, o.Elevation)
	d.RAHH = append(d.RAHH, o.RAHH)
	d.RAMM = append(d.RAMM, o.RAMM)
	d.RAmmm = append(d.RAmmm, o.RAmmm)
	d.DecDD = append(d.DecDD, o.DecDD)
	d.DecMM = append(d.DecMM, o.DecMM)
	d.Decmmm = append(d.Decmmm, o.Decmmm)
	d.frames = append(d.frames, o.Angles.Frame)
	d.lines = append(d.lines, o.Index)
}

// Len returns the number of decoded lines.
func (d *Dataset) Len() int {
	return len(d.Object)
}

// Row returns the observation at index i.
func (d *Dataset) Row(i int) Observation {
	o := Observation{
		Line: Line{
			Object:            d.Object[i],
			Station:           d.Station[i],
			StationStatus:     d.StationStatus[i],
			Year:              d.Year[i],
			Month:             d.Month[i],
			Day:               d.Day[i],
			Hour:              d.Hour[i],
			Minute:            d.Minute[i],
			Second:            d.Second[i],
			Millisecond:       d.Millisecond[i],
			TimeM:             d.TimeM[i],
			TimeX:             d.TimeX[i],
			AngFormat:         d.AngFormat[i],
			Epoch:             d.Epoch[i],
			RAAZ:              d.RAAZ[i],
			DECEL:             d.DECEL[i],
			RADecAzElM:        d.RADecAzElM[i],
			RADecAzElX:        d.RADecAzElX[i],
			Optical:           d.Optical[i],
			VisMagSign:        d.VisMagSign[i],
			VisMag:            d.VisMag[i],
			VisMagUncertainty: d.VisMagUncertainty[i],
			FlashPeriod:       d.FlashPeriod[i],
		},
		Digits: Digits{
			RAHH:   d.RAHH[i],
			RAMM:   d.RAMM[i],
			RAmmm:  d.RAmmm[i],
			DecDD:  d.DecDD[i],
			DecMM:  d.DecMM[i],
			Decmmm: d.Decmmm[i],
		},
		RightAscension: d.RightAscension[i],
		Declination:    d.Declination[i],
		Azimuth:        d.Azimuth[i],
		Elevation:      d.Elevation[i],
	}
	frame := AngleFormat(o.AngFormat).Frame()
	if i < len(d.frames) {
		frame = d.frames[i]
	}
	o.Index = i
	if i < len(d.lines) {
		o.Index = d.lines[i]
	}
	o.Angles = Angles{
		Frame:          frame,
		RightAscension: o.RightAscension,
		Declination:    o.Declination,
		Azimuth:        o.Azimuth,
		Elevation:      o.Elevation,
	}
	return o
}

// Rows returns every observation in input order.
func (d *Dataset) Rows() []Observation {
	out := make([]Observation, 0, d.Len())
	for i := range d.Len() {
		out = append(out, d.Row(i))
	}
	return out
}

// Columns returns the dataset as a mapping from column name to its sequence.
func (d *Dataset) Columns() map[string]any {
	return map[string]any{
		"object":            d.Object,
		"station":           d.Station,
		"stationstatus":     d.StationStatus,
		"yr":                d.Year,
		"month":             d.Month,
		"day":               d.Day,
		"hr":                d.Hour,
		"min":               d.Minute,
		"sec":               d.Second,
		"msec":              d.Millisecond,
		"timeM":             d.TimeM,
		"timeX":             d.TimeX,
		"angformat":         d.AngFormat,
		"epoch":             d.Epoch,
		"raaz":              d.RAAZ,
		"decel":             d.DECEL,
		"radecazelM":        d.RADecAzElM,
		"radecazelX":        d.RADecAzElX,
		"optical":           d.Optical,
		"vismagsign":        d.VisMagSign,
		"vismag":            d.VisMag,
		"vismaguncertainty": d.VisMagUncertainty,
		"flashperiod":       d.FlashPeriod,
		"right_ascension":   d.RightAscension,
		"declination":       d.Declination,
		"azimuth":           d.Azimuth,
		"elevation":         d.Elevation,
		"raHH":              d.RAHH,
		"raMM":              d.RAMM,
		"rammm":             d.RAmmm,
		"decDD":             d.DecDD,
		"decMM":             d.DecMM,
		"decmmm":            d.Decmmm,
	}
}

// Option configures Parse.
type Option func(*options)

type options struct {
	workers int
}

// WithWorkers decodes lines on up to n goroutines. Results and errors are
// identical to sequential decoding.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// Parse decodes every IOD line read from r. Blank lines and lines starting
// with '#' are skipped. The first malformed line aborts the parse and no
// dataset is returned.
func Parse(r io.Reader, opts ...Option) (*Dataset, error) {
	var lines []string
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			lines = append(lines, strings.TrimRight(line, "\r\n"))
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read iod lines: %w", err)
		}
	}
	return ParseLines(lines, opts...)
}

// ParseFile decodes the IOD file at path.
func ParseFile(path string, opts ...Option) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	ds, err := Parse(f, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ds, nil
}

// ParseLines decodes an in-memory list of lines. Error line indexes refer to
// positions in lines.
func ParseLines(lines []string, opts ...Option) (*Dataset, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	var index []int
	for i, l := range lines {
		if isRecord(l) {
			index = append(index, i)
		}
	}

	obs := make([]Observation, len(index))
	if o.workers > 1 {
		errs := make([]error, len(index))
		var g errgroup.Group
		g.SetLimit(o.workers)
		for k, i := range index {
			g.Go(func() error {
				obs[k], errs[k] = Decode(i, lines[i])
				return nil
			})
		}
		_ = g.Wait()
		for _, err := range errs {
			if err != nil {
				return nil, err
			}
		}
	} else {
		for k, i := range index {
			var err error
			obs[k], err = Decode(i, lines[i])
			if err != nil {
				return nil, err
			}
		}
	}

	ds := NewDataset(len(obs))
	for _, ob := range obs {
		ds.Append(ob)
	}
	return ds, nil
}

func isRecord(line string) bool {
	s := strings.TrimSpace(line)
	return s != "" && !strings.HasPrefix(s, "#")
}
