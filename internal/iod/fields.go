// Package iod decodes satellite position reports written in the Interactive
// Orbit Determination (IOD) fixed-width format.
// Format reference: http://www.satobs.org/position/IODformat.html
package iod

import (
	"strconv"
	"strings"
)

// Kind is the value type a fixed-width field is parsed into.
type Kind int

const (
	KindString Kind = iota
	KindInt
	// KindCode is a single-character code; only the first character of the
	// trimmed slice is kept.
	KindCode
)

// Field is one fixed-width column of an IOD line.
type Field struct {
	Name  string
	Width int
	Kind  Kind
}

// Schema lists the IOD fields in line order.
var Schema = []Field{
	{Name: "object", Width: 15, Kind: KindString},
	{Name: "station", Width: 5, Kind: KindInt},
	{Name: "stationstatus", Width: 2, Kind: KindCode},

	{Name: "yr", Width: 5, Kind: KindInt},
	{Name: "month", Width: 2, Kind: KindInt},
	{Name: "day", Width: 2, Kind: KindInt},

	{Name: "hr", Width: 2, Kind: KindInt},
	{Name: "min", Width: 2, Kind: KindInt},
	{Name: "sec", Width: 2, Kind: KindInt},
	{Name: "msec", Width: 3, Kind: KindInt},
	{Name: "timeM", Width: 2, Kind: KindInt},
	{Name: "timeX", Width: 1, Kind: KindInt},

	{Name: "angformat", Width: 2, Kind: KindInt},
	{Name: "epoch", Width: 1, Kind: KindInt},

	{Name: "raaz", Width: 8, Kind: KindString},
	{Name: "decel", Width: 7, Kind: KindString},
	{Name: "radecazelM", Width: 2, Kind: KindInt},
	{Name: "radecazelX", Width: 1, Kind: KindInt},

	{Name: "optical", Width: 2, Kind: KindCode},
	{Name: "vismagsign", Width: 1, Kind: KindCode},
	{Name: "vismag", Width: 3, Kind: KindInt},
	{Name: "vismaguncertainty", Width: 3, Kind: KindInt},
	{Name: "flashperiod", Width: 9, Kind: KindInt},
}

const (
	// LineWidth is the sum of all schema widths.
	LineWidth = 82
	// MinLineWidth is the mandatory prefix every line must carry. Anything
	// past it belongs to the optional flash period and reads as blank when
	// the line ends early.
	MinLineWidth = 75

	// Missing is stored for integer fields whose slice is blank.
	Missing = -1
)

// Line holds the raw fields of one IOD line, trimmed, with integer fields
// parsed.
type Line struct {
	Object        string `json:"object" yaml:"object"`
	Station       int    `json:"station" yaml:"station"`
	StationStatus string `json:"stationstatus" yaml:"stationstatus"`

	Year  int `json:"yr" yaml:"yr"`
	Month int `json:"month" yaml:"month"`
	Day   int `json:"day" yaml:"day"`

	Hour        int `json:"hr" yaml:"hr"`
	Minute      int `json:"min" yaml:"min"`
	Second      int `json:"sec" yaml:"sec"`
	Millisecond int `json:"msec" yaml:"msec"`
	TimeM       int `json:"timeM" yaml:"timeM"`
	TimeX       int `json:"timeX" yaml:"timeX"`

	AngFormat int `json:"angformat" yaml:"angformat"`
	Epoch     int `json:"epoch" yaml:"epoch"`

	RAAZ       string `json:"raaz" yaml:"raaz"`
	DECEL      string `json:"decel" yaml:"decel"`
	RADecAzElM int    `json:"radecazelM" yaml:"radecazelM"`
	RADecAzElX int    `json:"radecazelX" yaml:"radecazelX"`

	Optical           string `json:"optical" yaml:"optical"`
	VisMagSign        string `json:"vismagsign" yaml:"vismagsign"`
	VisMag            int    `json:"vismag" yaml:"vismag"`
	VisMagUncertainty int    `json:"vismaguncertainty" yaml:"vismaguncertainty"`
	FlashPeriod       int    `json:"flashperiod" yaml:"flashperiod"`
}

// ParseLine splits one IOD line into its fields. index is the 0-based
// position of the line in its source and is only used to annotate errors.
func ParseLine(index int, text string) (Line, error) {
	text = strings.TrimRight(text, "\r\n")
	if len(text) < MinLineWidth {
		return Line{}, &MalformedLineError{
			Line:  index,
			Field: fieldAt(len(text)),
			Err:   errShortLine(len(text)),
		}
	}

	p := fieldParser{index: index, text: text}

	var l Line
	l.Object = p.str()
	l.Station = p.integer()
	l.StationStatus = p.code()

	l.Year = p.integer()
	l.Month = p.integer()
	l.Day = p.integer()

	l.Hour = p.integer()
	l.Minute = p.integer()
	l.Second = p.integer()
	l.Millisecond = p.integer()
	l.TimeM = p.integer()
	l.TimeX = p.integer()

	l.AngFormat = p.integer()
	l.Epoch = p.integer()

	l.RAAZ = p.str()
	l.DECEL = p.str()
	l.RADecAzElM = p.integer()
	l.RADecAzElX = p.integer()

	l.Optical = p.code()
	l.VisMagSign = p.code()
	l.VisMag = p.integer()
	l.VisMagUncertainty = p.integer()
	l.FlashPeriod = p.integer()

	if p.err != nil {
		return Line{}, p.err
	}
	return l, nil
}

// fieldParser walks Schema over one line, keeping the first error.
type fieldParser struct {
	index int
	text  string
	pos   int
	field int
	err   error
}

func (p *fieldParser) next() (Field, string) {
	f := Schema[p.field]
	p.field++

	start := min(p.pos, len(p.text))
	end := min(p.pos+f.Width, len(p.text))
	p.pos += f.Width
	return f, strings.TrimSpace(p.text[start:end])
}

func (p *fieldParser) str() string {
	_, s := p.next()
	return s
}

func (p *fieldParser) code() string {
	_, s := p.next()
	if len(s) > 1 {
		s = s[:1]
	}
	return s
}

func (p *fieldParser) integer() int {
	f, s := p.next()
	if s == "" {
		return Missing
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		if p.err == nil {
			p.err = &MalformedLineError{Line: p.index, Field: f.Name, Err: err}
		}
		return Missing
	}
	return n
}

// fieldAt returns the name of the field covering character offset pos.
func fieldAt(pos int) string {
	end := 0
	for _, f := range Schema {
		end += f.Width
		if pos < end {
			return f.Name
		}
	}
	return Schema[len(Schema)-1].Name
}
