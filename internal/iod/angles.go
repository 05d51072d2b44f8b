package iod

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/golang/geo/s2"
)

// Sentinel marks an angle that is not decoded for the observation's angle
// format.
const Sentinel = -1.0

// AngleFormat is the IOD angle-format code selecting how raaz and decel are
// laid out.
type AngleFormat int

const (
	FormatRADecSeconds AngleFormat = 1 // HHMMSSs+DDMMSS, precision in seconds of arc
	FormatRADecMinutes AngleFormat = 2 // HHMMmmm+DDMMmm, precision in minutes of arc
	FormatRADecDegrees AngleFormat = 3 // HHMMmmm+DDdddd, precision in degrees of arc
	FormatAzElSeconds  AngleFormat = 4 // DDDMMSS+DDMMSS, precision in seconds of arc
	FormatAzElMinutes  AngleFormat = 5 // DDDMMmm+DDMMmm, precision in minutes of arc
	FormatAzElDegrees  AngleFormat = 6 // DDDdddd+DDdddd, precision in degrees of arc
	FormatRADecMixed   AngleFormat = 7 // HHMMSSs+DDdddd, precision in degrees of arc
)

// Frame reports which angle pair an angle format populates.
type Frame int

const (
	FrameNone Frame = iota
	FrameEquatorial
	// FrameHorizontal observations carry azimuth/elevation only. They are not
	// converted to right ascension/declination.
	FrameHorizontal
)

func (f Frame) String() string {
	switch f {
	case FrameEquatorial:
		return "equatorial"
	case FrameHorizontal:
		return "horizontal"
	default:
		return "none"
	}
}

// Frame returns the angle pair populated by format f.
func (f AngleFormat) Frame() Frame {
	switch f {
	case FormatRADecSeconds, FormatRADecMinutes, FormatRADecDegrees, FormatRADecMixed:
		return FrameEquatorial
	case FormatAzElSeconds, FormatAzElMinutes, FormatAzElDegrees:
		return FrameHorizontal
	default:
		return FrameNone
	}
}

// Angles is the decoded angle pair of one observation, in decimal degrees.
// Values not produced by the angle format hold Sentinel.
type Angles struct {
	Frame          Frame
	RightAscension float64
	Declination    float64
	Azimuth        float64
	Elevation      float64
}

func noAngles() Angles {
	return Angles{
		Frame:          FrameNone,
		RightAscension: Sentinel,
		Declination:    Sentinel,
		Azimuth:        Sentinel,
		Elevation:      Sentinel,
	}
}

// Equatorial returns right ascension and declination. Horizontal observations
// return ErrConversionUnimplemented; unrecognized formats return ErrNoAngles.
func (a Angles) Equatorial() (ra float64, dec float64, err error) {
	switch a.Frame {
	case FrameEquatorial:
		return a.RightAscension, a.Declination, nil
	case FrameHorizontal:
		return Sentinel, Sentinel, ErrConversionUnimplemented
	default:
		return Sentinel, Sentinel, ErrNoAngles
	}
}

// LineOfSight returns the unit vector towards the observed position on the
// celestial sphere.
func (a Angles) LineOfSight() (s2.Point, error) {
	ra, dec, err := a.Equatorial()
	if err != nil {
		return s2.Point{}, err
	}
	return s2.PointFromLatLng(s2.LatLngFromDegrees(dec, ra)), nil
}

// DecodeAngles converts the raw raaz and decel strings of an IOD line into
// decimal degrees according to the angle-format code. An unrecognized code
// is not an error: all four angles stay at Sentinel.
func DecodeAngles(format int, raaz string, decel string) (Angles, error) {
	a := noAngles()
	d := digitReader{raaz: raaz, decel: decel}

	f := AngleFormat(format)
	switch f {
	case FormatRADecSeconds:
		a.RightAscension = d.raSeconds()
		a.Declination = d.sign() * d.degMinSec()
	case FormatRADecMinutes:
		a.RightAscension = d.raMinutes()
		a.Declination = d.sign() * d.degMinHundredths()
	case FormatRADecDegrees:
		a.RightAscension = d.raMinutes()
		a.Declination = d.sign() * d.degThousandths()
	case FormatAzElSeconds:
		a.Azimuth = d.azMinSec()
		a.Elevation = d.sign() * d.degMinSec()
	case FormatAzElMinutes:
		// Azimuth shares the seconds layout of format 4.
		a.Azimuth = d.azMinSec()
		a.Elevation = d.sign() * d.degMinHundredths()
	case FormatAzElDegrees:
		a.Azimuth = d.azThousandths()
		a.Elevation = d.sign() * d.degThousandths()
	case FormatRADecMixed:
		a.RightAscension = d.raSeconds()
		a.Declination = d.sign() * d.degThousandths()
	default:
		return a, nil
	}

	if d.err != nil {
		return noAngles(), d.err
	}
	a.Frame = f.Frame()
	return a, nil
}

// digitReader extracts numeric digit groups from raaz and decel, keeping the
// first failure.
type digitReader struct {
	raaz  string
	decel string
	err   error
}

func (d *digitReader) ra(lo, hi int) float64 {
	return d.num("raaz", d.raaz, lo, hi)
}

func (d *digitReader) dec(lo, hi int) float64 {
	return d.num("decel", d.decel, lo, hi)
}

func (d *digitReader) num(field, s string, lo, hi int) float64 {
	if d.err != nil {
		return 0
	}
	if hi > len(s) {
		d.err = &MalformedLineError{
			Field: field,
			Err:   fmt.Errorf("%q has %d characters, need %d", s, len(s), hi),
		}
		return 0
	}
	group := strings.TrimSpace(s[lo:hi])
	if !isDigits(group) {
		d.err = &MalformedLineError{Field: field, Err: fmt.Errorf("%q is not a digit group", s[lo:hi])}
		return 0
	}
	v, err := strconv.ParseFloat(group, 64)
	if err != nil {
		d.err = &MalformedLineError{Field: field, Err: err}
		return 0
	}
	return v
}

func (d *digitReader) sign() float64 {
	if strings.HasPrefix(d.decel, "-") {
		return -1.0
	}
	return 1.0
}

// HHMMSSs
func (d *digitReader) raSeconds() float64 {
	hh, mm, ss, s := d.ra(0, 2), d.ra(2, 4), d.ra(4, 6), d.ra(6, 7)
	return (hh + (mm+(ss+s/10.0)/60.0)/60.0) / 24.0 * 360.0
}

// HHMMmmm
func (d *digitReader) raMinutes() float64 {
	hh, mm, mmm := d.ra(0, 2), d.ra(2, 4), d.ra(4, 7)
	return (hh + (mm+mmm/1000.0)/60.0) / 24.0 * 360.0
}

// DDDMMSS
func (d *digitReader) azMinSec() float64 {
	ddd, mm, ss := d.ra(0, 3), d.ra(3, 5), d.ra(5, 7)
	return ddd + (mm+ss/60.0)/60.0
}

// DDDdddd
func (d *digitReader) azThousandths() float64 {
	ddd, dddd := d.ra(0, 3), d.ra(3, 7)
	return ddd + dddd/1000.0
}

// +DDMMSS
func (d *digitReader) degMinSec() float64 {
	dd, mm, ss := d.dec(1, 3), d.dec(3, 5), d.dec(5, 7)
	return dd + (mm+ss/60.0)/60.0
}

// +DDMMmm
func (d *digitReader) degMinHundredths() float64 {
	dd, mm, hh := d.dec(1, 3), d.dec(3, 5), d.dec(5, 7)
	return dd + (mm+hh/100.0)/60.0
}

// +DDdddd
func (d *digitReader) degThousandths() float64 {
	dd, dddd := d.dec(1, 3), d.dec(3, 7)
	return dd + dddd/1000.0
}

// Digits are the raw digit groups of raaz and decel, kept for traceability.
// They are split the same way regardless of angle format.
type Digits struct {
	RAHH   string `json:"raHH" yaml:"raHH"`
	RAMM   string `json:"raMM" yaml:"raMM"`
	RAmmm  string `json:"rammm" yaml:"rammm"`
	DecDD  string `json:"decDD" yaml:"decDD"`
	DecMM  string `json:"decMM" yaml:"decMM"`
	Decmmm string `json:"decmmm" yaml:"decmmm"`
}

// SplitDigits slices raaz and decel into [0:3], [3:5] and [5:7], clamped to
// the available length.
func SplitDigits(raaz string, decel string) Digits {
	return Digits{
		RAHH:   clamp(raaz, 0, 3),
		RAMM:   clamp(raaz, 3, 5),
		RAmmm:  clamp(raaz, 5, 7),
		DecDD:  clamp(decel, 0, 3),
		DecMM:  clamp(decel, 3, 5),
		Decmmm: clamp(decel, 5, 7),
	}
}

func clamp(s string, lo, hi int) string {
	lo = min(lo, len(s))
	hi = min(hi, len(s))
	return s[lo:hi]
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := range len(s) {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
