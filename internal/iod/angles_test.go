package iod

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

const eps = 1e-9

func TestDecodeAngles(t *testing.T) {
	tests := []struct {
		name   string
		format int
		raaz   string
		decel  string
		frame  Frame
		ra     float64
		dec    float64
		az     float64
		el     float64
	}{
		{
			name:   "1 ra seconds",
			format: 1,
			raaz:   "1234565",
			decel:  "+123456",
			frame:  FrameEquatorial,
			ra:     (12 + (34+56.5/60)/60) * 15,
			dec:    12 + (34+56.0/60)/60,
			az:     Sentinel,
			el:     Sentinel,
		},
		{
			name:   "2 ra minutes",
			format: 2,
			raaz:   "1234567",
			decel:  "-123456",
			frame:  FrameEquatorial,
			ra:     188.64175,
			dec:    -12.576,
			az:     Sentinel,
			el:     Sentinel,
		},
		{
			name:   "3 ra minutes, dec degrees",
			format: 3,
			raaz:   "1234567",
			decel:  "+150456",
			frame:  FrameEquatorial,
			ra:     188.64175,
			dec:    15.456,
			az:     Sentinel,
			el:     Sentinel,
		},
		{
			name:   "4 az seconds",
			format: 4,
			raaz:   "1234607",
			decel:  "-123456",
			frame:  FrameHorizontal,
			ra:     Sentinel,
			dec:    Sentinel,
			az:     123 + (46+7.0/60)/60,
			el:     -(12 + (34+56.0/60)/60),
		},
		{
			name:   "5 az read as seconds, el minutes",
			format: 5,
			raaz:   "1234607",
			decel:  "-123456",
			frame:  FrameHorizontal,
			ra:     Sentinel,
			dec:    Sentinel,
			az:     123 + (46+7.0/60)/60,
			el:     -12.576,
		},
		{
			name:   "6 az degrees",
			format: 6,
			raaz:   "1270567",
			decel:  "-150456",
			frame:  FrameHorizontal,
			ra:     Sentinel,
			dec:    Sentinel,
			az:     127.567,
			el:     -15.456,
		},
		{
			name:   "7 ra seconds, dec degrees",
			format: 7,
			raaz:   "1234565",
			decel:  "+150456",
			frame:  FrameEquatorial,
			ra:     (12 + (34+56.5/60)/60) * 15,
			dec:    15.456,
			az:     Sentinel,
			el:     Sentinel,
		},
		{
			name:   "0 unrecognized",
			format: 0,
			raaz:   "1234567",
			decel:  "-123456",
			frame:  FrameNone,
			ra:     Sentinel,
			dec:    Sentinel,
			az:     Sentinel,
			el:     Sentinel,
		},
		{
			name:   "8 unrecognized",
			format: 8,
			raaz:   "garbage",
			decel:  "",
			frame:  FrameNone,
			ra:     Sentinel,
			dec:    Sentinel,
			az:     Sentinel,
			el:     Sentinel,
		},
		{
			name:   "missing format",
			format: Missing,
			frame:  FrameNone,
			ra:     Sentinel,
			dec:    Sentinel,
			az:     Sentinel,
			el:     Sentinel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := DecodeAngles(tt.format, tt.raaz, tt.decel)
			require.NoError(t, err)
			assert.Equal(t, tt.frame, a.Frame)
			assert.InDelta(t, tt.ra, a.RightAscension, eps, "right ascension")
			assert.InDelta(t, tt.dec, a.Declination, eps, "declination")
			assert.InDelta(t, tt.az, a.Azimuth, eps, "azimuth")
			assert.InDelta(t, tt.el, a.Elevation, eps, "elevation")
		})
	}
}

func TestDecodeAngles_positiveWithoutSign(t *testing.T) {
	// Only a leading '-' negates; any other first character is skipped.
	a, err := DecodeAngles(2, "1234567", " 123456")
	require.NoError(t, err)
	assert.InDelta(t, 12.576, a.Declination, eps)
}

func TestDecodeAngles_badDigits(t *testing.T) {
	tests := []struct {
		name   string
		format int
		raaz   string
		decel  string
		field  string
	}{
		{name: "raaz too short", format: 2, raaz: "12345", decel: "+123456", field: "raaz"},
		{name: "raaz letters", format: 1, raaz: "12AB567", decel: "+123456", field: "raaz"},
		{name: "decel empty", format: 3, raaz: "1234567", decel: "", field: "decel"},
		{name: "decel letters", format: 6, raaz: "1270567", decel: "-1x0456", field: "decel"},
		{name: "raaz nan", format: 2, raaz: "1234nan", decel: "+123456", field: "raaz"},
		{name: "raaz inf", format: 3, raaz: "1234inf", decel: "+123456", field: "raaz"},
		{name: "raaz exponent", format: 6, raaz: "12341e9", decel: "+123456", field: "raaz"},
		{name: "raaz inner sign", format: 1, raaz: "12+4567", decel: "+123456", field: "raaz"},
		{name: "decel exponent", format: 7, raaz: "1234567", decel: "-12e456", field: "decel"},
		{name: "decel blank group", format: 1, raaz: "1234567", decel: "+12  56", field: "decel"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := DecodeAngles(tt.format, tt.raaz, tt.decel)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedLine)

			var mle *MalformedLineError
			require.ErrorAs(t, err, &mle)
			assert.Equal(t, tt.field, mle.Field)
			assert.Equal(t, noAngles(), a)
		})
	}
}

func TestAngles_Equatorial(t *testing.T) {
	eq, err := DecodeAngles(2, "1234567", "-123456")
	require.NoError(t, err)
	ra, dec, err := eq.Equatorial()
	require.NoError(t, err)
	assert.InDelta(t, 188.64175, ra, eps)
	assert.InDelta(t, -12.576, dec, eps)

	hz, err := DecodeAngles(4, "1234607", "-123456")
	require.NoError(t, err)
	_, _, err = hz.Equatorial()
	assert.ErrorIs(t, err, ErrConversionUnimplemented)

	none, err := DecodeAngles(9, "", "")
	require.NoError(t, err)
	_, _, err = none.Equatorial()
	assert.ErrorIs(t, err, ErrNoAngles)
}

func TestAngles_LineOfSight(t *testing.T) {
	tests := []struct {
		name    string
		ra, dec float64
		x, y, z float64
	}{
		{name: "vernal equinox", ra: 0, dec: 0, x: 1, y: 0, z: 0},
		{name: "six hours", ra: 90, dec: 0, x: 0, y: 1, z: 0},
		{name: "north pole", ra: 45, dec: 90, x: 0, y: 0, z: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Angles{Frame: FrameEquatorial, RightAscension: tt.ra, Declination: tt.dec, Azimuth: Sentinel, Elevation: Sentinel}
			p, err := a.LineOfSight()
			require.NoError(t, err)
			assert.InDelta(t, tt.x, p.X, 1e-12)
			assert.InDelta(t, tt.y, p.Y, 1e-12)
			assert.InDelta(t, tt.z, p.Z, 1e-12)
		})
	}

	_, err := Angles{Frame: FrameHorizontal}.LineOfSight()
	assert.ErrorIs(t, err, ErrConversionUnimplemented)
}

func TestFrameString(t *testing.T) {
	assert.Equal(t, "equatorial", FrameEquatorial.String())
	assert.Equal(t, "horizontal", FrameHorizontal.String())
	assert.Equal(t, "none", FrameNone.String())
	assert.Equal(t, FrameHorizontal, FormatAzElMinutes.Frame())
	assert.Equal(t, FrameNone, AngleFormat(0).Frame())
}

func TestSplitDigits(t *testing.T) {
	d := SplitDigits("1234567", "-123456")
	assert.Equal(t, Digits{RAHH: "123", RAMM: "45", RAmmm: "67", DecDD: "-12", DecMM: "34", Decmmm: "56"}, d)

	short := SplitDigits("1234", "")
	assert.Equal(t, Digits{RAHH: "123", RAMM: "4"}, short)
}

func TestDecodeAngles_raMinutesProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		hh := rapid.IntRange(0, 23).Draw(t, "hh")
		mm := rapid.IntRange(0, 59).Draw(t, "mm")
		mmm := rapid.IntRange(0, 999).Draw(t, "mmm")
		dd := rapid.IntRange(0, 89).Draw(t, "dd")
		dm := rapid.IntRange(0, 59).Draw(t, "dm")
		dh := rapid.IntRange(0, 99).Draw(t, "dh")
		neg := rapid.Bool().Draw(t, "neg")

		sign := "+"
		if neg {
			sign = "-"
		}
		raaz := fmt.Sprintf("%02d%02d%03d", hh, mm, mmm)
		decel := fmt.Sprintf("%s%02d%02d%02d", sign, dd, dm, dh)

		a, err := DecodeAngles(int(FormatRADecMinutes), raaz, decel)
		require.NoError(t, err)

		wantRA := (float64(hh) + (float64(mm)+float64(mmm)/1000)/60) * 15
		wantDec := float64(dd) + (float64(dm)+float64(dh)/100)/60
		if neg {
			wantDec = -wantDec
		}
		assert.InDelta(t, wantRA, a.RightAscension, 1e-9)
		assert.InDelta(t, wantDec, a.Declination, 1e-9)
		assert.GreaterOrEqual(t, a.RightAscension, 0.0)
		assert.Less(t, a.RightAscension, 360.0)
		assert.LessOrEqual(t, math.Abs(a.Declination), 90.0)
		assert.Equal(t, Sentinel, a.Azimuth)
		assert.Equal(t, Sentinel, a.Elevation)

		d := SplitDigits(raaz, decel)
		assert.Equal(t, raaz, d.RAHH+d.RAMM+d.RAmmm)
		assert.Equal(t, decel, d.DecDD+d.DecMM+d.Decmmm)
	})
}

func TestDecodeAngles_unrecognizedProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		format := rapid.OneOf(rapid.IntRange(-100, 0), rapid.IntRange(8, 100)).Draw(t, "format")
		raaz := rapid.StringN(0, 8, -1).Draw(t, "raaz")
		decel := rapid.StringN(0, 7, -1).Draw(t, "decel")

		a, err := DecodeAngles(format, raaz, decel)
		require.NoError(t, err)
		assert.Equal(t, noAngles(), a)
	})
}

func TestDecodeAngles_secondsLayoutRangeProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		format := rapid.SampledFrom([]AngleFormat{FormatRADecSeconds, FormatAzElSeconds}).Draw(t, "format")
		sign := rapid.SampledFrom([]string{"+", "-"}).Draw(t, "sign")

		var raaz string
		if format == FormatRADecSeconds {
			raaz = fmt.Sprintf("%02d%02d%02d%d",
				rapid.IntRange(0, 23).Draw(t, "hh"),
				rapid.IntRange(0, 59).Draw(t, "mm"),
				rapid.IntRange(0, 59).Draw(t, "ss"),
				rapid.IntRange(0, 9).Draw(t, "s"))
		} else {
			raaz = fmt.Sprintf("%03d%02d%02d",
				rapid.IntRange(0, 359).Draw(t, "ddd"),
				rapid.IntRange(0, 59).Draw(t, "mm"),
				rapid.IntRange(0, 59).Draw(t, "ss"))
		}
		decel := fmt.Sprintf("%s%02d%02d%02d", sign,
			rapid.IntRange(0, 89).Draw(t, "dd"),
			rapid.IntRange(0, 59).Draw(t, "dm"),
			rapid.IntRange(0, 59).Draw(t, "ds"))

		a, err := DecodeAngles(int(format), raaz, decel)
		require.NoError(t, err)

		lon, lat := a.RightAscension, a.Declination
		if format == FormatAzElSeconds {
			lon, lat = a.Azimuth, a.Elevation
			assert.Equal(t, Sentinel, a.RightAscension)
			assert.Equal(t, Sentinel, a.Declination)
		} else {
			assert.Equal(t, Sentinel, a.Azimuth)
			assert.Equal(t, Sentinel, a.Elevation)
		}
		assert.GreaterOrEqual(t, lon, 0.0)
		assert.Less(t, lon, 360.0)
		assert.LessOrEqual(t, math.Abs(lat), 90.0)
		if sign == "-" {
			assert.LessOrEqual(t, lat, 0.0)
		}
	})
}

func TestDecodeAngles_degreesLayoutRangeProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		format := rapid.SampledFrom([]AngleFormat{
			FormatRADecDegrees, FormatAzElMinutes, FormatAzElDegrees, FormatRADecMixed,
		}).Draw(t, "format")
		sign := rapid.SampledFrom([]string{"+", "-"}).Draw(t, "sign")

		var raaz string
		switch format {
		case FormatRADecDegrees:
			raaz = fmt.Sprintf("%02d%02d%03d",
				rapid.IntRange(0, 23).Draw(t, "hh"),
				rapid.IntRange(0, 59).Draw(t, "mm"),
				rapid.IntRange(0, 999).Draw(t, "mmm"))
		case FormatRADecMixed:
			raaz = fmt.Sprintf("%02d%02d%02d%d",
				rapid.IntRange(0, 23).Draw(t, "hh"),
				rapid.IntRange(0, 59).Draw(t, "mm"),
				rapid.IntRange(0, 59).Draw(t, "ss"),
				rapid.IntRange(0, 9).Draw(t, "s"))
		case FormatAzElMinutes:
			raaz = fmt.Sprintf("%03d%02d%02d",
				rapid.IntRange(0, 359).Draw(t, "ddd"),
				rapid.IntRange(0, 59).Draw(t, "mm"),
				rapid.IntRange(0, 59).Draw(t, "ss"))
		default:
			raaz = fmt.Sprintf("%03d%04d",
				rapid.IntRange(0, 359).Draw(t, "ddd"),
				rapid.IntRange(0, 999).Draw(t, "dddd"))
		}

		var decel string
		if format == FormatAzElMinutes {
			decel = fmt.Sprintf("%s%02d%02d%02d", sign,
				rapid.IntRange(0, 89).Draw(t, "dd"),
				rapid.IntRange(0, 59).Draw(t, "dm"),
				rapid.IntRange(0, 99).Draw(t, "dh"))
		} else {
			decel = fmt.Sprintf("%s%02d%04d", sign,
				rapid.IntRange(0, 89).Draw(t, "dd"),
				rapid.IntRange(0, 999).Draw(t, "dddd"))
		}

		a, err := DecodeAngles(int(format), raaz, decel)
		require.NoError(t, err)

		lon, lat := a.RightAscension, a.Declination
		if format.Frame() == FrameHorizontal {
			lon, lat = a.Azimuth, a.Elevation
			assert.Equal(t, Sentinel, a.RightAscension)
			assert.Equal(t, Sentinel, a.Declination)
		} else {
			assert.Equal(t, Sentinel, a.Azimuth)
			assert.Equal(t, Sentinel, a.Elevation)
		}
		assert.GreaterOrEqual(t, lon, 0.0)
		assert.Less(t, lon, 360.0)
		assert.LessOrEqual(t, math.Abs(lat), 90.0)
		if sign == "-" {
			assert.LessOrEqual(t, lat, 0.0)
		} else {
			assert.GreaterOrEqual(t, lat, 0.0)
		}
	})
}
