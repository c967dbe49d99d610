// SPDX-License-Identifier: MIT
package broadcast

import (
	"errors"
	"math"
	"testing"

	"audiomon/internal/analysis"
)

func TestAppendRecord(t *testing.T) {
	tests := []struct {
		name      string
		res       analysis.Result
		precision int
		want      string
	}{
		{"Silent", analysis.Result{Bands: make([]float64, 5)}, 1, "0.0,0.0,0.0,0.0,0.0,0.0\n"},
		{"Rounded", analysis.Result{RMS: 0.96, Bands: []float64{0.04, 1, 0.25}}, 1, "1.0,0.0,1.0,0.2\n"},
		{"TwoDecimals", analysis.Result{RMS: 0.5, Bands: []float64{1, 0.25}}, 2, "0.50,1.00,0.25\n"},
		{"NoBands", analysis.Result{RMS: 0.3}, 1, "0.3\n"},
		{"NegativeZero", analysis.Result{RMS: math.Copysign(0, -1), Bands: []float64{math.Copysign(0, -1)}}, 1, "0.0,0.0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := string(AppendRecord(nil, tt.res, tt.precision)); got != tt.want {
				t.Errorf("AppendRecord = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAppendRecordReusesBuffer(t *testing.T) {
	res := analysis.Result{RMS: 0.5, Bands: []float64{0.1, 0.2, 0.3, 0.4, 0.5}}
	buf := make([]byte, 0, 64)

	allocs := testing.AllocsPerRun(100, func() {
		buf = AppendRecord(buf[:0], res, 1)
	})
	if allocs > 0 {
		t.Errorf("AppendRecord allocated %.1f times with a sized buffer", allocs)
	}
}

func TestParseRecord(t *testing.T) {
	res, err := ParseRecord("0.5,0.1,0.2,0.3,0.4,1.0\n")
	if err != nil {
		t.Fatal(err)
	}
	if res.RMS != 0.5 || len(res.Bands) != 5 || res.Bands[4] != 1 {
		t.Errorf("ParseRecord = %+v", res)
	}

	for _, bad := range []string{"", "\n", "0.5,,0.2", "rms,bass"} {
		if _, err := ParseRecord(bad); !errors.Is(err, ErrRecordFormat) {
			t.Errorf("ParseRecord(%q) err = %v, want ErrRecordFormat", bad, err)
		}
	}
}

func TestParseRecordRoundTrip(t *testing.T) {
	in := analysis.Result{RMS: 0.7, Bands: []float64{0.1, 0.9, 0}}
	out, err := ParseRecord(string(AppendRecord(nil, in, 1)))
	if err != nil {
		t.Fatal(err)
	}
	if out.RMS != in.RMS || len(out.Bands) != len(in.Bands) {
		t.Fatalf("round trip = %+v, want %+v", out, in)
	}
	for i := range in.Bands {
		if out.Bands[i] != in.Bands[i] {
			t.Errorf("band %d = %v, want %v", i, out.Bands[i], in.Bands[i])
		}
	}
}

func TestHeader(t *testing.T) {
	if got := Header(analysis.DefaultBandNames, 5); got != "rms,bass,low_mids,mids,high_mids,highs" {
		t.Errorf("Header(default) = %q", got)
	}
	if got := Header(nil, 3); got != "rms,band_0,band_1,band_2" {
		t.Errorf("Header(nil, 3) = %q", got)
	}
}
