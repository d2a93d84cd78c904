package geo

import (
	"math"
	"testing"
)

func TestLngLatValid(t *testing.T) {
	tests := []struct {
		name string
		p    LngLat
		want bool
	}{
		{"origin", LngLat{0, 0}, true},
		{"bounds", LngLat{180, -90}, true},
		{"lng out of range", LngLat{181, 0}, false},
		{"lat out of range", LngLat{0, 91}, false},
		{"nan", LngLat{math.NaN(), 0}, false},
		{"inf", LngLat{0, math.Inf(1)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p.Valid(); got != tt.want {
				t.Errorf("LngLat%v.Valid() = %v, want %v", tt.p, got, tt.want)
			}
		})
	}
}

func TestLngLatLerp(t *testing.T) {
	a := LngLat{0, 0}
	b := LngLat{10, 20}
	got := a.Lerp(b, 0.5)
	want := LngLat{5, 10}
	if !got.Equal(want, 1e-9) {
		t.Errorf("LngLat.Lerp() = %v, want %v", got, want)
	}
}

func TestLngLatLerpAntimeridian(t *testing.T) {
	tests := []struct {
		name     string
		from, to LngLat
		t        float64
		want     LngLat
	}{
		{"east to west", LngLat{170, 0}, LngLat{-170, 10}, 0.5, LngLat{-180, 5}},
		{"quarter way", LngLat{170, 0}, LngLat{-170, 0}, 0.25, LngLat{175, 0}},
		{"west to east", LngLat{-175, 0}, LngLat{175, 0}, 0.5, LngLat{-180, 0}},
		{"arrives", LngLat{170, 0}, LngLat{-170, 0}, 1, LngLat{-170, 0}},
		{"no wrap", LngLat{-10, 0}, LngLat{30, 0}, 0.5, LngLat{10, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.from.Lerp(tt.to, tt.t)
			if !got.Equal(tt.want, 1e-9) {
				t.Errorf("LngLat.Lerp() = %v, want %v", got, tt.want)
			}
			if !got.Valid() {
				t.Errorf("LngLat.Lerp() = %v is out of range", got)
			}
		})
	}
}

func TestNormalizeLng(t *testing.T) {
	tests := []struct{ in, want float64 }{
		{0, 0}, {180, -180}, {-180, -180}, {190, -170}, {-190, 170}, {540, -180}, {179.5, 179.5},
	}
	for _, tt := range tests {
		if got := NormalizeLng(tt.in); got != tt.want {
			t.Errorf("NormalizeLng(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLngLatDistance(t *testing.T) {
	// One degree of latitude is roughly 111.2 km.
	got := LngLat{0, 0}.Distance(LngLat{0, 1})
	if got < 111000 || got > 111400 {
		t.Errorf("LngLat.Distance() = %v, want ~111195", got)
	}
	if d := (LngLat{13.4, 52.5}).Distance(LngLat{13.4, 52.5}); d != 0 {
		t.Errorf("LngLat.Distance() to self = %v, want 0", d)
	}
}

func TestShortestBearing(t *testing.T) {
	tests := []struct {
		from, to, want float64
	}{
		{0, 90, 90},
		{350, 10, 370},
		{10, 350, -10},
		{0, 180, -180},
		{720, 30, 750},
	}
	for _, tt := range tests {
		got := ShortestBearing(tt.from, tt.to)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("ShortestBearing(%v, %v) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestNormalizeBearing(t *testing.T) {
	if got := NormalizeBearing(-30); got != 330 {
		t.Errorf("NormalizeBearing(-30) = %v, want 330", got)
	}
	if got := NormalizeBearing(370); got != 10 {
		t.Errorf("NormalizeBearing(370) = %v, want 10", got)
	}
}
