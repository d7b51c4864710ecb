package geo

import (
	"math"
	"testing"

	"github.com/timoknapp/orienteering-finder/pkg/models"
)

var (
	stockholm = models.Coordinates{Lat: 59.3293, Lng: 18.0686}
	goteborg  = models.Coordinates{Lat: 57.7089, Lng: 11.9746}
	umea      = models.Coordinates{Lat: 63.8258, Lng: 20.2630}
)

func TestHaversineKnownDistance(t *testing.T) {
	d := Haversine(stockholm, goteborg) / 1000
	if d < 390 || d > 405 {
		t.Fatalf("Stockholm-Göteborg = %.1f km, want about 398 km", d)
	}
}

func TestHaversineSymmetricAndZero(t *testing.T) {
	points := []models.Coordinates{stockholm, goteborg, umea, {Lat: -33.9, Lng: 151.2}}
	for _, a := range points {
		if d := Haversine(a, a); d != 0 {
			t.Errorf("Haversine(%v, %v) = %v, want 0", a, a, d)
		}
		for _, b := range points {
			if Haversine(a, b) != Haversine(b, a) {
				t.Errorf("Haversine not symmetric for %v and %v", a, b)
			}
		}
	}
}

func TestHaversineNaN(t *testing.T) {
	if d := Haversine(models.Coordinates{Lat: math.NaN()}, stockholm); !math.IsNaN(d) {
		t.Fatalf("expected NaN, got %v", d)
	}
}

func TestFormatDistance(t *testing.T) {
	tests := []struct {
		meters float64
		want   string
	}{
		{0, "0 m"},
		{999, "999 m"},
		{999.4, "999 m"},
		{999.6, "1.0 km"},
		{1000, "1.0 km"},
		{1549, "1.5 km"},
		{9949, "9.9 km"},
		{9960, "10 km"},
		{10000, "10 km"},
		{123456, "123 km"},
	}
	for _, tt := range tests {
		if got := FormatDistance(tt.meters); got != tt.want {
			t.Errorf("FormatDistance(%v) = %q, want %q", tt.meters, got, tt.want)
		}
	}
}

func TestAttachDistancesReusesValue(t *testing.T) {
	in := []models.Competition{
		{Id: "a", Coordinates: &goteborg},
		{Id: "b"},
	}
	out := AttachDistances(in, stockholm)

	if in[0].Distance != nil {
		t.Fatal("input must not be modified")
	}
	if out[0].Distance == nil || out[1].Distance != nil {
		t.Fatalf("unexpected distances: %v %v", out[0].Distance, out[1].Distance)
	}
	km, ok := DistanceKm(out[0], umea)
	if !ok || km != *out[0].Distance/1000 {
		t.Fatalf("DistanceKm should reuse the attached value, got %v", km)
	}
	if _, ok := DistanceKm(out[1], stockholm); ok {
		t.Fatal("competition without coordinates has no distance")
	}
}
