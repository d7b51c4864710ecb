package mapview

import (
	"testing"

	"github.com/timoknapp/orienteering-finder/pkg/models"
)

func at(id string, lat, lng float64) models.Competition {
	return models.Competition{Id: id, Name: id, Coordinates: &models.Coordinates{Lat: lat, Lng: lng}}
}

func TestMarkersSkipCompetitionsWithoutCoordinates(t *testing.T) {
	d := 1500.0
	list := []models.Competition{at("a", 59, 18), {Id: "nowhere"}, at("b", 57, 12)}
	list[2].Distance = &d

	m := Markers(list)
	if len(m) != 2 || m[0].Id != "a" || m[1].Id != "b" {
		t.Fatalf("markers = %+v", m)
	}
	if m[1].Distance != "1.5 km" || m[0].Distance != "" {
		t.Fatalf("distance labels %q, %q", m[0].Distance, m[1].Distance)
	}
}

func TestDiff(t *testing.T) {
	prev := Markers([]models.Competition{at("keep", 59, 18), at("move", 57, 12), at("drop", 55, 13)})
	moved := at("move", 57.5, 12)
	next := Markers([]models.Competition{at("keep", 59, 18), moved, at("new", 63, 20)})

	ch := Diff(prev, next)
	if len(ch.Add) != 1 || ch.Add[0].Id != "new" {
		t.Errorf("Add = %+v", ch.Add)
	}
	if len(ch.Remove) != 1 || ch.Remove[0] != "drop" {
		t.Errorf("Remove = %v", ch.Remove)
	}
	if len(ch.Update) != 1 || ch.Update[0].Coordinates.Lat != 57.5 {
		t.Errorf("Update = %+v", ch.Update)
	}
	if !Diff(next, next).Empty() {
		t.Error("diff against itself is not empty")
	}
}

func TestShouldFitBounds(t *testing.T) {
	some := Markers([]models.Competition{at("a", 59, 18)})
	tests := []struct {
		interacted bool
		markers    []Marker
		want       bool
	}{
		{false, some, true},
		{true, some, false},
		{false, nil, false},
		{true, nil, false},
	}
	for _, tt := range tests {
		if got := ShouldFitBounds(tt.interacted, tt.markers); got != tt.want {
			t.Errorf("ShouldFitBounds(%v, %d markers) = %v", tt.interacted, len(tt.markers), got)
		}
	}
}

func TestBounds(t *testing.T) {
	if Bounds(nil) != nil {
		t.Fatal("bounds of nothing")
	}
	b := Bounds(Markers([]models.Competition{at("a", 59, 18), at("b", 55.6, 13), at("c", 67.8, 20.2)}))
	if *b != (BoundingBox{South: 55.6, West: 13, North: 67.8, East: 20.2}) {
		t.Fatalf("bounds = %+v", *b)
	}
}

func TestAdapterStopsFittingAfterInteraction(t *testing.T) {
	var a Adapter
	first := a.Update([]models.Competition{at("a", 59, 18)})
	if !first.FitBounds || first.Bounds == nil || len(first.Changes.Add) != 1 {
		t.Fatalf("first plan = %+v", first)
	}

	a.Interacted()
	second := a.Update([]models.Competition{at("a", 59, 18), at("b", 57, 12)})
	if second.FitBounds || second.Bounds != nil {
		t.Fatal("fitted bounds after the user moved the map")
	}
	if len(second.Changes.Add) != 1 || second.Changes.Add[0].Id != "b" {
		t.Fatalf("second changes = %+v", second.Changes)
	}

	a.Reset()
	if third := a.Update(nil); third.FitBounds || len(third.Changes.Remove) != 2 {
		t.Fatalf("third plan = %+v", third)
	}
}
