// Package mapview computes what a map needs to change when the competition list
// changes. It knows nothing about the rendering library.
package mapview

import (
	"sort"

	"github.com/timoknapp/orienteering-finder/pkg/geo"
	"github.com/timoknapp/orienteering-finder/pkg/models"
)

type Marker struct {
	Id          string             `json:"id"`
	Coordinates models.Coordinates `json:"coordinates"`
	Title       string             `json:"title"`
	Subtitle    string             `json:"subtitle"`
	Date        models.Date        `json:"date"`
	Discipline  models.Discipline  `json:"discipline"`
	Featured    bool               `json:"featured"`
	Distance    string             `json:"distance,omitempty"`
}

type Changes struct {
	Add    []Marker `json:"add"`
	Remove []string `json:"remove"`
	Update []Marker `json:"update"`
}

func (c Changes) Empty() bool {
	return len(c.Add) == 0 && len(c.Remove) == 0 && len(c.Update) == 0
}

type BoundingBox struct {
	South float64 `json:"south"`
	West  float64 `json:"west"`
	North float64 `json:"north"`
	East  float64 `json:"east"`
}

// Plan is everything the renderer has to do for one update.
type Plan struct {
	Markers   []Marker     `json:"markers"`
	Changes   Changes      `json:"changes"`
	FitBounds bool         `json:"fitBounds"`
	Bounds    *BoundingBox `json:"bounds,omitempty"`
}

// Markers returns one marker per competition with coordinates, in input order.
func Markers(competitions []models.Competition) []Marker {
	var out []Marker
	for _, c := range competitions {
		if c.Coordinates == nil {
			continue
		}
		m := Marker{
			Id:          c.Id,
			Coordinates: *c.Coordinates,
			Title:       c.Name,
			Subtitle:    c.Location,
			Date:        c.Date,
			Discipline:  c.Discipline,
			Featured:    c.Featured,
		}
		if c.Distance != nil {
			m.Distance = geo.FormatDistance(*c.Distance)
		}
		out = append(out, m)
	}
	return out
}

// Diff returns the changes that turn prev into next, keyed by marker id. Each list
// is sorted by id.
func Diff(prev, next []Marker) Changes {
	old := make(map[string]Marker, len(prev))
	for _, m := range prev {
		old[m.Id] = m
	}
	var ch Changes
	seen := make(map[string]bool, len(next))
	for _, m := range next {
		seen[m.Id] = true
		p, ok := old[m.Id]
		switch {
		case !ok:
			ch.Add = append(ch.Add, m)
		case p != m:
			ch.Update = append(ch.Update, m)
		}
	}
	for id := range old {
		if !seen[id] {
			ch.Remove = append(ch.Remove, id)
		}
	}
	sort.Slice(ch.Add, func(i, j int) bool { return ch.Add[i].Id < ch.Add[j].Id })
	sort.Slice(ch.Update, func(i, j int) bool { return ch.Update[i].Id < ch.Update[j].Id })
	sort.Strings(ch.Remove)
	return ch
}

// ShouldFitBounds decides whether the map zooms to the markers. It never does so
// once the user has panned or zoomed, and there is nothing to fit without markers.
func ShouldFitBounds(userInteracted bool, next []Marker) bool {
	return !userInteracted && len(next) > 0
}

// Bounds returns the box around all markers, or nil for none.
func Bounds(markers []Marker) *BoundingBox {
	if len(markers) == 0 {
		return nil
	}
	b := BoundingBox{
		South: markers[0].Coordinates.Lat, North: markers[0].Coordinates.Lat,
		West: markers[0].Coordinates.Lng, East: markers[0].Coordinates.Lng,
	}
	for _, m := range markers[1:] {
		b.South = min(b.South, m.Coordinates.Lat)
		b.North = max(b.North, m.Coordinates.Lat)
		b.West = min(b.West, m.Coordinates.Lng)
		b.East = max(b.East, m.Coordinates.Lng)
	}
	return &b
}

// Adapter remembers the markers last shown and whether the user has moved the map.
// It is not safe for concurrent use.
type Adapter struct {
	prev       []Marker
	interacted bool
}

// Interacted records that the user panned or zoomed.
func (a *Adapter) Interacted() { a.interacted = true }

// Reset forgets the interaction, e.g. when the user asks to show all results.
func (a *Adapter) Reset() { a.interacted = false }

// Update computes the plan for a new competition list and remembers its markers.
func (a *Adapter) Update(competitions []models.Competition) Plan {
	next := Markers(competitions)
	p := Plan{
		Markers:   next,
		Changes:   Diff(a.prev, next),
		FitBounds: ShouldFitBounds(a.interacted, next),
	}
	if p.FitBounds {
		p.Bounds = Bounds(next)
	}
	a.prev = next
	return p
}
