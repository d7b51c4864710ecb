// Package suggest coalesces autocomplete lookups while the user types.
//
// Every call gets a generation number. A call that is overtaken during the quiet
// period never reaches the network, and a response that returns after a newer call
// was issued is dropped, so only the latest call's result is ever applied.
package suggest

import (
	"context"
	"errors"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/timoknapp/orienteering-finder/pkg/logger"
	"github.com/timoknapp/orienteering-finder/pkg/metrics"
	"github.com/timoknapp/orienteering-finder/pkg/models"
)

var (
	ErrSuperseded = errors.New("suggestion request superseded by a newer one")
	ErrStale      = errors.New("suggestion response arrived after a newer request")
)

const (
	DefaultQuiet = 400 * time.Millisecond
	MinQuiet     = 300 * time.Millisecond
	MaxQuiet     = 500 * time.Millisecond

	// MinQueryLength is the shortest query, in runes, that triggers a lookup.
	MinQueryLength = 2
)

var log = logger.Named("suggest")

// Lookup fetches suggestions for query.
type Lookup func(ctx context.Context, query string) []models.LocationItem

// ClampQuiet keeps a configured quiet period inside the 300-500 ms window.
func ClampQuiet(d time.Duration) time.Duration {
	switch {
	case d <= 0:
		return DefaultQuiet
	case d < MinQuiet:
		return MinQuiet
	case d > MaxQuiet:
		return MaxQuiet
	}
	return d
}

// Debouncer serializes the suggestion requests of one user.
type Debouncer struct {
	quiet  time.Duration
	lookup Lookup

	mu     sync.Mutex
	gen    uint64
	latest []models.LocationItem
}

func NewDebouncer(quiet time.Duration, lookup Lookup) *Debouncer {
	return &Debouncer{quiet: quiet, lookup: lookup}
}

func (d *Debouncer) next() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen++
	return d.gen
}

func (d *Debouncer) current(gen uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gen == gen
}

// Do waits for the quiet period and then looks query up, unless a newer call
// arrived in the meantime (ErrSuperseded) or while the lookup was in flight
// (ErrStale). Queries shorter than MinQueryLength yield no suggestions.
func (d *Debouncer) Do(ctx context.Context, query string) ([]models.LocationItem, error) {
	gen := d.next()

	timer := time.NewTimer(d.quiet)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
	}

	if !d.current(gen) {
		return nil, ErrSuperseded
	}
	if utf8.RuneCountInString(query) < MinQueryLength {
		d.apply(gen, nil)
		return nil, nil
	}

	items := d.lookup(ctx, query)

	if !d.apply(gen, items) {
		log.Debug("Dropping stale suggestions for %q (generation %d)", query, gen)
		return nil, ErrStale
	}
	return items, nil
}

// apply stores items as the latest result if gen is still current.
func (d *Debouncer) apply(gen uint64, items []models.LocationItem) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.gen != gen {
		return false
	}
	d.latest = items
	return true
}

// applied returns the most recently applied suggestions.
func (d *Debouncer) applied() []models.LocationItem {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]models.LocationItem(nil), d.latest...)
}

// Hub hands out one Debouncer per session and forgets sessions idle for longer
// than the idle timeout.
type Hub struct {
	quiet  time.Duration
	idle   time.Duration
	lookup Lookup

	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	d        *Debouncer
	lastSeen time.Time
}

func NewHub(quiet time.Duration, lookup Lookup) *Hub {
	return &Hub{
		quiet:    quiet,
		idle:     10 * time.Minute,
		lookup:   lookup,
		sessions: make(map[string]*session),
	}
}

func (h *Hub) debouncer(id string) *Debouncer {
	now := time.Now()
	h.mu.Lock()
	defer h.mu.Unlock()
	for k, s := range h.sessions {
		if now.Sub(s.lastSeen) > h.idle {
			delete(h.sessions, k)
		}
	}
	s, ok := h.sessions[id]
	if !ok {
		s = &session{d: NewDebouncer(h.quiet, h.lookup)}
		h.sessions[id] = s
	}
	s.lastSeen = now
	return s.d
}

// Do runs query through the session's Debouncer.
func (h *Hub) Do(ctx context.Context, sessionID, query string) ([]models.LocationItem, error) {
	items, err := h.debouncer(sessionID).Do(ctx, query)
	switch {
	case errors.Is(err, ErrSuperseded):
		metrics.SuggestTotal.WithLabelValues("superseded").Inc()
	case errors.Is(err, ErrStale):
		metrics.SuggestTotal.WithLabelValues("stale").Inc()
	case err != nil:
		metrics.SuggestTotal.WithLabelValues("error").Inc()
	default:
		metrics.SuggestTotal.WithLabelValues("applied").Inc()
	}
	return items, err
}

// Sessions returns the number of tracked sessions.
func (h *Hub) Sessions() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}
