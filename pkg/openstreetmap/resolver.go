package openstreetmap

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/timoknapp/orienteering-finder/pkg/cache"
	"github.com/timoknapp/orienteering-finder/pkg/metrics"
	"github.com/timoknapp/orienteering-finder/pkg/models"
)

const (
	DefaultTimeout = 12 * time.Second
	SuggestLimit   = 5
	// MinSuggestLength is the shortest query, in runes, that is sent to a provider.
	MinSuggestLength = 2
)

// Resolver answers geocoding questions through the configured providers, in
// order, with results and confirmed misses kept in the cache. Failures never
// surface as errors to callers; they degrade to "not found".
type Resolver struct {
	providers []Provider
	cache     cache.Store
	timeout   time.Duration
	now       func() time.Time
}

// NewResolver builds a resolver. store may be nil to disable caching.
func NewResolver(store cache.Store, timeout time.Duration, providers ...Provider) *Resolver {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Resolver{providers: providers, cache: store, timeout: timeout, now: time.Now}
}

func forwardKey(name string) string {
	return "city:" + strings.ToLower(strings.Join(strings.Fields(name), " "))
}

func reverseKey(lat, lng float64) string {
	return fmt.Sprintf("rev:%.3f,%.3f", lat, lng)
}

// lookup consults the cache. It reports the cached entry and whether a provider
// call is needed.
func (r *Resolver) lookup(key string) (models.GeocodeEntry, bool) {
	if r.cache == nil {
		return models.GeocodeEntry{}, true
	}
	e, ok, err := r.cache.Get(key)
	if err != nil {
		log.Warn("Geocode cache read failed for %s: %v", key, err)
		return models.GeocodeEntry{}, true
	}
	switch {
	case !ok:
		metrics.GeocodeCacheTotal.WithLabelValues("miss").Inc()
		return e, true
	case e.Found():
		metrics.GeocodeCacheTotal.WithLabelValues("hit").Inc()
		return e, false
	case cache.ShouldRetry(e, r.now()):
		metrics.GeocodeCacheTotal.WithLabelValues("miss").Inc()
		return e, true
	default:
		metrics.GeocodeCacheTotal.WithLabelValues("negative").Inc()
		return e, false
	}
}

func (r *Resolver) store(key string, e models.GeocodeEntry) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Set(key, e); err != nil {
		log.Warn("Geocode cache write failed for %s: %v", key, err)
	}
}

// ResolveCityToCoordinates forward-geocodes name inside Sweden.
func (r *Resolver) ResolveCityToCoordinates(ctx context.Context, name string) (models.Coordinates, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Coordinates{}, false
	}
	key := forwardKey(name)
	prev, needed := r.lookup(key)
	if !needed {
		return models.Coordinates{Lat: prev.Lat, Lng: prev.Lng}, prev.Found()
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	answered := 0
	for _, p := range r.providers {
		start := time.Now()
		places, err := p.Search(ctx, name, 1)
		metrics.ObserveGeocode(p.Name(), "search", outcome(err), time.Since(start))
		if err == nil {
			place := places[0]
			r.store(key, models.GeocodeEntry{
				Lat:         place.Coordinates.Lat,
				Lng:         place.Coordinates.Lng,
				Place:       place.Info,
				LastAttempt: r.now().Unix(),
			})
			return place.Coordinates, true
		}
		if errors.Is(err, ErrNotFound) {
			answered++
		}
		log.Debug("%s could not resolve %q: %v", p.Name(), name, err)
	}
	// Only cache a miss every provider confirmed; outages must not poison the cache.
	if answered == len(r.providers) && answered > 0 {
		r.store(key, cache.Failed(prev, r.now()))
	}
	return models.Coordinates{}, false
}

// ResolveCoordinatesToPlace reverse-geocodes a position. It is best effort: any
// field of the result may be empty, and all of them are when nothing is known.
func (r *Resolver) ResolveCoordinatesToPlace(ctx context.Context, lat, lng float64) models.LocationInfo {
	key := reverseKey(lat, lng)
	prev, needed := r.lookup(key)
	if !needed {
		return prev.Place
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	answered := 0
	for _, p := range r.providers {
		start := time.Now()
		info, err := p.Reverse(ctx, lat, lng)
		metrics.ObserveGeocode(p.Name(), "reverse", outcome(err), time.Since(start))
		if err == nil {
			r.store(key, models.GeocodeEntry{Lat: lat, Lng: lng, Place: info, LastAttempt: r.now().Unix()})
			return info
		}
		if errors.Is(err, ErrNotFound) {
			answered++
		}
		log.Debug("%s could not reverse %.5f,%.5f: %v", p.Name(), lat, lng, err)
	}
	if answered == len(r.providers) && answered > 0 {
		r.store(key, cache.Failed(prev, r.now()))
	}
	return models.LocationInfo{}
}

// Suggest returns up to SuggestLimit place names for autocomplete. Suggestions are
// not cached; the first provider with results wins.
func (r *Resolver) Suggest(ctx context.Context, query string) []models.LocationItem {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < MinSuggestLength {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	for _, p := range r.providers {
		start := time.Now()
		places, err := p.Search(ctx, query, SuggestLimit)
		metrics.ObserveGeocode(p.Name(), "suggest", outcome(err), time.Since(start))
		if err != nil {
			continue
		}
		var items []models.LocationItem
		seen := make(map[string]bool)
		for _, place := range places {
			display := firstNonEmpty(place.Info.DisplayName, place.Name)
			if place.Name == "" || seen[display] {
				continue
			}
			seen[display] = true
			items = append(items, models.LocationItem{Name: place.Name, Display: display})
		}
		if len(items) > SuggestLimit {
			items = items[:SuggestLimit]
		}
		return items
	}
	return nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "unavailable"
	}
}
