package preferences

import (
	"context"
	"strings"

	"github.com/timoknapp/orienteering-finder/pkg/logger"
	"github.com/timoknapp/orienteering-finder/pkg/models"
	"github.com/timoknapp/orienteering-finder/pkg/storage"
)

// Keys used inside a session namespace.
const (
	FavoritesKey       = "favorites"
	RecentQueriesKey   = "recentAISearches"
	LocationHistoryKey = "locationSearchHistory"

	MaxRecentQueries   = 5
	MaxLocationHistory = 5
)

var log = logger.Named("preferences")

// Preferences reads and writes one session's lists. Unreadable values count as empty.
type Preferences struct {
	store storage.Store
}

// ForSession scopes the store to a session id.
func ForSession(s storage.Store, sessionId string) *Preferences {
	return &Preferences{store: storage.Namespace(s, "session:"+sessionId)}
}

func (p *Preferences) list(ctx context.Context, key string, v any) {
	if _, err := storage.GetJSON(ctx, p.store, key, v); err != nil {
		log.Warn("Ignoring unreadable %s: %v", key, err)
	}
}

// Favorites returns favorited competition ids, oldest first.
func (p *Preferences) Favorites(ctx context.Context) []string {
	var ids []string
	p.list(ctx, FavoritesKey, &ids)
	return ids
}

func (p *Preferences) IsFavorite(ctx context.Context, id string) bool {
	for _, f := range p.Favorites(ctx) {
		if f == id {
			return true
		}
	}
	return false
}

// ToggleFavorite adds or removes id and reports whether it is now a favorite.
func (p *Preferences) ToggleFavorite(ctx context.Context, id string) (bool, error) {
	ids := p.Favorites(ctx)
	for i, f := range ids {
		if f == id {
			ids = append(ids[:i], ids[i+1:]...)
			return false, storage.SetJSON(ctx, p.store, FavoritesKey, ids)
		}
	}
	return true, storage.SetJSON(ctx, p.store, FavoritesKey, append(ids, id))
}

func (p *Preferences) AddFavorite(ctx context.Context, id string) error {
	if p.IsFavorite(ctx, id) {
		return nil
	}
	return storage.SetJSON(ctx, p.store, FavoritesKey, append(p.Favorites(ctx), id))
}

func (p *Preferences) RemoveFavorite(ctx context.Context, id string) error {
	if !p.IsFavorite(ctx, id) {
		return nil
	}
	_, err := p.ToggleFavorite(ctx, id)
	return err
}

// RecentQueries returns the last AI search queries, newest first.
func (p *Preferences) RecentQueries(ctx context.Context) []string {
	var queries []string
	p.list(ctx, RecentQueriesKey, &queries)
	return queries
}

// AddRecentQuery moves query to the front, dropping duplicates and the oldest overflow.
func (p *Preferences) AddRecentQuery(ctx context.Context, query string) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	out := []string{query}
	for _, q := range p.RecentQueries(ctx) {
		if q != query && len(out) < MaxRecentQueries {
			out = append(out, q)
		}
	}
	return storage.SetJSON(ctx, p.store, RecentQueriesKey, out)
}

func (p *Preferences) ClearRecentQueries(ctx context.Context) error {
	return p.store.Remove(ctx, RecentQueriesKey)
}

// LocationHistory returns manually entered locations, newest first.
func (p *Preferences) LocationHistory(ctx context.Context) []models.LocationItem {
	var items []models.LocationItem
	p.list(ctx, LocationHistoryKey, &items)
	return items
}

// AddLocation puts item first, deduplicated by name, keeping at most MaxLocationHistory.
func (p *Preferences) AddLocation(ctx context.Context, item models.LocationItem) error {
	item.Name = strings.TrimSpace(item.Name)
	if item.Name == "" {
		return nil
	}
	if item.Display == "" {
		item.Display = item.Name
	}
	out := []models.LocationItem{item}
	for _, existing := range p.LocationHistory(ctx) {
		if existing.Name != item.Name && len(out) < MaxLocationHistory {
			out = append(out, existing)
		}
	}
	return storage.SetJSON(ctx, p.store, LocationHistoryKey, out)
}

func (p *Preferences) ClearLocationHistory(ctx context.Context) error {
	return p.store.Remove(ctx, LocationHistoryKey)
}

// Clear removes everything stored for the session.
func (p *Preferences) Clear(ctx context.Context) error {
	return p.store.Clear(ctx)
}
