package competition

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sort"
	"strings"
	"sync"

	"github.com/timoknapp/orienteering-finder/pkg/filter"
	"github.com/timoknapp/orienteering-finder/pkg/geo"
	"github.com/timoknapp/orienteering-finder/pkg/logger"
	"github.com/timoknapp/orienteering-finder/pkg/models"
	"github.com/timoknapp/orienteering-finder/pkg/storage"
)

var ErrNotFound = errors.New("competition not found")

var log = logger.Named("competition")

// Sort orders accepted by Sort.
const (
	SortDate     = "date"
	SortDistance = "distance"
	SortName     = "name"
)

// Service serves the static competition collection. The collection never changes
// after construction; scraped resources live in the resource store.
type Service struct {
	competitions []models.Competition
	byId         map[string]int
	version      string
	memo         *filter.Memo
	resources    storage.Store

	// Approximate positions for competitions without coordinates, taken from the
	// organizing club's home town.
	homesMu  sync.RWMutex
	homes    map[string]models.Coordinates
	homesRev int
}

func NewService(competitions []models.Competition, store storage.Store) *Service {
	s := &Service{
		competitions: competitions,
		byId:         make(map[string]int, len(competitions)),
		memo:         filter.NewMemo(256),
		resources:    storage.Namespace(store, "resources"),
		homes:        make(map[string]models.Coordinates),
	}
	h := fnv.New64a()
	for i, c := range competitions {
		s.byId[c.Id] = i
		h.Write([]byte(c.Id))
		h.Write([]byte(c.Date.String()))
	}
	s.version = fmt.Sprintf("%x", h.Sum64())
	return s
}

// All returns the collection in dataset order.
func (s *Service) All() []models.Competition {
	return append([]models.Competition(nil), s.competitions...)
}

// SetHomeCoordinates records an approximate position for a competition that has no
// coordinates of its own. Competitions with coordinates are left alone.
func (s *Service) SetHomeCoordinates(id string, c models.Coordinates) error {
	i, ok := s.byId[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if s.competitions[i].Coordinates != nil {
		return nil
	}
	s.homesMu.Lock()
	defer s.homesMu.Unlock()
	if prev, ok := s.homes[id]; ok && prev == c {
		return nil
	}
	s.homes[id] = c
	s.homesRev++
	return nil
}

// located returns the collection with home-town positions filled in, and the
// version identifying that state.
func (s *Service) located() ([]models.Competition, string) {
	s.homesMu.RLock()
	defer s.homesMu.RUnlock()
	if len(s.homes) == 0 {
		return s.competitions, s.version
	}
	out := make([]models.Competition, len(s.competitions))
	for i, c := range s.competitions {
		if home, ok := s.homes[c.Id]; ok {
			c.Coordinates = &home
			c.ApproximateLocation = true
		}
		out[i] = c
	}
	return out, fmt.Sprintf("%s.%d", s.version, s.homesRev)
}

// Get returns the competition with scraped resources appended after the static ones.
func (s *Service) Get(ctx context.Context, id string) (models.Competition, error) {
	i, ok := s.byId[id]
	if !ok {
		return models.Competition{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	all, _ := s.located()
	c := all[i]
	c.Resources = append([]models.CompetitionResource(nil), c.Resources...)
	for _, r := range s.ScrapedResources(ctx, id) {
		if !hasResourceURL(c.Resources, r.URL) {
			c.Resources = append(c.Resources, r)
		}
	}
	return c, nil
}

// Search filters the collection. With a user location, distances are attached once
// and the same values drive both the distance filter and the response.
// The returned slice is owned by the caller.
func (s *Service) Search(f models.SearchFilters) []models.Competition {
	source, version := s.located()
	if f.UserLocation != nil {
		source = geo.AttachDistances(source, *f.UserLocation)
	}
	if filter.IsEmpty(f) {
		return append([]models.Competition(nil), source...)
	}
	return append([]models.Competition(nil), s.memo.Search(version, source, f)...)
}

// CachedSearches returns the number of memoized search results.
func (s *Service) CachedSearches() int {
	return s.memo.Len()
}

// Upcoming returns competitions on or after today in date order, at most limit (0 = all).
func (s *Service) Upcoming(today models.Date, limit int) []models.Competition {
	var out []models.Competition
	for _, c := range s.competitions {
		if !c.Date.Before(today) {
			out = append(out, c)
		}
	}
	Sort(out, SortDate)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Featured returns upcoming featured competitions in date order.
func (s *Service) Featured(today models.Date) []models.Competition {
	var out []models.Competition
	for _, c := range s.Upcoming(today, 0) {
		if c.Featured {
			out = append(out, c)
		}
	}
	return out
}

// ScrapedResources returns resources stored for id, or nil.
func (s *Service) ScrapedResources(ctx context.Context, id string) []models.CompetitionResource {
	var out []models.CompetitionResource
	if _, err := storage.GetJSON(ctx, s.resources, id, &out); err != nil {
		log.Warn("Ignoring stored resources for %s: %v", id, err)
		return nil
	}
	return out
}

func (s *Service) SaveScrapedResources(ctx context.Context, id string, resources []models.CompetitionResource) error {
	if _, ok := s.byId[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return storage.SetJSON(ctx, s.resources, id, resources)
}

func hasResourceURL(resources []models.CompetitionResource, url string) bool {
	for _, r := range resources {
		if r.URL == url {
			return true
		}
	}
	return false
}

// Sort orders competitions in place. Distance sorting puts competitions without a
// distance last; ties keep date order.
func Sort(competitions []models.Competition, by string) {
	sort.SliceStable(competitions, func(i, j int) bool {
		a, b := competitions[i], competitions[j]
		switch by {
		case SortDistance:
			if (a.Distance == nil) != (b.Distance == nil) {
				return a.Distance != nil
			}
			if a.Distance != nil && *a.Distance != *b.Distance {
				return *a.Distance < *b.Distance
			}
		case SortName:
			if an, bn := strings.ToLower(a.Name), strings.ToLower(b.Name); an != bn {
				return an < bn
			}
		}
		return a.Date.Before(b.Date)
	})
}
