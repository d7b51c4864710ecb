package competition

import (
	"context"
	"strings"
	"sync"

	"github.com/timoknapp/orienteering-finder/pkg/models"
	"github.com/timoknapp/orienteering-finder/pkg/openstreetmap"
	"github.com/timoknapp/orienteering-finder/pkg/region"
)

// Geocoder is the part of the location resolver that warmup drives.
type Geocoder interface {
	ResolveCityToCoordinates(ctx context.Context, name string) (models.Coordinates, bool)
	ResolveCoordinatesToPlace(ctx context.Context, lat, lng float64) models.LocationInfo
}

// ResourceFetcher scrapes the documents of an event page.
type ResourceFetcher interface {
	Fetch(ctx context.Context, pageURL string) ([]models.CompetitionResource, error)
}

type WarmupResult struct {
	Seats          int `json:"seats"`
	SeatsResolved  int `json:"seats_resolved"`
	Places         int `json:"places"`
	PlacesResolved int `json:"places_resolved"`
	Homes          int `json:"homes"`
	HomesResolved  int `json:"homes_resolved"`
	Pages          int `json:"pages"`
	Resources      int `json:"resources"`
	Failures       int `json:"failures"`
}

// fetchWorkers bounds concurrent event page downloads.
const fetchWorkers = 4

// Warmup fills the geocode cache with every district seat and the place of every
// upcoming competition, places competitions without coordinates at their
// organizer's home town, then refreshes scraped resources of competitions with a
// website. Geocoding runs sequentially to respect the public Nominatim rate limit.
// Either dependency may be nil to skip its part.
func Warmup(ctx context.Context, s *Service, geocoder Geocoder, fetcher ResourceFetcher, today models.Date) WarmupResult {
	var res WarmupResult
	upcoming := s.Upcoming(today, 0)
	log.Info("Warmup: %d upcoming competitions from %s", len(upcoming), today)

	if geocoder != nil {
		for _, d := range region.GetDistricts() {
			if ctx.Err() != nil {
				break
			}
			res.Seats++
			if _, ok := geocoder.ResolveCityToCoordinates(ctx, d.Seat); ok {
				res.SeatsResolved++
			}
		}
		for _, c := range upcoming {
			if ctx.Err() != nil {
				break
			}
			if c.Coordinates == nil {
				res.Homes++
				if resolveHome(ctx, s, geocoder, c) {
					res.HomesResolved++
				}
				continue
			}
			res.Places++
			if info := geocoder.ResolveCoordinatesToPlace(ctx, c.Coordinates.Lat, c.Coordinates.Lng); info != (models.LocationInfo{}) {
				res.PlacesResolved++
			}
		}
	}

	if fetcher != nil {
		var mu sync.Mutex
		var wg sync.WaitGroup
		sem := make(chan struct{}, fetchWorkers)
		for _, c := range upcoming {
			if c.Website == "" {
				continue
			}
			wg.Add(1)
			go func(c models.Competition) {
				defer wg.Done()
				sem <- struct{}{}
				defer func() { <-sem }()

				resources, err := fetcher.Fetch(ctx, c.Website)
				if err == nil {
					err = s.SaveScrapedResources(ctx, c.Id, resources)
				}

				mu.Lock()
				defer mu.Unlock()
				res.Pages++
				if err != nil {
					log.Warn("Warmup: resources for %s not refreshed: %v", c.Id, err)
					res.Failures++
					return
				}
				res.Resources += len(resources)
			}(c)
		}
		wg.Wait()
	}

	log.Info("Warmup finished. Seats %d/%d, places %d/%d, homes %d/%d, pages %d, resources %d, failures %d",
		res.SeatsResolved, res.Seats, res.PlacesResolved, res.Places, res.HomesResolved, res.Homes,
		res.Pages, res.Resources, res.Failures)
	return res
}

// resolveHome places a competition without coordinates at its organizer's home town.
func resolveHome(ctx context.Context, s *Service, geocoder Geocoder, c models.Competition) bool {
	if strings.TrimSpace(c.Organizer) == "" {
		return false
	}
	city := openstreetmap.CityFromOrganizer(c.Organizer)
	coords, ok := geocoder.ResolveCityToCoordinates(ctx, city)
	if !ok {
		log.Debug("Warmup: no home town for %s (organizer %q, city %q)", c.Id, c.Organizer, city)
		return false
	}
	if err := s.SetHomeCoordinates(c.Id, coords); err != nil {
		log.Warn("Warmup: %v", err)
		return false
	}
	return true
}
