package filter

import (
	"strings"

	"github.com/timoknapp/orienteering-finder/pkg/geo"
	"github.com/timoknapp/orienteering-finder/pkg/models"
)

// Apply returns the competitions matching every active dimension of f, in input order.
func Apply(competitions []models.Competition, f models.SearchFilters) []models.Competition {
	out := make([]models.Competition, 0, len(competitions))
	for _, c := range competitions {
		if Match(c, f) {
			out = append(out, c)
		}
	}
	return out
}

// Match reports whether c satisfies all dimensions of f. Unset dimensions always match.
func Match(c models.Competition, f models.SearchFilters) bool {
	return matchesRegion(c, f) &&
		matchesDistrict(c, f) &&
		matchesDiscipline(c, f) &&
		matchesLevel(c, f) &&
		matchesTypes(c, f) &&
		matchesBranches(c, f) &&
		matchesDateRange(c, f) &&
		matchesSearch(c, f) &&
		matchesDistance(c, f)
}

func matchesRegion(c models.Competition, f models.SearchFilters) bool {
	return len(f.Regions) == 0 || contains(f.Regions, c.Region)
}

func matchesDistrict(c models.Competition, f models.SearchFilters) bool {
	return len(f.Districts) == 0 || contains(f.Districts, c.District)
}

func matchesDiscipline(c models.Competition, f models.SearchFilters) bool {
	return len(f.Disciplines) == 0 || contains(f.Disciplines, c.Discipline)
}

func matchesLevel(c models.Competition, f models.SearchFilters) bool {
	return len(f.Levels) == 0 || contains(f.Levels, c.Level)
}

// A competition without types never matches a non-empty type filter.
func matchesTypes(c models.Competition, f models.SearchFilters) bool {
	return len(f.Types) == 0 || intersects(f.Types, c.Types)
}

// Same absence rule as types.
func matchesBranches(c models.Competition, f models.SearchFilters) bool {
	return len(f.Branches) == 0 || intersects(f.Branches, c.Branches)
}

func matchesDateRange(c models.Competition, f models.SearchFilters) bool {
	if f.DateRange == nil {
		return true
	}
	from, to := f.DateRange.From, f.DateRange.To
	if from != nil && !from.IsZero() && c.Date.Before(*from) {
		return false
	}
	if to != nil && !to.IsZero() && c.Date.After(*to) {
		return false
	}
	return true
}

func matchesSearch(c models.Competition, f models.SearchFilters) bool {
	query := strings.ToLower(strings.TrimSpace(f.SearchQuery))
	if query == "" {
		return true
	}
	return strings.Contains(strings.ToLower(c.Name), query) ||
		strings.Contains(strings.ToLower(c.Location), query) ||
		strings.Contains(strings.ToLower(c.Organizer), query)
}

func matchesDistance(c models.Competition, f models.SearchFilters) bool {
	if f.UserLocation == nil || f.Distance == nil {
		return true
	}
	km, ok := geo.DistanceKm(c, *f.UserLocation)
	if !ok {
		return false
	}
	return km <= *f.Distance
}

func contains[T comparable](list []T, v T) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func intersects(want, have []string) bool {
	for _, h := range have {
		if contains(want, h) {
			return true
		}
	}
	return false
}

// IsEmpty reports whether f restricts nothing.
func IsEmpty(f models.SearchFilters) bool {
	return len(f.Regions) == 0 && len(f.Districts) == 0 && len(f.Disciplines) == 0 &&
		len(f.Levels) == 0 && len(f.Types) == 0 && len(f.Branches) == 0 &&
		strings.TrimSpace(f.SearchQuery) == "" &&
		(f.DateRange == nil || (f.DateRange.From == nil && f.DateRange.To == nil)) &&
		(f.Distance == nil || f.UserLocation == nil)
}
