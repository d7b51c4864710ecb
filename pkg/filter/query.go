package filter

import (
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/timoknapp/orienteering-finder/pkg/models"
	"github.com/timoknapp/orienteering-finder/pkg/util"
)

// Query-string keys of the search route.
const (
	ParamDisciplines = "disciplines"
	ParamLevels      = "levels"
	ParamRegions     = "regions"
	ParamDistricts   = "districts"
	ParamTypes       = "types"
	ParamBranches    = "branches"
	ParamFrom        = "from"
	ParamTo          = "to"
	ParamQuery       = "q"
	ParamAI          = "ai"
	ParamLat         = "lat"
	ParamLng         = "lng"
	ParamDistance    = "distance"
	ParamCity        = "city"
	ParamManual      = "manual"
)

// FromQuery decodes filter state from a query string. List values may be repeated
// or comma separated. Values that do not parse are dropped.
func FromQuery(q url.Values) models.SearchFilters {
	f := models.SearchFilters{
		Regions:     listParam(q, ParamRegions),
		Districts:   listParam(q, ParamDistricts),
		Types:       listParam(q, ParamTypes),
		Branches:    listParam(q, ParamBranches),
		SearchQuery: strings.TrimSpace(q.Get(ParamQuery)),
	}

	for _, v := range listParam(q, ParamDisciplines) {
		if d, ok := ParseDiscipline(v); ok {
			f.Disciplines = append(f.Disciplines, d)
		}
	}
	for _, v := range listParam(q, ParamLevels) {
		if l, ok := ParseLevel(v); ok {
			f.Levels = append(f.Levels, l)
		}
	}

	from := dateParam(q, ParamFrom)
	to := dateParam(q, ParamTo)
	if from != nil || to != nil {
		f.DateRange = &models.DateRange{From: from, To: to}
	}

	lat, latErr := strconv.ParseFloat(q.Get(ParamLat), 64)
	lng, lngErr := strconv.ParseFloat(q.Get(ParamLng), 64)
	if latErr == nil && lngErr == nil {
		loc := models.Coordinates{Lat: lat, Lng: lng}
		if loc.Valid() {
			f.UserLocation = &loc
		}
	}
	if d, err := strconv.ParseFloat(q.Get(ParamDistance), 64); err == nil && d > 0 {
		f.Distance = &d
	}
	f.LocationCity = strings.TrimSpace(q.Get(ParamCity))
	f.IsManualLocation = q.Get(ParamManual) == "1" || q.Get(ParamManual) == "true"

	return f
}

// Encode is the inverse of FromQuery. Lists are sorted so equal filters encode equally.
func Encode(f models.SearchFilters) url.Values {
	q := url.Values{}
	setList(q, ParamRegions, f.Regions)
	setList(q, ParamDistricts, f.Districts)
	setList(q, ParamTypes, f.Types)
	setList(q, ParamBranches, f.Branches)
	setList(q, ParamDisciplines, toStrings(f.Disciplines))
	setList(q, ParamLevels, toStrings(f.Levels))
	if f.SearchQuery != "" {
		q.Set(ParamQuery, f.SearchQuery)
	}
	if f.DateRange != nil {
		if f.DateRange.From != nil && !f.DateRange.From.IsZero() {
			q.Set(ParamFrom, f.DateRange.From.String())
		}
		if f.DateRange.To != nil && !f.DateRange.To.IsZero() {
			q.Set(ParamTo, f.DateRange.To.String())
		}
	}
	if f.UserLocation != nil {
		q.Set(ParamLat, strconv.FormatFloat(f.UserLocation.Lat, 'f', -1, 64))
		q.Set(ParamLng, strconv.FormatFloat(f.UserLocation.Lng, 'f', -1, 64))
	}
	if f.Distance != nil {
		q.Set(ParamDistance, strconv.FormatFloat(*f.Distance, 'f', -1, 64))
	}
	if f.LocationCity != "" {
		q.Set(ParamCity, f.LocationCity)
	}
	if f.IsManualLocation {
		q.Set(ParamManual, "1")
	}
	return q
}

// ParseDiscipline matches a discipline name case-insensitively.
func ParseDiscipline(s string) (models.Discipline, bool) {
	for _, d := range models.Disciplines {
		if strings.EqualFold(string(d), s) {
			return d, true
		}
	}
	return "", false
}

// ParseLevel matches a level name case-insensitively.
func ParseLevel(s string) (models.Level, bool) {
	for _, l := range models.Levels {
		if strings.EqualFold(string(l), s) {
			return l, true
		}
	}
	return "", false
}

func listParam(q url.Values, key string) []string {
	var out []string
	for _, raw := range q[key] {
		out = append(out, util.SplitList(raw)...)
	}
	return out
}

func dateParam(q url.Values, key string) *models.Date {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return nil
	}
	d, err := models.ParseDate(raw)
	if err != nil {
		return nil
	}
	return &d
}

func setList(q url.Values, key string, values []string) {
	if len(values) == 0 {
		return
	}
	sorted := append([]string(nil), values...)
	sort.Strings(sorted)
	q.Set(key, strings.Join(sorted, ","))
}

func toStrings[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}
