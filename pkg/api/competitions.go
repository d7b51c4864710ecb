package api

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/timoknapp/orienteering-finder/pkg/calendar"
	"github.com/timoknapp/orienteering-finder/pkg/competition"
	"github.com/timoknapp/orienteering-finder/pkg/filter"
	"github.com/timoknapp/orienteering-finder/pkg/geo"
	"github.com/timoknapp/orienteering-finder/pkg/mapview"
	"github.com/timoknapp/orienteering-finder/pkg/metrics"
	"github.com/timoknapp/orienteering-finder/pkg/models"
	"github.com/timoknapp/orienteering-finder/pkg/nlquery"
	"github.com/timoknapp/orienteering-finder/pkg/region"
)

const (
	ParamSort        = "sort"
	ParamView        = "view"
	ParamYear        = "year"
	ParamMonth       = "month"
	ParamInteracted  = "interacted"
	ParamReset       = "reset"
	ParamFavorites   = "favorites"
	ParamRegion      = "region"
	calendarMonths   = "months"
	calendarWeeks    = "weeks"
	calendarGrid     = "grid"
	defaultSortOrder = competition.SortDate
)

// CompetitionItem is a competition as listed to a session.
type CompetitionItem struct {
	models.Competition
	DistanceLabel string `json:"distanceLabel,omitempty"`
	IsFavorite    bool   `json:"isFavorite"`
}

type SearchResponse struct {
	Competitions     []CompetitionItem    `json:"competitions"`
	Total            int                  `json:"total"`
	Filters          models.SearchFilters `json:"filters"`
	Query            string               `json:"query"`
	LocationResolved bool                 `json:"locationResolved"`
}

// filters decodes the query string into search filters. With ai=1 the free text is
// run through the extractor first; a city without coordinates is geocoded.
// The second return is false when a requested city could not be resolved.
func (s *Server) filters(r *http.Request) (models.SearchFilters, bool) {
	q := r.URL.Query()
	f := filter.FromQuery(q)

	if on(q, filter.ParamAI) && f.SearchQuery != "" {
		raw := f.SearchQuery
		f = mergeExtracted(f, nlquery.Extract(raw, s.now()))
		if err := s.prefs(r).AddRecentQuery(r.Context(), raw); err != nil {
			log.Warn("Could not record recent query: %v", err)
		}
	}

	if f.UserLocation != nil || f.LocationCity == "" || s.geocoder == nil {
		return f, true
	}
	coords, ok := s.geocoder.ResolveCityToCoordinates(r.Context(), f.LocationCity)
	if !ok {
		return f, false
	}
	f.UserLocation = &coords
	f.IsManualLocation = true
	return f, true
}

// mergeExtracted adds the extracted criteria to explicit ones. An explicit date
// range wins over a relative date phrase.
func mergeExtracted(f, ext models.SearchFilters) models.SearchFilters {
	f.Regions = union(f.Regions, ext.Regions)
	f.Districts = union(f.Districts, ext.Districts)
	f.Disciplines = union(f.Disciplines, ext.Disciplines)
	f.Levels = union(f.Levels, ext.Levels)
	f.Types = union(f.Types, ext.Types)
	f.Branches = union(f.Branches, ext.Branches)
	if f.DateRange == nil {
		f.DateRange = ext.DateRange
	}
	f.SearchQuery = ext.SearchQuery
	return f
}

func union[T comparable](a, b []T) []T {
	out := append([]T(nil), a...)
	for _, v := range b {
		found := false
		for _, have := range out {
			if have == v {
				found = true
				break
			}
		}
		if !found {
			out = append(out, v)
		}
	}
	return out
}

func on(q url.Values, key string) bool {
	v := q.Get(key)
	return v == "1" || v == "true"
}

// search runs the filters and orders the result.
func (s *Server) search(r *http.Request) ([]models.Competition, models.SearchFilters, bool) {
	f, resolved := s.filters(r)
	list := s.competitions.Search(f)

	if on(r.URL.Query(), ParamFavorites) {
		favorites := make(map[string]bool)
		for _, id := range s.prefs(r).Favorites(r.Context()) {
			favorites[id] = true
		}
		kept := list[:0]
		for _, c := range list {
			if favorites[c.Id] {
				kept = append(kept, c)
			}
		}
		list = kept
	}

	order := r.URL.Query().Get(ParamSort)
	switch order {
	case competition.SortDistance:
		if f.UserLocation == nil {
			order = defaultSortOrder
		}
	case competition.SortName:
	default:
		order = defaultSortOrder
	}
	competition.Sort(list, order)
	return list, f, resolved
}

func (s *Server) items(r *http.Request, list []models.Competition) []CompetitionItem {
	favorites := make(map[string]bool)
	for _, id := range s.prefs(r).Favorites(r.Context()) {
		favorites[id] = true
	}
	out := make([]CompetitionItem, 0, len(list))
	for _, c := range list {
		item := CompetitionItem{Competition: c, IsFavorite: favorites[c.Id]}
		if c.Distance != nil {
			item.DistanceLabel = geo.FormatDistance(*c.Distance)
		}
		out = append(out, item)
	}
	return out
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	list, f, resolved := s.search(r)
	metrics.SearchResultsTotal.Observe(float64(len(list)))
	log.Debug("Search returned %d competitions", len(list))

	writeJSON(w, http.StatusOK, SearchResponse{
		Competitions:     s.items(r, list),
		Total:            len(list),
		Filters:          f,
		Query:            filter.Encode(f).Encode(),
		LocationResolved: resolved,
	})
}

func (s *Server) handleCompetition(w http.ResponseWriter, r *http.Request) {
	c, err := s.competitions.Get(r.Context(), r.PathValue("id"))
	if errors.Is(err, competition.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "Tävlingen hittades inte")
		return
	}
	if err != nil {
		log.Error("Failed to load competition %s: %v", r.PathValue("id"), err)
		writeError(w, http.StatusInternalServerError, "internal", "")
		return
	}
	writeJSON(w, http.StatusOK, CompetitionItem{
		Competition: c,
		IsFavorite:  s.prefs(r).IsFavorite(r.Context(), c.Id),
	})
}

func (s *Server) handleFeatured(w http.ResponseWriter, r *http.Request) {
	featured := s.competitions.Featured(models.DateOf(s.today()))
	writeJSON(w, http.StatusOK, s.items(r, featured))
}

// handleCalendar groups the filtered competitions. The grid view shows one month,
// by default the current one.
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	list, _, _ := s.search(r)
	q := r.URL.Query()

	switch q.Get(ParamView) {
	case calendarWeeks:
		writeJSON(w, http.StatusOK, calendar.GroupByWeek(list))
	case calendarGrid:
		now := s.today()
		year, month := now.Year(), now.Month()
		if y, err := strconv.Atoi(q.Get(ParamYear)); err == nil && y > 0 {
			year = y
		}
		if m, err := strconv.Atoi(q.Get(ParamMonth)); err == nil && m >= 1 && m <= 12 {
			month = time.Month(m)
		}
		writeJSON(w, http.StatusOK, calendar.BuildMonth(year, month, list))
	case calendarMonths, "":
		writeJSON(w, http.StatusOK, calendar.GroupByMonth(list))
	default:
		writeError(w, http.StatusBadRequest, "invalid_view", "view must be months, weeks or grid")
	}
}

// mapAdapter returns the session's adapter, forgetting adapters idle for longer
// than mapIdle and the least recently used ones beyond maxMapSessions.
// The caller holds mapsMu.
func (s *Server) mapAdapter(id string) *mapview.Adapter {
	now := s.now()
	for k, m := range s.maps {
		if now.Sub(m.lastSeen) > mapIdle {
			delete(s.maps, k)
		}
	}
	m, ok := s.maps[id]
	if !ok {
		for len(s.maps) >= maxMapSessions {
			s.evictOldestMap()
		}
		m = &mapSession{}
		s.maps[id] = m
	}
	m.lastSeen = now
	return &m.adapter
}

func (s *Server) evictOldestMap() {
	oldest := ""
	var at time.Time
	for k, m := range s.maps {
		if oldest == "" || m.lastSeen.Before(at) {
			oldest, at = k, m.lastSeen
		}
	}
	delete(s.maps, oldest)
}

// handleMap returns the marker plan for the session's map. interacted=1 records a
// pan or zoom so the view is left alone; reset=1 fits the bounds again.
func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	list, _, _ := s.search(r)
	q := r.URL.Query()

	s.mapsMu.Lock()
	a := s.mapAdapter(sessionID(r))
	if on(q, ParamInteracted) {
		a.Interacted()
	}
	if on(q, ParamReset) {
		a.Reset()
	}
	plan := a.Update(list)
	s.mapsMu.Unlock()

	writeJSON(w, http.StatusOK, plan)
}

func (s *Server) handleRegions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, region.GetRegions())
}

func (s *Server) handleDistricts(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get(ParamRegion)
	if id == "" {
		writeJSON(w, http.StatusOK, region.GetDistricts())
		return
	}
	if _, ok := region.LookupRegion(id); !ok {
		writeError(w, http.StatusNotFound, "not_found", "Okänd region")
		return
	}
	writeJSON(w, http.StatusOK, region.DistrictsInRegion(id))
}
