package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/timoknapp/orienteering-finder/pkg/competition"
	"github.com/timoknapp/orienteering-finder/pkg/metrics"
	"github.com/timoknapp/orienteering-finder/pkg/models"
	"github.com/timoknapp/orienteering-finder/pkg/storage"
	"github.com/timoknapp/orienteering-finder/pkg/suggest"
)

var (
	lund    = models.Coordinates{Lat: 55.7047, Lng: 13.1910}
	uppsala = models.Coordinates{Lat: 59.8586, Lng: 17.6389}
)

func fixtures() []models.Competition {
	return []models.Competition{
		{Id: "c1", Name: "Sprint i Lund", Organizer: "OK Lund", Location: "Lund", Region: "sodra", District: "skane",
			Discipline: models.Sprint, Level: models.Nationell, Date: models.NewDate(2025, 3, 15),
			RegistrationDeadline: models.NewDate(2025, 3, 1), Coordinates: &lund, Featured: true},
		{Id: "c2", Name: "Natt-OL Uppsala", Organizer: "Upsala IF", Location: "Uppsala", Region: "ostra", District: "uppland",
			Discipline: models.Natt, Level: models.Distrikt, Date: models.NewDate(2025, 3, 22),
			RegistrationDeadline: models.NewDate(2025, 3, 10), Coordinates: &uppsala},
		{Id: "c3", Name: "Medel Luleå", Organizer: "Luleå OK", Location: "Luleå", Region: "norra", District: "norrbotten",
			Discipline: models.Medel, Level: models.Klubb, Date: models.NewDate(2025, 4, 5),
			RegistrationDeadline: models.NewDate(2025, 3, 25)},
	}
}

type fakeGeocoder struct {
	cities map[string]models.Coordinates
	places map[models.Coordinates]models.LocationInfo
}

func (g fakeGeocoder) ResolveCityToCoordinates(_ context.Context, name string) (models.Coordinates, bool) {
	c, ok := g.cities[strings.ToLower(name)]
	return c, ok
}

func (g fakeGeocoder) ResolveCoordinatesToPlace(_ context.Context, lat, lng float64) models.LocationInfo {
	return g.places[models.Coordinates{Lat: lat, Lng: lng}]
}

func newTestServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()
	store := storage.NewMemoryStore()
	geocoder := fakeGeocoder{
		cities: map[string]models.Coordinates{"lund": lund},
		places: map[models.Coordinates]models.LocationInfo{lund: {City: "Lund", Municipality: "Lunds kommun"}},
	}
	hub := suggest.NewHub(time.Millisecond, func(_ context.Context, q string) []models.LocationItem {
		return []models.LocationItem{{Name: "Lund", Display: "Lund, Skåne län"}}
	})
	s := NewServer(competition.NewService(fixtures(), store), geocoder, hub, store)
	s.now = func() time.Time { return time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC) }
	return s, s.Handler([]string{"*"})
}

func do(t *testing.T, h http.Handler, method, target, user, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if user != "" {
		req.Header.Set(UserIDHeader, user)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func ids(items []CompetitionItem) []string {
	var out []string
	for _, c := range items {
		out = append(out, c.Id)
	}
	return out
}

func TestSearchFiltersByDiscipline(t *testing.T) {
	_, h := newTestServer(t)
	rec := do(t, h, http.MethodGet, "/api/competitions?disciplines=sprint,natt", "u1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	resp := decode[SearchResponse](t, rec)
	if resp.Total != 2 || strings.Join(ids(resp.Competitions), ",") != "c1,c2" {
		t.Fatalf("got %v", ids(resp.Competitions))
	}
	if !strings.Contains(resp.Query, "disciplines=") {
		t.Errorf("query = %q", resp.Query)
	}
}

func TestSearchSortsByDistanceWithLabels(t *testing.T) {
	_, h := newTestServer(t)
	resp := decode[SearchResponse](t, do(t, h, http.MethodGet, "/api/competitions?lat=59.86&lng=17.64&sort=distance", "u1", ""))
	if got := strings.Join(ids(resp.Competitions), ","); got != "c2,c1,c3" {
		t.Fatalf("order = %s", got)
	}
	if resp.Competitions[0].DistanceLabel == "" || resp.Competitions[2].DistanceLabel != "" {
		t.Errorf("labels = %q, %q", resp.Competitions[0].DistanceLabel, resp.Competitions[2].DistanceLabel)
	}
}

func TestSearchDistanceFilter(t *testing.T) {
	_, h := newTestServer(t)
	resp := decode[SearchResponse](t, do(t, h, http.MethodGet, "/api/competitions?lat=55.70&lng=13.19&distance=50", "u1", ""))
	if got := strings.Join(ids(resp.Competitions), ","); got != "c1" {
		t.Fatalf("got %s", got)
	}
}

func TestSearchGeocodesCity(t *testing.T) {
	_, h := newTestServer(t)
	resp := decode[SearchResponse](t, do(t, h, http.MethodGet, "/api/competitions?city=Lund&distance=50", "u1", ""))
	if !resp.LocationResolved || resp.Filters.UserLocation == nil || !resp.Filters.IsManualLocation {
		t.Fatalf("filters = %+v", resp.Filters)
	}
	if resp.Total != 1 {
		t.Errorf("total = %d", resp.Total)
	}

	resp = decode[SearchResponse](t, do(t, h, http.MethodGet, "/api/competitions?city=Atlantis", "u1", ""))
	if resp.LocationResolved || resp.Total != 3 {
		t.Errorf("unknown city: resolved=%v total=%d", resp.LocationResolved, resp.Total)
	}
}

func TestSearchWithExtractorRecordsQuery(t *testing.T) {
	_, h := newTestServer(t)
	resp := decode[SearchResponse](t, do(t, h, http.MethodGet, "/api/competitions?ai=1&q=Natt+uppsala", "u1", ""))
	if got := strings.Join(ids(resp.Competitions), ","); got != "c2" {
		t.Fatalf("got %s", got)
	}
	if resp.Filters.SearchQuery != "uppsala" {
		t.Errorf("residual = %q", resp.Filters.SearchQuery)
	}

	queries := decode[[]string](t, do(t, h, http.MethodGet, "/api/history/queries", "u1", ""))
	if len(queries) != 1 || queries[0] != "Natt uppsala" {
		t.Fatalf("recent = %v", queries)
	}
	if rec := do(t, h, http.MethodDelete, "/api/history/queries", "u1", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("clear status = %d", rec.Code)
	}
	if queries := decode[[]string](t, do(t, h, http.MethodGet, "/api/history/queries", "u1", "")); len(queries) != 0 {
		t.Fatalf("recent after clear = %v", queries)
	}
}

func TestCompetitionNotFound(t *testing.T) {
	_, h := newTestServer(t)
	rec := do(t, h, http.MethodGet, "/api/competitions/nope", "u1", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	if e := decode[errorResponse](t, rec); e.Error != "not_found" {
		t.Errorf("error = %+v", e)
	}
}

func TestSessionCookieIssuedOnce(t *testing.T) {
	_, h := newTestServer(t)
	rec := do(t, h, http.MethodGet, "/api/favorites", "", "")
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != metrics.SessionCookie || cookies[0].Value == "" {
		t.Fatalf("cookies = %v", cookies)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/favorites/c1", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if len(rec.Result().Cookies()) != 0 {
		t.Error("cookie reissued for a known session")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/favorites", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if favs := decode[[]string](t, rec); len(favs) != 1 || favs[0] != "c1" {
		t.Fatalf("favorites via cookie = %v", favs)
	}

	if rec := do(t, h, http.MethodGet, "/api/favorites", "u1", ""); len(rec.Result().Cookies()) != 0 {
		t.Error("cookie issued despite X-User-ID")
	}
}

func TestFavorites(t *testing.T) {
	_, h := newTestServer(t)
	if rec := do(t, h, http.MethodPost, "/api/favorites/c2", "u1", ""); rec.Code != http.StatusOK {
		t.Fatalf("add status = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, "/api/favorites/nope", "u1", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown favorite status = %d", rec.Code)
	}

	detail := decode[CompetitionItem](t, do(t, h, http.MethodGet, "/api/competitions/c2", "u1", ""))
	if !detail.IsFavorite {
		t.Error("detail not marked favorite")
	}
	if other := decode[CompetitionItem](t, do(t, h, http.MethodGet, "/api/competitions/c2", "u2", "")); other.IsFavorite {
		t.Error("favorite leaked to another session")
	}

	resp := decode[SearchResponse](t, do(t, h, http.MethodGet, "/api/competitions?favorites=1", "u1", ""))
	if got := strings.Join(ids(resp.Competitions), ","); got != "c2" {
		t.Fatalf("favorites only = %s", got)
	}

	do(t, h, http.MethodDelete, "/api/favorites/c2", "u1", "")
	if favs := decode[[]string](t, do(t, h, http.MethodGet, "/api/favorites", "u1", "")); len(favs) != 0 {
		t.Fatalf("favorites after delete = %v", favs)
	}
}

func TestFeatured(t *testing.T) {
	_, h := newTestServer(t)
	items := decode[[]CompetitionItem](t, do(t, h, http.MethodGet, "/api/featured", "u1", ""))
	if got := strings.Join(ids(items), ","); got != "c1" {
		t.Fatalf("featured = %s", got)
	}
}

func TestGeocode(t *testing.T) {
	_, h := newTestServer(t)
	rec := do(t, h, http.MethodGet, "/api/geocode?q=Lund", "u1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if g := decode[GeocodeResponse](t, rec); g.Coordinates != lund {
		t.Errorf("coordinates = %+v", g.Coordinates)
	}
	if rec := do(t, h, http.MethodGet, "/api/geocode?q=Atlantis", "u1", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown city status = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/api/geocode", "u1", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("missing query status = %d", rec.Code)
	}
}

func TestReverseGeocode(t *testing.T) {
	_, h := newTestServer(t)
	rec := do(t, h, http.MethodGet, "/api/geocode/reverse?lat=55.7047&lng=13.191", "u1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if r := decode[ReverseResponse](t, rec); r.Label != "Lund" {
		t.Errorf("label = %q", r.Label)
	}
	if rec := do(t, h, http.MethodGet, "/api/geocode/reverse?lat=60&lng=15", "u1", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unnamed place status = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/api/geocode/reverse?lat=95&lng=15", "u1", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("invalid coordinates status = %d", rec.Code)
	}
}

func TestSuggest(t *testing.T) {
	_, h := newTestServer(t)
	rec := do(t, h, http.MethodGet, "/api/suggest?q=Lu", "u1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if r := decode[SuggestResponse](t, rec); len(r.Suggestions) != 1 || r.Suggestions[0].Name != "Lund" {
		t.Fatalf("suggestions = %+v", r.Suggestions)
	}
	if r := decode[SuggestResponse](t, do(t, h, http.MethodGet, "/api/suggest?q=L", "u1", "")); len(r.Suggestions) != 0 {
		t.Errorf("short query suggestions = %+v", r.Suggestions)
	}
}

func TestSuggestSupersededAnswersNoContent(t *testing.T) {
	store := storage.NewMemoryStore()
	release := make(chan struct{})
	hub := suggest.NewHub(20*time.Millisecond, func(_ context.Context, q string) []models.LocationItem {
		if q == "Lu" {
			<-release
		}
		return []models.LocationItem{{Name: q, Display: q}}
	})
	s := NewServer(competition.NewService(fixtures(), store), nil, hub, store)
	h := s.Handler([]string{"*"})

	first := make(chan *httptest.ResponseRecorder)
	go func() { first <- do(t, h, http.MethodGet, "/api/suggest?q=Lu", "u1", "") }()
	time.Sleep(100 * time.Millisecond)

	second := do(t, h, http.MethodGet, "/api/suggest?q=Lun", "u1", "")
	close(release)
	if second.Code != http.StatusOK {
		t.Fatalf("latest request status = %d", second.Code)
	}
	if rec := <-first; rec.Code != http.StatusNoContent {
		t.Fatalf("stale request status = %d", rec.Code)
	}
}

func TestLocationReport(t *testing.T) {
	_, h := newTestServer(t)
	loc := decode[LocationResponse](t, do(t, h, http.MethodPost, "/api/location", "u1", `{"lat":55.7047,"lng":13.191}`))
	if loc.Coordinates == nil || loc.Label != "Lund" || loc.Error != nil {
		t.Fatalf("location = %+v", loc)
	}

	loc = decode[LocationResponse](t, do(t, h, http.MethodPost, "/api/location", "u1", `{"lat":60,"lng":15}`))
	if loc.Coordinates == nil || loc.Place != nil {
		t.Fatalf("unnamed location = %+v", loc)
	}

	loc = decode[LocationResponse](t, do(t, h, http.MethodPost, "/api/location", "u1", `{"errorCode":1}`))
	if loc.Error == nil || loc.Error.Kind != "permission_denied" || loc.Coordinates != nil {
		t.Fatalf("denied = %+v", loc)
	}

	if rec := do(t, h, http.MethodPost, "/api/location", "u1", `{`); rec.Code != http.StatusBadRequest {
		t.Errorf("bad body status = %d", rec.Code)
	}
}

func TestLocationHistory(t *testing.T) {
	_, h := newTestServer(t)
	do(t, h, http.MethodPost, "/api/history/locations", "u1", `{"name":"Lund"}`)
	items := decode[[]models.LocationItem](t, do(t, h, http.MethodPost, "/api/history/locations", "u1", `{"name":"Umeå","display":"Umeå, Västerbotten"}`))
	if len(items) != 2 || items[0].Name != "Umeå" || items[1].Display != "Lund" {
		t.Fatalf("history = %+v", items)
	}
	if rec := do(t, h, http.MethodPost, "/api/history/locations", "u1", `{"name":" "}`); rec.Code != http.StatusBadRequest {
		t.Errorf("blank name status = %d", rec.Code)
	}
	do(t, h, http.MethodDelete, "/api/history/locations", "u1", "")
	if items := decode[[]models.LocationItem](t, do(t, h, http.MethodGet, "/api/history/locations", "u1", "")); len(items) != 0 {
		t.Fatalf("history after clear = %+v", items)
	}
}

func TestNLQueryPreview(t *testing.T) {
	_, h := newTestServer(t)
	resp := decode[NLQueryResponse](t, do(t, h, http.MethodPost, "/api/nlquery", "u1", `{"text":"Sprint tävlingar i Lund"}`))
	if len(resp.Filters.Disciplines) != 1 || resp.Filters.Disciplines[0] != models.Sprint {
		t.Fatalf("filters = %+v", resp.Filters)
	}
	if resp.Filters.SearchQuery != "lund" || !strings.Contains(resp.Query, "disciplines=Sprint") {
		t.Errorf("residual %q query %q", resp.Filters.SearchQuery, resp.Query)
	}
	if rec := do(t, h, http.MethodPost, "/api/nlquery", "u1", `{"text":""}`); rec.Code != http.StatusBadRequest {
		t.Errorf("empty text status = %d", rec.Code)
	}
}

func TestCalendarViews(t *testing.T) {
	_, h := newTestServer(t)
	type group struct {
		Label        string            `json:"label"`
		Competitions []json.RawMessage `json:"competitions"`
	}
	months := decode[[]group](t, do(t, h, http.MethodGet, "/api/calendar", "u1", ""))
	if len(months) != 2 || months[0].Label != "mars 2025" || len(months[0].Competitions) != 2 {
		t.Fatalf("months = %+v", months)
	}

	grid := decode[struct {
		Weeks []json.RawMessage `json:"weeks"`
	}](t, do(t, h, http.MethodGet, "/api/calendar?view=grid&year=2025&month=3", "u1", ""))
	if len(grid.Weeks) != 6 {
		t.Fatalf("grid weeks = %d", len(grid.Weeks))
	}

	if rec := do(t, h, http.MethodGet, "/api/calendar?view=year", "u1", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown view status = %d", rec.Code)
	}
}

func TestMapKeepsViewAfterInteraction(t *testing.T) {
	_, h := newTestServer(t)
	type plan struct {
		Markers   []json.RawMessage `json:"markers"`
		FitBounds bool              `json:"fitBounds"`
	}
	p := decode[plan](t, do(t, h, http.MethodGet, "/api/map", "u1", ""))
	if len(p.Markers) != 2 || !p.FitBounds {
		t.Fatalf("first plan: %d markers, fit=%v", len(p.Markers), p.FitBounds)
	}

	p = decode[plan](t, do(t, h, http.MethodGet, "/api/map?interacted=1&disciplines=Sprint", "u1", ""))
	if len(p.Markers) != 1 || p.FitBounds {
		t.Fatalf("after interaction: %d markers, fit=%v", len(p.Markers), p.FitBounds)
	}

	p = decode[plan](t, do(t, h, http.MethodGet, "/api/map?reset=1", "u1", ""))
	if !p.FitBounds {
		t.Fatal("reset did not fit bounds again")
	}
}

func TestDistricts(t *testing.T) {
	_, h := newTestServer(t)
	if rec := do(t, h, http.MethodGet, "/api/districts?region=atlantis", "u1", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown region status = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/api/regions", "u1", ""); rec.Code != http.StatusOK {
		t.Errorf("regions status = %d", rec.Code)
	}
}

func TestMapSessionsExpireWhenIdle(t *testing.T) {
	s, h := newTestServer(t)
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	for i := 0; i < 50; i++ {
		do(t, h, http.MethodGet, "/api/map", "", "")
	}
	if st := s.Status(); st.MapSessions != 50 {
		t.Fatalf("map sessions = %d, want 50", st.MapSessions)
	}

	now = now.Add(mapIdle + time.Second)
	do(t, h, http.MethodGet, "/api/map", "u1", "")
	if st := s.Status(); st.MapSessions != 1 {
		t.Fatalf("map sessions after idle period = %d, want 1", st.MapSessions)
	}
}

func TestEvictOldestMapSession(t *testing.T) {
	s, _ := newTestServer(t)
	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	s.maps["old"] = &mapSession{lastSeen: base}
	s.maps["new"] = &mapSession{lastSeen: base.Add(time.Minute)}
	s.evictOldestMap()
	if _, ok := s.maps["old"]; ok || len(s.maps) != 1 {
		t.Fatalf("maps = %v", s.maps)
	}
}

func TestMalformedUserIDGetsCookieSession(t *testing.T) {
	_, h := newTestServer(t)
	for _, id := range []string{strings.Repeat("a", maxUserIDLength+1), "u1;drop", "ö"} {
		rec := do(t, h, http.MethodGet, "/api/favorites", id, "")
		if cookies := rec.Result().Cookies(); len(cookies) != 1 || cookies[0].Name != metrics.SessionCookie {
			t.Errorf("%q: cookies = %v", id, cookies)
		}
	}
	for _, id := range []string{"u1", "0b6f5e2a-4a54-4a1e-9c62-3f0d8f7c2b11", strings.Repeat("a", maxUserIDLength)} {
		if rec := do(t, h, http.MethodGet, "/api/favorites", id, ""); len(rec.Result().Cookies()) != 0 {
			t.Errorf("%q: cookie issued for a valid id", id)
		}
	}
}

func TestClearPreferences(t *testing.T) {
	_, h := newTestServer(t)
	do(t, h, http.MethodPost, "/api/favorites/c1", "u1", "")
	do(t, h, http.MethodPost, "/api/favorites/c2", "u2", "")
	do(t, h, http.MethodPost, "/api/nlquery", "u1", `{"text":"sprint i lund"}`)

	if rec := do(t, h, http.MethodDelete, "/api/preferences", "u1", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	if favs := decode[[]string](t, do(t, h, http.MethodGet, "/api/favorites", "u1", "")); len(favs) != 0 {
		t.Errorf("favorites after clear = %v", favs)
	}
	if queries := decode[[]string](t, do(t, h, http.MethodGet, "/api/history/queries", "u1", "")); len(queries) != 0 {
		t.Errorf("queries after clear = %v", queries)
	}
	if favs := decode[[]string](t, do(t, h, http.MethodGet, "/api/favorites", "u2", "")); len(favs) != 1 {
		t.Errorf("other session lost its favorites: %v", favs)
	}
}

func TestStatusCountsSessions(t *testing.T) {
	s, h := newTestServer(t)
	do(t, h, http.MethodGet, "/api/map", "u1", "")
	do(t, h, http.MethodGet, "/api/suggest?q=lu", "u1", "")
	do(t, h, http.MethodGet, "/api/competitions?disciplines=sprint", "u1", "")
	st := s.Status()
	if st.MapSessions != 1 || st.SuggestSessions != 1 || st.CachedSearches == 0 {
		t.Fatalf("status = %+v", st)
	}
}
