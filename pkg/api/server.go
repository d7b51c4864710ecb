// Package api serves the competition finder over HTTP.
package api

import (
	"encoding/json"
	"expvar"
	"net/http"
	"sync"
	"time"

	"github.com/rs/cors"
	"github.com/timoknapp/orienteering-finder/pkg/competition"
	"github.com/timoknapp/orienteering-finder/pkg/logger"
	"github.com/timoknapp/orienteering-finder/pkg/mapview"
	"github.com/timoknapp/orienteering-finder/pkg/metrics"
	"github.com/timoknapp/orienteering-finder/pkg/storage"
	"github.com/timoknapp/orienteering-finder/pkg/suggest"
)

var log = logger.Named("api")

type Server struct {
	competitions *competition.Service
	geocoder     competition.Geocoder
	suggestions  *suggest.Hub
	store        storage.Store
	now          func() time.Time

	mapsMu sync.Mutex
	maps   map[string]*mapSession
}

const (
	mapIdle        = 10 * time.Minute
	maxMapSessions = 10000
)

type mapSession struct {
	adapter  mapview.Adapter
	lastSeen time.Time
}

func NewServer(competitions *competition.Service, geocoder competition.Geocoder, suggestions *suggest.Hub, store storage.Store) *Server {
	return &Server{
		competitions: competitions,
		geocoder:     geocoder,
		suggestions:  suggestions,
		store:        store,
		now:          time.Now,
		maps:         make(map[string]*mapSession),
	}
}

// Routes registers the public API.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/competitions", s.handleSearch)
	mux.HandleFunc("GET /api/competitions/{id}", s.handleCompetition)
	mux.HandleFunc("GET /api/featured", s.handleFeatured)
	mux.HandleFunc("GET /api/calendar", s.handleCalendar)
	mux.HandleFunc("GET /api/map", s.handleMap)
	mux.HandleFunc("GET /api/regions", s.handleRegions)
	mux.HandleFunc("GET /api/districts", s.handleDistricts)

	mux.HandleFunc("GET /api/geocode", s.handleGeocode)
	mux.HandleFunc("GET /api/geocode/reverse", s.handleReverseGeocode)
	mux.HandleFunc("GET /api/suggest", s.handleSuggest)
	mux.HandleFunc("GET /api/location", s.handleLocationOptions)
	mux.HandleFunc("POST /api/location", s.handleLocation)
	mux.HandleFunc("POST /api/nlquery", s.handleNLQuery)

	mux.HandleFunc("GET /api/favorites", s.handleFavorites)
	mux.HandleFunc("POST /api/favorites/{id}", s.handleAddFavorite)
	mux.HandleFunc("DELETE /api/favorites/{id}", s.handleRemoveFavorite)
	mux.HandleFunc("GET /api/history/queries", s.handleRecentQueries)
	mux.HandleFunc("DELETE /api/history/queries", s.handleClearRecentQueries)
	mux.HandleFunc("GET /api/history/locations", s.handleLocationHistory)
	mux.HandleFunc("POST /api/history/locations", s.handleAddLocation)
	mux.HandleFunc("DELETE /api/history/locations", s.handleClearLocationHistory)
	mux.HandleFunc("DELETE /api/preferences", s.handleClearPreferences)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET "+metrics.StatsPath, metrics.StatsHandler)
	mux.Handle("GET "+metrics.PrometheusPath, metrics.Handler())
	mux.Handle("GET "+metrics.DebugVarsPath, expvar.Handler())
	mux.HandleFunc(metrics.EnvPath, metrics.EnvHandler)

	return mux
}

// Handler wraps the routes with CORS, session handling and instrumentation.
// Instrument must see the request the mux serves to pick up its route pattern.
func (s *Server) Handler(allowedOrigins []string) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", UserIDHeader},
		AllowCredentials: true,
	})
	return c.Handler(withSession(metrics.Instrument(s.Routes())))
}

// Status is the server's state as reported on /stats.
type Status struct {
	SuggestSessions int `json:"suggest_sessions"`
	MapSessions     int `json:"map_sessions"`
	CachedSearches  int `json:"cached_searches"`
}

func (s *Server) Status() Status {
	s.mapsMu.Lock()
	maps := len(s.maps)
	s.mapsMu.Unlock()
	return Status{
		SuggestSessions: s.suggestions.Sessions(),
		MapSessions:     maps,
		CachedSearches:  s.competitions.CachedSearches(),
	}
}

func (s *Server) today() time.Time {
	return s.now()
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: code, Message: message})
}
