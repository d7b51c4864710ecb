package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/timoknapp/orienteering-finder/pkg/competition"
	"github.com/timoknapp/orienteering-finder/pkg/filter"
	"github.com/timoknapp/orienteering-finder/pkg/models"
	"github.com/timoknapp/orienteering-finder/pkg/nlquery"
)

type FavoriteResponse struct {
	Id         string `json:"id"`
	IsFavorite bool   `json:"isFavorite"`
}

func (s *Server) handleFavorites(w http.ResponseWriter, r *http.Request) {
	ids := s.prefs(r).Favorites(r.Context())
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, ids)
}

func (s *Server) handleAddFavorite(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.competitions.Get(r.Context(), id); errors.Is(err, competition.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "Tävlingen hittades inte")
		return
	}
	if err := s.prefs(r).AddFavorite(r.Context(), id); err != nil {
		log.Error("Failed to add favorite %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "storage", "")
		return
	}
	writeJSON(w, http.StatusOK, FavoriteResponse{Id: id, IsFavorite: true})
}

func (s *Server) handleRemoveFavorite(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.prefs(r).RemoveFavorite(r.Context(), id); err != nil {
		log.Error("Failed to remove favorite %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "storage", "")
		return
	}
	writeJSON(w, http.StatusOK, FavoriteResponse{Id: id, IsFavorite: false})
}

func (s *Server) handleRecentQueries(w http.ResponseWriter, r *http.Request) {
	queries := s.prefs(r).RecentQueries(r.Context())
	if queries == nil {
		queries = []string{}
	}
	writeJSON(w, http.StatusOK, queries)
}

func (s *Server) handleClearRecentQueries(w http.ResponseWriter, r *http.Request) {
	if err := s.prefs(r).ClearRecentQueries(r.Context()); err != nil {
		log.Error("Failed to clear recent queries: %v", err)
		writeError(w, http.StatusInternalServerError, "storage", "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLocationHistory(w http.ResponseWriter, r *http.Request) {
	items := s.prefs(r).LocationHistory(r.Context())
	if items == nil {
		items = []models.LocationItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleAddLocation(w http.ResponseWriter, r *http.Request) {
	var item models.LocationItem
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	if strings.TrimSpace(item.Name) == "" {
		writeError(w, http.StatusBadRequest, "missing_name", "name is required")
		return
	}
	p := s.prefs(r)
	if err := p.AddLocation(r.Context(), item); err != nil {
		log.Error("Failed to add location %q: %v", item.Name, err)
		writeError(w, http.StatusInternalServerError, "storage", "")
		return
	}
	writeJSON(w, http.StatusOK, p.LocationHistory(r.Context()))
}

func (s *Server) handleClearLocationHistory(w http.ResponseWriter, r *http.Request) {
	if err := s.prefs(r).ClearLocationHistory(r.Context()); err != nil {
		log.Error("Failed to clear location history: %v", err)
		writeError(w, http.StatusInternalServerError, "storage", "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleClearPreferences forgets the session's favorites and histories.
func (s *Server) handleClearPreferences(w http.ResponseWriter, r *http.Request) {
	if err := s.prefs(r).Clear(r.Context()); err != nil {
		log.Error("Failed to clear preferences: %v", err)
		writeError(w, http.StatusInternalServerError, "storage", "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type NLQueryRequest struct {
	Text string `json:"text"`
}

type NLQueryResponse struct {
	Filters models.SearchFilters `json:"filters"`
	Query   string               `json:"query"`
}

// handleNLQuery previews what the extractor makes of a sentence, together with the
// query string that runs the same search.
func (s *Server) handleNLQuery(w http.ResponseWriter, r *http.Request) {
	var req NLQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		writeError(w, http.StatusBadRequest, "missing_text", "text is required")
		return
	}
	f := nlquery.Extract(text, s.now())
	if err := s.prefs(r).AddRecentQuery(r.Context(), text); err != nil {
		log.Warn("Could not record recent query: %v", err)
	}
	writeJSON(w, http.StatusOK, NLQueryResponse{Filters: f, Query: filter.Encode(f).Encode()})
}
