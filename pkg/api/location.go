package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/timoknapp/orienteering-finder/pkg/geolocation"
	"github.com/timoknapp/orienteering-finder/pkg/models"
	"github.com/timoknapp/orienteering-finder/pkg/suggest"
)

type GeocodeResponse struct {
	Name        string             `json:"name"`
	Coordinates models.Coordinates `json:"coordinates"`
}

type ReverseResponse struct {
	Coordinates models.Coordinates  `json:"coordinates"`
	Place       models.LocationInfo `json:"place"`
	Label       string              `json:"label"`
}

type SuggestResponse struct {
	Query       string                `json:"query"`
	Suggestions []models.LocationItem `json:"suggestions"`
}

type LocationOptionsResponse struct {
	Options geolocation.Options `json:"options"`
	Hint    string              `json:"hint"`
}

// LocationResponse answers a browser position report. Exactly one of Coordinates
// and Error is set. Place is empty when the position could not be named.
type LocationResponse struct {
	Coordinates *models.Coordinates  `json:"coordinates,omitempty"`
	Place       *models.LocationInfo `json:"place,omitempty"`
	Label       string               `json:"label,omitempty"`
	Error       *geolocation.Error   `json:"error,omitempty"`
	Hint        string               `json:"hint,omitempty"`
}

func (s *Server) handleGeocode(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("q"))
	if name == "" {
		writeError(w, http.StatusBadRequest, "missing_query", "q is required")
		return
	}
	if s.geocoder == nil {
		writeError(w, http.StatusNotFound, "not_found", "Orten hittades inte")
		return
	}
	coords, ok := s.geocoder.ResolveCityToCoordinates(r.Context(), name)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "Orten hittades inte")
		return
	}
	writeJSON(w, http.StatusOK, GeocodeResponse{Name: name, Coordinates: coords})
}

func coordinatesParam(r *http.Request) (models.Coordinates, bool) {
	q := r.URL.Query()
	lat, latErr := strconv.ParseFloat(q.Get("lat"), 64)
	lng, lngErr := strconv.ParseFloat(q.Get("lng"), 64)
	c := models.Coordinates{Lat: lat, Lng: lng}
	return c, latErr == nil && lngErr == nil && c.Valid()
}

func (s *Server) handleReverseGeocode(w http.ResponseWriter, r *http.Request) {
	c, ok := coordinatesParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_coordinates", "lat and lng are required")
		return
	}
	var info models.LocationInfo
	if s.geocoder != nil {
		info = s.geocoder.ResolveCoordinatesToPlace(r.Context(), c.Lat, c.Lng)
	}
	if info == (models.LocationInfo{}) {
		writeError(w, http.StatusNotFound, "not_found", "Platsen kunde inte namnges")
		return
	}
	writeJSON(w, http.StatusOK, ReverseResponse{Coordinates: c, Place: info, Label: info.Label()})
}

// handleSuggest answers with 204 when a newer request from the same session
// replaced this one.
func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	items, err := s.suggestions.Do(r.Context(), sessionID(r), query)
	switch {
	case errors.Is(err, suggest.ErrSuperseded), errors.Is(err, suggest.ErrStale), errors.Is(err, context.Canceled):
		w.WriteHeader(http.StatusNoContent)
		return
	case err != nil:
		log.Warn("Suggestions for %q failed: %v", query, err)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if items == nil {
		items = []models.LocationItem{}
	}
	writeJSON(w, http.StatusOK, SuggestResponse{Query: query, Suggestions: items})
}

func (s *Server) handleLocationOptions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, LocationOptionsResponse{Options: geolocation.DefaultOptions, Hint: geolocation.ManualEntryHint})
}

// handleLocation takes the outcome of a browser position request. Positions are
// named through reverse geocoding when possible; errors are classified.
func (s *Server) handleLocation(w http.ResponseWriter, r *http.Request) {
	var report geolocation.Report
	if err := json.NewDecoder(r.Body).Decode(&report); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	c, gerr := report.Position()
	if gerr != nil {
		log.Debug("Browser position failed: %v", gerr)
		writeJSON(w, http.StatusOK, LocationResponse{Error: gerr, Hint: geolocation.ManualEntryHint})
		return
	}

	resp := LocationResponse{Coordinates: &c}
	if s.geocoder != nil {
		if info := s.geocoder.ResolveCoordinatesToPlace(r.Context(), c.Lat, c.Lng); info != (models.LocationInfo{}) {
			resp.Place = &info
			resp.Label = info.Label()
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
