// Package openstreetmap resolves Swedish place names and positions through
// OpenStreetMap geocoders (Nominatim, with Photon as fallback).
package openstreetmap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/timoknapp/orienteering-finder/pkg/logger"
	"github.com/timoknapp/orienteering-finder/pkg/models"
)

var (
	// ErrNotFound means the service answered but had no match inside Sweden.
	ErrNotFound = errors.New("no matching place")
	// ErrUnavailable means the service could not be reached or answered with a non-200 status.
	ErrUnavailable = errors.New("geocoding service unavailable")
)

const DefaultUserAgent = "orienteering-finder/1.0 (+https://github.com/timoknapp/orienteering-finder)"

var log = logger.Named("openstreetmap")

// Place is one forward geocoding hit.
type Place struct {
	Name        string              `json:"name"`
	Coordinates models.Coordinates  `json:"coordinates"`
	Info        models.LocationInfo `json:"info"`
}

// Provider is a geocoding backend. Implementations restrict results to Sweden in the
// request itself.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string, limit int) ([]Place, error)
	Reverse(ctx context.Context, lat, lng float64) (models.LocationInfo, error)
}

type client struct {
	http      *http.Client
	baseURL   string
	userAgent string
}

func newClient(baseURL, userAgent string, hc *http.Client) client {
	if hc == nil {
		hc = http.DefaultClient
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return client{http: hc, baseURL: baseURL, userAgent: userAgent}
}

// getJSON fetches path with params and decodes the body into v.
func (c client) getJSON(ctx context.Context, path string, params url.Values, v any) error {
	u := c.baseURL + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	log.Debug("GET %s", u)
	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		io.Copy(io.Discard, res.Body)
		return fmt.Errorf("%w: %s returned %d", ErrUnavailable, path, res.StatusCode)
	}
	if err := json.NewDecoder(res.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid response from %s: %v", ErrUnavailable, path, err)
	}
	return nil
}
