package openstreetmap

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/timoknapp/orienteering-finder/pkg/models"
)

const DefaultNominatimURL = "https://nominatim.openstreetmap.org"

type Nominatim struct {
	client
}

func NewNominatim(baseURL, userAgent string, hc *http.Client) *Nominatim {
	if baseURL == "" {
		baseURL = DefaultNominatimURL
	}
	return &Nominatim{client: newClient(baseURL, userAgent, hc)}
}

func (n *Nominatim) Name() string { return "nominatim" }

type nominatimAddress struct {
	City         string `json:"city"`
	Town         string `json:"town"`
	Village      string `json:"village"`
	Hamlet       string `json:"hamlet"`
	Municipality string `json:"municipality"`
	County       string `json:"county"`
}

type nominatimPlace struct {
	Lat         string           `json:"lat"`
	Lon         string           `json:"lon"`
	Name        string           `json:"name"`
	DisplayName string           `json:"display_name"`
	Address     nominatimAddress `json:"address"`
	Error       string           `json:"error"`
}

func (p nominatimPlace) info() models.LocationInfo {
	a := p.Address
	return models.LocationInfo{
		City:         firstNonEmpty(a.City, a.Town, a.Village, a.Hamlet),
		Municipality: a.Municipality,
		County:       a.County,
		DisplayName:  p.DisplayName,
	}
}

func (p nominatimPlace) coordinates() (models.Coordinates, error) {
	lat, err := strconv.ParseFloat(p.Lat, 64)
	if err != nil {
		return models.Coordinates{}, fmt.Errorf("invalid latitude %q: %w", p.Lat, err)
	}
	lng, err := strconv.ParseFloat(p.Lon, 64)
	if err != nil {
		return models.Coordinates{}, fmt.Errorf("invalid longitude %q: %w", p.Lon, err)
	}
	return models.Coordinates{Lat: lat, Lng: lng}, nil
}

func (n *Nominatim) params() url.Values {
	v := url.Values{}
	v.Set("format", "jsonv2")
	v.Set("addressdetails", "1")
	v.Set("accept-language", "sv")
	return v
}

func (n *Nominatim) Search(ctx context.Context, query string, limit int) ([]Place, error) {
	v := n.params()
	v.Set("q", query)
	v.Set("countrycodes", "se")
	v.Set("limit", strconv.Itoa(limit))

	var raw []nominatimPlace
	if err := n.getJSON(ctx, "/search", v, &raw); err != nil {
		return nil, err
	}
	var places []Place
	for _, p := range raw {
		coords, err := p.coordinates()
		if err != nil {
			log.Warn("Skipping Nominatim result for %q: %v", query, err)
			continue
		}
		info := p.info()
		places = append(places, Place{
			Name:        firstNonEmpty(p.Name, info.Label()),
			Coordinates: coords,
			Info:        info,
		})
	}
	if len(places) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, query)
	}
	return places, nil
}

func (n *Nominatim) Reverse(ctx context.Context, lat, lng float64) (models.LocationInfo, error) {
	v := n.params()
	v.Set("lat", strconv.FormatFloat(lat, 'f', 6, 64))
	v.Set("lon", strconv.FormatFloat(lng, 'f', 6, 64))
	v.Set("zoom", "10")

	var p nominatimPlace
	if err := n.getJSON(ctx, "/reverse", v, &p); err != nil {
		return models.LocationInfo{}, err
	}
	info := p.info()
	if p.Error != "" || info == (models.LocationInfo{}) {
		return models.LocationInfo{}, fmt.Errorf("%w: %.5f,%.5f", ErrNotFound, lat, lng)
	}
	return info, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
