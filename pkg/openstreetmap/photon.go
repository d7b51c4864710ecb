package openstreetmap

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/timoknapp/orienteering-finder/pkg/models"
)

const DefaultPhotonURL = "https://photon.komoot.io"

// Bounding box around Sweden as minLon,minLat,maxLon,maxLat.
const swedenBBox = "10.5,55.0,24.2,69.1"

type Photon struct {
	client
}

func NewPhoton(baseURL, userAgent string, hc *http.Client) *Photon {
	if baseURL == "" {
		baseURL = DefaultPhotonURL
	}
	return &Photon{client: newClient(baseURL, userAgent, hc)}
}

func (p *Photon) Name() string { return "photon" }

type photonResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"` // lon, lat
		} `json:"geometry"`
		Properties struct {
			Name        string `json:"name"`
			City        string `json:"city"`
			County      string `json:"county"`
			State       string `json:"state"`
			Country     string `json:"country"`
			CountryCode string `json:"countrycode"`
			Type        string `json:"type"`
		} `json:"properties"`
	} `json:"features"`
}

// places keeps only Swedish features. The bbox also covers parts of Norway,
// Denmark and Finland.
func (r photonResponse) places() []Place {
	var out []Place
	for _, f := range r.Features {
		props := f.Properties
		if !strings.EqualFold(props.CountryCode, "SE") || len(f.Geometry.Coordinates) < 2 {
			continue
		}
		city := props.City
		if city == "" && (props.Type == "city" || props.Type == "locality" || props.Type == "district") {
			city = props.Name
		}
		var parts []string
		for _, s := range []string{props.Name, props.County, props.State, props.Country} {
			if s != "" && (len(parts) == 0 || parts[len(parts)-1] != s) {
				parts = append(parts, s)
			}
		}
		out = append(out, Place{
			Name:        firstNonEmpty(props.Name, city),
			Coordinates: models.Coordinates{Lat: f.Geometry.Coordinates[1], Lng: f.Geometry.Coordinates[0]},
			Info: models.LocationInfo{
				City:         city,
				Municipality: props.County,
				County:       props.State,
				DisplayName:  strings.Join(parts, ", "),
			},
		})
	}
	return out
}

func (p *Photon) Search(ctx context.Context, query string, limit int) ([]Place, error) {
	v := url.Values{}
	v.Set("q", query)
	v.Set("bbox", swedenBBox)
	v.Set("limit", strconv.Itoa(limit))

	var res photonResponse
	if err := p.getJSON(ctx, "/api", v, &res); err != nil {
		return nil, err
	}
	places := res.places()
	if len(places) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, query)
	}
	if len(places) > limit {
		places = places[:limit]
	}
	return places, nil
}

func (p *Photon) Reverse(ctx context.Context, lat, lng float64) (models.LocationInfo, error) {
	v := url.Values{}
	v.Set("lat", strconv.FormatFloat(lat, 'f', 6, 64))
	v.Set("lon", strconv.FormatFloat(lng, 'f', 6, 64))

	var res photonResponse
	if err := p.getJSON(ctx, "/reverse", v, &res); err != nil {
		return models.LocationInfo{}, err
	}
	places := res.places()
	if len(places) == 0 {
		return models.LocationInfo{}, fmt.Errorf("%w: %.5f,%.5f", ErrNotFound, lat, lng)
	}
	return places[0].Info, nil
}
