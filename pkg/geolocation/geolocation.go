// Package geolocation describes browser position requests and classifies their
// failures into messages shown to the user.
package geolocation

import (
	"fmt"
	"time"

	"github.com/timoknapp/orienteering-finder/pkg/models"
)

// Options mirrors the PositionOptions handed to navigator.geolocation.
type Options struct {
	EnableHighAccuracy bool `json:"enableHighAccuracy"`
	Timeout            int  `json:"timeout"`    // milliseconds
	MaximumAge         int  `json:"maximumAge"` // milliseconds
}

var DefaultOptions = Options{
	EnableHighAccuracy: true,
	Timeout:            int((10 * time.Second).Milliseconds()),
	MaximumAge:         int((5 * time.Minute).Milliseconds()),
}

// Code is the GeolocationPositionError code reported by the browser.
type Code int

const (
	PermissionDenied    Code = 1
	PositionUnavailable Code = 2
	Timeout             Code = 3
)

func (c Code) String() string {
	switch c {
	case PermissionDenied:
		return "permission_denied"
	case PositionUnavailable:
		return "position_unavailable"
	case Timeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Error is a classified geolocation failure. Every failure can be recovered from
// by entering a location manually.
type Error struct {
	Code    Code   `json:"code"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("geolocation %s: %s", e.Kind, e.Message)
}

const ManualEntryHint = "Ange en ort manuellt för att söka nära dig."

var messages = map[Code]string{
	PermissionDenied:    "Du har nekat åtkomst till din plats. Tillåt platsåtkomst i webbläsaren eller ange en ort manuellt.",
	PositionUnavailable: "Din position kunde inte fastställas. Kontrollera att platstjänster är aktiverade eller ange en ort manuellt.",
	Timeout:             "Det tog för lång tid att hämta din position. Försök igen eller ange en ort manuellt.",
}

const unknownMessage = "Ett okänt fel uppstod när din position skulle hämtas. Ange en ort manuellt."

// Classify maps a browser error code to a user-facing error.
func Classify(code int) *Error {
	c := Code(code)
	msg, ok := messages[c]
	if !ok {
		msg = unknownMessage
	}
	return &Error{Code: c, Kind: c.String(), Message: msg}
}

// Report is what the browser sends after a position request: either a position or
// an error code.
type Report struct {
	Lat       *float64 `json:"lat,omitempty"`
	Lng       *float64 `json:"lng,omitempty"`
	Accuracy  float64  `json:"accuracy,omitempty"` // meters
	ErrorCode int      `json:"errorCode,omitempty"`
}

// Position returns the reported coordinates, or a classified error. A report with
// neither, or with coordinates outside WGS84 ranges, counts as position unavailable.
func (r Report) Position() (models.Coordinates, *Error) {
	if r.ErrorCode != 0 {
		return models.Coordinates{}, Classify(r.ErrorCode)
	}
	if r.Lat == nil || r.Lng == nil {
		return models.Coordinates{}, Classify(int(PositionUnavailable))
	}
	c := models.Coordinates{Lat: *r.Lat, Lng: *r.Lng}
	if !c.Valid() {
		return models.Coordinates{}, Classify(int(PositionUnavailable))
	}
	return c, nil
}
