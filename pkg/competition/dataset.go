package competition

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/timoknapp/orienteering-finder/pkg/models"
	"github.com/timoknapp/orienteering-finder/pkg/region"
)

//go:embed data/competitions.json
var sampleData []byte

// LoadSample decodes the embedded competition dataset.
func LoadSample() ([]models.Competition, error) {
	return Decode(sampleData)
}

// Decode parses a JSON array of competitions and validates it.
func Decode(raw []byte) ([]models.Competition, error) {
	var competitions []models.Competition
	if err := json.Unmarshal(raw, &competitions); err != nil {
		return nil, fmt.Errorf("failed to decode competitions: %w", err)
	}
	if err := Validate(competitions); err != nil {
		return nil, err
	}
	return competitions, nil
}

// Validate checks the dataset invariants and returns every violation found.
func Validate(competitions []models.Competition) error {
	var errs []error
	seen := make(map[string]bool, len(competitions))
	for _, c := range competitions {
		if c.Id == "" {
			errs = append(errs, fmt.Errorf("competition %q has no id", c.Name))
			continue
		}
		if seen[c.Id] {
			errs = append(errs, fmt.Errorf("duplicate competition id %q", c.Id))
		}
		seen[c.Id] = true
		if c.Date.IsZero() {
			errs = append(errs, fmt.Errorf("%s: missing date", c.Id))
		}
		if !c.RegistrationDeadline.IsZero() && c.RegistrationDeadline.After(c.Date) {
			errs = append(errs, fmt.Errorf("%s: registration deadline %s after date %s", c.Id, c.RegistrationDeadline, c.Date))
		}
		if c.Coordinates != nil && !c.Coordinates.Valid() {
			errs = append(errs, fmt.Errorf("%s: invalid coordinates %+v", c.Id, *c.Coordinates))
		}
		if _, ok := region.LookupRegion(c.Region); !ok {
			errs = append(errs, fmt.Errorf("%s: unknown region %q", c.Id, c.Region))
		}
		if _, ok := region.LookupDistrict(c.District); !ok {
			errs = append(errs, fmt.Errorf("%s: unknown district %q", c.Id, c.District))
		}
	}
	return errors.Join(errs...)
}
