package competition

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/timoknapp/orienteering-finder/pkg/models"
	"github.com/timoknapp/orienteering-finder/pkg/storage"
)

func newSampleService(t *testing.T) *Service {
	t.Helper()
	list, err := LoadSample()
	if err != nil {
		t.Fatalf("LoadSample: %v", err)
	}
	return NewService(list, storage.NewMemoryStore())
}

func TestSampleDatasetIsValid(t *testing.T) {
	list, err := LoadSample()
	if err != nil {
		t.Fatalf("LoadSample: %v", err)
	}
	for _, c := range list {
		if c.Coordinates == nil {
			t.Errorf("%s: base dataset entries need coordinates", c.Id)
		}
		if c.Distance != nil {
			t.Errorf("%s: distance must not be stored in the dataset", c.Id)
		}
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	bad := []models.Competition{
		{Id: "a", Region: "ostra", District: "stockholm", Date: models.NewDate(2025, 3, 1), RegistrationDeadline: models.NewDate(2025, 3, 2)},
		{Id: "a", Region: "nowhere", District: "stockholm", Date: models.NewDate(2025, 3, 1), Coordinates: &models.Coordinates{Lat: 91}},
	}
	err := Validate(bad)
	if err == nil {
		t.Fatal("expected validation errors")
	}
	for _, want := range []string{"deadline", "duplicate", "unknown region", "invalid coordinates"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
}

func TestGetUnknownIdIsNotFound(t *testing.T) {
	s := newSampleService(t)
	if _, err := s.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestGetMergesScrapedResources(t *testing.T) {
	ctx := context.Background()
	s := newSampleService(t)
	id := "2025-uppsala-medel"

	scraped := []models.CompetitionResource{
		{Type: models.ResourceInvitation, Title: "Inbjudan", URL: "https://example.org/uppsala-medel/inbjudan.pdf"},
		{Type: models.ResourceStartList, Title: "Startlista", URL: "https://example.org/uppsala-medel/start"},
	}
	if err := s.SaveScrapedResources(ctx, id, scraped); err != nil {
		t.Fatalf("SaveScrapedResources: %v", err)
	}
	c, err := s.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(c.Resources) != 2 || c.Resources[1].Type != models.ResourceStartList {
		t.Fatalf("resources = %+v", c.Resources)
	}
	if err := s.SaveScrapedResources(ctx, "missing", scraped); !errors.Is(err, ErrNotFound) {
		t.Fatalf("saving for unknown id: %v", err)
	}
}

func TestSearchAttachesDistancesAndDoesNotShareResults(t *testing.T) {
	s := newSampleService(t)
	user := models.Coordinates{Lat: 59.3293, Lng: 18.0686}
	limit := 50.0

	got := s.Search(models.SearchFilters{UserLocation: &user, Distance: &limit})
	if len(got) == 0 {
		t.Fatal("expected competitions near Stockholm")
	}
	for _, c := range got {
		if c.Distance == nil || *c.Distance > limit*1000 {
			t.Errorf("%s distance %v outside %v km", c.Id, c.Distance, limit)
		}
	}

	Sort(got, SortName)
	again := s.Search(models.SearchFilters{UserLocation: &user, Distance: &limit})
	if len(again) != len(got) {
		t.Fatalf("repeated search returned %d, want %d", len(again), len(got))
	}
	for _, c := range s.All() {
		if c.Distance != nil {
			t.Fatal("search must not write distances into the dataset")
		}
	}
}

func TestUpcomingAndFeatured(t *testing.T) {
	s := newSampleService(t)
	today := models.NewDate(2025, 6, 1)

	up := s.Upcoming(today, 3)
	if len(up) != 3 || up[0].Id != "2025-umea-sm-medel" {
		t.Fatalf("Upcoming = %+v", up)
	}
	for _, c := range s.Featured(today) {
		if !c.Featured || c.Date.Before(today) {
			t.Errorf("%s should not be featured/upcoming", c.Id)
		}
	}
}

func TestSortByDistancePutsUnknownLast(t *testing.T) {
	d1, d2 := 5.0, 1.0
	list := []models.Competition{
		{Id: "none", Date: models.NewDate(2025, 1, 1)},
		{Id: "far", Distance: &d1, Date: models.NewDate(2025, 1, 2)},
		{Id: "near", Distance: &d2, Date: models.NewDate(2025, 1, 3)},
	}
	Sort(list, SortDistance)
	if list[0].Id != "near" || list[1].Id != "far" || list[2].Id != "none" {
		t.Fatalf("order = %s %s %s", list[0].Id, list[1].Id, list[2].Id)
	}
}

func TestHomeCoordinatesReachDistanceSearch(t *testing.T) {
	lund := models.Coordinates{Lat: 55.7047, Lng: 13.1910}
	s := NewService([]models.Competition{
		{Id: "a", Organizer: "Lunds OK", Date: models.NewDate(2025, 5, 1)},
		{Id: "b", Organizer: "OK Linné", Date: models.NewDate(2025, 5, 2), Coordinates: &models.Coordinates{Lat: 59.85, Lng: 17.63}},
	}, storage.NewMemoryStore())
	limit := 20.0
	near := models.SearchFilters{UserLocation: &lund, Distance: &limit}

	if got := s.Search(near); len(got) != 0 {
		t.Fatalf("before: %d results", len(got))
	}
	if err := s.SetHomeCoordinates("a", lund); err != nil {
		t.Fatal(err)
	}
	got := s.Search(near)
	if len(got) != 1 || got[0].Id != "a" || !got[0].ApproximateLocation || got[0].Distance == nil {
		t.Fatalf("after: %+v", got)
	}

	if err := s.SetHomeCoordinates("b", lund); err != nil {
		t.Fatal(err)
	}
	if b, _ := s.Get(context.Background(), "b"); b.ApproximateLocation || b.Coordinates.Lat != 59.85 {
		t.Errorf("own coordinates replaced: %+v", b)
	}
	if err := s.SetHomeCoordinates("nope", lund); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown id err = %v", err)
	}
	for _, c := range s.All() {
		if c.ApproximateLocation {
			t.Fatal("home coordinates must not be written into the dataset")
		}
	}
}

func TestSearchWithoutFiltersSkipsMemo(t *testing.T) {
	s := newSampleService(t)
	all := s.Search(models.SearchFilters{})
	if len(all) != len(s.All()) || s.CachedSearches() != 0 {
		t.Fatalf("got %d of %d, %d cached", len(all), len(s.All()), s.CachedSearches())
	}
	for i, c := range s.All() {
		if all[i].Id != c.Id {
			t.Fatalf("position %d: %s, want %s", i, all[i].Id, c.Id)
		}
	}

	all[0].Name = "changed"
	if s.All()[0].Name == "changed" {
		t.Fatal("unfiltered search shares the dataset")
	}

	s.Search(models.SearchFilters{SearchQuery: "sprint"})
	if s.CachedSearches() != 1 {
		t.Fatalf("cached = %d, want 1", s.CachedSearches())
	}
}
