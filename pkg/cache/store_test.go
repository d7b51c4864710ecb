package cache

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/timoknapp/orienteering-finder/pkg/models"
)

func openTestStore(t *testing.T) *BoltStore {
	t.Helper()
	s, err := NewBoltStore(filepath.Join(t.TempDir(), "nested", "geocode.db"))
	if err != nil {
		t.Fatalf("NewBoltStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBoltStoreRoundTrip(t *testing.T) {
	s := openTestStore(t)

	if _, ok, err := s.Get("city:lund"); err != nil || ok {
		t.Fatalf("empty store: ok=%v err=%v", ok, err)
	}
	want := models.GeocodeEntry{Lat: 55.7047, Lng: 13.191, Place: models.LocationInfo{City: "Lund"}}
	if err := s.Set("city:lund", want); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok, err := s.Get("city:lund")
	if err != nil || !ok || got != want {
		t.Fatalf("Get = %+v, %v, %v", got, ok, err)
	}
	if err := s.Delete("city:lund"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := s.Get("city:lund"); ok {
		t.Fatal("entry still present after Delete")
	}
}

func TestRetryWindowsGrow(t *testing.T) {
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	e := Failed(models.GeocodeEntry{}, start)
	if e.FailCount != 1 || !e.IsFailed {
		t.Fatalf("Failed = %+v", e)
	}
	if ShouldRetry(e, start.Add(59*time.Minute)) {
		t.Error("retried before the first window elapsed")
	}
	if !ShouldRetry(e, start.Add(time.Hour)) {
		t.Error("not retried after the first window")
	}

	e = Failed(e, start)
	if ShouldRetry(e, start.Add(90*time.Minute)) || !ShouldRetry(e, start.Add(2*time.Hour)) {
		t.Error("second window should be two hours")
	}

	e = Failed(Failed(e, start), start)
	if e.FailCount != MaxFailCount || ShouldRetry(e, start.Add(1000*time.Hour)) {
		t.Errorf("entry with %d failures must not be retried", e.FailCount)
	}
	if ShouldRetry(models.GeocodeEntry{Lat: 1}, start.Add(1000*time.Hour)) {
		t.Error("successful entries are never retried")
	}
}

func TestStatisticsAndCleanup(t *testing.T) {
	s := openTestStore(t)
	old := time.Now().Add(-24 * time.Hour)

	s.Set("ok", models.GeocodeEntry{Lat: 59.3, Lng: 18.0})
	s.Set("retry", models.GeocodeEntry{IsFailed: true, FailCount: 1, LastAttempt: old.Unix()})
	s.Set("waiting", models.GeocodeEntry{IsFailed: true, FailCount: 3, LastAttempt: time.Now().Unix()})
	s.Set("dead", models.GeocodeEntry{IsFailed: true, FailCount: MaxFailCount, LastAttempt: old.Unix()})

	stats, err := s.GetCacheStatistics()
	if err != nil {
		t.Fatalf("GetCacheStatistics: %v", err)
	}
	want := map[string]int{"total_entries": 4, "successful": 1, "failed": 3, "pending_retry": 1, "permanently_failed": 1}
	for k, v := range want {
		if stats[k] != v {
			t.Errorf("%s = %d, want %d", k, stats[k], v)
		}
	}

	n, err := s.CleanupFailed()
	if err != nil || n != 1 {
		t.Fatalf("CleanupFailed = %d, %v", n, err)
	}
	if _, ok, _ := s.Get("dead"); ok {
		t.Error("permanently failed entry survived cleanup")
	}
	if _, ok, _ := s.Get("waiting"); !ok {
		t.Error("cleanup removed a retryable entry")
	}
}
