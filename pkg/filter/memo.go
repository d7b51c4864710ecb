package filter

import (
	"sync"

	"github.com/timoknapp/orienteering-finder/pkg/models"
)

// Memo caches Apply results per (dataset version, encoded filters). The dataset
// version must change whenever the competition slice passed to Search changes.
type Memo struct {
	mu      sync.Mutex
	max     int
	entries map[string][]models.Competition
	order   []string
}

func NewMemo(max int) *Memo {
	if max <= 0 {
		max = 128
	}
	return &Memo{max: max, entries: make(map[string][]models.Competition)}
}

// Search returns Apply(competitions, f), reusing an earlier result for the same key.
// Callers must not modify the returned slice.
func (m *Memo) Search(version string, competitions []models.Competition, f models.SearchFilters) []models.Competition {
	key := version + "?" + Encode(f).Encode()

	m.mu.Lock()
	if hit, ok := m.entries[key]; ok {
		m.mu.Unlock()
		return hit
	}
	m.mu.Unlock()

	result := Apply(competitions, f)

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[key]; !ok {
		m.entries[key] = result
		m.order = append(m.order, key)
		for len(m.order) > m.max {
			delete(m.entries, m.order[0])
			m.order = m.order[1:]
		}
	}
	return m.entries[key]
}

func (m *Memo) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
