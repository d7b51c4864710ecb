// Package storage holds the key-value stores behind user preferences and scraped
// competition resources. Writes are last-write-wins; nothing here is transactional
// across keys.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Store is a flat key-value store.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
	// Clear removes every key visible through this store.
	Clear(ctx context.Context) error
}

// Namespacer is implemented by stores that can hand out isolated sub-stores.
type Namespacer interface {
	Namespace(name string) Store
}

// Namespace scopes s to name. Stores that cannot namespace natively get key prefixes.
func Namespace(s Store, name string) Store {
	if n, ok := s.(Namespacer); ok {
		return n.Namespace(name)
	}
	return &prefixed{inner: s, prefix: name + ":"}
}

// GetJSON decodes the value at key into v. A missing key leaves v untouched and
// returns false.
func GetJSON(ctx context.Context, s Store, key string, v any) (bool, error) {
	raw, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

func SetJSON(ctx context.Context, s Store, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return s.Set(ctx, key, raw)
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryStore) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[string][]byte)
	return nil
}

// Keys returns the stored keys in sorted order.
func (m *MemoryStore) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (m *MemoryStore) Namespace(name string) Store {
	return &prefixed{inner: m, prefix: name + ":", keys: m.Keys}
}

type prefixed struct {
	inner  Store
	prefix string
	keys   func() []string
}

func (p *prefixed) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return p.inner.Get(ctx, p.prefix+key)
}

func (p *prefixed) Set(ctx context.Context, key string, value []byte) error {
	return p.inner.Set(ctx, p.prefix+key, value)
}

func (p *prefixed) Remove(ctx context.Context, key string) error {
	return p.inner.Remove(ctx, p.prefix+key)
}

func (p *prefixed) Clear(ctx context.Context) error {
	if p.keys == nil {
		return fmt.Errorf("clear is not supported for namespace %q", strings.TrimSuffix(p.prefix, ":"))
	}
	for _, k := range p.keys() {
		if strings.HasPrefix(k, p.prefix) {
			if err := p.inner.Remove(ctx, k); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *prefixed) Namespace(name string) Store {
	return &prefixed{inner: p.inner, prefix: p.prefix + name + ":", keys: p.keys}
}
