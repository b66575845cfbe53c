package store

import (
	"context"
	"path"
	"sort"
	"sync"
	"time"
)

// MemoryKV: Redis 未配置时的进程内实现（KV + ListKV）
type MemoryKV struct {
	mu    sync.Mutex
	now   func() time.Time
	data  map[string]memoryItem
	lists map[string][]string
}

type memoryItem struct {
	value   string
	expires time.Time // zero = no ttl
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{
		now:   time.Now,
		data:  map[string]memoryItem{},
		lists: map[string][]string{},
	}
}

func (m *MemoryKV) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.data[key]
	if !ok {
		return "", ErrMiss
	}
	if !item.expires.IsZero() && m.now().After(item.expires) {
		delete(m.data, key)
		return "", ErrMiss
	}
	return item.value, nil
}

func (m *MemoryKV) Set(_ context.Context, key string, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var exp time.Time
	if ttl > 0 {
		exp = m.now().Add(ttl)
	}
	m.data[key] = memoryItem{value: value, expires: exp}
	return nil
}

// ScanKeys 支持 Redis 风格的 * 通配（path.Match 语义）
func (m *MemoryKV) ScanKeys(_ context.Context, pattern string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var keys []string
	for k, item := range m.data {
		if !item.expires.IsZero() && m.now().After(item.expires) {
			continue
		}
		if ok, _ := path.Match(pattern, k); ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *MemoryKV) PushCapped(_ context.Context, key string, value string, max int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	l := append(m.lists[key], value)
	if max > 0 && len(l) > max {
		l = append([]string(nil), l[len(l)-max:]...)
	}
	m.lists[key] = l
	return nil
}

func (m *MemoryKV) Range(_ context.Context, key string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.lists[key]...), nil
}
