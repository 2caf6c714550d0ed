package store

import (
	"context"
	"sort"
	"sync"
)

// Memory keeps everything in process; sessions do not survive a restart
// unless a Redis mirror is configured.
type Memory struct {
	mu       sync.RWMutex
	sessions map[string]SessionRecord
	packs    map[string]PackRecord
}

func NewMemory() *Memory {
	return &Memory{
		sessions: make(map[string]SessionRecord),
		packs:    make(map[string]PackRecord),
	}
}

func (m *Memory) SaveSession(_ context.Context, rec SessionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[rec.ID] = rec
	return nil
}

func (m *Memory) DeleteSession(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *Memory) LoadSessions(_ context.Context) ([]SessionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]SessionRecord, 0, len(m.sessions))
	for _, r := range m.sessions {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) SavePack(_ context.Context, rec PackRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.packs[rec.ID] = rec
	return nil
}

func (m *Memory) GetPack(_ context.Context, id string) (PackRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.packs[id]
	if !ok {
		return PackRecord{}, ErrNotFound
	}
	return p, nil
}

func (m *Memory) ListPacks(_ context.Context, f PackFilter) ([]PackRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []PackRecord{}
	for _, p := range m.packs {
		if f.match(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) DeletePack(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.packs[id]; !ok {
		return ErrNotFound
	}
	delete(m.packs, id)
	return nil
}

func (m *Memory) Close() error { return nil }
