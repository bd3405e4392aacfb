package sessioncache

import (
	"context"
	"maps"
	"sync"
)

// Memory is an in-process session cache for single-instance deployments and
// tests. Stale entries are not expired here; the recovery rules discard
// snapshots older than the validity window anyway.
type Memory struct {
	mu        sync.RWMutex
	snapshots map[string]Snapshot
	answers   map[string]map[string]string
}

func NewMemory() *Memory {
	return &Memory{
		snapshots: make(map[string]Snapshot),
		answers:   make(map[string]map[string]string),
	}
}

func (m *Memory) Snapshot(_ context.Context, interviewID string) (Snapshot, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.snapshots[snapshotKey(interviewID)]
	return s, ok, nil
}

func (m *Memory) PutSnapshot(_ context.Context, interviewID string, s Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[snapshotKey(interviewID)] = s
	return nil
}

func (m *Memory) Answers(_ context.Context, interviewID string) (map[string]string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stored, ok := m.answers[answersKey(interviewID)]
	if !ok {
		return nil, false, nil
	}
	return maps.Clone(stored), true, nil
}

func (m *Memory) PutAnswers(_ context.Context, interviewID string, answers map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.answers[answersKey(interviewID)] = maps.Clone(answers)
	return nil
}

func (m *Memory) Delete(_ context.Context, interviewID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snapshots, snapshotKey(interviewID))
	delete(m.answers, answersKey(interviewID))
	return nil
}

func (m *Memory) Ping(context.Context) error { return nil }
