package progress

import (
	"context"
	"sync"

	"github.com/fmuoria/nexushire/internal/models"
)

// DefaultMaxRuns bounds the number of runs a MemoryStore retains.
const DefaultMaxRuns = 256

type runState struct {
	owner   int64
	logs    []string
	results []models.ResultEntry
}

// MemoryStore is an in-process Store. The oldest runs are evicted once
// MaxRuns is exceeded.
type MemoryStore struct {
	mu      sync.RWMutex
	runs    map[string]*runState
	order   []string
	latest  map[int64]string
	maxRuns int
}

// NewMemoryStore creates a MemoryStore retaining at most maxRuns runs.
func NewMemoryStore(maxRuns int) *MemoryStore {
	if maxRuns <= 0 {
		maxRuns = DefaultMaxRuns
	}
	return &MemoryStore{
		runs:    make(map[string]*runState),
		latest:  make(map[int64]string),
		maxRuns: maxRuns,
	}
}

func (m *MemoryStore) Begin(_ context.Context, runID string, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.runs[runID]; !ok {
		m.order = append(m.order, runID)
	}
	m.runs[runID] = &runState{owner: userID}
	m.latest[userID] = runID

	for len(m.order) > m.maxRuns {
		m.evict(m.order[0])
		m.order = m.order[1:]
	}
	return nil
}

func (m *MemoryStore) evict(runID string) {
	st, ok := m.runs[runID]
	if !ok {
		return
	}
	delete(m.runs, runID)
	if m.latest[st.owner] == runID {
		delete(m.latest, st.owner)
	}
}

func (m *MemoryStore) Append(_ context.Context, runID, line string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.runs[runID]
	if !ok {
		return ErrRunNotFound
	}
	st.logs = append(st.logs, line)
	return nil
}

func (m *MemoryStore) AddResult(_ context.Context, runID string, entry models.ResultEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.runs[runID]
	if !ok {
		return ErrRunNotFound
	}
	st.results = append(st.results, entry)
	return nil
}

func (m *MemoryStore) Logs(_ context.Context, runID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st, ok := m.runs[runID]
	if !ok {
		return nil, ErrRunNotFound
	}
	out := make([]string, len(st.logs))
	copy(out, st.logs)
	return out, nil
}

func (m *MemoryStore) Results(_ context.Context, runID string) ([]models.ResultEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st, ok := m.runs[runID]
	if !ok {
		return nil, ErrRunNotFound
	}
	out := make([]models.ResultEntry, len(st.results))
	copy(out, st.results)
	return out, nil
}

func (m *MemoryStore) Owner(_ context.Context, runID string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st, ok := m.runs[runID]
	if !ok {
		return 0, ErrRunNotFound
	}
	return st.owner, nil
}

func (m *MemoryStore) LatestRun(_ context.Context, userID int64) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	runID, ok := m.latest[userID]
	if !ok {
		return "", ErrRunNotFound
	}
	return runID, nil
}
