package governor

import (
	"context"
	"sort"
	"strings"
	"sync"

	"Conflux/internal/domain/models"
	domrepo "Conflux/internal/domain/repository"
)

// MemoryStateStore keeps governor state in process. The mutex is held
// across the whole read-modify-write so concurrent Update calls for the
// same key cannot both observe IDLE.
type MemoryStateStore struct {
	mu    sync.Mutex
	state map[string]*models.FrequencyState
}

func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{state: make(map[string]*models.FrequencyState)}
}

func (s *MemoryStateStore) Get(_ context.Context, key string) (*models.FrequencyState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.state[key]
	if !ok {
		return nil, nil
	}
	cp := *st
	return &cp, nil
}

func (s *MemoryStateStore) Update(_ context.Context, key string, fn func(prev *models.FrequencyState) (*models.FrequencyState, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var prev *models.FrequencyState
	if st, ok := s.state[key]; ok {
		cp := *st
		prev = &cp
	}

	next, err := fn(prev)
	if err != nil {
		return err
	}
	if next != nil {
		cp := *next
		s.state[key] = &cp
	}
	return nil
}

func (s *MemoryStateStore) Keys(_ context.Context, symbol string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefix := symbol + ":"
	keys := make([]string, 0, 2)
	for k := range s.state {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *MemoryStateStore) Close() error { return nil }

var _ domrepo.StateStore = (*MemoryStateStore)(nil)
