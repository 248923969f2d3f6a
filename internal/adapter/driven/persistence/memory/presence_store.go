package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/Wyydra/yaphone/internal/core/domain"
)

type PresenceStore struct {
	mu           sync.RWMutex
	participants map[domain.ParticipantID]domain.Participant
}

func NewPresenceStore() *PresenceStore {
	return &PresenceStore{
		participants: make(map[domain.ParticipantID]domain.Participant),
	}
}

func (s *PresenceStore) Join(ctx context.Context, p domain.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.participants[p.ID] = p
	return nil
}

func (s *PresenceStore) Leave(ctx context.Context, id domain.ParticipantID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.participants, id)
	return nil
}

func (s *PresenceStore) Get(ctx context.Context, id domain.ParticipantID) (domain.Participant, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.participants[id]
	return p, ok, nil
}

func (s *PresenceStore) List(ctx context.Context) ([]domain.Participant, error) {
	s.mu.RLock()
	out := make([]domain.Participant, 0, len(s.participants))
	for _, p := range s.participants {
		out = append(out, p)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].DisplayName != out[j].DisplayName {
			return out[i].DisplayName < out[j].DisplayName
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
