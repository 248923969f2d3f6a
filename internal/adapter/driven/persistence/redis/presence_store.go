package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/Wyydra/yaphone/internal/core/domain"
	"github.com/redis/go-redis/v9"
)

const presenceKey = "presence:participants"

// PresenceStore keeps presence in a Redis hash shared by all relay nodes.
type PresenceStore struct {
	client *redis.Client
	key    string
}

func NewPresenceStore(client *redis.Client) *PresenceStore {
	return &PresenceStore{client: client, key: presenceKey}
}

func (s *PresenceStore) Join(ctx context.Context, p domain.Participant) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	if err := s.client.HSet(ctx, s.key, p.ID.String(), data).Err(); err != nil {
		return fmt.Errorf("failed to set participant online: %w", err)
	}
	return nil
}

func (s *PresenceStore) Leave(ctx context.Context, id domain.ParticipantID) error {
	if err := s.client.HDel(ctx, s.key, id.String()).Err(); err != nil {
		return fmt.Errorf("failed to set participant offline: %w", err)
	}
	return nil
}

func (s *PresenceStore) Get(ctx context.Context, id domain.ParticipantID) (domain.Participant, bool, error) {
	data, err := s.client.HGet(ctx, s.key, id.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Participant{}, false, nil
	}
	if err != nil {
		return domain.Participant{}, false, fmt.Errorf("failed to get participant: %w", err)
	}
	var p domain.Participant
	if err := json.Unmarshal(data, &p); err != nil {
		return domain.Participant{}, false, fmt.Errorf("decode participant %s: %w", id, err)
	}
	return p, true, nil
}

func (s *PresenceStore) List(ctx context.Context) ([]domain.Participant, error) {
	entries, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}

	out := make([]domain.Participant, 0, len(entries))
	for id, data := range entries {
		var p domain.Participant
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			return nil, fmt.Errorf("decode participant %s: %w", id, err)
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DisplayName != out[j].DisplayName {
			return out[i].DisplayName < out[j].DisplayName
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
