package memory

import (
	"context"
	"sync"

	"github.com/Wyydra/yaphone/internal/core/domain"
)

// MessageRepository keeps the most recent chat messages.
type MessageRepository struct {
	mu       sync.Mutex
	limit    int
	messages []domain.Message
}

func NewMessageRepository(limit int) *MessageRepository {
	if limit <= 0 {
		limit = 100
	}
	return &MessageRepository{
		limit:    limit,
		messages: make([]domain.Message, 0, limit),
	}
}

func (r *MessageRepository) Save(ctx context.Context, msg domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
	if over := len(r.messages) - r.limit; over > 0 {
		r.messages = append(r.messages[:0:0], r.messages[over:]...)
	}
	return nil
}

// Recent returns up to limit messages, oldest first.
func (r *MessageRepository) Recent(ctx context.Context, limit int) ([]domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	start := 0
	if limit > 0 && len(r.messages) > limit {
		start = len(r.messages) - limit
	}
	return append([]domain.Message(nil), r.messages[start:]...), nil
}
