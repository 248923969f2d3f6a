package domain

import (
	"strings"
	"time"
)

type Message struct {
	ID         MessageID     `json:"id"`
	SenderID   ParticipantID `json:"from"`
	SenderName string        `json:"displayName"`
	Content    string        `json:"text"`
	CreatedAt  time.Time     `json:"createdAt"`
}

func NewMessage(sender Participant, content string) (*Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyMessage
	}
	return &Message{
		ID:         NewMessageID(),
		SenderID:   sender.ID,
		SenderName: sender.DisplayName,
		Content:    content,
		CreatedAt:  time.Now(),
	}, nil
}

// Envelope is the chat-message frame carrying msg.
func (m Message) Envelope() Envelope {
	return Envelope{
		Type:        SignalChat,
		From:        m.SenderID,
		DisplayName: m.SenderName,
		Text:        m.Content,
	}
}
