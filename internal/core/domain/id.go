package domain

import (
	"github.com/google/uuid"
)

// ParticipantID is the opaque handle the relay assigns to a connection.
type ParticipantID string

func NewParticipantID() ParticipantID {
	return ParticipantID(uuid.New().String())
}

func (id ParticipantID) String() string {
	return string(id)
}

func (id ParticipantID) IsZero() bool {
	return id == ""
}

type MessageID uuid.UUID

func NewMessageID() MessageID {
	return MessageID(uuid.New())
}

func (id MessageID) String() string {
	return uuid.UUID(id).String()
}

func (id MessageID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *MessageID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	if err != nil {
		return err
	}
	*id = MessageID(u)
	return nil
}
