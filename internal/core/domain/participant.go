package domain

type Participant struct {
	ID          ParticipantID `json:"id"`
	DisplayName string        `json:"displayName"`
}
