package domain

type SignalType string

const (
	SignalCallRequest  SignalType = "call-request"
	SignalCallAccepted SignalType = "call-accepted"
	SignalCallRejected SignalType = "call-rejected"
	SignalCallCancel   SignalType = "call-cancel"
	SignalBusy         SignalType = "busy"
	SignalHangup       SignalType = "hangup"
	SignalOffer        SignalType = "offer"
	SignalAnswer       SignalType = "answer"
	SignalCandidate    SignalType = "ice-candidate"

	SignalPresence SignalType = "presence-snapshot"
	SignalChat     SignalType = "chat-message"
	SignalWelcome  SignalType = "welcome"
)

// IsCallSignal reports whether t belongs to the call negotiation protocol.
func (t SignalType) IsCallSignal() bool {
	switch t {
	case SignalCallRequest, SignalCallAccepted, SignalCallRejected, SignalCallCancel,
		SignalBusy, SignalHangup, SignalOffer, SignalAnswer, SignalCandidate:
		return true
	}
	return false
}

// Envelope is the single frame exchanged with the relay.
type Envelope struct {
	Type         SignalType    `json:"type"`
	To           ParticipantID `json:"to,omitempty"`
	From         ParticipantID `json:"from,omitempty"`
	DisplayName  string        `json:"displayName,omitempty"`
	SDP          string        `json:"sdp,omitempty"`
	Candidate    *Candidate    `json:"candidate,omitempty"`
	Text         string        `json:"text,omitempty"`
	Participants []Participant `json:"participants,omitempty"`
}

func NewSignal(t SignalType, to ParticipantID) Envelope {
	return Envelope{Type: t, To: to}
}

// RelayFrame carries an envelope between relay nodes. A broadcast frame goes
// to every local connection, otherwise only to Envelope.To.
type RelayFrame struct {
	Origin    string   `json:"origin"`
	Broadcast bool     `json:"broadcast"`
	Envelope  Envelope `json:"envelope"`
}
