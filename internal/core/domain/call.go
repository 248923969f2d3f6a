package domain

import "time"

type CallState int

const (
	StateIdle CallState = iota
	StateOutgoing
	StateIncomingRinging
	StateActive
	StateTerminating
)

func (s CallState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateOutgoing:
		return "outgoing"
	case StateIncomingRinging:
		return "incoming-ringing"
	case StateActive:
		return "active"
	case StateTerminating:
		return "terminating"
	}
	return "unknown"
}

type CallRole int

const (
	RoleNone CallRole = iota
	RoleCaller
	RoleCallee
)

func (r CallRole) String() string {
	switch r {
	case RoleCaller:
		return "caller"
	case RoleCallee:
		return "callee"
	}
	return "none"
}

// EndReason tells the presentation layer why a call returned to idle.
type EndReason string

const (
	EndNormal    EndReason = "normal"
	EndRejected  EndReason = "rejected"
	EndBusy      EndReason = "busy"
	EndCancelled EndReason = "cancelled"
	EndFailed    EndReason = "failed"
)

// ConnectionState mirrors the peer connection states a media transport reports.
type ConnectionState string

const (
	ConnectionNew          ConnectionState = "new"
	ConnectionConnecting   ConnectionState = "connecting"
	ConnectionConnected    ConnectionState = "connected"
	ConnectionDisconnected ConnectionState = "disconnected"
	ConnectionFailed       ConnectionState = "failed"
	ConnectionClosed       ConnectionState = "closed"
)

// Terminal reports whether the state ends the current call.
func (c ConnectionState) Terminal() bool {
	switch c {
	case ConnectionFailed, ConnectionDisconnected, ConnectionClosed:
		return true
	}
	return false
}

type SDPType string

const (
	SDPOffer  SDPType = "offer"
	SDPAnswer SDPType = "answer"
)

type SessionDescription struct {
	Type SDPType
	SDP  string
}

// Candidate is a trickled connectivity candidate. The JSON layout matches
// the browser RTCIceCandidateInit dictionary.
type Candidate struct {
	Candidate        string  `json:"candidate"`
	SDPMid           *string `json:"sdpMid,omitempty"`
	SDPMLineIndex    *uint16 `json:"sdpMLineIndex,omitempty"`
	UsernameFragment *string `json:"usernameFragment,omitempty"`
}

// CallSnapshot is the read-only projection of the current call.
type CallSnapshot struct {
	State     CallState
	Role      CallRole
	Peer      Participant
	Accepted  bool
	StartedAt time.Time
	Elapsed   time.Duration
}

func (s CallSnapshot) InCall() bool {
	return s.State != StateIdle
}
