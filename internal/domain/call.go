package domain

import "time"

// CallState tracks where a signaling session is in its lifecycle.
// Terminal outcomes (ended, rejected, errored) are represented by deleting
// the call record, so only live states exist here.
type CallState int

const (
	CallOffered CallState = iota
	CallAnswered
	CallActive
)

func (s CallState) String() string {
	switch s {
	case CallOffered:
		return "offered"
	case CallAnswered:
		return "answered"
	case CallActive:
		return "active"
	}
	return "unknown"
}

// MediaKind is the media flavor requested by the offerer.
type MediaKind string

const (
	MediaVoice MediaKind = "voice"
	MediaVideo MediaKind = "video"
)

// MediaKindFrom maps the wire callType field; anything that is not video
// is treated as voice.
func MediaKindFrom(s string) MediaKind {
	if s == string(MediaVideo) {
		return MediaVideo
	}
	return MediaVoice
}

// Call is the ephemeral state of one signaling session between exactly two
// participants. The callId is caller-generated and opaque.
type Call struct {
	ID        string
	Caller    string
	Callee    string
	Media     MediaKind
	State     CallState
	CreatedAt time.Time
}

// Involves reports whether the identity is one of the two participants.
func (c *Call) Involves(id string) bool {
	return c.Caller == id || c.Callee == id
}

// Other returns the participant opposite to id. Callers must check
// Involves first.
func (c *Call) Other(id string) string {
	if c.Caller == id {
		return c.Callee
	}
	return c.Caller
}
