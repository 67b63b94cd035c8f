package core

import (
	"encoding/json"
	"errors"
)

// Envelope kinds accepted on the wire. The relay inspects only routing
// fields; everything else in the frame is opaque payload.
const (
	KindRegister     = "register"
	KindMessage      = "message"
	KindSignal       = "signal"
	KindBroadcast    = "broadcast"
	KindCallOffer    = "call-offer"
	KindCallAnswer   = "call-answer"
	KindICECandidate = "ice-candidate"
	KindCallEnd      = "call-end"
	KindCallReject   = "call-reject"
	KindPing         = "ping"
)

var ErrEmptyEnvelope = errors.New("empty envelope")

// Envelope carries the routing fields of one inbound frame. Raw keeps the
// original bytes so forwards are verbatim, never re-marshaled.
type Envelope struct {
	Type       string   `json:"type"`
	From       string   `json:"from"`
	To         string   `json:"to"`
	Recipients []string `json:"recipients"`
	UserID     string   `json:"userId"`
	CallID     string   `json:"callId"`
	CallType   string   `json:"callType"`

	Raw Frame `json:"-"`
}

// Decode parses the routing fields of a frame. The frame itself is kept
// untouched in Raw.
func Decode(data Frame) (*Envelope, error) {
	if len(data) == 0 {
		return nil, ErrEmptyEnvelope
	}
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	env.Raw = data
	return &env, nil
}

// IsCallKind reports whether the envelope belongs to the call coordinator.
func (e *Envelope) IsCallKind() bool {
	switch e.Type {
	case KindCallOffer, KindCallAnswer, KindICECandidate, KindCallEnd, KindCallReject:
		return true
	}
	return false
}

// OnlineUsers builds the presence broadcast frame.
func OnlineUsers(users []Identity) (Frame, error) {
	if users == nil {
		users = []Identity{}
	}
	return json.Marshal(struct {
		Type  string     `json:"type"`
		Users []Identity `json:"users"`
	}{
		Type:  "online_users",
		Users: users,
	})
}

// CallError builds the unicast error reply sent to an offerer.
func CallError(callID, reason string) (Frame, error) {
	return json.Marshal(struct {
		Type   string `json:"type"`
		Error  string `json:"error"`
		CallID string `json:"callId"`
	}{
		Type:   "call-error",
		Error:  reason,
		CallID: callID,
	})
}

// CallSignal builds a relay-originated call envelope (busy rejects and the
// call-end synthesized when a participant drops mid-call).
func CallSignal(kind string, from, to Identity, callID string) (Frame, error) {
	return json.Marshal(struct {
		Type   string   `json:"type"`
		From   Identity `json:"from"`
		To     Identity `json:"to"`
		CallID string   `json:"callId"`
	}{
		Type:   kind,
		From:   from,
		To:     to,
		CallID: callID,
	})
}

// Pong answers the application-level ping.
func Pong() Frame {
	return Frame(`{"type":"pong"}`)
}
