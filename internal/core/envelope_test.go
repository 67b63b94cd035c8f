package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeKeepsRawBytes(t *testing.T) {
	raw := `{"type":"message","from":"alice","to":"bob","body":"opaque-ciphertext"}`
	env, err := Decode(Frame(raw))
	require.NoError(t, err)

	assert.Equal(t, KindMessage, env.Type)
	assert.Equal(t, "alice", env.From)
	assert.Equal(t, "bob", env.To)
	assert.Equal(t, raw, string(env.Raw))
}

func TestDecodeCallFields(t *testing.T) {
	env, err := Decode(Frame(`{"type":"call-offer","from":"a","to":"b","callId":"c1","callType":"video","offer":{"sdp":"v=0"}}`))
	require.NoError(t, err)

	assert.Equal(t, "c1", env.CallID)
	assert.Equal(t, "video", env.CallType)
	assert.True(t, env.IsCallKind())
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode(Frame("{not json"))
	assert.Error(t, err)

	_, err = Decode(nil)
	assert.ErrorIs(t, err, ErrEmptyEnvelope)
}

func TestIsCallKind(t *testing.T) {
	for _, kind := range []string{KindCallOffer, KindCallAnswer, KindICECandidate, KindCallEnd, KindCallReject} {
		assert.True(t, (&Envelope{Type: kind}).IsCallKind(), kind)
	}
	for _, kind := range []string{KindRegister, KindMessage, KindSignal, KindBroadcast, KindPing, "bogus"} {
		assert.False(t, (&Envelope{Type: kind}).IsCallKind(), kind)
	}
}

func TestOnlineUsersNeverNull(t *testing.T) {
	frame, err := OnlineUsers(nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"online_users","users":[]}`, string(frame))

	frame, err = OnlineUsers([]Identity{"alice", "bob"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"online_users","users":["alice","bob"]}`, string(frame))
}

func TestCallErrorShape(t *testing.T) {
	frame, err := CallError("c1", "recipient offline")
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"call-error","error":"recipient offline","callId":"c1"}`, string(frame))
}

func TestCallSignalShape(t *testing.T) {
	frame, err := CallSignal(KindCallEnd, "bob", "alice", "c1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"call-end","from":"bob","to":"alice","callId":"c1"}`, string(frame))
}

func TestPongIsValidJSON(t *testing.T) {
	var probe struct {
		Type string `json:"type"`
	}
	require.NoError(t, json.Unmarshal(Pong(), &probe))
	assert.Equal(t, "pong", probe.Type)
}
