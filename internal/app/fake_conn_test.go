package app

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kryptochat/relay/internal/core"
)

// fakeConn captures frames instead of writing to a socket.
type fakeConn struct {
	mu     sync.Mutex
	frames []core.Frame
	closed bool
	full   bool
}

func (f *fakeConn) TrySend(fr core.Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errors.New("connection closed")
	}
	if f.full {
		return errors.New("backpressure")
	}
	f.frames = append(f.frames, fr)
	return nil
}

func (f *fakeConn) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeConn) sent() []core.Frame {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]core.Frame, len(f.frames))
	copy(out, f.frames)
	return out
}

// types returns the type field of every captured frame, in order.
func (f *fakeConn) types(t *testing.T) []string {
	t.Helper()
	var out []string
	for _, fr := range f.sent() {
		var probe struct {
			Type string `json:"type"`
		}
		require.NoError(t, json.Unmarshal(fr, &probe))
		out = append(out, probe.Type)
	}
	return out
}

// lastOf returns the last captured frame of the given type.
func (f *fakeConn) lastOf(t *testing.T, kind string) (core.Frame, bool) {
	t.Helper()
	frames := f.sent()
	for i := len(frames) - 1; i >= 0; i-- {
		var probe struct {
			Type string `json:"type"`
		}
		require.NoError(t, json.Unmarshal(frames[i], &probe))
		if probe.Type == kind {
			return frames[i], true
		}
	}
	return nil, false
}

func countOf(t *testing.T, conn *fakeConn, kind string) int {
	t.Helper()
	n := 0
	for _, k := range conn.types(t) {
		if k == kind {
			n++
		}
	}
	return n
}

func mustDecode(t *testing.T, raw string) *core.Envelope {
	t.Helper()
	env, err := core.Decode(core.Frame(raw))
	require.NoError(t, err)
	return env
}
