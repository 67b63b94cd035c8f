package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kryptochat/relay/internal/core"
)

func newTestRouter() *Router {
	dir := NewDirectory()
	return NewRouter(dir, NewPresence(dir), NewCoordinator(dir))
}

// registerPeer runs a register envelope through the router and returns
// the peer the adapter would hold for that connection.
func registerPeer(t *testing.T, r *Router, id string) (*Peer, *fakeConn) {
	t.Helper()
	conn := &fakeConn{}
	peer := NewPeer(conn)
	r.Route(peer, mustDecode(t, `{"type":"register","userId":"`+id+`"}`))
	require.Equal(t, core.Identity(id), peer.Identity)
	return peer, conn
}

func TestRegisterBindsAndAnnounces(t *testing.T) {
	r := newTestRouter()
	_, conn := registerPeer(t, r, "alice")

	_, ok := r.Directory.Lookup("alice")
	assert.True(t, ok)
	assert.Equal(t, []string{"alice"}, decodeOnlineUsers(t, conn))
}

func TestRegisterWithoutUserIDIgnored(t *testing.T) {
	r := newTestRouter()
	conn := &fakeConn{}
	peer := NewPeer(conn)

	r.Route(peer, mustDecode(t, `{"type":"register"}`))

	assert.Empty(t, peer.Identity)
	assert.Empty(t, r.Directory.Snapshot())
	assert.Empty(t, conn.sent())
}

func TestDirectDeliveredVerbatim(t *testing.T) {
	r := newTestRouter()
	sender, _ := registerPeer(t, r, "alice")
	_, bobConn := registerPeer(t, r, "bob")

	raw := `{"type":"message","from":"alice","to":"bob","body":"a1b2c3=="}`
	r.Route(sender, mustDecode(t, raw))

	frame, ok := bobConn.lastOf(t, "message")
	require.True(t, ok)
	// The payload passes through untouched, byte for byte.
	assert.Equal(t, raw, string(frame))
}

func TestDirectToOfflineDroppedSilently(t *testing.T) {
	r := newTestRouter()
	sender, senderConn := registerPeer(t, r, "alice")
	before := len(senderConn.sent())

	r.Route(sender, mustDecode(t, `{"type":"signal","from":"alice","to":"ghost","data":"x"}`))

	// No delivery receipt, no error frame back to the sender.
	assert.Len(t, senderConn.sent(), before)
}

func TestReRegisterRoutesToLatestConnection(t *testing.T) {
	r := newTestRouter()
	sender, _ := registerPeer(t, r, "alice")
	_, first := registerPeer(t, r, "bob")
	_, second := registerPeer(t, r, "bob")

	firstBefore := countOf(t, first, "message")
	r.Route(sender, mustDecode(t, `{"type":"message","from":"alice","to":"bob","body":"hi"}`))

	assert.Equal(t, 1, countOf(t, second, "message"))
	assert.Equal(t, firstBefore, countOf(t, first, "message"), "orphaned connection must not receive traffic")
}

func TestBroadcastSkipsOfflineRecipients(t *testing.T) {
	r := newTestRouter()
	sender, senderConn := registerPeer(t, r, "dave")
	_, a := registerPeer(t, r, "alice")
	_, c := registerPeer(t, r, "carol")

	before := len(senderConn.sent())
	raw := `{"type":"broadcast","from":"dave","recipients":["alice","bob","carol"],"chatId":"room1","body":"yo"}`
	r.Route(sender, mustDecode(t, raw))

	assert.Equal(t, 1, countOf(t, a, "broadcast"))
	assert.Equal(t, 1, countOf(t, c, "broadcast"))
	// Partial delivery is not an error toward the sender.
	assert.Len(t, senderConn.sent(), before)
}

func TestPingAnsweredWithPong(t *testing.T) {
	r := newTestRouter()
	conn := &fakeConn{}
	peer := NewPeer(conn)

	r.Route(peer, mustDecode(t, `{"type":"ping"}`))

	assert.Equal(t, []string{"pong"}, conn.types(t))
}

func TestUnknownEnvelopeTypeIgnored(t *testing.T) {
	r := newTestRouter()
	peer, conn := registerPeer(t, r, "alice")
	before := len(conn.sent())

	r.Route(peer, mustDecode(t, `{"type":"selfdestruct"}`))

	assert.Len(t, conn.sent(), before)
	assert.Equal(t, []core.Identity{"alice"}, r.Directory.Snapshot())
}

func TestDisconnectUnbindsAndAnnounces(t *testing.T) {
	r := newTestRouter()
	alice, _ := registerPeer(t, r, "alice")
	_, bobConn := registerPeer(t, r, "bob")

	r.Disconnect(alice)

	assert.Equal(t, []core.Identity{"bob"}, r.Directory.Snapshot())
	assert.Equal(t, []string{"bob"}, decodeOnlineUsers(t, bobConn))
}

func TestDisconnectOfStaleConnectionKeepsFreshBinding(t *testing.T) {
	r := newTestRouter()
	stalePeer, _ := registerPeer(t, r, "alice")
	_, freshConn := registerPeer(t, r, "alice")

	announcesBefore := countOf(t, freshConn, "online_users")
	r.Disconnect(stalePeer)

	// Identity is still online via the fresh connection and no presence
	// change was broadcast.
	_, ok := r.Directory.Lookup("alice")
	assert.True(t, ok)
	assert.Equal(t, announcesBefore, countOf(t, freshConn, "online_users"))
}

func TestDisconnectOfUnregisteredPeerIsNoop(t *testing.T) {
	r := newTestRouter()
	peer := NewPeer(&fakeConn{})
	r.Disconnect(peer)
	assert.Empty(t, r.Directory.Snapshot())
}
