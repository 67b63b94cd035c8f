// Package signal is the WebSocket transport adapter: it owns each
// connection's lifetime and feeds inbound envelopes to the relay router.
package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/kryptochat/relay/internal/app"
	"github.com/kryptochat/relay/internal/config"
	"github.com/kryptochat/relay/internal/core"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)

type Controller struct {
	Router *app.Router
	cfg    *config.Config
}

func NewController(router *app.Router, cfg *config.Config) *Controller {
	return &Controller{
		Router: router,
		cfg:    cfg,
	}
}

// wsConn wraps a websocket connection behind core.SignalConnection. Sends
// go through a buffered channel drained by the write pump; a full buffer
// fails the send immediately instead of queueing.
type wsConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *wsConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrConnClosed
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *wsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal upgrades the request and starts the connection's pumps.
// The connection is accepted unauthenticated; it only becomes routable
// once the client sends its register envelope.
func (ctl *Controller) HandleSignal(ctx context.Context, c *gin.Context) {
	log.Info().Str("module", "signal").Str("ct", c.GetString("client_token")).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	conn := &wsConn{
		conn: ws,
		send: make(chan core.Frame, ctl.cfg.SendBuffer),
	}
	peer := app.NewPeer(conn)

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, peer, conn)
}
