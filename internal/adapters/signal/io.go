package signal

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/kryptochat/relay/internal/app"
	"github.com/kryptochat/relay/internal/core"
)

func (ctl *Controller) writePump(ctx context.Context, c *wsConn) {
	ticker := time.NewTicker(ctl.cfg.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.cfg.WriteTimeout)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.cfg.WriteTimeout)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Warn().Err(err).Str("module", "signal").Msg("writePump ping error")
				return
			}
		}
	}
}

func (ctl *Controller) readPump(ctx context.Context, cancel context.CancelFunc, peer *app.Peer, c *wsConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("identity", string(peer.Identity)).Msg("readPump closing")
		cancel()
		c.Close()
		ctl.Router.Disconnect(peer)
	}()

	// A silent peer must answer pings well within one period, so allow a
	// bit more than one ping interval before the read times out.
	readWait := ctl.cfg.PingPeriod + ctl.cfg.PingPeriod/9

	c.conn.SetReadLimit(ctl.cfg.ReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(readWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(readWait))
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Error().Err(err).Str("module", "signal").Str("identity", string(peer.Identity)).Msg("readPump read error")
				}
				return
			}
			ctl.dispatch(peer, data)
		}
	}
}

// dispatch parses one frame and hands it to the router. A malformed frame
// is dropped with a diagnostic; it never tears the connection down.
func (ctl *Controller) dispatch(peer *app.Peer, data []byte) {
	env, err := core.Decode(data)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad envelope json")
		return
	}
	ctl.Router.Route(peer, env)
}
