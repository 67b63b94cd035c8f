package app

import (
	"github.com/rs/zerolog/log"

	"github.com/kryptochat/relay/internal/core"
)

// Peer is the routing-side view of one transport connection: the
// connection handle plus the identity it registered under, if any. The
// signal adapter owns the connection; the router only ever routes to it.
type Peer struct {
	Conn     core.SignalConnection
	Identity core.Identity
}

func NewPeer(conn core.SignalConnection) *Peer {
	return &Peer{Conn: conn}
}

// Router classifies each inbound envelope and dispatches it synchronously:
// registration to the directory, chat envelopes to their targets, call
// envelopes to the coordinator. Envelopes from one connection are routed
// in receive order; nothing is guaranteed across senders.
type Router struct {
	Directory *Directory
	Presence  *Presence
	Calls     *Coordinator
}

func NewRouter(dir *Directory, presence *Presence, calls *Coordinator) *Router {
	return &Router{
		Directory: dir,
		Presence:  presence,
		Calls:     calls,
	}
}

// Route handles one envelope from p. Chat envelopes to unbound targets
// are dropped silently: delivery is fire-and-forget at this layer, any
// offline queueing is the client's problem.
func (r *Router) Route(p *Peer, env *core.Envelope) {
	switch env.Type {
	case core.KindRegister:
		r.register(p, env)
	case core.KindMessage, core.KindSignal:
		r.direct(env)
	case core.KindBroadcast:
		r.broadcast(env)
	case core.KindCallOffer:
		r.Calls.HandleOffer(p.Conn, env)
	case core.KindCallAnswer:
		r.Calls.HandleAnswer(env)
	case core.KindICECandidate:
		r.Calls.HandleCandidate(env)
	case core.KindCallEnd:
		r.Calls.HandleEnd(env)
	case core.KindCallReject:
		r.Calls.HandleReject(env)
	case core.KindPing:
		if err := p.Conn.TrySend(core.Pong()); err != nil {
			log.Warn().Err(err).Str("module", "app.router").Msg("pong send failed")
		}
	default:
		log.Warn().Str("module", "app.router").Str("type", env.Type).Msg("unknown envelope type")
	}
}

// Disconnect unwinds a closed connection: guarded unbind, call teardown,
// presence re-announce. If the identity was re-registered elsewhere the
// unbind refuses and nothing else happens — the user is still online
// through the fresher connection.
func (r *Router) Disconnect(p *Peer) {
	if p.Identity == "" {
		return
	}
	if !r.Directory.Unbind(p.Identity, p.Conn) {
		log.Info().Str("module", "app.router").Str("identity", string(p.Identity)).Msg("stale connection closed, binding kept")
		return
	}
	r.Calls.DropParticipant(p.Identity)
	r.Presence.Announce()
}

func (r *Router) register(p *Peer, env *core.Envelope) {
	if env.UserID == "" {
		log.Warn().Str("module", "app.router").Msg("register without userId")
		return
	}
	id := core.Identity(env.UserID)
	r.Directory.Bind(id, p.Conn)
	p.Identity = id
	r.Presence.Announce()
}

func (r *Router) direct(env *core.Envelope) {
	if env.To == "" {
		log.Warn().Str("module", "app.router").Str("type", env.Type).Msg("direct envelope without target")
		return
	}
	conn, ok := r.Directory.Lookup(core.Identity(env.To))
	if !ok {
		log.Debug().Str("module", "app.router").Str("to", env.To).Str("type", env.Type).Msg("target offline, dropping")
		return
	}
	if err := conn.TrySend(env.Raw); err != nil {
		log.Warn().Err(err).Str("module", "app.router").Str("to", env.To).Msg("direct forward failed")
	}
}

// broadcast fans out to the explicit recipient list. Offline recipients
// are skipped one by one; partial delivery is expected, not an error.
func (r *Router) broadcast(env *core.Envelope) {
	for _, recipient := range env.Recipients {
		conn, ok := r.Directory.Lookup(core.Identity(recipient))
		if !ok {
			continue
		}
		if err := conn.TrySend(env.Raw); err != nil {
			log.Warn().Err(err).Str("module", "app.router").Str("to", recipient).Msg("broadcast forward failed")
		}
	}
}
