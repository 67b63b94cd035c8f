package app

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kryptochat/relay/internal/core"
	"github.com/kryptochat/relay/internal/domain"
)

const reasonOffline = "recipient offline"

// Coordinator tracks every in-flight call, keyed by the caller-generated
// callId. It relays SDP and ICE verbatim and only maintains enough state
// to enforce the busy policy and to clean up when a participant drops.
// One mutex guards the table; terminal calls are simply deleted.
type Coordinator struct {
	mu    sync.Mutex
	dir   *Directory
	calls map[string]*domain.Call
}

func NewCoordinator(dir *Directory) *Coordinator {
	return &Coordinator{
		dir:   dir,
		calls: make(map[string]*domain.Call),
	}
}

// HandleOffer screens a new call attempt. Offline callee: the offerer
// gets a call-error and no call is created. Busy callee: the offerer gets
// an auto-reject and the existing call is untouched. Otherwise the call
// is recorded as offered and the frame goes to the callee unchanged.
func (co *Coordinator) HandleOffer(sender core.SignalConnection, env *core.Envelope) {
	if env.CallID == "" || env.To == "" {
		log.Warn().Str("module", "app.calls").Str("from", env.From).Msg("offer missing callId or to")
		return
	}

	callee, ok := co.dir.Lookup(core.Identity(env.To))
	if !ok {
		frame, err := core.CallError(env.CallID, reasonOffline)
		if err != nil {
			log.Error().Err(err).Str("module", "app.calls").Msg("marshal call-error")
			return
		}
		if err := sender.TrySend(frame); err != nil {
			log.Warn().Err(err).Str("module", "app.calls").Str("from", env.From).Msg("call-error send failed")
		}
		return
	}

	co.mu.Lock()
	if busy := co.callOfLocked(env.To); busy != nil {
		co.mu.Unlock()
		log.Info().Str("module", "app.calls").Str("call_id", env.CallID).Str("to", env.To).Str("busy_call", busy.ID).Msg("callee busy, auto-rejecting")
		frame, err := core.CallSignal(core.KindCallReject, core.Identity(env.To), core.Identity(env.From), env.CallID)
		if err != nil {
			log.Error().Err(err).Str("module", "app.calls").Msg("marshal busy reject")
			return
		}
		if err := sender.TrySend(frame); err != nil {
			log.Warn().Err(err).Str("module", "app.calls").Str("from", env.From).Msg("busy reject send failed")
		}
		return
	}
	co.calls[env.CallID] = &domain.Call{
		ID:        env.CallID,
		Caller:    env.From,
		Callee:    env.To,
		Media:     domain.MediaKindFrom(env.CallType),
		State:     domain.CallOffered,
		CreatedAt: time.Now(),
	}
	co.mu.Unlock()

	log.Info().Str("module", "app.calls").Str("call_id", env.CallID).Str("caller", env.From).Str("callee", env.To).Str("media", env.CallType).Msg("call offered")
	co.forward(callee, core.Identity(env.To), env)
}

// HandleAnswer moves an offered call to answered and relays the answer to
// the original caller. Anything out of state is dropped with a diagnostic.
func (co *Coordinator) HandleAnswer(env *core.Envelope) {
	co.mu.Lock()
	call, ok := co.calls[env.CallID]
	if !ok || call.State != domain.CallOffered || call.Callee != env.From {
		co.mu.Unlock()
		log.Warn().Str("module", "app.calls").Str("call_id", env.CallID).Str("from", env.From).Msg("answer for unknown or out-of-state call")
		return
	}
	call.State = domain.CallAnswered
	caller := call.Caller
	co.mu.Unlock()

	log.Info().Str("module", "app.calls").Str("call_id", env.CallID).Msg("call answered")
	co.forwardTo(core.Identity(caller), env)
}

// HandleCandidate relays an ICE candidate to the other participant. The
// first candidate after the answer marks the call active; this is purely
// observational, media flows peer-to-peer outside the relay.
func (co *Coordinator) HandleCandidate(env *core.Envelope) {
	co.mu.Lock()
	call, ok := co.calls[env.CallID]
	if !ok || !call.Involves(env.From) {
		co.mu.Unlock()
		log.Warn().Str("module", "app.calls").Str("call_id", env.CallID).Str("from", env.From).Msg("candidate for unknown call or non-participant")
		return
	}
	if call.State == domain.CallAnswered {
		call.State = domain.CallActive
		log.Info().Str("module", "app.calls").Str("call_id", env.CallID).Msg("call active")
	}
	other := call.Other(env.From)
	co.mu.Unlock()

	co.forwardTo(core.Identity(other), env)
}

// HandleEnd tears a call down in any state. Ending an unknown or already
// ended call is a no-op, so duplicate call-end frames are harmless.
func (co *Coordinator) HandleEnd(env *core.Envelope) {
	co.mu.Lock()
	call, ok := co.calls[env.CallID]
	if !ok || !call.Involves(env.From) {
		co.mu.Unlock()
		return
	}
	delete(co.calls, env.CallID)
	other := call.Other(env.From)
	co.mu.Unlock()

	log.Info().Str("module", "app.calls").Str("call_id", env.CallID).Str("from", env.From).Msg("call ended")
	co.forwardTo(core.Identity(other), env)
}

// HandleReject lets the callee decline a call that is still offered.
func (co *Coordinator) HandleReject(env *core.Envelope) {
	co.mu.Lock()
	call, ok := co.calls[env.CallID]
	if !ok || call.State != domain.CallOffered || call.Callee != env.From {
		co.mu.Unlock()
		log.Warn().Str("module", "app.calls").Str("call_id", env.CallID).Str("from", env.From).Msg("reject for unknown or out-of-state call")
		return
	}
	delete(co.calls, env.CallID)
	caller := call.Caller
	co.mu.Unlock()

	log.Info().Str("module", "app.calls").Str("call_id", env.CallID).Msg("call rejected")
	co.forwardTo(core.Identity(caller), env)
}

// DropParticipant destroys every call the identity is party to and
// synthesizes a call-end toward each surviving participant, so their
// clients can unwind deterministically instead of hanging.
func (co *Coordinator) DropParticipant(id core.Identity) {
	type survivor struct {
		callID string
		other  core.Identity
	}
	co.mu.Lock()
	var survivors []survivor
	for callID, call := range co.calls {
		if !call.Involves(string(id)) {
			continue
		}
		delete(co.calls, callID)
		survivors = append(survivors, survivor{callID: callID, other: core.Identity(call.Other(string(id)))})
	}
	co.mu.Unlock()

	for _, s := range survivors {
		log.Info().Str("module", "app.calls").Str("call_id", s.callID).Str("lost", string(id)).Msg("participant lost, ending call")
		frame, err := core.CallSignal(core.KindCallEnd, id, s.other, s.callID)
		if err != nil {
			log.Error().Err(err).Str("module", "app.calls").Msg("marshal synthesized call-end")
			continue
		}
		if conn, ok := co.dir.Lookup(s.other); ok {
			if err := conn.TrySend(frame); err != nil {
				log.Warn().Err(err).Str("module", "app.calls").Str("to", string(s.other)).Msg("synthesized call-end send failed")
			}
		}
	}
}

// CallCount reports the number of in-flight calls.
func (co *Coordinator) CallCount() int {
	co.mu.Lock()
	defer co.mu.Unlock()
	return len(co.calls)
}

// callOfLocked scans for any live call involving id. The table only holds
// a handful of entries at a time, so a scan beats a second index.
func (co *Coordinator) callOfLocked(id string) *domain.Call {
	for _, call := range co.calls {
		if call.Involves(id) {
			return call
		}
	}
	return nil
}

func (co *Coordinator) forwardTo(id core.Identity, env *core.Envelope) {
	conn, ok := co.dir.Lookup(id)
	if !ok {
		log.Warn().Str("module", "app.calls").Str("to", string(id)).Str("type", env.Type).Msg("participant offline, dropping")
		return
	}
	co.forward(conn, id, env)
}

func (co *Coordinator) forward(conn core.SignalConnection, id core.Identity, env *core.Envelope) {
	if err := conn.TrySend(env.Raw); err != nil {
		log.Warn().Err(err).Str("module", "app.calls").Str("to", string(id)).Str("type", env.Type).Msg("forward failed")
	}
}
