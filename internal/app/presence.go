package app

import (
	"github.com/rs/zerolog/log"

	"github.com/kryptochat/relay/internal/core"
)

// Presence pushes the full online-user set to every bound connection
// after each directory change. No diffing: the complete set every time,
// which trades bandwidth for immunity to partial-update ordering bugs.
type Presence struct {
	dir *Directory
}

func NewPresence(dir *Directory) *Presence {
	return &Presence{dir: dir}
}

// Announce snapshots the directory and fans the set out. Sends are
// best-effort; a failed send is logged and never retried. The snapshot is
// taken after the triggering bind/unbind completed, so it is never staler
// than that mutation.
func (p *Presence) Announce() {
	frame, err := core.OnlineUsers(p.dir.Snapshot())
	if err != nil {
		log.Error().Err(err).Str("module", "app.presence").Msg("marshal online_users")
		return
	}
	for _, e := range p.dir.entries() {
		if err := e.Conn.TrySend(frame); err != nil {
			log.Warn().Err(err).Str("module", "app.presence").Str("identity", string(e.Identity)).Msg("presence send failed")
		}
	}
}
