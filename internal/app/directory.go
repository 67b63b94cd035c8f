// Package app holds the relay core: the identity directory, presence
// broadcast, envelope routing, and the call coordinator.
package app

import (
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/kryptochat/relay/internal/core"
)

// Directory is the live identity→connection binding table, the ground
// truth for who is online. One lock guards the whole table; operations
// are cheap map lookups so fine-grained locking buys nothing.
type Directory struct {
	mu       sync.RWMutex
	bindings map[core.Identity]core.SignalConnection
}

func NewDirectory() *Directory {
	return &Directory{
		bindings: make(map[core.Identity]core.SignalConnection),
	}
}

// Bind points id at conn, replacing any existing binding (last register
// wins). The previous connection, if any, is returned so the caller can
// decide what to do with it; the directory itself never closes it, it
// just stops routing there.
func (d *Directory) Bind(id core.Identity, conn core.SignalConnection) core.SignalConnection {
	d.mu.Lock()
	defer d.mu.Unlock()
	prev := d.bindings[id]
	d.bindings[id] = conn
	log.Info().Str("module", "app.directory").Str("identity", string(id)).Bool("replaced", prev != nil).Msg("bound identity")
	return prev
}

func (d *Directory) Lookup(id core.Identity) (core.SignalConnection, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	conn, ok := d.bindings[id]
	return conn, ok
}

// Unbind removes the binding only if the table still points at conn. A
// stale connection closing after a fresher registration must not knock
// the new binding out.
func (d *Directory) Unbind(id core.Identity, conn core.SignalConnection) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	current, ok := d.bindings[id]
	if !ok || current != conn {
		return false
	}
	delete(d.bindings, id)
	log.Info().Str("module", "app.directory").Str("identity", string(id)).Msg("unbound identity")
	return true
}

// Snapshot returns all currently bound identities, sorted.
func (d *Directory) Snapshot() []core.Identity {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]core.Identity, 0, len(d.bindings))
	for id := range d.bindings {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

type dirEntry struct {
	Identity core.Identity
	Conn     core.SignalConnection
}

// entries returns a copy of the binding table for fan-out without holding
// the lock across sends.
func (d *Directory) entries() []dirEntry {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]dirEntry, 0, len(d.bindings))
	for id, conn := range d.bindings {
		out = append(out, dirEntry{Identity: id, Conn: conn})
	}
	return out
}
