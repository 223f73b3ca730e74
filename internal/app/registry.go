package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Courier/internal/core"
	"github.com/dkeye/Courier/internal/domain"
)

// Registry is the authoritative connection -> session map and the
// presence source of truth. The roster keeps insertion order, which
// also fixes Lookup's first-match semantics for duplicate usernames.
type Registry struct {
	mu       sync.RWMutex
	order    []core.ConnID
	sessions map[core.ConnID]*domain.Session
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[core.ConnID]*domain.Session),
	}
}

// Register binds the connection to a session, overwriting any previous
// one (last-join-wins keeps the original roster position). Returns the
// updated roster snapshot.
func (r *Registry) Register(cid core.ConnID, username string) ([]domain.Session, error) {
	sess, err := domain.NewSession(string(cid), username)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[cid]; !ok {
		r.order = append(r.order, cid)
	}
	r.sessions[cid] = sess
	log.Info().Str("module", "app.registry").Str("cid", string(cid)).Str("username", username).Msg("registered session")
	return r.snapshotLocked(), nil
}

// Unregister removes the session if present and returns it for the
// departure notice. A connection that never joined is a no-op.
func (r *Registry) Unregister(cid core.ConnID) (*domain.Session, []domain.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[cid]
	if !ok {
		return nil, r.snapshotLocked()
	}
	delete(r.sessions, cid)
	for i, id := range r.order {
		if id == cid {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	log.Info().Str("module", "app.registry").Str("cid", string(cid)).Str("username", sess.Username).Msg("unregistered session")
	return sess, r.snapshotLocked()
}

// Lookup resolves a username to a connection, first match in roster
// insertion order when several sessions share the name.
func (r *Registry) Lookup(username string) (core.ConnID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, cid := range r.order {
		if r.sessions[cid].Username == username {
			return cid, true
		}
	}
	return "", false
}

// Resolve returns the session bound to a connection, if any.
func (r *Registry) Resolve(cid core.ConnID) (*domain.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.sessions[cid]
	return sess, ok
}

func (r *Registry) Snapshot() []domain.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshotLocked()
}

func (r *Registry) snapshotLocked() []domain.Session {
	out := make([]domain.Session, 0, len(r.order))
	for _, cid := range r.order {
		out = append(out, *r.sessions[cid])
	}
	return out
}
