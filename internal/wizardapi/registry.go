package wizardapi

import (
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog/log"

	"MealVibe/internal/utility"
	"MealVibe/internal/wizard"
)

// Registry keeps live wizard sessions in memory. Sessions idle for longer
// than the TTL, or pushed out by newer ones, are dropped together with
// their websocket clients.
type Registry struct {
	sessions *expirable.LRU[string, *wizard.Session]
	hub      *utility.Hub
}

func NewRegistry(size int, ttl time.Duration, hub *utility.Hub) *Registry {
	r := &Registry{hub: hub}
	r.sessions = expirable.NewLRU[string, *wizard.Session](size, r.evicted, ttl)
	return r
}

// Create stores the session returned by build under a fresh id.
func (r *Registry) Create(build func(id string) *wizard.Session) (string, *wizard.Session) {
	id := uuid.NewString()
	s := build(id)
	r.sessions.Add(id, s)
	return id, s
}

// Get returns the session and renews its TTL.
func (r *Registry) Get(id string) (*wizard.Session, bool) {
	s, ok := r.sessions.Get(id)
	if !ok {
		return nil, false
	}
	r.sessions.Add(id, s)
	return s, true
}

// Remove drops a session.
func (r *Registry) Remove(id string) {
	r.sessions.Remove(id)
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	return r.sessions.Len()
}

func (r *Registry) evicted(id string, _ *wizard.Session) {
	log.Debug().Str("session_id", id).Msg("wizard session evicted")
	if r.hub != nil {
		r.hub.Close(id)
	}
}
