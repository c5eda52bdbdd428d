package memory

import (
	"context"
	"sync"

	"github.com/secmon-lab/gerri/pkg/domain/interfaces"
	"github.com/secmon-lab/gerri/pkg/domain/model"
	"github.com/secmon-lab/gerri/pkg/domain/types"
)

// DefaultHistoryLimit is the per-session cap on retained turns.
const DefaultHistoryLimit = 10

// sessionEntry holds one session's turns behind its own lock so that
// concurrent appends to the same session serialize while independent
// sessions never contend.
type sessionEntry struct {
	mu    sync.Mutex
	turns []model.ConversationTurn
}

// SessionRepository is a process-scoped, concurrent-safe store of bounded
// per-session conversation history. The outer lock only guards the session
// map; all turn mutation happens under the entry lock.
type SessionRepository struct {
	mu       sync.RWMutex
	limit    int
	sessions map[types.SessionID]*sessionEntry
}

var _ interfaces.SessionRepository = &SessionRepository{}

// Option configures a SessionRepository
type Option func(*SessionRepository)

// WithHistoryLimit overrides the per-session turn cap
func WithHistoryLimit(limit int) Option {
	return func(r *SessionRepository) {
		if limit > 0 {
			r.limit = limit
		}
	}
}

// NewSessionRepository creates an empty session store
func NewSessionRepository(opts ...Option) *SessionRepository {
	r := &SessionRepository{
		limit:    DefaultHistoryLimit,
		sessions: make(map[types.SessionID]*sessionEntry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Limit returns the per-session turn cap
func (r *SessionRepository) Limit() int {
	return r.limit
}

// entry returns the session's entry, creating it lazily on first access.
func (r *SessionRepository) entry(id types.SessionID) *sessionEntry {
	r.mu.RLock()
	e, exists := r.sessions[id]
	r.mu.RUnlock()
	if exists {
		return e
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if e, exists := r.sessions[id]; exists {
		return e
	}
	e = &sessionEntry{}
	r.sessions[id] = e
	return e
}

// History returns the session's turns oldest first. Unknown session IDs
// yield an empty history and create the session entry as a side effect.
func (r *SessionRepository) History(ctx context.Context, id types.SessionID) ([]model.ConversationTurn, error) {
	e := r.entry(id)

	e.mu.Lock()
	defer e.mu.Unlock()

	turns := make([]model.ConversationTurn, len(e.turns))
	copy(turns, e.turns)
	return turns, nil
}

// Append inserts a turn at the tail and evicts from the head until the
// session is back within its cap.
func (r *SessionRepository) Append(ctx context.Context, id types.SessionID, turn model.ConversationTurn) error {
	e := r.entry(id)

	e.mu.Lock()
	defer e.mu.Unlock()

	e.turns = append(e.turns, turn)
	if over := len(e.turns) - r.limit; over > 0 {
		e.turns = append(e.turns[:0:0], e.turns[over:]...)
	}
	return nil
}

// Clear removes all turns for a session
func (r *SessionRepository) Clear(ctx context.Context, id types.SessionID) error {
	e := r.entry(id)

	e.mu.Lock()
	defer e.mu.Unlock()

	e.turns = nil
	return nil
}
