package interfaces

import (
	"context"

	"github.com/secmon-lab/gerri/pkg/domain/model"
	"github.com/secmon-lab/gerri/pkg/domain/types"
)

// SessionRepository defines per-session bounded conversation history.
// Implementations must be safe for concurrent use: appends to the same
// session serialize, independent sessions never block each other.
type SessionRepository interface {
	// History returns the session's turns, oldest first. An unknown session
	// ID yields an empty history and lazily creates the session entry.
	History(ctx context.Context, id types.SessionID) ([]model.ConversationTurn, error)

	// Append inserts a turn at the tail, evicting from the head when the
	// history cap is exceeded.
	Append(ctx context.Context, id types.SessionID, turn model.ConversationTurn) error

	// Clear removes all turns for a session.
	Clear(ctx context.Context, id types.SessionID) error
}
