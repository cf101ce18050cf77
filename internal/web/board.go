package web

import (
	"context"
	"sync"
	"time"

	"github.com/abduss/bucketlist/internal/auth"
	"github.com/abduss/bucketlist/internal/item"
	"github.com/google/uuid"
)

// lister is the part of the item service a board reads from.
type lister interface {
	List(ctx context.Context, ownerID uuid.UUID) ([]item.Item, error)
}

// Board is the item snapshot one browser session is looking at.
//
// Refresh replaces the snapshot wholesale. Concurrent refreshes are not
// sequenced: whichever settles last is what the page shows. A failed
// refresh leaves the board empty.
type Board struct {
	owner uuid.UUID

	mu      sync.RWMutex
	items   []item.Item
	lastErr error
}

func newBoard(owner uuid.UUID) *Board {
	return &Board{owner: owner}
}

// Refresh reloads the owner's items.
func (b *Board) Refresh(ctx context.Context, src lister) error {
	items, err := src.List(ctx, b.owner)

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.items = nil
		b.lastErr = err
		return err
	}
	b.items = items
	b.lastErr = nil
	return nil
}

// Items returns a copy of the current snapshot.
func (b *Board) Items() []item.Item {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]item.Item, len(b.items))
	copy(out, b.items)
	return out
}

// Err is the error of the last refresh, if it failed.
func (b *Board) Err() error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastErr
}

type session struct {
	board     *Board
	expiresAt time.Time
	once      sync.Once
}

// Sessions maps signed-in sessions to their boards.
type Sessions struct {
	items   lister
	nowFunc func() time.Time

	mu       sync.Mutex
	sessions map[uuid.UUID]*session
}

// NewSessions builds an empty registry loading boards from items.
func NewSessions(items lister) *Sessions {
	return &Sessions{
		items:    items,
		nowFunc:  time.Now,
		sessions: make(map[uuid.UUID]*session),
	}
}

// Attach returns the board of the session, creating it on first sight.
// The initial load runs exactly once per session, no matter how many
// requests race to attach; loaded reports whether this call ran it.
func (s *Sessions) Attach(ctx context.Context, claims auth.UserClaims) (board *Board, loaded bool) {
	s.mu.Lock()
	s.pruneLocked()
	sess, ok := s.sessions[claims.SessionID]
	if !ok {
		sess = &session{board: newBoard(claims.UserID), expiresAt: claims.ExpiresAt}
		s.sessions[claims.SessionID] = sess
	}
	s.mu.Unlock()

	sess.once.Do(func() {
		_ = sess.board.Refresh(ctx, s.items)
		loaded = true
	})
	return sess.board, loaded
}

// Detach forgets the session's board.
func (s *Sessions) Detach(sessionID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

// Len reports the number of attached sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Sessions) pruneLocked() {
	now := s.nowFunc()
	for id, sess := range s.sessions {
		if !sess.expiresAt.IsZero() && now.After(sess.expiresAt) {
			delete(s.sessions, id)
		}
	}
}
