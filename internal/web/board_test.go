package web

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/abduss/bucketlist/internal/auth"
	"github.com/abduss/bucketlist/internal/item"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedLister hands out queued results; a call blocks until its gate closes.
type scriptedLister struct {
	mu      sync.Mutex
	calls   atomic.Int32
	results []listResult
}

type listResult struct {
	items []item.Item
	err   error
	gate  chan struct{}
}

func (s *scriptedLister) List(ctx context.Context, ownerID uuid.UUID) ([]item.Item, error) {
	n := int(s.calls.Add(1)) - 1
	s.mu.Lock()
	res := s.results[n%len(s.results)]
	s.mu.Unlock()
	if res.gate != nil {
		<-res.gate
	}
	return res.items, res.err
}

func titled(titles ...string) []item.Item {
	out := make([]item.Item, 0, len(titles))
	for _, title := range titles {
		out = append(out, item.Item{ID: uuid.New(), Title: title, Description: title})
	}
	return out
}

func titles(items []item.Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Title)
	}
	return out
}

func TestBoardRefreshReplacesSnapshot(t *testing.T) {
	src := &scriptedLister{results: []listResult{
		{items: titled("a", "b")},
		{items: titled("c")},
	}}
	board := newBoard(uuid.New())

	require.NoError(t, board.Refresh(context.Background(), src))
	assert.Equal(t, []string{"a", "b"}, titles(board.Items()))

	require.NoError(t, board.Refresh(context.Background(), src))
	assert.Equal(t, []string{"c"}, titles(board.Items()))
}

func TestBoardRefreshFailureEmptiesView(t *testing.T) {
	src := &scriptedLister{results: []listResult{
		{items: titled("a", "b")},
		{err: errors.New("list failed")},
	}}
	board := newBoard(uuid.New())

	require.NoError(t, board.Refresh(context.Background(), src))
	require.Len(t, board.Items(), 2)

	require.Error(t, board.Refresh(context.Background(), src))
	assert.Empty(t, board.Items())
	assert.Error(t, board.Err())
}

func TestBoardItemsIsACopy(t *testing.T) {
	src := &scriptedLister{results: []listResult{{items: titled("a")}}}
	board := newBoard(uuid.New())
	require.NoError(t, board.Refresh(context.Background(), src))

	items := board.Items()
	items[0].Title = "changed"
	assert.Equal(t, "a", board.Items()[0].Title)
}

func TestBoardConcurrentRefreshLastSettledWins(t *testing.T) {
	slow := make(chan struct{})
	fast := make(chan struct{})
	src := &scriptedLister{results: []listResult{
		{items: titled("first"), gate: slow},
		{items: titled("second"), gate: fast},
	}}
	board := newBoard(uuid.New())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = board.Refresh(context.Background(), src)
	}()
	require.Eventually(t, func() bool { return src.calls.Load() == 1 }, time.Second, time.Millisecond)

	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = board.Refresh(context.Background(), src)
	}()
	require.Eventually(t, func() bool { return src.calls.Load() == 2 }, time.Second, time.Millisecond)

	// The refresh issued second settles first.
	close(fast)
	require.Eventually(t, func() bool {
		return len(board.Items()) == 1 && board.Items()[0].Title == "second"
	}, time.Second, time.Millisecond)

	close(slow)
	wg.Wait()
	assert.Equal(t, []string{"first"}, titles(board.Items()))
}

func TestSessionsInitialLoadRunsOnce(t *testing.T) {
	src := &scriptedLister{results: []listResult{{items: titled("a")}}}
	sessions := NewSessions(src)
	claims := auth.UserClaims{UserID: uuid.New(), SessionID: uuid.New(), ExpiresAt: time.Now().Add(time.Hour)}

	var (
		wg      sync.WaitGroup
		loaders atomic.Int32
	)
	boards := make([]*Board, 8)
	for i := range boards {
		wg.Add(1)
		go func() {
			defer wg.Done()
			board, loaded := sessions.Attach(context.Background(), claims)
			if loaded {
				loaders.Add(1)
			}
			boards[i] = board
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), src.calls.Load())
	assert.Equal(t, int32(1), loaders.Load())
	for _, b := range boards {
		assert.Same(t, boards[0], b)
		assert.Equal(t, []string{"a"}, titles(b.Items()))
	}
}

func TestSessionsReloadAfterDetach(t *testing.T) {
	src := &scriptedLister{results: []listResult{{items: titled("a")}}}
	sessions := NewSessions(src)
	claims := auth.UserClaims{UserID: uuid.New(), SessionID: uuid.New()}

	first, loaded := sessions.Attach(context.Background(), claims)
	require.True(t, loaded)
	_, loaded = sessions.Attach(context.Background(), claims)
	assert.False(t, loaded)

	sessions.Detach(claims.SessionID)
	assert.Equal(t, 0, sessions.Len())

	second, loaded := sessions.Attach(context.Background(), claims)
	assert.True(t, loaded)
	assert.NotSame(t, first, second)
	assert.Equal(t, int32(2), src.calls.Load())
}

func TestSessionsPruneExpired(t *testing.T) {
	src := &scriptedLister{results: []listResult{{}}}
	sessions := NewSessions(src)
	now := time.Now()
	sessions.nowFunc = func() time.Time { return now }

	expired := auth.UserClaims{UserID: uuid.New(), SessionID: uuid.New(), ExpiresAt: now.Add(-time.Minute)}
	live := auth.UserClaims{UserID: uuid.New(), SessionID: uuid.New(), ExpiresAt: now.Add(time.Hour)}
	sessions.Attach(context.Background(), expired)
	sessions.Attach(context.Background(), live)

	assert.Equal(t, 1, sessions.Len())
}
