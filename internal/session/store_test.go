package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okabe/vidql/internal/domain"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func msg(sessionID string, role domain.Role, content string) domain.Message {
	return domain.Message{
		ID:        ulid.Make().String(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

func TestGetOrCreateIdempotent(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()

	first, created := store.GetOrCreate(ctx, "s1", "video-a")
	assert.True(t, created)
	assert.Equal(t, "video-a", first.VideoRef)

	// Second call returns the existing session; the video reference is
	// not updated once set.
	second, created := store.GetOrCreate(ctx, "s1", "video-b")
	assert.False(t, created)
	assert.Equal(t, "video-a", second.VideoRef)
}

func TestAppendOrdering(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	store.GetOrCreate(ctx, "s1", "v")

	m1 := msg("s1", domain.RoleUser, "first")
	m2 := msg("s1", domain.RoleAssistant, "second")
	require.NoError(t, store.Append(ctx, "s1", m1))
	require.NoError(t, store.Append(ctx, "s1", m2))

	history, err := store.History(ctx, "s1", 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "first", history[0].Content)
	assert.Equal(t, "second", history[1].Content)

	// Earlier entries are unchanged by later appends.
	require.NoError(t, store.Append(ctx, "s1", msg("s1", domain.RoleUser, "third")))
	history, err = store.History(ctx, "s1", 0)
	require.NoError(t, err)
	assert.Equal(t, m1.ID, history[0].ID)
	assert.Equal(t, m2.ID, history[1].ID)
}

func TestAppendUnknownSession(t *testing.T) {
	store := NewStore(nil)
	err := store.Append(context.Background(), "nope", msg("nope", domain.RoleUser, "x"))
	assert.ErrorIs(t, err, ErrUnknownSession)
}

func TestHistoryLimit(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	store.GetOrCreate(ctx, "s1", "v")

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Append(ctx, "s1", msg("s1", domain.RoleUser, fmt.Sprintf("m%d", i))))
	}

	history, err := store.History(ctx, "s1", 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "m3", history[0].Content)
	assert.Equal(t, "m4", history[1].Content)
}

func TestMergeContextLastWriteWins(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	store.GetOrCreate(ctx, "s1", "v")

	require.NoError(t, store.MergeContext(ctx, "s1", domain.AnalysisContext{
		domain.ContextTranscription: "t1",
	}))
	require.NoError(t, store.MergeContext(ctx, "s1", domain.AnalysisContext{
		domain.ContextVisionResults: "v1",
	}))

	// Different keys both present.
	actx, ok := store.Context(ctx, "s1")
	require.True(t, ok)
	assert.Equal(t, "t1", actx[domain.ContextTranscription])
	assert.Equal(t, "v1", actx[domain.ContextVisionResults])

	// Same key keeps only the later value; absent keys untouched.
	require.NoError(t, store.MergeContext(ctx, "s1", domain.AnalysisContext{
		domain.ContextTranscription: "t2",
	}))
	actx, _ = store.Context(ctx, "s1")
	assert.Equal(t, "t2", actx[domain.ContextTranscription])
	assert.Equal(t, "v1", actx[domain.ContextVisionResults])
}

func TestContextSnapshotIsolation(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	store.GetOrCreate(ctx, "s1", "v")
	store.MergeContext(ctx, "s1", domain.AnalysisContext{domain.ContextSummary: "s"})

	snap, _ := store.Context(ctx, "s1")
	snap[domain.ContextSummary] = "mutated"

	fresh, _ := store.Context(ctx, "s1")
	assert.Equal(t, "s", fresh[domain.ContextSummary])
}

func TestLookup(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()

	_, ok := store.Lookup(ctx, "missing")
	assert.False(t, ok)

	store.GetOrCreate(ctx, "s1", "v")
	sess, ok := store.Lookup(ctx, "s1")
	assert.True(t, ok)
	assert.Equal(t, "s1", sess.ID)
}

func TestConcurrentSameSession(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	store.GetOrCreate(ctx, "s1", "v")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			store.Append(ctx, "s1", msg("s1", domain.RoleUser, fmt.Sprintf("m%d", i)))
			store.MergeContext(ctx, "s1", domain.AnalysisContext{domain.ContextSummary: fmt.Sprintf("s%d", i)})
		}(i)
	}
	wg.Wait()

	history, err := store.History(ctx, "s1", 0)
	require.NoError(t, err)
	assert.Len(t, history, 50)

	actx, _ := store.Context(ctx, "s1")
	assert.Contains(t, actx, domain.ContextSummary)
}

func TestConcurrentDistinctSessions(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("s%d", i)
			store.GetOrCreate(ctx, id, "v")
			store.Append(ctx, id, msg(id, domain.RoleUser, "hello"))
		}(i)
	}
	wg.Wait()

	assert.Len(t, store.List(ctx, 0), 20)
}

func TestListOrder(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()

	store.GetOrCreate(ctx, "old", "v")
	store.GetOrCreate(ctx, "new", "v")
	require.NoError(t, store.Append(ctx, "new", msg("new", domain.RoleUser, "x")))
	m := msg("old", domain.RoleUser, "y")
	m.Timestamp = time.Now().Add(time.Second)
	require.NoError(t, store.Append(ctx, "old", m))

	sessions := store.List(ctx, 0)
	require.Len(t, sessions, 2)
	assert.Equal(t, "old", sessions[0].ID)
}
