package memory

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hivemesh/hivemesh/core"
)

func fragmentAt(id, conversationID string, ts time.Time) core.Fragment {
	return core.Fragment{
		ID:             id,
		Timestamp:      ts,
		PlatformID:     "platform-1",
		ConversationID: conversationID,
		ContentHash:    core.HashPayload(id),
	}
}

func TestStoreAndGet(t *testing.T) {
	s := NewInMemoryStore()
	f := fragmentAt("f1", "c1", time.Unix(100, 0))
	f.ParentReferences = []string{"parent-1"}

	require.NoError(t, s.Store(f))

	got, ok := s.Get("f1")
	require.True(t, ok)
	assert.Equal(t, f.ContentHash, got.ContentHash)
	assert.Equal(t, []string{"parent-1"}, got.ParentReferences)

	// Stored fragments are immutable; the returned copy can be mutated freely.
	got.ParentReferences[0] = "mutated"
	again, _ := s.Get("f1")
	assert.Equal(t, "parent-1", again.ParentReferences[0])
}

func TestStoreRejectsDuplicateAndMissingID(t *testing.T) {
	s := NewInMemoryStore()
	require.NoError(t, s.Store(fragmentAt("f1", "c1", time.Unix(100, 0))))

	assert.ErrorIs(t, s.Store(fragmentAt("f1", "c1", time.Unix(200, 0))), ErrDuplicateID)
	assert.ErrorIs(t, s.Store(core.Fragment{}), ErrMissingID)
	assert.Equal(t, 1, s.Len())
}

func TestQueryByConversationSortsByTimestamp(t *testing.T) {
	s := NewInMemoryStore()
	// Inserted deliberately out of timestamp order.
	require.NoError(t, s.Store(fragmentAt("f3", "c1", time.Unix(300, 0))))
	require.NoError(t, s.Store(fragmentAt("f1", "c1", time.Unix(100, 0))))
	require.NoError(t, s.Store(fragmentAt("f2", "c1", time.Unix(200, 0))))
	require.NoError(t, s.Store(fragmentAt("other", "c2", time.Unix(50, 0))))

	got := s.QueryByConversation("c1")
	require.Len(t, got, 3)
	assert.Equal(t, []string{"f1", "f2", "f3"}, []string{got[0].ID, got[1].ID, got[2].ID})
}

func TestQueryByConversationUnknownIsEmpty(t *testing.T) {
	s := NewInMemoryStore()
	assert.Empty(t, s.QueryByConversation("missing"))
}

func TestQueryByPlatformAndContentHash(t *testing.T) {
	s := NewInMemoryStore()
	a := fragmentAt("f1", "c1", time.Unix(100, 0))
	b := fragmentAt("f2", "c2", time.Unix(200, 0))
	b.ContentHash = a.ContentHash // same payload stored twice
	require.NoError(t, s.Store(a))
	require.NoError(t, s.Store(b))

	assert.Len(t, s.QueryByPlatform("platform-1"), 2)
	assert.Empty(t, s.QueryByPlatform("platform-2"))
	assert.Len(t, s.QueryByContentHash(a.ContentHash), 2)
}

func TestAllIsTimestampOrdered(t *testing.T) {
	s := NewInMemoryStore()
	require.NoError(t, s.Store(fragmentAt("late", "c1", time.Unix(900, 0))))
	require.NoError(t, s.Store(fragmentAt("early", "c2", time.Unix(10, 0))))

	all := s.All()
	require.Len(t, all, 2)
	assert.Equal(t, "early", all[0].ID)
}

func TestConcurrentStores(t *testing.T) {
	s := NewInMemoryStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = s.Store(fragmentAt(fmt.Sprintf("f%d", i), "c1", time.Unix(int64(i), 0)))
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 50, s.Len())
	assert.Len(t, s.QueryByConversation("c1"), 50)
}
