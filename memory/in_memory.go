package memory

import (
	"fmt"
	"sort"
	"sync"

	"github.com/hivemesh/hivemesh/core"
)

var (
	// ErrDuplicateID is returned when storing a fragment whose id already
	// exists; the store is append-only and never overwrites.
	ErrDuplicateID = fmt.Errorf("fragment id already stored")

	// ErrMissingID is returned when storing a fragment without an id.
	ErrMissingID = fmt.Errorf("fragment id required")
)

// InMemoryStore is a process-local, append-only FragmentStore keeping every
// fragment in a map plus secondary indexes by platform, conversation and
// content hash. Fragments are copied on store and retrieval to avoid
// accidental external mutation.
//
// Concurrency: protected by RWMutex. Queries return fragments ordered
// ascending by timestamp regardless of insertion order. Suitable for a
// single coordination process; swap for a durable implementation when audit
// trails must survive restarts.
type InMemoryStore struct {
	mu             sync.RWMutex
	fragments      map[string]core.Fragment
	byPlatform     map[string][]string
	byConversation map[string][]string
	byContentHash  map[string][]string
	order          []string
}

// NewInMemoryStore creates an empty in-memory fragment store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		fragments:      make(map[string]core.Fragment),
		byPlatform:     make(map[string][]string),
		byConversation: make(map[string][]string),
		byContentHash:  make(map[string][]string),
	}
}

// Store appends a fragment and updates all secondary indexes. Fragments are
// immutable once stored; a duplicate id is rejected with ErrDuplicateID.
func (s *InMemoryStore) Store(f core.Fragment) error {
	if f.ID == "" {
		return ErrMissingID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.fragments[f.ID]; exists {
		return ErrDuplicateID
	}
	s.fragments[f.ID] = f.Clone()
	s.order = append(s.order, f.ID)
	s.byPlatform[f.PlatformID] = append(s.byPlatform[f.PlatformID], f.ID)
	s.byConversation[f.ConversationID] = append(s.byConversation[f.ConversationID], f.ID)
	s.byContentHash[f.ContentHash] = append(s.byContentHash[f.ContentHash], f.ID)
	return nil
}

// Get returns the fragment and whether it exists.
func (s *InMemoryStore) Get(id string) (core.Fragment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.fragments[id]
	if !ok {
		return core.Fragment{}, false
	}
	return f.Clone(), true
}

// QueryByConversation returns the fragments of a conversation ordered
// ascending by timestamp regardless of insertion order.
func (s *InMemoryStore) QueryByConversation(conversationID string) []core.Fragment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collectLocked(s.byConversation[conversationID])
}

// QueryByPlatform returns the fragments of a platform ordered ascending by
// timestamp.
func (s *InMemoryStore) QueryByPlatform(platformID string) []core.Fragment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collectLocked(s.byPlatform[platformID])
}

// QueryByContentHash returns the fragments sharing a content hash ordered
// ascending by timestamp.
func (s *InMemoryStore) QueryByContentHash(contentHash string) []core.Fragment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collectLocked(s.byContentHash[contentHash])
}

// All returns every fragment ordered ascending by timestamp.
func (s *InMemoryStore) All() []core.Fragment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collectLocked(s.order)
}

// Len returns the number of stored fragments.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.fragments)
}

// collectLocked materializes ids into timestamp-sorted fragment copies;
// caller must hold at least the read lock.
func (s *InMemoryStore) collectLocked(ids []string) []core.Fragment {
	out := make([]core.Fragment, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.fragments[id].Clone())
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}
