package core

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// Fragment is an immutable, timestamped audit record with optional parent
// links. The coordination core writes one fragment per completed task and
// one per delivered message; the memory surface keeps them append-only and
// multiply indexed.
type Fragment struct {
	ID               string    `json:"id"`
	Timestamp        time.Time `json:"timestamp"`
	PlatformID       string    `json:"platform_id"`
	ConversationID   string    `json:"conversation_id"`
	ContentHash      string    `json:"content_hash"`
	RecursiveDepth   int       `json:"recursive_depth"`
	ParentReferences []string  `json:"parent_references,omitempty"`
}

// Clone returns a deep copy safe for independent mutation.
func (f Fragment) Clone() Fragment {
	cp := f
	if f.ParentReferences != nil {
		cp.ParentReferences = append([]string(nil), f.ParentReferences...)
	}
	return cp
}

// FragmentStore is the memory-surface boundary consumed by the coordination
// core. Store appends a fragment; QueryByConversation returns the fragments
// of a conversation ordered ascending by timestamp.
type FragmentStore interface {
	Store(f Fragment) error
	QueryByConversation(conversationID string) []Fragment
}

// HashPayload derives the content hash of an opaque task payload. Payloads
// are hashed over their JSON encoding; values that cannot be marshalled fall
// back to their fmt representation so hashing never fails.
func HashPayload(payload any) string {
	data, err := json.Marshal(payload)
	if err != nil {
		data = fmt.Appendf(nil, "%v", payload)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
