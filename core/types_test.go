package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompositeKey(t *testing.T) {
	assert.Equal(t, "o1:n1", CompositeKey("o1", "n1"))
	assert.Equal(t, "o1:n1", Node{ID: "n1", OrgID: "o1"}.CompositeKey())
}

func TestOrgOf(t *testing.T) {
	tests := []struct {
		composite string
		want      string
	}{
		{"o1:n1", "o1"},
		{"o1:n1:extra", "o1"},
		{"no-separator", "no-separator"},
		{":n1", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, OrgOf(tt.composite), tt.composite)
	}
}

func TestTaskCloneIsIndependent(t *testing.T) {
	task := Task{ID: "t1", TargetNodes: []string{"o1:n1"}}
	cp := task.Clone()
	cp.TargetNodes[0] = "o2:n2"
	assert.Equal(t, "o1:n1", task.TargetNodes[0])
}

func TestHashPayloadIsStable(t *testing.T) {
	a := HashPayload(map[string]any{"k": "v"})
	b := HashPayload(map[string]any{"k": "v"})
	c := HashPayload(map[string]any{"k": "other"})

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}

func TestHashPayloadUnmarshalableFallback(t *testing.T) {
	// Channels cannot be JSON encoded; hashing must still produce a digest.
	assert.Len(t, HashPayload(make(chan int)), 64)
}
