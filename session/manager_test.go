package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hivemesh/hivemesh/internal/testutil"
)

var testSecret = []byte("unit-test-secret")

func newManager(t *testing.T) (*Manager, *testutil.ManualScheduler) {
	t.Helper()
	sched := testutil.NewManualScheduler(time.Unix(1000, 0))
	m := NewManager(testSecret, func(o *Options) {
		o.Scheduler = sched
	})
	t.Cleanup(m.Close)
	return m, sched
}

func TestHandoffRoundtrip(t *testing.T) {
	m, _ := newManager(t)
	m.Open("s1", "agent-a")

	token, err := m.InitiateHandoff("s1", "agent-b")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := m.VerifyHandoff(token)
	require.NoError(t, err)
	assert.Equal(t, "s1", claims.SessionID)
	assert.Equal(t, "agent-a", claims.FromAgent)
	assert.Equal(t, "agent-b", claims.ToAgent)

	got, err := m.CompleteHandoff(token)
	require.NoError(t, err)
	assert.Equal(t, "agent-b", got.OwnerAgent)
	assert.Equal(t, 1, got.HandoffCount)
	assert.Zero(t, m.PendingHandoffs())
}

func TestHandoffTokenIsSingleUse(t *testing.T) {
	m, _ := newManager(t)
	m.Open("s1", "agent-a")
	token, err := m.InitiateHandoff("s1", "agent-b")
	require.NoError(t, err)

	_, err = m.CompleteHandoff(token)
	require.NoError(t, err)

	_, err = m.CompleteHandoff(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestInitiateHandoffUnknownSession(t *testing.T) {
	m, _ := newManager(t)
	_, err := m.InitiateHandoff("missing", "agent-b")
	require.ErrorIs(t, err, ErrUnknownSession)
}

func TestVerifyHandoffRejectsTamperedToken(t *testing.T) {
	m, _ := newManager(t)
	m.Open("s1", "agent-a")
	token, err := m.InitiateHandoff("s1", "agent-b")
	require.NoError(t, err)

	tampered := token[:len(token)-2] + "xx"
	_, err = m.VerifyHandoff(tampered)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyHandoffRejectsForeignSignature(t *testing.T) {
	m, _ := newManager(t)
	m.Open("s1", "agent-a")

	other := NewManager([]byte("different-secret"))
	defer other.Close()
	other.Open("s1", "agent-a")
	token, err := other.InitiateHandoff("s1", "agent-b")
	require.NoError(t, err)

	_, err = m.VerifyHandoff(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyHandoffRejectsExpiredToken(t *testing.T) {
	m, sched := newManager(t)
	m.Open("s1", "agent-a")
	token, err := m.InitiateHandoff("s1", "agent-b")
	require.NoError(t, err)

	sched.Advance(DefaultHandoffTTL + time.Second)

	_, err = m.VerifyHandoff(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSweepReapsExpiredHandoffs(t *testing.T) {
	m, sched := newManager(t)
	m.Open("s1", "agent-a")
	_, err := m.InitiateHandoff("s1", "agent-b")
	require.NoError(t, err)
	require.Equal(t, 1, m.PendingHandoffs())

	// Before expiry the sweep keeps the handoff.
	sched.Advance(DefaultSweepInterval)
	assert.Equal(t, 1, m.PendingHandoffs())

	sched.Advance(DefaultHandoffTTL + DefaultSweepInterval)
	assert.Zero(t, m.PendingHandoffs())
	// The session itself survives; only the handoff is reaped.
	_, ok := m.Get("s1")
	assert.True(t, ok)
}

func TestApplyDelta(t *testing.T) {
	m, _ := newManager(t)
	m.Open("s1", "agent-a")

	require.NoError(t, m.ApplyDelta("s1", map[string]any{"step": 1}))
	require.NoError(t, m.ApplyDelta("s1", map[string]any{"step": 2, "topic": "fusion"}))

	got, ok := m.Get("s1")
	require.True(t, ok)
	assert.Equal(t, 2, got.State["step"])
	assert.Equal(t, "fusion", got.State["topic"])

	assert.ErrorIs(t, m.ApplyDelta("missing", nil), ErrUnknownSession)
}

func TestGetReturnsCopy(t *testing.T) {
	m, _ := newManager(t)
	m.Open("s1", "agent-a")
	require.NoError(t, m.ApplyDelta("s1", map[string]any{"k": "v"}))

	got, _ := m.Get("s1")
	got.State["k"] = "mutated"

	again, _ := m.Get("s1")
	assert.Equal(t, "v", again.State["k"])
}
