package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hivemesh/hivemesh/core"
	"github.com/hivemesh/hivemesh/logging"
)

// DefaultHandoffTTL bounds how long a handoff token stays redeemable.
const DefaultHandoffTTL = 5 * time.Minute

// DefaultSweepInterval is the period of the expired-handoff sweep.
const DefaultSweepInterval = 30 * time.Second

var (
	// ErrUnknownSession is returned when initiating a handoff for a session
	// id that was never opened, or verifying a token whose session has been
	// closed since issuance.
	ErrUnknownSession = errors.New("unknown session")

	// ErrInvalidToken is returned for malformed, tampered or expired handoff
	// tokens.
	ErrInvalidToken = errors.New("invalid handoff token")
)

// Session is a cross-organization conversation that can be handed between
// agents.
type Session struct {
	ID           string         `json:"id"`
	OwnerAgent   string         `json:"owner_agent"`
	State        map[string]any `json:"state,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	LastHandoff  time.Time      `json:"last_handoff,omitzero"`
	HandoffCount int            `json:"handoff_count"`
}

// Clone returns a deep copy safe for independent mutation.
func (s Session) Clone() Session {
	cp := s
	if s.State != nil {
		cp.State = make(map[string]any, len(s.State))
		for k, v := range s.State {
			cp.State[k] = v
		}
	}
	return cp
}

// HandoffClaims is the JWT payload of a handoff token.
type HandoffClaims struct {
	SessionID string `json:"session_id"`
	FromAgent string `json:"from_agent"`
	ToAgent   string `json:"to_agent"`
	jwt.RegisteredClaims
}

// Options configures a Manager instance.
type Options struct {
	// Scheduler drives the periodic expired-handoff sweep and supplies
	// issuance timestamps. Defaults to the wall-clock scheduler.
	Scheduler core.Scheduler

	// Logger defaults to NoOpLogger if nil.
	Logger logging.Logger

	// HandoffTTL is the token lifetime.
	HandoffTTL time.Duration

	// SweepInterval is the reap period for expired pending handoffs.
	SweepInterval time.Duration
}

// pendingHandoff tracks an issued, not-yet-redeemed token.
type pendingHandoff struct {
	tokenID   string
	sessionID string
	toAgent   string
	expiresAt time.Time
}

// Manager owns sessions and their handoff tokens. Tokens are HS256 signed
// with the manager's secret; verification is stateful — the token must match
// a pending handoff, so a token can be redeemed at most once.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	pending  map[string]*pendingHandoff

	secret      []byte
	sched       core.Scheduler
	logger      logging.Logger
	ttl         time.Duration
	cancelSweep core.CancelFunc
}

// NewManager creates a Manager signing handoff tokens with secret.
func NewManager(secret []byte, optFns ...func(o *Options)) *Manager {
	opts := Options{
		Scheduler:     core.NewScheduler(),
		Logger:        logging.NoOpLogger{},
		HandoffTTL:    DefaultHandoffTTL,
		SweepInterval: DefaultSweepInterval,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	m := &Manager{
		sessions: make(map[string]*Session),
		pending:  make(map[string]*pendingHandoff),
		secret:   secret,
		sched:    opts.Scheduler,
		logger:   opts.Logger,
		ttl:      opts.HandoffTTL,
	}
	m.cancelSweep = m.sched.Every(opts.SweepInterval, m.sweep)
	return m
}

// Open creates (or overwrites) a session owned by ownerAgent and returns a
// snapshot.
func (m *Manager) Open(sessionID, ownerAgent string) Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := &Session{
		ID:         sessionID,
		OwnerAgent: ownerAgent,
		State:      make(map[string]any),
		CreatedAt:  m.sched.Now(),
	}
	m.sessions[sessionID] = s
	return s.Clone()
}

// Get returns a snapshot of the session and whether it exists.
func (m *Manager) Get(sessionID string) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return Session{}, false
	}
	return s.Clone(), true
}

// ApplyDelta merges a key/value delta into the session state.
func (m *Manager) ApplyDelta(sessionID string, delta map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSession, sessionID)
	}
	if s.State == nil {
		s.State = make(map[string]any, len(delta))
	}
	for k, v := range delta {
		s.State[k] = v
	}
	return nil
}

// InitiateHandoff issues a signed handoff token moving the session from its
// current owner to toAgent. An unknown session raises immediately.
func (m *Manager) InitiateHandoff(sessionID, toAgent string) (string, error) {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	if !ok {
		m.mu.Unlock()
		return "", fmt.Errorf("%w: %q", ErrUnknownSession, sessionID)
	}
	fromAgent := s.OwnerAgent
	m.mu.Unlock()

	now := m.sched.Now()
	tokenID := core.NewID()
	claims := HandoffClaims{
		SessionID: sessionID,
		FromAgent: fromAgent,
		ToAgent:   toAgent,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID,
			Subject:   sessionID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign handoff token: %w", err)
	}

	m.mu.Lock()
	m.pending[tokenID] = &pendingHandoff{
		tokenID:   tokenID,
		sessionID: sessionID,
		toAgent:   toAgent,
		expiresAt: now.Add(m.ttl),
	}
	m.mu.Unlock()

	m.logger.Debug("handoff initiated", "session_id", sessionID, "from", fromAgent, "to", toAgent)
	return signed, nil
}

// VerifyHandoff validates a handoff token and returns its claims without
// redeeming it. Bad signature, wrong algorithm, expiry and unknown or
// already-redeemed handoffs all raise immediately.
func (m *Manager) VerifyHandoff(tokenString string) (*HandoffClaims, error) {
	claims := &HandoffClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.sched.Now))
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.pending[claims.ID]; !ok {
		return nil, fmt.Errorf("%w: handoff not pending", ErrInvalidToken)
	}
	if _, ok := m.sessions[claims.SessionID]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSession, claims.SessionID)
	}
	return claims, nil
}

// CompleteHandoff redeems the token: the session's ownership moves to the
// token's target agent and the pending handoff is consumed.
func (m *Manager) CompleteHandoff(tokenString string) (Session, error) {
	claims, err := m.VerifyHandoff(tokenString)
	if err != nil {
		return Session{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[claims.SessionID]
	if !ok {
		return Session{}, fmt.Errorf("%w: %q", ErrUnknownSession, claims.SessionID)
	}
	delete(m.pending, claims.ID)
	s.OwnerAgent = claims.ToAgent
	s.LastHandoff = m.sched.Now()
	s.HandoffCount++

	m.logger.Info("handoff completed", "session_id", s.ID, "owner", s.OwnerAgent)
	return s.Clone(), nil
}

// Close stops the sweep timer.
func (m *Manager) Close() {
	if m.cancelSweep != nil {
		m.cancelSweep()
	}
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// PendingHandoffs returns the number of issued, unredeemed handoff tokens.
func (m *Manager) PendingHandoffs() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// sweep drops pending handoffs whose tokens have expired. Sessions themselves
// are never reaped.
func (m *Manager) sweep() {
	now := m.sched.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, p := range m.pending {
		if now.After(p.expiresAt) {
			delete(m.pending, id)
			m.logger.Debug("expired handoff reaped", "session_id", p.sessionID)
		}
	}
}
