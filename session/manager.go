package session

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/kadrohq/kadro-go/credentials"
	"github.com/kadrohq/kadro-go/token"
	"github.com/kadrohq/kadro-go/transport"
)

const (
	loginPath   = "/auth/login"
	logoutPath  = "/auth/logout"
	refreshPath = "/auth/refresh-token"
)

// API is the backend surface the state machine drives. transport.Client
// satisfies it.
type API interface {
	Do(ctx context.Context, method, path string, body, out any, options ...transport.RequestOption) error
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authPayload struct {
	Data struct {
		AccessToken string `json:"accessToken"`
		User        *User  `json:"user"`
	} `json:"data"`
}

// Manager owns the Session projection and the current user's profile, and
// publishes every state change to its subscribers. Operations cross the
// network through the API and are safe for concurrent use; the token they
// produce reaches the credential store through the bridge, not directly.
type Manager struct {
	api     API
	storage credentials.Storage
	log     zerolog.Logger

	mu    sync.Mutex
	state Session
	user  *User

	initOnce sync.Once

	subMu   sync.Mutex
	subs    map[int]func(Session)
	nextSub int
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the manager's logger.
func WithLogger(log zerolog.Logger) ManagerOption {
	return func(m *Manager) {
		m.log = log
	}
}

// NewManager creates a session manager. A profile persisted by a previous
// process is restored immediately for reload continuity; whether the session
// is still live is only known after the first Refresh.
func NewManager(api API, storage credentials.Storage, options ...ManagerOption) (*Manager, error) {
	if api == nil {
		return nil, errors.New("[NewManager] api is required")
	}
	if storage == nil {
		return nil, errors.New("[NewManager] storage is required")
	}

	m := &Manager{
		api:     api,
		storage: storage,
		log:     zerolog.Nop(),
		subs:    make(map[int]func(Session)),
	}
	for _, opt := range options {
		opt(m)
	}

	if raw, ok, err := storage.Read(UserKey); err != nil {
		m.log.Warn().Err(err).Msg("session: failed to read persisted profile")
	} else if ok {
		var u User
		if err := json.Unmarshal([]byte(raw), &u); err != nil {
			m.log.Warn().Err(err).Msg("session: discarding unreadable persisted profile")
		} else {
			m.user = &u
		}
	}

	return m, nil
}

// Snapshot returns the current session value.
func (m *Manager) Snapshot() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// CurrentUser returns a copy of the authenticated user's profile, or nil.
func (m *Manager) CurrentUser() *User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return nil
	}
	u := *m.user
	return &u
}

// Subscribe registers fn to be called on every session change and returns an
// unsubscribe func. fn is not called with the current value at registration.
func (m *Manager) Subscribe(fn func(Session)) func() {
	m.subMu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.subMu.Unlock()

	return func() {
		m.subMu.Lock()
		delete(m.subs, id)
		m.subMu.Unlock()
	}
}

// update applies fn to the state under the lock, then publishes the new
// value to subscribers outside it.
func (m *Manager) update(fn func(*Session)) {
	m.mu.Lock()
	fn(&m.state)
	snapshot := m.state
	m.mu.Unlock()

	m.subMu.Lock()
	subs := make([]func(Session), 0, len(m.subs))
	for _, cb := range m.subs {
		subs = append(subs, cb)
	}
	m.subMu.Unlock()

	for _, cb := range subs {
		cb(snapshot)
	}
}

// Login authenticates with the backend. On success the session becomes
// authenticated and the profile is persisted; on failure the session settles
// to a failed, initialized state carrying the failure. Either way the client
// has now completed an attempt to determine session status.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	m.update(func(s *Session) {
		s.Loading = true
		s.Err = nil
	})

	var payload authPayload
	err := m.api.Do(ctx, http.MethodPost, loginPath, loginRequest{Email: email, Password: password}, &payload, transport.WithoutRetry())
	if err != nil {
		m.update(func(s *Session) {
			s.IsAuthenticated = false
			s.AccessToken = ""
			s.Err = err
			s.Initialized = true
			s.Loading = false
		})
		return errors.Wrap(err, "[Manager.Login]")
	}

	m.setAuthenticated(payload)
	m.log.Info().Str("email", email).Msg("session: login succeeded")
	return nil
}

// Logout tears the session down. The backend call is best-effort: a network
// failure is logged and never blocks local cleanup.
func (m *Manager) Logout(ctx context.Context) error {
	m.update(func(s *Session) {
		s.Loading = true
	})

	if err := m.api.Do(ctx, http.MethodPost, logoutPath, nil, nil, transport.WithoutRetry()); err != nil {
		m.log.Warn().Err(err).Msg("session: backend logout failed, clearing locally")
	}

	m.setUser(nil)
	m.update(func(s *Session) {
		s.IsAuthenticated = false
		s.AccessToken = ""
		s.Initialized = true
		s.Loading = false
	})
	m.log.Info().Msg("session: logged out")
	return nil
}

// Refresh asks the backend to rotate the access token using the HttpOnly
// refresh cookie. Success with a token re-authenticates the session; success
// without one, or any failure, settles it to not-authenticated. Both
// outcomes count as having determined session status.
func (m *Manager) Refresh(ctx context.Context) error {
	m.update(func(s *Session) {
		s.Loading = true
	})

	var payload authPayload
	err := m.api.Do(ctx, http.MethodPost, refreshPath, nil, &payload, transport.WithoutRetry())
	if err != nil || payload.Data.AccessToken == "" {
		m.update(func(s *Session) {
			s.IsAuthenticated = false
			s.AccessToken = ""
			s.Initialized = true
			s.Loading = false
		})
		if err != nil {
			return errors.Wrap(err, "[Manager.Refresh]")
		}
		return errors.WithStack(transport.ErrNoRefreshedToken)
	}

	m.setAuthenticated(payload)
	return nil
}

// EnsureInitialized resolves "am I logged in after a reload" by running one
// Refresh if no attempt has been made yet. Protected-area entry points call
// it before trusting a not-authenticated session.
func (m *Manager) EnsureInitialized(ctx context.Context) error {
	if m.Snapshot().Initialized {
		return nil
	}
	var err error
	m.initOnce.Do(func() {
		err = m.Refresh(ctx)
	})
	return err
}

// Expire tears the session down locally without a backend call. It is wired
// as the transport's session-expired handler: by the time it runs the
// credential store is already cleared, so only the projection and the
// profile need to follow.
func (m *Manager) Expire(cause error) {
	m.setUser(nil)
	m.update(func(s *Session) {
		s.IsAuthenticated = false
		s.AccessToken = ""
		s.Err = cause
		s.Initialized = true
		s.Loading = false
	})
}

// ClearError clears the recorded failure and nothing else.
func (m *Manager) ClearError() {
	m.update(func(s *Session) {
		s.Err = nil
	})
}

// UpdateUser merges a partial profile update into the current user and
// persists the result.
func (m *Manager) UpdateUser(patch UserPatch) error {
	m.mu.Lock()
	if m.user == nil {
		m.mu.Unlock()
		return errors.New("[Manager.UpdateUser] no current user")
	}
	u := *m.user
	m.mu.Unlock()

	if patch.Email != nil {
		u.Email = *patch.Email
	}
	if patch.FirstName != nil {
		u.FirstName = *patch.FirstName
	}
	if patch.LastName != nil {
		u.LastName = *patch.LastName
	}
	if patch.Role != nil {
		u.Role = *patch.Role
	}
	if patch.AvatarURL != nil {
		u.AvatarURL = *patch.AvatarURL
	}

	m.setUser(&u)
	return nil
}

// setAuthenticated applies a successful login/refresh payload.
func (m *Manager) setAuthenticated(payload authPayload) {
	if payload.Data.User != nil {
		m.setUser(payload.Data.User)
	}
	m.update(func(s *Session) {
		s.IsAuthenticated = true
		s.AccessToken = payload.Data.AccessToken
		s.Err = nil
		s.Initialized = true
		s.Loading = false
	})

	if exp, ok := token.ExpiresAt(payload.Data.AccessToken); ok {
		ev := m.log.Debug().Time("expires_at", exp)
		if sub, ok := token.Subject(payload.Data.AccessToken); ok {
			ev = ev.Str("subject", sub)
		}
		ev.Msg("session: access token horizon")
	}
}

// setUser swaps the profile and mirrors it to durable storage; nil clears
// both.
func (m *Manager) setUser(u *User) {
	m.mu.Lock()
	m.user = u
	m.mu.Unlock()

	if u == nil {
		if err := m.storage.Delete(UserKey); err != nil {
			m.log.Warn().Err(err).Msg("session: failed to remove persisted profile")
		}
		return
	}

	raw, err := json.Marshal(u)
	if err != nil {
		m.log.Warn().Err(err).Msg("session: failed to encode profile")
		return
	}
	if err := m.storage.Write(UserKey, string(raw)); err != nil {
		m.log.Warn().Err(err).Msg("session: failed to persist profile")
	}
}
