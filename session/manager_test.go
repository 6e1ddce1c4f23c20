package session_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadrohq/kadro-go/credentials/storagefake"
	"github.com/kadrohq/kadro-go/internal/utils"
	"github.com/kadrohq/kadro-go/session"
	"github.com/kadrohq/kadro-go/transport"
)

const (
	testEmail    = "jane.doe@kadro.example"
	testPassword = "s3cret"
	testToken    = "access-token-1"
)

const loginOKBody = `{"data":{"accessToken":"` + testToken + `","user":{"id":"u1","email":"` + testEmail + `","firstName":"Jane","lastName":"Doe","role":"hr-admin"}}}`

// fakeAPI answers requests from canned JSON bodies keyed by "METHOD path".
type fakeAPI struct {
	lock      sync.Mutex
	responses map[string]string
	errs      map[string]error
	calls     []string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		responses: make(map[string]string),
		errs:      make(map[string]error),
	}
}

func (f *fakeAPI) Do(ctx context.Context, method, path string, body, out any, options ...transport.RequestOption) error {
	key := method + " " + path

	f.lock.Lock()
	f.calls = append(f.calls, key)
	err := f.errs[key]
	resp := f.responses[key]
	f.lock.Unlock()

	if err != nil {
		return err
	}
	if out != nil && resp != "" {
		return json.Unmarshal([]byte(resp), out)
	}
	return nil
}

func (f *fakeAPI) callCount(key string) int {
	f.lock.Lock()
	defer f.lock.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == key {
			n++
		}
	}
	return n
}

type fixture struct {
	api     *fakeAPI
	storage *storagefake.FakeStorage
	manager *session.Manager
}

func setup(t *testing.T) *fixture {
	t.Helper()

	api := newFakeAPI()
	storage := storagefake.NewFakeStorage()
	manager, err := session.NewManager(api, storage)
	require.NoError(t, err)

	return &fixture{api: api, storage: storage, manager: manager}
}

func TestLoginSuccess(t *testing.T) {
	f := setup(t)
	f.api.responses["POST /auth/login"] = loginOKBody

	require.NoError(t, f.manager.Login(context.Background(), testEmail, testPassword))

	s := f.manager.Snapshot()
	assert.True(t, s.IsAuthenticated)
	assert.Equal(t, testToken, s.AccessToken)
	assert.True(t, s.Initialized)
	assert.False(t, s.Loading)
	assert.NoError(t, s.Err)

	u := f.manager.CurrentUser()
	require.NotNil(t, u)
	assert.Equal(t, testEmail, u.Email)

	persisted, ok := f.storage.Value(session.UserKey)
	require.True(t, ok)
	assert.Contains(t, persisted, testEmail)
}

func TestLoginFailureSettlesInitialized(t *testing.T) {
	f := setup(t)
	apiErr := &transport.APIError{Status: http.StatusUnauthorized, Message: "invalid credentials"}
	f.api.errs["POST /auth/login"] = apiErr

	err := f.manager.Login(context.Background(), testEmail, "wrong")
	require.Error(t, err)

	s := f.manager.Snapshot()
	assert.False(t, s.IsAuthenticated)
	assert.Empty(t, s.AccessToken)
	assert.True(t, s.Initialized)
	assert.False(t, s.Loading)

	var got *transport.APIError
	require.ErrorAs(t, s.Err, &got)
	assert.Equal(t, "invalid credentials", got.Message)
}

func TestLogoutClearsLocallyEvenWhenBackendFails(t *testing.T) {
	f := setup(t)
	f.api.responses["POST /auth/login"] = loginOKBody
	require.NoError(t, f.manager.Login(context.Background(), testEmail, testPassword))

	f.api.errs["POST /auth/logout"] = assert.AnError

	require.NoError(t, f.manager.Logout(context.Background()))

	s := f.manager.Snapshot()
	assert.False(t, s.IsAuthenticated)
	assert.Empty(t, s.AccessToken)
	assert.True(t, s.Initialized)
	assert.False(t, s.Loading)
	assert.Nil(t, f.manager.CurrentUser())

	_, ok := f.storage.Value(session.UserKey)
	assert.False(t, ok)
}

func TestRefreshSuccess(t *testing.T) {
	f := setup(t)
	f.api.responses["POST /auth/refresh-token"] = loginOKBody

	require.NoError(t, f.manager.Refresh(context.Background()))

	s := f.manager.Snapshot()
	assert.True(t, s.IsAuthenticated)
	assert.Equal(t, testToken, s.AccessToken)
	assert.True(t, s.Initialized)
	require.NotNil(t, f.manager.CurrentUser())
}

func TestRefreshWithoutTokenIsNotAuthenticated(t *testing.T) {
	f := setup(t)
	f.api.responses["POST /auth/refresh-token"] = `{"data":{}}`

	err := f.manager.Refresh(context.Background())
	require.ErrorIs(t, err, transport.ErrNoRefreshedToken)

	s := f.manager.Snapshot()
	assert.False(t, s.IsAuthenticated)
	assert.True(t, s.Initialized)
	assert.False(t, s.Loading)
}

func TestRefreshFailure(t *testing.T) {
	f := setup(t)
	f.api.errs["POST /auth/refresh-token"] = &transport.APIError{Status: http.StatusUnauthorized, Message: "no cookie"}

	require.Error(t, f.manager.Refresh(context.Background()))

	s := f.manager.Snapshot()
	assert.False(t, s.IsAuthenticated)
	assert.Empty(t, s.AccessToken)
	assert.True(t, s.Initialized)
}

func TestInitializedIsMonotonic(t *testing.T) {
	f := setup(t)
	f.api.errs["POST /auth/refresh-token"] = assert.AnError
	f.api.errs["POST /auth/login"] = assert.AnError

	var seen []session.Session
	var lock sync.Mutex
	unsubscribe := f.manager.Subscribe(func(s session.Session) {
		lock.Lock()
		seen = append(seen, s)
		lock.Unlock()
	})
	defer unsubscribe()

	_ = f.manager.Refresh(context.Background())
	_ = f.manager.Login(context.Background(), testEmail, testPassword)
	_ = f.manager.Logout(context.Background())

	lock.Lock()
	defer lock.Unlock()
	initialized := false
	for _, s := range seen {
		if initialized {
			assert.True(t, s.Initialized, "initialized must never revert to false")
		}
		initialized = initialized || s.Initialized
	}
	assert.True(t, initialized)
}

func TestEnsureInitializedRefreshesOnce(t *testing.T) {
	f := setup(t)
	f.api.responses["POST /auth/refresh-token"] = loginOKBody

	require.NoError(t, f.manager.EnsureInitialized(context.Background()))
	require.NoError(t, f.manager.EnsureInitialized(context.Background()))

	assert.Equal(t, 1, f.api.callCount("POST /auth/refresh-token"))
}

func TestEnsureInitializedSkipsAfterLogin(t *testing.T) {
	f := setup(t)
	f.api.responses["POST /auth/login"] = loginOKBody

	require.NoError(t, f.manager.Login(context.Background(), testEmail, testPassword))
	require.NoError(t, f.manager.EnsureInitialized(context.Background()))

	assert.Equal(t, 0, f.api.callCount("POST /auth/refresh-token"))
}

func TestClearErrorOnlyClearsError(t *testing.T) {
	f := setup(t)
	f.api.errs["POST /auth/login"] = assert.AnError
	_ = f.manager.Login(context.Background(), testEmail, testPassword)

	before := f.manager.Snapshot()
	require.Error(t, before.Err)

	f.manager.ClearError()

	after := f.manager.Snapshot()
	assert.NoError(t, after.Err)
	assert.Equal(t, before.IsAuthenticated, after.IsAuthenticated)
	assert.Equal(t, before.Initialized, after.Initialized)
	assert.Equal(t, before.AccessToken, after.AccessToken)
}

func TestUpdateUserMergesPartially(t *testing.T) {
	f := setup(t)
	f.api.responses["POST /auth/login"] = loginOKBody
	require.NoError(t, f.manager.Login(context.Background(), testEmail, testPassword))

	require.NoError(t, f.manager.UpdateUser(session.UserPatch{
		LastName:  utils.Ptr("Smith"),
		AvatarURL: utils.Ptr("https://cdn.kadro.example/u1.png"),
	}))

	u := f.manager.CurrentUser()
	require.NotNil(t, u)
	assert.Equal(t, "Jane", u.FirstName)
	assert.Equal(t, "Smith", u.LastName)
	assert.Equal(t, "https://cdn.kadro.example/u1.png", u.AvatarURL)
	assert.Equal(t, testEmail, u.Email)

	persisted, ok := f.storage.Value(session.UserKey)
	require.True(t, ok)
	assert.Contains(t, persisted, "Smith")
}

func TestUpdateUserWithoutUserFails(t *testing.T) {
	f := setup(t)
	require.Error(t, f.manager.UpdateUser(session.UserPatch{LastName: utils.Ptr("Smith")}))
}

func TestRestoresPersistedProfile(t *testing.T) {
	storage := storagefake.NewFakeStorage()
	require.NoError(t, storage.Write(session.UserKey, `{"id":"u1","email":"`+testEmail+`"}`))

	manager, err := session.NewManager(newFakeAPI(), storage)
	require.NoError(t, err)

	u := manager.CurrentUser()
	require.NotNil(t, u)
	assert.Equal(t, testEmail, u.Email)

	// The profile alone proves nothing about session liveness.
	assert.False(t, manager.Snapshot().IsAuthenticated)
	assert.False(t, manager.Snapshot().Initialized)
}

func TestExpireTearsDownWithoutBackendCall(t *testing.T) {
	f := setup(t)
	f.api.responses["POST /auth/login"] = loginOKBody
	require.NoError(t, f.manager.Login(context.Background(), testEmail, testPassword))

	f.manager.Expire(transport.ErrSessionExpired)

	s := f.manager.Snapshot()
	assert.False(t, s.IsAuthenticated)
	assert.Empty(t, s.AccessToken)
	assert.True(t, s.Initialized)
	assert.ErrorIs(t, s.Err, transport.ErrSessionExpired)
	assert.Nil(t, f.manager.CurrentUser())
	assert.Equal(t, 0, f.api.callCount("POST /auth/logout"))
}

// A JWT-shaped access token gets its horizon and subject logged on
// rotation; the peek never gates the authentication itself.
func TestLogsTokenHorizonOnRotation(t *testing.T) {
	claims := jwt.MapClaims{"sub": "u1", "exp": time.Now().Add(15 * time.Minute).Unix()}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	require.NoError(t, err)

	api := newFakeAPI()
	api.responses["POST /auth/login"] = `{"data":{"accessToken":"` + raw + `","user":{"id":"u1"}}}`

	var buf bytes.Buffer
	manager, err := session.NewManager(api, storagefake.NewFakeStorage(), session.WithLogger(zerolog.New(&buf)))
	require.NoError(t, err)

	require.NoError(t, manager.Login(context.Background(), testEmail, testPassword))
	assert.True(t, manager.Snapshot().IsAuthenticated)

	out := buf.String()
	assert.Contains(t, out, "expires_at")
	assert.Contains(t, out, `"subject":"u1"`)
}

func TestSubscribePublishesTransitions(t *testing.T) {
	f := setup(t)
	f.api.responses["POST /auth/login"] = loginOKBody

	var seen []session.Session
	var lock sync.Mutex
	unsubscribe := f.manager.Subscribe(func(s session.Session) {
		lock.Lock()
		seen = append(seen, s)
		lock.Unlock()
	})

	require.NoError(t, f.manager.Login(context.Background(), testEmail, testPassword))

	lock.Lock()
	require.Len(t, seen, 2)
	assert.True(t, seen[0].Loading)
	assert.False(t, seen[0].IsAuthenticated)
	assert.False(t, seen[1].Loading)
	assert.True(t, seen[1].IsAuthenticated)
	lock.Unlock()

	unsubscribe()
	require.NoError(t, f.manager.Logout(context.Background()))

	lock.Lock()
	assert.Len(t, seen, 2)
	lock.Unlock()
}
