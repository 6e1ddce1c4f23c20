package credentials

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// TokenKey is the durable storage key the access token is mirrored under.
const TokenKey = "kadro.access_token"

// Storage is the durable backing for values that must survive a process
// restart. Values are opaque strings; implementations perform no
// interpretation of them.
type Storage interface {
	Read(key string) (value string, ok bool, err error)
	Write(key, value string) error
	Delete(key string) error
}

// Store holds the current access token in memory and mirrors it to durable
// storage. It is a passive sink: the session bridge and the transport's
// silent refresh both write to it, and every outgoing request reads from it.
// Two writers, last write wins, no merge.
//
// The token is treated as an opaque string; no shape validation is done here.
type Store struct {
	storage Storage
	log     zerolog.Logger

	mu    sync.RWMutex
	token string
	has   bool
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets the logger used for storage mirroring warnings.
func WithLogger(log zerolog.Logger) StoreOption {
	return func(s *Store) {
		s.log = log
	}
}

// NewStore creates a Store backed by the given durable storage. A token
// persisted by a previous process is loaded immediately so the credential
// survives a restart.
func NewStore(storage Storage, options ...StoreOption) (*Store, error) {
	if storage == nil {
		return nil, errors.New("[NewStore] storage is required")
	}

	s := &Store{
		storage: storage,
		log:     zerolog.Nop(),
	}
	for _, opt := range options {
		opt(s)
	}

	token, ok, err := storage.Read(TokenKey)
	if err != nil {
		return nil, errors.Wrap(err, "[NewStore] failed to load persisted token")
	}
	if ok {
		s.token = token
		s.has = true
	}

	return s, nil
}

// Get returns the current access token, if one is held.
func (s *Store) Get() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.has
}

// Set replaces the current token and persists it under TokenKey.
func (s *Store) Set(token string) error {
	s.mu.Lock()
	s.token = token
	s.has = true
	s.mu.Unlock()

	if err := s.storage.Write(TokenKey, token); err != nil {
		s.log.Warn().Err(err).Msg("credential store: failed to mirror token to storage")
		return errors.Wrap(err, "[Store.Set] storage.Write")
	}
	return nil
}

// Clear drops the current token and removes it from durable storage.
func (s *Store) Clear() error {
	s.mu.Lock()
	s.token = ""
	s.has = false
	s.mu.Unlock()

	if err := s.storage.Delete(TokenKey); err != nil {
		s.log.Warn().Err(err).Msg("credential store: failed to remove token from storage")
		return errors.Wrap(err, "[Store.Clear] storage.Delete")
	}
	return nil
}
