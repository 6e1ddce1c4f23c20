// Package bridge is the one-directional sync from the session state machine
// to the credential store: whenever the session's token changes, the new
// value is pushed into the store the transport reads from.
package bridge

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/kadrohq/kadro-go/session"
)

// TokenSink is the credential store surface the bridge pushes into.
// credentials.Store satisfies it.
type TokenSink interface {
	Set(token string) error
	Clear() error
}

// Source is the observable side of the session state machine.
type Source interface {
	Snapshot() session.Session
	Subscribe(fn func(session.Session)) func()
}

// Bind subscribes to src and pushes the token into sink whenever it differs
// from the last pushed value. The returned func unbinds.
//
// This is the only path by which state-machine-driven token changes reach
// the transport; the transport's own silent refresh writes to the same store
// directly, beneath the state machine's visibility. The two writers agree
// on last write wins, no merge. The snapshot value at bind time is not
// pushed, so a token restored from durable storage is not clobbered before
// the first refresh probe resolves it.
func Bind(src Source, sink TokenSink, log zerolog.Logger) func() {
	var mu sync.Mutex
	last := src.Snapshot().AccessToken

	push := func(s session.Session) {
		mu.Lock()
		defer mu.Unlock()

		if s.AccessToken == last {
			return
		}
		last = s.AccessToken

		if s.AccessToken == "" {
			if err := sink.Clear(); err != nil {
				log.Warn().Err(err).Msg("bridge: failed to clear credential store")
			}
			return
		}
		if err := sink.Set(s.AccessToken); err != nil {
			log.Warn().Err(err).Msg("bridge: failed to push token to credential store")
		}
	}

	unbind := src.Subscribe(push)

	// A change landing between the snapshot above and the subscription
	// would never be published; re-reading after registering closes that
	// window. An unchanged snapshot is a no-op, so the bind itself still
	// pushes nothing.
	push(src.Snapshot())

	return unbind
}
