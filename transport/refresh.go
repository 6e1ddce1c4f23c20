package transport

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"
)

// refreshPath is the cookie-backed token rotation endpoint. The request has
// no body; the refresh credential travels in an HttpOnly cookie the client
// cannot read.
const refreshPath = "/auth/refresh-token"

type refreshResponse struct {
	Data struct {
		AccessToken string `json:"accessToken"`
	} `json:"data"`
}

// refreshCall is one in-flight refresh shared by every concurrent caller.
type refreshCall struct {
	done  chan struct{}
	token string
	err   error
}

// refreshToken rotates the access token. Concurrent callers collapse onto a
// single in-flight refresh: without this, N requests failing with 401 at the
// same time would trigger N rotations, and replays holding a superseded
// token would race the credential store.
func (c *Client) refreshToken(ctx context.Context) (string, error) {
	c.refreshMu.Lock()
	if call := c.inflight; call != nil {
		c.refreshMu.Unlock()
		select {
		case <-call.done:
			return call.token, call.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	call := &refreshCall{done: make(chan struct{})}
	c.inflight = call
	c.refreshMu.Unlock()

	// Detach from the initiating request's context so one caller's
	// cancellation does not fail every waiter. The client timeout still
	// bounds the call.
	call.token, call.err = c.doRefresh(context.WithoutCancel(ctx))
	close(call.done)

	c.refreshMu.Lock()
	c.inflight = nil
	c.refreshMu.Unlock()

	return call.token, call.err
}

// doRefresh performs the actual refresh call. It deliberately bypasses Do:
// a failed refresh must propagate as a hard failure, never trigger another
// refresh attempt.
func (c *Client) doRefresh(ctx context.Context) (string, error) {
	c.log.Info().Msg("transport: refreshing access token")

	req, err := c.newRequest(ctx, http.MethodPost, refreshPath, nil, requestConfig{})
	if err != nil {
		return "", err
	}

	status, body, err := c.send(req)
	if err != nil {
		return "", err
	}
	if status >= http.StatusBadRequest {
		return "", normalizeError(status, body)
	}

	var payload refreshResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", errors.Wrap(err, "[Client.doRefresh] failed to decode refresh payload")
	}
	token := payload.Data.AccessToken
	if token == "" {
		return "", ErrNoRefreshedToken
	}

	// This write bypasses the session bridge: the silent refresh happens
	// beneath the state machine's visibility. Both writers agree on last
	// write wins, no merge.
	if err := c.creds.Set(token); err != nil {
		c.log.Warn().Err(err).Msg("transport: refreshed token not mirrored to storage")
	}

	c.log.Info().Int("token_len", len(token)).Msg("transport: access token rotated")
	return token, nil
}
