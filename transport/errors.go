package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrSessionExpired is returned to callers whose request failed because
	// the silent token refresh itself failed. Matching on it is the
	// "must re-authenticate" signal.
	ErrSessionExpired = errors.New("session expired, please log in again")

	// ErrNoRefreshedToken indicates the refresh endpoint answered 2xx but
	// the payload carried no access token.
	ErrNoRefreshedToken = errors.New("refresh response contained no access token")
)

// fallbackMessage is used when neither the backend payload nor the HTTP
// status carries a usable message.
const fallbackMessage = "request failed"

// APIError is the normalized shape every non-recovered HTTP failure is
// reduced to. Errors holds field-level validation detail when the backend
// supplies it; Raw preserves the unparsed payload for callers that need it.
type APIError struct {
	Status  int
	Message string
	Errors  map[string][]string
	Raw     json.RawMessage
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d message=%q", e.Status, e.Message)
}

// apiErrorPayload is the backend's error envelope.
type apiErrorPayload struct {
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors"`
}

// normalizeError turns a non-2xx response into an *APIError. Message
// precedence: backend-supplied message, then the HTTP status text, then a
// fixed fallback.
func normalizeError(status int, body []byte) *APIError {
	apiErr := &APIError{
		Status:  status,
		Message: fallbackMessage,
	}
	if len(body) > 0 {
		apiErr.Raw = json.RawMessage(append([]byte(nil), body...))
	}

	var payload apiErrorPayload
	if err := json.Unmarshal(body, &payload); err == nil {
		apiErr.Errors = payload.Errors
		if payload.Message != "" {
			apiErr.Message = payload.Message
			return apiErr
		}
	}
	if text := http.StatusText(status); text != "" {
		apiErr.Message = text
	}
	return apiErr
}
