// Package session holds the client-side authentication lifecycle: a small
// state machine driven by the login, logout and refresh operations, observed
// reactively by anything that needs the current user or the authentication
// flag.
package session

// UserKey is the durable storage key the current user's profile is persisted
// under, independently from the access token's own persistence.
const UserKey = "kadro.current_user"

// User is the authenticated employee's profile. It is distinct from the
// session itself: created on login or refresh success, cleared on logout.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      string `json:"role"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// UserPatch is a partial update of the profile; nil fields are left as-is.
type UserPatch struct {
	Email     *string
	FirstName *string
	LastName  *string
	Role      *string
	AvatarURL *string
}

// Session is the lifecycle projection read by UI gating. The states
// (not-authenticated, authenticating, authenticated, refreshing, failed) are
// not an explicit enum; they fall out of the field combination.
//
// Invariants: IsAuthenticated implies a non-empty AccessToken. Initialized
// is monotonic: once the client has completed one attempt to determine
// session status it never reverts, and until then "not authenticated" is not
// proof of a logged-out state.
type Session struct {
	IsAuthenticated bool
	AccessToken     string
	Loading         bool
	Initialized     bool
	Err             error
}
