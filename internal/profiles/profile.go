// Package profiles maintains the resumable per-username profile cache and the
// sequential fetch engine that fills it.
package profiles

// Status is the outcome of a single profile fetch attempt.
type Status string

const (
	// StatusActive means the profile was fetched and its enrichment fields
	// are populated. Terminal: never re-fetched automatically.
	StatusActive = Status("active")
	// StatusNotFound means the remote confirmed the account does not exist.
	// Terminal: a confirmed fact, not a failure to observe one.
	StatusNotFound = Status("not_found")
	// StatusLoginRequired means the remote rejected the request with 401/403;
	// the remedy is re-authentication. Retryable.
	StatusLoginRequired = Status("login_required")
	// StatusHTTPError means the remote answered with an unexpected status
	// code. Retryable.
	StatusHTTPError = Status("http_error")
	// StatusError means the request failed before a usable response arrived
	// (network error, malformed body). Retryable.
	StatusError = Status("error")
	// StatusUnknown is the merge-time default for usernames with no cached
	// fetch outcome. Never written to the cache.
	StatusUnknown = Status("unknown")
)

// Terminal reports whether the status is authoritative and exempt from
// automatic retry.
func (status Status) Terminal() bool {
	return status == StatusActive || status == StatusNotFound
}

// Retryable reports whether the status represents an unresolved outcome that
// re-enters the fetch set on the next run.
func (status Status) Retryable() bool {
	return status == StatusError || status == StatusHTTPError || status == StatusLoginRequired
}

// Profile is the persisted result of one fetch attempt for a username. The
// record is overwritten in place on re-fetch; the cache owns its lifetime.
// Enrichment fields are populated only when Status is StatusActive.
type Profile struct {
	Username      string `json:"username"`
	Status        Status `json:"status"`
	DisplayName   string `json:"display_name,omitempty"`
	ProfileURL    string `json:"profile_url,omitempty"`
	FullName      string `json:"full_name,omitempty"`
	ProfilePicURL string `json:"profile_pic_url,omitempty"`
	Followers     *int   `json:"followers,omitempty"`
	Following     *int   `json:"following,omitempty"`
	Posts         *int   `json:"posts,omitempty"`
	IsPrivate     bool   `json:"is_private,omitempty"`
	IsVerified    bool   `json:"is_verified,omitempty"`
	Biography     string `json:"biography,omitempty"`
	HTTPStatus    int    `json:"http_status,omitempty"`
	ErrorDetail   string `json:"error,omitempty"`
}
