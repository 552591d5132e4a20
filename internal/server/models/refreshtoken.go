package models

import "time"

// RefreshToken is the server-side record of a holder's current refresh
// credential. Token holds the SHA-256 digest of the value handed to the client.
type RefreshToken struct {
	HolderID  string
	Token     string
	Expires   time.Time
	CreatedAt time.Time
}

// Expired reports whether the credential is no longer usable at now.
func (r *RefreshToken) Expired(now time.Time) bool {
	return !r.Expires.After(now)
}
