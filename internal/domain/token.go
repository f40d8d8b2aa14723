package domain

import "time"

// TokenLifetime is how long a bearer token is valid after issuance.
const TokenLifetime = 5 * time.Minute

// Token is an opaque bearer credential plus the time it was issued.
// Tokens are replaced wholesale, never modified.
type Token struct {
	Value    string    `json:"jwt"`
	IssuedAt time.Time `json:"issued_at"`
}

// Stale reports whether more than TokenLifetime has elapsed since issuance.
func (t Token) Stale(now time.Time) bool {
	return now.Sub(t.IssuedAt) > TokenLifetime
}
