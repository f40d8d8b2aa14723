package domain

import "time"

// State is the durable record of sync progress.
// At most one token is live at a time; watermarks never decrease.
type State struct {
	// Token is the current bearer token, nil before the first login
	Token *Token `json:"token,omitempty"`

	// Watermarks maps local table name to the highest confirmed primary key
	Watermarks map[string]int64 `json:"watermarks"`

	// LastRunAt is when the last pass finished (successfully or not)
	LastRunAt time.Time `json:"last_run_at,omitempty"`

	// LastError is the error that ended the last pass, empty on success
	LastError string `json:"last_error,omitempty"`
}

// NewState returns an empty state.
func NewState() *State {
	return &State{Watermarks: make(map[string]int64)}
}

// Watermark returns the table's last confirmed primary key, 0 if never synced.
func (s *State) Watermark(table string) int64 {
	return s.Watermarks[table]
}

// AdvanceWatermark raises the table's watermark to candidate if it is higher.
// Returns true when the stored value changed.
func (s *State) AdvanceWatermark(table string, candidate int64) bool {
	if s.Watermarks == nil {
		s.Watermarks = make(map[string]int64)
	}
	if candidate <= s.Watermarks[table] {
		return false
	}
	s.Watermarks[table] = candidate
	return true
}

// ResetWatermark forgets a table's progress so the next pass starts from 0.
func (s *State) ResetWatermark(table string) {
	delete(s.Watermarks, table)
}

// RecordToken replaces the stored token.
func (s *State) RecordToken(value string, issuedAt time.Time) {
	s.Token = &Token{Value: value, IssuedAt: issuedAt}
}

// TokenIsStale reports whether a new login is needed at now.
func (s *State) TokenIsStale(now time.Time) bool {
	if s.Token == nil || s.Token.Value == "" {
		return true
	}
	return s.Token.Stale(now)
}
