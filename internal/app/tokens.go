package app

import (
	"context"
	"fmt"
	"time"

	"github.com/bft-labs/rowship/internal/domain"
	"github.com/bft-labs/rowship/internal/ports"
)

// TokenSource hands out a valid bearer token, logging in again only when the
// stored one is missing or older than domain.TokenLifetime.
type TokenSource struct {
	state    *domain.State
	auth     ports.Authenticator
	username string
	password string
	clock    ports.Clock
	logger   ports.Logger
}

// NewTokenSource creates a token source backed by state. A fresh token is
// recorded into state, so it is persisted with the rest of the progress.
func NewTokenSource(state *domain.State, auth ports.Authenticator, username, password string, clock ports.Clock, logger ports.Logger) *TokenSource {
	if clock == nil {
		clock = time.Now
	}
	return &TokenSource{
		state:    state,
		auth:     auth,
		username: username,
		password: password,
		clock:    clock,
		logger:   logger,
	}
}

// Current returns the stored token, authenticating first if it is stale.
func (t *TokenSource) Current(ctx context.Context) (string, error) {
	now := t.clock()
	if !t.state.TokenIsStale(now) {
		return t.state.Token.Value, nil
	}

	reason := "expired"
	if t.state.Token == nil || t.state.Token.Value == "" {
		reason = "missing"
	}
	t.logger.Info("authenticating", ports.String("reason", reason), ports.String("username", t.username))

	token, err := t.auth.Authenticate(ctx, t.username, t.password)
	if err != nil {
		return "", fmt.Errorf("authenticate: %w", err)
	}
	t.state.RecordToken(token, now)
	return token, nil
}
