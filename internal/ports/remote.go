package ports

import (
	"context"

	"github.com/bft-labs/rowship/internal/domain"
)

// Authenticator exchanges credentials for a bearer token.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (string, error)
}

// TokenFunc returns a bearer token that is valid for the next request.
type TokenFunc func(ctx context.Context) (string, error)

// StaticToken returns a TokenFunc that always yields token.
func StaticToken(token string) TokenFunc {
	return func(context.Context) (string, error) { return token, nil }
}

// RemoteClient performs the existence check and create/edit calls.
type RemoteClient interface {
	Authenticator

	// Exists reports whether the remote object already holds row.
	// The lookup key comes from the raw row, never a transcoded one.
	Exists(ctx context.Context, token string, m domain.TableMapping, row domain.Row) (bool, error)

	// Upsert creates transcoded remotely, or edits it when it exists and
	// allowEdit is set. original is used for the existence check. token is
	// called before each request.
	Upsert(ctx context.Context, token TokenFunc, m domain.TableMapping, original, transcoded domain.Row, allowEdit bool) (domain.Outcome, error)
}
