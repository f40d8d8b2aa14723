package ports

import (
	"net/http"
	"time"
)

// HTTPClient abstracts HTTP request execution so tests can substitute the transport.
// *http.Client satisfies this interface.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Clock returns the current time. Token staleness is evaluated against it.
type Clock func() time.Time
