package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/bft-labs/rowship/internal/domain"
	"github.com/bft-labs/rowship/internal/ports"
)

const (
	writeEndpoint = "/index.php"

	actionLogin = "login"
	actionView  = "view"
	actionAdd   = "add"
	actionEdit  = "edit"

	maxBodyLog = 512
)

// reply is the common envelope of every remote response.
type reply struct {
	Success bool   `json:"success"`
	JWT     string `json:"JWT"`
	Message string `json:"message"`
}

// Client implements ports.RemoteClient over the form-encoded HTTP API.
type Client struct {
	client  ports.HTTPClient
	baseURL string
	userID  int
	logger  ports.Logger
}

// NewClient creates a remote client. baseURL must not end with a slash.
func NewClient(client ports.HTTPClient, baseURL string, userID int, logger ports.Logger) *Client {
	return &Client{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		userID:  userID,
		logger:  logger,
	}
}

// Authenticate performs the login exchange and returns the JWT.
func (c *Client) Authenticate(ctx context.Context, username, password string) (string, error) {
	form := url.Values{}
	form.Set("action", actionLogin)
	form.Set("username", username)
	form.Set("password", password)

	status, body, err := c.post(ctx, "", form)
	if err != nil {
		return "", fmt.Errorf("%w: login: %w", domain.ErrAuth, err)
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("%w: login returned %d: %s", domain.ErrAuth, status, truncate(body))
	}
	var r reply
	if err := json.Unmarshal(body, &r); err != nil {
		return "", fmt.Errorf("%w: decode login reply: %w", domain.ErrAuth, err)
	}
	if !r.Success || r.JWT == "" {
		return "", fmt.Errorf("%w: login refused for %q", domain.ErrAuth, username)
	}
	c.logger.Debug("login succeeded", ports.String("username", username))
	return r.JWT, nil
}

// Exists asks the remote service whether row is already stored for m.Object.
func (c *Client) Exists(ctx context.Context, token string, m domain.TableMapping, row domain.Row) (bool, error) {
	keyCol, keyVal, ok := m.LookupKey(row)
	if !ok {
		return false, fmt.Errorf("%w: %s: lookup column %q missing from row", domain.ErrProtocol, m.Object, m.Policy.KeyField)
	}
	keyText, _ := domain.FormatValue(keyVal)

	q := url.Values{}
	q.Set("action", actionView)
	q.Set("object", m.Object)
	q.Set(keyCol, keyText)
	q.Set("id_utente", strconv.Itoa(c.userID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/?"+q.Encode(), nil)
	if err != nil {
		return false, fmt.Errorf("create view request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	status, body, err := c.do(req)
	if err != nil {
		return false, err
	}
	if status != http.StatusOK {
		c.logger.Debug("view returned non-200, treating as absent",
			ports.String("object", m.Object),
			ports.String("key", keyCol+"="+keyText),
			ports.Int("status", status),
		)
		return false, nil
	}
	ok, err = decodeSuccess(body)
	if err != nil {
		return false, fmt.Errorf("%w: view %s: %w", domain.ErrProtocol, m.Object, err)
	}
	c.logger.Debug("existence check",
		ports.String("object", m.Object),
		ports.String("key", keyCol+"="+keyText),
		ports.Bool("exists", ok),
	)
	return ok, nil
}

// Upsert creates or edits a record.
//
// The existence check keys off original. When the record exists and edit is
// not allowed the row counts as already synced and no write is sent. token is
// asked for a bearer token before each request.
func (c *Client) Upsert(ctx context.Context, token ports.TokenFunc, m domain.TableMapping, original, transcoded domain.Row, allowEdit bool) (domain.Outcome, error) {
	form := url.Values{}
	form.Set("action", actionAdd)
	form.Set("object", m.Object)
	transcoded.Range(func(col string, v any) bool {
		if s, ok := domain.FormatValue(v); ok {
			form.Set(col, s)
		}
		return true
	})
	form.Set("id_utente", strconv.Itoa(c.userID))

	tok, err := token(ctx)
	if err != nil {
		return domain.OutcomeRejected, err
	}
	exists, err := c.Exists(ctx, tok, m, original)
	if err != nil {
		return domain.OutcomeRejected, err
	}
	outcome := domain.OutcomeCreated
	if exists {
		if !allowEdit {
			return domain.OutcomeSkipped, nil
		}
		form.Set("action", actionEdit)
		outcome = domain.OutcomeEdited
	}

	for _, col := range m.Policy.ExcludeOnWrite {
		form.Del(col)
	}

	if tok, err = token(ctx); err != nil {
		return domain.OutcomeRejected, err
	}
	status, body, err := c.post(ctx, tok, form)
	if err != nil {
		return domain.OutcomeRejected, err
	}
	if status != http.StatusOK {
		return domain.OutcomeRejected, fmt.Errorf("%w: %s %s returned %d: %s",
			domain.ErrProtocol, form.Get("action"), m.Object, status, truncate(body))
	}
	ok, err := decodeSuccess(body)
	if err != nil {
		return domain.OutcomeRejected, fmt.Errorf("%w: %s %s: %w", domain.ErrProtocol, form.Get("action"), m.Object, err)
	}
	if !ok {
		c.logger.Warn("remote rejected row",
			ports.String("object", m.Object),
			ports.String("action", form.Get("action")),
			ports.String("body", truncate(body)),
		)
		return domain.OutcomeRejected, nil
	}
	return outcome, nil
}

func (c *Client) post(ctx context.Context, token string, form url.Values) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+writeEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) (int, []byte, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %s %s: %w", domain.ErrTransport, req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: read body: %w", domain.ErrTransport, err)
	}
	return resp.StatusCode, body, nil
}

func decodeSuccess(body []byte) (bool, error) {
	var r reply
	if err := json.Unmarshal(body, &r); err != nil {
		return false, err
	}
	return r.Success, nil
}

func truncate(b []byte) string {
	if len(b) <= maxBodyLog {
		return string(b)
	}
	return string(b[:maxBodyLog]) + "..."
}
