package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bft-labs/rowship/internal/domain"
	"github.com/bft-labs/rowship/internal/ports"
)

// mockLogger implements ports.Logger for testing.
type mockLogger struct{}

func (mockLogger) Debug(msg string, fields ...ports.Field) {}
func (mockLogger) Info(msg string, fields ...ports.Field)  {}
func (mockLogger) Warn(msg string, fields ...ports.Field)  {}
func (mockLogger) Error(msg string, fields ...ports.Field) {}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeSource serves rows whose first column is the primary key.
type fakeSource struct {
	rows    map[string][]domain.Row
	err     error
	fetches []int64
}

func (s *fakeSource) PrimaryKey(ctx context.Context, table string) (string, error) {
	return "ID", nil
}

func (s *fakeSource) FetchAfter(ctx context.Context, table string, after int64) ([]domain.Row, error) {
	s.fetches = append(s.fetches, after)
	if s.err != nil {
		return nil, s.err
	}
	var out []domain.Row
	for _, r := range s.rows[table] {
		k, err := r.Key()
		if err != nil || k > after {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, _ := out[i].Key()
		b, _ := out[j].Key()
		return a < b
	})
	return out, nil
}

type upsertCall struct {
	object     string
	viewToken  string
	token      string
	pk         int64
	transcoded domain.Row
	allowEdit  bool
}

// fakeRemote records calls. Rows listed in existing are answered as
// already present.
type fakeRemote struct {
	authErr  error
	authN    int
	existing map[int64]bool
	fail     map[int64]error
	reject   map[int64]bool
	onUpsert func(pk int64)
	calls    []upsertCall
}

func (r *fakeRemote) Authenticate(ctx context.Context, username, password string) (string, error) {
	r.authN++
	if r.authErr != nil {
		return "", r.authErr
	}
	return fmt.Sprintf("jwt-%d", r.authN), nil
}

func (r *fakeRemote) Exists(ctx context.Context, token string, m domain.TableMapping, row domain.Row) (bool, error) {
	k, _ := row.Key()
	return r.existing[k], nil
}

// Upsert asks for a token before the existence check and again before the
// write, like the HTTP client. onUpsert runs between the two.
func (r *fakeRemote) Upsert(ctx context.Context, token ports.TokenFunc, m domain.TableMapping, original, transcoded domain.Row, allowEdit bool) (domain.Outcome, error) {
	pk, _ := original.Key()
	viewToken, err := token(ctx)
	if err != nil {
		return domain.OutcomeRejected, err
	}
	if r.onUpsert != nil {
		r.onUpsert(pk)
	}
	writeToken, err := token(ctx)
	if err != nil {
		return domain.OutcomeRejected, err
	}
	r.calls = append(r.calls, upsertCall{object: m.Object, viewToken: viewToken, token: writeToken, pk: pk, transcoded: transcoded, allowEdit: allowEdit})
	if err := r.fail[pk]; err != nil {
		return domain.OutcomeRejected, err
	}
	if r.reject[pk] {
		return domain.OutcomeRejected, nil
	}
	if r.existing[pk] {
		if allowEdit {
			return domain.OutcomeEdited, nil
		}
		return domain.OutcomeSkipped, nil
	}
	return domain.OutcomeCreated, nil
}

func (r *fakeRemote) pks() []int64 {
	var out []int64
	for _, c := range r.calls {
		out = append(out, c.pk)
	}
	return out
}

// memRepo keeps the state in memory, copying on every save.
type memRepo struct {
	state   *domain.State
	saves   int
	saveErr error
	loadErr error
}

func (m *memRepo) Load(ctx context.Context) (*domain.State, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if m.state == nil {
		return domain.NewState(), nil
	}
	return copyState(m.state), nil
}

func (m *memRepo) Save(ctx context.Context, s *domain.State) error {
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.state = copyState(s)
	return nil
}

func copyState(s *domain.State) *domain.State {
	c := *s
	c.Watermarks = make(map[string]int64, len(s.Watermarks))
	for k, v := range s.Watermarks {
		c.Watermarks[k] = v
	}
	if s.Token != nil {
		t := *s.Token
		c.Token = &t
	}
	return &c
}

type recordingObserver struct {
	rows       []domain.Outcome
	watermarks map[string]int64
	finished   int
	lastErr    error
}

func (o *recordingObserver) OnRow(table string, outcome domain.Outcome, warnings int) {
	o.rows = append(o.rows, outcome)
}

func (o *recordingObserver) OnWatermark(table string, watermark int64) {
	if o.watermarks == nil {
		o.watermarks = make(map[string]int64)
	}
	o.watermarks[table] = watermark
}

func (o *recordingObserver) OnRunFinished(err error, duration time.Duration) {
	o.finished++
	o.lastErr = err
}

func row(pk int64, extra ...any) domain.Row {
	cols := []string{"ID"}
	vals := []any{pk}
	for i := 0; i+1 < len(extra); i += 2 {
		cols = append(cols, extra[i].(string))
		vals = append(vals, extra[i+1])
	}
	return domain.NewRow(cols, vals)
}

var errBoom = errors.New("boom")
