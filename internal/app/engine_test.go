package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bft-labs/rowship/internal/domain"
	"github.com/bft-labs/rowship/internal/transcode"
)

var cavi = domain.TableMapping{Table: "cavi", Object: "elf_tbl_cavi"}

func newTestEngine(cfg EngineConfig, src *fakeSource, remote *fakeRemote, repo *memRepo, obs *recordingObserver) *Engine {
	if obs == nil {
		return NewEngine(cfg, src, remote, transcode.Default(), repo, mockLogger{}, nil)
	}
	return NewEngine(cfg, src, remote, transcode.Default(), repo, mockLogger{}, obs)
}

func TestEngineMigratesRowsInOrder(t *testing.T) {
	src := &fakeSource{rows: map[string][]domain.Row{"cavi": {row(3), row(1), row(2)}}}
	remote := &fakeRemote{}
	repo := &memRepo{}
	obs := &recordingObserver{}

	report, err := newTestEngine(EngineConfig{}, src, remote, repo, obs).Run(context.Background(), []domain.TableMapping{cavi})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got := remote.pks(); len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Errorf("upserted pks = %v, want [1 2 3]", got)
	}
	if got := repo.state.Watermark("cavi"); got != 3 {
		t.Errorf("watermark = %d, want 3", got)
	}
	if repo.saves != 1 {
		t.Errorf("saves = %d, want 1", repo.saves)
	}
	if report.Migrated() != 3 || report.Tables[0].Created != 3 || report.Tables[0].Fetched != 3 {
		t.Errorf("report = %+v", report.Tables)
	}
	if report.RunID == "" {
		t.Error("report has no run id")
	}
	if repo.state.LastError != "" || repo.state.LastRunAt.IsZero() {
		t.Errorf("run bookkeeping = %q, %v", repo.state.LastError, repo.state.LastRunAt)
	}
	if len(obs.rows) != 3 || obs.watermarks["cavi"] != 3 || obs.finished != 1 {
		t.Errorf("observer = %+v", obs)
	}
}

func TestEngineStopsAtFirstFailure(t *testing.T) {
	tests := []struct {
		name   string
		remote *fakeRemote
		target error
	}{
		{"transport error", &fakeRemote{fail: map[int64]error{2: domain.ErrTransport}}, domain.ErrTransport},
		{"protocol error", &fakeRemote{fail: map[int64]error{2: domain.ErrProtocol}}, domain.ErrProtocol},
		{"rejected", &fakeRemote{reject: map[int64]bool{2: true}}, domain.ErrRowRejected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &fakeSource{rows: map[string][]domain.Row{"cavi": {row(1), row(2), row(3)}}}
			repo := &memRepo{}

			report, err := newTestEngine(EngineConfig{}, src, tt.remote, repo, nil).Run(context.Background(), []domain.TableMapping{cavi})
			if !errors.Is(err, tt.target) {
				t.Fatalf("Run() error = %v, want %v", err, tt.target)
			}
			if got := tt.remote.pks(); len(got) != 2 {
				t.Errorf("upserted pks = %v, row 3 must not be attempted", got)
			}
			if got := repo.state.Watermark("cavi"); got != 1 {
				t.Errorf("watermark = %d, want 1", got)
			}
			if repo.saves != 1 {
				t.Errorf("saves = %d, want 1", repo.saves)
			}
			if repo.state.LastError == "" {
				t.Error("LastError not recorded")
			}
			if report.Tables[0].Created != 1 || report.Tables[0].Watermark != 1 {
				t.Errorf("report = %+v", report.Tables[0])
			}
		})
	}
}

func TestEngineFailureSkipsLaterTables(t *testing.T) {
	other := domain.TableMapping{Table: "other", Object: "elf_tbl_other"}
	src := &fakeSource{rows: map[string][]domain.Row{
		"cavi":  {row(1)},
		"other": {row(7)},
	}}
	remote := &fakeRemote{fail: map[int64]error{1: domain.ErrTransport}}
	repo := &memRepo{}

	_, err := newTestEngine(EngineConfig{}, src, remote, repo, nil).Run(context.Background(), []domain.TableMapping{cavi, other})
	if err == nil {
		t.Fatal("Run() error = nil")
	}
	if len(src.fetches) != 1 {
		t.Errorf("fetches = %v, second table must not be read", src.fetches)
	}
}

func TestEngineRerunIsIdempotent(t *testing.T) {
	clock := newFakeClock()
	src := &fakeSource{rows: map[string][]domain.Row{"cavi": {row(1), row(2), row(3)}}}
	remote := &fakeRemote{}
	repo := &memRepo{}
	e := newTestEngine(EngineConfig{Clock: clock.Now}, src, remote, repo, nil)

	if _, err := e.Run(context.Background(), []domain.TableMapping{cavi}); err != nil {
		t.Fatalf("first Run() error = %v", err)
	}
	first := len(remote.calls)

	report, err := e.Run(context.Background(), []domain.TableMapping{cavi})
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if len(remote.calls) != first {
		t.Errorf("second pass made %d remote writes, want 0", len(remote.calls)-first)
	}
	if remote.authN != 1 {
		t.Errorf("logins = %d, want 1 (token still fresh)", remote.authN)
	}
	if src.fetches[1] != 3 {
		t.Errorf("second fetch after = %d, want 3", src.fetches[1])
	}
	if report.Migrated() != 0 {
		t.Errorf("Migrated() = %d, want 0", report.Migrated())
	}
}

func TestEngineReauthenticatesOnceWhenTokenExpires(t *testing.T) {
	clock := newFakeClock()
	src := &fakeSource{rows: map[string][]domain.Row{"cavi": {row(1), row(2), row(3), row(4)}}}
	remote := &fakeRemote{onUpsert: func(pk int64) {
		if pk == 2 {
			clock.Advance(domain.TokenLifetime + time.Second)
		}
	}}
	repo := &memRepo{}

	_, err := newTestEngine(EngineConfig{Clock: clock.Now}, src, remote, repo, nil).Run(context.Background(), []domain.TableMapping{cavi})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if remote.authN != 2 {
		t.Fatalf("logins = %d, want 2", remote.authN)
	}
	// Row 2 checks existence with the old token and writes with the new one.
	if remote.calls[1].viewToken != "jwt-1" || remote.calls[1].token != "jwt-2" {
		t.Errorf("row 2 tokens = %q, %q", remote.calls[1].viewToken, remote.calls[1].token)
	}
	tokens := []string{remote.calls[0].token, remote.calls[1].token, remote.calls[2].token, remote.calls[3].token}
	if tokens[0] != "jwt-1" || tokens[1] != "jwt-2" || tokens[2] != "jwt-2" || tokens[3] != "jwt-2" {
		t.Errorf("write tokens per row = %v", tokens)
	}
	if repo.state.Token == nil || repo.state.Token.Value != "jwt-2" {
		t.Errorf("persisted token = %+v", repo.state.Token)
	}
}

func TestEngineReusesStoredToken(t *testing.T) {
	clock := newFakeClock()
	st := domain.NewState()
	st.RecordToken("stored", clock.Now().Add(-time.Minute))
	repo := &memRepo{state: st}
	src := &fakeSource{rows: map[string][]domain.Row{"cavi": {row(1)}}}
	remote := &fakeRemote{}

	if _, err := newTestEngine(EngineConfig{Clock: clock.Now}, src, remote, repo, nil).Run(context.Background(), []domain.TableMapping{cavi}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if remote.authN != 0 {
		t.Errorf("logins = %d, want 0", remote.authN)
	}
	if remote.calls[0].token != "stored" {
		t.Errorf("token = %q, want stored", remote.calls[0].token)
	}
}

func TestEngineAuthFailureAbortsBeforeFetch(t *testing.T) {
	src := &fakeSource{rows: map[string][]domain.Row{"cavi": {row(1)}}}
	remote := &fakeRemote{authErr: domain.ErrAuth}
	repo := &memRepo{}

	_, err := newTestEngine(EngineConfig{}, src, remote, repo, nil).Run(context.Background(), []domain.TableMapping{cavi})
	if !errors.Is(err, domain.ErrAuth) {
		t.Fatalf("Run() error = %v, want ErrAuth", err)
	}
	if len(src.fetches) != 0 {
		t.Errorf("fetches = %v, want none", src.fetches)
	}
	if repo.saves != 1 {
		t.Errorf("saves = %d, want 1", repo.saves)
	}
}

func TestEngineFullResyncEditsFromZero(t *testing.T) {
	st := domain.NewState()
	st.AdvanceWatermark("cavi", 2)
	repo := &memRepo{state: st}
	src := &fakeSource{rows: map[string][]domain.Row{"cavi": {row(1), row(2), row(3)}}}
	remote := &fakeRemote{existing: map[int64]bool{1: true, 2: true}}

	report, err := newTestEngine(EngineConfig{FullResync: true, AllowEdit: true}, src, remote, repo, nil).Run(context.Background(), []domain.TableMapping{cavi})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if src.fetches[0] != 0 {
		t.Errorf("fetch after = %d, want 0", src.fetches[0])
	}
	tr := report.Tables[0]
	if tr.Edited != 2 || tr.Created != 1 {
		t.Errorf("report = %+v, want 2 edited 1 created", tr)
	}
	if !remote.calls[0].allowEdit {
		t.Error("allowEdit not passed to remote")
	}
	if got := repo.state.Watermark("cavi"); got != 3 {
		t.Errorf("watermark = %d, want 3", got)
	}
}

func TestEngineSkipsExistingWithoutEdit(t *testing.T) {
	src := &fakeSource{rows: map[string][]domain.Row{"cavi": {row(1), row(2)}}}
	remote := &fakeRemote{existing: map[int64]bool{1: true}}
	repo := &memRepo{}

	report, err := newTestEngine(EngineConfig{}, src, remote, repo, nil).Run(context.Background(), []domain.TableMapping{cavi})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if tr := report.Tables[0]; tr.Skipped != 1 || tr.Created != 1 {
		t.Errorf("report = %+v", tr)
	}
	if got := repo.state.Watermark("cavi"); got != 2 {
		t.Errorf("watermark = %d, want 2 (skipped rows count as migrated)", got)
	}
}

func TestEngineRejectsNonIntegerKey(t *testing.T) {
	bad := domain.NewRow([]string{"CODE", "NAME"}, []any{"abc", "x"})
	src := &fakeSource{rows: map[string][]domain.Row{"cavi": {bad}}}
	remote := &fakeRemote{}

	_, err := newTestEngine(EngineConfig{}, src, remote, &memRepo{}, nil).Run(context.Background(), []domain.TableMapping{cavi})
	if !errors.Is(err, domain.ErrBadKey) {
		t.Fatalf("Run() error = %v, want ErrBadKey", err)
	}
	if len(remote.calls) != 0 {
		t.Errorf("remote writes = %d, want 0", len(remote.calls))
	}
}

func TestEngineSendsTranscodedRow(t *testing.T) {
	src := &fakeSource{rows: map[string][]domain.Row{"cavi": {row(1, "X_COORD", "45.12", "CODICELOCALE", "X1", "FASE", "B")}}}
	remote := &fakeRemote{}

	report, err := newTestEngine(EngineConfig{}, src, remote, &memRepo{}, nil).Run(context.Background(), []domain.TableMapping{cavi})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	got := remote.calls[0].transcoded
	if v, _ := got.Get("X_COORD"); v != "45,12" {
		t.Errorf("X_COORD = %v", v)
	}
	if v, _ := got.Get("CODICE_LOCALE"); v != "X1" {
		t.Errorf("CODICE_LOCALE = %v", v)
	}
	if v, _ := got.Get("FASE"); v != int64(2) {
		t.Errorf("FASE = %v", v)
	}
	if report.Tables[0].Warnings != 0 {
		t.Errorf("warnings = %d", report.Tables[0].Warnings)
	}
}

func TestEngineCountsTranscodeWarnings(t *testing.T) {
	src := &fakeSource{rows: map[string][]domain.Row{"cavi": {row(1, "Y_COORD", "n/a")}}}
	remote := &fakeRemote{}

	report, err := newTestEngine(EngineConfig{}, src, remote, &memRepo{}, nil).Run(context.Background(), []domain.TableMapping{cavi})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.Tables[0].Warnings != 1 {
		t.Errorf("warnings = %d, want 1", report.Tables[0].Warnings)
	}
	if v, _ := remote.calls[0].transcoded.Get("Y_COORD"); v != "n/a" {
		t.Errorf("Y_COORD = %v, want unchanged", v)
	}
}

func TestEngineCheckpointModes(t *testing.T) {
	other := domain.TableMapping{Table: "other", Object: "elf_tbl_other"}
	for _, tt := range []struct {
		mode  CheckpointMode
		saves int
	}{
		{CheckpointRun, 1},
		{CheckpointTable, 3},
	} {
		t.Run(string(tt.mode), func(t *testing.T) {
			src := &fakeSource{rows: map[string][]domain.Row{"cavi": {row(1)}, "other": {row(5)}}}
			repo := &memRepo{}

			_, err := newTestEngine(EngineConfig{Checkpoint: tt.mode}, src, &fakeRemote{}, repo, nil).Run(context.Background(), []domain.TableMapping{cavi, other})
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if repo.saves != tt.saves {
				t.Errorf("saves = %d, want %d", repo.saves, tt.saves)
			}
		})
	}
}

func TestEngineFetchError(t *testing.T) {
	src := &fakeSource{err: errBoom}
	repo := &memRepo{}

	_, err := newTestEngine(EngineConfig{}, src, &fakeRemote{}, repo, nil).Run(context.Background(), []domain.TableMapping{cavi})
	if !errors.Is(err, errBoom) {
		t.Fatalf("Run() error = %v, want errBoom", err)
	}
	if repo.saves != 1 {
		t.Errorf("saves = %d, want 1", repo.saves)
	}
}

func TestEngineCombinesSaveError(t *testing.T) {
	saveErr := errors.New("disk full")

	t.Run("clean pass", func(t *testing.T) {
		repo := &memRepo{saveErr: saveErr}
		_, err := newTestEngine(EngineConfig{}, &fakeSource{}, &fakeRemote{}, repo, nil).Run(context.Background(), []domain.TableMapping{cavi})
		if !errors.Is(err, saveErr) {
			t.Fatalf("Run() error = %v, want save error", err)
		}
	})

	t.Run("failed pass", func(t *testing.T) {
		repo := &memRepo{saveErr: saveErr}
		remote := &fakeRemote{authErr: domain.ErrAuth}
		_, err := newTestEngine(EngineConfig{}, &fakeSource{}, remote, repo, nil).Run(context.Background(), []domain.TableMapping{cavi})
		if !errors.Is(err, saveErr) || !errors.Is(err, domain.ErrAuth) {
			t.Fatalf("Run() error = %v, want both errors", err)
		}
	})
}

func TestEngineCanceledContextKeepsProgress(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	src := &fakeSource{rows: map[string][]domain.Row{"cavi": {row(1), row(2), row(3)}}}
	remote := &fakeRemote{onUpsert: func(pk int64) {
		if pk == 2 {
			cancel()
		}
	}}
	repo := &memRepo{}

	_, err := newTestEngine(EngineConfig{}, src, remote, repo, nil).Run(ctx, []domain.TableMapping{cavi})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
	if got := repo.state.Watermark("cavi"); got != 2 {
		t.Errorf("watermark = %d, want 2", got)
	}
}
