package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/bft-labs/rowship/internal/domain"
)

func TestRecorderCountsRows(t *testing.T) {
	r := NewRecorder()
	r.OnRow("cavi", domain.OutcomeCreated, 0)
	r.OnRow("cavi", domain.OutcomeCreated, 2)
	r.OnRow("cavi", domain.OutcomeSkipped, 0)
	r.OnRow("cavi", domain.OutcomeRejected, 0)

	if got := testutil.ToFloat64(r.rows.WithLabelValues("cavi", "created")); got != 2 {
		t.Errorf("created = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.rows.WithLabelValues("cavi", "skipped")); got != 1 {
		t.Errorf("skipped = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.rows.WithLabelValues("cavi", "rejected")); got != 1 {
		t.Errorf("rejected = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.warnings.WithLabelValues("cavi")); got != 2 {
		t.Errorf("warnings = %v, want 2", got)
	}
}

func TestRecorderRunsAndWatermark(t *testing.T) {
	r := NewRecorder()
	r.OnWatermark("cavi", 42)
	r.OnRunFinished(nil, 1500*time.Millisecond)
	r.OnRunFinished(errors.New("boom"), time.Second)

	if got := testutil.ToFloat64(r.watermark.WithLabelValues("cavi")); got != 42 {
		t.Errorf("watermark = %v, want 42", got)
	}
	if got := testutil.ToFloat64(r.runs.WithLabelValues("success")); got != 1 {
		t.Errorf("success runs = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.runs.WithLabelValues("failure")); got != 1 {
		t.Errorf("failed runs = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.runDuration); got != 1 {
		t.Errorf("duration = %v, want 1", got)
	}
}

func TestRecorderPush(t *testing.T) {
	var path, body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		path = req.URL.Path
		b, _ := io.ReadAll(req.Body)
		body = string(b)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	r := NewRecorder()
	r.OnRow("cavi", domain.OutcomeCreated, 0)
	if err := r.Push(context.Background(), srv.URL, "rowship"); err != nil {
		t.Fatalf("Push() error = %v", err)
	}
	if path != "/metrics/job/rowship" {
		t.Errorf("path = %q", path)
	}
	if body == "" {
		t.Error("empty push body")
	}
}

func TestRecorderPushError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := NewRecorder().Push(context.Background(), srv.URL, "rowship")
	if err == nil || !strings.Contains(err.Error(), "push metrics") {
		t.Errorf("Push() error = %v", err)
	}
}
