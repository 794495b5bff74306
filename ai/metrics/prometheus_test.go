package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestPrometheusExporter(t *testing.T) {
	exporter := NewPrometheusExporter(DefaultConfig())

	t.Run("RecordMatchRequest", func(t *testing.T) {
		exporter.RecordMatchRequest("hackathon", 20*time.Millisecond, 12, true)
		exporter.RecordMatchRequest("hackathon", 5*time.Millisecond, 0, false)
		assert.Equal(t, 1.0, testutil.ToFloat64(exporter.matchRequests.WithLabelValues("hackathon", "success")))
		assert.Equal(t, 1.0, testutil.ToFloat64(exporter.matchRequests.WithLabelValues("hackathon", "error")))
	})

	t.Run("RecordMatchResult", func(t *testing.T) {
		exporter.RecordMatchResult("A")
		exporter.RecordMatchResult("A")
		exporter.RecordMatchResult("C")
		assert.Equal(t, 2.0, testutil.ToFloat64(exporter.rerankResults.WithLabelValues("A")))
	})

	t.Run("RecordLLM", func(t *testing.T) {
		exporter.RecordBlurbFailure()
		exporter.RecordLLMCall("openai", "blurb", 800*time.Millisecond, 300, 120)
		assert.Equal(t, 1.0, testutil.ToFloat64(exporter.blurbFailures))
		assert.Equal(t, 120.0, testutil.ToFloat64(exporter.llmTokens.WithLabelValues("openai", "completion")))
	})

	t.Run("RecordLedger", func(t *testing.T) {
		exporter.RecordReconcilerRun(true)
		exporter.RecordTransition("flagged")
		assert.Equal(t, 1.0, testutil.ToFloat64(exporter.reconcilerTransitions.WithLabelValues("flagged")))
	})

	t.Run("RecordHistory", func(t *testing.T) {
		exporter.RecordHistoryPersisted(3)
		exporter.RecordHistoryDropped("queue_full", 2)
		assert.Equal(t, 3.0, testutil.ToFloat64(exporter.historyPersisted))
		assert.Equal(t, 2.0, testutil.ToFloat64(exporter.historyDropped.WithLabelValues("queue_full")))
	})
}

func TestNilExporter(t *testing.T) {
	var exporter *PrometheusExporter
	exporter.RecordMatchRequest("romantic", time.Millisecond, 1, true)
	exporter.RecordMatchResult("B")
	exporter.RecordBlurbFailure()
	exporter.RecordLLMCall("gemini", "quiz", time.Second, 1, 1)
	exporter.RecordTeamSearch(10, true)
	exporter.RecordReconcilerRun(false)
	exporter.RecordTransition("active")
	exporter.RecordHistoryPersisted(1)
	exporter.RecordHistoryDropped("write_error", 1)
}

func TestPrometheusExporterHandler(t *testing.T) {
	exporter := NewPrometheusExporter(DefaultConfig())

	exporter.RecordMatchRequest("friendship", 10*time.Millisecond, 4, true)
	exporter.RecordTeamSearch(210, true)
	exporter.RecordReconcilerRun(true)

	req := httptest.NewRequest("GET", "/metrics", http.NoBody)
	w := httptest.NewRecorder()

	exporter.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	body := w.Body.String()
	for _, name := range []string{
		"mirrormatch_match_requests_total",
		"mirrormatch_match_candidate_pool_size",
		"mirrormatch_team_subsets_evaluated",
		"mirrormatch_ledger_reconciler_runs_total",
	} {
		if !strings.Contains(body, name) {
			t.Errorf("expected %s metric in output", name)
		}
	}
}

func BenchmarkPrometheusExporter(b *testing.B) {
	exporter := NewPrometheusExporter(DefaultConfig())

	b.Run("RecordMatchRequest", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			exporter.RecordMatchRequest("hackathon", 10*time.Millisecond, 20, true)
		}
	})
}
