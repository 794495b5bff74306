package v1

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/mirrormatch/ai/core/llm/llmtest"
	"github.com/hrygo/mirrormatch/ai/insight"
	"github.com/hrygo/mirrormatch/ai/metrics"
	"github.com/hrygo/mirrormatch/internal/profile"
	"github.com/hrygo/mirrormatch/matching"
	"github.com/hrygo/mirrormatch/server/service/matchmaker"
	"github.com/hrygo/mirrormatch/store"
	"github.com/hrygo/mirrormatch/store/db/sqlite"
)

func newTestServer(t *testing.T, opts ...matchmaker.Option) *echo.Echo {
	t.Helper()
	p := &profile.Profile{Mode: "dev", Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "api.db"), Version: "0.1.0"}
	driver, err := sqlite.NewDB(p)
	require.NoError(t, err)
	st := store.New(driver, p)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { _ = st.Close() })

	e := echo.New()
	svc := NewAPIV1Service(p, matchmaker.NewService(st, matchmaker.Config{}, opts...))
	require.NoError(t, svc.RegisterGateway(context.Background(), e))
	return e
}

func do(e *echo.Echo, method, path string, body any) *httptest.ResponseRecorder {
	var payload string
	switch b := body.(type) {
	case nil:
	case string:
		payload = b
	default:
		raw, _ := json.Marshal(b)
		payload = string(raw)
	}
	req := httptest.NewRequest(method, path, strings.NewReader(payload))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func uniform(v float64) *matching.PersonalityVector {
	scores := map[string]float64{}
	for _, name := range matching.DefaultRegistry().Names() {
		scores[name] = v
	}
	return &matching.PersonalityVector{Scores: scores}
}

func TestHealth(t *testing.T) {
	e := newTestServer(t)
	rec := do(e, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))

	var resp healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "0.1.0", resp.Version)
	assert.True(t, resp.Release)
	assert.False(t, resp.LLMEnabled)
}

func TestMatch(t *testing.T) {
	e := newTestServer(t)

	testCases := []struct {
		name string
		body any
		code int
	}{
		{"valid", map[string]any{"vector_a": uniform(0.6), "vector_b": uniform(0.6), "context": "romantic"}, http.StatusOK},
		{"default context", map[string]any{"vector_a": uniform(0.6), "vector_b": uniform(0.4)}, http.StatusOK},
		{"invalid context", map[string]any{"vector_a": uniform(0.6), "vector_b": uniform(0.6), "context": "work"}, http.StatusBadRequest},
		{"out of range", map[string]any{"vector_a": uniform(1.5), "vector_b": uniform(0.6)}, http.StatusBadRequest},
		{"missing vector", map[string]any{"vector_a": uniform(0.5)}, http.StatusBadRequest},
		{"malformed", "{", http.StatusBadRequest},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(e, http.MethodPost, "/match", tc.body)
			assert.Equal(t, tc.code, rec.Code, rec.Body.String())
		})
	}

	rec := do(e, http.MethodPost, "/match", map[string]any{"vector_a": uniform(0.6), "vector_b": uniform(0.6)})
	var result matching.MatchResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, matching.ContextHackathon, result.Context)
	assert.GreaterOrEqual(t, result.Score, 0.0)
	assert.LessOrEqual(t, result.Score, 1.0)
}

func TestPairEndpoints(t *testing.T) {
	e := newTestServer(t)
	body := map[string]any{"vector_a": uniform(0.8), "vector_b": uniform(0.2), "context": "hackathon"}

	rec := do(e, http.MethodPost, "/match/all-contexts", body)
	require.Equal(t, http.StatusOK, rec.Code)
	var scores matching.ContextScores
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &scores))
	assert.Len(t, scores.Results, 3)

	rec = do(e, http.MethodPost, "/match/red-flags", body)
	require.Equal(t, http.StatusOK, rec.Code)
	var radar matching.RadarReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &radar))
	assert.Equal(t, matching.ContextHackathon, radar.Context)

	rec = do(e, http.MethodPost, "/match/relationship-type", body)
	require.Equal(t, http.StatusOK, rec.Code)
	var rel matching.Relationship
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rel))
	assert.NotEmpty(t, rel.Type)
}

func TestPortraitEndpoints(t *testing.T) {
	e := newTestServer(t)

	// Inline and wrapped vectors are both accepted.
	rec := do(e, http.MethodPost, "/portrait", map[string]any{"scores": uniform(0.7).Scores})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(e, http.MethodPost, "/portrait", map[string]any{"vector": uniform(0.7)})
	require.Equal(t, http.StatusOK, rec.Code)
	var portrait matching.Portrait
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &portrait))
	assert.Len(t, portrait.DimensionScores, 6)

	rec = do(e, http.MethodPost, "/portrait/growth", map[string]any{"vector_past": uniform(0.4), "vector_now": uniform(0.6)})
	require.Equal(t, http.StatusOK, rec.Code)
	var growth map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &growth))
	assert.Contains(t, growth, "dimension_deltas")
}

func TestGroupMatch(t *testing.T) {
	e := newTestServer(t)
	vectors := []*matching.PersonalityVector{uniform(0.2), uniform(0.4), uniform(0.6), uniform(0.8)}

	rec := do(e, http.MethodPost, "/match/group", map[string]any{
		"vectors": vectors, "names": []string{"a", "b", "c", "d"}, "team_size": 2,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var result map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.EqualValues(t, 6, result["subsets_evaluated"])

	rec = do(e, http.MethodPost, "/match/group", map[string]any{
		"vectors": vectors, "names": []string{"a", "b", "c", "d"}, "team_size": 5,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodPost, "/match/group", map[string]any{
		"vectors": vectors, "names": []string{"a", "b"}, "team_size": 2,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// 30 choose 15 is far beyond the subset bound and fails before scoring.
	var wide []*matching.PersonalityVector
	var names []string
	for i := 0; i < 30; i++ {
		wide = append(wide, uniform(float64(i)/30))
		names = append(names, fmt.Sprintf("m%02d", i))
	}
	rec = do(e, http.MethodPost, "/match/group", map[string]any{
		"vectors": wide, "names": names, "team_size": 15,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "subsets")
}

func TestInsightEndpoints_Unavailable(t *testing.T) {
	e := newTestServer(t)
	for _, path := range []string{"/match/blurb", "/match/opening-message", "/portrait/blind-spot", "/quiz/generate"} {
		rec := do(e, http.MethodPost, path, map[string]any{"vector_a": uniform(0.5), "vector_b": uniform(0.5)})
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, path)
	}
}

func TestInsightEndpoints(t *testing.T) {
	fake := &llmtest.Fake{Response: `{"hook":"Builders, both of you","blurb":"b","shared_traits":["grit"],"complementary":[]}`}
	e := newTestServer(t, matchmaker.WithGenerator(insight.NewGenerator(fake, nil)))

	rec := do(e, http.MethodPost, "/match/blurb", map[string]any{
		"vector_a": uniform(0.6), "vector_b": uniform(0.7), "name_a": "Ada", "name_b": "Lin",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var blurb insight.Blurb
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &blurb))
	assert.Equal(t, "Builders, both of you", blurb.Hook)
	assert.Equal(t, matching.ContextHackathon, blurb.Context)
	assert.Contains(t, fake.LastUserPrompt(), "Ada")

	// Neutral vectors carry no quiz signal.
	rec = do(e, http.MethodPost, "/quiz/generate", map[string]any{"vector": uniform(0.5)})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStoreBackedFlow(t *testing.T) {
	e := newTestServer(t)

	for i, user := range []string{"alice", "bob", "carol"} {
		rec := do(e, http.MethodPost, "/v2/archetype", map[string]any{
			"user_id": user, "partition_id": "guild", "vector": uniform(0.3 + 0.2*float64(i)), "reputation_score": float64(i),
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	rec := do(e, http.MethodPost, "/v2/match", map[string]any{"user_id": "alice", "partition_id": "guild", "top_n": 5})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp matchmaker.MatchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, matching.ContextHackathon, resp.Context)
	assert.Equal(t, 2, resp.CandidatePoolSize)
	assert.Len(t, resp.Matches, 2)

	rec = do(e, http.MethodPost, "/v2/match", map[string]any{"user_id": "ghost", "partition_id": "guild"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(e, http.MethodPost, "/v2/match", map[string]any{"user_id": "alice", "partition_id": "guild", "context": "work"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodPost, "/v2/match/group", map[string]any{"partition_id": "guild", "team_size": 3})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var group map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &group))
	assert.EqualValues(t, 3, group["pool_size"])

	rec = do(e, http.MethodPost, "/v2/match/group", map[string]any{"partition_id": "guild"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var abandon abandonResponse
	for i := 0; i < store.AbandonmentThreshold; i++ {
		rec = do(e, http.MethodPost, "/v2/abandon", map[string]any{"user_id": "bob", "partition_id": "guild"})
		require.Equal(t, http.StatusOK, rec.Code)
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &abandon))
	assert.Equal(t, 3, abandon.AbandonmentCount)
	assert.Equal(t, store.StatusFlagged, abandon.Status)

	// Flagged identities leave the pool.
	rec = do(e, http.MethodPost, "/v2/match", map[string]any{"user_id": "alice", "partition_id": "guild"})
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.CandidatePoolSize)

	rec = do(e, http.MethodPost, "/v2/wallet", map[string]any{"wallet": "ab12", "user_id": "bob"})
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = do(e, http.MethodPost, "/v2/wallet", map[string]any{"wallet": "ab12"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, do(newTestServer(t), http.MethodGet, "/metrics", nil).Code)

	exporter := metrics.NewPrometheusExporter(metrics.DefaultConfig())
	e := newTestServer(t, matchmaker.WithMetrics(exporter))
	do(e, http.MethodPost, "/match/group", map[string]any{
		"vectors": []*matching.PersonalityVector{uniform(0.2), uniform(0.4)}, "names": []string{"a", "b"}, "team_size": 2,
	})

	rec := do(e, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "mirrormatch_team_searches_total")
}
