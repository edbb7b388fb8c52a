package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"litrag/internal/config"
	"litrag/internal/ingest"
	"litrag/internal/models"
	"litrag/internal/providers"
	"litrag/internal/rag"
	"litrag/internal/vector"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Load()
	cfg.EmbedDim = 16
	cfg.LLMProviders = "mock"
	cfg.EmbedProviders = "mock"

	pm, err := providers.NewManager(cfg)
	require.NoError(t, err)
	idx := vector.NewMemoryIndex()
	pipeline := ingest.NewPipeline(cfg, pm, idx, nil, nil, zap.NewNop())
	engine := rag.NewEngine(cfg, pm, idx, zap.NewNop())
	return NewServer(cfg, pipeline, engine, zap.NewNop())
}

func postJSON(t *testing.T, handler http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	buf, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(buf))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	h := testServer(t).Routes()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"ok":true`)
}

func TestIngestThenAsk(t *testing.T) {
	h := testServer(t).Routes()

	rec := postJSON(t, h, "/ingest", models.IngestRequest{
		Namespace: "lit",
		Papers: []models.PaperMetadata{
			{PaperID: "p1", Title: "Caching Strategies", Abstract: "We study caching strategies for retrieval workloads.", Year: 2021},
			{PaperID: "p2", Title: "Vector Indexes", Abstract: "Vector indexes trade recall against latency.", Year: 2022},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var outcome models.IngestOutcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &outcome))
	require.Equal(t, 2, outcome.IngestedPapers)
	require.False(t, outcome.TimedOut)

	rec = postJSON(t, h, "/ask", models.AskRequest{
		Namespace: "lit",
		Question:  "How do caching strategies behave?",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var artifact models.AnswerArtifact
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &artifact))
	require.Equal(t, "json", artifact.ParseMode)
	require.NotEmpty(t, artifact.References)
}

func TestIngestRejectsMalformedJSON(t *testing.T) {
	h := testServer(t).Routes()
	req := httptest.NewRequest(http.MethodPost, "/ingest", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "LR-API-4001")
	require.Contains(t, rec.Body.String(), "Malformed JSON")
}

func TestIngestRejectsBadChunkConfig(t *testing.T) {
	h := testServer(t).Routes()
	overlap := 120
	rec := postJSON(t, h, "/ingest", models.IngestRequest{
		Papers:            []models.PaperMetadata{{PaperID: "p1", Title: "T", Abstract: "A"}},
		ChunkSizeWords:    80,
		ChunkOverlapWords: &overlap,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "Chunk overlap must be smaller than chunk size.")
}

func TestAskRequiresQuestion(t *testing.T) {
	h := testServer(t).Routes()
	rec := postJSON(t, h, "/ask", models.AskRequest{Namespace: "lit"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "A question is required.")
}

func TestAskRoutesInsightsAndGaps(t *testing.T) {
	h := testServer(t).Routes()

	rec := postJSON(t, h, "/ask", models.AskRequest{Task: "insights", Question: "Map the field."})
	require.Equal(t, http.StatusOK, rec.Code)
	var insights models.InsightsArtifact
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &insights))
	require.NotNil(t, insights.Insights.AgreementClusters)

	rec = postJSON(t, h, "/ask", models.AskRequest{Task: "gaps"})
	require.Equal(t, http.StatusOK, rec.Code)
	var gaps models.GapsArtifact
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &gaps))
	require.Equal(t, "What are the major research gaps?", gaps.Question)
}

func TestMethodNotAllowed(t *testing.T) {
	h := testServer(t).Routes()
	req := httptest.NewRequest(http.MethodGet, "/ingest", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	require.Contains(t, rec.Body.String(), "LR-API-4005")
}

func TestMetricsEndpoint(t *testing.T) {
	h := testServer(t).Routes()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}
