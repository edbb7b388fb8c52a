package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"litrag/internal/config"
	"litrag/internal/ingest"
	"litrag/internal/models"
	"litrag/internal/rag"
	"litrag/internal/util"
)

type Server struct {
	cfg      config.Config
	pipeline *ingest.Pipeline
	engine   *rag.Engine
	logger   *zap.Logger
	metrics  *Metrics
	registry *prometheus.Registry
}

func NewServer(cfg config.Config, pipeline *ingest.Pipeline, engine *rag.Engine, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	registry := prometheus.NewRegistry()
	return &Server{
		cfg:      cfg,
		pipeline: pipeline,
		engine:   engine,
		logger:   logger,
		metrics:  NewMetrics(registry),
		registry: registry,
	}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/ingest", s.handleIngest)
	mux.HandleFunc("/ask", s.handleAsk)
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	return withCORS(mux)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	var req models.IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
		return
	}
	s.metrics.IngestRequests.Inc()
	requestID := uuid.NewString()

	outcome, err := s.pipeline.Ingest(r.Context(), req)
	if err != nil {
		s.logger.Warn("ingest failed",
			zap.String("request_id", requestID),
			zap.String("namespace", req.Namespace),
			zap.Error(err))
		writeErr(w, statusFor(err), err)
		return
	}

	s.metrics.PapersIngested.Add(float64(outcome.IngestedPapers))
	s.metrics.ChunksIngested.Add(float64(outcome.IngestedChunks))
	s.metrics.PapersFailed.Add(float64(len(outcome.FailedPapers)))
	if outcome.TimedOut {
		s.metrics.BudgetExhaustions.Inc()
	}
	s.logger.Info("ingest complete",
		zap.String("request_id", requestID),
		zap.String("namespace", outcome.Namespace),
		zap.Int("ingested_papers", outcome.IngestedPapers),
		zap.Int("ingested_chunks", outcome.IngestedChunks),
		zap.Int("skipped", len(outcome.SkippedPapers)),
		zap.Int("failed", len(outcome.FailedPapers)),
		zap.Bool("timed_out", outcome.TimedOut))
	writeJSON(w, http.StatusOK, outcome)
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	var req models.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
		return
	}

	requestID := uuid.NewString()
	task := strings.ToLower(strings.TrimSpace(req.Task))
	var (
		payload any
		err     error
	)
	switch task {
	case "insights":
		payload, err = s.engine.Insights(r.Context(), req)
	case "gaps":
		payload, err = s.engine.Gaps(r.Context(), req)
	default:
		payload, err = s.engine.Ask(r.Context(), req)
		if task == "" {
			task = "qa"
		}
	}
	if err != nil {
		s.logger.Warn("ask failed",
			zap.String("request_id", requestID),
			zap.String("task", task),
			zap.Error(err))
		writeErr(w, statusFor(err), err)
		return
	}
	s.metrics.AsksServed.WithLabelValues(task).Inc()
	s.logger.Info("ask served",
		zap.String("request_id", requestID),
		zap.String("task", task))
	writeJSON(w, http.StatusOK, payload)
}

// statusFor maps sentinel errors onto HTTP status codes. Anything not
// recognized is an internal error.
func statusFor(err error) int {
	switch {
	case errors.Is(err, util.ErrInvalidRequest), errors.Is(err, util.ErrChunkConfig):
		return http.StatusBadRequest
	case errors.Is(err, util.ErrUpstreamUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, err error) {
	apiErr := toAPIError(code, err)
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"code":    apiErr.Code,
			"message": apiErr.Message,
		},
	})
}

type apiError struct {
	Code    string
	Message string
}

func toAPIError(status int, err error) apiError {
	msg := "Request failed."
	code := "LR-API-4000"
	raw := ""
	if err != nil {
		raw = strings.ToLower(err.Error())
	}

	switch {
	case status == http.StatusBadGateway:
		return apiError{
			Code:    "LR-API-5020",
			Message: "Upstream provider unavailable. Retry shortly.",
		}
	case status >= 500:
		switch {
		case strings.Contains(raw, "connect"), strings.Contains(raw, "dial tcp"), strings.Contains(raw, "connection refused"):
			return apiError{
				Code:    "LR-DB-5002",
				Message: "Database connection is unavailable. Check local services and retry.",
			}
		default:
			return apiError{
				Code:    "LR-API-5000",
				Message: "Internal server error. Please retry or check service logs.",
			}
		}
	case status == http.StatusBadRequest:
		code = "LR-API-4001"
		msg = "Invalid request. Check inputs and retry."
	case status == http.StatusNotFound:
		code = "LR-API-4004"
		msg = "Requested resource was not found."
	case status == http.StatusMethodNotAllowed:
		code = "LR-API-4005"
		msg = "This endpoint does not support the requested method."
	}

	// For 4xx, keep user-safe validation context only.
	if status >= 400 && status < 500 && err != nil {
		switch {
		case strings.Contains(raw, "question is required"):
			msg = "A question is required."
		case strings.Contains(raw, "invalid json"):
			msg = "Malformed JSON request body."
		case strings.Contains(raw, "chunk overlap"):
			msg = "Chunk overlap must be smaller than chunk size."
		}
	}

	return apiError{Code: code, Message: msg}
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
