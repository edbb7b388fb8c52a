package main

import (
	"context"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"litrag/internal/api"
	"litrag/internal/config"
	"litrag/internal/discovery"
	"litrag/internal/ingest"
	"litrag/internal/pdftext"
	"litrag/internal/providers"
	"litrag/internal/rag"
	"litrag/internal/vector"
)

func main() {
	_ = godotenv.Load(".env")
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	pm, err := providers.NewManager(cfg)
	if err != nil {
		logger.Fatal("provider setup failed", zap.Error(err))
	}

	var index vector.Index
	switch cfg.VectorBackend {
	case "memory":
		index = vector.NewMemoryIndex()
	default:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		pg, err := vector.NewPGVectorIndex(ctx, cfg.PostgresURL, cfg.VectorTable, cfg.EmbedDim)
		cancel()
		if err != nil {
			logger.Fatal("pgvector setup failed", zap.Error(err))
		}
		defer pg.Close()
		index = pg
	}

	agg := discovery.NewAggregator(logger, discovery.NewMockSource("mock"))
	pdf := pdftext.New(cfg.HTTPUserAgent,
		time.Duration(cfg.PDFFetchSeconds)*time.Second, cfg.MaxPDFPages, cfg.MaxPDFTextChars)

	pipeline := ingest.NewPipeline(cfg, pm, index, agg, pdf, logger)
	engine := rag.NewEngine(cfg, pm, index, logger)
	server := api.NewServer(cfg, pipeline, engine, logger)

	logger.Info("litrag api listening",
		zap.String("addr", cfg.APIAddr),
		zap.String("vector_backend", cfg.VectorBackend),
		zap.String("llm_providers", cfg.LLMProviders),
		zap.String("embed_providers", cfg.EmbedProviders))
	if err := http.ListenAndServe(cfg.APIAddr, server.Routes()); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
