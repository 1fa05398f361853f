package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dwarkesh-labs/transcript-rag/internal/agent"
	"github.com/dwarkesh-labs/transcript-rag/internal/api"
	"github.com/dwarkesh-labs/transcript-rag/internal/auth"
	"github.com/dwarkesh-labs/transcript-rag/internal/config"
	"github.com/dwarkesh-labs/transcript-rag/internal/embedding"
	"github.com/dwarkesh-labs/transcript-rag/internal/ingest"
	"github.com/dwarkesh-labs/transcript-rag/internal/llm"
	"github.com/dwarkesh-labs/transcript-rag/internal/retrieval"
	"github.com/dwarkesh-labs/transcript-rag/internal/store"
	"github.com/dwarkesh-labs/transcript-rag/internal/tokencount"
	"github.com/dwarkesh-labs/transcript-rag/internal/tracing"
	"github.com/dwarkesh-labs/transcript-rag/internal/turns"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	otlpEndpoint := cfg.OTLPEndpoint
	if !cfg.TracingEnabled {
		otlpEndpoint = ""
	}
	tracing.Init(cfg.TracingProject, otlpEndpoint)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracing.Shutdown(shutdownCtx); err != nil {
			slog.Warn("tracing shutdown error", "error", err)
		}
	}()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("connected to database")

	embedder, err := embedding.NewOpenAIEmbedder(cfg.OpenAIKey, cfg.EmbeddingModel, cfg.EmbeddingDimensions)
	if err != nil {
		slog.Error("failed to create embedder", "error", err)
		os.Exit(1)
	}

	llmClient, err := llm.NewOpenAIClient(cfg.OpenAIKey, cfg.ChatModel)
	if err != nil {
		slog.Error("failed to create chat client", "error", err)
		os.Exit(1)
	}

	retrievalRegistry := retrieval.NewRegistry(db, embedder)
	agentFactory := agent.NewFactory(retrievalRegistry, llmClient)
	expander := turns.NewExpander(db)

	chunker := ingest.NewTokenChunker(tokencount.NewCounter(), cfg.ChunkMinTokens, cfg.ChunkMaxTokens, cfg.ChunkOverlapTokens)
	pipeline := ingest.NewPipeline(db, embedder, chunker)

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiry)
	authSvc := auth.NewService(auth.Operator{
		Subject:      cfg.OperatorSubject,
		PasswordHash: cfg.OperatorPasswordHash,
	}, jwtManager)

	router := api.NewRouter(api.Deps{
		Store:      db,
		Retrieval:  retrievalRegistry,
		Agents:     agentFactory,
		Expander:   expander,
		Pipeline:   pipeline,
		JWTManager: jwtManager,
		AuthSvc:    authSvc,
		Logger:     logger,
	})

	srv := &http.Server{
		Addr:         cfg.APIAddr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", cfg.APIAddr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	slog.Info("shutting down server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}
	slog.Info("server stopped")
}
