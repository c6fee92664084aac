package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MikeSquared-Agency/digest/internal/analysis"
	"github.com/MikeSquared-Agency/digest/internal/anthropic"
	"github.com/MikeSquared-Agency/digest/internal/api"
	"github.com/MikeSquared-Agency/digest/internal/config"
	"github.com/MikeSquared-Agency/digest/internal/events"
	"github.com/MikeSquared-Agency/digest/internal/pipeline"
	"github.com/MikeSquared-Agency/digest/internal/store"
)

func main() {
	var (
		input  = flag.String("input", "", "transcript export to analyze (one-shot mode)")
		output = flag.String("output", "", "path for the markdown report (one-shot mode)")
		serve  = flag.Bool("serve", false, "run as a daemon with the HTTP API and NATS trigger")
	)
	flag.Parse()

	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	if cfg.AnthropicAPIKey == "" {
		slog.Error("ANTHROPIC_API_KEY is required")
		os.Exit(1)
	}

	llmClient := anthropic.NewClient(cfg.AnthropicAPIKey, cfg.AnthropicModel)
	slog.Info("anthropic client ready", "model", cfg.AnthropicModel)

	policy := analysis.RetryPolicy{
		MaxRetries:  cfg.MaxRetries,
		BackoffBase: time.Duration(cfg.BackoffBaseMs) * time.Millisecond,
	}
	analyzer := analysis.NewAnalyzer(llmClient, policy, slog.Default())
	aggregator := analysis.NewAggregator(llmClient, policy, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// NATS (optional — digest works without it, just no events)
	var eventsClient *events.Client
	if cfg.NatsURL != "" {
		var err error
		eventsClient, err = events.NewClient(cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			slog.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer eventsClient.Close()
		slog.Info("NATS connected", "url", cfg.NatsURL)
	} else {
		slog.Warn("NATS not configured — running without events")
	}

	// Run archive (optional)
	var db *store.Store
	if cfg.DatabaseURL != "" {
		var err error
		db, err = store.New(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		slog.Info("database connected")
	} else {
		slog.Warn("DATABASE_URL not configured — running without run archive")
	}

	// Pipeline — the core
	var notifier pipeline.Notifier
	if eventsClient != nil {
		notifier = eventsClient
	}
	var archive pipeline.Archiver
	if db != nil {
		archive = db
	}
	pipe := pipeline.New(analyzer, aggregator, pipeline.Config{
		ChunkSize:   cfg.ChunkSize,
		Concurrency: cfg.Concurrency,
	}, notifier, archive, slog.Default())

	if !*serve {
		runOnce(ctx, pipe, *input, *output)
		return
	}

	// Daemon mode: NATS trigger + HTTP API.
	if eventsClient != nil {
		err := eventsClient.Subscribe(events.SubjectAnalyzeRequest, func(subject string, data []byte) {
			var req events.AnalyzeRequest
			if err := json.Unmarshal(data, &req); err != nil {
				slog.Error("failed to parse analyze request", "error", err)
				return
			}
			if req.InputRef == "" || req.OutputRef == "" {
				slog.Error("analyze request missing refs")
				return
			}
			if _, err := pipe.Run(context.Background(), req.InputRef, req.OutputRef); err != nil {
				slog.Error("requested run failed", "input", req.InputRef, "error", err)
			}
		})
		if err != nil {
			slog.Error("failed to subscribe to analyze requests", "error", err)
			os.Exit(1)
		}
	}

	srv := api.NewServer(cfg.Port, cfg.APIToken, pipe, db)
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	slog.Info("digest ready", "port", cfg.Port)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")
	cancel()
	slog.Info("digest stopped")
}

func runOnce(ctx context.Context, pipe *pipeline.Pipeline, input, output string) {
	if input == "" || output == "" {
		fmt.Fprintln(os.Stderr, "usage: digest -input transcript.json -output report.md (or -serve)")
		os.Exit(2)
	}

	// Cancel the run on SIGINT/SIGTERM so in-flight chunk calls stop.
	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	final, err := pipe.Run(runCtx, input, output)
	if err != nil {
		slog.Error("run failed", "error", err)
		os.Exit(1)
	}

	fmt.Printf("Analyzed %d messages in %d chunks\n", final.TotalMessages, final.TotalChunks)
	fmt.Printf("Report written to %s\n", output)
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
