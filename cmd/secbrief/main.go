package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"secbrief/internal/ai"
	"secbrief/internal/app"
	"secbrief/internal/config"
	"secbrief/internal/logger"
	"secbrief/internal/metrics"
	"secbrief/internal/report"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		days    int
		limit   int
		out     string
		feeds   string
		noFetch bool
	)

	cmd := &cobra.Command{
		Use:   "secbrief",
		Short: "Aggregate security news feeds into an HTML brief",
		Long: `secbrief pulls the configured RSS/Atom feeds, keeps the entries from
the lookback window, deduplicates them, resolves a summary and an
illustration per story, and writes a self-contained HTML report.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// .env is optional; real deployments set the environment directly
			_ = godotenv.Load()

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("days") {
				cfg.LookbackDays = days
			}
			if cmd.Flags().Changed("limit") {
				cfg.PerSourceLimit = limit
			}
			if cmd.Flags().Changed("out") {
				cfg.OutputPath = out
			}
			if cmd.Flags().Changed("feeds") {
				cfg.SourcesPath = feeds
			}
			if noFetch {
				cfg.AllowFetch = false
			}

			logger.Init(cfg.Debug)
			return run(cmd.Context(), cfg)
		},
	}

	cmd.Flags().IntVar(&days, "days", 7, "lookback window in days")
	cmd.Flags().IntVar(&limit, "limit", 25, "max entries taken per source")
	cmd.Flags().StringVar(&out, "out", "secbrief.html", "output report path")
	cmd.Flags().StringVar(&feeds, "feeds", "", "YAML sources file (default: built-in registry)")
	cmd.Flags().BoolVar(&noFetch, "no-fetch", false, "skip article page fetches (no scraped summaries, no page images)")

	return cmd
}

func run(ctx context.Context, cfg *config.Config) error {
	if cfg.MonitoringAddr != "" {
		go startMonitoringServer(cfg.MonitoringAddr)
	}

	rewriter, closeRewriter, err := buildRewriter(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeRewriter()

	pipeline, err := app.New(cfg, rewriter)
	if err != nil {
		return err
	}

	digest, err := pipeline.Run(ctx)
	if err != nil {
		return err
	}
	if len(digest.Items) == 0 {
		slog.Info("nothing to report for this window", "lookback_days", cfg.LookbackDays)
	}

	if err := report.WriteFile(cfg.OutputPath, digest); err != nil {
		return err
	}
	slog.Info("report written", "path", cfg.OutputPath, "items", len(digest.Items))
	return nil
}

// buildRewriter picks the AI backend from config. No provider means the
// summary pipeline runs without the rewrite tier.
func buildRewriter(ctx context.Context, cfg *config.Config) (ai.Rewriter, func(), error) {
	noop := func() {}

	if !cfg.AllowFetch {
		// the AI tier needs article bodies, which need page fetches
		return nil, noop, nil
	}

	switch cfg.AIProvider {
	case "":
		return nil, noop, nil
	case config.ProviderWorkers:
		return ai.NewWorkersClient(cfg.AIAccountID, cfg.AIToken, cfg.AIModel), noop, nil
	case config.ProviderGemini:
		client, err := ai.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.AIModel)
		if err != nil {
			return nil, noop, fmt.Errorf("gemini client: %w", err)
		}
		return client, client.Close, nil
	case config.ProviderOpenAI:
		return ai.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.AIModel), noop, nil
	}
	return nil, noop, fmt.Errorf("unknown AI provider %q", cfg.AIProvider)
}

func startMonitoringServer(addr string) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/metrics", metricsHandler)

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	slog.Info("monitoring server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil {
		slog.Error("monitoring server stopped", "err", err)
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	stats := metrics.Global.GetStats()

	status := "ok"
	if !stats["is_healthy"].(bool) {
		status = "error"
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":     status,
		"last_run":   stats["last_run_time"],
		"last_error": stats["last_error"],
	})
}

func metricsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(metrics.Global.GetStats())
}
