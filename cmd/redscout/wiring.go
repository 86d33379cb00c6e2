package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"redscout/internal/approval"
	"redscout/internal/brain"
	"redscout/internal/config"
	"redscout/internal/core/ports"
	"redscout/internal/reply"
	"redscout/internal/safety"
	"redscout/internal/scan"
	"redscout/internal/sources/browser"
	"redscout/internal/sources/mock"
	"redscout/internal/sources/redditapi"
	"redscout/internal/storage"
)

// deps bundles the collaborators one pipeline needs. inspector is nil when
// the selected source cannot read comment metrics back.
type deps struct {
	source    ports.Source
	inspector ports.CommentInspector
	generator *reply.Generator
	approver  ports.Approver
	guard     safety.Gate
	runLog    ports.RunLog
	metricLog ports.MetricLog
	state     ports.StateStore

	closers []func()
}

func (d *deps) close() {
	for _, fn := range d.closers {
		fn()
	}
}

func buildDeps(ctx context.Context, cfg *config.Settings, log *zap.Logger, shard scan.Shard) (*deps, error) {
	d := &deps{}

	if err := buildStores(ctx, cfg, log, d); err != nil {
		return nil, err
	}
	if err := buildSource(ctx, cfg, log, shard, d); err != nil {
		return nil, err
	}

	d.generator = reply.NewGenerator(buildBrain(ctx, cfg, log), cfg.Templates, cfg.UseLLM, log)
	d.guard = safety.NewChecker(cfg)
	d.approver = approval.NewCapped(buildApprover(cfg, log), cfg.MaxApprovalsPerRun)
	return d, nil
}

func buildStores(ctx context.Context, cfg *config.Settings, log *zap.Logger, d *deps) error {
	if cfg.DatabaseURL != "" {
		pg, err := storage.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("postgres store: %w", err)
		}
		log.Info("storage: postgres")
		d.runLog, d.metricLog, d.state = pg, pg, pg
		d.closers = append(d.closers, pg.Close)
		return nil
	}

	state, err := storage.NewJSONStateStore(cfg.StatePath)
	if err != nil {
		return fmt.Errorf("state store: %w", err)
	}
	log.Info("storage: flat files",
		zap.String("run_log", cfg.RunLogPath), zap.String("metrics", cfg.MetricsPath))
	d.runLog = storage.NewCSVRunLog(cfg.RunLogPath)
	d.metricLog = storage.NewCSVMetricLog(cfg.MetricsPath)
	d.state = state
	return nil
}

func buildSource(ctx context.Context, cfg *config.Settings, log *zap.Logger, shard scan.Shard, d *deps) error {
	if cfg.MockMode || cfg.SourceKind == "mock" {
		d.source = mock.New()
		return nil
	}

	switch cfg.SourceKind {
	case "api":
		client := redditapi.NewClient(cfg, redditapi.WithListing(redditapi.Listing{
			Sort:      shard.Sort,
			TimeRange: shard.TimeRange,
		}))
		d.source = client
		d.inspector = client
	case "browser":
		scraper := browser.NewScraper(cfg, browser.ScraperConfig{Headless: true})
		if err := scraper.Start(ctx); err != nil {
			return fmt.Errorf("browser source: %w", err)
		}
		d.source = scraper
		d.closers = append(d.closers, func() { _ = scraper.Close() })
	default:
		return fmt.Errorf("unknown source kind %q", cfg.SourceKind)
	}
	return nil
}

// buildBrain returns nil when the LLM path is off or misconfigured; the
// generator falls back to templates either way.
func buildBrain(ctx context.Context, cfg *config.Settings, log *zap.Logger) ports.Brain {
	if !cfg.UseLLM {
		return nil
	}

	switch cfg.LLM.Provider {
	case "gemini":
		b, err := brain.NewGeminiBrain(ctx, cfg.LLM.APIKey)
		if err != nil {
			log.Warn("gemini brain unavailable, replies fall back to templates", zap.Error(err))
			return nil
		}
		return b
	default:
		b, err := brain.NewOpenAIBrain(brain.OpenAIConfig{
			APIKey:  cfg.LLM.APIKey,
			BaseURL: cfg.LLM.BaseURL,
			Model:   cfg.LLM.Model,
		})
		if err != nil {
			log.Warn("openai brain unavailable, replies fall back to templates", zap.Error(err))
			return nil
		}
		return b
	}
}

func buildApprover(cfg *config.Settings, log *zap.Logger) ports.Approver {
	if cfg.ApproverKind == "telegram" && cfg.Telegram.Token != "" {
		tg, err := approval.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID)
		if err == nil {
			return tg
		}
		log.Warn("telegram approver unavailable, using terminal prompt", zap.Error(err))
	}
	return approval.NewCLI(os.Stdin, os.Stdout, cfg.Credentials.Username)
}
