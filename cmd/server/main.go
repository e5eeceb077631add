package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"tubescript/internal/billing"
	"tubescript/internal/common/config"
	"tubescript/internal/common/database"
	"tubescript/internal/common/logger"
	"tubescript/internal/common/observability"
	"tubescript/internal/pipeline/orchestrator"
	scriptwriter "tubescript/internal/pipeline/script-writer"
	styleanalyzer "tubescript/internal/pipeline/style-analyzer"
	"tubescript/internal/provider"
	"tubescript/internal/quota"
	"tubescript/internal/server"
)

// retryWithBackoff attempts to execute a function with exponential backoff.
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("starting tubescript server",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New("tubescript")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected")

	// --- Init Redis with retry ---
	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rdb, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()
	zapLog.Info("Redis connected")

	// --- Completion provider, selected once from config ---
	completions, err := provider.New(cfg.Providers, log)
	if err != nil {
		zapLog.Fatal("provider init failed", zap.Error(err))
	}
	zapLog.Info("completion provider ready", zap.String("backend", completions.Name()))

	// --- Pipeline ---
	analyzer := styleanalyzer.NewAnalyzer(
		&styleanalyzer.Config{
			MaxTokens:   cfg.Providers.MaxTokens / 2,
			Temperature: 0.5,
		},
		completions, log,
	)
	writer := scriptwriter.NewWriter(
		&scriptwriter.Config{
			MaxTokens:     cfg.Providers.MaxTokens,
			Temperature:   cfg.Providers.Temperature,
			VoiceoverOnly: cfg.Pipeline.VoiceoverOnly,
		},
		completions, log,
	)
	pipeline := orchestrator.New(analyzer, writer, config.GetDuration(cfg.Providers.Timeout), log)

	// --- Usage gate ---
	gate := quota.NewGate(
		&quota.Config{
			FreeTierLimit: cfg.Quota.FreeTierLimit,
			CacheTTL:      config.GetDuration(cfg.Quota.CacheTTL),
		},
		pg.DB, rdb.Client, log,
	)

	// --- Billing bridge ---
	var emailSender *billing.EmailSender
	if cfg.Billing.Email.Enabled {
		emailSender, err = billing.NewEmailSender(ctx, cfg.Billing.Email.Region, cfg.Billing.Email.FromEmail)
		if err != nil {
			zapLog.Fatal("ses client init failed", zap.Error(err))
		}
	}
	billingSvc := billing.NewService(
		&billing.Config{
			SecretKey:     cfg.Billing.Stripe.SecretKey,
			WebhookSecret: cfg.Billing.Stripe.WebhookSecret,
			PriceID:       cfg.Billing.Stripe.PriceID,
			BaseURL:       cfg.App.BaseURL,
		},
		billing.NewStore(pg.DB, rdb.Client),
		emailSender, log,
	)

	srv := server.New(cfg, pipeline, gate, billingSvc, pg, rdb, log).WithRecorder(obs)

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.ListenAndServe(runCtx); err != nil {
		zapLog.Fatal("server exited", zap.Error(err))
	}

	zapLog.Info("shutdown complete")
}
