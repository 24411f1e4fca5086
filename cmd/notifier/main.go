// cmd/notifier/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"estatehub-notifier/internal/channel"
	"estatehub-notifier/internal/channel/chat"
	"estatehub-notifier/internal/channel/email"
	"estatehub-notifier/internal/common/config"
	"estatehub-notifier/internal/common/database"
	"estatehub-notifier/internal/common/logger"
	"estatehub-notifier/internal/repository"
	"estatehub-notifier/internal/server"
	"estatehub-notifier/internal/service/dispatch"
	"estatehub-notifier/internal/service/notification"
	"estatehub-notifier/internal/service/subscription"
)

// retryWithBackoff attempts to execute a function with exponential backoff
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
			delay *= 2 // Exponential backoff
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

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting notifier...",
		zap.String("env", cfg.App.Environment),
		zap.String("version", cfg.App.Version),
	)

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
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	var rds *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rds, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rds.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rds.Close()
	zapLog.Info("Redis connected successfully")

	// --- Repositories ---
	userCacheTTL := time.Duration(cfg.Dispatch.UserCacheTTL) * time.Second
	subscriptions := repository.NewSubscriptionPostgres(pg.DB)
	notifications := repository.NewNotificationPostgres(pg.DB)
	users := repository.NewUserPostgres(pg.DB, rds.Client, userCacheTTL)

	// --- Channel Adapters ---
	var channels []channel.Channel

	if cfg.Email.Enabled {
		emailAdapter, err := email.NewAdapter(ctx, &email.Config{
			AWSRegion: cfg.Email.AWSRegion,
			FromEmail: cfg.Email.FromEmail,
			FromName:  cfg.Email.FromName,
			Subject:   cfg.Email.Subject,
		}, log)
		if err != nil {
			zapLog.Fatal("email adapter failed", zap.Error(err))
		}
		channels = append(channels, emailAdapter)
		zapLog.Info("Email channel enabled", zap.String("region", cfg.Email.AWSRegion))
	}

	var telegramProvider chat.Provider
	if cfg.Telegram.Enabled {
		telegramProvider, err = chat.NewTelegramProvider(cfg.Telegram.Token)
		if err != nil {
			zapLog.Fatal("telegram provider failed", zap.Error(err))
		}
		if err := chat.RegisterWebhook(telegramProvider, cfg.App.BaseURL+cfg.Telegram.WebhookPath); err != nil {
			zapLog.Fatal("telegram webhook registration failed", zap.Error(err))
		}
		channels = append(channels, chat.NewAdapter(telegramProvider, log))
		zapLog.Info("Chat channel enabled", zap.String("webhookPath", cfg.Telegram.WebhookPath))
	}

	// --- Services ---
	records := notification.NewService(notifications, subscriptions, log)
	subscriptionService := subscription.NewService(subscriptions, notifications, users, cfg.Dispatch.SubscriptionLimit, log)
	dispatchService := dispatch.NewService(
		subscriptions, users, records, channels,
		cfg.App.BaseURL,
		time.Duration(cfg.Dispatch.SendTimeout)*time.Millisecond,
		log,
	)
	zapLog.Info("All services initialized")

	// --- HTTP Server: lifecycle events, webhook, health, metrics ---
	srv := server.New(dispatchService, subscriptionService, log)
	mux := srv.Routes()

	if cfg.Telegram.Enabled {
		linker := chat.NewLinker(users, log)
		webhook := chat.NewWebhook(telegramProvider, linker, log)
		mux.HandleFunc(cfg.Telegram.WebhookPath, webhook.Handler())
	}

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:    cfg.App.ListenAddr,
		Handler: mux,
	}
	go func() {
		zapLog.Info("HTTP server listening", zap.String("addr", cfg.App.ListenAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down HTTP server", zap.Error(err))
	}

	zapLog.Info("Notifier stopped gracefully")
}
