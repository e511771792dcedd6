package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/CR-AudioViz-AI/crav-newsletter-web/internal/api"
	"github.com/CR-AudioViz-AI/crav-newsletter-web/internal/config"
	"github.com/CR-AudioViz-AI/crav-newsletter-web/internal/repository/postgres"
	"github.com/CR-AudioViz-AI/crav-newsletter-web/internal/repository/rediscache"
	"github.com/CR-AudioViz-AI/crav-newsletter-web/internal/service/events"
	"github.com/CR-AudioViz-AI/crav-newsletter-web/internal/service/suppression"
	"github.com/CR-AudioViz-AI/crav-newsletter-web/internal/sns"
	"github.com/CR-AudioViz-AI/crav-newsletter-web/internal/worker"

	_ "github.com/lib/pq" // PostgreSQL driver
)

func main() {
	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.IsDevelopment() {
		log.Println("[config] development mode: webhook signature verification DISABLED")
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelPing()
	if err := db.PingContext(pingCtx); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sendRepo := postgres.NewSendRepo(db)
	eventRepo := postgres.NewEmailEventRepo(db)
	deadLetterRepo := postgres.NewDeadLetterRepo(db)
	suppressionSvc := suppression.NewService(postgres.NewSuppressionRepo(db))

	// The ledger runs on Redis when configured; Postgres otherwise. Only the
	// Postgres ledger needs the purge janitor, Redis keys expire on their own.
	var ledger events.Ledger
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("Failed to ping redis: %v", err)
		}
		ledger = rediscache.NewIdempotencyLedger(rdb, cfg.Webhook.LedgerRetention())
		log.Printf("[ledger] redis at %s (retention %s)", cfg.Redis.Addr, cfg.Webhook.LedgerRetention())
	} else {
		pgLedger := postgres.NewIdempotencyRepo(db, cfg.Webhook.LedgerRetention())
		ledger = pgLedger
		janitor := worker.NewLedgerJanitor(pgLedger, cfg.Webhook.JanitorInterval())
		go janitor.Start(ctx)
		log.Printf("[ledger] postgres (retention %s)", cfg.Webhook.LedgerRetention())
	}

	processor := events.NewService(sendRepo, eventRepo, ledger, suppressionSvc, deadLetterRepo, events.Config{
		MaxRetries: cfg.Webhook.MaxRetries,
		BaseDelay:  cfg.Webhook.BaseDelay(),
	})

	handler := api.NewWebhookHandler(sns.NewVerifier(nil), processor, deadLetterRepo, cfg.IsDevelopment())
	server := api.NewServer(cfg.Server, handler)

	addr := fmt.Sprintf("%s:%d", cfg.Server.GetHost(), cfg.Server.Port)
	errCh := make(chan error, 1)
	go func() {
		log.Printf("Webhook server listening on %s", addr)
		errCh <- server.ListenAndServe(addr)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	case sig := <-stop:
		log.Printf("Received %s, shutting down...", sig)
		cancel()
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
	}
}
