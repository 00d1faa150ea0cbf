// Command server wires the receipt and verification services behind one HTTP
// listener. Business logic lives in the internal packages; main only selects
// store implementations from configuration and manages the process lifecycle.
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"docgate/internal/audit"
	auditrelay "docgate/internal/audit/relay"
	"docgate/internal/platform/config"
	"docgate/internal/platform/httpserver"
	"docgate/internal/platform/logger"
	"docgate/internal/platform/metrics"
	"docgate/internal/platform/middleware"
	platformredis "docgate/internal/platform/redis"
	"docgate/internal/receipt"
	receipthandler "docgate/internal/receipt/handler"
	"docgate/internal/verification"
	"docgate/internal/verification/code"
	verificationhandler "docgate/internal/verification/handler"
	"docgate/internal/verification/lock"
	"docgate/internal/verification/token"
	"docgate/pkg/tx"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Store selection: Postgres and Redis when configured, in-memory otherwise.
	var (
		db           *sql.DB
		receiptStore receipt.Store
		lockStore    lock.Store
		auditStore   audit.Store
		codeStore    code.Store
	)
	if cfg.DatabaseURL != "" {
		var err error
		db, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Error("open postgres", "error", err.Error())
			os.Exit(1)
		}
		defer db.Close()
		receiptStore = receipt.NewPostgres(db)
		lockStore = lock.NewPostgres(db)
		auditStore = audit.NewPostgres(db)
	} else {
		receiptStore = receipt.NewInMemoryStore()
		lockStore = lock.NewInMemoryStore()
		auditStore = audit.NewInMemoryStore()
	}

	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		log.Error("connect redis", "error", err.Error())
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		codeStore = code.NewRedis(redisClient.Client)
	} else {
		codeStore = code.NewInMemoryStore()
	}

	auditOpts := []audit.PublisherOption{audit.WithLogger(log)}
	var relay *auditrelay.Relay
	if len(cfg.KafkaBrokers) > 0 {
		relay, err = auditrelay.New(ctx, cfg.KafkaBrokers, cfg.AuditTopic, log)
		if err != nil {
			log.Error("connect kafka", "error", err.Error())
			os.Exit(1)
		}
		defer relay.Close()
		auditOpts = append(auditOpts, audit.WithSink(relay))
	}
	auditPub := audit.NewPublisher(auditStore, auditOpts...)

	receipts, err := receipt.NewService(receiptStore,
		receipt.WithLogger(log),
		receipt.WithMetrics(m),
	)
	if err != nil {
		log.Error("build receipt service", "error", err.Error())
		os.Exit(1)
	}

	codes, err := code.New(codeStore,
		code.WithTTL(cfg.CodeTTL),
		code.WithMaxAttempts(cfg.CodeMaxAttempts),
		code.WithLogger(log),
		code.WithMetrics(m),
	)
	if err != nil {
		log.Error("build code issuer", "error", err.Error())
		os.Exit(1)
	}
	tokens := token.New(cfg.TokenSigningKey, cfg.TokenIssuer,
		token.WithDefaultTTL(cfg.TokenTTL),
		token.WithMaxTTL(cfg.TokenMaxTTL))

	gateway, err := verification.New(codes, tokens, lockStore, auditPub,
		verification.WithLogger(log),
		verification.WithMetrics(m),
		verification.WithTxRunner(tx.NewRunner(db)),
	)
	if err != nil {
		log.Error("build verification gateway", "error", err.Error())
		os.Exit(1)
	}

	router := chi.NewRouter()
	router.Use(middleware.Recovery(log))
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(log))
	router.Use(middleware.Timeout(30 * time.Second))
	receipthandler.New(receipts, log).Register(router)
	verificationhandler.New(gateway, log).Register(router)
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := httpserver.New(cfg.Addr, router)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting docgate", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err.Error())
		os.Exit(1)
	}
}
