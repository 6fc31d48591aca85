package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/Mindburn-Labs/retouch/pkg/api"
	"github.com/Mindburn-Labs/retouch/pkg/auth"
	"github.com/Mindburn-Labs/retouch/pkg/blob"
	"github.com/Mindburn-Labs/retouch/pkg/config"
	"github.com/Mindburn-Labs/retouch/pkg/editor"
	"github.com/Mindburn-Labs/retouch/pkg/ledger"
	"github.com/Mindburn-Labs/retouch/pkg/ratelimit"
	"github.com/Mindburn-Labs/retouch/pkg/transform"
)

// clients are the process-wide store and provider handles. They are built
// once; initClients is safe to call repeatedly and later calls are no-ops.
type clients struct {
	coins    ledger.Store
	media    blob.Store
	signer   *blob.LinkSigner
	provider transform.Client
}

var (
	clientsOnce sync.Once
	procClients *clients
	clientsErr  error
)

func initClients(ctx context.Context, cfg *config.Config) (*clients, error) {
	clientsOnce.Do(func() {
		procClients, clientsErr = buildClients(ctx, cfg)
	})
	return procClients, clientsErr
}

func buildClients(ctx context.Context, cfg *config.Config) (*clients, error) {
	coins, err := ledger.NewStoreFromEnv()
	if err != nil {
		return nil, err
	}

	media, err := blob.NewStoreFromEnv(ctx)
	if err != nil {
		return nil, err
	}

	var signer *blob.LinkSigner
	if cfg.BlobBackend == "fs" && cfg.LinkSigningSecret != "" {
		signer = blob.NewLinkSigner([]byte(cfg.LinkSigningSecret), cfg.PublicBaseURL)
	}

	var opts []transform.OpenAIOption
	if cfg.OpenAIModel != "" {
		opts = append(opts, transform.WithModel(cfg.OpenAIModel))
	}
	if cfg.OpenAIBaseURL != "" {
		opts = append(opts, transform.WithBaseURL(cfg.OpenAIBaseURL))
	}
	provider := transform.NewOpenAIClient(cfg.OpenAIAPIKey, opts...)

	return &clients{
		coins:    coins,
		media:    media,
		signer:   signer,
		provider: provider,
	}, nil
}

func runServer() int {
	cfg := config.Load()
	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx := context.Background()
	cl, err := initClients(ctx, cfg)
	if err != nil {
		logger.Error("client init failed", "error", err)
		return 1
	}

	svc := editor.NewService(cl.coins, cl.media, cl.provider, logger)
	server := api.NewServer(svc, cl.media, cl.signer, logger)

	mux := http.NewServeMux()
	server.Routes(mux)

	var limiter ratelimit.Store
	policy := ratelimit.Policy{RPM: cfg.RateLimitRPM, Burst: cfg.RateLimitBurst}
	if cfg.RateLimitRPM > 0 {
		if cfg.RedisAddr != "" {
			limiter = ratelimit.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, 0)
		} else {
			limiter = ratelimit.NewInMemoryStore()
		}
	}

	authenticator := auth.NewAuthenticator([]byte(cfg.JWTSecret))
	if authenticator == nil {
		logger.Warn("JWT_SECRET not set; all protected endpoints will reject requests")
	}

	idemStore := api.NewIdempotencyStore(24 * time.Hour)

	var handler http.Handler = mux
	handler = api.IdempotencyMiddleware(idemStore)(handler)
	handler = auth.RateLimitMiddleware(limiter, policy)(handler)
	handler = auth.NewMiddleware(authenticator)(handler)
	handler = auth.CORSMiddleware(cfg.CORSOrigins)(handler)
	handler = auth.RequestIDMiddleware(handler)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		logger.Error("server failed", "error", err)
		return 1
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err)
		return 1
	}
	return 0
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToUpper(level) {
	case "DEBUG":
		lvl = slog.LevelDebug
	case "WARN":
		lvl = slog.LevelWarn
	case "ERROR":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
