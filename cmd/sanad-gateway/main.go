package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pribylovaa/sanad-gateway/internal/cache"
	"github.com/pribylovaa/sanad-gateway/internal/clients"
	"github.com/pribylovaa/sanad-gateway/internal/config"
	"github.com/pribylovaa/sanad-gateway/internal/gateway"
	gwhttp "github.com/pribylovaa/sanad-gateway/internal/http"
	"github.com/pribylovaa/sanad-gateway/internal/metrics"
	"github.com/pribylovaa/sanad-gateway/internal/session"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	cfg := config.MustLoad(configPath)

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)
	log.Info("starting sanad-gateway", "env", cfg.Env, "backend", cfg.Backend.BaseURL)

	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	backend, err := clients.New(*cfg, log, m, nil)
	if err != nil {
		log.Error("backend_init_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}

	rc, err := newRotationCache(rootCtx, cfg.Redis, log)
	if err != nil {
		log.Error("rotation_cache_init_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}

	defer func() {
		if cerr := rc.Close(); cerr != nil {
			log.Warn("rotation_cache_close_failed", slog.String("err", cerr.Error()))
		}
	}()

	gw := gateway.New(backend, gateway.Options{
		Cache:    rc,
		GraceTTL: cfg.Redis.GraceTTL,
		Metrics:  m,
		Logger:   log,
	})

	log.Info("gateway_initialized")

	cookies := session.Options{
		AccessName:  cfg.Cookies.AccessName,
		RefreshName: cfg.Cookies.RefreshName,
		Secure:      cfg.SecureCookies(),
	}

	opts := gwhttp.Options{
		Logger:       log,
		Timeout:      cfg.Timeouts.Service,
		CORSOrigins:  cfg.CORS.AllowedOrigins,
		AuthRequests: cfg.RateLimit.AuthRequests,
		AuthWindow:   cfg.RateLimit.AuthWindow,
		FrontendDir:  cfg.Frontend.Dir,
		Protected:    cfg.Frontend.Protected,
		Cookies:      cookies,
	}

	apiHandler := gwhttp.NewRouter(gw, opts)

	var ready int32 // 0 — not ready; 1 — ready

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if atomic.LoadInt32(&ready) == 1 {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
			return
		}

		http.Error(w, "not ready", http.StatusServiceUnavailable)
	})

	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	mux.Handle("/", apiHandler)

	httpAddr := cfg.HTTP.Addr()
	httpSrv := &http.Server{
		Addr:              httpAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", httpAddr)
	if err != nil {
		log.Error("http_listen_failed", slog.String("addr", httpAddr), slog.String("err", err.Error()))
		os.Exit(1)
	}

	log.Info("http_listen_start", slog.String("addr", httpAddr))

	serveErrCh := make(chan error, 1)
	go func() {
		if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- err
		}
		close(serveErrCh)
	}()

	atomic.StoreInt32(&ready, 1)
	log.Info("gateway_ready")

	select {
	case <-rootCtx.Done():
		log.Info("shutdown_requested")
	case err := <-serveErrCh:
		if err != nil {
			log.Error("http_serve_failed", slog.String("err", err.Error()))
		}
	}

	atomic.StoreInt32(&ready, 0)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_shutdown_incomplete", slog.String("err", err.Error()))
	} else {
		log.Info("http_stopped")
	}

	log.Info("service_stopped")
}

// newRotationCache — Redis при заданном URL, иначе кэш-заглушка (одна реплика).
func newRotationCache(ctx context.Context, cfg config.RedisConfig, log *slog.Logger) (cache.RotationCache, error) {
	if cfg.URL == "" {
		log.Info("rotation_cache_disabled")
		return cache.Noop{}, nil
	}

	rc, err := cache.NewRedisCache(ctx, cfg.URL, cfg.Prefix)
	if err != nil {
		return nil, err
	}

	log.Info("rotation_cache_ready", slog.String("prefix", cfg.Prefix), slog.Duration("grace_ttl", cfg.GraceTTL))
	return rc, nil
}

func setupLogger(env string) *slog.Logger {
	switch env {
	case envLocal:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envDev:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}
