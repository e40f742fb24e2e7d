package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"retailstore/backend/internal/cache"
	"retailstore/backend/internal/config"
	"retailstore/backend/internal/domain"
	"retailstore/backend/internal/httpapi"
	"retailstore/backend/internal/obs"
	"retailstore/backend/internal/receipts"
	"retailstore/backend/internal/service"
	"retailstore/backend/internal/store"
	pgstore "retailstore/backend/internal/store/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel)
	if err := validateSecurityConfig(cfg); err != nil {
		logger.Fatal().Err(err).Msg("invalid security configuration")
	}
	pricingCfg, err := cfg.Pricing()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid pricing configuration")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	closers := make([]func() error, 0, 2)
	storeOpts := []store.Option{store.WithLogger(logger)}
	serviceOpts := []service.Option{service.WithLogger(logger)}

	if cfg.RedisAddr != "" {
		client := cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		financials := cache.NewRedisFinancialsCache(client, cfg.MetricsNamespace+":financials:")
		if err := financials.Ping(ctx); err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, using in-process receipt numbers and no financials cache")
			_ = client.Close()
		} else {
			storeOpts = append(storeOpts, store.WithSequence(cache.NewRedisSequence(client, cfg.MetricsNamespace+":receipt-seq")))
			serviceOpts = append(serviceOpts, service.WithFinancialsCache(financials, time.Duration(cfg.FinancialsCacheTTLSeconds)*time.Second))
			closers = append(closers, client.Close)
			logger.Info().Str("addr", cfg.RedisAddr).Msg("cache: redis")
		}
	} else {
		logger.Info().Msg("cache: none")
	}

	var archive service.ReceiptArchive
	if cfg.DatabaseURL != "" {
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres unavailable and DATABASE_URL is set; refusing to start with file archive fallback")
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			logger.Fatal().Err(err).Msg("postgres schema")
		}
		archive = pg
		closers = append(closers, pg.Close)
		logger.Info().Msg("receipt archive: postgres")
	} else {
		archive = receipts.NewFileArchive(cfg.ReceiptDir, logger)
		logger.Info().Str("dir", cfg.ReceiptDir).Msg("receipt archive: files")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	serviceOpts = append(serviceOpts, service.WithMetrics(obs.NewMetrics(cfg.MetricsNamespace, registry)))

	st := store.New(pricingCfg, storeOpts...)
	if cfg.SeedSampleData {
		if err := store.Seed(st, st.Now()); err != nil {
			logger.Fatal().Err(err).Msg("seed sample data")
		}
		logger.Info().Msg("sample data loaded")
	}
	svc := service.New(st, archive, serviceOpts...)

	auth, err := httpapi.NewAuthManager(cfg.AuthSecret, time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute, []httpapi.Account{
		{Username: "manager", Password: cfg.ManagerPassword, Role: domain.RoleManager},
		{Username: "cashier", Password: cfg.CashierPassword, Role: domain.RoleCashier},
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("auth accounts")
	}
	api := httpapi.New(svc, auth, httpapi.Options{
		AllowedOrigin: cfg.AllowedOrigin,
		Metrics:       promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		Logger:        logger,
	})

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.Address()).Msg("retail store backend listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdown(server, closers, logger)
}

func shutdown(server *http.Server, closers []func() error, logger zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
	}
	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			logger.Error().Err(err).Msg("close error")
		}
	}
	logger.Info().Msg("server stopped")
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	if cfg.ManagerPassword == "" && cfg.CashierPassword == "" {
		return fmt.Errorf("at least one of MANAGER_PASSWORD or CASHIER_PASSWORD must be set")
	}
	for name, password := range map[string]string{
		"MANAGER_PASSWORD": cfg.ManagerPassword,
		"CASHIER_PASSWORD": cfg.CashierPassword,
	} {
		if password != "" && len(password) < 8 {
			return fmt.Errorf("%s must be at least 8 characters", name)
		}
	}
	return nil
}
