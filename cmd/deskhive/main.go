package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/deskhive/deskhive/pkg/api"
	"github.com/deskhive/deskhive/pkg/audit"
	"github.com/deskhive/deskhive/pkg/authz"
	"github.com/deskhive/deskhive/pkg/cache"
	"github.com/deskhive/deskhive/pkg/config"
	"github.com/deskhive/deskhive/pkg/identity"
	"github.com/deskhive/deskhive/pkg/invites"
	"github.com/deskhive/deskhive/pkg/middleware"
	"github.com/deskhive/deskhive/pkg/observability"
	"github.com/deskhive/deskhive/pkg/rlspolicy"
	"github.com/deskhive/deskhive/pkg/tenants"
)

func main() {
	startup := logrus.New()
	startup.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.LoadConfig()
	if err != nil {
		startup.Fatalf("Failed to load configuration: %v", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := openDatabase(cfg)
	if err != nil {
		startup.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := rlspolicy.RunMigrations(ctx, db); err != nil {
		startup.Fatalf("Failed to run migrations: %v", err)
	}

	table, err := loadTable(cfg)
	if err != nil {
		startup.Fatalf("Failed to load permission table: %v", err)
	}
	evaluator := authz.NewEvaluator(table)

	// The database policies are recompiled from the same table the
	// evaluator answers from, so the two layers cannot drift.
	if err := rlspolicy.SyncPolicies(ctx, db, evaluator.Table()); err != nil {
		startup.Fatalf("Failed to sync row level security policies: %v", err)
	}
	startup.Info("Row level security policies synced")

	registry := prometheus.NewRegistry()
	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(registry)
	}

	otelProviders, err := observability.InitOTel(ctx, observability.OTelConfig{
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		OTLPEndpoint:   cfg.Observability.OTelEndpoint,
		Enabled:        cfg.Observability.OTelEnabled,
		SampleRate:     1.0,
	})
	if err != nil {
		startup.Fatalf("Failed to initialize telemetry: %v", err)
	}

	recorder, err := audit.NewRecorder(db)
	if err != nil {
		startup.Fatalf("Failed to initialize decision recorder: %v", err)
	}
	audited := audit.NewEvaluator(evaluator, recorder, logger, metrics, true)

	subjects := identity.NewSubjectStore(db)
	resolver := identity.NewResolver(subjects, logger)

	var redisClient *redis.Client
	if cfg.Redis.Enabled && cfg.Redis.URL != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.URL,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}
	subjectCache := cache.NewSubjectCache(redisClient, cfg.Redis.CacheTTL, logger, metrics)

	provider, err := identity.NewOIDCProvider(ctx, cfg.OIDC)
	if err != nil {
		startup.Fatalf("Failed to initialize OIDC provider: %v", err)
	}
	tenantStore := tenants.NewTenantStore(db)
	authenticator := middleware.NewAuthenticator(provider, resolver, subjectCache, tenantStore, logger, metrics)

	invitationStore := invites.NewInvitationStore(db)
	sweeper, err := invites.NewSweeper(invitationStore, logger, metrics, cfg.Authz.SweepSchedule)
	if err != nil {
		startup.Fatalf("Failed to initialize invitation sweeper: %v", err)
	}

	server := api.NewServer(api.Dependencies{
		Authenticator: authenticator.Handler,
		AuthHandlers:  api.NewAuthHandlers(provider, resolver, logger),
		Tenants:       tenants.NewService(tenantStore, subjects, evaluator, subjectCache, logger),
		Invitations:   invites.NewService(invitationStore, subjects, evaluator, subjectCache, logger, metrics),
		Bookings:      api.NewBookingHandlers(db, audited, logger),
		Decisions:     recorder,
		Logger:        logger,
		Metrics:       metrics,
	})

	if cfg.Authz.WatchTable && cfg.Authz.TableOverridePath != "" {
		go watchTable(ctx, cfg, db, evaluator, logger)
	}

	sweeper.Start()
	defer sweeper.Stop()

	apiServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      server.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	healthMux := http.NewServeMux()
	healthMux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			http.Error(w, "database unreachable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	healthMux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	healthServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: healthMux,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		startup.Infof("API server listening on %s", apiServer.Addr)
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		startup.Infof("Health server listening on %s", healthServer.Addr)
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		apiServer.Shutdown(shutdownCtx)
		healthServer.Shutdown(shutdownCtx)
		return otelProviders.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		startup.Fatalf("Server error: %v", err)
	}
	startup.Info("Shutdown complete")
}

func openDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnLifetime)

	pingCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func loadTable(cfg *config.Config) (*authz.PermissionTable, error) {
	if cfg.Authz.TableOverridePath == "" {
		return nil, nil
	}
	return authz.LoadTableFile(cfg.Authz.TableOverridePath)
}

// watchTable reloads the permission table override on change and recompiles
// the database policies so both layers move together.
func watchTable(ctx context.Context, cfg *config.Config, db *sql.DB, evaluator *authz.Evaluator, logger *observability.Logger) {
	err := authz.WatchTableFile(ctx, cfg.Authz.TableOverridePath,
		func(table *authz.PermissionTable) {
			evaluator.Reload(table)
			if err := rlspolicy.SyncPolicies(ctx, db, table); err != nil {
				logger.WithError(err).Error("failed to resync row level security policies after table reload")
				return
			}
			logger.Info("permission table reloaded and policies resynced")
		},
		func(err error) {
			logger.WithError(err).Error("permission table watch error")
		})
	if err != nil {
		logger.WithError(err).Error("permission table watcher stopped")
	}
}
