package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"identity-sync-backend/config"
	_ "identity-sync-backend/docs" // Swagger spec registration
	v1 "identity-sync-backend/internal/delivery/http/v1"
	"identity-sync-backend/internal/domain"
	"identity-sync-backend/internal/repository/clerk"
	"identity-sync-backend/internal/repository/memory"
	"identity-sync-backend/internal/repository/postgres"
	redisrepo "identity-sync-backend/internal/repository/redis"
	"identity-sync-backend/internal/repository/sqlite"
	"identity-sync-backend/internal/usecase"
	"identity-sync-backend/pkg/auth"
	"identity-sync-backend/pkg/database"
	"identity-sync-backend/pkg/identity"
	"identity-sync-backend/pkg/logger"
	"identity-sync-backend/pkg/metrics"
	pkgredis "identity-sync-backend/pkg/redis"
	"identity-sync-backend/pkg/security"
	"identity-sync-backend/pkg/validation"
	"identity-sync-backend/pkg/webhook"

	clerksdk "github.com/clerk/clerk-sdk-go/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
)

// @title           Identity Sync API
// @version         1.0
// @description     Mirrors identity-provider users into a local store and serves the sign-up, sign-in and RPC surface.
// @host            localhost:8080
// @BasePath        /
func main() {
	// 1. Load Config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Setup Loggers
	logger.Init(cfg.LogLevel)
	logger.Log.Info("Starting identity sync backend", "port", cfg.Port)

	securityLog := security.NewSecurityLogger("identity-sync-backend", security.Environment(cfg.GinMode))
	defer func() { _ = securityLog.Sync() }()

	ctx := context.Background()

	// 3. Setup User Store
	var (
		userRepo domain.UserRepository
		dbProbe  usecase.Probe
		closeDB  func()
	)
	if cfg.UsesPostgres() {
		pool, err := database.NewPostgresConnection(ctx, cfg.DBUrl)
		if err != nil {
			logger.Log.Error("Failed to connect to database", "error", err)
			os.Exit(1)
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			logger.Log.Error("Failed to apply migrations", "error", err)
			os.Exit(1)
		}
		userRepo, dbProbe, closeDB = postgres.NewUserRepository(pool), pgProbe(pool), pool.Close
	} else {
		db, err := database.NewSQLiteConnection(ctx, cfg.SQLitePath())
		if err != nil {
			logger.Log.Error("Failed to open database", "error", err)
			os.Exit(1)
		}
		repo := sqlite.NewUserRepository(db)
		if err := repo.Migrate(ctx); err != nil {
			logger.Log.Error("Failed to apply migrations", "error", err)
			os.Exit(1)
		}
		userRepo, dbProbe, closeDB = repo, sqliteProbe(db), func() { _ = db.Close() }
	}
	defer closeDB()

	// 4. Setup Redis (optional)
	probes := map[string]usecase.Probe{"database": dbProbe}
	var redisClient *goredis.Client
	var signupStore domain.SignupStore = memory.NewSignupStore()
	if cfg.RedisURL != "" {
		redisClient, err = pkgredis.NewClient(ctx, pkgredis.Config{URL: cfg.RedisURL, Password: cfg.RedisPassword})
		if err != nil {
			logger.Log.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		signupStore = redisrepo.NewSignupStore(redisClient, redisrepo.DefaultSignupPrefix)
		probes["redis"] = func(ctx context.Context) error { return pkgredis.HealthCheck(ctx, redisClient) }
	}

	// 5. Setup Identity Provider
	providerHTTP := &http.Client{Timeout: 10 * time.Second}
	identityClient := identity.NewClient(identity.Config{
		FrontendAPIURL: cfg.ClerkFrontendAPIURL,
		HTTPClient:     providerHTTP,
	})
	provider := clerk.NewProvider(identityClient, &clerksdk.ClientConfig{BackendConfig: clerksdk.BackendConfig{
		Key:        clerksdk.String(cfg.ClerkSecretKey),
		URL:        clerksdk.String(cfg.BackendAPIURL()),
		HTTPClient: providerHTTP,
	}})
	var profiles domain.ProfileProvider
	if cfg.ClerkSecretKey != "" {
		profiles = provider
	} else {
		logger.Log.Warn("CLERK_SECRET_KEY not configured - lazy user creation relies on the primaryEmail claim only")
	}

	webhookVerifier, err := webhook.NewVerifier(cfg.WebhookSecret)
	if err != nil {
		logger.Log.Error("Invalid webhook secret", "error", err)
		os.Exit(1)
	}

	tokenVerifier, err := newTokenVerifier(ctx, cfg)
	if err != nil {
		logger.Log.Error("Failed to set up session verification", "error", err)
		os.Exit(1)
	}

	// 6. Setup UseCases
	validate := validation.New()
	userSyncUC := usecase.NewUserSyncUsecase(webhookVerifier, userRepo, validate, securityLog)
	sessionUC := usecase.NewSessionUsecase(userRepo, profiles, securityLog)
	userUC := usecase.NewUserUsecase(userRepo)
	signupUC := usecase.NewSignupUsecase(provider, signupStore, validate, usecase.SignupConfig{
		AttemptTTL:       cfg.SignupAttemptTTL(),
		OAuthRedirectURL: cfg.AppURL + "/sso-callback",
		OAuthCompleteURL: cfg.AppURL + "/",
	})
	healthUC := usecase.NewHealthUsecase(probes)

	// 7. Setup Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.RegisterCollectors(registry)

	// 8. Setup Router
	router := v1.NewRouter(v1.RouterDeps{
		UserSyncUC:     userSyncUC,
		SessionUC:      sessionUC,
		UserUC:         userUC,
		SignupUC:       signupUC,
		HealthUC:       healthUC,
		Authorizer:     domain.NewRolePolicy(),
		Verifier:       tokenVerifier,
		Validate:       validate,
		SecurityLog:    securityLog,
		Redis:          redisClient,
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		Config:         cfg,
	})

	// 9. Start Server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Error("Listen failed", "error", err)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Server forced to shutdown", "error", err)
	}

	logger.Log.Info("Server exiting")
}

// newTokenVerifier prefers OIDC discovery when an issuer is configured and
// falls back to JWKS / shared-key verification.
func newTokenVerifier(ctx context.Context, cfg *config.Config) (auth.TokenVerifier, error) {
	if cfg.ClerkIssuer != "" {
		return auth.NewOIDCVerifier(ctx, cfg.ClerkIssuer)
	}
	var jwks *auth.Provider
	if url := cfg.JWKSURL(); url != "" {
		jwks = auth.NewProvider(url, nil)
	}
	if jwks == nil && cfg.ClerkJWTKey == "" {
		logger.Log.Warn("No session verification key configured - every request is treated as signed out")
	}
	return auth.NewJWTVerifier(jwks, cfg.ClerkJWTKey, cfg.ClerkIssuer), nil
}

func pgProbe(pool *pgxpool.Pool) usecase.Probe {
	return func(ctx context.Context) error { return pool.Ping(ctx) }
}

func sqliteProbe(db *sql.DB) usecase.Probe {
	return func(ctx context.Context) error { return db.PingContext(ctx) }
}
