package v1

import (
	"net/http"
	"strings"

	"identity-sync-backend/config"
	"identity-sync-backend/internal/delivery/http/middleware"
	"identity-sync-backend/internal/domain"
	"identity-sync-backend/internal/usecase"
	"identity-sync-backend/pkg/auth"
	"identity-sync-backend/pkg/security"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	goredis "github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

type RouterDeps struct {
	UserSyncUC domain.UserSyncUsecase
	SessionUC  domain.SessionUsecase
	UserUC     domain.UserUsecase
	SignupUC   domain.SignupUsecase
	HealthUC   usecase.HealthUsecase
	Authorizer domain.Authorizer
	Verifier   auth.TokenVerifier
	Validate   *validator.Validate

	SecurityLog *security.SecurityLogger
	// Redis backs the rate limiters; nil limits per process.
	Redis          *goredis.Client
	MetricsHandler http.Handler
	Config         *config.Config
}

func NewRouter(deps RouterDeps) *gin.Engine {
	cfg := deps.Config
	r := gin.New()

	// Global Middlewares
	r.Use(gin.Recovery())
	r.Use(gin.Logger())
	r.Use(middleware.RequestID())
	r.Use(middleware.Metrics())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins(), cfg.IsProduction()))
	r.Use(middleware.SecurityHeadersMiddleware(cfg.ClerkFrontendAPIURL))
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CSRFMiddleware(strings.HasPrefix(cfg.AppURL, "https://"), "/api/webhooks/", RPCPrefix))
	r.Use(middleware.RouteGate(middleware.DefaultRouteMatcher(), deps.Verifier, cfg.SessionCookieName, deps.SecurityLog))
	r.Use(middleware.SessionContext(deps.SessionUC))

	window := cfg.RateLimitWindow()
	limiter := func(rl middleware.RateLimitConfig) gin.HandlerFunc {
		rl.Redis = deps.Redis
		rl.SecurityLog = deps.SecurityLog
		return middleware.RateLimitMiddleware(rl)
	}

	v1 := r.Group("/v1")
	NewHealthHandler(v1, r, deps.HealthUC, deps.MetricsHandler)
	v1.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	webhooks := r.Group("", limiter(middleware.NewRateLimitConfig("webhook", cfg.RateLimitWebhookThreshold, window)))
	NewWebhookHandler(webhooks, deps.UserSyncUC, deps.SecurityLog)

	procedures := NewRPCProcedures(deps.UserUC, deps.Authorizer, deps.Validate)
	rpcGroup := r.Group("", limiter(middleware.NewRateLimitConfig("rpc", cfg.RateLimitRPCThreshold, window)))
	NewRPCHandler(rpcGroup, procedures, deps.SecurityLog)

	NewPageHandler(r, deps.SignupUC, procedures, deps.SecurityLog, CookieConfig{
		SessionName: cfg.SessionCookieName,
		Secure:      cfg.IsProduction(),
		AttemptTTL:  cfg.SignupAttemptTTL(),
	}, limiter(middleware.AuthRateLimitConfig(window)))

	return r
}
