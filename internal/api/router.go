package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/time/rate"

	_ "github.com/2pbal/account-billing/docs"
	"github.com/2pbal/account-billing/internal/api/handler"
	"github.com/2pbal/account-billing/internal/api/middleware"
	"github.com/2pbal/account-billing/internal/core/ports"
	"github.com/2pbal/account-billing/internal/infrastructure/http/handlers"
)

const metricsSubsystem = "http"

// Services are the use cases exposed over HTTP.
type Services struct {
	Auth          ports.AuthService
	Authorizer    ports.Authorizer
	Accounts      ports.AccountService
	Admin         ports.AdminService
	Billing       ports.BillingService
	Subscriptions ports.SubscriptionService
	Webhooks      ports.WebhookService
}

// Options tune the router.
type Options struct {
	Logger zerolog.Logger
	// SecureCookies marks the session cookie Secure (production).
	SecureCookies bool
	// AuthRateLimit is the per-IP request rate allowed on the credential
	// endpoints, in requests per second. Zero disables the limiter.
	AuthRateLimit float64
	// Registry receives the HTTP metrics. Nil uses the default registry.
	Registry *prometheus.Registry
	// Mongo and Redis feed the readiness check; either may be nil.
	Mongo *mongo.Database
	Redis *redis.Client
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(svc Services, opts Options) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = NewHTTPErrorHandler(opts.Logger)
	e.Validator = handler.NewValidator()

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(opts.Logger))

	promCfg := echoprometheus.MiddlewareConfig{Subsystem: metricsSubsystem}
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if opts.Registry != nil {
		promCfg.Registerer = opts.Registry
		gatherer = opts.Registry
	}
	e.Use(echoprometheus.NewMiddlewareWithConfig(promCfg))

	// --- Dependencies ---
	cookies := handler.CookieOptions{Secure: opts.SecureCookies}
	authHandler := handler.NewAuthHandler(svc.Auth, cookies)
	userHandler := handler.NewUserHandler(svc.Accounts, cookies)
	adminHandler := handler.NewAdminHandler(svc.Admin)
	paymentHandler := handler.NewPaymentHandler(svc.Billing)
	subscriptionHandler := handler.NewSubscriptionHandler(svc.Subscriptions)
	webhookHandler := handler.NewWebhookHandler(svc.Webhooks)

	signedIn := middleware.Auth(svc.Authorizer)
	adminOnly := middleware.AdminOnly(svc.Authorizer)

	// --- Auth routes ---
	auth := e.Group("/auth")
	limited := auth.Group("")
	if opts.AuthRateLimit > 0 {
		limited.Use(authRateLimiter(opts.AuthRateLimit))
	}
	limited.POST("/signup", authHandler.Signup)
	limited.POST("/login", authHandler.Login)
	limited.POST("/verify-email", authHandler.VerifyEmail)
	auth.POST("/logout", authHandler.Logout)
	auth.GET("/me", authHandler.Me, signedIn)

	// --- Self-service ---
	users := e.Group("/users", signedIn)
	users.PUT("/profile", userHandler.UpdateProfile)
	users.PUT("/preferences", userHandler.UpdatePreferences)
	users.POST("/avatar", userHandler.UpdateAvatar)
	users.POST("/change-password", userHandler.ChangePassword)
	users.DELETE("/account", userHandler.DeleteAccount)

	// --- Admin ---
	admin := e.Group("/admin", adminOnly)
	admin.GET("/users", adminHandler.ListUsers)
	admin.GET("/users/:id", adminHandler.GetUser)
	admin.PUT("/users/:id/role", adminHandler.ChangeRole)
	admin.PUT("/users/:id/status", adminHandler.SetStatus)
	admin.DELETE("/users/:id", adminHandler.DeleteUser)
	admin.GET("/activity-logs", adminHandler.ActivityLogs)

	// --- Billing ---
	payments := e.Group("/payments", signedIn)
	payments.POST("/intent", paymentHandler.CreateIntent)
	payments.GET("", paymentHandler.List)

	subs := e.Group("/subscriptions", signedIn)
	subs.POST("", subscriptionHandler.Create)
	subs.GET("", subscriptionHandler.List)
	subs.PUT("/:id", subscriptionHandler.ChangePlan)
	subs.POST("/:id/cancel", subscriptionHandler.Cancel)

	// Authenticated by signature, not by session.
	e.POST("/webhooks/payment", webhookHandler.Receive)

	// --- Operations (no auth required) ---
	healthHandler := handlers.NewHealthHandler()
	healthDepsHandler := handlers.NewHealthDependenciesHandler(opts.Mongo, opts.Redis)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

// requestLogger emits one zerolog line per request.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}

// authRateLimiter throttles credential guessing per client IP.
func authRateLimiter(perSecond float64) echo.MiddlewareFunc {
	burst := int(perSecond * 5)
	if burst < 1 {
		burst = 1
	}
	store := echomiddleware.NewRateLimiterMemoryStoreWithConfig(echomiddleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(perSecond),
		Burst:     burst,
		ExpiresIn: 10 * time.Minute,
	})
	return echomiddleware.RateLimiterWithConfig(echomiddleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		DenyHandler: func(c echo.Context, _ string, _ error) error {
			return echo.NewHTTPError(http.StatusTooManyRequests, "too many requests")
		},
	})
}
