package handler

import (
	"stepstyle/internal/adapter/http/middleware"
	redisStore "stepstyle/internal/adapter/storage/redis"
	"stepstyle/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	AuthSvc        ports.AuthService
	AccountSvc     ports.AccountService
	WalletSvc      ports.WalletService
	OrderSvc       ports.OrderService
	TokenSvc       ports.TokenService
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	AuditSvc       ports.AuditService // nil = audit logging disabled
	CORSOrigins    []string
	Mode           string
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	mode := deps.Mode
	if mode == "" {
		mode = gin.ReleaseMode
	}
	gin.SetMode(mode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.CORS(deps.CORSOrigins))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	if deps.AuditSvc != nil {
		r.Use(middleware.AuditLog(deps.AuditSvc))
	}

	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	swagger := r.Group("/swagger")
	{
		swagger.GET("", SwaggerUI)
		swagger.GET("/spec", SwaggerSpec)
	}

	rules := middleware.DefaultRateLimitRules()
	rl := func(group string) gin.HandlerFunc {
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	v1 := r.Group("/api/v1")
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)

	authHandler := NewAuthHandler(deps.AuthSvc, deps.AccountSvc)
	auth := v1.Group("/auth")
	{
		auth.POST("/register", rl("auth_register"), authHandler.Register)
		auth.POST("/login", rl("auth_login"), authHandler.Login)
		auth.GET("/me", jwtAuth, rl("read"), authHandler.Me)
		auth.PUT("/me", jwtAuth, rl("read"), authHandler.UpdateMe)
	}

	walletHandler := NewWalletHandler(deps.WalletSvc)
	wallet := v1.Group("/wallet", jwtAuth)
	{
		wallet.GET("", rl("read"), walletHandler.GetSummary)
		wallet.POST("/earn", rl("wallet_earn"), walletHandler.Earn)
	}

	orderHandler := NewOrderHandler(deps.OrderSvc)
	orders := v1.Group("/orders", jwtAuth)
	{
		orders.POST("", rl("checkout"), orderHandler.Checkout)
		orders.GET("", rl("read"), orderHandler.List)
		orders.GET("/:id", rl("read"), orderHandler.Get)
	}

	return r
}
