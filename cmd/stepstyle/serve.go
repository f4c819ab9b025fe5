package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stepstyle/config"
	httpHandler "stepstyle/internal/adapter/http/handler"
	"stepstyle/internal/adapter/storage/memory"
	pgStorage "stepstyle/internal/adapter/storage/postgres"
	redisStorage "stepstyle/internal/adapter/storage/redis"
	"stepstyle/internal/core/ports"
	"stepstyle/internal/service"
	"stepstyle/pkg/logger"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const (
	openAPIPath     = "docs/api/openapi.yaml"
	shutdownTimeout = 10 * time.Second
)

const flagSeedDemo = "seed-demo"

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			seedDemo, err := cmd.Flags().GetBool(flagSeedDemo)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg, log, seedDemo)
		},
	}
	cmd.Flags().Bool(flagSeedDemo, false, "create the demo account before listening")
	return cmd
}

// repositories is the storage backend selected by storage.driver.
type repositories struct {
	accounts   ports.AccountRepository
	wallets    ports.WalletRepository
	ledger     ports.LedgerRepository
	orders     ports.OrderRepository
	idemp      ports.IdempotencyRepository
	audit      ports.AuditRepository
	transactor ports.DBTransactor
	health     ports.HealthChecker
	close      func()
}

func openRepositories(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*repositories, error) {
	if cfg.Storage.Driver == config.StorageDriverMemory {
		log.Warn().Msg("Using in-memory storage; data is lost on restart")
		s := memory.New()
		return &repositories{
			accounts:   memory.NewAccountRepo(s),
			wallets:    memory.NewWalletRepo(s),
			ledger:     memory.NewLedgerRepo(s),
			orders:     memory.NewOrderRepo(s),
			idemp:      memory.NewIdempotencyRepo(s),
			audit:      memory.NewAuditRepo(s),
			transactor: s,
			health:     memory.HealthCheck{},
			close:      func() {},
		}, nil
	}

	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	log.Info().Msg("PostgreSQL connected")

	return &repositories{
		accounts:   pgStorage.NewAccountRepo(pool),
		wallets:    pgStorage.NewWalletRepo(pool),
		ledger:     pgStorage.NewLedgerRepo(pool),
		orders:     pgStorage.NewOrderRepo(pool),
		idemp:      pgStorage.NewIdempotencyRepo(pool),
		audit:      pgStorage.NewAuditRepo(pool),
		transactor: pgStorage.NewTransactor(pool),
		health:     pgStorage.NewHealthCheck(pool),
		close:      pool.Close,
	}, nil
}

func runServer(ctx context.Context, cfg *config.Config, log zerolog.Logger, seedDemo bool) error {
	log.Info().
		Str("mode", cfg.Server.Mode).
		Str("storage", cfg.Storage.Driver).
		Int("port", cfg.Server.Port).
		Msg("Starting StepStyle")

	repos, err := openRepositories(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer repos.close()

	checkers := []ports.HealthChecker{repos.health}

	// Without Redis the idempotency cache falls back to process memory and
	// rate limiting is off.
	var (
		idempCache     ports.IdempotencyCache = memory.NewIdempotencyCache()
		rateLimitStore *redisStorage.RateLimitStore
	)
	if cfg.Redis.Enabled {
		rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer rdb.Close()
		log.Info().Msg("Redis connected")

		idempCache = redisStorage.NewIdempotencyCache(rdb)
		rateLimitStore = redisStorage.NewRateLimitStore(rdb)
		checkers = append(checkers, redisStorage.NewHealthCheck(rdb))
	} else {
		log.Warn().Msg("Redis disabled; rate limiting is off")
	}

	hashSvc := service.NewArgon2HashService()
	if seedDemo {
		if err := newSeeder(cfg, repos, hashSvc, log).seed(ctx, defaultDemoAccount()); err != nil {
			return err
		}
	}
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)

	ledgerSvc := service.NewLedgerService(repos.ledger)
	walletSvc := service.NewWalletService(
		repos.wallets,
		ledgerSvc,
		repos.transactor,
		cfg.Wallet.StepsPerCoin,
		cfg.Wallet.HistoryLimit,
		logger.Component(log, "wallet"),
	)
	orderSvc := service.NewOrderService(
		repos.orders,
		repos.wallets,
		walletSvc,
		repos.idemp,
		idempCache,
		repos.transactor,
		service.OrderOptions{
			EnforceOwnership: cfg.Orders.EnforceOwnership,
			IdempotencyTTL:   cfg.Orders.IdempotencyTTL,
		},
		logger.Component(log, "orders"),
	)
	authSvc := service.NewAuthService(
		repos.accounts,
		ledgerSvc,
		hashSvc,
		tokenSvc,
		repos.transactor,
		cfg.Wallet.SignupBonus,
		logger.Component(log, "auth"),
	)
	accountSvc := service.NewAccountService(repos.accounts)
	auditSvc := service.NewAuditService(repos.audit, logger.Component(log, "audit"))

	if specBytes, err := os.ReadFile(openAPIPath); err == nil {
		httpHandler.SetSwaggerSpec(specBytes)
		log.Info().Msg("OpenAPI spec loaded for Swagger UI at /swagger")
	} else {
		log.Warn().Err(err).Msg("OpenAPI spec not found, Swagger UI will be unavailable")
	}

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		AuthSvc:        authSvc,
		AccountSvc:     accountSvc,
		WalletSvc:      walletSvc,
		OrderSvc:       orderSvc,
		TokenSvc:       tokenSvc,
		RateLimitStore: rateLimitStore,
		HealthCheckers: checkers,
		AuditSvc:       auditSvc,
		CORSOrigins:    cfg.CORS.AllowedOrigins,
		Mode:           cfg.Server.Mode,
		Logger:         logger.Component(log, "http"),
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
		return err
	}

	log.Info().Msg("Server exited")
	return nil
}
