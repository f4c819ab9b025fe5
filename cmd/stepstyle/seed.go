package main

import (
	"context"
	"fmt"

	"stepstyle/config"
	"stepstyle/internal/core/domain"
	"stepstyle/internal/core/ports"
	"stepstyle/internal/service"
	"stepstyle/pkg/logger"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// demoAccount is the shopper created by `stepstyle seed`.
type demoAccount struct {
	Email      string
	Password   string
	Name       string
	Coins      int64
	TotalSteps int64
	StepsToday int64
	Streak     int
	Badges     []string
}

func defaultDemoAccount() demoAccount {
	return demoAccount{
		Email:      "demo@stepstyle.com",
		Password:   "Demo@123",
		Name:       "Demo User",
		Coins:      2500,
		TotalSteps: 152000,
		StepsToday: 8540,
		Streak:     14,
		Badges:     []string{"Early Bird", "Step Master", "10K Club"},
	}
}

func newSeedCommand() *cobra.Command {
	demo := defaultDemoAccount()

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the demo shopper account",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.Storage.Driver == config.StorageDriverMemory {
				log.Warn().Msg("In-memory storage is discarded when seed exits; use serve --seed-demo instead")
			}

			ctx := cmd.Context()
			repos, err := openRepositories(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer repos.close()

			return newSeeder(cfg, repos, service.NewArgon2HashService(), log).seed(ctx, demo)
		},
	}
	cmd.Flags().StringVar(&demo.Email, "email", demo.Email, "demo account email")
	cmd.Flags().StringVar(&demo.Password, "password", demo.Password, "demo account password")
	return cmd
}

type seeder struct {
	accounts ports.AccountRepository
	auth     ports.AuthService
	wallet   *service.WalletServiceImpl
	log      zerolog.Logger
}

func newSeeder(cfg *config.Config, repos *repositories, hashSvc ports.HashService, log zerolog.Logger) *seeder {
	log = logger.Component(log, "seed")
	ledgerSvc := service.NewLedgerService(repos.ledger)
	walletSvc := service.NewWalletService(
		repos.wallets,
		ledgerSvc,
		repos.transactor,
		cfg.Wallet.StepsPerCoin,
		cfg.Wallet.HistoryLimit,
		log,
	)
	authSvc := service.NewAuthService(
		repos.accounts,
		ledgerSvc,
		hashSvc,
		service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer),
		repos.transactor,
		cfg.Wallet.SignupBonus,
		log,
	)
	return &seeder{accounts: repos.accounts, auth: authSvc, wallet: walletSvc, log: log}
}

// seed registers the demo account, tops its balance up to demo.Coins through
// the ledger, then imports its activity. An existing account is left as is.
func (s *seeder) seed(ctx context.Context, demo demoAccount) error {
	existing, err := s.accounts.GetByEmail(ctx, domain.NormalizeEmail(demo.Email))
	if err != nil {
		return fmt.Errorf("look up demo account: %w", err)
	}
	if existing != nil {
		s.log.Info().Str("email", demo.Email).Msg("Demo account already exists")
		return nil
	}

	res, err := s.auth.Register(ctx, ports.RegisterRequest{
		Email:    demo.Email,
		Password: demo.Password,
		Name:     demo.Name,
	})
	if err != nil {
		return fmt.Errorf("register demo account: %w", err)
	}
	id := res.Account.ID

	if topUp := demo.Coins - res.Account.Wallet.CoinBalance; topUp > 0 {
		if _, err := s.wallet.Earn(ctx, ports.EarnRequest{
			AccountID:   id,
			Amount:      topUp,
			Description: "Demo balance",
		}); err != nil {
			return fmt.Errorf("credit demo coins: %w", err)
		}
	}

	if _, err := s.wallet.ImportProgress(ctx, ports.ProgressImport{
		AccountID:  id,
		TotalSteps: demo.TotalSteps,
		StepsToday: demo.StepsToday,
		Streak:     demo.Streak,
		Badges:     demo.Badges,
	}); err != nil {
		return fmt.Errorf("import demo progress: %w", err)
	}

	s.log.Info().Str("email", demo.Email).Str("account_id", id.String()).Msg("Demo account created")
	return nil
}
