package config

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
	"github.com/simaogato/ledger-backend/internal/adapter/validation"
	"github.com/simaogato/ledger-backend/internal/domain"
)

// Prefix is prepended to every environment variable, e.g. LEDGER_DATA_DIR
const Prefix = "LEDGER"

// Storage backends
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

type Log struct {
	Level      string `envconfig:"LEVEL" default:"info" validate:"oneof=debug info warn error"`
	Format     string `envconfig:"FORMAT" default:"text" validate:"oneof=text json"`
	Prefix     string `envconfig:"PREFIX" default:"ledger"`
	TimeFormat string `envconfig:"TIME_FORMAT" default:"15:04:05"`
}

type Interest struct {
	SavingsIndividual    decimal.Decimal `envconfig:"SAVINGS_INDIVIDUAL" default:"0.0005"`
	SavingsBusiness      decimal.Decimal `envconfig:"SAVINGS_BUSINESS" default:"0.001"`
	InvestmentIndividual decimal.Decimal `envconfig:"INVESTMENT_INDIVIDUAL" default:"0.05"`
	InvestmentBusiness   decimal.Decimal `envconfig:"INVESTMENT_BUSINESS" default:"0.06"`
}

type Limits struct {
	ChequeOverdraft          decimal.Decimal `envconfig:"CHEQUE_OVERDRAFT" default:"500"`
	InvestmentMinimumDeposit decimal.Decimal `envconfig:"INVESTMENT_MINIMUM_DEPOSIT" default:"500"`
	InvestmentMinimumBalance decimal.Decimal `envconfig:"INVESTMENT_MINIMUM_BALANCE" default:"1000"`
}

// Config is the process configuration read from the environment
type Config struct {
	DataDir         string   `envconfig:"DATA_DIR" default:"data" validate:"required"`
	Backend         string   `envconfig:"BACKEND" default:"file" validate:"oneof=file postgres"`
	DatabaseURL     string   `envconfig:"DATABASE_URL" validate:"required_if=Backend postgres"`
	Branch          string   `envconfig:"BRANCH" default:"Main Branch" validate:"required,max=64,ledgertext"`
	BcryptCost      int      `envconfig:"BCRYPT_COST" default:"10" validate:"min=4,max=31"`
	DetectDeadlocks bool     `envconfig:"DETECT_DEADLOCKS" default:"false"`
	Interest        Interest `envconfig:"RATE"`
	Limits          Limits   `envconfig:"LIMIT"`
	Log             Log      `envconfig:"LOG"`
}

// Load reads an optional .env file, then the LEDGER_* environment
func Load(logger *slog.Logger, envFilePath ...string) (*Config, error) {
	var err error
	if len(envFilePath) > 0 && envFilePath[0] != "" {
		err = godotenv.Load(envFilePath[0])
	} else {
		err = godotenv.Load()
	}

	if err != nil {
		logger.Debug("no .env file found or specified, using system environment variables")
	} else {
		logger.Debug("environment variables loaded from .env file")
	}

	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to read configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger.Debug("config loaded",
		"backend", cfg.Backend,
		"data_dir", cfg.DataDir,
		"branch", cfg.Branch,
		"log_level", cfg.Log.Level,
	)
	return &cfg, nil
}

// Validate checks field tags and that every rate and limit is non-negative
func (c *Config) Validate() error {
	if err := validation.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	amounts := map[string]decimal.Decimal{
		"RATE_SAVINGS_INDIVIDUAL":          c.Interest.SavingsIndividual,
		"RATE_SAVINGS_BUSINESS":            c.Interest.SavingsBusiness,
		"RATE_INVESTMENT_INDIVIDUAL":       c.Interest.InvestmentIndividual,
		"RATE_INVESTMENT_BUSINESS":         c.Interest.InvestmentBusiness,
		"LIMIT_CHEQUE_OVERDRAFT":           c.Limits.ChequeOverdraft,
		"LIMIT_INVESTMENT_MINIMUM_DEPOSIT": c.Limits.InvestmentMinimumDeposit,
		"LIMIT_INVESTMENT_MINIMUM_BALANCE": c.Limits.InvestmentMinimumBalance,
	}
	var errs []error
	for name, v := range amounts {
		if v.IsNegative() {
			errs = append(errs, fmt.Errorf("%s_%s must not be negative", Prefix, name))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w: %w", domain.ErrValidation, errors.Join(errs...))
	}
	return nil
}

// Policy returns the bank parameters described by the configuration
func (c *Config) Policy() domain.Policy {
	return domain.Policy{
		Branch:                   c.Branch,
		SavingsRateIndividual:    c.Interest.SavingsIndividual,
		SavingsRateBusiness:      c.Interest.SavingsBusiness,
		InvestmentRateIndividual: c.Interest.InvestmentIndividual,
		InvestmentRateBusiness:   c.Interest.InvestmentBusiness,
		ChequeOverdraftLimit:     c.Limits.ChequeOverdraft,
		InvestmentMinimumDeposit: c.Limits.InvestmentMinimumDeposit,
		InvestmentMinimumBalance: c.Limits.InvestmentMinimumBalance,
	}
}
