package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

// Load reads the optional YAML config file, applies environment variable
// overrides (the env value always wins), fills defaults and parses the
// decimal-valued fields. Validation is separate so the read-only API mode can
// run without the chain-facing keys; see Validate and ValidateServe.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// env-only configuration is fine
	default:
		return nil, err
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err := cfg.parseAmounts(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}

	setString("RPC_SUBSCRIBE_ENDPOINT", &c.Watcher.SubscribeEndpoint)
	setString("RPC_QUERY_ENDPOINT", &c.Watcher.QueryEndpoint)
	setString("TOKEN_ADDRESS", &c.Watcher.TokenAddress)
	setString("RECIPIENT_ADDRESS", &c.Watcher.RecipientAddress)
	setString("BURN_SINK_ADDRESS", &c.Watcher.BurnSinkAddress)
	setString("SIGNING_KEY", &c.Watcher.SigningKey)
	setString("MIN_AMOUNT_TO_ACT", &c.Watcher.MinAmountToAct)
	setString("TOTAL_SUPPLY", &c.Stats.TotalSupply)

	if v, ok := os.LookupEnv("TOKEN_DECIMALS"); ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			return fmt.Errorf("TOKEN_DECIMALS must be an integer: %w", err)
		}
		decimals := int32(n)
		c.Watcher.TokenDecimals = &decimals
	}
	if v, ok := os.LookupEnv("SETTLE_DELAY_MS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SETTLE_DELAY_MS must be an integer: %w", err)
		}
		c.Watcher.SettleDelayMS = &n
	}
	if v, ok := os.LookupEnv("STARTUP_SWEEP_ENABLED"); ok && v != "" {
		c.Watcher.StartupSweep = v == "1" || strings.EqualFold(v, "true")
	}
	return nil
}

func (c *Config) parseAmounts() error {
	if c.Watcher.MinAmountToAct != "" {
		min, err := decimal.NewFromString(c.Watcher.MinAmountToAct)
		if err != nil {
			return fmt.Errorf("min_amount_to_act is not a number: %w", err)
		}
		c.Watcher.MinAmount = min
	}
	if c.Stats.TotalSupply != "" {
		supply, err := decimal.NewFromString(c.Stats.TotalSupply)
		if err != nil {
			return fmt.Errorf("total_supply is not a number: %w", err)
		}
		c.Stats.Supply = supply
	}
	return nil
}

// Validate checks the full configuration, including everything the watcher
// needs to subscribe, sign and submit. Any failure here is fatal at startup.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return describeValidationError(err)
	}

	key := strings.TrimPrefix(c.Watcher.SigningKey, "0x")
	if len(key) != 64 {
		return fmt.Errorf("signing_key must be a 32-byte hex private key")
	}
	return nil
}

// ValidateServe checks only what the read-only API mode needs: the store and
// the stats supply. The chain-facing keys may be absent.
func (c *Config) ValidateServe() error {
	if err := validate.Struct(&c.KVStore); err != nil {
		return describeValidationError(err)
	}
	if err := validate.Struct(&c.API); err != nil {
		return describeValidationError(err)
	}
	return nil
}

func describeValidationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
		}
		return fmt.Errorf("invalid configuration: %s", strings.Join(fields, ", "))
	}
	return err
}
