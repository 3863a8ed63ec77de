package config

import (
	"time"

	"github.com/ashfall-labs/burnwatcher/pkg/common/constant"
	"github.com/ashfall-labs/burnwatcher/pkg/common/enum"
	"github.com/shopspring/decimal"
)

type Config struct {
	Environment string     `yaml:"environment" validate:"omitempty,oneof=production development"`
	Watcher     WatcherCfg `yaml:"watcher"`
	Stats       StatsCfg   `yaml:"stats"`
	Ledger      LedgerCfg  `yaml:"ledger"`
	API         APICfg     `yaml:"api"`
	KVStore     KVStoreCfg `yaml:"kvstore"`
	NATS        NATSCfg    `yaml:"nats"`
}

// WatcherCfg holds everything the chain-facing side needs: where to subscribe,
// where to query, which token and addresses to act on, and how to act.
type WatcherCfg struct {
	SubscribeEndpoint string        `yaml:"subscribe_endpoint" validate:"required,url"`
	QueryEndpoint     string        `yaml:"query_endpoint"     validate:"required,url"`
	TokenAddress      string        `yaml:"token_address"      validate:"required,eth_addr"`
	RecipientAddress  string        `yaml:"recipient_address"  validate:"required,eth_addr"`
	BurnSinkAddress   string        `yaml:"burn_sink_address"  validate:"required,eth_addr"`
	SigningKey        string        `yaml:"signing_key"        validate:"required"`
	TokenDecimals     *int32        `yaml:"token_decimals"     validate:"omitempty,min=0,max=36"`
	MinAmountToAct    string        `yaml:"min_amount_to_act"`
	SettleDelayMS     *int          `yaml:"settle_delay_ms"    validate:"omitempty,min=0"`
	StartupSweep      bool          `yaml:"startup_sweep"`
	ConfirmTimeout    time.Duration `yaml:"confirm_timeout"`

	// Parsed form of MinAmountToAct, populated by Load.
	MinAmount decimal.Decimal `yaml:"-"`
}

type StatsCfg struct {
	TotalSupply string `yaml:"total_supply"`

	// Parsed form of TotalSupply, populated by Load.
	Supply decimal.Decimal `yaml:"-"`
}

type LedgerCfg struct {
	// Retention is the high-water mark: only the most recent entries survive.
	Retention int `yaml:"retention" validate:"min=0"`
}

type APICfg struct {
	Port int `yaml:"port" validate:"min=0,max=65535"`
	// DebugEndpoints enables the push/clear debug routes. Never turn this on
	// in a production configuration.
	DebugEndpoints bool `yaml:"debug_endpoints"`
}

type KVStoreCfg struct {
	Type   enum.KVStoreType `yaml:"type" validate:"required,oneof=badger consul"`
	Badger BadgerKVCfg      `yaml:"badger"`
	Consul ConsulKVCfg      `yaml:"consul"`
}

type BadgerKVCfg struct {
	Directory string `yaml:"directory"`
	Prefix    string `yaml:"prefix"`
}

type ConsulKVCfg struct {
	Scheme   string      `yaml:"scheme"`
	Address  string      `yaml:"address"`
	Folder   string      `yaml:"folder"`
	Token    string      `yaml:"token"`
	HttpAuth HttpAuthCfg `yaml:"http_auth"`
}

type HttpAuthCfg struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type NATSCfg struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix"`
	Username      string `yaml:"username"`
	Password      string `yaml:"password"`
}

func (c *Config) applyDefaults() {
	if c.Environment == "" {
		c.Environment = constant.EnvDevelopment
	}
	// Pointer fields distinguish "not configured" from an explicit zero:
	// a zero-decimals token and a no-debounce delay are both valid settings.
	if c.Watcher.TokenDecimals == nil {
		d := int32(18)
		c.Watcher.TokenDecimals = &d
	}
	if c.Watcher.SettleDelayMS == nil {
		ms := 3000
		c.Watcher.SettleDelayMS = &ms
	}
	if c.Watcher.ConfirmTimeout == 0 {
		c.Watcher.ConfirmTimeout = 90 * time.Second
	}
	if c.Ledger.Retention == 0 {
		c.Ledger.Retention = constant.DefaultLedgerRetention
	}
	if c.API.Port == 0 {
		c.API.Port = 8080
	}
	if c.KVStore.Type == "" {
		c.KVStore.Type = enum.KVStoreTypeBadger
	}
	if c.KVStore.Badger.Directory == "" {
		c.KVStore.Badger.Directory = ".data/burnwatcher"
	}
	if c.NATS.SubjectPrefix == "" {
		c.NATS.SubjectPrefix = "burnwatcher"
	}
}

// SettleDelay returns the configured debounce window as a duration.
func (c *WatcherCfg) SettleDelay() time.Duration {
	if c.SettleDelayMS == nil {
		return 0
	}
	return time.Duration(*c.SettleDelayMS) * time.Millisecond
}

// Decimals returns the configured token decimals.
func (c *WatcherCfg) Decimals() int32 {
	if c.TokenDecimals == nil {
		return 18
	}
	return *c.TokenDecimals
}
