// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration. It is loaded once at process
// start and passed explicitly; nothing re-reads configuration mid-run.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Node      NodeConfig      `mapstructure:"node"`
	Wallet    WalletConfig    `mapstructure:"wallet"`
	Transfer  TransferConfig  `mapstructure:"transfer"`
	Arbitrage ArbitrageConfig `mapstructure:"arbitrage"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
}

// NodeConfig holds RPC node connection settings shared by all endpoints.
type NodeConfig struct {
	ConnectRetries int           `mapstructure:"connect_retries"`
	ConnectBackoff time.Duration `mapstructure:"connect_backoff"`
	ReceiptTimeout time.Duration `mapstructure:"receipt_timeout"`
	PollRate       float64       `mapstructure:"poll_rate"` // height polls per second
}

// WalletConfig holds the signing account.
type WalletConfig struct {
	PrivateKey string `mapstructure:"private_key"`
}

// TransferConfig holds the transfer-after-N-blocks program settings.
type TransferConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	ToAddress string `mapstructure:"to_address"`
}

// VenueConfig holds one leg of the arbitrage: its endpoint, the swap
// contract, and the coin pair as seen from that venue.
type VenueConfig struct {
	Endpoint    string `mapstructure:"endpoint"`
	SwapAddress string `mapstructure:"swap_address"`
	SellCoin    string `mapstructure:"sell_coin"`
	BuyCoin     string `mapstructure:"buy_coin"`
}

// ArbitrageConfig holds the two-leg arbitrage program settings.
type ArbitrageConfig struct {
	VenueA VenueConfig `mapstructure:"venue_a"`
	VenueB VenueConfig `mapstructure:"venue_b"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
}

// ToAddressHex returns the transfer destination as common.Address.
func (c *TransferConfig) ToAddressHex() common.Address {
	return common.HexToAddress(c.ToAddress)
}

// SwapAddressHex returns the swap contract address as common.Address.
func (c *VenueConfig) SwapAddressHex() common.Address {
	return common.HexToAddress(c.SwapAddress)
}

// SellCoinHex returns the sell-side coin address as common.Address.
func (c *VenueConfig) SellCoinHex() common.Address {
	return common.HexToAddress(c.SellCoin)
}

// BuyCoinHex returns the buy-side coin address as common.Address.
func (c *VenueConfig) BuyCoinHex() common.Address {
	return common.HexToAddress(c.BuyCoin)
}

// EtherToWei converts an ether-denominated decimal amount to wei.
func EtherToWei(ether decimal.Decimal) *big.Int {
	return ether.Mul(decimal.New(1, 18)).BigInt()
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("TXFLOW")
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)

	// Config file is optional, env vars can carry everything.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.name", "TXFLOW_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "TXFLOW_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "TXFLOW_LOG_LEVEL", "LOG_LEVEL")

	// Wallet
	v.BindEnv("wallet.private_key", "TXFLOW_PRIVATE_KEY", "PRIVATE_KEY")

	// Transfer program
	v.BindEnv("transfer.endpoint", "TXFLOW_TESTNET_ENDPOINT", "TESTNET_ENDPOINT")
	v.BindEnv("transfer.to_address", "TXFLOW_TO_ADDRESS", "TO_ADDRESS")

	// Arbitrage program, leg A
	v.BindEnv("arbitrage.venue_a.endpoint", "TXFLOW_ENDPOINT_1", "ENDPOINT_1")
	v.BindEnv("arbitrage.venue_a.swap_address", "TXFLOW_SWAP_ADDRESS_1", "SWAP_ADDRESS_1")
	v.BindEnv("arbitrage.venue_a.sell_coin", "TXFLOW_COIN_1_ADDRESS_1", "COIN_1_ADDRESS_1")
	v.BindEnv("arbitrage.venue_a.buy_coin", "TXFLOW_COIN_2_ADDRESS_1", "COIN_2_ADDRESS_1")

	// Arbitrage program, leg B
	v.BindEnv("arbitrage.venue_b.endpoint", "TXFLOW_ENDPOINT_2", "ENDPOINT_2")
	v.BindEnv("arbitrage.venue_b.swap_address", "TXFLOW_SWAP_ADDRESS_2", "SWAP_ADDRESS_2")
	v.BindEnv("arbitrage.venue_b.sell_coin", "TXFLOW_COIN_2_ADDRESS_2", "COIN_2_ADDRESS_2")
	v.BindEnv("arbitrage.venue_b.buy_coin", "TXFLOW_COIN_1_ADDRESS_2", "COIN_1_ADDRESS_2")

	// Telemetry
	v.BindEnv("telemetry.enabled", "TXFLOW_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "TXFLOW_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "TXFLOW_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "txflow")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	// Node defaults
	v.SetDefault("node.connect_retries", 5)
	v.SetDefault("node.connect_backoff", "1s")
	v.SetDefault("node.receipt_timeout", "120s")
	v.SetDefault("node.poll_rate", 20.0)

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "txflow")
	v.SetDefault("telemetry.prometheus_port", 9090)
}

// Validate validates the configuration. Address and key validation is eager:
// a malformed address or key aborts startup rather than failing mid-workflow.
func (c *Config) Validate() error {
	if c.Wallet.PrivateKey == "" {
		return fmt.Errorf("wallet.private_key is required")
	}
	if _, err := crypto.HexToECDSA(c.Wallet.PrivateKey); err != nil {
		return fmt.Errorf("invalid wallet.private_key: %w", err)
	}

	if c.Transfer.ToAddress != "" && !common.IsHexAddress(c.Transfer.ToAddress) {
		return fmt.Errorf("invalid transfer.to_address: %s", c.Transfer.ToAddress)
	}

	for name, venue := range map[string]VenueConfig{"venue_a": c.Arbitrage.VenueA, "venue_b": c.Arbitrage.VenueB} {
		if venue.Endpoint == "" {
			continue // leg unused unless the arbitrage program runs
		}
		if !common.IsHexAddress(venue.SwapAddress) {
			return fmt.Errorf("invalid arbitrage.%s.swap_address: %s", name, venue.SwapAddress)
		}
		if !common.IsHexAddress(venue.SellCoin) {
			return fmt.Errorf("invalid arbitrage.%s.sell_coin: %s", name, venue.SellCoin)
		}
		if !common.IsHexAddress(venue.BuyCoin) {
			return fmt.Errorf("invalid arbitrage.%s.buy_coin: %s", name, venue.BuyCoin)
		}
	}

	if c.Node.ConnectRetries < 0 {
		return fmt.Errorf("node.connect_retries cannot be negative")
	}

	return nil
}
