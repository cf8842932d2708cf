package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"soudefi/core/host"
	"soudefi/native/lending"
	"soudefi/native/staking"
)

type Config struct {
	DataDir     string `toml:"DataDir"`
	GenesisFile string `toml:"GenesisFile"`
	// Environment tags logs and telemetry, e.g. "local" or "testnet".
	Environment string `toml:"Environment"`

	RPC       RPC            `toml:"RPC"`
	Storage   Storage        `toml:"Storage"`
	Logging   Logging        `toml:"Logging"`
	Telemetry Telemetry      `toml:"Telemetry"`
	Swap      Swap           `toml:"Swap"`
	Lending   lending.Config `toml:"Lending"`
	Staking   Staking        `toml:"Staking"`
	Pauses    Pauses         `toml:"Pauses"`
}

// Default returns the configuration written on first start.
func Default() *Config {
	return &Config{
		DataDir:     "./sou-data",
		Environment: "local",
		RPC: RPC{
			Address:            ":8545",
			RateLimitPerSecond: 20,
			Burst:              40,
			MaxBodyBytes:       1 << 20,
		},
		Storage: Storage{
			Backend:    "leveldb",
			EventLog:   "events.db",
			JournalDir: "journal",
		},
		Logging: Logging{Level: "info"},
		Telemetry: Telemetry{
			Endpoint: "localhost:4318",
			Insecure: true,
		},
		Swap: Swap{TokenAsset: "SOU"},
		Lending: lending.Config{
			BaseAsset:                 "USD",
			CollateralAsset:           "SOU",
			CollateralRatioBps:        lending.DefaultCollateralRatioBps,
			BaseRateBps:               lending.DefaultBaseRateBps,
			BorrowRateBps:             lending.DefaultBorrowRateBps,
			CollateralQuoteMultiplier: 1,
			WithdrawCheck:             string(lending.WithdrawCheckBalance),
			LiquidatorShareBps:        lending.DefaultLiquidatorShareBps,
		},
		Staking: Staking{Asset: "SOU", RateBps: staking.DefaultRateBps},
	}
}

// Load loads the configuration from the given path, writing the default
// configuration there first when the file does not exist.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	} else if err != nil {
		return nil, err
	}

	cfg := Default()
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config file %s has unknown key %q", path, undecoded[0].String())
	}
	if strings.TrimSpace(cfg.Environment) == "" {
		cfg.Environment = "local"
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := Default()
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

// Deployment converts the module sections into executor parameters.
func (c *Config) Deployment() (host.Deployment, error) {
	params, err := c.Lending.Params()
	if err != nil {
		return host.Deployment{}, err
	}
	deployment := host.Deployment{
		TokenAsset:     strings.TrimSpace(c.Swap.TokenAsset),
		Lending:        params,
		StakingAsset:   strings.TrimSpace(c.Staking.Asset),
		StakingRateBps: c.Staking.RateBps,
		Pauses:         c.Pauses.View(),
	}
	if err := deployment.Validate(); err != nil {
		return host.Deployment{}, err
	}
	return deployment, nil
}

// ResolvePath anchors relative paths at DataDir.
func (c *Config) ResolvePath(p string) string {
	trimmed := strings.TrimSpace(p)
	if trimmed == "" || filepath.IsAbs(trimmed) {
		return trimmed
	}
	return filepath.Join(c.DataDir, trimmed)
}
