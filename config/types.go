package config

import (
	nativecommon "soudefi/native/common"
)

// RPC configures the JSON-RPC listener.
type RPC struct {
	Address string `toml:"Address"`
	// RateLimitPerSecond bounds requests per client IP. Zero disables limiting.
	RateLimitPerSecond float64 `toml:"RateLimitPerSecond"`
	Burst              int     `toml:"Burst"`
	MaxBodyBytes       int64   `toml:"MaxBodyBytes"`
	// TrustProxyHeaders keys rate limits on X-Forwarded-For. Leave off unless
	// a reverse proxy sets the header.
	TrustProxyHeaders bool `toml:"TrustProxyHeaders"`
	// EnableFaucet exposes bank_mint. Development networks only.
	EnableFaucet bool `toml:"EnableFaucet"`
}

// Storage selects the state backend and the auxiliary stores.
type Storage struct {
	// Backend is "leveldb" or "memory".
	Backend    string `toml:"Backend"`
	SyncWrites bool   `toml:"SyncWrites"`
	// EventLog is the SQLite file of committed events. Empty disables it.
	EventLog string `toml:"EventLog"`
	// JournalDir holds the submission WAL. Empty disables it.
	JournalDir string `toml:"JournalDir"`
}

// Logging mirrors observability/logging.Options.
type Logging struct {
	Level      string `toml:"Level"`
	File       string `toml:"File"`
	MaxSizeMB  int    `toml:"MaxSizeMB"`
	MaxBackups int    `toml:"MaxBackups"`
	MaxAgeDays int    `toml:"MaxAgeDays"`
}

// Telemetry mirrors observability/otel.Config.
type Telemetry struct {
	Endpoint    string  `toml:"Endpoint"`
	Insecure    bool    `toml:"Insecure"`
	Headers     string  `toml:"Headers"`
	Traces      bool    `toml:"Traces"`
	Metrics     bool    `toml:"Metrics"`
	SampleRatio float64 `toml:"SampleRatio"`
}

// Swap configures the pool.
type Swap struct {
	TokenAsset string `toml:"TokenAsset"`
}

// Staking configures the vault.
type Staking struct {
	Asset   string `toml:"Asset"`
	RateBps uint64 `toml:"RateBps"`
}

// Pauses halts mutating calls per module.
type Pauses struct {
	Swap    bool `toml:"Swap"`
	Lending bool `toml:"Lending"`
	Staking bool `toml:"Staking"`
}

// View returns the pause set in the form the engines consume.
func (p Pauses) View() nativecommon.PauseView {
	paused := make([]string, 0, 3)
	if p.Swap {
		paused = append(paused, "swap")
	}
	if p.Lending {
		paused = append(paused, "lending")
	}
	if p.Staking {
		paused = append(paused, "staking")
	}
	return nativecommon.NewStaticPauses(paused...)
}
