// core/genesis/spec.go
package genesis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"soudefi/core/host"
	"soudefi/core/types"
	"soudefi/crypto"
)

// Contract names accepted in deployment records.
const (
	ContractSwap    = "SouSwap"
	ContractLending = "SouSimpleLendingProtocol"
	ContractStaking = "SimpleStaking"
)

// Document is the genesis and deployment description of a fresh store.
type Document struct {
	GenesisTime string                       `json:"genesisTime" yaml:"genesisTime"`
	Alloc       map[string]map[string]string `json:"alloc" yaml:"alloc"` // addr -> asset -> amount
	Deployments []DeploymentSpec             `json:"deployments" yaml:"deployments"`
	Pool        *PoolSeed                    `json:"pool,omitempty" yaml:"pool,omitempty"`

	genesisTimestamp time.Time
	alloc            []allocation
	pool             *poolSeed
}

// DeploymentSpec selects one module and its constructor arguments. Params are
// positional: param1, param2, param3.
type DeploymentSpec struct {
	ContractName      string            `json:"contractName" yaml:"contractName"`
	ConstructorParams map[string]string `json:"constructorParams" yaml:"constructorParams"`
}

// PoolSeed initialises the swap pool from Provider's allocation.
type PoolSeed struct {
	Provider string `json:"provider" yaml:"provider"`
	Token    string `json:"token" yaml:"token"`
	Native   string `json:"native" yaml:"native"`
}

type allocation struct {
	addr   crypto.Address
	asset  string
	amount *big.Int
}

type poolSeed struct {
	provider crypto.Address
	token    *big.Int
	native   *big.Int
}

// Load reads a JSON or YAML document. The format follows the file extension.
func Load(path string) (*Document, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("genesis path must be provided")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read genesis %q: %w", path, err)
	}
	var doc Document
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(raw))
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode genesis %q: %w", path, err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode genesis %q: %w", path, err)
		}
	}
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid genesis %q: %w", path, err)
	}
	return &doc, nil
}

// GenesisTimestamp returns the parsed genesis time, zero when unset.
func (d *Document) GenesisTimestamp() time.Time { return d.genesisTimestamp }

// Validate parses every amount and address in the document.
func (d *Document) Validate() error {
	if strings.TrimSpace(d.GenesisTime) != "" {
		ts, err := time.Parse(time.RFC3339, strings.TrimSpace(d.GenesisTime))
		if err != nil {
			return fmt.Errorf("genesisTime: %w", err)
		}
		d.genesisTimestamp = ts.UTC()
	}

	addrs := make([]string, 0, len(d.Alloc))
	for addr := range d.Alloc {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)
	d.alloc = nil
	for _, addrStr := range addrs {
		addr, err := ParseAccount(addrStr)
		if err != nil {
			return fmt.Errorf("alloc: %w", err)
		}
		assets := make([]string, 0, len(d.Alloc[addrStr]))
		for asset := range d.Alloc[addrStr] {
			assets = append(assets, asset)
		}
		sort.Strings(assets)
		for _, asset := range assets {
			normalized := strings.ToUpper(strings.TrimSpace(asset))
			if normalized == "" {
				return fmt.Errorf("alloc[%q]: empty asset", addrStr)
			}
			amount, err := types.ParseUnits(d.Alloc[addrStr][asset])
			if err != nil {
				return fmt.Errorf("alloc[%q][%q]: %w", addrStr, asset, err)
			}
			d.alloc = append(d.alloc, allocation{addr: addr, asset: normalized, amount: amount})
		}
	}

	seen := make(map[string]struct{}, len(d.Deployments))
	for i, dep := range d.Deployments {
		name := strings.TrimSpace(dep.ContractName)
		switch name {
		case ContractSwap, ContractLending, ContractStaking:
		default:
			return fmt.Errorf("deployments[%d]: unknown contract %q", i, dep.ContractName)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("deployments[%d]: duplicate contract %q", i, name)
		}
		seen[name] = struct{}{}
	}

	d.pool = nil
	if d.Pool != nil {
		provider, err := ParseAccount(d.Pool.Provider)
		if err != nil {
			return fmt.Errorf("pool.provider: %w", err)
		}
		token, err := types.ParseUnits(d.Pool.Token)
		if err != nil {
			return fmt.Errorf("pool.token: %w", err)
		}
		native, err := types.ParseUnits(d.Pool.Native)
		if err != nil {
			return fmt.Errorf("pool.native: %w", err)
		}
		if token.Sign() == 0 || native.Sign() == 0 {
			return fmt.Errorf("pool: token and native amounts must be positive")
		}
		d.pool = &poolSeed{provider: provider, token: token, native: native}
	}
	return nil
}

func param(dep DeploymentSpec, n int) string {
	return strings.TrimSpace(dep.ConstructorParams["param"+strconv.Itoa(n)])
}

// Resolve overlays the deployment records on base. SouSwap takes the token
// asset, SouSimpleLendingProtocol the base and collateral assets plus the
// pool it prices through, SimpleStaking the staked asset and an optional rate.
func (d *Document) Resolve(base host.Deployment) (host.Deployment, error) {
	out := base
	for _, dep := range d.Deployments {
		switch strings.TrimSpace(dep.ContractName) {
		case ContractSwap:
			if token := param(dep, 1); token != "" {
				out.TokenAsset = token
			}
		case ContractLending:
			if asset := param(dep, 1); asset != "" {
				out.Lending.BaseAsset = asset
			}
			if asset := param(dep, 2); asset != "" {
				out.Lending.CollateralAsset = asset
			}
			if pool := param(dep, 3); pool != "" && pool != ContractSwap {
				return host.Deployment{}, fmt.Errorf("%s: param3 must reference %s, got %q", ContractLending, ContractSwap, pool)
			}
		case ContractStaking:
			if asset := param(dep, 1); asset != "" {
				out.StakingAsset = asset
			}
			if rate := param(dep, 2); rate != "" {
				bps, err := strconv.ParseUint(rate, 10, 64)
				if err != nil {
					return host.Deployment{}, fmt.Errorf("%s: param2: %w", ContractStaking, err)
				}
				out.StakingRateBps = bps
			}
		}
	}
	if err := out.Validate(); err != nil {
		return host.Deployment{}, err
	}
	return out, nil
}
