package genesis

import (
	"fmt"
	"strings"

	"soudefi/crypto"
)

const modulePrefix = "module:"

// ParseAccount decodes a bech32 account, or "module:<name>" for the account
// owned by a native module.
func ParseAccount(addr string) (crypto.Address, error) {
	trimmed := strings.TrimSpace(addr)
	if name, ok := strings.CutPrefix(trimmed, modulePrefix); ok {
		if strings.TrimSpace(name) == "" {
			return crypto.Address{}, fmt.Errorf("decode account %q: module name required", addr)
		}
		return crypto.ModuleAddress(name), nil
	}
	out, err := crypto.DecodeAddress(trimmed)
	if err != nil {
		return crypto.Address{}, fmt.Errorf("decode account %q: %w", addr, err)
	}
	return out, nil
}
