// Package resolver resolves blockchain identities (Ethereum addresses and ENS names)
// for profile pages and account linking.
package resolver

import (
	"context"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Identity is the outcome of resolving an address or ENS name. Address is empty when
// the identifier could not be resolved.
type Identity struct {
	Address   string `json:"address"`
	ENSDomain string `json:"ens_domain"`
}

// Metadata holds ENS text records keyed by their short name (avatar, twitter, ...).
type Metadata map[string]string

// Resolver is the identity lookup consumed by the profile service. Lookup failures are
// soft: they are logged and reported as empty results.
type Resolver interface {
	ResolveIdentifier(ctx context.Context, identifier string) Identity
	Metadata(ctx context.Context, domain string) Metadata
	AddressMetadata(ctx context.Context, address string) (string, Metadata)
}

var ensPattern = regexp.MustCompile(`^[a-z0-9-]+\.eth$`)

// IsValidAddress reports whether s is a hex-encoded Ethereum address.
func IsValidAddress(s string) bool {
	return common.IsHexAddress(s)
}

// IsENSDomain reports whether s looks like a second-level .eth name.
func IsENSDomain(s string) bool {
	return ensPattern.MatchString(strings.ToLower(s))
}

// NormalizeAddress returns the EIP-55 checksummed form of an address, or s unchanged
// when it is not an address.
func NormalizeAddress(s string) string {
	if !common.IsHexAddress(s) {
		return s
	}
	return common.HexToAddress(s).Hex()
}
