package chainsig

import (
	"crypto/tls"
	"time"
)

// Coordinator network identifiers.
const (
	NetworkMainnet = "mainnet"
	NetworkTestnet = "testnet"
)

// Defaults mirrored from the coordinator-chain signer contract's own
// defaults (§4.3, §6).
const (
	DefaultHTTPTimeout = 30 * time.Second
	DefaultSignGas     = uint64(300_000_000_000_000) // 300 Tgas
	DefaultKeyVersion  = uint32(0)
)

// ChainConfig is a per-foreign-chain configuration fragment. ProviderURL
// is used for Bitcoin/EVM; for Cosmos, Network carries the chain id that is
// resolved via a registry.
type ChainConfig struct {
	ProviderURL string        // EVM RPC endpoint, or Bitcoin esplora-style REST base
	Network     string        // e.g. "mainnet", "testnet", "regtest" for Bitcoin; chain id for Cosmos
	Timeout     time.Duration // per-request timeout; falls back to Config.HTTPTimeout
}

// Config holds the module's configuration: the coordinator chain
// connection, the optional relayer, and per-chain provider endpoints.
type Config struct {
	// CoordinatorNetwork selects which coordinator-chain RPC endpoint set
	// to use (mainnet/testnet).
	CoordinatorNetwork string
	// SignerContractID is the coordinator-chain account id of the signer
	// contract (§6).
	SignerContractID string
	// RelayerURL, if set, routes signs through a meta-transaction relayer
	// instead of a direct change call (§4.2).
	RelayerURL string
	// Chains maps a chain key (e.g. "ethereum", "bitcoin", "cosmoshub-4")
	// to its provider configuration.
	Chains map[string]ChainConfig
	// HTTPTimeout is the default timeout for all outbound HTTP calls.
	HTTPTimeout time.Duration
	// TLSConfig optionally overrides the default TLS configuration used by
	// every HTTP client constructed from this Config.
	TLSConfig *tls.Config
	// SkipTLSVerify disables TLS certificate verification. INSECURE: for
	// local/regtest development only.
	SkipTLSVerify bool
}

// WithDefaults returns a copy of c with zero-valued fields filled in.
func (c Config) WithDefaults() Config {
	if c.CoordinatorNetwork == "" {
		c.CoordinatorNetwork = NetworkMainnet
	}
	if c.HTTPTimeout == 0 {
		c.HTTPTimeout = DefaultHTTPTimeout
	}
	if c.Chains == nil {
		c.Chains = make(map[string]ChainConfig)
	}
	return c
}

// Validate checks required configuration fields, per §7 ConfigInvalid.
func (c *Config) Validate() error {
	if c.SignerContractID == "" {
		return ErrMissingSignerContract
	}
	if c.CoordinatorNetwork != NetworkMainnet && c.CoordinatorNetwork != NetworkTestnet {
		return ErrMissingNetwork
	}
	return nil
}

// ChainConfig looks up a chain's configuration, applying the top-level
// HTTPTimeout as a fallback.
func (c Config) ChainConfig(key string) (ChainConfig, bool) {
	cc, ok := c.Chains[key]
	if !ok {
		return ChainConfig{}, false
	}
	if cc.Timeout == 0 {
		cc.Timeout = c.HTTPTimeout
	}
	return cc, true
}
