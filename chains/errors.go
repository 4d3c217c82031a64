package chains

import "errors"

// Sentinel errors shared by every chain assembler, mirroring the relevant
// entries of §7's closed taxonomy.
var (
	ErrProviderUnreachable       = errors.New("chains: provider unreachable")
	ErrProtocolInvariantViolated = errors.New("chains: protocol invariant violated")
	ErrAccountNotFound           = errors.New("chains: account not found")
	ErrInsufficientFunds         = errors.New("chains: insufficient funds for coin selection")
	ErrUnsupportedChain          = errors.New("chains: unsupported chain")
)

// BroadcastRejectedError is returned when a foreign-chain RPC refuses a
// signed, fully-assembled transaction (§7 BroadcastRejected).
type BroadcastRejectedError struct {
	Chain   string
	Code    int
	Message string
}

func (e *BroadcastRejectedError) Error() string {
	return e.Chain + " broadcast rejected: " + e.Message
}
