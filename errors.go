// Package chainsig is a client-side multi-chain transaction factory: it lets
// a single identity on a coordinator chain authorize transactions on foreign
// chains (Bitcoin, EVM, Cosmos SDK) by deriving child keys from a network
// root public key and routing signatures through an MPC signer contract.
package chainsig

import (
	"errors"
	"fmt"
)

// Sentinel errors - Configuration
var (
	ErrMissingSignerContract = errors.New("chainsig: SignerContractID is required")
	ErrMissingNetwork        = errors.New("chainsig: CoordinatorNetwork is required")
)

// Sentinel errors - the closed error taxonomy of §7.
var (
	ErrRootKeyUnavailable        = errors.New("chainsig: root public key unavailable")
	ErrDerivationFailed          = errors.New("chainsig: derivation produced identity point")
	ErrFeeQuoteUnavailable       = errors.New("chainsig: fee quote unavailable")
	ErrNonceConflict             = errors.New("chainsig: nonce conflict, refresh and retry")
	ErrSignatureUnavailable      = errors.New("chainsig: no signature in execution receipt")
	ErrFeeTooLow                 = errors.New("chainsig: deposit rejected as too low")
	ErrAccountNotFound           = errors.New("chainsig: account not found")
	ErrInsufficientFunds         = errors.New("chainsig: insufficient funds for coin selection")
	ErrProviderUnreachable       = errors.New("chainsig: provider unreachable")
	ErrProtocolInvariantViolated = errors.New("chainsig: protocol invariant violated")
	ErrUnsupportedChain          = errors.New("chainsig: unsupported chain")
)

// CoordinatorError represents an error surfaced by the coordinator-chain
// signer contract or its RPC provider.
type CoordinatorError struct {
	StatusCode int
	Code       string
	Message    string
}

// Error implements the error interface.
func (e *CoordinatorError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("coordinator error (%s): %s", e.Code, e.Message)
	}
	return fmt.Sprintf("coordinator error (HTTP %d): %s", e.StatusCode, e.Message)
}

// Is maps well-known coordinator error codes onto the closed error
// taxonomy's sentinels, so callers can use errors.Is against ErrFeeTooLow
// or ErrNonceConflict without knowing the transport-level representation.
func (e *CoordinatorError) Is(target error) bool {
	switch e.Code {
	case "insufficient_deposit":
		return target == ErrFeeTooLow
	case "nonce_conflict", "InvalidNonce", "replay_detected":
		return target == ErrNonceConflict
	default:
		return false
	}
}

// NewCoordinatorError creates a new CoordinatorError with the given parameters.
func NewCoordinatorError(statusCode int, code, message string) *CoordinatorError {
	return &CoordinatorError{StatusCode: statusCode, Code: code, Message: message}
}

// BroadcastRejectedError is returned when a foreign-chain RPC refuses a
// signed, fully-assembled transaction.
type BroadcastRejectedError struct {
	Chain   string
	Code    int
	Message string
}

// Error implements the error interface.
func (e *BroadcastRejectedError) Error() string {
	return fmt.Sprintf("%s broadcast rejected (code %d): %s", e.Chain, e.Code, e.Message)
}

// AssemblerError wraps an error with chain and operation context.
type AssemblerError struct {
	Chain string
	Op    string
	Err   error
}

// Error implements the error interface.
func (e *AssemblerError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Chain, e.Op, e.Err)
}

// Unwrap implements the errors.Unwrap interface for error chaining.
func (e *AssemblerError) Unwrap() error {
	return e.Err
}

// WrapAssemblerError wraps an error with chain/operation context.
// Returns nil if the provided error is nil.
func WrapAssemblerError(chain, op string, err error) error {
	if err == nil {
		return nil
	}
	return &AssemblerError{Chain: chain, Op: op, Err: err}
}

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// NewValidationError creates a new ValidationError with the given field and message.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
