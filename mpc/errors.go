package mpc

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/chainsig-network/chainsig-go/coordinator"
)

// Sentinel errors mirroring §7's closed taxonomy for the operations this
// package owns.
var (
	ErrFeeQuoteUnavailable  = errors.New("mpc: fee quote unavailable")
	ErrFeeTooLow            = errors.New("mpc: deposit rejected as too low")
	ErrNonceConflict        = errors.New("mpc: nonce conflict, refresh and retry")
	ErrSignatureUnavailable = errors.New("mpc: no signature in direct-call return value")
)

// directSignEnvelope is the JSON shape a direct `sign` change call returns
// as its method return value (not wrapped in a receipt SuccessValue).
type directSignEnvelope struct {
	BigR struct {
		AffinePoint string `json:"affine_point"`
	} `json:"big_r"`
	S struct {
		Scalar string `json:"scalar"`
	} `json:"s"`
	RecoveryID byte `json:"recovery_id"`
}

// decodeDirectSignature decodes the raw return value of a direct `sign`
// change call into the same ContractSignature shape the relayed path
// produces, so Client.Sign has a single downstream conversion path.
func decodeDirectSignature(raw []byte) (coordinator.ContractSignature, error) {
	var env directSignEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return coordinator.ContractSignature{}, fmt.Errorf("%w: %v", ErrSignatureUnavailable, err)
	}
	if env.BigR.AffinePoint == "" {
		return coordinator.ContractSignature{}, ErrSignatureUnavailable
	}

	var out coordinator.ContractSignature
	out.BigR.AffinePoint = env.BigR.AffinePoint
	out.S.Scalar = env.S.Scalar
	out.RecoveryID = env.RecoveryID
	return out, nil
}
