// Package mpc implements the MPC signing client of §4.3: canonicalizes a
// path, quotes a fee, dispatches a direct or relayed sign, and returns the
// resulting contract signature as a sigconv.MPCSignature (sigconv converts
// it into RSV/raw64 forms).
//
// Grounded on the teacher's bao_keyring.go Sign/SignBatch (single-attempt
// dispatch, sync.WaitGroup fan-out for batches) and sdk-go/sign.go's
// SignService.
package mpc

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"sync"

	"github.com/chainsig-network/chainsig-go/coordinator"
	"github.com/chainsig-network/chainsig-go/internal/canonical"
	"github.com/chainsig-network/chainsig-go/sigconv"
)

// DefaultGas is the gas attached to a direct `sign` change call (§4.3 step 4).
const DefaultGas = uint64(300_000_000_000_000) // 300 Tgas

// DefaultKeyVersion is the only key version this client requests.
const DefaultKeyVersion = uint32(0)

// AuditSink observes state-machine transitions of a sign (§4.7), without
// the core depending on a specific logging/metrics backend. Generalizes
// the teacher's AuditService/AuditLog.
type AuditSink interface {
	Observe(event string, detail map[string]any)
}

// noopAuditSink is used when a Client is constructed without one.
type noopAuditSink struct{}

func (noopAuditSink) Observe(string, map[string]any) {}

// Client is the MPC signing client.
type Client struct {
	Coordinator *coordinator.Client
	ContractID  string
	RelayerURL  string
	MaxBlockOffset uint64 // not read by Sign; relayed delegates are built with max_block_height 0
	Audit       AuditSink
}

// SignRequest is one invocation of the public `sign` operation (§4.3).
type SignRequest struct {
	Payload         [32]byte
	Path            canonical.Path
	Auth            coordinator.CallerAuth
	ProposedDeposit string // optional; falls back to the live fee quote
}

// Sign performs exactly one sign attempt: canonicalize, quote fee, compose
// args, dispatch (direct or relayed), parse the receipt. No retry happens
// inside this call — callers layer their own (§4.3 "Retry / timeout").
func (c *Client) Sign(ctx context.Context, req SignRequest) (sigconv.MPCSignature, error) {
	audit := c.audit()

	canonicalPath, err := canonical.Canonicalize(req.Path)
	if err != nil {
		return sigconv.MPCSignature{}, fmt.Errorf("mpc: canonicalize path: %w", err)
	}
	audit.Observe("assembled", map[string]any{"path": canonicalPath})

	deposit := req.ProposedDeposit
	if deposit == "" {
		quoted, err := c.Coordinator.GetCurrentFee(ctx, c.ContractID)
		if err != nil {
			return sigconv.MPCSignature{}, fmt.Errorf("mpc: %w", ErrFeeQuoteUnavailable)
		}
		deposit = atLeastOne(quoted)
	}

	signArgs := coordinator.SignArgs{
		Request: coordinator.SignRequest{
			Payload:    req.Payload,
			Path:       canonicalPath,
			KeyVersion: DefaultKeyVersion,
		},
	}
	audit.Observe("payload_extracted", nil)

	var contractSig coordinator.ContractSignature
	audit.Observe("signing", nil)
	if c.RelayerURL == "" {
		raw, err := c.Coordinator.SubmitSignDirect(ctx, req.Auth, c.ContractID, signArgs, DefaultGas, deposit)
		if err != nil {
			return sigconv.MPCSignature{}, fmt.Errorf("mpc: direct sign: %w", err)
		}
		contractSig, err = decodeDirectSignature(raw)
		if err != nil {
			return sigconv.MPCSignature{}, err
		}
	} else {
		outcome, err := c.Coordinator.SubmitSignRelayed(ctx, req.Auth, c.ContractID, signArgs, DefaultGas, deposit, 0)
		if err != nil {
			return sigconv.MPCSignature{}, fmt.Errorf("mpc: relayed sign: %w", err)
		}
		contractSig, err = coordinator.ReceiptSignature(outcome)
		if err != nil {
			return sigconv.MPCSignature{}, err
		}
	}
	audit.Observe("signed", nil)

	return sigconv.MPCSignature{
		BigR: struct{ AffinePoint string }{AffinePoint: contractSig.BigR.AffinePoint},
		S:    struct{ Scalar string }{Scalar: contractSig.S.Scalar},
		RecoveryID: contractSig.RecoveryID,
	}, nil
}

// BatchSignResult pairs an input index with its resulting signature or
// error, so callers can reassemble results in ascending index order even
// though the underlying signs ran concurrently (§5).
type BatchSignResult struct {
	Index     uint32
	Signature sigconv.MPCSignature
	Err       error
}

// SignBatch issues one Sign per payload concurrently and returns results
// sorted by ascending Index, mirroring the teacher's SignBatch/CreateBatch
// sync.WaitGroup fan-out.
func (c *Client) SignBatch(ctx context.Context, path canonical.Path, auth coordinator.CallerAuth, payloads map[uint32][32]byte) []BatchSignResult {
	results := make([]BatchSignResult, len(payloads))
	var wg sync.WaitGroup
	i := 0
	for index, payload := range payloads {
		wg.Add(1)
		go func(i int, index uint32, payload [32]byte) {
			defer wg.Done()
			sig, err := c.Sign(ctx, SignRequest{Payload: payload, Path: path, Auth: auth})
			results[i] = BatchSignResult{Index: index, Signature: sig, Err: err}
		}(i, index, payload)
		i++
	}
	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].Index < results[j].Index })
	return results
}

func (c *Client) audit() AuditSink {
	if c.Audit == nil {
		return noopAuditSink{}
	}
	return c.Audit
}

// atLeastOne enforces the "deposit >= max(1, quoted fee)" rule of §4.3 step 2.
func atLeastOne(quoted string) string {
	n, ok := new(big.Int).SetString(quoted, 10)
	if !ok || n.Sign() <= 0 {
		return "1"
	}
	return n.String()
}
