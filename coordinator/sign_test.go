package coordinator

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeAuth is a minimal CallerAuth for exercising the relayed sign path.
type fakeAuth struct {
	publicKey     string
	nonce         uint64
	nonceCalls    int32
	delegateBytes []byte
}

func (f *fakeAuth) SignMetaTransaction(ctx context.Context, actions []Action, nonce uint64, maxBlockHeight uint64) ([]byte, error) {
	return f.delegateBytes, nil
}

func (f *fakeAuth) CallChange(ctx context.Context, contractID, method string, args any, gas uint64, deposit string) ([]byte, error) {
	return nil, nil
}

func (f *fakeAuth) PublicKey() string { return f.publicKey }

func (f *fakeAuth) AccessKeyNonce(ctx context.Context) (uint64, error) {
	atomic.AddInt32(&f.nonceCalls, 1)
	return f.nonce, nil
}

func decodeReceipts(t *testing.T, receiptsJSON string) *ExecutionOutcome {
	t.Helper()
	var outcome ExecutionOutcome
	require.NoError(t, json.Unmarshal([]byte(receiptsJSON), &outcome.ReceiptsOutcome))
	return &outcome
}

func TestReceiptSignature_FirstNonEmptySuccessValue(t *testing.T) {
	// spec.md §8 scenario 5: third receipt carries the signature, others are empty.
	sigJSON := `{"Ok":{"big_r":{"affine_point":"03aa"},"s":{"scalar":"bb"},"recovery_id":1}}`
	encoded := base64.StdEncoding.EncodeToString([]byte(sigJSON))

	outcome := decodeReceipts(t, `[
		{"outcome":{"status":{"SuccessValue":""}}},
		{"outcome":{"status":{"SuccessValue":""}}},
		{"outcome":{"status":{"SuccessValue":"`+encoded+`"}}}
	]`)

	sig, err := ReceiptSignature(outcome)
	require.NoError(t, err)
	require.Equal(t, "03aa", sig.BigR.AffinePoint)
	require.Equal(t, "bb", sig.S.Scalar)
	require.Equal(t, byte(1), sig.RecoveryID)
}

func TestReceiptSignature_NoSuccessValue(t *testing.T) {
	outcome := decodeReceipts(t, `[{"outcome":{"status":{"SuccessValue":""}}}]`)
	_, err := ReceiptSignature(outcome)
	require.ErrorIs(t, err, ErrSignatureUnavailable)
}

func TestSubmitSignRelayed_InvalidatesNonceAfterDelegate(t *testing.T) {
	sigJSON := `{"Ok":{"big_r":{"affine_point":"03aa"},"s":{"scalar":"bb"},"recovery_id":0}}`
	encoded := base64.StdEncoding.EncodeToString([]byte(sigJSON))

	rpcSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"result": map[string]any{
				"final_execution_status": "FINAL",
				"receipts_outcome": []map[string]any{
					{"outcome": map[string]any{"status": map[string]any{"SuccessValue": encoded}}},
				},
			},
		})
	}))
	defer rpcSrv.Close()

	relayerSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/send_meta_tx_async", r.URL.Path)
		_, _ = w.Write([]byte("abc123txhash"))
	}))
	defer relayerSrv.Close()

	c := NewClient(Config{RPCURL: rpcSrv.URL, RelayerURL: relayerSrv.URL})
	auth := &fakeAuth{publicKey: "ed25519:mykey", nonce: 5}

	require.False(t, c.NonceInvalidated(auth.publicKey))

	outcome, err := c.SubmitSignRelayed(context.Background(), auth, "signer.testnet", SignArgs{}, 300, "1", 0)
	require.NoError(t, err)
	require.Equal(t, "FINAL", outcome.Status)

	// The crucial §4.2 invariant: the nonce cache entry for the signing
	// public key must be invalidated once the delegate is emitted.
	require.True(t, c.NonceInvalidated(auth.publicKey))

	sig, err := ReceiptSignature(outcome)
	require.NoError(t, err)
	require.Equal(t, "03aa", sig.BigR.AffinePoint)
}
