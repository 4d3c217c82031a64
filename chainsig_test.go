package chainsig

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfig_WithDefaults(t *testing.T) {
	c := Config{}.WithDefaults()
	require.Equal(t, NetworkMainnet, c.CoordinatorNetwork)
	require.Equal(t, DefaultHTTPTimeout, c.HTTPTimeout)
	require.NotNil(t, c.Chains)
}

func TestConfig_WithDefaults_PreservesSetFields(t *testing.T) {
	c := Config{CoordinatorNetwork: NetworkTestnet, HTTPTimeout: 5, SignerContractID: "signer.testnet"}.WithDefaults()
	require.Equal(t, NetworkTestnet, c.CoordinatorNetwork)
	require.EqualValues(t, 5, c.HTTPTimeout)
	require.Equal(t, "signer.testnet", c.SignerContractID)
}

func TestConfig_Validate(t *testing.T) {
	c := Config{}
	require.ErrorIs(t, c.Validate(), ErrMissingSignerContract)

	c = Config{SignerContractID: "signer.testnet"}
	require.ErrorIs(t, c.Validate(), ErrMissingNetwork)

	c = Config{SignerContractID: "signer.testnet", CoordinatorNetwork: NetworkMainnet}
	require.NoError(t, c.Validate())
}

func TestConfig_ChainConfig_FallsBackToHTTPTimeout(t *testing.T) {
	c := Config{
		HTTPTimeout: 10,
		Chains: map[string]ChainConfig{
			"ethereum": {ProviderURL: "https://rpc.example"},
		},
	}

	cc, ok := c.ChainConfig("ethereum")
	require.True(t, ok)
	require.EqualValues(t, 10, cc.Timeout)

	_, ok = c.ChainConfig("missing")
	require.False(t, ok)
}

func TestCoordinatorError_Is(t *testing.T) {
	depositErr := NewCoordinatorError(400, "insufficient_deposit", "deposit too low")
	require.ErrorIs(t, depositErr, ErrFeeTooLow)
	require.NotErrorIs(t, depositErr, ErrNonceConflict)

	for _, code := range []string{"nonce_conflict", "InvalidNonce", "replay_detected"} {
		nonceErr := NewCoordinatorError(400, code, "nonce stale")
		require.ErrorIsf(t, nonceErr, ErrNonceConflict, "code %s", code)
	}

	unmapped := NewCoordinatorError(500, "internal_error", "boom")
	require.NotErrorIs(t, unmapped, ErrFeeTooLow)
	require.NotErrorIs(t, unmapped, ErrNonceConflict)
}

func TestCoordinatorError_Error(t *testing.T) {
	withCode := NewCoordinatorError(400, "insufficient_deposit", "deposit too low")
	require.Contains(t, withCode.Error(), "insufficient_deposit")

	withoutCode := NewCoordinatorError(503, "", "down")
	require.Contains(t, withoutCode.Error(), "503")
}

func TestWrapAssemblerError(t *testing.T) {
	require.Nil(t, WrapAssemblerError("bitcoin", "prepare", nil))

	inner := errors.New("boom")
	wrapped := WrapAssemblerError("bitcoin", "prepare", inner)
	require.ErrorIs(t, wrapped, inner)
	require.Contains(t, wrapped.Error(), "bitcoin")
	require.Contains(t, wrapped.Error(), "prepare")
}

func TestBroadcastRejectedError(t *testing.T) {
	err := &BroadcastRejectedError{Chain: "cosmos", Code: 5, Message: "insufficient fee"}
	require.Contains(t, err.Error(), "cosmos")
	require.Contains(t, err.Error(), "insufficient fee")
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("SignerContractID", "must not be empty")
	require.Contains(t, err.Error(), "SignerContractID")
	require.Contains(t, err.Error(), "must not be empty")
}

func TestMemoryStore_PutTake(t *testing.T) {
	s := NewMemoryStore()

	_, ok := s.Take("missing")
	require.False(t, ok)

	s.Put("key", []byte("value"))
	got, ok := s.Take("key")
	require.True(t, ok)
	require.Equal(t, []byte("value"), got)

	_, ok = s.Take("key")
	require.False(t, ok)
}

func TestMemoryStore_PutCopiesInput(t *testing.T) {
	s := NewMemoryStore()
	buf := []byte("original")
	s.Put("key", buf)
	buf[0] = 'X'

	got, ok := s.Take("key")
	require.True(t, ok)
	require.Equal(t, []byte("original"), got)
}
