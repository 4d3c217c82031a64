package coordinator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, rpcURL, relayerURL string) *Client {
	t.Helper()
	return NewClient(Config{RPCURL: rpcURL, RelayerURL: relayerURL})
}

func TestGetRootPublicKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		params := req["params"].(map[string]any)
		require.Equal(t, "public_key", params["method_name"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"result": "secp256k1:base58encodedkey",
		})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, "")
	got, err := c.GetRootPublicKey(context.Background(), "signer.testnet")
	require.NoError(t, err)
	require.Equal(t, "secp256k1:base58encodedkey", got)
}

func TestGetCurrentFee(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"result": "1000000000000000000"})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, "")
	got, err := c.GetCurrentFee(context.Background(), "signer.testnet")
	require.NoError(t, err)
	require.Equal(t, "1000000000000000000", got)
}

func TestCallView_ProviderUnreachable(t *testing.T) {
	c := newTestClient(t, "http://127.0.0.1:0", "")
	_, err := c.GetRootPublicKey(context.Background(), "signer.testnet")
	require.Error(t, err)
}

func TestCallView_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, "")
	_, err := c.GetRootPublicKey(context.Background(), "signer.testnet")
	require.Error(t, err)
}
