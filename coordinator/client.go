// Package coordinator implements the RPC adapter to the coordinator-chain
// signer contract (§4.2, §6): view calls, a direct-call sign path, and a
// relayed meta-transaction sign path, plus access-key nonce caching and
// invalidation.
//
// Grounded on the teacher's bao_client.go (HTTP transport, doRequest/get/
// post helpers, pooled http.Transport) adapted from an OpenBao REST API to
// a coordinator-chain RPC/view-call surface.
package coordinator

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// CallerAuth is the caller-supplied credential adapter: it can sign a
// meta-transaction delegate and issue authenticated change calls (view
// calls go through Client over HTTP). The
// core never reads environment variables or key material directly (§6).
type CallerAuth interface {
	// SignMetaTransaction signs actions as a coordinator-chain delegate
	// envelope and returns the serialized signed-delegate ready to POST to
	// a relayer.
	SignMetaTransaction(ctx context.Context, actions []Action, nonce uint64, maxBlockHeight uint64) ([]byte, error)
	// CallChange performs a direct, caller-authenticated change call and
	// returns the method's raw return value bytes.
	CallChange(ctx context.Context, contractID, method string, args any, gas uint64, deposit string) ([]byte, error)
	// PublicKey returns the NAJ-encoded public key used to sign delegates,
	// so the adapter knows which nonce cache entry to invalidate.
	PublicKey() string
	// AccessKeyNonce returns the current nonce for PublicKey(), refetching
	// from the chain if the adapter's cache was invalidated.
	AccessKeyNonce(ctx context.Context) (uint64, error)
}

// Action is a coordinator-chain FunctionCall action, the only action kind
// this adapter constructs (§4.2).
type Action struct {
	Method  string
	Args    json.RawMessage
	Gas     uint64
	Deposit string
}

// Client is the coordinator-chain RPC adapter.
type Client struct {
	httpClient *http.Client
	rpcURL     string
	relayerURL string

	noncesMu sync.Mutex
	// invalidated tracks public keys whose cached nonce must be refetched
	// before the next delegate is signed (§4.2, §5).
	invalidated map[string]bool
}

// Config configures a coordinator Client.
type Config struct {
	RPCURL        string
	RelayerURL    string
	HTTPTimeout   time.Duration
	TLSConfig     *tls.Config
	SkipTLSVerify bool
}

// NewClient builds a coordinator Client with a pooled HTTP transport,
// mirroring the teacher's NewBaoClient.
func NewClient(cfg Config) *Client {
	if cfg.HTTPTimeout == 0 {
		cfg.HTTPTimeout = 30 * time.Second
	}

	tlsConfig := cfg.TLSConfig
	if tlsConfig == nil {
		tlsConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	if cfg.SkipTLSVerify {
		tlsConfig.InsecureSkipVerify = true
	}

	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig:     tlsConfig,
	}

	return &Client{
		httpClient:  &http.Client{Timeout: cfg.HTTPTimeout, Transport: transport},
		rpcURL:      strings.TrimSuffix(cfg.RPCURL, "/"),
		relayerURL:  strings.TrimSuffix(cfg.RelayerURL, "/"),
		invalidated: make(map[string]bool),
	}
}

// GetRootPublicKey issues the `public_key` view call.
func (c *Client) GetRootPublicKey(ctx context.Context, contractID string) (string, error) {
	var out struct {
		Result string `json:"result"`
	}
	if err := c.callView(ctx, contractID, "public_key", nil, &out); err != nil {
		return "", fmt.Errorf("coordinator: get_root_public_key: %w", err)
	}
	return out.Result, nil
}

// GetCurrentFee issues the `experimental_signature_deposit` view call.
func (c *Client) GetCurrentFee(ctx context.Context, contractID string) (string, error) {
	var out struct {
		Result string `json:"result"`
	}
	if err := c.callView(ctx, contractID, "experimental_signature_deposit", nil, &out); err != nil {
		return "", fmt.Errorf("coordinator: get_current_fee: %w", err)
	}
	return out.Result, nil
}

// DerivedPublicKeyArgs is the argument shape for the `derived_public_key`
// view call.
type DerivedPublicKeyArgs struct {
	Path        string `json:"path"`
	Predecessor string `json:"predecessor"`
}

// GetDerivedPublicKey issues the optional `derived_public_key` view call.
// Callers fall back to local derivation (internal/derive) when it's
// unavailable.
func (c *Client) GetDerivedPublicKey(ctx context.Context, contractID string, args DerivedPublicKeyArgs) (string, error) {
	var out struct {
		Result string `json:"result"`
	}
	if err := c.callView(ctx, contractID, "derived_public_key", args, &out); err != nil {
		return "", fmt.Errorf("coordinator: get_derived_public_key: %w", err)
	}
	return out.Result, nil
}

// callView POSTs a JSON-RPC view call (`query` with `call_function`) to the
// coordinator-chain RPC provider.
func (c *Client) callView(ctx context.Context, contractID, method string, args any, out any) error {
	argsJSON := json.RawMessage("{}")
	if args != nil {
		encoded, err := json.Marshal(args)
		if err != nil {
			return err
		}
		argsJSON = encoded
	}

	body := map[string]any{
		"jsonrpc": "2.0",
		"id":      uuid.NewString(),
		"method":  "query",
		"params": map[string]any{
			"request_type": "call_function",
			"finality":     "final",
			"account_id":   contractID,
			"method_name":  method,
			"args_base64":  encodeBase64(argsJSON),
		},
	}

	resp, err := c.post(ctx, c.rpcURL, body)
	if err != nil {
		return err
	}
	return json.Unmarshal(resp, out)
}

func (c *Client) post(ctx context.Context, url string, body any) ([]byte, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("coordinator: provider unreachable: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("coordinator: HTTP %d: %s", resp.StatusCode, string(respBody))
	}
	return respBody, nil
}

func encodeBase64(v json.RawMessage) string {
	return base64.StdEncoding.EncodeToString(v)
}
