package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"soudefi/core/host"
	"soudefi/crypto"
	"soudefi/native/bank"
	"soudefi/observability/logging"
	"soudefi/storage"
	"soudefi/storage/eventlog"
)

func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1_000_000_000_000_000_000))
}

func testAddr(b byte) crypto.Address {
	raw := make([]byte, crypto.AddressLength)
	raw[0] = b
	return crypto.NewAddress(crypto.SouPrefix, raw)
}

type testEnv struct {
	exec   *host.Executor
	server *Server
	http   *httptest.Server
}

func newTestEnv(t *testing.T, cfg ServerConfig) *testEnv {
	t.Helper()
	log, err := eventlog.Open(filepath.Join(t.TempDir(), "events.db"))
	if err != nil {
		t.Fatalf("open eventlog: %v", err)
	}
	t.Cleanup(func() { log.Close() })
	exec, err := host.NewExecutor(storage.NewMemDB(), host.Options{Sinks: []host.EventSink{log}})
	if err != nil {
		t.Fatalf("new executor: %v", err)
	}
	srv := NewServer(exec, log, cfg)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &testEnv{exec: exec, server: srv, http: ts}
}

func (e *testEnv) mint(t *testing.T, asset string, to crypto.Address, amount *big.Int) {
	t.Helper()
	if _, err := e.exec.Submit(context.Background(), host.BankMint(asset, to, amount)); err != nil {
		t.Fatalf("mint: %v", err)
	}
}

func (e *testEnv) call(t *testing.T, method string, params interface{}) (int, RPCResponse) {
	t.Helper()
	return e.callWithHeaders(t, method, params, nil)
}

func (e *testEnv) callWithHeaders(t *testing.T, method string, params interface{}, headers map[string]string) (int, RPCResponse) {
	t.Helper()
	req := map[string]interface{}{"jsonrpc": "2.0", "id": 1, "method": method}
	if params != nil {
		req["params"] = []interface{}{params}
	}
	body, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	httpReq, err := http.NewRequest(http.MethodPost, e.http.URL+"/rpc", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	var out RPCResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp.StatusCode, out
}

func resultMap(t *testing.T, resp RPCResponse) map[string]interface{} {
	t.Helper()
	if resp.Error != nil {
		t.Fatalf("unexpected rpc error: %+v", resp.Error)
	}
	m, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatalf("unexpected result type %T", resp.Result)
	}
	return m
}

func TestSwapFlowOverRPC(t *testing.T) {
	env := newTestEnv(t, ServerConfig{})
	provider := testAddr(1)
	env.mint(t, "SOU", provider, ether(100))
	env.mint(t, bank.NativeAsset, provider, ether(101))

	_, resp := env.call(t, "bank_approveModules", map[string]string{"from": provider.String()})
	resultMap(t, resp)

	_, resp = env.call(t, "swap_init", map[string]string{
		"from":   provider.String(),
		"token":  ether(100).String(),
		"native": ether(100).String(),
	})
	resultMap(t, resp)

	_, resp = env.call(t, "swap_ethToToken", map[string]string{"from": provider.String(), "amount": ether(1).String()})
	receipt := resultMap(t, resp)
	result := receipt["result"].(map[string]interface{})
	if result["amountOut"] != "987158034397061298" {
		t.Fatalf("unexpected amountOut %v", result["amountOut"])
	}

	_, resp = env.call(t, "swap_pool", nil)
	pool := resultMap(t, resp)
	if pool["status"] != "active" || pool["reserveBase"] != ether(101).String() {
		t.Fatalf("unexpected pool %+v", pool)
	}

	_, resp = env.call(t, "events_list", map[string]string{"type": "swap.trade"})
	if resp.Error != nil {
		t.Fatalf("events_list: %+v", resp.Error)
	}
	records, ok := resp.Result.([]interface{})
	if !ok || len(records) != 1 {
		t.Fatalf("expected one trade event, got %+v", resp.Result)
	}
}

func TestRevertMapsToReasonCode(t *testing.T) {
	env := newTestEnv(t, ServerConfig{})
	user := testAddr(2)
	status, resp := env.call(t, "swap_ethToToken", map[string]string{"from": user.String(), "amount": "1"})
	if resp.Error == nil || resp.Error.Code != codeReverted {
		t.Fatalf("expected revert error, got %+v", resp.Error)
	}
	if status != http.StatusUnprocessableEntity {
		t.Fatalf("unexpected status %d", status)
	}
	if !strings.Contains(resp.Error.Message, "swap") {
		t.Fatalf("revert reason missing: %q", resp.Error.Message)
	}
}

func TestInvalidParamsAndUnknownMethod(t *testing.T) {
	env := newTestEnv(t, ServerConfig{})

	_, resp := env.call(t, "swap_ethToToken", map[string]string{"from": "not-an-address", "amount": "1"})
	if resp.Error == nil || resp.Error.Code != codeInvalidParams {
		t.Fatalf("expected invalid params, got %+v", resp.Error)
	}

	_, resp = env.call(t, "swap_ethToToken", map[string]string{"from": testAddr(1).String(), "amount": "-5"})
	if resp.Error == nil || resp.Error.Code != codeInvalidParams {
		t.Fatalf("expected invalid amount, got %+v", resp.Error)
	}

	status, resp := env.call(t, "nhb_getBalance", nil)
	if resp.Error == nil || resp.Error.Code != codeMethodNotFound || status != http.StatusNotFound {
		t.Fatalf("expected method not found, got %d %+v", status, resp.Error)
	}
}

func TestGetInputPriceIsPure(t *testing.T) {
	env := newTestEnv(t, ServerConfig{})
	_, resp := env.call(t, "swap_getInputPrice", map[string]string{
		"input":         ether(1).String(),
		"inputReserve":  ether(100).String(),
		"outputReserve": ether(1000).String(),
	})
	out := resultMap(t, resp)
	if out["output"] != "9871580343970612988" {
		t.Fatalf("unexpected output %v", out["output"])
	}

	_, resp = env.call(t, "swap_getInputPrice", map[string]string{"input": "1", "inputReserve": "0", "outputReserve": "1"})
	if resp.Error == nil || resp.Error.Code != codeReverted {
		t.Fatalf("expected INVALID_VALUE revert, got %+v", resp.Error)
	}
}

func TestFaucetRequiresAuth(t *testing.T) {
	env := newTestEnv(t, ServerConfig{EnableFaucet: true, AuthToken: "secret"})
	params := map[string]string{"to": testAddr(3).String(), "asset": "SOU", "amount": "10"}
	_, resp := env.call(t, "bank_mint", params)
	if resp.Error == nil || resp.Error.Code != codeUnauthorized {
		t.Fatalf("expected unauthorized, got %+v", resp.Error)
	}

	body, _ := json.Marshal(map[string]interface{}{"jsonrpc": "2.0", "id": 1, "method": "bank_mint", "params": []interface{}{params}})
	req, _ := http.NewRequest(http.MethodPost, env.http.URL+"/", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer secret")
	httpResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer httpResp.Body.Close()
	if httpResp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d", httpResp.StatusCode)
	}

	_, resp = env.call(t, "bank_balance", map[string]string{"address": testAddr(3).String(), "asset": "sou"})
	if got := resultMap(t, resp)["balance"]; got != "10" {
		t.Fatalf("unexpected balance %v", got)
	}
}

func TestFaucetLogsMaskCallerAndCredentials(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	env := newTestEnv(t, ServerConfig{EnableFaucet: true, AuthToken: "secret", Logger: logger})
	params := map[string]string{"to": testAddr(3).String(), "asset": "SOU", "amount": "10"}

	_, resp := env.callWithHeaders(t, "bank_mint", params, map[string]string{"Authorization": "Bearer wrong-token"})
	if resp.Error == nil || resp.Error.Code != codeUnauthorized {
		t.Fatalf("expected unauthorized, got %+v", resp.Error)
	}
	_, resp = env.callWithHeaders(t, "bank_mint", params, map[string]string{"Authorization": "Bearer secret"})
	if resp.Error != nil {
		t.Fatalf("mint: %+v", resp.Error)
	}

	out := buf.String()
	for _, want := range []string{"faucet call rejected", "faucet mint", logging.RedactedValue} {
		if !strings.Contains(out, want) {
			t.Fatalf("log missing %q: %s", want, out)
		}
	}
	for _, leaked := range []string{"wrong-token", "127.0.0.1"} {
		if strings.Contains(out, leaked) {
			t.Fatalf("log leaked %q: %s", leaked, out)
		}
	}
}

func TestRateLimitRejectsBurst(t *testing.T) {
	env := newTestEnv(t, ServerConfig{RateLimitPerSecond: 0.001, Burst: 1})
	status, _ := env.call(t, "lending_accounts", nil)
	if status != http.StatusOK {
		t.Fatalf("first request should pass, got %d", status)
	}
	status, resp := env.call(t, "lending_accounts", nil)
	if status != http.StatusTooManyRequests || resp.Error == nil || resp.Error.Code != codeRateLimited {
		t.Fatalf("expected rate limit, got %d %+v", status, resp.Error)
	}
}

func TestRateLimitIgnoresForwardedForByDefault(t *testing.T) {
	env := newTestEnv(t, ServerConfig{RateLimitPerSecond: 0.001, Burst: 1})
	passed := 0
	for i := 0; i < 5; i++ {
		forwarded := fmt.Sprintf("203.0.113.%d", i+1)
		status, _ := env.callWithHeaders(t, "lending_accounts", nil, map[string]string{"X-Forwarded-For": forwarded})
		if status == http.StatusOK {
			passed++
		}
	}
	if passed != 1 {
		t.Fatalf("expected one request through, got %d", passed)
	}
}

func TestRateLimitTrustsForwardedForBehindProxy(t *testing.T) {
	env := newTestEnv(t, ServerConfig{RateLimitPerSecond: 0.001, Burst: 1, TrustProxyHeaders: true})
	for i := 0; i < 3; i++ {
		forwarded := fmt.Sprintf("203.0.113.%d, 10.0.0.1", i+1)
		status, resp := env.callWithHeaders(t, "lending_accounts", nil, map[string]string{"X-Forwarded-For": forwarded})
		if status != http.StatusOK {
			t.Fatalf("client %s should have its own bucket, got %d %+v", forwarded, status, resp.Error)
		}
	}
	status, _ := env.callWithHeaders(t, "lending_accounts", nil, map[string]string{"X-Forwarded-For": "203.0.113.1"})
	if status != http.StatusTooManyRequests {
		t.Fatalf("repeat client should be limited, got %d", status)
	}
}

func TestClientSource(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/rpc", nil)
	r.RemoteAddr = "192.0.2.7:5555"
	r.Header.Set("X-Forwarded-For", "198.51.100.9")
	if got := clientSource(r, false); got != "192.0.2.7" {
		t.Fatalf("untrusted source = %q", got)
	}
	if got := clientSource(r, true); got != "198.51.100.9" {
		t.Fatalf("trusted source = %q", got)
	}
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, ServerConfig{})
	resp, err := http.Get(env.http.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}
}
