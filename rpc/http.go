package rpc

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"soudefi/core/host"
	"soudefi/observability"
	telemetry "soudefi/observability/otel"
	"soudefi/storage/eventlog"
)

const (
	jsonRPCVersion         = "2.0"
	defaultMaxRequestBytes = 1 << 20 // 1 MiB
	shutdownTimeout        = 5 * time.Second
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeServerError    = -32000
	codeUnauthorized   = -32001
	codeReverted       = -32003
	codeRateLimited    = -32020
)

// ServerConfig configures the JSON-RPC server.
type ServerConfig struct {
	// RateLimitPerSecond bounds requests per client. Zero disables limiting.
	RateLimitPerSecond float64
	Burst              int
	MaxBodyBytes       int64
	// TrustProxyHeaders keys rate limits on X-Forwarded-For. Enable only behind
	// a reverse proxy that sets the header.
	TrustProxyHeaders bool
	// EnableFaucet exposes bank_mint. AuthToken must be set for it to accept
	// calls.
	EnableFaucet bool
	AuthToken    string
	Logger       *slog.Logger
}

type handlerFunc func(ctx context.Context, r *http.Request, req *RPCRequest) (any, *RPCError)

type Server struct {
	exec    *host.Executor
	events  *eventlog.Log
	cfg     ServerConfig
	limiter *rateLimiter
	logger  *slog.Logger
	tracer  trace.Tracer
	methods map[string]handlerFunc

	serverMu   sync.Mutex
	httpServer *http.Server
}

// NewServer builds a server over exec. events may be nil, in which case
// events_list reports an error.
func NewServer(exec *host.Executor, events *eventlog.Log, cfg ServerConfig) *Server {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxRequestBytes
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		exec:   exec,
		events: events,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "rpc")),
		tracer: telemetry.Tracer(),
	}
	if cfg.RateLimitPerSecond > 0 {
		s.limiter = newRateLimiter(cfg.RateLimitPerSecond, cfg.Burst, cfg.TrustProxyHeaders)
	}
	s.methods = map[string]handlerFunc{
		"swap_init":                  s.handleSwapInit,
		"swap_ethToToken":            s.handleSwapEthToToken,
		"swap_tokenToEth":            s.handleSwapTokenToEth,
		"swap_provideLiquidity":      s.handleSwapProvideLiquidity,
		"swap_withdrawLiquidity":     s.handleSwapWithdrawLiquidity,
		"swap_getInputPrice":         s.handleSwapGetInputPrice,
		"swap_pool":                  s.handleSwapPool,
		"swap_shares":                s.handleSwapShares,
		"lending_depositBase":        s.handleLendingDepositBase,
		"lending_withdrawBase":       s.handleLendingWithdrawBase,
		"lending_depositCollateral":  s.handleLendingDepositCollateral,
		"lending_withdrawCollateral": s.handleLendingWithdrawCollateral,
		"lending_borrowBase":         s.handleLendingBorrowBase,
		"lending_repayBase":          s.handleLendingRepayBase,
		"lending_liquidate":          s.handleLendingLiquidate,
		"lending_account":            s.handleLendingAccount,
		"lending_accounts":           s.handleLendingAccounts,
		"lending_collateralValue":    s.handleLendingCollateralValue,
		"staking_deposit":            s.handleStakingDeposit,
		"staking_withdraw":           s.handleStakingWithdraw,
		"staking_balance":            s.handleStakingBalance,
		"bank_balance":               s.handleBankBalance,
		"bank_approve":               s.handleBankApprove,
		"bank_approveModules":        s.handleBankApproveModules,
		"bank_mint":                  s.handleBankMint,
		"events_list":                s.handleEventsList,
	}
	return s
}

// Handler returns the HTTP surface: JSON-RPC on / and /rpc, prometheus on
// /metrics and liveness on /healthz.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Group(func(gr chi.Router) {
		if s.limiter != nil {
			gr.Use(s.limiter.Middleware)
		}
		gr.Post("/", s.handle)
		gr.Post("/rpc", s.handle)
	})
	return r
}

// Serve accepts connections on listener until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.serverMu.Lock()
	s.httpServer = srv
	s.serverMu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(listener)
	}()
	s.logger.Info("json-rpc server listening", slog.String("addr", listener.Addr().String()))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown rpc server: %w", err)
		}
		return nil
	}
}

// Start listens on addr and serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, listener)
}

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      interface{}       `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	status  int
}

func (e *RPCError) Error() string { return e.Message }

func invalidParams(message string, data interface{}) *RPCError {
	return &RPCError{Code: codeInvalidParams, Message: message, Data: data, status: http.StatusBadRequest}
}

func serverError(message string, err error) *RPCError {
	var data interface{}
	if err != nil {
		data = err.Error()
	}
	return &RPCError{Code: codeServerError, Message: message, Data: data, status: http.StatusInternalServerError}
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}

// handle is the main request handler that routes to specific handlers.
func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	reader := http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	defer func() {
		_ = reader.Close()
	}()

	w.Header().Set("Content-Type", "application/json")

	body, err := io.ReadAll(reader)
	if err != nil {
		status := http.StatusBadRequest
		message := "failed to read request body"
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			status = http.StatusRequestEntityTooLarge
			message = fmt.Sprintf("request body exceeds %d bytes", s.cfg.MaxBodyBytes)
		}
		writeError(w, status, nil, codeInvalidRequest, message, err.Error())
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		writeError(w, http.StatusBadRequest, nil, codeInvalidRequest, "request body required", nil)
		return
	}

	req := &RPCRequest{}
	if err := json.Unmarshal(body, req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version", req.JSONRPC)
		return
	}
	if req.Method == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "method required", nil)
		return
	}
	handler, ok := s.methods[req.Method]
	if !ok {
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, "method not found", req.Method)
		return
	}

	start := time.Now()
	ctx, span := s.tracer.Start(r.Context(), "rpc."+req.Method, trace.WithAttributes(
		attribute.String("rpc.system", "jsonrpc"),
		attribute.String("rpc.method", req.Method),
	))
	defer span.End()

	result, rpcErr := handler(ctx, r, req)
	module, method := splitMethod(req.Method)
	if rpcErr != nil {
		status := rpcErr.status
		if status == 0 {
			status = http.StatusBadRequest
		}
		span.SetStatus(codes.Error, rpcErr.Message)
		observability.ModuleMetrics().Observe(module, method, rpcErr.Code, time.Since(start))
		writeError(w, status, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	observability.ModuleMetrics().Observe(module, method, 0, time.Since(start))
	writeResult(w, req.ID, result)
}

func splitMethod(name string) (string, string) {
	module, method, found := strings.Cut(name, "_")
	if !found {
		return "rpc", name
	}
	return module, method
}

// decodeParams unmarshals the single object parameter of req into out.
func decodeParams(req *RPCRequest, out interface{}) *RPCError {
	if len(req.Params) != 1 {
		return invalidParams("expected a single parameter object", nil)
	}
	dec := json.NewDecoder(bytes.NewReader(req.Params[0]))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return invalidParams("invalid parameter object", err.Error())
	}
	return nil
}

// submit runs call and renders the receipt. Reverts map to codeReverted with
// the engine's reason.
func (s *Server) submit(ctx context.Context, call host.Call) (any, *RPCError) {
	receipt, err := s.exec.Submit(ctx, call)
	if err != nil {
		var revert *host.Revert
		if errors.As(err, &revert) {
			return nil, &RPCError{Code: codeReverted, Message: revert.Err.Error(), Data: revert.Op, status: http.StatusUnprocessableEntity}
		}
		return nil, serverError("submission failed", err)
	}
	return renderReceipt(receipt), nil
}

// view runs fn against committed state.
func (s *Server) view(ctx context.Context, fn func(env *host.Env) (any, error)) (any, *RPCError) {
	var out any
	err := s.exec.View(ctx, func(env *host.Env) error {
		var err error
		out, err = fn(env)
		return err
	})
	if err != nil {
		var rpcErr *RPCError
		if errors.As(err, &rpcErr) {
			return nil, rpcErr
		}
		return nil, &RPCError{Code: codeServerError, Message: err.Error(), status: http.StatusUnprocessableEntity}
	}
	return out, nil
}

func (s *Server) requireAuth(r *http.Request) *RPCError {
	if s.cfg.AuthToken == "" {
		return &RPCError{Code: codeUnauthorized, Message: "RPC authentication token not configured", status: http.StatusUnauthorized}
	}
	header := r.Header.Get("Authorization")
	if header == "" {
		return &RPCError{Code: codeUnauthorized, Message: "missing Authorization header", status: http.StatusUnauthorized}
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return &RPCError{Code: codeUnauthorized, Message: "Authorization header must use Bearer scheme", status: http.StatusUnauthorized}
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		return &RPCError{Code: codeUnauthorized, Message: "missing bearer token", status: http.StatusUnauthorized}
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.AuthToken)) != 1 {
		return &RPCError{Code: codeUnauthorized, Message: "invalid RPC credentials", status: http.StatusUnauthorized}
	}
	return nil
}
