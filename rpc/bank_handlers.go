package rpc

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"soudefi/core/host"
	"soudefi/observability/logging"
	"soudefi/storage/eventlog"
)

func (s *Server) handleBankBalance(ctx context.Context, _ *http.Request, req *RPCRequest) (any, *RPCError) {
	var params struct {
		Address string `json:"address"`
		Asset   string `json:"asset"`
	}
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	addr, rpcErr := parseAddressParam("address", params.Address)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if strings.TrimSpace(params.Asset) == "" {
		return nil, invalidParams("asset required", nil)
	}
	return s.view(ctx, func(env *host.Env) (any, error) {
		balance, err := env.Bank.Balance(params.Asset, addr)
		if err != nil {
			return nil, err
		}
		return map[string]string{
			"address": addr.String(),
			"asset":   strings.ToUpper(strings.TrimSpace(params.Asset)),
			"balance": amountString(balance),
		}, nil
	})
}

func (s *Server) handleBankApprove(ctx context.Context, _ *http.Request, req *RPCRequest) (any, *RPCError) {
	var params struct {
		From    string `json:"from"`
		Asset   string `json:"asset"`
		Spender string `json:"spender"`
		Amount  string `json:"amount"`
	}
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	from, rpcErr := parseAddressParam("from", params.From)
	if rpcErr != nil {
		return nil, rpcErr
	}
	spender, rpcErr := parseAddressParam("spender", params.Spender)
	if rpcErr != nil {
		return nil, rpcErr
	}
	amount, rpcErr := parseAmountParam("amount", params.Amount)
	if rpcErr != nil {
		return nil, rpcErr
	}
	return s.submit(ctx, host.BankApprove(params.Asset, from, spender, amount))
}

func (s *Server) handleBankApproveModules(ctx context.Context, _ *http.Request, req *RPCRequest) (any, *RPCError) {
	var params struct {
		From string `json:"from"`
	}
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	from, rpcErr := parseAddressParam("from", params.From)
	if rpcErr != nil {
		return nil, rpcErr
	}
	return s.submit(ctx, host.ApproveModules(from))
}

func (s *Server) handleBankMint(ctx context.Context, r *http.Request, req *RPCRequest) (any, *RPCError) {
	if !s.cfg.EnableFaucet {
		return nil, &RPCError{Code: codeMethodNotFound, Message: "faucet disabled", status: http.StatusNotFound}
	}
	caller := clientSource(r, s.cfg.TrustProxyHeaders)
	if authErr := s.requireAuth(r); authErr != nil {
		s.logger.Warn("faucet call rejected",
			logging.MaskField("faucet_caller", caller),
			logging.MaskField("authorization", r.Header.Get("Authorization")),
			slog.String("reason", authErr.Message))
		return nil, authErr
	}
	var params struct {
		To     string `json:"to"`
		Asset  string `json:"asset"`
		Amount string `json:"amount"`
	}
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	to, rpcErr := parseAddressParam("to", params.To)
	if rpcErr != nil {
		return nil, rpcErr
	}
	amount, rpcErr := parseAmountParam("amount", params.Amount)
	if rpcErr != nil {
		return nil, rpcErr
	}
	s.logger.Info("faucet mint",
		logging.MaskField("faucet_caller", caller),
		slog.String("to", to.String()),
		slog.String("asset", params.Asset),
		slog.String("amount", amount.String()))
	return s.submit(ctx, host.BankMint(params.Asset, to, amount))
}

func (s *Server) handleEventsList(ctx context.Context, _ *http.Request, req *RPCRequest) (any, *RPCError) {
	if s.events == nil {
		return nil, serverError("event log not configured", nil)
	}
	var filter struct {
		Type    string `json:"type"`
		TxID    string `json:"txId"`
		AfterID int64  `json:"afterId"`
		Limit   int    `json:"limit"`
	}
	if len(req.Params) > 0 {
		if rpcErr := decodeParams(req, &filter); rpcErr != nil {
			return nil, rpcErr
		}
	}
	records, err := s.events.List(ctx, eventlog.Filter{
		Type:    filter.Type,
		TxID:    filter.TxID,
		AfterID: filter.AfterID,
		Limit:   filter.Limit,
	})
	if err != nil {
		return nil, serverError("failed to list events", err)
	}
	return records, nil
}
