package rpc

import (
	"context"
	"net/http"

	"soudefi/core/host"
)

func (s *Server) handleLendingDepositBase(ctx context.Context, _ *http.Request, req *RPCRequest) (any, *RPCError) {
	return s.amountCall(ctx, req, host.LendingDepositBase)
}

func (s *Server) handleLendingWithdrawBase(ctx context.Context, _ *http.Request, req *RPCRequest) (any, *RPCError) {
	return s.amountCall(ctx, req, host.LendingWithdrawBase)
}

func (s *Server) handleLendingDepositCollateral(ctx context.Context, _ *http.Request, req *RPCRequest) (any, *RPCError) {
	return s.amountCall(ctx, req, host.LendingDepositCollateral)
}

func (s *Server) handleLendingWithdrawCollateral(ctx context.Context, _ *http.Request, req *RPCRequest) (any, *RPCError) {
	return s.amountCall(ctx, req, host.LendingWithdrawCollateral)
}

func (s *Server) handleLendingBorrowBase(ctx context.Context, _ *http.Request, req *RPCRequest) (any, *RPCError) {
	return s.amountCall(ctx, req, host.LendingBorrowBase)
}

func (s *Server) handleLendingRepayBase(ctx context.Context, _ *http.Request, req *RPCRequest) (any, *RPCError) {
	return s.amountCall(ctx, req, host.LendingRepayBase)
}

func (s *Server) handleLendingLiquidate(ctx context.Context, _ *http.Request, req *RPCRequest) (any, *RPCError) {
	var params struct {
		From string `json:"from"`
		User string `json:"user"`
	}
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	from, rpcErr := parseAddressParam("from", params.From)
	if rpcErr != nil {
		return nil, rpcErr
	}
	user, rpcErr := parseAddressParam("user", params.User)
	if rpcErr != nil {
		return nil, rpcErr
	}
	return s.submit(ctx, host.LendingLiquidate(from, user))
}

func (s *Server) handleLendingAccount(ctx context.Context, _ *http.Request, req *RPCRequest) (any, *RPCError) {
	var params addressParam
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	addr, rpcErr := parseAddressParam("address", params.Address)
	if rpcErr != nil {
		return nil, rpcErr
	}
	return s.view(ctx, func(env *host.Env) (any, error) {
		pos, err := env.Lending.Position(addr)
		if err != nil {
			return nil, err
		}
		out := map[string]any{
			"address":             addr.String(),
			"depositedBase":       amountString(pos.Account.DepositedBase),
			"depositedCollateral": amountString(pos.Account.DepositedCollateral),
			"borrowedBase":        amountString(pos.Account.BorrowedBase),
			"lastAccrual":         pos.Account.LastAccrual,
			"collateralValue":     amountString(pos.CollateralValue),
			"liquidatable":        pos.Liquidatable,
		}
		if pos.HealthBps != nil {
			out["healthBps"] = pos.HealthBps.String()
		}
		return out, nil
	})
}

func (s *Server) handleLendingAccounts(ctx context.Context, _ *http.Request, _ *RPCRequest) (any, *RPCError) {
	return s.view(ctx, func(env *host.Env) (any, error) {
		accounts, err := env.Lending.Accounts()
		if err != nil {
			return nil, err
		}
		out := make([]string, 0, len(accounts))
		for _, a := range accounts {
			out = append(out, a.String())
		}
		return out, nil
	})
}

func (s *Server) handleLendingCollateralValue(ctx context.Context, _ *http.Request, req *RPCRequest) (any, *RPCError) {
	var params struct {
		Amount string `json:"amount"`
	}
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	amount, rpcErr := parseAmountParam("amount", params.Amount)
	if rpcErr != nil {
		return nil, rpcErr
	}
	return s.view(ctx, func(env *host.Env) (any, error) {
		value, err := env.Lending.CollateralValue(amount)
		if err != nil {
			return nil, err
		}
		return map[string]string{"value": amountString(value)}, nil
	})
}
