package rpc

import (
	"context"
	"math/big"
	"net/http"

	"soudefi/core/host"
	"soudefi/crypto"
	"soudefi/native/bank"
	"soudefi/native/swap"
)

func (s *Server) amountCall(ctx context.Context, req *RPCRequest, build func(crypto.Address, *big.Int) host.Call) (any, *RPCError) {
	var params callerAmount
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	from, amount, rpcErr := params.parse()
	if rpcErr != nil {
		return nil, rpcErr
	}
	return s.submit(ctx, build(from, amount))
}

func (s *Server) handleSwapInit(ctx context.Context, _ *http.Request, req *RPCRequest) (any, *RPCError) {
	var params struct {
		From   string `json:"from"`
		Token  string `json:"token"`
		Native string `json:"native"`
	}
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	from, rpcErr := parseAddressParam("from", params.From)
	if rpcErr != nil {
		return nil, rpcErr
	}
	token, rpcErr := parseAmountParam("token", params.Token)
	if rpcErr != nil {
		return nil, rpcErr
	}
	native, rpcErr := parseAmountParam("native", params.Native)
	if rpcErr != nil {
		return nil, rpcErr
	}
	return s.submit(ctx, host.SwapInit(from, token, native))
}

func (s *Server) handleSwapEthToToken(ctx context.Context, _ *http.Request, req *RPCRequest) (any, *RPCError) {
	return s.amountCall(ctx, req, host.SwapEthToToken)
}

func (s *Server) handleSwapTokenToEth(ctx context.Context, _ *http.Request, req *RPCRequest) (any, *RPCError) {
	return s.amountCall(ctx, req, host.SwapTokenToEth)
}

func (s *Server) handleSwapProvideLiquidity(ctx context.Context, _ *http.Request, req *RPCRequest) (any, *RPCError) {
	return s.amountCall(ctx, req, host.SwapProvideLiquidity)
}

func (s *Server) handleSwapWithdrawLiquidity(ctx context.Context, _ *http.Request, req *RPCRequest) (any, *RPCError) {
	var params struct {
		From   string `json:"from"`
		Shares string `json:"shares"`
	}
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	from, rpcErr := parseAddressParam("from", params.From)
	if rpcErr != nil {
		return nil, rpcErr
	}
	shares, rpcErr := parseAmountParam("shares", params.Shares)
	if rpcErr != nil {
		return nil, rpcErr
	}
	return s.submit(ctx, host.SwapWithdrawLiquidity(from, shares))
}

func (s *Server) handleSwapGetInputPrice(_ context.Context, _ *http.Request, req *RPCRequest) (any, *RPCError) {
	var params struct {
		Input         string `json:"input"`
		InputReserve  string `json:"inputReserve"`
		OutputReserve string `json:"outputReserve"`
	}
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	input, rpcErr := parseAmountParam("input", params.Input)
	if rpcErr != nil {
		return nil, rpcErr
	}
	inRes, rpcErr := parseAmountParam("inputReserve", params.InputReserve)
	if rpcErr != nil {
		return nil, rpcErr
	}
	outRes, rpcErr := parseAmountParam("outputReserve", params.OutputReserve)
	if rpcErr != nil {
		return nil, rpcErr
	}
	out, err := swap.GetInputPrice(input, inRes, outRes)
	if err != nil {
		return nil, &RPCError{Code: codeReverted, Message: err.Error(), status: http.StatusUnprocessableEntity}
	}
	return map[string]string{"output": amountString(out)}, nil
}

func (s *Server) handleSwapPool(ctx context.Context, _ *http.Request, _ *RPCRequest) (any, *RPCError) {
	return s.view(ctx, func(env *host.Env) (any, error) {
		pool, err := env.Swap.Pool()
		if err != nil {
			return nil, err
		}
		providers, err := env.Swap.Providers()
		if err != nil {
			return nil, err
		}
		list := make([]string, 0, len(providers))
		for _, p := range providers {
			list = append(list, p.String())
		}
		return map[string]any{
			"status":       pool.Status().String(),
			"nativeAsset":  bank.NativeAsset,
			"tokenAsset":   env.Swap.TokenAsset(),
			"reserveBase":  amountString(pool.ReserveBase),
			"reserveToken": amountString(pool.ReserveToken),
			"totalShares":  amountString(pool.TotalShares),
			"module":       env.Swap.ModuleAddress().String(),
			"providers":    list,
		}, nil
	})
}

func (s *Server) handleSwapShares(ctx context.Context, _ *http.Request, req *RPCRequest) (any, *RPCError) {
	var params addressParam
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	addr, rpcErr := parseAddressParam("address", params.Address)
	if rpcErr != nil {
		return nil, rpcErr
	}
	return s.view(ctx, func(env *host.Env) (any, error) {
		shares, err := env.Swap.SharesOf(addr)
		if err != nil {
			return nil, err
		}
		return map[string]string{"address": addr.String(), "shares": amountString(shares)}, nil
	})
}
