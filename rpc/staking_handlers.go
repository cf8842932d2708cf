package rpc

import (
	"context"
	"net/http"

	"soudefi/core/host"
)

func (s *Server) handleStakingDeposit(ctx context.Context, _ *http.Request, req *RPCRequest) (any, *RPCError) {
	return s.amountCall(ctx, req, host.StakingDeposit)
}

func (s *Server) handleStakingWithdraw(ctx context.Context, _ *http.Request, req *RPCRequest) (any, *RPCError) {
	return s.amountCall(ctx, req, host.StakingWithdraw)
}

func (s *Server) handleStakingBalance(ctx context.Context, _ *http.Request, req *RPCRequest) (any, *RPCError) {
	var params addressParam
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	addr, rpcErr := parseAddressParam("address", params.Address)
	if rpcErr != nil {
		return nil, rpcErr
	}
	return s.view(ctx, func(env *host.Env) (any, error) {
		deposit, err := env.Staking.Position(addr)
		if err != nil {
			return nil, err
		}
		pending, err := env.Staking.CalculateInterest(addr)
		if err != nil {
			return nil, err
		}
		balance, err := env.Staking.Balance(addr)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"address":     addr.String(),
			"asset":       env.Staking.Asset(),
			"principal":   amountString(deposit.Principal),
			"interest":    amountString(pending),
			"balance":     amountString(balance),
			"lastAccrual": deposit.LastAccrual,
		}, nil
	})
}
