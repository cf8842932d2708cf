package host

import (
	"math/big"

	"soudefi/crypto"
	"soudefi/native/bank"
)

// TradeResult is returned by the swap trade calls.
type TradeResult struct {
	AmountOut *big.Int `json:"amountOut"`
}

// LiquidityResult is returned by the liquidity calls. For ProvideLiquidity
// Native is the amount supplied; for WithdrawLiquidity Shares is the amount
// burned.
type LiquidityResult struct {
	Native *big.Int `json:"native"`
	Token  *big.Int `json:"token"`
	Shares *big.Int `json:"shares"`
}

// LiquidationResult is returned by LendingLiquidate.
type LiquidationResult struct {
	DebtCleared *big.Int `json:"debtCleared"`
	Seized      *big.Int `json:"seized"`
}

// WithdrawResult is returned by StakingWithdraw.
type WithdrawResult struct {
	Payout *big.Int `json:"payout"`
}

func SwapInit(caller crypto.Address, tokenAmount, nativeAmount *big.Int) Call {
	return Call{Op: "swap.init", Run: func(env *Env) (any, error) {
		return nil, env.Swap.Init(caller, tokenAmount, nativeAmount)
	}}
}

func SwapEthToToken(caller crypto.Address, nativeIn *big.Int) Call {
	return Call{Op: "swap.eth_to_token", Run: func(env *Env) (any, error) {
		out, err := env.Swap.EthToToken(caller, nativeIn)
		if err != nil {
			return nil, err
		}
		return &TradeResult{AmountOut: out}, nil
	}}
}

func SwapTokenToEth(caller crypto.Address, tokenIn *big.Int) Call {
	return Call{Op: "swap.token_to_eth", Run: func(env *Env) (any, error) {
		out, err := env.Swap.TokenToEth(caller, tokenIn)
		if err != nil {
			return nil, err
		}
		return &TradeResult{AmountOut: out}, nil
	}}
}

func SwapProvideLiquidity(caller crypto.Address, nativeIn *big.Int) Call {
	return Call{Op: "swap.provide_liquidity", Run: func(env *Env) (any, error) {
		tokenIn, shares, err := env.Swap.ProvideLiquidity(caller, nativeIn)
		if err != nil {
			return nil, err
		}
		return &LiquidityResult{Native: new(big.Int).Set(nativeIn), Token: tokenIn, Shares: shares}, nil
	}}
}

func SwapWithdrawLiquidity(caller crypto.Address, sharesIn *big.Int) Call {
	return Call{Op: "swap.withdraw_liquidity", Run: func(env *Env) (any, error) {
		nativeOut, tokenOut, err := env.Swap.WithdrawLiquidity(caller, sharesIn)
		if err != nil {
			return nil, err
		}
		return &LiquidityResult{Native: nativeOut, Token: tokenOut, Shares: new(big.Int).Set(sharesIn)}, nil
	}}
}

func LendingDepositBase(caller crypto.Address, amount *big.Int) Call {
	return Call{Op: "lending.deposit_base", Run: func(env *Env) (any, error) {
		return nil, env.Lending.DepositBase(caller, amount)
	}}
}

func LendingWithdrawBase(caller crypto.Address, amount *big.Int) Call {
	return Call{Op: "lending.withdraw_base", Run: func(env *Env) (any, error) {
		return nil, env.Lending.WithdrawBase(caller, amount)
	}}
}

func LendingDepositCollateral(caller crypto.Address, amount *big.Int) Call {
	return Call{Op: "lending.deposit_collateral", Run: func(env *Env) (any, error) {
		return nil, env.Lending.DepositCollateral(caller, amount)
	}}
}

func LendingWithdrawCollateral(caller crypto.Address, amount *big.Int) Call {
	return Call{Op: "lending.withdraw_collateral", Run: func(env *Env) (any, error) {
		return nil, env.Lending.WithdrawCollateral(caller, amount)
	}}
}

func LendingBorrowBase(caller crypto.Address, amount *big.Int) Call {
	return Call{Op: "lending.borrow", Run: func(env *Env) (any, error) {
		return nil, env.Lending.BorrowBase(caller, amount)
	}}
}

func LendingRepayBase(caller crypto.Address, amount *big.Int) Call {
	return Call{Op: "lending.repay", Run: func(env *Env) (any, error) {
		return nil, env.Lending.RepayBase(caller, amount)
	}}
}

func LendingLiquidate(liquidator, user crypto.Address) Call {
	return Call{Op: "lending.liquidate", Run: func(env *Env) (any, error) {
		debt, seized, err := env.Lending.Liquidate(liquidator, user)
		if err != nil {
			return nil, err
		}
		return &LiquidationResult{DebtCleared: debt, Seized: seized}, nil
	}}
}

func StakingDeposit(caller crypto.Address, amount *big.Int) Call {
	return Call{Op: "staking.deposit", Run: func(env *Env) (any, error) {
		return nil, env.Staking.Deposit(caller, amount)
	}}
}

func StakingWithdraw(caller crypto.Address, amount *big.Int) Call {
	return Call{Op: "staking.withdraw", Run: func(env *Env) (any, error) {
		payout, err := env.Staking.Withdraw(caller, amount)
		if err != nil {
			return nil, err
		}
		return &WithdrawResult{Payout: payout}, nil
	}}
}

// BankApprove lets spender pull amount of asset from owner. Callers approve
// the swap, lending and staking module accounts before depositing into them.
func BankApprove(asset string, owner, spender crypto.Address, amount *big.Int) Call {
	return Call{Op: "bank.approve", Run: func(env *Env) (any, error) {
		return nil, env.Bank.Approve(asset, owner, spender, amount)
	}}
}

// BankMint credits amount of asset to to. Only genesis and the optional dev
// faucet submit it.
func BankMint(asset string, to crypto.Address, amount *big.Int) Call {
	return Call{Op: "bank.mint", Run: func(env *Env) (any, error) {
		return nil, env.Bank.Mint(asset, to, amount)
	}}
}

// BankTransfer moves amount of asset between two accounts.
func BankTransfer(asset string, from, to crypto.Address, amount *big.Int) Call {
	return Call{Op: "bank.transfer", Run: func(env *Env) (any, error) {
		return nil, env.Bank.Transfer(asset, from, to, amount)
	}}
}

// ApproveModules grants every module an unlimited allowance over the assets
// it pulls from owner.
func ApproveModules(owner crypto.Address) Call {
	return Call{Op: "bank.approve_modules", Run: func(env *Env) (any, error) {
		grants := []struct {
			asset  string
			module crypto.Address
		}{
			{env.Swap.TokenAsset(), env.Swap.ModuleAddress()},
			{env.Lending.Params().BaseAsset, env.Lending.ModuleAddress()},
			{env.Lending.Params().CollateralAsset, env.Lending.ModuleAddress()},
			{env.Staking.Asset(), env.Staking.ModuleAddress()},
		}
		for _, g := range grants {
			if err := env.Bank.Approve(g.asset, owner, g.module, bank.MaxAllowance); err != nil {
				return nil, err
			}
		}
		return nil, nil
	}}
}
