package main

import (
	"github.com/spf13/cobra"
)

func newSwapCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{Use: "swap", Short: "Trade against and provide liquidity to the SouSwap pool"}

	initCmd := &cobra.Command{
		Use:   "init <token-amount> <native-amount>",
		Short: "Seed the empty pool",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := c.caller()
			if err != nil {
				return err
			}
			token, err := c.amount("token amount", args[0])
			if err != nil {
				return err
			}
			native, err := c.amount("native amount", args[1])
			if err != nil {
				return err
			}
			return c.run(cmd, "swap_init", map[string]string{"from": from, "token": token, "native": native}, false)
		},
	}

	withdraw := &cobra.Command{
		Use:   "remove-liquidity <shares>",
		Short: "Burn pool shares for a pro-rata slice of both reserves",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := c.caller()
			if err != nil {
				return err
			}
			shares, err := c.amount("shares", args[0])
			if err != nil {
				return err
			}
			return c.run(cmd, "swap_withdrawLiquidity", map[string]string{"from": from, "shares": shares}, false)
		},
	}

	quote := &cobra.Command{
		Use:   "quote <input> <input-reserve> <output-reserve>",
		Short: "Evaluate the 0.3% fee pricing formula",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			names := []string{"input", "inputReserve", "outputReserve"}
			param := make(map[string]string, len(names))
			for i, name := range names {
				v, err := c.amount(name, args[i])
				if err != nil {
					return err
				}
				param[name] = v
			}
			return c.run(cmd, "swap_getInputPrice", param, false)
		},
	}

	pool := &cobra.Command{
		Use:   "pool",
		Short: "Show reserves, total shares and providers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd, "swap_pool", nil, false)
		},
	}

	cmd.AddCommand(
		initCmd,
		c.amountCommand("eth-to-token", "Sell native currency for the pool token", "swap_ethToToken"),
		c.amountCommand("token-to-eth", "Sell the pool token for native currency", "swap_tokenToEth"),
		c.amountCommand("add-liquidity", "Deposit native currency plus the proportional token amount", "swap_provideLiquidity"),
		withdraw,
		quote,
		pool,
		c.addressCommand("shares", "Show the pool shares held by an account", "swap_shares"),
	)
	return cmd
}

func newLendingCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{Use: "lending", Short: "Interact with the collateralized lending engine"}

	liquidate := &cobra.Command{
		Use:   "liquidate <user>",
		Short: "Repay an undercollateralized position and seize its collateral",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := c.caller()
			if err != nil {
				return err
			}
			return c.run(cmd, "lending_liquidate", map[string]string{"from": from, "user": args[0]}, false)
		},
	}

	accounts := &cobra.Command{
		Use:   "accounts",
		Short: "List every account the engine has seen",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd, "lending_accounts", nil, false)
		},
	}

	collateralValue := &cobra.Command{
		Use:   "collateral-value <amount>",
		Short: "Value a collateral amount in the base asset at the pool spot price",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := c.amount("amount", args[0])
			if err != nil {
				return err
			}
			return c.run(cmd, "lending_collateralValue", map[string]string{"amount": amount}, false)
		},
	}

	cmd.AddCommand(
		c.amountCommand("deposit-base", "Lend the base asset", "lending_depositBase"),
		c.amountCommand("withdraw-base", "Withdraw lent base asset plus interest", "lending_withdrawBase"),
		c.amountCommand("deposit-collateral", "Deposit collateral", "lending_depositCollateral"),
		c.amountCommand("withdraw-collateral", "Withdraw collateral", "lending_withdrawCollateral"),
		c.amountCommand("borrow", "Borrow the base asset against collateral", "lending_borrowBase"),
		c.amountCommand("repay", "Repay borrowed base asset", "lending_repayBase"),
		liquidate,
		c.addressCommand("account", "Show a position with its accrued interest", "lending_account"),
		accounts,
		collateralValue,
	)
	return cmd
}

func newStakingCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{Use: "staking", Short: "Deposit into and withdraw from the staking vault"}
	cmd.AddCommand(
		c.amountCommand("deposit", "Stake tokens", "staking_deposit"),
		c.amountCommand("withdraw", "Withdraw principal plus accrued interest", "staking_withdraw"),
		c.addressCommand("balance", "Show principal and pending interest", "staking_balance"),
	)
	return cmd
}

func newBankCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{Use: "bank", Short: "Balances, allowances and the development faucet"}

	balance := &cobra.Command{
		Use:   "balance <address> <asset>",
		Short: "Show an account balance",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, "bank_balance", map[string]string{"address": args[0], "asset": args[1]}, false)
		},
	}

	approve := &cobra.Command{
		Use:   "approve <asset> <spender> <amount>",
		Short: "Allow spender to pull amount of asset from --from",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := c.caller()
			if err != nil {
				return err
			}
			amount, err := c.amount("amount", args[2])
			if err != nil {
				return err
			}
			return c.run(cmd, "bank_approve", map[string]string{
				"from":    from,
				"asset":   args[0],
				"spender": args[1],
				"amount":  amount,
			}, false)
		},
	}

	approveModules := &cobra.Command{
		Use:   "approve-modules",
		Short: "Grant every module an unlimited allowance over the assets it pulls",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			from, err := c.caller()
			if err != nil {
				return err
			}
			return c.run(cmd, "bank_approveModules", map[string]string{"from": from}, false)
		},
	}

	mint := &cobra.Command{
		Use:   "mint <to> <asset> <amount>",
		Short: "Credit funds through the development faucet",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := c.amount("amount", args[2])
			if err != nil {
				return err
			}
			return c.run(cmd, "bank_mint", map[string]string{"to": args[0], "asset": args[1], "amount": amount}, true)
		},
	}

	cmd.AddCommand(balance, approve, approveModules, mint)
	return cmd
}

func newEventsCmd(c *cli) *cobra.Command {
	var (
		eventType string
		txID      string
		afterID   int64
		limit     int
	)
	cmd := &cobra.Command{Use: "events", Short: "Query the committed event log"}
	list := &cobra.Command{
		Use:   "list",
		Short: "List events, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			param := map[string]interface{}{}
			if eventType != "" {
				param["type"] = eventType
			}
			if txID != "" {
				param["txId"] = txID
			}
			if afterID > 0 {
				param["afterId"] = afterID
			}
			if limit > 0 {
				param["limit"] = limit
			}
			return c.run(cmd, "events_list", param, false)
		},
	}
	list.Flags().StringVar(&eventType, "type", "", "only events of this type, e.g. swap.trade")
	list.Flags().StringVar(&txID, "tx", "", "only events of this submission")
	list.Flags().Int64Var(&afterID, "after", 0, "only events with an id above this cursor")
	list.Flags().IntVar(&limit, "limit", 0, "maximum number of events (server default 100)")
	cmd.AddCommand(list)
	return cmd
}
