package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"soudefi/core/types"
)

// cli carries the persistent flags shared by every subcommand.
type cli struct {
	endpoint string
	token    string
	from     string
	rawUnits bool
	out      io.Writer
}

func main() {
	root := newRootCmd(os.Stdout, os.Stderr)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	c := &cli{out: stdout}
	root := &cobra.Command{
		Use:          "sou-cli",
		Short:        "Command line client for the soud JSON-RPC API",
		SilenceUsage: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&c.endpoint, "rpc", defaultRPCEndpoint(), "JSON-RPC endpoint (env "+rpcURLEnv+")")
	flags.StringVar(&c.token, "token", os.Getenv(rpcTokenEnv), "bearer token for privileged calls (env "+rpcTokenEnv+")")
	flags.StringVar(&c.from, "from", os.Getenv(fromEnv), "caller account (env "+fromEnv+")")
	flags.BoolVar(&c.rawUnits, "raw", false, "treat amounts as integer base units instead of 18-decimal values")

	root.AddCommand(
		newSwapCmd(c),
		newLendingCmd(c),
		newStakingCmd(c),
		newBankCmd(c),
		newEventsCmd(c),
	)
	return root
}

func (c *cli) client() *rpcClient {
	return newRPCClient(c.endpoint, c.token)
}

func (c *cli) caller() (string, error) {
	from := strings.TrimSpace(c.from)
	if from == "" {
		return "", errors.New("--from is required")
	}
	return from, nil
}

// amount converts a CLI amount argument into the base-unit string the node
// expects.
func (c *cli) amount(name, value string) (string, error) {
	if c.rawUnits {
		parsed, err := types.ParseAmount(value)
		if err != nil {
			return "", fmt.Errorf("invalid %s: %w", name, err)
		}
		return parsed.String(), nil
	}
	parsed, err := types.ParseUnits(value)
	if err != nil {
		return "", fmt.Errorf("invalid %s: %w", name, err)
	}
	return parsed.String(), nil
}

// run calls method and prints the JSON result.
func (c *cli) run(cmd *cobra.Command, method string, param interface{}, requireAuth bool) error {
	result, err := c.client().call(cmd.Context(), method, param, requireAuth)
	if err != nil {
		return err
	}
	printJSON(c.out, result)
	return nil
}

// amountCommand builds a "<use> <amount>" command that submits
// {from, amount} to method.
func (c *cli) amountCommand(use, short, method string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <amount>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := c.caller()
			if err != nil {
				return err
			}
			amount, err := c.amount("amount", args[0])
			if err != nil {
				return err
			}
			return c.run(cmd, method, map[string]string{"from": from, "amount": amount}, false)
		},
	}
}

// addressCommand builds a "<use> <address>" query command.
func (c *cli) addressCommand(use, short, method string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <address>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, method, map[string]string{"address": args[0]}, false)
		},
	}
}
