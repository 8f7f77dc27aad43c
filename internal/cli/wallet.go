package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/angelmondragon/stashbot/internal/app"
	"github.com/angelmondragon/stashbot/pkg/db/models"
	"github.com/angelmondragon/stashbot/pkg/enums"
)

type walletRow struct {
	Currency  enums.Currency `json:"currency"`
	Address   string         `json:"address"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func newWalletRow(w models.Wallet) walletRow {
	return walletRow{Currency: w.Currency, Address: w.Address, UpdatedAt: w.UpdatedAt}
}

// NewWalletCommand groups receiving address management.
func NewWalletCommand(env *environment) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallet",
		Short: "Manage receiving wallet addresses",
	}
	cmd.AddCommand(&cobra.Command{
		Use:           "set <currency> <address>",
		Short:         "Set the receiving address for a currency",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			currency, err := enums.ParseCurrency(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid currency", err)
			}
			return env.with(cmd, func(ctx context.Context, a *app.App, out *OutputFormatter) error {
				wallet, err := a.Wallets.SetWallet(ctx, currency, args[1])
				if err != nil {
					return WrapExitError(ExitFailure, "set wallet", err)
				}
				row := newWalletRow(*wallet)
				return out.Render(row, func(w io.Writer) {
					fmt.Fprintf(w, "%s wallet set to %s\n", row.Currency, row.Address)
				})
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:           "list",
		Short:         "List configured wallets",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.with(cmd, func(ctx context.Context, a *app.App, out *OutputFormatter) error {
				wallets, err := a.Wallets.ListWallets(ctx)
				if err != nil {
					return WrapExitError(ExitFailure, "list wallets", err)
				}
				rows := make([]walletRow, 0, len(wallets))
				for _, w := range wallets {
					rows = append(rows, newWalletRow(w))
				}
				return out.Render(rows, func(w io.Writer) {
					fmt.Fprintln(w, "CURRENCY\tADDRESS")
					for _, r := range rows {
						fmt.Fprintf(w, "%s\t%s\n", r.Currency, r.Address)
					}
				})
			})
		},
	})
	return cmd
}
