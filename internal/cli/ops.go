package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/angelmondragon/stashbot/internal/app"
	"github.com/angelmondragon/stashbot/pkg/auth"
	"github.com/angelmondragon/stashbot/pkg/enums"
)

// NewStatsCommand prints the store summary.
func NewStatsCommand(env *environment) *cobra.Command {
	return &cobra.Command{
		Use:           "stats",
		Short:         "Show buyer, order and stock totals",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.with(cmd, func(ctx context.Context, a *app.App, out *OutputFormatter) error {
				summary, err := a.Stats.Summary(ctx)
				if err != nil {
					return WrapExitError(ExitFailure, "load stats", err)
				}
				return out.Render(summary, func(w io.Writer) {
					fmt.Fprintf(w, "buyers\t%d\n", summary.TotalBuyers)
					fmt.Fprintf(w, "paying buyers\t%d\n", summary.PayingBuyers)
					fmt.Fprintf(w, "orders\t%d\n", summary.TotalOrders)
					statuses := make([]string, 0, len(summary.OrdersByStatus))
					for status := range summary.OrdersByStatus {
						statuses = append(statuses, string(status))
					}
					sort.Strings(statuses)
					for _, status := range statuses {
						fmt.Fprintf(w, "  %s\t%d\n", status, summary.OrdersByStatus[enums.OrderStatus(status)])
					}
					fmt.Fprintf(w, "total spent\t%s %s\n", summary.TotalSpent.String(), a.Config.Store.Currency)
					fmt.Fprintf(w, "active products\t%d\n", summary.ActiveProducts)
					fmt.Fprintf(w, "available items\t%d\n", summary.AvailableItems)
					fmt.Fprintf(w, "reserved items\t%d\n", summary.ReservedItems)
				})
			})
		},
	}
}

// NewTokenCommand mints an admin API bearer token.
func NewTokenCommand(env *environment) *cobra.Command {
	var chatID int64
	cmd := &cobra.Command{
		Use:           "token",
		Short:         "Mint an admin API token",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.with(cmd, func(ctx context.Context, a *app.App, out *OutputFormatter) error {
				id := chatID
				if id == 0 {
					id = a.Config.Admin.ChatID
				}
				now := time.Now()
				token, err := auth.MintAdminToken(a.Config.Admin, now, id)
				if err != nil {
					return WrapExitError(ExitFailure, "mint token", err)
				}
				expires := now.Add(a.Config.Admin.TokenTTL())
				return out.Render(map[string]any{"token": token, "expires_at": expires}, func(w io.Writer) {
					fmt.Fprintln(w, token)
				})
			})
		},
	}
	cmd.Flags().Int64Var(&chatID, "chat-id", 0, "operator chat id (defaults to the configured admin)")
	return cmd
}

// NewReconcileCommand runs one maintenance cycle: stale pending orders are timed
// out, sent notifications pruned and expired sessions evicted.
func NewReconcileCommand(env *environment) *cobra.Command {
	return &cobra.Command{
		Use:           "reconcile",
		Short:         "Run the maintenance jobs once",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.with(cmd, func(ctx context.Context, a *app.App, out *OutputFormatter) error {
				dispatchCtx, cancel := context.WithCancel(ctx)
				done := make(chan error, 1)
				go func() { done <- a.Dispatcher.Run(dispatchCtx) }()

				runErr := a.Cron.RunOnce(ctx)
				cancel()
				if err := <-done; err != nil {
					out.VerboseLog("dispatcher: %v", err)
				}
				if runErr != nil {
					return WrapExitError(ExitFailure, "reconcile", runErr)
				}
				return out.Render(map[string]bool{"ok": true}, func(w io.Writer) {
					fmt.Fprintln(w, "maintenance cycle complete")
				})
			})
		},
	}
}
