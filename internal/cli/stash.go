package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/angelmondragon/stashbot/internal/app"
	"github.com/angelmondragon/stashbot/internal/inventory"
	"github.com/angelmondragon/stashbot/pkg/enums"
)

// NewStashCommand groups stash pool management.
func NewStashCommand(env *environment) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stash",
		Short: "Manage deliverable stash items",
	}
	cmd.AddCommand(newStashImportCommand(env))
	return cmd
}

func newStashImportCommand(env *environment) *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "import <product-id> [file]",
		Short: "Add one stash item per non-blank line",
		Long: `Add one stash item per non-blank line of file, or of stdin when file is
omitted or "-". For photo and document kinds each line is a file reference.`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			productID, err := parseProductID(args[0])
			if err != nil {
				return err
			}
			payloadKind, err := enums.ParsePayloadKind(strings.ToLower(strings.TrimSpace(kind)))
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid --kind", err)
			}
			path := "-"
			if len(args) == 2 {
				path = args[1]
			}
			raw, err := readInput(cmd, path)
			if err != nil {
				return WrapExitError(ExitCommandError, "read stash input", err)
			}
			payloads := linePayloads(payloadKind, raw)
			if len(payloads) == 0 {
				return NewExitError(ExitCommandError, "no stash items in input")
			}
			return env.with(cmd, func(ctx context.Context, a *app.App, out *OutputFormatter) error {
				added, err := a.Inventory.AddItems(ctx, productID, payloads)
				if err != nil {
					return WrapExitError(ExitFailure, "import stash", err)
				}
				out.VerboseLog("imported %d %s item(s) into product %d", added, payloadKind, productID)
				return out.Render(map[string]int{"added": added}, func(w io.Writer) {
					fmt.Fprintf(w, "added %d item(s) to product %d\n", added, productID)
				})
			})
		},
	}
	cmd.Flags().StringVarP(&kind, "kind", "k", string(enums.PayloadKindText), "payload kind (text|photo|document)")
	return cmd
}

func readInput(cmd *cobra.Command, path string) (string, error) {
	if path == "-" {
		raw, err := io.ReadAll(cmd.InOrStdin())
		return string(raw), err
	}
	raw, err := os.ReadFile(path)
	return string(raw), err
}

func linePayloads(kind enums.PayloadKind, raw string) []inventory.Payload {
	payloads := inventory.SplitTextPayloads(raw)
	if !kind.HasFile() {
		return payloads
	}
	for i := range payloads {
		payloads[i] = inventory.Payload{Kind: kind, FileRef: payloads[i].Content}
	}
	return payloads
}
