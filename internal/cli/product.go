package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/angelmondragon/stashbot/internal/app"
	"github.com/angelmondragon/stashbot/internal/inventory"
	"github.com/angelmondragon/stashbot/pkg/enums"
)

type productRow struct {
	ID        uint                `json:"id"`
	Name      string              `json:"name"`
	UnitPrice decimal.Decimal     `json:"unit_price"`
	Kind      string              `json:"kind"`
	Status    enums.ProductStatus `json:"status"`
	Available *int64              `json:"available,omitempty"`
}

// NewProductCommand groups catalog management.
func NewProductCommand(env *environment) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "product",
		Short: "Manage the product catalog",
	}
	cmd.AddCommand(newProductAddCommand(env))
	cmd.AddCommand(newProductListCommand(env))
	cmd.AddCommand(newProductDeleteCommand(env))
	cmd.AddCommand(newProductStockCommand(env))
	return cmd
}

func newProductAddCommand(env *environment) *cobra.Command {
	var name, price, kind string
	cmd := &cobra.Command{
		Use:           "add",
		Short:         "Create a product",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			unitPrice, err := inventory.ParsePrice(price)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid --price", err)
			}
			return env.with(cmd, func(ctx context.Context, a *app.App, out *OutputFormatter) error {
				product, err := a.Inventory.CreateProduct(ctx, inventory.CreateProductInput{
					Name:      name,
					UnitPrice: unitPrice,
					Kind:      kind,
				})
				if err != nil {
					return WrapExitError(ExitFailure, "create product", err)
				}
				row := productRow{ID: product.ID, Name: product.Name, UnitPrice: product.UnitPrice, Kind: product.Kind, Status: product.Status}
				return out.Render(row, func(w io.Writer) {
					fmt.Fprintf(w, "created product %d\t%s\t%s\n", row.ID, row.Name, row.UnitPrice.StringFixed(2))
				})
			})
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "product name")
	cmd.Flags().StringVarP(&price, "price", "p", "", "unit price in the base currency")
	cmd.Flags().StringVar(&kind, "kind", "", "free-form product kind")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("price")
	return cmd
}

func newProductListCommand(env *environment) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List active products with available stock",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.with(cmd, func(ctx context.Context, a *app.App, out *OutputFormatter) error {
				summaries, err := a.Inventory.ListActiveProducts(ctx)
				if err != nil {
					return WrapExitError(ExitFailure, "list products", err)
				}
				rows := make([]productRow, 0, len(summaries))
				for _, s := range summaries {
					available := s.Available
					rows = append(rows, productRow{
						ID:        s.Product.ID,
						Name:      s.Product.Name,
						UnitPrice: s.Product.UnitPrice,
						Kind:      s.Product.Kind,
						Status:    s.Product.Status,
						Available: &available,
					})
				}
				return out.Render(rows, func(w io.Writer) {
					fmt.Fprintln(w, "ID\tNAME\tPRICE\tAVAILABLE")
					for _, r := range rows {
						fmt.Fprintf(w, "%d\t%s\t%s\t%d\n", r.ID, r.Name, r.UnitPrice.StringFixed(2), *r.Available)
					}
				})
			})
		},
	}
}

func newProductDeleteCommand(env *environment) *cobra.Command {
	return &cobra.Command{
		Use:           "delete <product-id>",
		Short:         "Remove a product from the catalog",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			productID, err := parseProductID(args[0])
			if err != nil {
				return err
			}
			return env.with(cmd, func(ctx context.Context, a *app.App, out *OutputFormatter) error {
				if err := a.Inventory.DeleteProduct(ctx, productID); err != nil {
					return WrapExitError(ExitFailure, "delete product", err)
				}
				return out.Render(map[string]uint{"deleted": productID}, func(w io.Writer) {
					fmt.Fprintf(w, "deleted product %d\n", productID)
				})
			})
		},
	}
}

func newProductStockCommand(env *environment) *cobra.Command {
	return &cobra.Command{
		Use:           "stock <product-id>",
		Short:         "Show available and reserved stash counts",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			productID, err := parseProductID(args[0])
			if err != nil {
				return err
			}
			return env.with(cmd, func(ctx context.Context, a *app.App, out *OutputFormatter) error {
				counts, err := a.Inventory.Counts(ctx, productID)
				if err != nil {
					return WrapExitError(ExitFailure, "count stock", err)
				}
				return out.Render(counts, func(w io.Writer) {
					fmt.Fprintln(w, "AVAILABLE\tRESERVED\tTOTAL")
					fmt.Fprintf(w, "%d\t%d\t%d\n", counts.Available, counts.Reserved, counts.Total)
				})
			})
		},
	}
}

func parseProductID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, NewExitError(ExitCommandError, fmt.Sprintf("invalid product id %q", raw))
	}
	return uint(id), nil
}
