package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/stashbot/api/middleware"
	"github.com/angelmondragon/stashbot/api/responses"
	"github.com/angelmondragon/stashbot/api/validators"
	"github.com/angelmondragon/stashbot/internal/inventory"
	"github.com/angelmondragon/stashbot/internal/stats"
	"github.com/angelmondragon/stashbot/pkg/db/models"
	"github.com/angelmondragon/stashbot/pkg/enums"
	pkgerrors "github.com/angelmondragon/stashbot/pkg/errors"
	"github.com/angelmondragon/stashbot/pkg/logger"
)

type catalogAdmin interface {
	CreateProduct(ctx context.Context, input inventory.CreateProductInput) (*models.Product, error)
	DeleteProduct(ctx context.Context, productID uint) error
	AddItems(ctx context.Context, productID uint, payloads []inventory.Payload) (int, error)
	Counts(ctx context.Context, productID uint) (inventory.Counts, error)
}

type walletAdmin interface {
	SetWallet(ctx context.Context, currency enums.Currency, address string) (*models.Wallet, error)
	ListWallets(ctx context.Context) ([]models.Wallet, error)
}

type statsReader interface {
	Summary(ctx context.Context) (*stats.Summary, error)
}

func adminContext(logg *logger.Logger, r *http.Request) context.Context {
	ctx := r.Context()
	if logg != nil {
		ctx = logg.WithField(ctx, "admin_id", middleware.AdminIDFromContext(ctx))
	}
	return ctx
}

type createProductRequest struct {
	Name      string `json:"name" validate:"required,max=128"`
	UnitPrice string `json:"unit_price" validate:"required,decimal"`
	Kind      string `json:"kind" validate:"omitempty,max=32"`
}

func AdminCreateProduct(svc catalogAdmin, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := adminContext(logg, r)
		var body createProductRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		price, err := inventory.ParsePrice(body.UnitPrice)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		product, err := svc.CreateProduct(ctx, inventory.CreateProductInput{
			Name:      validators.SanitizeString(body.Name, 128),
			UnitPrice: price,
			Kind:      validators.SanitizeString(body.Kind, 32),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if logg != nil {
			logg.Info(logg.WithField(ctx, "product_id", product.ID), "admin.product_created")
		}
		responses.WriteCreated(w, newProductView(*product))
	}
}

// AdminDeleteProduct soft-deletes a product; stash and order history stay.
func AdminDeleteProduct(svc catalogAdmin, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := adminContext(logg, r)
		productID, err := validators.ParseIDParam(r, "productID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err := svc.DeleteProduct(ctx, productID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"deleted": true})
	}
}

type stashItemRequest struct {
	Kind    string `json:"kind" validate:"omitempty,oneof=text photo document"`
	Content string `json:"content"`
	FileRef string `json:"file_ref"`
}

type importStashRequest struct {
	Items []stashItemRequest `json:"items" validate:"omitempty,dive"`
	Text  string             `json:"text"`
}

// AdminImportStash adds stash items either as structured items or as a
// newline-separated text paste.
func AdminImportStash(svc catalogAdmin, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := adminContext(logg, r)
		productID, err := validators.ParseIDParam(r, "productID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var body importStashRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		payloads := inventory.SplitTextPayloads(body.Text)
		for _, item := range body.Items {
			payloads = append(payloads, inventory.Payload{
				Kind:    enums.PayloadKind(item.Kind),
				Content: item.Content,
				FileRef: item.FileRef,
			})
		}
		if len(payloads) == 0 {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "items or text required"))
			return
		}
		added, err := svc.AddItems(ctx, productID, payloads)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteCreated(w, map[string]int{"added": added})
	}
}

func AdminProductStock(svc catalogAdmin, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := adminContext(logg, r)
		productID, err := validators.ParseIDParam(r, "productID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		counts, err := svc.Counts(ctx, productID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, counts)
	}
}

type setWalletRequest struct {
	Address string `json:"address" validate:"required,max=128"`
}

func AdminSetWallet(svc walletAdmin, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := adminContext(logg, r)
		currency, err := enums.ParseCurrency(chi.URLParam(r, "currency"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid currency"))
			return
		}
		var body setWalletRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		wallet, err := svc.SetWallet(ctx, currency, body.Address)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, newWalletView(*wallet))
	}
}

func AdminListWallets(svc walletAdmin, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := adminContext(logg, r)
		list, err := svc.ListWallets(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		out := make([]walletView, 0, len(list))
		for _, wallet := range list {
			out = append(out, newWalletView(wallet))
		}
		responses.WriteSuccess(w, out)
	}
}

func AdminStats(svc statsReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := adminContext(logg, r)
		summary, err := svc.Summary(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}
