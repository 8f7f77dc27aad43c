package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/stashbot/api/responses"
	"github.com/angelmondragon/stashbot/api/validators"
	"github.com/angelmondragon/stashbot/internal/buyers"
	"github.com/angelmondragon/stashbot/internal/inventory"
	"github.com/angelmondragon/stashbot/internal/sessions"
	"github.com/angelmondragon/stashbot/pkg/db/models"
	"github.com/angelmondragon/stashbot/pkg/logger"
)

type productLister interface {
	ListActiveProducts(ctx context.Context) ([]inventory.ProductSummary, error)
}

type buyerAccounts interface {
	Touch(ctx context.Context, profile buyers.Profile) (*models.BuyerAccount, error)
	Account(ctx context.Context, buyerID int64) (*models.BuyerAccount, error)
}

// ListProducts returns the active catalog with live stock counts.
func ListProducts(svc productLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.ListActiveProducts(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]productView, 0, len(list))
		for _, p := range list {
			out = append(out, newProductSummaryView(p))
		}
		responses.WriteSuccess(w, out)
	}
}

type touchBuyerRequest struct {
	ID        int64  `json:"id" validate:"required,gt=0"`
	Username  string `json:"username" validate:"max=64"`
	FirstName string `json:"first_name" validate:"max=128"`
	LastName  string `json:"last_name" validate:"max=128"`
}

// TouchBuyer records the chat profile seen on an interaction.
func TouchBuyer(svc buyerAccounts, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body touchBuyerRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		account, err := svc.Touch(r.Context(), buyers.Profile{
			ID:        body.ID,
			Username:  validators.Handle(body.Username),
			FirstName: validators.SanitizeString(body.FirstName, 128),
			LastName:  validators.SanitizeString(body.LastName, 128),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newBuyerView(*account))
	}
}

func GetBuyer(svc buyerAccounts, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		buyerID, err := validators.ParseChatIDParam(r, "buyerID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		account, err := svc.Account(r.Context(), buyerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newBuyerView(*account))
	}
}

type startSessionRequest struct {
	ProductID uint `json:"product_id" validate:"required,gt=0"`
}

// StartSession prices the chosen product and opens the buyer's checkout session.
func StartSession(svc sessions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		buyerID, err := validators.ParseChatIDParam(r, "buyerID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body startSessionRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithBuyerID(ctx, buyerID)
		}
		session, err := svc.Start(ctx, buyerID, body.ProductID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteCreated(w, session)
	}
}

func GetSession(svc sessions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		buyerID, err := validators.ParseChatIDParam(r, "buyerID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		session, err := svc.Get(r.Context(), buyerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, session)
	}
}

// CancelSession drops the buyer's checkout session; cancelling nothing is not an error.
func CancelSession(svc sessions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		buyerID, err := validators.ParseChatIDParam(r, "buyerID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Cancel(r.Context(), buyerID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"cancelled": true})
	}
}
