package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/stashbot/api/responses"
	"github.com/angelmondragon/stashbot/api/validators"
	"github.com/angelmondragon/stashbot/internal/orders"
	"github.com/angelmondragon/stashbot/pkg/logger"
)

type submitOrderRequest struct {
	PaymentRef    string `json:"payment_ref" validate:"required,max=128"`
	BuyerUsername string `json:"buyer_username" validate:"max=64"`
}

// SubmitOrder turns the buyer's session plus a payment reference into a pending order.
// A stock_error placement is a recorded outcome, not a failure, so it returns 200.
func SubmitOrder(svc orders.Coordinator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		buyerID, err := validators.ParseChatIDParam(r, "buyerID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body submitOrderRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithBuyerID(ctx, buyerID)
			ctx = logg.WithPaymentRef(ctx, body.PaymentRef)
		}
		placement, err := svc.Submit(ctx, orders.SubmitInput{
			BuyerID:       buyerID,
			BuyerUsername: validators.Handle(body.BuyerUsername),
			PaymentRef:    body.PaymentRef,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		view := placementView{Outcome: placement.Outcome, Order: newOrderView(placement.Order)}
		if placement.Reserved() {
			responses.WriteCreated(w, view)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func ListBuyerOrders(svc orders.Coordinator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		buyerID, err := validators.ParseChatIDParam(r, "buyerID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 20, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ListBuyerOrders(r.Context(), buyerID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderViews(list))
	}
}

func GetOrder(svc orders.Coordinator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		order, err := svc.GetOrder(r.Context(), chi.URLParam(r, "ref"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderView(*order))
	}
}
