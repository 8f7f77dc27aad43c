package controllers

import (
	"net/http"

	"github.com/angelmondragon/stashbot/api/responses"
	"github.com/angelmondragon/stashbot/api/validators"
	"github.com/angelmondragon/stashbot/internal/notifications"
	pkgerrors "github.com/angelmondragon/stashbot/pkg/errors"
	"github.com/angelmondragon/stashbot/pkg/logger"
)

var errOutboxUnavailable = pkgerrors.New(pkgerrors.CodeInternal, "notifications service unavailable")

type notificationPage struct {
	Items  []notificationView `json:"items"`
	Cursor string             `json:"cursor"`
}

// ListNotifications returns the recipient's undelivered outbox, oldest first.
func ListNotifications(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, errOutboxUnavailable)
			return
		}

		recipientID, err := validators.ParseChatIDParam(r, "buyerID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := validators.ParsePage(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp, err := svc.ListPending(r.Context(), notifications.ListParams{
			RecipientID: recipientID,
			Limit:       page.Limit,
			Cursor:      page.Cursor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := notificationPage{Items: make([]notificationView, 0, len(resp.Items)), Cursor: resp.Cursor}
		for _, n := range resp.Items {
			out.Items = append(out.Items, newNotificationView(n))
		}
		responses.WriteSuccess(w, out)
	}
}

// MarkNotificationSent acknowledges that the transport delivered a notification.
func MarkNotificationSent(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, errOutboxUnavailable)
			return
		}

		id, err := validators.ParseIDParam(r, "notificationID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.MarkSent(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"sent": true})
	}
}
