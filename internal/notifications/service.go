package notifications

import (
	"context"
	"time"

	"github.com/angelmondragon/stashbot/pkg/db/models"
	pkgerrors "github.com/angelmondragon/stashbot/pkg/errors"
	"github.com/angelmondragon/stashbot/pkg/pagination"
)

var ErrNotificationNotFound = pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")

// Service is the chat transport's view of the outbox: poll pending messages,
// then ack each one after delivery.
type Service interface {
	ListPending(ctx context.Context, params ListParams) (*ListResult, error)
	MarkSent(ctx context.Context, notificationID uint) error
}

type ListParams struct {
	RecipientID int64
	Limit       int
	Cursor      string
}

type ListResult struct {
	Items  []models.Notification `json:"items"`
	Cursor string                `json:"cursor"`
}

type service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	return &service{repo: repo, clock: time.Now}, nil
}

func (s *service) ListPending(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.RecipientID == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "recipient id required")
	}
	page, err := pagination.NewRequest(params.Limit, params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	rows, err := s.repo.ListPending(ctx, params.RecipientID, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}
	items, next := pagination.Slice(page, rows, func(n models.Notification) uint { return n.ID })
	return &ListResult{Items: items, Cursor: next}, nil
}

func (s *service) MarkSent(ctx context.Context, notificationID uint) error {
	if notificationID == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}
	found, err := s.repo.MarkSent(ctx, notificationID, s.clock().UTC())
	switch {
	case err != nil:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification sent")
	case !found:
		return ErrNotificationNotFound
	}
	return nil
}

