package middleware

import "context"

type actorKey struct{}

type actor struct {
	chatID int64
	role   string
}

func actorFrom(ctx context.Context) actor {
	if ctx == nil {
		return actor{}
	}
	a, _ := ctx.Value(actorKey{}).(actor)
	return a
}

// AdminIDFromContext returns the authenticated operator's chat id, or 0.
func AdminIDFromContext(ctx context.Context) int64 {
	return actorFrom(ctx).chatID
}

// RoleFromContext returns the authenticated role, or "".
func RoleFromContext(ctx context.Context) string {
	return actorFrom(ctx).role
}

func WithAdmin(ctx context.Context, chatID int64, role string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorKey{}, actor{chatID: chatID, role: role})
}
