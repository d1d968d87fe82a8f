// Package push delivers best-effort notifications to devices of users who
// are offline or backgrounded. Dispatch never returns an error to the
// triggering operation: failures are logged, stale tokens are garbage
// collected, everything else is treated as transient.
package push

import (
	"context"

	"campus-chat-be/pkg/logger"
)

type Notification struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

type Dispatcher interface {
	Dispatch(ctx context.Context, userIDs []uint, n Notification)
}

// Disabled is wired when no backend is configured.
type Disabled struct {
	Log logger.Logger
}

func (d Disabled) Dispatch(_ context.Context, userIDs []uint, n Notification) {
	d.Log.Debug("push disabled, dropping notification", "users", len(userIDs), "title", n.Title)
}
