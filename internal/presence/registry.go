// Package presence tracks which users currently hold at least one realtime
// connection. The registry is a reference count per user: Connect/Disconnect
// report the online/offline edge so the gateway can broadcast transitions
// exactly once per edge.
package presence

import "context"

type Registry interface {
	// Connect bumps the user's connection count and reports whether this
	// was their first live connection.
	Connect(ctx context.Context, userID uint) (first bool, err error)
	// Disconnect drops one connection and reports whether the user just
	// went fully offline.
	Disconnect(ctx context.Context, userID uint) (last bool, err error)
	Online(ctx context.Context, userID uint) (bool, error)
	OnlineUsers(ctx context.Context) ([]uint, error)
}
