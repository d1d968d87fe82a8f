package push

import (
	"context"

	"campus-chat-be/pkg/logger"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// fcmClient is the slice of *messaging.Client we use; a seam for tests.
type fcmClient interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// FCM fans a notification out to mobile device tokens through Firebase
// Cloud Messaging. Tokens are handled independently: one bad token never
// blocks the rest, and tokens FCM reports as unregistered are deleted.
type FCM struct {
	client  fcmClient
	tokens  *TokenStore
	log     logger.Logger
	isStale func(error) bool
}

func NewFCM(ctx context.Context, credentialsFile string, tokens *TokenStore, log logger.Logger) (*FCM, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, err
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, err
	}
	return &FCM{client: client, tokens: tokens, log: log, isStale: messaging.IsUnregistered}, nil
}

func (f *FCM) Dispatch(ctx context.Context, userIDs []uint, n Notification) {
	tokens, err := f.tokens.ActiveTokens(ctx, userIDs, false)
	if err != nil {
		f.log.Error("push: resolving tokens failed", "err", err)
		return
	}

	for _, t := range tokens {
		msg := &messaging.Message{
			Token: t.Token,
			Notification: &messaging.Notification{
				Title: n.Title,
				Body:  n.Body,
			},
			Data: n.Data,
		}
		if _, err := f.client.Send(ctx, msg); err != nil {
			if f.isStale(err) {
				if delErr := f.tokens.Delete(ctx, t.Token); delErr != nil {
					f.log.Error("push: failed to drop stale token", "err", delErr)
				}
				continue
			}
			// transient: keep the token, it gets another chance next send
			f.log.Warn("push: fcm send failed", "user_id", t.UserID, "err", err)
		}
	}
}
