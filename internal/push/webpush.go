package push

import (
	"context"
	"encoding/json"
	"net/http"

	"campus-chat-be/pkg/logger"

	"github.com/SherClockHolmes/webpush-go"
)

// WebPush delivers to browser subscriptions via the Web Push protocol. The
// device token column stores the subscription JSON as handed out by the
// browser's PushManager.
type WebPush struct {
	tokens *TokenStore
	log    logger.Logger
	opts   webpush.Options

	// seam for tests; defaults to webpush.SendNotification
	send func(payload []byte, sub *webpush.Subscription, opts *webpush.Options) (*http.Response, error)
}

func NewWebPush(publicKey, privateKey, subscriber string, tokens *TokenStore, log logger.Logger) *WebPush {
	return &WebPush{
		tokens: tokens,
		log:    log,
		opts: webpush.Options{
			VAPIDPublicKey:  publicKey,
			VAPIDPrivateKey: privateKey,
			Subscriber:      subscriber,
			TTL:             60,
		},
		send: webpush.SendNotification,
	}
}

func (w *WebPush) Dispatch(ctx context.Context, userIDs []uint, n Notification) {
	tokens, err := w.tokens.ActiveTokens(ctx, userIDs, true)
	if err != nil {
		w.log.Error("push: resolving subscriptions failed", "err", err)
		return
	}

	payload, err := json.Marshal(n)
	if err != nil {
		w.log.Error("push: encoding payload failed", "err", err)
		return
	}

	for _, t := range tokens {
		var sub webpush.Subscription
		if err := json.Unmarshal([]byte(t.Token), &sub); err != nil {
			// not a valid subscription anymore, GC it
			_ = w.tokens.Delete(ctx, t.Token)
			continue
		}

		resp, err := w.send(payload, &sub, &w.opts)
		if err != nil {
			w.log.Warn("push: webpush send failed", "user_id", t.UserID, "err", err)
			continue
		}
		if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
			if delErr := w.tokens.Delete(ctx, t.Token); delErr != nil {
				w.log.Error("push: failed to drop stale subscription", "err", delErr)
			}
		}
		resp.Body.Close()
	}
}
