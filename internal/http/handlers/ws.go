package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"campus-chat-be/internal/chat"
	"campus-chat-be/internal/http/middleware"
	"campus-chat-be/internal/presence"
	"campus-chat-be/internal/ws"
	"campus-chat-be/pkg/logger"

	"github.com/gin-gonic/gin"
	"nhooyr.io/websocket"
)

// WSHandler is the realtime gateway: it authenticates the handshake, ties
// the connection into the hub and presence registry, and pumps client
// events into the chat service.
type WSHandler struct {
	Hub                  *ws.Hub
	Service              *chat.Service
	Presence             presence.Registry
	JWTSecret            string
	WSInsecureSkipVerify bool
	Log                  logger.Logger
}

func (h *WSHandler) Handle(c *gin.Context) {
	// Browsers cannot set Authorization on a websocket handshake, so the
	// token usually rides the query string; the header works too and both
	// carry the same format.
	tokenStr := c.Query("token")
	if tokenStr == "" {
		if a := c.GetHeader("Authorization"); strings.HasPrefix(a, "Bearer ") {
			tokenStr = strings.TrimPrefix(a, "Bearer ")
		}
	}
	if tokenStr == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "missing token"})
		return
	}

	// Auth must pass before the upgrade: a rejected connection never joins
	// a room and never bumps presence.
	p, err := middleware.ParseToken(tokenStr, h.JWTSecret)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "invalid token"})
		return
	}

	opts := &websocket.AcceptOptions{}
	if h.WSInsecureSkipVerify {
		opts.InsecureSkipVerify = true
	}

	conn, err := websocket.Accept(c.Writer, c.Request, opts)
	if err != nil {
		return // Accept already wrote the error response
	}

	client := h.Hub.AddClient(p.ID, conn)
	defer h.Hub.RemoveClient(client)

	ctx := c.Request.Context()
	if first, err := h.Presence.Connect(ctx, p.ID); err != nil {
		h.Log.Error("presence connect failed", "user_id", p.ID, "err", err)
	} else if first {
		h.Hub.Broadcast(ws.Event{Type: ws.EvtUserOnline, Data: gin.H{"user_id": p.ID}})
	}
	defer func() {
		// request context is gone by now
		dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if last, err := h.Presence.Disconnect(dctx, p.ID); err != nil {
			h.Log.Error("presence disconnect failed", "user_id", p.ID, "err", err)
		} else if last {
			h.Hub.Broadcast(ws.Event{Type: ws.EvtUserOffline, Data: gin.H{"user_id": p.ID}})
		}
	}()

	client.ReadLoop(ctx, func(ev ws.ClientEvent) {
		h.handleEvent(ctx, p, client, ev)
	})
}

type joinRoomPayload struct {
	Room string `json:"room"`
}

type typingPayload struct {
	To   uint   `json:"to"`
	Room string `json:"room"`
}

type roomMessagePayload struct {
	Room    string          `json:"room"`
	Message json.RawMessage `json:"message"`
}

type directRelayPayload struct {
	To      uint            `json:"to"`
	Message json.RawMessage `json:"message"`
}

type messageAckPayload struct {
	MessageID uint `json:"messageId"`
}

func (h *WSHandler) handleEvent(ctx context.Context, p middleware.Principal, client *ws.Client, ev ws.ClientEvent) {
	switch ev.Type {
	case ws.EvtJoinRoom:
		var pl joinRoomPayload
		if json.Unmarshal(ev.Data, &pl) == nil && pl.Room != "" {
			h.Hub.JoinRoom(client, pl.Room)
		}

	case ws.EvtTyping, ws.EvtStopTyping:
		var pl typingPayload
		if json.Unmarshal(ev.Data, &pl) != nil {
			return
		}
		out := ws.Event{Type: ev.Type, Data: gin.H{"from": p.ID, "name": p.Name, "room": pl.Room}}
		if pl.To != 0 {
			h.Hub.ToUser(pl.To, out)
		} else if pl.Room != "" {
			h.Hub.ToRoom(pl.Room, out)
		}

	case ws.EvtChatMessage:
		// legacy client-originated relay, no persistence
		var pl roomMessagePayload
		if json.Unmarshal(ev.Data, &pl) != nil || pl.Room == "" {
			return
		}
		h.Hub.ToRoom(pl.Room, ws.Event{Type: ws.EvtChatMessage, Data: gin.H{
			"room": pl.Room, "from": p.ID, "name": p.Name, "message": pl.Message,
		}})

	case ws.EvtPrivateMessage:
		var pl directRelayPayload
		if json.Unmarshal(ev.Data, &pl) != nil || pl.To == 0 {
			return
		}
		out := ws.Event{Type: ws.EvtPrivateMessage, Data: gin.H{
			"from": p.ID, "name": p.Name, "message": pl.Message,
		}}
		h.Hub.ToUser(pl.To, out)
		h.Hub.ToUser(p.ID, out) // echo to the sender's other devices

	case ws.EvtMessageDelivered:
		var pl messageAckPayload
		if json.Unmarshal(ev.Data, &pl) != nil || pl.MessageID == 0 {
			return
		}
		if err := h.Service.MarkDelivered(ctx, p.ID, pl.MessageID); err != nil {
			h.Log.Warn("delivered ack rejected", "user_id", p.ID, "message_id", pl.MessageID, "err", err)
		}

	case ws.EvtMessageRead:
		var pl messageAckPayload
		if json.Unmarshal(ev.Data, &pl) != nil || pl.MessageID == 0 {
			return
		}
		if err := h.Service.MarkMessageRead(ctx, p.ID, pl.MessageID); err != nil {
			h.Log.Warn("read ack rejected", "user_id", p.ID, "message_id", pl.MessageID, "err", err)
		}

	default:
		h.Log.Debug("unknown client event", "type", ev.Type, "user_id", p.ID)
	}
}
