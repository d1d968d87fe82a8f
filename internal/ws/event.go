package ws

import "encoding/json"

// Realtime protocol event names.
//
// Client -> server.
const (
	EvtJoinRoom         = "join-room"
	EvtChatMessage      = "chat-message"
	EvtPrivateMessage   = "private-message"
	EvtTyping           = "typing"
	EvtStopTyping       = "stop_typing"
	EvtMessageDelivered = "message-delivered"
	EvtMessageRead      = "message-read"
)

// Server -> client (chat-message / private-message / typing are reused in
// both directions).
const (
	EvtChatMessageEdit      = "chat-message-edit"
	EvtChatMessageDelete    = "chat-message-delete"
	EvtPrivateMessageEdit   = "private-message-edit"
	EvtPrivateMessageDelete = "private-message-delete"
	EvtConversationUpdate   = "conversation_update"
	EvtUserOnline           = "user_online"
	EvtUserOffline          = "user_offline"
)

// Event is the wire envelope for server -> client pushes.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// ClientEvent is the envelope read off a client connection. Data stays raw
// until the gateway knows which shape to decode.
type ClientEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}
