// Package chat holds the messaging core: the direct/group message pipeline,
// delivery and read receipts, and the per-user conversation aggregation that
// feeds the sidebar. Handlers stay thin; everything stateful happens here.
package chat

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"campus-chat-be/internal/models"
	"campus-chat-be/internal/push"
	"campus-chat-be/internal/ws"
	"campus-chat-be/pkg/logger"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Emitter is the slice of *ws.Hub the service needs. Kept as an interface so
// tests can record emissions instead of opening sockets.
type Emitter interface {
	ToUser(userID uint, ev ws.Event)
	ToUsers(userIDs []uint, ev ws.Event)
	ToRoom(room string, ev ws.Event)
}

type Service struct {
	db   *gorm.DB
	hub  Emitter
	push push.Dispatcher
	log  logger.Logger
	now  func() time.Time

	// tracks detached push goroutines so tests can wait them out
	pushWG sync.WaitGroup
}

func NewService(db *gorm.DB, hub Emitter, dispatcher push.Dispatcher, log logger.Logger) *Service {
	return &Service{
		db:   db,
		hub:  hub,
		push: dispatcher,
		log:  log,
		now:  time.Now,
	}
}

// notify fires push fan-out detached from the caller. Errors, panics and
// slow providers inside the dispatcher never reach the operation that
// triggered it.
func (s *Service) notify(userIDs []uint, n push.Notification) {
	if s.push == nil || len(userIDs) == 0 {
		return
	}

	s.pushWG.Add(1)
	go func() {
		defer s.pushWG.Done()
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("push dispatch panicked", "panic", r)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		s.push.Dispatch(ctx, userIDs, n)
	}()
}

// touchLastRead upserts the user's read watermark for one conversation
// without touching their pinned flag.
func (s *Service) touchLastRead(ctx context.Context, userID uint, ctype string, convID uint) error {
	now := s.now()
	state := models.ConversationState{
		UserID:           userID,
		ConversationType: ctype,
		ConversationID:   convID,
		LastReadAt:       &now,
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "user_id"}, {Name: "conversation_type"}, {Name: "conversation_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"last_read_at", "updated_at"}),
	}).Create(&state).Error
}

func attachmentsJSON(atts []models.Attachment) datatypes.JSON {
	if len(atts) == 0 {
		return nil
	}
	raw, err := json.Marshal(atts)
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}

// preview renders the notification body for a message. Truncation counts
// runes so a multi-byte character is never cut mid-sequence.
func preview(content string, attachments datatypes.JSON) string {
	if content != "" {
		if runes := []rune(content); len(runes) > 120 {
			return string(runes[:120])
		}
		return content
	}
	if len(attachments) > 0 {
		return "sent an attachment"
	}
	return ""
}
