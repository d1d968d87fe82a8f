package chat

import (
	"context"
	"strconv"
	"strings"
	"time"

	"campus-chat-be/internal/models"
	"campus-chat-be/internal/push"
	"campus-chat-be/internal/ws"
	"campus-chat-be/pkg/errors"
)

type SendDirectInput struct {
	ReceiverID  uint
	Content     string
	Attachments []models.Attachment
}

type DirectPage struct {
	Messages   []models.DirectMessage `json:"messages"`
	HasMore    bool                   `json:"hasMore"`
	NextCursor *time.Time             `json:"nextCursor"`
}

// SendDirect persists a 1:1 message and fans it out: realtime event to both
// private rooms, conversation updates for both parties, push for the
// receiver only. The sender's own watermark is bumped so their message never
// counts as unread for themselves.
func (s *Service) SendDirect(ctx context.Context, senderID uint, in SendDirectInput) (*models.DirectMessage, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" && len(in.Attachments) == 0 {
		return nil, errors.ErrEmptyMessage
	}

	var receiver models.User
	if err := s.db.WithContext(ctx).First(&receiver, in.ReceiverID).Error; err != nil {
		return nil, errors.ErrUserNotFound
	}

	msg := models.DirectMessage{
		SenderID:    senderID,
		ReceiverID:  in.ReceiverID,
		Content:     content,
		Attachments: attachmentsJSON(in.Attachments),
		CreatedAt:   s.now(),
	}
	if err := s.db.WithContext(ctx).Create(&msg).Error; err != nil {
		return nil, errors.ErrSendFailed(err)
	}
	if err := s.db.WithContext(ctx).Preload("Sender").First(&msg, msg.ID).Error; err != nil {
		return nil, errors.ErrQueryFailed(err)
	}

	if err := s.touchLastRead(ctx, senderID, models.ConversationDirect, in.ReceiverID); err != nil {
		s.log.Error("send: bumping sender watermark failed", "err", err)
	}

	s.hub.ToUsers([]uint{senderID, in.ReceiverID}, ws.Event{Type: ws.EvtPrivateMessage, Data: msg})

	s.emitConversationUpdate(ctx, senderID, models.ConversationDirect, in.ReceiverID)
	s.emitConversationUpdate(ctx, in.ReceiverID, models.ConversationDirect, senderID)

	s.notify([]uint{in.ReceiverID}, push.Notification{
		Title: msg.Sender.Name,
		Body:  preview(msg.Content, msg.Attachments),
		Data: map[string]string{
			"type":       models.ConversationDirect,
			"contact_id": strconv.FormatUint(uint64(senderID), 10),
		},
	})

	return &msg, nil
}

// DirectHistory pages through the 1:1 history with a timestamp cursor:
// fetch limit+1 newest-first, trim the probe row, hand back chronological
// order plus the cursor for the next (older) page.
func (s *Service) DirectHistory(ctx context.Context, userID, contactID uint, limit int, before *time.Time) (*DirectPage, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	q := s.db.WithContext(ctx).Preload("Sender").
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			userID, contactID, contactID, userID).
		Order("created_at DESC").Order("id DESC").
		Limit(limit + 1)
	if before != nil {
		q = q.Where("created_at < ?", *before)
	}

	var msgs []models.DirectMessage
	if err := q.Find(&msgs).Error; err != nil {
		return nil, errors.ErrQueryFailed(err)
	}

	hasMore := len(msgs) == limit+1
	if hasMore {
		msgs = msgs[:limit]
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}

	page := &DirectPage{Messages: msgs, HasMore: hasMore}
	if hasMore && len(msgs) > 0 {
		oldest := msgs[0].CreatedAt
		page.NextCursor = &oldest
	}
	return page, nil
}

// EditDirect rewrites a message the caller authored. The edit reintroduces
// the message as unread and undelivered no matter its prior state.
func (s *Service) EditDirect(ctx context.Context, senderID, messageID uint, content string) (*models.DirectMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errors.ErrEmptyMessage
	}

	now := s.now()
	res := s.db.WithContext(ctx).Model(&models.DirectMessage{}).
		Where("id = ? AND sender_id = ?", messageID, senderID).
		Updates(map[string]interface{}{
			"content":      content,
			"edited_at":    now,
			"is_read":      false,
			"delivered_at": nil,
		})
	if res.Error != nil {
		return nil, errors.ErrQueryFailed(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, errors.ErrMessageNotFound
	}

	var msg models.DirectMessage
	if err := s.db.WithContext(ctx).Preload("Sender").First(&msg, messageID).Error; err != nil {
		return nil, errors.ErrQueryFailed(err)
	}

	s.hub.ToUsers([]uint{msg.SenderID, msg.ReceiverID}, ws.Event{Type: ws.EvtPrivateMessageEdit, Data: msg})

	s.emitConversationUpdate(ctx, msg.SenderID, models.ConversationDirect, msg.ReceiverID)
	s.emitConversationUpdate(ctx, msg.ReceiverID, models.ConversationDirect, msg.SenderID)

	return &msg, nil
}

// DeleteDirect hard-deletes a message the caller authored and tells both
// parties. Direct deletes broadcast the same way group deletes do, so
// clients handle one convention for both message kinds.
func (s *Service) DeleteDirect(ctx context.Context, senderID, messageID uint) error {
	var msg models.DirectMessage
	err := s.db.WithContext(ctx).
		Where("id = ? AND sender_id = ?", messageID, senderID).
		First(&msg).Error
	if err != nil {
		return errors.ErrMessageNotFound
	}

	if err := s.db.WithContext(ctx).Delete(&models.DirectMessage{}, msg.ID).Error; err != nil {
		return errors.ErrQueryFailed(err)
	}

	s.hub.ToUsers([]uint{msg.SenderID, msg.ReceiverID}, ws.Event{
		Type: ws.EvtPrivateMessageDelete,
		Data: map[string]uint{
			"message_id":  msg.ID,
			"sender_id":   msg.SenderID,
			"receiver_id": msg.ReceiverID,
		},
	})

	s.emitConversationUpdate(ctx, msg.SenderID, models.ConversationDirect, msg.ReceiverID)
	s.emitConversationUpdate(ctx, msg.ReceiverID, models.ConversationDirect, msg.SenderID)

	return nil
}

// MarkConversationRead flips every unread message from the contact, bumps
// the caller's watermark and acks each message id to both parties.
func (s *Service) MarkConversationRead(ctx context.Context, userID, contactID uint) error {
	var ids []uint
	err := s.db.WithContext(ctx).Model(&models.DirectMessage{}).
		Where("sender_id = ? AND receiver_id = ? AND is_read = ?", contactID, userID, false).
		Pluck("id", &ids).Error
	if err != nil {
		return errors.ErrQueryFailed(err)
	}

	if len(ids) > 0 {
		err = s.db.WithContext(ctx).Model(&models.DirectMessage{}).
			Where("id IN ?", ids).
			Update("is_read", true).Error
		if err != nil {
			return errors.ErrQueryFailed(err)
		}
	}

	if err := s.touchLastRead(ctx, userID, models.ConversationDirect, contactID); err != nil {
		return errors.ErrQueryFailed(err)
	}

	for _, id := range ids {
		s.hub.ToUsers([]uint{userID, contactID}, ws.Event{
			Type: ws.EvtMessageRead,
			Data: map[string]uint{"message_id": id, "reader_id": userID},
		})
	}

	s.emitConversationUpdate(ctx, userID, models.ConversationDirect, contactID)
	return nil
}
