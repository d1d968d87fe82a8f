package chat

import (
	"context"

	"campus-chat-be/internal/models"
	"campus-chat-be/internal/ws"
	"campus-chat-be/pkg/errors"
)

// MarkDelivered stamps delivered_at on a direct message addressed to the
// caller. Only a null delivered_at is written, so replayed acks keep the
// first timestamp. The ack event goes out to both parties either way.
func (s *Service) MarkDelivered(ctx context.Context, receiverID, messageID uint) error {
	var msg models.DirectMessage
	err := s.db.WithContext(ctx).
		Where("id = ? AND receiver_id = ?", messageID, receiverID).
		First(&msg).Error
	if err != nil {
		return errors.ErrMessageNotFound
	}

	if msg.DeliveredAt == nil {
		now := s.now()
		res := s.db.WithContext(ctx).Model(&models.DirectMessage{}).
			Where("id = ? AND delivered_at IS NULL", messageID).
			Update("delivered_at", now)
		if res.Error != nil {
			return errors.ErrQueryFailed(res.Error)
		}
		if res.RowsAffected > 0 {
			msg.DeliveredAt = &now
		}
	}

	s.hub.ToUsers([]uint{msg.SenderID, msg.ReceiverID}, ws.Event{
		Type: ws.EvtMessageDelivered,
		Data: map[string]interface{}{
			"message_id":   msg.ID,
			"delivered_at": msg.DeliveredAt,
		},
	})
	return nil
}

// MarkMessageRead handles the per-message socket ack: flip the flag, move
// the reader's watermark and tell both sides.
func (s *Service) MarkMessageRead(ctx context.Context, readerID, messageID uint) error {
	var msg models.DirectMessage
	err := s.db.WithContext(ctx).
		Where("id = ? AND receiver_id = ?", messageID, readerID).
		First(&msg).Error
	if err != nil {
		return errors.ErrMessageNotFound
	}

	if !msg.IsRead {
		err = s.db.WithContext(ctx).Model(&models.DirectMessage{}).
			Where("id = ?", messageID).
			Update("is_read", true).Error
		if err != nil {
			return errors.ErrQueryFailed(err)
		}
	}

	if err := s.touchLastRead(ctx, readerID, models.ConversationDirect, msg.SenderID); err != nil {
		return errors.ErrQueryFailed(err)
	}

	s.hub.ToUsers([]uint{msg.SenderID, msg.ReceiverID}, ws.Event{
		Type: ws.EvtMessageRead,
		Data: map[string]uint{"message_id": msg.ID, "reader_id": readerID},
	})

	s.emitConversationUpdate(ctx, readerID, models.ConversationDirect, msg.SenderID)
	return nil
}
