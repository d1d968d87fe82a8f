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

type SendGroupInput struct {
	GroupID     uint
	Content     string
	Attachments []models.Attachment
}

type GroupPage struct {
	Messages   []models.GroupMessage `json:"messages"`
	HasMore    bool                  `json:"hasMore"`
	NextCursor *time.Time            `json:"nextCursor"`
}

func (s *Service) isGroupMember(ctx context.Context, groupID, userID uint) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.GroupMember{}).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Count(&n).Error
	return n > 0, err
}

func (s *Service) groupMemberIDs(ctx context.Context, groupID uint) ([]uint, error) {
	var ids []uint
	err := s.db.WithContext(ctx).Model(&models.GroupMember{}).
		Where("group_id = ?", groupID).
		Pluck("user_id", &ids).Error
	return ids, err
}

// SendGroup persists a group message and fans it out to the group room, a
// conversation update per member and a push for everyone but the sender.
// Non-members are rejected before anything is written.
func (s *Service) SendGroup(ctx context.Context, senderID uint, in SendGroupInput) (*models.GroupMessage, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" && len(in.Attachments) == 0 {
		return nil, errors.ErrEmptyMessage
	}

	var group models.Group
	if err := s.db.WithContext(ctx).First(&group, in.GroupID).Error; err != nil {
		return nil, errors.ErrGroupNotFound
	}
	member, err := s.isGroupMember(ctx, in.GroupID, senderID)
	if err != nil {
		return nil, errors.ErrQueryFailed(err)
	}
	if !member {
		return nil, errors.ErrNotGroupMember
	}

	msg := models.GroupMessage{
		GroupID:     in.GroupID,
		SenderID:    senderID,
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

	if err := s.touchLastRead(ctx, senderID, models.ConversationGroup, in.GroupID); err != nil {
		s.log.Error("group send: bumping sender watermark failed", "err", err)
	}

	s.hub.ToRoom(ws.GroupRoom(in.GroupID), ws.Event{Type: ws.EvtChatMessage, Data: msg})

	members, err := s.groupMemberIDs(ctx, in.GroupID)
	if err != nil {
		s.log.Error("group send: resolving members failed", "err", err)
		return &msg, nil
	}
	for _, uid := range members {
		s.emitConversationUpdate(ctx, uid, models.ConversationGroup, in.GroupID)
	}

	recipients := make([]uint, 0, len(members))
	for _, uid := range members {
		if uid != senderID {
			recipients = append(recipients, uid)
		}
	}
	s.notify(recipients, push.Notification{
		Title: group.Name,
		Body:  msg.Sender.Name + ": " + preview(msg.Content, msg.Attachments),
		Data: map[string]string{
			"type":     models.ConversationGroup,
			"group_id": strconv.FormatUint(uint64(in.GroupID), 10),
		},
	})

	return &msg, nil
}

// GroupHistory pages through a group's visible (non-deleted) messages with
// the same cursor contract as DirectHistory. Members only.
func (s *Service) GroupHistory(ctx context.Context, userID, groupID uint, limit int, before *time.Time) (*GroupPage, error) {
	member, err := s.isGroupMember(ctx, groupID, userID)
	if err != nil {
		return nil, errors.ErrQueryFailed(err)
	}
	if !member {
		return nil, errors.ErrNotGroupMember
	}

	if limit <= 0 || limit > 200 {
		limit = 50
	}

	q := s.db.WithContext(ctx).Preload("Sender").
		Where("group_id = ? AND is_deleted = ?", groupID, false).
		Order("created_at DESC").Order("id DESC").
		Limit(limit + 1)
	if before != nil {
		q = q.Where("created_at < ?", *before)
	}

	var msgs []models.GroupMessage
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

	page := &GroupPage{Messages: msgs, HasMore: hasMore}
	if hasMore && len(msgs) > 0 {
		oldest := msgs[0].CreatedAt
		page.NextCursor = &oldest
	}
	return page, nil
}

// EditGroup rewrites a group message the caller authored. Unlike direct
// edits there is no per-message read flag to reset.
func (s *Service) EditGroup(ctx context.Context, senderID, groupID, messageID uint, content string) (*models.GroupMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errors.ErrEmptyMessage
	}

	now := s.now()
	res := s.db.WithContext(ctx).Model(&models.GroupMessage{}).
		Where("id = ? AND group_id = ? AND sender_id = ? AND is_deleted = ?", messageID, groupID, senderID, false).
		Updates(map[string]interface{}{
			"content":   content,
			"edited_at": now,
		})
	if res.Error != nil {
		return nil, errors.ErrQueryFailed(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, errors.ErrMessageNotFound
	}

	var msg models.GroupMessage
	if err := s.db.WithContext(ctx).Preload("Sender").First(&msg, messageID).Error; err != nil {
		return nil, errors.ErrQueryFailed(err)
	}

	s.hub.ToRoom(ws.GroupRoom(groupID), ws.Event{Type: ws.EvtChatMessageEdit, Data: msg})

	if members, err := s.groupMemberIDs(ctx, groupID); err == nil {
		for _, uid := range members {
			s.emitConversationUpdate(ctx, uid, models.ConversationGroup, groupID)
		}
	}

	return &msg, nil
}

// DeleteGroup soft-deletes a message the caller authored and broadcasts the
// id so clients can drop it in place.
func (s *Service) DeleteGroup(ctx context.Context, senderID, groupID, messageID uint) error {
	res := s.db.WithContext(ctx).Model(&models.GroupMessage{}).
		Where("id = ? AND group_id = ? AND sender_id = ? AND is_deleted = ?", messageID, groupID, senderID, false).
		Update("is_deleted", true)
	if res.Error != nil {
		return errors.ErrQueryFailed(res.Error)
	}
	if res.RowsAffected == 0 {
		return errors.ErrMessageNotFound
	}

	s.hub.ToRoom(ws.GroupRoom(groupID), ws.Event{
		Type: ws.EvtChatMessageDelete,
		Data: map[string]uint{"message_id": messageID, "group_id": groupID},
	})

	if members, err := s.groupMemberIDs(ctx, groupID); err == nil {
		for _, uid := range members {
			s.emitConversationUpdate(ctx, uid, models.ConversationGroup, groupID)
		}
	}

	return nil
}

// MarkGroupRead only moves the caller's watermark: groups have no
// per-message read flag, unread is derived entirely from the watermark.
func (s *Service) MarkGroupRead(ctx context.Context, userID, groupID uint) error {
	if err := s.touchLastRead(ctx, userID, models.ConversationGroup, groupID); err != nil {
		return errors.ErrQueryFailed(err)
	}
	s.emitConversationUpdate(ctx, userID, models.ConversationGroup, groupID)
	return nil
}
