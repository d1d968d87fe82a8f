package chat

import (
	"context"
	"sort"
	"time"

	"campus-chat-be/internal/models"
	"campus-chat-be/internal/ws"
	"campus-chat-be/pkg/errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LastMessage struct {
	ID          uint      `json:"id"`
	SenderID    uint      `json:"sender_id"`
	SenderName  string    `json:"sender_name,omitempty"`
	Content     string    `json:"content"`
	Attachments bool      `json:"has_attachments"`
	CreatedAt   time.Time `json:"created_at"`
}

type ConversationSummary struct {
	Type         string       `json:"type"`
	ID           uint         `json:"id"`
	Name         string       `json:"name"`
	LastMessage  *LastMessage `json:"last_message,omitempty"`
	LastActivity *time.Time   `json:"last_activity,omitempty"`
	UnreadCount  int64        `json:"unread_count"`
	Pinned       bool         `json:"pinned"`
}

// Summary recomputes one sidebar entry from scratch: latest message, unread
// count against the caller's watermark, pinned flag. Absent watermark means
// everything from others is unread.
func (s *Service) Summary(ctx context.Context, userID uint, ctype string, convID uint) (*ConversationSummary, error) {
	switch ctype {
	case models.ConversationDirect:
		return s.directSummary(ctx, userID, convID)
	case models.ConversationGroup:
		return s.groupSummary(ctx, userID, convID)
	default:
		return nil, errors.ErrBadConversation
	}
}

func (s *Service) directSummary(ctx context.Context, userID, contactID uint) (*ConversationSummary, error) {
	var contact models.User
	if err := s.db.WithContext(ctx).First(&contact, contactID).Error; err != nil {
		return nil, errors.ErrUserNotFound
	}

	sum := &ConversationSummary{
		Type: models.ConversationDirect,
		ID:   contactID,
		Name: contact.Name,
	}

	var last models.DirectMessage
	err := s.db.WithContext(ctx).Preload("Sender").
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			userID, contactID, contactID, userID).
		Order("created_at DESC").Order("id DESC").
		First(&last).Error
	if err == nil {
		sum.LastMessage = &LastMessage{
			ID:          last.ID,
			SenderID:    last.SenderID,
			Content:     last.Content,
			Attachments: len(last.Attachments) > 0,
			CreatedAt:   last.CreatedAt,
		}
		if last.Sender != nil {
			sum.LastMessage.SenderName = last.Sender.Name
		}
		t := last.CreatedAt
		sum.LastActivity = &t
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.ErrQueryFailed(err)
	}

	state := s.loadState(ctx, userID, models.ConversationDirect, contactID)
	sum.Pinned = state.Pinned

	unreadQ := s.db.WithContext(ctx).Model(&models.DirectMessage{}).
		Where("sender_id = ? AND receiver_id = ?", contactID, userID)
	if state.LastReadAt != nil {
		unreadQ = unreadQ.Where("created_at > ?", *state.LastReadAt)
	}
	if err := unreadQ.Count(&sum.UnreadCount).Error; err != nil {
		return nil, errors.ErrQueryFailed(err)
	}

	return sum, nil
}

func (s *Service) groupSummary(ctx context.Context, userID, groupID uint) (*ConversationSummary, error) {
	var group models.Group
	if err := s.db.WithContext(ctx).First(&group, groupID).Error; err != nil {
		return nil, errors.ErrGroupNotFound
	}

	sum := &ConversationSummary{
		Type: models.ConversationGroup,
		ID:   groupID,
		Name: group.Name,
	}

	var last models.GroupMessage
	err := s.db.WithContext(ctx).Preload("Sender").
		Where("group_id = ? AND is_deleted = ?", groupID, false).
		Order("created_at DESC").Order("id DESC").
		First(&last).Error
	if err == nil {
		sum.LastMessage = &LastMessage{
			ID:          last.ID,
			SenderID:    last.SenderID,
			Content:     last.Content,
			Attachments: len(last.Attachments) > 0,
			CreatedAt:   last.CreatedAt,
		}
		if last.Sender != nil {
			sum.LastMessage.SenderName = last.Sender.Name
		}
		t := last.CreatedAt
		sum.LastActivity = &t
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.ErrQueryFailed(err)
	}

	state := s.loadState(ctx, userID, models.ConversationGroup, groupID)
	sum.Pinned = state.Pinned

	unreadQ := s.db.WithContext(ctx).Model(&models.GroupMessage{}).
		Where("group_id = ? AND sender_id <> ? AND is_deleted = ?", groupID, userID, false)
	if state.LastReadAt != nil {
		unreadQ = unreadQ.Where("created_at > ?", *state.LastReadAt)
	}
	if err := unreadQ.Count(&sum.UnreadCount).Error; err != nil {
		return nil, errors.ErrQueryFailed(err)
	}

	return sum, nil
}

// loadState returns the stored watermark row or a zero value when none
// exists yet. States are created lazily, absence is normal.
func (s *Service) loadState(ctx context.Context, userID uint, ctype string, convID uint) models.ConversationState {
	var state models.ConversationState
	s.db.WithContext(ctx).
		Where("user_id = ? AND conversation_type = ? AND conversation_id = ?", userID, ctype, convID).
		First(&state)
	return state
}

// Conversations assembles the caller's sidebar: every direct counterpart a
// message exists with plus every group they belong to, each through
// Summary, ordered pinned first, then most recent activity, then the rest.
func (s *Service) Conversations(ctx context.Context, userID uint) ([]ConversationSummary, error) {
	var contactIDs []uint
	err := s.db.WithContext(ctx).Raw(`
		SELECT DISTINCT CASE WHEN sender_id = ? THEN receiver_id ELSE sender_id END AS contact_id
		FROM direct_messages
		WHERE sender_id = ? OR receiver_id = ?`,
		userID, userID, userID).Scan(&contactIDs).Error
	if err != nil {
		return nil, errors.ErrQueryFailed(err)
	}

	var groupIDs []uint
	err = s.db.WithContext(ctx).Model(&models.GroupMember{}).
		Where("user_id = ?", userID).
		Pluck("group_id", &groupIDs).Error
	if err != nil {
		return nil, errors.ErrQueryFailed(err)
	}

	out := make([]ConversationSummary, 0, len(contactIDs)+len(groupIDs))
	for _, cid := range contactIDs {
		sum, err := s.directSummary(ctx, userID, cid)
		if err != nil {
			// counterpart row may be gone; skip rather than fail the list
			s.log.Warn("conversation summary skipped", "contact_id", cid, "err", err)
			continue
		}
		out = append(out, *sum)
	}
	for _, gid := range groupIDs {
		sum, err := s.groupSummary(ctx, userID, gid)
		if err != nil {
			s.log.Warn("conversation summary skipped", "group_id", gid, "err", err)
			continue
		}
		out = append(out, *sum)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Pinned != out[j].Pinned {
			return out[i].Pinned
		}
		ai, aj := out[i].LastActivity, out[j].LastActivity
		switch {
		case ai == nil && aj == nil:
			return out[i].Name < out[j].Name
		case ai == nil:
			return false
		case aj == nil:
			return true
		default:
			return ai.After(*aj)
		}
	})

	return out, nil
}

// Pin marks a conversation pinned for the caller. Upsert semantics make it
// idempotent; re-pinning changes nothing observable.
func (s *Service) Pin(ctx context.Context, userID uint, ctype string, convID uint) error {
	return s.setPinned(ctx, userID, ctype, convID, true)
}

func (s *Service) Unpin(ctx context.Context, userID uint, ctype string, convID uint) error {
	return s.setPinned(ctx, userID, ctype, convID, false)
}

func (s *Service) setPinned(ctx context.Context, userID uint, ctype string, convID uint, pinned bool) error {
	if ctype != models.ConversationDirect && ctype != models.ConversationGroup {
		return errors.ErrBadConversation
	}

	state := models.ConversationState{
		UserID:           userID,
		ConversationType: ctype,
		ConversationID:   convID,
		Pinned:           pinned,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "user_id"}, {Name: "conversation_type"}, {Name: "conversation_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"pinned", "updated_at"}),
	}).Create(&state).Error
	if err != nil {
		return errors.ErrQueryFailed(err)
	}

	s.emitConversationUpdate(ctx, userID, ctype, convID)
	return nil
}

// emitConversationUpdate recomputes one summary and pushes it to the user's
// private room. Called after every mutation that can move the sidebar.
func (s *Service) emitConversationUpdate(ctx context.Context, userID uint, ctype string, convID uint) {
	sum, err := s.Summary(ctx, userID, ctype, convID)
	if err != nil {
		s.log.Error("conversation update failed", "user_id", userID, "type", ctype, "conv_id", convID, "err", err)
		return
	}
	s.hub.ToUser(userID, ws.Event{Type: ws.EvtConversationUpdate, Data: sum})
}
