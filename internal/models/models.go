package models

import (
	"time"

	"gorm.io/datatypes"
)

type User struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:120;not null" json:"name"`
	Email       string    `gorm:"size:190;uniqueIndex;not null" json:"email"`
	Role        string    `gorm:"size:30;not null;default:student" json:"role"`
	PushEnabled bool      `gorm:"not null;default:true" json:"push_enabled"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Attachment is an element of a message's attachments JSON column, not a
// table of its own. Upload handling lives outside this service; messages
// only carry the metadata.
type Attachment struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	MimeType string `json:"mime_type"`
	Size     int64  `json:"size"`
}

type DirectMessage struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	SenderID    uint           `gorm:"index;not null" json:"sender_id"`
	ReceiverID  uint           `gorm:"index;not null" json:"receiver_id"`
	Content     string         `gorm:"type:text" json:"content"`
	Attachments datatypes.JSON `json:"attachments,omitempty"`
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`
	EditedAt    *time.Time     `json:"edited_at,omitempty"`
	DeliveredAt *time.Time     `json:"delivered_at,omitempty"`
	IsRead      bool           `gorm:"not null;default:false" json:"is_read"`

	Sender *User `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
}

type GroupMessage struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	GroupID     uint           `gorm:"index;not null" json:"group_id"`
	SenderID    uint           `gorm:"index;not null" json:"sender_id"`
	Content     string         `gorm:"type:text" json:"content"`
	Attachments datatypes.JSON `json:"attachments,omitempty"`
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`
	EditedAt    *time.Time     `json:"edited_at,omitempty"`
	IsDeleted   bool           `gorm:"not null;default:false" json:"is_deleted"`

	Sender *User `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
}

type Group struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:120;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Members []GroupMember `json:"-"`
}

type GroupMember struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	GroupID   uint      `gorm:"uniqueIndex:uniq_group_user;not null" json:"group_id"`
	UserID    uint      `gorm:"uniqueIndex:uniq_group_user;not null" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	ConversationDirect = "direct"
	ConversationGroup  = "group"
)

// ConversationState is the per-user watermark for one conversation: how far
// the user has read it and whether they pinned it. At most one row per
// (user, type, conversation); always written through an upsert and created
// lazily on the first read / mark-read / pin.
type ConversationState struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	UserID           uint       `gorm:"uniqueIndex:uniq_user_conv;not null" json:"user_id"`
	ConversationType string     `gorm:"size:10;uniqueIndex:uniq_user_conv;not null" json:"conversation_type"`
	ConversationID   uint       `gorm:"uniqueIndex:uniq_user_conv;not null" json:"conversation_id"`
	LastReadAt       *time.Time `json:"last_read_at,omitempty"`
	Pinned           bool       `gorm:"not null;default:false" json:"pinned"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// DeviceToken maps a push endpoint to its current owner. Tokens are globally
// unique: registering an existing token moves it to the new user.
type DeviceToken struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	Token     string    `gorm:"size:512;uniqueIndex;not null" json:"token"`
	Platform  string    `gorm:"size:20;not null" json:"platform"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
