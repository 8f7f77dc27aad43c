package models

import (
	"time"

	"github.com/angelmondragon/stashbot/pkg/enums"
)

// Notification is an outbound message or stash delivery awaiting the chat transport.
type Notification struct {
	ID          uint                   `gorm:"column:id;primaryKey;autoIncrement"`
	RecipientID int64                  `gorm:"column:recipient_id;not null;index"`
	Kind        enums.NotificationKind `gorm:"column:kind;type:varchar(16);not null"`
	Message     string                 `gorm:"column:message;type:text;not null;default:''"`
	PayloadKind *enums.PayloadKind     `gorm:"column:payload_kind;type:varchar(16)"`
	FileRef     *string                `gorm:"column:file_ref"`
	Content     *string                `gorm:"column:content;type:text"`
	PaymentRef  *string                `gorm:"column:payment_ref"`
	CreatedAt   time.Time              `gorm:"column:created_at;autoCreateTime"`
	SentAt      *time.Time             `gorm:"column:sent_at"`
}
