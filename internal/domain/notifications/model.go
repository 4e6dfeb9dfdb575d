package notifications

import (
	"time"

	"billsponsor-app/internal/domain/users"
)

type NotificationKind string

const (
	KindRequest         NotificationKind = "request"
	KindPayment         NotificationKind = "payment"
	KindRelationship    NotificationKind = "relationship"
	KindReminder        NotificationKind = "reminder"
	KindAcknowledgement NotificationKind = "acknowledgement"
)

type Notification struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	RecipientID uint             `gorm:"not null;index" json:"recipient_id"`
	Recipient   users.User       `json:"-"`
	Kind        NotificationKind `gorm:"type:varchar(20);not null" json:"kind"`
	Title       string           `gorm:"not null" json:"title"`
	Message     string           `gorm:"not null" json:"message"`
	RelatedID   *uint            `json:"related_id,omitempty"`
	IsRead      bool             `gorm:"not null;default:false" json:"is_read"`

	CreatedAt time.Time `json:"created_at"`
}
