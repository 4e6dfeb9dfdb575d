package notifications

import (
	"context"
	"log"

	"gorm.io/gorm"

	"billsponsor-app/internal/domain/users"
)

// Notifier persists in-app notifications and fires emails. Callers treat
// it as fire-and-forget: a failed notification never fails the operation
// that triggered it.
type Notifier struct {
	db *gorm.DB
}

func NewNotifier(db *gorm.DB) *Notifier {
	return &Notifier{db: db}
}

func (n *Notifier) Notify(ctx context.Context, recipientID uint, kind NotificationKind, title, message string) {
	notification := Notification{
		RecipientID: recipientID,
		Kind:        kind,
		Title:       title,
		Message:     message,
	}
	if err := n.db.WithContext(ctx).Create(&notification).Error; err != nil {
		log.Println("⚠️ failed to store notification:", err)
		return
	}

	var user users.User
	if err := n.db.WithContext(ctx).Where("id = ?", recipientID).First(&user).Error; err != nil {
		log.Println("⚠️ notification recipient not found:", recipientID)
		return
	}

	// Email delivery happens off the request path.
	go func(email, subject, body string) {
		if err := SendEmail(email, subject, body); err != nil {
			log.Println("⚠️ email delivery failed:", err)
		}
	}(user.Email, title, message)
}

func (n *Notifier) NotifyRelated(ctx context.Context, recipientID uint, kind NotificationKind, title, message string, relatedID uint) {
	notification := Notification{
		RecipientID: recipientID,
		Kind:        kind,
		Title:       title,
		Message:     message,
		RelatedID:   &relatedID,
	}
	if err := n.db.WithContext(ctx).Create(&notification).Error; err != nil {
		log.Println("⚠️ failed to store notification:", err)
	}
}
