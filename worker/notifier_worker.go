package worker

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"fifohub/models"
	"fifohub/utils"
)

// Notifier drains the notification outbox. Delivery is at-least-once and
// decoupled from the mutations that enqueue rows: a PIN change succeeds
// whether or not its mail ever goes out.
type Notifier struct {
	db     *gorm.DB
	logger *logrus.Entry
}

func NewNotifier(db *gorm.DB, logger *logrus.Entry) *Notifier {
	return &Notifier{
		db:     db,
		logger: logger,
	}
}

func (n *Notifier) Start(ctx context.Context) {
	n.logger.Info("Starting notifier worker...")
	ticker := time.NewTicker(30 * time.Second)

	for {
		select {
		case <-ticker.C:
			n.drainOutbox(ctx)
		case <-ctx.Done():
			n.logger.Info("Stopping notifier worker...")
			ticker.Stop()
			return
		}
	}
}

func (n *Notifier) drainOutbox(ctx context.Context) {
	var pending []models.Notification
	err := n.db.Where("status = ? AND attempts < ?",
		models.NotificationStatusPending, models.MaxNotificationAttempts).
		Order("created_at ASC").
		Limit(50).
		Find(&pending).Error
	if err != nil {
		n.logger.WithError(err).Error("Failed to fetch pending notifications")
		return
	}

	for i := range pending {
		if ctx.Err() != nil {
			return
		}
		n.deliver(&pending[i])
	}
}

func (n *Notifier) deliver(notification *models.Notification) {
	var recipient models.User
	if err := n.db.First(&recipient, "id = ?", notification.RecipientID).Error; err != nil {
		n.logger.WithError(err).WithField("notification_id", notification.ID).
			Warn("Recipient missing, parking notification")
		n.markFailed(notification, "recipient not found")
		return
	}

	notification.Attempts++
	if err := utils.SendEmail(recipient.Email, notification.Subject, notification.Body); err != nil {
		n.logger.WithError(err).WithFields(logrus.Fields{
			"notification_id": notification.ID,
			"attempt":         notification.Attempts,
		}).Warn("Notification delivery failed")

		notification.LastErr = err.Error()
		if notification.Attempts >= models.MaxNotificationAttempts {
			notification.Status = models.NotificationStatusFailed
		}
		if err := n.db.Save(notification).Error; err != nil {
			n.logger.WithError(err).Error("Failed to record delivery attempt")
		}
		return
	}

	now := time.Now()
	notification.Status = models.NotificationStatusSent
	notification.SentAt = &now
	notification.LastErr = ""
	if err := n.db.Save(notification).Error; err != nil {
		n.logger.WithError(err).Error("Failed to mark notification sent")
	}
}

func (n *Notifier) markFailed(notification *models.Notification, reason string) {
	notification.Status = models.NotificationStatusFailed
	notification.LastErr = reason
	if err := n.db.Save(notification).Error; err != nil {
		n.logger.WithError(err).Error("Failed to mark notification failed")
	}
}
