package notifications

import (
	"context"
	"errors"

	"pwd-access/internal/models"
)

// Relay delivers an out-of-band copy of a persisted notification.
type Relay interface {
	Deliver(ctx context.Context, n models.Notification, to models.Contact) error
}

type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

type SMSSender interface {
	SendSMS(ctx context.Context, phone, message string) error
}

// ChannelRelay mails every notification and texts those at or above the SMS threshold.
// Either sender may be nil.
type ChannelRelay struct {
	email        EmailSender
	sms          SMSSender
	smsThreshold models.NotificationPriority
}

func NewChannelRelay(email EmailSender, sms SMSSender, smsThreshold models.NotificationPriority) *ChannelRelay {
	if smsThreshold == "" {
		smsThreshold = models.NotificationHigh
	}
	return &ChannelRelay{email: email, sms: sms, smsThreshold: smsThreshold}
}

func (r *ChannelRelay) Deliver(ctx context.Context, n models.Notification, to models.Contact) error {
	var errs []error
	if r.email != nil && to.Email != "" {
		if err := r.email.SendEmail(ctx, to.Email, n.Title, n.Message); err != nil {
			errs = append(errs, err)
		}
	}
	if r.sms != nil && to.Phone != "" && n.Priority.Rank() >= r.smsThreshold.Rank() {
		if err := r.sms.SendSMS(ctx, to.Phone, n.Title+": "+n.Message); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
