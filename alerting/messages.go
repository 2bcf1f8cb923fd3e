package alerting

import (
	"fmt"

	"github.com/warp/eventdesk/model"
)

// MessageFormatter turns a triggered rule into display text. Message text is
// presentation only and never takes part in alert comparison.
type MessageFormatter interface {
	EventMessage(rec model.ClientRecord, days int) string
	PaymentMessage(rec model.ClientRecord, inst model.Installment, kind Kind, days int) string
	ReminderMessage(rec model.ClientRecord, rem model.Reminder, days int) string
}

// DefaultFormatter renders plain English messages.
type DefaultFormatter struct{}

func (DefaultFormatter) EventMessage(rec model.ClientRecord, days int) string {
	if days == 0 {
		return fmt.Sprintf("TODAY is %s's event! - %s", rec.DisplayName, rec.Venue)
	}
	return fmt.Sprintf("%s's event in %d days - %s", rec.DisplayName, days, rec.Venue)
}

func (DefaultFormatter) PaymentMessage(rec model.ClientRecord, inst model.Installment, kind Kind, days int) string {
	if kind == KindPaymentOverdue {
		return fmt.Sprintf("Overdue payment from %s - €%s", rec.DisplayName, inst.Amount.StringFixed(2))
	}
	return fmt.Sprintf("Payment from %s due in %d days - €%s", rec.DisplayName, days, inst.Amount.StringFixed(2))
}

func (DefaultFormatter) ReminderMessage(rec model.ClientRecord, rem model.Reminder, days int) string {
	if rem.Message != "" {
		return fmt.Sprintf("%s: %s", rec.DisplayName, rem.Message)
	}
	return fmt.Sprintf("%s: %s reminder", rec.DisplayName, rem.Kind)
}
