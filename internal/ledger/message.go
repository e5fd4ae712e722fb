package ledger

import (
	"fmt"
	"strings"
	"time"

	"lendledger/internal/domain/loan"
	"lendledger/internal/domain/reminder"
)

const (
	namePlaceholder   = "[Name]"
	amountPlaceholder = "[Amount]"
)

// ReminderPreview renders the message a counterparty would receive. Empty name
// or amount render as placeholders.
func ReminderPreview(tone reminder.Tone, name, amount string) string {
	if strings.TrimSpace(name) == "" {
		name = namePlaceholder
	}
	if strings.TrimSpace(amount) == "" {
		amount = amountPlaceholder
	}
	switch tone {
	case reminder.ToneUrgent:
		return fmt.Sprintf("Hello %s, this is a reminder that the payment of %s is due soon. Please arrange for the transfer at your earliest convenience.", name, amount)
	case reminder.ToneFormal:
		return fmt.Sprintf("NOTICE: Outstanding payment of %s is pending. Please settle immediately to avoid any further action. Reference: Loan to %s.", amount, name)
	default:
		return fmt.Sprintf("Hi %s 👋, just a friendly reminder about the %s loan. Hope everything is going well! Let me know when you can settle this.", name, amount)
	}
}

// DueMessage is the one-line reminder for the lender.
func DueMessage(name, amount string, due, now time.Time) string {
	days := DaysUntilDue(due, now)
	switch {
	case days < 0:
		return fmt.Sprintf("%s's loan of %s is %d days overdue!", name, amount, -days)
	case days == 0:
		return fmt.Sprintf("%s's loan of %s is due today!", name, amount)
	default:
		return fmt.Sprintf("%s's loan of %s is due in %d days", name, amount, days)
	}
}

// ReminderMessage is the text a reminder sends for its loan. A custom message wins.
func ReminderMessage(rem *reminder.Reminder, l *loan.Loan) string {
	if rem.CustomMessage != "" {
		return rem.CustomMessage
	}
	return ReminderPreview(rem.Tone, l.CounterpartyName, FormatCurrency(l.Principal, l.Currency))
}
