package conversation

import (
	"time"

	"github.com/Achutaiscool/Twenty44-WA-bot/models"
)

// CalendarService is the external calendar collaborator.
type CalendarService interface {
	// GetAvailableSlots returns the ordered open interval labels for a
	// date ("2006-01-02"). A transient failure is an error, never an
	// empty list.
	GetAvailableSlots(date string) ([]string, error)
	// CreateEvent books the interval on the calendar and returns the
	// created event id.
	CreateEvent(date, slot, summary, description string) (string, error)
}

// PaymentLinkIssuer is the payments collaborator.
type PaymentLinkIssuer interface {
	CreatePaymentLink(req models.PaymentLinkRequest) (string, error)
}

// Messenger delivers a reply to the channel. The engine decides shape and
// content; the messenger owns transmission.
type Messenger interface {
	Send(to string, reply models.Reply) error
}

// TaskQueue hands follow-up work to the background worker.
type TaskQueue interface {
	// EnqueueReconciliation flags a paid-but-unresolved booking for
	// operator follow-up.
	EnqueueReconciliation(session models.BookingSession, reason string) error
	// ScheduleReminder schedules the pre-slot reminder message.
	ScheduleReminder(session models.BookingSession, fireAt time.Time) error
}
