package sessionRepo

import (
	"github.com/Achutaiscool/Twenty44-WA-bot/models"
)

// SessionRepository defines methods for booking-session data access.
//
// The conversation engine requires the load-decide-persist span to behave as
// if serialized per phone; that serialization lives above this interface (a
// per-identity lock), so implementations only need each single call to be
// atomic.
type SessionRepository interface {
	// GetByPhone retrieves a session by phone number. Returns (nil, nil)
	// when no session exists for the phone.
	GetByPhone(phone string) (*models.BookingSession, error)
	// GetByBookingRef retrieves a session by its payment correlation ref.
	GetByBookingRef(ref string) (*models.BookingSession, error)
	// Create inserts a new session record.
	Create(session *models.BookingSession) error
	// Update replaces an existing session record.
	Update(session *models.BookingSession) error
	// SetLastProcessedMessageID atomically records a processed inbound
	// message id, independent of any other pending session mutation.
	SetLastProcessedMessageID(phone, messageID string) error
	// Delete removes a session record by phone number.
	Delete(phone string) error
}
