package models

import "time"

// Step identifies the session's position in the booking conversation.
type Step string

const (
	StepSport            Step = "sport"
	StepVenue            Step = "venue"
	StepDateCategory     Step = "date_category"
	StepWeek             Step = "week"
	StepDate             Step = "date"
	StepTimeOfDay        Step = "time_of_day"
	StepSlotConfirm      Step = "slot_confirm"
	StepPlayerCount      Step = "player_count"
	StepAddOns           Step = "add_ons"
	StepContact          Step = "contact"
	StepPaymentInitiated Step = "payment_initiated"
	StepCommitted        Step = "committed"
)

// Valid reports whether s is one of the known steps. Sessions restored from
// storage with an unknown step are reset to StepSport by the engine.
func (s Step) Valid() bool {
	switch s {
	case StepSport, StepVenue, StepDateCategory, StepWeek, StepDate,
		StepTimeOfDay, StepSlotConfirm, StepPlayerCount, StepAddOns,
		StepContact, StepPaymentInitiated, StepCommitted:
		return true
	}
	return false
}

// DateCandidate is an offered date during week browsing.
type DateCandidate struct {
	ID    string `bson:"id" json:"id"`       // e.g. "date_2"
	Date  string `bson:"date" json:"date"`   // "2006-01-02"
	Label string `bson:"label" json:"label"` // e.g. "Tue, 02 Sep"
}

// WorkingState is scratch data scoped to the step that built it. Kind names
// that step; resolvers must refuse working state whose Kind does not match
// the session's current context, so a stale catalog can never satisfy a
// later reply.
type WorkingState struct {
	Kind           Step              `bson:"kind" json:"kind"`
	SlotCatalog    map[string]string `bson:"slotCatalog,omitempty" json:"slotCatalog,omitempty"` // slot_<i> -> normalized label
	SlotOrder      []string          `bson:"slotOrder,omitempty" json:"slotOrder,omitempty"`
	DateCandidates []DateCandidate   `bson:"dateCandidates,omitempty" json:"dateCandidates,omitempty"`
	WeekCount      int               `bson:"weekCount,omitempty" json:"weekCount,omitempty"`
}

// BookingSession is the persisted per-phone conversation state.
// One document per end-user phone number; phone is the unique key.
type BookingSession struct {
	Phone       string   `bson:"phone" json:"phone"`
	Step        Step     `bson:"step" json:"step"`
	Sport       string   `bson:"sport,omitempty" json:"sport,omitempty"`
	Venue       string   `bson:"venue,omitempty" json:"venue,omitempty"`
	Date        string   `bson:"date,omitempty" json:"date,omitempty"`         // "2006-01-02"
	TimeSlot    string   `bson:"timeSlot,omitempty" json:"timeSlot,omitempty"` // normalized "HH:MM - HH:MM"
	PlayerCount int      `bson:"playerCount,omitempty" json:"playerCount,omitempty"`
	AddOns      []string `bson:"addOns,omitempty" json:"addOns,omitempty"`
	ContactName string   `bson:"contactName,omitempty" json:"contactName,omitempty"`
	Paid        bool     `bson:"paid" json:"paid"`
	TotalAmount int64    `bson:"totalAmount,omitempty" json:"totalAmount,omitempty"` // minor units

	// BookingRef correlates the asynchronous payment confirmation back to
	// this session; attached to the payment link as metadata at issuance.
	BookingRef  string `bson:"bookingRef,omitempty" json:"bookingRef,omitempty"`
	PaymentLink string `bson:"paymentLink,omitempty" json:"paymentLink,omitempty"`

	LastProcessedMessageID string       `bson:"lastProcessedMessageId,omitempty" json:"lastProcessedMessageId,omitempty"`
	Working                WorkingState `bson:"working,omitempty" json:"working,omitempty"`
	ConfirmedEventID       string       `bson:"confirmedEventId,omitempty" json:"confirmedEventId,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// ClearWorking drops step-scoped scratch data.
func (s *BookingSession) ClearWorking() {
	s.Working = WorkingState{}
}
