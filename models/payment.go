package models

// PaymentLinkRequest asks the payments collaborator for a checkout link.
type PaymentLinkRequest struct {
	Phone       string
	BookingRef  string
	Amount      int64 // minor units
	Currency    string
	Description string
}

// PaymentEvent is the out-of-band payment confirmation, already verified
// by the payments collaborator, correlated to a session by BookingRef.
type PaymentEvent struct {
	BookingRef string
	PaymentID  string
	Amount     int64
}
