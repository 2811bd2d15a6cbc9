package conversation

import (
	"fmt"
	"strings"

	"github.com/Achutaiscool/Twenty44-WA-bot/models"
)

// Fixed option sets for the early steps.
var sportOptions = []models.Option{
	{ID: "sport_badminton", Title: "Badminton"},
	{ID: "sport_pickleball", Title: "Pickleball"},
	{ID: "sport_tabletennis", Title: "Table Tennis"},
}

var venueOptions = []models.Option{
	{ID: "venue_indoor", Title: "Indoor Arena"},
	{ID: "venue_rooftop", Title: "Rooftop Courts"},
}

var addOnOptions = []models.Option{
	{ID: AddOnRacket, Title: "Racket rental"},
	{ID: AddOnShuttles, Title: "Shuttles / balls"},
	{ID: AddOnCoach, Title: "Coach (1 hr)"},
	{ID: AddOnNone, Title: "No add-ons"},
}

func welcomePrompt() models.Reply {
	return models.ButtonsReply(
		"Welcome to Twenty44! Which sport would you like to book?",
		sportOptions...,
	)
}

func venuePrompt() models.Reply {
	return models.ButtonsReply("Great choice! Pick a venue:", venueOptions...)
}

func dateCategoryPrompt() models.Reply {
	return models.ButtonsReply(
		"When would you like to play?",
		models.Option{ID: "date_today", Title: "Today"},
		models.Option{ID: "date_tomorrow", Title: "Tomorrow"},
		models.Option{ID: "date_other", Title: "Other dates"},
	)
}

func weekPrompt() models.Reply {
	return models.ButtonsReply(
		"Pick a week to browse:",
		models.Option{ID: "week_0", Title: "This week"},
		models.Option{ID: "week_1", Title: "Next week"},
		models.Option{ID: "week_2", Title: "In two weeks"},
	)
}

func dateListPrompt(candidates []models.DateCandidate) models.Reply {
	opts := make([]models.Option, 0, len(candidates))
	for _, c := range candidates {
		opts = append(opts, models.Option{ID: c.ID, Title: c.Label})
	}
	return models.ListReply("These days still have open courts:", "Pick a day", opts)
}

func bucketPrompt(date string) models.Reply {
	return models.ButtonsReply(
		fmt.Sprintf("What time of day works for %s?", date),
		models.Option{ID: BucketMorning, Title: "Morning"},
		models.Option{ID: BucketAfternoon, Title: "Afternoon"},
		models.Option{ID: BucketEvening, Title: "Evening"},
	)
}

// slotPrompt renders a catalog: a compact button set when it fits in three
// options, otherwise an enumerated list.
func slotPrompt(catalog models.WorkingState, widened bool) models.Reply {
	body := "Available slots:"
	if widened {
		body = "Nothing open at that time of day, but these slots are free:"
	}
	opts := make([]models.Option, 0, len(catalog.SlotOrder))
	for i, label := range catalog.SlotOrder {
		opts = append(opts, models.Option{ID: fmt.Sprintf("slot_%d", i), Title: label})
	}
	if len(opts) <= 3 {
		return models.ButtonsReply(body, opts...)
	}
	return models.ListReply(body, "Pick a slot", opts)
}

func playerCountPrompt() models.Reply {
	return models.ButtonsReply(
		"How many players?",
		models.Option{ID: "players_2", Title: "2"},
		models.Option{ID: "players_4", Title: "4"},
		models.Option{ID: "players_6", Title: "6"},
	)
}

func addOnsPrompt() models.Reply {
	return models.ListReply("Any add-ons?", "Choose", addOnOptions)
}

func contactPrompt(total int64, currency string) models.Reply {
	return models.TextReply(fmt.Sprintf(
		"Total: %s. Please reply with a name for the booking.",
		formatAmount(total, currency),
	))
}

func paymentPrompt(link string, total int64, currency string) models.Reply {
	return models.TextReply(fmt.Sprintf(
		"Almost done! Pay %s to confirm your slot:\n%s",
		formatAmount(total, currency), link,
	))
}

func paymentPendingPrompt(link string) models.Reply {
	return models.TextReply(
		"We're waiting for your payment to be confirmed. " +
			"If you haven't paid yet, use this link:\n" + link,
	)
}

func confirmationPrompt(s *models.BookingSession, currency string) models.Reply {
	var b strings.Builder
	b.WriteString("Booking confirmed! 🎉\n")
	fmt.Fprintf(&b, "%s at %s\n", strings.Title(s.Sport), venueTitle(s.Venue))
	fmt.Fprintf(&b, "%s, %s\n", s.Date, s.TimeSlot)
	fmt.Fprintf(&b, "Players: %d\n", s.PlayerCount)
	fmt.Fprintf(&b, "Paid: %s\n", formatAmount(s.TotalAmount, currency))
	fmt.Fprintf(&b, "Booked for: %s", s.ContactName)
	return models.TextReply(b.String())
}

func slotConflictPrompt() models.Reply {
	return models.TextReply(
		"Sorry, that slot was just taken by someone else. Here is what's still open:",
	)
}

func commitConflictPrompt() models.Reply {
	return models.TextReply(
		"Your payment came through, but the slot was taken in the meantime. " +
			"Our team will reach out about a refund or rebooking, or pick another time below.",
	)
}

func cancelAckPrompt() models.Reply {
	return models.TextReply("Your booking request was cancelled. Send \"book\" anytime to start again.")
}

func noAvailabilityPrompt(date string) models.Reply {
	return models.TextReply(fmt.Sprintf("No courts are open on %s. Try another day:", date))
}

func formatAmount(minor int64, currency string) string {
	return fmt.Sprintf("%s %.2f", strings.ToUpper(currency), float64(minor)/100)
}

func venueTitle(id string) string {
	for _, v := range venueOptions {
		if v.ID == id {
			return v.Title
		}
	}
	return id
}
