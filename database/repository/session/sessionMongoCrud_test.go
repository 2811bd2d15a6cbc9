package sessionRepo

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/Achutaiscool/Twenty44-WA-bot/models"
)

// Update writes the session as a full replacement document. These tests pin
// that choice down: a field cleared in memory must vanish from the stored
// document, not survive because its zero value was omitted from a $set.
func TestReplacementDocumentDropsClearedFields(t *testing.T) {
	// A commit-conflict rollback: slot and scratch cleared, progress kept.
	sess := models.BookingSession{
		Phone:       "919800000001",
		Step:        models.StepTimeOfDay,
		Sport:       "badminton",
		Venue:       "venue_indoor",
		Date:        "2026-03-02",
		TimeSlot:    "",
		ContactName: "Achu",
		BookingRef:  "ref-abc",
	}
	sess.ClearWorking()

	doc := marshalSession(t, &sess)

	if _, present := doc["timeSlot"]; present {
		t.Error("cleared timeSlot still present in replacement document")
	}
	for _, field := range []string{"phone", "step", "sport", "venue", "date", "contactName", "bookingRef"} {
		if _, present := doc[field]; !present {
			t.Errorf("live field %q missing from replacement document", field)
		}
	}
}

func TestReplacementDocumentDropsRestartLeftovers(t *testing.T) {
	// The restart command rebuilds the session from scratch; nothing from
	// the abandoned flow may survive, least of all a commit-capable
	// booking ref.
	sess := models.BookingSession{
		Phone:                  "919800000001",
		Step:                   models.StepSport,
		LastProcessedMessageID: "wamid.7",
	}

	doc := marshalSession(t, &sess)

	for _, field := range []string{"sport", "venue", "date", "timeSlot", "contactName", "bookingRef", "paymentLink", "addOns"} {
		if _, present := doc[field]; present {
			t.Errorf("restart leftover %q still present in replacement document", field)
		}
	}
	if doc["lastProcessedMessageId"] != "wamid.7" {
		t.Errorf("lastProcessedMessageId = %v, want wamid.7", doc["lastProcessedMessageId"])
	}
}

func marshalSession(t *testing.T, sess *models.BookingSession) bson.M {
	t.Helper()
	raw, err := bson.Marshal(sess)
	if err != nil {
		t.Fatal(err)
	}
	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		t.Fatal(err)
	}
	return doc
}
