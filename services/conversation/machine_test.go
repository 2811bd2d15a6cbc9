package conversation

import (
	"testing"

	"github.com/Achutaiscool/Twenty44-WA-bot/models"
)

const phone = "919800000001"

func TestFirstContactStartsAtSport(t *testing.T) {
	env := newTestEnv()

	if err := env.engine.HandleInbound(textMsg(phone, "wamid.1", "hi")); err != nil {
		t.Fatal(err)
	}

	sess := env.session(phone)
	if sess.Step != models.StepSport {
		t.Fatalf("step = %s, want %s", sess.Step, models.StepSport)
	}
	reply := env.messenger.last()
	if reply.Kind != models.ReplyButtons || len(reply.Options) != 3 {
		t.Fatalf("welcome should offer three sport buttons, got %+v", reply)
	}
}

func TestSportThenVenueAdvance(t *testing.T) {
	env := newTestEnv()

	env.engine.HandleInbound(textMsg(phone, "wamid.1", "hi"))
	env.engine.HandleInbound(buttonMsg(phone, "wamid.2", "sport_badminton", "Badminton"))

	sess := env.session(phone)
	if sess.Sport != "badminton" || sess.Step != models.StepVenue {
		t.Fatalf("after sport pick: sport=%q step=%s", sess.Sport, sess.Step)
	}

	env.engine.HandleInbound(buttonMsg(phone, "wamid.3", "venue_indoor", "Indoor Arena"))
	sess = env.session(phone)
	if sess.Venue != "venue_indoor" || sess.Step != models.StepDateCategory {
		t.Fatalf("after venue pick: venue=%q step=%s", sess.Venue, sess.Step)
	}
}

func TestSportAcceptsKeywordText(t *testing.T) {
	env := newTestEnv()
	env.seed(models.BookingSession{Phone: phone, Step: models.StepSport})

	env.engine.HandleInbound(textMsg(phone, "wamid.1", "I want to play Pickleball please"))

	if got := env.session(phone).Sport; got != "pickleball" {
		t.Fatalf("sport = %q, want pickleball", got)
	}
}

func TestInvalidInputRePromptsWithoutAdvancing(t *testing.T) {
	env := newTestEnv()
	env.seed(models.BookingSession{Phone: phone, Step: models.StepVenue, Sport: "badminton"})

	env.engine.HandleInbound(textMsg(phone, "wamid.1", "gibberish"))

	sess := env.session(phone)
	if sess.Step != models.StepVenue {
		t.Fatalf("invalid input advanced step to %s", sess.Step)
	}
	if env.messenger.last().Kind != models.ReplyButtons {
		t.Fatal("expected venue re-prompt")
	}
}

func TestIdempotentReplay(t *testing.T) {
	env := newTestEnv()
	env.seed(models.BookingSession{Phone: phone, Step: models.StepSport})

	msg := buttonMsg(phone, "wamid.dup", "sport_badminton", "Badminton")
	if err := env.engine.HandleInbound(msg); err != nil {
		t.Fatal(err)
	}
	sentAfterFirst := len(env.messenger.sent)
	stepAfterFirst := env.session(phone).Step

	if err := env.engine.HandleInbound(msg); err != nil {
		t.Fatal(err)
	}

	if len(env.messenger.sent) != sentAfterFirst {
		t.Fatal("duplicate delivery produced an outbound reply")
	}
	if env.session(phone).Step != stepAfterFirst {
		t.Fatal("duplicate delivery changed state")
	}
}

func TestUniversalCancelDeletesSession(t *testing.T) {
	env := newTestEnv()
	env.seed(models.BookingSession{Phone: phone, Step: models.StepAddOns, Sport: "badminton"})

	env.engine.HandleInbound(textMsg(phone, "wamid.1", "cancel"))

	if _, exists := env.sessions.byPhone[phone]; exists {
		t.Fatal("cancel must delete the session")
	}

	// The next message starts a fresh session at the initial step.
	env.engine.HandleInbound(textMsg(phone, "wamid.2", "hello"))
	if got := env.session(phone).Step; got != models.StepSport {
		t.Fatalf("restarted step = %s, want %s", got, models.StepSport)
	}
}

func TestStartCommandDiscardsProgress(t *testing.T) {
	env := newTestEnv()
	env.seed(models.BookingSession{
		Phone: phone, Step: models.StepContact,
		Sport: "badminton", Date: "2026-03-02", TimeSlot: "18:00 - 19:00",
	})

	env.engine.HandleInbound(textMsg(phone, "wamid.1", "book"))

	sess := env.session(phone)
	if sess.Step != models.StepSport || sess.Sport != "" || sess.TimeSlot != "" {
		t.Fatalf("start command kept stale progress: %+v", sess)
	}
}

func TestUnknownStepRecovers(t *testing.T) {
	env := newTestEnv()
	env.seed(models.BookingSession{Phone: phone, Step: "choose_color"})

	env.engine.HandleInbound(textMsg(phone, "wamid.1", "anything"))

	if got := env.session(phone).Step; got != models.StepSport {
		t.Fatalf("corrupted step recovered to %s, want %s", got, models.StepSport)
	}
}

func TestDateCategoryToday(t *testing.T) {
	env := newTestEnv()
	env.calendar.slots["2026-03-02"] = []string{"18:00 - 19:00"}
	env.seed(models.BookingSession{Phone: phone, Step: models.StepDateCategory, Venue: "venue_indoor"})

	env.engine.HandleInbound(buttonMsg(phone, "wamid.1", "date_today", "Today"))

	sess := env.session(phone)
	if sess.Date != "2026-03-02" || sess.Step != models.StepTimeOfDay {
		t.Fatalf("today pick: date=%q step=%s", sess.Date, sess.Step)
	}
}

func TestDateCategoryTodayWithoutAvailability(t *testing.T) {
	env := newTestEnv()
	env.seed(models.BookingSession{Phone: phone, Step: models.StepDateCategory})

	env.engine.HandleInbound(buttonMsg(phone, "wamid.1", "date_today", "Today"))

	sess := env.session(phone)
	if sess.Step != models.StepDateCategory || sess.Date != "" {
		t.Fatalf("empty day must re-prompt, got date=%q step=%s", sess.Date, sess.Step)
	}
}

func TestWeekBrowsingOffersOnlyOpenDays(t *testing.T) {
	env := newTestEnv()
	env.calendar.slots["2026-03-03"] = []string{"10:00 - 11:00"}
	env.calendar.slots["2026-03-05"] = []string{"17:00 - 18:00"}
	env.seed(models.BookingSession{
		Phone: phone, Step: models.StepWeek,
		Working: models.WorkingState{Kind: models.StepWeek, WeekCount: 3},
	})

	env.engine.HandleInbound(buttonMsg(phone, "wamid.1", "week_0", "This week"))

	sess := env.session(phone)
	if sess.Step != models.StepDate {
		t.Fatalf("step = %s, want %s", sess.Step, models.StepDate)
	}
	if len(sess.Working.DateCandidates) != 2 {
		t.Fatalf("offered %d days, want 2", len(sess.Working.DateCandidates))
	}
	if sess.Working.DateCandidates[0].Date != "2026-03-03" {
		t.Fatalf("first candidate = %s", sess.Working.DateCandidates[0].Date)
	}
	if env.messenger.last().Kind != models.ReplyList {
		t.Fatal("date candidates should render as a list")
	}
}

func TestWeekWithNoOpenDaysReOffersWeeks(t *testing.T) {
	env := newTestEnv()
	env.seed(models.BookingSession{
		Phone: phone, Step: models.StepWeek,
		Working: models.WorkingState{Kind: models.StepWeek, WeekCount: 3},
	})

	env.engine.HandleInbound(buttonMsg(phone, "wamid.1", "week_1", "Next week"))

	if got := env.session(phone).Step; got != models.StepWeek {
		t.Fatalf("step = %s, want %s", got, models.StepWeek)
	}
}

func TestDateSelectionByCandidateID(t *testing.T) {
	env := newTestEnv()
	env.calendar.slots["2026-03-03"] = []string{"10:00 - 11:00"}
	env.seed(models.BookingSession{
		Phone: phone, Step: models.StepDate,
		Working: models.WorkingState{
			Kind: models.StepDate,
			DateCandidates: []models.DateCandidate{
				{ID: "date_0", Date: "2026-03-03", Label: "Tue, 03 Mar"},
			},
		},
	})

	env.engine.HandleInbound(listMsg(phone, "wamid.1", "date_0", "Tue, 03 Mar"))

	sess := env.session(phone)
	if sess.Date != "2026-03-03" || sess.Step != models.StepTimeOfDay {
		t.Fatalf("date pick: date=%q step=%s", sess.Date, sess.Step)
	}
}

func TestDateSelectionRejectsPastTypedDate(t *testing.T) {
	env := newTestEnv()
	// A past day has no busy blocks, so its availability reads wide open;
	// the typed-date path must refuse it before the availability check.
	env.calendar.slots["2026-02-20"] = []string{"18:00 - 19:00"}
	env.seed(models.BookingSession{
		Phone: phone, Step: models.StepDate,
		Working: models.WorkingState{
			Kind: models.StepDate,
			DateCandidates: []models.DateCandidate{
				{ID: "date_0", Date: "2026-03-03", Label: "Tue, 03 Mar"},
			},
		},
	})

	env.engine.HandleInbound(textMsg(phone, "wamid.1", "2026-02-20"))

	sess := env.session(phone)
	if sess.Date != "" || sess.Step != models.StepDate {
		t.Fatalf("past typed date accepted: date=%q step=%s", sess.Date, sess.Step)
	}
}

func TestDateSelectionAcceptsTypedFutureDate(t *testing.T) {
	env := newTestEnv()
	env.calendar.slots["2026-03-10"] = []string{"18:00 - 19:00"}
	env.seed(models.BookingSession{
		Phone: phone, Step: models.StepDate,
		Working: models.WorkingState{Kind: models.StepDate},
	})

	env.engine.HandleInbound(textMsg(phone, "wamid.1", "10/03/2026"))

	sess := env.session(phone)
	if sess.Date != "2026-03-10" || sess.Step != models.StepTimeOfDay {
		t.Fatalf("typed future date: date=%q step=%s", sess.Date, sess.Step)
	}
}

func TestEveningBucketBuildsButtonCatalog(t *testing.T) {
	env := newTestEnv()
	env.calendar.slots["2026-03-02"] = []string{"18:00 - 19:00", "20:00-21:00"}
	env.seed(models.BookingSession{
		Phone: phone, Step: models.StepTimeOfDay, Date: "2026-03-02",
	})

	env.engine.HandleInbound(buttonMsg(phone, "wamid.1", "evening", "Evening"))

	sess := env.session(phone)
	if sess.Step != models.StepSlotConfirm {
		t.Fatalf("step = %s, want %s", sess.Step, models.StepSlotConfirm)
	}
	if len(sess.Working.SlotOrder) != 2 {
		t.Fatalf("catalog has %d entries, want 2", len(sess.Working.SlotOrder))
	}
	if sess.Working.SlotCatalog["slot_1"] != "20:00 - 21:00" {
		t.Fatalf("catalog not normalized: %v", sess.Working.SlotCatalog)
	}
	if env.messenger.last().Kind != models.ReplyButtons {
		t.Fatal("two slots should render as buttons, not a list")
	}
}

func TestLargeCatalogRendersAsList(t *testing.T) {
	env := newTestEnv()
	env.calendar.slots["2026-03-02"] = []string{
		"06:00 - 07:00", "07:00 - 08:00", "08:00 - 09:00", "09:00 - 10:00",
	}
	env.seed(models.BookingSession{Phone: phone, Step: models.StepTimeOfDay, Date: "2026-03-02"})

	env.engine.HandleInbound(buttonMsg(phone, "wamid.1", "morning", "Morning"))

	if env.messenger.last().Kind != models.ReplyList {
		t.Fatal("four slots should render as a list")
	}
}

func TestSlotSelectionConfirmsAndAdvances(t *testing.T) {
	env := newTestEnv()
	env.calendar.slots["2026-03-02"] = []string{"18:00 - 19:00", "20:00 - 21:00"}
	env.seed(models.BookingSession{
		Phone: phone, Step: models.StepSlotConfirm, Date: "2026-03-02",
		Working: models.WorkingState{
			Kind:        models.StepSlotConfirm,
			SlotCatalog: map[string]string{"slot_0": "18:00 - 19:00", "slot_1": "20:00 - 21:00"},
			SlotOrder:   []string{"18:00 - 19:00", "20:00 - 21:00"},
		},
	})

	env.engine.HandleInbound(buttonMsg(phone, "wamid.1", "slot_0", "18:00 - 19:00"))

	sess := env.session(phone)
	if sess.TimeSlot != "18:00 - 19:00" || sess.Step != models.StepPlayerCount {
		t.Fatalf("slot pick: slot=%q step=%s", sess.TimeSlot, sess.Step)
	}
	if len(sess.Working.SlotOrder) != 0 {
		t.Fatal("catalog must be cleared once consumed")
	}
}

func TestSlotConflictAtSelection(t *testing.T) {
	env := newTestEnv()
	// The offered slot vanished; only the later one remains.
	env.calendar.slots["2026-03-02"] = []string{"20:00 - 21:00"}
	env.seed(models.BookingSession{
		Phone: phone, Step: models.StepSlotConfirm, Date: "2026-03-02",
		Working: models.WorkingState{
			Kind:        models.StepSlotConfirm,
			SlotCatalog: map[string]string{"slot_0": "18:00 - 19:00"},
			SlotOrder:   []string{"18:00 - 19:00"},
		},
	})

	env.engine.HandleInbound(buttonMsg(phone, "wamid.1", "slot_0", "18:00 - 19:00"))

	sess := env.session(phone)
	if sess.Step != models.StepSlotConfirm || sess.TimeSlot != "" {
		t.Fatalf("conflict must not advance: slot=%q step=%s", sess.TimeSlot, sess.Step)
	}
	if sess.Working.SlotOrder[0] != "20:00 - 21:00" {
		t.Fatalf("catalog should be rebuilt from current truth: %v", sess.Working.SlotOrder)
	}
}

func TestStaleWorkingStateIsRefused(t *testing.T) {
	env := newTestEnv()
	env.seed(models.BookingSession{
		Phone: phone, Step: models.StepSlotConfirm, Date: "2026-03-02",
		Working: models.WorkingState{ // scratch left over from date browsing
			Kind: models.StepDate,
			DateCandidates: []models.DateCandidate{
				{ID: "date_0", Date: "2026-03-03", Label: "Tue"},
			},
		},
	})

	env.engine.HandleInbound(textMsg(phone, "wamid.1", "date_0"))

	sess := env.session(phone)
	if sess.Step != models.StepTimeOfDay {
		t.Fatalf("stale scratch must push back to bucket choice, got %s", sess.Step)
	}
	if sess.TimeSlot != "" {
		t.Fatal("stale scratch satisfied a slot selection")
	}
}

func TestPlayerCountFreeFormDigits(t *testing.T) {
	env := newTestEnv()
	env.seed(models.BookingSession{Phone: phone, Step: models.StepPlayerCount})

	env.engine.HandleInbound(textMsg(phone, "wamid.1", "4"))

	sess := env.session(phone)
	if sess.PlayerCount != 4 || sess.Step != models.StepAddOns {
		t.Fatalf("players=%d step=%s", sess.PlayerCount, sess.Step)
	}
}

func TestAddOnsComputeTotal(t *testing.T) {
	env := newTestEnv()
	env.seed(models.BookingSession{Phone: phone, Step: models.StepAddOns, PlayerCount: 4})

	env.engine.HandleInbound(listMsg(phone, "wamid.1", AddOnCoach, "Coach (1 hr)"))

	sess := env.session(phone)
	if sess.TotalAmount != 110000 {
		t.Fatalf("total = %d, want 110000", sess.TotalAmount)
	}
	if sess.Step != models.StepContact {
		t.Fatalf("step = %s, want %s", sess.Step, models.StepContact)
	}
}

func TestAddOnsNoneClearsSet(t *testing.T) {
	env := newTestEnv()
	env.seed(models.BookingSession{
		Phone: phone, Step: models.StepAddOns, PlayerCount: 2,
		AddOns: []string{AddOnCoach},
	})

	env.engine.HandleInbound(listMsg(phone, "wamid.1", AddOnNone, "No add-ons"))

	sess := env.session(phone)
	if len(sess.AddOns) != 0 || sess.TotalAmount != 50000 {
		t.Fatalf("addOns=%v total=%d", sess.AddOns, sess.TotalAmount)
	}
}

func TestContactIssuesPaymentLink(t *testing.T) {
	env := newTestEnv()
	env.seed(models.BookingSession{
		Phone: phone, Step: models.StepContact,
		Sport: "badminton", Date: "2026-03-02", TimeSlot: "18:00 - 19:00",
		PlayerCount: 4, TotalAmount: 60000,
	})

	env.engine.HandleInbound(textMsg(phone, "wamid.1", "Achu"))

	sess := env.session(phone)
	if sess.Step != models.StepPaymentInitiated || sess.ContactName != "Achu" {
		t.Fatalf("contact step: name=%q step=%s", sess.ContactName, sess.Step)
	}
	if sess.BookingRef == "" || sess.PaymentLink == "" {
		t.Fatal("booking ref and payment link must be recorded")
	}
	if len(env.payments.reqs) != 1 || env.payments.reqs[0].Amount != 60000 {
		t.Fatalf("payment link request = %+v", env.payments.reqs)
	}
	if env.payments.reqs[0].BookingRef != sess.BookingRef {
		t.Fatal("link metadata ref must match the session's correlation ref")
	}
}

func TestContactTooShortRePrompts(t *testing.T) {
	env := newTestEnv()
	env.seed(models.BookingSession{Phone: phone, Step: models.StepContact, TotalAmount: 50000})

	env.engine.HandleInbound(textMsg(phone, "wamid.1", "ab"))

	if env.session(phone).Step != models.StepContact {
		t.Fatal("short name advanced the step")
	}
	if len(env.payments.reqs) != 0 {
		t.Fatal("no payment link should be issued for invalid input")
	}
}

func TestPaymentLinkFailureStaysAtContact(t *testing.T) {
	env := newTestEnv()
	env.payments.err = errBoom
	env.seed(models.BookingSession{Phone: phone, Step: models.StepContact, TotalAmount: 50000})

	if err := env.engine.HandleInbound(textMsg(phone, "wamid.1", "Achu")); err != nil {
		t.Fatal(err)
	}

	if env.session(phone).Step != models.StepContact {
		t.Fatal("link failure must not advance to payment_initiated")
	}
}

func TestPaymentInitiatedInboundIsInformationalOnly(t *testing.T) {
	env := newTestEnv()
	env.seed(models.BookingSession{
		Phone: phone, Step: models.StepPaymentInitiated,
		PaymentLink: "https://pay.example/cs_test", BookingRef: "ref-1",
	})

	env.engine.HandleInbound(textMsg(phone, "wamid.1", "done"))

	sess := env.session(phone)
	if sess.Step != models.StepPaymentInitiated || sess.Paid {
		t.Fatalf("inbound message must never commit: paid=%v step=%s", sess.Paid, sess.Step)
	}
	if env.messenger.last().Kind != models.ReplyText {
		t.Fatal("expected an informational reply")
	}
}

func TestNoActionablePayloadIsANoOp(t *testing.T) {
	env := newTestEnv()
	env.seed(models.BookingSession{Phone: phone, Step: models.StepVenue})

	msg := models.InboundMessage{From: phone, ID: "wamid.1", Type: "image"}
	if err := env.engine.HandleInbound(msg); err != nil {
		t.Fatal(err)
	}

	if len(env.messenger.sent) != 0 {
		t.Fatal("non-actionable payload produced a reply")
	}
	if env.session(phone).LastProcessedMessageID != "" {
		t.Fatal("non-actionable payload mutated the session")
	}
}

func TestBusyIdentitySurfacesErrBusy(t *testing.T) {
	env := newTestEnv()
	env.engine.Locks = busyLocker{}

	err := env.engine.HandleInbound(textMsg(phone, "wamid.1", "hi"))
	if err != ErrBusy {
		t.Fatalf("err = %v, want ErrBusy", err)
	}
}
