package conversation

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	sessionRepo "github.com/Achutaiscool/Twenty44-WA-bot/database/repository/session"
	"github.com/Achutaiscool/Twenty44-WA-bot/models"
)

// Engine drives the booking conversation: it interprets an inbound message
// against the persisted session, decides the transition, performs the
// required side effects, and hands the next prompt to the messenger.
type Engine struct {
	Sessions  sessionRepo.SessionRepository
	Calendar  CalendarService
	Payments  PaymentLinkIssuer
	Messenger Messenger
	Tasks     TaskQueue
	Locks     Locker
	Pricing   PricingConfig
	Logger    *zap.Logger

	// ReminderLead is how long before slot start the reminder fires.
	ReminderLead time.Duration
	// Location is the facility timezone, used for "today" and reminder math.
	Location *time.Location
	// Now is swappable for tests; defaults to time.Now.
	Now func() time.Time
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Engine) location() *time.Location {
	if e.Location != nil {
		return e.Location
	}
	return time.Local
}

// HandleInbound processes one webhook-delivered user message end to end.
// The whole load-decide-persist span runs under the identity's lock, so
// racing deliveries for the same phone serialize.
func (e *Engine) HandleInbound(msg models.InboundMessage) error {
	in := Interpret(msg)
	if !in.Actionable {
		return nil
	}

	release, err := e.Locks.Acquire(in.From)
	if err != nil {
		return err
	}
	defer release()

	sess, err := e.Sessions.GetByPhone(in.From)
	if err != nil {
		return NewStorageError("load session", err)
	}

	isNew := sess == nil
	if isNew {
		sess = &models.BookingSession{Phone: in.From, Step: models.StepSport}
	}

	// Idempotency guard: a redelivered message id is absorbed with no
	// state change and no reply. The id is recorded durably before any
	// other side effect so payment links and calendar events stay
	// at-most-once per inbound message.
	if in.MessageID != "" && in.MessageID == sess.LastProcessedMessageID {
		e.Logger.Debug("duplicate delivery absorbed",
			zap.String("phone", in.From), zap.String("messageId", in.MessageID))
		return nil
	}
	sess.LastProcessedMessageID = in.MessageID
	if isNew {
		if err := e.Sessions.Create(sess); err != nil {
			return NewStorageError("create session", err)
		}
	} else if in.MessageID != "" {
		if err := e.Sessions.SetLastProcessedMessageID(in.From, in.MessageID); err != nil {
			return NewStorageError("record message id", err)
		}
	}

	// Universal commands outrank step logic.
	switch in.Lower {
	case "cancel", "exit":
		if err := e.Sessions.Delete(in.From); err != nil {
			e.Logger.Warn("cancel: session delete failed",
				zap.String("phone", in.From), zap.Error(err))
		}
		e.Logger.Info("session cancelled", zap.String("phone", in.From))
		return e.send(in.From, cancelAckPrompt())
	case "book", "start", "hi", "hello":
		*sess = models.BookingSession{
			Phone:                  in.From,
			Step:                   models.StepSport,
			LastProcessedMessageID: in.MessageID,
		}
		if err := e.Sessions.Update(sess); err != nil {
			return NewStorageError("restart session", err)
		}
		return e.send(in.From, welcomePrompt())
	}

	// Corrupted or legacy step values recover to the initial prompt.
	if !sess.Step.Valid() {
		e.Logger.Warn("unknown step, resetting session",
			zap.String("phone", in.From), zap.String("step", string(sess.Step)))
		sess.Step = models.StepSport
		sess.ClearWorking()
		if err := e.Sessions.Update(sess); err != nil {
			return NewStorageError("reset session", err)
		}
		return e.send(in.From, welcomePrompt())
	}

	replies := e.advance(sess, in)
	if err := e.Sessions.Update(sess); err != nil {
		return NewStorageError("persist session", err)
	}
	return e.send(in.From, replies...)
}

// advance runs the per-step transition. It mutates the session in memory
// only; the caller persists.
func (e *Engine) advance(sess *models.BookingSession, in Inbound) []models.Reply {
	switch sess.Step {
	case models.StepSport:
		return e.handleSport(sess, in)
	case models.StepVenue:
		return e.handleVenue(sess, in)
	case models.StepDateCategory:
		return e.handleDateCategory(sess, in)
	case models.StepWeek:
		return e.handleWeek(sess, in)
	case models.StepDate:
		return e.handleDate(sess, in)
	case models.StepTimeOfDay:
		return e.handleTimeOfDay(sess, in)
	case models.StepSlotConfirm:
		return e.handleSlotConfirm(sess, in)
	case models.StepPlayerCount:
		return e.handlePlayerCount(sess, in)
	case models.StepAddOns:
		return e.handleAddOns(sess, in)
	case models.StepContact:
		return e.handleContact(sess, in)
	case models.StepPaymentInitiated:
		return []models.Reply{paymentPendingPrompt(sess.PaymentLink)}
	case models.StepCommitted:
		return []models.Reply{models.TextReply(
			"This booking is already confirmed. Send \"book\" to start a new one.")}
	}
	return []models.Reply{welcomePrompt()}
}

func (e *Engine) handleSport(sess *models.BookingSession, in Inbound) []models.Reply {
	for _, opt := range sportOptions {
		if in.Token == opt.ID || strings.Contains(in.Lower, strings.ToLower(opt.Title)) {
			sess.Sport = strings.TrimPrefix(opt.ID, "sport_")
			sess.Step = models.StepVenue
			return []models.Reply{venuePrompt()}
		}
	}
	return []models.Reply{welcomePrompt()}
}

func (e *Engine) handleVenue(sess *models.BookingSession, in Inbound) []models.Reply {
	for _, opt := range venueOptions {
		if in.Token == opt.ID || in.Lower == strings.ToLower(opt.Title) {
			sess.Venue = opt.ID
			sess.Step = models.StepDateCategory
			return []models.Reply{dateCategoryPrompt()}
		}
	}
	return []models.Reply{venuePrompt()}
}

func (e *Engine) handleDateCategory(sess *models.BookingSession, in Inbound) []models.Reply {
	today := e.now().In(e.location())

	var date string
	switch {
	case in.Token == "date_today" || in.Lower == "today":
		date = today.Format("2006-01-02")
	case in.Token == "date_tomorrow" || in.Lower == "tomorrow":
		date = today.AddDate(0, 0, 1).Format("2006-01-02")
	case in.Token == "date_other" || in.Lower == "other" || in.Lower == "other dates":
		sess.Step = models.StepWeek
		sess.Working = models.WorkingState{Kind: models.StepWeek, WeekCount: 3}
		return []models.Reply{weekPrompt()}
	default:
		return []models.Reply{dateCategoryPrompt()}
	}

	if !e.dateHasAvailability(date) {
		return []models.Reply{noAvailabilityPrompt(date), dateCategoryPrompt()}
	}
	sess.Date = date
	sess.Step = models.StepTimeOfDay
	sess.ClearWorking()
	return []models.Reply{bucketPrompt(date)}
}

func (e *Engine) handleWeek(sess *models.BookingSession, in Inbound) []models.Reply {
	offset, ok := parseWeekChoice(in)
	if !ok {
		return []models.Reply{weekPrompt()}
	}

	start := e.now().In(e.location()).AddDate(0, 0, offset*7)
	var candidates []models.DateCandidate
	for i := 0; i < 7; i++ {
		day := start.AddDate(0, 0, i)
		date := day.Format("2006-01-02")
		slots, err := e.Calendar.GetAvailableSlots(date)
		if err != nil {
			e.Logger.Warn("week scan: availability query failed",
				zap.String("date", date), zap.Error(err))
			continue
		}
		if len(NormalizeReported(slots)) == 0 {
			continue
		}
		candidates = append(candidates, models.DateCandidate{
			ID:    fmt.Sprintf("date_%d", len(candidates)),
			Date:  date,
			Label: day.Format("Mon, 02 Jan"),
		})
	}

	if len(candidates) == 0 {
		return []models.Reply{
			models.TextReply("No open courts that week, sorry. Try another week:"),
			weekPrompt(),
		}
	}
	sess.Step = models.StepDate
	sess.Working = models.WorkingState{Kind: models.StepDate, DateCandidates: candidates}
	return []models.Reply{dateListPrompt(candidates)}
}

func (e *Engine) handleDate(sess *models.BookingSession, in Inbound) []models.Reply {
	today := e.now().In(e.location()).Format("2006-01-02")
	date := resolveDateChoice(sess.Working, in, today)
	if date == "" {
		if sess.Working.Kind == models.StepDate && len(sess.Working.DateCandidates) > 0 {
			return []models.Reply{dateListPrompt(sess.Working.DateCandidates)}
		}
		sess.Step = models.StepWeek
		sess.Working = models.WorkingState{Kind: models.StepWeek, WeekCount: 3}
		return []models.Reply{weekPrompt()}
	}

	if !e.dateHasAvailability(date) {
		sess.Step = models.StepWeek
		sess.Working = models.WorkingState{Kind: models.StepWeek, WeekCount: 3}
		return []models.Reply{noAvailabilityPrompt(date), weekPrompt()}
	}
	sess.Date = date
	sess.Step = models.StepTimeOfDay
	sess.ClearWorking()
	return []models.Reply{bucketPrompt(date)}
}

func (e *Engine) handleTimeOfDay(sess *models.BookingSession, in Inbound) []models.Reply {
	bucket := parseBucketChoice(in)
	if bucket == "" {
		return []models.Reply{bucketPrompt(sess.Date)}
	}

	slots, err := e.Calendar.GetAvailableSlots(sess.Date)
	if err != nil {
		// Read-path degradation: no data is treated as no slots.
		e.Logger.Warn("availability query failed",
			zap.String("date", sess.Date), zap.Error(err))
		slots = nil
	}

	catalog := BuildCatalog(bucket, slots)
	if catalog.Empty() {
		sess.Step = models.StepDateCategory
		sess.ClearWorking()
		return []models.Reply{noAvailabilityPrompt(sess.Date), dateCategoryPrompt()}
	}

	sess.Step = models.StepSlotConfirm
	sess.Working = models.WorkingState{
		Kind:        models.StepSlotConfirm,
		SlotCatalog: catalog.Mapping,
		SlotOrder:   catalog.Order,
	}
	return []models.Reply{slotPrompt(sess.Working, catalog.Widened)}
}

func (e *Engine) handleSlotConfirm(sess *models.BookingSession, in Inbound) []models.Reply {
	if sess.Working.Kind != models.StepSlotConfirm {
		// Scratch state from another step must never satisfy a slot reply.
		sess.Step = models.StepTimeOfDay
		sess.ClearWorking()
		return []models.Reply{bucketPrompt(sess.Date)}
	}

	label := ResolveSelection(sess.Working, in.Token)
	if label == "" {
		return []models.Reply{slotPrompt(sess.Working, false)}
	}

	// Availability is concurrently mutable by other users and channels, so
	// re-validate the chosen slot against current truth before advancing.
	current, err := e.Calendar.GetAvailableSlots(sess.Date)
	if err != nil {
		e.Logger.Warn("slot recheck query failed",
			zap.String("date", sess.Date), zap.Error(err))
		return []models.Reply{models.TextReply(
			"Couldn't verify that slot just now, please pick again in a moment."),
			slotPrompt(sess.Working, false)}
	}
	if !slotStillAvailable(label, current) {
		e.Logger.Info("slot conflict at selection",
			zap.String("phone", sess.Phone), zap.String("slot", label))
		rebuilt := BuildCatalog("", current)
		if rebuilt.Empty() {
			sess.Step = models.StepDateCategory
			sess.ClearWorking()
			return []models.Reply{slotConflictPrompt(), noAvailabilityPrompt(sess.Date), dateCategoryPrompt()}
		}
		sess.Working = models.WorkingState{
			Kind:        models.StepSlotConfirm,
			SlotCatalog: rebuilt.Mapping,
			SlotOrder:   rebuilt.Order,
		}
		return []models.Reply{slotConflictPrompt(), slotPrompt(sess.Working, false)}
	}

	sess.TimeSlot = NormalizeSlotLabel(label)
	sess.Step = models.StepPlayerCount
	sess.ClearWorking()
	return []models.Reply{playerCountPrompt()}
}

func (e *Engine) handlePlayerCount(sess *models.BookingSession, in Inbound) []models.Reply {
	token := strings.TrimPrefix(in.Token, "players_")
	count, err := strconv.Atoi(token)
	if err != nil || count < 1 || count > 12 {
		return []models.Reply{playerCountPrompt()}
	}
	sess.PlayerCount = count
	sess.Step = models.StepAddOns
	return []models.Reply{addOnsPrompt()}
}

func (e *Engine) handleAddOns(sess *models.BookingSession, in Inbound) []models.Reply {
	var code string
	for _, opt := range addOnOptions {
		if in.Token == opt.ID || in.Lower == strings.ToLower(opt.Title) {
			code = opt.ID
			break
		}
	}
	if code == "" {
		return []models.Reply{addOnsPrompt()}
	}

	if code == AddOnNone {
		sess.AddOns = nil
	} else {
		sess.AddOns = []string{code}
	}
	sess.TotalAmount = e.Pricing.Total(sess.PlayerCount, sess.AddOns)
	sess.Step = models.StepContact
	return []models.Reply{contactPrompt(sess.TotalAmount, e.Pricing.Currency)}
}

func (e *Engine) handleContact(sess *models.BookingSession, in Inbound) []models.Reply {
	if len(in.Token) < 3 {
		return []models.Reply{models.TextReply(
			"Please send a name for the booking (at least 3 characters).")}
	}
	sess.ContactName = in.Token
	if sess.BookingRef == "" {
		sess.BookingRef = uuid.New().String()
	}

	link, err := e.Payments.CreatePaymentLink(models.PaymentLinkRequest{
		Phone:       sess.Phone,
		BookingRef:  sess.BookingRef,
		Amount:      sess.TotalAmount,
		Currency:    e.Pricing.Currency,
		Description: fmt.Sprintf("Twenty44 %s, %s %s", sess.Sport, sess.Date, sess.TimeSlot),
	})
	if err != nil {
		e.Logger.Error("payment link issuance failed",
			zap.String("phone", sess.Phone), zap.Error(err))
		return []models.Reply{models.TextReply(
			"Payments are briefly unavailable. Please resend the booking name in a minute.")}
	}
	sess.PaymentLink = link
	sess.Step = models.StepPaymentInitiated
	return []models.Reply{paymentPrompt(link, sess.TotalAmount, e.Pricing.Currency)}
}

// dateHasAvailability reports whether a date has at least one open slot.
// Query failures degrade to "none" on this read path.
func (e *Engine) dateHasAvailability(date string) bool {
	slots, err := e.Calendar.GetAvailableSlots(date)
	if err != nil {
		e.Logger.Warn("availability query failed",
			zap.String("date", date), zap.Error(err))
		return false
	}
	return len(NormalizeReported(slots)) > 0
}

func (e *Engine) send(to string, replies ...models.Reply) error {
	for _, reply := range replies {
		if err := e.Messenger.Send(to, reply); err != nil {
			// Outbound delivery failure must not unwind an already
			// persisted transition; a redelivery would be absorbed as a
			// duplicate and the user would still get nothing.
			e.Logger.Error("outbound send failed",
				zap.String("to", to), zap.String("kind", string(reply.Kind)), zap.Error(err))
			return nil
		}
	}
	return nil
}

func parseWeekChoice(in Inbound) (int, bool) {
	if strings.HasPrefix(in.Token, "week_") {
		n, err := strconv.Atoi(strings.TrimPrefix(in.Token, "week_"))
		if err == nil && n >= 0 && n <= 2 {
			return n, true
		}
		return 0, false
	}
	switch in.Lower {
	case "this week":
		return 0, true
	case "next week":
		return 1, true
	case "in two weeks":
		return 2, true
	}
	return 0, false
}

func parseBucketChoice(in Inbound) string {
	switch in.Lower {
	case BucketMorning, BucketAfternoon, BucketEvening:
		return in.Lower
	}
	return ""
}

// resolveDateChoice maps a user reply to a date: an offered candidate id,
// a 1-based index, a candidate label, or a directly-typed date. A typed
// date before minDate is rejected; a past day's calendar reads as wide
// open and must never pass the availability check.
func resolveDateChoice(working models.WorkingState, in Inbound, minDate string) string {
	if working.Kind == models.StepDate {
		for _, c := range working.DateCandidates {
			if in.Token == c.ID || in.Token == c.Label {
				return c.Date
			}
		}
		if n, err := strconv.Atoi(in.Token); err == nil && n >= 1 && n <= len(working.DateCandidates) {
			return working.DateCandidates[n-1].Date
		}
	}
	for _, layout := range []string{"2006-01-02", "02/01/2006", "02-01-2006"} {
		if t, err := time.Parse(layout, in.Token); err == nil {
			date := t.Format("2006-01-02")
			if date < minDate {
				return ""
			}
			return date
		}
	}
	return ""
}
