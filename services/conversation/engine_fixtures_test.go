package conversation

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Achutaiscool/Twenty44-WA-bot/models"
)

// In-memory fakes for the engine's collaborators.

type memSessions struct {
	byPhone map[string]models.BookingSession
}

func newMemSessions() *memSessions {
	return &memSessions{byPhone: make(map[string]models.BookingSession)}
}

func (r *memSessions) GetByPhone(phone string) (*models.BookingSession, error) {
	s, ok := r.byPhone[phone]
	if !ok {
		return nil, nil
	}
	copied := s
	return &copied, nil
}

func (r *memSessions) GetByBookingRef(ref string) (*models.BookingSession, error) {
	for _, s := range r.byPhone {
		if s.BookingRef == ref {
			copied := s
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *memSessions) Create(session *models.BookingSession) error {
	if _, exists := r.byPhone[session.Phone]; exists {
		return fmt.Errorf("session for phone %s already exists", session.Phone)
	}
	r.byPhone[session.Phone] = *session
	return nil
}

// Update replaces the stored record wholesale, mirroring the Mongo repo's
// ReplaceOne: fields cleared in memory are cleared here too.
func (r *memSessions) Update(session *models.BookingSession) error {
	if _, exists := r.byPhone[session.Phone]; !exists {
		return fmt.Errorf("session for phone %s not found", session.Phone)
	}
	r.byPhone[session.Phone] = *session
	return nil
}

func (r *memSessions) SetLastProcessedMessageID(phone, messageID string) error {
	s, exists := r.byPhone[phone]
	if !exists {
		return fmt.Errorf("session for phone %s not found", phone)
	}
	s.LastProcessedMessageID = messageID
	r.byPhone[phone] = s
	return nil
}

func (r *memSessions) Delete(phone string) error {
	if _, exists := r.byPhone[phone]; !exists {
		return fmt.Errorf("session for phone %s not found", phone)
	}
	delete(r.byPhone, phone)
	return nil
}

type fakeCalendar struct {
	slots     map[string][]string // date -> labels
	queryErr  error
	createErr error
	created   []string // "date slot" per created event
	nextID    string
}

func (c *fakeCalendar) GetAvailableSlots(date string) ([]string, error) {
	if c.queryErr != nil {
		return nil, c.queryErr
	}
	return c.slots[date], nil
}

func (c *fakeCalendar) CreateEvent(date, slot, summary, description string) (string, error) {
	if c.createErr != nil {
		return "", c.createErr
	}
	c.created = append(c.created, date+" "+slot)
	if c.nextID != "" {
		return c.nextID, nil
	}
	return "evt_1", nil
}

type fakePayments struct {
	link string
	err  error
	reqs []models.PaymentLinkRequest
}

func (p *fakePayments) CreatePaymentLink(req models.PaymentLinkRequest) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	p.reqs = append(p.reqs, req)
	return p.link, nil
}

type sentMessage struct {
	To    string
	Reply models.Reply
}

type recordingMessenger struct {
	sent []sentMessage
}

func (m *recordingMessenger) Send(to string, reply models.Reply) error {
	m.sent = append(m.sent, sentMessage{To: to, Reply: reply})
	return nil
}

func (m *recordingMessenger) last() models.Reply {
	if len(m.sent) == 0 {
		return models.Reply{}
	}
	return m.sent[len(m.sent)-1].Reply
}

type fakeQueue struct {
	reconciled []string // reasons
	reminders  []time.Time
}

func (q *fakeQueue) EnqueueReconciliation(_ models.BookingSession, reason string) error {
	q.reconciled = append(q.reconciled, reason)
	return nil
}

func (q *fakeQueue) ScheduleReminder(_ models.BookingSession, fireAt time.Time) error {
	q.reminders = append(q.reminders, fireAt)
	return nil
}

type noopLocker struct{}

func (noopLocker) Acquire(string) (func(), error) { return func() {}, nil }

type busyLocker struct{}

func (busyLocker) Acquire(string) (func(), error) { return nil, ErrBusy }

var errBoom = errors.New("boom")

// fixedNow keeps "today" stable across a test run.
var fixedNow = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC) // a Monday

type testEnv struct {
	engine    *Engine
	sessions  *memSessions
	calendar  *fakeCalendar
	payments  *fakePayments
	messenger *recordingMessenger
	queue     *fakeQueue
}

func newTestEnv() *testEnv {
	env := &testEnv{
		sessions:  newMemSessions(),
		calendar:  &fakeCalendar{slots: make(map[string][]string)},
		payments:  &fakePayments{link: "https://pay.example/cs_test"},
		messenger: &recordingMessenger{},
		queue:     &fakeQueue{},
	}
	env.engine = &Engine{
		Sessions:     env.sessions,
		Calendar:     env.calendar,
		Payments:     env.payments,
		Messenger:    env.messenger,
		Tasks:        env.queue,
		Locks:        noopLocker{},
		Pricing:      testPricing(),
		Logger:       zap.NewNop(),
		ReminderLead: time.Hour,
		Location:     time.UTC,
		Now:          func() time.Time { return fixedNow },
	}
	return env
}

func (env *testEnv) seed(s models.BookingSession) {
	env.sessions.byPhone[s.Phone] = s
}

func (env *testEnv) session(phone string) models.BookingSession {
	return env.sessions.byPhone[phone]
}

func textMsg(from, id, body string) models.InboundMessage {
	return models.InboundMessage{
		From: from,
		ID:   id,
		Type: "text",
		Text: &models.TextBody{Body: body},
	}
}

func buttonMsg(from, id, buttonID, title string) models.InboundMessage {
	return models.InboundMessage{
		From: from,
		ID:   id,
		Type: "interactive",
		Interactive: &models.Interactive{
			Type:        "button_reply",
			ButtonReply: &models.ReplyRef{ID: buttonID, Title: title},
		},
	}
}

func listMsg(from, id, rowID, title string) models.InboundMessage {
	return models.InboundMessage{
		From: from,
		ID:   id,
		Type: "interactive",
		Interactive: &models.Interactive{
			Type:      "list_reply",
			ListReply: &models.ReplyRef{ID: rowID, Title: title},
		},
	}
}
