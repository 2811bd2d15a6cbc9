package conversation

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Achutaiscool/Twenty44-WA-bot/models"
)

// slotStillAvailable re-validates one slot against currently reported
// availability, by normalized label first, structural clock pair second.
func slotStillAvailable(slot string, reported []string) bool {
	want := NormalizeSlotLabel(slot)
	for _, label := range NormalizeReported(reported) {
		if label == want {
			return true
		}
	}
	wantStart, wantEnd, ok := ParseRange(want)
	if !ok {
		return false
	}
	for _, label := range reported {
		if start, end, ok := ParseRange(label); ok && start == wantStart && end == wantEnd {
			return true
		}
	}
	return false
}

// HandlePaymentConfirmed finalizes a booking off the asynchronous payment
// webhook. This is the only commit path: an inbound "done" message never
// marks a session paid. The gap between link issuance and payment can be
// long, so the slot is re-validated once more before the calendar write.
func (e *Engine) HandlePaymentConfirmed(ev models.PaymentEvent) error {
	sess, err := e.Sessions.GetByBookingRef(ev.BookingRef)
	if err != nil {
		return NewStorageError("load session by booking ref", err)
	}
	if sess == nil {
		e.Logger.Warn("payment event for unknown booking ref",
			zap.String("bookingRef", ev.BookingRef))
		return nil
	}

	release, err := e.Locks.Acquire(sess.Phone)
	if err != nil {
		return err
	}
	defer release()

	// Reload under the lock; a racing delivery may have advanced it.
	sess, err = e.Sessions.GetByBookingRef(ev.BookingRef)
	if err != nil {
		return NewStorageError("reload session by booking ref", err)
	}
	if sess == nil {
		return nil
	}
	if sess.Paid {
		e.Logger.Debug("duplicate payment event absorbed",
			zap.String("bookingRef", ev.BookingRef))
		return nil
	}

	current, err := e.Calendar.GetAvailableSlots(sess.Date)
	recheckSkipped := err != nil
	if recheckSkipped {
		// Transient read failure means "no data", not "slot gone". The
		// money has moved, so proceed and flag for manual verification.
		e.Logger.Error("commit recheck query failed",
			zap.String("phone", sess.Phone), zap.Error(err))
	} else if !slotStillAvailable(sess.TimeSlot, current) {
		return e.commitConflict(sess, current)
	}

	summary := fmt.Sprintf("Twenty44: %s (%s)", sess.ContactName, sess.Sport)
	description := fmt.Sprintf("Players: %d, phone: %s, ref: %s",
		sess.PlayerCount, sess.Phone, sess.BookingRef)
	eventID, err := e.Calendar.CreateEvent(sess.Date, sess.TimeSlot, summary, description)
	if err != nil {
		// Payment is captured; the reservation must not silently abort.
		e.Logger.Error("calendar event creation failed after payment",
			zap.String("phone", sess.Phone), zap.Error(err))
		if qerr := e.Tasks.EnqueueReconciliation(*sess, "calendar event creation failed"); qerr != nil {
			e.Logger.Error("reconciliation enqueue failed", zap.Error(qerr))
		}
	} else {
		sess.ConfirmedEventID = eventID
	}
	if recheckSkipped {
		if qerr := e.Tasks.EnqueueReconciliation(*sess, "availability recheck skipped at commit"); qerr != nil {
			e.Logger.Error("reconciliation enqueue failed", zap.Error(qerr))
		}
	}

	sess.Paid = true
	sess.Step = models.StepCommitted
	sess.ClearWorking()
	if err := e.Sessions.Update(sess); err != nil {
		return NewStorageError("persist committed session", err)
	}

	e.Logger.Info("booking committed",
		zap.String("phone", sess.Phone),
		zap.String("date", sess.Date),
		zap.String("slot", sess.TimeSlot),
		zap.String("eventId", sess.ConfirmedEventID))

	e.scheduleReminder(sess)
	return e.send(sess.Phone, confirmationPrompt(sess, e.Pricing.Currency))
}

// commitConflict handles a slot that vanished between payment initiation
// and confirmation: paid stays false, the step rolls back only as far as
// needed, and the captured payment is flagged to operations.
func (e *Engine) commitConflict(sess *models.BookingSession, current []string) error {
	e.Logger.Warn("slot conflict at commit",
		zap.String("phone", sess.Phone),
		zap.String("date", sess.Date),
		zap.String("slot", sess.TimeSlot))

	if err := e.Tasks.EnqueueReconciliation(*sess, "payment captured for unavailable slot"); err != nil {
		e.Logger.Error("reconciliation enqueue failed", zap.Error(err))
	}

	replies := []models.Reply{commitConflictPrompt()}
	if len(NormalizeReported(current)) > 0 {
		sess.Step = models.StepTimeOfDay
		replies = append(replies, bucketPrompt(sess.Date))
	} else {
		sess.Step = models.StepDateCategory
		replies = append(replies, dateCategoryPrompt())
	}
	sess.TimeSlot = ""
	sess.ClearWorking()
	if err := e.Sessions.Update(sess); err != nil {
		return NewStorageError("persist conflicted session", err)
	}
	return e.send(sess.Phone, replies...)
}

func (e *Engine) scheduleReminder(sess *models.BookingSession) {
	start, _, ok := ParseRange(sess.TimeSlot)
	if !ok {
		return
	}
	slotStart, err := time.ParseInLocation("2006-01-02 15:04", sess.Date+" "+start, e.location())
	if err != nil {
		return
	}
	fireAt := slotStart.Add(-e.ReminderLead)
	if !fireAt.After(e.now()) {
		return
	}
	if err := e.Tasks.ScheduleReminder(*sess, fireAt); err != nil {
		e.Logger.Warn("reminder scheduling failed",
			zap.String("phone", sess.Phone), zap.Error(err))
	}
}
