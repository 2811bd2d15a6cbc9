package cron

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/Achutaiscool/Twenty44-WA-bot/config"
	sessionRepo "github.com/Achutaiscool/Twenty44-WA-bot/database/repository/session"
	"github.com/Achutaiscool/Twenty44-WA-bot/models"
	"github.com/Achutaiscool/Twenty44-WA-bot/services/conversation"
	"github.com/Achutaiscool/Twenty44-WA-bot/services/tasks"
	"github.com/Achutaiscool/Twenty44-WA-bot/utils"
)

// InitWorker runs the async worker in background. It owns the two
// follow-up concerns that outlive a webhook request: pre-slot reminders
// and reconciliation of paid-but-unresolved bookings.
func InitWorker(
	messenger conversation.Messenger,
	calendarSvc conversation.CalendarService,
	sessions sessionRepo.SessionRepository,
) {
	redisOpts := asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeSendReminder, handleReminderTask(messenger))
	mux.HandleFunc(tasks.TypeReconcileBooking, handleReconcileTask(calendarSvc, sessions))

	go func() {
		log.Println("[Worker] starting async worker...")
		if err := srv.Run(mux); err != nil {
			log.Fatalf("[Worker] failed to start: %v", err)
		}
	}()
}

func handleReminderTask(messenger conversation.Messenger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload tasks.ReminderPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("failed to parse reminder payload: %w", err)
		}
		body := fmt.Sprintf("Reminder: your %s court is booked today, %s (%s). See you there!",
			payload.Sport, payload.TimeSlot, payload.Date)
		if err := messenger.Send(payload.Phone, models.TextReply(body)); err != nil {
			return fmt.Errorf("reminder send failed: %w", err)
		}
		return nil
	}
}

// handleReconcileTask retries the calendar write when that is what failed,
// and always leaves a loud operator trail: the user has paid, so the task
// is never dropped quietly.
func handleReconcileTask(
	calendarSvc conversation.CalendarService,
	sessions sessionRepo.SessionRepository,
) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		logger := utils.GetLogger()

		var payload tasks.ReconcilePayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("failed to parse reconcile payload: %w", err)
		}
		s := payload.Session

		logger.Error("booking needs reconciliation",
			zap.String("phone", s.Phone),
			zap.String("bookingRef", s.BookingRef),
			zap.String("date", s.Date),
			zap.String("slot", s.TimeSlot),
			zap.Int64("amount", s.TotalAmount),
			zap.String("reason", payload.Reason))

		if payload.Reason != "calendar event creation failed" || s.ConfirmedEventID != "" {
			return nil
		}

		stored, err := sessions.GetByBookingRef(s.BookingRef)
		if err != nil {
			return fmt.Errorf("failed to reload session: %w", err)
		}
		if stored == nil || stored.ConfirmedEventID != "" {
			return nil
		}

		summary := fmt.Sprintf("Twenty44: %s (%s)", s.ContactName, s.Sport)
		description := fmt.Sprintf("Players: %d, phone: %s, ref: %s (reconciled %s)",
			s.PlayerCount, s.Phone, s.BookingRef, time.Now().Format(time.RFC3339))
		eventID, err := calendarSvc.CreateEvent(s.Date, s.TimeSlot, summary, description)
		if err != nil {
			// Returning the error lets asynq retry with backoff.
			return fmt.Errorf("calendar retry failed: %w", err)
		}

		stored.ConfirmedEventID = eventID
		if err := sessions.Update(stored); err != nil {
			return fmt.Errorf("failed to persist reconciled event id: %w", err)
		}
		logger.Info("reconciled calendar event",
			zap.String("bookingRef", s.BookingRef), zap.String("eventId", eventID))
		return nil
	}
}
