package tasks

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/Achutaiscool/Twenty44-WA-bot/config"
	"github.com/Achutaiscool/Twenty44-WA-bot/models"
)

const (
	TypeReconcileBooking = "reconcile:booking"
	TypeSendReminder     = "reminder:send"
)

// ReconcilePayload carries a session snapshot that needs operator
// attention (payment captured but reservation unresolved).
type ReconcilePayload struct {
	Session models.BookingSession `json:"session"`
	Reason  string                `json:"reason"`
}

// ReminderPayload is the pre-slot reminder message input.
type ReminderPayload struct {
	Phone    string `json:"phone"`
	Date     string `json:"date"`
	TimeSlot string `json:"timeSlot"`
	Sport    string `json:"sport"`
}

func NewReconcileTask(payload ReconcilePayload) (*asynq.Task, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeReconcileBooking, b), nil
}

func NewReminderTask(payload ReminderPayload, fireAt time.Time) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeSendReminder, b)
	opts := []asynq.Option{asynq.ProcessAt(fireAt)}

	return task, opts, nil
}

// AsynqQueue enqueues follow-up work onto the Redis-backed task queue.
type AsynqQueue struct {
	client *asynq.Client
}

func NewAsynqQueue() *AsynqQueue {
	return &AsynqQueue{
		client: asynq.NewClient(asynq.RedisClientOpt{
			Addr:     config.AppConfig.RedisAddr,
			Password: config.AppConfig.RedisPassword,
			DB:       config.AppConfig.RedisQueueDB,
		}),
	}
}

func (q *AsynqQueue) EnqueueReconciliation(session models.BookingSession, reason string) error {
	task, err := NewReconcileTask(ReconcilePayload{Session: session, Reason: reason})
	if err != nil {
		return fmt.Errorf("failed to build reconcile task: %w", err)
	}
	if _, err := q.client.Enqueue(task, asynq.MaxRetry(5)); err != nil {
		return fmt.Errorf("failed to enqueue reconcile task: %w", err)
	}
	return nil
}

func (q *AsynqQueue) ScheduleReminder(session models.BookingSession, fireAt time.Time) error {
	task, opts, err := NewReminderTask(ReminderPayload{
		Phone:    session.Phone,
		Date:     session.Date,
		TimeSlot: session.TimeSlot,
		Sport:    session.Sport,
	}, fireAt)
	if err != nil {
		return fmt.Errorf("failed to build reminder task: %w", err)
	}
	if _, err := q.client.Enqueue(task, opts...); err != nil {
		return fmt.Errorf("failed to enqueue reminder task: %w", err)
	}
	return nil
}
