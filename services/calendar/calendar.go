// Package calendar adapts Google Calendar into the two capabilities the
// conversation engine consumes: an availability query and event creation.
package calendar

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/Achutaiscool/Twenty44-WA-bot/config"
)

// Bookable day window, hours in facility local time.
const (
	dayOpenHour  = 6
	dayCloseHour = 22
)

// GoogleCalendarService queries and writes the facility calendar.
type GoogleCalendarService struct {
	svc        *calendar.Service
	calendarID string
	loc        *time.Location
	timeout    time.Duration
}

// NewGoogleCalendarService builds the service from AppConfig credentials.
func NewGoogleCalendarService() (*GoogleCalendarService, error) {
	ctx := context.Background()
	svc, err := calendar.NewService(ctx,
		option.WithCredentialsFile(config.AppConfig.GoogleCredentialsFile),
		option.WithScopes(calendar.CalendarScope),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	loc, err := time.LoadLocation(config.AppConfig.CalendarTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid calendar timezone: %w", err)
	}
	return &GoogleCalendarService{
		svc:        svc,
		calendarID: config.AppConfig.CalendarID,
		loc:        loc,
		timeout:    time.Duration(config.AppConfig.CalendarQueryTimeoutSec) * time.Second,
	}, nil
}

// GetAvailableSlots returns the open one-hour interval labels for a date.
// The fixed facility day (06:00-22:00) is intersected against the
// calendar's busy blocks via a freebusy query.
func (g *GoogleCalendarService) GetAvailableSlots(date string) ([]string, error) {
	day, err := time.ParseInLocation("2006-01-02", date, g.loc)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", date, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
	defer cancel()

	dayOpen := day.Add(dayOpenHour * time.Hour)
	dayClose := day.Add(dayCloseHour * time.Hour)
	fb, err := g.svc.Freebusy.Query(&calendar.FreeBusyRequest{
		TimeMin: dayOpen.Format(time.RFC3339),
		TimeMax: dayClose.Format(time.RFC3339),
		Items:   []*calendar.FreeBusyRequestItem{{Id: g.calendarID}},
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("freebusy query failed for %s: %w", date, err)
	}

	var busy []*calendar.TimePeriod
	if cal, ok := fb.Calendars[g.calendarID]; ok {
		busy = cal.Busy
	}

	var slots []string
	for h := dayOpenHour; h < dayCloseHour; h++ {
		slotStart := day.Add(time.Duration(h) * time.Hour)
		slotEnd := slotStart.Add(time.Hour)
		if overlapsBusy(slotStart, slotEnd, busy) {
			continue
		}
		slots = append(slots, fmt.Sprintf("%02d:00 - %02d:00", h, h+1))
	}
	return slots, nil
}

// CreateEvent books the interval on the calendar and returns the event id.
func (g *GoogleCalendarService) CreateEvent(date, slot, summary, description string) (string, error) {
	start, end, err := slotTimes(date, slot, g.loc)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
	defer cancel()

	event := &calendar.Event{
		Summary:     summary,
		Description: description,
		Start: &calendar.EventDateTime{
			DateTime: start.Format(time.RFC3339),
			TimeZone: g.loc.String(),
		},
		End: &calendar.EventDateTime{
			DateTime: end.Format(time.RFC3339),
			TimeZone: g.loc.String(),
		},
	}
	created, err := g.svc.Events.Insert(g.calendarID, event).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("event insert failed for %s %s: %w", date, slot, err)
	}
	return created.Id, nil
}

func overlapsBusy(start, end time.Time, busy []*calendar.TimePeriod) bool {
	for _, period := range busy {
		bStart, err1 := time.Parse(time.RFC3339, period.Start)
		bEnd, err2 := time.Parse(time.RFC3339, period.End)
		if err1 != nil || err2 != nil {
			continue
		}
		if start.Before(bEnd) && bStart.Before(end) {
			return true
		}
	}
	return false
}

// slotTimes resolves a "HH:MM - HH:MM" label on a date into concrete times.
func slotTimes(date, slot string, loc *time.Location) (time.Time, time.Time, error) {
	var sh, sm, eh, em int
	if _, err := fmt.Sscanf(slot, "%d:%d - %d:%d", &sh, &sm, &eh, &em); err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("unparseable slot label %q: %w", slot, err)
	}
	day, err := time.ParseInLocation("2006-01-02", date, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid date %q: %w", date, err)
	}
	start := day.Add(time.Duration(sh)*time.Hour + time.Duration(sm)*time.Minute)
	end := day.Add(time.Duration(eh)*time.Hour + time.Duration(em)*time.Minute)
	return start, end, nil
}
