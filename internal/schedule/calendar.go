package schedule

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// ErrNoMeetLink is returned when the created event carries no Meet link.
var ErrNoMeetLink = errors.New("calendar event has no meet link")

// Interview describes the meeting to book for an eligible candidate.
type Interview struct {
	Candidate string
	Role      string
	Company   string
}

// Options controls when and where interviews are booked.
type Options struct {
	CalendarID string
	Lead       time.Duration
	Length     time.Duration
	TimeZone   string
}

// CalendarScheduler books interviews on Google Calendar with a Meet conference.
type CalendarScheduler struct {
	service *calendar.Service
	opts    Options
	now     func() time.Time
}

// NewCalendarScheduler creates a scheduler backed by the Calendar API.
func NewCalendarScheduler(ctx context.Context, client *http.Client, opts Options, clientOpts ...option.ClientOption) (*CalendarScheduler, error) {
	clientOpts = append([]option.ClientOption{option.WithHTTPClient(client)}, clientOpts...)
	srv, err := calendar.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create Calendar client: %w", err)
	}

	if opts.CalendarID == "" {
		opts.CalendarID = "primary"
	}
	if opts.Length <= 0 {
		opts.Length = 30 * time.Minute
	}
	if opts.TimeZone == "" {
		opts.TimeZone = "UTC"
	}

	return &CalendarScheduler{service: srv, opts: opts, now: time.Now}, nil
}

// Schedule inserts the interview event and returns its Meet link.
func (s *CalendarScheduler) Schedule(ctx context.Context, iv Interview) (string, error) {
	loc, err := time.LoadLocation(s.opts.TimeZone)
	if err != nil {
		return "", fmt.Errorf("invalid interview timezone %q: %w", s.opts.TimeZone, err)
	}

	start := StartTime(s.now().In(loc), s.opts.Lead)
	end := start.Add(s.opts.Length)

	event := &calendar.Event{
		Summary:     fmt.Sprintf("Interview: %s | %s", iv.Role, iv.Company),
		Description: fmt.Sprintf("Interview for the %s position at %s.", iv.Role, iv.Company),
		Start:       &calendar.EventDateTime{DateTime: start.Format(time.RFC3339), TimeZone: s.opts.TimeZone},
		End:         &calendar.EventDateTime{DateTime: end.Format(time.RFC3339), TimeZone: s.opts.TimeZone},
		ConferenceData: &calendar.ConferenceData{
			CreateRequest: &calendar.CreateConferenceRequest{
				RequestId:             uuid.NewString(),
				ConferenceSolutionKey: &calendar.ConferenceSolutionKey{Type: "hangoutsMeet"},
			},
		},
	}
	if iv.Candidate != "" {
		event.Attendees = []*calendar.EventAttendee{{Email: iv.Candidate}}
	}

	created, err := s.service.Events.Insert(s.opts.CalendarID, event).
		ConferenceDataVersion(1).
		SendUpdates("none").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("unable to create interview event: %w", err)
	}

	if created.HangoutLink == "" {
		return "", ErrNoMeetLink
	}
	return created.HangoutLink, nil
}

// StartTime is now plus lead, moved up to the next full hour.
func StartTime(now time.Time, lead time.Duration) time.Time {
	t := now.Add(lead)
	if truncated := t.Truncate(time.Hour); !truncated.Equal(t) {
		return truncated.Add(time.Hour)
	}
	return t
}
