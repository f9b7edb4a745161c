package services

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// CalendarEvent is the transient view of a remote calendar event. Events are
// owned by Google; nothing here is persisted locally.
type CalendarEvent struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Start       string   `json:"start"`
	End         string   `json:"end"`
	Attendees   []string `json:"attendees"`
	MeetLink    string   `json:"meet_link,omitempty"`
	Status      string   `json:"status"`
	HTMLLink    string   `json:"html_link"`
}

// EventRequest describes an event to create on the user's primary calendar.
type EventRequest struct {
	Title       string
	Description string
	Start       time.Time
	End         time.Time
	Attendees   []string
	Timezone    string
}

// EventOrchestrator drives create/list/delete calls against the user's
// primary Google calendar using credentials from the broker. A Meet link is
// requested once at creation time; if Google does not attach one, the event
// is returned without it and no retry is made.
type EventOrchestrator struct {
	broker *CredentialBroker
	opts   []option.ClientOption
}

// NewEventOrchestrator builds an orchestrator. Extra client options are
// appended to every calendar service, which lets tests point it at a fake
// endpoint.
func NewEventOrchestrator(broker *CredentialBroker, opts ...option.ClientOption) *EventOrchestrator {
	return &EventOrchestrator{broker: broker, opts: opts}
}

func (o *EventOrchestrator) service(ctx context.Context, userID uint) (*calendar.Service, error) {
	cred, err := o.broker.GetValidCredential(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cred == nil {
		return nil, ErrAuthenticationRequired
	}

	// The broker already validated expiry, so a static source is enough;
	// it must not trigger a second refresh behind the broker's back.
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cred.AccessToken})
	opts := append([]option.ClientOption{option.WithTokenSource(src)}, o.opts...)
	return calendar.NewService(ctx, opts...)
}

// CreateEvent inserts an event with conference-data generation and returns
// the provider's view of it.
func (o *EventOrchestrator) CreateEvent(ctx context.Context, userID uint, req EventRequest) (*CalendarEvent, error) {
	svc, err := o.service(ctx, userID)
	if err != nil {
		return nil, err
	}

	timezone := req.Timezone
	if timezone == "" {
		timezone = "UTC"
	}

	attendees := make([]*calendar.EventAttendee, 0, len(req.Attendees))
	for _, email := range req.Attendees {
		attendees = append(attendees, &calendar.EventAttendee{Email: email})
	}

	event := &calendar.Event{
		Summary:     req.Title,
		Description: req.Description,
		Start: &calendar.EventDateTime{
			DateTime: req.Start.Format(time.RFC3339),
			TimeZone: timezone,
		},
		End: &calendar.EventDateTime{
			DateTime: req.End.Format(time.RFC3339),
			TimeZone: timezone,
		},
		Attendees: attendees,
		ConferenceData: &calendar.ConferenceData{
			CreateRequest: &calendar.CreateConferenceRequest{
				RequestId:             uuid.NewString(),
				ConferenceSolutionKey: &calendar.ConferenceSolutionKey{Type: "hangoutsMeet"},
			},
		},
	}

	created, err := svc.Events.Insert("primary", event).
		ConferenceDataVersion(1).
		SendUpdates("all").
		Context(ctx).
		Do()
	if err != nil {
		return nil, mapGoogleError(err)
	}
	return fromGoogleEvent(created), nil
}

// ListEvents returns upcoming single-instance events ordered by start time.
// timeMin defaults to now; maxResults defaults to 10. The result is one
// finite page, no cursor is exposed.
func (o *EventOrchestrator) ListEvents(ctx context.Context, userID uint, timeMin time.Time, maxResults int64, timezone string) ([]*CalendarEvent, error) {
	svc, err := o.service(ctx, userID)
	if err != nil {
		return nil, err
	}

	if timeMin.IsZero() {
		timeMin = time.Now().UTC()
	}
	if maxResults <= 0 {
		maxResults = 10
	}

	call := svc.Events.List("primary").
		TimeMin(timeMin.Format(time.RFC3339)).
		MaxResults(maxResults).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx)
	if timezone != "" {
		call = call.TimeZone(timezone)
	}

	result, err := call.Do()
	if err != nil {
		return nil, mapGoogleError(err)
	}

	events := make([]*CalendarEvent, 0, len(result.Items))
	for _, item := range result.Items {
		events = append(events, fromGoogleEvent(item))
	}
	return events, nil
}

// DeleteEvent removes the remote event. Deleting an already-deleted event
// surfaces as ErrEventNotFound, not a crash.
func (o *EventOrchestrator) DeleteEvent(ctx context.Context, userID uint, eventID string) error {
	svc, err := o.service(ctx, userID)
	if err != nil {
		return err
	}

	if err := svc.Events.Delete("primary", eventID).SendUpdates("all").Context(ctx).Do(); err != nil {
		return mapGoogleError(err)
	}
	return nil
}

func fromGoogleEvent(event *calendar.Event) *CalendarEvent {
	out := &CalendarEvent{
		ID:          event.Id,
		Title:       event.Summary,
		Description: event.Description,
		Status:      event.Status,
		HTMLLink:    event.HtmlLink,
		MeetLink:    meetLink(event),
	}
	if event.Start != nil {
		out.Start = event.Start.DateTime
		if out.Start == "" {
			out.Start = event.Start.Date
		}
	}
	if event.End != nil {
		out.End = event.End.DateTime
		if out.End == "" {
			out.End = event.End.Date
		}
	}
	for _, attendee := range event.Attendees {
		out.Attendees = append(out.Attendees, attendee.Email)
	}
	return out
}

// meetLink extracts the conferencing URI from the first video-type entry
// point, falling back to the hangout link Google also sets for Meet events.
func meetLink(event *calendar.Event) string {
	if event.ConferenceData != nil {
		for _, entry := range event.ConferenceData.EntryPoints {
			if entry.EntryPointType == "video" {
				return entry.Uri
			}
		}
	}
	return event.HangoutLink
}

func mapGoogleError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusGone {
			return ErrEventNotFound
		}
		return &RemoteServiceError{Status: apiErr.Code, Message: apiErr.Message}
	}
	return &RemoteServiceError{Status: http.StatusBadGateway, Message: err.Error()}
}
