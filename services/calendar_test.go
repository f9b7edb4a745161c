package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"google.golang.org/api/option"
)

const createdEventBody = `{
	"id": "evt-123",
	"summary": "Standup",
	"description": "Daily sync",
	"status": "confirmed",
	"htmlLink": "https://calendar.google.com/event?eid=evt-123",
	"start": {"dateTime": "2024-01-01T09:00:00Z", "timeZone": "UTC"},
	"end": {"dateTime": "2024-01-01T09:30:00Z", "timeZone": "UTC"},
	"attendees": [{"email": "a@x.com"}, {"email": "b@x.com"}],
	"conferenceData": {
		"entryPoints": [
			{"entryPointType": "phone", "uri": "tel:+1-555-0100"},
			{"entryPointType": "video", "uri": "https://meet.google.com/abc-defg-hij"}
		]
	}
}`

// newCalendarFixture wires an orchestrator against a fake calendar endpoint
// for a user who already holds a valid credential.
func newCalendarFixture(t *testing.T, handler http.HandlerFunc) (*EventOrchestrator, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	store := NewTokenStore(newTestDB(t))
	// No refresh token: the broker hands the credential out as-is while
	// the expiry is in the future, so no token endpoint is needed.
	seedToken(t, store, 1, "https://oauth2.googleapis.com/token", "", time.Now().UTC().Add(time.Hour))

	broker := NewCredentialBroker(store)
	return NewEventOrchestrator(broker, option.WithEndpoint(srv.URL)), srv
}

func TestCreateEventExtractsMeetLink(t *testing.T) {
	var gotQuery string
	orch, _ := newCalendarFixture(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || !strings.HasSuffix(r.URL.Path, "/calendars/primary/events") {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, createdEventBody)
	})

	event, err := orch.CreateEvent(context.Background(), 1, EventRequest{
		Title:       "Standup",
		Description: "Daily sync",
		Start:       time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		End:         time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC),
		Attendees:   []string{"a@x.com", "b@x.com"},
	})
	if err != nil {
		t.Fatalf("create event failed: %v", err)
	}

	if event.ID == "" {
		t.Error("expected a non-empty remote identifier")
	}
	if event.MeetLink != "https://meet.google.com/abc-defg-hij" {
		t.Errorf("expected the first video entry point, got %q", event.MeetLink)
	}
	if len(event.Attendees) != 2 || event.Attendees[0] != "a@x.com" {
		t.Errorf("unexpected attendees %v", event.Attendees)
	}
	if !strings.Contains(gotQuery, "conferenceDataVersion=1") {
		t.Errorf("conference data generation was not requested: %q", gotQuery)
	}
	if !strings.Contains(gotQuery, "sendUpdates=all") {
		t.Errorf("expected sendUpdates=all: %q", gotQuery)
	}
}

func TestCreateEventWithoutConferenceLink(t *testing.T) {
	orch, _ := newCalendarFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id": "evt-9", "summary": "No meet", "status": "confirmed",
			"start": {"dateTime": "2024-01-01T09:00:00Z"}, "end": {"dateTime": "2024-01-01T09:30:00Z"}}`)
	})

	event, err := orch.CreateEvent(context.Background(), 1, EventRequest{
		Title: "No meet",
		Start: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("create event failed: %v", err)
	}
	if event.MeetLink != "" {
		t.Errorf("expected absent meet link, got %q", event.MeetLink)
	}
}

func TestCreateEventRemoteFailure(t *testing.T) {
	orch, _ := newCalendarFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error": {"code": 500, "message": "Backend Error"}}`)
	})

	_, err := orch.CreateEvent(context.Background(), 1, EventRequest{
		Title: "Doomed",
		Start: time.Now(),
		End:   time.Now().Add(time.Hour),
	})

	var remote *RemoteServiceError
	if !errors.As(err, &remote) {
		t.Fatalf("expected RemoteServiceError, got %v", err)
	}
	if remote.Status != http.StatusInternalServerError {
		t.Errorf("expected provider status 500, got %d", remote.Status)
	}
	if remote.Message != "Backend Error" {
		t.Errorf("expected provider message to survive, got %q", remote.Message)
	}
}

func TestCreateEventWithoutCredential(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no provider call expected without a credential")
	}))
	defer srv.Close()

	broker := NewCredentialBroker(NewTokenStore(newTestDB(t)))
	orch := NewEventOrchestrator(broker, option.WithEndpoint(srv.URL))

	_, err := orch.CreateEvent(context.Background(), 1, EventRequest{
		Title: "Nope",
		Start: time.Now(),
		End:   time.Now().Add(time.Hour),
	})
	if !errors.Is(err, ErrAuthenticationRequired) {
		t.Fatalf("expected ErrAuthenticationRequired, got %v", err)
	}
}

func TestListEvents(t *testing.T) {
	var gotQuery string
	orch, _ := newCalendarFixture(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("unexpected method %s", r.Method)
		}
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"items": [
			{"id": "evt-1", "summary": "First", "status": "confirmed",
			 "start": {"dateTime": "2024-01-01T09:00:00Z"}, "end": {"dateTime": "2024-01-01T10:00:00Z"}},
			{"id": "evt-2", "summary": "Second", "status": "confirmed",
			 "start": {"date": "2024-01-02"}, "end": {"date": "2024-01-03"}}
		]}`)
	})

	events, err := orch.ListEvents(context.Background(), 1, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 5, "UTC")
	if err != nil {
		t.Fatalf("list events failed: %v", err)
	}

	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].ID != "evt-1" || events[1].ID != "evt-2" {
		t.Errorf("unexpected event order: %q, %q", events[0].ID, events[1].ID)
	}
	// All-day events fall back to their date fields.
	if events[1].Start != "2024-01-02" {
		t.Errorf("expected all-day start date, got %q", events[1].Start)
	}

	for _, want := range []string{"singleEvents=true", "orderBy=startTime", "maxResults=5"} {
		if !strings.Contains(gotQuery, want) {
			t.Errorf("query missing %s: %q", want, gotQuery)
		}
	}
}

func TestDeleteEvent(t *testing.T) {
	orch, _ := newCalendarFixture(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || !strings.HasSuffix(r.URL.Path, "/calendars/primary/events/evt-1") {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusNoContent)
	})

	if err := orch.DeleteEvent(context.Background(), 1, "evt-1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
}

func TestDeleteEventNotFound(t *testing.T) {
	orch, _ := newCalendarFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error": {"code": 404, "message": "Not Found"}}`)
	})

	err := orch.DeleteEvent(context.Background(), 1, "gone")
	if !errors.Is(err, ErrEventNotFound) {
		t.Fatalf("expected ErrEventNotFound, got %v", err)
	}
}
