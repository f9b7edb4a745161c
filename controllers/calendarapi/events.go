package calendarapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"akkani-backend/controllers/authentication"
	"akkani-backend/services"
)

// Controller serves the calendar-event and meeting-scheduling endpoints on
// top of the event orchestrator and the invitation mailer.
type Controller struct {
	Events *services.EventOrchestrator
	Mailer *services.NotificationDispatcher
}

type createEventRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	Attendees   []string  `json:"attendees"`
	Timezone    string    `json:"timezone"`
}

type scheduleMeetingRequest struct {
	createEventRequest
	OrganizerName string `json:"organizer_name"`
}

// CreateEvent creates a calendar event with a Meet link for the
// authenticated user.
func (c *Controller) CreateEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	claims, err := authentication.ValidateToken(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	req, ok := decodeEventRequest(w, r)
	if !ok {
		return
	}

	event, err := c.Events.CreateEvent(r.Context(), claims.UserID, services.EventRequest{
		Title:       req.Title,
		Description: req.Description,
		Start:       req.StartTime,
		End:         req.EndTime,
		Attendees:   req.Attendees,
		Timezone:    req.Timezone,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(event)
}

// ListEvents returns upcoming events. Query parameters: time_min (RFC3339),
// max_results, timezone.
func (c *Controller) ListEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	claims, err := authentication.ValidateToken(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	var timeMin time.Time
	if raw := r.URL.Query().Get("time_min"); raw != "" {
		timeMin, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			http.Error(w, "time_min must be RFC3339", http.StatusBadRequest)
			return
		}
	}

	maxResults := int64(10)
	if raw := r.URL.Query().Get("max_results"); raw != "" {
		maxResults, err = strconv.ParseInt(raw, 10, 64)
		if err != nil || maxResults <= 0 {
			http.Error(w, "max_results must be a positive integer", http.StatusBadRequest)
			return
		}
	}

	events, err := c.Events.ListEvents(r.Context(), claims.UserID, timeMin, maxResults, r.URL.Query().Get("timezone"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(events)
}

// DeleteEvent removes the remote event identified by the id query parameter.
func (c *Controller) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	claims, err := authentication.ValidateToken(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	eventID := r.URL.Query().Get("id")
	if eventID == "" {
		http.Error(w, "id query parameter required", http.StatusBadRequest)
		return
	}

	if err := c.Events.DeleteEvent(r.Context(), claims.UserID, eventID); err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "success",
		"message": "Event deleted successfully",
	})
}

// ScheduleMeeting creates the event and then emails each attendee an
// invitation. A mail failure is reported in the response but does not undo
// the created event.
func (c *Controller) ScheduleMeeting(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	claims, err := authentication.ValidateToken(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	var req scheduleMeetingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid input", http.StatusBadRequest)
		return
	}
	if !validateEventRequest(w, req.createEventRequest) {
		return
	}

	event, err := c.Events.CreateEvent(r.Context(), claims.UserID, services.EventRequest{
		Title:       req.Title,
		Description: req.Description,
		Start:       req.StartTime,
		End:         req.EndTime,
		Attendees:   req.Attendees,
		Timezone:    req.Timezone,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	invitationsSent := true
	err = c.Mailer.SendMeetingInvitation(req.Attendees, services.MeetingDetails{
		Title:         req.Title,
		Description:   req.Description,
		StartTime:     req.StartTime.Format("2006-01-02 15:04"),
		EndTime:       req.EndTime.Format("2006-01-02 15:04"),
		MeetLink:      event.MeetLink,
		OrganizerName: req.OrganizerName,
	})
	if err != nil {
		log.Printf("failed to send meeting invitations: %v", err)
		invitationsSent = false
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":           "success",
		"message":          "Meeting scheduled",
		"invitations_sent": invitationsSent,
		"meeting":          event,
	})
}

func decodeEventRequest(w http.ResponseWriter, r *http.Request) (createEventRequest, bool) {
	var req createEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid input", http.StatusBadRequest)
		return req, false
	}
	return req, validateEventRequest(w, req)
}

func validateEventRequest(w http.ResponseWriter, req createEventRequest) bool {
	if req.Title == "" {
		http.Error(w, "title is required", http.StatusBadRequest)
		return false
	}
	if req.StartTime.IsZero() || req.EndTime.IsZero() {
		http.Error(w, "start_time and end_time are required", http.StatusBadRequest)
		return false
	}
	if !req.EndTime.After(req.StartTime) {
		http.Error(w, "end_time must be after start_time", http.StatusBadRequest)
		return false
	}
	return true
}

func writeServiceError(w http.ResponseWriter, err error) {
	var remote *services.RemoteServiceError
	switch {
	case errors.Is(err, services.ErrAuthenticationRequired):
		http.Error(w, "Google Calendar is not connected for this user", http.StatusUnauthorized)
	case errors.Is(err, services.ErrEventNotFound):
		http.Error(w, "Event not found", http.StatusNotFound)
	case errors.As(err, &remote):
		status := remote.Status
		if status < http.StatusBadRequest {
			status = http.StatusBadGateway
		}
		http.Error(w, remote.Message, status)
	default:
		log.Printf("calendar endpoint error: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
