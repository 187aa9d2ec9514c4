package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"example.com/urgency/internal/domain"
)

// EventTypeSessionCompleted marks a training session marked complete by the
// session service.
const EventTypeSessionCompleted = "session.completed"

// ActivityWriter stores ingested activity records.
type ActivityWriter interface {
	InsertActivity(ctx context.Context, record domain.ActivityRecord) error
}

// SessionCompleted is the payload of a session.completed event.
type SessionCompleted struct {
	SessionID   string    `json:"session_id"`
	TenantID    string    `json:"tenant_id"`
	AthleteID   string    `json:"athlete_id"`
	SessionType string    `json:"session_type"`
	StartedAt   time.Time `json:"started_at"`
	DurationMin int       `json:"duration_min"`
	Completed   bool      `json:"completed"`
}

// SessionHandler writes completed sessions into the activity log so the
// recency check can see them.
type SessionHandler struct {
	writer ActivityWriter
}

// NewSessionHandler constructs a handler backed by the provided writer.
func NewSessionHandler(writer ActivityWriter) *SessionHandler {
	return &SessionHandler{writer: writer}
}

// Handle stores completed sessions. Other event types and incomplete
// sessions are acknowledged without writing anything.
func (h *SessionHandler) Handle(ctx context.Context, msg Message) error {
	if msg.EventType != EventTypeSessionCompleted {
		return nil
	}

	var event SessionCompleted
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return fmt.Errorf("decode session.completed payload: %w", err)
	}
	if !event.Completed {
		return nil
	}
	if event.AthleteID == "" || event.StartedAt.IsZero() {
		return fmt.Errorf("session.completed missing athlete_id or started_at (session=%s)", event.SessionID)
	}

	id := event.SessionID
	if id == "" {
		id = uuid.NewString()
	}

	tenantID := event.TenantID
	if tenantID == "" {
		tenantID = msg.TenantID
	}

	return h.writer.InsertActivity(ctx, domain.ActivityRecord{
		ID:          id,
		TenantID:    tenantID,
		AthleteID:   event.AthleteID,
		SessionType: event.SessionType,
		StartedAt:   event.StartedAt.UTC(),
		DurationMin: event.DurationMin,
		Completed:   true,
		CreatedAt:   time.Now().UTC(),
	})
}
