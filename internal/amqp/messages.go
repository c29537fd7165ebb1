package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event kinds published on the domain event stream.
const (
	KindStreakMilestone     = "streak-milestone"
	KindAchievementUnlocked = "achievement-unlocked"
	KindEnvelopeReset       = "envelope-reset"
	KindGoalCompleted       = "goal-completed"
	KindNudgeDigest         = "nudge-digest"
)

// Event is a domain event. Subject identifies what the event is about:
// a milestone day count, an achievement ID, an envelope ID.
type Event struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	UserID     string    `json:"user_id"`
	Subject    string    `json:"subject"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewEvent creates an event with a fresh UUID and the current timestamp.
func NewEvent(kind, userID, subject string) *Event {
	return &Event{
		ID:         uuid.NewString(),
		Kind:       kind,
		UserID:     userID,
		Subject:    subject,
		OccurredAt: time.Now(),
	}
}

// ToJSON converts the event to JSON bytes
func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// EventFromJSON creates an event from JSON bytes
func EventFromJSON(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
