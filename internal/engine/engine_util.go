package engine

import (
	"errors"
	"time"

	"github.com/DoyleJ11/pkwy-game-suite/internal/content"
)

const DefaultVenue = "PKWY Tavern"

// Meta is what a host supplies when creating a session.
type Meta struct {
	ID     string
	Code   string
	Name   string
	Host   string
	Venue  string
	Format content.Format
}

func NewState(m Meta, rules Rules, now time.Time) State {
	if m.Venue == "" {
		m.Venue = DefaultVenue
	}
	return State{
		ID:        m.ID,
		Code:      m.Code,
		Name:      m.Name,
		Host:      m.Host,
		Venue:     m.Venue,
		Format:    m.Format,
		Status:    StatusWaiting,
		Display:   DisplayLobby,
		Scored:    map[AnswerKey]bool{},
		Visited:   map[int]bool{},
		Question:  newInFlight(),
		Rules:     rules,
		CreatedAt: now,
	}
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}

// EventsOf filters events down to one type, preserving order.
func EventsOf(events []Event, eventType EventType) []Event {
	var out []Event
	for _, e := range events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

// ErrorCode is the short machine-readable name clients receive for err.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrStaleSubmission):
		return "stale"
	case errors.Is(err, ErrDuplicateSubmission):
		return "duplicate"
	case errors.Is(err, ErrPlayerEliminated):
		return "eliminated"
	case errors.Is(err, ErrPlayerNotFound):
		return "player_not_found"
	case errors.Is(err, ErrQuestionNotFound):
		return "question_not_found"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrInvalidName), errors.Is(err, ErrNameTaken):
		return "invalid_name"
	case errors.Is(err, content.ErrMalformedContent):
		return "malformed_content"
	case errors.Is(err, ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, ErrUnsupportedCommand):
		return "unsupported"
	default:
		return "internal"
	}
}

// Rejected reports whether err is an answer the engine declined without
// fault: a stale or duplicate submission.
func Rejected(err error) bool {
	return errors.Is(err, ErrStaleSubmission) || errors.Is(err, ErrDuplicateSubmission)
}
