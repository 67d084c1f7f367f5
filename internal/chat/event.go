package chat

import (
	"encoding/json"

	"github.com/dharmasatrya/flightassist/internal/mock"
	"github.com/dharmasatrya/flightassist/internal/models"
)

type EventType string

const (
	EventProgress EventType = "progress"
	EventFinal    EventType = "final"
	EventError    EventType = "error"
)

const (
	StatusUnderstanding     = "UNDERSTANDING"
	StatusUnderstandingDone = "UNDERSTANDING_DONE"
	StatusSearching         = "SEARCHING"
	StatusMocking           = "MOCKING"
)

const (
	ResponseClarify = "clarify"
	ResponseResult  = "result"
)

// Event is one line of the turn stream. Final events embed the turn result;
// their top-level message is the result's message.
type Event struct {
	Type    EventType `json:"type"`
	Status  string    `json:"status,omitempty"`
	Message string    `json:"message"`
	*TurnResult
}

type TurnResult struct {
	SessionID    string                `json:"session_id"`
	ResponseType string                `json:"response_type"`
	Message      string                `json:"message"`
	TripInfo     *models.TripInfo      `json:"trip_info"`
	Clarify      *models.Clarification `json:"clarify"`
	Flights      []models.FlightOffer  `json:"flights"`
	IsMocked     bool                  `json:"is_mocked"`
	DebugInfo    *DebugInfo            `json:"debug_info"`
}

// DebugInfo is attached whenever live search came back empty.
type DebugInfo struct {
	MockRequest    *mock.Envelope  `json:"mock_request"`
	SearchResponse json.RawMessage `json:"search_response"`
	SearchError    string          `json:"search_error,omitempty"`
	MockError      string          `json:"mock_error,omitempty"`
}

func progress(status, message string) Event {
	return Event{Type: EventProgress, Status: status, Message: message}
}

func final(res *TurnResult) Event {
	return Event{Type: EventFinal, Message: res.Message, TurnResult: res}
}

func failure(message string) Event {
	return Event{Type: EventError, Message: message}
}
