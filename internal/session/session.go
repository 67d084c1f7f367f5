// Package session keeps per-conversation state: history, accumulated trip
// info and the clarification field awaiting an answer.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/dharmasatrya/flightassist/internal/models"
)

const DefaultHistoryLimit = 40

var ErrNotFound = errors.New("session not found")

type Session struct {
	ID                  string           `json:"session_id"`
	History             []models.Message `json:"history"`
	TripInfo            *models.TripInfo `json:"trip_info"`
	PendingClarifyField string           `json:"pending_clarify_field,omitempty"`
	CreatedAt           time.Time        `json:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at"`
}

// Store is the session table. Implementations must be safe for concurrent
// use and must hand out copies, never shared state.
type Store interface {
	Create(ctx context.Context) (*Session, error)
	Get(ctx context.Context, id string) (*Session, error)
	Put(ctx context.Context, s *Session) error
	Close() error
}

// New returns an empty session. An empty id gets a fresh UUID.
func New(id string, now time.Time) *Session {
	if id == "" {
		id = uuid.NewString()
	}
	return &Session{
		ID:        id,
		History:   []models.Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.History = append([]models.Message{}, s.History...)
	c.TripInfo = s.TripInfo.Clone()
	return &c
}

// Append adds messages and drops the oldest beyond limit. A limit of zero or
// less keeps everything.
func (s *Session) Append(limit int, msgs ...models.Message) {
	s.History = append(s.History, msgs...)
	s.trim(limit)
}

// Recent returns at most n of the latest messages.
func (s *Session) Recent(n int) []models.Message {
	if n <= 0 || len(s.History) <= n {
		return append([]models.Message{}, s.History...)
	}
	return append([]models.Message{}, s.History[len(s.History)-n:]...)
}

func (s *Session) trim(limit int) {
	if limit > 0 && len(s.History) > limit {
		s.History = append([]models.Message{}, s.History[len(s.History)-limit:]...)
	}
}
