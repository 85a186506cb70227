package model

import (
	"time"

	"github.com/google/uuid"
	"google.golang.org/genai"
)

type HistoryID string

// NewHistoryID generates a new unique HistoryID
func NewHistoryID() HistoryID {
	return HistoryID(uuid.New().String())
}

// History represents one persisted assistant conversation together with
// the citation attachments of its final answer.
type History struct {
	ID        HistoryID
	Title     string
	RunID     RunID
	CreatedAt time.Time
	UpdatedAt time.Time

	Attachments []*Attachment

	// Do not save raw contents due to size limitation of firestore
	Contents []*genai.Content `firestore:"-"`
}
