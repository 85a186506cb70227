package model

import (
	"time"

	"github.com/google/uuid"
)

type RunID string

// NewRunID generates a new unique RunID
func NewRunID() RunID {
	return RunID(uuid.New().String())
}

// RunSnapshot is the frozen citation store of one assistant run. It is
// produced once, when the run ends, and is the only thing the resolver
// ever reads.
type RunSnapshot struct {
	RunID       RunID         `json:"run_id" firestore:"run_id"`
	CreatedAt   time.Time     `json:"created_at" firestore:"created_at"`
	Attachments []*Attachment `json:"attachments" firestore:"attachments"`
}
