package repository

import (
	"context"

	"github.com/Gradient-DS/soev.ai-sub000/pkg/model"
)

// Repository defines the interface for conversation and citation
// snapshot persistence
type Repository interface {
	// PutHistory saves a conversation history with its citation attachments
	PutHistory(ctx context.Context, history *model.History) error

	// GetHistory retrieves a conversation history by ID
	GetHistory(ctx context.Context, id model.HistoryID) (*model.History, error)

	// ListHistory retrieves conversation histories, newest first
	ListHistory(ctx context.Context, offset, limit int) ([]*model.History, error)

	// PutSnapshot saves a frozen run snapshot
	PutSnapshot(ctx context.Context, snapshot *model.RunSnapshot) error

	// GetSnapshot retrieves a run snapshot by run ID
	GetSnapshot(ctx context.Context, id model.RunID) (*model.RunSnapshot, error)
}
