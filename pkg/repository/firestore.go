package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/Gradient-DS/soev.ai-sub000/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/iterator"
)

const (
	historyCollection  = "histories"
	snapshotCollection = "citation_snapshots"
)

// firestoreRepo implements Repository interface using Firestore
type firestoreRepo struct {
	client *firestore.Client
}

// New creates a new Firestore repository
func New(ctx context.Context, projectID, databaseID string) (Repository, error) {
	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("project", projectID), goerr.V("database", databaseID))
	}

	return &firestoreRepo{client: client}, nil
}

func (r *firestoreRepo) PutHistory(ctx context.Context, history *model.History) error {
	if history.ID == "" {
		history.ID = model.NewHistoryID()
	}
	if history.CreatedAt.IsZero() {
		history.CreatedAt = time.Now()
	}
	history.UpdatedAt = time.Now()

	_, err := r.client.Collection(historyCollection).Doc(string(history.ID)).Set(ctx, history)
	if err != nil {
		return goerr.Wrap(err, "failed to save history", goerr.V("history_id", history.ID))
	}
	return nil
}

func (r *firestoreRepo) GetHistory(ctx context.Context, id model.HistoryID) (*model.History, error) {
	doc, err := r.client.Collection(historyCollection).Doc(string(id)).Get(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get history", goerr.V("history_id", id))
	}

	var history model.History
	if err := doc.DataTo(&history); err != nil {
		return nil, goerr.Wrap(err, "failed to decode history", goerr.V("history_id", id))
	}
	return &history, nil
}

func (r *firestoreRepo) ListHistory(ctx context.Context, offset, limit int) ([]*model.History, error) {
	query := r.client.Collection(historyCollection).
		OrderBy("CreatedAt", firestore.Desc).
		Offset(offset).
		Limit(limit)

	iter := query.Documents(ctx)
	defer iter.Stop()

	var histories []*model.History
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate histories")
		}

		var history model.History
		if err := doc.DataTo(&history); err != nil {
			return nil, goerr.Wrap(err, "failed to decode history", goerr.V("doc", doc.Ref.ID))
		}
		histories = append(histories, &history)
	}

	return histories, nil
}

func (r *firestoreRepo) PutSnapshot(ctx context.Context, snapshot *model.RunSnapshot) error {
	_, err := r.client.Collection(snapshotCollection).Doc(string(snapshot.RunID)).Set(ctx, snapshot)
	if err != nil {
		return goerr.Wrap(err, "failed to save snapshot", goerr.V("run_id", snapshot.RunID))
	}
	return nil
}

func (r *firestoreRepo) GetSnapshot(ctx context.Context, id model.RunID) (*model.RunSnapshot, error) {
	doc, err := r.client.Collection(snapshotCollection).Doc(string(id)).Get(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get snapshot", goerr.V("run_id", id))
	}

	var snapshot model.RunSnapshot
	if err := doc.DataTo(&snapshot); err != nil {
		return nil, goerr.Wrap(err, "failed to decode snapshot", goerr.V("run_id", id))
	}
	return &snapshot, nil
}
