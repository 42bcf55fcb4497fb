package mongo

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"programhub/internal/infra/persistence/memory"
	"programhub/pkg/domain"
)

type fakeCollection struct {
	docs     []any
	findErr  error
	writeErr error
	written  []mongo.WriteModel
}

func (f *fakeCollection) Find(context.Context, any, ...*options.FindOptions) (*mongo.Cursor, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return mongo.NewCursorFromDocuments(f.docs, nil, nil)
}

func (f *fakeCollection) BulkWrite(_ context.Context, models []mongo.WriteModel, _ ...*options.BulkWriteOptions) (*mongo.BulkWriteResult, error) {
	if f.writeErr != nil {
		return nil, f.writeErr
	}
	f.written = append(f.written, models...)
	return &mongo.BulkWriteResult{UpsertedCount: int64(len(models))}, nil
}

func TestNewStoreLoadsBucketDocuments(t *testing.T) {
	payload, err := json.Marshal(map[string]domain.Task{"t1": {Base: domain.Base{ID: "t1", Revision: 4}, Title: "Ship"}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	coll := &fakeCollection{docs: []any{bucketDocument{Bucket: "tasks", Payload: payload}}}
	store, err := NewStore(context.Background(), coll, nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := store.View(context.Background(), func(v domain.TransactionView) error {
		task, ok := v.FindTask("t1")
		if !ok || task.Title != "Ship" || task.Revision != 4 {
			t.Fatalf("unexpected task %+v (ok=%v)", task, ok)
		}
		return nil
	}); err != nil {
		t.Fatalf("view: %v", err)
	}
}

func TestRunInTransactionUpsertsEveryBucket(t *testing.T) {
	coll := &fakeCollection{}
	store, err := NewStore(context.Background(), coll, nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if _, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.CreateUser(domain.User{Name: "Noor", Active: true})
		return err
	}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(coll.written) != len(memory.Buckets) {
		t.Fatalf("expected %d upserts, got %d", len(memory.Buckets), len(coll.written))
	}
	if err := store.Close(context.Background()); err != nil {
		t.Fatalf("close without client: %v", err)
	}
}

func TestRunInTransactionReportsWriteFailure(t *testing.T) {
	boom := errors.New("not primary")
	coll := &fakeCollection{writeErr: boom}
	store, err := NewStore(context.Background(), coll, nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	_, err = store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.CreateProgram(domain.Program{Name: "Delta"})
		return err
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected write failure, got %v", err)
	}
	if err := store.View(context.Background(), func(v domain.TransactionView) error {
		if programs := v.ListPrograms(); len(programs) != 0 {
			t.Fatalf("unpersisted program must not be visible, got %d", len(programs))
		}
		return nil
	}); err != nil {
		t.Fatalf("view: %v", err)
	}
}

func TestNewStoreFindFailure(t *testing.T) {
	coll := &fakeCollection{findErr: errors.New("auth failed")}
	if _, err := NewStore(context.Background(), coll, nil); err == nil {
		t.Fatalf("expected find failure")
	}
}
