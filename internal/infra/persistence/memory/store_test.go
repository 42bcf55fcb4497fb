package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"programhub/pkg/domain"
)

func countTasks(t *testing.T, store *Store) int {
	t.Helper()
	var n int
	if err := store.View(context.Background(), func(v TransactionView) error {
		n = len(v.ListTasks())
		return nil
	}); err != nil {
		t.Fatalf("view: %v", err)
	}
	return n
}

func TestStoreRunInTransactionAndSnapshots(t *testing.T) {
	fixed := time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)
	store := NewStore(nil, WithClock(func() time.Time { return fixed }))
	ctx := context.Background()
	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if _, ok := tx.Snapshot().FindTask("missing"); ok {
			t.Fatalf("expected missing task lookup")
		}
		created, err := tx.CreateTask(domain.Task{Title: "Draft", DependencyIDs: []string{"a", "a", "b"}})
		if err != nil {
			return err
		}
		if created.ID == "" {
			t.Fatalf("expected generated ID")
		}
		if created.Revision != 1 || !created.CreatedAt.Equal(fixed) {
			t.Fatalf("unexpected stamp %+v", created.Base)
		}
		if len(created.DependencyIDs) != 2 {
			t.Fatalf("expected deduped dependencies, got %v", created.DependencyIDs)
		}
		if len(tx.Snapshot().ListTasks()) != 1 {
			t.Fatalf("snapshot mismatch")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("run transaction: %v", err)
	}
	if countTasks(t, store) != 1 {
		t.Fatalf("expected persisted task")
	}
	snapshot := store.ExportState()
	store.ImportState(Snapshot{})
	if countTasks(t, store) != 0 {
		t.Fatalf("expected cleared state")
	}
	store.ImportState(snapshot)
	if countTasks(t, store) != 1 {
		t.Fatalf("expected restored state")
	}
	if store.RulesEngine() == nil || store.NowFunc() == nil {
		t.Fatalf("expected engine and clock")
	}
}

type blockingRule struct{}

func (blockingRule) Name() string { return "blocking" }

func (blockingRule) Evaluate(context.Context, domain.RuleView, []domain.Change) (domain.Result, error) {
	return domain.Result{Violations: []domain.Violation{{Rule: "blocking", Severity: domain.SeverityBlock, Message: "no"}}}, nil
}

func TestStoreRuleViolationDiscardsWrites(t *testing.T) {
	store := NewStore(domain.NewRulesEngine())
	store.RulesEngine().Register(blockingRule{})
	res, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, e := tx.CreateTask(domain.Task{Title: "Fail"})
		return e
	})
	var violation domain.RuleViolationError
	if !errors.As(err, &violation) {
		t.Fatalf("expected rule violation, got %v", err)
	}
	if !res.HasBlocking() {
		t.Fatalf("expected blocking result")
	}
	if countTasks(t, store) != 0 {
		t.Fatalf("expected no partial write")
	}
}

func TestStoreCallbackErrorDiscardsWrites(t *testing.T) {
	store := NewStore(nil)
	boom := errors.New("boom")
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if _, err := tx.CreateTask(domain.Task{Title: "one"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected callback error, got %v", err)
	}
	if countTasks(t, store) != 0 {
		t.Fatalf("expected rollback")
	}
}

func TestStoreUpdateBumpsRevisionAndKeepsIdentity(t *testing.T) {
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewStore(nil, WithClock(func() time.Time { return clock }))
	ctx := context.Background()
	var created domain.Program
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		var err error
		created, err = tx.CreateProgram(domain.Program{Name: "Orbit"})
		return err
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	clock = clock.Add(time.Hour)
	var updated domain.Program
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		var err error
		updated, err = tx.UpdateProgram(created.ID, func(p *domain.Program) error {
			p.Name = "Orbit II"
			p.ID = "hijack"
			p.Revision = 99
			return nil
		})
		return err
	}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.ID != created.ID || updated.Revision != 2 {
		t.Fatalf("unexpected identity after update %+v", updated.Base)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) || !updated.UpdatedAt.Equal(clock) {
		t.Fatalf("unexpected timestamps %+v", updated.Base)
	}
}

func TestStoreUpdateMissingReturnsNotFound(t *testing.T) {
	store := NewStore(nil)
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.UpdateRisk("missing", func(*domain.Risk) error { return nil })
		return err
	})
	var nf domain.NotFoundError
	if !errors.As(err, &nf) || nf.Entity != domain.EntityRisk {
		t.Fatalf("expected risk NotFoundError, got %v", err)
	}
}

func TestStoreDeleteGuards(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	var program domain.Program
	var project domain.Project
	var first, second domain.Task
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		var err error
		if program, err = tx.CreateProgram(domain.Program{Name: "P"}); err != nil {
			return err
		}
		programID := program.ID
		if project, err = tx.CreateProject(domain.Project{Name: "X", ProgramID: &programID}); err != nil {
			return err
		}
		if first, err = tx.CreateTask(domain.Task{Title: "first", ProjectID: project.ID}); err != nil {
			return err
		}
		second, err = tx.CreateTask(domain.Task{Title: "second", ProjectID: project.ID, DependencyIDs: []string{first.ID}})
		return err
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	attempts := []struct {
		name string
		fn   func(domain.Transaction) error
	}{
		{"program with projects", func(tx domain.Transaction) error { return tx.DeleteProgram(program.ID) }},
		{"project with tasks", func(tx domain.Transaction) error { return tx.DeleteProject(project.ID) }},
		{"task with dependents", func(tx domain.Transaction) error { return tx.DeleteTask(first.ID) }},
	}
	for _, attempt := range attempts {
		_, err := store.RunInTransaction(ctx, attempt.fn)
		var conflict domain.ConflictError
		if !errors.As(err, &conflict) {
			t.Fatalf("%s: expected ConflictError, got %v", attempt.name, err)
		}
	}

	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if err := tx.DeleteTask(second.ID); err != nil {
			return err
		}
		if err := tx.DeleteTask(first.ID); err != nil {
			return err
		}
		if err := tx.DeleteProject(project.ID); err != nil {
			return err
		}
		return tx.DeleteProgram(program.ID)
	}); err != nil {
		t.Fatalf("ordered delete: %v", err)
	}
}

func TestMigrateSnapshotNormalizesRecords(t *testing.T) {
	empty := ""
	snapshot := Snapshot{
		Projects: map[string]Project{"p1": {Base: domain.Base{ID: "stale"}, TeamIDs: []string{"u", "u"}, ProgramID: &empty}},
		Tasks:    map[string]Task{"t1": {DependencyIDs: []string{"x", "x"}}},
	}
	migrated := migrateSnapshot(snapshot)
	project := migrated.Projects["p1"]
	if project.ID != "p1" || project.Revision != 1 || len(project.TeamIDs) != 1 || project.ProgramID != nil {
		t.Fatalf("unexpected migrated project %+v", project)
	}
	if len(migrated.Tasks["t1"].DependencyIDs) != 1 {
		t.Fatalf("expected deduped dependencies")
	}
	if migrated.Users == nil || migrated.Documents == nil {
		t.Fatalf("expected empty buckets to be initialised")
	}
}

func TestSnapshotBucketRoundTrip(t *testing.T) {
	snapshot := Snapshot{Users: map[string]User{"u1": {Base: domain.Base{ID: "u1"}, Name: "Ada", Active: true}}}
	payload, err := snapshot.MarshalBucket("users")
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var restored Snapshot
	if err := restored.UnmarshalBucket("users", payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if restored.Users["u1"].Name != "Ada" {
		t.Fatalf("unexpected users %+v", restored.Users)
	}
	if _, err := snapshot.MarshalBucket("organisms"); err == nil {
		t.Fatalf("expected unknown bucket error")
	}
	if err := restored.UnmarshalBucket("organisms", []byte("{}")); err != nil {
		t.Fatalf("expected unknown bucket to be ignored: %v", err)
	}
	if err := restored.UnmarshalBucket("users", []byte("{")); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestCommitFuncGatesVisibility(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil)
	create := func(tx Transaction) error {
		_, err := tx.CreateTask(domain.Task{Title: "Wire"})
		return err
	}

	diskFull := errors.New("disk full")
	if _, err := store.RunInTransactionWithCommit(ctx, create, func(context.Context, Snapshot) error {
		return diskFull
	}); !errors.Is(err, diskFull) {
		t.Fatalf("expected commit error, got %v", err)
	}
	if n := countTasks(t, store); n != 0 {
		t.Fatalf("failed commit must not be visible, got %d tasks", n)
	}

	var seen int
	if _, err := store.RunInTransactionWithCommit(ctx, create, func(_ context.Context, next Snapshot) error {
		seen = len(next.Tasks)
		return nil
	}); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if seen != 1 || countTasks(t, store) != 1 {
		t.Fatalf("expected committed snapshot with one task, saw %d", seen)
	}
}
