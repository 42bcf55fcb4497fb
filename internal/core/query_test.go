package core

import (
	"context"
	"testing"

	"programhub/internal/schema"
	"programhub/pkg/domain"
)

func createRisk(t *testing.T, f fixture, title, probability, impact string) Entity {
	t.Helper()
	e, _, err := f.svc.CreateEntity(context.Background(), f.member, EntityRisk, schema.Payload{
		"title":       title,
		"description": "d",
		"category":    "technical",
		"probability": probability,
		"impact":      impact,
		"owner_id":    f.member.ID,
		"mitigation":  "m",
		"due_date":    "2024-07-01",
	})
	if err != nil {
		t.Fatalf("create risk %s: %v", title, err)
	}
	return e
}

func titles(records []Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.Entity.(Risk).Title)
	}
	return out
}

func TestListSortsByRiskScore(t *testing.T) {
	f := newFixture(t)
	createRisk(t, f, "medium", "medium", "medium")
	createRisk(t, f, "low", "low", "low")
	createRisk(t, f, "high", "high", "high")

	got, err := f.svc.ListEntities(context.Background(), f.member, EntityRisk, ListQuery{Sort: "-risk_score"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"high", "medium", "low"}
	for i, title := range titles(got) {
		if title != want[i] {
			t.Fatalf("order = %v, want %v", titles(got), want)
		}
	}
}

func TestListFiltersByAttribute(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	r := createRisk(t, f, "one", "low", "high")
	createRisk(t, f, "two", "high", "high")
	if _, _, err := f.svc.UpdateEntity(ctx, f.member, EntityRisk, r.EntityID(), schema.Payload{"status": "closed"}); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := f.svc.ListEntities(ctx, f.member, EntityRisk, ListQuery{Filters: map[string]string{"status": "closed"}})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].Entity.EntityID() != r.EntityID() {
		t.Fatalf("unexpected filter result %v", titles(got))
	}

	got, err = f.svc.ListEntities(ctx, f.member, EntityRisk, ListQuery{Filters: map[string]string{"project_id": ""}})
	if err != nil || len(got) != 2 {
		t.Fatalf("expected unlinked risks to match empty project filter, got %d (%v)", len(got), err)
	}
}

func TestListFiltersTasksByProjectAndTag(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p1 := f.createProject(t, "")
	p2 := f.createProject(t, "")
	f.createTask(t, p1.ID)
	payload := taskPayload(p2.ID, f.member.ID, f.member.ID)
	payload["tags"] = "wiring, urgent"
	if _, _, err := f.svc.CreateEntity(ctx, f.member, EntityTask, payload); err != nil {
		t.Fatalf("create task: %v", err)
	}

	byProject, err := f.svc.ListEntities(ctx, f.member, EntityTask, ListQuery{Filters: map[string]string{"project_id": p1.ID}})
	if err != nil || len(byProject) != 1 {
		t.Fatalf("expected one task for project, got %d (%v)", len(byProject), err)
	}
	byTag, err := f.svc.ListEntities(ctx, f.member, EntityTask, ListQuery{Filters: map[string]string{"tags": "urgent"}})
	if err != nil || len(byTag) != 1 || byTag[0].Entity.(Task).ProjectID != p2.ID {
		t.Fatalf("expected tagged task, got %d (%v)", len(byTag), err)
	}
}

func TestListRejectsUnknownFilterAndSort(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.svc.ListEntities(ctx, f.member, EntityTask, ListQuery{Filters: map[string]string{"salary": "1"}})
	requireKind(t, err, domain.KindValidation)
	if violationCodes(err)["filter"] != domain.CodeUnknownPath {
		t.Fatalf("unexpected violations %v", violationCodes(err))
	}
	_, err = f.svc.ListEntities(ctx, f.member, EntityTask, ListQuery{Sort: "risk_score"})
	requireKind(t, err, domain.KindValidation)
	_, err = f.svc.ListEntities(ctx, f.member, EntityTask, ListQuery{Filters: map[string]string{"comments": "x"}})
	requireKind(t, err, domain.KindValidation)
}

func TestListDefaultsToNewestFirst(t *testing.T) {
	f := newFixture(t)
	users, err := f.svc.ListEntities(context.Background(), f.admin, EntityUser, ListQuery{Sort: "name"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if users[0].Entity.(User).Name != "Ada" || users[2].Entity.(User).Name != "Bea" {
		t.Fatalf("unexpected name order")
	}
	key, desc, err := parseSort(EntityTask, "")
	if err != nil || key != "created_at" || !desc {
		t.Fatalf("default sort = %s desc=%v (%v)", key, desc, err)
	}
}

func TestExpandAcceptsIDFieldNames(t *testing.T) {
	names, err := resolveExpansions(EntityTask, []string{"assignee_id", "assignee", " comments "})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(names) != 2 || names[0] != "assignee" || names[1] != "comments.user" {
		t.Fatalf("unexpected names %v", names)
	}
}

func TestProgramExpansionListsProjectsAndRisks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	program := f.createProgram(t)
	f.createProject(t, program.ID)
	f.createProject(t, "")

	rec, err := f.svc.GetEntity(ctx, f.member, EntityProgram, program.ID, []string{"projects", "risks"})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	projects := rec.Expanded["projects"].([]ProjectSummary)
	if len(projects) != 1 || projects[0].Status != domain.ProjectNotStarted {
		t.Fatalf("unexpected projects %+v", projects)
	}
	if risks := rec.Expanded["risks"].([]RiskSummary); len(risks) != 0 {
		t.Fatalf("expected no risks, got %+v", risks)
	}
}
