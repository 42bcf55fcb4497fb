package domain

import (
	"testing"
	"time"
)

func TestRiskScore(t *testing.T) {
	cases := []struct {
		probability, impact Level
		want                int
	}{
		{LevelLow, LevelLow, 1},
		{LevelHigh, LevelHigh, 9},
		{LevelMedium, LevelHigh, 6},
		{LevelHigh, LevelMedium, 6},
		{LevelLow, LevelHigh, 3},
		{Level("extreme"), LevelHigh, 0},
	}
	for _, tc := range cases {
		if got := RiskScore(tc.probability, tc.impact); got != tc.want {
			t.Fatalf("RiskScore(%s,%s) = %d, want %d", tc.probability, tc.impact, got, tc.want)
		}
	}
	risk := Risk{Probability: LevelMedium, Impact: LevelMedium}
	if risk.Score() != 4 {
		t.Fatalf("expected risk score 4, got %d", risk.Score())
	}
}

func TestBudgetUtilization(t *testing.T) {
	if got := BudgetUtilization(500, 0); got != 0 {
		t.Fatalf("expected 0 utilization for zero budget, got %v", got)
	}
	if got := BudgetUtilization(250, 1000); got != 0.25 {
		t.Fatalf("expected 0.25, got %v", got)
	}
	if got := BudgetUtilization(1500, 1000); got != 1.5 {
		t.Fatalf("expected overspend to exceed 1, got %v", got)
	}
}

func TestScheduleProgress(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(100 * time.Hour)
	if got := ScheduleProgress(start, end, start.Add(-time.Hour)); got != 0 {
		t.Fatalf("expected 0 before start, got %v", got)
	}
	if got := ScheduleProgress(start, end, start.Add(25*time.Hour)); got != 25 {
		t.Fatalf("expected 25, got %v", got)
	}
	if got := ScheduleProgress(start, end, end.Add(time.Hour)); got != 100 {
		t.Fatalf("expected 100 after end, got %v", got)
	}
	if got := ScheduleProgress(end, start, start); got != 0 {
		t.Fatalf("expected 0 for inverted window, got %v", got)
	}
}

func TestParseEntityType(t *testing.T) {
	for _, raw := range []string{"task", "tasks"} {
		kind, ok := ParseEntityType(raw)
		if !ok || kind != EntityTask {
			t.Fatalf("expected task for %q, got %q", raw, kind)
		}
	}
	if _, ok := ParseEntityType("organisms"); ok {
		t.Fatalf("expected unknown kind to fail")
	}
}

func TestRoleCanManage(t *testing.T) {
	if !RoleAdmin.CanManage() || !RoleManager.CanManage() {
		t.Fatalf("expected admin and manager to manage")
	}
	if RoleMember.CanManage() {
		t.Fatalf("member must not manage")
	}
	if Role("owner").Valid() {
		t.Fatalf("unexpected valid role")
	}
}
