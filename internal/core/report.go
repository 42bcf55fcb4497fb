package core

import (
	"context"
	"time"

	"programhub/internal/access"
	"programhub/pkg/domain"
)

// BudgetHealth summarises where a budget line stands.
type BudgetHealth string

// Budget health states.
const (
	BudgetNotStarted BudgetHealth = "not-started"
	BudgetOnTrack    BudgetHealth = "on-track"
	BudgetOver       BudgetHealth = "over-budget"
	BudgetCompleted  BudgetHealth = "completed"
)

// BudgetLine reports one program or project.
type BudgetLine struct {
	ID               string            `json:"id"`
	Kind             domain.EntityType `json:"kind"`
	Name             string            `json:"name"`
	Status           string            `json:"status"`
	ProgramID        string            `json:"program_id,omitempty"`
	Budget           float64           `json:"budget"`
	Spent            float64           `json:"spent"`
	Remaining        float64           `json:"remaining"`
	Utilization      float64           `json:"utilization"`
	ScheduleProgress float64           `json:"schedule_progress"`
	Health           BudgetHealth      `json:"health"`
}

// BudgetTotals aggregates project lines. Program budgets are envelopes over
// their projects and are left out of the totals.
type BudgetTotals struct {
	Budget      float64 `json:"budget"`
	Spent       float64 `json:"spent"`
	Remaining   float64 `json:"remaining"`
	Utilization float64 `json:"utilization"`
	OverBudget  int     `json:"over_budget"`
}

// BudgetReport is the budget overview across programs and projects.
type BudgetReport struct {
	GeneratedAt time.Time    `json:"generated_at"`
	Programs    []BudgetLine `json:"programs"`
	Projects    []BudgetLine `json:"projects"`
	Totals      BudgetTotals `json:"totals"`
}

// BudgetReport computes budget utilization and schedule progress at the
// service clock's current time.
func (s *Service) BudgetReport(ctx context.Context, principal Principal) (BudgetReport, error) {
	var report BudgetReport
	op := operation{name: "budget_report", kind: EntityProject, actor: principal.ID}
	err := s.run(ctx, op, func(ctx context.Context) (string, error) {
		if err := s.policy.Authorize(principal, access.OpRead, EntityProject, ""); err != nil {
			return "", err
		}
		now := s.now()
		err := s.store.View(ctx, func(view TransactionView) error {
			report = buildBudgetReport(view, now)
			return nil
		})
		return "", translateError(EntityProject, "budget report", err)
	})
	return report, err
}

func buildBudgetReport(view TransactionView, now time.Time) BudgetReport {
	report := BudgetReport{GeneratedAt: now, Programs: []BudgetLine{}, Projects: []BudgetLine{}}
	for _, p := range view.ListPrograms() {
		line := budgetLine(p.ID, EntityProgram, p.Name, string(p.Status), p.Budget, p.Spent, p.StartDate, p.EndDate, now)
		if p.Status == domain.ProgramCompleted {
			line.Health = BudgetCompleted
		}
		report.Programs = append(report.Programs, line)
	}
	for _, p := range view.ListProjects() {
		line := budgetLine(p.ID, EntityProject, p.Name, string(p.Status), p.Budget, p.Spent, p.StartDate, p.EndDate, now)
		if p.ProgramID != nil {
			line.ProgramID = *p.ProgramID
		}
		switch {
		case p.Status == domain.ProjectCompleted:
			line.Health = BudgetCompleted
		case p.Status == domain.ProjectNotStarted && line.Health != BudgetOver:
			line.Health = BudgetNotStarted
		}
		report.Projects = append(report.Projects, line)
		report.Totals.Budget += p.Budget
		report.Totals.Spent += p.Spent
		if line.Health == BudgetOver {
			report.Totals.OverBudget++
		}
	}
	report.Totals.Remaining = report.Totals.Budget - report.Totals.Spent
	report.Totals.Utilization = domain.BudgetUtilization(report.Totals.Spent, report.Totals.Budget)
	return report
}

func budgetLine(id string, kind EntityType, name, status string, budget, spent float64, start, end, now time.Time) BudgetLine {
	line := BudgetLine{
		ID:               id,
		Kind:             kind,
		Name:             name,
		Status:           status,
		Budget:           budget,
		Spent:            spent,
		Remaining:        budget - spent,
		Utilization:      domain.BudgetUtilization(spent, budget),
		ScheduleProgress: domain.ScheduleProgress(start, end, now),
	}
	switch {
	case spent > budget:
		line.Health = BudgetOver
	case now.Before(start) && spent == 0:
		line.Health = BudgetNotStarted
	default:
		line.Health = BudgetOnTrack
	}
	return line
}
