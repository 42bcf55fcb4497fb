package core

import (
	"context"
	"time"

	"programhub/internal/schema"
	"programhub/pkg/domain"
)

const dateOrderRuleName = schema.DateOrderRule

// NewDateOrderRule requires program and project end dates, and task due
// dates, to fall strictly after their start dates.
func NewDateOrderRule() domain.Rule {
	return dateOrderRule{}
}

type dateOrderRule struct{}

func (dateOrderRule) Name() string { return dateOrderRuleName }

func (dateOrderRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, c := range changedEntities(changes) {
		switch e := c.after.(type) {
		case Program:
			checkDateOrder(&res, e, "end_date", e.StartDate, e.EndDate, "end date must be after start date")
		case Project:
			checkDateOrder(&res, e, "end_date", e.StartDate, e.EndDate, "end date must be after start date")
		case Task:
			checkDateOrder(&res, e, "due_date", e.StartDate, e.DueDate, "due date must be after start date")
		}
	}
	return res, nil
}

func checkDateOrder(res *domain.Result, entity Entity, field string, start, end time.Time, message string) {
	if end.After(start) {
		return
	}
	res.Add(blocking(dateOrderRuleName, domain.CodeDateOrder, field, entity, message))
}
