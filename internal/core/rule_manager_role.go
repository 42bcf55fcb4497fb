package core

import (
	"context"
	"fmt"

	"programhub/pkg/domain"
)

const managerRoleRuleName = "manager_role"

// NewManagerRoleRule requires program and project managers to hold the admin
// or manager role. Missing users are left to the reference rule.
func NewManagerRoleRule() domain.Rule {
	return managerRoleRule{}
}

type managerRoleRule struct{}

func (managerRoleRule) Name() string { return managerRoleRuleName }

func (managerRoleRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, c := range changedEntities(changes) {
		var managerID string
		switch e := c.after.(type) {
		case Program:
			managerID = e.ManagerID
		case Project:
			managerID = e.ManagerID
		default:
			continue
		}
		manager, ok := view.FindUser(managerID)
		if !ok || manager.Role.CanManage() {
			continue
		}
		res.Add(blocking(managerRoleRuleName, domain.CodeRole, "manager_id", c.after,
			fmt.Sprintf("manager %q has role %s, want admin or manager", managerID, manager.Role)))
	}
	return res, nil
}
