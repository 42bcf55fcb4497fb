package core

import (
	"context"
	"fmt"
	"strings"

	"programhub/pkg/domain"
)

const uniqueEmailRuleName = "unique_email"

// NewUniqueEmailRule rejects user writes whose email is already held by
// another account, active or not.
func NewUniqueEmailRule() domain.Rule {
	return uniqueEmailRule{}
}

type uniqueEmailRule struct{}

func (uniqueEmailRule) Name() string { return uniqueEmailRuleName }

func (uniqueEmailRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	var owners map[string][]string
	for _, c := range changedEntities(changes) {
		user, ok := c.after.(User)
		if !ok {
			continue
		}
		if owners == nil {
			owners = make(map[string][]string)
			for _, u := range view.ListUsers() {
				key := strings.ToLower(u.Email)
				owners[key] = append(owners[key], u.ID)
			}
		}
		for _, id := range owners[strings.ToLower(user.Email)] {
			if id == user.ID {
				continue
			}
			res.Add(blocking(uniqueEmailRuleName, domain.CodeDuplicate, "email", user,
				fmt.Sprintf("email %q is already registered", user.Email)))
			break
		}
	}
	return res, nil
}
