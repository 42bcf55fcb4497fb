package core

import (
	"context"
	"fmt"

	"programhub/internal/schema"
	"programhub/pkg/domain"
)

const referenceRuleName = "reference_integrity"

// NewReferenceIntegrityRule checks that every ID valued field resolves to a
// record of the expected kind. Users referenced for the first time by a
// write must also be active; references that were already present are
// tolerated after the user is deactivated.
func NewReferenceIntegrityRule() domain.Rule {
	return referenceIntegrityRule{}
}

type referenceIntegrityRule struct{}

func (referenceIntegrityRule) Name() string { return referenceRuleName }

func (referenceIntegrityRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, c := range changedEntities(changes) {
		for _, field := range schema.References(c.after.EntityType()) {
			previous := referenceSet(c.before, field.Name)
			for _, id := range referenceIDs(c.after, field.Name) {
				checkReference(&res, view, c.after, field.Name, field.Ref, id, previous[id])
			}
		}
		if creator := creatorOf(c.after); creator != "" && c.action == ActionCreate {
			checkReference(&res, view, c.after, "created_by", EntityUser, creator, false)
		}
		if task, ok := c.after.(Task); ok {
			known := 0
			if before, ok := c.before.(Task); ok {
				known = len(before.Comments)
			}
			for _, comment := range task.Comments[min(known, len(task.Comments)):] {
				checkReference(&res, view, task, "comments.user_id", EntityUser, comment.UserID, false)
			}
		}
	}
	return res, nil
}

func checkReference(res *domain.Result, view domain.RuleView, entity Entity, field string, kind EntityType, id string, existing bool) {
	if id == "" {
		return
	}
	target, ok := domain.Find(view, kind, id)
	if !ok {
		res.Add(blocking(referenceRuleName, domain.CodeReference, field, entity,
			fmt.Sprintf("references missing %s %q", kind, id)))
		return
	}
	if user, isUser := target.(User); isUser && !user.Active && !existing {
		res.Add(blocking(referenceRuleName, domain.CodeReference, field, entity,
			fmt.Sprintf("references inactive user %q", id)))
	}
}

func referenceIDs(entity Entity, field string) []string {
	if entity == nil {
		return nil
	}
	raw, ok := schema.Attribute(entity, field)
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case string:
		return []string{v}
	case []string:
		return v
	}
	return nil
}

func referenceSet(entity Entity, field string) map[string]bool {
	ids := referenceIDs(entity, field)
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func creatorOf(entity Entity) string {
	raw, _ := schema.Attribute(entity, "created_by")
	s, _ := raw.(string)
	return s
}
