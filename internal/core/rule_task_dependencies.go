package core

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"programhub/pkg/domain"
)

const taskDependencyRuleName = "task_dependencies"

// NewTaskDependencyRule rejects tasks that depend on themselves or that close
// a cycle in the dependency graph.
func NewTaskDependencyRule() domain.Rule {
	return taskDependencyRule{}
}

type taskDependencyRule struct{}

func (taskDependencyRule) Name() string { return taskDependencyRuleName }

func (taskDependencyRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	var graph map[string][]string
	for _, c := range changedEntities(changes) {
		task, ok := c.after.(Task)
		if !ok || len(task.DependencyIDs) == 0 {
			continue
		}
		if slices.Contains(task.DependencyIDs, task.ID) {
			res.Add(blocking(taskDependencyRuleName, domain.CodeDependency, "dependency_ids", task,
				"task cannot depend on itself"))
			continue
		}
		if graph == nil {
			graph = dependencyGraph(view.ListTasks())
		}
		if cycle := findCycle(task.ID, graph); len(cycle) > 0 {
			res.Add(blocking(taskDependencyRuleName, domain.CodeDependency, "dependency_ids", task,
				fmt.Sprintf("dependency cycle: %s", strings.Join(cycle, " -> "))))
		}
	}
	return res, nil
}

func dependencyGraph(tasks []Task) map[string][]string {
	graph := make(map[string][]string, len(tasks))
	for _, t := range tasks {
		deps := slices.Clone(t.DependencyIDs)
		slices.Sort(deps)
		graph[t.ID] = deps
	}
	return graph
}

// findCycle walks the graph depth first from start and returns the first
// cycle it meets, starting and ending on the same node. Self edges are
// reported separately and skipped here.
func findCycle(start string, graph map[string][]string) []string {
	const (
		white = iota
		gray
		black
	)
	color := make(map[string]int, len(graph))
	parent := make(map[string]string, len(graph))
	var cycle []string

	var dfs func(u string) bool
	dfs = func(u string) bool {
		color[u] = gray
		for _, v := range graph[u] {
			if v == u {
				continue
			}
			switch color[v] {
			case white:
				parent[v] = u
				if dfs(v) {
					return true
				}
			case gray:
				cycle = append(cycle, v)
				for cur := u; cur != v; cur = parent[cur] {
					cycle = append(cycle, cur)
				}
				cycle = append(cycle, v)
				slices.Reverse(cycle)
				return true
			}
		}
		color[u] = black
		return false
	}
	dfs(start)
	return cycle
}
