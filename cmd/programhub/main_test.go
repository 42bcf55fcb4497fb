package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"programhub/internal/core"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	flagJSON, flagIncludeAll = false, false
	flagUserRole, flagUserDepartment = "", ""
	err := rootCmd.Execute()
	return out.String(), err
}

func isolatedEnv(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("PROGRAMHUB_STORAGE_DRIVER", "sqlite")
	t.Setenv("PROGRAMHUB_STORAGE_SQLITE_PATH", filepath.Join(dir, "hub.db"))
	t.Setenv("PROGRAMHUB_BLOB_DRIVER", "memory")
	t.Setenv("PROGRAMHUB_LOG_LEVEL", "error")
	t.Setenv("PROGRAMHUB_AUTH_SECRET", "cli-secret")
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "programhub dev\n", out)
}

func TestUserAddListAndToken(t *testing.T) {
	isolatedEnv(t)

	out, err := run(t, "user", "add", "--name", "Ada Byron", "--email", "ADA@example.com", "--role", "admin")
	require.NoError(t, err, out)
	assert.Contains(t, out, "registered ada@example.com")

	_, err = run(t, "user", "add", "--name", "Ada Again", "--email", "ada@example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "email")

	out, err = run(t, "user", "list", "--json")
	require.NoError(t, err, out)
	var users []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &users))
	require.Len(t, users, 1)
	assert.Equal(t, "admin", users[0]["role"])

	out, err = run(t, "user", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Ada Byron")

	out, err = run(t, "user", "token", users[0]["id"].(string))
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(strings.TrimSpace(out), "."))
}

func TestInvalidConfigIsReported(t *testing.T) {
	isolatedEnv(t)
	t.Setenv("PROGRAMHUB_STORAGE_DRIVER", "etcd")
	_, err := run(t, "user", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage.driver")
}

func TestServeRequiresSecret(t *testing.T) {
	isolatedEnv(t)
	t.Setenv("PROGRAMHUB_AUTH_SECRET", "")
	_, err := run(t, "serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth.secret")
}

func TestPrintBudget(t *testing.T) {
	color.NoColor = true
	var out bytes.Buffer
	report := core.BudgetReport{
		GeneratedAt: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC),
		Projects: []core.BudgetLine{
			{Name: "Lander", Budget: 40000, Spent: 50000, Remaining: -10000, Utilization: 1.25, ScheduleProgress: 50, Health: core.BudgetOver},
		},
		Totals: core.BudgetTotals{Budget: 40000, Spent: 50000, Remaining: -10000, Utilization: 1.25, OverBudget: 1},
	}
	require.NoError(t, printBudget(&out, report))
	text := out.String()
	assert.Contains(t, text, "Programs\n  none")
	assert.Contains(t, text, "Lander")
	assert.Contains(t, text, "125%")
	assert.Contains(t, text, "over-budget")
	assert.Contains(t, text, "1 project(s) over budget")
}
