// Package commands_test provides tests for CLI command creation and runs.
package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPlan = `{
  "version": 1,
  "tables": [
    {"name": ["hive", "shop", "users"], "fields": [
      {"name": "id", "type": "BIGINT"},
      {"name": "name", "type": "VARCHAR"}
    ]}
  ],
  "nodes": [
    {"id": "users", "kind": "scan", "table": ["hive", "shop", "users"]},
    {"id": "names", "kind": "project", "inputs": ["users"],
     "exprs": [{"input": 1}, {"call": "UPPER", "operands": [{"input": 1}]}],
     "fields": [{"name": "name"}, {"name": "upper_name"}]}
  ],
  "root": "names"
}`

func writeTestPlan(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plan.json")
	require.NoError(t, os.WriteFile(path, []byte(testPlan), 0o644))
	return path
}

func runCommand(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestNewLineageCommand(t *testing.T) {
	cmd := NewLineageCommand()

	assert.Equal(t, "lineage <plan-file>", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	assert.NotEmpty(t, cmd.Example, "Example should not be empty")

	for _, flag := range []string{"output", "node"} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestNewResolveCommand(t *testing.T) {
	cmd := NewResolveCommand()

	assert.Equal(t, "resolve <plan-file> <node-id> <column>", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
}

func TestNewValidateCommand(t *testing.T) {
	cmd := NewValidateCommand()

	assert.Equal(t, "validate <plan-file>", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
}

func TestLineageCommandJSON(t *testing.T) {
	out, err := runCommand(t, NewLineageCommand(), writeTestPlan(t), "--output", "json")
	require.NoError(t, err)

	var reports []columnReport
	require.NoError(t, json.Unmarshal([]byte(out), &reports))
	require.Len(t, reports, 2)

	assert.Equal(t, "name", reports[0].Column)
	assert.Equal(t, statusResolved, reports[0].Status)
	require.Len(t, reports[0].Origins, 1)
	assert.Equal(t, "hive.shop.users", reports[0].Origins[0].Table)
	assert.Equal(t, "name", reports[0].Origins[0].Field)
	assert.False(t, reports[0].Origins[0].Derived)

	assert.Equal(t, "upper_name", reports[1].Column)
	assert.Equal(t, statusResolved, reports[1].Status)
	require.Len(t, reports[1].Origins, 1)
	assert.True(t, reports[1].Origins[0].Derived)
}

func TestLineageCommandText(t *testing.T) {
	out, err := runCommand(t, NewLineageCommand(), writeTestPlan(t))
	require.NoError(t, err)

	assert.Contains(t, out, "COLUMN")
	assert.Contains(t, out, "upper_name")
	assert.Contains(t, out, "hive.shop.users.name")
}

func TestLineageCommandNodeFlag(t *testing.T) {
	out, err := runCommand(t, NewLineageCommand(), writeTestPlan(t), "--node", "users", "--output", "json")
	require.NoError(t, err)

	var reports []columnReport
	require.NoError(t, json.Unmarshal([]byte(out), &reports))
	require.Len(t, reports, 2)
	assert.Equal(t, "id", reports[0].Column)

	_, err = runCommand(t, NewLineageCommand(), writeTestPlan(t), "--node", "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no node "nope"`)
}

func TestLineageCommandMissingFile(t *testing.T) {
	_, err := runCommand(t, NewLineageCommand(), filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func TestResolveCommand(t *testing.T) {
	out, err := runCommand(t, NewResolveCommand(), writeTestPlan(t), "names", "1", "--output", "json")
	require.NoError(t, err)

	var report columnReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "upper_name", report.Column)
	assert.Equal(t, statusResolved, report.Status)

	_, err = runCommand(t, NewResolveCommand(), writeTestPlan(t), "names", "nine")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "column must be an index")
}

func TestValidateCommand(t *testing.T) {
	out, err := runCommand(t, NewValidateCommand(), writeTestPlan(t))
	require.NoError(t, err)
	assert.Contains(t, out, "plan ok: 2 nodes, depth 2, 0 shared subtrees")

	out, err = runCommand(t, NewValidateCommand(), writeTestPlan(t), "--output", "json")
	require.NoError(t, err)

	var stats map[string]int
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, map[string]int{"nodes": 2, "maxDepth": 2, "shared": 0}, stats)
}

func TestOutputFormat(t *testing.T) {
	got, err := outputFormat("")
	require.NoError(t, err)
	assert.Equal(t, "text", got, "empty flag falls back to the configured default")

	got, err = outputFormat("json")
	require.NoError(t, err)
	assert.Equal(t, "json", got)

	_, err = outputFormat("yaml")
	require.Error(t, err)
}
