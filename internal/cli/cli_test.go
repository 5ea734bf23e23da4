package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/everforgeworks/fabline/internal/sim"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Chdir(t.TempDir()) // no fabline.yaml, no levels.yaml: built-in catalog

	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func TestLevelsCommand(t *testing.T) {
	out, err := run(t, "levels")

	require.NoError(t, err)
	assert.Contains(t, out, "Basic Forecasting & Production")
	assert.Contains(t, out, "fab>atp")
	assert.Contains(t, out, "End-to-End Strategy")
}

func TestSimulateCommand(t *testing.T) {
	out, err := run(t, "simulate", "--level", "2", "--units", "1300", "--overtime", "fab,atp", "--seed", "7")

	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 7)
	assert.Equal(t, "Level 2: Capacity & Lead Times", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "turn 1 "))
	assert.True(t, strings.HasPrefix(lines[6], "result: "))
}

func TestSimulateCommand_Rejects(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "negative units", args: []string{"simulate", "--units", "-1"}},
		{name: "words", args: []string{"simulate", "--units", "many"}},
		{name: "missing units", args: []string{"simulate"}},
		{name: "unplayable level", args: []string{"simulate", "--level", "4", "--units", "10"}},
		{name: "unknown level", args: []string{"simulate", "--level", "9", "--units", "10"}},
		{name: "overtime on uncapped stage", args: []string{"simulate", "--level", "1", "--units", "10", "--overtime", "fab"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestSimulateCommand_ListsOvertimeStages(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "unknown stage", args: []string{"simulate", "--level", "2", "--units", "10", "--overtime", "etch"}, want: "offers: fab, atp"},
		{name: "no overtime on level", args: []string{"simulate", "--level", "1", "--units", "10", "--overtime", "fab"}, want: "offers: none"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			require.ErrorIs(t, err, sim.ErrInvalidInput)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSimulateCommand_CatalogFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
levels:
  - id: 1
    title: Tiny
    simulation:
      total_turns: 1
      base_yield: 100
      price_per_unit: 10
      wafer_cost: 1
      fixed_cost: 1
      inventory_cost: 1
      win_profit_threshold: 1
      min_otd: 0
      demand: {initial: 10, growth_rate: 1}
      stages: [{name: fab}]
`), 0o644))

	out, err := run(t, "--levels", path, "simulate", "--units", "10", "--seed", "1")

	require.NoError(t, err)
	assert.Contains(t, out, "Level 1: Tiny")
	assert.Contains(t, out, "result: WON")
}
