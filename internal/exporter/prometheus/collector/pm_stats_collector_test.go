// SPDX-FileCopyrightText: 2025 The Ferrite Authors
// SPDX-License-Identifier: Apache-2.0

package collector

import (
	"log/slog"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ferrite-os/ferrite/internal/pm"
	"github.com/ferrite-os/ferrite/internal/pm/state"
)

// fakeStats serves canned rows to the collector.
type fakeStats struct {
	enabled bool
	cpus    int
	rows    []pm.Row
}

func (f *fakeStats) Rows() []pm.Row { return f.rows }
func (f *fakeStats) CPUs() int      { return f.cpus }
func (f *fakeStats) Enabled() bool  { return f.enabled }

func allRows(cpus int) []pm.Row {
	var rows []pm.Row
	for cpu := 0; cpu < cpus; cpu++ {
		for st := 0; st < state.Count; st++ {
			rows = append(rows, pm.Row{CPU: cpu, State: state.State(st)})
		}
	}
	return rows
}

func TestPMStatsCollectorExposesAllRecords(t *testing.T) {
	stats := &fakeStats{enabled: true, cpus: 2, rows: allRows(2)}
	c := NewPMStatsCollector(stats, slog.Default())

	// Three counters per (cpu, state) record.
	assert.Equal(t, 2*state.Count*3, testutil.CollectAndCount(c))
}

func TestPMStatsCollectorValues(t *testing.T) {
	stats := &fakeStats{enabled: true, cpus: 1, rows: []pm.Row{
		{CPU: 0, State: state.RuntimeIdle, Count: 3, LastCycles: 250, TotalCycles: 700},
	}}
	c := NewPMStatsCollector(stats, slog.Default())

	expected := `
# HELP pm_cpu_000_state_1_stats_state_count Number of times the CPU entered the state
# TYPE pm_cpu_000_state_1_stats_state_count counter
pm_cpu_000_state_1_stats_state_count 3
# HELP pm_cpu_000_state_1_stats_state_last_cycles Residency of the most recent visit to the state in cycles
# TYPE pm_cpu_000_state_1_stats_state_last_cycles gauge
pm_cpu_000_state_1_stats_state_last_cycles 250
# HELP pm_cpu_000_state_1_stats_state_total_cycles Cumulative residency in the state in cycles
# TYPE pm_cpu_000_state_1_stats_state_total_cycles counter
pm_cpu_000_state_1_stats_state_total_cycles 700
`
	err := testutil.CollectAndCompare(c, strings.NewReader(expected),
		"pm_cpu_000_state_1_stats_state_count",
		"pm_cpu_000_state_1_stats_state_last_cycles",
		"pm_cpu_000_state_1_stats_state_total_cycles",
	)
	require.NoError(t, err)
}

func TestPMStatsCollectorDisabled(t *testing.T) {
	stats := &fakeStats{enabled: false, cpus: 1, rows: allRows(1)}
	c := NewPMStatsCollector(stats, slog.Default())

	assert.Zero(t, testutil.CollectAndCount(c))
}

func TestBuildInfoCollector(t *testing.T) {
	c := NewBuildInfoCollector()
	assert.Equal(t, 1, testutil.CollectAndCount(c, "ferrite_build_info"))
}
