// SPDX-FileCopyrightText: 2025 The Ferrite Authors
// SPDX-License-Identifier: Apache-2.0

package pm

import (
	"fmt"
	"sync/atomic"

	"github.com/ferrite-os/ferrite/internal/pm/state"
)

// cpuTiming holds the cycle samples bracketing one sleep window.
type cpuTiming struct {
	start uint32
	end   uint32
}

// stateStats are the residency counters for one (cpu, state) pair.
// Counters are 32-bit like the cycle source; the exporter reads them
// concurrently with idle-path updates, hence the atomics.
type stateStats struct {
	count atomic.Uint32
	last  atomic.Uint32
	total atomic.Uint32
}

// Stats records per-CPU, per-state residency in hardware cycles: how
// often each state was entered, the last residency and the cumulative
// residency. Residency deltas use modular 32-bit subtraction; wrap is
// tolerated because single residencies are far below 2^32 cycles on
// targeted hardware.
type Stats struct {
	enabled bool
	cycles  CycleCounter
	timings []cpuTiming
	states  [][]stateStats
}

func newStats(enabled bool, cpus int, cycles CycleCounter) *Stats {
	s := &Stats{
		enabled: enabled,
		cycles:  cycles,
		timings: make([]cpuTiming, cpus),
		states:  make([][]stateStats, cpus),
	}
	for cpu := range s.states {
		s.states[cpu] = make([]stateStats, state.Count)
	}
	return s
}

// Enabled reports whether recording is active.
func (s *Stats) Enabled() bool {
	return s.enabled
}

// CPUs returns the number of CPUs tracked.
func (s *Stats) CPUs() int {
	return len(s.timings)
}

// startTimer samples the cycle counter just before the SoC hook.
func (s *Stats) startTimer(cpu int) {
	if !s.enabled {
		return
	}
	s.timings[cpu].start = s.cycles.Cycles()
}

// stopTimer samples the cycle counter after return from the SoC hook.
func (s *Stats) stopTimer(cpu int) {
	if !s.enabled {
		return
	}
	s.timings[cpu].end = s.cycles.Cycles()
}

// update folds the last timed window into the counters for st.
func (s *Stats) update(cpu int, st state.State) {
	if !s.enabled {
		return
	}
	delta := s.timings[cpu].end - s.timings[cpu].start

	row := &s.states[cpu][st]
	row.count.Add(1)
	row.last.Store(delta)
	row.total.Add(delta)
}

// Row is one statistics record as exposed on the metrics surface.
type Row struct {
	CPU   int
	State state.State

	Count       uint32
	LastCycles  uint32
	TotalCycles uint32
}

// Name returns the record name, e.g. "pm_cpu_000_state_1_stats".
func (r Row) Name() string {
	return RowName(r.CPU, r.State)
}

// RowName formats the record name for a (cpu, state) pair.
func RowName(cpu int, st state.State) string {
	return fmt.Sprintf("pm_cpu_%03d_state_%1d_stats", cpu, int(st))
}

// Rows returns a snapshot of every (cpu, state) record. The snapshot is
// consistent per counter, not across counters; good enough for a
// monitoring surface.
func (s *Stats) Rows() []Row {
	rows := make([]Row, 0, len(s.states)*state.Count)
	for cpu := range s.states {
		for st := range s.states[cpu] {
			row := &s.states[cpu][st]
			rows = append(rows, Row{
				CPU:         cpu,
				State:       state.State(st),
				Count:       row.count.Load(),
				LastCycles:  row.last.Load(),
				TotalCycles: row.total.Load(),
			})
		}
	}
	return rows
}
