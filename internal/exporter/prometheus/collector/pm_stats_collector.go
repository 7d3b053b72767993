// SPDX-FileCopyrightText: 2025 The Ferrite Authors
// SPDX-License-Identifier: Apache-2.0

// Package collector implements the prometheus collectors for the PM
// statistics surface.
package collector

import (
	"log/slog"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/ferrite-os/ferrite/internal/pm"
	"github.com/ferrite-os/ferrite/internal/pm/state"
)

// StatsProvider is the slice of the PM engine the collector reads.
type StatsProvider interface {
	Rows() []pm.Row
	CPUs() int
	Enabled() bool
}

// rowDescs holds the three counter descriptors of one stats record.
type rowDescs struct {
	count *prom.Desc
	last  *prom.Desc
	total *prom.Desc
}

// PMStatsCollector exposes every pm_cpu_<NNN>_state_<N>_stats record as
// three metrics: the counters _state_count and _state_total_cycles and
// the gauge _state_last_cycles.
type PMStatsCollector struct {
	logger *slog.Logger
	stats  StatsProvider
	descs  map[string]rowDescs
}

var _ prom.Collector = (*PMStatsCollector)(nil)

// NewPMStatsCollector creates a collector over the engine's residency
// statistics. The record set is fixed at construction: one record per
// (cpu, state) pair.
func NewPMStatsCollector(stats StatsProvider, logger *slog.Logger) *PMStatsCollector {
	c := &PMStatsCollector{
		logger: logger.With("collector", "pm-stats"),
		stats:  stats,
		descs:  make(map[string]rowDescs),
	}

	for cpu := 0; cpu < stats.CPUs(); cpu++ {
		for st := 0; st < state.Count; st++ {
			name := pm.RowName(cpu, state.State(st))
			c.descs[name] = rowDescs{
				count: prom.NewDesc(name+"_state_count",
					"Number of times the CPU entered the state", nil, nil),
				last: prom.NewDesc(name+"_state_last_cycles",
					"Residency of the most recent visit to the state in cycles", nil, nil),
				total: prom.NewDesc(name+"_state_total_cycles",
					"Cumulative residency in the state in cycles", nil, nil),
			}
		}
	}

	return c
}

// Describe implements the prometheus.Collector interface
func (c *PMStatsCollector) Describe(ch chan<- *prom.Desc) {
	for _, d := range c.descs {
		ch <- d.count
		ch <- d.last
		ch <- d.total
	}
}

// Collect implements the prometheus.Collector interface
func (c *PMStatsCollector) Collect(ch chan<- prom.Metric) {
	if !c.stats.Enabled() {
		c.logger.Debug("stats recording disabled; nothing to collect")
		return
	}

	for _, row := range c.stats.Rows() {
		d, ok := c.descs[row.Name()]
		if !ok {
			continue
		}
		ch <- prom.MustNewConstMetric(d.count, prom.CounterValue, float64(row.Count))
		ch <- prom.MustNewConstMetric(d.last, prom.GaugeValue, float64(row.LastCycles))
		ch <- prom.MustNewConstMetric(d.total, prom.CounterValue, float64(row.TotalCycles))
	}
}
