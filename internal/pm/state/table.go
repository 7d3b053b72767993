// SPDX-FileCopyrightText: 2025 The Ferrite Authors
// SPDX-License-Identifier: Apache-2.0

package state

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Spec is the YAML form of one platform power state, as listed under the
// `states:` key of the configuration file. It mirrors what a devicetree
// cpu-power-states node would carry on a real target.
type Spec struct {
	State          string `yaml:"state"`
	SubstateID     uint8  `yaml:"substate-id"`
	MinResidencyUs uint32 `yaml:"min-residency-us"`
	ExitLatencyUs  uint32 `yaml:"exit-latency-us"`
}

// Table is the ordered list of sleep states a platform supports, shallowest
// first. Active is implicit and never listed.
type Table []Info

// TableFromSpecs validates and converts configured state specs into a Table.
// Specs must be ordered shallow to deep and each state may appear once.
func TableFromSpecs(specs []Spec) (Table, error) {
	table := make(Table, 0, len(specs))
	prev := Active
	for i, spec := range specs {
		s, err := Parse(spec.State)
		if err != nil {
			return nil, fmt.Errorf("states[%d]: %w", i, err)
		}
		if s == Active {
			return nil, fmt.Errorf("states[%d]: active cannot be listed as a sleep state", i)
		}
		if s <= prev {
			return nil, fmt.Errorf("states[%d]: %s must be deeper than %s", i, s, prev)
		}
		info := Info{
			State:          s,
			SubstateID:     spec.SubstateID,
			MinResidencyUs: spec.MinResidencyUs,
			ExitLatencyUs:  spec.ExitLatencyUs,
		}
		if !info.Valid() {
			return nil, fmt.Errorf("states[%d]: %s: min residency %dus below exit latency %dus",
				i, s, spec.MinResidencyUs, spec.ExitLatencyUs)
		}
		table = append(table, info)
		prev = s
	}
	return table, nil
}

// TableFromYAML parses a YAML state list into a Table.
func TableFromYAML(data []byte) (Table, error) {
	var specs []Spec
	if err := yaml.Unmarshal(data, &specs); err != nil {
		return nil, fmt.Errorf("parsing state table: %w", err)
	}
	return TableFromSpecs(specs)
}

// Deepest returns the deepest state in the table, or an Active descriptor
// when the table is empty.
func (t Table) Deepest() Info {
	if len(t) == 0 {
		return Info{State: Active}
	}
	return t[len(t)-1]
}
