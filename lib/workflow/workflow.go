// Copyright 2026 The Bibdb Authors
// SPDX-License-Identifier: Apache-2.0

// Package workflow parses and validates CI workflow manifests.
//
// A manifest declares trigger events, jobs, and per-job build
// matrices. Validation checks the structural rules this project relies
// on for its own CI; it does not execute anything.
package workflow

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Workflow is a parsed CI manifest.
type Workflow struct {
	Name string         `yaml:"name"`
	On   Triggers       `yaml:"on"`
	Jobs map[string]Job `yaml:"jobs"`
}

// Triggers is the list of events that start the workflow. The
// manifest may declare them as a single string, a sequence, or a
// mapping with per-event filters; all three decode to the event names.
type Triggers []string

func (t *Triggers) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var event string
		if err := node.Decode(&event); err != nil {
			return err
		}
		*t = Triggers{event}
		return nil
	case yaml.SequenceNode:
		var events []string
		if err := node.Decode(&events); err != nil {
			return err
		}
		*t = Triggers(events)
		return nil
	case yaml.MappingNode:
		var filtered map[string]yaml.Node
		if err := node.Decode(&filtered); err != nil {
			return err
		}
		events := make([]string, 0, len(filtered))
		for event := range filtered {
			events = append(events, event)
		}
		sort.Strings(events)
		*t = Triggers(events)
		return nil
	}
	return fmt.Errorf("workflow: cannot decode trigger events from %s node", node.Tag)
}

// Has reports whether the named event triggers the workflow.
func (t Triggers) Has(event string) bool {
	for _, candidate := range t {
		if candidate == event {
			return true
		}
	}
	return false
}

// Job is one named job with its matrix strategy and ordered steps.
type Job struct {
	RunsOn   string   `yaml:"runs-on"`
	Strategy Strategy `yaml:"strategy"`
	Steps    []Step   `yaml:"steps"`
}

// Strategy holds the job's matrix configuration. FailFast is a
// pointer so "absent" and "explicitly false" stay distinguishable.
type Strategy struct {
	FailFast *bool  `yaml:"fail-fast"`
	Matrix   Matrix `yaml:"matrix"`
}

// Matrix declares the job's build matrix: the cross product of the
// version and os axes, extended by include pairs and reduced by
// exclude pairs.
type Matrix struct {
	PythonVersion []string `yaml:"python-version"`
	OS            []string `yaml:"os"`
	Include       []Leg    `yaml:"include"`
	Exclude       []Leg    `yaml:"exclude"`
}

// Leg is one (interpreter version, operating system) combination.
type Leg struct {
	PythonVersion string `yaml:"python-version"`
	OS            string `yaml:"os"`
}

func (l Leg) String() string {
	return fmt.Sprintf("(%s, %s)", l.PythonVersion, l.OS)
}

// Step is one job step: either an action reference (Uses) or a shell
// command (Run).
type Step struct {
	Name string            `yaml:"name"`
	Uses string            `yaml:"uses"`
	Run  string            `yaml:"run"`
	With map[string]string `yaml:"with"`
}

// Load reads and parses the manifest at path.
func Load(path string) (*Workflow, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("workflow: %w", err)
	}
	return Parse(path, raw)
}

// Parse parses manifest source. The name is used in errors only.
func Parse(name string, source []byte) (*Workflow, error) {
	var w Workflow
	if err := yaml.Unmarshal(source, &w); err != nil {
		return nil, fmt.Errorf("workflow: parsing %s: %w", name, err)
	}
	return &w, nil
}

// Legs expands the matrix: cross product of the axes, plus include
// pairs, minus exclude pairs. Order is axis order (version-major),
// includes appended last, so repeated expansion is stable.
func (m Matrix) Legs() []Leg {
	excluded := make(map[Leg]bool, len(m.Exclude))
	for _, leg := range m.Exclude {
		excluded[leg] = true
	}

	var legs []Leg
	seen := make(map[Leg]bool)
	add := func(leg Leg) {
		if !excluded[leg] && !seen[leg] {
			seen[leg] = true
			legs = append(legs, leg)
		}
	}

	for _, version := range m.PythonVersion {
		for _, os := range m.OS {
			add(Leg{PythonVersion: version, OS: os})
		}
	}
	for _, leg := range m.Include {
		add(leg)
	}
	return legs
}
