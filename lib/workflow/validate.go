// Copyright 2026 The Bibdb Authors
// SPDX-License-Identifier: Apache-2.0

package workflow

import (
	"fmt"
	"sort"
	"strings"
)

// Violation is one failed validation rule. Job is empty for
// workflow-level rules.
type Violation struct {
	Job     string
	Message string
}

func (v Violation) String() string {
	if v.Job == "" {
		return v.Message
	}
	return fmt.Sprintf("job %s: %s", v.Job, v.Message)
}

// Config adjusts validation. The zero value checks the default rules.
type Config struct {
	// RequiredEvents are the trigger events the manifest must declare.
	// Defaults to push and pull_request.
	RequiredEvents []string

	// RequiredLegs, when set, requires every job matrix to expand to
	// exactly this set of legs (order-insensitive).
	RequiredLegs []Leg
}

// Validate checks the manifest against the project's CI rules: the
// required trigger events, fail-fast disabled on every matrix job,
// a non-empty matrix, and the canonical step order checkout →
// interpreter setup → install → test. Returns one violation per
// broken rule; an empty result means the manifest is valid.
func Validate(w *Workflow, cfg Config) []Violation {
	events := cfg.RequiredEvents
	if events == nil {
		events = []string{"push", "pull_request"}
	}

	var violations []Violation
	for _, event := range events {
		if !w.On.Has(event) {
			violations = append(violations, Violation{
				Message: fmt.Sprintf("missing trigger event %q", event),
			})
		}
	}
	if len(w.Jobs) == 0 {
		violations = append(violations, Violation{Message: "no jobs defined"})
		return violations
	}

	for _, name := range jobNames(w) {
		job := w.Jobs[name]
		violations = append(violations, validateJob(name, job, cfg)...)
	}
	return violations
}

func validateJob(name string, job Job, cfg Config) []Violation {
	var violations []Violation
	fail := func(format string, args ...any) {
		violations = append(violations, Violation{
			Job:     name,
			Message: fmt.Sprintf(format, args...),
		})
	}

	if job.Strategy.FailFast == nil {
		fail("fail-fast is not set (must be explicitly false)")
	} else if *job.Strategy.FailFast {
		fail("fail-fast is true (one leg's failure would cancel the others)")
	}

	legs := job.Strategy.Matrix.Legs()
	if len(legs) == 0 {
		fail("matrix expands to no legs")
	}
	for _, leg := range legs {
		if leg.PythonVersion == "" || leg.OS == "" {
			fail("incomplete matrix leg %s", leg)
		}
	}
	if cfg.RequiredLegs != nil {
		violations = append(violations, compareLegs(name, legs, cfg.RequiredLegs)...)
	}

	violations = append(violations, validateSteps(name, job.Steps)...)
	return violations
}

// compareLegs checks that got and want contain the same pairs.
func compareLegs(name string, got, want []Leg) []Violation {
	var violations []Violation
	wanted := make(map[Leg]bool, len(want))
	for _, leg := range want {
		wanted[leg] = true
	}
	expanded := make(map[Leg]bool, len(got))
	for _, leg := range got {
		expanded[leg] = true
		if !wanted[leg] {
			violations = append(violations, Violation{
				Job:     name,
				Message: fmt.Sprintf("unexpected matrix leg %s", leg),
			})
		}
	}
	for _, leg := range want {
		if !expanded[leg] {
			violations = append(violations, Violation{
				Job:     name,
				Message: fmt.Sprintf("missing matrix leg %s", leg),
			})
		}
	}
	return violations
}

// stepKind classifies a step by what it does, not what it is named.
type stepKind int

const (
	kindOther stepKind = iota
	kindCheckout
	kindSetup
	kindInstall
	kindTest
)

func classifyStep(step Step) stepKind {
	switch {
	case strings.HasPrefix(step.Uses, "actions/checkout"):
		return kindCheckout
	case strings.HasPrefix(step.Uses, "actions/setup-"):
		return kindSetup
	case step.Run != "" && strings.Contains(step.Run, "install"):
		return kindInstall
	case step.Run != "":
		return kindTest
	}
	return kindOther
}

// validateSteps requires the canonical order: a checkout step, then
// interpreter setup, then an install command, then the test command.
// Other steps may appear in between, but never reorder these four.
func validateSteps(name string, steps []Step) []Violation {
	var violations []Violation
	positions := map[stepKind]int{}
	for i, step := range steps {
		kind := classifyStep(step)
		if kind == kindOther {
			continue
		}
		if _, seen := positions[kind]; !seen {
			positions[kind] = i
		}
	}

	required := []struct {
		kind stepKind
		what string
	}{
		{kindCheckout, "checkout step"},
		{kindSetup, "interpreter setup step"},
		{kindInstall, "install step"},
		{kindTest, "test step"},
	}

	previous := -1
	previousWhat := ""
	for _, requirement := range required {
		position, ok := positions[requirement.kind]
		if !ok {
			violations = append(violations, Violation{
				Job:     name,
				Message: "missing " + requirement.what,
			})
			continue
		}
		if position < previous {
			violations = append(violations, Violation{
				Job:     name,
				Message: fmt.Sprintf("%s must come after %s", requirement.what, previousWhat),
			})
		}
		previous = position
		previousWhat = requirement.what
	}
	return violations
}

func jobNames(w *Workflow) []string {
	names := make([]string, 0, len(w.Jobs))
	for name := range w.Jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
