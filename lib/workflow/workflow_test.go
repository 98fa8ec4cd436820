// Copyright 2026 The Bibdb Authors
// SPDX-License-Identifier: Apache-2.0

package workflow

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const validManifest = `name: tests
on:
  - push
  - pull_request
jobs:
  build:
    runs-on: ${{ matrix.os }}
    strategy:
      fail-fast: false
      matrix:
        python-version: ["3.7", "3.8", "3.9", "3.10"]
        os: [ubuntu-latest]
        include:
          - python-version: "3.10"
            os: windows-latest
    steps:
      - uses: actions/checkout@v2
      - uses: actions/setup-python@v2
        with:
          python-version: ${{ matrix.python-version }}
      - name: install
        run: pip install .[test]
      - name: run tests
        run: pytest
`

func TestParseManifest(t *testing.T) {
	w, err := Parse("tests.yml", []byte(validManifest))
	if err != nil {
		t.Fatal(err)
	}
	if w.Name != "tests" {
		t.Errorf("Name = %q, want tests", w.Name)
	}
	if !w.On.Has("push") || !w.On.Has("pull_request") {
		t.Errorf("On = %v, want push and pull_request", w.On)
	}
	job, ok := w.Jobs["build"]
	if !ok {
		t.Fatal("no build job")
	}
	if job.Strategy.FailFast == nil || *job.Strategy.FailFast {
		t.Error("fail-fast not decoded as false")
	}
	if len(job.Steps) != 4 {
		t.Errorf("got %d steps, want 4", len(job.Steps))
	}
}

func TestTriggersDecodeForms(t *testing.T) {
	for _, test := range []struct {
		name   string
		source string
		want   []string
	}{
		{"scalar", "on: push", []string{"push"}},
		{"sequence", "on: [push, pull_request]", []string{"push", "pull_request"}},
		{"mapping", "on:\n  push:\n    branches: [main]\n  pull_request:", []string{"pull_request", "push"}},
	} {
		t.Run(test.name, func(t *testing.T) {
			w, err := Parse("test", []byte(test.source))
			if err != nil {
				t.Fatal(err)
			}
			if len(w.On) != len(test.want) {
				t.Fatalf("On = %v, want %v", w.On, test.want)
			}
			for i, event := range test.want {
				if w.On[i] != event {
					t.Errorf("On[%d] = %q, want %q", i, w.On[i], event)
				}
			}
		})
	}
}

func TestMatrixLegs(t *testing.T) {
	m := Matrix{
		PythonVersion: []string{"3.7", "3.8", "3.9", "3.10"},
		OS:            []string{"ubuntu-latest"},
		Include:       []Leg{{PythonVersion: "3.10", OS: "windows-latest"}},
	}
	legs := m.Legs()
	if len(legs) != 5 {
		t.Fatalf("got %d legs, want 5: %v", len(legs), legs)
	}
	if legs[4] != (Leg{PythonVersion: "3.10", OS: "windows-latest"}) {
		t.Errorf("include leg not appended last: %v", legs)
	}
}

func TestMatrixLegsExclude(t *testing.T) {
	m := Matrix{
		PythonVersion: []string{"3.9", "3.10"},
		OS:            []string{"ubuntu-latest", "windows-latest"},
		Exclude:       []Leg{{PythonVersion: "3.9", OS: "windows-latest"}},
	}
	legs := m.Legs()
	if len(legs) != 3 {
		t.Fatalf("got %d legs, want 3: %v", len(legs), legs)
	}
	for _, leg := range legs {
		if leg.PythonVersion == "3.9" && leg.OS == "windows-latest" {
			t.Errorf("excluded leg present: %v", legs)
		}
	}
}

func TestValidateAccepts(t *testing.T) {
	w, err := Parse("tests.yml", []byte(validManifest))
	if err != nil {
		t.Fatal(err)
	}
	if violations := Validate(w, Config{}); len(violations) != 0 {
		t.Errorf("valid manifest rejected: %v", violations)
	}
}

func TestValidateRequiredLegs(t *testing.T) {
	w, err := Parse("tests.yml", []byte(validManifest))
	if err != nil {
		t.Fatal(err)
	}
	want := []Leg{
		{"3.7", "ubuntu-latest"},
		{"3.8", "ubuntu-latest"},
		{"3.9", "ubuntu-latest"},
		{"3.10", "ubuntu-latest"},
		{"3.10", "windows-latest"},
	}
	if violations := Validate(w, Config{RequiredLegs: want}); len(violations) != 0 {
		t.Errorf("expected legs rejected: %v", violations)
	}

	missing := append([]Leg{{"3.11", "ubuntu-latest"}}, want...)
	violations := Validate(w, Config{RequiredLegs: missing})
	if len(violations) != 1 || !strings.Contains(violations[0].String(), "missing matrix leg (3.11, ubuntu-latest)") {
		t.Errorf("violations = %v", violations)
	}
}

func TestValidateRejections(t *testing.T) {
	for _, test := range []struct {
		name   string
		mangle func(string) string
		want   string
	}{
		{
			"missing pull_request",
			func(s string) string { return strings.Replace(s, "  - pull_request\n", "", 1) },
			`missing trigger event "pull_request"`,
		},
		{
			"fail-fast true",
			func(s string) string { return strings.Replace(s, "fail-fast: false", "fail-fast: true", 1) },
			"fail-fast is true",
		},
		{
			"fail-fast absent",
			func(s string) string { return strings.Replace(s, "      fail-fast: false\n", "", 1) },
			"fail-fast is not set",
		},
		{
			"missing checkout",
			func(s string) string { return strings.Replace(s, "      - uses: actions/checkout@v2\n", "", 1) },
			"missing checkout step",
		},
		{
			"test before install",
			func(s string) string {
				return strings.Replace(s,
					"      - name: install\n        run: pip install .[test]\n      - name: run tests\n        run: pytest\n",
					"      - name: run tests\n        run: pytest\n      - name: install\n        run: pip install .[test]\n", 1)
			},
			"test step must come after install step",
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			w, err := Parse("tests.yml", []byte(test.mangle(validManifest)))
			if err != nil {
				t.Fatal(err)
			}
			violations := Validate(w, Config{})
			found := false
			for _, violation := range violations {
				if strings.Contains(violation.String(), test.want) {
					found = true
				}
			}
			if !found {
				t.Errorf("violations %v do not include %q", violations, test.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tests.yml")
	if err := os.WriteFile(path, []byte(validManifest), 0o644); err != nil {
		t.Fatal(err)
	}
	w, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(w.Jobs) != 1 {
		t.Errorf("got %d jobs, want 1", len(w.Jobs))
	}

	if _, err := Load(filepath.Join(t.TempDir(), "absent.yml")); err == nil {
		t.Error("Load succeeded on a missing file")
	}
}
