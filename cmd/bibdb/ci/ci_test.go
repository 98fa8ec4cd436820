// Copyright 2026 The Bibdb Authors
// SPDX-License-Identifier: Apache-2.0

package ci

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/bibliobase/bibdb/cmd/bibdb/cli"
	"github.com/bibliobase/bibdb/lib/testutil"
)

const validManifest = `name: tests
on: [push, pull_request]
jobs:
  build:
    strategy:
      fail-fast: false
      matrix:
        python-version: ["3.9", "3.10"]
        os: [ubuntu-latest]
    steps:
      - uses: actions/checkout@v2
      - uses: actions/setup-python@v2
      - run: pip install .[test]
      - run: pytest
`

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tests.yml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestValidateAcceptsManifest(t *testing.T) {
	path := writeManifest(t, validManifest)
	err := validateCommand().Execute(context.Background(), []string{path}, testutil.Logger())
	if err != nil {
		t.Errorf("valid manifest rejected: %v", err)
	}
}

func TestValidateExitsNonZeroOnViolation(t *testing.T) {
	broken := writeManifest(t, `name: tests
on: [push]
jobs:
  build:
    steps:
      - run: pytest
`)

	err := validateCommand().Execute(context.Background(), []string{broken}, testutil.Logger())
	var exitError *cli.ExitError
	if !errors.As(err, &exitError) {
		t.Fatalf("error = %v, want ExitError", err)
	}
	if exitError.Code != 1 {
		t.Errorf("exit code = %d, want 1", exitError.Code)
	}
}

func TestValidateRequiresPath(t *testing.T) {
	err := validateCommand().Execute(context.Background(), nil, testutil.Logger())
	if err == nil {
		t.Error("expected error without a manifest path")
	}
}
