// Copyright 2026 The Bibdb Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/bibliobase/bibdb/lib/testutil"
)

func TestDispatchToSubcommand(t *testing.T) {
	var ran []string
	root := &Command{
		Name: "bibdb",
		Subcommands: []*Command{
			{
				Name: "export",
				Subcommands: []*Command{
					{
						Name: "bib",
						Run: func(_ context.Context, args []string, _ *slog.Logger) error {
							ran = args
							return nil
						},
					},
				},
			},
		},
	}

	err := root.Execute(context.Background(), []string{"export", "bib", "out.bib"}, testutil.Logger())
	if err != nil {
		t.Fatal(err)
	}
	if len(ran) != 1 || ran[0] != "out.bib" {
		t.Errorf("leaf args = %v, want [out.bib]", ran)
	}
}

func TestUnknownCommandSuggestion(t *testing.T) {
	root := &Command{
		Name: "bibdb",
		Subcommands: []*Command{
			{Name: "build"},
			{Name: "stats"},
		},
	}

	err := root.Execute(context.Background(), []string{"buidl"}, testutil.Logger())
	if err == nil {
		t.Fatal("expected error for unknown command")
	}
	if !strings.Contains(err.Error(), `did you mean "build"`) {
		t.Errorf("error = %v, want build suggestion", err)
	}
}

func TestSubcommandRequired(t *testing.T) {
	root := &Command{
		Name:        "bibdb",
		Subcommands: []*Command{{Name: "build"}},
	}
	err := root.Execute(context.Background(), nil, testutil.Logger())
	if err == nil || !strings.Contains(err.Error(), "subcommand required") {
		t.Errorf("error = %v, want subcommand required", err)
	}
}

func TestFlagParsingFromParams(t *testing.T) {
	type params struct {
		Database string `flag:"db" desc:"database file" default:"refs.sqlite3"`
		Verbose  bool   `flag:"verbose" desc:"verbose output"`
	}
	var p params

	command := &Command{
		Name:   "build",
		Params: func() any { return &p },
		Run: func(_ context.Context, args []string, _ *slog.Logger) error {
			return nil
		},
	}

	err := command.Execute(context.Background(), []string{"--db", "other.sqlite3", "--verbose"}, testutil.Logger())
	if err != nil {
		t.Fatal(err)
	}
	if p.Database != "other.sqlite3" {
		t.Errorf("Database = %q", p.Database)
	}
	if !p.Verbose {
		t.Error("Verbose not set")
	}
}

func TestUnknownFlagSuggestion(t *testing.T) {
	type params struct {
		Database string `flag:"db" desc:"database file"`
	}
	var p params

	command := &Command{
		Name:   "stats",
		Params: func() any { return &p },
		Run: func(_ context.Context, args []string, _ *slog.Logger) error {
			return nil
		},
	}

	err := command.Execute(context.Background(), []string{"--bd", "x"}, testutil.Logger())
	if err == nil {
		t.Fatal("expected error for unknown flag")
	}
	if !strings.Contains(err.Error(), "--db") {
		t.Errorf("error = %v, want --db suggestion", err)
	}
}

func TestHelpOutput(t *testing.T) {
	root := &Command{
		Name:    "bibdb",
		Summary: "references database",
		Subcommands: []*Command{
			{Name: "build", Summary: "build the database"},
		},
		Examples: []Example{
			{Description: "Build from the catalog", Command: "bibdb build --catalog refs.yaml"},
		},
	}

	var out bytes.Buffer
	root.PrintHelp(&out)
	for _, want := range []string{"build the database", "bibdb build --catalog refs.yaml", "Commands:"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("help output missing %q:\n%s", want, out.String())
		}
	}
}
