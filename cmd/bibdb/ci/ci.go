// Copyright 2026 The Bibdb Authors
// SPDX-License-Identifier: Apache-2.0

// Package ci implements the commands that check CI workflow manifests.
package ci

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bibliobase/bibdb/cmd/bibdb/cli"
	"github.com/bibliobase/bibdb/lib/workflow"
)

// Command returns the "ci" command group.
func Command() *cli.Command {
	return &cli.Command{
		Name:    "ci",
		Summary: "Check CI workflow manifests",
		Subcommands: []*cli.Command{
			validateCommand(),
		},
		Examples: []cli.Example{
			{
				Description: "Validate the test workflow",
				Command:     "bibdb ci validate .github/workflows/tests.yml",
			},
		},
	}
}

// validateParams holds the parameters for ci validate.
type validateParams struct {
	cli.JSONOutput
}

func validateCommand() *cli.Command {
	var params validateParams

	return &cli.Command{
		Name:    "validate",
		Summary: "Validate a workflow manifest",
		Description: `Validate a CI workflow manifest: the push and pull_request trigger
events must be declared, every matrix job must disable fail-fast and
expand to at least one leg, and the steps must follow the canonical
order checkout → interpreter setup → install → test.

Prints one line per violation and exits non-zero when any exist.`,
		Usage:  "bibdb ci validate <workflow.yml> [flags]",
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 1 {
				return fmt.Errorf("expected exactly one manifest path\n\nUsage: bibdb ci validate <workflow.yml> [flags]")
			}
			manifest, err := workflow.Load(args[0])
			if err != nil {
				return err
			}

			violations := workflow.Validate(manifest, workflow.Config{})

			if done, err := emitJSON(&params, violations); done {
				if err != nil {
					return err
				}
			} else {
				for _, violation := range violations {
					fmt.Printf("%s: %s\n", args[0], violation)
				}
				if len(violations) == 0 {
					fmt.Printf("%s: ok\n", args[0])
				}
			}

			if len(violations) > 0 {
				return &cli.ExitError{Code: 1}
			}
			return nil
		},
	}
}

// violationResult is the JSON shape for one violation.
type violationResult struct {
	Job     string `json:"job,omitempty"`
	Message string `json:"message"`
}

func emitJSON(params *validateParams, violations []workflow.Violation) (bool, error) {
	results := make([]violationResult, 0, len(violations))
	for _, violation := range violations {
		results = append(results, violationResult{Job: violation.Job, Message: violation.Message})
	}
	return params.EmitJSON(results)
}
