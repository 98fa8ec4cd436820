// Copyright 2026 The Bibdb Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func TestBindFlagsTypes(t *testing.T) {
	type params struct {
		Name    string   `flag:"name,n" desc:"a name" default:"default-name"`
		Count   int      `flag:"count" default:"3"`
		Limit   int64    `flag:"limit" default:"100"`
		Enable  bool     `flag:"enable" default:"true"`
		Tags    []string `flag:"tags" default:"a,b"`
		Skipped string
	}
	var p params

	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	if err := BindFlags(&p, flagSet); err != nil {
		t.Fatal(err)
	}

	if err := flagSet.Parse([]string{"-n", "short", "--count", "7"}); err != nil {
		t.Fatal(err)
	}
	if p.Name != "short" {
		t.Errorf("Name = %q (shorthand binding)", p.Name)
	}
	if p.Count != 7 {
		t.Errorf("Count = %d", p.Count)
	}
	if p.Limit != 100 {
		t.Errorf("Limit default = %d", p.Limit)
	}
	if !p.Enable {
		t.Error("Enable default not applied")
	}
	if len(p.Tags) != 2 || p.Tags[0] != "a" {
		t.Errorf("Tags default = %v", p.Tags)
	}
	if flagSet.Lookup("skipped") != nil {
		t.Error("untagged field got a flag")
	}
}

func TestBindFlagsEmbedded(t *testing.T) {
	type inner struct {
		Database string `flag:"db" desc:"database file"`
	}
	type outer struct {
		inner
		JSONOutput
	}
	var p outer

	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	if err := BindFlags(&p, flagSet); err != nil {
		t.Fatal(err)
	}
	if flagSet.Lookup("db") == nil {
		t.Error("embedded struct field not bound")
	}
	if flagSet.Lookup("json") == nil {
		t.Error("embedded JSONOutput not bound")
	}

	if err := flagSet.Parse([]string{"--db", "x.sqlite3", "--json"}); err != nil {
		t.Fatal(err)
	}
	if p.Database != "x.sqlite3" || !p.OutputJSON {
		t.Errorf("embedded fields not populated: %+v", p)
	}
}

func TestBindFlagsRejectsNonStruct(t *testing.T) {
	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	err := BindFlags(42, flagSet)
	if err == nil || !strings.Contains(err.Error(), "pointer to a struct") {
		t.Errorf("error = %v", err)
	}
}

func TestBindFlagsUnsupportedType(t *testing.T) {
	type params struct {
		Bad float32 `flag:"bad"`
	}
	var p params
	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	err := BindFlags(&p, flagSet)
	if err == nil || !strings.Contains(err.Error(), "unsupported type") {
		t.Errorf("error = %v", err)
	}
}
