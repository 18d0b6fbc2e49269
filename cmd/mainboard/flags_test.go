// Copyright 2026 The Cyberbus Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"reflect"
	"testing"
)

func TestParseArgsSingleDagConf(t *testing.T) {
	cfg, err := parseArgs([]string{"-d", "a.yaml"})
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	if got := cfg.dagConfPaths(); !reflect.DeepEqual(got, []string{"a.yaml"}) {
		t.Fatalf("dagConfPaths() = %v, want [a.yaml]", got)
	}
	if cfg.processGroup != "mainboard_default" {
		t.Fatalf("processGroup = %q, want default", cfg.processGroup)
	}
	if cfg.schedName != "CYBER_DEFAULT" {
		t.Fatalf("schedName = %q, want default", cfg.schedName)
	}
}

func TestParseArgsDagConfInlinePositionalExtension(t *testing.T) {
	cfg, err := parseArgs([]string{"-d", "a.yaml", "b.yaml", "c.yaml"})
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	want := []string{"a.yaml", "b.yaml", "c.yaml"}
	if got := cfg.dagConfPaths(); !reflect.DeepEqual(got, want) {
		t.Fatalf("dagConfPaths() = %v, want %v", got, want)
	}
	if len(cfg.dagConfGroups) != 1 {
		t.Fatalf("expected all three paths folded into one -d group, got %d groups", len(cfg.dagConfGroups))
	}
}

func TestParseArgsMultipleDagConfFlags(t *testing.T) {
	cfg, err := parseArgs([]string{"-d", "a.yaml", "x.yaml", "--dag_conf", "b.yaml"})
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	want := []string{"a.yaml", "x.yaml", "b.yaml"}
	if got := cfg.dagConfPaths(); !reflect.DeepEqual(got, want) {
		t.Fatalf("dagConfPaths() = %v, want %v", got, want)
	}
	if len(cfg.dagConfGroups) != 2 {
		t.Fatalf("expected 2 separate -d groups, got %d", len(cfg.dagConfGroups))
	}
}

func TestParseArgsPositionalBeforeAnyDagConfIsError(t *testing.T) {
	if _, err := parseArgs([]string{"stray.yaml", "-d", "a.yaml"}); err == nil {
		t.Fatal("expected an error for a positional not preceded by -d")
	}
}

func TestParseArgsPositionalAfterOtherFlagIsError(t *testing.T) {
	if _, err := parseArgs([]string{"-d", "a.yaml", "-p", "group", "stray.yaml"}); err == nil {
		t.Fatal("expected an error for a positional following -p rather than -d")
	}
}

func TestParseArgsMissingDagConfIsError(t *testing.T) {
	if _, err := parseArgs([]string{"-p", "group"}); err == nil {
		t.Fatal("expected an error for a missing required -d/--dag_conf")
	}
}

func TestParseArgsProcessGroupAndSchedName(t *testing.T) {
	cfg, err := parseArgs([]string{"-d", "a.yaml", "-p", "mygroup", "-s", "MY_SCHED"})
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	if cfg.processGroup != "mygroup" {
		t.Fatalf("processGroup = %q, want mygroup", cfg.processGroup)
	}
	if cfg.schedName != "MY_SCHED" {
		t.Fatalf("schedName = %q, want MY_SCHED", cfg.schedName)
	}
}

func TestParseArgsHelp(t *testing.T) {
	cfg, err := parseArgs([]string{"-h"})
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	if !cfg.help {
		t.Fatal("expected help to be true")
	}

	cfg, err = parseArgs([]string{"--help"})
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	if !cfg.help {
		t.Fatal("expected help to be true")
	}
}

func TestParseArgsUnknownFlag(t *testing.T) {
	if _, err := parseArgs([]string{"-d", "a.yaml", "--bogus"}); err == nil {
		t.Fatal("expected an error for an unknown flag")
	}
}
