// Copyright 2026 The Cyberbus Authors
// SPDX-License-Identifier: Apache-2.0

package main

import "fmt"

// config holds the parsed command line for one mainboard process.
type config struct {
	// dagConfGroups holds one entry per -d/--dag_conf occurrence, each
	// with the DAG description paths that followed it up to the next
	// flag. A single -d may be followed by several bare paths — see
	// parseArgs for the exact rule.
	dagConfGroups [][]string
	processGroup  string
	schedName     string
	help          bool
}

func defaultConfig() config {
	return config{
		processGroup: "mainboard_default",
		schedName:    "CYBER_DEFAULT",
	}
}

// dagConfPaths flattens every -d group into one ordered list.
func (c config) dagConfPaths() []string {
	var paths []string
	for _, group := range c.dagConfGroups {
		paths = append(paths, group...)
	}
	return paths
}

// parseArgs implements the mainboard CLI surface: -h/--help, -d/--dag_conf
// (required, repeatable, with trailing bare positionals folded into the
// most recent -d's file list), -p/--process_group, -s/--sched_name.
//
// pflag's positional handling always treats bare args as trailing,
// order-independent operands; it has no notion of "these positionals
// extend the previous flag's value list". That is exactly what
// --dag_conf's "inline positional extension" arity requires, so this
// is a small hand-rolled scanner instead of a pflag.FlagSet — the one
// place in this binary where reaching for the shared flag library would
// not actually express the grammar. Everything else about looking and
// erroring like a Bureau CLI tool (usage text, exit codes) still
// follows the same shape as the rest of the corpus.
func parseArgs(args []string) (config, error) {
	cfg := defaultConfig()

	var currentGroup *[]string
	i := 0
	for i < len(args) {
		arg := args[i]
		switch {
		case arg == "-h" || arg == "--help":
			cfg.help = true
			return cfg, nil

		case arg == "-d" || arg == "--dag_conf":
			i++
			if i >= len(args) {
				return config{}, fmt.Errorf("flag %s requires a value", arg)
			}
			cfg.dagConfGroups = append(cfg.dagConfGroups, []string{args[i]})
			currentGroup = &cfg.dagConfGroups[len(cfg.dagConfGroups)-1]
			i++

		case arg == "-p" || arg == "--process_group":
			i++
			if i >= len(args) {
				return config{}, fmt.Errorf("flag %s requires a value", arg)
			}
			cfg.processGroup = args[i]
			currentGroup = nil
			i++

		case arg == "-s" || arg == "--sched_name":
			i++
			if i >= len(args) {
				return config{}, fmt.Errorf("flag %s requires a value", arg)
			}
			cfg.schedName = args[i]
			currentGroup = nil
			i++

		case len(arg) > 0 && arg[0] == '-':
			return config{}, fmt.Errorf("unknown flag: %s", arg)

		default:
			// A bare positional. Per spec, it belongs to the most
			// recent -d's file list; one not preceded by any -d is a
			// parse error.
			if currentGroup == nil {
				return config{}, fmt.Errorf("unexpected positional argument %q: expected it to follow -d/--dag_conf", arg)
			}
			*currentGroup = append(*currentGroup, arg)
			i++
		}
	}

	if len(cfg.dagConfGroups) == 0 {
		return config{}, fmt.Errorf("missing required flag: -d/--dag_conf")
	}
	return cfg, nil
}

const usage = `mainboard runs a set of components wired together by one or more DAG
description files, publishing and subscribing over the transport
package's Intra/Shm/Rtps/Hybrid channels.

Usage:
  mainboard -d dag_conf.yaml [more_dag_conf.yaml ...] [-d ...] [-p process_group] [-s sched_name]

Flags:
  -h, --help              print this message and exit
  -d, --dag_conf PATH...  path(s) to a DAG description file; repeatable,
                          and a -d may be followed directly by additional
                          bare paths belonging to the same group
  -p, --process_group     process namespace (default "mainboard_default")
  -s, --sched_name        scheduler policy key (default "CYBER_DEFAULT")
`
