// Copyright 2026 The Cyberbus Authors
// SPDX-License-Identifier: Apache-2.0

// Mainboard is the process entry point that loads one or more DAG
// description files and runs the components they name against the
// transport core: a per-process rtps participant, a shared shm
// segment, and a Topology Manager, all wired together into one
// transport.Facade.
//
// Reading and interpreting DAG description files (module graphs,
// scheduler policy) is out of scope for the core described here —
// mainboard only locates the files named by -d/--dag_conf and logs
// them; a real deployment plugs a DAG loader in at the point marked
// below.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cyberbus/cyberbus/notify"
	"github.com/cyberbus/cyberbus/rtps"
	"github.com/cyberbus/cyberbus/topology"
	"github.com/cyberbus/cyberbus/transport"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "mainboard: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := parseArgs(args)
	if err != nil {
		fmt.Fprint(os.Stderr, usage)
		return err
	}
	if cfg.help {
		fmt.Print(usage)
		return nil
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	hostName, err := os.Hostname()
	if err != nil {
		return fmt.Errorf("mainboard: resolving host name: %w", err)
	}
	processID := os.Getpid()

	logger.Info("starting mainboard",
		"process_group", cfg.processGroup,
		"sched_name", cfg.schedName,
		"dag_conf", cfg.dagConfPaths())

	for _, path := range cfg.dagConfPaths() {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("mainboard: dag_conf %s: %w", path, err)
		}
		// DAG description parsing and module instantiation from path is
		// the module bootloader's job, out of scope here; mainboard's
		// contribution is validating the file exists and handing the
		// facade to whatever loader a deployment plugs in.
		logger.Info("registered dag_conf", "path", path)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	facade, cleanup, err := buildFacade(hostName, processID, cfg.processGroup, logger)
	if err != nil {
		return fmt.Errorf("mainboard: building transport facade: %w", err)
	}
	defer cleanup()

	logger.Info("mainboard ready", "host", hostName, "pid", processID)

	<-ctx.Done()
	logger.Info("shutting down mainboard")
	facade.Shutdown()
	return nil
}

// shmSlotSize and shmSlotCount size the shm segment shared by every
// Shm/Hybrid endpoint this process constructs.
const (
	shmSlotSize  = 1 << 16
	shmSlotCount = 256
)

// buildFacade constructs the shared transport infrastructure for one
// mainboard process: an rtps participant over WebRTC data channels, a
// shm segment shared by this process's Shm endpoints, and a Topology
// Manager tying them together. cleanup releases every resource in
// reverse acquisition order.
func buildFacade(hostName string, processID int, processGroup string, logger *slog.Logger) (*transport.Facade, func(), error) {
	participantName := topology.ParticipantName(hostName, processID)
	logger.Info("joining rtps participant group", "process_group", processGroup, "participant", participantName)

	// MemorySignaler only exchanges offers/answers between participants
	// in this process; a genuine multi-host deployment supplies a
	// Signaler backed by a shared discovery service instead.
	signaler := rtps.NewMemorySignaler()
	participant := rtps.NewWebRTCParticipant(participantName, signaler, rtps.ICEConfig{}, nil, logger)

	segment, err := transport.NewShmSegment(shmSlotSize, shmSlotCount)
	if err != nil {
		participant.Shutdown()
		return nil, nil, fmt.Errorf("creating shm segment: %w", err)
	}

	shmNotifier, err := notify.NewCondition()
	if err != nil {
		segment.Close()
		participant.Shutdown()
		return nil, nil, fmt.Errorf("creating shm notifier: %w", err)
	}

	topo := topology.New()
	if err := topo.Init(hostName, processID, participant); err != nil {
		shmNotifier.Shutdown()
		segment.Close()
		participant.Shutdown()
		return nil, nil, fmt.Errorf("initializing topology manager: %w", err)
	}

	facade := transport.NewFacade(hostName, processID, participant, segment, shmNotifier, topo)

	cleanup := func() {
		topo.Shutdown()
		shmNotifier.Shutdown()
		segment.Close()
		participant.Shutdown()
	}
	return facade, cleanup, nil
}
