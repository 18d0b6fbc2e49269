// Copyright 2026 The Cyberbus Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"errors"
	"sync"

	"github.com/cyberbus/cyberbus/dispatch"
	"github.com/cyberbus/cyberbus/role"
	"github.com/cyberbus/cyberbus/topology"
)

// locality classifies one subscriber relative to this process, driving
// which of the three concrete transports the Hybrid family needs.
type locality int

const (
	localityIntra locality = iota
	localityShm
	localityRtps
)

func classifyLocality(hostName string, processID int, subscriber role.Attributes) locality {
	if subscriber.HostName == hostName && subscriber.ProcessID == processID {
		return localityIntra
	}
	if subscriber.HostName == hostName {
		return localityShm
	}
	return localityRtps
}

// HybridTransmitter picks intra, shm, and/or rtps per spec.md §4.4's
// locality rule (same process -> intra, same host different process ->
// shm, different host -> rtps) and keeps that choice current by
// listening on topology.Manager rather than scanning the subscriber
// directory on every Transmit call.
type HybridTransmitter[T any] struct {
	channelID role.ChannelID
	hostName  string
	processID int

	intra *IntraTransmitter[T]
	shm   *ShmTransmitter[T]
	rtps  *RtpsTransmitter[T]

	topo  *topology.Manager
	token uint64

	mu                          sync.RWMutex
	needIntra, needShm, needRtps bool
}

// NewHybridTransmitter wires a Hybrid transmitter over the three
// already-constructed sub-transmitters (any of which may be nil if
// that transport is unavailable in this deployment, e.g. no rtps
// participant configured) and starts tracking topo for locality
// changes. hostName/processID identify this transmitter's own
// process, matching the topology.ParticipantName components.
func NewHybridTransmitter[T any](channelID role.ChannelID, hostName string, processID int, intra *IntraTransmitter[T], shm *ShmTransmitter[T], rtps *RtpsTransmitter[T], topo *topology.Manager) *HybridTransmitter[T] {
	h := &HybridTransmitter[T]{
		channelID: channelID,
		hostName:  hostName,
		processID: processID,
		intra:     intra,
		shm:       shm,
		rtps:      rtps,
		topo:      topo,
	}
	h.recompute()
	h.token = topo.AddChangeListener(func(msg topology.ChangeMsg) {
		if msg.ChangeType == topology.Channel || msg.ChangeType == topology.Participant {
			h.recompute()
		}
	})
	return h
}

func (h *HybridTransmitter[T]) recompute() {
	subscribers := h.topo.Channels().Subscribers(h.channelID)

	var needIntra, needShm, needRtps bool
	for _, subscriber := range subscribers {
		switch classifyLocality(h.hostName, h.processID, subscriber) {
		case localityIntra:
			needIntra = true
		case localityShm:
			needShm = true
		case localityRtps:
			needRtps = true
		}
	}

	h.mu.Lock()
	h.needIntra, h.needShm, h.needRtps = needIntra, needShm, needRtps
	h.mu.Unlock()
}

// Transmit fans msg out over exactly the transports the current
// subscriber locality set requires. A missing sub-transmitter for a
// transport that turns out to be needed (e.g. no rtps participant
// configured for a deployment that later gains a remote host) is
// silently skipped rather than erroring. Sub-transmitters are fixed at
// construction, so such a subscriber is not reached by this
// transmitter.
func (h *HybridTransmitter[T]) Transmit(msg T) error {
	h.mu.RLock()
	needIntra, needShm, needRtps := h.needIntra, h.needShm, h.needRtps
	h.mu.RUnlock()

	var errs []error
	if needIntra && h.intra != nil {
		if err := h.intra.Transmit(msg); err != nil {
			errs = append(errs, err)
		}
	}
	if needShm && h.shm != nil {
		if err := h.shm.Transmit(msg); err != nil {
			errs = append(errs, err)
		}
	}
	if needRtps && h.rtps != nil {
		if err := h.rtps.Transmit(msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close stops tracking topology changes and closes every sub-transmitter.
func (h *HybridTransmitter[T]) Close() error {
	h.topo.RemoveChangeListener(h.token)

	var errs []error
	if h.intra != nil {
		errs = append(errs, h.intra.Close())
	}
	if h.shm != nil {
		errs = append(errs, h.shm.Close())
	}
	if h.rtps != nil {
		errs = append(errs, h.rtps.Close())
	}
	return errors.Join(errs...)
}

// HybridReceiver is the receive-side symmetric to HybridTransmitter:
// intra, shm, and rtps deliveries all converge on the same
// buffer.Channel[T], so Register/Unregister forward to that Channel's
// single Dispatcher regardless of which transport actually carried a
// given message. What Hybrid controls on the receive side is whether
// the shm listener goroutine and rtps subscription are worth running
// at all — both are started only once topology shows a peer that could
// plausibly use them, and stopped again if that peer leaves.
type HybridReceiver[T any] struct {
	channelID role.ChannelID
	hostName  string
	processID int

	dispatcher *dispatch.Dispatcher[T]

	newShmReceiver  func() *ShmReceiver[T]
	newRtpsReceiver func() (*RtpsReceiver[T], error)

	topo  *topology.Manager
	token uint64

	mu          sync.Mutex
	shmCancel   context.CancelFunc
	rtpsHandle  *RtpsReceiver[T]
}

// NewHybridReceiver wires a Hybrid receiver. newShmReceiver and
// newRtpsReceiver are factories rather than already-constructed
// receivers because each is only instantiated once topology indicates
// a peer exists that needs it; either may be nil to disable that
// transport entirely for this deployment.
func NewHybridReceiver[T any](channelID role.ChannelID, hostName string, processID int, dispatcher *dispatch.Dispatcher[T], newShmReceiver func() *ShmReceiver[T], newRtpsReceiver func() (*RtpsReceiver[T], error), topo *topology.Manager) *HybridReceiver[T] {
	h := &HybridReceiver[T]{
		channelID:       channelID,
		hostName:        hostName,
		processID:       processID,
		dispatcher:      dispatcher,
		newShmReceiver:  newShmReceiver,
		newRtpsReceiver: newRtpsReceiver,
		topo:            topo,
	}
	h.reconcile(context.Background())
	h.token = topo.AddChangeListener(func(msg topology.ChangeMsg) {
		if msg.ChangeType == topology.Channel || msg.ChangeType == topology.Participant {
			h.reconcile(context.Background())
		}
	})
	return h
}

func (h *HybridReceiver[T]) reconcile(ctx context.Context) {
	subscribers := h.topo.Channels().Subscribers(h.channelID)

	var haveShmPeer, haveRtpsPeer bool
	for _, subscriber := range subscribers {
		switch classifyLocality(h.hostName, h.processID, subscriber) {
		case localityShm:
			haveShmPeer = true
		case localityRtps:
			haveRtpsPeer = true
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if haveShmPeer && h.shmCancel == nil && h.newShmReceiver != nil {
		receiver := h.newShmReceiver()
		listenCtx, cancel := context.WithCancel(ctx)
		receiver.Start(listenCtx)
		h.shmCancel = cancel
	} else if !haveShmPeer && h.shmCancel != nil {
		h.shmCancel()
		h.shmCancel = nil
	}

	if haveRtpsPeer && h.rtpsHandle == nil && h.newRtpsReceiver != nil {
		if receiver, err := h.newRtpsReceiver(); err == nil {
			h.rtpsHandle = receiver
		}
	} else if !haveRtpsPeer && h.rtpsHandle != nil {
		h.rtpsHandle.Close()
		h.rtpsHandle = nil
	}
}

// Register adds cb to the underlying dispatcher, matching Receiver[T].
func (h *HybridReceiver[T]) Register(cb dispatch.Callback[T]) uint64 {
	return h.dispatcher.Register(cb)
}

// Unregister removes a previously registered callback.
func (h *HybridReceiver[T]) Unregister(token uint64) {
	h.dispatcher.Unregister(token)
}

// Close stops tracking topology changes and tears down any active
// shm listener or rtps subscription.
func (h *HybridReceiver[T]) Close() error {
	h.topo.RemoveChangeListener(h.token)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.shmCancel != nil {
		h.shmCancel()
		h.shmCancel = nil
	}
	if h.rtpsHandle != nil {
		err := h.rtpsHandle.Close()
		h.rtpsHandle = nil
		return err
	}
	return nil
}
