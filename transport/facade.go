// Copyright 2026 The Cyberbus Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/cyberbus/cyberbus/buffer"
	"github.com/cyberbus/cyberbus/dispatch"
	"github.com/cyberbus/cyberbus/notify"
	"github.com/cyberbus/cyberbus/role"
	"github.com/cyberbus/cyberbus/rtps"
	"github.com/cyberbus/cyberbus/topology"
)

// Facade is the Transport Facade (C6): an explicitly constructed
// context object holding the rtps.Participant, the three per-transport
// dispatch Registries, the Data Notifier Registry, the shared shm
// segment, and the Topology Manager. REDESIGN FLAGS retires the
// process-wide singleton the original draws as "process-wide
// singleton" — a Facade is built once per process entry point
// (cmd/mainboard) and threaded down to every endpoint constructor, but
// nothing prevents a test from building several independent Facades.
type Facade struct {
	hostName    string
	processID   int
	participant rtps.Participant

	intraDispatch *dispatch.Registry
	shmDispatch   *dispatch.Registry
	rtpsDispatch  *dispatch.Registry
	notifyReg     *notify.Registry

	shmSegment *shmSegment
	shmNotify  notify.Notifier

	topo *topology.Manager

	mu       sync.Mutex
	channels map[channelKey]any

	shutdown atomic.Bool
}

type channelKey struct {
	msgType   reflect.Type
	channelID role.ChannelID
}

// NewFacade builds a Facade over already-constructed shared
// infrastructure. participant, shmSegment, and shmNotify may be nil —
// a deployment that never needs a given transport simply omits it, and
// endpoint constructors for that transport return an error instead of
// silently degrading.
func NewFacade(hostName string, processID int, participant rtps.Participant, shmSegment *shmSegment, shmNotify notify.Notifier, topo *topology.Manager) *Facade {
	// 64 is an internal, fixed wake-channel depth, not a value derived
	// from caller-supplied QoS — it can never fail NewRegistry's
	// capacity check, so a failure here means this literal was edited
	// to something invalid, which is a programming error worth a panic
	// rather than a threaded-through error every Facade caller must
	// handle for a case that cannot occur at runtime.
	notifyReg, err := notify.NewRegistry(64)
	if err != nil {
		panic("transport: internal notify registry misconfigured: " + err.Error())
	}
	return &Facade{
		hostName:      hostName,
		processID:     processID,
		participant:   participant,
		intraDispatch: dispatch.NewRegistry(),
		shmDispatch:   dispatch.NewRegistry(),
		rtpsDispatch:  dispatch.NewRegistry(),
		notifyReg:     notifyReg,
		shmSegment:    shmSegment,
		shmNotify:     shmNotify,
		topo:          topo,
		channels:      make(map[channelKey]any),
	}
}

// IsShutdown reports whether Shutdown has been called. Every exported
// constructor below checks this first and returns a neutral error
// without side effects once set, matching spec.md §5's "every public
// operation checks is_shutdown" rule.
func (f *Facade) IsShutdown() bool { return f.shutdown.Load() }

// Shutdown sets the facade's is_shutdown flag. Idempotent: calling it
// more than once has the same observable effect as calling it once
// (spec.md P6). It does not forcibly close endpoints already handed
// out — callers remain responsible for closing what they constructed.
func (f *Facade) Shutdown() {
	f.shutdown.Store(true)
}

var errFacadeShutdown = fmt.Errorf("transport: facade is shut down")

// channelFor returns the single process-local buffer.Channel[T] for
// (T, channelID), creating it on first use. Every transport converges
// its deliveries onto this one Channel per spec.md §4.2 ("Channel
// Buffer wraps one Cache Buffer"); its OnInsert hook fans out to the
// intra Dispatcher registry and the Data Notifier Registry regardless
// of which transport actually carried a given arrival, so a registered
// consumer sees every message on the channel exactly once no matter
// how Hybrid selected to deliver it.
//
// Fails if capacity (attr.QoS.HistoryDepth) is less than 1 — spec.md
// §7 treats a zero-capacity buffer as a construction-time
// misconfiguration surfaced to the caller, not a value to silently
// round up.
func channelFor[T any](f *Facade, channelID role.ChannelID, capacity int) (*buffer.Channel[T], error) {
	var zero T
	k := channelKey{msgType: reflect.TypeOf(zero), channelID: channelID}

	f.mu.Lock()
	defer f.mu.Unlock()

	if existing, ok := f.channels[k]; ok {
		return existing.(*buffer.Channel[T]), nil
	}

	channel, err := buffer.NewChannel[T](channelID, capacity)
	if err != nil {
		return nil, fmt.Errorf("transport: channel %d: %w", channelID, err)
	}
	dispatcher := dispatch.Get[T](f.intraDispatch, channelID)
	channel.OnInsert = func(seq uint64, msg T) {
		dispatcher.Dispatch(seq, msg)
		f.notifyReg.Publish(notify.ReadableInfo{ChannelID: channelID, Sequence: seq})
	}
	f.channels[k] = channel
	return channel, nil
}

// IntraDispatcher exposes the raw per-channel intra Dispatcher for
// callers that want to register a callback without going through a
// Hybrid receiver.
func IntraDispatcher[T any](f *Facade, channelID role.ChannelID) *dispatch.Dispatcher[T] {
	return dispatch.Get[T](f.intraDispatch, channelID)
}

// The concrete, type-parameterized constructors below are free
// functions (as with dispatch.Get) because Go methods cannot carry
// their own type parameters.

// NewIntraEndpoint builds an Intra Transmitter/Receiver pair for attr
// and joins attr with the Topology Manager. The Receiver is the
// channel's own Dispatcher[T], which already satisfies Receiver[T].
func NewIntraEndpoint[T any](f *Facade, attr role.Attributes) (*IntraTransmitter[T], *dispatch.Dispatcher[T], error) {
	if f.IsShutdown() {
		return nil, nil, errFacadeShutdown
	}
	channel, err := channelFor[T](f, attr.ChannelID, attr.QoS.HistoryDepth)
	if err != nil {
		return nil, nil, err
	}
	f.topo.JoinChannel(attr)
	return NewIntraTransmitter[T](channel), IntraDispatcher[T](f, attr.ChannelID), nil
}

// NewShmEndpoint builds a Shm Transmitter/Receiver pair for attr over
// the facade's shared shm segment and notifier. f.shmSegment and
// f.shmNotify must be non-nil, or construction fails.
func NewShmEndpoint[T any](f *Facade, attr role.Attributes) (*ShmTransmitter[T], *ShmReceiver[T], error) {
	if f.IsShutdown() {
		return nil, nil, errFacadeShutdown
	}
	if f.shmSegment == nil || f.shmNotify == nil {
		return nil, nil, fmt.Errorf("transport: facade has no shm segment/notifier configured")
	}
	channel, err := channelFor[T](f, attr.ChannelID, attr.QoS.HistoryDepth)
	if err != nil {
		return nil, nil, err
	}
	f.topo.JoinChannel(attr)

	tx := NewShmTransmitter[T](attr.ChannelID, f.shmSegment, f.shmNotify)
	rx := NewShmReceiver[T](attr.ChannelID, f.shmSegment, f.shmNotify, channel)
	return tx, rx, nil
}

// NewRtpsEndpoint builds an Rtps Transmitter/Receiver pair for attr
// against the facade's participant. Fails if no participant was
// configured.
func NewRtpsEndpoint[T any](f *Facade, attr role.Attributes) (*RtpsTransmitter[T], *RtpsReceiver[T], error) {
	if f.IsShutdown() {
		return nil, nil, errFacadeShutdown
	}
	if f.participant == nil {
		return nil, nil, fmt.Errorf("transport: facade has no rtps participant configured")
	}
	channel, err := channelFor[T](f, attr.ChannelID, attr.QoS.HistoryDepth)
	if err != nil {
		return nil, nil, err
	}
	f.topo.JoinChannel(attr)

	tx, err := NewRtpsTransmitter[T](f.participant, attr.ChannelID)
	if err != nil {
		return nil, nil, err
	}
	rx, err := NewRtpsReceiver[T](f.participant, attr.ChannelID, channel)
	if err != nil {
		tx.Close()
		return nil, nil, err
	}
	return tx, rx, nil
}

// NewHybridEndpoint builds a Hybrid Transmitter/Receiver pair for attr,
// wiring whichever of Intra/Shm/Rtps are actually available on this
// facade (a facade with no participant still works, simply never
// selecting rtps; likewise for a facade with no shm segment).
func NewHybridEndpoint[T any](f *Facade, attr role.Attributes) (*HybridTransmitter[T], *HybridReceiver[T], error) {
	if f.IsShutdown() {
		return nil, nil, errFacadeShutdown
	}
	channel, err := channelFor[T](f, attr.ChannelID, attr.QoS.HistoryDepth)
	if err != nil {
		return nil, nil, err
	}
	f.topo.JoinChannel(attr)

	intraTx := NewIntraTransmitter[T](channel)

	var shmTx *ShmTransmitter[T]
	if f.shmSegment != nil && f.shmNotify != nil {
		shmTx = NewShmTransmitter[T](attr.ChannelID, f.shmSegment, f.shmNotify)
	}

	var rtpsTx *RtpsTransmitter[T]
	if f.participant != nil {
		var err error
		rtpsTx, err = NewRtpsTransmitter[T](f.participant, attr.ChannelID)
		if err != nil {
			return nil, nil, err
		}
	}

	hybridTx := NewHybridTransmitter[T](attr.ChannelID, f.hostName, f.processID, intraTx, shmTx, rtpsTx, f.topo)

	dispatcher := IntraDispatcher[T](f, attr.ChannelID)

	var newShmReceiver func() *ShmReceiver[T]
	if f.shmSegment != nil && f.shmNotify != nil {
		newShmReceiver = func() *ShmReceiver[T] {
			return NewShmReceiver[T](attr.ChannelID, f.shmSegment, f.shmNotify, channel)
		}
	}

	var newRtpsReceiver func() (*RtpsReceiver[T], error)
	if f.participant != nil {
		newRtpsReceiver = func() (*RtpsReceiver[T], error) {
			return NewRtpsReceiver[T](f.participant, attr.ChannelID, channel)
		}
	}

	hybridRx := NewHybridReceiver[T](attr.ChannelID, f.hostName, f.processID, dispatcher, newShmReceiver, newRtpsReceiver, f.topo)

	return hybridTx, hybridRx, nil
}

// LeaveEndpoint tells the Topology Manager this endpoint is gone. It
// does not close the transmitter/receiver themselves — callers close
// those directly, then call LeaveEndpoint so Hybrid peers elsewhere
// stop selecting a transport that no longer has a live subscriber here.
func (f *Facade) LeaveEndpoint(attr role.Attributes) {
	f.topo.LeaveChannel(attr)
}
