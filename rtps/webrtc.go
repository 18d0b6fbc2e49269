// Copyright 2026 The Cyberbus Authors
// SPDX-License-Identifier: Apache-2.0

package rtps

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cyberbus/cyberbus/role"
	"github.com/pion/webrtc/v4"
)

var _ Participant = (*WebRTCParticipant)(nil)

const (
	signalingPollInterval = 2 * time.Second
	iceGatherTimeout       = 15 * time.Second
	answerPollInterval     = 500 * time.Millisecond
	answerTimeout          = 30 * time.Second
	dataChannelOpenTimeout = 10 * time.Second

	// frameHeaderSize is the on-wire size of a message frame header: an
	// 8-byte channel id plus a 4-byte payload length, both big-endian.
	// One data channel per peer multiplexes every channel id this way,
	// rather than one data channel per (peer, channel) pair — the
	// underlying datagram library is a black box per spec.md §1, so how
	// it multiplexes channels internally is this package's own choice.
	frameHeaderSize = 12
)

// WebRTCParticipant is the one concrete rtps.Participant this module
// ships, built on pion's WebRTC SCTP data channels.
//
// Adapted from the teacher's transport.WebRTCTransport: the same
// peer-connection lifecycle (vanilla ICE — gather fully before
// publishing the SDP, so establishment takes exactly one signaling
// round trip) and the same offer/answer race tie-break (lower
// participant name is the canonical offerer), repurposed from
// "daemon-to-daemon HTTP forwarding over per-dial data channels" to
// "one long-lived, channel-multiplexed data channel per peer carrying
// framed rtps messages".
type WebRTCParticipant struct {
	name          string
	signaler      Signaler
	authenticator PeerAuthenticator
	logger        *slog.Logger

	configMu  sync.RWMutex
	iceConfig ICEConfig

	mu    sync.Mutex
	peers map[string]*peerConn

	subMu       sync.Mutex
	subscribers map[role.ChannelID]func([]byte)

	discoveryMu sync.Mutex
	discoveryFn func(DiscoveryEvent)

	dropCount atomic.Int64

	cancel    context.CancelFunc
	closed    chan struct{}
	closeOnce sync.Once
}

// peerConn tracks the WebRTC PeerConnection to one remote participant.
type peerConn struct {
	name        string
	pc          *webrtc.PeerConnection
	established chan struct{}

	writeMu sync.Mutex
	conn    *DataChannelConn // set once the data channel is open and detached
}

// NewWebRTCParticipant creates an rtps Participant named name (expected
// to be topology.ParticipantName(hostName, processID)) and starts its
// signaling poller in the background. authenticator may be nil to skip
// mutual peer authentication.
func NewWebRTCParticipant(name string, signaler Signaler, iceConfig ICEConfig, authenticator PeerAuthenticator, logger *slog.Logger) *WebRTCParticipant {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	wp := &WebRTCParticipant{
		name:          name,
		signaler:      signaler,
		authenticator: authenticator,
		logger:        logger,
		iceConfig:     iceConfig,
		peers:         make(map[string]*peerConn),
		subscribers:   make(map[role.ChannelID]func([]byte)),
		cancel:        cancel,
		closed:        make(chan struct{}),
	}
	go wp.signalingPoller(ctx)
	return wp
}

func (wp *WebRTCParticipant) Name() string { return wp.name }

// DropCount reports how many outbound frames have been dropped because
// a connected peer had no open data channel yet or the write to it
// failed; publishing with no peers at all drops nothing — the rtps
// analogue of spec.md §7's "transport drop" counter.
func (wp *WebRTCParticipant) DropCount() int64 { return wp.dropCount.Load() }

// OnDiscovery registers fn to be called whenever a peer connects or
// disconnects.
func (wp *WebRTCParticipant) OnDiscovery(fn func(DiscoveryEvent)) {
	wp.discoveryMu.Lock()
	wp.discoveryFn = fn
	wp.discoveryMu.Unlock()
}

func (wp *WebRTCParticipant) fireDiscovery(peerName string, joined bool) {
	wp.discoveryMu.Lock()
	fn := wp.discoveryFn
	wp.discoveryMu.Unlock()
	if fn != nil {
		fn(DiscoveryEvent{PeerName: peerName, Joined: joined})
	}
}

// Publisher returns a handle that fans payloads out to every currently
// connected peer on the given channel id.
func (wp *WebRTCParticipant) Publisher(channel role.ChannelID) (Publisher, error) {
	select {
	case <-wp.closed:
		return nil, fmt.Errorf("rtps: participant shut down")
	default:
	}
	return &channelPublisher{participant: wp, channel: channel}, nil
}

type channelPublisher struct {
	participant *WebRTCParticipant
	channel     role.ChannelID
}

// Publish writes payload, framed with this publisher's channel id, to
// every peer connection currently established. A peer with no open
// data channel yet, or a write that errors, is counted as a transport
// drop (spec.md §7) rather than failing the whole call — per-message
// delivery to a slow or half-established peer is best-effort.
func (p *channelPublisher) Publish(payload []byte) error {
	wp := p.participant
	select {
	case <-wp.closed:
		return fmt.Errorf("rtps: participant shut down")
	default:
	}

	frame := make([]byte, frameHeaderSize+len(payload))
	binary.BigEndian.PutUint64(frame[0:8], uint64(p.channel))
	binary.BigEndian.PutUint32(frame[8:12], uint32(len(payload)))
	copy(frame[frameHeaderSize:], payload)

	wp.mu.Lock()
	peers := make([]*peerConn, 0, len(wp.peers))
	for _, peer := range wp.peers {
		peers = append(peers, peer)
	}
	wp.mu.Unlock()

	for _, peer := range peers {
		peer.writeMu.Lock()
		conn := peer.conn
		if conn == nil {
			peer.writeMu.Unlock()
			wp.dropCount.Add(1)
			continue
		}
		_, err := conn.Write(frame)
		peer.writeMu.Unlock()
		if err != nil {
			wp.dropCount.Add(1)
		}
	}
	return nil
}

func (p *channelPublisher) Close() error { return nil }

// Subscriber registers onMessage to receive every payload published on
// the given channel id by any peer. Only one subscriber per channel id
// is supported at the rtps layer — local fan-out to multiple consumers
// is the Dispatcher's job (spec.md §4.3), not this transport's.
func (wp *WebRTCParticipant) Subscriber(channel role.ChannelID, onMessage func([]byte)) (Subscriber, error) {
	select {
	case <-wp.closed:
		return nil, fmt.Errorf("rtps: participant shut down")
	default:
	}
	wp.subMu.Lock()
	wp.subscribers[channel] = onMessage
	wp.subMu.Unlock()
	return &channelSubscriber{participant: wp, channel: channel}, nil
}

type channelSubscriber struct {
	participant *WebRTCParticipant
	channel     role.ChannelID
}

func (s *channelSubscriber) Close() error {
	wp := s.participant
	wp.subMu.Lock()
	delete(wp.subscribers, s.channel)
	wp.subMu.Unlock()
	return nil
}

// Shutdown closes every peer connection and stops the signaling
// poller. Idempotent.
func (wp *WebRTCParticipant) Shutdown() error {
	wp.closeOnce.Do(func() {
		close(wp.closed)
		wp.cancel()
		wp.mu.Lock()
		for name, peer := range wp.peers {
			peer.pc.Close()
			delete(wp.peers, name)
		}
		wp.mu.Unlock()
	})
	return nil
}

// UpdateICEConfig replaces the ICE configuration used for new peer
// connections; existing connections are unaffected.
func (wp *WebRTCParticipant) UpdateICEConfig(config ICEConfig) {
	wp.configMu.Lock()
	defer wp.configMu.Unlock()
	wp.iceConfig = config
}

func (wp *WebRTCParticipant) signalingPoller(ctx context.Context) {
	ticker := time.NewTicker(signalingPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-wp.closed:
			return
		case <-ticker.C:
			wp.processInboundOffers(ctx)
		}
	}
}

func (wp *WebRTCParticipant) processInboundOffers(ctx context.Context) {
	offers, err := wp.signaler.PollOffers(ctx, wp.name)
	if err != nil {
		wp.logger.Warn("rtps: polling for SDP offers failed", "error", err)
		return
	}
	for _, offer := range offers {
		wp.mu.Lock()
		existing, hasExisting := wp.peers[offer.PeerName]
		wp.mu.Unlock()

		if hasExisting {
			state := existing.pc.ICEConnectionState()
			alive := state != webrtc.ICEConnectionStateFailed && state != webrtc.ICEConnectionStateClosed
			if alive && offer.PeerName > wp.name {
				// We are the canonical offerer and already have (or are
				// establishing) a connection; ignore their offer.
				continue
			}
			wp.mu.Lock()
			existing.pc.Close()
			delete(wp.peers, offer.PeerName)
			wp.mu.Unlock()
		}

		if err := wp.answerOffer(ctx, offer); err != nil {
			wp.logger.Error("rtps: answering offer failed", "peer", offer.PeerName, "error", err)
		}
	}
}

// connect establishes (or returns the existing) peer connection to
// peerName, publishing an SDP offer and waiting for the answer.
func (wp *WebRTCParticipant) connect(ctx context.Context, peerName string) (*peerConn, error) {
	select {
	case <-wp.closed:
		return nil, fmt.Errorf("rtps: participant shut down")
	default:
	}

	wp.mu.Lock()
	if peer, ok := wp.peers[peerName]; ok {
		state := peer.pc.ICEConnectionState()
		if state != webrtc.ICEConnectionStateFailed && state != webrtc.ICEConnectionStateClosed {
			wp.mu.Unlock()
			select {
			case <-peer.established:
				return peer, nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		peer.pc.Close()
		delete(wp.peers, peerName)
	}

	pc, err := wp.newPeerConnection()
	if err != nil {
		wp.mu.Unlock()
		return nil, fmt.Errorf("rtps: creating peer connection: %w", err)
	}
	peer := &peerConn{name: peerName, pc: pc, established: make(chan struct{})}
	wp.peers[peerName] = peer
	wp.mu.Unlock()

	pc.OnDataChannel(func(dc *webrtc.DataChannel) { wp.handleInboundDataChannel(dc, peer) })
	pc.OnICEConnectionStateChange(func(state webrtc.ICEConnectionState) { wp.handleICEStateChange(peer, state) })

	dataChannel, err := pc.CreateDataChannel("data", nil)
	if err != nil {
		wp.dropPeer(peer)
		return nil, fmt.Errorf("rtps: creating data channel: %w", err)
	}
	wp.wireDataChannel(dataChannel, peer)

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		wp.dropPeer(peer)
		return nil, fmt.Errorf("rtps: creating SDP offer: %w", err)
	}
	gatherComplete := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(offer); err != nil {
		wp.dropPeer(peer)
		return nil, fmt.Errorf("rtps: setting local description: %w", err)
	}
	select {
	case <-gatherComplete:
	case <-time.After(iceGatherTimeout):
		wp.dropPeer(peer)
		return nil, fmt.Errorf("rtps: ICE gathering timed out")
	case <-ctx.Done():
		wp.dropPeer(peer)
		return nil, ctx.Err()
	}

	if err := wp.signaler.PublishOffer(ctx, wp.name, peerName, pc.LocalDescription().SDP); err != nil {
		wp.dropPeer(peer)
		return nil, fmt.Errorf("rtps: publishing offer: %w", err)
	}

	answerSDP, err := wp.waitForAnswer(ctx, peerName)
	if err != nil {
		wp.dropPeer(peer)
		return nil, fmt.Errorf("rtps: waiting for answer from %s: %w", peerName, err)
	}
	if err := pc.SetRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: answerSDP}); err != nil {
		wp.dropPeer(peer)
		return nil, fmt.Errorf("rtps: setting remote description: %w", err)
	}

	select {
	case <-peer.established:
		return peer, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (wp *WebRTCParticipant) waitForAnswer(ctx context.Context, peerName string) (string, error) {
	deadline := time.After(answerTimeout)
	ticker := time.NewTicker(answerPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-deadline:
			return "", fmt.Errorf("timed out after %s", answerTimeout)
		case <-ctx.Done():
			return "", ctx.Err()
		case <-wp.closed:
			return "", fmt.Errorf("rtps: participant shut down")
		case <-ticker.C:
			answers, err := wp.signaler.PollAnswers(ctx, wp.name)
			if err != nil {
				continue
			}
			for _, answer := range answers {
				if answer.PeerName == peerName {
					return answer.SDP, nil
				}
			}
		}
	}
}

func (wp *WebRTCParticipant) answerOffer(ctx context.Context, offer SignalMessage) error {
	pc, err := wp.newPeerConnection()
	if err != nil {
		return fmt.Errorf("creating peer connection: %w", err)
	}
	peer := &peerConn{name: offer.PeerName, pc: pc, established: make(chan struct{})}

	pc.OnDataChannel(func(dc *webrtc.DataChannel) { wp.handleInboundDataChannel(dc, peer) })
	pc.OnICEConnectionStateChange(func(state webrtc.ICEConnectionState) { wp.handleICEStateChange(peer, state) })

	if err := pc.SetRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: offer.SDP}); err != nil {
		pc.Close()
		return fmt.Errorf("setting remote description: %w", err)
	}
	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		pc.Close()
		return fmt.Errorf("creating SDP answer: %w", err)
	}
	gatherComplete := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(answer); err != nil {
		pc.Close()
		return fmt.Errorf("setting local description: %w", err)
	}
	select {
	case <-gatherComplete:
	case <-time.After(iceGatherTimeout):
		pc.Close()
		return fmt.Errorf("ICE gathering timed out")
	case <-ctx.Done():
		pc.Close()
		return ctx.Err()
	}
	if err := wp.signaler.PublishAnswer(ctx, offer.PeerName, wp.name, pc.LocalDescription().SDP); err != nil {
		pc.Close()
		return fmt.Errorf("publishing answer: %w", err)
	}

	wp.mu.Lock()
	wp.peers[offer.PeerName] = peer
	wp.mu.Unlock()
	return nil
}

// wireDataChannel attaches the open/detach handling shared by both the
// outbound CreateDataChannel call and an inbound OnDataChannel callback
// for the one "data" channel per peer.
func (wp *WebRTCParticipant) wireDataChannel(dc *webrtc.DataChannel, peer *peerConn) {
	dc.OnOpen(func() {
		raw, err := dc.Detach()
		if err != nil {
			wp.logger.Error("rtps: detaching data channel failed", "peer", peer.name, "error", err)
			return
		}
		conn := NewDataChannelConn(raw, wp.name+"/data", peer.name+"/data")

		if wp.authenticator != nil {
			conn.SetDeadline(time.Now().Add(authTimeout))
			if err := runPeerAuth(conn, wp.authenticator, wp.name, peer.name); err != nil {
				wp.logger.Error("rtps: peer authentication failed", "peer", peer.name, "error", err)
				conn.Close()
				wp.dropPeer(peer)
				return
			}
			conn.SetDeadline(time.Time{})
		}

		peer.writeMu.Lock()
		peer.conn = conn
		peer.writeMu.Unlock()
		go wp.readLoop(peer, conn)
	})
}

func (wp *WebRTCParticipant) handleInboundDataChannel(dc *webrtc.DataChannel, peer *peerConn) {
	if dc.Label() != "data" {
		return
	}
	wp.wireDataChannel(dc, peer)
}

func (wp *WebRTCParticipant) handleICEStateChange(peer *peerConn, state webrtc.ICEConnectionState) {
	switch state {
	case webrtc.ICEConnectionStateConnected, webrtc.ICEConnectionStateCompleted:
		select {
		case <-peer.established:
		default:
			close(peer.established)
			wp.fireDiscovery(peer.name, true)
		}
	case webrtc.ICEConnectionStateFailed, webrtc.ICEConnectionStateClosed:
		wp.dropPeer(peer)
	}
}

func (wp *WebRTCParticipant) dropPeer(peer *peerConn) {
	wp.mu.Lock()
	current, ok := wp.peers[peer.name]
	if ok && current == peer {
		delete(wp.peers, peer.name)
	}
	wp.mu.Unlock()
	if ok {
		wp.fireDiscovery(peer.name, false)
	}
}

// readLoop reads length-prefixed frames from one peer's data channel
// and dispatches each to the subscriber registered for its channel id,
// if any. A frame for a channel with no local subscriber is dropped
// silently (spec.md §7's "unknown channel" policy).
func (wp *WebRTCParticipant) readLoop(peer *peerConn, conn *DataChannelConn) {
	header := make([]byte, frameHeaderSize)
	for {
		if _, err := io.ReadFull(conn, header); err != nil {
			return
		}
		channelID := role.ChannelID(binary.BigEndian.Uint64(header[0:8]))
		length := binary.BigEndian.Uint32(header[8:12])
		payload := make([]byte, length)
		if _, err := io.ReadFull(conn, payload); err != nil {
			return
		}

		wp.subMu.Lock()
		onMessage := wp.subscribers[channelID]
		wp.subMu.Unlock()
		if onMessage != nil {
			onMessage(payload)
		}
	}
}

func (wp *WebRTCParticipant) newPeerConnection() (*webrtc.PeerConnection, error) {
	wp.configMu.RLock()
	config := webrtc.Configuration{ICEServers: wp.iceConfig.Servers}
	wp.configMu.RUnlock()

	settingEngine := webrtc.SettingEngine{}
	settingEngine.DetachDataChannels()
	settingEngine.SetIncludeLoopbackCandidate(true)

	api := webrtc.NewAPI(webrtc.WithSettingEngine(settingEngine))
	return api.NewPeerConnection(config)
}

// Connect establishes a peer connection to peerName if one does not
// already exist, blocking until ICE connects or ctx is done. Nothing in
// this module calls it in response to topology events; callers invoke
// it directly, and Publish alone never initiates a new connection.
func (wp *WebRTCParticipant) Connect(ctx context.Context, peerName string) error {
	_, err := wp.connect(ctx, peerName)
	return err
}
