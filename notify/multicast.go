// Copyright 2026 The Cyberbus Authors
// SPDX-License-Identifier: Apache-2.0

package notify

import (
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"time"

	"github.com/cyberbus/cyberbus/role"
	"golang.org/x/net/ipv4"
)

// Multicast is the UDP multicast Notifier variant: every Notify call
// serializes one ReadableInfo into a single UDP datagram addressed to a
// multicast group. Delivery is not guaranteed and duplicates are
// tolerated — consumers always re-validate against the channel buffer
// before trusting a notification.
//
// Built on golang.org/x/net/ipv4.PacketConn for explicit multicast
// group join and loopback control rather than the narrower stdlib
// net.ListenMulticastUDP, which does not expose loopback control. The
// multicast TTL is left at the system default.
type Multicast struct {
	conn    *ipv4.PacketConn
	group   *net.UDPAddr
	rawConn *net.UDPConn
}

// NewMulticast joins the given multicast group address (e.g.
// "239.10.10.1:9700") on the named interface. An empty ifaceName lets
// the kernel choose the outgoing interface.
func NewMulticast(groupAddr, ifaceName string) (*Multicast, error) {
	addr, err := net.ResolveUDPAddr("udp4", groupAddr)
	if err != nil {
		return nil, fmt.Errorf("notify: resolve multicast addr: %w", err)
	}

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{Port: addr.Port})
	if err != nil {
		return nil, fmt.Errorf("notify: listen udp: %w", err)
	}

	pconn := ipv4.NewPacketConn(conn)

	var iface *net.Interface
	if ifaceName != "" {
		iface, err = net.InterfaceByName(ifaceName)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("notify: interface %s: %w", ifaceName, err)
		}
	}

	if err := pconn.JoinGroup(iface, addr); err != nil {
		conn.Close()
		return nil, fmt.Errorf("notify: join group %s: %w", addr, err)
	}
	if err := pconn.SetMulticastLoopback(true); err != nil {
		conn.Close()
		return nil, fmt.Errorf("notify: set loopback: %w", err)
	}

	return &Multicast{conn: pconn, group: addr, rawConn: conn}, nil
}

// Notify serializes info into a 16-byte datagram and sends it to the
// multicast group.
func (m *Multicast) Notify(info ReadableInfo) error {
	buf := make([]byte, conditionSlotSize)
	binary.LittleEndian.PutUint64(buf[0:8], uint64(info.ChannelID))
	binary.LittleEndian.PutUint64(buf[8:16], info.Sequence)

	_, err := m.conn.WriteTo(buf, nil, m.group)
	if err != nil {
		return fmt.Errorf("notify: multicast send: %w", err)
	}
	return nil
}

// Listen blocks until a datagram arrives on the joined group or ctx is
// done.
func (m *Multicast) Listen(ctx context.Context) (ReadableInfo, error) {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			m.rawConn.SetReadDeadline(time.Now())
		case <-done:
		}
	}()
	defer close(done)

	buf := make([]byte, conditionSlotSize)
	n, _, _, err := m.conn.ReadFrom(buf)
	if err != nil {
		if ctx.Err() != nil {
			m.rawConn.SetReadDeadline(time.Time{})
			return ReadableInfo{}, ctx.Err()
		}
		return ReadableInfo{}, fmt.Errorf("notify: multicast read: %w", err)
	}
	if n < conditionSlotSize {
		return ReadableInfo{}, fmt.Errorf("notify: short multicast datagram (%d bytes)", n)
	}

	return ReadableInfo{
		ChannelID: role.ChannelID(binary.LittleEndian.Uint64(buf[0:8])),
		Sequence:  binary.LittleEndian.Uint64(buf[8:16]),
	}, nil
}

// Shutdown leaves the multicast group and closes the socket.
func (m *Multicast) Shutdown() {
	m.conn.LeaveGroup(nil, m.group)
	m.conn.Close()
}
