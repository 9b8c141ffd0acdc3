// Copyright 2026 The BP3D Tracing Authors.
// Licensed under the Apache License, Version 2.0.

// Package discovery implements an optional UDP auto-discovery
// broadcaster: a periodic fixed-size packet advertising the
// profiler's signature, wire version and app name, so a debugger UI
// on the same network can find the port without being told it
// explicitly. It is independent of the TCP worker loop — disabled,
// the worker is unaffected.
package discovery

import (
	"context"
	"encoding/binary"
	"errors"
	"net"
	"strconv"
	"time"

	internallog "github.com/bp3d-tracing/tracing/internal/log"
	"github.com/bp3d-tracing/tracing/profiler/wire"
)

// PacketSize is the fixed UDP payload size: 8-byte signature, 8-byte
// little-endian major version, and 112 bytes of NUL-padded app name.
const PacketSize = 128

const appNameSize = PacketSize - len(wire.Signature) - 8

// DefaultInterval is how often Broadcaster re-sends its packet.
const DefaultInterval = 5 * time.Second

// Packet is a decoded discovery broadcast.
type Packet struct {
	Major   uint64
	AppName string
}

// BuildPacket encodes a Packet into its fixed 128-byte wire form.
func BuildPacket(major uint64, appName string) []byte {
	buf := make([]byte, PacketSize)
	copy(buf[0:len(wire.Signature)], wire.Signature[:])
	binary.LittleEndian.PutUint64(buf[8:16], major)
	if len(appName) > appNameSize {
		appName = appName[:appNameSize]
	}
	copy(buf[16:], appName)
	return buf
}

// ParsePacket decodes a received broadcast, rejecting anything that
// doesn't carry this library's signature.
func ParsePacket(data []byte) (Packet, bool) {
	if len(data) != PacketSize {
		return Packet{}, false
	}
	for i, b := range wire.Signature {
		if data[i] != b {
			return Packet{}, false
		}
	}
	major := binary.LittleEndian.Uint64(data[8:16])
	name := data[16:]
	if idx := indexZero(name); idx >= 0 {
		name = name[:idx]
	}
	return Packet{Major: major, AppName: string(name)}, true
}

func indexZero(b []byte) int {
	for i, c := range b {
		if c == 0 {
			return i
		}
	}
	return -1
}

// Broadcaster periodically sends a discovery packet to the UDP
// broadcast address on the profiler's configured port.
type Broadcaster struct {
	conn     *net.UDPConn
	packet   []byte
	interval time.Duration
}

// NewBroadcaster opens a UDP socket targeting the limited broadcast
// address on port, ready to advertise appName at the given wire major
// version.
func NewBroadcaster(port uint16, major uint64, appName string) (*Broadcaster, error) {
	return newBroadcasterTo(net.JoinHostPort("255.255.255.255", strconv.Itoa(int(port))), major, appName)
}

func newBroadcasterTo(target string, major uint64, appName string) (*Broadcaster, error) {
	addr, err := net.ResolveUDPAddr("udp4", target)
	if err != nil {
		return nil, err
	}
	conn, err := net.DialUDP("udp4", nil, addr)
	if err != nil {
		return nil, err
	}
	return &Broadcaster{conn: conn, packet: BuildPacket(major, appName), interval: DefaultInterval}, nil
}

// Run broadcasts the packet every interval until ctx is canceled or
// Close is called. A single send failure is logged and retried on the
// next tick rather than ending the loop.
func (b *Broadcaster) Run(ctx context.Context) error {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := b.conn.Write(b.packet); err != nil {
				if errors.Is(err, net.ErrClosed) {
					return nil
				}
				internallog.Warn("discovery: broadcast failed: %v", err)
			}
		}
	}
}

// Close releases the broadcaster's socket.
func (b *Broadcaster) Close() error {
	return b.conn.Close()
}
