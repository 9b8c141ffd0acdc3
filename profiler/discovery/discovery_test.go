// Copyright 2026 The BP3D Tracing Authors.
// Licensed under the Apache License, Version 2.0.

package discovery

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPacketRoundTrip(t *testing.T) {
	data := BuildPacket(3, "myapp")
	require.Len(t, data, PacketSize)

	got, ok := ParsePacket(data)
	require.True(t, ok)
	assert.Equal(t, uint64(3), got.Major)
	assert.Equal(t, "myapp", got.AppName)
}

func TestParsePacketRejectsWrongSize(t *testing.T) {
	_, ok := ParsePacket([]byte{1, 2, 3})
	assert.False(t, ok)
}

func TestParsePacketRejectsBadSignature(t *testing.T) {
	data := BuildPacket(1, "app")
	data[0] ^= 0xFF
	_, ok := ParsePacket(data)
	assert.False(t, ok)
}

func TestAppNameTruncatedToFit(t *testing.T) {
	long := make([]byte, PacketSize)
	for i := range long {
		long[i] = 'a'
	}
	data := BuildPacket(1, string(long))
	got, ok := ParsePacket(data)
	require.True(t, ok)
	assert.Equal(t, appNameSize, len(got.AppName))
}

func TestBroadcasterSendsPeriodically(t *testing.T) {
	ln, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	require.NoError(t, err)
	defer ln.Close()

	b, err := newBroadcasterTo(ln.LocalAddr().String(), 1, "testapp")
	require.NoError(t, err)
	b.interval = 20 * time.Millisecond
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Run(ctx)

	buf := make([]byte, PacketSize)
	require.NoError(t, ln.SetReadDeadline(time.Now().Add(2*time.Second)))
	n, _, err := ln.ReadFromUDP(buf)
	require.NoError(t, err)
	assert.Equal(t, PacketSize, n)

	pkt, ok := ParsePacket(buf[:n])
	require.True(t, ok)
	assert.Equal(t, "testapp", pkt.AppName)
}
