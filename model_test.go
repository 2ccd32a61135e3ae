// @license
// Copyright (C) 2025  The tsndt authors
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testConfig(window int, idleTicks int) *Config {
	return &Config{
		TickRate:    time.Second,
		WindowSize:  window,
		IdleTimeout: time.Duration(idleTicks) * time.Second,
	}
}

func testModel(t *testing.T, cfg *Config, ifaces []ifaceInfo) *Model {
	t.Helper()

	m, err := NewModel(cfg, ifaces, 64)
	require.NoError(t, err)

	return m
}

func TestSeriesCapDropsOldest(t *testing.T) {
	s := newSeries(5)

	for i := 1; i <= 8; i++ {
		s.push(float64(i), float64(i*10))
	}

	pts := s.points()
	require.Len(t, pts, 5)

	// Oldest three dropped, insertion order preserved.
	require.Equal(t, point{Tick: 4, Delta: 40}, pts[0])
	require.Equal(t, point{Tick: 8, Delta: 80}, pts[4])
}

func TestClampedDelta(t *testing.T) {
	tests := []struct {
		name      string
		cur, prev uint64
		want      float64
	}{
		{"increase", 125, 100, 25},
		{"no change", 100, 100, 0},
		{"from zero", 10, 0, 10},
		{"counter reset", 40, 100, 40},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := clampedDelta(tt.cur, tt.prev); got != tt.want {
				t.Errorf("clampedDelta(%d, %d) = %v, want %v", tt.cur, tt.prev, got, tt.want)
			}
		})
	}
}

func TestObserveInterfaceDeltas(t *testing.T) {
	cfg := testConfig(50, 300)
	m := testModel(t, cfg, []ifaceInfo{{Index: 2, Name: "eth0"}})

	ent := m.Interface(2)
	require.NotNil(t, ent)
	require.True(t, ent.Collecting)

	m.BeginTick()
	m.ObserveInterface(2, 10, 1500)
	m.AdvanceWindow()

	m.BeginTick()
	m.ObserveInterface(2, 25, 3200)
	m.AdvanceWindow()

	// Initial zero point plus one delta point per tick.
	require.Equal(t, []point{{0, 0}, {1, 10}, {2, 15}}, ent.packets.points())
	require.Equal(t, []point{{0, 0}, {1, 1500}, {2, 1700}}, ent.bytes.points())
	require.Equal(t, uint64(25), ent.CumulPackets)
	require.Equal(t, uint64(3200), ent.CumulBytes)
}

func TestObserveInterfaceUnknownIgnored(t *testing.T) {
	cfg := testConfig(50, 300)
	m := testModel(t, cfg, []ifaceInfo{{Index: 2, Name: "eth0"}})

	m.BeginTick()
	m.ObserveInterface(99, 10, 1500)

	// The interface key set is fixed at startup.
	require.Len(t, m.Interfaces(), 1)
	require.Nil(t, m.Interface(99))
}

func TestWindowScrollsAfterFilling(t *testing.T) {
	cfg := testConfig(3, 300)
	m := testModel(t, cfg, nil)

	require.Equal(t, [2]float64{0, 3}, m.Window())

	for i := 0; i < 3; i++ {
		m.BeginTick()
		m.AdvanceWindow()
	}

	// Still filling: tick == window size, no scroll yet.
	require.Equal(t, [2]float64{0, 3}, m.Window())

	m.BeginTick()
	m.AdvanceWindow()
	require.Equal(t, [2]float64{1, 4}, m.Window())

	m.BeginTick()
	m.AdvanceWindow()
	require.Equal(t, [2]float64{2, 5}, m.Window())
}

func TestObserveAddressLazyRegistration(t *testing.T) {
	cfg := testConfig(50, 300)
	m := testModel(t, cfg, nil)
	mac := macAddr{0xaa, 0xbb, 0xcc, 0x00, 0x11, 0x22}

	m.BeginTick()
	m.ObserveAddress(mac, 7, 900)

	require.Equal(t, []macAddr{mac}, m.Addresses())

	ent := m.Address(mac)
	require.NotNil(t, ent)

	// First delta is computed against zero.
	require.Equal(t, []point{{1, 7}}, ent.packets.points())
	require.Equal(t, []point{{1, 900}}, ent.bytes.points())
}

func TestIdleEviction(t *testing.T) {
	const idleTicks = 3

	cfg := testConfig(50, idleTicks)
	m := testModel(t, cfg, nil)
	mac := macAddr{0xaa, 0xbb, 0xcc, 0x00, 0x11, 0x22}

	// Active at tick 5.
	for i := 0; i < 5; i++ {
		m.BeginTick()
		if m.Tick() == 5 {
			m.ObserveAddress(mac, 7, 900)
		} else {
			require.Empty(t, m.EvictIdle())
		}
		m.AdvanceWindow()
	}

	m.ToggleDisplay(mac)
	require.True(t, m.Displaying(mac))

	// Unchanged cumulative readings keep arriving but carry no new packets,
	// so they do not refresh activity.
	for i := 0; i < idleTicks; i++ {
		m.BeginTick()
		m.ObserveAddress(mac, 7, 900)
		require.Empty(t, m.EvictIdle())
		m.AdvanceWindow()
	}

	// One tick past the timeout the address is gone from every table.
	m.BeginTick()
	m.ObserveAddress(mac, 7, 900)
	require.Equal(t, []macAddr{mac}, m.EvictIdle())
	m.AdvanceWindow()

	require.Empty(t, m.Addresses())
	require.Nil(t, m.Address(mac))
	require.False(t, m.Displaying(mac))

	// A later packet starts a fresh entity with no history.
	m.BeginTick()
	m.ObserveAddress(mac, 9, 1100)

	ent := m.Address(mac)
	require.NotNil(t, ent)
	require.Equal(t, []point{{10, 9}}, ent.packets.points())
}

func TestActivityFollowsPacketDeltaOnly(t *testing.T) {
	const idleTicks = 2

	cfg := testConfig(50, idleTicks)
	m := testModel(t, cfg, nil)
	mac := macAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x01}

	m.BeginTick()
	m.ObserveAddress(mac, 5, 500)

	// Byte growth without packet growth does not count as activity.
	for i := 0; i < idleTicks; i++ {
		m.BeginTick()
		m.ObserveAddress(mac, 5, 500+uint64(i)*100)
		require.Empty(t, m.EvictIdle())
	}

	m.BeginTick()
	m.ObserveAddress(mac, 5, 900)
	require.Equal(t, []macAddr{mac}, m.EvictIdle())
}

func TestCapacityEvictionReportsKeys(t *testing.T) {
	cfg := testConfig(50, 300)

	m, err := NewModel(cfg, nil, 2)
	require.NoError(t, err)

	macs := []macAddr{
		{0x02, 0, 0, 0, 0, 1},
		{0x02, 0, 0, 0, 0, 2},
		{0x02, 0, 0, 0, 0, 3},
	}

	m.BeginTick()
	for i, mac := range macs {
		m.ObserveAddress(mac, uint64(i+1), 100)
	}

	// The third insert pushed out the least recently active address, and the
	// eviction pass must surface it so the kernel entry can be deleted too.
	require.Equal(t, []macAddr{macs[0]}, m.EvictIdle())
	require.ElementsMatch(t, macs[1:], m.Addresses())
}

func TestCapacityEvictionSparesReobservedKey(t *testing.T) {
	cfg := testConfig(50, 300)

	m, err := NewModel(cfg, nil, 2)
	require.NoError(t, err)

	macs := []macAddr{
		{0x02, 0, 0, 0, 0, 1},
		{0x02, 0, 0, 0, 0, 2},
		{0x02, 0, 0, 0, 0, 3},
	}

	// One pass: the third address pushes out the first, which then shows up
	// again before the eviction step runs (its kernel entry is still live).
	m.BeginTick()
	for i, mac := range macs {
		m.ObserveAddress(mac, uint64(i+1), 100)
	}
	m.ObserveAddress(macs[0], 4, 200)

	// Re-adding the first address reclaimed the second; only the second may
	// be reported for kernel deletion, and the first must stay tracked once.
	require.Equal(t, []macAddr{macs[1]}, m.EvictIdle())
	require.Equal(t, []macAddr{macs[0], macs[2]}, m.Addresses())
	require.NotNil(t, m.Address(macs[0]))
}

func TestSortAddresses(t *testing.T) {
	cfg := testConfig(50, 300)
	m := testModel(t, cfg, nil)

	m.BeginTick()
	m.ObserveAddress(macAddr{0x0c, 0, 0, 0, 0, 1}, 1, 10)
	m.ObserveAddress(macAddr{0x0a, 0, 0, 0, 0, 1}, 1, 10)
	m.ObserveAddress(macAddr{0x0b, 0, 0, 0, 0, 1}, 1, 10)

	m.SortAddresses()

	require.Equal(t, []macAddr{
		{0x0a, 0, 0, 0, 0, 1},
		{0x0b, 0, 0, 0, 0, 1},
		{0x0c, 0, 0, 0, 0, 1},
	}, m.Addresses())
}

func TestToggleDisplay(t *testing.T) {
	cfg := testConfig(50, 300)
	m := testModel(t, cfg, nil)
	mac := macAddr{0x02, 0, 0, 0, 0, 1}

	require.False(t, m.Displaying(mac))
	m.ToggleDisplay(mac)
	require.True(t, m.Displaying(mac))
	m.ToggleDisplay(mac)
	require.False(t, m.Displaying(mac))
}

func TestResetInterfaceSeries(t *testing.T) {
	cfg := testConfig(50, 300)
	m := testModel(t, cfg, []ifaceInfo{{Index: 1, Name: "lo"}})

	for i := 0; i < 4; i++ {
		m.BeginTick()
		m.ObserveInterface(1, uint64((i+1)*10), uint64((i+1)*100))
		m.AdvanceWindow()
	}

	m.ResetInterfaceSeries(1)

	ent := m.Interface(1)
	require.Equal(t, []point{{4, 0}}, ent.packets.points())
	require.Equal(t, []point{{4, 0}}, ent.bytes.points())

	// Cumulative totals survive a series reset.
	require.Equal(t, uint64(40), ent.CumulPackets)
}

func TestSeriesNeverExceedsWindow(t *testing.T) {
	const window = 4

	cfg := testConfig(window, 300)
	m := testModel(t, cfg, []ifaceInfo{{Index: 1, Name: "lo"}})

	for i := 1; i <= 10; i++ {
		m.BeginTick()
		m.ObserveInterface(1, uint64(i*10), uint64(i*100))
		require.LessOrEqual(t, len(m.Interface(1).packets.points()), window)
		m.AdvanceWindow()
	}

	pts := m.Interface(1).packets.points()
	require.Len(t, pts, window)
	require.Equal(t, point{Tick: 10, Delta: 10}, pts[window-1])
}

func TestSnapshot(t *testing.T) {
	cfg := testConfig(50, 300)
	m := testModel(t, cfg, []ifaceInfo{{Index: 2, Name: "eth0"}})
	mac := macAddr{0xde, 0xad, 0xbe, 0xef, 0x00, 0x01}

	m.BeginTick()
	m.ObserveInterface(2, 10, 1500)
	m.ObserveAddress(mac, 4, 600)
	m.AdvanceWindow()

	snap := m.Snapshot()

	require.Equal(t, float64(1), snap.Tick)
	require.Equal(t, []ifaceStat{
		{Name: "eth0", Index: 2, Packets: 10, Bytes: 1500, Collecting: true},
	}, snap.Interfaces)
	require.Equal(t, []macStat{
		{Addr: "de:ad:be:ef:00:01", Packets: 4, Bytes: 600},
	}, snap.SrcMacs)
}
