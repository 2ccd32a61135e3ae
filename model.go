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
	"slices"

	lru "github.com/hashicorp/golang-lru/v2"
)

// series is a FIFO window of at most max points. The push that would make it
// max+1 points long drops the oldest point first.
type series struct {
	pts []point
	max int
}

func newSeries(max int) series {
	return series{max: max, pts: make([]point, 0, max)}
}

func (s *series) push(tick, delta float64) {
	if len(s.pts) >= s.max {
		s.pts = s.pts[1:]
	}

	s.pts = append(s.pts, point{Tick: tick, Delta: delta})
}

func (s *series) reset(tick float64) {
	s.pts = s.pts[:0]
	s.pts = append(s.pts, point{Tick: tick, Delta: 0})
}

func (s *series) points() []point {
	return s.pts
}

// values returns the delta column only, in tick order, for plotting.
func (s *series) values() []float64 {
	out := make([]float64, len(s.pts))
	for i, p := range s.pts {
		out[i] = p.Delta
	}

	return out
}

// trackedEntity is the userspace state for one counted key: cumulative
// totals as last read from the kernel, the windowed delta series, and the
// activity bookkeeping used for idle eviction.
type trackedEntity struct {
	CumulPackets uint64
	CumulBytes   uint64
	packets      series
	bytes        series
	lastActive   float64
	Collecting   bool // interfaces only
}

// clampedDelta returns cur-prev, or cur when the counter went backwards
// (detach/reattach reset or kernel-side loss). Never negative.
func clampedDelta(cur, prev uint64) float64 {
	if cur >= prev {
		return float64(cur - prev)
	}

	return float64(cur)
}

// Model is the aggregated userspace view of both kernel tables: one
// pre-populated entity per known interface plus lazily created entities for
// observed source MACs. It is owned by the single driver loop and must not
// be shared across goroutines.
type Model struct {
	ifaces     map[uint32]*trackedEntity
	ifaceOrder []ifaceInfo

	macs       *lru.Cache[macAddr, *trackedEntity]
	macOrder   []macAddr
	displaying map[macAddr]bool
	lruEvicted []macAddr

	tick       float64
	window     [2]float64
	windowSize int
	idleTicks  float64
}

// NewModel pre-populates an entity for every known interface with a single
// zero point, marked collecting, and an empty MAC tracking table bounded at
// the kernel MAC table's capacity.
func NewModel(cfg *Config, ifaces []ifaceInfo, macCapacity int) (*Model, error) {
	m := &Model{
		ifaces:     make(map[uint32]*trackedEntity, len(ifaces)),
		ifaceOrder: slices.Clone(ifaces),
		displaying: make(map[macAddr]bool),
		windowSize: cfg.WindowSize,
		window:     [2]float64{0, float64(cfg.WindowSize)},
		idleTicks:  cfg.IdleTicks(),
	}

	slices.SortFunc(m.ifaceOrder, func(a, b ifaceInfo) int {
		return int(a.Index) - int(b.Index)
	})

	for _, ifc := range m.ifaceOrder {
		ent := &trackedEntity{
			packets:    newSeries(cfg.WindowSize),
			bytes:      newSeries(cfg.WindowSize),
			Collecting: true,
		}
		ent.packets.reset(0)
		ent.bytes.reset(0)
		m.ifaces[ifc.Index] = ent
	}

	// The kernel reclaims its least-recently-touched MAC entry at capacity;
	// bounding local state the same way keeps memory finite even when the
	// address table churns faster than the idle timeout fires.
	macs, err := lru.NewWithEvict(macCapacity, func(key macAddr, _ *trackedEntity) {
		m.lruEvicted = append(m.lruEvicted, key)
	})
	if err != nil {
		return nil, err
	}
	m.macs = macs

	return m, nil
}

// BeginTick advances the tick counter. Call once per aggregation pass,
// before any Observe call for that pass.
func (m *Model) BeginTick() {
	m.tick++
}

func (m *Model) Tick() float64 {
	return m.tick
}

// Window returns the display window bounds [lo, hi].
func (m *Model) Window() [2]float64 {
	return m.window
}

// AdvanceWindow scrolls the fixed-width display window by one tick once the
// tick count has passed the window size. Call at the end of each pass.
func (m *Model) AdvanceWindow() {
	if m.tick > float64(m.windowSize) {
		m.window[0]++
		m.window[1]++
	}
}

func (m *Model) Interfaces() []ifaceInfo {
	return m.ifaceOrder
}

func (m *Model) Interface(index uint32) *trackedEntity {
	return m.ifaces[index]
}

// ObserveInterface records one tick's cumulative reading for a known
// interface. Unknown indexes are ignored: the interface table's key set is
// fixed at startup.
func (m *Model) ObserveInterface(index uint32, packets, bytes uint64) {
	ent, ok := m.ifaces[index]
	if !ok {
		return
	}

	m.observe(ent, packets, bytes)
}

// ObserveAddress records one tick's cumulative reading for a source MAC,
// registering the address with zeroed counters and empty series on first
// sight so its first delta is computed against zero.
func (m *Model) ObserveAddress(mac macAddr, packets, bytes uint64) {
	ent, ok := m.macs.Peek(mac)
	if !ok {
		ent = &trackedEntity{
			packets:    newSeries(m.windowSize),
			bytes:      newSeries(m.windowSize),
			lastActive: m.tick,
		}
		m.macs.Add(mac, ent)

		// A capacity eviction earlier in this pass may have left the
		// address in the order list already; never list a key twice.
		if !slices.Contains(m.macOrder, mac) {
			m.macOrder = append(m.macOrder, mac)
		}
	}

	m.observe(ent, packets, bytes)

	// Refresh local LRU recency only for addresses that actually sent
	// traffic this tick, so capacity pressure reclaims the least recently
	// active address, mirroring the kernel table's policy.
	if ent.lastActive == m.tick {
		m.macs.Add(mac, ent)
	}
}

func (m *Model) observe(ent *trackedEntity, packets, bytes uint64) {
	packetDelta := clampedDelta(packets, ent.CumulPackets)
	byteDelta := clampedDelta(bytes, ent.CumulBytes)

	ent.packets.push(m.tick, packetDelta)
	ent.bytes.push(m.tick, byteDelta)
	ent.CumulPackets = packets
	ent.CumulBytes = bytes

	// Activity is defined by packet deltas alone; bytes follow packets.
	if packetDelta > 0 {
		ent.lastActive = m.tick
	}
}

// Addresses returns the tracked MACs in display order.
func (m *Model) Addresses() []macAddr {
	return m.macOrder
}

func (m *Model) Address(mac macAddr) *trackedEntity {
	ent, _ := m.macs.Peek(mac)

	return ent
}

// SortAddresses orders the MAC list bytewise, pinning the display order
// until new addresses arrive.
func (m *Model) SortAddresses() {
	slices.SortFunc(m.macOrder, func(a, b macAddr) int {
		return slices.Compare(a[:], b[:])
	})
}

func (m *Model) Displaying(mac macAddr) bool {
	return m.displaying[mac]
}

// ToggleDisplay flips whether a MAC's series are plotted. Purely a
// presentation attribute; collection is not affected.
func (m *Model) ToggleDisplay(mac macAddr) {
	if m.displaying[mac] {
		delete(m.displaying, mac)
	} else {
		m.displaying[mac] = true
	}
}

// EvictIdle removes every tracked address whose inactivity span exceeds the
// idle timeout, plus anything the local LRU reclaimed for capacity this
// pass, and returns the evicted keys so the caller can delete the backing
// kernel entries. A later packet from an evicted address starts a fresh
// entity with an empty history.
func (m *Model) EvictIdle() []macAddr {
	for _, mac := range m.macOrder {
		ent, ok := m.macs.Peek(mac)
		if !ok {
			continue
		}

		// Remove funnels through the eviction callback, the same path a
		// capacity eviction takes, so lruEvicted ends up holding both.
		if m.tick-ent.lastActive > m.idleTicks {
			m.macs.Remove(mac)
		}
	}

	drained := m.lruEvicted
	m.lruEvicted = nil

	evicted := make([]macAddr, 0, len(drained))

	for _, mac := range drained {
		// A key reclaimed for capacity and then re-observed later in the
		// same pass is live again; deleting its kernel entry now would
		// reset an active address's counters.
		if _, ok := m.macs.Peek(mac); ok {
			continue
		}

		delete(m.displaying, mac)
		if i := slices.Index(m.macOrder, mac); i >= 0 {
			m.macOrder = slices.Delete(m.macOrder, i, i+1)
		}

		evicted = append(evicted, mac)
	}

	return evicted
}

// ResetInterfaceSeries resets an interface's series to a single zero point,
// used after a successful detach.
func (m *Model) ResetInterfaceSeries(index uint32) {
	if ent, ok := m.ifaces[index]; ok {
		ent.packets.reset(m.tick)
		ent.bytes.reset(m.tick)
	}
}

// Snapshot copies the cumulative counters for consumers outside the driver
// loop (headless output, metrics scrapes).
func (m *Model) Snapshot() snapshot {
	snap := snapshot{
		Tick:       m.tick,
		Interfaces: make([]ifaceStat, 0, len(m.ifaceOrder)),
		SrcMacs:    make([]macStat, 0, len(m.macOrder)),
	}

	for _, ifc := range m.ifaceOrder {
		ent := m.ifaces[ifc.Index]
		snap.Interfaces = append(snap.Interfaces, ifaceStat{
			Name:       ifc.Name,
			Index:      ifc.Index,
			Packets:    ent.CumulPackets,
			Bytes:      ent.CumulBytes,
			Collecting: ent.Collecting,
		})
	}

	for _, mac := range m.macOrder {
		ent, ok := m.macs.Peek(mac)
		if !ok {
			continue
		}
		snap.SrcMacs = append(snap.SrcMacs, macStat{
			Addr:    mac.String(),
			Packets: ent.CumulPackets,
			Bytes:   ent.CumulBytes,
		})
	}

	return snap
}
