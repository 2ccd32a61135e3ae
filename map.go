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
	"errors"
	"fmt"

	"github.com/cilium/ebpf"
)

// sumCounters folds a per-CPU value array into one cumulative total. The
// read is not an atomic snapshot across CPUs; a slot may advance while later
// slots are read, which only ever produces a small transient undercount.
func sumCounters(vals []counterCounter) (packets, bytes uint64) {
	for _, v := range vals {
		packets += uint64(v.Packets)
		bytes += v.Bytes
	}

	return packets, bytes
}

// readIfaceCounter looks up one interface's per-CPU counter array and sums
// it. A missing key reports ebpf.ErrKeyNotExist to the caller.
func readIfaceCounter(m *ebpf.Map, index uint32) (packets, bytes uint64, err error) {
	var vals []counterCounter

	if err := m.Lookup(index, &vals); err != nil {
		return 0, 0, fmt.Errorf("reading iface counter %d: %w", index, err)
	}

	packets, bytes = sumCounters(vals)

	return packets, bytes, nil
}

// zeroIfaceCounter overwrites an interface's counter with zeroes in every
// CPU slot. Used on (re)attach so cumulative counts restart from nothing.
func zeroIfaceCounter(m *ebpf.Map, index uint32, ncpu int) error {
	zero := make([]counterCounter, ncpu)

	if err := m.Put(index, zero); err != nil {
		return fmt.Errorf("zeroing iface counter %d: %w", index, err)
	}

	return nil
}

// ensureIfaceCounter zero-initializes an interface's counter only when the
// key is absent, leaving any live counts untouched.
func ensureIfaceCounter(m *ebpf.Map, index uint32, ncpu int) error {
	var vals []counterCounter

	err := m.Lookup(index, &vals)
	if err == nil {
		return nil
	}

	if !errors.Is(err, ebpf.ErrKeyNotExist) {
		return fmt.Errorf("probing iface counter %d: %w", index, err)
	}

	return zeroIfaceCounter(m, index, ncpu)
}

// deleteAddrCounter removes a source MAC entry from the kernel table. The
// kernel's own LRU policy may have reclaimed the key first, so a missing
// key counts as success.
func deleteAddrCounter(m *ebpf.Map, mac macAddr) error {
	key := counterMacKey{Addr: [6]byte(mac)}

	if err := m.Delete(key); err != nil && !errors.Is(err, ebpf.ErrKeyNotExist) {
		return fmt.Errorf("deleting src MAC counter %v: %w", mac, err)
	}

	return nil
}
