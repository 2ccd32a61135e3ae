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
	"github.com/cilium/ebpf/link"
	"go.uber.org/zap"
)

var (
	ErrInterfaceNotFound = errors.New("unknown interface")
	ErrNotAttached       = errors.New("interface is not attached")
)

// attachManager installs and removes the counting program on interfaces and
// (re)initializes their kernel counters. One opaque link handle is recorded
// per attached interface; attach and detach are all-or-nothing, so a failed
// call leaves no partial link state behind.
type attachManager struct {
	prog   *ebpf.Program
	table  *ebpf.Map
	ifaces map[uint32]ifaceInfo
	links  map[uint32]link.Link
	ncpu   int
	log    *zap.Logger

	// attachFn is the raw hook installation, replaceable in tests.
	attachFn func(prog *ebpf.Program, index int) (link.Link, error)
}

func newAttachManager(objs *counterObjects, ifaces []ifaceInfo, ncpu int, log *zap.Logger) *attachManager {
	m := &attachManager{
		prog:     objs.XdpCountPackets,
		table:    objs.IfaceRxCounters,
		ifaces:   make(map[uint32]ifaceInfo, len(ifaces)),
		links:    make(map[uint32]link.Link, len(ifaces)),
		ncpu:     ncpu,
		log:      log,
		attachFn: attachXDP,
	}

	for _, ifc := range ifaces {
		m.ifaces[ifc.Index] = ifc
	}

	return m
}

// attachXDP installs an XDP program on an interface, preferring the
// driver-selected mode and retrying in the less-optimized generic (SKB)
// mode when the first attempt fails.
func attachXDP(prog *ebpf.Program, index int) (link.Link, error) {
	l, err := link.AttachXDP(link.XDPOptions{
		Program:   prog,
		Interface: index,
	})
	if err == nil {
		return l, nil
	}

	l, gerr := link.AttachXDP(link.XDPOptions{
		Program:   prog,
		Interface: index,
		Flags:     link.XDPGenericMode,
	})
	if gerr != nil {
		return nil, fmt.Errorf("attaching XDP (generic retry after %v): %w", err, gerr)
	}

	return l, nil
}

// Attach installs the counting program on the named interface and resets its
// kernel counter to zero. Attaching an already-attached interface is a no-op.
func (m *attachManager) Attach(index uint32) error {
	ifc, ok := m.ifaces[index]
	if !ok {
		return fmt.Errorf("%w: index %d", ErrInterfaceNotFound, index)
	}

	if _, ok := m.links[index]; ok {
		return nil
	}

	l, err := m.attachFn(m.prog, int(ifc.Index))
	if err != nil {
		return fmt.Errorf("attach %q: %w", ifc.Name, err)
	}

	if err := zeroIfaceCounter(m.table, index, m.ncpu); err != nil {
		_ = l.Close()

		return fmt.Errorf("attach %q: %w", ifc.Name, err)
	}

	m.links[index] = l
	m.log.Info("attached counting program", zap.String("iface", ifc.Name), zap.Uint32("index", index))

	return nil
}

// Detach removes the recorded link handle for the interface and
// re-zero-initializes the kernel counter if it went missing.
func (m *attachManager) Detach(index uint32) error {
	ifc, ok := m.ifaces[index]
	if !ok {
		return fmt.Errorf("%w: index %d", ErrInterfaceNotFound, index)
	}

	l, ok := m.links[index]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotAttached, ifc.Name)
	}

	if err := l.Close(); err != nil {
		return fmt.Errorf("detach %q: %w", ifc.Name, err)
	}

	delete(m.links, index)

	if err := ensureIfaceCounter(m.table, index, m.ncpu); err != nil {
		return fmt.Errorf("detach %q: %w", ifc.Name, err)
	}

	m.log.Info("detached counting program", zap.String("iface", ifc.Name), zap.Uint32("index", index))

	return nil
}

func (m *attachManager) Attached(index uint32) bool {
	_, ok := m.links[index]

	return ok
}

// Close drops every recorded link handle.
func (m *attachManager) Close() {
	for index, l := range m.links {
		_ = l.Close()
		delete(m.links, index)
	}
}
