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
	"go.uber.org/zap"
)

// Aggregator drives one pass per tick over both kernel tables: read and sum
// per-CPU counters, feed the windowed model, evict idle addresses from both
// local and kernel state, advance the display window. It also carries the
// attach lifecycle operations the presentation layer invokes.
type Aggregator struct {
	model    *Model
	attach   *attachManager
	ifaceMap *ebpf.Map
	macMap   *ebpf.Map
	log      *zap.Logger
	sink     *statsCollector // optional, nil when metrics are disabled
}

func NewAggregator(model *Model, attach *attachManager, objs *counterObjects, log *zap.Logger) *Aggregator {
	return &Aggregator{
		model:    model,
		attach:   attach,
		ifaceMap: objs.IfaceRxCounters,
		macMap:   objs.SrcMacRxCounters,
		log:      log,
	}
}

func (a *Aggregator) Model() *Model {
	return a.model
}

// SetSink registers a collector that receives a fresh snapshot after every
// tick.
func (a *Aggregator) SetSink(sink *statsCollector) {
	a.sink = sink
}

// Tick performs exactly one aggregation pass. A failure on one key skips
// that key for this tick only; the accumulated errors are returned for the
// caller to report, and the next tick proceeds from whatever state survived.
func (a *Aggregator) Tick() error {
	a.model.BeginTick()

	var errs []error

	for _, ifc := range a.model.Interfaces() {
		packets, bytes, err := readIfaceCounter(a.ifaceMap, ifc.Index)
		if err != nil {
			// Absent keys exist until the first attach zero-initializes
			// them; anything else is a real per-key read failure.
			if !errors.Is(err, ebpf.ErrKeyNotExist) {
				errs = append(errs, err)
			}

			continue
		}

		a.model.ObserveInterface(ifc.Index, packets, bytes)
	}

	if err := a.readAddresses(); err != nil {
		errs = append(errs, err)
	}

	for _, mac := range a.model.EvictIdle() {
		if err := deleteAddrCounter(a.macMap, mac); err != nil {
			errs = append(errs, err)
		}
	}

	a.model.AdvanceWindow()

	if a.sink != nil {
		a.sink.Update(a.model.Snapshot())
	}

	return errors.Join(errs...)
}

// readAddresses walks every source MAC currently present in the kernel
// table. Iteration order is arbitrary; keys deleted concurrently by the
// kernel's LRU policy are simply not seen this tick.
func (a *Aggregator) readAddresses() error {
	var (
		key  counterMacKey
		vals []counterCounter
	)

	iter := a.macMap.Iterate()
	for iter.Next(&key, &vals) {
		packets, bytes := sumCounters(vals)
		a.model.ObserveAddress(macAddr(key.Addr), packets, bytes)
	}

	if err := iter.Err(); err != nil {
		return fmt.Errorf("iterating src MAC counters: %w", err)
	}

	return nil
}

// ToggleInterface attaches or detaches the counting program according to the
// interface's collecting flag, flipping the flag only when the underlying
// operation succeeds. A successful detach resets the interface's series to a
// single zero point.
func (a *Aggregator) ToggleInterface(index uint32) error {
	ent := a.model.Interface(index)
	if ent == nil {
		return fmt.Errorf("%w: index %d", ErrInterfaceNotFound, index)
	}

	if ent.Collecting {
		if err := a.attach.Detach(index); err != nil {
			return err
		}

		ent.Collecting = false
		a.model.ResetInterfaceSeries(index)

		return nil
	}

	if err := a.attach.Attach(index); err != nil {
		return err
	}

	ent.Collecting = true

	return nil
}
