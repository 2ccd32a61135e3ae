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
	"testing"

	"go.uber.org/zap"
)

func TestToggleInterfaceUnknown(t *testing.T) {
	cfg := testConfig(50, 300)
	ifaces := []ifaceInfo{{Index: 2, Name: "eth0"}}

	model, err := NewModel(cfg, ifaces, 64)
	if err != nil {
		t.Fatalf("Failed to build model: %v", err)
	}

	objs := &counterObjects{}
	agg := NewAggregator(model, newAttachManager(objs, ifaces, 1, zap.NewNop()), objs, zap.NewNop())

	if err := agg.ToggleInterface(99); !errors.Is(err, ErrInterfaceNotFound) {
		t.Errorf("ToggleInterface(99) = %v, want ErrInterfaceNotFound", err)
	}
}

func TestToggleInterfaceKeepsFlagOnFailure(t *testing.T) {
	cfg := testConfig(50, 300)
	ifaces := []ifaceInfo{{Index: 2, Name: "eth0"}}

	model, err := NewModel(cfg, ifaces, 64)
	if err != nil {
		t.Fatalf("Failed to build model: %v", err)
	}

	objs := &counterObjects{}
	agg := NewAggregator(model, newAttachManager(objs, ifaces, 1, zap.NewNop()), objs, zap.NewNop())

	// Entities start in the collecting state but no hook was ever installed,
	// so the detach must fail and the flag must survive unchanged.
	if err := agg.ToggleInterface(2); !errors.Is(err, ErrNotAttached) {
		t.Errorf("ToggleInterface(2) = %v, want ErrNotAttached", err)
	}

	if !model.Interface(2).Collecting {
		t.Error("collecting flag flipped despite failed detach")
	}
}

func TestSumCounters(t *testing.T) {
	vals := []counterCounter{
		{Packets: 3, Bytes: 450},
		{Packets: 0, Bytes: 0},
		{Packets: 7, Bytes: 1050},
	}

	packets, bytes := sumCounters(vals)

	if packets != 10 {
		t.Errorf("packets = %d, want 10", packets)
	}

	if bytes != 1500 {
		t.Errorf("bytes = %d, want 1500", bytes)
	}
}
