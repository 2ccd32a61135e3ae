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

import "fmt"

// macAddr is a raw link-layer source address, the key of the kernel MAC table.
type macAddr [6]byte

func (m macAddr) String() string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", m[0], m[1], m[2], m[3], m[4], m[5])
}

// ifaceInfo identifies one entry of the static known-interface set.
type ifaceInfo struct {
	Index uint32
	Name  string
}

// point is one tick's delta sample in a bounded series.
type point struct {
	Tick  float64
	Delta float64
}

type ifaceStat struct {
	Name       string `json:"name"`
	Index      uint32 `json:"index"`
	Packets    uint64 `json:"packets"`
	Bytes      uint64 `json:"bytes"`
	Collecting bool   `json:"collecting"`
}

type macStat struct {
	Addr    string `json:"srcMac"`
	Packets uint64 `json:"packets"`
	Bytes   uint64 `json:"bytes"`
}

// snapshot is a copy of the cumulative counters at one tick, safe to hand to
// the headless output writer and the metrics collector.
type snapshot struct {
	Tick       float64     `json:"tick"`
	Interfaces []ifaceStat `json:"interfaces"`
	SrcMacs    []macStat   `json:"srcMacs"`
}
