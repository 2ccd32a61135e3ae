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
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// outputPlain renders a final headless snapshot as human-readable text,
// interfaces first, then observed source MACs.
func outputPlain(snap snapshot) string {
	var sb strings.Builder

	for _, v := range snap.Interfaces {
		state := "collecting"
		if !v.Collecting {
			state = "paused"
		}

		sb.WriteString(fmt.Sprintf("iface: %v (%d), packets: %d, bytes: %v, state: %v\n",
			v.Name, v.Index, v.Packets, formatBytes(v.Bytes), state))
	}

	for _, v := range snap.SrcMacs {
		sb.WriteString(fmt.Sprintf("src: %v, packets: %d, bytes: %v\n",
			v.Addr, v.Packets, formatBytes(v.Bytes)))
	}

	return sb.String()
}

// outputJSON marshals the snapshot for machine consumption.
func outputJSON(snap snapshot) string {
	out, _ := json.Marshal(snap)

	return string(out)
}
