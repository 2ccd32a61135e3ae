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
	"sort"
	"time"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"
	"go.uber.org/zap"
)

// The set of monitoring views is closed and fixed; dispatch is by explicit
// tag, not open dynamic registration.
type viewTag int

const (
	viewInterfaces viewTag = iota
	viewEthernet
	viewCount
)

type zoomContext int

const (
	zoomPacket zoomContext = iota
	zoomByte
)

const (
	defaultPacketBound = 40.0
	defaultByteBound   = 50000.0
)

// view is the capability contract every monitoring view implements.
type view interface {
	name() string
	helpText() string
	onKey(e ui.Event)
	layout(width, height int) ui.Drawable
}

// seriesRow is one plottable key: its label, whether its series are shown,
// the windowed delta values, and the cumulative totals for the bar charts.
type seriesRow struct {
	label        string
	active       bool
	packetVals   []float64
	byteVals     []float64
	cumulPackets uint64
	cumulBytes   uint64
}

// plotState is the per-view zoom and selection state shared by both views.
type plotState struct {
	selected    int
	zoomCtx     zoomContext
	autoscale   [2]bool
	packetBound float64
	byteBound   float64
}

func newPlotState() plotState {
	return plotState{
		autoscale:   [2]bool{true, true},
		packetBound: defaultPacketBound,
		byteBound:   defaultByteBound,
	}
}

// onZoomKey handles the zoom-context keys common to every view. Reports
// whether the event was consumed.
func (s *plotState) onZoomKey(id string) bool {
	switch id {
	case "p":
		s.zoomCtx = zoomPacket
	case "b":
		s.zoomCtx = zoomByte
	case "a":
		s.autoscale[s.zoomCtx] = !s.autoscale[s.zoomCtx]
	case "-":
		// Zooming out doubles the bound, zooming in halves it.
		if s.zoomCtx == zoomPacket {
			s.packetBound *= 2
		} else {
			s.byteBound *= 2
		}
	case "+":
		if s.zoomCtx == zoomPacket {
			s.packetBound /= 2
		} else {
			s.byteBound /= 2
		}
	default:
		return false
	}

	return true
}

func (s *plotState) moveSelection(delta, rowCount int) {
	candidate := s.selected + delta
	if candidate >= 0 && candidate < rowCount {
		s.selected = candidate
	}
}

// bound resolves the Y axis upper bound for one zoom context: the manual
// zoom value, or the autoscaled round-number above the observed maximum.
// The observed maximum is seeded with 1 so an all-zero window still renders.
func (s *plotState) bound(ctx zoomContext, rows []seriesRow) float64 {
	manual := s.packetBound
	if ctx == zoomByte {
		manual = s.byteBound
	}

	if !s.autoscale[ctx] {
		return manual
	}

	maxVal := 1.0
	for _, r := range rows {
		vals := r.packetVals
		if ctx == zoomByte {
			vals = r.byteVals
		}

		for _, v := range vals {
			if v > maxVal {
				maxVal = v
			}
		}
	}

	return autoscaleBound(maxVal)
}

// buildPlot assembles a time-series plot of every active row, clamped to
// the bound so manual zoom cannot push points outside the drawing area.
func buildPlot(title string, rows []seriesRow, byteCtx bool, bound float64, focused bool) *widgets.Plot {
	plot := widgets.NewPlot()
	plot.Title = title
	plot.MaxVal = bound
	plot.Marker = widgets.MarkerBraille

	if focused {
		plot.BorderStyle = ui.NewStyle(ui.ColorCyan)
	}

	data := make([][]float64, 0, len(rows))
	colors := make([]ui.Color, 0, len(rows))
	colorIndex := 2

	for _, r := range rows {
		if !r.active {
			continue
		}

		vals := r.packetVals
		if byteCtx {
			vals = r.byteVals
		}

		// A braille plot needs two points before it can draw a segment.
		if len(vals) < 2 {
			continue
		}

		clamped := make([]float64, len(vals))
		for i, v := range vals {
			if v > bound {
				v = bound
			}
			clamped[i] = v
		}

		data = append(data, clamped)
		colors = append(colors, ui.Color(colorIndex))
		colorIndex++
	}

	if len(data) == 0 {
		data = [][]float64{{0, 0}}
		colors = []ui.Color{ui.ColorClear}
	}

	plot.Data = data
	plot.LineColors = colors

	return plot
}

// buildBars assembles the cumulative totals bar chart for the active rows,
// largest first.
func buildBars(title string, rows []seriesRow, byteCtx bool) *widgets.BarChart {
	type datum struct {
		label string
		val   uint64
	}

	data := make([]datum, 0, len(rows))
	for _, r := range rows {
		if !r.active {
			continue
		}

		v := r.cumulPackets
		if byteCtx {
			v = r.cumulBytes
		}

		data = append(data, datum{label: r.label, val: v})
	}

	sort.Slice(data, func(i, j int) bool { return data[i].val > data[j].val })

	bars := widgets.NewBarChart()
	bars.Title = title
	bars.BarWidth = 10
	bars.Labels = make([]string, len(data))
	bars.Data = make([]float64, len(data))

	for i, d := range data {
		bars.Labels[i] = d.label
		bars.Data[i] = float64(d.val)
	}

	return bars
}

// buildList assembles the key list with inactive keys dimmed.
func buildList(title string, rows []seriesRow, selected int) *widgets.List {
	list := widgets.NewList()
	list.Title = title
	list.SelectedRowStyle = ui.NewStyle(ui.ColorBlack, ui.ColorWhite)
	list.Rows = make([]string, len(rows))

	for i, r := range rows {
		if r.active {
			list.Rows[i] = r.label
		} else {
			list.Rows[i] = fmt.Sprintf("[%s](fg:8)", r.label)
		}
	}

	if selected < len(rows) {
		list.SelectedRow = selected
	}

	return list
}

// buildGrid lays out one view's widgets: key list on the left, packet
// plots above byte plots, cumulative bars beside each plot, and the status
// and help lines top and bottom.
func buildGrid(v view, rows []seriesRow, s *plotState, window [2]float64, tickRate time.Duration, width, height int) ui.Drawable {
	header := widgets.NewParagraph()
	header.Border = false
	header.Text = fmt.Sprintf("tsndt: %s | window [%v, %v] | zoom: %s | autoscale pkt=%v byte=%v",
		v.name(), window[0], window[1], [2]string{"packets", "bytes"}[s.zoomCtx],
		s.autoscale[zoomPacket], s.autoscale[zoomByte])

	help := widgets.NewParagraph()
	help.Border = false
	help.Text = v.helpText()

	perTick := fmt.Sprintf("per %v", tickRate)

	pktPlot := buildPlot("Packet count "+perTick, rows, false, s.bound(zoomPacket, rows), s.zoomCtx == zoomPacket)
	bytePlot := buildPlot("Byte count "+perTick, rows, true, s.bound(zoomByte, rows), s.zoomCtx == zoomByte)
	pktBars := buildBars("Cumulative packets", rows, false)
	byteBars := buildBars("Cumulative bytes", rows, true)
	list := buildList(v.name(), rows, s.selected)

	grid := ui.NewGrid()
	grid.SetRect(0, 0, width, height)
	grid.Set(
		ui.NewRow(0.06, header),
		ui.NewRow(0.84,
			ui.NewCol(0.15, list),
			ui.NewCol(0.85,
				ui.NewRow(0.5,
					ui.NewCol(0.75, pktPlot),
					ui.NewCol(0.25, pktBars),
				),
				ui.NewRow(0.5,
					ui.NewCol(0.75, bytePlot),
					ui.NewCol(0.25, byteBars),
				),
			),
		),
		ui.NewRow(0.10, help),
	)

	return grid
}

// interfacesView monitors the static known-interface set; toggling a key
// attaches or detaches the counting program.
type interfacesView struct {
	state    plotState
	agg      *Aggregator
	tickRate time.Duration
	log      *zap.Logger
}

func newInterfacesView(agg *Aggregator, tickRate time.Duration, log *zap.Logger) *interfacesView {
	return &interfacesView{state: newPlotState(), agg: agg, tickRate: tickRate, log: log}
}

func (v *interfacesView) name() string {
	return "Network Interfaces"
}

func (v *interfacesView) helpText() string {
	return "(Tab) Switch view, (↑/↓) Select interface, (t) Toggle interface monitoring\n" +
		"(b/p) Select plot zoom context, (a) Toggle autoscaling, (+/-) Y axis zoom, (q) Quit"
}

func (v *interfacesView) rows() []seriesRow {
	model := v.agg.Model()
	ifaces := model.Interfaces()
	rows := make([]seriesRow, 0, len(ifaces))

	for _, ifc := range ifaces {
		ent := model.Interface(ifc.Index)
		rows = append(rows, seriesRow{
			label:        fmt.Sprintf("%d: %s", ifc.Index, ifc.Name),
			active:       ent.Collecting,
			packetVals:   ent.packets.values(),
			byteVals:     ent.bytes.values(),
			cumulPackets: ent.CumulPackets,
			cumulBytes:   ent.CumulBytes,
		})
	}

	return rows
}

func (v *interfacesView) onKey(e ui.Event) {
	if v.state.onZoomKey(e.ID) {
		return
	}

	switch e.ID {
	case "<Up>", "k":
		v.state.moveSelection(-1, len(v.agg.Model().Interfaces()))
	case "<Down>", "j":
		v.state.moveSelection(1, len(v.agg.Model().Interfaces()))
	case "t":
		ifaces := v.agg.Model().Interfaces()
		if v.state.selected >= len(ifaces) {
			return
		}

		ifc := ifaces[v.state.selected]
		if err := v.agg.ToggleInterface(ifc.Index); err != nil {
			v.log.Warn("failed to toggle interface", zap.String("iface", ifc.Name), zap.Error(err))
		}
	}
}

func (v *interfacesView) layout(width, height int) ui.Drawable {
	return buildGrid(v, v.rows(), &v.state, v.agg.Model().Window(), v.tickRate, width, height)
}

// ethernetView monitors observed source MAC addresses; toggling a key only
// flips whether it is plotted, collection is per-interface.
type ethernetView struct {
	state    plotState
	agg      *Aggregator
	tickRate time.Duration
	log      *zap.Logger
}

func newEthernetView(agg *Aggregator, tickRate time.Duration, log *zap.Logger) *ethernetView {
	return &ethernetView{state: newPlotState(), agg: agg, tickRate: tickRate, log: log}
}

func (v *ethernetView) name() string {
	return "Ethernet"
}

func (v *ethernetView) helpText() string {
	return "(Tab) Switch view, (↑/↓) Select address, (t) Toggle address display, (s) Sort addresses\n" +
		"(b/p) Select plot zoom context, (a) Toggle autoscaling, (+/-) Y axis zoom, (q) Quit"
}

func (v *ethernetView) rows() []seriesRow {
	model := v.agg.Model()
	macs := model.Addresses()
	rows := make([]seriesRow, 0, len(macs))

	for _, mac := range macs {
		ent := model.Address(mac)
		if ent == nil {
			continue
		}

		rows = append(rows, seriesRow{
			label:        mac.String(),
			active:       model.Displaying(mac),
			packetVals:   ent.packets.values(),
			byteVals:     ent.bytes.values(),
			cumulPackets: ent.CumulPackets,
			cumulBytes:   ent.CumulBytes,
		})
	}

	return rows
}

func (v *ethernetView) onKey(e ui.Event) {
	if v.state.onZoomKey(e.ID) {
		return
	}

	model := v.agg.Model()

	switch e.ID {
	case "<Up>", "k":
		v.state.moveSelection(-1, len(model.Addresses()))
	case "<Down>", "j":
		v.state.moveSelection(1, len(model.Addresses()))
	case "s":
		model.SortAddresses()
	case "t":
		macs := model.Addresses()
		if v.state.selected >= len(macs) {
			return
		}

		model.ToggleDisplay(macs[v.state.selected])
	}
}

func (v *ethernetView) layout(width, height int) ui.Drawable {
	// Tracked addresses come and go; keep the selection inside the list.
	if n := len(v.agg.Model().Addresses()); v.state.selected >= n && n > 0 {
		v.state.selected = n - 1
	}

	return buildGrid(v, v.rows(), &v.state, v.agg.Model().Window(), v.tickRate, width, height)
}

// runTUI owns the terminal and the single cooperative driver loop: each
// iteration waits for either one user input event or the tick timer, never
// both, so at most one command is processed between aggregation passes and
// exactly one aggregation pass runs per elapsed tick.
func runTUI(cfg *Config, agg *Aggregator, log *zap.Logger) error {
	if err := ui.Init(); err != nil {
		return fmt.Errorf("initializing terminal UI: %w", err)
	}
	defer ui.Close()

	views := [viewCount]view{
		viewInterfaces: newInterfacesView(agg, cfg.TickRate, log),
		viewEthernet:   newEthernetView(agg, cfg.TickRate, log),
	}
	active := viewInterfaces

	width, height := ui.TerminalDimensions()

	draw := func() {
		ui.Render(views[active].layout(width, height))
	}
	draw()

	events := ui.PollEvents()
	ticker := time.NewTicker(cfg.TickRate)
	defer ticker.Stop()

	for {
		select {
		case e := <-events:
			switch e.ID {
			case "q", "<C-c>":
				return nil
			case "<Tab>":
				active = (active + 1) % viewCount
			case "<Resize>":
				payload := e.Payload.(ui.Resize)
				width, height = payload.Width, payload.Height
				ui.Clear()
			default:
				views[active].onKey(e)
			}

			draw()
		case <-ticker.C:
			if err := agg.Tick(); err != nil {
				log.Warn("aggregation pass reported errors", zap.Error(err))
			}

			draw()
		}
	}
}
