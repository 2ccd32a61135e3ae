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
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cilium/ebpf"
	"github.com/cilium/ebpf/rlimit"
	"github.com/hako/durafmt"
	"go.uber.org/zap"
)

func main() {
	cfg := parseFlags(os.Args[1:])

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("Error opening log file: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	// Remove resource limits for kernels <5.11
	if err := rlimit.RemoveMemlock(); err != nil {
		log.Fatalf("Error removing memlock: %v", err)
	}

	// Load the compiled eBPF ELF and load it into the kernel
	var objs counterObjects
	if err := loadCounterObjects(&objs, nil); err != nil {
		log.Fatalf("Error loading eBPF objects: %v", err)
	}
	defer func() { _ = objs.Close() }()

	ncpu, err := ebpf.PossibleCPU()
	if err != nil {
		log.Fatalf("Error getting possible CPU count: %v", err) //nolint:gocritic
	}

	ifaces, err := knownInterfaces()
	if err != nil {
		log.Fatalf("Error listing network interfaces: %v", err)
	}

	if len(ifaces) == 0 {
		log.Fatalf("No network interfaces found")
	}

	model, err := NewModel(cfg, ifaces, int(objs.SrcMacRxCounters.MaxEntries()))
	if err != nil {
		log.Fatalf("Error building traffic model: %v", err)
	}

	mgr := newAttachManager(&objs, ifaces, ncpu, logger)
	defer mgr.Close()

	agg := NewAggregator(model, mgr, &objs, logger)

	// Every known interface starts collecting; interfaces that refuse the
	// hook (down, unsupported driver) stay visible but toggled off.
	attached := 0

	for _, ifc := range ifaces {
		if err := mgr.Attach(ifc.Index); err != nil {
			logger.Warn("skipping interface", zap.String("iface", ifc.Name), zap.Error(err))
			model.Interface(ifc.Index).Collecting = false

			continue
		}

		attached++
	}

	if attached == 0 {
		log.Fatalf("Could not attach the counting program to any interface")
	}

	if cfg.MetricsAddr != "" {
		sink := newStatsCollector()
		agg.SetSink(sink)
		serveMetrics(cfg.MetricsAddr, sink, logger)
	}

	logger.Info("starting",
		zap.Duration("tick", cfg.TickRate),
		zap.Int("window", cfg.WindowSize),
		zap.Int("interfaces", attached),
		zap.Bool("headless", cfg.Headless))

	if cfg.Headless {
		runHeadless(cfg, agg, logger)
	} else if err := runTUI(cfg, agg, logger); err != nil {
		log.Fatalf("Error running TUI: %v", err)
	}
}

// runHeadless drives the aggregation loop without a terminal UI until a
// signal arrives or the optional timeout elapses, then prints one final
// snapshot of the cumulative counters.
func runHeadless(cfg *Config, agg *Aggregator, logger *zap.Logger) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		s := <-signalCh
		_, _ = fmt.Fprintf(os.Stderr, "Received %v signal, trying to exit...\n", s)
		cancel()
	}()

	if cfg.Timeout > 0 {
		log.Printf("Collecting for %v before exiting", durafmt.Parse(cfg.Timeout))

		go func() {
			time.Sleep(cfg.Timeout)
			cancel()
		}()
	}

	ticker := time.NewTicker(cfg.TickRate)
	defer ticker.Stop()

	for done := false; !done; {
		select {
		case <-ctx.Done():
			done = true
		case <-ticker.C:
			if err := agg.Tick(); err != nil {
				logger.Warn("aggregation pass reported errors", zap.Error(err))
			}
		}
	}

	snap := agg.Model().Snapshot()

	if cfg.JSONOutput {
		fmt.Println(outputJSON(snap))
	} else {
		fmt.Print(outputPlain(snap))
	}
}
