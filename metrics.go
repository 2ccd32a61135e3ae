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
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var (
	ifacePacketsDesc = prometheus.NewDesc("tsndt_iface_rx_packets_total",
		"Cumulative ingress packets per interface since last (re)attach", []string{"iface"}, nil)
	ifaceBytesDesc = prometheus.NewDesc("tsndt_iface_rx_bytes_total",
		"Cumulative ingress bytes per interface since last (re)attach", []string{"iface"}, nil)
	macPacketsDesc = prometheus.NewDesc("tsndt_src_mac_rx_packets_total",
		"Cumulative ingress packets per observed source MAC", []string{"src_mac"}, nil)
	macBytesDesc = prometheus.NewDesc("tsndt_src_mac_rx_bytes_total",
		"Cumulative ingress bytes per observed source MAC", []string{"src_mac"}, nil)
)

// statsCollector exposes the latest per-tick snapshot to Prometheus scrapes.
// Scrapes run on the HTTP server's goroutines while the driver loop updates
// the snapshot, so access goes through a mutex; the driver never blocks on a
// scrape for longer than one snapshot swap.
type statsCollector struct {
	mu   sync.Mutex
	snap snapshot
}

func newStatsCollector() *statsCollector {
	return &statsCollector{}
}

// Update replaces the exported snapshot. Called by the aggregator after
// every tick.
func (c *statsCollector) Update(snap snapshot) {
	c.mu.Lock()
	c.snap = snap
	c.mu.Unlock()
}

func (c *statsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- ifacePacketsDesc
	ch <- ifaceBytesDesc
	ch <- macPacketsDesc
	ch <- macBytesDesc
}

func (c *statsCollector) Collect(ch chan<- prometheus.Metric) {
	c.mu.Lock()
	snap := c.snap
	c.mu.Unlock()

	for _, v := range snap.Interfaces {
		ch <- prometheus.MustNewConstMetric(ifacePacketsDesc, prometheus.CounterValue, float64(v.Packets), v.Name)
		ch <- prometheus.MustNewConstMetric(ifaceBytesDesc, prometheus.CounterValue, float64(v.Bytes), v.Name)
	}

	for _, v := range snap.SrcMacs {
		ch <- prometheus.MustNewConstMetric(macPacketsDesc, prometheus.CounterValue, float64(v.Packets), v.Addr)
		ch <- prometheus.MustNewConstMetric(macBytesDesc, prometheus.CounterValue, float64(v.Bytes), v.Addr)
	}
}

// serveMetrics starts the Prometheus endpoint in the background. A serve
// failure is logged, not fatal: metrics are an optional side channel.
func serveMetrics(addr string, c *statsCollector, log *zap.Logger) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(c)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics endpoint failed", zap.String("addr", addr), zap.Error(err))
		}
	}()

	log.Info("serving metrics", zap.String("addr", addr))
}
