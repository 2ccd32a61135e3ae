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
	"os"
	"path/filepath"
	"time"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
)

const (
	defaultTickRate    = 250 * time.Millisecond
	defaultWindowSize  = 50
	defaultIdleTimeout = 300 * time.Second
	envVarPrefix       = "TSNDT"
)

// Config carries every runtime knob, constructed exactly once in parseFlags
// and threaded through explicitly. Nothing in the program reads flags or
// environment variables after startup.
type Config struct {
	TickRate    time.Duration // aggregation tick period
	WindowSize  int           // W, max points per series
	IdleTimeout time.Duration // MAC idle eviction timeout
	Timeout     time.Duration // headless capture duration, 0 = until signal
	DataDir     string        // log destination directory
	LogLevel    string        // zap level name
	MetricsAddr string        // optional Prometheus listen address, "" = off
	Headless    bool          // run without the TUI
	JSONOutput  bool          // headless snapshot in JSON instead of plain text
}

// IdleTicks converts the idle timeout into whole ticks, matching how the
// aggregator measures inactivity. Always at least 1.
func (c *Config) IdleTicks() float64 {
	t := float64(c.IdleTimeout) / float64(c.TickRate)
	if t < 1 {
		return 1
	}

	return float64(int64(t))
}

// defaultDataDir resolves the per-user data directory used for the log file.
// The TSNDT_DATA environment variable (wired through the flag set) overrides
// this entirely.
func defaultDataDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "tsndt")
	}

	return filepath.Join(".", ".data")
}

func parseFlags(args []string) *Config {
	fs := ff.NewFlagSet("tsndt")

	help := fs.Bool('?', "help", "display help")
	version := fs.BoolLong("version", "display program version")

	headless := fs.Bool('H', "headless", "run without the TUI and print a final snapshot")
	jsonOutput := fs.Bool('j', "json", "if true, headless snapshot output is in JSON format")

	tickRate := fs.Duration('r', "tick", defaultTickRate, "aggregation tick period")
	idleTimeout := fs.Duration('e', "idle-timeout", defaultIdleTimeout, "evict source MAC addresses idle for longer than this")
	timeout := fs.Duration('t', "timeout", 0, "headless capture duration (0 runs until interrupted)")

	window := fs.Int('w', "window", defaultWindowSize, "number of ticks kept per time series")

	dataDir := fs.String('d', "data", defaultDataDir(), "directory for the log file")
	logLevel := fs.String('l', "loglevel", "info", "log verbosity (debug, info, warn, error)")
	metricsAddr := fs.StringLong("metrics", "", "expose Prometheus metrics on this address (empty disables)")

	if err := ff.Parse(fs, args, ff.WithEnvVarPrefix(envVarPrefix)); err != nil {
		fmt.Printf("%s\n", ffhelp.Flags(fs))
		fmt.Printf("Error: %v\n", err)

		os.Exit(1)
	}

	if *help {
		fmt.Printf("%s\n", ffhelp.Flags(fs))

		os.Exit(0)
	}

	if *version {
		fmt.Printf("tsndt %v %v%v, built on: %v\n", GitTag, GitCommit, GitDirty, BuildTime)

		os.Exit(0)
	}

	if *tickRate <= 0 {
		fmt.Printf("Error: tick period must be positive, got %v\n", *tickRate)

		os.Exit(1)
	}

	if *window <= 0 {
		fmt.Printf("Error: window size must be positive, got %v\n", *window)

		os.Exit(1)
	}

	return &Config{
		TickRate:    *tickRate,
		WindowSize:  *window,
		IdleTimeout: *idleTimeout,
		Timeout:     *timeout,
		DataDir:     *dataDir,
		LogLevel:    *logLevel,
		MetricsAddr: *metricsAddr,
		Headless:    *headless,
		JSONOutput:  *jsonOutput,
	}
}
