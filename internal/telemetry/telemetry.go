/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package telemetry sends anonymous, opt-in usage events: finished and
// failed exports, editing sessions (platform, screen and edit counts) and
// crashes. Events carry counts and short identifiers only; project names,
// text, file paths and error messages are never sent.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	applog "shotframe/internal/log"
	"shotframe/internal/version"
)

// Environment variables read by FromEnv.
const (
	EnvOptIn     = "SHOTFRAME_TELEMETRY_OPT_IN"
	EnvURL       = "SHOTFRAME_TELEMETRY_URL"
	EnvCrashURL  = "SHOTFRAME_CRASH_UPLOAD_URL"
	EnvTimeoutMS = "SHOTFRAME_TELEMETRY_TIMEOUT_MS"
	EnvDebug     = "SHOTFRAME_TELEMETRY_DEBUG"
)

const (
	defaultTimeout = 1500 * time.Millisecond
	queueSize      = 64
)

// Config controls the client. Nothing is sent unless OptIn is set and the
// matching URL is configured.
type Config struct {
	OptIn     bool
	EventsURL string
	CrashURL  string
	Timeout   time.Duration
	Debug     bool
}

// FromEnv reads the SHOTFRAME_TELEMETRY_* variables.
func FromEnv() Config {
	cfg := Config{
		OptIn:     truthy(os.Getenv(EnvOptIn)),
		EventsURL: strings.TrimSpace(os.Getenv(EnvURL)),
		CrashURL:  strings.TrimSpace(os.Getenv(EnvCrashURL)),
		Timeout:   defaultTimeout,
		Debug:     os.Getenv(EnvDebug) != "",
	}
	if n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(EnvTimeoutMS))); err == nil && n > 0 {
		cfg.Timeout = time.Duration(n) * time.Millisecond
	}
	return cfg
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// Event is one typed usage record.
type Event interface {
	Name() string
	Props() map[string]any
}

// Event names.
const (
	NameExport      = "export"
	NameExportError = "export_error"
	NameSession     = "session"
	NameCrash       = "crash"
)

// Export is a finished or failed export run of one kind (files, zip, pdf,
// preset).
type Export struct {
	Kind    string
	Format  string
	Scale   int
	Screens int
	Took    time.Duration
	Failed  bool
}

func (e Export) Name() string {
	if e.Failed {
		return NameExportError
	}
	return NameExport
}

func (e Export) Props() map[string]any {
	p := map[string]any{"kind": e.Kind, "format": e.Format, "scale": e.Scale}
	if !e.Failed {
		p["screens"] = e.Screens
		p["ms"] = e.Took.Milliseconds()
	}
	return p
}

// Session summarizes one opened project when it is closed.
type Session struct {
	Platform string
	Screens  int
	Edits    int
}

func (Session) Name() string { return NameSession }

func (s Session) Props() map[string]any {
	return map[string]any{"platform": s.Platform, "screens": s.Screens, "edits": s.Edits}
}

// Crash records a recovered panic by the type of its value.
type Crash struct {
	PanicType string
	Screens   int
}

func (Crash) Name() string { return NameCrash }

func (c Crash) Props() map[string]any {
	return map[string]any{"panic": c.PanicType, "screens": c.Screens}
}

// token is the shape of string values allowed in events: short lowercase
// identifiers such as "png", "ios" or "*errors.errorstring".
var token = regexp.MustCompile(`^[a-z0-9_.*\-]{1,40}$`)

// Filter keeps numbers, bools and identifier-like strings and drops
// everything else, so free text and paths cannot leave the machine.
func Filter(props map[string]any) map[string]any {
	out := make(map[string]any, len(props))
	for k, v := range props {
		switch x := v.(type) {
		case bool, int, int64, float64:
			out[k] = x
		case string:
			if s := strings.ToLower(x); token.MatchString(s) {
				out[k] = s
			}
		}
	}
	return out
}

type record struct {
	Name    string         `json:"name"`
	TS      string         `json:"ts"`
	Version string         `json:"version"`
	OS      string         `json:"os"`
	Arch    string         `json:"arch"`
	Props   map[string]any `json:"props,omitempty"`
}

// Client queues events and posts them from one goroutine. A full queue or a
// failed request drops the event.
type Client struct {
	cfg  Config
	http *http.Client
	log  *slog.Logger

	q    chan record
	wg   sync.WaitGroup
	stop sync.Once
	done chan struct{}
}

// New starts a client.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	c := &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  applog.WithComponent("telemetry"),
		q:    make(chan record, queueSize),
		done: make(chan struct{}),
	}
	go c.run()
	return c
}

// Enabled reports whether events are sent.
func (c *Client) Enabled() bool { return c != nil && c.cfg.OptIn && c.cfg.EventsURL != "" }

// Track queues e when enabled.
func (c *Client) Track(e Event) {
	if !c.Enabled() || e == nil || e.Name() == "" {
		return
	}
	select {
	case <-c.done:
		return
	default:
	}
	r := record{
		Name:    e.Name(),
		TS:      time.Now().UTC().Format(time.RFC3339Nano),
		Version: version.String(),
		OS:      runtime.GOOS,
		Arch:    runtime.GOARCH,
		Props:   Filter(e.Props()),
	}
	c.wg.Add(1)
	select {
	case c.q <- r:
	default:
		c.wg.Done()
	}
}

// Flush waits until queued events are sent or ctx ends.
func (c *Client) Flush(ctx context.Context) {
	idle := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(idle)
	}()
	select {
	case <-idle:
	case <-ctx.Done():
	}
}

// Close stops the sender; queued events are dropped.
func (c *Client) Close() { c.stop.Do(func() { close(c.done) }) }

func (c *Client) run() {
	for {
		select {
		case <-c.done:
			for {
				select {
				case <-c.q:
					c.wg.Done()
				default:
					return
				}
			}
		case r := <-c.q:
			c.post(c.cfg.EventsURL, "application/json", r.Name, func() ([]byte, error) { return json.Marshal(r) })
			c.wg.Done()
		}
	}
}

func (c *Client) post(url, contentType, what string, body func() ([]byte, error)) {
	b, err := body()
	if err != nil {
		return
	}
	resp, err := c.http.Post(url, contentType, bytes.NewReader(b))
	if err != nil {
		if c.cfg.Debug {
			c.log.Debug("telemetry send failed", slog.String("what", what), slog.Any("err", err))
		}
		return
	}
	_ = resp.Body.Close()
	if c.cfg.Debug {
		c.log.Debug("telemetry sent", slog.String("what", what), slog.Int("status", resp.StatusCode))
	}
}

// ReportCrash tracks c and uploads the crash report text when a crash URL
// is configured. The upload runs synchronously: the process is about to
// exit.
func (c *Client) ReportCrash(info Crash, report []byte) {
	if c == nil || !c.cfg.OptIn {
		return
	}
	c.Track(info)
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.Timeout)
	defer cancel()
	c.Flush(ctx)
	if c.cfg.CrashURL != "" {
		c.post(c.cfg.CrashURL, "text/plain; charset=utf-8", "crash report", func() ([]byte, error) { return report, nil })
	}
}

var (
	defMu  sync.Mutex
	defCli *Client
)

// NewDefault installs the package client used by the helpers below,
// closing the previous one.
func NewDefault(cfg Config) {
	defMu.Lock()
	defer defMu.Unlock()
	if defCli != nil {
		defCli.Close()
	}
	defCli = New(cfg)
}

func def() *Client {
	defMu.Lock()
	defer defMu.Unlock()
	if defCli == nil {
		defCli = New(FromEnv())
	}
	return defCli
}

// Enabled reports whether the package client sends events.
func Enabled() bool { return def().Enabled() }

// Track queues e on the package client.
func Track(e Event) { def().Track(e) }

// Flush drains the package client.
func Flush(ctx context.Context) { def().Flush(ctx) }

// ReportCrash reports a crash on the package client.
func ReportCrash(info Crash, report []byte) { def().ReportCrash(info, report) }
