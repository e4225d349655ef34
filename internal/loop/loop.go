/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package loop is the single logical UI thread: every scene mutation runs
// inside Drain/Tick/Run, while background work hands results back via Post.
// Frame callbacks requested with RequestFrame are coalesced per key and run
// at most once per tick.
package loop

import (
	"context"
	"log/slog"
	"sync"
	"time"

	applog "shotframe/internal/log"
)

// DefaultFPS is the frame rate Run uses when given zero.
const DefaultFPS = 60

type Loop struct {
	mu     sync.Mutex
	posts  []func()
	frames map[string]func()
	order  []string
	wake   chan struct{}
	log    *slog.Logger
}

func New() *Loop {
	return &Loop{
		frames: make(map[string]func()),
		wake:   make(chan struct{}, 1),
		log:    applog.WithComponent("loop"),
	}
}

// Post enqueues fn to run on the loop. Safe for concurrent use.
func (l *Loop) Post(fn func()) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	l.posts = append(l.posts, fn)
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Wake is signalled after Post; consumers drain on receipt.
func (l *Loop) Wake() <-chan struct{} { return l.wake }

// RequestFrame schedules fn for the next tick. A later request under the
// same key replaces the pending one, so a burst of events yields one call.
func (l *Loop) RequestFrame(key string, fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.frames[key]; !ok {
		l.order = append(l.order, key)
	}
	l.frames[key] = fn
}

// FlushFrame runs the pending callback for key now, if any.
func (l *Loop) FlushFrame(key string) bool {
	l.mu.Lock()
	fn, ok := l.frames[key]
	if ok {
		delete(l.frames, key)
		for i, k := range l.order {
			if k == key {
				l.order = append(l.order[:i], l.order[i+1:]...)
				break
			}
		}
	}
	l.mu.Unlock()
	if ok && fn != nil {
		fn()
	}
	return ok
}

// CancelFrame drops the pending callback for key.
func (l *Loop) CancelFrame(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.frames[key]; !ok {
		return
	}
	delete(l.frames, key)
	for i, k := range l.order {
		if k == key {
			l.order = append(l.order[:i], l.order[i+1:]...)
			return
		}
	}
}

// Pending reports queued posts and frame callbacks.
func (l *Loop) Pending() (posts, frames int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.posts), len(l.frames)
}

// Drain runs queued posts, including ones posted while draining, and
// returns how many ran.
func (l *Loop) Drain() int {
	n := 0
	for {
		l.mu.Lock()
		batch := l.posts
		l.posts = nil
		l.mu.Unlock()
		if len(batch) == 0 {
			return n
		}
		for _, fn := range batch {
			l.run(fn)
			n++
		}
	}
}

// Tick drains posts and then runs every frame callback pending at the start
// of the frame. Callbacks requested during the frame wait for the next tick.
func (l *Loop) Tick() int {
	n := l.Drain()
	l.mu.Lock()
	keys := l.order
	frames := l.frames
	l.order = nil
	l.frames = make(map[string]func())
	l.mu.Unlock()
	for _, k := range keys {
		if fn := frames[k]; fn != nil {
			l.run(fn)
			n++
		}
	}
	return n
}

func (l *Loop) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error("loop task panicked", slog.Any("panic", r))
		}
	}()
	fn()
}

// Run ticks at fps until ctx is done, draining posts as they arrive.
func (l *Loop) Run(ctx context.Context, fps int) error {
	if fps <= 0 {
		fps = DefaultFPS
	}
	t := time.NewTicker(time.Second / time.Duration(fps))
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			l.Drain()
			return ctx.Err()
		case <-l.wake:
			l.Drain()
		case <-t.C:
			l.Tick()
		}
	}
}
