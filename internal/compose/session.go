/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package compose is the composition session: it turns editor intents into
// scene mutations (background, device frame, fitted screenshot, free
// content) and records exactly one history snapshot per mutation.
package compose

import (
	"errors"
	"fmt"
	"image"
	"log/slog"

	"shotframe/internal/devices"
	applog "shotframe/internal/log"
	"shotframe/internal/render"
	"shotframe/internal/scene"
	"shotframe/internal/undo"
	"shotframe/internal/vector"
)

// Names of the objects the session owns.
const (
	NameBackground = "background"
	NameScreenshot = "device-screenshot"
	NameOverlay    = "notch-overlay"
)

// ScratchKey is the history key of a session no screen was opened in.
const ScratchKey = "scratch"

// ErrBusy is returned for intents issued while a screen switch is running.
var ErrBusy = errors.New("compose: session is busy")

// Canvas is the scene capability the session drives. *scene.Canvas
// implements it.
type Canvas interface {
	Width() float64
	Height() float64
	SetSize(width, height float64)
	Objects() []*scene.Object
	Add(objs ...*scene.Object)
	Insert(idx int, o *scene.Object)
	Remove(objs ...*scene.Object)
	Clear()
	IndexOf(o *scene.Object) int
	MoveTo(o *scene.Object, idx int)
	SendToBack(o *scene.Object)
	BringToFront(o *scene.Object)
	FindByName(name string) *scene.Object
	Filter(pred func(*scene.Object) bool) []*scene.Object
	SetActive(objs ...*scene.Object)
	Active() []*scene.Object
	DiscardActive()
	On(o *scene.Object, ev scene.Event, fn scene.Handler) scene.Subscription
	Emit(o *scene.Object, ev scene.Event)
	Serialize() ([]byte, error)
	Deserialize(data []byte) error
	Rasterize(multiplier float64) (*image.RGBA, error)
}

// Images resolves image sources. Load calls done synchronously for cached
// sources and on the UI loop otherwise. *assets.Loader implements it.
type Images interface {
	Load(src string, done func(image.Image, error))
}

// Scheduler coalesces per-key callbacks to the next frame. *loop.Loop
// implements it.
type Scheduler interface {
	RequestFrame(key string, fn func())
	FlushFrame(key string) bool
	CancelFrame(key string)
}

// TextMeasure returns the widest line and the height of t laid out at width.
type TextMeasure func(t *scene.Text, width float64) (w, h float64)

// Options configures a Session. Zero fields get defaults.
type Options struct {
	Catalog *devices.Catalog
	History *undo.Manager
	Images  Images
	// Frames throttles screenshot re-placement; nil re-places immediately.
	Frames  Scheduler
	Measure TextMeasure
	// Snap enables smart-guide snapping while moving objects.
	Snap      bool
	Threshold float64
}

// Session is the single owner of one live canvas. It is not safe for
// concurrent use; all calls happen on the UI loop.
type Session struct {
	canvas  Canvas
	history *undo.History
	catalog *devices.Catalog
	images  Images
	frames  Scheduler
	measure TextMeasure
	snap    bool
	thresh  float64

	deviceID   string
	color      devices.FrameColor
	screenshot string
	seq        uint64
	epoch      uint64
	binding    []scene.Subscription
	guides     []vector.GuideLine
	busy       bool

	log *slog.Logger
}

// New creates a session over c.
func New(c Canvas, opts Options) *Session {
	if opts.Catalog == nil {
		opts.Catalog = devices.Default()
	}
	if opts.History == nil {
		opts.History = undo.NewManager(undo.Config{})
	}
	if opts.Measure == nil {
		opts.Measure = render.MeasureText
	}
	s := &Session{
		canvas:  c,
		catalog: opts.Catalog,
		images:  opts.Images,
		frames:  opts.Frames,
		measure: opts.Measure,
		snap:    opts.Snap,
		thresh:  opts.Threshold,
		color:   devices.Black,
		log:     applog.WithComponent("compose"),
	}
	s.history = undo.NewHistory(opts.History, c)
	s.history.OnAfterReplay(s.afterReplay)
	s.history.Bind(ScratchKey)
	return s
}

func (s *Session) Canvas() Canvas { return s.canvas }

func (s *Session) History() *undo.History { return s.history }

// DeviceID is the device of the live frame, or "".
func (s *Session) DeviceID() string { return s.deviceID }

// FrameColor is the color new frames are built in.
func (s *Session) FrameColor() devices.FrameColor { return s.color }

// ScreenshotSource is the source assigned to the frame's screen, or "".
func (s *Session) ScreenshotSource() string { return s.screenshot }

// Guides returns the smart guides of the last snapped move.
func (s *Session) Guides() []vector.GuideLine { return s.guides }

// do runs fn as one committed mutation.
func (s *Session) do(op string, fn func() error) error {
	if s.busy {
		return ErrBusy
	}
	if err := s.history.Mutate(undo.Commit, fn); err != nil {
		s.log.Warn("intent failed", slog.String("op", op), slog.Any("err", err))
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Suspend marks the session busy until the returned func is called.
func (s *Session) Suspend() (resume func()) {
	s.busy = true
	return func() { s.busy = false }
}

func (s *Session) Busy() bool { return s.busy }

// Undo restores the previous snapshot of the live screen.
func (s *Session) Undo() error {
	if s.busy {
		return ErrBusy
	}
	return s.history.Undo()
}

// Redo re-applies the next snapshot of the live screen.
func (s *Session) Redo() error {
	if s.busy {
		return ErrBusy
	}
	return s.history.Redo()
}

func (s *Session) CanUndo() bool { return s.history.CanUndo() }
func (s *Session) CanRedo() bool { return s.history.CanRedo() }

// afterReplay runs while the history is replaying: the deserialized scene
// carries no subscriptions or session state, so both are rebuilt from it.
func (s *Session) afterReplay() {
	s.detach()
	s.adopt()
}

// Detach forgets the live frame, its subscriptions, the assigned
// screenshot and any pending re-placement or image load. The scene is
// untouched.
func (s *Session) Detach() { s.detach() }

func (s *Session) detach() {
	s.unbind()
	if s.frames != nil {
		s.frames.CancelFrame(frameKey)
	}
	s.seq++
	s.epoch++
	s.deviceID = ""
	s.screenshot = ""
	s.guides = nil
}

// adopt reads session state back from the scene and reasserts the flags of
// protected objects.
func (s *Session) adopt() {
	for _, o := range s.canvas.Objects() {
		switch {
		case o.Name == NameBackground, o.Name == NameScreenshot, o.Name == NameOverlay:
			o.Selectable, o.Evented = false, false
			if o.Name == NameScreenshot {
				s.screenshot = o.Src
			}
		case isFrame(o):
			o.Selectable, o.Evented = true, true
			for _, ch := range o.Children {
				ch.Selectable, ch.Evented = false, false
			}
			if o.Frame != nil {
				s.deviceID = o.Frame.DeviceID
				s.color = devices.FrameColor(o.Frame.Color).Normalize()
			}
		}
	}
	if f := s.frame(); f != nil {
		s.bind(f)
	}
}

// Starter is the content a never-visited screen starts with.
type Starter struct {
	Background string
	Headline   string
	Platform   devices.Platform
	Color      devices.FrameColor
	// Width and Height, when set, size the canvas first.
	Width, Height float64
}

// Open makes key the live screen. With data the scene is restored from it;
// otherwise st (when non-nil) builds fresh content. The result is recorded
// as the screen's current snapshot unless it equals it already. Open is the
// screen-switch entry point and is allowed while the session is suspended.
func (s *Session) Open(key string, data []byte, st *Starter) error {
	s.detach()
	s.history.Bind(key)
	if len(data) > 0 {
		if err := s.canvas.Deserialize(data); err != nil {
			return fmt.Errorf("open screen %s: %w", key, err)
		}
		s.adopt()
	} else {
		s.canvas.Clear()
		if st != nil {
			if err := s.buildStarter(*st); err != nil {
				return fmt.Errorf("open screen %s: %w", key, err)
			}
		}
	}
	return s.history.Snapshot()
}

// Starter headline geometry.
const (
	StarterBackground = "linear-gradient(180deg, #0077B6 0%, #00B4D8 100%)"
	headlineSize      = 96
	headlineTop       = 200
)

func (s *Session) buildStarter(st Starter) error {
	if st.Width > 0 && st.Height > 0 {
		s.canvas.SetSize(st.Width, st.Height)
	}
	if st.Background == "" {
		st.Background = StarterBackground
	}
	s.setBackground(st.Background)
	if st.Headline != "" {
		o := scene.NewObject(scene.KindText, "headline")
		o.Origin = scene.OriginCenter
		o.Text = &scene.Text{Content: st.Headline, FontSize: headlineSize, Bold: true, Align: "center"}
		o.Width = s.canvas.Width() - 100
		_, o.Height = s.measure(o.Text, o.Width)
		o.Left, o.Top = s.canvas.Width()/2, headlineTop+o.Height/2
		o.Fill = vector.Solid("#FFFFFF")
		s.canvas.Add(o)
	}
	if st.Color != "" {
		s.color = st.Color.Normalize()
	}
	s.addDevice(s.catalog.DefaultFor(st.Platform).ID, s.color)
	s.canvas.DiscardActive()
	return nil
}

// Serialize encodes the live scene.
func (s *Session) Serialize() ([]byte, error) { return s.canvas.Serialize() }
