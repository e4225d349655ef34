/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package project

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"

	"github.com/anthonynsimon/bild/transform"

	"shotframe/internal/compose"
	"shotframe/internal/devices"
	applog "shotframe/internal/log"
	"shotframe/internal/scene"
)

// ThumbnailScale is the rasterization multiplier of screen thumbnails.
const ThumbnailScale = 0.1

// Saver persists a project after each screen switch. storage.Handle
// implements it.
type Saver interface {
	Save(p *Project) error
}

// Editor owns one project and the session that shows its live screen.
type Editor struct {
	p       *Project
	s       *compose.Session
	cur     int
	saver   Saver
	log     *slog.Logger
	starter compose.Starter
}

// EditorOptions configures NewEditor.
type EditorOptions struct {
	// Saver, when set, is called after every switch.
	Saver Saver
	// Background of starter content; empty uses the default gradient.
	Background string
	Color      devices.FrameColor
}

// NewEditor opens screen 0 of p in s.
func NewEditor(p *Project, s *compose.Session, opts EditorOptions) (*Editor, error) {
	e := &Editor{
		p:     p,
		s:     s,
		saver: opts.Saver,
		log:   applog.WithComponent("editor"),
		starter: compose.Starter{
			Background: opts.Background,
			Platform:   p.Platform,
		},
	}
	e.starter.Color = opts.Color
	if err := e.open(0); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Editor) Project() *Project         { return e.p }
func (e *Editor) Session() *compose.Session { return e.s }

// Current returns the index of the live screen.
func (e *Editor) Current() int { return e.cur }

// open loads screen i into the session; fresh screens get starter content.
func (e *Editor) open(i int) error {
	sc := &e.p.Screens[i]
	var st *compose.Starter
	if len(sc.CanvasData) == 0 {
		v := e.starter
		v.Headline = fmt.Sprintf("Screen %d", i+1)
		v.Width, v.Height = e.p.Width, e.p.Height
		st = &v
	}
	if err := e.s.Open(sc.ID, sc.CanvasData, st); err != nil {
		return err
	}
	e.cur = i
	return nil
}

// SwitchScreen stores the live screen (scene and thumbnail) and loads
// screen i. Intents issued while it runs fail with compose.ErrBusy. When
// the target cannot be loaded the previous screen is reopened.
func (e *Editor) SwitchScreen(i int) error {
	if err := e.p.check(i); err != nil {
		return err
	}
	if i == e.cur {
		return nil
	}
	if e.s.Busy() {
		return compose.ErrBusy
	}
	resume := e.s.Suspend()
	defer resume()

	if err := e.Store(); err != nil {
		return err
	}
	prev := e.cur
	if err := e.open(i); err != nil {
		e.log.Warn("switch failed", slog.Int("from", prev), slog.Int("to", i), slog.Any("err", err))
		if rerr := e.open(prev); rerr != nil {
			return errors.Join(err, rerr)
		}
		return fmt.Errorf("switch to screen %d: %w", i+1, err)
	}
	e.p.touch()
	e.log.Debug("screen switched", slog.Int("from", prev), slog.Int("to", i))
	return e.save()
}

// Store writes the live scene and a thumbnail into the current screen.
func (e *Editor) Store() error {
	data, err := e.s.Serialize()
	if err != nil {
		return fmt.Errorf("store screen %d: %w", e.cur+1, err)
	}
	sc := &e.p.Screens[e.cur]
	sc.CanvasData = data
	if thumb, err := e.thumbnail(); err != nil {
		e.log.Debug("thumbnail skipped", slog.Any("err", err))
	} else {
		sc.Thumbnail = thumb
	}
	return nil
}

func (e *Editor) thumbnail() ([]byte, error) {
	img, err := e.s.Canvas().Rasterize(ThumbnailScale)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *Editor) save() error {
	if e.saver == nil {
		return nil
	}
	if err := e.saver.Save(e.p); err != nil {
		return fmt.Errorf("save project: %w", err)
	}
	return nil
}

// SetCanvasSize resizes the live screen and makes w×h the size of screens
// created from now on. Screens already edited keep their stored size until
// they are resized themselves.
func (e *Editor) SetCanvasSize(w, h float64) error {
	if err := e.s.SetCanvasSize(w, h); err != nil {
		return err
	}
	e.p.Width, e.p.Height = w, h
	e.p.touch()
	return nil
}

// ResetCanvasSize restores the platform's default canvas size.
func (e *Editor) ResetCanvasSize() error {
	return e.SetCanvasSize(CanvasSize(e.p.Platform))
}

// AddScreen appends an empty screen without switching to it.
func (e *Editor) AddScreen() (int, error) {
	return e.p.AddScreen()
}

// RemoveScreen deletes screen i and its history. Removing the live screen
// loads the screen that takes its index (or the new last one).
func (e *Editor) RemoveScreen(i int) error {
	if e.s.Busy() {
		return compose.ErrBusy
	}
	gone, err := e.p.RemoveScreen(i)
	if err != nil {
		return err
	}
	e.s.History().Manager().Clear(gone.ID)
	switch {
	case i < e.cur:
		e.cur--
	case i == e.cur:
		resume := e.s.Suspend()
		defer resume()
		if err := e.open(min(i, len(e.p.Screens)-1)); err != nil {
			return err
		}
	}
	return e.save()
}

// MoveScreen reorders screens and makes the moved screen live.
func (e *Editor) MoveScreen(from, to int) error {
	if e.s.Busy() {
		return compose.ErrBusy
	}
	if err := e.Store(); err != nil {
		return err
	}
	id := e.p.Screens[e.cur].ID
	if err := e.p.MoveScreen(from, to); err != nil {
		return err
	}
	e.cur = e.p.IndexOf(id)
	return e.SwitchScreen(to)
}

// DuplicateScreen copies screen i next to itself and switches to the copy.
func (e *Editor) DuplicateScreen(i int) (int, error) {
	if e.s.Busy() {
		return -1, compose.ErrBusy
	}
	if err := e.Store(); err != nil {
		return -1, err
	}
	j, err := e.p.DuplicateScreen(i)
	if err != nil {
		return -1, err
	}
	if j <= e.cur {
		e.cur++
	}
	return j, e.SwitchScreen(j)
}

// Thumbnail max size of GenerateThumbnail.
const (
	ThumbMaxWidth  = 200
	ThumbMaxHeight = 400
)

// GenerateThumbnail scales img to fit ThumbMaxWidth×ThumbMaxHeight keeping
// its aspect ratio. Smaller images are returned unscaled.
func GenerateThumbnail(img image.Image) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= ThumbMaxWidth && h <= ThumbMaxHeight {
		return img
	}
	k := min(float64(ThumbMaxWidth)/float64(w), float64(ThumbMaxHeight)/float64(h))
	tw, th := max(1, int(float64(w)*k)), max(1, int(float64(h)*k))
	return transform.Resize(img, tw, th, transform.Linear)
}

// RenderScreen rasterizes screen i at multiplier. The live screen comes
// from the session canvas; others are decoded onto c.
func (e *Editor) RenderScreen(c *scene.Canvas, i int, multiplier float64) (*image.RGBA, error) {
	if err := e.p.check(i); err != nil {
		return nil, err
	}
	if i == e.cur {
		return e.s.Canvas().Rasterize(multiplier)
	}
	data := e.p.Screens[i].CanvasData
	if len(data) == 0 {
		return nil, fmt.Errorf("screen %d was never opened", i+1)
	}
	if err := c.Deserialize(data); err != nil {
		return nil, err
	}
	return c.Rasterize(multiplier)
}
