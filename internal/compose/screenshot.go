/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package compose

import (
	"errors"
	"image"
	"log/slog"

	"shotframe/internal/devices"
	"shotframe/internal/fit"
	"shotframe/internal/scene"
	"shotframe/internal/undo"
	"shotframe/internal/vector"
)

var errNoImages = errors.New("compose: no image source configured")

// AddScreenshot assigns src to the frame's screen and fits it. Calling it
// again replaces the screenshot. Without a frame src becomes a free image.
func (s *Session) AddScreenshot(src string) error {
	return s.do("add screenshot", func() error {
		if s.frame() == nil {
			return s.addFreeImage(src)
		}
		if s.images == nil {
			return errNoImages
		}
		s.screenshot = src
		return s.placeScreenshot()
	})
}

// RemoveScreenshot clears the screen of the frame.
func (s *Session) RemoveScreenshot() error {
	return s.do("remove screenshot", func() error {
		s.screenshot = ""
		s.seq++
		s.clearPlacement()
		return nil
	})
}

// AddImage fits src into the frame when there is one and adds it as a free
// image otherwise.
func (s *Session) AddImage(src string) error {
	if s.frame() != nil {
		return s.AddScreenshot(src)
	}
	return s.do("add image", func() error { return s.addFreeImage(src) })
}

// placeScreenshot loads the assigned source and fits it to the live frame.
// Only the completion of the latest request is applied; cached sources
// complete before it returns.
func (s *Session) placeScreenshot() error {
	if s.images == nil {
		return errNoImages
	}
	s.seq++
	seq, src := s.seq, s.screenshot
	inline := true
	s.images.Load(src, func(img image.Image, err error) {
		if seq != s.seq {
			s.log.Debug("stale screenshot load ignored", slog.Uint64("seq", seq))
			return
		}
		if err != nil {
			s.log.Warn("screenshot load failed", slog.Any("err", err))
			s.screenshot = ""
			if cur := s.Screenshot(); cur != nil {
				s.screenshot = cur.Src
			}
			return
		}
		if inline {
			s.applyPlacement(src, img)
			return
		}
		err = s.history.Mutate(undo.Commit, func() error {
			s.applyPlacement(src, img)
			return nil
		})
		if err != nil {
			s.log.Warn("screenshot placement dropped", slog.Any("err", err))
		}
	})
	inline = false
	return nil
}

// applyPlacement replaces the screenshot and overlay objects with ones
// fitted to the frame's current transform.
func (s *Session) applyPlacement(src string, img image.Image) {
	f := s.frame()
	if f == nil || f.Frame == nil {
		return
	}
	s.clearPlacement()

	b := img.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())
	t := fit.FromObject(f)
	p := fit.Place(t, f.Frame.Screen, w, h)

	shot := scene.NewObject(scene.KindImage, NameScreenshot)
	shot.Origin = scene.OriginCenter
	shot.Left, shot.Top = p.Screen.Center.X, p.Screen.Center.Y
	shot.Width, shot.Height = w, h
	shot.ScaleX, shot.ScaleY = p.Scale, p.Scale
	shot.Angle = p.Screen.Angle
	shot.Src = src
	clip := p.Clip()
	shot.Clip = &clip
	shot.Selectable, shot.Evented = false, false

	idx := s.canvas.IndexOf(f) + 1
	s.canvas.Insert(idx, shot)
	pal := devices.Colors(devices.FrameColor(f.Frame.Color))
	for i, sh := range fit.Overlay(t, *f.Frame, pal.Frame) {
		s.canvas.Insert(idx+1+i, overlayObject(sh))
	}
}

func overlayObject(sh fit.Shape) *scene.Object {
	kind := scene.KindRect
	if sh.Circle {
		kind = scene.KindCircle
	}
	o := scene.NewObject(kind, NameOverlay)
	o.Origin = scene.OriginCenter
	o.Left, o.Top = sh.Center.X, sh.Center.Y
	o.Width, o.Height = sh.Width, sh.Height
	o.Radius = sh.Radius
	o.Angle = sh.Angle
	o.Fill = vector.Solid(sh.Fill)
	o.Selectable, o.Evented = false, false
	return o
}

func (s *Session) clearPlacement() {
	s.canvas.Remove(s.canvas.Filter(func(o *scene.Object) bool {
		return o.Name == NameScreenshot || o.Name == NameOverlay
	})...)
}

// Screenshot returns the placed screenshot object, or nil.
func (s *Session) Screenshot() *scene.Object { return s.canvas.FindByName(NameScreenshot) }
