/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package compose

import (
	"log/slog"
	"math/rand/v2"

	"shotframe/internal/devices"
	"shotframe/internal/frame"
	"shotframe/internal/scene"
	"shotframe/internal/undo"
)

// frameKey is the frame-scheduler key of screenshot re-placement.
const frameKey = "screenshot-placement"

func isFrame(o *scene.Object) bool { return frame.IsFrame(o) }

// frame returns the live frame group, or nil.
func (s *Session) frame() *scene.Object {
	for _, o := range s.canvas.Objects() {
		if isFrame(o) {
			return o
		}
	}
	return nil
}

// Frame returns the live device frame group, or nil.
func (s *Session) Frame() *scene.Object { return s.frame() }

// AddDevice puts device id on the canvas in color c. An existing frame is
// replaced in place, keeping its position and scale, and an assigned
// screenshot is fitted to the new screen. Unknown ids use the default device.
func (s *Session) AddDevice(id string, c devices.FrameColor) error {
	return s.do("add device", func() error {
		s.addDevice(id, c)
		return nil
	})
}

// ChangeDeviceColor rebuilds the live frame in c. Without a frame only the
// color for future frames changes.
func (s *Session) ChangeDeviceColor(c devices.FrameColor) error {
	return s.do("change device color", func() error {
		s.color = c.Normalize()
		if s.deviceID != "" {
			s.addDevice(s.deviceID, s.color)
		}
		return nil
	})
}

// AddRandomDevice adds a random phone, or the default device of platform
// when one is given.
func (s *Session) AddRandomDevice(rng *rand.Rand, platform devices.Platform) error {
	d := s.catalog.Random(rng)
	if platform == devices.IOS || platform == devices.Android {
		d = s.catalog.DefaultFor(platform)
	}
	return s.AddDevice(d.ID, s.color)
}

func (s *Session) addDevice(id string, c devices.FrameColor) {
	d := s.catalog.Lookup(id)
	c = c.Normalize()
	g, _ := frame.Build(d, c)

	if old := s.frame(); old != nil {
		g.Left, g.Top = old.Left, old.Top
		g.ScaleX, g.ScaleY = old.ScaleX, old.ScaleY
		idx := s.canvas.IndexOf(old)
		s.unbind()
		s.canvas.Remove(old)
		s.canvas.Insert(idx, g)
	} else {
		p := frame.DefaultPosition(s.canvas.Width())
		g.Left, g.Top = p.X, p.Y
		idx := 0
		if bg := s.canvas.FindByName(NameBackground); bg != nil {
			idx = s.canvas.IndexOf(bg) + 1
		}
		s.canvas.Insert(idx, g)
	}
	s.deviceID, s.color = d.ID, c
	s.bind(g)
	if s.screenshot != "" {
		s.placeScreenshot()
	}
	s.canvas.SetActive(g)
	s.log.Debug("device set", slog.String("device", d.ID), slog.String("color", string(c)))
}

// bind subscribes screenshot re-placement to manipulation of g.
func (s *Session) bind(g *scene.Object) {
	s.unbind()
	for _, ev := range []scene.Event{scene.EventMoving, scene.EventScaling, scene.EventRotating} {
		s.binding = append(s.binding, s.canvas.On(g, ev, func(*scene.Object) { s.requestPlacement() }))
	}
}

func (s *Session) unbind() {
	for _, sub := range s.binding {
		sub.Dispose()
	}
	s.binding = nil
}

// Bound reports the number of live frame subscriptions.
func (s *Session) Bound() int { return len(s.binding) }

func (s *Session) requestPlacement() {
	if s.screenshot == "" {
		return
	}
	if s.frames == nil {
		s.replace()
		return
	}
	s.frames.RequestFrame(frameKey, s.replace)
}

// replace re-fits the screenshot as a transient mutation; the commit that
// ends the manipulation records it.
func (s *Session) replace() {
	if s.screenshot == "" {
		return
	}
	err := s.history.Mutate(undo.Transient, func() error {
		s.placeScreenshot()
		return nil
	})
	if err != nil {
		s.log.Debug("re-placement skipped", slog.Any("err", err))
	}
}

// Select makes o the selection. Screenshot and overlay objects select their
// frame instead; other non-selectable objects are ignored.
func (s *Session) Select(o *scene.Object) bool {
	if o == nil {
		return false
	}
	if o.Name == NameScreenshot || o.Name == NameOverlay {
		o = s.frame()
		if o == nil {
			return false
		}
	}
	if !o.Selectable {
		return false
	}
	s.canvas.SetActive(o)
	return true
}

// SelectDevice selects the live frame.
func (s *Session) SelectDevice() bool {
	return s.Select(s.frame())
}
