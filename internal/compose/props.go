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
	"fmt"
	"strconv"
	"strings"

	"shotframe/internal/scene"
	"shotframe/internal/vector"
)

// Property names an object edit can set.
type Property string

const (
	PropLeft       Property = "left"
	PropTop        Property = "top"
	PropWidth      Property = "width"  // displayed width; sets ScaleX
	PropHeight     Property = "height" // displayed height; sets ScaleY
	PropAngle      Property = "angle"
	PropOpacity    Property = "opacity" // 0..1
	PropFill       Property = "fill"
	PropFontSize   Property = "fontSize"
	PropFontWeight Property = "fontWeight" // bold, normal or a CSS weight
)

// Properties lists the editable properties in panel order.
var Properties = []Property{PropLeft, PropTop, PropWidth, PropHeight, PropAngle, PropOpacity, PropFill, PropFontSize, PropFontWeight}

var (
	// ErrLocked is returned for geometry edits of a locked object.
	ErrLocked = errors.New("compose: object is locked")
	// ErrProperty is returned for unknown properties and unusable values.
	ErrProperty = errors.New("compose: invalid property")
)

// ParseProperty accepts a property name case-insensitively, with or
// without a dash (font-size).
func ParseProperty(name string) (Property, error) {
	k := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "")
	for _, p := range Properties {
		if strings.ToLower(string(p)) == k {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrProperty, name)
}

// Selected returns the single selected object, or nil.
func (s *Session) Selected() *scene.Object {
	if a := s.canvas.Active(); len(a) == 1 {
		return a[0]
	}
	return nil
}

// SetProperty edits one property of the selected object. Without a single
// selection it does nothing. Fill and font properties apply to the kinds
// that carry them and are ignored elsewhere. Moving, sizing or turning the
// frame re-fits its screenshot.
func (s *Session) SetProperty(p Property, value string) error {
	return s.do("set "+string(p), func() error {
		o := s.Selected()
		if o == nil {
			return nil
		}
		return s.setProperty(o, p, strings.TrimSpace(value))
	})
}

func (s *Session) setProperty(o *scene.Object, p Property, v string) error {
	num := func() (float64, error) {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %s=%q", ErrProperty, p, v)
		}
		return f, nil
	}
	var ev scene.Event
	switch p {
	case PropLeft, PropTop, PropWidth, PropHeight, PropAngle:
		if o.Locked {
			return ErrLocked
		}
		f, err := num()
		if err != nil {
			return err
		}
		switch p {
		case PropLeft:
			o.Left, ev = f, scene.EventMoving
		case PropTop:
			o.Top, ev = f, scene.EventMoving
		case PropWidth, PropHeight:
			if f <= 0 {
				return fmt.Errorf("%w: %s must be positive", ErrProperty, p)
			}
			if p == PropWidth && o.Width > 0 {
				o.ScaleX = f / o.Width
			}
			if p == PropHeight && o.Height > 0 {
				o.ScaleY = f / o.Height
			}
			ev = scene.EventScaling
		case PropAngle:
			c := o.CenterPoint()
			o.Angle = f
			o.SetCenterPoint(c)
			ev = scene.EventRotating
		}
	case PropOpacity:
		f, err := num()
		if err != nil {
			return err
		}
		o.Opacity = min(max(f, 0), 1)
	case PropFill:
		if _, err := vector.ParseColor(v); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrProperty, p, err)
		}
		if o.Kind != scene.KindGroup && o.Kind != scene.KindImage {
			o.Fill = vector.Solid(v)
		}
	case PropFontSize:
		f, err := num()
		if err != nil {
			return err
		}
		if f <= 0 {
			return fmt.Errorf("%w: %s must be positive", ErrProperty, p)
		}
		if o.Text != nil {
			o.Text.FontSize = f
			_, o.Height = s.measure(o.Text, o.Width)
		}
	case PropFontWeight:
		bold, err := parseWeight(v)
		if err != nil {
			return err
		}
		if o.Text != nil {
			o.Text.Bold = bold
			_, o.Height = s.measure(o.Text, o.Width)
		}
	default:
		return fmt.Errorf("%w: %q", ErrProperty, p)
	}
	if ev != "" {
		s.canvas.Emit(o, ev)
		if s.frames != nil {
			s.frames.FlushFrame(frameKey)
		}
	}
	s.canvas.Emit(o, scene.EventModified)
	return nil
}

func parseWeight(v string) (bool, error) {
	switch strings.ToLower(v) {
	case "bold":
		return true, nil
	case "normal", "regular":
		return false, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 100 || n > 900 {
		return false, fmt.Errorf("%w: fontWeight=%q", ErrProperty, v)
	}
	return n >= 600, nil
}

// duplicateOffset is how far a copy lands from its original.
const duplicateOffset = 20

// DuplicateSelected copies every selected free object on top of the scene,
// offset down and right, and selects the copies. Session-owned objects
// and the frame are never copied.
func (s *Session) DuplicateSelected() error {
	return s.do("duplicate", func() error {
		var copies []*scene.Object
		for _, o := range s.canvas.Active() {
			if Protected(o) {
				continue
			}
			c := o.Clone()
			if c == nil {
				continue
			}
			c.Left += duplicateOffset
			c.Top += duplicateOffset
			c.Locked = false
			s.canvas.Add(c)
			copies = append(copies, c)
		}
		if len(copies) > 0 {
			s.canvas.SetActive(copies...)
		}
		return nil
	})
}

// Flip mirrors the selected free objects horizontally or vertically in
// place. The frame and session-owned objects are not flipped.
func (s *Session) Flip(horizontal bool) error {
	op := "flip vertical"
	if horizontal {
		op = "flip horizontal"
	}
	return s.do(op, func() error {
		for _, o := range s.canvas.Active() {
			if Protected(o) {
				continue
			}
			if horizontal {
				o.FlipX = !o.FlipX
			} else {
				o.FlipY = !o.FlipY
			}
		}
		return nil
	})
}

// ToggleLock locks or unlocks the selected object. Locked objects stay
// selectable but cannot be moved, scaled or rotated.
func (s *Session) ToggleLock() error {
	return s.do("toggle lock", func() error {
		o := s.Selected()
		if o == nil || !o.Selectable {
			return nil
		}
		o.Locked = !o.Locked
		return nil
	})
}

// SetCanvasSize resizes the design canvas and stretches the background to
// it. Other objects keep their positions.
func (s *Session) SetCanvasSize(w, h float64) error {
	if w <= 0 || h <= 0 {
		return fmt.Errorf("%w: canvas size %gx%g", ErrProperty, w, h)
	}
	return s.do("set canvas size", func() error {
		s.resize(w, h)
		return nil
	})
}

func (s *Session) resize(w, h float64) {
	old := s.canvas.Height()
	s.canvas.SetSize(w, h)
	bg := s.canvas.FindByName(NameBackground)
	if bg == nil {
		return
	}
	bg.Width, bg.Height = w, h
	if g := bg.Fill.Linear; g != nil && old > 0 {
		k := h / old
		g.Y1 *= k
		g.Y2 *= k
	}
}
