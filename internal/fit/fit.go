/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package fit computes where a screenshot goes inside a transformed device
// frame: the screen center in world space, the cover scale, the clip and
// the decorative overlay redrawn on top. It is pure math over the frame's
// live transform and its unscaled screen rect.
package fit

import (
	"math"

	"shotframe/internal/scene"
	"shotframe/internal/vector"
)

// Transform is the live transform of a frame group.
type Transform struct {
	Center vector.Pt // world center after rotation and scale
	ScaleX float64
	ScaleY float64
	Angle  float64 // degrees, clockwise
	Width  float64 // intrinsic group width
	Height float64 // intrinsic group height
}

// FromObject reads the live transform of o.
func FromObject(o *scene.Object) Transform {
	sx, sy := o.ScaleX, o.ScaleY
	if sx == 0 {
		sx = 1
	}
	if sy == 0 {
		sy = 1
	}
	return Transform{
		Center: o.CenterPoint(),
		ScaleX: sx,
		ScaleY: sy,
		Angle:  o.Angle,
		Width:  o.Width,
		Height: o.Height,
	}
}

// DeviceSize is the frame's size after user scaling.
func (t Transform) DeviceSize() (w, h float64) { return t.Width * t.ScaleX, t.Height * t.ScaleY }

// toWorld maps an offset from the frame center (pre-rotation) to world space.
func (t Transform) toWorld(off vector.Pt) vector.Pt {
	return t.Center.Add(off.RotateDeg(t.Angle))
}

// Screen is the screen cutout of a transformed frame.
type Screen struct {
	Center vector.Pt
	Width  float64
	Height float64
	Radius float64
	Angle  float64
}

// ScreenOf resolves the world-space screen of a frame with screen rect sr.
func ScreenOf(t Transform, sr scene.ScreenRect) Screen {
	dw, dh := t.DeviceSize()
	top := sr.TopInset * t.ScaleY
	bottom := sr.BottomInset * t.ScaleY
	offY := ((-dh/2 + top) + (dh/2 - bottom)) / 2
	return Screen{
		Center: t.toWorld(vector.Pt{X: 0, Y: offY}),
		Width:  dw - 2*sr.Padding*t.ScaleX,
		Height: dh - top - bottom,
		Radius: sr.CornerRadius * math.Min(t.ScaleX, t.ScaleY),
		Angle:  t.Angle,
	}
}

// Cover returns the smallest uniform scale at which an image of imgW×imgH
// fully covers a w×h box.
func Cover(w, h, imgW, imgH float64) float64 {
	if imgW <= 0 {
		imgW = 1
	}
	if imgH <= 0 {
		imgH = 1
	}
	return math.Max(w/imgW, h/imgH)
}

// Placement is where the screenshot image goes.
type Placement struct {
	Screen Screen
	Scale  float64
}

// Clip returns the absolute clip for the placement.
func (p Placement) Clip() scene.Clip {
	s := p.Screen
	return scene.Clip{CX: s.Center.X, CY: s.Center.Y, Width: s.Width, Height: s.Height, Angle: s.Angle, Radius: s.Radius}
}

// Place fits an imgW×imgH bitmap into the screen of frame t.
func Place(t Transform, sr scene.ScreenRect, imgW, imgH float64) Placement {
	s := ScreenOf(t, sr)
	return Placement{Screen: s, Scale: Cover(s.Width, s.Height, imgW, imgH)}
}

// Shape is a center-anchored overlay primitive.
type Shape struct {
	Circle bool
	Center vector.Pt
	Width  float64
	Height float64
	Radius float64
	Angle  float64
	Fill   string
}

// Overlay returns the cutout decoration drawn above the screenshot for a
// frame built with info. frameFill colors the classic notch bar.
func Overlay(t Transform, info scene.FrameInfo, frameFill string) []Shape {
	_, dh := t.DeviceSize()
	s := info.FootprintScale
	if s <= 0 {
		s = 1
	}
	ns := s * t.ScaleX
	notchTop := -dh/2 + info.Screen.TopInset*t.ScaleY
	switch info.Notch {
	case "dynamic-island":
		w, h := 95*ns, 30*ns
		c := t.toWorld(vector.Pt{Y: notchTop + 8*s*t.ScaleY + h/2})
		return []Shape{{Center: c, Width: w, Height: h, Radius: h / 2, Angle: t.Angle, Fill: "#000000"}}
	case "notch":
		w, h := 160*ns, 35*ns
		c := t.toWorld(vector.Pt{Y: notchTop + h/2})
		return []Shape{{Center: c, Width: w, Height: h, Radius: 8 * ns, Angle: t.Angle, Fill: frameFill}}
	case "punch-hole":
		d := 14 * ns
		c := t.toWorld(vector.Pt{Y: notchTop + 15*s*t.ScaleY})
		return []Shape{{Circle: true, Center: c, Width: d, Height: d, Radius: d / 2, Angle: t.Angle, Fill: "#000000"}}
	}
	return nil
}
