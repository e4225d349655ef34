/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package frame procedurally draws a device frame group from a descriptor:
// body, screen cutout and the notch, island, punch-hole or home button.
// Every frame is scaled into the same footprint so devices swap in place.
package frame

import (
	"fmt"
	"math"
	"strings"

	"shotframe/internal/devices"
	"shotframe/internal/scene"
	"shotframe/internal/vector"
)

// Footprint is the box every frame is fitted into, in design units.
const (
	FootprintWidth  = 750
	FootprintHeight = 1550
	// DefaultTop is where a first frame is placed vertically.
	DefaultTop = 700
)

// NamePrefix starts the name of every frame group.
const NamePrefix = "device-group-"

// Child names inside a frame group.
const (
	PartBody        = "device-body"
	PartScreen      = "device-screen"
	PartIsland      = "device-island"
	PartNotch       = "device-notch"
	PartNotchAccent = "device-notch-accent"
	PartPunchHole   = "device-punch-hole"
	PartHomeButton  = "device-home-button"
)

// Shadow under every frame.
var Shadow = vector.Shadow{Color: "rgba(0,0,0,0.4)", Blur: 50, OffsetY: 25}

// Layout is the resolved geometry of a frame before any user transform.
type Layout struct {
	Scale  float64
	Width  float64
	Height float64
	Screen scene.ScreenRect
}

// ScreenBox returns the screen cutout in the frame's local units.
func (l Layout) ScreenBox() vector.Rect {
	p := l.Screen
	return vector.R(p.Padding, p.TopInset, l.Width-2*p.Padding, l.Height-p.TopInset-p.BottomInset)
}

// Compute resolves d into footprint-scaled geometry.
func Compute(d devices.Descriptor) Layout {
	s := min(FootprintWidth/d.Width, FootprintHeight/d.Height)
	l := Layout{Scale: s, Width: d.Width * s, Height: d.Height * s}
	pad := (8 + d.BezelWidth) * s
	top := 12 * s
	switch {
	case d.Notch == devices.NotchBar:
		top = 35 * s
	case d.Notch == devices.NoNotch && d.Platform == devices.IOS:
		top = 25 * s
	}
	bottom := 12 * s
	if d.HomeButton {
		bottom = 50 * s
	}
	l.Screen = scene.ScreenRect{
		Padding:      pad,
		TopInset:     top,
		BottomInset:  bottom,
		CornerRadius: math.Max(d.CornerRadius*s-pad, 15),
	}
	return l
}

// Name returns the group name for device id.
func Name(id string) string { return NamePrefix + id }

// IsFrame reports whether o is a device frame group.
func IsFrame(o *scene.Object) bool {
	return o != nil && strings.HasPrefix(o.Name, NamePrefix)
}

// DefaultPosition is the top-left of a first frame on a canvas of width w.
func DefaultPosition(canvasWidth float64) vector.Pt {
	return vector.Pt{X: (canvasWidth - FootprintWidth) / 2, Y: DefaultTop}
}

// Build draws the frame for d in color c at the origin with unit scale and
// returns it with its screen rect. Callers position it.
func Build(d devices.Descriptor, c devices.FrameColor) (*scene.Object, scene.ScreenRect) {
	if err := d.Validate(); err != nil {
		d = devices.Lookup(devices.DefaultID)
	}
	c = c.Normalize()
	pal := devices.Colors(c)
	l := Compute(d)
	s := l.Scale

	body := part(scene.KindRect, PartBody, 0, 0, l.Width, l.Height)
	body.Radius = d.CornerRadius * s
	body.Fill = vector.Solid(pal.Frame)
	body.Stroke = pal.Border
	body.StrokeWidth = d.BezelWidth * s

	sb := l.ScreenBox()
	screen := part(scene.KindRect, PartScreen, sb.X, sb.Y, sb.W, sb.H)
	screen.Radius = l.Screen.CornerRadius
	screen.Fill = vector.Solid(pal.Screen)

	children := []*scene.Object{body, screen}
	top := l.Screen.TopInset
	switch {
	case d.Notch == devices.DynamicIsland:
		w, h := 95*s, 30*s
		island := part(scene.KindRect, PartIsland, (l.Width-w)/2, top+8*s, w, h)
		island.Radius = h / 2
		island.Fill = vector.Solid("#000000")
		children = append(children, island)
	case d.Notch == devices.NotchBar:
		w, h := 160*s, 30*s
		bar := part(scene.KindRect, PartNotch, (l.Width-w)/2, top, w, h)
		bar.Fill = vector.Solid(pal.Frame)
		accent := part(scene.KindRect, PartNotchAccent, (l.Width-w)/2, top+h-15*s, w, 20*s)
		accent.Radius = 15 * s
		accent.Fill = vector.Solid(pal.Frame)
		children = append(children, bar, accent)
	case d.Notch == devices.PunchHole:
		size := 12 * s
		hole := part(scene.KindCircle, PartPunchHole, (l.Width-size)/2, top+12*s, size, size)
		hole.Fill = vector.Solid("#000000")
		children = append(children, hole)
	case d.HomeButton:
		size := 45 * s
		btn := part(scene.KindCircle, PartHomeButton, (l.Width-size)/2, l.Height-l.Screen.BottomInset+5*s, size, size)
		btn.Fill = vector.Solid(pal.Screen)
		btn.Stroke = pal.Border
		btn.StrokeWidth = 2
		children = append(children, btn)
	}

	g := scene.NewObject(scene.KindGroup, Name(d.ID))
	g.Width, g.Height = l.Width, l.Height
	g.Children = children
	sh := Shadow
	g.Shadow = &sh
	g.Frame = &scene.FrameInfo{
		DeviceID:       d.ID,
		Color:          string(c),
		Notch:          string(d.Notch),
		Screen:         l.Screen,
		FootprintScale: s,
	}
	return g, l.Screen
}

func part(kind scene.Kind, name string, x, y, w, h float64) *scene.Object {
	o := scene.NewObject(kind, name)
	o.Left, o.Top, o.Width, o.Height = x, y, w, h
	o.Selectable, o.Evented = false, false
	return o
}

// Info returns the frame metadata of a frame group, or an error when o is
// not a frame or was stored without it.
func Info(o *scene.Object) (*scene.FrameInfo, error) {
	if !IsFrame(o) {
		return nil, fmt.Errorf("frame: %q is not a device frame", nameOf(o))
	}
	if o.Frame == nil {
		return nil, fmt.Errorf("frame: %q carries no frame info", o.Name)
	}
	return o.Frame, nil
}

func nameOf(o *scene.Object) string {
	if o == nil {
		return "<nil>"
	}
	return o.Name
}
