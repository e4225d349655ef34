/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package scene holds the serializable object model that the compositor edits:
// a flat, z-ordered list of objects (groups nest one level) with fabric-like
// geometry, plus a Canvas that owns ordering, selection, per-object event
// subscriptions and JSON (de)serialization.
package scene

import (
	"encoding/json"

	"shotframe/internal/vector"
)

// Kind discriminates object payloads.
type Kind string

const (
	KindRect   Kind = "rect"
	KindCircle Kind = "circle"
	KindPath   Kind = "path"
	KindText   Kind = "text"
	KindImage  Kind = "image"
	KindGroup  Kind = "group"
)

func (k Kind) valid() bool {
	switch k {
	case KindRect, KindCircle, KindPath, KindText, KindImage, KindGroup:
		return true
	}
	return false
}

// Origin selects which point of the object Left/Top refer to. Rotation and
// scaling pivot around that point.
type Origin string

const (
	OriginTopLeft Origin = ""
	OriginCenter  Origin = "center"
)

// ScreenRect describes the display cutout of a device frame in the frame's
// unscaled local units.
type ScreenRect struct {
	Padding      float64 `json:"padding"`
	TopInset     float64 `json:"topInset"`
	BottomInset  float64 `json:"bottomInset"`
	CornerRadius float64 `json:"cornerRadius"`
}

// FrameInfo is attached to a device frame group so that placement can be
// recomputed from a deserialized scene alone.
type FrameInfo struct {
	DeviceID       string     `json:"deviceId"`
	Color          string     `json:"color"`
	Notch          string     `json:"notch"`
	Screen         ScreenRect `json:"screen"`
	FootprintScale float64    `json:"footprintScale"`
}

// Clip is a rounded rectangle in canvas coordinates, centered at (CX, CY) and
// rotated by Angle degrees. It is not affected by the owning object's transform.
type Clip struct {
	CX     float64 `json:"cx"`
	CY     float64 `json:"cy"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Angle  float64 `json:"angle"`
	Radius float64 `json:"radius"`
}

// Text is the payload of a text box. Width of the owning object is the wrap width.
type Text struct {
	Content    string  `json:"content"`
	FontSize   float64 `json:"fontSize"`
	Bold       bool    `json:"bold,omitempty"`
	Align      string  `json:"align,omitempty"` // left | center | right
	LineHeight float64 `json:"lineHeight,omitempty"`
}

// Object is one node of the scene. Content is laid out in local units
// (0,0)-(Width,Height) and mapped to its parent by Left/Top, Angle and Scale.
type Object struct {
	ID     string  `json:"id"`
	Name   string  `json:"name,omitempty"`
	Kind   Kind    `json:"kind"`
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	ScaleX float64 `json:"scaleX"`
	ScaleY float64 `json:"scaleY"`
	Angle  float64 `json:"angle"`
	Origin Origin  `json:"origin,omitempty"`

	Opacity     float64        `json:"opacity"`
	Fill        vector.Paint   `json:"fill,omitempty"`
	Stroke      string         `json:"stroke,omitempty"`
	StrokeWidth float64        `json:"strokeWidth,omitempty"`
	Radius      float64        `json:"radius,omitempty"`
	Shadow      *vector.Shadow `json:"shadow,omitempty"`

	Path     *vector.Path `json:"path,omitempty"`
	Text     *Text        `json:"text,omitempty"`
	Src      string       `json:"src,omitempty"`
	Clip     *Clip        `json:"clip,omitempty"`
	Children []*Object    `json:"children,omitempty"`
	Frame    *FrameInfo   `json:"frame,omitempty"`

	FlipX  bool `json:"flipX,omitempty"`
	FlipY  bool `json:"flipY,omitempty"`
	Locked bool `json:"locked,omitempty"`

	Selectable bool `json:"selectable"`
	Evented    bool `json:"evented"`
}

// NewObject returns an interactive object of the given kind with unit scale.
func NewObject(kind Kind, name string) *Object {
	return &Object{
		ID:         NewID(),
		Name:       name,
		Kind:       kind,
		ScaleX:     1,
		ScaleY:     1,
		Opacity:    1,
		Selectable: true,
		Evented:    true,
	}
}

func (o *Object) origin() vector.Pt {
	if o.Origin == OriginCenter {
		return vector.Pt{X: o.Width / 2, Y: o.Height / 2}
	}
	return vector.Pt{}
}

// LocalTransform maps the object's content space into its parent space.
// Flips mirror the content inside its own box.
func (o *Object) LocalTransform() vector.Affine2D {
	org := o.origin()
	m := vector.Translate(o.Left, o.Top).
		Mul(vector.RotateDeg(o.Angle)).
		Mul(vector.Scale(o.ScaleX, o.ScaleY)).
		Mul(vector.Translate(-org.X, -org.Y))
	if !o.FlipX && !o.FlipY {
		return m
	}
	fx, fy := 1.0, 1.0
	if o.FlipX {
		fx = -1
	}
	if o.FlipY {
		fy = -1
	}
	cx, cy := o.Width/2, o.Height/2
	return m.Mul(vector.Translate(cx, cy)).Mul(vector.Scale(fx, fy)).Mul(vector.Translate(-cx, -cy))
}

// CenterPoint returns the center of the object's box after rotation and scale,
// in parent coordinates.
func (o *Object) CenterPoint() vector.Pt {
	return o.LocalTransform().Apply(vector.Pt{X: o.Width / 2, Y: o.Height / 2})
}

// SetCenterPoint moves the object so that CenterPoint equals c.
func (o *Object) SetCenterPoint(c vector.Pt) {
	cur := o.CenterPoint()
	o.Left += c.X - cur.X
	o.Top += c.Y - cur.Y
}

// Bounds returns the axis-aligned bounding box in parent coordinates.
func (o *Object) Bounds() vector.Rect {
	return o.LocalTransform().TransformRect(vector.R(0, 0, o.Width, o.Height))
}

// Contains reports whether parent-space point p falls inside the object's box.
func (o *Object) Contains(p vector.Pt) bool {
	inv, ok := o.LocalTransform().Invert()
	if !ok {
		return false
	}
	return vector.R(0, 0, o.Width, o.Height).Contains(inv.Apply(p))
}

// Clone returns a deep copy carrying fresh IDs.
func (o *Object) Clone() *Object {
	b, err := json.Marshal(o)
	if err != nil {
		return nil
	}
	var c Object
	if err := json.Unmarshal(b, &c); err != nil {
		return nil
	}
	c.walk(func(n *Object) { n.ID = NewID() })
	return &c
}

func (o *Object) walk(fn func(*Object)) {
	fn(o)
	for _, ch := range o.Children {
		ch.walk(fn)
	}
}
