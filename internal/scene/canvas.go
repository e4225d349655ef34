/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package scene

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"log/slog"

	"github.com/google/uuid"

	applog "shotframe/internal/log"
	"shotframe/internal/vector"
)

// NewID returns a fresh object identifier.
func NewID() string { return uuid.NewString() }

// Event names emitted for direct manipulation of an object.
type Event string

const (
	EventMoving   Event = "moving"
	EventScaling  Event = "scaling"
	EventRotating Event = "rotating"
	EventModified Event = "modified"
)

// Handler reacts to an event on an object.
type Handler func(o *Object)

// Subscription is returned by On; Dispose detaches the handler. Disposing
// twice is harmless.
type Subscription interface {
	Dispose()
}

type subscription struct {
	c    *Canvas
	obj  *Object
	ev   Event
	fn   Handler
	dead bool
}

func (s *subscription) Dispose() {
	if s == nil || s.dead {
		return
	}
	s.dead = true
	s.c.detach(s)
}

// Renderer rasterizes a list of top-level objects on a canvas of the given
// size. multiplier scales the output resolution.
type Renderer interface {
	Render(width, height float64, objs []*Object, multiplier float64) (*image.RGBA, error)
}

// ErrNoRenderer is returned by Rasterize when no Renderer was attached.
var ErrNoRenderer = errors.New("scene: no renderer attached")

const docVersion = 1

type document struct {
	Version int       `json:"version"`
	Width   float64   `json:"width"`
	Height  float64   `json:"height"`
	Objects []*Object `json:"objects"`
}

// Canvas is the live scene: a z-ordered object list (index 0 is the bottom).
// It is not safe for concurrent use; it is owned by the UI loop.
type Canvas struct {
	width, height float64
	objects       []*Object
	active        []*Object
	subs          map[*Object][]*subscription
	renderer      Renderer
	log           *slog.Logger
}

// NewCanvas creates an empty canvas of the given size in design units.
func NewCanvas(width, height float64) *Canvas {
	return &Canvas{
		width:  width,
		height: height,
		subs:   make(map[*Object][]*subscription),
		log:    applog.WithComponent("scene"),
	}
}

func (c *Canvas) Width() float64  { return c.width }
func (c *Canvas) Height() float64 { return c.height }

// SetSize changes the canvas size without touching objects.
func (c *Canvas) SetSize(width, height float64) { c.width, c.height = width, height }

// SetRenderer attaches the rasterizer used by Rasterize.
func (c *Canvas) SetRenderer(r Renderer) { c.renderer = r }

// Objects returns a copy of the z-ordered object list.
func (c *Canvas) Objects() []*Object { return append([]*Object(nil), c.objects...) }

func (c *Canvas) Len() int { return len(c.objects) }

// Add appends objects on top of the stack.
func (c *Canvas) Add(objs ...*Object) {
	for _, o := range objs {
		if o == nil || c.IndexOf(o) >= 0 {
			continue
		}
		c.objects = append(c.objects, o)
	}
}

// Insert places o at index idx (clamped), shifting objects above it up.
func (c *Canvas) Insert(idx int, o *Object) {
	if o == nil || c.IndexOf(o) >= 0 {
		return
	}
	idx = clamp(idx, 0, len(c.objects))
	c.objects = append(c.objects, nil)
	copy(c.objects[idx+1:], c.objects[idx:])
	c.objects[idx] = o
}

// Remove detaches objects, drops them from the selection and disposes their
// subscriptions.
func (c *Canvas) Remove(objs ...*Object) {
	for _, o := range objs {
		i := c.IndexOf(o)
		if i < 0 {
			continue
		}
		c.objects = append(c.objects[:i], c.objects[i+1:]...)
		c.dropActive(o)
		for _, s := range c.subs[o] {
			s.dead = true
		}
		delete(c.subs, o)
	}
}

// Clear removes every object.
func (c *Canvas) Clear() {
	c.Remove(c.Objects()...)
}

func (c *Canvas) IndexOf(o *Object) int {
	for i, x := range c.objects {
		if x == o {
			return i
		}
	}
	return -1
}

// MoveTo re-orders o to index idx (clamped).
func (c *Canvas) MoveTo(o *Object, idx int) {
	i := c.IndexOf(o)
	if i < 0 {
		return
	}
	c.objects = append(c.objects[:i], c.objects[i+1:]...)
	idx = clamp(idx, 0, len(c.objects))
	c.objects = append(c.objects, nil)
	copy(c.objects[idx+1:], c.objects[idx:])
	c.objects[idx] = o
}

func (c *Canvas) SendToBack(o *Object)   { c.MoveTo(o, 0) }
func (c *Canvas) BringToFront(o *Object) { c.MoveTo(o, len(c.objects)) }

// FindByName returns the bottom-most object with the given name.
func (c *Canvas) FindByName(name string) *Object {
	return c.Find(func(o *Object) bool { return o.Name == name })
}

// Find returns the bottom-most object matching pred.
func (c *Canvas) Find(pred func(*Object) bool) *Object {
	for _, o := range c.objects {
		if pred(o) {
			return o
		}
	}
	return nil
}

// Filter returns all objects matching pred in z-order.
func (c *Canvas) Filter(pred func(*Object) bool) []*Object {
	var out []*Object
	for _, o := range c.objects {
		if pred(o) {
			out = append(out, o)
		}
	}
	return out
}

// ByID returns the object with the given id, or nil.
func (c *Canvas) ByID(id string) *Object {
	return c.Find(func(o *Object) bool { return o.ID == id })
}

// ObjectAt returns the top-most evented object under p.
func (c *Canvas) ObjectAt(p vector.Pt) *Object {
	for i := len(c.objects) - 1; i >= 0; i-- {
		o := c.objects[i]
		if o.Evented && o.Contains(p) {
			return o
		}
	}
	return nil
}

// SetActive replaces the selection. Objects not on the canvas are ignored.
func (c *Canvas) SetActive(objs ...*Object) {
	c.active = c.active[:0]
	for _, o := range objs {
		if c.IndexOf(o) >= 0 {
			c.active = append(c.active, o)
		}
	}
}

// Active returns the current selection.
func (c *Canvas) Active() []*Object { return append([]*Object(nil), c.active...) }

func (c *Canvas) DiscardActive() { c.active = nil }

func (c *Canvas) dropActive(o *Object) {
	for i, x := range c.active {
		if x == o {
			c.active = append(c.active[:i], c.active[i+1:]...)
			return
		}
	}
}

// On subscribes fn to ev on o.
func (c *Canvas) On(o *Object, ev Event, fn Handler) Subscription {
	s := &subscription{c: c, obj: o, ev: ev, fn: fn}
	c.subs[o] = append(c.subs[o], s)
	return s
}

// Emit invokes the handlers subscribed to ev on o in subscription order.
func (c *Canvas) Emit(o *Object, ev Event) {
	for _, s := range append([]*subscription(nil), c.subs[o]...) {
		if !s.dead && s.ev == ev {
			s.fn(o)
		}
	}
}

// Subscribers reports how many live handlers o has; used by tests and diagnostics.
func (c *Canvas) Subscribers(o *Object) int { return len(c.subs[o]) }

func (c *Canvas) detach(s *subscription) {
	list := c.subs[s.obj]
	for i, x := range list {
		if x == s {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(c.subs, s.obj)
		return
	}
	c.subs[s.obj] = list
}

// Serialize encodes the whole scene. Output is deterministic for a given scene.
func (c *Canvas) Serialize() ([]byte, error) {
	doc := document{Version: docVersion, Width: c.width, Height: c.height, Objects: c.objects}
	if doc.Objects == nil {
		doc.Objects = []*Object{}
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("serialize scene: %w", err)
	}
	return b, nil
}

// Deserialize replaces the scene with the one encoded in data. On error the
// canvas is left untouched. Selection and all subscriptions are dropped.
func (c *Canvas) Deserialize(data []byte) error {
	objs, w, h, err := Decode(data)
	if err != nil {
		c.log.Warn("deserialize rejected", slog.Any("err", err))
		return err
	}
	for o, list := range c.subs {
		for _, s := range list {
			s.dead = true
		}
		delete(c.subs, o)
	}
	c.objects = objs
	c.active = nil
	if w > 0 && h > 0 {
		c.width, c.height = w, h
	}
	return nil
}

// Decode parses a serialized scene without touching any canvas.
func Decode(data []byte) ([]*Object, float64, float64, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, 0, 0, fmt.Errorf("deserialize scene: %w", err)
	}
	if doc.Version != docVersion {
		return nil, 0, 0, fmt.Errorf("deserialize scene: unsupported version %d", doc.Version)
	}
	for _, o := range doc.Objects {
		if err := validate(o, 0); err != nil {
			return nil, 0, 0, fmt.Errorf("deserialize scene: %w", err)
		}
	}
	if doc.Objects == nil {
		doc.Objects = []*Object{}
	}
	return doc.Objects, doc.Width, doc.Height, nil
}

func validate(o *Object, depth int) error {
	if o == nil {
		return errors.New("null object")
	}
	if !o.Kind.valid() {
		return fmt.Errorf("object %q: unknown kind %q", o.ID, o.Kind)
	}
	if depth > 4 {
		return fmt.Errorf("object %q: groups nested too deep", o.ID)
	}
	for _, ch := range o.Children {
		if err := validate(ch, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// Rasterize renders the scene at multiplier times its design size.
func (c *Canvas) Rasterize(multiplier float64) (*image.RGBA, error) {
	if c.renderer == nil {
		return nil, ErrNoRenderer
	}
	if multiplier <= 0 {
		multiplier = 1
	}
	return c.renderer.Render(c.width, c.height, c.objects, multiplier)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
