/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package scene

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"shotframe/internal/vector"
)

func rect(name string, x, y, w, h float64) *Object {
	o := NewObject(KindRect, name)
	o.Left, o.Top, o.Width, o.Height = x, y, w, h
	o.Fill = vector.Solid("#ff0000")
	return o
}

func TestCanvasOrdering(t *testing.T) {
	c := NewCanvas(100, 100)
	a, b, d := rect("a", 0, 0, 1, 1), rect("b", 0, 0, 1, 1), rect("d", 0, 0, 1, 1)
	c.Add(a, b)
	c.Insert(1, d)
	if got := names(c); got != "a,d,b" {
		t.Fatalf("order = %s", got)
	}
	c.SendToBack(b)
	if got := names(c); got != "b,a,d" {
		t.Fatalf("order after SendToBack = %s", got)
	}
	c.BringToFront(b)
	c.MoveTo(d, 0)
	if got := names(c); got != "d,a,b" {
		t.Fatalf("order after MoveTo = %s", got)
	}
	c.Add(a)
	if c.Len() != 3 {
		t.Fatalf("re-adding an existing object must not duplicate it")
	}
}

func names(c *Canvas) string {
	var buf bytes.Buffer
	for i, o := range c.Objects() {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(o.Name)
	}
	return buf.String()
}

func TestSubscriptionsDisposeAndRemove(t *testing.T) {
	c := NewCanvas(100, 100)
	o := rect("frame", 0, 0, 10, 10)
	c.Add(o)
	calls := 0
	s1 := c.On(o, EventMoving, func(*Object) { calls++ })
	c.On(o, EventRotating, func(*Object) { calls += 10 })
	c.Emit(o, EventMoving)
	c.Emit(o, EventRotating)
	if calls != 11 {
		t.Fatalf("calls = %d, want 11", calls)
	}

	s1.Dispose()
	s1.Dispose()
	c.Emit(o, EventMoving)
	if calls != 11 || c.Subscribers(o) != 1 {
		t.Fatalf("after dispose: calls=%d subscribers=%d", calls, c.Subscribers(o))
	}

	c.Remove(o)
	c.Emit(o, EventRotating)
	if calls != 11 || c.Subscribers(o) != 0 {
		t.Fatalf("handlers must not outlive their object: calls=%d subscribers=%d", calls, c.Subscribers(o))
	}
}

func TestSelectionFollowsRemoval(t *testing.T) {
	c := NewCanvas(100, 100)
	a, b := rect("a", 0, 0, 1, 1), rect("b", 0, 0, 1, 1)
	c.Add(a, b)
	c.SetActive(a, b, rect("stray", 0, 0, 1, 1))
	if len(c.Active()) != 2 {
		t.Fatalf("stray object selected: %d active", len(c.Active()))
	}
	c.Remove(a)
	if act := c.Active(); len(act) != 1 || act[0] != b {
		t.Fatalf("selection after removal: %v", act)
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	c := NewCanvas(1290, 2796)
	bg := rect("background", 0, 0, 1290, 2796)
	bg.Fill = vector.VerticalGradient(2796, "#0077B6", "#00B4D8")
	bg.Selectable, bg.Evented = false, false
	g := NewObject(KindGroup, "device-group-iphone-15-pro")
	g.Width, g.Height, g.Angle = 750, 1550, 12.5
	g.Frame = &FrameInfo{DeviceID: "iphone-15-pro", Color: "black", Notch: "dynamic-island", Screen: ScreenRect{Padding: 20, TopInset: 22, BottomInset: 21, CornerRadius: 80}, FootprintScale: 1.82}
	g.Children = []*Object{rect("body", 0, 0, 750, 1550)}
	img := NewObject(KindImage, "device-screenshot")
	img.Src = "file:///tmp/a.png"
	img.Clip = &Clip{CX: 10, CY: 20, Width: 300, Height: 600, Angle: 12.5, Radius: 40}
	txt := NewObject(KindText, "headline")
	txt.Text = &Text{Content: "Track Your\nFitness Goals", FontSize: 96, Bold: true, Align: "center"}
	c.Add(bg, g, img, txt)

	data, err := c.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	other := NewCanvas(1, 1)
	if err := other.Deserialize(data); err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	again, err := other.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if string(data) != string(again) {
		t.Fatalf("round trip changed the scene:\n%s\n%s", data, again)
	}
	if other.Width() != 1290 || other.Height() != 2796 {
		t.Fatalf("size not restored: %vx%v", other.Width(), other.Height())
	}
	if got := other.FindByName("device-group-iphone-15-pro").Frame.DeviceID; got != "iphone-15-pro" {
		t.Fatalf("frame device = %q", got)
	}
}

func TestDeserializeFailureLeavesSceneUntouched(t *testing.T) {
	c := NewCanvas(100, 100)
	o := rect("keep", 0, 0, 10, 10)
	c.Add(o)
	calls := 0
	c.On(o, EventMoving, func(*Object) { calls++ })

	for _, bad := range []string{
		`{not json`,
		`{"version":99,"objects":[]}`,
		`{"version":1,"objects":[{"id":"x","kind":"hexagon"}]}`,
	} {
		if err := c.Deserialize([]byte(bad)); err == nil {
			t.Fatalf("expected error for %s", bad)
		}
	}
	if objs := c.Objects(); len(objs) != 1 || objs[0] != o {
		t.Fatalf("rejected load changed the scene")
	}
	c.Emit(o, EventMoving)
	if calls != 1 {
		t.Fatalf("subscriptions must survive a rejected load, calls=%d", calls)
	}
}

func TestCenterPointWithRotationAndScale(t *testing.T) {
	o := rect("r", 100, 100, 200, 100)
	o.ScaleX, o.ScaleY = 2, 2
	o.Angle = 90
	c := o.CenterPoint()
	// Box half-extents (200,100) rotated 90deg clockwise around (100,100).
	assert.InDelta(t, 0, c.X, 1e-9)
	assert.InDelta(t, 300, c.Y, 1e-9)

	o.SetCenterPoint(vector.Pt{X: 50, Y: 60})
	c = o.CenterPoint()
	assert.InDelta(t, 50, c.X, 1e-9)
	assert.InDelta(t, 60, c.Y, 1e-9)

	centered := rect("c", 40, 40, 20, 10)
	centered.Origin = OriginCenter
	centered.Angle = 33
	p := centered.CenterPoint()
	assert.InDelta(t, 40, p.X, 1e-9)
	assert.InDelta(t, 40, p.Y, 1e-9)
}

func TestObjectAtSkipsNonEvented(t *testing.T) {
	c := NewCanvas(100, 100)
	under := rect("under", 0, 0, 50, 50)
	over := rect("over", 0, 0, 50, 50)
	over.Evented = false
	c.Add(under, over)
	if got := c.ObjectAt(vector.Pt{X: 10, Y: 10}); got != under {
		t.Fatalf("hit %v, want under", got)
	}
	if got := c.ObjectAt(vector.Pt{X: 80, Y: 80}); got != nil {
		t.Fatalf("empty point hit %q", got.Name)
	}
}

func TestCloneAssignsFreshIDs(t *testing.T) {
	g := NewObject(KindGroup, "badge")
	g.Children = []*Object{rect("pill", 0, 0, 10, 10)}
	cp := g.Clone()
	if cp == nil {
		t.Fatalf("Clone returned nil")
	}
	if cp.ID == g.ID || cp.Children[0].ID == g.Children[0].ID {
		t.Fatalf("clone reuses ids")
	}
	if cp.Children[0].Name != "pill" {
		t.Fatalf("child name = %q", cp.Children[0].Name)
	}
}

func TestRasterizeWithoutRenderer(t *testing.T) {
	if _, err := NewCanvas(10, 10).Rasterize(1); !errors.Is(err, ErrNoRenderer) {
		t.Fatalf("expected ErrNoRenderer, got %v", err)
	}
}

func TestFlipMirrorsAboutBoxCenter(t *testing.T) {
	o := rect("r", 100, 50, 200, 100)
	box := o.Bounds()
	center := o.CenterPoint()

	o.FlipX = true
	if o.Bounds() != box {
		t.Fatalf("flip moved the box: %+v -> %+v", box, o.Bounds())
	}
	p := o.LocalTransform().Apply(vector.Pt{X: 0, Y: 0})
	assert.InDelta(t, 300, p.X, 1e-9)
	assert.InDelta(t, 50, p.Y, 1e-9)

	o.FlipX, o.FlipY = false, true
	p = o.LocalTransform().Apply(vector.Pt{X: 0, Y: 0})
	assert.InDelta(t, 100, p.X, 1e-9)
	assert.InDelta(t, 150, p.Y, 1e-9)

	o.FlipX = true
	o.Angle = 30
	o.SetCenterPoint(center)
	got := o.CenterPoint()
	assert.InDelta(t, center.X, got.X, 1e-9)
	assert.InDelta(t, center.Y, got.Y, 1e-9)
}

func TestFlipAndLockSurviveSerialization(t *testing.T) {
	c := NewCanvas(100, 100)
	o := rect("r", 0, 0, 10, 10)
	o.FlipX, o.Locked = true, true
	c.Add(o)
	data, err := c.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if !bytes.Contains(data, []byte(`"flipX":true`)) || !bytes.Contains(data, []byte(`"locked":true`)) {
		t.Fatalf("flags missing from %s", data)
	}
	if bytes.Contains(data, []byte(`"flipY"`)) {
		t.Fatalf("unset flip should be omitted: %s", data)
	}
	other := NewCanvas(1, 1)
	if err := other.Deserialize(data); err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	got := other.FindByName("r")
	if !got.FlipX || got.FlipY || !got.Locked {
		t.Fatalf("flags after load: flipX=%v flipY=%v locked=%v", got.FlipX, got.FlipY, got.Locked)
	}
}
