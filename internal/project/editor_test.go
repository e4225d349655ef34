/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package project

import (
	"errors"
	"image"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	"shotframe/internal/assets"
	"shotframe/internal/compose"
	"shotframe/internal/devices"
	"shotframe/internal/render"
	"shotframe/internal/scene"
)

func newEditor(t *testing.T, opts EditorOptions) (*Editor, *compose.Session, *scene.Canvas) {
	t.Helper()
	p := New("Demo", devices.IOS)
	c := scene.NewCanvas(p.Width, p.Height)
	imgs := assets.NewLoader(nil)
	imgs.Put("shot.png", image.NewRGBA(image.Rect(0, 0, 100, 200)))
	c.SetRenderer(render.New(imgs))
	s := compose.New(c, compose.Options{Images: imgs})
	e, err := NewEditor(p, s, opts)
	if err != nil {
		t.Fatalf("NewEditor: %v", err)
	}
	return e, s, c
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func circles(c *scene.Canvas) int {
	return len(c.Filter(func(o *scene.Object) bool { return o.Kind == scene.KindCircle }))
}

func TestNewEditorOpensStarterContent(t *testing.T) {
	e, s, c := newEditor(t, EditorOptions{})
	if e.Current() != 0 || s.DeviceID() != devices.DefaultID {
		t.Fatalf("current=%d device=%q", e.Current(), s.DeviceID())
	}
	bg := c.FindByName(compose.NameBackground)
	if bg == nil || bg.Fill.Linear == nil || bg.Fill.Linear.Stops[0].Color != "#0077B6" {
		t.Fatalf("starter background missing: %+v", bg)
	}
	if got := c.FindByName("headline").Text.Content; got != "Screen 1" {
		t.Fatalf("headline = %q", got)
	}
	if c.IndexOf(s.Frame()) != 1 {
		t.Fatalf("frame must sit right above the background")
	}
	if s.CanUndo() {
		t.Fatalf("starter content is the first snapshot")
	}
}

func TestTwoScreenSwitch(t *testing.T) {
	e, s, c := newEditor(t, EditorOptions{})
	p := e.Project()
	must(t, s.AddScreenshot("shot.png"))
	must(t, s.Rotate(s.Frame(), 45))
	first, err := s.Serialize()
	must(t, err)

	_, err = e.AddScreen()
	must(t, err)
	must(t, e.SwitchScreen(1))

	if e.Current() != 1 {
		t.Fatalf("current = %d", e.Current())
	}
	assert.JSONEq(t, string(first), string(p.Screens[0].CanvasData))
	if len(p.Screens[0].Thumbnail) == 0 {
		t.Fatalf("thumbnail not stored")
	}
	if got := c.FindByName("headline").Text.Content; got != "Screen 2" {
		t.Fatalf("headline = %q", got)
	}
	if s.ScreenshotSource() != "" || s.CanUndo() {
		t.Fatalf("screen 2 must start clean (source=%q canUndo=%v)", s.ScreenshotSource(), s.CanUndo())
	}

	must(t, s.AddShape(compose.ShapeCircle, ""))
	must(t, e.SwitchScreen(0))

	back, err := s.Serialize()
	must(t, err)
	assert.JSONEq(t, string(first), string(back))
	if s.ScreenshotSource() != "shot.png" || s.Bound() != 3 {
		t.Fatalf("screen 1 state not restored: source=%q bound=%d", s.ScreenshotSource(), s.Bound())
	}

	// screen 1 history survived the round trip
	must(t, s.Undo())
	if s.Frame().Angle != 0 {
		t.Fatalf("undo on screen 1 left angle %v", s.Frame().Angle)
	}

	must(t, e.SwitchScreen(1))
	if circles(c) != 1 || !s.CanUndo() {
		t.Fatalf("screen 2 lost its edit: circles=%d canUndo=%v", circles(c), s.CanUndo())
	}
}

type busySaver struct {
	s   *compose.Session
	err error
	n   int
}

func (b *busySaver) Save(*Project) error {
	b.n++
	b.err = b.s.AddShape(compose.ShapeStar, "")
	return nil
}

func TestSwitchRejectsIntents(t *testing.T) {
	bs := &busySaver{}
	e, s, _ := newEditor(t, EditorOptions{Saver: bs})
	bs.s = s
	_, err := e.AddScreen()
	must(t, err)
	must(t, e.SwitchScreen(1))
	if bs.n != 1 {
		t.Fatalf("expected one save, got %d", bs.n)
	}
	if !errors.Is(bs.err, compose.ErrBusy) {
		t.Fatalf("intent during switch: expected ErrBusy, got %v", bs.err)
	}
	if s.Busy() {
		t.Fatalf("session still busy after switch")
	}
}

func TestSwitchScreenIndex(t *testing.T) {
	e, _, _ := newEditor(t, EditorOptions{})
	if err := e.SwitchScreen(3); !errors.Is(err, ErrScreenIndex) {
		t.Fatalf("expected ErrScreenIndex, got %v", err)
	}
	must(t, e.SwitchScreen(0))
}

func TestSwitchFailureReopensPrevious(t *testing.T) {
	e, s, _ := newEditor(t, EditorOptions{})
	_, err := e.AddScreen()
	must(t, err)
	e.Project().Screens[1].CanvasData = []byte(`{"version":99}`)
	if err := e.SwitchScreen(1); err == nil {
		t.Fatalf("expected switch error")
	}
	if e.Current() != 0 || s.DeviceID() != devices.DefaultID {
		t.Fatalf("previous screen not reopened: current=%d device=%q", e.Current(), s.DeviceID())
	}
}

func TestRemoveLiveScreenLoadsNeighbour(t *testing.T) {
	e, s, c := newEditor(t, EditorOptions{})
	_, _ = e.AddScreen()
	_, _ = e.AddScreen()
	must(t, e.SwitchScreen(2))
	gone := e.Project().Screens[2].ID

	must(t, e.RemoveScreen(2))
	if e.Current() != 1 {
		t.Fatalf("current = %d", e.Current())
	}
	if got := c.FindByName("headline").Text.Content; got != "Screen 2" {
		t.Fatalf("neighbour not loaded, headline %q", got)
	}
	if _, n := s.History().Manager().Position(gone); n != 0 {
		t.Fatalf("history of removed screen kept %d snapshots", n)
	}

	must(t, e.RemoveScreen(0))
	if e.Current() != 0 {
		t.Fatalf("current = %d", e.Current())
	}
	if err := e.RemoveScreen(0); !errors.Is(err, ErrLastScreen) {
		t.Fatalf("expected ErrLastScreen, got %v", err)
	}
}

func TestDuplicateSwitchesToCopy(t *testing.T) {
	e, s, _ := newEditor(t, EditorOptions{})
	must(t, s.AddShape(compose.ShapeHeart, ""))
	j, err := e.DuplicateScreen(0)
	must(t, err)
	if j != 1 || e.Current() != 1 {
		t.Fatalf("copy index=%d current=%d", j, e.Current())
	}
	p := e.Project()
	if p.Screens[0].ID == p.Screens[1].ID {
		t.Fatalf("copy shares the screen id")
	}
	assert.JSONEq(t, string(p.Screens[0].CanvasData), string(p.Screens[1].CanvasData))
}

func TestMoveScreenKeepsLiveContent(t *testing.T) {
	e, s, c := newEditor(t, EditorOptions{})
	_, _ = e.AddScreen()
	must(t, s.AddShape(compose.ShapeTriangle, ""))
	id := e.Project().Screens[0].ID

	must(t, e.MoveScreen(0, 1))
	sc := e.Project().Screens[1]
	if e.Current() != 1 || sc.ID != id || sc.Order != 1 {
		t.Fatalf("move: current=%d id=%q order=%d", e.Current(), sc.ID, sc.Order)
	}
	if n := len(c.Filter(func(o *scene.Object) bool { return o.Kind == scene.KindPath })); n != 1 {
		t.Fatalf("live content lost, %d paths", n)
	}
}

func TestCanvasSizeAppliesToNewScreens(t *testing.T) {
	e, _, c := newEditor(t, EditorOptions{})
	p := e.Project()
	_, _ = e.AddScreen()

	must(t, e.SetCanvasSize(1242, 2208))
	if c.Width() != 1242 || c.Height() != 2208 || p.Width != 1242 || p.Height != 2208 {
		t.Fatalf("resize: canvas %vx%v project %vx%v", c.Width(), c.Height(), p.Width, p.Height)
	}

	must(t, e.SwitchScreen(1))
	if c.Width() != 1242 || c.Height() != 2208 {
		t.Fatalf("fresh screen not sized from the project: %vx%v", c.Width(), c.Height())
	}
	if bg := c.FindByName(compose.NameBackground); bg.Width != 1242 {
		t.Fatalf("fresh background width = %v", bg.Width)
	}

	must(t, e.SwitchScreen(0))
	if c.Width() != 1242 {
		t.Fatalf("stored screen lost its size: %v", c.Width())
	}

	must(t, e.ResetCanvasSize())
	if c.Width() != 1290 || c.Height() != 2796 || p.Width != 1290 || p.Height != 2796 {
		t.Fatalf("reset: canvas %vx%v project %vx%v", c.Width(), c.Height(), p.Width, p.Height)
	}

	if err := e.SetCanvasSize(0, 10); !errors.Is(err, compose.ErrProperty) {
		t.Fatalf("expected ErrProperty, got %v", err)
	}
	if p.Width != 1290 {
		t.Fatalf("rejected resize changed the project")
	}
}

func TestRenderScreen(t *testing.T) {
	e, _, _ := newEditor(t, EditorOptions{})
	_, _ = e.AddScreen()
	must(t, e.SwitchScreen(1))

	imgs := assets.NewLoader(nil)
	off := scene.NewCanvas(1, 1)
	off.SetRenderer(render.New(imgs))
	img, err := e.RenderScreen(off, 0, 0.05)
	must(t, err)
	if got := img.Bounds(); got != image.Rect(0, 0, 65, 140) {
		t.Fatalf("bounds = %v", got)
	}

	_, _ = e.AddScreen()
	if _, err := e.RenderScreen(off, 2, 1); err == nil {
		t.Fatalf("rendering a never-opened screen should fail")
	}
}

func TestGenerateThumbnail(t *testing.T) {
	img := GenerateThumbnail(image.NewRGBA(image.Rect(0, 0, 1290, 2796)))
	b := img.Bounds()
	if b.Dx() > ThumbMaxWidth || b.Dy() > ThumbMaxHeight || b.Dy() < ThumbMaxHeight-1 {
		t.Fatalf("thumbnail bounds %v", b)
	}

	small := image.NewRGBA(image.Rect(0, 0, 50, 50))
	if GenerateThumbnail(small) != image.Image(small) {
		t.Fatalf("small images must be returned as they are")
	}
}

func TestProjectModel(t *testing.T) {
	p := New("Store", devices.Android)
	if got := []float64{p.Width, p.Height}; !reflect.DeepEqual(got, []float64{1080, 1920}) {
		t.Fatalf("android size = %v", got)
	}
	for i := 1; i < MaxScreens; i++ {
		_, err := p.AddScreen()
		must(t, err)
	}
	if _, err := p.AddScreen(); !errors.Is(err, ErrScreenLimit) {
		t.Fatalf("expected ErrScreenLimit, got %v", err)
	}
	if _, err := p.DuplicateScreen(0); !errors.Is(err, ErrScreenLimit) {
		t.Fatalf("expected ErrScreenLimit on duplicate, got %v", err)
	}

	_, err := p.RemoveScreen(4)
	must(t, err)
	for i, s := range p.Screens {
		if s.Order != i {
			t.Fatalf("screen %d has order %d", i, s.Order)
		}
	}
	must(t, p.Validate())

	data, err := Marshal(p)
	must(t, err)
	got, err := Unmarshal(data)
	must(t, err)
	if got.ID != p.ID || len(got.Screens) != MaxScreens-1 {
		t.Fatalf("round trip: id=%q screens=%d", got.ID, len(got.Screens))
	}
}

func TestUnmarshalRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"empty name":   `{"name":"","platform":"ios","width":1,"height":1,"screens":[{"id":"a"}]}`,
		"no screens":   `{"name":"x","platform":"ios","width":1,"height":1,"screens":[]}`,
		"dup ids":      `{"name":"x","platform":"ios","width":1,"height":1,"screens":[{"id":"a"},{"id":"a"}]}`,
		"bad platform": `{"name":"x","platform":"web","width":1,"height":1,"screens":[{"id":"a"}]}`,
	}
	for name, doc := range cases {
		if _, err := Unmarshal([]byte(doc)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
	if _, err := Unmarshal([]byte("{")); err == nil || errors.Is(err, ErrScreenIndex) {
		t.Fatalf("expected parse error, got %v", err)
	}
}
