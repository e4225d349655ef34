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
	"math"
	"math/rand/v2"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	"shotframe/internal/devices"
	"shotframe/internal/fit"
	"shotframe/internal/loop"
	"shotframe/internal/scene"
)

// memImages completes cached sources inline and queues the rest until
// finish is called.
type memImages struct {
	cached  map[string]image.Image
	pending map[string][]func(image.Image, error)
}

func newMemImages() *memImages {
	return &memImages{cached: map[string]image.Image{}, pending: map[string][]func(image.Image, error){}}
}

func (m *memImages) Load(src string, done func(image.Image, error)) {
	if img, ok := m.cached[src]; ok {
		done(img, nil)
		return
	}
	m.pending[src] = append(m.pending[src], done)
}

func (m *memImages) finish(src string, img image.Image, err error) {
	list := m.pending[src]
	delete(m.pending, src)
	if err == nil {
		m.cached[src] = img
	}
	for _, done := range list {
		done(img, err)
	}
}

func fakeMeasure(t *scene.Text, width float64) (float64, float64) {
	return math.Min(width, 100), t.FontSize * 1.2
}

func newSession(t *testing.T, opts Options) (*Session, *scene.Canvas, *memImages) {
	t.Helper()
	c := scene.NewCanvas(1290, 2796)
	imgs := newMemImages()
	imgs.cached["shot.png"] = image.NewRGBA(image.Rect(0, 0, 1179, 2556))
	imgs.cached["wide.png"] = image.NewRGBA(image.Rect(0, 0, 2000, 500))
	if opts.Images == nil {
		opts.Images = imgs
	}
	if opts.Measure == nil {
		opts.Measure = fakeMeasure
	}
	s := New(c, opts)
	if err := s.Open("screen-1", nil, nil); err != nil {
		t.Fatalf("open: %v", err)
	}
	return s, c, imgs
}

// must fails the test on a non-nil error from an intent.
func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func names(c *scene.Canvas) []string {
	var out []string
	for _, o := range c.Objects() {
		out = append(out, o.Name)
	}
	return out
}

func snapshots(s *Session) int {
	_, n := s.History().Manager().Position(s.History().Key())
	return n
}

func near(t *testing.T, want, got float64, msg string) {
	t.Helper()
	assert.InDelta(t, want, got, 1e-6, msg)
}

func TestDeviceScreenshotZOrder(t *testing.T) {
	s, c, _ := newSession(t, Options{})
	must(t, s.AddText("hello", TextOptions{}))
	must(t, s.SetBackground("#101010"))
	must(t, s.AddDevice("iphone-15-pro", devices.Black))
	must(t, s.AddScreenshot("shot.png"))

	want := []string{NameBackground, "device-group-iphone-15-pro", NameScreenshot, NameOverlay, ""}
	if got := names(c); !reflect.DeepEqual(got, want) {
		t.Fatalf("z-order = %v, want %v", got, want)
	}
	if s.ScreenshotSource() != "shot.png" {
		t.Fatalf("screenshot source = %q", s.ScreenshotSource())
	}
	if s.Bound() != 3 {
		t.Fatalf("expected 3 frame subscriptions, got %d", s.Bound())
	}
}

func TestEveryIntentSnapshotsOnce(t *testing.T) {
	s, _, _ := newSession(t, Options{})
	n := snapshots(s)
	must(t, s.SetBackground("linear-gradient(180deg, #111111 0%, #222222 100%)"))
	must(t, s.AddDevice("pixel-8-pro", devices.White))
	must(t, s.AddScreenshot("shot.png"))
	must(t, s.AddShape(ShapeStar, ""))
	if got := snapshots(s); got != n+4 {
		t.Fatalf("expected %d snapshots, got %d", n+4, got)
	}
}

func TestScreenshotFollowsFrame(t *testing.T) {
	s, c, _ := newSession(t, Options{})
	must(t, s.AddDevice("iphone-15-pro", devices.Black))
	must(t, s.AddScreenshot("shot.png"))
	f := s.Frame()

	must(t, s.Move(f, 100, 300))
	must(t, s.Scale(f, 0.5, 0.5))
	must(t, s.Rotate(f, 30))

	shot := s.Screenshot()
	if shot == nil {
		t.Fatalf("screenshot missing")
	}
	want := fit.Place(fit.FromObject(f), f.Frame.Screen, 1179, 2556)
	near(t, want.Screen.Center.X, shot.Left, "center x")
	near(t, want.Screen.Center.Y, shot.Top, "center y")
	near(t, 30, shot.Angle, "angle")
	near(t, want.Scale, shot.ScaleX, "scale")
	if !reflect.DeepEqual(want.Clip(), *shot.Clip) {
		t.Fatalf("clip = %+v, want %+v", *shot.Clip, want.Clip())
	}
	if c.IndexOf(shot) != c.IndexOf(f)+1 {
		t.Fatalf("screenshot must sit right above the frame")
	}
	if n := len(c.Filter(func(o *scene.Object) bool { return o.Name == NameScreenshot })); n != 1 {
		t.Fatalf("expected one screenshot, got %d", n)
	}
}

func TestRotateAndUndoScenario(t *testing.T) {
	s, _, _ := newSession(t, Options{})
	must(t, s.SetBackground("#000000"))
	must(t, s.AddDevice("iphone-15-pro", devices.Black))
	must(t, s.AddScreenshot("shot.png"))
	before, err := s.Serialize()
	must(t, err)

	must(t, s.Rotate(s.Frame(), 45))
	near(t, 45, s.Screenshot().Angle, "rotated screenshot")

	must(t, s.Undo())
	after, err := s.Serialize()
	must(t, err)
	assert.JSONEq(t, string(before), string(after))
	if s.Frame().Angle != 0 || s.DeviceID() != "iphone-15-pro" || s.ScreenshotSource() != "shot.png" {
		t.Fatalf("undo did not restore the frame: angle=%v device=%q shot=%q", s.Frame().Angle, s.DeviceID(), s.ScreenshotSource())
	}
	if s.Bound() != 3 {
		t.Fatalf("frame binding must be rebuilt after replay, got %d", s.Bound())
	}

	// the rebound frame still drives the screenshot
	must(t, s.Rotate(s.Frame(), 10))
	near(t, 10, s.Screenshot().Angle, "rebound screenshot")
	if s.CanRedo() {
		t.Fatalf("a new intent must clear redo")
	}
}

func TestRedoAfterUndoIsInverse(t *testing.T) {
	s, _, _ := newSession(t, Options{})
	must(t, s.AddDevice("iphone-15-pro", devices.Black))
	must(t, s.AddShape(ShapeHeart, ""))
	want, _ := s.Serialize()
	must(t, s.Undo())
	must(t, s.Redo())
	got, _ := s.Serialize()
	assert.JSONEq(t, string(want), string(got))
}

func TestDragThrottledUntilCommit(t *testing.T) {
	lp := loop.New()
	s, _, _ := newSession(t, Options{Frames: lp})
	must(t, s.AddDevice("iphone-15-pro", devices.Black))
	must(t, s.AddScreenshot("shot.png"))
	f := s.Frame()
	start := s.Screenshot().Left
	n := snapshots(s)

	for i := 1; i <= 5; i++ {
		must(t, s.Drag(f, scene.EventMoving, func(o *scene.Object) { o.Left += 10 }))
	}
	if _, frames := lp.Pending(); frames != 1 {
		t.Fatalf("moves should coalesce into one re-placement, got %d", frames)
	}
	if s.Screenshot().Left != start {
		t.Fatalf("placement must wait for the frame tick")
	}
	if snapshots(s) != n {
		t.Fatalf("drag steps must record nothing")
	}

	must(t, s.Commit(f))
	near(t, start+50, s.Screenshot().Left, "committed placement")
	if snapshots(s) != n+1 {
		t.Fatalf("commit should record one snapshot")
	}
	if _, frames := lp.Pending(); frames != 0 {
		t.Fatalf("commit should flush the frame request, %d left", frames)
	}
}

func TestReplaceDeviceKeepsTransform(t *testing.T) {
	s, c, _ := newSession(t, Options{})
	must(t, s.SetBackground("#000000"))
	must(t, s.AddDevice("iphone-15-pro", devices.Black))
	must(t, s.AddScreenshot("shot.png"))
	old := s.Frame()
	must(t, s.Move(old, 40, 50))
	must(t, s.Scale(old, 0.8, 0.8))

	must(t, s.AddDevice("pixel-8", devices.White))
	f := s.Frame()
	if f.Name != "device-group-pixel-8" {
		t.Fatalf("frame name = %q", f.Name)
	}
	if got := []float64{f.Left, f.Top, f.ScaleX, f.ScaleY}; !reflect.DeepEqual(got, []float64{40, 50, 0.8, 0.8}) {
		t.Fatalf("transform not kept: %v", got)
	}
	if c.Subscribers(old) != 0 || c.Subscribers(f) != 3 {
		t.Fatalf("subscriptions: old=%d new=%d", c.Subscribers(old), c.Subscribers(f))
	}
	if f.Frame.Color != "white" {
		t.Fatalf("frame color = %q", f.Frame.Color)
	}
	if c.IndexOf(s.Screenshot()) != c.IndexOf(f)+1 {
		t.Fatalf("screenshot must follow the replaced frame")
	}

	must(t, s.ChangeDeviceColor(devices.Black))
	if s.Frame().Frame.Color != "black" || s.DeviceID() != "pixel-8" {
		t.Fatalf("color change: color=%q device=%q", s.Frame().Frame.Color, s.DeviceID())
	}
}

func TestUnknownDeviceFallsBack(t *testing.T) {
	s, _, _ := newSession(t, Options{})
	must(t, s.AddDevice("nokia-3310", devices.Black))
	if s.DeviceID() != devices.DefaultID {
		t.Fatalf("expected fallback %q, got %q", devices.DefaultID, s.DeviceID())
	}
}

func TestRandomDevice(t *testing.T) {
	s, _, _ := newSession(t, Options{})
	must(t, s.AddRandomDevice(rand.New(rand.NewPCG(1, 2)), ""))
	if devices.Lookup(s.DeviceID()).Tablet() {
		t.Fatalf("random device must be a phone, got %q", s.DeviceID())
	}
	must(t, s.AddRandomDevice(rand.New(rand.NewPCG(1, 2)), devices.Android))
	if s.DeviceID() != "pixel-8-pro" {
		t.Fatalf("android default = %q", s.DeviceID())
	}
}

func TestLatestScreenshotLoadWins(t *testing.T) {
	s, _, imgs := newSession(t, Options{})
	must(t, s.AddDevice("iphone-15-pro", devices.Black))
	must(t, s.AddScreenshot("a.png"))
	must(t, s.AddScreenshot("b.png"))
	n := snapshots(s)

	imgs.finish("b.png", image.NewRGBA(image.Rect(0, 0, 10, 20)), nil)
	imgs.finish("a.png", image.NewRGBA(image.Rect(0, 0, 30, 40)), nil)

	if s.Screenshot() == nil || s.Screenshot().Src != "b.png" {
		t.Fatalf("expected b.png to win, got %+v", s.Screenshot())
	}
	if snapshots(s) != n+1 {
		t.Fatalf("async completion is its own mutation: %d snapshots, want %d", snapshots(s), n+1)
	}
}

func TestImageLoadDroppedAfterScreenSwitch(t *testing.T) {
	s, c, imgs := newSession(t, Options{})
	must(t, s.AddImage("slow.png"))
	must(t, s.Open("screen-2", nil, nil))
	n := snapshots(s)

	imgs.finish("slow.png", image.NewRGBA(image.Rect(0, 0, 50, 50)), nil)

	if c.Len() != 0 {
		t.Fatalf("image from screen-1 leaked into screen-2: %v", names(c))
	}
	if snapshots(s) != n {
		t.Fatalf("screen-2 history changed: %d snapshots, want %d", snapshots(s), n)
	}

	// a fresh request on the new screen still lands
	must(t, s.AddImage("slow.png"))
	if c.Len() != 1 || c.Objects()[0].Src != "slow.png" {
		t.Fatalf("expected the cached image on screen-2, got %v", names(c))
	}
}

func TestImageLoadDroppedAfterClear(t *testing.T) {
	s, c, imgs := newSession(t, Options{})
	must(t, s.SetBackground("#000000"))
	must(t, s.AddImage("slow.png"))
	must(t, s.ClearCanvas())
	n := snapshots(s)

	imgs.finish("slow.png", image.NewRGBA(image.Rect(0, 0, 50, 50)), nil)
	if got := names(c); !reflect.DeepEqual(got, []string{NameBackground}) {
		t.Fatalf("cleared canvas gained objects: %v", got)
	}
	if snapshots(s) != n {
		t.Fatalf("stale load recorded a snapshot")
	}
}

func TestImageLoadDroppedAfterUndo(t *testing.T) {
	s, c, imgs := newSession(t, Options{})
	must(t, s.AddShape(ShapeCircle, ""))
	must(t, s.AddImage("slow.png"))
	must(t, s.Undo())
	n := snapshots(s)

	imgs.finish("slow.png", image.NewRGBA(image.Rect(0, 0, 50, 50)), nil)
	if c.Len() != 0 {
		t.Fatalf("undone scene gained objects: %v", names(c))
	}
	if snapshots(s) != n || !s.CanRedo() {
		t.Fatalf("stale load must not touch history (snapshots=%d want %d, canRedo=%v)", snapshots(s), n, s.CanRedo())
	}
}

func TestConcurrentFreeImagesBothLand(t *testing.T) {
	s, c, imgs := newSession(t, Options{})
	must(t, s.AddImage("one.png"))
	must(t, s.AddImage("two.png"))
	imgs.finish("two.png", image.NewRGBA(image.Rect(0, 0, 20, 20)), nil)
	imgs.finish("one.png", image.NewRGBA(image.Rect(0, 0, 10, 10)), nil)
	if c.Len() != 2 {
		t.Fatalf("expected both images, got %d objects", c.Len())
	}
}

func TestScreenshotWithoutImageSource(t *testing.T) {
	s := New(scene.NewCanvas(1290, 2796), Options{Measure: fakeMeasure})
	must(t, s.Open("screen-1", nil, nil))
	must(t, s.AddDevice("iphone-15-pro", devices.Black))

	if err := s.AddScreenshot("shot.png"); !errors.Is(err, errNoImages) {
		t.Fatalf("expected errNoImages, got %v", err)
	}
	if s.ScreenshotSource() != "" {
		t.Fatalf("failed assignment must not record a source, got %q", s.ScreenshotSource())
	}
	if s.Screenshot() != nil {
		t.Fatalf("no screenshot object expected")
	}
}

func TestFailedScreenshotLoadKeepsSceneConsistent(t *testing.T) {
	s, _, imgs := newSession(t, Options{})
	must(t, s.AddDevice("iphone-15-pro", devices.Black))
	must(t, s.AddScreenshot("shot.png"))
	must(t, s.AddScreenshot("broken.png"))
	imgs.finish("broken.png", nil, errors.New("boom"))
	if s.ScreenshotSource() != "shot.png" || s.Screenshot().Src != "shot.png" {
		t.Fatalf("failed load must keep shot.png, got source=%q object=%q", s.ScreenshotSource(), s.Screenshot().Src)
	}
}

func TestRemoveScreenshot(t *testing.T) {
	s, c, _ := newSession(t, Options{})
	must(t, s.AddDevice("iphone-15-pro", devices.Black))
	must(t, s.AddScreenshot("shot.png"))
	must(t, s.RemoveScreenshot())
	if s.Screenshot() != nil {
		t.Fatalf("screenshot still present")
	}
	if n := len(c.Filter(func(o *scene.Object) bool { return o.Name == NameOverlay })); n != 0 {
		t.Fatalf("overlay still present")
	}
	if s.ScreenshotSource() != "" {
		t.Fatalf("source not cleared")
	}
}

func TestImageWithoutFrameIsFree(t *testing.T) {
	s, c, _ := newSession(t, Options{})
	must(t, s.AddImage("wide.png"))
	objs := c.Objects()
	if len(objs) != 1 {
		t.Fatalf("expected one object, got %d", len(objs))
	}
	img := objs[0]
	if img.Name != "" || !img.Selectable {
		t.Fatalf("free image should be unnamed and selectable: %+v", img)
	}
	near(t, 1290*0.6/2000, img.ScaleX, "free image scale")
	if a := c.Active(); len(a) != 1 || a[0] != img {
		t.Fatalf("free image should be selected")
	}

	// with a frame the same intent fills the screen
	must(t, s.AddDevice("iphone-15-pro", devices.Black))
	must(t, s.AddImage("shot.png"))
	if s.Screenshot() == nil {
		t.Fatalf("image should fill the frame")
	}
}

func TestFreeImageNeverUpscales(t *testing.T) {
	if got := FreeImageScale(1290, 100, 100); got != 1 {
		t.Fatalf("small image scaled to %v", got)
	}
	near(t, 0.5, FreeImageScale(1290, 100, 1400), "tall image")
}

func TestDeleteSelectedGuardsProtectedObjects(t *testing.T) {
	s, c, _ := newSession(t, Options{})
	must(t, s.SetBackground("#000000"))
	must(t, s.AddDevice("iphone-15-pro", devices.Black))
	must(t, s.AddScreenshot("shot.png"))
	must(t, s.AddEmoji("🚀"))
	emoji := c.Active()[0]

	s.SelectDevice()
	must(t, s.DeleteSelected())
	if s.Frame() == nil {
		t.Fatalf("single frame selection must not be deleted")
	}

	c.SetActive(s.Frame(), emoji, s.Screenshot())
	must(t, s.DeleteSelected())
	if c.IndexOf(emoji) != -1 {
		t.Fatalf("emoji not deleted")
	}
	if s.Frame() == nil || s.Screenshot() == nil || c.FindByName(NameBackground) == nil {
		t.Fatalf("protected objects removed: %v", names(c))
	}
	if len(c.Active()) != 0 {
		t.Fatalf("selection not cleared")
	}
}

func TestSelectScreenshotSelectsFrame(t *testing.T) {
	s, c, _ := newSession(t, Options{})
	must(t, s.SetBackground("#000000"))
	must(t, s.AddDevice("iphone-15-pro", devices.Black))
	must(t, s.AddScreenshot("shot.png"))
	c.DiscardActive()
	if !s.Select(s.Screenshot()) {
		t.Fatalf("selecting the screenshot should succeed")
	}
	if a := c.Active(); len(a) != 1 || a[0] != s.Frame() {
		t.Fatalf("screenshot click should select the frame")
	}
	if s.Select(c.FindByName(NameBackground)) {
		t.Fatalf("background must not be selectable")
	}
}

func TestClearCanvasKeepsBackground(t *testing.T) {
	s, c, _ := newSession(t, Options{})
	must(t, s.SetBackground("#000000"))
	must(t, s.AddDevice("iphone-15-pro", devices.Black))
	must(t, s.AddScreenshot("shot.png"))
	must(t, s.AddShape(ShapeCircle, "#FFFFFF"))
	must(t, s.ClearCanvas())
	if got := names(c); !reflect.DeepEqual(got, []string{NameBackground}) {
		t.Fatalf("after clear: %v", got)
	}
	if s.DeviceID() != "" || s.Bound() != 0 {
		t.Fatalf("device not forgotten: %q bound=%d", s.DeviceID(), s.Bound())
	}
}

func TestParseBackground(t *testing.T) {
	p := ParseBackground("linear-gradient(135deg, #667eea 0%, #764ba2 50%, #f093fb 100%)", 100)
	if p.Linear == nil || len(p.Linear.Stops) != 3 {
		t.Fatalf("expected three-stop gradient, got %+v", p)
	}
	if p.Linear.Stops[1].Offset != 0.5 || p.Linear.Y2 != 100 {
		t.Fatalf("unexpected gradient geometry: %+v", p.Linear)
	}

	p = ParseBackground("linear-gradient(red, blue)", 10)
	if p.Linear == nil || len(p.Linear.Stops) != 2 || p.Linear.Stops[0].Color != "#0077B6" {
		t.Fatalf("unparseable gradient should fall back: %+v", p)
	}

	if got := ParseBackground("#ABCDEF", 10).Color; got != "#ABCDEF" {
		t.Fatalf("solid color = %q", got)
	}
}

func TestBackgroundStaysAtBottom(t *testing.T) {
	s, c, _ := newSession(t, Options{})
	must(t, s.AddShape(ShapeTriangle, ""))
	must(t, s.SetBackground("#111111"))
	must(t, s.SetBackground("#222222"))
	bgs := c.Filter(func(o *scene.Object) bool { return o.Name == NameBackground })
	if len(bgs) != 1 {
		t.Fatalf("expected one background, got %d", len(bgs))
	}
	if c.IndexOf(bgs[0]) != 0 || bgs[0].Fill.Color != "#222222" || bgs[0].Selectable {
		t.Fatalf("unexpected background: index=%d %+v", c.IndexOf(bgs[0]), bgs[0])
	}
}

func TestShapesAndText(t *testing.T) {
	s, c, _ := newSession(t, Options{})
	for _, k := range []string{ShapeRectangle, ShapeCircle, ShapeStar, ShapeHeart, ShapeTriangle, "blob"} {
		must(t, s.AddShape(k, ""))
	}
	objs := c.Objects()
	if len(objs) != 6 {
		t.Fatalf("expected 6 shapes, got %d", len(objs))
	}
	if objs[5].Kind != scene.KindRect {
		t.Fatalf("unknown kinds add a rectangle, got %v", objs[5].Kind)
	}
	star := objs[2]
	near(t, 1290/2-80*math.Cos(math.Pi/10), star.Left, "star left")
	near(t, 320, star.Top, "star top")
	if objs[3].ScaleX != 1.5 {
		t.Fatalf("heart scale = %v", objs[3].ScaleX)
	}

	must(t, s.AddText("Your app", TextOptions{}))
	txt := c.Active()[0]
	if txt.Width != 800 || !txt.Text.Bold {
		t.Fatalf("text defaults: width=%v bold=%v", txt.Width, txt.Text.Bold)
	}
	near(t, 72*1.2, txt.Height, "text height")

	must(t, s.AddBadge("new", "#FF0000"))
	badge := c.Active()[0]
	if got := badge.Children[1].Text.Content; got != "NEW" {
		t.Fatalf("badge label = %q", got)
	}
	near(t, 3*24*0.6+40, badge.Width, "badge width")
	near(t, 54, badge.Height, "badge height")
	near(t, 27, badge.Children[0].Radius, "badge radius")
}

func TestBusySessionRejectsIntents(t *testing.T) {
	s, _, _ := newSession(t, Options{})
	resume := s.Suspend()
	if err := s.AddShape(ShapeCircle, ""); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	if err := s.Undo(); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy from undo, got %v", err)
	}
	resume()
	must(t, s.AddShape(ShapeCircle, ""))
}

func TestSnapToCanvasCenter(t *testing.T) {
	s, _, _ := newSession(t, Options{Snap: true, Threshold: 8})
	must(t, s.AddShape(ShapeRectangle, ""))
	o := s.Canvas().Active()[0]
	must(t, s.Drag(o, scene.EventMoving, func(o *scene.Object) { o.Left = 1290/2 - 100 + 5 }))
	near(t, 1290/2-100, o.Left, "snapped left")
	if len(s.Guides()) == 0 {
		t.Fatalf("expected smart guides while dragging")
	}
	must(t, s.Commit(o))
	if len(s.Guides()) != 0 {
		t.Fatalf("guides must clear on commit")
	}
}
