/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package compose

import (
	"image"
	"log/slog"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"shotframe/internal/scene"
	"shotframe/internal/undo"
	"shotframe/internal/vector"
)

// Default gradient when a linear-gradient string names no hex stops.
var defaultGradient = []string{"#0077B6", "#00B4D8"}

var hexStop = regexp.MustCompile(`#[a-fA-F0-9]{6}`)

// ParseBackground turns a background string into a paint for a canvas of
// the given height: a CSS linear-gradient(...) becomes a vertical gradient
// over its hex stops, anything else a solid color.
func ParseBackground(bg string, height float64) vector.Paint {
	bg = strings.TrimSpace(bg)
	if !strings.HasPrefix(bg, "linear-gradient") {
		return vector.Solid(bg)
	}
	stops := hexStop.FindAllString(bg, -1)
	if len(stops) == 0 {
		stops = defaultGradient
	}
	return vector.VerticalGradient(height, stops...)
}

// SetBackground replaces the background with a full-canvas fill.
func (s *Session) SetBackground(bg string) error {
	return s.do("set background", func() error {
		s.setBackground(bg)
		return nil
	})
}

func (s *Session) setBackground(bg string) {
	if old := s.canvas.FindByName(NameBackground); old != nil {
		s.canvas.Remove(old)
	}
	o := scene.NewObject(scene.KindRect, NameBackground)
	o.Width, o.Height = s.canvas.Width(), s.canvas.Height()
	o.Fill = ParseBackground(bg, o.Height)
	o.Selectable, o.Evented = false, false
	s.canvas.Insert(0, o)
}

// TextOptions override the headline defaults.
type TextOptions struct {
	FontSize float64
	Fill     string
	Weight   int
}

// Headline defaults.
const (
	TextFontSize = 72
	TextTop      = 300
	textMaxWidth = 800
)

var textShadow = vector.Shadow{Color: "rgba(0,0,0,0.3)", Blur: 10, OffsetY: 5}

// AddText adds a centered, wrapping text box.
func (s *Session) AddText(content string, opts TextOptions) error {
	return s.do("add text", func() error {
		s.addText(content, opts)
		return nil
	})
}

func (s *Session) addText(content string, opts TextOptions) *scene.Object {
	if opts.FontSize <= 0 {
		opts.FontSize = TextFontSize
	}
	if opts.Fill == "" {
		opts.Fill = "#FFFFFF"
	}
	if opts.Weight == 0 {
		opts.Weight = 700
	}
	o := scene.NewObject(scene.KindText, "")
	o.Origin = scene.OriginCenter
	o.Text = &scene.Text{Content: content, FontSize: opts.FontSize, Bold: opts.Weight >= 600, Align: "center"}
	o.Width = math.Min(s.canvas.Width()-100, textMaxWidth)
	_, o.Height = s.measure(o.Text, o.Width)
	o.Left, o.Top = s.canvas.Width()/2, TextTop
	o.Fill = vector.Solid(opts.Fill)
	sh := textShadow
	o.Shadow = &sh
	s.push(o)
	return o
}

// Shape kinds accepted by AddShape.
const (
	ShapeRectangle = "rectangle"
	ShapeCircle    = "circle"
	ShapeStar      = "star"
	ShapeHeart     = "heart"
	ShapeTriangle  = "triangle"
)

const shapeCenterY = 400

// AddShape adds a preset shape around the upper canvas center. An empty
// color uses the shape's default; unknown kinds add a rectangle.
func (s *Session) AddShape(kind, color string) error {
	return s.do("add shape", func() error {
		s.push(s.shape(kind, color))
		return nil
	})
}

func (s *Session) shape(kind, color string) *scene.Object {
	cx, cy := s.canvas.Width()/2, float64(shapeCenterY)
	pick := func(def string) vector.Paint {
		if color == "" {
			return vector.Solid(def)
		}
		return vector.Solid(color)
	}
	switch kind {
	case ShapeCircle:
		o := scene.NewObject(scene.KindCircle, "")
		o.Left, o.Top, o.Width, o.Height = cx-75, cy-75, 150, 150
		o.Fill = pick("#EC4899")
		return o
	case ShapeStar:
		pts := vector.StarPoints(5, 80, 40)
		for i := range pts {
			pts[i] = pts[i].Add(vector.Pt{X: cx, Y: cy})
		}
		o := pathObject(vector.PolygonPath(pts))
		o.Fill = pick("#06B6D4")
		return o
	case ShapeHeart:
		o := pathObject(heartPath())
		o.Left, o.Top = cx-50, cy-50
		o.ScaleX, o.ScaleY = 1.5, 1.5
		o.Fill = pick("#EC4899")
		return o
	case ShapeTriangle:
		o := pathObject(vector.PolygonPath([]vector.Pt{{X: 75, Y: 0}, {X: 150, Y: 130}, {X: 0, Y: 130}}))
		o.Left, o.Top = cx-75, cy-65
		o.Fill = pick("#A78BFA")
		return o
	}
	o := scene.NewObject(scene.KindRect, "")
	o.Left, o.Top, o.Width, o.Height = cx-100, cy-75, 200, 150
	o.Radius = 15
	o.Fill = pick("#8B5CF6")
	return o
}

// pathObject wraps p in an object whose box is p's bounds, placed where p
// already is.
func pathObject(p vector.Path) *scene.Object {
	b := p.Bounds()
	norm := p.Transform(vector.Translate(-b.X, -b.Y))
	o := scene.NewObject(scene.KindPath, "")
	o.Path = &norm
	o.Left, o.Top, o.Width, o.Height = b.X, b.Y, b.W, b.H
	return o
}

func heartPath() vector.Path {
	var p vector.Path
	p.MoveTo(0, -30)
	p.CubicTo(-25, -60, -50, -30, -50, 0)
	p.CubicTo(-50, 30, -25, 50, 0, 70)
	p.CubicTo(25, 50, 50, 30, 50, 0)
	p.CubicTo(50, -30, 25, -60, 0, -30)
	p.Close()
	return p
}

// Badge geometry.
const (
	badgeFontSize = 24
	badgePadding  = 20
	badgeTop      = 350
)

// AddBadge adds a capsule label, upper-cased, on a color background.
func (s *Session) AddBadge(label, color string) error {
	return s.do("add badge", func() error {
		s.push(s.badge(label, color))
		return nil
	})
}

func (s *Session) badge(label, color string) *scene.Object {
	text := strings.ToUpper(label)
	w := float64(utf8.RuneCountInString(text))*badgeFontSize*0.6 + badgePadding*2
	h := badgeFontSize + badgePadding*1.5

	bg := scene.NewObject(scene.KindRect, "badge-background")
	bg.Width, bg.Height = w, h
	bg.Radius = h / 2
	bg.Fill = vector.Solid(color)

	lbl := scene.NewObject(scene.KindText, "badge-label")
	lbl.Text = &scene.Text{Content: text, FontSize: badgeFontSize, Bold: true, Align: "center"}
	lbl.Width = w
	_, lbl.Height = s.measure(lbl.Text, w)
	lbl.Top = (h - lbl.Height) / 2
	lbl.Fill = vector.Solid("#FFFFFF")

	g := scene.NewObject(scene.KindGroup, "badge")
	g.Origin = scene.OriginCenter
	g.Width, g.Height = w, h
	g.Left, g.Top = s.canvas.Width()/2, badgeTop
	g.Children = []*scene.Object{bg, lbl}
	for _, ch := range g.Children {
		ch.Selectable, ch.Evented = false, false
	}
	return g
}

const emojiSize = 80

// AddEmoji adds a single emoji glyph.
func (s *Session) AddEmoji(emoji string) error {
	return s.do("add emoji", func() error {
		o := scene.NewObject(scene.KindText, "")
		o.Origin = scene.OriginCenter
		o.Text = &scene.Text{Content: emoji, FontSize: emojiSize, Align: "center"}
		w, h := s.measure(o.Text, math.MaxInt32)
		o.Width, o.Height = math.Max(w, emojiSize), math.Max(h, emojiSize)
		o.Left, o.Top = s.canvas.Width()/2, badgeTop
		o.Fill = vector.Solid("#000000")
		s.push(o)
		return nil
	})
}

// Free images are fitted within these bounds and never upscaled.
const (
	freeImageTop       = 500
	freeImageMaxHeight = 700
	freeImageMaxWidth  = 0.6 // of the canvas width
)

// FreeImageScale is the scale a w×h image is added at on a canvas of the
// given width.
func FreeImageScale(canvasWidth, w, h float64) float64 {
	return math.Min(math.Min(canvasWidth*freeImageMaxWidth/math.Max(w, 1), freeImageMaxHeight/math.Max(h, 1)), 1)
}

func (s *Session) addFreeImage(src string) error {
	if s.images == nil {
		return errNoImages
	}
	inline := true
	epoch, key := s.epoch, s.history.Key()
	s.images.Load(src, func(img image.Image, err error) {
		if epoch != s.epoch || key != s.history.Key() || s.busy {
			s.log.Debug("stale image load ignored", slog.String("src", src), slog.String("screen", key))
			return
		}
		if err != nil {
			s.log.Warn("image load failed", slog.Any("err", err))
			return
		}
		add := func() error {
			b := img.Bounds()
			o := scene.NewObject(scene.KindImage, "")
			o.Origin = scene.OriginCenter
			o.Src = src
			o.Width, o.Height = float64(b.Dx()), float64(b.Dy())
			sc := FreeImageScale(s.canvas.Width(), o.Width, o.Height)
			o.ScaleX, o.ScaleY = sc, sc
			o.Left, o.Top = s.canvas.Width()/2, freeImageTop
			s.push(o)
			return nil
		}
		if inline {
			_ = add()
			return
		}
		if err := s.history.Mutate(undo.Commit, add); err != nil {
			s.log.Warn("image dropped", slog.Any("err", err))
		}
	})
	inline = false
	return nil
}

// push appends free content on top and selects it.
func (s *Session) push(o *scene.Object) {
	s.canvas.Add(o)
	s.canvas.SetActive(o)
}
