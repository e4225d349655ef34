/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package render

import (
	"image"
	"image/color"
	"image/draw"
	"log/slog"
	"math"
	"sort"

	rast "golang.org/x/image/vector"

	"shotframe/internal/vector"
)

// coverage rasterizes a device-space path into an alpha mask limited to clip.
// The returned mask's Rect is in device coordinates. nil means nothing to draw.
func coverage(path vector.Path, clip image.Rectangle) *image.Alpha {
	b := path.Bounds()
	rect := image.Rect(
		int(math.Floor(b.X)), int(math.Floor(b.Y)),
		int(math.Ceil(b.X+b.W)), int(math.Ceil(b.Y+b.H)),
	).Intersect(clip)
	if rect.Empty() {
		return nil
	}
	z := rast.NewRasterizer(rect.Dx(), rect.Dy())
	z.DrawOp = draw.Src
	ox, oy := float64(rect.Min.X), float64(rect.Min.Y)
	pt := func(i int, d [6]float64) (float32, float32) {
		return float32(d[i] - ox), float32(d[i+1] - oy)
	}
	open := false
	for _, c := range path.Cmds {
		switch c.Op {
		case vector.MoveTo:
			if open {
				z.ClosePath()
			}
			z.MoveTo(pt(0, c.Data))
			open = true
		case vector.LineTo:
			z.LineTo(pt(0, c.Data))
		case vector.QuadTo:
			bx, by := pt(0, c.Data)
			cx, cy := pt(2, c.Data)
			z.QuadTo(bx, by, cx, cy)
		case vector.CubicTo:
			bx, by := pt(0, c.Data)
			cx, cy := pt(2, c.Data)
			dx, dy := pt(4, c.Data)
			z.CubeTo(bx, by, cx, cy, dx, dy)
		case vector.Close:
			z.ClosePath()
			open = false
		}
	}
	if open {
		z.ClosePath()
	}
	mask := image.NewAlpha(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	z.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})
	mask.Rect = rect
	return mask
}

func (r *Renderer) fillPath(dst *image.RGBA, path vector.Path, paint vector.Paint, m vector.Affine2D, a float64) {
	src := r.source(paint, m, a)
	if src == nil {
		return
	}
	mask := coverage(path, dst.Bounds())
	if mask == nil {
		return
	}
	draw.DrawMask(dst, mask.Rect, src, mask.Rect.Min, mask, mask.Rect.Min, draw.Over)
}

// fillAxisRect paints an unrotated, square-cornered rectangle without a mask.
func (r *Renderer) fillAxisRect(dst *image.RGBA, b vector.Rect, paint vector.Paint, m vector.Affine2D, a float64) {
	src := r.source(paint, m, a)
	if src == nil {
		return
	}
	rect := image.Rect(
		int(math.Round(b.X)), int(math.Round(b.Y)),
		int(math.Round(b.X+b.W)), int(math.Round(b.Y+b.H)),
	).Intersect(dst.Bounds())
	if rect.Empty() {
		return
	}
	draw.Draw(dst, rect, src, rect.Min, draw.Over)
}

// source turns a paint into a device-space image. Gradients are defined in
// the object's local space and mapped through m.
func (r *Renderer) source(paint vector.Paint, m vector.Affine2D, a float64) image.Image {
	if g := paint.Linear; g != nil && len(g.Stops) > 0 {
		inv, ok := m.Invert()
		if !ok {
			return nil
		}
		return newGradient(g, inv, a, r.log)
	}
	if paint.Color == "" {
		return nil
	}
	c, err := vector.ParseColor(paint.Color)
	if err != nil {
		r.log.Debug("skip fill", slog.String("color", paint.Color), slog.Any("err", err))
		return nil
	}
	c = c.WithAlpha(a)
	if c.A == 0 {
		return nil
	}
	return image.NewUniform(c.NRGBA())
}

type stop struct {
	off float64
	c   color.NRGBA
}

// gradient is an unbounded image sampling a linear gradient.
type gradient struct {
	inv   vector.Affine2D
	p1    vector.Pt
	dir   vector.Pt
	len2  float64
	stops []stop
}

func newGradient(g *vector.LinearGradient, inv vector.Affine2D, a float64, log *slog.Logger) *gradient {
	gr := &gradient{
		inv: inv,
		p1:  vector.Pt{X: g.X1, Y: g.Y1},
		dir: vector.Pt{X: g.X2 - g.X1, Y: g.Y2 - g.Y1},
	}
	gr.len2 = gr.dir.X*gr.dir.X + gr.dir.Y*gr.dir.Y
	for _, s := range g.Stops {
		c, err := vector.ParseColor(s.Color)
		if err != nil {
			log.Debug("skip gradient stop", slog.String("color", s.Color), slog.Any("err", err))
			continue
		}
		c = c.WithAlpha(a)
		gr.stops = append(gr.stops, stop{off: s.Offset, c: c.NRGBA()})
	}
	sort.SliceStable(gr.stops, func(i, j int) bool { return gr.stops[i].off < gr.stops[j].off })
	if len(gr.stops) == 0 {
		gr.stops = []stop{{}}
	}
	return gr
}

func (g *gradient) ColorModel() color.Model { return color.NRGBAModel }

func (g *gradient) Bounds() image.Rectangle {
	return image.Rect(-1e9, -1e9, 1e9, 1e9)
}

func (g *gradient) At(x, y int) color.Color {
	p := g.inv.Apply(vector.Pt{X: float64(x) + 0.5, Y: float64(y) + 0.5})
	t := 0.0
	if g.len2 > 0 {
		d := p.Sub(g.p1)
		t = (d.X*g.dir.X + d.Y*g.dir.Y) / g.len2
	}
	return g.sample(t)
}

func (g *gradient) sample(t float64) color.NRGBA {
	s := g.stops
	if t <= s[0].off {
		return s[0].c
	}
	last := s[len(s)-1]
	if t >= last.off {
		return last.c
	}
	for i := 1; i < len(s); i++ {
		if t > s[i].off {
			continue
		}
		a, b := s[i-1], s[i]
		span := b.off - a.off
		if span <= 0 {
			return b.c
		}
		f := (t - a.off) / span
		return color.NRGBA{
			R: lerp8(a.c.R, b.c.R, f),
			G: lerp8(a.c.G, b.c.G, f),
			B: lerp8(a.c.B, b.c.B, f),
			A: lerp8(a.c.A, b.c.A, f),
		}
	}
	return last.c
}

func lerp8(a, b uint8, f float64) uint8 {
	return uint8(math.Round(float64(a) + (float64(b)-float64(a))*f))
}
