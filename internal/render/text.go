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
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"shotframe/internal/scene"
	"shotframe/internal/textlayout"
	"shotframe/internal/vector"
)

// DefaultLineHeight matches the line advance editors use for text boxes.
const DefaultLineHeight = 1.16

// LayoutText wraps t at width design units using provider (nil means the
// bundled Go fonts). Results are in design units.
func LayoutText(provider textlayout.Provider, t *scene.Text, width float64) textlayout.TextBox {
	return layoutScaled(provider, t, width, 1)
}

// TextHeight is the height a text box of the given width needs for t.
func TextHeight(t *scene.Text, width float64) float64 {
	_, h := MeasureText(t, width)
	return h
}

// MeasureText lays t out at width and returns the widest line and the
// total height.
func MeasureText(t *scene.Text, width float64) (w, h float64) {
	if t == nil {
		return 0, 0
	}
	box := LayoutText(nil, t, width)
	for _, ln := range box.Lines {
		w = math.Max(w, float64(ln.Width))
	}
	return w, float64(box.Height)
}

func layoutScaled(provider textlayout.Provider, t *scene.Text, width, k float64) textlayout.TextBox {
	if provider == nil {
		provider = textlayout.GoFonts()
	}
	lh := t.LineHeight
	if lh <= 0 {
		lh = DefaultLineHeight
	}
	l := &textlayout.WordWrapLayouter{Provider: provider, LineSpacing: float32(lh)}
	box, _ := l.Layout([]textlayout.Span{{Text: t.Content, Font: fontSpec(t, k)}}, float32(width*k))
	return box
}

func fontSpec(t *scene.Text, k float64) textlayout.FontSpec {
	spec := textlayout.FontSpec{Family: "Go", SizePt: float32(t.FontSize * k), Weight: 400}
	if t.Bold {
		spec.Weight = 700
	}
	return spec
}

// drawText lays the text out at device resolution into a scratch image and
// maps it into place, so rotated text keeps its glyph quality.
func (r *Renderer) drawText(p *pass, o *scene.Object, m vector.Affine2D, a float64) {
	t := o.Text
	if t == nil || t.Content == "" || t.FontSize <= 0 {
		return
	}
	k := deviceScale(m)
	if k <= 0 {
		return
	}
	src := r.source(o.Fill, vector.Identity, a)
	if src == nil {
		if g := o.Fill.Linear; g != nil && len(g.Stops) > 0 {
			src = r.source(vector.Solid(g.Stops[0].Color), vector.Identity, a)
		}
		if src == nil {
			return
		}
	}
	box := layoutScaled(r.Fonts, t, o.Width, k)
	w := int(math.Ceil(o.Width * k))
	h := int(math.Ceil(float64(box.Height))) + 1
	if w <= 0 || h <= 0 {
		return
	}
	tmp := image.NewRGBA(image.Rect(0, 0, w, h))
	face, _ := r.Fonts.Resolve(fontSpec(t, k))
	for _, ln := range box.Lines {
		x := 0.0
		switch t.Align {
		case "center":
			x = (float64(w) - float64(ln.Width)) / 2
		case "right":
			x = float64(w) - float64(ln.Width)
		}
		d := font.Drawer{
			Dst:  tmp,
			Src:  src,
			Face: face,
			Dot:  fixed.Point26_6{X: fixed.Int26_6(x * 64), Y: fixed.Int26_6(float64(ln.Baseline) * 64)},
		}
		for _, sp := range ln.Spans {
			d.DrawString(sp.Text)
		}
	}
	xdraw.BiLinear.Transform(p.dst, aff3(m.Mul(vector.Scale(1/k, 1/k))), tmp, tmp.Bounds(), xdraw.Over, nil)
}
