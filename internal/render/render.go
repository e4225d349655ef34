/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package render rasterizes scene objects with golang.org/x/image: vector
// masks for shapes, affine resampling for bitmaps, opentype faces for text
// and a bild Gaussian for drop shadows.
package render

import (
	"errors"
	"image"
	"log/slog"
	"math"

	"golang.org/x/image/math/f64"

	applog "shotframe/internal/log"
	"shotframe/internal/scene"
	"shotframe/internal/textlayout"
	"shotframe/internal/vector"
)

// ImageSource resolves an image object's Src to decoded pixels. ok is false
// while the image is unknown or still loading; such objects are skipped.
type ImageSource interface {
	Image(src string) (img image.Image, ok bool)
}

// Renderer implements scene.Renderer.
type Renderer struct {
	Images ImageSource
	Fonts  textlayout.Provider
	log    *slog.Logger
}

var _ scene.Renderer = (*Renderer)(nil)

// New returns a Renderer drawing bitmaps from images (may be nil) and text
// with the bundled Go fonts.
func New(images ImageSource) *Renderer {
	return &Renderer{Images: images, Fonts: textlayout.GoFonts(), log: applog.WithComponent("render")}
}

// pass carries per-call state: the destination and the canvas-to-device
// transform used for absolutely positioned clips.
type pass struct {
	dst  *image.RGBA
	base vector.Affine2D
	mult float64
}

// Render draws objs bottom to top onto a transparent image of
// ceil(width·multiplier) × ceil(height·multiplier) pixels.
func (r *Renderer) Render(width, height float64, objs []*scene.Object, multiplier float64) (*image.RGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.New("render: empty canvas")
	}
	if multiplier <= 0 {
		multiplier = 1
	}
	w := int(math.Ceil(width * multiplier))
	h := int(math.Ceil(height * multiplier))
	p := &pass{
		dst:  image.NewRGBA(image.Rect(0, 0, w, h)),
		base: vector.Scale(multiplier, multiplier),
		mult: multiplier,
	}
	for _, o := range objs {
		r.draw(p, o, p.base.Mul(o.LocalTransform()), 1, true)
	}
	return p.dst, nil
}

// draw renders o whose content space maps to device space through m.
func (r *Renderer) draw(p *pass, o *scene.Object, m vector.Affine2D, alpha float64, withShadow bool) {
	if o == nil {
		return
	}
	a := alpha * o.Opacity
	if a <= 0 {
		return
	}
	if withShadow && o.Shadow != nil {
		r.drawShadow(p, o, m, a)
	}
	switch o.Kind {
	case scene.KindRect:
		r.fillShape(p, o, vector.RoundedRectPath(0, 0, o.Width, o.Height, o.Radius), m, a)
		if sw := o.StrokeWidth; sw > 0 && o.Stroke != "" {
			ring := vector.RoundedRectPath(-sw/2, -sw/2, o.Width+sw, o.Height+sw, grow(o.Radius, sw/2))
			if o.Width > sw && o.Height > sw {
				ring.Append(vector.RoundedRectPath(sw/2, sw/2, o.Width-sw, o.Height-sw, math.Max(o.Radius-sw/2, 0)).Reverse())
			}
			r.fillPath(p.dst, ring.Transform(m), vector.Solid(o.Stroke), m, a)
		}
	case scene.KindCircle:
		r.fillShape(p, o, vector.EllipsePath(0, 0, o.Width, o.Height), m, a)
		if sw := o.StrokeWidth; sw > 0 && o.Stroke != "" {
			ring := vector.EllipsePath(-sw/2, -sw/2, o.Width+sw, o.Height+sw)
			if o.Width > sw && o.Height > sw {
				ring.Append(vector.EllipsePath(sw/2, sw/2, o.Width-sw, o.Height-sw).Reverse())
			}
			r.fillPath(p.dst, ring.Transform(m), vector.Solid(o.Stroke), m, a)
		}
	case scene.KindPath:
		if o.Path != nil {
			r.fillShape(p, o, *o.Path, m, a)
		}
	case scene.KindText:
		r.drawText(p, o, m, a)
	case scene.KindImage:
		r.drawImage(p, o, m, a)
	case scene.KindGroup:
		for _, ch := range o.Children {
			r.draw(p, ch, m.Mul(ch.LocalTransform()), a, true)
		}
	}
}

func (r *Renderer) fillShape(p *pass, o *scene.Object, local vector.Path, m vector.Affine2D, a float64) {
	if o.Fill.IsZero() {
		return
	}
	if o.Kind == scene.KindRect && o.Radius == 0 && m.B == 0 && m.C == 0 {
		r.fillAxisRect(p.dst, m.TransformRect(vector.R(0, 0, o.Width, o.Height)), o.Fill, m, a)
		return
	}
	r.fillPath(p.dst, local.Transform(m), o.Fill, m, a)
}

func grow(radius, by float64) float64 {
	if radius <= 0 {
		return 0
	}
	return radius + by
}

// aff3 converts m to the row-major layout used by x/image/draw.
func aff3(m vector.Affine2D) f64.Aff3 {
	return f64.Aff3{m.A, m.C, m.E, m.B, m.D, m.F}
}

// deviceScale is the average linear scale of m.
func deviceScale(m vector.Affine2D) float64 {
	return math.Sqrt(math.Abs(m.A*m.D - m.B*m.C))
}
