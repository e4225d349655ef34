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
	"log/slog"

	xdraw "golang.org/x/image/draw"

	"shotframe/internal/scene"
	"shotframe/internal/vector"
)

// drawImage resamples the object's bitmap into place. A Clip, when present,
// is a rounded rectangle in canvas coordinates that masks the result.
func (r *Renderer) drawImage(p *pass, o *scene.Object, m vector.Affine2D, a float64) {
	if r.Images == nil || o.Src == "" {
		return
	}
	img, ok := r.Images.Image(o.Src)
	if !ok || img == nil {
		r.log.Debug("image not ready", slog.String("id", o.ID))
		return
	}
	b := img.Bounds()
	if b.Empty() {
		return
	}
	w, h := o.Width, o.Height
	if w <= 0 || h <= 0 {
		w, h = float64(b.Dx()), float64(b.Dy())
	}
	s2d := m.Mul(vector.Scale(w/float64(b.Dx()), h/float64(b.Dy()))).
		Mul(vector.Translate(-float64(b.Min.X), -float64(b.Min.Y)))

	dst := p.dst
	var opts xdraw.Options
	if o.Clip != nil {
		mask := coverage(clipPath(o.Clip).Transform(p.base), dst.Bounds())
		if mask == nil {
			return
		}
		dst = dst.SubImage(mask.Rect).(*image.RGBA)
		opts.DstMask = mask
	}
	if a < 1 {
		opts.SrcMask = image.NewUniform(color.Alpha16{A: uint16(a * 0xffff)})
	}
	xdraw.BiLinear.Transform(dst, aff3(s2d), img, b, xdraw.Over, &opts)
}

// clipPath returns the clip outline in canvas coordinates.
func clipPath(c *scene.Clip) vector.Path {
	local := vector.RoundedRectPath(-c.Width/2, -c.Height/2, c.Width, c.Height, c.Radius)
	return local.Transform(vector.Translate(c.CX, c.CY).Mul(vector.RotateDeg(c.Angle)))
}
