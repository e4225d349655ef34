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
	"image/draw"
	"log/slog"
	"math"

	"github.com/anthonynsimon/bild/blur"
	xdraw "golang.org/x/image/draw"

	"shotframe/internal/scene"
	"shotframe/internal/vector"
)

// shadowDownscale trades blur precision for speed; shadows are soft anyway.
const shadowDownscale = 4

// drawShadow paints a blurred, offset silhouette of o under it.
func (r *Renderer) drawShadow(p *pass, o *scene.Object, m vector.Affine2D, a float64) {
	sh := o.Shadow
	c, err := vector.ParseColor(sh.Color)
	if err != nil {
		r.log.Debug("skip shadow", slog.String("color", sh.Color), slog.Any("err", err))
		return
	}
	c = c.WithAlpha(a)
	if c.A == 0 {
		return
	}
	blurPx := sh.Blur * p.mult
	ox, oy := sh.OffsetX*p.mult, sh.OffsetY*p.mult
	b := m.TransformRect(vector.R(0, 0, o.Width, o.Height))
	pad := 2*blurPx + 2
	region := image.Rect(
		int(math.Floor(b.X+ox-pad)), int(math.Floor(b.Y+oy-pad)),
		int(math.Ceil(b.X+b.W+ox+pad)), int(math.Ceil(b.Y+b.H+oy+pad)),
	).Intersect(p.dst.Bounds())
	if region.Empty() {
		return
	}

	const ds = shadowDownscale
	sw := (region.Dx() + ds - 1) / ds
	shh := (region.Dy() + ds - 1) / ds
	toSmall := vector.Scale(1.0/ds, 1.0/ds).
		Mul(vector.Translate(ox-float64(region.Min.X), oy-float64(region.Min.Y)))
	small := &pass{
		dst:  image.NewRGBA(image.Rect(0, 0, sw, shh)),
		base: toSmall.Mul(p.base),
		mult: p.mult / ds,
	}
	r.draw(small, silhouette(o), toSmall.Mul(m), 1, false)

	soft := blur.Gaussian(small.dst, blurPx/ds/2)
	mask := image.NewRGBA(image.Rect(0, 0, region.Dx(), region.Dy()))
	xdraw.ApproxBiLinear.Scale(mask, mask.Bounds(), soft, soft.Bounds(), xdraw.Src, nil)
	draw.DrawMask(p.dst, region, image.NewUniform(c.NRGBA()), image.Point{}, mask, image.Point{}, draw.Over)
}

// silhouette returns o without its own shadow so the shadow pass does not recurse.
func silhouette(o *scene.Object) *scene.Object {
	cp := *o
	cp.Shadow = nil
	cp.Opacity = 1
	return &cp
}
