/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

import "math"

// Path commands and shapes.

type PathOp uint8

const (
	MoveTo PathOp = iota
	LineTo
	QuadTo  // quadratic bezier (cx, cy, x, y)
	CubicTo // cubic bezier (cx1, cy1, cx2, cy2, x, y)
	Close
)

type PathCmd struct {
	Op   PathOp     `json:"op"`
	Data [6]float64 `json:"d"` // enough for cubic; unused slots are zero
}

type Path struct {
	Cmds []PathCmd `json:"cmds"`
}

// kappa is the control point distance for approximating a quarter circle with a cubic.
const kappa = 0.5522847498

func (p *Path) MoveTo(x, y float64) {
	p.Cmds = append(p.Cmds, PathCmd{Op: MoveTo, Data: [6]float64{x, y}})
}
func (p *Path) LineTo(x, y float64) {
	p.Cmds = append(p.Cmds, PathCmd{Op: LineTo, Data: [6]float64{x, y}})
}
func (p *Path) QuadTo(cx, cy, x, y float64) {
	p.Cmds = append(p.Cmds, PathCmd{Op: QuadTo, Data: [6]float64{cx, cy, x, y}})
}
func (p *Path) CubicTo(cx1, cy1, cx2, cy2, x, y float64) {
	p.Cmds = append(p.Cmds, PathCmd{Op: CubicTo, Data: [6]float64{cx1, cy1, cx2, cy2, x, y}})
}
func (p *Path) Close() { p.Cmds = append(p.Cmds, PathCmd{Op: Close}) }

// Transform returns a copy of the path with every point mapped through m.
func (p Path) Transform(m Affine2D) Path {
	out := Path{Cmds: make([]PathCmd, len(p.Cmds))}
	for i, c := range p.Cmds {
		n := 0
		switch c.Op {
		case MoveTo, LineTo:
			n = 1
		case QuadTo:
			n = 2
		case CubicTo:
			n = 3
		}
		for k := 0; k < n; k++ {
			q := m.Apply(Pt{c.Data[2*k], c.Data[2*k+1]})
			c.Data[2*k], c.Data[2*k+1] = q.X, q.Y
		}
		out.Cmds[i] = c
	}
	return out
}

// Reverse returns a path tracing the same closed subpaths in opposite direction.
// Only MoveTo/LineTo/CubicTo/Close paths are supported; quads are promoted to cubics.
func (p Path) Reverse() Path {
	type seg struct {
		op     PathOp
		c1, c2 Pt
		from   Pt
		to     Pt
	}
	var out Path
	var subs [][]seg
	var cur []seg
	var pos, start Pt
	flush := func() {
		if len(cur) > 0 {
			subs = append(subs, cur)
			cur = nil
		}
	}
	for _, c := range p.Cmds {
		switch c.Op {
		case MoveTo:
			flush()
			pos = Pt{c.Data[0], c.Data[1]}
			start = pos
		case LineTo:
			to := Pt{c.Data[0], c.Data[1]}
			cur = append(cur, seg{op: LineTo, from: pos, to: to})
			pos = to
		case QuadTo:
			q := Pt{c.Data[0], c.Data[1]}
			to := Pt{c.Data[2], c.Data[3]}
			c1 := pos.Add(q.Sub(pos).Mul(2.0 / 3))
			c2 := to.Add(q.Sub(to).Mul(2.0 / 3))
			cur = append(cur, seg{op: CubicTo, c1: c1, c2: c2, from: pos, to: to})
			pos = to
		case CubicTo:
			to := Pt{c.Data[4], c.Data[5]}
			cur = append(cur, seg{op: CubicTo, c1: Pt{c.Data[0], c.Data[1]}, c2: Pt{c.Data[2], c.Data[3]}, from: pos, to: to})
			pos = to
		case Close:
			if pos != start {
				cur = append(cur, seg{op: LineTo, from: pos, to: start})
			}
			pos = start
		}
	}
	flush()
	for _, s := range subs {
		last := s[len(s)-1]
		out.MoveTo(last.to.X, last.to.Y)
		for i := len(s) - 1; i >= 0; i-- {
			g := s[i]
			if g.op == CubicTo {
				out.CubicTo(g.c2.X, g.c2.Y, g.c1.X, g.c1.Y, g.from.X, g.from.Y)
			} else {
				out.LineTo(g.from.X, g.from.Y)
			}
		}
		out.Close()
	}
	return out
}

// Append adds all commands of o to p.
func (p *Path) Append(o Path) { p.Cmds = append(p.Cmds, o.Cmds...) }

// RoundedRectPath builds a closed rounded rectangle. r is clamped to half the
// shorter side.
func RoundedRectPath(x, y, w, h, r float64) Path {
	var p Path
	r = math.Max(0, math.Min(r, math.Min(w, h)/2))
	if r == 0 {
		p.MoveTo(x, y)
		p.LineTo(x+w, y)
		p.LineTo(x+w, y+h)
		p.LineTo(x, y+h)
		p.Close()
		return p
	}
	k := r * kappa
	p.MoveTo(x+r, y)
	p.LineTo(x+w-r, y)
	p.CubicTo(x+w-r+k, y, x+w, y+r-k, x+w, y+r)
	p.LineTo(x+w, y+h-r)
	p.CubicTo(x+w, y+h-r+k, x+w-r+k, y+h, x+w-r, y+h)
	p.LineTo(x+r, y+h)
	p.CubicTo(x+r-k, y+h, x, y+h-r+k, x, y+h-r)
	p.LineTo(x, y+r)
	p.CubicTo(x, y+r-k, x+r-k, y, x+r, y)
	p.Close()
	return p
}

// EllipsePath builds a closed ellipse inscribed in the given box.
func EllipsePath(x, y, w, h float64) Path {
	var p Path
	rx, ry := w/2, h/2
	cx, cy := x+rx, y+ry
	kx, ky := rx*kappa, ry*kappa
	p.MoveTo(cx+rx, cy)
	p.CubicTo(cx+rx, cy+ky, cx+kx, cy+ry, cx, cy+ry)
	p.CubicTo(cx-kx, cy+ry, cx-rx, cy+ky, cx-rx, cy)
	p.CubicTo(cx-rx, cy-ky, cx-kx, cy-ry, cx, cy-ry)
	p.CubicTo(cx+kx, cy-ry, cx+rx, cy-ky, cx+rx, cy)
	p.Close()
	return p
}

// PolygonPath builds a closed polygon through pts.
func PolygonPath(pts []Pt) Path {
	var p Path
	for i, q := range pts {
		if i == 0 {
			p.MoveTo(q.X, q.Y)
		} else {
			p.LineTo(q.X, q.Y)
		}
	}
	if len(pts) > 0 {
		p.Close()
	}
	return p
}

// StarPoints returns the vertices of a star with the given number of tips,
// alternating outer and inner radius, first tip pointing up.
func StarPoints(tips int, outer, inner float64) []Pt {
	n := tips * 2
	pts := make([]Pt, 0, n)
	for i := 0; i < n; i++ {
		r := outer
		if i%2 == 1 {
			r = inner
		}
		a := float64(i)*math.Pi/float64(tips) - math.Pi/2
		pts = append(pts, Pt{r * math.Cos(a), r * math.Sin(a)})
	}
	return pts
}

// Bounds returns an axis-aligned bounding box of the path using a simple
// approximation by considering control points.
func (p *Path) Bounds() Rect {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	add := func(x, y float64) {
		minX, maxX = math.Min(minX, x), math.Max(maxX, x)
		minY, maxY = math.Min(minY, y), math.Max(maxY, y)
	}
	for _, c := range p.Cmds {
		switch c.Op {
		case MoveTo, LineTo:
			add(c.Data[0], c.Data[1])
		case QuadTo:
			add(c.Data[0], c.Data[1])
			add(c.Data[2], c.Data[3])
		case CubicTo:
			add(c.Data[0], c.Data[1])
			add(c.Data[2], c.Data[3])
			add(c.Data[4], c.Data[5])
		case Close:
			// no-op for bounds
		}
	}
	if minX > maxX || minY > maxY {
		return Rect{}
	}
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}
