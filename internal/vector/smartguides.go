/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

import "math"

// Guide orientations and kinds.
const (
	Vertical   = "vertical"
	Horizontal = "horizontal"
	KindEdge   = "edge"
	KindCenter = "center"
)

// DefaultSnapThreshold applies when SnapOptions.Threshold is not positive.
const DefaultSnapThreshold = 6

// SnapOptions selects the features a dragged rectangle aligns to.
type SnapOptions struct {
	Threshold     float64 // canvas units
	SnapToEdges   bool
	SnapToCenters bool
}

// Anchor is a fixed rectangle the moving one can align to, such as the
// canvas or another object. Among candidates the lowest distance/Weight
// wins; a Weight below 1 counts as 1.
type Anchor struct {
	Rect   Rect
	Weight float64
}

// GuideLine is an alignment to draw while dragging. Orientation is Vertical
// or Horizontal, Kind is KindEdge or KindCenter. Position is the x of a
// vertical guide or the y of a horizontal one, rounded to 3 places; From and
// To span both aligned rectangles.
type GuideLine struct {
	Orientation string
	Kind        string
	Position    float64
	From        Pt
	To          Pt
}

// span is the extent of a rectangle on one axis.
type span struct{ lo, hi float64 }

func (s span) mid() float64 { return (s.lo + s.hi) / 2 }

func spanX(r Rect) span { return span{r.X, r.X + r.W} }
func spanY(r Rect) span { return span{r.Y, r.Y + r.H} }

// match is the best alignment on one axis.
type match struct {
	ok    bool
	delta float64 // added to the moving rectangle
	score float64
	at    float64
	kind  string
	cross span // anchor extent on the other axis
}

func (m *match) consider(from, to, threshold, weight float64, kind string, cross span) {
	d := to - from
	dist := math.Abs(d)
	if dist > threshold {
		return
	}
	score := dist / max(1, weight)
	if m.ok && score >= m.score {
		return
	}
	*m = match{ok: true, delta: d, score: score, at: to, kind: kind, cross: cross}
}

// snapAxis matches the moving span's edges against anchor edges (aligned
// and abutting) and its middle against anchor middles.
func snapAxis(mv span, anchors []Anchor, axis, cross func(Rect) span, opts SnapOptions) match {
	var m match
	for _, a := range anchors {
		as, ac := axis(a.Rect), cross(a.Rect)
		if opts.SnapToEdges {
			for _, edge := range [...]float64{as.lo, as.hi} {
				m.consider(mv.lo, edge, opts.Threshold, a.Weight, KindEdge, ac)
				m.consider(mv.hi, edge, opts.Threshold, a.Weight, KindEdge, ac)
			}
		}
		if opts.SnapToCenters {
			m.consider(mv.mid(), as.mid(), opts.Threshold, a.Weight, KindCenter, ac)
		}
	}
	return m
}

func (m match) guide(orientation string, mv span) GuideLine {
	lo, hi := min(mv.lo, m.cross.lo), max(mv.hi, m.cross.hi)
	at := FloatRound(m.at, 3)
	g := GuideLine{Orientation: orientation, Kind: m.kind, Position: at}
	if orientation == Vertical {
		g.From, g.To = Pt{at, lo}, Pt{at, hi}
	} else {
		g.From, g.To = Pt{lo, at}, Pt{hi, at}
	}
	return g
}

// ComputeSmartGuides snaps moving to the closest anchor feature within the
// threshold, independently on X and Y, and returns the guides to draw.
func ComputeSmartGuides(moving Rect, anchors []Anchor, opts SnapOptions) (Rect, []GuideLine) {
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultSnapThreshold
	}
	out := moving
	var guides []GuideLine
	if m := snapAxis(spanX(moving), anchors, spanX, spanY, opts); m.ok {
		out.X = FloatRound(moving.X+m.delta, 3)
		guides = append(guides, m.guide(Vertical, spanY(moving)))
	}
	if m := snapAxis(spanY(moving), anchors, spanY, spanX, opts); m.ok {
		out.Y = FloatRound(moving.Y+m.delta, 3)
		guides = append(guides, m.guide(Horizontal, spanX(moving)))
	}
	return out, guides
}
