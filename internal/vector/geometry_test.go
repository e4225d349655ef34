/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

import (
	"math"
	"testing"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestRectContainsAndInset(t *testing.T) {
	r := R(10, 20, 100, 50)
	if !r.Contains(Pt{10, 20}) || !r.Contains(Pt{110, 70}) {
		t.Fatalf("expected edge points to be contained")
	}
	in := r.Inset(5, 5)
	if in.X != 15 || in.Y != 25 || in.W != 90 || in.H != 40 {
		t.Fatalf("unexpected inset: %+v", in)
	}
	if c := r.Center(); c.X != 60 || c.Y != 45 {
		t.Fatalf("unexpected center: %+v", c)
	}
}

func TestAffineBasic(t *testing.T) {
	m := Translate(10, 5).Mul(Scale(2, 3))
	p := m.Apply(Pt{1, 1})
	if p.X != 12 || p.Y != 8 { // (1*2+10, 1*3+5)
		t.Fatalf("unexpected transform result: %+v", p)
	}
}

func TestAffineInvertRoundTrip(t *testing.T) {
	m := Translate(40, -7).Mul(RotateDeg(33)).Mul(Scale(1.5, 0.5))
	inv, ok := m.Invert()
	if !ok {
		t.Fatalf("expected invertible matrix")
	}
	p := Pt{12.5, -3}
	q := inv.Apply(m.Apply(p))
	if !near(p.X, q.X) || !near(p.Y, q.Y) {
		t.Fatalf("round trip mismatch: %+v vs %+v", p, q)
	}
	if _, ok := Scale(0, 1).Invert(); ok {
		t.Fatalf("singular matrix should not invert")
	}
}

func TestRotateDegIsClockwiseOnScreen(t *testing.T) {
	p := RotateDeg(90).Apply(Pt{1, 0})
	if !near(p.X, 0) || !near(p.Y, 1) {
		t.Fatalf("rotating +x by 90deg should point down (+y), got %+v", p)
	}
	if q := (Pt{1, 0}).RotateDeg(90); !near(q.X, p.X) || !near(q.Y, p.Y) {
		t.Fatalf("Pt.RotateDeg disagrees with RotateDeg: %+v vs %+v", q, p)
	}
}

func TestTransformRectBoundsRotated(t *testing.T) {
	b := RotateDeg(45).TransformRect(R(-1, -1, 2, 2))
	want := math.Sqrt2
	if !near(b.X, -want) || !near(b.W, 2*want) {
		t.Fatalf("unexpected rotated bounds: %+v", b)
	}
}

func TestFloatRound(t *testing.T) {
	if got := FloatRound(1.23456, 3); got != 1.235 {
		t.Fatalf("FloatRound = %v", got)
	}
}
