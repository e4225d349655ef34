/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

import "testing"

func TestPathBounds(t *testing.T) {
	var p Path
	p.MoveTo(0, 0)
	p.LineTo(10, 0)
	p.LineTo(0, 10)
	p.Close()
	b := p.Bounds()
	if b.X != 0 || b.Y != 0 || b.W != 10 || b.H != 10 {
		t.Fatalf("unexpected bounds: %+v", b)
	}
	moved := p.Transform(Translate(5, 5))
	bb := moved.Bounds()
	if bb.X != 5 || bb.Y != 5 || bb.W != 10 || bb.H != 10 {
		t.Fatalf("unexpected transformed bounds: %+v", bb)
	}
}

func TestEmptyPathBounds(t *testing.T) {
	var p Path
	if b := p.Bounds(); b != (Rect{}) {
		t.Fatalf("expected zero rect, got %+v", b)
	}
}

func TestRoundedRectPathClampsRadius(t *testing.T) {
	p := RoundedRectPath(0, 0, 100, 40, 500)
	b := p.Bounds()
	if b.X != 0 || b.Y != 0 || b.W != 100 || b.H != 40 {
		t.Fatalf("rounded rect bounds should equal box: %+v", b)
	}
	if p.Cmds[0].Data[0] != 20 {
		t.Fatalf("radius should clamp to 20, path starts at %v", p.Cmds[0].Data[0])
	}
}

func TestReverseKeepsEndpoints(t *testing.T) {
	p := RoundedRectPath(0, 0, 50, 50, 10)
	r := p.Reverse()
	if len(r.Cmds) == 0 || r.Cmds[0].Op != MoveTo || r.Cmds[len(r.Cmds)-1].Op != Close {
		t.Fatalf("reversed path malformed: %+v", r.Cmds)
	}
	if rb, pb := r.Bounds(), p.Bounds(); rb != pb {
		t.Fatalf("bounds changed after reverse: %+v vs %+v", rb, pb)
	}
}

func TestStarPoints(t *testing.T) {
	pts := StarPoints(5, 80, 40)
	if len(pts) != 10 {
		t.Fatalf("expected 10 vertices, got %d", len(pts))
	}
	if !near(pts[0].X, 0) || !near(pts[0].Y, -80) {
		t.Fatalf("first tip should point up: %+v", pts[0])
	}
}
