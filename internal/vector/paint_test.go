/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

import "testing"

func TestParseColor(t *testing.T) {
	cases := map[string]Color{
		"#1C1C1E":         {0x1c, 0x1c, 0x1e, 255},
		"#fff":            White,
		"#00000080":       {0, 0, 0, 0x80},
		"rgba(0,0,0,0.4)": {0, 0, 0, 102},
		"rgb(255, 0, 0)":  {255, 0, 0, 255},
		"transparent":     Transparent,
	}
	for in, want := range cases {
		got, err := ParseColor(in)
		if err != nil {
			t.Fatalf("ParseColor(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseColor(%q) = %+v, want %+v", in, got, want)
		}
	}
	if _, err := ParseColor("#12"); err == nil {
		t.Fatalf("expected error for short hex")
	}
	if _, err := ParseColor("hsl(1,2,3)"); err == nil {
		t.Fatalf("expected error for unsupported syntax")
	}
}

func TestHexRoundTrip(t *testing.T) {
	c := Color{0x8b, 0x5c, 0xf6, 255}
	if c.Hex() != "#8b5cf6" {
		t.Fatalf("Hex = %s", c.Hex())
	}
	back, err := ParseColor(c.Hex())
	if err != nil || back != c {
		t.Fatalf("round trip failed: %+v %v", back, err)
	}
}

func TestVerticalGradientOffsets(t *testing.T) {
	p := VerticalGradient(2796, "#0077B6", "#00B4D8", "#90E0EF")
	if p.Linear == nil || len(p.Linear.Stops) != 3 {
		t.Fatalf("expected 3 stops: %+v", p)
	}
	if p.Linear.Y2 != 2796 || p.Linear.X1 != 0 || p.Linear.X2 != 0 {
		t.Fatalf("gradient should run vertically over the height: %+v", p.Linear)
	}
	if p.Linear.Stops[1].Offset != 0.5 || p.Linear.Stops[2].Offset != 1 {
		t.Fatalf("unexpected offsets: %+v", p.Linear.Stops)
	}
}
