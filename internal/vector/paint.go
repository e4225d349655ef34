/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// Color is a non-premultiplied 8-bit RGBA color.
type Color struct{ R, G, B, A uint8 }

var (
	Black       = Color{0, 0, 0, 255}
	White       = Color{255, 255, 255, 255}
	Transparent = Color{0, 0, 0, 0}
)

// NRGBA converts to the standard library color type.
func (c Color) NRGBA() color.NRGBA { return color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A} }

// WithAlpha returns c with its alpha multiplied by a (0..1).
func (c Color) WithAlpha(a float64) Color {
	if a < 0 {
		a = 0
	}
	if a > 1 {
		a = 1
	}
	c.A = uint8(float64(c.A)*a + 0.5)
	return c
}

// Hex formats the color as #rrggbb, or #rrggbbaa when not opaque.
func (c Color) Hex() string {
	if c.A == 255 {
		return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
	}
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}

// ParseColor accepts #rgb, #rrggbb, #rrggbbaa, rgb(r,g,b), rgba(r,g,b,a) and
// the keywords black, white and transparent.
func ParseColor(s string) (Color, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "black":
		return Black, nil
	case "white":
		return White, nil
	case "transparent", "":
		return Transparent, nil
	}
	if strings.HasPrefix(s, "#") {
		return parseHex(s[1:])
	}
	if strings.HasPrefix(s, "rgb") {
		open := strings.IndexByte(s, '(')
		end := strings.LastIndexByte(s, ')')
		if open < 0 || end < open {
			return Color{}, fmt.Errorf("invalid color %q", s)
		}
		parts := strings.Split(s[open+1:end], ",")
		if len(parts) != 3 && len(parts) != 4 {
			return Color{}, fmt.Errorf("invalid color %q", s)
		}
		var v [3]uint8
		for i := 0; i < 3; i++ {
			n, err := strconv.Atoi(strings.TrimSpace(parts[i]))
			if err != nil || n < 0 || n > 255 {
				return Color{}, fmt.Errorf("invalid color component %q", parts[i])
			}
			v[i] = uint8(n)
		}
		c := Color{v[0], v[1], v[2], 255}
		if len(parts) == 4 {
			a, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64)
			if err != nil {
				return Color{}, fmt.Errorf("invalid alpha %q", parts[3])
			}
			c = c.WithAlpha(a)
		}
		return c, nil
	}
	return Color{}, fmt.Errorf("invalid color %q", s)
}

// MustColor is ParseColor for literals known to be valid.
func MustColor(s string) Color {
	c, err := ParseColor(s)
	if err != nil {
		panic(err)
	}
	return c
}

func parseHex(h string) (Color, error) {
	switch len(h) {
	case 3:
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	case 6, 8:
	default:
		return Color{}, fmt.Errorf("invalid hex color #%s", h)
	}
	n, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("invalid hex color #%s", h)
	}
	if len(h) == 6 {
		return Color{uint8(n >> 16), uint8(n >> 8), uint8(n), 255}, nil
	}
	return Color{uint8(n >> 24), uint8(n >> 16), uint8(n >> 8), uint8(n)}, nil
}

// GradientStop is a color at a relative offset along a gradient.
type GradientStop struct {
	Offset float64 `json:"offset"`
	Color  string  `json:"color"`
}

// LinearGradient runs from (X1,Y1) to (X2,Y2) in the owning object's local units.
type LinearGradient struct {
	X1    float64        `json:"x1"`
	Y1    float64        `json:"y1"`
	X2    float64        `json:"x2"`
	Y2    float64        `json:"y2"`
	Stops []GradientStop `json:"stops"`
}

// Paint is either a solid color or a linear gradient. The zero value paints nothing.
type Paint struct {
	Color  string          `json:"color,omitempty"`
	Linear *LinearGradient `json:"linear,omitempty"`
}

func Solid(c string) Paint { return Paint{Color: c} }

func (p Paint) IsZero() bool { return p.Color == "" && p.Linear == nil }

// VerticalGradient spreads colors evenly from y=0 to y=height.
func VerticalGradient(height float64, colors ...string) Paint {
	g := &LinearGradient{X1: 0, Y1: 0, X2: 0, Y2: height}
	n := len(colors)
	for i, c := range colors {
		off := 0.0
		if n > 1 {
			off = float64(i) / float64(n-1)
		}
		g.Stops = append(g.Stops, GradientStop{Offset: off, Color: c})
	}
	return Paint{Linear: g}
}

// Shadow is a blurred drop shadow drawn under an object.
type Shadow struct {
	Color   string  `json:"color"`
	Blur    float64 `json:"blur"`
	OffsetX float64 `json:"offsetX"`
	OffsetY float64 `json:"offsetY"`
}
