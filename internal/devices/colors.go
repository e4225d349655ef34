/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package devices

// FrameColor selects the body finish of a frame.
type FrameColor string

const (
	Black FrameColor = "black"
	White FrameColor = "white"
)

// Palette is the set of fills a frame is drawn with.
type Palette struct {
	Frame  string
	Border string
	Screen string
}

var palettes = map[FrameColor]Palette{
	Black: {Frame: "#1C1C1E", Border: "#3A3A3C", Screen: "#2C2C2E"},
	White: {Frame: "#F5F5F7", Border: "#D1D1D6", Screen: "#1C1C1E"},
}

// Colors returns the palette for c; unknown colors get the black palette.
func Colors(c FrameColor) Palette {
	if p, ok := palettes[c]; ok {
		return p
	}
	return palettes[Black]
}

// Normalize maps unknown colors to Black.
func (c FrameColor) Normalize() FrameColor {
	if _, ok := palettes[c]; ok {
		return c
	}
	return Black
}
