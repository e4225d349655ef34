/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

// Abstractions for text measurement and line breaking.
// All measurement goes through Provider so tests can run on a fixed bitmap
// face while the renderer uses the bundled Go fonts.

import (
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// FontSpec describes a requested font.
type FontSpec struct {
	Family string // logical family name
	SizePt float32
	Weight int // 100..900
	Italic bool
}

// Bold reports whether the spec asks for a bold weight.
func (s FontSpec) Bold() bool { return s.Weight >= 600 }

// Metrics provides font metrics in pixels for the resolved face.
type Metrics struct {
	Ascent, Descent, LineGap float32
}

// Height is the natural line advance.
func (m Metrics) Height() float32 { return m.Ascent + m.Descent + m.LineGap }

// Span is a run of text with the same font/style.
type Span struct {
	Text string
	Font FontSpec
}

// Line is a single laid out line. Baseline is measured from the top of the box.
type Line struct {
	Spans    []Span
	Width    float32
	Ascent   float32
	Descent  float32
	Baseline float32
}

// Text concatenates the line's spans.
func (l Line) Text() string {
	var b strings.Builder
	for _, sp := range l.Spans {
		b.WriteString(sp.Text)
	}
	return b.String()
}

// TextBox is the result of laying out text into a box width.
type TextBox struct {
	Lines   []Line
	Width   float32
	Height  float32
	Metrics Metrics
}

// Provider maps FontSpec to a concrete font.Face.
type Provider interface {
	Resolve(FontSpec) (font.Face, Metrics)
}

// Layouter performs line-breaking and measurement.
type Layouter interface {
	Layout(spans []Span, maxWidth float32) (TextBox, error)
}

// BasicProvider uses x/image/basicfont Face7x13 for deterministic tests.
type BasicProvider struct{}

func (BasicProvider) Resolve(spec FontSpec) (font.Face, Metrics) {
	f := basicfont.Face7x13
	return f, metricsOf(f)
}

func metricsOf(f font.Face) Metrics {
	m := f.Metrics()
	return Metrics{
		Ascent:  fx(m.Ascent),
		Descent: fx(m.Descent),
		LineGap: fx(m.Height - m.Ascent - m.Descent),
	}
}

func fx(v fixed.Int26_6) float32 { return float32(v) / 64 }

// WordWrapLayouter breaks on spaces and explicit newlines; it does not
// perform shaping or hyphenation. A word wider than maxWidth gets a line of
// its own. LineSpacing multiplies the natural line advance (0 means 1).
type WordWrapLayouter struct {
	Provider    Provider
	LineSpacing float32
}

func NewWordWrap(provider Provider) *WordWrapLayouter { return &WordWrapLayouter{Provider: provider} }

func (l *WordWrapLayouter) Layout(spans []Span, maxWidth float32) (TextBox, error) {
	if l.Provider == nil {
		l.Provider = BasicProvider{}
	}
	spacing := l.LineSpacing
	if spacing <= 0 {
		spacing = 1
	}
	var lead FontSpec
	if len(spans) > 0 {
		lead = spans[0].Font
	}
	_, met := l.Provider.Resolve(lead)
	advanceY := met.Height() * spacing

	box := TextBox{Metrics: met}
	cur := Line{Ascent: met.Ascent, Descent: met.Descent}
	trailing := float32(0) // width of the trailing space run on cur
	addLine := func() {
		if trailing > 0 && len(cur.Spans) > 0 {
			cur.Spans = cur.Spans[:len(cur.Spans)-1]
			cur.Width -= trailing
		}
		cur.Baseline = float32(len(box.Lines))*advanceY + met.Ascent
		box.Lines = append(box.Lines, cur)
		if cur.Width > box.Width {
			box.Width = cur.Width
		}
		cur = Line{Ascent: met.Ascent, Descent: met.Descent}
		trailing = 0
	}
	for _, sp := range spans {
		if sp.Text == "" {
			continue
		}
		face, _ := l.Provider.Resolve(sp.Font)
		drawer := &font.Drawer{Face: face}
		start := 0
		for i := 0; i <= len(sp.Text); i++ {
			if i < len(sp.Text) && sp.Text[i] != ' ' && sp.Text[i] != '\n' {
				continue
			}
			word := sp.Text[start:i]
			var sep byte
			if i < len(sp.Text) {
				sep = sp.Text[i]
			}
			w := advance(drawer, word)
			if word != "" {
				if cur.Width-trailing > 0 && cur.Width+w > maxWidth && maxWidth > 0 {
					addLine()
				}
				cur.Spans = append(cur.Spans, Span{Text: word, Font: sp.Font})
				cur.Width += w
				trailing = 0
			}
			switch sep {
			case ' ':
				ws := advance(drawer, " ")
				cur.Spans = append(cur.Spans, Span{Text: " ", Font: sp.Font})
				cur.Width += ws
				trailing = ws
			case '\n':
				addLine()
			}
			start = i + 1
		}
	}
	if len(cur.Spans) > 0 || len(box.Lines) == 0 {
		addLine()
	}
	n := float32(len(box.Lines))
	box.Height = (n-1)*advanceY + met.Ascent + met.Descent
	return box, nil
}

func advance(d *font.Drawer, s string) float32 {
	return fx(d.MeasureString(s))
}

// Measure provides a quick way to measure text width/height without line-breaks.
func Measure(provider Provider, spans []Span) (w, h float32) {
	if provider == nil {
		provider = BasicProvider{}
	}
	_, met := provider.Resolve(FontSpec{})
	var width float32
	for _, sp := range spans {
		face, _ := provider.Resolve(sp.Font)
		d := &font.Drawer{Face: face}
		width += advance(d, sp.Text)
	}
	return width, met.Ascent + met.Descent
}
