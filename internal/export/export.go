/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export writes composed screens as store-ready images: single
// PNG/JPEG files, a ZIP of all screens, a PDF contact sheet and store-size
// variants. Screens are rasterized from their stored scenes in parallel.
package export

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"regexp"
	"strings"

	"golang.org/x/image/draw"
)

// Format is an output image encoding.
type Format string

const (
	PNG  Format = "png"
	JPEG Format = "jpg"
)

// DefaultQuality is the JPEG quality used when Options.Quality is zero.
const DefaultQuality = 95

var (
	ErrFormat    = errors.New("export: unknown format")
	ErrScale     = errors.New("export: scale must be 1, 2 or 3")
	ErrNoScreens = errors.New("export: no screen to export")
)

// Options select what is exported and how it is encoded.
type Options struct {
	Format  Format
	Scale   int // 1, 2 or 3; 0 means 1
	Quality int // JPEG only, 1..100; 0 means DefaultQuality
	// Screens are zero-based indexes; empty means all screens.
	Screens []int
}

// normalized returns o with defaults applied.
func (o Options) normalized() (Options, error) {
	switch Format(strings.ToLower(string(o.Format))) {
	case "", PNG:
		o.Format = PNG
	case JPEG, "jpeg":
		o.Format = JPEG
	default:
		return o, fmt.Errorf("%w: %q", ErrFormat, o.Format)
	}
	if o.Scale == 0 {
		o.Scale = 1
	}
	if o.Scale < 1 || o.Scale > 3 {
		return o, fmt.Errorf("%w: %d", ErrScale, o.Scale)
	}
	if o.Quality <= 0 {
		o.Quality = DefaultQuality
	}
	o.Quality = min(o.Quality, 100)
	return o, nil
}

var (
	unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9\s_-]`)
	spaces      = regexp.MustCompile(`\s+`)
)

// SanitizeFileName keeps letters, digits, '-' and '_', turns whitespace runs
// into '_', lowercases and truncates to 50 characters. A name with nothing
// left becomes "project".
func SanitizeFileName(name string) string {
	s := unsafeChars.ReplaceAllString(name, "")
	s = spaces.ReplaceAllString(s, "_")
	s = strings.ToLower(s)
	if len(s) > 50 {
		s = s[:50]
	}
	if s == "" || strings.Trim(s, "_") == "" {
		return "project"
	}
	return s
}

// ScreenFileName names screen i (zero-based) as screen_01_2x.png.
func ScreenFileName(i, scale int, f Format) string {
	return fmt.Sprintf("screen_%02d_%dx.%s", i+1, scale, f)
}

// Encode writes img in format f. JPEG output is flattened onto white.
func Encode(w io.Writer, img image.Image, f Format, quality int) error {
	switch f {
	case PNG:
		if err := png.Encode(w, img); err != nil {
			return fmt.Errorf("encode png: %w", err)
		}
	case JPEG:
		b := img.Bounds()
		flat := image.NewRGBA(b)
		draw.Draw(flat, b, image.NewUniform(color.White), image.Point{}, draw.Src)
		draw.Draw(flat, b, img, b.Min, draw.Over)
		if quality <= 0 {
			quality = DefaultQuality
		}
		if err := jpeg.Encode(w, flat, &jpeg.Options{Quality: quality}); err != nil {
			return fmt.Errorf("encode jpeg: %w", err)
		}
	default:
		return fmt.Errorf("%w: %q", ErrFormat, f)
	}
	return nil
}
