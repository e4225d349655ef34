/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/anthonynsimon/bild/transform"

	"shotframe/internal/devices"
	"shotframe/internal/project"
	"shotframe/internal/telemetry"
)

// Store is an app store a preset targets.
type Store string

const (
	AppStore  Store = "appstore"
	PlayStore Store = "playstore"
)

// Preset is a required store screenshot size in pixels.
type Preset struct {
	ID     string
	Store  Store
	Name   string
	Width  int
	Height int
}

// Presets lists the store sizes in display order.
var Presets = []Preset{
	{ID: "iphone-6.7", Store: AppStore, Name: `6.7" Display`, Width: 1290, Height: 2796},
	{ID: "iphone-6.5", Store: AppStore, Name: `6.5" Display`, Width: 1284, Height: 2778},
	{ID: "iphone-6.1", Store: AppStore, Name: `6.1" Display`, Width: 1179, Height: 2556},
	{ID: "iphone-5.5", Store: AppStore, Name: `5.5" Display`, Width: 1242, Height: 2208},
	{ID: "ipad-12.9", Store: AppStore, Name: `12.9" iPad Pro`, Width: 2048, Height: 2732},
	{ID: "ipad-11", Store: AppStore, Name: `11" iPad Pro`, Width: 1668, Height: 2388},
	{ID: "phone", Store: PlayStore, Name: "Phone", Width: 1080, Height: 1920},
	{ID: "phone-alt", Store: PlayStore, Name: "Phone (Alt)", Width: 1242, Height: 2208},
	{ID: "tablet", Store: PlayStore, Name: `Tablet 7"`, Width: 1200, Height: 1920},
	{ID: "tablet-10", Store: PlayStore, Name: `Tablet 10"`, Width: 1600, Height: 2560},
}

// ErrPreset is returned for an unknown preset id.
var ErrPreset = errors.New("export: unknown preset")

// PresetByID looks up a preset.
func PresetByID(id string) (Preset, error) {
	i := slices.IndexFunc(Presets, func(p Preset) bool { return p.ID == id })
	if i < 0 {
		return Preset{}, fmt.Errorf("%w: %q", ErrPreset, id)
	}
	return Presets[i], nil
}

// PresetsFor returns the presets of one store.
func PresetsFor(s Store) []Preset {
	var out []Preset
	for _, p := range Presets {
		if p.Store == s {
			out = append(out, p)
		}
	}
	return out
}

// Fit scales img to cover w×h and crops the centered w×h region.
func Fit(img image.Image, w, h int) *image.RGBA {
	b := img.Bounds()
	k := max(float64(w)/float64(b.Dx()), float64(h)/float64(b.Dy()))
	sw := max(w, int(math.Round(float64(b.Dx())*k)))
	sh := max(h, int(math.Round(float64(b.Dy())*k)))
	scaled := transform.Resize(img, sw, sh, transform.Linear)
	x0, y0 := (sw-w)/2, (sh-h)/2
	return transform.Crop(scaled, image.Rect(x0, y0, x0+w, y0+h))
}

// ForPreset renders the selected screens sized for preset into
// outDir/<preset id>/ and returns the written paths. Screens are rendered at
// the smallest integer multiplier covering the preset and then downscaled.
func ForPreset(ctx context.Context, p *project.Project, r Renderer, preset Preset, opt Options, outDir string) ([]string, error) {
	opt, err := opt.normalized()
	if err != nil {
		return nil, err
	}
	k := max(float64(preset.Width)/p.Width, float64(preset.Height)/p.Height)
	shots, err := Render(ctx, p, r, opt.Screens, max(1, math.Ceil(k)))
	if err != nil {
		return nil, err
	}
	dir := filepath.Join(outDir, preset.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure out dir: %w", err)
	}
	var paths []string
	for _, s := range shots {
		img := Fit(s.Img, preset.Width, preset.Height)
		var buf bytes.Buffer
		if err := Encode(&buf, img, opt.Format, opt.Quality); err != nil {
			return paths, err
		}
		path := filepath.Join(dir, fmt.Sprintf("screen_%02d.%s", s.Index+1, opt.Format))
		if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
			return paths, fmt.Errorf("write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// Kind is one batch output.
type Kind string

const (
	KindFiles  Kind = "files"
	KindZIP    Kind = "zip"
	KindPDF    Kind = "pdf"
	KindPreset Kind = "preset"
)

// BatchOptions controls Batch.
//
// Path semantics: OutDir defaults to <project>/exports when Root is set.
// Files land in OutDir/<scale>x/, the archive and the contact sheet in OutDir,
// presets in OutDir/<preset id>/.
type BatchOptions struct {
	Options
	Kinds   []Kind   // empty means files
	Presets []string // preset ids for KindPreset; empty means all presets of the project platform's store
	Root    string
	OutDir  string
}

// Batch runs several exports of the same project and returns every written path.
func Batch(ctx context.Context, p *project.Project, r Renderer, opt BatchOptions) ([]string, error) {
	if p == nil {
		return nil, errors.New("export: project is nil")
	}
	out := opt.OutDir
	if out == "" {
		if opt.Root == "" {
			return nil, errors.New("export: output directory is required")
		}
		out = filepath.Join(opt.Root, "exports")
	} else if !filepath.IsAbs(out) && opt.Root != "" {
		out = filepath.Join(opt.Root, "exports", out)
	}
	base, err := opt.Options.normalized()
	if err != nil {
		return nil, err
	}
	kinds := opt.Kinds
	if len(kinds) == 0 {
		kinds = []Kind{KindFiles}
	}
	var paths []string
	for _, k := range kinds {
		start := time.Now()
		got, err := runKind(ctx, p, r, Kind(strings.ToLower(string(k))), base, opt.Presets, out)
		ev := telemetry.Export{Kind: string(k), Format: string(base.Format), Scale: base.Scale, Screens: len(got), Took: time.Since(start)}
		if err != nil {
			ev.Failed = true
			telemetry.Track(ev)
			return paths, fmt.Errorf("%s export: %w", k, err)
		}
		telemetry.Track(ev)
		paths = append(paths, got...)
	}
	return paths, nil
}

func runKind(ctx context.Context, p *project.Project, r Renderer, k Kind, opt Options, presets []string, out string) ([]string, error) {
	switch k {
	case KindFiles:
		return Files(ctx, p, r, opt, filepath.Join(out, fmt.Sprintf("%dx", opt.Scale)))
	case KindZIP:
		path, err := ZIP(ctx, p, r, opt, filepath.Join(out, ZIPName(p.Name)))
		if err != nil {
			return nil, err
		}
		return []string{path}, nil
	case KindPDF:
		path := filepath.Join(out, SanitizeFileName(p.Name)+"_contact_sheet.pdf")
		if err := ContactSheet(ctx, p, r, path, SheetOptions{Screens: opt.Screens}); err != nil {
			return nil, err
		}
		return []string{path}, nil
	case KindPreset:
		list, err := resolvePresets(p, presets)
		if err != nil {
			return nil, err
		}
		var paths []string
		for _, pr := range list {
			got, err := ForPreset(ctx, p, r, pr, opt, out)
			paths = append(paths, got...)
			if err != nil {
				return paths, err
			}
		}
		return paths, nil
	default:
		return nil, fmt.Errorf("unknown kind %q", k)
	}
}

func resolvePresets(p *project.Project, ids []string) ([]Preset, error) {
	if len(ids) == 0 {
		if p.Platform == devices.Android {
			return PresetsFor(PlayStore), nil
		}
		return PresetsFor(AppStore), nil
	}
	out := make([]Preset, 0, len(ids))
	for _, id := range ids {
		pr, err := PresetByID(strings.TrimSpace(id))
		if err != nil {
			return nil, err
		}
		out = append(out, pr)
	}
	return out, nil
}
