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
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"

	applog "shotframe/internal/log"
	"shotframe/internal/project"
	"shotframe/internal/scene"
)

// Renderer rasterizes a decoded scene; *render.Renderer satisfies it and is
// safe for concurrent use.
type Renderer interface {
	Render(width, height float64, objs []*scene.Object, multiplier float64) (*image.RGBA, error)
}

// Shot is one rendered screen.
type Shot struct {
	Index int // zero-based screen index
	Img   *image.RGBA
}

// File is one encoded screen.
type File struct {
	Index int
	Name  string
	Data  []byte
}

// screens resolves the requested indexes. Screens never opened have no scene
// and are skipped.
func screens(p *project.Project, want []int) ([]int, error) {
	if p == nil {
		return nil, fmt.Errorf("export: project is nil")
	}
	if len(want) == 0 {
		want = make([]int, len(p.Screens))
		for i := range want {
			want[i] = i
		}
	}
	l := applog.WithComponent("export")
	var out []int
	for _, i := range want {
		if i < 0 || i >= len(p.Screens) {
			return nil, fmt.Errorf("%w: %d", project.ErrScreenIndex, i+1)
		}
		if len(p.Screens[i].CanvasData) == 0 {
			l.Warn("skipping screen never opened", slog.Int("screen", i+1))
			continue
		}
		if !slices.Contains(out, i) {
			out = append(out, i)
		}
	}
	if len(out) == 0 {
		return nil, ErrNoScreens
	}
	return out, nil
}

// Render rasterizes the selected screens of p at multiplier, in parallel.
// Results are ordered by screen index.
func Render(ctx context.Context, p *project.Project, r Renderer, which []int, multiplier float64) ([]Shot, error) {
	idx, err := screens(p, which)
	if err != nil {
		return nil, err
	}
	out := make([]Shot, len(idx))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for k, i := range idx {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			img, err := renderScreen(p, r, i, multiplier)
			if err != nil {
				return err
			}
			out[k] = Shot{Index: i, Img: img}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func renderScreen(p *project.Project, r Renderer, i int, multiplier float64) (*image.RGBA, error) {
	objs, w, h, err := scene.Decode(p.Screens[i].CanvasData)
	if err != nil {
		return nil, fmt.Errorf("screen %d: %w", i+1, err)
	}
	if w <= 0 || h <= 0 {
		w, h = p.Width, p.Height
	}
	img, err := r.Render(w, h, objs, multiplier)
	if err != nil {
		return nil, fmt.Errorf("screen %d: %w", i+1, err)
	}
	return img, nil
}

// Encoded renders and encodes the screens selected by opt.
func Encoded(ctx context.Context, p *project.Project, r Renderer, opt Options) ([]File, error) {
	opt, err := opt.normalized()
	if err != nil {
		return nil, err
	}
	shots, err := Render(ctx, p, r, opt.Screens, float64(opt.Scale))
	if err != nil {
		return nil, err
	}
	files := make([]File, len(shots))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for k, s := range shots {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			var buf bytes.Buffer
			if err := Encode(&buf, s.Img, opt.Format, opt.Quality); err != nil {
				return err
			}
			files[k] = File{Index: s.Index, Name: ScreenFileName(s.Index, opt.Scale, opt.Format), Data: buf.Bytes()}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}

// Files writes the selected screens as separate images into outDir and
// returns their paths.
func Files(ctx context.Context, p *project.Project, r Renderer, opt Options, outDir string) ([]string, error) {
	files, err := Encoded(ctx, p, r, opt)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure out dir: %w", err)
	}
	paths := make([]string, 0, len(files))
	for _, f := range files {
		path := filepath.Join(outDir, f.Name)
		if err := os.WriteFile(path, f.Data, 0o644); err != nil {
			return paths, fmt.Errorf("write %s: %w", f.Name, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
