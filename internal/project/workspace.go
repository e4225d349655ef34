/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package project

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"shotframe/internal/assets"
	"shotframe/internal/compose"
	"shotframe/internal/config"
	"shotframe/internal/devices"
	"shotframe/internal/loop"
	"shotframe/internal/render"
	"shotframe/internal/scene"
	"shotframe/internal/undo"
)

// WorkspaceOptions configures NewWorkspace.
type WorkspaceOptions struct {
	EditorOptions
	Catalog   *devices.Catalog
	History   *undo.Manager
	Snap      bool
	Threshold float64
	// Root resolves relative image sources such as assets/shot.png.
	Root string
}

// OptionsFromConfig maps the editor and devices sections of the user config.
func OptionsFromConfig(cfg config.AppConfig) (WorkspaceOptions, error) {
	opts := WorkspaceOptions{
		History:   undo.NewManager(undo.Config{MaxPerKey: cfg.Editor.HistoryCapacity}),
		Snap:      cfg.Editor.Snapping,
		Threshold: cfg.Editor.SnapThreshold,
	}
	opts.Color = devices.FrameColor(strings.ToLower(cfg.Editor.FrameColor)).Normalize()
	if f := strings.TrimSpace(cfg.Devices.CatalogFile); f != "" {
		c, err := devices.LoadOverlay(f)
		if err != nil {
			return opts, err
		}
		opts.Catalog = c
	}
	return opts, nil
}

// Workspace is an Editor wired to the default rasterizer, an image loader
// and a UI loop. Async image completions and placement frames run on Loop.
type Workspace struct {
	*Editor
	Canvas *scene.Canvas
	Images *assets.Loader
	Loop   *loop.Loop
}

// NewWorkspace opens screen 0 of p.
func NewWorkspace(p *Project, opts WorkspaceOptions) (*Workspace, error) {
	if p == nil {
		return nil, fmt.Errorf("project is nil")
	}
	lp := loop.New()
	imgs := assets.NewLoader(lp)
	imgs.SetRoot(opts.Root)
	c := scene.NewCanvas(p.Width, p.Height)
	c.SetRenderer(render.New(imgs))
	s := compose.New(c, compose.Options{
		Catalog:   opts.Catalog,
		History:   opts.History,
		Images:    imgs,
		Frames:    lp,
		Snap:      opts.Snap,
		Threshold: opts.Threshold,
	})
	e, err := NewEditor(p, s, opts.EditorOptions)
	if err != nil {
		return nil, err
	}
	return &Workspace{Editor: e, Canvas: c, Images: imgs, Loop: lp}, nil
}

// Settle runs loop work until nothing is queued or ctx is done. Loads still
// in flight are not waited for; preload sources to make intents synchronous.
func (w *Workspace) Settle(ctx context.Context) error {
	for w.Loop.Tick() > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}

// Preload caches every image referenced by the project's stored scenes so
// that opening a screen places its screenshot without waiting.
func (w *Workspace) Preload(ctx context.Context, extra ...string) error {
	return w.Images.Preload(ctx, append(Sources(w.p), extra...))
}

// Sources lists the image sources referenced by the stored scenes of p,
// without duplicates. Scenes that fail to decode are skipped.
func Sources(p *Project) []string {
	var srcs []string
	for _, sc := range p.Screens {
		if len(sc.CanvasData) == 0 {
			continue
		}
		objs, _, _, err := scene.Decode(sc.CanvasData)
		if err != nil {
			continue
		}
		srcs = appendSources(srcs, objs)
	}
	slices.Sort(srcs)
	return slices.Compact(srcs)
}

func appendSources(dst []string, objs []*scene.Object) []string {
	for _, o := range objs {
		if o.Src != "" {
			dst = append(dst, o.Src)
		}
		dst = appendSources(dst, o.Children)
	}
	return dst
}
