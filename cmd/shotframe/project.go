/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"shotframe/internal/compose"
	"shotframe/internal/devices"
	"shotframe/internal/export"
	"shotframe/internal/project"
	"shotframe/internal/render"
	"shotframe/internal/scene"
	"shotframe/internal/storage"
	"shotframe/internal/telemetry"
	"shotframe/internal/undo"
)

// openWorkspace opens dir with the config's editor options and records the
// handle for crash autosave. extra images are preloaded so intents that
// reference them apply without waiting on the loop.
func (c *cli) openWorkspace(ctx context.Context, dir string, extra ...string) (*storage.ProjectHandle, *project.Workspace, *undo.Manager, error) {
	opts, err := project.OptionsFromConfig(c.cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	ph, ws, err := storage.OpenWorkspace(ctx, dir, opts)
	if err != nil {
		return nil, nil, nil, err
	}
	c.ph, c.ws = ph, ws
	if len(extra) > 0 {
		if err := ws.Preload(ctx, extra...); err != nil {
			return nil, nil, nil, err
		}
	}
	return ph, ws, opts.History, nil
}

func (c *cli) closeWorkspace(ctx context.Context, ph *storage.ProjectHandle, ws *project.Workspace, m *undo.Manager) error {
	err := storage.CloseWorkspace(ctx, ph, ws, m)
	c.ph, c.ws = nil, nil
	_, _, edits := m.Stats()
	telemetry.Track(telemetry.Session{Platform: string(ws.Project().Platform), Screens: len(ws.Project().Screens), Edits: edits})
	return err
}

// screenIndex converts a 1-based flag value.
func screenIndex(p *project.Project, n int) (int, error) {
	if n < 1 || n > len(p.Screens) {
		return 0, fmt.Errorf("%w: %d (project has %d)", project.ErrScreenIndex, n, len(p.Screens))
	}
	return n - 1, nil
}

func newInitCmd(c *cli) *cobra.Command {
	var name, platform string
	cmd := &cobra.Command{
		Use:   "init <dir>",
		Short: "Create a new project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if platform == "" {
				platform = c.cfg.Editor.DefaultPlatform
			}
			pl := devices.Platform(strings.ToLower(platform))
			if pl != devices.IOS && pl != devices.Android {
				return fmt.Errorf("unknown platform %q (want ios or android)", platform)
			}
			dir := absDir(args[0])
			if _, err := os.Stat(filepath.Join(dir, storage.ManifestFileName)); err == nil {
				return fmt.Errorf("%s already holds a project", dir)
			}
			if name == "" {
				name = filepath.Base(dir)
			}
			ph, err := storage.InitProject(dir, project.New(name, pl))
			if err != nil {
				return err
			}
			c.log.InfoContext(cmd.Context(), "project created", slog.String("root", ph.Root), slog.String("platform", string(pl)))
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s project %q at %s\n", pl, name, ph.Root)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "project name (default is the folder name)")
	cmd.Flags().StringVar(&platform, "platform", "", "ios or android (default from config)")
	return cmd
}

type composeFlags struct {
	screen           int
	addScreen        bool
	duplicate        bool
	clear            bool
	background       string
	device           string
	color            string
	screenshot       string
	removeScreenshot bool
	texts            []string
	fontSize         float64
	fill             string
	shapes           []string
	shapeColor       string
	badges           []string
	badgeColor       string
	emojis           []string
	template         string
	canvasSize       string
	resetCanvasSize  bool
	selection        string
	props            []string
	dupSelection     bool
	flip             string
	lock             bool
	moveTo           []float64
	rotate           float64
	undo             int
	redo             int
}

func newComposeCmd(c *cli) *cobra.Command {
	var f composeFlags
	cmd := &cobra.Command{
		Use:   "compose <dir>",
		Short: "Edit a screen of a project",
		Long: `Applies edits to one screen, in this order: screen selection, clear,
canvas size, background, template, device, color, screenshot, text, shapes,
badges, emoji, object selection, property edits, duplicate, flip, lock,
move, rotate, undo, redo. Every edit is one undo step and the history is
kept with the project.

Object edits (--set, --duplicate-selection, --flip, --lock) act on the
selection: the object added last, or the one named by --select.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			dir := absDir(args[0])
			var extra []string
			if f.screenshot != "" {
				src, err := storage.ImportAsset(dir, absDir(f.screenshot))
				if err != nil {
					return err
				}
				f.screenshot = src
				extra = append(extra, src)
			}
			ph, ws, m, err := c.openWorkspace(ctx, dir, extra...)
			if err != nil {
				return err
			}
			if err := applyCompose(ctx, ws, f, cmd.Flags().Changed("rotate")); err != nil {
				return errors.Join(err, c.closeWorkspace(ctx, ph, ws, m))
			}
			s := ws.Session()
			idx, n := s.History().Manager().Position(s.History().Key())
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Screen %d/%d  device %s (%s)  history %d/%d\n",
				ws.Current()+1, len(ws.Project().Screens), s.DeviceID(), s.FrameColor(), idx+1, n)
			return c.closeWorkspace(ctx, ph, ws, m)
		},
	}
	fl := cmd.Flags()
	fl.IntVar(&f.screen, "screen", 0, "screen to edit, 1-based (default is the first)")
	fl.BoolVar(&f.addScreen, "add-screen", false, "append a new screen and edit it")
	fl.BoolVar(&f.duplicate, "duplicate", false, "duplicate the selected screen and edit the copy")
	fl.BoolVar(&f.clear, "clear", false, "reset the screen to the starter layout")
	fl.StringVar(&f.background, "background", "", "color, gradient name or two colors joined by '-'")
	fl.StringVar(&f.device, "device", "", "device id, or 'random'")
	fl.StringVar(&f.color, "color", "", "frame color: black or white")
	fl.StringVar(&f.screenshot, "screenshot", "", "image placed on the device screen")
	fl.BoolVar(&f.removeScreenshot, "remove-screenshot", false, "clear the device screen")
	fl.StringArrayVar(&f.texts, "text", nil, "add a headline (repeatable)")
	fl.Float64Var(&f.fontSize, "font-size", 0, "headline font size")
	fl.StringVar(&f.fill, "fill", "", "headline color")
	fl.StringArrayVar(&f.shapes, "shape", nil, "add a shape: rectangle, circle, star, heart or triangle (repeatable)")
	fl.StringVar(&f.shapeColor, "shape-color", "", "shape color")
	fl.StringArrayVar(&f.badges, "badge", nil, "add a badge label (repeatable)")
	fl.StringVar(&f.badgeColor, "badge-color", "#FF3B30", "badge background color")
	fl.StringArrayVar(&f.emojis, "emoji", nil, "add an emoji sticker (repeatable)")
	fl.StringVar(&f.template, "template", "", "apply a template (see 'shotframe templates')")
	fl.StringVar(&f.canvasSize, "canvas-size", "", "resize the canvas to WIDTHxHEIGHT")
	fl.BoolVar(&f.resetCanvasSize, "reset-canvas-size", false, "restore the platform's canvas size")
	fl.StringVar(&f.selection, "select", "", "select 'device', 'last' or 'none' before object edits")
	fl.StringArrayVar(&f.props, "set", nil, "set a property of the selection: name=value (repeatable)")
	fl.BoolVar(&f.dupSelection, "duplicate-selection", false, "copy the selected object")
	fl.StringVar(&f.flip, "flip", "", "flip the selection: h or v")
	fl.BoolVar(&f.lock, "lock", false, "toggle the lock of the selected object")
	fl.Float64SliceVar(&f.moveTo, "move", nil, "move the device to left,top")
	fl.Float64Var(&f.rotate, "rotate", 0, "rotate the device to degrees")
	fl.IntVar(&f.undo, "undo", 0, "undo n steps")
	fl.IntVar(&f.redo, "redo", 0, "redo n steps")
	return cmd
}

func applyCompose(ctx context.Context, ws *project.Workspace, f composeFlags, rotate bool) error {
	p := ws.Project()
	switch {
	case f.addScreen:
		i, err := ws.AddScreen()
		if err != nil {
			return err
		}
		if err := ws.SwitchScreen(i); err != nil {
			return err
		}
	case f.screen > 0:
		i, err := screenIndex(p, f.screen)
		if err != nil {
			return err
		}
		if err := ws.SwitchScreen(i); err != nil {
			return err
		}
	}
	if f.duplicate {
		i, err := ws.DuplicateScreen(ws.Current())
		if err != nil {
			return err
		}
		if err := ws.SwitchScreen(i); err != nil {
			return err
		}
	}
	s := ws.Session()
	var steps []func() error
	if f.clear {
		steps = append(steps, s.ClearCanvas)
	}
	switch {
	case f.resetCanvasSize:
		steps = append(steps, ws.ResetCanvasSize)
	case f.canvasSize != "":
		w, h, err := parseSize(f.canvasSize)
		if err != nil {
			return err
		}
		steps = append(steps, func() error { return ws.SetCanvasSize(w, h) })
	}
	if f.background != "" {
		steps = append(steps, func() error { return s.SetBackground(f.background) })
	}
	if f.template != "" {
		if _, err := compose.TemplateByID(f.template); err != nil {
			return err
		}
		steps = append(steps, func() error { return s.ApplyTemplate(f.template) })
	}
	color := s.FrameColor()
	if f.color != "" {
		color = devices.FrameColor(strings.ToLower(f.color))
		if color != devices.Black && color != devices.White {
			return fmt.Errorf("unknown frame color %q", f.color)
		}
	}
	switch {
	case f.device == "random":
		steps = append(steps, func() error {
			return s.AddRandomDevice(rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())), "")
		})
		if f.color != "" {
			steps = append(steps, func() error { return s.ChangeDeviceColor(color) })
		}
	case f.device != "":
		steps = append(steps, func() error { return s.AddDevice(f.device, color) })
	case f.color != "":
		steps = append(steps, func() error { return s.ChangeDeviceColor(color) })
	}
	if f.removeScreenshot {
		steps = append(steps, s.RemoveScreenshot)
	}
	if f.screenshot != "" {
		steps = append(steps, func() error { return s.AddScreenshot(f.screenshot) })
	}
	for _, t := range f.texts {
		steps = append(steps, func() error {
			return s.AddText(t, compose.TextOptions{FontSize: f.fontSize, Fill: f.fill})
		})
	}
	for _, k := range f.shapes {
		steps = append(steps, func() error { return s.AddShape(strings.ToLower(k), f.shapeColor) })
	}
	for _, b := range f.badges {
		steps = append(steps, func() error { return s.AddBadge(b, f.badgeColor) })
	}
	for _, e := range f.emojis {
		steps = append(steps, func() error { return s.AddEmoji(e) })
	}
	if f.selection != "" {
		steps = append(steps, func() error { return selectObject(s, f.selection) })
	}
	for _, kv := range f.props {
		name, val, ok := strings.Cut(kv, "=")
		if !ok {
			return fmt.Errorf("--set takes name=value, got %q", kv)
		}
		p, err := compose.ParseProperty(name)
		if err != nil {
			return err
		}
		steps = append(steps, func() error { return s.SetProperty(p, val) })
	}
	if f.dupSelection {
		steps = append(steps, s.DuplicateSelected)
	}
	switch strings.ToLower(f.flip) {
	case "":
	case "h", "horizontal":
		steps = append(steps, func() error { return s.Flip(true) })
	case "v", "vertical":
		steps = append(steps, func() error { return s.Flip(false) })
	default:
		return fmt.Errorf("--flip takes h or v, got %q", f.flip)
	}
	if f.lock {
		steps = append(steps, s.ToggleLock)
	}
	if len(f.moveTo) > 0 {
		if len(f.moveTo) != 2 {
			return fmt.Errorf("--move takes left,top")
		}
		steps = append(steps, func() error {
			return withFrame(s, func(o *scene.Object) error { return s.Move(o, f.moveTo[0], f.moveTo[1]) })
		})
	}
	if rotate {
		steps = append(steps, func() error { return withFrame(s, func(o *scene.Object) error { return s.Rotate(o, f.rotate) }) })
	}
	for range f.undo {
		steps = append(steps, s.Undo)
	}
	for range f.redo {
		steps = append(steps, s.Redo)
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
		if err := ws.Settle(ctx); err != nil {
			return err
		}
	}
	return nil
}

// selectObject selects the frame, the topmost selectable object or nothing.
func selectObject(s *compose.Session, what string) error {
	c := s.Canvas()
	switch strings.ToLower(what) {
	case "device":
		if !s.SelectDevice() {
			return errors.New("screen has no device frame")
		}
	case "last":
		objs := c.Objects()
		for i := len(objs) - 1; i >= 0; i-- {
			if s.Select(objs[i]) {
				return nil
			}
		}
		return errors.New("screen has no selectable object")
	case "none":
		c.DiscardActive()
	default:
		return fmt.Errorf("--select takes device, last or none, got %q", what)
	}
	return nil
}

// parseSize reads WIDTHxHEIGHT.
func parseSize(v string) (float64, float64, error) {
	ws, hs, ok := strings.Cut(strings.ToLower(v), "x")
	if ok {
		w, werr := strconv.ParseFloat(strings.TrimSpace(ws), 64)
		h, herr := strconv.ParseFloat(strings.TrimSpace(hs), 64)
		if werr == nil && herr == nil && w > 0 && h > 0 {
			return w, h, nil
		}
	}
	return 0, 0, fmt.Errorf("canvas size %q: want WIDTHxHEIGHT", v)
}

func withFrame(s *compose.Session, fn func(o *scene.Object) error) error {
	o := s.Frame()
	if o == nil {
		return errors.New("screen has no device frame")
	}
	return fn(o)
}

func newRenderCmd(c *cli) *cobra.Command {
	var (
		screen int
		scale  float64
		out    string
		format string
	)
	cmd := &cobra.Command{
		Use:   "render <dir>",
		Short: "Render one screen to an image file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ph, ws, m, err := c.openWorkspace(ctx, absDir(args[0]))
			if err != nil {
				return err
			}
			defer func() { _ = c.closeWorkspace(ctx, ph, ws, m) }()
			i, err := screenIndex(ws.Project(), screen)
			if err != nil {
				return err
			}
			if err := ws.Store(); err != nil {
				return err
			}
			if scale <= 0 {
				scale = 1
			}
			shots, err := export.Render(ctx, ws.Project(), render.New(ws.Images), []int{i}, scale)
			if err != nil {
				return err
			}
			f := export.Format(strings.ToLower(format))
			if out == "" {
				out = filepath.Join(ph.Root, "exports", export.ScreenFileName(i, int(scale), f))
			}
			if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
				return err
			}
			w, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := export.Encode(w, shots[0].Img, f, c.cfg.Export.Quality); err != nil {
				_ = w.Close()
				return err
			}
			if err := w.Close(); err != nil {
				return err
			}
			b := shots[0].Img.Bounds()
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%dx%d)\n", out, b.Dx(), b.Dy())
			return nil
		},
	}
	cmd.Flags().IntVar(&screen, "screen", 1, "screen to render, 1-based")
	cmd.Flags().Float64Var(&scale, "scale", 1, "pixel multiplier")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default is exports/ in the project)")
	cmd.Flags().StringVar(&format, "format", string(export.PNG), "png or jpg")
	return cmd
}

func newSearchCmd(c *cli) *cobra.Command {
	var limit, offset int
	cmd := &cobra.Command{
		Use:   "search <dir> <text>",
		Short: "Search the text of a project's screens",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := absDir(args[0])
			ph, err := storage.Open(dir)
			if err != nil {
				return err
			}
			if _, err := storage.DetectAndRebuildIndex(cmd.Context(), dir, ph.Project); err != nil {
				c.log.Warn("index check failed", slog.Any("err", err))
			}
			res, err := storage.Search(cmd.Context(), dir, storage.SearchQuery{Text: args[1], Limit: limit, Offset: offset})
			if err != nil {
				return err
			}
			printResults(cmd, res)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum results")
	cmd.Flags().IntVar(&offset, "offset", 0, "results to skip")
	return cmd
}

func printResults(cmd *cobra.Command, res []storage.SearchResult) {
	out := cmd.OutOrStdout()
	if len(res) == 0 {
		fmt.Fprintln(out, "No matches")
		return
	}
	for _, r := range res {
		fmt.Fprintf(out, "screen %d\t%s\n", r.Order+1, r.Snippet)
	}
}
