//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"shotframe/internal/assets"
	"shotframe/internal/compose"
	"shotframe/internal/config"
	"shotframe/internal/crash"
	"shotframe/internal/devices"
	"shotframe/internal/export"
	applog "shotframe/internal/log"
	"shotframe/internal/project"
	"shotframe/internal/render"
	"shotframe/internal/scene"
	"shotframe/internal/storage"
	"shotframe/internal/undo"
	"shotframe/internal/vector"
	"shotframe/internal/version"
)

// previewScale is the raster multiplier of the on-screen canvas.
const previewScale = 0.35

// Run starts the desktop editor. projectDir, when set, is opened immediately;
// otherwise a folder picker is shown.
func Run(projectDir string) error {
	cfg, _, err := config.Load()
	if err != nil {
		applog.L().Warn("config not loaded; using defaults", slog.Any("err", err))
	}
	applog.Init(applog.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format, AddSource: cfg.Logging.Source, File: cfg.Logging.File})
	l := applog.WithComponent("ui")
	l.Info("starting UI", slog.String("version", version.String()))

	a := app.NewWithID("dev.shotframe")
	v := &editorView{cfg: cfg, log: l, app: a, win: a.NewWindow("shotframe")}
	defer crash.RecoverLazy(v.crashTarget)

	prefs := a.Preferences()
	v.win.Resize(fyne.NewSize(
		float32(max(prefs.IntWithFallback("window.width", 1280), 900)),
		float32(max(prefs.IntWithFallback("window.height", 860), 600)),
	))
	v.build()
	v.win.SetCloseIntercept(v.close)

	if projectDir != "" {
		if err := v.open(projectDir); err != nil {
			dialog.ShowError(err, v.win)
		}
	} else {
		v.win.Show()
		v.pickProject()
	}
	v.win.ShowAndRun()
	return nil
}

type editorView struct {
	cfg config.AppConfig
	log *slog.Logger
	app fyne.App
	win fyne.Window

	ph      *storage.ProjectHandle
	ws      *project.Workspace
	history *undo.Manager
	stop    context.CancelFunc

	status  *widget.Label
	screens *widget.List
	view    *ScreenCanvas
	device  *widget.Select
	color   *widget.RadioGroup

	dragObj           *scene.Object
	dragLeft, dragTop float64
	syncing           bool
}

func (v *editorView) crashTarget() (*storage.ProjectHandle, func() error) {
	if v.ws == nil {
		return v.ph, nil
	}
	return v.ph, v.ws.Store
}

func (v *editorView) session() *compose.Session {
	if v.ws == nil {
		return nil
	}
	return v.ws.Session()
}

// act runs an intent against the live session and refreshes the view.
func (v *editorView) act(name string, fn func(s *compose.Session) error) {
	s := v.session()
	if s == nil {
		return
	}
	if err := fn(s); err != nil {
		v.log.Warn("intent failed", slog.String("intent", name), slog.Any("err", err))
		if errors.Is(err, compose.ErrBusy) {
			v.status.SetText("Busy, try again")
			return
		}
		dialog.ShowError(err, v.win)
	}
	v.refresh()
}

func (v *editorView) build() {
	v.status = widget.NewLabel("No project open")
	v.view = NewScreenCanvas()
	v.view.OnTap = v.tap
	v.view.OnDrag = v.drag
	v.view.OnDragEnd = v.dragEnd

	v.screens = widget.NewList(
		func() int {
			if v.ws == nil {
				return 0
			}
			return len(v.ws.Project().Screens)
		},
		func() fyne.CanvasObject {
			img := canvas.NewImageFromImage(nil)
			img.FillMode = canvas.ImageFillContain
			img.SetMinSize(fyne.NewSize(40, 80))
			return container.NewHBox(img, widget.NewLabel(""))
		},
		func(id widget.ListItemID, o fyne.CanvasObject) {
			row := o.(*fyne.Container)
			row.Objects[1].(*widget.Label).SetText(fmt.Sprintf("Screen %d", id+1))
			img := row.Objects[0].(*canvas.Image)
			img.Image = v.thumbnail(id)
			img.Refresh()
		},
	)
	v.screens.OnSelected = func(id widget.ListItemID) {
		if v.ws == nil || v.syncing || id == v.ws.Current() {
			return
		}
		prev := v.ws.Project().Screens[v.ws.Current()].ID
		if err := v.ws.SwitchScreen(id); err != nil {
			dialog.ShowError(err, v.win)
		}
		_ = storage.InvalidatePreviews(context.Background(), v.ph.Root, prev)
		v.refresh()
	}
	screenOps := container.NewGridWithColumns(3,
		widget.NewButtonWithIcon("", theme.ContentAddIcon(), v.screenOp(func(e *project.Workspace) error {
			i, err := e.AddScreen()
			if err != nil {
				return err
			}
			return e.SwitchScreen(i)
		})),
		widget.NewButtonWithIcon("", theme.ContentCopyIcon(), v.screenOp(func(e *project.Workspace) error {
			_, err := e.DuplicateScreen(e.Current())
			return err
		})),
		widget.NewButtonWithIcon("", theme.DeleteIcon(), v.screenOp(func(e *project.Workspace) error {
			return e.RemoveScreen(e.Current())
		})),
		widget.NewButtonWithIcon("", theme.MoveUpIcon(), v.screenOp(func(e *project.Workspace) error {
			return e.MoveScreen(e.Current(), e.Current()-1)
		})),
		widget.NewButtonWithIcon("", theme.MoveDownIcon(), v.screenOp(func(e *project.Workspace) error {
			return e.MoveScreen(e.Current(), e.Current()+1)
		})),
	)
	left := container.NewBorder(container.NewVBox(widget.NewLabel("Screens"), screenOps), nil, nil, nil, v.screens)

	toolbar := widget.NewToolbar(
		widget.NewToolbarAction(theme.FolderOpenIcon(), v.pickProject),
		widget.NewToolbarAction(theme.DocumentSaveIcon(), v.save),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.ContentUndoIcon(), func() { v.act("undo", (*compose.Session).Undo) }),
		widget.NewToolbarAction(theme.ContentRedoIcon(), func() { v.act("redo", (*compose.Session).Redo) }),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.ZoomFitIcon(), v.view.ResetView),
		widget.NewToolbarAction(theme.UploadIcon(), v.showExport),
	)

	split := container.NewHSplit(left, container.NewHSplit(v.view, container.NewVScroll(v.inspector())))
	split.Offset = 0.16
	v.win.SetContent(container.NewBorder(toolbar, v.status, nil, nil, split))
	v.win.SetMainMenu(fyne.NewMainMenu(
		fyne.NewMenu("File",
			fyne.NewMenuItem("New Project…", v.newProjectDialog),
			fyne.NewMenuItem("Open Project…", v.pickProject),
			fyne.NewMenuItem("Save", v.save),
			fyne.NewMenuItem("Export…", v.showExport),
		),
		fyne.NewMenu("Edit",
			fyne.NewMenuItem("Undo", func() { v.act("undo", (*compose.Session).Undo) }),
			fyne.NewMenuItem("Redo", func() { v.act("redo", (*compose.Session).Redo) }),
			fyne.NewMenuItem("Delete", func() { v.act("delete", (*compose.Session).DeleteSelected) }),
			fyne.NewMenuItem("Clear Canvas", func() { v.act("clear", (*compose.Session).ClearCanvas) }),
		),
	))
	v.shortcuts()
}

func (v *editorView) inspector() fyne.CanvasObject {
	v.device = widget.NewSelect(nil, func(id string) {
		if v.syncing {
			return
		}
		v.act("add device", func(s *compose.Session) error { return s.AddDevice(id, s.FrameColor()) })
	})
	v.color = widget.NewRadioGroup([]string{string(devices.Black), string(devices.White)}, func(c string) {
		if v.syncing || c == "" {
			return
		}
		v.act("device color", func(s *compose.Session) error { return s.ChangeDeviceColor(devices.FrameColor(c)) })
	})
	v.color.Horizontal = true

	shot := widget.NewButtonWithIcon("Screenshot…", theme.FileImageIcon(), func() {
		dialog.ShowFileOpen(func(rc fyne.URIReadCloser, err error) {
			if err != nil || rc == nil || v.ph == nil {
				return
			}
			path := rc.URI().Path()
			_ = rc.Close()
			src, err := storage.ImportAsset(v.ph.Root, path)
			if err != nil {
				dialog.ShowError(err, v.win)
				return
			}
			v.act("add screenshot", func(s *compose.Session) error { return s.AddImage(src) })
		}, v.win)
	})
	unshot := widget.NewButton("Remove Screenshot", func() { v.act("remove screenshot", (*compose.Session).RemoveScreenshot) })

	text := widget.NewEntry()
	text.SetPlaceHolder("Headline")
	addText := widget.NewButton("Add Text", func() {
		if strings.TrimSpace(text.Text) == "" {
			return
		}
		v.act("add text", func(s *compose.Session) error { return s.AddText(text.Text, compose.TextOptions{}) })
	})

	shape := widget.NewSelect([]string{compose.ShapeRectangle, compose.ShapeCircle, compose.ShapeStar, compose.ShapeHeart, compose.ShapeTriangle}, nil)
	shape.SetSelected(compose.ShapeRectangle)
	addShape := widget.NewButton("Add Shape", func() {
		v.act("add shape", func(s *compose.Session) error { return s.AddShape(shape.Selected, "") })
	})

	badge := widget.NewEntry()
	badge.SetPlaceHolder("Badge label")
	addBadge := widget.NewButton("Add Badge", func() {
		v.act("add badge", func(s *compose.Session) error { return s.AddBadge(badge.Text, "") })
	})
	emoji := widget.NewEntry()
	emoji.SetPlaceHolder("🚀")
	addEmoji := widget.NewButton("Add Emoji", func() {
		v.act("add emoji", func(s *compose.Session) error { return s.AddEmoji(emoji.Text) })
	})

	bg := widget.NewEntry()
	bg.SetText(compose.StarterBackground)
	setBG := widget.NewButton("Apply Background", func() {
		v.act("background", func(s *compose.Session) error { return s.SetBackground(bg.Text) })
	})

	var tplNames []string
	for _, t := range compose.Templates() {
		tplNames = append(tplNames, t.Name)
	}
	tpl := widget.NewSelect(tplNames, func(name string) {
		if v.syncing || name == "" {
			return
		}
		v.act("template", func(s *compose.Session) error { return s.ApplyTemplate(name) })
	})
	tpl.PlaceHolder = "Template"

	size := widget.NewEntry()
	size.SetPlaceHolder("1290x2796")
	setSize := widget.NewButton("Resize", v.screenOp(func(e *project.Workspace) error {
		var w, h float64
		if _, err := fmt.Sscanf(strings.ToLower(size.Text), "%gx%g", &w, &h); err != nil {
			return fmt.Errorf("canvas size %q: want WIDTHxHEIGHT", size.Text)
		}
		return e.SetCanvasSize(w, h)
	}))
	resetSize := widget.NewButton("Reset", v.screenOp(func(e *project.Workspace) error { return e.ResetCanvasSize() }))

	return container.NewVBox(
		widget.NewLabelWithStyle("Device", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		v.device, v.color,
		widget.NewButton("Select Device", func() { v.act("select device", func(s *compose.Session) error { s.SelectDevice(); return nil }) }),
		container.NewGridWithColumns(2, shot, unshot),
		widget.NewSeparator(),
		widget.NewLabelWithStyle("Content", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		text, addText,
		container.NewGridWithColumns(2, shape, addShape),
		container.NewGridWithColumns(2, badge, addBadge),
		container.NewGridWithColumns(2, emoji, addEmoji),
		widget.NewSeparator(),
		widget.NewLabelWithStyle("Background", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		bg, setBG, tpl,
		container.NewGridWithColumns(3, size, setSize, resetSize),
		widget.NewSeparator(),
		v.selectionPanel(),
		widget.NewButtonWithIcon("Delete Selected", theme.DeleteIcon(), func() { v.act("delete", (*compose.Session).DeleteSelected) }),
		widget.NewButton("Clear Canvas", func() { v.act("clear", (*compose.Session).ClearCanvas) }),
	)
}

// selectionPanel edits the selected object.
func (v *editorView) selectionPanel() fyne.CanvasObject {
	var names []string
	for _, p := range compose.Properties {
		names = append(names, string(p))
	}
	prop := widget.NewSelect(names, nil)
	prop.SetSelected(string(compose.PropFill))
	val := widget.NewEntry()
	val.SetPlaceHolder("value")
	set := widget.NewButton("Set", func() {
		v.act("set property", func(s *compose.Session) error {
			return s.SetProperty(compose.Property(prop.Selected), val.Text)
		})
	})
	return container.NewVBox(
		widget.NewLabelWithStyle("Selection", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		container.NewGridWithColumns(3, prop, val, set),
		container.NewGridWithColumns(4,
			widget.NewButtonWithIcon("", theme.ContentCopyIcon(), func() { v.act("duplicate", (*compose.Session).DuplicateSelected) }),
			widget.NewButton("Flip H", func() { v.act("flip", func(s *compose.Session) error { return s.Flip(true) }) }),
			widget.NewButton("Flip V", func() { v.act("flip", func(s *compose.Session) error { return s.Flip(false) }) }),
			widget.NewButton("Lock", func() { v.act("lock", (*compose.Session).ToggleLock) }),
		),
	)
}

func (v *editorView) shortcuts() {
	c := v.win.Canvas()
	add := func(key fyne.KeyName, mod fyne.KeyModifier, fn func()) {
		c.AddShortcut(&desktop.CustomShortcut{KeyName: key, Modifier: mod}, func(fyne.Shortcut) { fn() })
	}
	add(fyne.KeyZ, fyne.KeyModifierShortcutDefault, func() { v.act("undo", (*compose.Session).Undo) })
	add(fyne.KeyZ, fyne.KeyModifierShortcutDefault|fyne.KeyModifierShift, func() { v.act("redo", (*compose.Session).Redo) })
	add(fyne.KeyY, fyne.KeyModifierShortcutDefault, func() { v.act("redo", (*compose.Session).Redo) })
	add(fyne.KeyS, fyne.KeyModifierShortcutDefault, v.save)
	add(fyne.KeyD, fyne.KeyModifierShortcutDefault, func() { v.act("duplicate", (*compose.Session).DuplicateSelected) })
	c.SetOnTypedKey(func(e *fyne.KeyEvent) {
		switch e.Name {
		case fyne.KeyDelete, fyne.KeyBackspace:
			v.act("delete", (*compose.Session).DeleteSelected)
		case fyne.KeyD:
			v.act("select device", func(s *compose.Session) error { s.SelectDevice(); return nil })
		case fyne.KeyEscape:
			v.act("deselect", func(s *compose.Session) error { s.Canvas().DiscardActive(); return nil })
		}
	})
}

func (v *editorView) screenOp(fn func(e *project.Workspace) error) func() {
	return func() {
		if v.ws == nil {
			return
		}
		if err := fn(v.ws); err != nil {
			dialog.ShowError(err, v.win)
		}
		v.refresh()
	}
}

func (v *editorView) tap(p vector.Pt) {
	v.act("select", func(s *compose.Session) error {
		if o := v.ws.Canvas.ObjectAt(p); !s.Select(o) {
			s.Canvas().DiscardActive()
		}
		return nil
	})
}

func (v *editorView) drag(start, cur vector.Pt, first bool) bool {
	s := v.session()
	if s == nil {
		return false
	}
	if first {
		o := v.ws.Canvas.ObjectAt(start)
		if !s.Select(o) {
			return false
		}
		v.dragObj = s.Canvas().Active()[0]
		v.dragLeft, v.dragTop = v.dragObj.Left, v.dragObj.Top
	}
	if v.dragObj == nil {
		return false
	}
	left, top := v.dragLeft+cur.X-start.X, v.dragTop+cur.Y-start.Y
	if err := s.Drag(v.dragObj, scene.EventMoving, func(o *scene.Object) { o.Left, o.Top = left, top }); err != nil {
		v.log.Debug("drag rejected", slog.Any("err", err))
	}
	v.refresh()
	return true
}

func (v *editorView) dragEnd() {
	if o := v.dragObj; o != nil {
		v.dragObj = nil
		v.act("move", func(s *compose.Session) error { return s.Commit(o) })
	}
}

// refresh redraws the canvas and syncs the side panels with the session.
func (v *editorView) refresh() {
	if v.ws == nil {
		return
	}
	s := v.ws.Session()
	img, err := v.ws.Canvas.Rasterize(previewScale)
	if err != nil {
		v.log.Warn("preview render failed", slog.Any("err", err))
	}
	var sel []vector.Rect
	for _, o := range v.ws.Canvas.Active() {
		sel = append(sel, o.Bounds())
	}
	v.view.Show(img, v.ws.Canvas.Width(), v.ws.Canvas.Height(), sel, s.Guides())

	v.syncing = true
	defer func() { v.syncing = false }()
	v.screens.Refresh()
	v.screens.Select(v.ws.Current())
	if id := s.DeviceID(); id != "" {
		v.device.SetSelected(id)
	} else {
		v.device.ClearSelected()
	}
	v.color.SetSelected(string(s.FrameColor()))
	undoIdx, n := s.History().Manager().Position(s.History().Key())
	v.status.SetText(fmt.Sprintf("%s · screen %d/%d · history %d/%d",
		v.ws.Project().Name, v.ws.Current()+1, len(v.ws.Project().Screens), undoIdx+1, n))
}

// thumbnail returns a cached list preview of screen i.
func (v *editorView) thumbnail(i int) image.Image {
	p := v.ws.Project()
	if i < 0 || i >= len(p.Screens) || len(p.Screens[i].Thumbnail) == 0 {
		return nil
	}
	sc := p.Screens[i]
	blob, err := storage.GetOrCreatePreview(context.Background(), v.ph.Root, sc.ID, 40, 80, func(context.Context) ([]byte, error) {
		img, _, err := assets.Decode(sc.Thumbnail)
		if err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, export.Fit(project.GenerateThumbnail(img), 40, 80)); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	})
	if err != nil {
		v.log.Debug("thumbnail unavailable", slog.Int("screen", i+1), slog.Any("err", err))
		return nil
	}
	img, err := png.Decode(bytes.NewReader(blob))
	if err != nil {
		return nil
	}
	return img
}

func (v *editorView) pickProject() {
	recent := loadRecentProjects(v.app.Preferences())
	if len(recent) == 0 {
		v.browseProject()
		return
	}
	var d dialog.Dialog
	list := widget.NewList(
		func() int { return len(recent) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(i widget.ListItemID, o fyne.CanvasObject) { o.(*widget.Label).SetText(recent[i]) },
	)
	list.OnSelected = func(i widget.ListItemID) {
		d.Hide()
		if err := v.open(recent[i]); err != nil {
			dialog.ShowError(err, v.win)
		}
	}
	browse := widget.NewButton("Browse…", func() {
		d.Hide()
		v.browseProject()
	})
	d = dialog.NewCustom("Open Project", "Cancel", container.NewBorder(nil, browse, nil, nil, list), v.win)
	d.Resize(fyne.NewSize(520, 360))
	d.Show()
}

func (v *editorView) browseProject() {
	dialog.ShowFolderOpen(func(u fyne.ListableURI, err error) {
		if err != nil || u == nil {
			return
		}
		if err := v.open(u.Path()); err != nil {
			dialog.ShowError(err, v.win)
		}
	}, v.win)
}

func (v *editorView) newProjectDialog() {
	name := widget.NewEntry()
	name.SetText("My App")
	platform := widget.NewSelect([]string{string(devices.IOS), string(devices.Android)}, nil)
	platform.SetSelected(v.cfg.Editor.DefaultPlatform)
	if platform.Selected == "" {
		platform.SetSelected(string(devices.IOS))
	}
	dialog.ShowForm("New Project", "Choose Folder…", "Cancel", []*widget.FormItem{
		widget.NewFormItem("Name", name),
		widget.NewFormItem("Platform", platform),
	}, func(ok bool) {
		if !ok {
			return
		}
		dialog.ShowFolderOpen(func(u fyne.ListableURI, err error) {
			if err != nil || u == nil {
				return
			}
			root := filepath.Join(u.Path(), export.SanitizeFileName(name.Text))
			if _, err := storage.InitProject(root, project.New(name.Text, devices.Platform(platform.Selected))); err != nil {
				dialog.ShowError(err, v.win)
				return
			}
			if err := v.open(root); err != nil {
				dialog.ShowError(err, v.win)
			}
		}, v.win)
	}, v.win)
}

// open replaces the current project with the one at dir.
func (v *editorView) open(dir string) error {
	if v.ws != nil {
		if err := v.closeProject(); err != nil {
			return err
		}
	}
	opts, err := project.OptionsFromConfig(v.cfg)
	if err != nil {
		return err
	}
	ctx := context.Background()
	ph, ws, err := storage.OpenWorkspace(ctx, dir, opts)
	if err != nil {
		return fmt.Errorf("open %s: %w", dir, err)
	}
	v.ph, v.ws, v.history = ph, ws, opts.History
	addRecentProject(v.app.Preferences(), dir)

	cat := opts.Catalog
	if cat == nil {
		cat = devices.Default()
	}
	var list []string
	for _, d := range cat.ListByPlatform(ws.Project().Platform) {
		list = append(list, d.ID)
	}
	v.device.Options = list

	lctx, cancel := context.WithCancel(ctx)
	v.stop = cancel
	go v.pump(lctx, ws)
	v.win.SetTitle("shotframe · " + ws.Project().Name)
	v.log.Info("project opened", slog.String("root", dir))
	v.refresh()
	return nil
}

// pump runs queued loop work (image completions and placement frames) on
// the UI goroutine.
func (v *editorView) pump(ctx context.Context, ws *project.Workspace) {
	t := time.NewTicker(time.Second / 30)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ws.Loop.Wake():
		case <-t.C:
			if posts, frames := ws.Loop.Pending(); posts+frames == 0 {
				continue
			}
		}
		fyne.Do(func() {
			if v.ws == ws && ws.Loop.Tick() > 0 {
				v.refresh()
			}
		})
	}
}

func (v *editorView) save() {
	if v.ws == nil {
		return
	}
	if err := v.ws.Store(); err != nil {
		dialog.ShowError(err, v.win)
		return
	}
	if err := v.ph.Save(v.ws.Project()); err != nil {
		dialog.ShowError(err, v.win)
		return
	}
	v.status.SetText("Saved " + time.Now().Format("15:04:05"))
}

func (v *editorView) closeProject() error {
	if v.stop != nil {
		v.stop()
	}
	err := storage.CloseWorkspace(context.Background(), v.ph, v.ws, v.history)
	v.ph, v.ws, v.history, v.stop = nil, nil, nil, nil
	return err
}

func (v *editorView) close() {
	prefs := v.app.Preferences()
	sz := v.win.Canvas().Size()
	prefs.SetInt("window.width", int(sz.Width))
	prefs.SetInt("window.height", int(sz.Height))
	if v.ws != nil {
		if err := v.closeProject(); err != nil {
			v.log.Error("close project", slog.Any("err", err))
		}
	}
	v.win.Close()
}

func (v *editorView) showExport() {
	if v.ws == nil {
		return
	}
	format := widget.NewSelect([]string{string(export.PNG), string(export.JPEG)}, nil)
	format.SetSelected(v.cfg.Export.Format)
	scale := widget.NewSelect([]string{"1", "2", "3"}, nil)
	scale.SetSelected(fmt.Sprint(min(max(v.cfg.Export.Scale, 1), 3)))
	kinds := widget.NewCheckGroup([]string{string(export.KindFiles), string(export.KindZIP), string(export.KindPDF), string(export.KindPreset)}, nil)
	kinds.SetSelected([]string{string(export.KindZIP)})

	dialog.ShowForm("Export", "Export", "Cancel", []*widget.FormItem{
		widget.NewFormItem("Format", format),
		widget.NewFormItem("Scale", scale),
		widget.NewFormItem("Outputs", kinds),
	}, func(ok bool) {
		if !ok {
			return
		}
		if err := v.ws.Store(); err != nil {
			dialog.ShowError(err, v.win)
			return
		}
		data, err := project.Marshal(v.ws.Project())
		if err != nil {
			dialog.ShowError(err, v.win)
			return
		}
		snap, err := project.Unmarshal(data)
		if err != nil {
			dialog.ShowError(err, v.win)
			return
		}
		opt := export.BatchOptions{
			Options: export.Options{Format: export.Format(format.Selected), Quality: v.cfg.Export.Quality},
			Root:    v.ph.Root,
		}
		_, _ = fmt.Sscan(scale.Selected, &opt.Scale)
		for _, k := range kinds.Selected {
			opt.Kinds = append(opt.Kinds, export.Kind(k))
		}
		r := render.New(v.ws.Images)
		v.status.SetText("Exporting…")
		go func() {
			paths, err := export.Batch(context.Background(), snap, r, opt)
			fyne.Do(func() {
				if err != nil {
					dialog.ShowError(err, v.win)
					v.status.SetText("Export failed")
					return
				}
				v.status.SetText(fmt.Sprintf("Exported %d file(s) to %s", len(paths), filepath.Join(v.ph.Root, "exports")))
			})
		}()
	}, v.win)
}

const (
	recentPrefsKey = "recentProjects"
	recentMax      = 10
)

// loadRecentProjects returns the remembered project folders that still exist.
func loadRecentProjects(p fyne.Preferences) []string {
	raw := p.StringWithFallback(recentPrefsKey, "")
	var items []string
	if strings.TrimSpace(raw) != "" {
		_ = json.Unmarshal([]byte(raw), &items)
	}
	out := make([]string, 0, len(items))
	for _, s := range items {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, err := os.Stat(filepath.Join(s, storage.ManifestFileName)); err == nil {
			out = append(out, s)
		}
	}
	return out
}

func saveRecentProjects(p fyne.Preferences, items []string) {
	if len(items) > recentMax {
		items = items[:recentMax]
	}
	b, _ := json.Marshal(items)
	p.SetString(recentPrefsKey, string(b))
}

func addRecentProject(p fyne.Preferences, path string) {
	if strings.TrimSpace(path) == "" {
		return
	}
	abs, _ := filepath.Abs(path)
	rec := loadRecentProjects(p)
	out := make([]string, 0, 1+len(rec))
	out = append(out, abs)
	for _, s := range rec {
		// case-insensitive on Windows
		if strings.EqualFold(s, abs) {
			continue
		}
		out = append(out, s)
	}
	saveRecentProjects(p, out)
}
