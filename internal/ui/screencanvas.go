//go:build fyne

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"image"
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"

	"shotframe/internal/vector"
)

// ScreenCanvas shows a rasterized screen fitted into the widget and maps
// pointer positions back to design units.
type ScreenCanvas struct {
	widget.BaseWidget

	zoom    float32
	offsetX float32
	offsetY float32

	designW, designH float64
	img              image.Image
	selection        []vector.Rect
	guides           []vector.GuideLine

	dragging bool
	panning  bool
	start    vector.Pt

	// OnTap receives taps in design units.
	OnTap func(p vector.Pt)
	// OnDrag receives the drag start and current position in design units.
	// It returns false when nothing is under the pointer; the drag then pans.
	OnDrag    func(start, cur vector.Pt, first bool) bool
	OnDragEnd func()
}

func NewScreenCanvas() *ScreenCanvas {
	sc := &ScreenCanvas{zoom: 1, designW: 1290, designH: 2796}
	sc.ExtendBaseWidget(sc)
	return sc
}

// Show replaces the displayed raster. sel and guides are in design units.
func (s *ScreenCanvas) Show(img image.Image, designW, designH float64, sel []vector.Rect, guides []vector.GuideLine) {
	s.img, s.designW, s.designH = img, designW, designH
	s.selection, s.guides = sel, guides
	s.Refresh()
}

// PreferredSize sets a decent default size for the widget.
func (s *ScreenCanvas) PreferredSize() fyne.Size { return fyne.NewSize(480, 720) }

// scale and origin of the design canvas inside the widget.
func (s *ScreenCanvas) geometry(size fyne.Size) (ox, oy, k float32) {
	if s.designW <= 0 || s.designH <= 0 {
		return 0, 0, 1
	}
	k = min(size.Width/float32(s.designW), size.Height/float32(s.designH)) * s.zoom
	ox = (size.Width-float32(s.designW)*k)/2 + s.offsetX
	oy = (size.Height-float32(s.designH)*k)/2 + s.offsetY
	return ox, oy, k
}

func (s *ScreenCanvas) toDesign(pos fyne.Position) vector.Pt {
	ox, oy, k := s.geometry(s.Size())
	return vector.Pt{X: float64((pos.X - ox) / k), Y: float64((pos.Y - oy) / k)}
}

func (s *ScreenCanvas) toWidget(p vector.Pt) fyne.Position {
	ox, oy, k := s.geometry(s.Size())
	return fyne.NewPos(ox+float32(p.X)*k, oy+float32(p.Y)*k)
}

func (s *ScreenCanvas) Tapped(e *fyne.PointEvent) {
	if s.OnTap != nil {
		s.OnTap(s.toDesign(e.Position))
	}
}

func (s *ScreenCanvas) Dragged(e *fyne.DragEvent) {
	cur := s.toDesign(e.Position)
	if !s.dragging && !s.panning {
		s.start = s.toDesign(e.Position.Subtract(e.Dragged))
		if s.OnDrag != nil && s.OnDrag(s.start, cur, true) {
			s.dragging = true
			return
		}
		s.panning = true
	}
	if s.panning {
		s.offsetX += e.Dragged.DX
		s.offsetY += e.Dragged.DY
		s.Refresh()
		return
	}
	s.OnDrag(s.start, cur, false)
}

func (s *ScreenCanvas) DragEnd() {
	wasDragging := s.dragging
	s.dragging, s.panning = false, false
	if wasDragging && s.OnDragEnd != nil {
		s.OnDragEnd()
	}
}

// Scrolled zooms between 0.25x and 4x.
func (s *ScreenCanvas) Scrolled(e *fyne.ScrollEvent) {
	s.zoom = min(max(s.zoom+e.Scrolled.DY*0.01, 0.25), 4)
	s.Refresh()
}

// ResetView restores zoom and pan.
func (s *ScreenCanvas) ResetView() {
	s.zoom, s.offsetX, s.offsetY = 1, 0, 0
	s.Refresh()
}

func (s *ScreenCanvas) CreateRenderer() fyne.WidgetRenderer {
	bg := canvas.NewRectangle(color.RGBA{R: 30, G: 30, B: 34, A: 255})
	raster := canvas.NewImageFromImage(nil)
	raster.FillMode = canvas.ImageFillStretch
	raster.ScaleMode = canvas.ImageScaleSmooth
	r := &screenCanvasRenderer{sc: s, bg: bg, raster: raster}
	r.rebuild()
	return r
}

type screenCanvasRenderer struct {
	sc      *ScreenCanvas
	bg      *canvas.Rectangle
	raster  *canvas.Image
	boxes   []*canvas.Rectangle
	lines   []*canvas.Line
	objects []fyne.CanvasObject
}

func (r *screenCanvasRenderer) Destroy()                     {}
func (r *screenCanvasRenderer) Objects() []fyne.CanvasObject { return r.objects }
func (r *screenCanvasRenderer) MinSize() fyne.Size           { return fyne.NewSize(200, 300) }

func (r *screenCanvasRenderer) Refresh() {
	r.raster.Image = r.sc.img
	r.rebuild()
	r.Layout(r.sc.Size())
	canvas.Refresh(r.sc)
}

// rebuild matches the overlay objects to the current selection and guides.
func (r *screenCanvasRenderer) rebuild() {
	for len(r.boxes) < len(r.sc.selection) {
		b := canvas.NewRectangle(color.Transparent)
		b.StrokeColor = color.RGBA{R: 0, G: 170, B: 255, A: 255}
		b.StrokeWidth = 1.5
		r.boxes = append(r.boxes, b)
	}
	r.boxes = r.boxes[:len(r.sc.selection)]
	for len(r.lines) < len(r.sc.guides) {
		ln := canvas.NewLine(color.RGBA{R: 255, G: 0, B: 170, A: 220})
		ln.StrokeWidth = 1
		r.lines = append(r.lines, ln)
	}
	r.lines = r.lines[:len(r.sc.guides)]
	r.objects = []fyne.CanvasObject{r.bg, r.raster}
	for _, b := range r.boxes {
		r.objects = append(r.objects, b)
	}
	for _, ln := range r.lines {
		r.objects = append(r.objects, ln)
	}
}

func (r *screenCanvasRenderer) Layout(size fyne.Size) {
	r.bg.Move(fyne.NewPos(0, 0))
	r.bg.Resize(size)
	ox, oy, k := r.sc.geometry(size)
	r.raster.Move(fyne.NewPos(ox, oy))
	r.raster.Resize(fyne.NewSize(float32(r.sc.designW)*k, float32(r.sc.designH)*k))
	for i, b := range r.boxes {
		rc := r.sc.selection[i]
		b.Move(fyne.NewPos(ox+float32(rc.X)*k, oy+float32(rc.Y)*k))
		b.Resize(fyne.NewSize(float32(rc.W)*k, float32(rc.H)*k))
	}
	for i, ln := range r.lines {
		g := r.sc.guides[i]
		ln.Position1 = fyne.NewPos(ox+float32(g.From.X)*k, oy+float32(g.From.Y)*k)
		ln.Position2 = fyne.NewPos(ox+float32(g.To.X)*k, oy+float32(g.To.Y)*k)
	}
}
