/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package compose

import (
	"shotframe/internal/scene"
	"shotframe/internal/undo"
	"shotframe/internal/vector"
)

// Protected reports whether o is owned by the session and must not be
// removed by a generic delete.
func Protected(o *scene.Object) bool {
	switch o.Name {
	case NameBackground, NameScreenshot, NameOverlay:
		return true
	}
	return isFrame(o)
}

// DeleteSelected removes the selection. A single protected object is left
// alone; from a multi-selection only unprotected objects are removed.
func (s *Session) DeleteSelected() error {
	return s.do("delete selected", func() error {
		active := s.canvas.Active()
		switch len(active) {
		case 0:
			return nil
		case 1:
			if Protected(active[0]) {
				return nil
			}
			s.canvas.Remove(active[0])
		default:
			for _, o := range active {
				if !Protected(o) {
					s.canvas.Remove(o)
				}
			}
		}
		s.canvas.DiscardActive()
		return nil
	})
}

// ClearCanvas removes everything except the background and forgets the
// device.
func (s *Session) ClearCanvas() error {
	return s.do("clear canvas", func() error {
		s.detach()
		s.canvas.Remove(s.canvas.Filter(func(o *scene.Object) bool { return o.Name != NameBackground })...)
		s.canvas.DiscardActive()
		return nil
	})
}

// Drag applies one live manipulation step to o and emits ev for it. It
// records no history; Commit ends the manipulation. Moves snap to smart
// guides when snapping is enabled. Locked objects refuse manipulation.
func (s *Session) Drag(o *scene.Object, ev scene.Event, fn func(*scene.Object)) error {
	if s.busy {
		return ErrBusy
	}
	if o.Locked && ev != scene.EventModified {
		return ErrLocked
	}
	return s.history.Mutate(undo.Transient, func() error {
		fn(o)
		if ev == scene.EventMoving && s.snap {
			s.snapToGuides(o)
		}
		s.canvas.Emit(o, ev)
		return nil
	})
}

// Commit ends a manipulation of o: a pending screenshot re-placement runs
// first so the snapshot sees the final transform.
func (s *Session) Commit(o *scene.Object) error {
	return s.do("commit", func() error {
		if s.frames != nil {
			s.frames.FlushFrame(frameKey)
		}
		s.guides = nil
		s.canvas.Emit(o, scene.EventModified)
		return nil
	})
}

// Move drags o to left/top and commits.
func (s *Session) Move(o *scene.Object, left, top float64) error {
	if err := s.Drag(o, scene.EventMoving, func(o *scene.Object) { o.Left, o.Top = left, top }); err != nil {
		return err
	}
	return s.Commit(o)
}

// Rotate turns o to angle degrees about its center and commits.
func (s *Session) Rotate(o *scene.Object, angle float64) error {
	err := s.Drag(o, scene.EventRotating, func(o *scene.Object) {
		c := o.CenterPoint()
		o.Angle = angle
		o.SetCenterPoint(c)
	})
	if err != nil {
		return err
	}
	return s.Commit(o)
}

// Scale sets the scale of o and commits.
func (s *Session) Scale(o *scene.Object, sx, sy float64) error {
	if err := s.Drag(o, scene.EventScaling, func(o *scene.Object) { o.ScaleX, o.ScaleY = sx, sy }); err != nil {
		return err
	}
	return s.Commit(o)
}

func (s *Session) snapToGuides(o *scene.Object) {
	anchors := []vector.Anchor{{Rect: vector.R(0, 0, s.canvas.Width(), s.canvas.Height()), Weight: 2}}
	for _, x := range s.canvas.Objects() {
		if x == o || !x.Evented {
			continue
		}
		anchors = append(anchors, vector.Anchor{Rect: x.Bounds(), Weight: 1})
	}
	moving := o.Bounds()
	snapped, guides := vector.ComputeSmartGuides(moving, anchors, vector.SnapOptions{
		Threshold:     s.thresh,
		SnapToEdges:   true,
		SnapToCenters: true,
	})
	o.Left += snapped.X - moving.X
	o.Top += snapped.Y - moving.Y
	s.guides = guides
}
