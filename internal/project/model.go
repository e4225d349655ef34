/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package project defines the multi-screen project model and the Editor
// that moves the live canvas between screens.
//
// A project serializes to a human-readable JSON manifest; each screen keeps
// its scene as an opaque JSON blob plus a PNG thumbnail.
package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"shotframe/internal/devices"
)

// MaxScreens bounds the number of screens in a project.
const MaxScreens = 10

var (
	ErrScreenLimit = errors.New("project: screen limit reached")
	ErrLastScreen  = errors.New("project: cannot remove the last screen")
	ErrScreenIndex = errors.New("project: screen index out of range")
)

// Project is a named set of screens for one store platform.
type Project struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Platform  devices.Platform `json:"platform"`
	Width     float64          `json:"width"`
	Height    float64          `json:"height"`
	Screens   []Screen         `json:"screens"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

// Screen is one canvas of a project. CanvasData is empty until the screen
// was visited.
type Screen struct {
	ID         string          `json:"id"`
	Order      int             `json:"order"`
	CanvasData json.RawMessage `json:"canvasData,omitempty"`
	Thumbnail  []byte          `json:"thumbnail,omitempty"`
}

// CanvasSize is the design size of screens on platform p.
func CanvasSize(p devices.Platform) (w, h float64) {
	if p == devices.Android {
		return 1080, 1920
	}
	return 1290, 2796
}

func now() time.Time { return time.Now().UTC() }

func newScreen(order int) Screen {
	return Screen{ID: uuid.NewString(), Order: order}
}

// New creates a project with one empty screen.
func New(name string, p devices.Platform) *Project {
	if p != devices.Android {
		p = devices.IOS
	}
	w, h := CanvasSize(p)
	t := now()
	return &Project{
		ID:        uuid.NewString(),
		Name:      name,
		Platform:  p,
		Width:     w,
		Height:    h,
		Screens:   []Screen{newScreen(0)},
		CreatedAt: t,
		UpdatedAt: t,
	}
}

func (p *Project) touch() { p.UpdatedAt = now() }

func (p *Project) reindex() {
	for i := range p.Screens {
		p.Screens[i].Order = i
	}
}

func (p *Project) check(i int) error {
	if i < 0 || i >= len(p.Screens) {
		return fmt.Errorf("%w: %d of %d", ErrScreenIndex, i, len(p.Screens))
	}
	return nil
}

// Screen returns screen i.
func (p *Project) Screen(i int) (*Screen, error) {
	if err := p.check(i); err != nil {
		return nil, err
	}
	return &p.Screens[i], nil
}

// IndexOf returns the index of the screen with id, or -1.
func (p *Project) IndexOf(id string) int {
	for i, s := range p.Screens {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// Rename sets the project name.
func (p *Project) Rename(name string) {
	p.Name = name
	p.touch()
}

// AddScreen appends an empty screen and returns its index.
func (p *Project) AddScreen() (int, error) {
	if len(p.Screens) >= MaxScreens {
		return -1, ErrScreenLimit
	}
	p.Screens = append(p.Screens, newScreen(len(p.Screens)))
	p.touch()
	return len(p.Screens) - 1, nil
}

// RemoveScreen deletes screen i and renumbers the rest.
func (p *Project) RemoveScreen(i int) (Screen, error) {
	if err := p.check(i); err != nil {
		return Screen{}, err
	}
	if len(p.Screens) == 1 {
		return Screen{}, ErrLastScreen
	}
	gone := p.Screens[i]
	p.Screens = append(p.Screens[:i], p.Screens[i+1:]...)
	p.reindex()
	p.touch()
	return gone, nil
}

// MoveScreen moves screen from to position to.
func (p *Project) MoveScreen(from, to int) error {
	if err := p.check(from); err != nil {
		return err
	}
	if err := p.check(to); err != nil {
		return err
	}
	s := p.Screens[from]
	p.Screens = append(p.Screens[:from], p.Screens[from+1:]...)
	p.Screens = append(p.Screens[:to], append([]Screen{s}, p.Screens[to:]...)...)
	p.reindex()
	p.touch()
	return nil
}

// DuplicateScreen inserts a copy of screen i, with a new id, right after it
// and returns the copy's index.
func (p *Project) DuplicateScreen(i int) (int, error) {
	if err := p.check(i); err != nil {
		return -1, err
	}
	if len(p.Screens) >= MaxScreens {
		return -1, ErrScreenLimit
	}
	c := p.Screens[i]
	c.ID = uuid.NewString()
	c.CanvasData = append(json.RawMessage(nil), c.CanvasData...)
	c.Thumbnail = append([]byte(nil), c.Thumbnail...)
	p.Screens = append(p.Screens[:i+1], append([]Screen{c}, p.Screens[i+1:]...)...)
	p.reindex()
	p.touch()
	return i + 1, nil
}

// Validate checks the structural invariants of an imported project.
func (p *Project) Validate() error {
	var errs []string
	if strings.TrimSpace(p.Name) == "" {
		errs = append(errs, "name is required")
	}
	if p.Platform != devices.IOS && p.Platform != devices.Android {
		errs = append(errs, fmt.Sprintf("unknown platform %q", p.Platform))
	}
	if p.Width <= 0 || p.Height <= 0 {
		errs = append(errs, "canvas size must be positive")
	}
	if n := len(p.Screens); n < 1 || n > MaxScreens {
		errs = append(errs, fmt.Sprintf("screen count %d outside 1..%d", n, MaxScreens))
	}
	seen := map[string]bool{}
	for i, s := range p.Screens {
		if s.ID == "" || seen[s.ID] {
			errs = append(errs, fmt.Sprintf("screen %d: missing or duplicate id", i))
		}
		seen[s.ID] = true
		if len(s.CanvasData) > 0 && !json.Valid(s.CanvasData) {
			errs = append(errs, fmt.Sprintf("screen %d: canvas data is not JSON", i))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid project: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Marshal encodes p as an indented JSON document.
func Marshal(p *Project) ([]byte, error) {
	b, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal project: %w", err)
	}
	return append(b, '\n'), nil
}

// Unmarshal decodes and validates a project document.
func Unmarshal(data []byte) (*Project, error) {
	var p Project
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse project: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	p.reindex()
	return &p, nil
}
