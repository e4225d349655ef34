/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package devices is the catalog of device descriptors the frame builder
// draws from: logical sizes, corner radii, notch styles and bezels.
package devices

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

type Platform string

const (
	IOS     Platform = "ios"
	Android Platform = "android"
	// All selects every platform in ListByPlatform.
	All Platform = "all"
)

// Notch is the display cutout style drawn at the top of the screen.
type Notch string

const (
	DynamicIsland Notch = "dynamic-island"
	NotchBar      Notch = "notch"
	PunchHole     Notch = "punch-hole"
	NoNotch       Notch = "none"
)

func (n Notch) valid() bool {
	switch n {
	case DynamicIsland, NotchBar, PunchHole, NoNotch:
		return true
	}
	return false
}

// Descriptor is an immutable device description in logical design units.
type Descriptor struct {
	ID           string   `yaml:"id" json:"id"`
	DisplayName  string   `yaml:"name" json:"name"`
	Width        float64  `yaml:"width" json:"width"`
	Height       float64  `yaml:"height" json:"height"`
	CornerRadius float64  `yaml:"cornerRadius" json:"cornerRadius"`
	Notch        Notch    `yaml:"notch" json:"notch"`
	BezelWidth   float64  `yaml:"bezel" json:"bezel"`
	Platform     Platform `yaml:"platform" json:"platform"`
	HomeButton   bool     `yaml:"homeButton,omitempty" json:"homeButton,omitempty"`
}

// Tablet reports whether the descriptor is an iPad-class device.
func (d Descriptor) Tablet() bool { return strings.HasPrefix(d.ID, "ipad") }

// Validate checks the geometric invariants a frame can be built from.
func (d Descriptor) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("device: missing id")
	}
	if d.Width <= 0 || d.Height <= 0 {
		return fmt.Errorf("device %s: width and height must be positive", d.ID)
	}
	if d.CornerRadius < 0 || d.CornerRadius > min(d.Width, d.Height)/2 {
		return fmt.Errorf("device %s: corner radius %.1f exceeds half the short side", d.ID, d.CornerRadius)
	}
	if d.BezelWidth < 0 {
		return fmt.Errorf("device %s: negative bezel", d.ID)
	}
	if !d.Notch.valid() {
		return fmt.Errorf("device %s: unknown notch style %q", d.ID, d.Notch)
	}
	if d.Platform != IOS && d.Platform != Android {
		return fmt.Errorf("device %s: unknown platform %q", d.ID, d.Platform)
	}
	return nil
}

// DefaultID is returned by Lookup for unknown ids.
const DefaultID = "iphone-15-pro"

var builtin = []Descriptor{
	{ID: "iphone-15-pro-max", DisplayName: "iPhone 15 Pro Max", Width: 430, Height: 932, CornerRadius: 55, Notch: DynamicIsland, BezelWidth: 3, Platform: IOS},
	{ID: "iphone-15-pro", DisplayName: "iPhone 15 Pro", Width: 393, Height: 852, CornerRadius: 53, Notch: DynamicIsland, BezelWidth: 3, Platform: IOS},
	{ID: "iphone-15-plus", DisplayName: "iPhone 15 Plus", Width: 430, Height: 932, CornerRadius: 55, Notch: DynamicIsland, BezelWidth: 4, Platform: IOS},
	{ID: "iphone-15", DisplayName: "iPhone 15", Width: 393, Height: 852, CornerRadius: 53, Notch: DynamicIsland, BezelWidth: 4, Platform: IOS},
	{ID: "iphone-14-pro-max", DisplayName: "iPhone 14 Pro Max", Width: 430, Height: 932, CornerRadius: 55, Notch: DynamicIsland, BezelWidth: 3, Platform: IOS},
	{ID: "iphone-14-pro", DisplayName: "iPhone 14 Pro", Width: 393, Height: 852, CornerRadius: 53, Notch: DynamicIsland, BezelWidth: 3, Platform: IOS},
	{ID: "iphone-14", DisplayName: "iPhone 14", Width: 390, Height: 844, CornerRadius: 47, Notch: NotchBar, BezelWidth: 4, Platform: IOS},
	{ID: "iphone-13", DisplayName: "iPhone 13", Width: 390, Height: 844, CornerRadius: 47, Notch: NotchBar, BezelWidth: 4, Platform: IOS},
	{ID: "iphone-se", DisplayName: "iPhone SE", Width: 375, Height: 667, CornerRadius: 30, Notch: NoNotch, BezelWidth: 5, Platform: IOS, HomeButton: true},
	{ID: "ipad-pro-12", DisplayName: `iPad Pro 12.9"`, Width: 1024, Height: 1366, CornerRadius: 20, Notch: NoNotch, BezelWidth: 6, Platform: IOS},
	{ID: "ipad-pro-11", DisplayName: `iPad Pro 11"`, Width: 834, Height: 1194, CornerRadius: 20, Notch: NoNotch, BezelWidth: 6, Platform: IOS},

	{ID: "pixel-8-pro", DisplayName: "Google Pixel 8 Pro", Width: 412, Height: 892, CornerRadius: 42, Notch: PunchHole, BezelWidth: 3, Platform: Android},
	{ID: "pixel-8", DisplayName: "Google Pixel 8", Width: 393, Height: 851, CornerRadius: 40, Notch: PunchHole, BezelWidth: 3, Platform: Android},
	{ID: "pixel-7-pro", DisplayName: "Google Pixel 7 Pro", Width: 412, Height: 892, CornerRadius: 40, Notch: PunchHole, BezelWidth: 3, Platform: Android},
	{ID: "pixel-7", DisplayName: "Google Pixel 7", Width: 393, Height: 851, CornerRadius: 38, Notch: PunchHole, BezelWidth: 3, Platform: Android},
	{ID: "galaxy-s24-ultra", DisplayName: "Samsung Galaxy S24 Ultra", Width: 440, Height: 984, CornerRadius: 30, Notch: PunchHole, BezelWidth: 2, Platform: Android},
	{ID: "galaxy-s24-plus", DisplayName: "Samsung Galaxy S24+", Width: 412, Height: 919, CornerRadius: 35, Notch: PunchHole, BezelWidth: 3, Platform: Android},
	{ID: "galaxy-s24", DisplayName: "Samsung Galaxy S24", Width: 393, Height: 873, CornerRadius: 38, Notch: PunchHole, BezelWidth: 3, Platform: Android},
	{ID: "galaxy-z-fold5", DisplayName: "Samsung Galaxy Z Fold 5", Width: 426, Height: 945, CornerRadius: 25, Notch: PunchHole, BezelWidth: 3, Platform: Android},
	{ID: "oneplus-12", DisplayName: "OnePlus 12", Width: 412, Height: 919, CornerRadius: 42, Notch: PunchHole, BezelWidth: 3, Platform: Android},
}

// Catalog is an ordered, read-only set of descriptors.
type Catalog struct {
	list []Descriptor
	byID map[string]int
}

var defaultCatalog = mustCatalog(builtin)

// Default returns the built-in catalog.
func Default() *Catalog { return defaultCatalog }

func mustCatalog(list []Descriptor) *Catalog {
	c, err := NewCatalog(list)
	if err != nil {
		panic(err)
	}
	return c
}

// NewCatalog validates list and indexes it. The default device must be present.
func NewCatalog(list []Descriptor) (*Catalog, error) {
	c := &Catalog{byID: make(map[string]int, len(list))}
	for _, d := range list {
		if err := d.Validate(); err != nil {
			return nil, err
		}
		if i, dup := c.byID[d.ID]; dup {
			c.list[i] = d
			continue
		}
		c.byID[d.ID] = len(c.list)
		c.list = append(c.list, d)
	}
	if _, ok := c.byID[DefaultID]; !ok {
		return nil, fmt.Errorf("device catalog: default device %s missing", DefaultID)
	}
	return c, nil
}

// Lookup returns the descriptor for id, or the default descriptor.
func (c *Catalog) Lookup(id string) Descriptor {
	d, _ := c.Find(id)
	return d
}

// Find is Lookup that also reports whether id was known.
func (c *Catalog) Find(id string) (Descriptor, bool) {
	if i, ok := c.byID[id]; ok {
		return c.list[i], true
	}
	return c.list[c.byID[DefaultID]], false
}

// ListByPlatform returns descriptors for p (or every one for All) in catalog order.
func (c *Catalog) ListByPlatform(p Platform) []Descriptor {
	var out []Descriptor
	for _, d := range c.list {
		if p == All || d.Platform == p {
			out = append(out, d)
		}
	}
	return out
}

// DefaultFor returns the device new screens get on platform p.
func (c *Catalog) DefaultFor(p Platform) Descriptor {
	if p == Android {
		return c.Lookup("pixel-8-pro")
	}
	return c.Lookup(DefaultID)
}

// Random picks a non-tablet device. rng may be nil.
func (c *Catalog) Random(rng *rand.Rand) Descriptor {
	var pool []Descriptor
	for _, d := range c.list {
		if !d.Tablet() {
			pool = append(pool, d)
		}
	}
	if len(pool) == 0 {
		return c.Lookup(DefaultID)
	}
	if rng == nil {
		return pool[rand.IntN(len(pool))]
	}
	return pool[rng.IntN(len(pool))]
}

// Len reports the number of descriptors.
func (c *Catalog) Len() int { return len(c.list) }

// Package-level shortcuts over the built-in catalog.

func Lookup(id string) Descriptor            { return defaultCatalog.Lookup(id) }
func ListByPlatform(p Platform) []Descriptor { return defaultCatalog.ListByPlatform(p) }
func DefaultFor(p Platform) Descriptor       { return defaultCatalog.DefaultFor(p) }
func Random(rng *rand.Rand) Descriptor       { return defaultCatalog.Random(rng) }
