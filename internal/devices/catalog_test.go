/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package devices

import (
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"
)

func TestBuiltinCatalog(t *testing.T) {
	if n := Default().Len(); n != 20 {
		t.Fatalf("expected 20 built-in devices, got %d", n)
	}
	for _, d := range ListByPlatform(All) {
		if err := d.Validate(); err != nil {
			t.Fatalf("builtin %s invalid: %v", d.ID, err)
		}
	}
	ios, android := ListByPlatform(IOS), ListByPlatform(Android)
	if len(ios)+len(android) != 20 || len(ios) != 11 {
		t.Fatalf("unexpected platform split ios=%d android=%d", len(ios), len(android))
	}
	if ios[0].ID != "iphone-15-pro-max" || android[0].ID != "pixel-8-pro" {
		t.Fatalf("catalog order not preserved: %s %s", ios[0].ID, android[0].ID)
	}
}

func TestLookupFallsBackToDefault(t *testing.T) {
	if d := Lookup("galaxy-s24"); d.Notch != PunchHole || d.Platform != Android {
		t.Fatalf("unexpected descriptor %+v", d)
	}
	d, ok := Default().Find("nokia-3310")
	if ok || d.ID != DefaultID {
		t.Fatalf("unknown id should fall back to %s, got %s ok=%v", DefaultID, d.ID, ok)
	}
	if Lookup("").ID != DefaultID {
		t.Fatalf("empty id should fall back")
	}
}

func TestDefaultFor(t *testing.T) {
	if DefaultFor(IOS).ID != "iphone-15-pro" || DefaultFor(Android).ID != "pixel-8-pro" {
		t.Fatalf("unexpected platform defaults")
	}
}

func TestHomeButtonOnlyOnLegacyDevice(t *testing.T) {
	for _, d := range ListByPlatform(All) {
		if d.HomeButton != (d.ID == "iphone-se") {
			t.Fatalf("home button flag wrong on %s", d.ID)
		}
	}
}

func TestRandomExcludesTablets(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 200; i++ {
		if d := Random(rng); d.Tablet() {
			t.Fatalf("random picked tablet %s", d.ID)
		}
	}
}

func TestColorsFallback(t *testing.T) {
	if Colors(White).Frame != "#F5F5F7" {
		t.Fatalf("white palette wrong")
	}
	if Colors("gold") != Colors(Black) || FrameColor("gold").Normalize() != Black {
		t.Fatalf("unknown color should map to black")
	}
}

func TestLoadOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "devices.yaml")
	yml := `devices:
  - id: pixel-9
    name: Google Pixel 9
    width: 412
    height: 915
    cornerRadius: 44
    notch: punch-hole
    bezel: 3
    platform: android
  - id: iphone-se
    name: iPhone SE (3rd gen)
    width: 375
    height: 667
    cornerRadius: 30
    notch: none
    bezel: 6
    platform: ios
    homeButton: true
`
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := LoadOverlay(path)
	if err != nil {
		t.Fatalf("overlay: %v", err)
	}
	if c.Len() != 21 {
		t.Fatalf("expected 21 devices, got %d", c.Len())
	}
	if d := c.Lookup("iphone-se"); d.BezelWidth != 6 || d.DisplayName != "iPhone SE (3rd gen)" {
		t.Fatalf("override not applied: %+v", d)
	}
	if got := c.ListByPlatform(Android); got[len(got)-1].ID != "pixel-9" {
		t.Fatalf("new device should be appended")
	}
	if Default().Len() != 20 {
		t.Fatalf("overlay must not mutate the built-in catalog")
	}
}

func TestLoadOverlayRejectsBadRadius(t *testing.T) {
	_, err := ParseOverlay([]byte(`devices:
  - id: blob
    width: 100
    height: 200
    cornerRadius: 60
    notch: none
    platform: ios
`))
	if err == nil {
		t.Fatalf("corner radius above half the short side must be rejected")
	}
	if _, err := ParseOverlay([]byte("devices: [")); err == nil {
		t.Fatalf("malformed yaml must fail")
	}
}
