/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package compose

import (
	"errors"
	"fmt"
	"strings"

	"shotframe/internal/devices"
)

// Template is a background with a matching frame color.
type Template struct {
	ID         string
	Name       string
	Category   string
	Background string
	Color      devices.FrameColor
}

// templateDevice is added when a template is applied to a screen without a
// frame.
const templateDevice = "iphone-15-pro-max"

var templates = []Template{
	{ID: "clean-minimal", Name: "Clean Minimal", Category: "Minimal", Background: "linear-gradient(180deg, #1A1A24 0%, #0A0A0F 100%)", Color: devices.Black},
	{ID: "ocean-gradient", Name: "Ocean Gradient", Category: "Gradient", Background: "linear-gradient(135deg, #0077B6 0%, #00B4D8 100%)", Color: devices.Black},
	{ID: "sunset-vibes", Name: "Sunset Vibes", Category: "Gradient", Background: "linear-gradient(135deg, #EC4899 0%, #06B6D4 100%)", Color: devices.White},
	{ID: "forest-fresh", Name: "Forest Fresh", Category: "Gradient", Background: "linear-gradient(135deg, #6D28D9 0%, #8B5CF6 100%)", Color: devices.Black},
	{ID: "bold-black", Name: "Bold Black", Category: "Bold", Background: "#000000", Color: devices.White},
	{ID: "pure-white", Name: "Pure White", Category: "Minimal", Background: "#FFFFFF", Color: devices.Black},
	{ID: "tech-purple", Name: "Tech Purple", Category: "Tech", Background: "linear-gradient(135deg, #A78BFA 0%, #7C3AED 100%)", Color: devices.Black},
	{ID: "aurora", Name: "Aurora", Category: "Gradient", Background: "linear-gradient(135deg, #8B5CF6 0%, #5B9FFF 50%, #A78BFA 100%)", Color: devices.White},
}

// ErrTemplate is returned for an unknown template id.
var ErrTemplate = errors.New("compose: unknown template")

// Templates returns the built-in templates in display order.
func Templates() []Template { return append([]Template(nil), templates...) }

// TemplateByID looks a template up by id or name, case-insensitively.
func TemplateByID(id string) (Template, error) {
	for _, t := range templates {
		if strings.EqualFold(t.ID, id) || strings.EqualFold(t.Name, id) {
			return t, nil
		}
	}
	return Template{}, fmt.Errorf("%w: %q", ErrTemplate, id)
}

// ApplyTemplate sets the template's background. A screen without a frame
// also gets the template device in the template's color; an existing frame
// is left as it is.
func (s *Session) ApplyTemplate(id string) error {
	t, err := TemplateByID(id)
	if err != nil {
		return err
	}
	return s.do("apply template", func() error {
		s.setBackground(t.Background)
		if s.frame() == nil {
			s.addDevice(templateDevice, t.Color)
		}
		return nil
	})
}
