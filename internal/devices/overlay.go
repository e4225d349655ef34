/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package devices

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	applog "shotframe/internal/log"
)

type overlayFile struct {
	Devices []Descriptor `yaml:"devices"`
}

// LoadOverlay reads a YAML file of extra or overriding descriptors and
// returns the built-in catalog merged with it. Entries with an existing id
// replace the built-in one in place; new ids are appended. Any invalid entry
// rejects the whole file.
func LoadOverlay(path string) (*Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read device catalog: %w", err)
	}
	return ParseOverlay(b)
}

// ParseOverlay is LoadOverlay for in-memory YAML.
func ParseOverlay(data []byte) (*Catalog, error) {
	var f overlayFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse device catalog: %w", err)
	}
	merged := append(append([]Descriptor(nil), builtin...), f.Devices...)
	c, err := NewCatalog(merged)
	if err != nil {
		return nil, err
	}
	applog.WithComponent("devices").Debug("catalog overlay loaded", slog.Int("entries", len(f.Devices)), slog.Int("total", c.Len()))
	return c, nil
}
