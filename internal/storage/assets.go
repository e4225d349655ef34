/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"shotframe/internal/assets"
	applog "shotframe/internal/log"
)

// AssetsDirName holds images copied into a project.
const AssetsDirName = "assets"

// ImportAsset copies the image at path into the project's assets folder and
// returns its project-relative source, e.g. assets/home.png. A file with the
// same name and content is reused; a different one gets a numbered name.
func ImportAsset(root, path string) (string, error) {
	if strings.TrimSpace(root) == "" || strings.TrimSpace(path) == "" {
		return "", errors.New("project root and image path are required")
	}
	dir := filepath.Join(root, AssetsDirName)
	if rel, err := filepath.Rel(dir, path); err == nil && filepath.IsAbs(path) && !strings.HasPrefix(rel, "..") {
		return AssetsDirName + "/" + filepath.ToSlash(rel), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("import asset: %w", err)
	}
	if len(data) > assets.MaxBytes {
		return "", fmt.Errorf("import %s: %w", path, assets.ErrTooLarge)
	}
	if _, _, err := assets.Decode(data); err != nil {
		return "", fmt.Errorf("import %s: %w", path, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	base := strings.ToLower(filepath.Base(path))
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	name := base
	for n := 2; ; n++ {
		target := filepath.Join(dir, name)
		existing, err := os.ReadFile(target)
		if errors.Is(err, os.ErrNotExist) {
			if err := writeFileSync(target, data); err != nil {
				return "", err
			}
			applog.WithComponent("storage").Debug("asset imported", slog.String("src", path), slog.String("name", name))
			break
		}
		if err != nil {
			return "", err
		}
		if bytes.Equal(existing, data) {
			break
		}
		name = stem + "-" + strconv.Itoa(n) + ext
	}
	return AssetsDirName + "/" + name, nil
}
