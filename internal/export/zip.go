/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"shotframe/internal/project"
)

// ZIPName is the archive name for a project: <name>_screenshots.zip.
func ZIPName(projectName string) string {
	return SanitizeFileName(projectName) + "_screenshots.zip"
}

// WriteZIP stores files under folder/ in a deflated archive.
func WriteZIP(w io.Writer, folder string, files []File) error {
	zw := zip.NewWriter(w)
	for _, f := range files {
		fw, err := zw.CreateHeader(&zip.FileHeader{Name: folder + "/" + f.Name, Method: zip.Deflate})
		if err != nil {
			_ = zw.Close()
			return fmt.Errorf("zip entry %s: %w", f.Name, err)
		}
		if _, err := fw.Write(f.Data); err != nil {
			_ = zw.Close()
			return fmt.Errorf("zip write %s: %w", f.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("zip close: %w", err)
	}
	return nil
}

// ZIP exports the selected screens into one archive. When outPath is a
// directory (or ends with a separator) the archive is named by ZIPName.
// It returns the written path.
func ZIP(ctx context.Context, p *project.Project, r Renderer, opt Options, outPath string) (string, error) {
	files, err := Encoded(ctx, p, r, opt)
	if err != nil {
		return "", err
	}
	if fi, err := os.Stat(outPath); (err == nil && fi.IsDir()) || strings.HasSuffix(outPath, string(filepath.Separator)) {
		outPath = filepath.Join(outPath, ZIPName(p.Name))
	}
	if !strings.HasSuffix(strings.ToLower(outPath), ".zip") {
		outPath += ".zip"
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", fmt.Errorf("ensure out dir: %w", err)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return "", fmt.Errorf("create zip: %w", err)
	}
	if err := WriteZIP(f, SanitizeFileName(p.Name), files); err != nil {
		_ = f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close zip: %w", err)
	}
	return outPath, nil
}
