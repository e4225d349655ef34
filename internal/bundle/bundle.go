/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package bundle packs a project folder into a single zip that opens on
// another machine: the manifest plus every image imported under assets/.
package bundle

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"shotframe/internal/assets"
	applog "shotframe/internal/log"
	"shotframe/internal/project"
	"shotframe/internal/storage"
)

// ManifestName is the human readable summary at the root of a bundle.
const ManifestName = "bundle.manifest.txt"

// ErrNoProject is returned by Unpack for archives without a project manifest.
var ErrNoProject = errors.New("bundle: archive holds no project")

// Report describes a packed bundle. External lists file sources outside
// the project's assets folder; they are referenced but not packed.
type Report struct {
	Files    int
	External []string
}

// Pack writes the project at root into dest.
func Pack(root, dest string) (Report, error) {
	l := applog.WithOperation(applog.WithComponent("bundle"), "pack").With(slog.String("project", root))
	var rep Report
	if strings.TrimSpace(root) == "" || strings.TrimSpace(dest) == "" {
		return rep, errors.New("project root and destination are required")
	}
	ph, err := storage.Open(root)
	if err != nil {
		return rep, err
	}
	for _, src := range project.Sources(ph.Project) {
		if external(src) {
			rep.External = append(rep.External, src)
			l.Warn("image not in assets, bundle will not carry it", slog.String("src", src))
		}
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return rep, fmt.Errorf("ensure bundle dir: %w", err)
	}
	_ = os.Remove(dest)
	zf, err := os.Create(dest)
	if err != nil {
		return rep, fmt.Errorf("create bundle: %w", err)
	}
	defer func() { _ = zf.Close() }()
	zw := zip.NewWriter(zf)

	p := ph.Project
	summary := fmt.Sprintf("shotframe bundle\nCreated: %s\nProject: %s (%s)\nPlatform: %s\nScreens: %d\n",
		time.Now().Format(time.RFC3339), p.Name, p.ID, p.Platform, len(p.Screens))
	w, err := zw.Create(ManifestName)
	if err != nil {
		return rep, fmt.Errorf("add manifest: %w", err)
	}
	if _, err := io.WriteString(w, summary); err != nil {
		return rep, fmt.Errorf("write manifest: %w", err)
	}
	if err := addFile(zw, ph.ManifestPath, storage.ManifestFileName); err != nil {
		return rep, err
	}
	rep.Files++

	adir := filepath.Join(root, storage.AssetsDirName)
	err = filepath.WalkDir(adir, func(p string, d fs.DirEntry, err error) error {
		if errors.Is(err, fs.ErrNotExist) && p == adir {
			return fs.SkipAll
		}
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		if err := addFile(zw, p, filepath.ToSlash(rel)); err != nil {
			return err
		}
		rep.Files++
		return nil
	})
	if err != nil {
		l.Error("bundle build failed", slog.Any("err", err))
		return rep, fmt.Errorf("build bundle: %w", err)
	}
	if err := zw.Close(); err != nil {
		return rep, fmt.Errorf("close bundle: %w", err)
	}
	l.Info("bundle packed", slog.Int("files", rep.Files), slog.String("zip", dest))
	return rep, nil
}

func external(src string) bool {
	switch {
	case src == "", strings.HasPrefix(src, "data:"),
		strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		return false
	case strings.HasPrefix(src, storage.AssetsDirName+"/"):
		return false
	}
	return true
}

func addFile(zw *zip.Writer, src, name string) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, f)
	return err
}

// Unpack extracts the bundle at src into dest and opens the project.
// Only the manifest and assets/ entries are extracted; entries escaping
// dest are ignored and existing files are kept. It returns the number of
// files written.
func Unpack(ctx context.Context, src, dest string) (*storage.ProjectHandle, int, error) {
	l := applog.WithOperation(applog.WithComponent("bundle"), "unpack").With(slog.String("project", dest))
	if strings.TrimSpace(src) == "" || strings.TrimSpace(dest) == "" {
		return nil, 0, errors.New("bundle path and destination are required")
	}
	r, err := zip.OpenReader(src)
	if err != nil {
		return nil, 0, fmt.Errorf("open bundle: %w", err)
	}
	defer func() { _ = r.Close() }()

	var hasManifest bool
	for _, f := range r.File {
		if f.Name == storage.ManifestFileName {
			hasManifest = true
		}
	}
	if !hasManifest {
		return nil, 0, ErrNoProject
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return nil, 0, err
	}

	written := 0
	for _, f := range r.File {
		name := path.Clean(f.Name)
		if name != storage.ManifestFileName && !strings.HasPrefix(name, storage.AssetsDirName+"/") {
			continue
		}
		if !filepath.IsLocal(filepath.FromSlash(name)) {
			l.Warn("skip entry outside project", slog.String("entry", f.Name))
			continue
		}
		target := filepath.Join(dest, filepath.FromSlash(name))
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return nil, written, err
			}
			continue
		}
		if _, err := os.Stat(target); err == nil {
			l.Warn("skip existing file", slog.String("path", target))
			continue
		}
		if err := extract(f, target); err != nil {
			return nil, written, err
		}
		written++
	}

	ph, err := storage.Open(dest)
	if err != nil {
		return nil, written, err
	}
	if err := storage.RebuildIndex(ctx, dest, ph.Project); err != nil {
		l.Warn("index build failed", slog.Any("err", err))
	}
	l.Info("bundle unpacked", slog.Int("files", written))
	return ph, written, nil
}

func extract(f *zip.File, target string) error {
	if f.UncompressedSize64 > assets.MaxBytes {
		return fmt.Errorf("%s: %w", f.Name, assets.ErrTooLarge)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, io.LimitReader(rc, assets.MaxBytes)); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
