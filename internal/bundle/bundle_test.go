/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package bundle

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"shotframe/internal/compose"
	"shotframe/internal/devices"
	"shotframe/internal/project"
	"shotframe/internal/storage"
)

func pngFile(t *testing.T, path string) {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 6, 12))); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

// newProject creates a project whose first screen shows an imported
// screenshot and, when external is set, a free image outside assets/.
func newProject(t *testing.T, external string) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "app")
	if _, err := storage.InitProject(root, project.New("Notes", devices.IOS)); err != nil {
		t.Fatalf("init: %v", err)
	}
	shot := filepath.Join(t.TempDir(), "home.png")
	pngFile(t, shot)
	src, err := storage.ImportAsset(root, shot)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	ctx := context.Background()
	ph, ws, err := storage.OpenWorkspace(ctx, root, project.WorkspaceOptions{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	srcs := []string{src}
	if external != "" {
		srcs = append(srcs, external)
	}
	if err := ws.Preload(ctx, srcs...); err != nil {
		t.Fatalf("preload: %v", err)
	}
	if err := ws.Session().AddScreenshot(src); err != nil {
		t.Fatalf("screenshot: %v", err)
	}
	if err := ws.Settle(ctx); err != nil {
		t.Fatalf("settle: %v", err)
	}
	if external != "" {
		if err := ws.Session().ClearCanvas(); err != nil {
			t.Fatalf("clear: %v", err)
		}
		if err := ws.Session().AddScreenshot(external); err != nil {
			t.Fatalf("free image: %v", err)
		}
		if err := ws.Settle(ctx); err != nil {
			t.Fatalf("settle: %v", err)
		}
	}
	if err := ws.Session().AddText("Capture ideas", compose.TextOptions{}); err != nil {
		t.Fatalf("text: %v", err)
	}
	if err := storage.CloseWorkspace(ctx, ph, ws, nil); err != nil {
		t.Fatalf("close: %v", err)
	}
	return root
}

func TestPackAndUnpack(t *testing.T) {
	root := newProject(t, "")
	zipPath := filepath.Join(t.TempDir(), "notes.zip")
	rep, err := Pack(root, zipPath)
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	if rep.Files != 2 || len(rep.External) != 0 {
		t.Fatalf("report = %+v", rep)
	}

	r, err := zip.OpenReader(zipPath)
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	names := map[string]bool{}
	for _, f := range r.File {
		names[f.Name] = true
	}
	_ = r.Close()
	for _, want := range []string{ManifestName, storage.ManifestFileName, "assets/home.png"} {
		if !names[want] {
			t.Fatalf("missing %s in %v", want, names)
		}
	}

	dest := filepath.Join(t.TempDir(), "copy")
	ph, n, err := Unpack(context.Background(), zipPath, dest)
	if err != nil {
		t.Fatalf("unpack: %v", err)
	}
	if n != 2 {
		t.Fatalf("written = %d", n)
	}
	if ph.Project.Name != "Notes" {
		t.Fatalf("name = %q", ph.Project.Name)
	}

	// The copy renders its screenshot from its own assets folder.
	ctx := context.Background()
	_, ws, err := storage.OpenWorkspace(ctx, dest, project.WorkspaceOptions{})
	if err != nil {
		t.Fatalf("open copy: %v", err)
	}
	if _, ok := ws.Images.Image("assets/home.png"); !ok {
		t.Fatalf("screenshot not loaded from the unpacked assets")
	}
	res, err := storage.Search(ctx, dest, storage.SearchQuery{Text: "ideas"})
	if err != nil || len(res) != 1 {
		t.Fatalf("search after unpack: %v %v", res, err)
	}
}

func TestPackReportsExternalImages(t *testing.T) {
	ext := filepath.Join(t.TempDir(), "outside.png")
	pngFile(t, ext)
	root := newProject(t, ext)
	rep, err := Pack(root, filepath.Join(t.TempDir(), "b.zip"))
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	if len(rep.External) != 1 || rep.External[0] != ext {
		t.Fatalf("external = %v", rep.External)
	}
}

func TestPackRequiresProject(t *testing.T) {
	if _, err := Pack("", ""); err == nil {
		t.Fatalf("expected error on empty args")
	}
	if _, err := Pack(t.TempDir(), filepath.Join(t.TempDir(), "x.zip")); err == nil {
		t.Fatalf("expected error for a folder without project")
	}
}

func writeZip(t *testing.T, path string, entries map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create zip: %v", err)
	}
	zw := zip.NewWriter(f)
	for name, body := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create entry %s: %v", name, err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatalf("write entry: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip writer: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close zip file: %v", err)
	}
}

func TestUnpack_ZipSlipAndSkipExisting(t *testing.T) {
	root := newProject(t, "")
	manifest, err := os.ReadFile(filepath.Join(root, storage.ManifestFileName))
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	zpath := filepath.Join(dir, "evil.zip")
	writeZip(t, zpath, map[string]string{
		storage.ManifestFileName: string(manifest),
		"assets/../../evil.txt":  "nope",
		"assets/keep.png":        "new",
		"scripts/run.sh":         "echo",
	})

	dest := filepath.Join(dir, "dest")
	keep := filepath.Join(dest, "assets", "keep.png")
	if err := os.MkdirAll(filepath.Dir(keep), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(keep, []byte("existing"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, n, err := Unpack(context.Background(), zpath, dest)
	if err != nil {
		t.Fatalf("unpack: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected only the manifest written, got %d", n)
	}
	if got, _ := os.ReadFile(keep); string(got) != "existing" {
		t.Fatalf("existing file overwritten: %q", got)
	}
	if _, err := os.Stat(filepath.Join(dir, "evil.txt")); err == nil {
		t.Fatalf("evil.txt should not exist")
	}
	if _, err := os.Stat(filepath.Join(dest, "scripts")); err == nil {
		t.Fatalf("entries outside the project layout should be ignored")
	}
}

func TestUnpack_NoProject(t *testing.T) {
	zpath := filepath.Join(t.TempDir(), "empty.zip")
	writeZip(t, zpath, map[string]string{"assets/a.png": "x"})
	if _, _, err := Unpack(context.Background(), zpath, t.TempDir()); !errors.Is(err, ErrNoProject) {
		t.Fatalf("err = %v, want ErrNoProject", err)
	}
}
