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
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func writeImage(t *testing.T, path string, w int) {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, 4))); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestImportAsset(t *testing.T) {
	root := t.TempDir()
	src := t.TempDir()
	a := filepath.Join(src, "Home.png")
	writeImage(t, a, 3)

	rel, err := ImportAsset(root, a)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if rel != "assets/home.png" {
		t.Fatalf("rel = %q", rel)
	}
	if again, err := ImportAsset(root, a); err != nil || again != rel {
		t.Fatalf("same file should be reused: %q %v", again, err)
	}

	other := filepath.Join(t.TempDir(), "home.png")
	writeImage(t, other, 5)
	rel2, err := ImportAsset(root, other)
	if err != nil {
		t.Fatalf("import other: %v", err)
	}
	if rel2 != "assets/home-2.png" {
		t.Fatalf("rel2 = %q", rel2)
	}

	inside := filepath.Join(root, AssetsDirName, "home.png")
	if got, err := ImportAsset(root, inside); err != nil || got != rel {
		t.Fatalf("file already in assets: %q %v", got, err)
	}

	bad := filepath.Join(src, "notes.txt")
	if err := os.WriteFile(bad, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ImportAsset(root, bad); err == nil {
		t.Fatalf("expected error for non-image")
	}
}
