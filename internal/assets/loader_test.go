/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package assets

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"shotframe/internal/loop"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.NRGBA{255, 0, 0, 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func TestDecode_SniffsFormats(t *testing.T) {
	img, format, err := Decode(pngBytes(t, 3, 2))
	if err != nil {
		t.Fatalf("Decode png: %v", err)
	}
	if format != "png" || img.Bounds() != image.Rect(0, 0, 3, 2) {
		t.Fatalf("png: format=%q bounds=%v", format, img.Bounds())
	}

	var jb bytes.Buffer
	if err := jpeg.Encode(&jb, image.NewRGBA(image.Rect(0, 0, 4, 4)), nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	if _, format, err = Decode(jb.Bytes()); err != nil || format != "jpg" {
		t.Fatalf("jpeg: format=%q err=%v", format, err)
	}

	if _, _, err = Decode([]byte("definitely not an image")); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}

func TestLoadSync_Sources(t *testing.T) {
	data := pngBytes(t, 5, 7)
	dir := t.TempDir()
	path := filepath.Join(dir, "shot.png")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/shot.png" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(data)
	}))
	defer srv.Close()

	l := NewLoader(nil)
	ctx := context.Background()
	for _, src := range []string{path, "file://" + path, DataURL(data), srv.URL + "/shot.png"} {
		img, err := l.LoadSync(ctx, src)
		if err != nil {
			t.Fatalf("%s: %v", src, err)
		}
		if img.Bounds().Dx() != 5 {
			t.Fatalf("%s: width %d", src, img.Bounds().Dx())
		}
		if cached, ok := l.Image(src); !ok || cached != img {
			t.Fatalf("%s: not cached", src)
		}
	}
	if _, err := l.LoadSync(ctx, srv.URL+"/missing.png"); err == nil {
		t.Fatalf("expected error for a 404")
	}
	if _, err := l.LoadSync(ctx, filepath.Join(dir, "nope.png")); err == nil {
		t.Fatalf("expected error for a missing file")
	}
}

func TestLoad_CachedCompletesSynchronously(t *testing.T) {
	l := NewLoader(loop.New())
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	l.Put("mem://a", img)
	var got image.Image
	var gotErr error
	called := false
	l.Load("mem://a", func(i image.Image, err error) {
		called, got, gotErr = true, i, err
	})
	if !called {
		t.Fatalf("cached load must complete before Load returns")
	}
	if gotErr != nil || got != image.Image(img) {
		t.Fatalf("cached load returned %v, %v", got, gotErr)
	}
}

func TestLoad_AsyncCompletesOnLoop(t *testing.T) {
	lp := loop.New()
	l := NewLoader(lp)
	src := DataURL(pngBytes(t, 2, 2))
	var got image.Image
	var loadErr error
	done := false
	l.Load(src, func(img image.Image, err error) {
		got, loadErr, done = img, err, true
	})
	deadline := time.After(5 * time.Second)
	for !done {
		select {
		case <-lp.Wake():
			lp.Drain()
		case <-deadline:
			t.Fatalf("load did not complete")
		}
	}
	if loadErr != nil || got == nil {
		t.Fatalf("async load: %v", loadErr)
	}
	if l.Len() != 1 {
		t.Fatalf("cache holds %d images", l.Len())
	}
}

func TestPreload_ReportsFailure(t *testing.T) {
	l := NewLoader(nil)
	good := DataURL(pngBytes(t, 1, 1))
	if err := l.Preload(context.Background(), []string{good, "data:image/png;base64,!!!"}); err == nil {
		t.Fatalf("expected preload error")
	}
	if _, ok := l.Image(good); !ok {
		t.Fatalf("good source must still be cached")
	}
}

func TestPNGDataURL_RoundTrip(t *testing.T) {
	src, err := PNGDataURL(image.NewRGBA(image.Rect(0, 0, 6, 3)))
	if err != nil {
		t.Fatalf("PNGDataURL: %v", err)
	}
	if !strings.HasPrefix(src, "data:image/png;base64,") {
		t.Fatalf("unexpected data url %.40s", src)
	}
	img, err := NewLoader(nil).LoadSync(context.Background(), src)
	if err != nil || img.Bounds().Dx() != 6 {
		t.Fatalf("reload: %v", err)
	}
	if got := describe(src); got != "data:image/png;base64,…" {
		t.Fatalf("describe = %q", got)
	}
}

func TestLoadSync_RelativeToRoot(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "assets"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "assets", "a.png"), pngBytes(t, 2, 9), 0o644); err != nil {
		t.Fatal(err)
	}

	l := NewLoader(nil)
	if _, err := l.LoadSync(context.Background(), "assets/a.png"); err == nil {
		t.Fatalf("without a root the path resolves against the working directory")
	}

	l.SetRoot(root)
	img, err := l.LoadSync(context.Background(), "assets/a.png")
	if err != nil {
		t.Fatalf("LoadSync: %v", err)
	}
	if img.Bounds().Dy() != 9 {
		t.Fatalf("height = %d", img.Bounds().Dy())
	}
	if _, ok := l.Image("assets/a.png"); !ok {
		t.Fatalf("relative source not cached under its own name")
	}
}
