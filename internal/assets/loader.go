/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package assets fetches and decodes bitmap sources (file paths, file://,
// data: and http(s) URLs) and caches the decoded images by source string.
// Loads run off the UI loop; completions are handed back through a Poster.
package assets

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/h2non/filetype"
	"golang.org/x/image/bmp"
	"golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"

	applog "shotframe/internal/log"
)

// MaxBytes caps a single source; screenshots are a few MB at most.
const MaxBytes = 64 << 20

var (
	ErrUnsupported = errors.New("assets: unsupported image type")
	ErrTooLarge    = errors.New("assets: source exceeds size limit")
)

// Poster runs a function on the UI loop.
type Poster interface {
	Post(fn func())
}

// Loader is safe for concurrent use.
type Loader struct {
	mu     sync.RWMutex
	cache  map[string]image.Image
	poster Poster
	client *http.Client
	root   string
	log    *slog.Logger
}

// NewLoader returns a loader delivering async completions through p. A nil
// p runs completions on the loading goroutine.
func NewLoader(p Poster) *Loader {
	return &Loader{
		cache:  make(map[string]image.Image),
		poster: p,
		client: &http.Client{Timeout: 30 * time.Second},
		log:    applog.WithComponent("assets"),
	}
}

// SetRoot makes relative file sources resolve against dir, usually the
// project folder. Cache keys stay the sources as given.
func (l *Loader) SetRoot(dir string) {
	l.mu.Lock()
	l.root = dir
	l.mu.Unlock()
}

// Image returns a cached image. It never blocks and never fetches.
func (l *Loader) Image(src string) (image.Image, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	img, ok := l.cache[src]
	return img, ok
}

// Put registers an already decoded image under src.
func (l *Loader) Put(src string, img image.Image) {
	l.mu.Lock()
	l.cache[src] = img
	l.mu.Unlock()
}

// Forget drops src from the cache.
func (l *Loader) Forget(src string) {
	l.mu.Lock()
	delete(l.cache, src)
	l.mu.Unlock()
}

// Len reports the number of cached images.
func (l *Loader) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.cache)
}

// Load resolves src and calls done with the result. Cached sources complete
// synchronously; others are fetched on a goroutine and done is posted.
func (l *Loader) Load(src string, done func(image.Image, error)) {
	if img, ok := l.Image(src); ok {
		done(img, nil)
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		img, err := l.LoadSync(ctx, src)
		if l.poster == nil {
			done(img, err)
			return
		}
		l.poster.Post(func() { done(img, err) })
	}()
}

// LoadSync fetches and decodes src on the calling goroutine and caches it.
func (l *Loader) LoadSync(ctx context.Context, src string) (image.Image, error) {
	if img, ok := l.Image(src); ok {
		return img, nil
	}
	data, err := l.read(ctx, src)
	if err != nil {
		return nil, err
	}
	img, format, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", describe(src), err)
	}
	l.log.Debug("image loaded", slog.String("src", describe(src)), slog.String("format", format),
		slog.Int("w", img.Bounds().Dx()), slog.Int("h", img.Bounds().Dy()))
	l.Put(src, img)
	return img, nil
}

// Preload loads srcs in parallel. The first error is returned; successful
// loads stay cached.
func (l *Loader) Preload(ctx context.Context, srcs []string) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, s := range srcs {
		if s == "" {
			continue
		}
		g.Go(func() error {
			_, err := l.LoadSync(ctx, s)
			return err
		})
	}
	return g.Wait()
}

func (l *Loader) read(ctx context.Context, src string) ([]byte, error) {
	switch {
	case strings.HasPrefix(src, "data:"):
		return decodeDataURL(src)
	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", src, err)
		}
		resp, err := l.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", src, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("fetch %s: status %d", src, resp.StatusCode)
		}
		return readLimited(resp.Body)
	case strings.HasPrefix(src, "file://"):
		u, err := url.Parse(src)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", src, err)
		}
		return readFile(u.Path)
	default:
		l.mu.RLock()
		root := l.root
		l.mu.RUnlock()
		if root != "" && !filepath.IsAbs(src) {
			src = filepath.Join(root, filepath.FromSlash(src))
		}
		return readFile(src)
	}
}

func readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()
	return readLimited(f)
}

func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if len(data) > MaxBytes {
		return nil, ErrTooLarge
	}
	return data, nil
}

// Decode sniffs data and decodes it with the matching codec. format is the
// sniffed extension (png, jpg, gif, webp, bmp).
func Decode(data []byte) (image.Image, string, error) {
	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown {
		return nil, "", ErrUnsupported
	}
	r := bytes.NewReader(data)
	var img image.Image
	switch kind.Extension {
	case "png":
		img, err = png.Decode(r)
	case "jpg":
		img, err = jpeg.Decode(r)
	case "gif":
		img, err = gif.Decode(r)
	case "webp":
		img, err = webp.Decode(r)
	case "bmp":
		img, err = bmp.Decode(r)
	default:
		return nil, kind.Extension, fmt.Errorf("%w: %s", ErrUnsupported, kind.MIME.Value)
	}
	if err != nil {
		return nil, kind.Extension, err
	}
	return img, kind.Extension, nil
}

func decodeDataURL(src string) ([]byte, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(src, "data:"), ",")
	if !ok {
		return nil, errors.New("malformed data url")
	}
	if strings.HasSuffix(meta, ";base64") {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("data url: %w", err)
		}
		return data, nil
	}
	s, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("data url: %w", err)
	}
	return []byte(s), nil
}

// DataURL embeds data as a base64 data URL with the sniffed MIME type.
func DataURL(data []byte) string {
	mime := "application/octet-stream"
	if kind, err := filetype.Match(data); err == nil && kind != filetype.Unknown {
		mime = kind.MIME.Value
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// PNGDataURL encodes img as PNG and returns it as a data URL.
func PNGDataURL(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode png: %w", err)
	}
	return DataURL(buf.Bytes()), nil
}

// describe keeps data URLs out of logs and error messages.
func describe(src string) string {
	if strings.HasPrefix(src, "data:") {
		if i := strings.IndexByte(src, ','); i > 0 {
			return src[:i] + ",…"
		}
		return "data:…"
	}
	return src
}
