/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package log

import (
	"bufio"
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func lastJSONLine(t *testing.T, path string) map[string]any {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var last string
	sc := bufio.NewScanner(bytes.NewReader(b))
	for sc.Scan() {
		if s := strings.TrimSpace(sc.Text()); s != "" {
			last = s
		}
	}
	if last == "" {
		t.Fatalf("no log lines in %s", path)
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(last), &m); err != nil {
		t.Fatalf("unmarshal %q: %v", last, err)
	}
	return m
}

func TestInitWritesConsoleAndFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shotframe.log")
	var console bytes.Buffer
	Init(Options{Level: "debug", File: path, Writer: &console})
	t.Cleanup(func() { Init(Options{Writer: &bytes.Buffer{}}) })

	l := WithOperation(WithComponent("export"), "zip")
	l.Debug("archive written", slog.String("name", "My App_screenshots.zip"), slog.Int("files", 3))

	out := console.String()
	for _, want := range []string{"DBG archive written", "app=shotframe", "component=export", "op=zip", `name="My App_screenshots.zip"`, "files=3"} {
		if !strings.Contains(out, want) {
			t.Fatalf("console output %q lacks %q", out, want)
		}
	}

	m := lastJSONLine(t, path)
	if m["msg"] != "archive written" || m["component"] != "export" || m["op"] != "zip" {
		t.Fatalf("file record = %v", m)
	}
	if _, ok := m["ver"].(string); !ok {
		t.Fatalf("missing ver attr: %v", m)
	}
}

func TestSetLevelAppliesToCurrentLogger(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{Level: "warn", Writer: &buf})
	t.Cleanup(func() { Init(Options{Writer: &bytes.Buffer{}}) })

	L().Info("hidden")
	SetLevel("debug")
	L().Debug("shown")
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Fatalf("output = %q", out)
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{Format: "JSON", Writer: &buf})
	t.Cleanup(func() { Init(Options{Writer: &bytes.Buffer{}}) })

	L().Info("ready")
	var m map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &m); err != nil {
		t.Fatalf("not json: %q: %v", buf.String(), err)
	}
	if m["msg"] != "ready" || m["level"] != "INFO" {
		t.Fatalf("record = %v", m)
	}
}
