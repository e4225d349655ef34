/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crash turns panics in the CLI and UI into a crash report and an
// autosave of the open project.
package crash

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	applog "shotframe/internal/log"
	"shotframe/internal/storage"
	"shotframe/internal/telemetry"
	"shotframe/internal/version"
)

// exitFn is used to allow testing of Recover without terminating the test process.
var exitFn = os.Exit

// Recover captures a panic, logs it with its stack, writes a report and
// autosaves the project manifest of ph (if provided). It exits with code 2.
//
// Usage: defer crash.Recover(ph)
func Recover(ph *storage.ProjectHandle) {
	if r := recover(); r != nil {
		handle(ph, nil, r)
	}
}

// RecoverWith is Recover with a hook that copies the live screen into the
// project before the autosave, typically Editor.Store.
//
// Usage: defer crash.RecoverWith(ph, editor.Store)
func RecoverWith(ph *storage.ProjectHandle, store func() error) {
	if r := recover(); r != nil {
		handle(ph, store, r)
	}
}

// RecoverLazy is RecoverWith for a project opened after the deferral;
// target is asked for the handle and store hook only when a panic occurs.
//
// Usage: defer crash.RecoverLazy(func() (*storage.ProjectHandle, func() error) { return ph, store })
func RecoverLazy(target func() (*storage.ProjectHandle, func() error)) {
	if r := recover(); r != nil {
		var (
			ph    *storage.ProjectHandle
			store func() error
		)
		if target != nil {
			ph, store = target()
		}
		handle(ph, store, r)
	}
}

func handle(ph *storage.ProjectHandle, store func() error, r any) {
	l := applog.WithComponent("crash")
	stack := debug.Stack()
	l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

	report := formatReport(ph, r, stack)
	reportPath, err := saveReport(ph, report)
	if err != nil {
		l.Error("crash report not written", slog.Any("err", err))
	}
	if ph != nil && ph.Project != nil {
		if store != nil {
			storeLive(l, store)
		}
		if path, err := storage.AutosaveCrashSnapshot(ph); err != nil {
			l.Error("autosave crash snapshot failed", slog.Any("err", err))
		} else {
			l.Info("autosave crash snapshot written", slog.String("path", path))
		}
	}
	telemetry.ReportCrash(crashInfo(ph, r), report)

	if _, err := fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath); err != nil {
		l.Error("failed to write crash message to stderr", slog.Any("err", err))
	}
	if _, err := fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH); err != nil {
		l.Error("failed to write version info to stderr", slog.Any("err", err))
	}
	exitFn(2)
}

// storeLive runs store; the session may be the thing that panicked, so a
// second panic is swallowed.
func storeLive(l *slog.Logger, store func() error) {
	defer func() {
		if r := recover(); r != nil {
			l.Warn("storing live screen panicked", slog.Any("panic", r))
		}
	}()
	if err := store(); err != nil {
		l.Warn("storing live screen failed", slog.Any("err", err))
	}
}

func crashInfo(ph *storage.ProjectHandle, r any) telemetry.Crash {
	c := telemetry.Crash{PanicType: fmt.Sprintf("%T", r)}
	if ph != nil && ph.Project != nil {
		c.Screens = len(ph.Project.Screens)
	}
	return c
}

func formatReport(ph *storage.ProjectHandle, panicVal any, stack []byte) []byte {
	var buf bytes.Buffer
	_, _ = fmt.Fprintf(&buf, "shotframe crash report\n")
	_, _ = fmt.Fprintf(&buf, "Timestamp: %s\n", time.Now().Format(time.RFC3339))
	_, _ = fmt.Fprintf(&buf, "Version: %s\n", version.String())
	_, _ = fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if ph != nil {
		_, _ = fmt.Fprintf(&buf, "ProjectRoot: %s\n", ph.Root)
		if ph.Project != nil {
			_, _ = fmt.Fprintf(&buf, "Platform: %s\nScreens: %d\n", ph.Project.Platform, len(ph.Project.Screens))
		}
	}
	_, _ = fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	_, _ = fmt.Fprintf(&buf, "Stack:\n%s\n", string(stack))
	return buf.Bytes()
}

// saveReport writes report into the project's backups folder, or the temp
// dir without a project, and returns its path.
func saveReport(ph *storage.ProjectHandle, report []byte) (string, error) {
	dir := os.TempDir()
	if ph != nil && ph.Root != "" {
		dir = filepath.Join(ph.Root, storage.BackupsDirName)
		_ = os.MkdirAll(dir, 0o755)
	}
	path := filepath.Join(dir, fmt.Sprintf("crash-%s.log", time.Now().Format("20060102-150405")))
	if err := os.WriteFile(path, report, 0o644); err != nil {
		return path, err
	}
	return path, nil
}
