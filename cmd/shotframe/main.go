/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Command shotframe composes app store screenshots: device frames around
// screenshots, headlines and shapes, exported at store sizes.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"shotframe/internal/config"
	"shotframe/internal/crash"
	applog "shotframe/internal/log"
	"shotframe/internal/project"
	"shotframe/internal/storage"
	"shotframe/internal/telemetry"
	"shotframe/internal/ui"
	"shotframe/internal/version"
)

// cli carries state shared by subcommands. ph and ws are set once a
// command opened a project so a crash can autosave it.
type cli struct {
	cfg     config.AppConfig
	cfgPath string
	token   string
	log     *slog.Logger
	ph      *storage.ProjectHandle
	ws      *project.Workspace
}

func (c *cli) saveConfig() error {
	if c.cfgPath != "" {
		return config.SaveTo(c.cfgPath, c.cfg, c.token)
	}
	return config.Save(c.cfg, c.token)
}

func (c *cli) crashTarget() (*storage.ProjectHandle, func() error) {
	if c.ws == nil {
		return c.ph, nil
	}
	return c.ph, c.ws.Store
}

func main() {
	c := &cli{}
	defer crash.RecoverLazy(c.crashTarget)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := newRootCmd(c).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd(c *cli) *cobra.Command {
	var verbose bool
	root := &cobra.Command{
		Use:           "shotframe",
		Short:         "Compose device mockup screenshots for the app stores",
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			if c.cfgPath != "" {
				c.cfg, c.token, err = config.LoadFrom(c.cfgPath)
			} else {
				c.cfg, c.token, err = config.Load()
			}
			applog.Init(applog.Options{
				Level:     c.cfg.Logging.Level,
				Format:    c.cfg.Logging.Format,
				AddSource: c.cfg.Logging.Source,
				File:      c.cfg.Logging.File,
				Writer:    cmd.ErrOrStderr(),
			})
			if verbose {
				applog.SetLevel("debug")
			}
			c.log = applog.WithComponent("cli")
			cmd.SetContext(applog.ContextWith(cmd.Context(), slog.String("cmd", cmd.Name())))
			if err != nil {
				c.log.Warn("config not loaded; using defaults", slog.Any("err", err))
			}
			tc := telemetry.FromEnv()
			tc.OptIn = tc.OptIn || c.cfg.General.TelemetryOptIn
			telemetry.NewDefault(tc)
			c.log.DebugContext(cmd.Context(), "start", slog.String("path", cmd.CommandPath()))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			ctx, cancel := context.WithTimeout(cmd.Context(), time.Second)
			defer cancel()
			telemetry.Flush(ctx)
		},
	}
	root.PersistentFlags().BoolVar(&verbose, "verbose", false, "debug logging")
	root.PersistentFlags().StringVar(&c.cfgPath, "config", "", "config file (default is the user config dir)")
	root.SetVersionTemplate("shotframe {{.Version}}\n")
	root.AddCommand(
		newVersionCmd(),
		newDevicesCmd(c),
		newTemplatesCmd(),
		newInitCmd(c),
		newComposeCmd(c),
		newRenderCmd(c),
		newExportCmd(c),
		newSearchCmd(c),
		newBundleCmd(),
		newUnbundleCmd(),
		newImportCmd(),
		newExportJSONCmd(),
		newPushCmd(c),
		newPullCmd(c),
		newRemoteCmd(c),
		newServeCmd(c),
		newUICmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "shotframe", version.String())
		},
	}
}

func newUICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ui [dir]",
		Short: "Launch the desktop editor (build with -tags fyne)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			var dir string
			if len(args) == 1 {
				dir = args[0]
			}
			return ui.Run(dir)
		},
	}
}

func absDir(dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return dir
	}
	return abs
}
