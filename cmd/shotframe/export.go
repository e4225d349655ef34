/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"shotframe/internal/export"
	"shotframe/internal/render"
)

func newExportCmd(c *cli) *cobra.Command {
	var (
		format  string
		scale   int
		quality int
		kinds   []string
		presets []string
		out     string
		screens []int
	)
	cmd := &cobra.Command{
		Use:   "export <dir>",
		Short: "Export screens as images, a ZIP, a PDF contact sheet or store sizes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ph, ws, m, err := c.openWorkspace(ctx, absDir(args[0]))
			if err != nil {
				return err
			}
			if err := ws.Store(); err != nil {
				return err
			}
			opt := export.BatchOptions{
				Options: export.Options{
					Format:  export.Format(strings.ToLower(format)),
					Scale:   scale,
					Quality: quality,
				},
				Presets: presets,
				Root:    ph.Root,
				OutDir:  out,
			}
			for _, k := range kinds {
				opt.Kinds = append(opt.Kinds, export.Kind(k))
			}
			for _, n := range screens {
				opt.Screens = append(opt.Screens, n-1)
			}
			paths, err := export.Batch(ctx, ws.Project(), render.New(ws.Images), opt)
			w := cmd.OutOrStdout()
			for _, p := range paths {
				fmt.Fprintln(w, p)
			}
			if cerr := c.closeWorkspace(ctx, ph, ws, m); err == nil {
				err = cerr
			}
			return err
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&format, "format", "", "png or jpg (default from config)")
	fl.IntVar(&scale, "scale", 0, "1, 2 or 3 (default from config)")
	fl.IntVar(&quality, "quality", 0, "JPEG quality 1-100 (default from config)")
	fl.StringSliceVar(&kinds, "kinds", []string{string(export.KindFiles)}, "files, zip, pdf, preset")
	fl.StringSliceVar(&presets, "presets", nil, "store size ids for the preset kind (default is every size of the project's store)")
	fl.StringVarP(&out, "out", "o", "", "output directory, relative ones land under exports/")
	fl.IntSliceVar(&screens, "screens", nil, "screens to export, 1-based (default is all)")
	cmd.PreRun = func(*cobra.Command, []string) {
		if format == "" {
			format = c.cfg.Export.Format
		}
		if scale == 0 {
			scale = c.cfg.Export.Scale
		}
		if quality == 0 {
			quality = c.cfg.Export.Quality
		}
	}
	cmd.AddCommand(newPresetsCmd())
	return cmd
}

func newPresetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List the store size presets",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			for _, p := range export.Presets {
				fmt.Fprintf(cmd.OutOrStdout(), "%-16s %-10s %4dx%-5d %s\n", p.ID, p.Store, p.Width, p.Height, p.Name)
			}
		},
	}
}
