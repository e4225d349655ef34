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
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"shotframe/internal/bundle"
	"shotframe/internal/storage"
)

func newBundleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bundle <dir> <zip>",
		Short: "Pack a project and its imported images into one zip",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, err := bundle.Pack(absDir(args[0]), absDir(args[1]))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Packed %d file(s) into %s\n", rep.Files, args[1])
			for _, src := range rep.External {
				fmt.Fprintf(out, "not packed: %s\n", src)
			}
			return nil
		},
	}
}

func newUnbundleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unbundle <zip> <dir>",
		Short: "Unpack a project bundle into dir",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ph, n, err := bundle.Unpack(cmd.Context(), absDir(args[0]), absDir(args[1]))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Unpacked %s (%d file(s)) into %s\n", ph.Project.Name, n, ph.Root)
			return nil
		},
	}
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <project.json> <dir>",
		Short: "Create or replace a project from a JSON document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := storage.ImportProject(args[0])
			if err != nil {
				return err
			}
			dir := absDir(args[1])
			if err := writeProject(dir, p); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %s into %s\n", p.Name, dir)
			return nil
		},
	}
}

func newExportJSONCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export-json <dir> <project.json>",
		Short: "Write a project as a standalone JSON document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ph, err := storage.Open(absDir(args[0]))
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(absDir(args[1])), 0o755); err != nil {
				return err
			}
			if err := storage.ExportProject(ph.Project, args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", args[1])
			return nil
		},
	}
}
