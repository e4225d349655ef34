/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"shotframe/internal/compose"
	"shotframe/internal/devices"
)

func (c *cli) catalog() (*devices.Catalog, error) {
	if f := strings.TrimSpace(c.cfg.Devices.CatalogFile); f != "" {
		return devices.LoadOverlay(f)
	}
	return devices.Default(), nil
}

func newDevicesCmd(c *cli) *cobra.Command {
	var platform, output string
	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List the device frames",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cat, err := c.catalog()
			if err != nil {
				return err
			}
			p := devices.Platform(strings.ToLower(platform))
			switch p {
			case devices.All, devices.IOS, devices.Android:
			default:
				return fmt.Errorf("unknown platform %q (want ios, android or all)", platform)
			}
			list := cat.ListByPlatform(p)
			out := cmd.OutOrStdout()
			switch output {
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(list)
			case "yaml":
				return yaml.NewEncoder(out).Encode(list)
			case "", "table":
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME\tPLATFORM\tSIZE")
				for _, d := range list {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%gx%g\n", d.ID, d.DisplayName, d.Platform, d.Width, d.Height)
				}
				return tw.Flush()
			default:
				return fmt.Errorf("unknown output %q (want table, json or yaml)", output)
			}
		},
	}
	cmd.Flags().StringVar(&platform, "platform", string(devices.All), "ios, android or all")
	cmd.Flags().StringVarP(&output, "output", "o", "table", "table, json or yaml")
	return cmd
}

func newTemplatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "templates",
		Short: "List the background templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tFRAME")
			for _, t := range compose.Templates() {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", t.ID, t.Name, t.Category, t.Color)
			}
			return tw.Flush()
		},
	}
}
