/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"shotframe/internal/backend"
	"shotframe/internal/project"
	"shotframe/internal/storage"
)

func (c *cli) openStore(cmd *cobra.Command, dsn string) (*backend.Store, error) {
	if dsn == "" {
		dsn = c.cfg.Storage.DSN
	}
	if dsn == "" {
		return nil, errors.New("no database: pass --dsn or set storage.dsn")
	}
	return backend.Open(cmd.Context(), backend.WithPassword(dsn))
}

func newPushCmd(c *cli) *cobra.Command {
	var dsn string
	cmd := &cobra.Command{
		Use:   "push <dir>",
		Short: "Upload a project to the shared database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ph, err := storage.Open(absDir(args[0]))
			if err != nil {
				return err
			}
			st, err := c.openStore(cmd, dsn)
			if err != nil {
				return err
			}
			defer st.Close()
			v, err := st.Save(cmd.Context(), ph.Project)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pushed %s (%s) version %d\n", ph.Project.Name, ph.Project.ID, v)
			return nil
		},
	}
	cmd.Flags().StringVar(&dsn, "dsn", "", "postgres URL (default from config)")
	return cmd
}

func newPullCmd(c *cli) *cobra.Command {
	var dsn string
	cmd := &cobra.Command{
		Use:   "pull <id> <dir>",
		Short: "Download a project from the shared database into dir",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := c.openStore(cmd, dsn)
			if err != nil {
				return err
			}
			defer st.Close()
			p, err := st.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			dir := absDir(args[1])
			if err := writeProject(dir, p); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pulled %s into %s\n", p.Name, dir)
			return nil
		},
	}
	cmd.Flags().StringVar(&dsn, "dsn", "", "postgres URL (default from config)")
	return cmd
}

// writeProject replaces the manifest in dir, or creates the project there.
func writeProject(dir string, p *project.Project) error {
	if _, err := os.Stat(filepath.Join(dir, storage.ManifestFileName)); err == nil {
		ph, err := storage.Open(dir)
		if err != nil {
			return err
		}
		return ph.Save(p)
	}
	_, err := storage.InitProject(dir, p)
	return err
}

func newServeCmd(c *cli) *cobra.Command {
	var dsn, addr, apiKey string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the shared database over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := c.openStore(cmd, dsn)
			if err != nil {
				return err
			}
			defer st.Close()
			c.log.InfoContext(cmd.Context(), "serving", slog.String("addr", addr))
			return backend.NewServer(st, os.Getenv(backend.EnvAuthSecret), apiKey).Serve(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&dsn, "dsn", "", "postgres URL (default from config)")
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "key clients present to obtain tokens (default $"+backend.EnvAPIKey+"; empty disables login)")
	return cmd
}

func (c *cli) client(base string) (*backend.Client, error) {
	cfg := c.cfg.Backend
	if base != "" {
		cfg.BaseURL = base
	}
	if cfg.BaseURL == "" {
		return nil, errors.New("no server: pass --url or set backend.base_url")
	}
	return backend.NewClientFromConfig(cfg, c.token), nil
}

func newRemoteCmd(c *cli) *cobra.Command {
	var base string
	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Browse projects on a shotframe server",
	}
	cmd.PersistentFlags().StringVar(&base, "url", "", "server URL (default from config)")

	var apiKey string
	login := &cobra.Command{
		Use:   "login <subject>",
		Short: "Request a token and keep it in the keyring",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, err := c.client(base)
			if err != nil {
				return err
			}
			cl.APIKey = apiKey
			if cl.APIKey == "" {
				cl.APIKey = os.Getenv(backend.EnvAPIKey)
			}
			exp, err := cl.Login(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			c.token = cl.Token
			if base != "" {
				c.cfg.Backend.BaseURL = base
			}
			if err := c.saveConfig(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in until %s\n", exp.Local().Format(time.DateTime))
			return nil
		},
	}
	ls := &cobra.Command{
		Use:   "ls",
		Short: "List projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cl, err := c.client(base)
			if err != nil {
				return err
			}
			list, err := cl.ListProjects(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tPLATFORM\tSCREENS\tVERSION\tUPDATED")
			for _, s := range list {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n", s.ID, s.Name, s.Platform, s.Screens, s.Version, s.UpdatedAt.Local().Format(time.DateTime))
			}
			return tw.Flush()
		},
	}
	get := &cobra.Command{
		Use:   "get <id> <dir>",
		Short: "Download a project into dir",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, err := c.client(base)
			if err != nil {
				return err
			}
			p, err := cl.GetProject(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			dir := absDir(args[1])
			if err := writeProject(dir, p); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Downloaded %s into %s\n", p.Name, dir)
			return nil
		},
	}
	var limit int
	search := &cobra.Command{
		Use:   "search <id> <text>",
		Short: "Search a project's screens",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, err := c.client(base)
			if err != nil {
				return err
			}
			res, err := cl.Search(cmd.Context(), args[0], storage.SearchQuery{Text: args[1], Limit: limit})
			if err != nil {
				return err
			}
			printResults(cmd, res)
			return nil
		},
	}
	search.Flags().IntVar(&limit, "limit", 20, "maximum results")
	login.Flags().StringVar(&apiKey, "api-key", "", "server API key (default $"+backend.EnvAPIKey+")")
	cmd.AddCommand(login, ls, get, search)
	return cmd
}
