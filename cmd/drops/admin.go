// Copyright 2024 Greymass Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"log/slog"
	"os"

	"github.com/aaroncox/drops/internal/config"
	"github.com/aaroncox/drops/internal/node"
	"github.com/spf13/cobra"
)

func initCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the ledger with its genesis epoch",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := config.FromContext(cmd.Context())
			if cfg == nil {
				slog.Error("no config found in context")
				os.Exit(1)
			}
			logger := commonRun()
			l, db, err := node.OpenLedger(cfg, logger)
			if err != nil {
				slog.Error(err.Error())
				os.Exit(1)
			}
			defer db.Close()
			if err := l.Init(); err != nil {
				slog.Error(err.Error())
				os.Exit(1)
			}
		},
	}
	return cmd
}

func wipeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wipe",
		Short: "Remove all ledger data",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := config.FromContext(cmd.Context())
			if cfg == nil {
				slog.Error("no config found in context")
				os.Exit(1)
			}
			logger := commonRun()
			l, db, err := node.OpenLedger(cfg, logger)
			if err != nil {
				slog.Error(err.Error())
				os.Exit(1)
			}
			defer db.Close()
			if err := l.Wipe(); err != nil {
				slog.Error(err.Error())
				os.Exit(1)
			}
		},
	}
	return cmd
}
