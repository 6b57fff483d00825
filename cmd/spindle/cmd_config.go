// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teradata-labs/spindle/pkg/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage spindle configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write an example configuration file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "spindle.yaml"
		if len(args) == 1 {
			path = args[0]
		}
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("refusing to overwrite existing file: %s", path)
		}
		if err := os.WriteFile(path, []byte(config.GenerateExampleConfig()), 0o644); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote example configuration to %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "engine:\n  driver: %s\n  dsn: %s\n  dataset: %s\n  max_rows: %d\n",
			cfg.Engine.Driver, cfg.Engine.DSN, cfg.Engine.Dataset, cfg.Engine.MaxRows)
		fmt.Fprintf(cmd.OutOrStdout(), "agent:\n  anthropic_model: %s\n  max_tokens: %d\n  invocation_timeout_seconds: %d\n",
			cfg.Agent.AnthropicModel, cfg.Agent.MaxTokens, cfg.Agent.InvocationTimeoutSeconds)
		fmt.Fprintf(cmd.OutOrStdout(), "cache:\n  refresh_schedule: %q\n", cfg.Cache.RefreshSchedule)
		fmt.Fprintf(cmd.OutOrStdout(), "logging:\n  level: %s\n  format: %s\n",
			cfg.Logging.Level, cfg.Logging.Format)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}
