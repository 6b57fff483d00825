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
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/teradata-labs/spindle/pkg/agent"
	"github.com/teradata-labs/spindle/pkg/config"
	"github.com/teradata-labs/spindle/pkg/fabric"
	"github.com/teradata-labs/spindle/pkg/outcome"
	"github.com/teradata-labs/spindle/pkg/query"
	"github.com/teradata-labs/spindle/pkg/resultstore"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Interactive tool loop against the configured engine",
	Long: `Starts an interactive session bound to the configured SQL engine.
Each line invokes one tool: the first word is the tool name, the rest is a
JSON object of parameters. Type "tools" to list tools, "insights" to drain
recorded insights, "exit" to quit.`,
	RunE: runREPL,
}

var seedPath string

func init() {
	replCmd.Flags().StringVar(&seedPath, "seed", "", "YAML fixture of SQL statements run before the session starts")
}

func runREPL(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if seedPath != "" {
		if err := applySeed(cmd.Context(), cfg.Engine.Driver, cfg.Engine.DSN, seedPath); err != nil {
			return err
		}
		logger.Info("seeded engine database", zap.String("seed", seedPath))
	}

	engine, err := fabric.NewSQLEngine(fabric.SQLEngineConfig{
		Driver:  cfg.Engine.Driver,
		DSN:     cfg.Engine.DSN,
		Dataset: cfg.Engine.Dataset,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("connecting to %s engine: %w", cfg.Engine.Driver, err)
	}
	defer func() { _ = engine.Close() }()

	svc := query.NewService(query.ServiceConfig{
		Engine:  engine,
		MaxRows: cfg.Engine.MaxRows,
		Logger:  logger,
	})
	session := resultstore.NewSession(uuid.NewString())

	var actor agent.EnrichmentActor
	if key := anthropicKey(cfg); key != "" {
		actor = agent.NewAnthropicActor(agent.AnthropicActorConfig{
			APIKey:    key,
			Model:     cfg.Agent.AnthropicModel,
			MaxTokens: int64(cfg.Agent.MaxTokens),
			Logger:    logger,
		})
	}

	toolset := agent.NewToolset(agent.ToolsetConfig{
		Session: session,
		Query:   svc,
		Actor:   actor,
		Timeout: time.Duration(cfg.Agent.InvocationTimeoutSeconds) * time.Second,
		Logger:  logger,
	})

	if spec := cfg.Cache.RefreshSchedule; spec != "" {
		scheduler := cron.New()
		if _, err := scheduler.AddFunc(spec, func() {
			logger.Info("scheduled schema cache refresh", zap.String("result", svc.Cache().Clear()))
		}); err != nil {
			return fmt.Errorf("invalid cache refresh schedule %q: %w", spec, err)
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	tracer := outcome.NewRunTracer(logger, session.ID(), "interactive session")
	defer tracer.Complete("session closed", false, nil)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "spindle %s session %s (%s engine)\n", rootCmd.Version, session.ID(), engine.Name())
	fmt.Fprintln(out, `Type "tools" for the tool list, "exit" to quit.`)

	scanner := bufio.NewScanner(cmd.InOrStdin())
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for {
		fmt.Fprint(out, "spindle> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		name, rest, _ := strings.Cut(line, " ")
		switch name {
		case "exit", "quit":
			return nil
		case "tools":
			for _, t := range toolset.Registry().ListTools() {
				fmt.Fprintf(out, "  %-28s %s\n", t.Name(), t.Description())
			}
			continue
		case "insights":
			for _, in := range toolset.DrainInsights() {
				fmt.Fprintf(out, "  [%s] %s\n", in.Type, in.Message)
			}
			continue
		}

		params := map[string]any{}
		if rest = strings.TrimSpace(rest); rest != "" {
			if err := json.Unmarshal([]byte(rest), &params); err != nil {
				fmt.Fprintf(out, "bad parameters (want a JSON object): %v\n", err)
				continue
			}
		}

		tracer.RecordEvent("repl", []string{name})
		result, err := toolset.Execute(context.Background(), name, params)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		printResult(out, result)
	}
}

// anthropicKey resolves the actor API key: config/env via viper first, then
// the SDK's native variable.
func anthropicKey(cfg *config.Config) string {
	if cfg.Agent.AnthropicAPIKey != "" {
		return cfg.Agent.AnthropicAPIKey
	}
	return os.Getenv("ANTHROPIC_API_KEY")
}

func printResult(out io.Writer, result any) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fmt.Fprintf(out, "unprintable result: %v\n", err)
		return
	}
	fmt.Fprintf(out, "%s\n", data)
}
