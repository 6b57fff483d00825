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

// Package agent binds one session's result store, query service, and
// enrichment actor into the registered tool surface the LLM runtime calls.
package agent

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/teradata-labs/spindle/pkg/enrich"
	"github.com/teradata-labs/spindle/pkg/guard"
	"github.com/teradata-labs/spindle/pkg/query"
	"github.com/teradata-labs/spindle/pkg/resultstore"
	"github.com/teradata-labs/spindle/pkg/tools"
	"github.com/teradata-labs/spindle/pkg/types"
)

// DefaultInvocationTimeout bounds one full agent invocation.
const DefaultInvocationTimeout = 120 * time.Second

// ToolsetConfig configures a Toolset.
type ToolsetConfig struct {
	Session *resultstore.Session
	Query   *query.Service
	// Actor is optional; without one, enrichment stops at request_enrichment.
	Actor EnrichmentActor
	// Timeout bounds RunBounded. Defaults to DefaultInvocationTimeout.
	Timeout time.Duration
	Logger  *zap.Logger
}

// Toolset is one session's tool surface: every registered tool operates on
// the same session and query service, and every call passes through the
// guard hooks.
type Toolset struct {
	session  *resultstore.Session
	query    *query.Service
	actor    EnrichmentActor
	timeout  time.Duration
	logger   *zap.Logger
	registry *tools.Registry
	executor *tools.Executor
}

// NewToolset registers the builtin tools for the session.
func NewToolset(cfg ToolsetConfig) *Toolset {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultInvocationTimeout
	}

	ts := &Toolset{
		session:  cfg.Session,
		query:    cfg.Query,
		actor:    cfg.Actor,
		timeout:  timeout,
		logger:   logger,
		registry: tools.NewRegistry(),
	}
	ts.executor = tools.NewExecutor(tools.ExecutorConfig{
		Registry: ts.registry,
		Hooks:    guard.New(cfg.Query, logger),
		Logger:   logger,
	})

	for _, tool := range []tools.Tool{
		&getAvailableTablesTool{ts: ts},
		&getTableSchemaTool{ts: ts},
		&validateSQLTool{ts: ts},
		&executeQueryTool{ts: ts},
		&clearSchemaCacheTool{ts: ts},
		&addCalculatedColumnTool{ts: ts},
		&requestEnrichmentTool{ts: ts},
		&applyEnrichmentTool{ts: ts},
		&reportInsightTool{ts: ts},
	} {
		ts.registry.Register(tool)
	}
	return ts
}

// Session returns the bound session.
func (ts *Toolset) Session() *resultstore.Session { return ts.session }

// Registry exposes the registered tools, e.g. for advertising them to the
// LLM runtime.
func (ts *Toolset) Registry() *tools.Registry { return ts.registry }

// Execute runs one tool call through the guarded executor.
func (ts *Toolset) Execute(ctx context.Context, name string, params map[string]any) (*tools.Result, error) {
	return ts.executor.Execute(ctx, name, params)
}

// DrainInsights returns and clears the session's pending insights.
func (ts *Toolset) DrainInsights() []types.Insight {
	return ts.session.DrainInsights()
}

// EnrichColumn runs the full enrichment flow: validate and build the
// request, send the prompt to the actor, merge the reply into the current
// result. Requires a configured actor.
func (ts *Toolset) EnrichColumn(ctx context.Context, column string, values, fields []string, dataType, contextHint string) (*types.TabularResult, error) {
	if ts.actor == nil {
		return nil, errors.New("no enrichment actor configured")
	}
	req := enrich.BuildRequest(column, values, fields, dataType, contextHint)
	if req.Status != types.StatusReady {
		return nil, errors.New(req.Error)
	}
	items, err := ts.actor.Enrich(ctx, req.Prompt)
	if err != nil {
		return nil, err
	}
	merged := enrich.Merge(ts.session, column, items)
	if merged.Status == types.StatusError {
		return nil, errors.New(merged.Error)
	}
	return merged, nil
}

// RunBounded runs fn under the invocation deadline. It reports whether the
// deadline expired; fn's own error is returned unchanged otherwise.
func (ts *Toolset) RunBounded(ctx context.Context, fn func(ctx context.Context) error) (timedOut bool, err error) {
	bounded, cancel := context.WithTimeout(ctx, ts.timeout)
	defer cancel()

	err = fn(bounded)
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(bounded.Err(), context.DeadlineExceeded) {
		return true, err
	}
	return false, err
}
