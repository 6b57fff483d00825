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
package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"
)

// Hooks run around every tool execution. Both hooks are deterministic: the
// model cannot skip them, because they live inside the executor.
//
// Before may short-circuit the call by returning a non-nil map, which then
// becomes the tool response. After may replace a malformed response with a
// sanitized one; returning nil passes the response through unchanged.
type Hooks interface {
	Before(ctx context.Context, toolName string, params map[string]any) map[string]any
	After(toolName string, response any) map[string]any
}

// ExecutorConfig configures an Executor.
type ExecutorConfig struct {
	Registry *Registry
	// Hooks is optional; nil disables the guard layer.
	Hooks  Hooks
	Logger *zap.Logger
}

// Executor validates parameters against each tool's input schema, runs the
// guard hooks, and stamps execution timing on every result.
type Executor struct {
	registry *Registry
	hooks    Hooks
	logger   *zap.Logger
}

// NewExecutor creates an executor over the registry.
func NewExecutor(cfg ExecutorConfig) *Executor {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		registry: cfg.Registry,
		hooks:    cfg.Hooks,
		logger:   logger,
	}
}

// Execute runs the named tool. The returned error is reserved for
// infrastructure faults (unknown tool, tool panic-free internal failure);
// domain failures land in Result.Error with Success false.
func (e *Executor) Execute(ctx context.Context, name string, params map[string]any) (*Result, error) {
	tool, ok := e.registry.Get(name)
	if !ok {
		return nil, fmt.Errorf("tool %q is not registered", name)
	}
	if params == nil {
		params = map[string]any{}
	}

	if result := e.validateParams(tool, params); result != nil {
		return result, nil
	}

	start := time.Now()

	if e.hooks != nil {
		if blocked := e.hooks.Before(ctx, name, params); blocked != nil {
			e.logger.Warn("tool call blocked by pre-hook", zap.String("tool", name))
			return &Result{
				Success: false,
				Data:    blocked,
				Error: &Error{
					Code:    "GUARDRAIL_BLOCKED",
					Message: stringField(blocked, "error"),
				},
				ExecutionTimeMs: time.Since(start).Milliseconds(),
			}, nil
		}
	}

	result, err := tool.Execute(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("tool %q: %w", name, err)
	}
	result.ExecutionTimeMs = time.Since(start).Milliseconds()

	if e.hooks != nil {
		if sanitized := e.hooks.After(name, result.Data); sanitized != nil {
			e.logger.Warn("tool response replaced by post-hook",
				zap.String("tool", name),
				zap.String("error", stringField(sanitized, "error")))
			result.Success = false
			result.Data = sanitized
			result.Error = &Error{
				Code:    "MALFORMED_RESPONSE",
				Message: stringField(sanitized, "error"),
			}
		}
	}

	return result, nil
}

// validateParams checks params against the tool's input schema. A nil
// return means the params are valid.
func (e *Executor) validateParams(tool Tool, params map[string]any) *Result {
	schema := tool.InputSchema()
	if schema == nil {
		return nil
	}
	schemaJSON, err := schema.ToJSON()
	if err != nil {
		return nil
	}

	validation, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaJSON),
		gojsonschema.NewGoLoader(params))
	if err != nil {
		return &Result{
			Success: false,
			Error: &Error{
				Code:    "INVALID_PARAMS",
				Message: err.Error(),
			},
		}
	}
	if validation.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(validation.Errors()))
	for _, desc := range validation.Errors() {
		msgs = append(msgs, desc.String())
	}
	return &Result{
		Success: false,
		Error: &Error{
			Code:       "INVALID_PARAMS",
			Message:    strings.Join(msgs, "; "),
			Suggestion: "Check the tool's input schema and correct the parameters.",
		},
	}
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}
