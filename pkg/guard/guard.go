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

// Package guard provides the deterministic pre/post hooks that run around
// every tool call. The hooks execute inside the tool executor, so the model
// cannot bypass them.
package guard

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/teradata-labs/spindle/pkg/query"
	"github.com/teradata-labs/spindle/pkg/types"
)

// queryToolName is the one tool gated by pre-flight SQL validation.
const queryToolName = "execute_query_with_metadata"

// structuredResponseTools return tabular payloads that downstream tools and
// the presentation layer depend on; their responses are shape-checked.
var structuredResponseTools = map[string]bool{
	"execute_query_with_metadata": true,
	"apply_enrichment":            true,
	"add_calculated_column":       true,
}

// SQLValidator is the slice of the query service the pre-hook needs.
type SQLValidator interface {
	Validate(ctx context.Context, sql string) *query.ValidationResult
}

// Guard holds the hook dependencies.
type Guard struct {
	validator SQLValidator
	logger    *zap.Logger
}

// New builds a Guard. The logger defaults to a no-op logger.
func New(validator SQLValidator, logger *zap.Logger) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{validator: validator, logger: logger}
}

// Before fires before every tool call. For the query tool it validates the
// SQL argument via dry run; a non-nil return short-circuits the call and
// becomes the tool response. All other tools pass through (nil return).
func (g *Guard) Before(ctx context.Context, toolName string, params map[string]any) map[string]any {
	if toolName != queryToolName {
		return nil
	}

	sqlText, _ := params["sql"].(string)
	if sqlText == "" {
		return map[string]any{
			"status": types.StatusError,
			"error":  "No SQL query provided.",
			"sql":    "",
		}
	}

	validation := g.validator.Validate(ctx, sqlText)
	if validation.Status == types.StatusInvalid {
		g.logger.Warn("sql validation gate rejected query",
			zap.String("error", validation.Error))
		return map[string]any{
			"status": types.StatusError,
			"error":  "SQL validation failed: " + validation.Error,
			"sql":    sqlText,
		}
	}
	return nil
}

// After fires after every tool call. For structured-response tools it
// verifies the response is a map carrying a status, and that success
// responses carry list-typed rows and columns. Malformed responses are
// replaced with a sanitized error map; a nil return passes the original
// response through unchanged.
func (g *Guard) After(toolName string, response any) map[string]any {
	if !structuredResponseTools[toolName] {
		return nil
	}

	payload, ok := response.(map[string]any)
	if !ok {
		return errorMap(fmt.Sprintf(
			"Tool '%s' returned an unexpected response type (%T). Expected a map.",
			toolName, response))
	}
	if _, present := payload["status"]; !present {
		return errorMap(fmt.Sprintf(
			"Tool '%s' response is missing the 'status' field.", toolName))
	}
	if payload["status"] == types.StatusSuccess {
		if _, isList := payload["rows"].([]any); !isList {
			return errorMap(fmt.Sprintf(
				"Tool '%s' returned a success response but 'rows' is not a list (got %T).",
				toolName, payload["rows"]))
		}
		if _, isList := payload["columns"].([]any); !isList {
			return errorMap(fmt.Sprintf(
				"Tool '%s' returned a success response but 'columns' is not a list (got %T).",
				toolName, payload["columns"]))
		}
	}
	return nil
}

func errorMap(msg string) map[string]any {
	return map[string]any{"status": types.StatusError, "error": msg}
}
