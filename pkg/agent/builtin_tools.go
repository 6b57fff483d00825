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

package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/teradata-labs/spindle/pkg/calc"
	"github.com/teradata-labs/spindle/pkg/enrich"
	"github.com/teradata-labs/spindle/pkg/tools"
	"github.com/teradata-labs/spindle/pkg/types"
)

// resultFromPayload wraps a JSON-shaped payload into a tool Result. Error
// and invalid statuses surface as structured tool errors.
func resultFromPayload(payload map[string]any) *tools.Result {
	status, _ := payload["status"].(string)
	if status == types.StatusError || status == types.StatusInvalid {
		msg, _ := payload["error"].(string)
		return &tools.Result{
			Success: false,
			Data:    payload,
			Error:   &tools.Error{Code: "TOOL_ERROR", Message: msg},
		}
	}
	return &tools.Result{Success: true, Data: payload}
}

func stringParam(params map[string]any, key string) string {
	s, _ := params[key].(string)
	return s
}

// intParam reads a numeric parameter. JSON numbers decode as float64; raw
// ints appear when the caller passes Go values directly.
func intParam(params map[string]any, key string) (int, bool) {
	switch v := params[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	}
	return 0, false
}

func stringSliceParam(params map[string]any, key string) []string {
	raw, ok := params[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		} else {
			out = append(out, fmt.Sprintf("%v", v))
		}
	}
	return out
}

// --- get_available_tables ---

type getAvailableTablesTool struct{ ts *Toolset }

func (t *getAvailableTablesTool) Name() string { return "get_available_tables" }
func (t *getAvailableTablesTool) Description() string {
	return "List all tables in the configured dataset with row counts and column schemas."
}
func (t *getAvailableTablesTool) Backend() string { return "" }
func (t *getAvailableTablesTool) InputSchema() *tools.JSONSchema {
	return tools.NewObjectSchema("No parameters.", map[string]*tools.JSONSchema{}, nil)
}

func (t *getAvailableTablesTool) Execute(ctx context.Context, _ map[string]any) (*tools.Result, error) {
	return resultFromPayload(types.AsPayload(t.ts.query.Cache().Tables(ctx))), nil
}

// --- get_table_schema ---

type getTableSchemaTool struct{ ts *Toolset }

func (t *getTableSchemaTool) Name() string { return "get_table_schema" }
func (t *getTableSchemaTool) Description() string {
	return "Describe one table: columns, row count, and up to five sample rows."
}
func (t *getTableSchemaTool) Backend() string { return "" }
func (t *getTableSchemaTool) InputSchema() *tools.JSONSchema {
	return tools.NewObjectSchema("Table to describe.", map[string]*tools.JSONSchema{
		"table_name": tools.NewStringSchema("Bare or dataset-qualified table name."),
	}, []string{"table_name"})
}

func (t *getTableSchemaTool) Execute(ctx context.Context, params map[string]any) (*tools.Result, error) {
	res := t.ts.query.Cache().TableSchema(ctx, stringParam(params, "table_name"))
	return resultFromPayload(types.AsPayload(res)), nil
}

// --- validate_sql_query ---

type validateSQLTool struct{ ts *Toolset }

func (t *validateSQLTool) Name() string { return "validate_sql_query" }
func (t *validateSQLTool) Description() string {
	return "Dry-run a SQL statement without executing it, returning the estimated data volume."
}
func (t *validateSQLTool) Backend() string { return "" }
func (t *validateSQLTool) InputSchema() *tools.JSONSchema {
	return tools.NewObjectSchema("Statement to validate.", map[string]*tools.JSONSchema{
		"sql": tools.NewStringSchema("The SQL statement."),
	}, []string{"sql"})
}

func (t *validateSQLTool) Execute(ctx context.Context, params map[string]any) (*tools.Result, error) {
	res := t.ts.query.Validate(ctx, stringParam(params, "sql"))
	return resultFromPayload(types.AsPayload(res)), nil
}

// --- execute_query_with_metadata ---

type executeQueryTool struct{ ts *Toolset }

func (t *executeQueryTool) Name() string { return "execute_query_with_metadata" }
func (t *executeQueryTool) Description() string {
	return "Execute a SQL query and store the result as the session's current result. " +
		"A LIMIT is appended when the statement has none."
}
func (t *executeQueryTool) Backend() string { return "" }
func (t *executeQueryTool) InputSchema() *tools.JSONSchema {
	return tools.NewObjectSchema("Query to run.", map[string]*tools.JSONSchema{
		"sql": tools.NewStringSchema("The SQL statement."),
		"max_rows": tools.NewNumberSchema(
			"Row cap applied when the statement has no LIMIT. " +
				"0 disables the cap; omitted uses the configured cap."),
	}, []string{"sql"})
}

func (t *executeQueryTool) Execute(ctx context.Context, params map[string]any) (*tools.Result, error) {
	maxRows := -1 // configured cap
	if n, ok := intParam(params, "max_rows"); ok {
		maxRows = n
	}
	res := t.ts.query.Execute(ctx, t.ts.session, stringParam(params, "sql"), maxRows)
	return resultFromPayload(types.AsPayload(res)), nil
}

// --- clear_schema_cache ---

type clearSchemaCacheTool struct{ ts *Toolset }

func (t *clearSchemaCacheTool) Name() string { return "clear_schema_cache" }
func (t *clearSchemaCacheTool) Description() string {
	return "Evict all cached table schemas so the next lookup re-reads them."
}
func (t *clearSchemaCacheTool) Backend() string { return "" }
func (t *clearSchemaCacheTool) InputSchema() *tools.JSONSchema {
	return tools.NewObjectSchema("No parameters.", map[string]*tools.JSONSchema{}, nil)
}

func (t *clearSchemaCacheTool) Execute(context.Context, map[string]any) (*tools.Result, error) {
	msg := t.ts.query.Cache().Clear()
	return resultFromPayload(map[string]any{
		"status":  types.StatusSuccess,
		"message": msg,
	}), nil
}

// --- add_calculated_column ---

type addCalculatedColumnTool struct{ ts *Toolset }

func (t *addCalculatedColumnTool) Name() string { return "add_calculated_column" }
func (t *addCalculatedColumnTool) Description() string {
	return "Derive a new column on the current result by evaluating an arithmetic " +
		"expression over existing columns. Enriched columns contribute their inner value."
}
func (t *addCalculatedColumnTool) Backend() string { return "" }
func (t *addCalculatedColumnTool) InputSchema() *tools.JSONSchema {
	return tools.NewObjectSchema("Column derivation.", map[string]*tools.JSONSchema{
		"column_name": tools.NewStringSchema("Name of the new column."),
		"expression": tools.NewStringSchema(
			"Arithmetic expression over existing column names. Operators: + - * / % **."),
		"format_type": tools.NewStringSchema("Display format for the values.").
			WithEnum(types.FormatNumber, types.FormatInteger, types.FormatPercent, types.FormatCurrency).
			WithDefault(types.FormatNumber),
	}, []string{"column_name", "expression"})
}

func (t *addCalculatedColumnTool) Execute(_ context.Context, params map[string]any) (*tools.Result, error) {
	res := calc.Derive(t.ts.session,
		stringParam(params, "column_name"),
		stringParam(params, "expression"),
		stringParam(params, "format_type"))
	return resultFromPayload(types.AsPayload(res)), nil
}

// --- request_enrichment ---

type requestEnrichmentTool struct{ ts *Toolset }

func (t *requestEnrichmentTool) Name() string { return "request_enrichment" }
func (t *requestEnrichmentTool) Description() string {
	return "Validate an enrichment request and prepare the prompt for the enrichment actor. " +
		"At most 20 values and 5 fields per request."
}
func (t *requestEnrichmentTool) Backend() string { return "" }
func (t *requestEnrichmentTool) InputSchema() *tools.JSONSchema {
	return tools.NewObjectSchema("Enrichment request.", map[string]*tools.JSONSchema{
		"column_name": tools.NewStringSchema("Column whose values are being enriched."),
		"unique_values": tools.NewArraySchema("Unique values to enrich.",
			tools.NewStringSchema("One value.")),
		"fields_to_add": tools.NewArraySchema("Fields to add for each value.",
			tools.NewStringSchema("One field name.")),
		"data_type": tools.NewStringSchema("Optional hint about the value kind (e.g. us_state, company)."),
		"context":   tools.NewStringSchema("Optional context to improve accuracy."),
	}, []string{"column_name", "unique_values", "fields_to_add"})
}

func (t *requestEnrichmentTool) Execute(_ context.Context, params map[string]any) (*tools.Result, error) {
	req := enrich.BuildRequest(
		stringParam(params, "column_name"),
		stringSliceParam(params, "unique_values"),
		stringSliceParam(params, "fields_to_add"),
		stringParam(params, "data_type"),
		stringParam(params, "context"))
	return resultFromPayload(types.AsPayload(req)), nil
}

// --- apply_enrichment ---

type applyEnrichmentTool struct{ ts *Toolset }

func (t *applyEnrichmentTool) Name() string { return "apply_enrichment" }
func (t *applyEnrichmentTool) Description() string {
	return "Merge enrichment data into the current result, adding _enriched_ columns " +
		"with source and confidence metadata."
}
func (t *applyEnrichmentTool) Backend() string { return "" }
func (t *applyEnrichmentTool) InputSchema() *tools.JSONSchema {
	itemSchema := tools.NewObjectSchema("Enrichment for one value.", map[string]*tools.JSONSchema{
		"original_value": tools.NewStringSchema("The value that was enriched."),
		"enriched_fields": tools.NewObjectSchema(
			"Map of field name to {value, source, confidence, freshness, warning}.", nil, nil),
	}, []string{"original_value", "enriched_fields"})

	return tools.NewObjectSchema("Enrichment merge.", map[string]*tools.JSONSchema{
		"source_column":   tools.NewStringSchema("Column that was enriched."),
		"enrichment_data": tools.NewArraySchema("Enrichment items from the actor.", itemSchema),
	}, []string{"source_column", "enrichment_data"})
}

func (t *applyEnrichmentTool) Execute(_ context.Context, params map[string]any) (*tools.Result, error) {
	items, err := decodeEnrichmentItems(params["enrichment_data"])
	if err != nil {
		return resultFromPayload(map[string]any{
			"status": types.StatusError,
			"error":  fmt.Sprintf("Malformed enrichment data: %v", err),
		}), nil
	}
	res := enrich.Merge(t.ts.session, stringParam(params, "source_column"), items)
	return resultFromPayload(types.AsPayload(res)), nil
}

func decodeEnrichmentItems(raw any) ([]types.EnrichmentItem, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var items []types.EnrichmentItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// --- report_insight ---

type reportInsightTool struct{ ts *Toolset }

func (t *reportInsightTool) Name() string { return "report_insight" }
func (t *reportInsightTool) Description() string {
	return "Record one noteworthy observation (trend, anomaly, comparison, or suggestion) " +
		"discovered while analyzing the data."
}
func (t *reportInsightTool) Backend() string { return "" }
func (t *reportInsightTool) InputSchema() *tools.JSONSchema {
	return tools.NewObjectSchema("One insight.", map[string]*tools.JSONSchema{
		"insight_type": tools.NewStringSchema("Insight category.").
			WithEnum(types.InsightTrend, types.InsightAnomaly, types.InsightComparison, types.InsightSuggestion),
		"message": tools.NewStringSchema("One-sentence description grounded in the data."),
	}, []string{"insight_type", "message"})
}

func (t *reportInsightTool) Execute(_ context.Context, params map[string]any) (*tools.Result, error) {
	in := t.ts.session.ReportInsight(
		stringParam(params, "insight_type"),
		stringParam(params, "message"))
	return resultFromPayload(map[string]any{
		"status": "recorded",
		"type":   in.Type,
	}), nil
}
