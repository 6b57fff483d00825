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
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teradata-labs/spindle/pkg/fabric"
	"github.com/teradata-labs/spindle/pkg/query"
	"github.com/teradata-labs/spindle/pkg/resultstore"
	"github.com/teradata-labs/spindle/pkg/types"
)

type fakeEngine struct {
	execResult *fabric.QueryResult
	execErr    error
	dryRunErr  error
	tables     []types.TableMeta
}

func (f *fakeEngine) Name() string { return "fake" }
func (f *fakeEngine) Close() error { return nil }

func (f *fakeEngine) DryRun(context.Context, string) (*fabric.DryRunStats, error) {
	if f.dryRunErr != nil {
		return nil, f.dryRunErr
	}
	return &fabric.DryRunStats{BytesProcessed: 2048}, nil
}

func (f *fakeEngine) Execute(context.Context, string) (*fabric.QueryResult, error) {
	if f.execErr != nil {
		return nil, f.execErr
	}
	if f.execResult != nil {
		return f.execResult, nil
	}
	return &fabric.QueryResult{Columns: []types.ColumnMeta{}, Rows: []types.Row{}}, nil
}

func (f *fakeEngine) ListTables(context.Context) ([]types.TableMeta, error) {
	return f.tables, nil
}

func (f *fakeEngine) TableSchema(_ context.Context, table string) (*types.TableMeta, error) {
	for _, m := range f.tables {
		if m.Name == table || m.FullName == table {
			meta := m
			return &meta, nil
		}
	}
	return nil, errors.New("table not found")
}

type stubActor struct {
	items      []types.EnrichmentItem
	err        error
	lastPrompt string
}

func (s *stubActor) Enrich(_ context.Context, prompt string) ([]types.EnrichmentItem, error) {
	s.lastPrompt = prompt
	return s.items, s.err
}

func newTestToolset(engine *fakeEngine, actor EnrichmentActor) *Toolset {
	svc := query.NewService(query.ServiceConfig{Engine: engine, MaxRows: 100})
	return NewToolset(ToolsetConfig{
		Session: resultstore.NewSession("agent-test"),
		Query:   svc,
		Actor:   actor,
	})
}

func stateEngine() *fakeEngine {
	return &fakeEngine{
		execResult: &fabric.QueryResult{
			Columns: []types.ColumnMeta{
				{Name: "state", Type: "STRING"},
				{Name: "total", Type: "INTEGER"},
			},
			Rows: []types.Row{
				{"state": "CA", "total": int64(100)},
				{"state": "TX", "total": int64(80)},
			},
		},
	}
}

func payload(t *testing.T, res any) map[string]any {
	t.Helper()
	m, ok := res.(map[string]any)
	require.True(t, ok, "payload is %T, want map", res)
	return m
}

func TestToolsetRegistersBuiltins(t *testing.T) {
	ts := newTestToolset(stateEngine(), nil)
	assert.Equal(t, []string{
		"add_calculated_column",
		"apply_enrichment",
		"clear_schema_cache",
		"execute_query_with_metadata",
		"get_available_tables",
		"get_table_schema",
		"report_insight",
		"request_enrichment",
		"validate_sql_query",
	}, ts.Registry().List())
}

func TestExecuteQueryTool(t *testing.T) {
	ts := newTestToolset(stateEngine(), nil)

	res, err := ts.Execute(context.Background(), "execute_query_with_metadata",
		map[string]any{"sql": "SELECT state, total FROM sales"})
	require.NoError(t, err)
	require.True(t, res.Success)

	data := payload(t, res.Data)
	assert.Equal(t, "success", data["status"])
	rows, ok := data["rows"].([]any)
	require.True(t, ok)
	assert.Len(t, rows, 2)
	assert.Equal(t, "SELECT state, total FROM sales LIMIT 100", data["sql"])

	stored, ok := ts.Session().Result()
	require.True(t, ok)
	assert.Equal(t, 2, stored.TotalRows)
}

func TestExecuteQueryToolMaxRowsParam(t *testing.T) {
	engine := stateEngine()
	ts := newTestToolset(engine, nil)

	res, err := ts.Execute(context.Background(), "execute_query_with_metadata",
		map[string]any{"sql": "SELECT state FROM sales", "max_rows": float64(5)})
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, "SELECT state FROM sales LIMIT 5", payload(t, res.Data)["sql"])

	res, err = ts.Execute(context.Background(), "execute_query_with_metadata",
		map[string]any{"sql": "SELECT state FROM sales", "max_rows": float64(0)})
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, "SELECT state FROM sales", payload(t, res.Data)["sql"])
}

func TestExecuteQueryToolEmptySQLBlocked(t *testing.T) {
	ts := newTestToolset(stateEngine(), nil)

	res, err := ts.Execute(context.Background(), "execute_query_with_metadata",
		map[string]any{"sql": ""})
	require.NoError(t, err)
	assert.False(t, res.Success)
	require.NotNil(t, res.Error)
	assert.Equal(t, "GUARDRAIL_BLOCKED", res.Error.Code)
	assert.Equal(t, "No SQL query provided.", res.Error.Message)

	_, ok := ts.Session().Result()
	assert.False(t, ok)
}

func TestExecuteQueryToolInvalidSQLBlocked(t *testing.T) {
	engine := stateEngine()
	engine.dryRunErr = errors.New("Unrecognized name: stat")
	ts := newTestToolset(engine, nil)

	res, err := ts.Execute(context.Background(), "execute_query_with_metadata",
		map[string]any{"sql": "SELECT stat FROM sales"})
	require.NoError(t, err)
	assert.False(t, res.Success)
	data := payload(t, res.Data)
	assert.Equal(t, "SQL validation failed: Unrecognized name: stat", data["error"])
	assert.Equal(t, "SELECT stat FROM sales", data["sql"])
}

func TestValidateSQLTool(t *testing.T) {
	ts := newTestToolset(stateEngine(), nil)

	res, err := ts.Execute(context.Background(), "validate_sql_query",
		map[string]any{"sql": "SELECT 1"})
	require.NoError(t, err)
	require.True(t, res.Success)
	data := payload(t, res.Data)
	assert.Equal(t, "valid", data["status"])
	assert.Equal(t, "2.00 KB", data["estimated_size"])
	assert.Equal(t, "Query is valid. Estimated data to process: 2.00 KB", data["message"])
}

func TestTableTools(t *testing.T) {
	engine := stateEngine()
	engine.tables = []types.TableMeta{{
		Name: "sales", FullName: "ds.sales", NumRows: 7,
		Columns: []types.ColumnMeta{{Name: "state", Type: "STRING"}},
	}}
	ts := newTestToolset(engine, nil)

	res, err := ts.Execute(context.Background(), "get_available_tables", nil)
	require.NoError(t, err)
	require.True(t, res.Success)
	data := payload(t, res.Data)
	assert.Equal(t, float64(1), data["count"])

	res, err = ts.Execute(context.Background(), "get_table_schema",
		map[string]any{"table_name": "ds.sales"})
	require.NoError(t, err)
	require.True(t, res.Success)
	data = payload(t, res.Data)
	assert.Equal(t, "sales", data["table_name"])
	assert.Equal(t, float64(7), data["num_rows"])

	res, err = ts.Execute(context.Background(), "clear_schema_cache", nil)
	require.NoError(t, err)
	require.True(t, res.Success)
	data = payload(t, res.Data)
	assert.Equal(t, "Cleared 1 cached table schemas", data["message"])
}

func TestCalculatedColumnTool(t *testing.T) {
	ts := newTestToolset(stateEngine(), nil)
	_, err := ts.Execute(context.Background(), "execute_query_with_metadata",
		map[string]any{"sql": "SELECT state, total FROM sales"})
	require.NoError(t, err)

	res, err := ts.Execute(context.Background(), "add_calculated_column", map[string]any{
		"column_name": "doubled",
		"expression":  "total * 2",
		"format_type": "integer",
	})
	require.NoError(t, err)
	require.True(t, res.Success)

	data := payload(t, res.Data)
	rows := data["rows"].([]any)
	first := rows[0].(map[string]any)
	cell := first["doubled"].(map[string]any)
	assert.Equal(t, float64(200), cell["value"])

	// Missing column comes back as a structured tool error.
	res, err = ts.Execute(context.Background(), "add_calculated_column", map[string]any{
		"column_name": "bad",
		"expression":  "missing_col * 2",
	})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error.Message, "Column(s) not found: missing_col")
}

func TestEnrichmentTools(t *testing.T) {
	ts := newTestToolset(stateEngine(), nil)
	_, err := ts.Execute(context.Background(), "execute_query_with_metadata",
		map[string]any{"sql": "SELECT state, total FROM sales"})
	require.NoError(t, err)

	res, err := ts.Execute(context.Background(), "request_enrichment", map[string]any{
		"column_name":   "state",
		"unique_values": []any{"CA", "TX"},
		"fields_to_add": []any{"capital"},
	})
	require.NoError(t, err)
	require.True(t, res.Success)
	data := payload(t, res.Data)
	assert.Equal(t, "ready", data["status"])
	assert.Contains(t, data["prompt"], "**Column to enrich**: state")

	res, err = ts.Execute(context.Background(), "apply_enrichment", map[string]any{
		"source_column": "state",
		"enrichment_data": []any{
			map[string]any{
				"original_value": "CA",
				"enriched_fields": map[string]any{
					"capital": map[string]any{"value": "Sacramento", "source": "Wikipedia"},
				},
			},
		},
	})
	require.NoError(t, err)
	require.True(t, res.Success)
	data = payload(t, res.Data)
	meta := data["enrichment_metadata"].(map[string]any)
	assert.Equal(t, float64(1), meta["total_enriched"])
	assert.Equal(t, true, meta["partial_failure"]) // TX had no data
}

func TestReportInsightTool(t *testing.T) {
	ts := newTestToolset(stateEngine(), nil)

	res, err := ts.Execute(context.Background(), "report_insight", map[string]any{
		"insight_type": "anomaly",
		"message":      "  Store #42 is an outlier.  ",
	})
	require.NoError(t, err)
	require.True(t, res.Success)
	data := payload(t, res.Data)
	assert.Equal(t, "recorded", data["status"])
	assert.Equal(t, "anomaly", data["type"])

	insights := ts.DrainInsights()
	require.Len(t, insights, 1)
	assert.Equal(t, "Store #42 is an outlier.", insights[0].Message)
	assert.Empty(t, ts.DrainInsights())
}

func TestEnrichColumnFlow(t *testing.T) {
	actor := &stubActor{items: []types.EnrichmentItem{{
		OriginalValue: "CA",
		EnrichedFields: map[string]types.EnrichedField{
			"capital": {Value: "Sacramento", Source: "Wikipedia"},
		},
	}}}
	ts := newTestToolset(stateEngine(), actor)
	_, err := ts.Execute(context.Background(), "execute_query_with_metadata",
		map[string]any{"sql": "SELECT state, total FROM sales"})
	require.NoError(t, err)

	merged, err := ts.EnrichColumn(context.Background(), "state",
		[]string{"CA", "TX"}, []string{"capital"}, "us_state", "")
	require.NoError(t, err)
	assert.Contains(t, actor.lastPrompt, "CA, TX")
	assert.True(t, merged.HasColumn("_enriched_capital"))
}

func TestEnrichColumnErrors(t *testing.T) {
	ts := newTestToolset(stateEngine(), nil)
	_, err := ts.EnrichColumn(context.Background(), "state", []string{"CA"}, []string{"capital"}, "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no enrichment actor")

	actor := &stubActor{err: errors.New("actor offline")}
	ts = newTestToolset(stateEngine(), actor)
	_, err = ts.EnrichColumn(context.Background(), "state", []string{"CA"}, []string{"capital"}, "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "actor offline")

	// Validation failure surfaces before the actor is consulted.
	actor = &stubActor{}
	ts = newTestToolset(stateEngine(), actor)
	_, err = ts.EnrichColumn(context.Background(), "state", nil, []string{"capital"}, "", "")
	require.Error(t, err)
	assert.Equal(t, "No values provided for enrichment.", err.Error())
	assert.Empty(t, actor.lastPrompt)
}

func TestRunBounded(t *testing.T) {
	ts := NewToolset(ToolsetConfig{
		Session: resultstore.NewSession("s"),
		Query:   query.NewService(query.ServiceConfig{Engine: stateEngine()}),
		Timeout: 20 * time.Millisecond,
	})

	timedOut, err := ts.RunBounded(context.Background(), func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Second):
			return nil
		}
	})
	assert.True(t, timedOut)
	require.Error(t, err)

	timedOut, err = ts.RunBounded(context.Background(), func(context.Context) error {
		return nil
	})
	assert.False(t, timedOut)
	assert.NoError(t, err)

	boom := errors.New("boom")
	timedOut, err = ts.RunBounded(context.Background(), func(context.Context) error {
		return boom
	})
	assert.False(t, timedOut)
	assert.ErrorIs(t, err, boom)
}
