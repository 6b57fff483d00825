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

package query

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teradata-labs/spindle/pkg/fabric"
	"github.com/teradata-labs/spindle/pkg/resultstore"
	"github.com/teradata-labs/spindle/pkg/types"
)

// fakeEngine is an in-memory QueryEngine that records the SQL it receives.
type fakeEngine struct {
	lastSQL      string
	execResult   *fabric.QueryResult
	execErr      error
	dryRunStats  *fabric.DryRunStats
	dryRunErr    error
	tables       []types.TableMeta
	listErr      error
	listCalls    int
	schemaCalls  int
	executeCalls int
}

func (f *fakeEngine) Name() string { return "fake" }
func (f *fakeEngine) Close() error { return nil }

func (f *fakeEngine) DryRun(_ context.Context, sql string) (*fabric.DryRunStats, error) {
	f.lastSQL = sql
	if f.dryRunErr != nil {
		return nil, f.dryRunErr
	}
	if f.dryRunStats != nil {
		return f.dryRunStats, nil
	}
	return &fabric.DryRunStats{}, nil
}

func (f *fakeEngine) Execute(_ context.Context, sql string) (*fabric.QueryResult, error) {
	f.lastSQL = sql
	f.executeCalls++
	if f.execErr != nil {
		return nil, f.execErr
	}
	if f.execResult != nil {
		return f.execResult, nil
	}
	return &fabric.QueryResult{}, nil
}

func (f *fakeEngine) ListTables(context.Context) ([]types.TableMeta, error) {
	f.listCalls++
	return f.tables, f.listErr
}

func (f *fakeEngine) TableSchema(_ context.Context, table string) (*types.TableMeta, error) {
	f.schemaCalls++
	for _, m := range f.tables {
		if m.Name == table || m.FullName == table {
			meta := m
			return &meta, nil
		}
	}
	return nil, errors.New("table not found: " + table)
}

func newTestService(engine *fakeEngine, maxRows int) *Service {
	return NewService(ServiceConfig{Engine: engine, MaxRows: maxRows})
}

func TestApplyLimit(t *testing.T) {
	tests := []struct {
		name    string
		sql     string
		maxRows int
		want    string
	}{
		{"appended", "SELECT * FROM t", 1000, "SELECT * FROM t LIMIT 1000"},
		{"semicolon stripped", "SELECT * FROM t;", 1000, "SELECT * FROM t LIMIT 1000"},
		{"trailing whitespace", "SELECT * FROM t ;  ", 500, "SELECT * FROM t LIMIT 500"},
		{"already limited", "SELECT * FROM t LIMIT 10", 1000, "SELECT * FROM t LIMIT 10"},
		{"limit in subquery suppresses", "SELECT * FROM (SELECT x FROM t LIMIT 5) q", 1000, "SELECT * FROM (SELECT x FROM t LIMIT 5) q"},
		{"lowercase limit", "select * from t limit 3", 1000, "select * from t limit 3"},
		{"disabled", "SELECT * FROM t", 0, "SELECT * FROM t"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, applyLimit(tt.sql, tt.maxRows))
		})
	}
}

func TestExecuteSuccessOverwritesSession(t *testing.T) {
	when := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	engine := &fakeEngine{
		execResult: &fabric.QueryResult{
			Columns: []types.ColumnMeta{
				{Name: "day", Type: "TIMESTAMP"},
				{Name: "name", Type: "BYTES"},
			},
			Rows: []types.Row{
				{"day": when, "name": []byte("alpha")},
			},
		},
	}
	svc := newTestService(engine, 100)
	session := resultstore.NewSession("s1")

	result := svc.Execute(context.Background(), session, "SELECT day, name FROM t", -1)
	require.Equal(t, types.StatusSuccess, result.Status)
	assert.Equal(t, "SELECT day, name FROM t LIMIT 100", engine.lastSQL)
	assert.Equal(t, 1, result.TotalRows)
	assert.Equal(t, "2026-03-14T09:26:53Z", result.Rows[0]["day"])
	assert.Equal(t, "alpha", result.Rows[0]["name"])

	stored, ok := session.Result()
	require.True(t, ok)
	assert.Equal(t, result.SQL, stored.SQL)
}

func TestExecutePerCallMaxRows(t *testing.T) {
	engine := &fakeEngine{
		execResult: &fabric.QueryResult{
			Columns: []types.ColumnMeta{{Name: "x", Type: "INTEGER"}},
			Rows:    []types.Row{{"x": int64(1)}},
		},
	}
	svc := newTestService(engine, 100)
	session := resultstore.NewSession("s1")

	// Per-call cap overrides the configured one.
	result := svc.Execute(context.Background(), session, "SELECT x FROM t", 5)
	require.Equal(t, types.StatusSuccess, result.Status)
	assert.Equal(t, "SELECT x FROM t LIMIT 5", engine.lastSQL)

	// Zero disables the cap for this call only.
	result = svc.Execute(context.Background(), session, "SELECT x FROM t", 0)
	require.Equal(t, types.StatusSuccess, result.Status)
	assert.Equal(t, "SELECT x FROM t", engine.lastSQL)

	// Negative falls back to the configured cap.
	result = svc.Execute(context.Background(), session, "SELECT x FROM t", -1)
	require.Equal(t, types.StatusSuccess, result.Status)
	assert.Equal(t, "SELECT x FROM t LIMIT 100", engine.lastSQL)
}

func TestExecuteFailureLeavesSessionUntouched(t *testing.T) {
	engine := &fakeEngine{
		execResult: &fabric.QueryResult{
			Columns: []types.ColumnMeta{{Name: "x", Type: "INTEGER"}},
			Rows:    []types.Row{{"x": int64(1)}},
		},
	}
	svc := newTestService(engine, 100)
	session := resultstore.NewSession("s1")

	first := svc.Execute(context.Background(), session, "SELECT x FROM t", -1)
	require.Equal(t, types.StatusSuccess, first.Status)

	engine.execErr = errors.New("table vanished")
	second := svc.Execute(context.Background(), session, "SELECT x FROM gone", -1)
	assert.Equal(t, types.StatusError, second.Status)
	assert.Equal(t, "table vanished", second.Error)
	assert.NotEmpty(t, second.SQL)

	stored, ok := session.Result()
	require.True(t, ok)
	assert.Equal(t, first.SQL, stored.SQL)
	assert.Len(t, stored.Rows, 1)
}

func TestValidate(t *testing.T) {
	engine := &fakeEngine{dryRunStats: &fabric.DryRunStats{BytesProcessed: 5 * 1024 * 1024}}
	svc := newTestService(engine, 100)

	res := svc.Validate(context.Background(), "SELECT 1")
	assert.Equal(t, types.StatusValid, res.Status)
	assert.Equal(t, int64(5*1024*1024), res.EstimatedBytes)
	assert.Equal(t, "5.00 MB", res.EstimatedSize)
	assert.Equal(t, "Query is valid. Estimated data to process: 5.00 MB", res.Message)

	engine.dryRunErr = errors.New("syntax error at position 8")
	res = svc.Validate(context.Background(), "SELEC 1")
	assert.Equal(t, types.StatusInvalid, res.Status)
	assert.Equal(t, "syntax error at position 8", res.Error)
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "1.50 KB", formatBytes(1536))
	assert.Equal(t, "2.00 GB", formatBytes(2<<30))
}

func TestSchemaCacheTables(t *testing.T) {
	engine := &fakeEngine{tables: []types.TableMeta{
		{Name: "b_table", FullName: "ds.b_table", NumRows: 2},
		{Name: "a_table", FullName: "ds.a_table", NumRows: 1},
	}}
	svc := newTestService(engine, 100)

	res := svc.Cache().Tables(context.Background())
	require.Equal(t, types.StatusSuccess, res.Status)
	require.Equal(t, 2, res.Count)
	assert.Equal(t, "ds.a_table", res.Tables[0].FullName)

	// Second listing serves from cache.
	svc.Cache().Tables(context.Background())
	assert.Equal(t, 1, engine.listCalls)
}

func TestSchemaCacheTableSchema(t *testing.T) {
	engine := &fakeEngine{
		tables: []types.TableMeta{
			{Name: "sales", FullName: "ds.sales", NumRows: 42,
				Columns: []types.ColumnMeta{{Name: "state", Type: "STRING"}}},
		},
		execResult: &fabric.QueryResult{
			Rows: []types.Row{{"state": "CA"}},
		},
	}
	svc := newTestService(engine, 100)

	res := svc.Cache().TableSchema(context.Background(), "ds.sales")
	require.Equal(t, types.StatusSuccess, res.Status)
	assert.Equal(t, "sales", res.TableName)
	assert.Equal(t, int64(42), res.NumRows)
	require.Len(t, res.SampleRows, 1)
	assert.Equal(t, "SELECT * FROM sales LIMIT 5", engine.lastSQL)

	// Metadata served from cache on repeat; only the sample query re-runs.
	svc.Cache().TableSchema(context.Background(), "sales")
	assert.Equal(t, 1, engine.schemaCalls)

	errRes := svc.Cache().TableSchema(context.Background(), "missing")
	assert.Equal(t, types.StatusError, errRes.Status)
	assert.Contains(t, errRes.Error, "missing")
}

func TestSchemaCacheClear(t *testing.T) {
	engine := &fakeEngine{tables: []types.TableMeta{
		{Name: "t1", FullName: "ds.t1"},
		{Name: "t2", FullName: "ds.t2"},
	}}
	svc := newTestService(engine, 100)
	svc.Cache().Tables(context.Background())

	msg := svc.Cache().Clear()
	assert.Equal(t, "Cleared 2 cached table schemas", msg)

	// Listing after clear hits the engine again.
	svc.Cache().Tables(context.Background())
	assert.Equal(t, 2, engine.listCalls)
}
