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

package fabric

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/teradata-labs/spindle/pkg/types"
)

// Supported database/sql driver names.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// SQLEngineConfig configures a SQLEngine.
type SQLEngineConfig struct {
	// Driver is one of DriverMySQL, DriverPostgres, DriverSQLite.
	Driver string
	// DSN is the driver-specific connection string.
	DSN string
	// Dataset is the schema/database the engine is scoped to. Used for
	// table listing and full-name qualification. For sqlite it is only a
	// display prefix.
	Dataset string
	// Logger defaults to a no-op logger.
	Logger *zap.Logger
}

// SQLEngine implements QueryEngine over database/sql. Dry runs map to
// EXPLAIN, which every bundled driver supports but none of which reports a
// scan-size estimate, so DryRunStats.BytesProcessed is always zero here.
type SQLEngine struct {
	db      *sql.DB
	driver  string
	dataset string
	logger  *zap.Logger
}

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// NewSQLEngine opens a connection pool for the configured driver.
func NewSQLEngine(cfg SQLEngineConfig) (*SQLEngine, error) {
	switch cfg.Driver {
	case DriverMySQL, DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported driver %q", cfg.Driver)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}
	return &SQLEngine{
		db:      db,
		driver:  cfg.Driver,
		dataset: cfg.Dataset,
		logger:  logger,
	}, nil
}

func (e *SQLEngine) Name() string { return e.driver }

// Close closes the underlying pool.
func (e *SQLEngine) Close() error { return e.db.Close() }

// DryRun validates the statement via EXPLAIN without executing it.
func (e *SQLEngine) DryRun(ctx context.Context, query string) (*DryRunStats, error) {
	rows, err := e.db.QueryContext(ctx, "EXPLAIN "+query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &DryRunStats{}, nil
}

// Execute runs the statement and materializes every row.
func (e *SQLEngine) Execute(ctx context.Context, query string) (*QueryResult, error) {
	rows, err := e.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	colNames, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}

	result := &QueryResult{
		Columns: make([]types.ColumnMeta, len(colNames)),
	}
	for i, name := range colNames {
		meta := types.ColumnMeta{Name: name, Type: "STRING"}
		if i < len(colTypes) && colTypes[i].DatabaseTypeName() != "" {
			meta.Type = strings.ToUpper(colTypes[i].DatabaseTypeName())
		}
		result.Columns[i] = meta
	}

	for rows.Next() {
		cells := make([]any, len(colNames))
		ptrs := make([]any, len(colNames))
		for i := range cells {
			ptrs[i] = &cells[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(types.Row, len(colNames))
		for i, name := range colNames {
			row[name] = cells[i]
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	e.logger.Debug("query executed",
		zap.String("driver", e.driver),
		zap.Int("rows", len(result.Rows)))
	return result, nil
}

// ListTables enumerates tables in the configured dataset.
func (e *SQLEngine) ListTables(ctx context.Context) ([]types.TableMeta, error) {
	names, err := e.tableNames(ctx)
	if err != nil {
		return nil, err
	}
	tables := make([]types.TableMeta, 0, len(names))
	for _, name := range names {
		meta, err := e.TableSchema(ctx, name)
		if err != nil {
			return nil, err
		}
		tables = append(tables, *meta)
	}
	return tables, nil
}

func (e *SQLEngine) tableNames(ctx context.Context) ([]string, error) {
	var query string
	var args []any
	switch e.driver {
	case DriverSQLite:
		query = `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`
	case DriverMySQL:
		query = `SELECT table_name FROM information_schema.tables WHERE table_schema = ? ORDER BY table_name`
		args = append(args, e.dataset)
	case DriverPostgres:
		query = `SELECT table_name FROM information_schema.tables WHERE table_schema = $1 ORDER BY table_name`
		args = append(args, e.dataset)
	}
	rows, err := e.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// TableSchema describes one table, including its row count.
func (e *SQLEngine) TableSchema(ctx context.Context, table string) (*types.TableMeta, error) {
	// Table names reach here from model output; only plain identifiers are
	// allowed where they get interpolated.
	name := table
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	if !identPattern.MatchString(name) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}

	columns, err := e.columnMetas(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("table %q not found", table)
	}

	var numRows int64
	countRow := e.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+name)
	if err := countRow.Scan(&numRows); err != nil {
		return nil, err
	}

	fullName := name
	if e.dataset != "" {
		fullName = e.dataset + "." + name
	}
	return &types.TableMeta{
		Name:     name,
		FullName: fullName,
		NumRows:  numRows,
		Columns:  columns,
	}, nil
}

func (e *SQLEngine) columnMetas(ctx context.Context, name string) ([]types.ColumnMeta, error) {
	if e.driver == DriverSQLite {
		rows, err := e.db.QueryContext(ctx, "PRAGMA table_info("+name+")")
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		var columns []types.ColumnMeta
		for rows.Next() {
			var cid int
			var colName, colType string
			var notNull int
			var dflt sql.NullString
			var pk int
			if err := rows.Scan(&cid, &colName, &colType, &notNull, &dflt, &pk); err != nil {
				return nil, err
			}
			mode := "NULLABLE"
			if notNull != 0 {
				mode = "REQUIRED"
			}
			columns = append(columns, types.ColumnMeta{
				Name: colName,
				Type: strings.ToUpper(colType),
				Mode: mode,
			})
		}
		return columns, rows.Err()
	}

	query := `SELECT column_name, data_type, is_nullable FROM information_schema.columns WHERE table_name = ? ORDER BY ordinal_position`
	args := []any{name}
	if e.driver == DriverPostgres {
		query = `SELECT column_name, data_type, is_nullable FROM information_schema.columns WHERE table_schema = $1 AND table_name = $2 ORDER BY ordinal_position`
		args = []any{e.dataset, name}
	} else if e.dataset != "" {
		query = `SELECT column_name, data_type, is_nullable FROM information_schema.columns WHERE table_schema = ? AND table_name = ? ORDER BY ordinal_position`
		args = []any{e.dataset, name}
	}
	rows, err := e.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var columns []types.ColumnMeta
	for rows.Next() {
		var colName, colType, nullable string
		if err := rows.Scan(&colName, &colType, &nullable); err != nil {
			return nil, err
		}
		mode := "NULLABLE"
		if strings.EqualFold(nullable, "NO") {
			mode = "REQUIRED"
		}
		columns = append(columns, types.ColumnMeta{
			Name: colName,
			Type: strings.ToUpper(colType),
			Mode: mode,
		})
	}
	return columns, rows.Err()
}
