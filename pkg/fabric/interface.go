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

// Package fabric defines the query-engine abstraction the pipeline runs
// against, plus a database/sql implementation covering the bundled drivers.
// The warehouse itself stays behind this interface; nothing above it knows
// which engine executes the SQL.
package fabric

import (
	"context"

	"github.com/teradata-labs/spindle/pkg/types"
)

// DryRunStats reports the outcome of validating a statement without running
// it. BytesProcessed is zero when the engine exposes no cost estimate.
type DryRunStats struct {
	BytesProcessed int64
}

// QueryResult is the raw engine output before normalization. Cell values are
// whatever the driver produced; the query layer owns date and byte-slice
// rendering.
type QueryResult struct {
	Columns []types.ColumnMeta
	Rows    []types.Row
}

// QueryEngine executes SQL against one configured dataset.
//
// Implementations must be safe for concurrent use. Execute returns an error
// for any engine-side failure; it never partially populates a result.
type QueryEngine interface {
	// Name identifies the engine for logs and error messages.
	Name() string

	// DryRun validates the statement without executing it.
	DryRun(ctx context.Context, sql string) (*DryRunStats, error)

	// Execute runs the statement and returns all produced rows.
	Execute(ctx context.Context, sql string) (*QueryResult, error)

	// ListTables enumerates the tables of the configured dataset.
	ListTables(ctx context.Context) ([]types.TableMeta, error)

	// TableSchema describes one table. The name may be the bare table name
	// or the dataset-qualified full name.
	TableSchema(ctx context.Context, table string) (*types.TableMeta, error)

	// Close releases engine resources.
	Close() error
}
