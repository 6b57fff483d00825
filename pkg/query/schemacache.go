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
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/teradata-labs/spindle/pkg/fabric"
	"github.com/teradata-labs/spindle/pkg/types"
)

// sampleRowLimit is how many example rows TableSchema fetches.
const sampleRowLimit = 5

// SchemaCache is a read-mostly cache of table metadata keyed by full table
// name. Entries are filled on demand; Clear evicts everything, forcing a
// re-read on next access. Stale entries are harmless since refills are
// idempotent.
type SchemaCache struct {
	mu     sync.RWMutex
	tables map[string]types.TableMeta
	listed bool
	engine fabric.QueryEngine
	logger *zap.Logger
}

// NewSchemaCache builds an empty cache over the engine.
func NewSchemaCache(engine fabric.QueryEngine, logger *zap.Logger) *SchemaCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SchemaCache{
		tables: make(map[string]types.TableMeta),
		engine: engine,
		logger: logger,
	}
}

// TablesResult is the table listing returned to the model.
type TablesResult struct {
	Status string            `json:"status"`
	Error  string            `json:"error,omitempty"`
	Tables []types.TableMeta `json:"tables,omitempty"`
	Count  int               `json:"count,omitempty"`
}

// Tables lists all tables of the dataset, filling the cache on first use.
func (c *SchemaCache) Tables(ctx context.Context) *TablesResult {
	c.mu.RLock()
	listed := c.listed
	c.mu.RUnlock()

	if !listed {
		metas, err := c.engine.ListTables(ctx)
		if err != nil {
			return &TablesResult{Status: types.StatusError, Error: err.Error()}
		}
		c.mu.Lock()
		for _, m := range metas {
			c.tables[m.FullName] = m
		}
		c.listed = true
		c.mu.Unlock()
		c.logger.Debug("schema cache populated", zap.Int("tables", len(metas)))
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]types.TableMeta, 0, len(c.tables))
	for _, m := range c.tables {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return &TablesResult{Status: types.StatusSuccess, Tables: out, Count: len(out)}
}

// SchemaResult describes one table plus sample rows.
type SchemaResult struct {
	Status      string             `json:"status"`
	Error       string             `json:"error,omitempty"`
	TableName   string             `json:"table_name,omitempty"`
	FullName    string             `json:"full_name,omitempty"`
	Description string             `json:"description,omitempty"`
	NumRows     int64              `json:"num_rows,omitempty"`
	Columns     []types.ColumnMeta `json:"columns,omitempty"`
	SampleRows  []types.Row        `json:"sample_rows,omitempty"`
}

// TableSchema describes one table, caching the metadata. Sample rows are
// fetched fresh each call so they reflect current data.
func (c *SchemaCache) TableSchema(ctx context.Context, table string) *SchemaResult {
	meta, ok := c.lookup(table)
	if !ok {
		fetched, err := c.engine.TableSchema(ctx, table)
		if err != nil {
			return &SchemaResult{Status: types.StatusError, Error: err.Error()}
		}
		meta = *fetched
		c.mu.Lock()
		c.tables[meta.FullName] = meta
		c.mu.Unlock()
	}

	var samples []types.Row
	sampleSQL := fmt.Sprintf("SELECT * FROM %s LIMIT %d", meta.Name, sampleRowLimit)
	if raw, err := c.engine.Execute(ctx, sampleSQL); err == nil {
		samples = normalizeRows(raw.Rows)
	} else {
		c.logger.Debug("sample row fetch failed",
			zap.String("table", meta.Name),
			zap.Error(err))
	}

	return &SchemaResult{
		Status:      types.StatusSuccess,
		TableName:   meta.Name,
		FullName:    meta.FullName,
		Description: meta.Description,
		NumRows:     meta.NumRows,
		Columns:     meta.Columns,
		SampleRows:  samples,
	}
}

func (c *SchemaCache) lookup(table string) (types.TableMeta, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if m, ok := c.tables[table]; ok {
		return m, true
	}
	for _, m := range c.tables {
		if m.Name == table {
			return m, true
		}
	}
	return types.TableMeta{}, false
}

// Clear evicts every cached entry and reports how many were dropped.
func (c *SchemaCache) Clear() string {
	c.mu.Lock()
	n := len(c.tables)
	c.tables = make(map[string]types.TableMeta)
	c.listed = false
	c.mu.Unlock()
	c.logger.Info("schema cache cleared", zap.Int("evicted", n))
	return fmt.Sprintf("Cleared %d cached table schemas", n)
}
