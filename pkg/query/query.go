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

// Package query executes SQL through a fabric.QueryEngine, normalizes the
// results into the shared tabular form, and maintains the table-schema
// cache. A successful execution is the only thing that overwrites a
// session's current result.
package query

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/teradata-labs/spindle/pkg/fabric"
	"github.com/teradata-labs/spindle/pkg/resultstore"
	"github.com/teradata-labs/spindle/pkg/types"
)

// DefaultMaxRows caps result size when the caller does not override it.
const DefaultMaxRows = 1000

// ServiceConfig configures a Service.
type ServiceConfig struct {
	Engine fabric.QueryEngine
	// MaxRows is appended as a LIMIT to statements that carry none.
	// Zero disables the cap.
	MaxRows int
	Logger  *zap.Logger
}

// Service wraps a QueryEngine with result normalization, pre-validation,
// and schema caching.
type Service struct {
	engine  fabric.QueryEngine
	cache   *SchemaCache
	maxRows int
	logger  *zap.Logger
}

// NewService builds a Service. MaxRows defaults to DefaultMaxRows when
// negative.
func NewService(cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	maxRows := cfg.MaxRows
	if maxRows < 0 {
		maxRows = DefaultMaxRows
	}
	return &Service{
		engine:  cfg.Engine,
		cache:   NewSchemaCache(cfg.Engine, logger),
		maxRows: maxRows,
		logger:  logger,
	}
}

// Execute runs the statement and, on success, overwrites the session's
// current result. Failures leave the session untouched and are reported in
// the returned result's error field. maxRows caps the result when the
// statement carries no LIMIT: zero disables the cap for this call, negative
// falls back to the configured service cap.
func (s *Service) Execute(ctx context.Context, session *resultstore.Session, sqlText string, maxRows int) *types.TabularResult {
	if maxRows < 0 {
		maxRows = s.maxRows
	}
	finalSQL := applyLimit(sqlText, maxRows)

	start := time.Now()
	raw, err := s.engine.Execute(ctx, finalSQL)
	elapsed := time.Since(start)
	if err != nil {
		s.logger.Warn("query failed",
			zap.String("session_id", session.ID()),
			zap.Error(err))
		out := types.ErrorResult(err.Error())
		out.SQL = finalSQL
		return out
	}

	result := &types.TabularResult{
		Status:      types.StatusSuccess,
		Columns:     raw.Columns,
		Rows:        normalizeRows(raw.Rows),
		TotalRows:   len(raw.Rows),
		QueryTimeMs: float64(elapsed.Microseconds()) / 1000.0,
		SQL:         finalSQL,
	}
	session.SetResult(result)

	s.logger.Info("query executed",
		zap.String("session_id", session.ID()),
		zap.Int("rows", result.TotalRows),
		zap.Float64("query_time_ms", result.QueryTimeMs))
	return result
}

// ValidationResult reports the outcome of a dry run.
type ValidationResult struct {
	Status         string `json:"status"`
	Error          string `json:"error,omitempty"`
	EstimatedBytes int64  `json:"estimated_bytes,omitempty"`
	EstimatedSize  string `json:"estimated_size,omitempty"`
	Message        string `json:"message,omitempty"`
}

// Validate dry-runs the statement without touching any session state.
func (s *Service) Validate(ctx context.Context, sqlText string) *ValidationResult {
	stats, err := s.engine.DryRun(ctx, sqlText)
	if err != nil {
		return &ValidationResult{Status: types.StatusInvalid, Error: err.Error()}
	}
	size := formatBytes(stats.BytesProcessed)
	return &ValidationResult{
		Status:         types.StatusValid,
		EstimatedBytes: stats.BytesProcessed,
		EstimatedSize:  size,
		Message:        fmt.Sprintf("Query is valid. Estimated data to process: %s", size),
	}
}

// Cache exposes the table-schema cache.
func (s *Service) Cache() *SchemaCache { return s.cache }

// applyLimit appends a LIMIT clause when the statement has none. Detection
// matches on the lowered text, so a LIMIT anywhere (even in a subquery)
// suppresses the append.
func applyLimit(sqlText string, maxRows int) string {
	trimmed := strings.TrimSpace(sqlText)
	if maxRows <= 0 {
		return trimmed
	}
	if strings.Contains(strings.ToLower(trimmed), "limit") {
		return trimmed
	}
	trimmed = strings.TrimRight(strings.TrimSuffix(strings.TrimRight(trimmed, " \t\n"), ";"), " \t\n")
	return fmt.Sprintf("%s LIMIT %d", trimmed, maxRows)
}

// normalizeRows renders driver-specific cell values into JSON-safe forms:
// timestamps as ISO-8601 strings, byte slices as lossy UTF-8 text.
func normalizeRows(rows []types.Row) []types.Row {
	out := make([]types.Row, len(rows))
	for i, row := range rows {
		normalized := make(types.Row, len(row))
		for k, v := range row {
			normalized[k] = normalizeCell(v)
		}
		out[i] = normalized
	}
	return out
}

func normalizeCell(v any) any {
	switch val := v.(type) {
	case time.Time:
		return val.Format(time.RFC3339)
	case []byte:
		return string(val)
	default:
		return v
	}
}

func formatBytes(n int64) string {
	const (
		kb = 1 << 10
		mb = 1 << 20
		gb = 1 << 30
	)
	switch {
	case n < kb:
		return fmt.Sprintf("%d B", n)
	case n < mb:
		return fmt.Sprintf("%.2f KB", float64(n)/kb)
	case n < gb:
		return fmt.Sprintf("%.2f MB", float64(n)/mb)
	default:
		return fmt.Sprintf("%.2f GB", float64(n)/gb)
	}
}
