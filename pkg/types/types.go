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

// Package types holds the shared data model for the spindle result-mutation
// pipeline: the tabular result that query execution, enrichment, and
// calculated-column derivation progressively transform, plus the enrichment
// and insight value types exchanged with collaborators.
package types

import "encoding/json"

// Result status values used across tool responses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusValid   = "valid"
	StatusInvalid = "invalid"
	StatusReady   = "ready"
)

// EnrichedColumnPrefix is prepended to every enrichment-derived column name.
// The prefix keeps enriched columns in a separate namespace so they can never
// collide with base or calculated columns.
const EnrichedColumnPrefix = "_enriched_"

// Row is one result row keyed by column name. Cell values are scalars
// (string, number, bool, nil) or structured cell objects (map[string]any)
// for enriched and calculated columns.
type Row = map[string]any

// ColumnMeta describes one column of a TabularResult.
type ColumnMeta struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	Description  string `json:"description,omitempty"`
	Mode         string `json:"mode,omitempty"`
	IsEnriched   bool   `json:"is_enriched,omitempty"`
	IsCalculated bool   `json:"is_calculated,omitempty"`
}

// TabularResult is the single mutable "current result" of a session.
// It is produced by query execution (full overwrite) and then transformed
// in place by enrichment merges and calculated-column derivations.
type TabularResult struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`

	// Columns and Rows serialize even when empty: the response guard
	// requires list-typed rows and columns on every success payload.
	Columns             []ColumnMeta         `json:"columns"`
	Rows                []Row                `json:"rows"`
	TotalRows           int                  `json:"total_rows"`
	QueryTimeMs         float64              `json:"query_time_ms,omitempty"`
	SQL                 string               `json:"sql,omitempty"`
	EnrichmentMetadata  *EnrichmentMetadata  `json:"enrichment_metadata,omitempty"`
	CalculationMetadata *CalculationMetadata `json:"calculation_metadata,omitempty"`
}

// ErrorResult builds a TabularResult carrying only an error.
func ErrorResult(msg string) *TabularResult {
	return &TabularResult{Status: StatusError, Error: msg}
}

// HasColumn reports whether a column with the given name exists.
func (r *TabularResult) HasColumn(name string) bool {
	for _, c := range r.Columns {
		if c.Name == name {
			return true
		}
	}
	return false
}

// ColumnNames returns the column names in declaration order.
func (r *TabularResult) ColumnNames() []string {
	names := make([]string, 0, len(r.Columns))
	for _, c := range r.Columns {
		names = append(names, c.Name)
	}
	return names
}

// Clone returns a deep copy of the result. Transforms always mutate a clone
// and write it back, so a failed transform never leaves a half-mutated
// result behind.
func (r *TabularResult) Clone() *TabularResult {
	if r == nil {
		return nil
	}
	out := *r
	out.Columns = append([]ColumnMeta(nil), r.Columns...)
	out.Rows = make([]Row, len(r.Rows))
	for i, row := range r.Rows {
		cp := make(Row, len(row))
		for k, v := range row {
			cp[k] = cloneValue(v)
		}
		out.Rows[i] = cp
	}
	if r.EnrichmentMetadata != nil {
		em := *r.EnrichmentMetadata
		em.EnrichedFields = append([]string(nil), r.EnrichmentMetadata.EnrichedFields...)
		em.Warnings = append([]string(nil), r.EnrichmentMetadata.Warnings...)
		out.EnrichmentMetadata = &em
	}
	if r.CalculationMetadata != nil {
		cm := *r.CalculationMetadata
		cm.CalculatedColumns = append([]CalculatedColumnSpec(nil), r.CalculationMetadata.CalculatedColumns...)
		cm.Warnings = append([]string(nil), r.CalculationMetadata.Warnings...)
		out.CalculationMetadata = &cm
	}
	return &out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		cp := make(map[string]any, len(val))
		for k, inner := range val {
			cp[k] = cloneValue(inner)
		}
		return cp
	case []any:
		cp := make([]any, len(val))
		for i, inner := range val {
			cp[i] = cloneValue(inner)
		}
		return cp
	default:
		return v
	}
}

// EnrichmentMetadata records the outcome of one enrichment merge.
type EnrichmentMetadata struct {
	SourceColumn   string   `json:"source_column"`
	EnrichedFields []string `json:"enriched_fields"`
	TotalEnriched  int      `json:"total_enriched"`
	Warnings       []string `json:"warnings"`
	PartialFailure bool     `json:"partial_failure"`
}

// CalculationMetadata records every calculated column added to the result.
type CalculationMetadata struct {
	CalculatedColumns []CalculatedColumnSpec `json:"calculated_columns"`
	Warnings          []string               `json:"warnings"`
}

// CalculatedColumnSpec describes one derived column.
type CalculatedColumnSpec struct {
	Name       string `json:"name"`
	Expression string `json:"expression"`
	FormatType string `json:"format_type"`
}

// Format types accepted by the calculated-column deriver.
const (
	FormatNumber   = "number"
	FormatInteger  = "integer"
	FormatPercent  = "percent"
	FormatCurrency = "currency"
)

// Confidence levels for enriched data.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// Freshness levels for enriched data.
const (
	FreshnessStatic  = "static"  // historical facts that do not change
	FreshnessCurrent = "current" // verified within the last year
	FreshnessDated   = "dated"   // may be outdated (1-3 years)
	FreshnessStale   = "stale"   // likely outdated
)

// EnrichedField is a single externally-sourced fact with provenance metadata.
type EnrichedField struct {
	Value      any    `json:"value"`
	Source     string `json:"source"`
	Confidence string `json:"confidence"`
	Freshness  string `json:"freshness"`
	Warning    string `json:"warning,omitempty"`
}

// EnrichmentItem is the enrichment produced for one original value.
// It is produced by the enrichment actor and consumed exactly once by the
// merger.
type EnrichmentItem struct {
	OriginalValue  string                   `json:"original_value"`
	EnrichedFields map[string]EnrichedField `json:"enriched_fields"`
}

// EnrichedCell builds the structured cell object stored for an enriched
// column, applying the confidence and freshness defaults.
func EnrichedCell(f EnrichedField) Row {
	confidence := f.Confidence
	if confidence == "" {
		confidence = ConfidenceMedium
	}
	freshness := f.Freshness
	if freshness == "" {
		freshness = FreshnessCurrent
	}
	cell := Row{
		"value":      f.Value,
		"source":     f.Source,
		"confidence": confidence,
		"freshness":  freshness,
		"warning":    nil,
	}
	if f.Warning != "" {
		cell["warning"] = f.Warning
	}
	return cell
}

// NullEnrichedCell builds the placeholder cell written when no enrichment
// data exists for a row.
func NullEnrichedCell(warning string) Row {
	return Row{
		"value":      nil,
		"source":     nil,
		"confidence": nil,
		"freshness":  nil,
		"warning":    warning,
	}
}

// CalculatedCell builds the structured cell object stored for a calculated
// column. A non-empty warning marks a per-row evaluation failure; the value
// is nil in that case.
func CalculatedCell(value any, expression, formatType, warning string) Row {
	cell := Row{
		"value":         value,
		"expression":    expression,
		"format_type":   formatType,
		"is_calculated": true,
	}
	if warning != "" {
		cell["warning"] = warning
	}
	return cell
}

// Insight categories the agent may report.
const (
	InsightTrend      = "trend"
	InsightAnomaly    = "anomaly"
	InsightComparison = "comparison"
	InsightSuggestion = "suggestion"
)

// Insight is one proactive observation reported during analysis.
type Insight struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// NormalizeInsightType coerces unknown categories to "suggestion".
func NormalizeInsightType(t string) string {
	switch t {
	case InsightTrend, InsightAnomaly, InsightComparison, InsightSuggestion:
		return t
	default:
		return InsightSuggestion
	}
}

// TableMeta describes one table of the configured dataset, as cached by the
// schema cache and returned by the table-listing tools.
type TableMeta struct {
	Name        string       `json:"name"`
	FullName    string       `json:"full_name"`
	Description string       `json:"description"`
	NumRows     int64        `json:"num_rows"`
	Columns     []ColumnMeta `json:"columns"`
}

// AsPayload converts any JSON-shaped value into the generic map form that
// crosses the tool boundary. Tool responses are validated and delivered as
// maps so the guard layer can inspect them without knowing concrete types.
func AsPayload(v any) map[string]any {
	data, err := json.Marshal(v)
	if err != nil {
		return map[string]any{"status": StatusError, "error": err.Error()}
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return map[string]any{"status": StatusError, "error": err.Error()}
	}
	return out
}
