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

// Package calc derives calculated columns on the session's current result by
// evaluating arithmetic expressions over existing column values. Evaluation
// goes through the sandboxed expr package; no expression text ever reaches a
// general-purpose evaluator.
package calc

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/teradata-labs/spindle/pkg/expr"
	"github.com/teradata-labs/spindle/pkg/resultstore"
	"github.com/teradata-labs/spindle/pkg/types"
)

// maxMetadataWarnings caps per-row warnings carried in calculation metadata.
const maxMetadataWarnings = 5

var identifierPattern = regexp.MustCompile(`\b([a-zA-Z_][a-zA-Z0-9_]*)\b`)

// Words the identifier scan must not treat as column references.
var excludedWords = map[string]bool{
	"and": true, "or": true, "not": true, "if": true, "else": true,
	"in": true, "is": true,
	"True": true, "False": true, "None": true,
	"true": true, "false": true, "none": true,
}

// Derive adds a calculated column to the session's current result.
//
// Idempotent by column name: when the column already exists the current
// result is returned unchanged. Per-row evaluation failures produce a null
// cell with a warning instead of failing the whole derivation; only a
// missing referenced column aborts before anything is committed.
func Derive(session *resultstore.Session, columnName, expression, formatType string) *types.TabularResult {
	current, ok := session.Result()
	if !ok {
		return types.ErrorResult("No query result available. Run a query first.")
	}
	if formatType == "" {
		formatType = types.FormatNumber
	}

	if current.HasColumn(columnName) {
		return current
	}

	referenced := referencedColumns(expression)
	var missing []string
	for _, col := range referenced {
		if !current.HasColumn(col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		available := current.ColumnNames()
		sort.Strings(available)
		return types.ErrorResult(fmt.Sprintf(
			"Column(s) not found: %s. Available columns: %s",
			strings.Join(missing, ", "), strings.Join(available, ", ")))
	}

	var derived *types.TabularResult
	err := session.Replace(func(result *types.TabularResult) (*types.TabularResult, error) {
		derived = deriveInto(result, columnName, expression, formatType, referenced)
		return derived, nil
	})
	if err != nil {
		return types.ErrorResult(err.Error())
	}
	return derived.Clone()
}

func deriveInto(result *types.TabularResult, columnName, expression, formatType string, referenced []string) *types.TabularResult {
	colType := "FLOAT64"
	if formatType == types.FormatInteger {
		colType = "INTEGER"
	}
	result.Columns = append(result.Columns, types.ColumnMeta{
		Name:         columnName,
		Type:         colType,
		IsCalculated: true,
	})

	var warnings []string
	for i, row := range result.Rows {
		vars := make(map[string]float64, len(referenced))
		for _, col := range referenced {
			value, coerced := coerceNumeric(row[col])
			vars[col] = value
			if coerced && len(warnings) < maxMetadataWarnings {
				warnings = append(warnings, fmt.Sprintf(
					"Row %d: treated non-numeric value as 0 for '%s'", i, col))
			}
		}

		value, err := expr.Evaluate(expression, vars)
		switch {
		case errors.Is(err, expr.ErrDivisionByZero):
			row[columnName] = types.CalculatedCell(nil, expression, formatType, "Division by zero")
		case err != nil:
			if len(warnings) < maxMetadataWarnings {
				warnings = append(warnings, fmt.Sprintf("Row %d: %s", i, err.Error()))
			}
			row[columnName] = types.CalculatedCell(nil, expression, formatType, err.Error())
		default:
			row[columnName] = types.CalculatedCell(formatValue(value, formatType), expression, formatType, "")
		}
	}

	if result.CalculationMetadata == nil {
		result.CalculationMetadata = &types.CalculationMetadata{Warnings: []string{}}
	}
	result.CalculationMetadata.CalculatedColumns = append(
		result.CalculationMetadata.CalculatedColumns,
		types.CalculatedColumnSpec{Name: columnName, Expression: expression, FormatType: formatType})
	result.CalculationMetadata.Warnings = append(result.CalculationMetadata.Warnings, warnings...)
	return result
}

// referencedColumns extracts the column names an expression mentions.
func referencedColumns(expression string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, match := range identifierPattern.FindAllString(expression, -1) {
		if excludedWords[match] || seen[match] {
			continue
		}
		seen[match] = true
		out = append(out, match)
	}
	return out
}

// coerceNumeric turns an arbitrary cell value into a float64 operand.
// Enriched cells contribute their inner value; nil and unparsable strings
// coerce to 0, reported via the second return.
func coerceNumeric(v any) (float64, bool) {
	if cell, ok := v.(map[string]any); ok {
		if inner, present := cell["value"]; present {
			v = inner
		}
	}
	switch val := v.(type) {
	case nil:
		return 0, true
	case float64:
		return val, false
	case float32:
		return float64(val), false
	case int:
		return float64(val), false
	case int32:
		return float64(val), false
	case int64:
		return float64(val), false
	case bool:
		if val {
			return 1, false
		}
		return 0, false
	case string:
		return parseLeadingNumber(val)
	default:
		return 0, true
	}
}

var nonNumericChars = regexp.MustCompile(`[^\d.]+`)

// parseLeadingNumber extracts a number from text like "39.5 million": the
// first whitespace-separated token, stripped of everything but digits and
// decimal points. Anything unparsable becomes 0.
func parseLeadingNumber(s string) (float64, bool) {
	first := ""
	if fields := strings.Fields(s); len(fields) > 0 {
		first = fields[0]
	}
	clean := nonNumericChars.ReplaceAllString(first, "")
	if clean == "" {
		return 0, true
	}
	value, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return 0, true
	}
	return value, false
}

// formatValue applies display rounding for the format type.
func formatValue(v float64, formatType string) float64 {
	switch formatType {
	case types.FormatInteger:
		return math.Round(v)
	case types.FormatPercent, types.FormatCurrency:
		return round2(v)
	default:
		// number: two decimals unless the value is exactly integral.
		if v == math.Trunc(v) {
			return v
		}
		return round2(v)
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
