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

package enrich

import (
	"fmt"
	"sort"

	"github.com/teradata-labs/spindle/pkg/resultstore"
	"github.com/teradata-labs/spindle/pkg/types"
)

// maxMetadataWarnings caps the warnings carried in enrichment metadata.
const maxMetadataWarnings = 5

// Merge applies enrichment items to the session's current result using the
// five-step merge: snapshot, lookup build, column append, row merge,
// metadata. The merged result is committed back to the session and returned.
//
// The merge is idempotent: re-applying the same items adds no duplicate
// columns and never overwrites an enriched cell that already carries a
// non-null value.
func Merge(session *resultstore.Session, sourceColumn string, items []types.EnrichmentItem) *types.TabularResult {
	if _, ok := session.Result(); !ok {
		return types.ErrorResult("No query result available to enrich. Run a query first.")
	}
	if len(items) == 0 {
		return types.ErrorResult("No enrichment data provided.")
	}

	var merged *types.TabularResult
	err := session.Replace(func(result *types.TabularResult) (*types.TabularResult, error) {
		merged = mergeInto(result, sourceColumn, items)
		return merged, nil
	})
	if err != nil {
		return types.ErrorResult(err.Error())
	}
	return merged.Clone()
}

func mergeInto(result *types.TabularResult, sourceColumn string, items []types.EnrichmentItem) *types.TabularResult {
	// Step 1: track existing columns so repeated merges stay idempotent.
	existing := make(map[string]bool, len(result.Columns))
	for _, c := range result.Columns {
		existing[c.Name] = true
	}

	// Step 2: build the lookup from original value to enriched fields and
	// collect every field name across items.
	lookup := make(map[string]map[string]types.EnrichedField, len(items))
	fieldSet := make(map[string]bool)
	for _, item := range items {
		lookup[item.OriginalValue] = item.EnrichedFields
		for name := range item.EnrichedFields {
			fieldSet[name] = true
		}
	}
	fieldNames := make([]string, 0, len(fieldSet))
	for name := range fieldSet {
		fieldNames = append(fieldNames, name)
	}
	sort.Strings(fieldNames)

	// Step 3: append one column per enriched field, unless already present.
	for _, name := range fieldNames {
		colName := types.EnrichedColumnPrefix + name
		if !existing[colName] {
			result.Columns = append(result.Columns, types.ColumnMeta{
				Name:       colName,
				Type:       "STRING",
				IsEnriched: true,
			})
			existing[colName] = true
		}
	}

	// Step 4: merge enriched cells into each row. Cells that already carry
	// a non-null enriched value are never clobbered.
	var warnings []string
	warned := make(map[string]bool)
	matched := make(map[string]bool)
	for _, row := range result.Rows {
		sourceValue := stringifyCell(row[sourceColumn])
		fields, found := lookup[sourceValue]
		if found {
			matched[sourceValue] = true
		}
		for _, name := range fieldNames {
			colName := types.EnrichedColumnPrefix + name
			if hasEnrichedValue(row[colName]) {
				continue
			}
			if !found {
				row[colName] = types.NullEnrichedCell(
					fmt.Sprintf("No enrichment data found for '%s'", sourceValue))
				continue
			}
			if field, ok := fields[name]; ok {
				row[colName] = types.EnrichedCell(field)
			} else {
				row[colName] = types.NullEnrichedCell("Field not found in enrichment")
			}
		}
		if !found && sourceValue != "" && !warned[sourceValue] {
			warned[sourceValue] = true
			warnings = append(warnings, fmt.Sprintf("No enrichment data found for '%s'", sourceValue))
		}
	}

	// Step 5: record the merge outcome. Warnings are capped; the full
	// failure picture lives in the per-cell warnings.
	capped := warnings
	if len(capped) > maxMetadataWarnings {
		capped = capped[:maxMetadataWarnings]
	}
	if capped == nil {
		capped = []string{}
	}
	result.EnrichmentMetadata = &types.EnrichmentMetadata{
		SourceColumn:   sourceColumn,
		EnrichedFields: fieldNames,
		TotalEnriched:  len(matched),
		Warnings:       capped,
		PartialFailure: len(warnings) > 0,
	}
	return result
}

// hasEnrichedValue reports whether the cell already holds enriched data with
// a non-null value.
func hasEnrichedValue(cell any) bool {
	m, ok := cell.(map[string]any)
	if !ok {
		return false
	}
	return m["value"] != nil
}

func stringifyCell(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
