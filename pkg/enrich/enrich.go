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

// Package enrich validates enrichment requests, builds the prompt handed to
// the enrichment actor, parses the actor's reply, and merges enrichment data
// into the session's current result.
package enrich

import (
	"fmt"
	"strings"

	"github.com/teradata-labs/spindle/pkg/types"
)

// Request size limits. Enrichment fans out to external lookups, so both axes
// are capped before anything leaves the process.
const (
	MaxValues = 20
	MaxFields = 5
)

// largeRequestThreshold triggers an advisory warning, not a rejection.
const largeRequestThreshold = 30

// volatileIndicators mark requested fields whose answers drift over time.
var volatileIndicators = []string{
	"population", "governor", "ceo", "current", "recent", "news", "events",
}

// ValidationResult reports whether an enrichment request may proceed.
// Warnings are advisory and accompany valid requests.
type ValidationResult struct {
	Valid            bool     `json:"valid"`
	Error            string   `json:"error,omitempty"`
	Warnings         []string `json:"warnings"`
	TotalEnrichments int      `json:"total_enrichments,omitempty"`
}

// ValidateRequest applies the request guardrails in order: value cap, field
// cap, empty values, empty fields. The first failure wins. dataType is
// accepted as a hint for prompt building and plays no part in validation.
func ValidateRequest(values, fields []string, dataType string) *ValidationResult {
	_ = dataType

	if len(values) > MaxValues {
		return &ValidationResult{
			Error: fmt.Sprintf(
				"Too many values to enrich. Maximum is %d, got %d. Please narrow your query or enrich in batches.",
				MaxValues, len(values)),
			Warnings: []string{},
		}
	}
	if len(fields) > MaxFields {
		return &ValidationResult{
			Error: fmt.Sprintf(
				"Too many fields requested. Maximum is %d, got %d. Please request fewer enrichment fields.",
				MaxFields, len(fields)),
			Warnings: []string{},
		}
	}
	if len(values) == 0 {
		return &ValidationResult{
			Error:    "No values provided for enrichment.",
			Warnings: []string{},
		}
	}
	if len(fields) == 0 {
		return &ValidationResult{
			Error:    "No fields specified for enrichment. Please specify what data to add.",
			Warnings: []string{},
		}
	}

	warnings := []string{}
	var volatile []string
	for _, f := range fields {
		lower := strings.ToLower(f)
		for _, ind := range volatileIndicators {
			if strings.Contains(lower, ind) {
				volatile = append(volatile, f)
				break
			}
		}
	}
	if len(volatile) > 0 {
		warnings = append(warnings, fmt.Sprintf(
			"Dynamic fields requested: %v. These may change over time - results will include freshness indicators.",
			volatile))
	}

	total := len(values) * len(fields)
	if total > largeRequestThreshold {
		warnings = append(warnings, fmt.Sprintf(
			"Large enrichment request (%d total lookups). This may take longer and could have some failures.",
			total))
	}

	return &ValidationResult{Valid: true, Warnings: warnings, TotalEnrichments: total}
}

// Request is the prepared enrichment request returned to the model.
type Request struct {
	Status           string   `json:"status"`
	Error            string   `json:"error,omitempty"`
	Prompt           string   `json:"prompt,omitempty"`
	Warnings         []string `json:"warnings"`
	TotalEnrichments int      `json:"total_enrichments,omitempty"`
	Instructions     string   `json:"instructions,omitempty"`
}

// BuildRequest validates the request and, when valid, formats the prompt for
// the enrichment actor. The prompt shows at most the first ten values.
func BuildRequest(column string, values, fields []string, dataType, contextHint string) *Request {
	validation := ValidateRequest(values, fields, dataType)
	if !validation.Valid {
		return &Request{
			Status:   types.StatusError,
			Error:    validation.Error,
			Warnings: validation.Warnings,
		}
	}

	shown := values
	suffix := ""
	if len(shown) > 10 {
		shown = shown[:10]
		suffix = "..."
	}

	var b strings.Builder
	b.WriteString("## Enrichment Request\n\n")
	fmt.Fprintf(&b, "**Column to enrich**: %s\n", column)
	fmt.Fprintf(&b, "**Values**: %s%s\n", strings.Join(shown, ", "), suffix)
	fmt.Fprintf(&b, "**Fields to add**: %s\n\n", strings.Join(fields, ", "))
	if contextHint != "" {
		fmt.Fprintf(&b, "**Context**: %s\n", contextHint)
	}
	if dataType != "" {
		fmt.Fprintf(&b, "**Data type**: %s\n", dataType)
	}
	b.WriteString(`
Please enrich each value with the requested fields. For each field:
1. Search for accurate, current information
2. Include the source for each fact
3. Indicate confidence level (high/medium/low)
4. Flag any information that may be outdated

Return results in the structured JSON format specified in your instructions.
`)

	return &Request{
		Status:           types.StatusReady,
		Prompt:           b.String(),
		Warnings:         validation.Warnings,
		TotalEnrichments: validation.TotalEnrichments,
		Instructions: "Pass this prompt to the enrichment actor. " +
			"The actor returns structured data with source attribution. " +
			"After receiving the response, merge it with the query results.",
	}
}
