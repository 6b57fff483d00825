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
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/teradata-labs/spindle/pkg/types"
)

// Response is the parsed enrichment actor reply.
type Response struct {
	Enrichments     []types.EnrichmentItem `json:"enrichments"`
	Warnings        []string               `json:"warnings"`
	SearchPerformed bool                   `json:"search_performed"`
	PartialFailure  bool                   `json:"partial_failure"`
}

// Actor replies are free text with a JSON object somewhere inside.
var responsePattern = regexp.MustCompile(`(?s)\{.*"enrichments".*\}`)

// ParseActorResponse extracts and decodes the enrichment JSON object from
// the actor's raw reply. Missing provenance fields receive defaults (source
// "Unknown", confidence medium, freshness current); unknown confidence or
// freshness values fail the parse.
func ParseActorResponse(text string) (*Response, error) {
	payload := responsePattern.FindString(text)
	if payload == "" {
		return nil, fmt.Errorf("no enrichment JSON object found in response")
	}

	var raw struct {
		Enrichments []struct {
			OriginalValue  string                    `json:"original_value"`
			EnrichedFields map[string]map[string]any `json:"enriched_fields"`
		} `json:"enrichments"`
		Warnings        []string `json:"warnings"`
		SearchPerformed *bool    `json:"search_performed"`
		PartialFailure  bool     `json:"partial_failure"`
	}
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return nil, fmt.Errorf("decode enrichment response: %w", err)
	}

	out := &Response{
		Warnings:        raw.Warnings,
		SearchPerformed: raw.SearchPerformed == nil || *raw.SearchPerformed,
		PartialFailure:  raw.PartialFailure,
	}
	for _, item := range raw.Enrichments {
		fields := make(map[string]types.EnrichedField, len(item.EnrichedFields))
		for name, data := range item.EnrichedFields {
			field, err := decodeField(data)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", name, err)
			}
			fields[name] = field
		}
		out.Enrichments = append(out.Enrichments, types.EnrichmentItem{
			OriginalValue:  item.OriginalValue,
			EnrichedFields: fields,
		})
	}
	return out, nil
}

func decodeField(data map[string]any) (types.EnrichedField, error) {
	field := types.EnrichedField{
		Value:      data["value"],
		Source:     "Unknown",
		Confidence: types.ConfidenceMedium,
		Freshness:  types.FreshnessCurrent,
	}
	if s, ok := data["source"].(string); ok && s != "" {
		field.Source = s
	}
	if c, ok := data["confidence"].(string); ok && c != "" {
		switch c {
		case types.ConfidenceHigh, types.ConfidenceMedium, types.ConfidenceLow:
			field.Confidence = c
		default:
			return types.EnrichedField{}, fmt.Errorf("invalid confidence %q", c)
		}
	}
	if f, ok := data["freshness"].(string); ok && f != "" {
		switch f {
		case types.FreshnessStatic, types.FreshnessCurrent, types.FreshnessDated, types.FreshnessStale:
			field.Freshness = f
		default:
			return types.EnrichedField{}, fmt.Errorf("invalid freshness %q", f)
		}
	}
	if w, ok := data["warning"].(string); ok {
		field.Warning = w
	}
	return field, nil
}
