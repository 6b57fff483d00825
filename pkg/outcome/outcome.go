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

// Package outcome classifies agent runs and emits one structured log entry
// per invocation. Safety-filtered detection uses two tiers: exact refusal
// phrases that fire regardless of tool usage, and a structural tier that
// combines agent behavior (no data tool ran) with broad privacy keywords.
// The structural tier is resilient to rephrasing because it keys on what
// the agent did, not the words it chose.
package outcome

import (
	"regexp"
	"strings"
)

// Run outcome labels.
const (
	Success        = "success"
	Timeout        = "timeout"
	Error          = "error"
	Empty          = "empty"
	SafetyFiltered = "safety_filtered"
)

// ToolCall is one step of the run's decision trace.
type ToolCall struct {
	Agent string `json:"agent"`
	Tool  string `json:"tool"`
}

// Tier 1: high-confidence refusal phrases. These indicate a model-level
// safety filter regardless of tool usage.
var safetyRefusalPatterns = regexp.MustCompile("(?i)" + strings.Join([]string{
	// can(?:'?t|not) matches "can't", "cant", and "cannot".
	`i can(?:'?t|not) help with that`,
	`i(?:'m| am) not able to assist`,
	`i cannot assist`,
	`i(?:'m| am) unable to help`,
	`against my .* guidelines`,
	`content policy`,
	`i(?:'m| am) not able to provide`,
	`potentially harmful`,
	`i can(?:'?t|not) generate`,
	`i(?:'m| am) not able to generate`,
	`violates .* policy`,
	`blocked by safety`,
}, "|"))

// Tools whose invocation means the agent actively tried to fulfil the data
// request. Their presence is a strong counter-signal against a refusal.
var dataTools = map[string]bool{
	"execute_query_with_metadata": true,
	"apply_enrichment":            true,
	"add_calculated_column":       true,
}

// Tier 2: broad privacy/refusal keywords, only consulted when no data tool
// ran. Gating on the structural signal keeps the broad list from
// misclassifying responses that mention privacy after returning results.
var privacyRefusalSignals = regexp.MustCompile("(?i)" + strings.Join([]string{
	`personally identifiable`,
	`\bpii\b`,
	`sensitive (?:data|information)`,
	`confidential`,
	`data (?:protection|safety|privacy)`,
	`user privacy`,
	`protect(?:ing)? (?:user|customer|personal)`,
	`not (?:appropriate|advisable) to (?:share|display|dump|expose)`,
	`i cannot provide`,
	`i can'?t provide`,
}, "|"))

// Classify labels a completed run. Precedence: timeout, error, empty text,
// tier-1 refusal phrases, tier-2 structural refusal, success.
func Classify(responseText string, eventCount int, timedOut bool, err error, toolSequence []ToolCall) string {
	_ = eventCount

	if timedOut {
		return Timeout
	}
	if err != nil {
		return Error
	}
	if strings.TrimSpace(responseText) == "" {
		return Empty
	}
	if safetyRefusalPatterns.MatchString(responseText) {
		return SafetyFiltered
	}
	if toolSequence != nil {
		ranDataTool := false
		for _, call := range toolSequence {
			if dataTools[call.Tool] {
				ranDataTool = true
				break
			}
		}
		if !ranDataTool && privacyRefusalSignals.MatchString(responseText) {
			return SafetyFiltered
		}
	}
	return Success
}
