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

package outcome

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func queryCall() []ToolCall {
	return []ToolCall{{Agent: "data_agent", Tool: "execute_query_with_metadata"}}
}

func schemaOnlyCalls() []ToolCall {
	return []ToolCall{
		{Agent: "data_agent", Tool: "get_available_tables"},
		{Agent: "data_agent", Tool: "get_table_schema"},
	}
}

func TestClassifyPrecedence(t *testing.T) {
	// Timeout wins over everything, including error and refusal text.
	assert.Equal(t, Timeout, Classify("I can't help with that", 3, true, errors.New("boom"), nil))
	// Error wins over refusal text.
	assert.Equal(t, Error, Classify("I can't help with that", 3, false, errors.New("boom"), nil))
	// Empty beats refusal detection.
	assert.Equal(t, Empty, Classify("   \n\t", 3, false, nil, queryCall()))
	assert.Equal(t, Empty, Classify("", 0, false, nil, nil))
}

func TestClassifyTierOneRefusals(t *testing.T) {
	refusals := []string{
		"I can't help with that request.",
		"I cannot help with that.",
		"Sorry, I cant help with that",
		"I'm not able to assist with this.",
		"I am unable to help here.",
		"That would be against my safety guidelines.",
		"This request violates our content policy.",
		"The response was blocked by safety settings.",
		"This could be potentially harmful.",
	}
	for _, text := range refusals {
		// Tier 1 fires even when a data tool ran.
		assert.Equal(t, SafetyFiltered, Classify(text, 5, false, nil, queryCall()), "text: %s", text)
	}
}

func TestClassifyTierTwoRequiresBothSignals(t *testing.T) {
	privacyText := "I won't dump that table since it contains personally identifiable information."

	// Privacy language + no data tool → safety_filtered.
	assert.Equal(t, SafetyFiltered, Classify(privacyText, 4, false, nil, schemaOnlyCalls()))
	assert.Equal(t, SafetyFiltered, Classify(privacyText, 4, false, nil, []ToolCall{}))

	// Same language after a data tool ran → success (counter-signal).
	assert.Equal(t, Success, Classify(privacyText, 4, false, nil, queryCall()))

	// No privacy language, no data tool → success.
	assert.Equal(t, Success, Classify("Here is the table list you asked for.", 2, false, nil, schemaOnlyCalls()))

	// Nil tool sequence disables tier 2 entirely.
	assert.Equal(t, Success, Classify(privacyText, 4, false, nil, nil))
}

func TestClassifyTierTwoKeywords(t *testing.T) {
	for _, text := range []string{
		"That column holds PII.",
		"This is sensitive data I shouldn't expose.",
		"It is not appropriate to share raw records.",
		"I cannot provide individual customer rows.",
		"We take user privacy seriously.",
	} {
		assert.Equal(t, SafetyFiltered, Classify(text, 1, false, nil, []ToolCall{}), "text: %s", text)
	}
}

func TestClassifySuccess(t *testing.T) {
	assert.Equal(t, Success,
		Classify("Revenue grew 12% quarter over quarter.", 6, false, nil, queryCall()))
}

func TestRunTracerSuccessLog(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	tracer := NewRunTracer(zap.New(core), "sess-9", strings.Repeat("p", 300))

	tracer.RecordEvent("data_agent", []string{"get_available_tables"})
	tracer.RecordEvent("data_agent", []string{"execute_query_with_metadata"})
	tracer.RecordEvent("?", nil)

	label := tracer.Complete("Here are your results.", false, nil)
	assert.Equal(t, Success, label)

	entries := logs.All()
	require.Len(t, entries, 1)
	entry := entries[0]
	assert.Equal(t, zap.InfoLevel, entry.Level)
	assert.Contains(t, entry.Message, "agent run success")

	fields := entry.ContextMap()
	assert.Equal(t, "sess-9", fields["session_id"])
	assert.NotEmpty(t, fields["run_id"])
	assert.Len(t, fields["prompt_preview"], 200)
	assert.Equal(t, int64(3), fields["event_count"])
	assert.Equal(t, Success, fields["outcome"])
	// The "?" author is not an agent.
	assert.Equal(t, []any{"data_agent"}, fields["agents_involved"])
}

func TestRunTracerTimeoutLog(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	tracer := NewRunTracer(zap.New(core), "sess-9", "prompt")

	label := tracer.Complete("", true, nil)
	assert.Equal(t, Timeout, label)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zap.WarnLevel, entries[0].Level)
	fields := entries[0].ContextMap()
	assert.Contains(t, fields, "timeout_seconds")
	assert.NotContains(t, fields, "response_preview")
}

func TestRunTracerSafetyFilteredIncludesPreview(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	tracer := NewRunTracer(zap.New(core), "sess-9", "prompt")
	tracer.RecordEvent("data_agent", []string{"get_table_schema"})

	refusal := "I cannot provide those rows, they contain confidential data. " + strings.Repeat("x", 400)
	label := tracer.Complete(refusal, false, nil)
	assert.Equal(t, SafetyFiltered, label)

	fields := logs.All()[0].ContextMap()
	preview, ok := fields["response_preview"].(string)
	require.True(t, ok)
	assert.Len(t, preview, 300)
}

func TestRunTracerErrorFields(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	tracer := NewRunTracer(zap.New(core), "sess-9", "prompt")

	label := tracer.Complete("partial text", false, errors.New("engine exploded"))
	assert.Equal(t, Error, label)

	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "engine exploded", fields["error_detail"])
	assert.NotEmpty(t, fields["error_type"])
}

func TestRunTracerToolSequenceCopy(t *testing.T) {
	tracer := NewRunTracer(nil, "s", "p")
	tracer.RecordEvent("a", []string{"t1"})

	seq := tracer.ToolSequence()
	seq[0].Tool = "mutated"
	assert.Equal(t, "t1", tracer.ToolSequence()[0].Tool)
}
