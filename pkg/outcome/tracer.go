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
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Preview lengths keep run logs bounded; full content never reaches logs.
const (
	promptPreviewLen   = 200
	responsePreviewLen = 300
	errorDetailLen     = 500
)

// RunTracer accumulates per-run metrics and emits one structured log on
// completion. Create one at the start of an invocation, call RecordEvent
// inside the event loop, then Complete exactly once.
type RunTracer struct {
	logger         *zap.Logger
	sessionID      string
	runID          string
	promptPreview  string
	start          time.Time
	toolSequence   []ToolCall
	agentsInvolved map[string]bool
	eventCount     int
}

// NewRunTracer starts a tracer for one agent invocation. The logger
// defaults to a no-op logger.
func NewRunTracer(logger *zap.Logger, sessionID, prompt string) *RunTracer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RunTracer{
		logger:         logger,
		sessionID:      sessionID,
		runID:          uuid.NewString(),
		promptPreview:  truncate(prompt, promptPreviewLen),
		start:          time.Now(),
		toolSequence:   []ToolCall{},
		agentsInvolved: make(map[string]bool),
	}
}

// RunID returns the generated run identifier.
func (t *RunTracer) RunID() string { return t.runID }

// EventCount returns the number of recorded events.
func (t *RunTracer) EventCount() int { return t.eventCount }

// ToolSequence returns the ordered decision trace so far.
func (t *RunTracer) ToolSequence() []ToolCall {
	return append([]ToolCall(nil), t.toolSequence...)
}

// RecordEvent records one run event: the authoring agent and any tool calls
// it made, in order.
func (t *RunTracer) RecordEvent(author string, toolCalls []string) {
	t.eventCount++
	if author != "" && author != "?" {
		t.agentsInvolved[author] = true
	}
	for _, name := range toolCalls {
		t.toolSequence = append(t.toolSequence, ToolCall{Agent: author, Tool: name})
	}
}

// Complete classifies the run, emits the structured log entry, and returns
// the outcome so the caller can branch without re-classifying. Severity is
// Info for success and Warn for everything else.
func (t *RunTracer) Complete(responseText string, timedOut bool, err error) string {
	durationMs := time.Since(t.start).Milliseconds()
	label := Classify(responseText, t.eventCount, timedOut, err, t.toolSequence)

	agents := make([]string, 0, len(t.agentsInvolved))
	for a := range t.agentsInvolved {
		agents = append(agents, a)
	}
	sort.Strings(agents)

	fields := []zap.Field{
		zap.String("session_id", t.sessionID),
		zap.String("run_id", t.runID),
		zap.String("prompt_preview", t.promptPreview),
		zap.Int64("duration_ms", durationMs),
		zap.Int("event_count", t.eventCount),
		zap.String("outcome", label),
		zap.Any("tool_sequence", t.toolSequence),
		zap.Strings("agents_involved", agents),
	}
	if err != nil {
		fields = append(fields,
			zap.String("error_type", fmt.Sprintf("%T", err)),
			zap.String("error_detail", truncate(err.Error(), errorDetailLen)))
	}
	if label == SafetyFiltered {
		fields = append(fields,
			zap.String("response_preview", truncate(responseText, responsePreviewLen)))
	}
	if label == Timeout {
		fields = append(fields,
			zap.Float64("timeout_seconds", float64(durationMs)/1000))
	}

	msg := fmt.Sprintf("agent run %s (%dms, %d events)", label, durationMs, t.eventCount)
	if label == Success {
		t.logger.Info(msg, fields...)
	} else {
		t.logger.Warn(msg, fields...)
	}
	return label
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
