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

package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"github.com/teradata-labs/spindle/pkg/enrich"
	"github.com/teradata-labs/spindle/pkg/types"
)

// EnrichmentActor answers a prepared enrichment prompt with structured
// items. Implementations must deliver complete data for a prompt exactly
// once; retries and partial deliveries are the caller's concern.
type EnrichmentActor interface {
	Enrich(ctx context.Context, prompt string) ([]types.EnrichmentItem, error)
}

// actorSystemPrompt instructs the model to answer with the JSON shape
// ParseActorResponse expects.
const actorSystemPrompt = `You are a data enrichment assistant. You receive a column of values and a list of fields to look up for each value.

Respond with exactly one JSON object of the form:
{"enrichments": [{"original_value": "<value>", "enriched_fields": {"<field>": {"value": <fact>, "source": "<where it came from>", "confidence": "high|medium|low", "freshness": "static|current|dated|stale", "warning": null}}}], "warnings": [], "partial_failure": false}

Every fact must carry a source. Use confidence "low" and a warning when unsure. Set partial_failure to true if any lookup failed.`

// AnthropicActorConfig configures an AnthropicActor.
type AnthropicActorConfig struct {
	// APIKey for the Anthropic API. Empty falls back to the SDK's
	// environment lookup.
	APIKey string
	// Model defaults to claude-sonnet-4-5.
	Model string
	// MaxTokens defaults to 4096.
	MaxTokens int64
	Logger    *zap.Logger
}

// AnthropicActor implements EnrichmentActor over the Anthropic Messages
// API: one prompt in, one structured reply out.
type AnthropicActor struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
	logger    *zap.Logger
}

// NewAnthropicActor builds the actor.
func NewAnthropicActor(cfg AnthropicActorConfig) *AnthropicActor {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	var opts []option.RequestOption
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	model := anthropic.Model(cfg.Model)
	if cfg.Model == "" {
		model = anthropic.Model("claude-sonnet-4-5")
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &AnthropicActor{
		client:    anthropic.NewClient(opts...),
		model:     model,
		maxTokens: maxTokens,
		logger:    logger,
	}
}

// Enrich sends the prompt and parses the structured reply.
func (a *AnthropicActor) Enrich(ctx context.Context, prompt string) ([]types.EnrichmentItem, error) {
	message, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     a.model,
		MaxTokens: a.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: actorSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("enrichment request: %w", err)
	}

	var text strings.Builder
	for _, block := range message.Content {
		if b, ok := block.AsAny().(anthropic.TextBlock); ok {
			text.WriteString(b.Text)
		}
	}

	response, err := enrich.ParseActorResponse(text.String())
	if err != nil {
		return nil, err
	}
	a.logger.Debug("enrichment actor replied",
		zap.Int("items", len(response.Enrichments)),
		zap.Bool("partial_failure", response.PartialFailure))
	return response.Enrichments, nil
}
