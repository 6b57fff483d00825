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

// Package resultstore holds the per-session mutable state of the pipeline:
// the single current query result and the pending insight queue. One Session
// exists per conversation; there is no process-global result.
package resultstore

import (
	"strings"
	"sync"

	"github.com/teradata-labs/spindle/pkg/types"
)

// Session is the single-slot result store plus insight accumulator for one
// conversation. A query execution overwrites the slot; enrichment merges and
// calculated-column derivations replace it via Replace. Reads hand out deep
// copies, so callers can never mutate the stored result in place.
type Session struct {
	mu       sync.RWMutex
	id       string
	result   *types.TabularResult
	insights []types.Insight
}

// NewSession creates an empty session with the given identifier.
func NewSession(id string) *Session {
	return &Session{id: id}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// SetResult overwrites the current result. The stored value is a deep copy
// of the argument.
func (s *Session) SetResult(r *types.TabularResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.result = r.Clone()
}

// Result returns a deep copy of the current result. ok is false when no
// query has populated the session yet.
func (s *Session) Result() (*types.TabularResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.result == nil {
		return nil, false
	}
	return s.result.Clone(), true
}

// Replace runs the mutator against a deep copy of the current result and
// commits the returned value, all under the write lock. When the mutator
// returns an error nothing is committed, so a failed transform leaves the
// stored result exactly as it was.
func (s *Session) Replace(mutate func(*types.TabularResult) (*types.TabularResult, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var snapshot *types.TabularResult
	if s.result != nil {
		snapshot = s.result.Clone()
	}
	next, err := mutate(snapshot)
	if err != nil {
		return err
	}
	s.result = next
	return nil
}

// ReportInsight queues one insight. Unknown types are coerced to
// "suggestion" rather than rejected.
func (s *Session) ReportInsight(insightType, message string) types.Insight {
	in := types.Insight{
		Type:    types.NormalizeInsightType(insightType),
		Message: strings.TrimSpace(message),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insights = append(s.insights, in)
	return in
}

// DrainInsights returns all queued insights in report order and empties the
// queue. Each insight is delivered exactly once.
func (s *Session) DrainInsights() []types.Insight {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.insights
	s.insights = nil
	return out
}
