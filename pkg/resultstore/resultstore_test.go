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

package resultstore

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teradata-labs/spindle/pkg/types"
)

func sampleResult() *types.TabularResult {
	return &types.TabularResult{
		Status: types.StatusSuccess,
		Columns: []types.ColumnMeta{
			{Name: "state", Type: "STRING"},
			{Name: "total", Type: "INTEGER"},
		},
		Rows: []types.Row{
			{"state": "CA", "total": float64(100)},
			{"state": "TX", "total": float64(80)},
		},
		TotalRows: 2,
		SQL:       "SELECT state, total FROM t",
	}
}

func TestSessionEmpty(t *testing.T) {
	s := NewSession("sess-1")
	assert.Equal(t, "sess-1", s.ID())

	_, ok := s.Result()
	assert.False(t, ok)
	assert.Empty(t, s.DrainInsights())
}

func TestSessionSetAndGetCopies(t *testing.T) {
	s := NewSession("sess-1")
	original := sampleResult()
	s.SetResult(original)

	// Mutating the value we stored must not reach the session.
	original.Rows[0]["state"] = "mutated"

	got, ok := s.Result()
	require.True(t, ok)
	assert.Equal(t, "CA", got.Rows[0]["state"])

	// Mutating a read copy must not reach the session either.
	got.Rows[1]["state"] = "mutated"
	again, ok := s.Result()
	require.True(t, ok)
	assert.Equal(t, "TX", again.Rows[1]["state"])
}

func TestSessionReplaceCommitsOnSuccess(t *testing.T) {
	s := NewSession("sess-1")
	s.SetResult(sampleResult())

	err := s.Replace(func(r *types.TabularResult) (*types.TabularResult, error) {
		require.NotNil(t, r)
		r.Rows[0]["total"] = float64(999)
		return r, nil
	})
	require.NoError(t, err)

	got, ok := s.Result()
	require.True(t, ok)
	assert.Equal(t, float64(999), got.Rows[0]["total"])
}

func TestSessionReplaceRollsBackOnError(t *testing.T) {
	s := NewSession("sess-1")
	s.SetResult(sampleResult())

	boom := errors.New("merge failed")
	err := s.Replace(func(r *types.TabularResult) (*types.TabularResult, error) {
		r.Rows = nil
		r.Columns = append(r.Columns, types.ColumnMeta{Name: "half_done"})
		return r, boom
	})
	require.ErrorIs(t, err, boom)

	got, ok := s.Result()
	require.True(t, ok)
	assert.Len(t, got.Rows, 2)
	assert.False(t, got.HasColumn("half_done"))
}

func TestSessionReplaceNilSnapshot(t *testing.T) {
	s := NewSession("sess-1")
	var sawNil bool
	err := s.Replace(func(r *types.TabularResult) (*types.TabularResult, error) {
		sawNil = r == nil
		return sampleResult(), nil
	})
	require.NoError(t, err)
	assert.True(t, sawNil)

	_, ok := s.Result()
	assert.True(t, ok)
}

func TestInsightQueue(t *testing.T) {
	s := NewSession("sess-1")

	first := s.ReportInsight("trend", "revenue is climbing")
	assert.Equal(t, types.InsightTrend, first.Type)

	coerced := s.ReportInsight("weird-type", "unknown category")
	assert.Equal(t, types.InsightSuggestion, coerced.Type)

	drained := s.DrainInsights()
	require.Len(t, drained, 2)
	assert.Equal(t, "revenue is climbing", drained[0].Message)
	assert.Equal(t, "unknown category", drained[1].Message)

	// Exactly-once delivery.
	assert.Empty(t, s.DrainInsights())
}
