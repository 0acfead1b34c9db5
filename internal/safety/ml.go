package safety

import (
	"context"
	"math"
)

// FallbackMLScore is the neutral score used whenever the ML engine cannot
// answer for a segment.
const FallbackMLScore = 75.0

// MLSegment is one segment of a predict batch.
type MLSegment struct {
	Index   int            `json:"index"`
	Context SegmentContext `json:"context"`
}

// MLResult is the engine's score for one segment, in [0, 100].
type MLResult struct {
	SegmentIndex int     `json:"segment_index"`
	SafetyScore  float64 `json:"safety_score"`
}

// MLScorer scores a batch of segments in a single call. Implementations
// never fail: on any error they return FallbackResults.
type MLScorer interface {
	ScoreSegments(ctx context.Context, segments []MLSegment) []MLResult
}

// FallbackResults returns FallbackMLScore for every segment, in input order.
func FallbackResults(segments []MLSegment) []MLResult {
	out := make([]MLResult, len(segments))
	for i, s := range segments {
		out[i] = MLResult{SegmentIndex: s.Index, SafetyScore: FallbackMLScore}
	}
	return out
}

// MLProbability finds the result for index and converts it to a probability
// in [0, 1]. A missing or NaN result counts as FallbackMLScore; infinities clamp
// like any other out-of-range score.
func MLProbability(results []MLResult, index int) float64 {
	score := FallbackMLScore
	for _, r := range results {
		if r.SegmentIndex == index {
			if !math.IsNaN(r.SafetyScore) {
				score = r.SafetyScore
			}
			break
		}
	}
	return saturate(score / 100)
}

// FixedMLScorer answers every segment with the same score. It stands in when
// no engine is configured.
type FixedMLScorer struct {
	Score float64
}

// ScoreSegments implements MLScorer.
func (f FixedMLScorer) ScoreSegments(_ context.Context, segments []MLSegment) []MLResult {
	out := make([]MLResult, len(segments))
	for i, s := range segments {
		out[i] = MLResult{SegmentIndex: s.Index, SafetyScore: f.Score}
	}
	return out
}
