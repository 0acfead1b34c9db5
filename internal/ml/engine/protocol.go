// Package engine implements the safety model behind the ML engine process:
// feature encoding, a small logistic regression, JSON persistence of
// samples and weights, and the predict/train command protocol spoken over
// stdin and stdout.
package engine

import "encoding/json"

// Command selects the engine operation.
type Command string

const (
	CommandPredict Command = "predict"
	CommandTrain   Command = "train"
)

// Context is the part of a segment context the model understands. Other
// fields in the payload are ignored.
type Context struct {
	Lighting  string `json:"lighting,omitempty"`
	Activity  string `json:"activity,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// Segment is one predict input.
type Segment struct {
	Index   int     `json:"index"`
	Context Context `json:"context"`
}

// DataPoint is one labelled observation submitted for training.
type DataPoint struct {
	// SafetyRating runs from 1 (safe) to 10 (unsafe). Missing means 5.
	SafetyRating *float64        `json:"safetyRating,omitempty"`
	Context      Context         `json:"context"`
	Origin       json.RawMessage `json:"origin,omitempty"`
	Destination  json.RawMessage `json:"destination,omitempty"`
}

// Request is the single JSON document written to the engine's stdin.
type Request struct {
	Command    Command     `json:"command"`
	Segments   []Segment   `json:"segments,omitempty"`
	DataPoints []DataPoint `json:"data_points,omitempty"`
}

// Result is the score for one segment, in [0, 100].
type Result struct {
	SegmentIndex int     `json:"segment_index"`
	SafetyScore  float64 `json:"safety_score"`
}

// Response is the engine's answer. Predict fills Results; train fills
// Status and NewSamples; failures fill Error only.
type Response struct {
	Results    []Result `json:"results,omitempty"`
	Status     string   `json:"status,omitempty"`
	NewSamples *int     `json:"new_samples,omitempty"`
	Error      string   `json:"error,omitempty"`
}
