package engine

import (
	"errors"
	"fmt"
	"math"
	"sync"
)

// ErrUnknownCommand is returned for a request with an unsupported command.
var ErrUnknownCommand = errors.New("unknown command")

// defaultRating is assumed for feedback without a rating.
const defaultRating = 5.0

// Engine answers predict and train requests against a Store. Calls are
// serialized; the model is reloaded from disk for every prediction so a
// refit by another process is picked up.
type Engine struct {
	mu    sync.Mutex
	store *Store
}

// New creates an engine over the data directory dir.
func New(dir string) *Engine {
	return &Engine{store: NewStore(dir)}
}

// Predict scores segments as P(safe)*100, rounded to two decimals.
func (e *Engine) Predict(segments []Segment) ([]Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	m, err := e.store.LoadModel()
	if err != nil {
		return nil, err
	}

	results := make([]Result, len(segments))
	for i, seg := range segments {
		p := m.ProbSafe(Encode(seg.Context))
		results[i] = Result{
			SegmentIndex: seg.Index,
			SafetyScore:  math.Round(p*100*100) / 100,
		}
	}
	return results, nil
}

// Train appends labelled points and refits. A rating of 4 or less is safe.
// It returns the number of samples added.
func (e *Engine) Train(points []DataPoint) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	samples, err := e.store.LoadSamples()
	if err != nil {
		return 0, err
	}

	for _, pt := range points {
		rating := defaultRating
		if pt.SafetyRating != nil {
			rating = *pt.SafetyRating
		}
		label := 0
		if rating <= 4 {
			label = 1
		}
		samples = append(samples, Sample{
			Features: Encode(pt.Context),
			Label:    label,
			Meta:     &SampleMeta{Origin: pt.Origin, Dest: pt.Destination},
		})
	}

	if err := e.store.SaveSamples(samples); err != nil {
		return 0, err
	}
	if _, err := e.store.Refit(); err != nil {
		return 0, err
	}
	return len(points), nil
}

// Handle dispatches a request.
func (e *Engine) Handle(req Request) (*Response, error) {
	switch req.Command {
	case CommandPredict:
		results, err := e.Predict(req.Segments)
		if err != nil {
			return nil, err
		}
		return &Response{Results: results}, nil

	case CommandTrain:
		n, err := e.Train(req.DataPoints)
		if err != nil {
			return nil, err
		}
		return &Response{Status: "trained", NewSamples: &n}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, req.Command)
	}
}
