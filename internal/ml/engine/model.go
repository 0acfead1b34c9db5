package engine

import "math"

const (
	defaultLearningRate = 0.1
	defaultIterations   = 1000
	sigmoidClip         = 200
)

// Model is a logistic regression trained by per-sample gradient descent.
// The output is the probability that a segment is safe.
type Model struct {
	Weights      []float64 `json:"weights"`
	Bias         float64   `json:"bias"`
	LearningRate float64   `json:"learning_rate"`
	Iterations   int       `json:"iterations"`
}

// NewModel returns an untrained model with the default hyperparameters.
func NewModel() *Model {
	return &Model{LearningRate: defaultLearningRate, Iterations: defaultIterations}
}

// Fit trains from zero weights. It is a no-op for an empty dataset.
func (m *Model) Fit(x [][]float64, y []float64) {
	if len(x) == 0 {
		return
	}

	m.Weights = make([]float64, len(x[0]))
	m.Bias = 0

	for iter := 0; iter < m.Iterations; iter++ {
		for i, row := range x {
			diff := sigmoid(m.linear(row)) - y[i]
			for j, v := range row {
				m.Weights[j] -= m.LearningRate * diff * v
			}
			m.Bias -= m.LearningRate * diff
		}
	}
}

// ProbSafe returns P(safe | features).
func (m *Model) ProbSafe(features []float64) float64 {
	return sigmoid(m.linear(features))
}

func (m *Model) linear(row []float64) float64 {
	z := m.Bias
	for j, v := range row {
		if j < len(m.Weights) {
			z += m.Weights[j] * v
		}
	}
	return z
}

func sigmoid(z float64) float64 {
	z = math.Max(-sigmoidClip, math.Min(sigmoidClip, z))
	return 1 / (1 + math.Exp(-z))
}
