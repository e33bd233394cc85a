// Package diagnosis turns classifier scores into a prediction and the text shown to the user.
package diagnosis

import (
	"errors"
	"fmt"
	"math"

	"github.com/Brownie44l1/plantify/internal/catalog"
)

// ErrLabelMismatch means the classifier produced an index the label list cannot name.
var ErrLabelMismatch = errors.New("class label list does not match classifier output")

// ErrInvalidScore means the classifier produced a NaN or infinite score.
var ErrInvalidScore = errors.New("classifier returned a non-finite score")

// Tier is the qualitative confidence band of a prediction.
type Tier string

const (
	TierHigh     Tier = "high"
	TierModerate Tier = "moderate"
	TierLow      Tier = "low"
)

const (
	highThreshold     = 0.85
	moderateThreshold = 0.6
)

// TierFor maps a confidence in [0,1] to its tier.
func TierFor(confidence float32) Tier {
	switch {
	case confidence > highThreshold:
		return TierHigh
	case confidence > moderateThreshold:
		return TierModerate
	default:
		return TierLow
	}
}

// Message is the banner text shown for the tier.
func (t Tier) Message() string {
	switch t {
	case TierHigh:
		return "High confidence in this prediction."
	case TierModerate:
		return "Moderate confidence. The result may be less accurate."
	default:
		return "Low confidence. Please try a clearer, more centered image."
	}
}

type Prediction struct {
	Index       int                `json:"index"`
	Class       string             `json:"class"`
	Confidence  float32            `json:"confidence"`
	Tier        Tier               `json:"tier"`
	Predictions map[string]float32 `json:"predictions"`
}

// Argmax returns the index of the largest value; ties go to the lowest index.
// It returns -1 for an empty slice.
func Argmax(values []float32) int {
	if len(values) == 0 {
		return -1
	}
	maxIdx := 0
	for i, v := range values {
		if v > values[maxIdx] {
			maxIdx = i
		}
	}
	return maxIdx
}

// Interpret picks the top class from probabilities.
func Interpret(probabilities []float32, labels catalog.Labels) (*Prediction, error) {
	for i, p := range probabilities {
		if f := float64(p); math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("%w: index %d is %v", ErrInvalidScore, i, p)
		}
	}

	idx := Argmax(probabilities)
	if idx < 0 {
		return nil, errors.New("classifier returned no scores")
	}
	if idx >= len(labels) {
		return nil, fmt.Errorf("%w: index %d, %d labels", ErrLabelMismatch, idx, len(labels))
	}

	predictions := make(map[string]float32, len(probabilities))
	for i, p := range probabilities {
		if i < len(labels) {
			predictions[labels[i]] = p
		}
	}

	confidence := probabilities[idx]
	return &Prediction{
		Index:       idx,
		Class:       labels[idx],
		Confidence:  confidence,
		Tier:        TierFor(confidence),
		Predictions: predictions,
	}, nil
}

// ConfidencePercent formats the confidence the way the result metric shows it.
func (p *Prediction) ConfidencePercent() string {
	return fmt.Sprintf("%.2f%%", p.Confidence*100)
}
