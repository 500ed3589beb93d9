package attribution

import (
	"fmt"
	"math"
	"time"
)

// DefaultHalfLife is the time-decay half-life used when none is configured.
const DefaultHalfLife = 7 * 24 * time.Hour

// Weights distributes one unit of credit over touchpoints given oldest
// first. The result sums to 1, or is empty when there are no touchpoints.
//
// Time decay gives each touchpoint 0.5^(age/halfLife), with ages measured
// from the most recent touchpoint.
func Weights(model Model, timestamps []time.Time, now time.Time, halfLife time.Duration) ([]float64, error) {
	n := len(timestamps)
	if n == 0 {
		return []float64{}, nil
	}
	weights := make([]float64, n)

	switch model {
	case ModelFirstTouch:
		weights[0] = 1
	case ModelLastTouch:
		weights[n-1] = 1
	case ModelLinear:
		for i := range weights {
			weights[i] = 1 / float64(n)
		}
	case ModelTimeDecay:
		if halfLife <= 0 {
			halfLife = DefaultHalfLife
		}
		minAge := now.Sub(timestamps[0])
		for _, ts := range timestamps[1:] {
			if age := now.Sub(ts); age < minAge {
				minAge = age
			}
		}
		var sum float64
		for i, ts := range timestamps {
			age := now.Sub(ts) - minAge
			weights[i] = math.Pow(0.5, age.Hours()/halfLife.Hours())
			sum += weights[i]
		}
		for i := range weights {
			weights[i] /= sum
		}
	default:
		return nil, fmt.Errorf("unknown attribution model: %q", model)
	}

	return weights, nil
}
