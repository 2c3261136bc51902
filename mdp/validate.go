package mdp

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
)

// ProbTolerance is how far an outcome distribution may sum from 1.
const ProbTolerance = 1e-6

var ErrMalformedOutcomes = errors.New("malformed outcome distribution")

// CheckOutcomes verifies that outs is a probability distribution. The planner
// never calls it; loaders use it to reject bad models up front.
func CheckOutcomes(outs []Outcome) error {
	if len(outs) == 0 {
		return fmt.Errorf("%w: no outcomes", ErrMalformedOutcomes)
	}
	probs := make([]float64, len(outs))
	for i, o := range outs {
		if o.Prob < 0 || o.Prob > 1 {
			return fmt.Errorf("%w: probability %g out of range", ErrMalformedOutcomes, o.Prob)
		}
		probs[i] = o.Prob
	}
	if sum := floats.Sum(probs); !scalar.EqualWithinAbs(sum, 1, ProbTolerance) {
		return fmt.Errorf("%w: probabilities sum to %g", ErrMalformedOutcomes, sum)
	}
	return nil
}
