package scoring

import (
	"context"
	"fmt"

	"github.com/jihwankim/sentimentd/pkg/sentiment"
)

// FixedEvaluator is the Evaluator test double spec.md's DESIGN NOTES call
// for: a deterministic stand-in for the real GPU-resident scorer. Each call
// either returns a fixed Evaluation per phrase (cycling if there are more
// phrases than fixtures) or, if Err is set, fails every call with non-empty
// input. An empty input always returns (nil, nil).
type FixedEvaluator struct {
	Evaluations []sentiment.Evaluation
	Err         error
}

// Evaluate implements Evaluator.
func (f FixedEvaluator) Evaluate(ctx context.Context, content []string) ([]sentiment.Evaluation, error) {
	if len(content) == 0 {
		return nil, nil
	}
	if f.Err != nil {
		return nil, f.Err
	}
	if len(f.Evaluations) == 0 {
		return nil, fmt.Errorf("scoring: FixedEvaluator has no fixture evaluations")
	}
	out := make([]sentiment.Evaluation, len(content))
	for i := range content {
		out[i] = f.Evaluations[i%len(f.Evaluations)]
	}
	return out, nil
}
