package eval

import (
	"context"
	"errors"
	"fmt"

	"github.com/zero-day-ai/bimq/steperr"
)

// Fallback evaluates with Primary and, when it fails, with Secondary. The
// secondary verdict's explanation is prefixed with the primary failure so
// the fault stays visible downstream. Cancellation is never masked.
type Fallback struct {
	Primary   Evaluator
	Secondary Evaluator
}

// Evaluate implements Evaluator.
func (f Fallback) Evaluate(ctx context.Context, req Request) (Verdict, error) {
	v, err := f.Primary.Evaluate(ctx, req)
	if err == nil {
		return v, nil
	}
	if f.Secondary == nil || steperr.KindOf(err) == steperr.KindCanceled || ctx.Err() != nil {
		return Verdict{}, err
	}

	v2, err2 := f.Secondary.Evaluate(ctx, req)
	if err2 != nil {
		return Verdict{}, errors.Join(err, err2)
	}
	note := fmt.Sprintf("primary evaluator failed (%v)", err)
	if v2.Explanation == "" {
		v2.Explanation = note
	} else {
		v2.Explanation = note + "; " + v2.Explanation
	}
	return v2, nil
}
