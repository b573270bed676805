package evaluate

import (
	"context"

	"github.com/studyloop/engine/internal/item"
)

// Static is a scripted Evaluator for tests. It returns a fixed result or
// error. When Gate is set, Evaluate blocks until the gate is closed (or
// ctx is done), letting tests observe the in-flight evaluation state.
type Static struct {
	Result *Result
	Err    error
	Gate   chan struct{}
}

func (s *Static) Evaluate(ctx context.Context, it item.Item, _ string) (*Result, error) {
	if s.Gate != nil {
		select {
		case <-s.Gate:
		case <-ctx.Done():
			return nil, &Error{ItemID: it.ID, Err: ctx.Err()}
		}
	}
	if s.Err != nil {
		return nil, &Error{ItemID: it.ID, Err: s.Err}
	}
	if s.Result != nil {
		r := *s.Result
		return &r, nil
	}
	return &Result{Score: 0.75, Feedback: "static feedback"}, nil
}
