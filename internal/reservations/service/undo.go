package service

import (
	"context"
	"courtbook/pkg/logger"
	"time"
)

type undoStep struct {
	name string
	fn   func(ctx context.Context) error
}

// undoStack records compensations for the steps of a multi-step change and
// runs them newest first.
type undoStack struct {
	steps []undoStep
}

func (u *undoStack) push(name string, fn func(ctx context.Context) error) {
	u.steps = append(u.steps, undoStep{name: name, fn: fn})
}

// rollback keeps going after a failed step so as much state as possible is
// put back. It detaches from ctx because ctx has usually expired by now.
func (u *undoStack) rollback(ctx context.Context, timeout time.Duration, log *logger.Logger) bool {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	clean := true
	for i := len(u.steps) - 1; i >= 0; i-- {
		step := u.steps[i]
		if err := step.fn(ctx); err != nil {
			clean = false
			log.Error("Rollback step failed",
				"step", step.name,
				"error", err,
			)
		}
	}
	u.steps = nil
	return clean
}

// do runs one step and, when it succeeds, pushes the compensation it returns.
// An expired ctx stops the sequence before the step touches anything.
func (u *undoStack) do(ctx context.Context, name string, step func(ctx context.Context) (func(context.Context) error, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	undo, err := step(ctx)
	if err != nil {
		return err
	}
	if undo != nil {
		u.push(name, undo)
	}
	return nil
}
