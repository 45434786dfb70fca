package dispatch

import (
	"context"

	"cfgd/internal/logging"
)

// Sequencer walks the steps with a forward-only cursor.
type Sequencer struct {
	steps  []StepKind
	cursor int
	c      *Context
}

func NewSequencer(c *Context) *Sequencer {
	return &Sequencer{steps: Steps(), c: c}
}

// Tick runs the current step once and advances the cursor when it is done.
// Reaching the end of the steps sets the termination flag.
func (s *Sequencer) Tick(ctx context.Context) error {
	if s.cursor < len(s.steps) {
		step := s.steps[s.cursor]
		res, err := Advance(ctx, s.c, step)
		if err != nil {
			return err
		}
		if res.Terminated {
			return nil
		}
		if res.Done {
			s.c.logger().Debug("dispatch step done", logging.String(logging.FieldStep, step.String()))
			s.cursor++
		}
	}
	if s.cursor == len(s.steps) {
		s.c.Terminate = true
	}
	return nil
}

// Cursor returns the index of the next step to run.
func (s *Sequencer) Cursor() int { return s.cursor }

// Current returns the step at the cursor; ok is false once all steps ran.
func (s *Sequencer) Current() (StepKind, bool) {
	if s.cursor >= len(s.steps) {
		return 0, false
	}
	return s.steps[s.cursor], true
}

// Terminated reports whether the run should end.
func (s *Sequencer) Terminated() bool { return s.c.Terminate }
