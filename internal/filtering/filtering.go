package filtering

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Filter represents a single step applied to generated questions.
type Filter interface {
	Name() string
	Disable(reason string)
	IsEnabled() bool
	Status() Status

	Apply(ctx context.Context, questions []string) ([]string, Step, error)
}

// Step describes the result of executing a filtering step.
type Step struct {
	Initial int
	Dropped int
	Left    int
}

// Status represents runtime information about a filter.
type Status struct {
	Name    string
	Enabled bool
	Reason  string
	Details map[string]string
}

// Default returns the standard pipeline. maxQuestions <= 0 disables the limit.
func Default(maxQuestions int) []Filter {
	return []Filter{
		NewNormalize(),
		NewHeadings(),
		NewDuplicates(),
		NewLimit(maxQuestions),
	}
}

// DisableByName marks a filter with the provided name as disabled while keeping it in the list.
func DisableByName(steps []Filter, name, reason string) {
	for _, step := range steps {
		if step.Name() == name {
			step.Disable(reason)
		}
	}
}

// Run executes the supplied filters sequentially and returns the remaining questions.
func Run(ctx context.Context, logger *zap.Logger, steps []Filter, questions []string) ([]string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	out := make([]string, len(questions))
	copy(out, questions)

	for _, step := range steps {
		if !step.IsEnabled() {
			logger.Debug("filter disabled", zap.String("name", step.Name()))
			continue
		}

		next, info, err := step.Apply(ctx, out)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", step.Name(), err)
		}

		logger.Debug("filter step",
			zap.String("name", step.Name()),
			zap.Int("initial", info.Initial),
			zap.Int("dropped", info.Dropped),
			zap.Int("left", info.Left),
		)

		out = next
	}

	return out, nil
}

// Describe returns status entries for the provided filters.
func Describe(steps []Filter) []Status {
	statuses := make([]Status, 0, len(steps))
	for _, step := range steps {
		statuses = append(statuses, step.Status())
	}
	return statuses
}

// toggle carries the enable/disable state shared by all steps.
type toggle struct {
	disabled bool
	reason   string
}

func (t *toggle) Disable(reason string) {
	t.disabled = true
	t.reason = reason
}

func (t *toggle) IsEnabled() bool { return !t.disabled }

func (t *toggle) status(name string) Status {
	return Status{Name: name, Enabled: !t.disabled, Reason: t.reason}
}
