package filtering

import (
	"context"
	"strconv"
	"strings"
)

type duplicatesFilter struct {
	toggle
}

// NewDuplicates creates a filter that keeps the first occurrence of each question, ignoring case.
func NewDuplicates() Filter {
	return &duplicatesFilter{}
}

func (f *duplicatesFilter) Name() string { return "duplicates" }

func (f *duplicatesFilter) Status() Status { return f.status(f.Name()) }

func (f *duplicatesFilter) Apply(_ context.Context, questions []string) ([]string, Step, error) {
	initial := len(questions)
	seen := make(map[string]struct{}, initial)
	out := make([]string, 0, initial)

	for _, q := range questions {
		key := strings.ToLower(strings.TrimSpace(q))
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, q)
	}

	return out, Step{Initial: initial, Dropped: initial - len(out), Left: len(out)}, nil
}

type limitFilter struct {
	toggle
	max int
}

// NewLimit creates a filter that keeps at most max questions. A non-positive max keeps everything.
func NewLimit(max int) Filter {
	f := &limitFilter{max: max}
	if max <= 0 {
		f.Disable("no limit configured")
	}
	return f
}

func (f *limitFilter) Name() string { return "limit" }

func (f *limitFilter) Apply(_ context.Context, questions []string) ([]string, Step, error) {
	initial := len(questions)
	if initial <= f.max {
		return questions, Step{Initial: initial, Left: initial}, nil
	}

	out := questions[:f.max:f.max]
	return out, Step{Initial: initial, Dropped: initial - len(out), Left: len(out)}, nil
}

func (f *limitFilter) Status() Status {
	status := f.status(f.Name())
	status.Details = map[string]string{"max": strconv.Itoa(f.max)}
	return status
}
