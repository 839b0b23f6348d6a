package filtering

import (
	"context"
	"regexp"
	"strings"
)

// listMarker matches bullets and enumerations models like to prepend:
// "1.", "2)", "-", "*", "•", "Q3:", "Question 4 -".
var listMarker = regexp.MustCompile(`^\s*(?:[-*•]+|\d+[.)]|(?i:q(?:uestion)?\s*\d+\s*[:.)-]))\s*`)

type normalizeFilter struct {
	toggle
}

// NewNormalize creates a filter that strips list markers and markdown emphasis and drops blank entries.
func NewNormalize() Filter {
	return &normalizeFilter{}
}

func (f *normalizeFilter) Name() string { return "normalize" }

func (f *normalizeFilter) Status() Status { return f.status(f.Name()) }

func (f *normalizeFilter) Apply(_ context.Context, questions []string) ([]string, Step, error) {
	initial := len(questions)
	out := make([]string, 0, initial)

	for _, q := range questions {
		q = normalize(q)
		if q == "" {
			continue
		}
		out = append(out, q)
	}

	return out, Step{Initial: initial, Dropped: initial - len(out), Left: len(out)}, nil
}

func normalize(q string) string {
	q = strings.Join(strings.Fields(q), " ")
	q = strings.ReplaceAll(q, "**", "")
	q = strings.ReplaceAll(q, "__", "")

	// "- Q1: ..." carries two markers.
	for i := 0; i < 2; i++ {
		q = listMarker.ReplaceAllString(q, "")
	}

	q = strings.Trim(q, "`\"' ")
	return strings.TrimSpace(q)
}

type headingsFilter struct {
	toggle
}

// NewHeadings creates a filter that drops section headings such as "Technical questions:".
func NewHeadings() Filter {
	return &headingsFilter{}
}

func (f *headingsFilter) Name() string { return "headings" }

func (f *headingsFilter) Status() Status { return f.status(f.Name()) }

func (f *headingsFilter) Apply(_ context.Context, questions []string) ([]string, Step, error) {
	initial := len(questions)
	out := make([]string, 0, initial)

	for _, q := range questions {
		if isHeading(q) {
			continue
		}
		out = append(out, q)
	}

	return out, Step{Initial: initial, Dropped: initial - len(out), Left: len(out)}, nil
}

func isHeading(q string) bool {
	q = strings.TrimSpace(q)
	if strings.Contains(q, "?") {
		return false
	}
	if strings.HasPrefix(q, "#") {
		return true
	}
	return strings.HasSuffix(q, ":") && len(strings.Fields(q)) <= 6
}
