package filtering

import (
	"context"
	"reflect"
	"testing"

	"go.uber.org/zap"
)

func TestNormalizeStripsMarkers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{name: "numbered", input: "1. How do goroutines work?", expect: "How do goroutines work?"},
		{name: "parenthesis", input: "2) What is a channel?", expect: "What is a channel?"},
		{name: "bullet", input: "- Explain context cancellation.", expect: "Explain context cancellation."},
		{name: "bold question label", input: "**Question 3:** Why Kafka?", expect: "Why Kafka?"},
		{name: "bullet and label", input: "* Q4: Describe your last project.", expect: "Describe your last project."},
		{name: "whitespace", input: "  Tell me   about\tyourself  ", expect: "Tell me about yourself"},
		{name: "blank", input: "   ", expect: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := normalize(tt.input); got != tt.expect {
				t.Fatalf("expected %q, got %q", tt.expect, got)
			}
		})
	}
}

func TestRunDefaultPipeline(t *testing.T) {
	input := []string{
		"Technical questions:",
		"1. How does the Go scheduler work?",
		"",
		"2. how does the go scheduler work?",
		"3. What did you build with Postgres?",
		"4. Why did you choose gRPC?",
	}

	got, err := Run(context.Background(), zap.NewNop(), Default(2), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expect := []string{
		"How does the Go scheduler work?",
		"What did you build with Postgres?",
	}
	if !reflect.DeepEqual(got, expect) {
		t.Fatalf("expected %q, got %q", expect, got)
	}

	if input[1] != "1. How does the Go scheduler work?" {
		t.Fatalf("input slice must not be modified, got %q", input[1])
	}
}

func TestLimitDisabledWhenNonPositive(t *testing.T) {
	steps := Default(0)

	statuses := Describe(steps)
	var limit *Status
	for i := range statuses {
		if statuses[i].Name == "limit" {
			limit = &statuses[i]
		}
	}
	if limit == nil {
		t.Fatal("expected limit status")
	}
	if limit.Enabled {
		t.Fatalf("expected limit to be disabled")
	}

	input := []string{"a?", "b?", "c?"}
	got, err := Run(context.Background(), nil, steps, input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 questions, got %d", len(got))
	}
}

func TestDisableByName(t *testing.T) {
	steps := Default(10)
	DisableByName(steps, "duplicates", "keep everything")

	got, err := Run(context.Background(), nil, steps, []string{"Same?", "same?"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected duplicates to be kept, got %q", got)
	}
}

func TestDescribeReportsDisableReason(t *testing.T) {
	steps := Default(5)
	DisableByName(steps, "duplicates", "disabled by configuration")

	statuses := Describe(steps)
	if len(statuses) != len(steps) {
		t.Fatalf("expected %d statuses, got %d", len(steps), len(statuses))
	}

	for _, status := range statuses {
		switch status.Name {
		case "duplicates":
			if status.Enabled || status.Reason != "disabled by configuration" {
				t.Fatalf("unexpected duplicates status: %+v", status)
			}
		case "limit":
			if !status.Enabled || status.Details["max"] != "5" {
				t.Fatalf("unexpected limit status: %+v", status)
			}
		default:
			if !status.Enabled || status.Reason != "" {
				t.Fatalf("unexpected %s status: %+v", status.Name, status)
			}
		}
	}
}

func TestHeadingsKeepsQuestionsEndingWithColon(t *testing.T) {
	f := NewHeadings()

	got, step, err := f.Apply(context.Background(), []string{
		"## Backend",
		"Behavioral:",
		"Walk me through the following scenario where the primary database fails:",
		"What happens? Explain:",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if step.Dropped != 2 || step.Left != 2 {
		t.Fatalf("unexpected step: %+v", step)
	}
	if got[0] != "Walk me through the following scenario where the primary database fails:" {
		t.Fatalf("unexpected first question: %q", got[0])
	}
}
