package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/interview-coach/internal/interview"
)

func TestConfigDefaults(t *testing.T) {
	config, err := getConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if config.Gemini.Model != "gemini-2.5-flash" || config.Gemini.Voice != "Kore" {
		t.Fatalf("unexpected gemini defaults: %+v", config.Gemini)
	}
	if config.Interview.MaxQuestions != 7 || config.Interview.ModelTimeout != 90*time.Second || config.Interview.SessionTTL != 24*time.Hour {
		t.Fatalf("unexpected interview defaults: %+v", config.Interview)
	}
	if config.Audio.MaxAnswer != 30*time.Second || !strings.HasPrefix(config.Audio.RecordCommand, "arecord") {
		t.Fatalf("unexpected audio defaults: %+v", config.Audio)
	}
	if config.Server.Listen != ":8080" || config.Server.BodyLimitMB != 20 {
		t.Fatalf("unexpected server defaults: %+v", config.Server)
	}
	if config.Export.Dir != "results" || config.Export.S3 == nil || config.Export.S3.Enabled || !config.Export.S3.UseSSL {
		t.Fatalf("unexpected export defaults: %+v", config.Export)
	}
}

func TestNewExporterRejectsUnknownFormat(t *testing.T) {
	_, err := newExporter(context.Background(), &ExportConfig{Dir: t.TempDir(), Format: "docx"}, zap.NewNop())
	if !errors.Is(err, interview.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}

	exporter, err := newExporter(context.Background(), &ExportConfig{Dir: t.TempDir(), Format: "yaml"}, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exporter.Format() != "yaml" {
		t.Fatalf("expected yaml exporter, got %q", exporter.Format())
	}
}

func TestDescribe(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err    error
		expect string
	}{
		{err: fmt.Errorf("capture answer: %w", interview.ErrRecognition), expect: "could not understand"},
		{err: fmt.Errorf("evaluate answer: %w: %w", interview.ErrTimeout, context.DeadlineExceeded), expect: "too long"},
		{err: interview.ErrEmptyQuestionSet, expect: "No interview questions"},
		{err: fmt.Errorf("play speech: %w", interview.ErrPlayback), expect: "Could not play audio"},
		{err: errors.New("boom"), expect: "Error: boom"},
	}

	for _, tt := range tests {
		if got := describe(tt.err); !strings.Contains(got, tt.expect) {
			t.Fatalf("%v: expected message containing %q, got %q", tt.err, tt.expect, got)
		}
	}
}
