package transcript

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/interview-coach/internal/interview"
)

// Exporter renders session transcripts and hands them to every configured sink.
type Exporter struct {
	format Format
	sinks  []Sink
	logger *zap.Logger
	now    func() time.Time
}

func NewExporter(format Format, logger *zap.Logger, sinks ...Sink) *Exporter {
	if format == "" {
		format = FormatJSON
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{format: format, sinks: sinks, logger: logger, now: time.Now}
}

func (e *Exporter) Format() Format {
	return e.format
}

// Export stores the transcript of s and returns the locations it was written to.
// Sinks are independent: a failing sink does not stop the others.
func (e *Exporter) Export(ctx context.Context, s *interview.Session) ([]string, error) {
	if len(e.sinks) == 0 {
		return nil, errors.New("no transcript destinations configured")
	}

	now := e.now()
	data, err := Render(FromSession(s, now), e.format)
	if err != nil {
		return nil, err
	}

	name := FileName(s.ID, now, e.format)

	var (
		locations []string
		errs      []error
	)
	for _, sink := range e.sinks {
		location, err := sink.Store(ctx, name, data, e.format.ContentType())
		if err != nil {
			e.logger.Warn("storing transcript failed", zap.String("session_id", s.ID), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		locations = append(locations, location)
	}

	if len(locations) > 0 {
		e.logger.Info("transcript exported",
			zap.String("session_id", s.ID),
			zap.String("format", string(e.format)),
			zap.Strings("locations", locations),
		)
	}

	return locations, errors.Join(errs...)
}

func FileName(sessionID string, at time.Time, format Format) string {
	return fmt.Sprintf("interview-%s-%s%s", at.UTC().Format("20060102-150405"), sessionID, format.Extension())
}
