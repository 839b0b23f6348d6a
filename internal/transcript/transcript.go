package transcript

import (
	"math"
	"time"

	"github.com/spigell/interview-coach/internal/interview"
)

// Transcript is the exportable record of an interview session.
type Transcript struct {
	SessionID     string           `json:"session_id" yaml:"session_id"`
	StartedAt     time.Time        `json:"started_at" yaml:"started_at"`
	ExportedAt    time.Time        `json:"exported_at" yaml:"exported_at"`
	Total         int              `json:"total_questions" yaml:"total_questions"`
	Answered      int              `json:"answered" yaml:"answered"`
	Complete      bool             `json:"complete" yaml:"complete"`
	AverageRating float64          `json:"average_rating" yaml:"average_rating"`
	Profile       string           `json:"profile,omitempty" yaml:"profile,omitempty"`
	Turns         []interview.Turn `json:"turns" yaml:"turns"`
	Pending       []string         `json:"pending_questions,omitempty" yaml:"pending_questions,omitempty"`
}

func FromSession(s *interview.Session, now time.Time) Transcript {
	turns := s.History()
	questions := s.Questions()

	t := Transcript{
		SessionID:  s.ID,
		StartedAt:  s.CreatedAt,
		ExportedAt: now,
		Total:      s.Len(),
		Answered:   len(turns),
		Complete:   s.IsComplete(),
		Profile:    s.Context(),
		Turns:      turns,
	}
	if len(turns) < len(questions) {
		t.Pending = questions[len(turns):]
	}

	if len(turns) > 0 {
		var sum float64
		for _, turn := range turns {
			sum += turn.Evaluation.Rating
		}
		t.AverageRating = math.Round(sum/float64(len(turns))*10) / 10
	}

	return t
}
