package interview

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is fatal and only returned at startup.
	ErrConfiguration = errors.New("configuration error")

	ErrIngestion          = errors.New("resume ingestion failed")
	ErrGeneration         = errors.New("language model request failed")
	ErrRecognition        = errors.New("speech was not recognized")
	ErrServiceUnavailable = errors.New("speech service unavailable")
	ErrPlayback           = errors.New("speech playback failed")
	ErrTimeout            = errors.New("operation timed out")

	ErrEmptyQuestionSet = errors.New("question set is empty")
	ErrSessionComplete  = errors.New("interview session is complete")
	ErrEmptyAnswer      = errors.New("answer is empty")
	ErrSessionNotFound  = errors.New("interview session not found")
	ErrTurnInProgress   = errors.New("another turn is in progress for this session")
)

var classified = []error{
	ErrConfiguration,
	ErrIngestion,
	ErrGeneration,
	ErrRecognition,
	ErrServiceUnavailable,
	ErrPlayback,
	ErrTimeout,
	ErrEmptyQuestionSet,
	ErrSessionComplete,
	ErrEmptyAnswer,
	ErrSessionNotFound,
	ErrTurnInProgress,
}

// IsClassified reports whether err already carries one of the package sentinels.
func IsClassified(err error) bool {
	for _, target := range classified {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// classify wraps err into fallback unless it is already part of the taxonomy.
// An expired deadline always becomes ErrTimeout.
func classify(err error, fallback error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, ErrTimeout) {
		return fmt.Errorf("%s: %w: %w", op, ErrTimeout, err)
	}
	if IsClassified(err) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, fallback, err)
}
