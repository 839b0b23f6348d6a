package speech

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/spigell/interview-coach/internal/interview"
)

const wavMIME = "audio/wav"

type Transcriber interface {
	Transcribe(ctx context.Context, data []byte, mimeType string) (string, error)
}

type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

type Recorder interface {
	Record(ctx context.Context) ([]byte, error)
}

type Player interface {
	Play(ctx context.Context, wav []byte) error
}

// Local talks to the user through the machine's microphone and speakers.
type Local struct {
	recorder    Recorder
	player      Player
	transcriber Transcriber
	synthesizer Synthesizer
	logger      *zap.Logger

	// OnListen is called right before recording starts.
	OnListen func()
}

func NewLocal(recorder Recorder, player Player, transcriber Transcriber, synthesizer Synthesizer, logger *zap.Logger) *Local {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Local{
		recorder:    recorder,
		player:      player,
		transcriber: transcriber,
		synthesizer: synthesizer,
		logger:      logger,
	}
}

func (l *Local) Capture(ctx context.Context) (string, error) {
	if l.OnListen != nil {
		l.OnListen()
	}

	data, err := l.recorder.Record(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return "", err
		}
		return "", fmt.Errorf("record answer: %w: %w", interview.ErrServiceUnavailable, err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("record answer: %w: no audio captured", interview.ErrRecognition)
	}

	return transcribe(ctx, l.transcriber, data, wavMIME)
}

func (l *Local) Speak(ctx context.Context, text string) error {
	wav, err := l.synthesizer.Synthesize(ctx, text)
	if err != nil {
		return err
	}

	if err := l.player.Play(ctx, wav); err != nil {
		if ctx.Err() != nil {
			return err
		}
		return fmt.Errorf("play speech: %w: %w", interview.ErrPlayback, err)
	}

	l.logger.Debug("speech played", zap.Int("audio_bytes", len(wav)))
	return nil
}

// Utterance is one piece of synthesized speech.
type Utterance struct {
	Text  string
	Audio []byte
}

// Buffered serves a single HTTP request: it transcribes audio uploaded by the
// client and keeps synthesized speech for the response instead of playing it.
type Buffered struct {
	transcriber Transcriber
	synthesizer Synthesizer
	input       []byte
	mimeType    string

	mu     sync.Mutex
	spoken []Utterance
}

func NewBuffered(transcriber Transcriber, synthesizer Synthesizer, input []byte, mimeType string) *Buffered {
	if mimeType = strings.TrimSpace(mimeType); mimeType == "" {
		mimeType = wavMIME
	}
	return &Buffered{
		transcriber: transcriber,
		synthesizer: synthesizer,
		input:       input,
		mimeType:    mimeType,
	}
}

func (b *Buffered) Capture(ctx context.Context) (string, error) {
	if len(b.input) == 0 {
		return "", fmt.Errorf("read uploaded answer: %w: no audio uploaded", interview.ErrRecognition)
	}
	return transcribe(ctx, b.transcriber, b.input, b.mimeType)
}

func (b *Buffered) Speak(ctx context.Context, text string) error {
	wav, err := b.synthesizer.Synthesize(ctx, text)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.spoken = append(b.spoken, Utterance{Text: text, Audio: wav})
	return nil
}

// Last returns the most recent utterance.
func (b *Buffered) Last() (Utterance, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.spoken) == 0 {
		return Utterance{}, false
	}
	return b.spoken[len(b.spoken)-1], true
}

func transcribe(ctx context.Context, transcriber Transcriber, data []byte, mimeType string) (string, error) {
	text, err := transcriber.Transcribe(ctx, data, mimeType)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("transcribe answer: %w: empty transcript", interview.ErrRecognition)
	}
	return text, nil
}
