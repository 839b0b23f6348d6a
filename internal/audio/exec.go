package audio

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	DefaultRecordCommand = "arecord -q -f S16_LE -r 16000 -c 1 -t wav -"
	DefaultPlayCommand   = "aplay -q -"

	waitDelay = 2 * time.Second
)

// ParseCommand splits a configured command line into program and arguments.
func ParseCommand(line string) []string {
	return strings.Fields(line)
}

// Recorder captures microphone audio by running a command that writes WAV to stdout.
type Recorder struct {
	command     []string
	maxDuration time.Duration
	logger      *zap.Logger
}

// NewRecorder creates a recorder. The command is stopped after maxDuration and
// whatever it wrote so far is used as the recording.
func NewRecorder(command []string, maxDuration time.Duration, logger *zap.Logger) *Recorder {
	if len(command) == 0 {
		command = ParseCommand(DefaultRecordCommand)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{command: command, maxDuration: maxDuration, logger: logger}
}

func (r *Recorder) Record(ctx context.Context) ([]byte, error) {
	recordCtx := ctx
	if r.maxDuration > 0 {
		var cancel context.CancelFunc
		recordCtx, cancel = context.WithTimeout(ctx, r.maxDuration)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(recordCtx, r.command[0], r.command[1:]...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay

	r.logger.Debug("recording started", zap.Strings("command", r.command), zap.Duration("max_duration", r.maxDuration))

	err := cmd.Run()
	if err != nil {
		capped := recordCtx.Err() != nil && ctx.Err() == nil && stdout.Len() > 0
		if !capped {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, errors.Wrap(ctxErr, "recording interrupted")
			}
			return nil, errors.Wrapf(err, "recorder %q failed: %s", r.command[0], strings.TrimSpace(stderr.String()))
		}
		r.logger.Debug("recording stopped at max duration")
	}

	r.logger.Debug("recording finished", zap.Int("bytes", stdout.Len()))

	return stdout.Bytes(), nil
}

// Player plays WAV audio by piping it into a command's stdin.
type Player struct {
	command []string
	logger  *zap.Logger
}

func NewPlayer(command []string, logger *zap.Logger) *Player {
	if len(command) == 0 {
		command = ParseCommand(DefaultPlayCommand)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Player{command: command, logger: logger}
}

func (p *Player) Play(ctx context.Context, wav []byte) error {
	if len(wav) == 0 {
		return errors.New("nothing to play")
	}

	cmd := exec.CommandContext(ctx, p.command[0], p.command[1:]...)
	cmd.Stdin = bytes.NewReader(wav)
	cmd.WaitDelay = waitDelay

	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return errors.Wrap(ctxErr, "playback interrupted")
		}
		return errors.Wrapf(err, "player %q failed: %s", p.command[0], strings.TrimSpace(string(output)))
	}

	p.logger.Debug("playback finished", zap.Int("bytes", len(wav)))
	return nil
}
