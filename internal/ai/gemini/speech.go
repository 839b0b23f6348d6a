package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/interview-coach/internal/audio"
	"github.com/spigell/interview-coach/internal/interview"
)

//go:embed prompts/transcribe.md
var transcribePrompt string

const noSpeechMarker = "NO_SPEECH"

// Transcribe converts recorded speech into text.
func (g *Generator) Transcribe(ctx context.Context, data []byte, mimeType string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("transcribe audio: %w: recording is empty", interview.ErrRecognition)
	}
	if mimeType = strings.TrimSpace(mimeType); mimeType == "" {
		mimeType = "audio/wav"
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(transcribePrompt, genai.RoleUser),
	}

	resp, err := g.send(ctx, g.model, config,
		genai.Part{Text: "Transcribe this answer."},
		genai.Part{InlineData: &genai.Blob{Data: data, MIMEType: mimeType}},
	)
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("transcribe audio: %w", err)
		}
		return "", fmt.Errorf("transcribe audio: %w: %w", interview.ErrServiceUnavailable, err)
	}

	text := strings.Trim(responseText(resp), "\"'` \n")
	if text == "" || strings.EqualFold(text, noSpeechMarker) {
		return "", fmt.Errorf("transcribe audio: %w: could not understand audio", interview.ErrRecognition)
	}

	g.log().Debug("audio transcribed",
		zap.Int("audio_bytes", len(data)),
		zap.Int("text_length", utf8.RuneCountInString(text)),
	)

	return text, nil
}

// Synthesize renders text as spoken WAV audio.
func (g *Generator) Synthesize(ctx context.Context, text string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("synthesize speech: %w: nothing to say", interview.ErrPlayback)
	}

	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: g.voice},
			},
		},
	}

	resp, err := g.send(ctx, g.speechModel, config, genai.Part{Text: text})
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("synthesize speech: %w", err)
		}
		return nil, fmt.Errorf("synthesize speech: %w: %w", interview.ErrPlayback, err)
	}

	wav, err := speechAudio(resp)
	if err != nil {
		return nil, fmt.Errorf("synthesize speech: %w: %w", interview.ErrPlayback, err)
	}

	g.log().Debug("speech synthesized",
		zap.Int("text_length", utf8.RuneCountInString(text)),
		zap.Int("audio_bytes", len(wav)),
	)

	return wav, nil
}

// speechAudio collects the inline audio of a response. Raw PCM is wrapped into WAV.
func speechAudio(resp *genai.GenerateContentResponse) ([]byte, error) {
	if resp == nil {
		return nil, errors.New("empty response")
	}

	var (
		pcm  []byte
		mime string
	)
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
				continue
			}
			if audio.IsWAV(part.InlineData.Data) {
				return part.InlineData.Data, nil
			}
			if mime == "" {
				mime = part.InlineData.MIMEType
			}
			pcm = append(pcm, part.InlineData.Data...)
		}
	}

	if len(pcm) == 0 {
		return nil, errors.New("response carries no audio")
	}

	rate := audio.SampleRateFromMIME(mime, audio.DefaultSampleRate)
	return audio.EncodeWAV(pcm, rate, audio.DefaultChannels, audio.DefaultBitsPerSample), nil
}
