package speech

import (
	"context"
	"fmt"
	"io"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"checkin-calls/internal/calls"
)

// OpenAIBackend synthesizes speech with the OpenAI audio API.
type OpenAIBackend struct {
	client openai.Client
	model  string
	speed  float64
}

// NewOpenAIBackend builds a backend. An empty model means tts-1.
// Extra options are passed to the client (tests point it at a local server).
func NewOpenAIBackend(apiKey, model string, opts ...option.RequestOption) *OpenAIBackend {
	if model == "" {
		model = string(openai.SpeechModelTTS1)
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &OpenAIBackend{
		client: openai.NewClient(opts...),
		model:  model,
		speed:  0.9, // slightly slower for elderly listeners
	}
}

func (b *OpenAIBackend) Synthesize(ctx context.Context, text string, voice calls.Voice) ([]byte, error) {
	resp, err := b.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Input:          text,
		Model:          openai.SpeechModel(b.model),
		Voice:          openai.AudioSpeechNewParamsVoice(voice),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
		Speed:          openai.Float(b.speed),
	})
	if err != nil {
		return nil, fmt.Errorf("openai speech: %w", err)
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("openai speech: read body: %w", err)
	}
	return audio, nil
}
