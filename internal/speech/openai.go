package speech

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIEngine implements Engine on the OpenAI speech APIs.
type OpenAIEngine struct {
	client   *openai.Client
	ttsModel string
	ttsVoice string
	sttModel string
}

func NewOpenAIEngine(apiKey, ttsModel, ttsVoice, sttModel string) (*OpenAIEngine, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required for the speech engine")
	}
	if strings.TrimSpace(ttsModel) == "" {
		ttsModel = string(openai.TTSModel1)
	}
	if strings.TrimSpace(ttsVoice) == "" {
		ttsVoice = string(openai.VoiceAlloy)
	}
	if strings.TrimSpace(sttModel) == "" {
		sttModel = openai.Whisper1
	}
	return &OpenAIEngine{
		client:   openai.NewClient(strings.TrimSpace(apiKey)),
		ttsModel: ttsModel,
		ttsVoice: ttsVoice,
		sttModel: sttModel,
	}, nil
}

func (e *OpenAIEngine) Name() string {
	return "openai"
}

func (e *OpenAIEngine) Synthesize(ctx context.Context, req SynthesisRequest) ([]byte, error) {
	if e == nil || e.client == nil {
		return nil, fmt.Errorf("speech engine is not initialized")
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, fmt.Errorf("text is required")
	}

	voice := req.Voice
	if strings.TrimSpace(voice) == "" {
		voice = e.ttsVoice
	}

	speechReq := openai.CreateSpeechRequest{
		Model: openai.SpeechModel(e.ttsModel),
		Input: req.Text,
		Voice: openai.SpeechVoice(voice),
	}
	if format := strings.TrimSpace(req.Format); format != "" {
		speechReq.ResponseFormat = openai.SpeechResponseFormat(format)
	}

	resp, err := e.client.CreateSpeech(ctx, speechReq)
	if err != nil {
		return nil, fmt.Errorf("synthesize speech: %w", err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("read synthesized audio: %w", err)
	}
	return audio, nil
}

func (e *OpenAIEngine) Transcribe(ctx context.Context, req TranscriptionRequest) (string, error) {
	if e == nil || e.client == nil {
		return "", fmt.Errorf("speech engine is not initialized")
	}
	if len(req.Audio) == 0 {
		return "", fmt.Errorf("audio payload is required")
	}

	filename := strings.TrimSpace(req.Filename)
	if filename == "" {
		filename = "audio.wav"
	}

	resp, err := e.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    e.sttModel,
		FilePath: filename,
		Reader:   bytes.NewReader(req.Audio),
		Language: strings.TrimSpace(req.Language),
	})
	if err != nil {
		return "", fmt.Errorf("transcribe audio: %w", err)
	}
	return resp.Text, nil
}
