package httpapi

import (
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"horse.fit/babel/internal/speech"
)

const maxAudioBodyBytes = 25 << 20

type synthesisRequest struct {
	Text   string `json:"text"`
	Voice  string `json:"voice,omitempty"`
	Format string `json:"format,omitempty"`
}

func (s *Server) handleSynthesis(c echo.Context) error {
	if s.speechEngine == nil {
		return fail(c, http.StatusNotImplemented, "No speech engine is configured", nil)
	}

	var req synthesisRequest
	if err := c.Bind(&req); err != nil {
		return failValidation(c, map[string]string{"body": "must be a JSON object"})
	}
	if strings.TrimSpace(req.Text) == "" {
		return failValidation(c, map[string]string{"text": "is required"})
	}

	audio, err := s.speechEngine.Synthesize(c.Request().Context(), speech.SynthesisRequest{
		Text:   req.Text,
		Voice:  req.Voice,
		Format: req.Format,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("engine", s.speechEngine.Name()).Msg("speech synthesis failed")
		return fail(c, http.StatusBadGateway, "Speech synthesis failed", nil)
	}

	return c.Blob(http.StatusOK, audioContentType(req.Format), audio)
}

func (s *Server) handleTranscription(c echo.Context) error {
	if s.speechEngine == nil {
		return fail(c, http.StatusNotImplemented, "No speech engine is configured", nil)
	}

	file, err := c.FormFile("audio")
	if err != nil {
		return failValidation(c, map[string]string{"audio": "file is required"})
	}
	if file.Size > maxAudioBodyBytes {
		return fail(c, http.StatusRequestEntityTooLarge, "Audio file too large", nil)
	}

	src, err := file.Open()
	if err != nil {
		return failValidation(c, map[string]string{"audio": "could not open uploaded file"})
	}
	defer src.Close()

	audio, err := io.ReadAll(src)
	if err != nil {
		return failValidation(c, map[string]string{"audio": "could not read uploaded file"})
	}

	text, err := s.speechEngine.Transcribe(c.Request().Context(), speech.TranscriptionRequest{
		Audio:    audio,
		Filename: file.Filename,
		Language: strings.TrimSpace(c.FormValue("language")),
	})
	if err != nil {
		s.logger.Error().Err(err).Str("engine", s.speechEngine.Name()).Msg("speech transcription failed")
		return fail(c, http.StatusBadGateway, "Speech transcription failed", nil)
	}

	return success(c, map[string]any{
		"text": text,
	})
}

func audioContentType(format string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "mp3":
		return "audio/mpeg"
	case "opus":
		return "audio/opus"
	case "aac":
		return "audio/aac"
	case "flac":
		return "audio/flac"
	case "wav":
		return "audio/wav"
	case "pcm":
		return "audio/L16"
	default:
		return "application/octet-stream"
	}
}
