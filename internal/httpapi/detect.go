package httpapi

import (
	"strings"

	"github.com/labstack/echo/v4"

	"horse.fit/babel/internal/langdetect"
	"horse.fit/babel/internal/language"
)

type detectRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleDetect(c echo.Context) error {
	var req detectRequest
	if err := c.Bind(&req); err != nil {
		return failValidation(c, map[string]string{"body": "must be a JSON object"})
	}
	if strings.TrimSpace(req.Text) == "" {
		return failValidation(c, map[string]string{"text": "is required"})
	}

	code, confidence := langdetect.DetectWithConfidence(req.Text)
	if code == "" {
		// Too short or letterless to classify.
		code = "und"
		confidence = 0
	}

	return success(c, map[string]any{
		"language":   code,
		"confidence": confidence,
	})
}

func (s *Server) handleLanguages(c echo.Context) error {
	return success(c, map[string]any{
		"items": language.Catalog(),
	})
}
