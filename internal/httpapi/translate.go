package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"horse.fit/babel/internal/batch"
	"horse.fit/babel/internal/language"
	"horse.fit/babel/internal/payloadschema"
	"horse.fit/babel/internal/provider"
)

const maxTranslateBodyBytes = 4 << 20

type translationItem struct {
	Text           string `json:"text"`
	DetectedSource string `json:"detected_source,omitempty"`
}

func (s *Server) handleTranslate(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxTranslateBodyBytes+1))
	if err != nil {
		return failValidation(c, map[string]string{"body": "could not read request body"})
	}
	if len(body) > maxTranslateBodyBytes {
		return fail(c, http.StatusRequestEntityTooLarge, "Request body too large", nil)
	}

	req, err := payloadschema.ValidateTranslateRequest(body)
	if err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}

	targetInfo, ok := language.Lookup(req.Target)
	if !ok {
		return failValidation(c, map[string]string{"target": "is not a supported language code"})
	}
	target := targetInfo.Code
	source := provider.SourceAuto
	if req.Source != provider.SourceAuto {
		sourceInfo, ok := language.Lookup(req.Source)
		if !ok {
			return failValidation(c, map[string]string{"source": "is not a supported language code"})
		}
		source = sourceInfo.Code
	}

	batchReq := batch.Request{
		Units: make([]provider.Unit, len(req.Texts)),
	}
	for i, text := range req.Texts {
		batchReq.Units[i] = provider.Unit{
			Text:       text,
			SourceLang: source,
			TargetLang: target,
			Format:     req.Format,
		}
	}
	batchReq.Options.GlossaryID = req.GlossaryID
	if req.Options != nil {
		batchReq.Options.Formality = req.Options.Formality
		batchReq.Options.PreserveEntities = req.Options.PreserveEntities
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), s.opts.RequestTimeout)
	defer cancel()

	result, err := s.coordinator.Translate(ctx, batchReq)
	if err != nil {
		var partialErr *batch.PartialError
		if errors.As(err, &partialErr) {
			return fail(c, http.StatusBadGateway, "Batch partially failed", map[string]any{
				"translations": partialErr.Results,
				"failures":     partialErr.Failures,
			})
		}
		var totalErr *batch.TotalError
		if errors.As(err, &totalErr) {
			return fail(c, http.StatusBadGateway, "Batch failed", map[string]any{
				"failures": totalErr.Failures,
			})
		}
		s.logger.Error().Err(err).Int("units", len(batchReq.Units)).Msg("translate batch failed")
		return internalError(c, "Failed to translate batch")
	}

	translations := make([]translationItem, len(req.Texts))
	for _, unitResult := range result.Results {
		translations[unitResult.Index] = translationItem{
			Text:           unitResult.Text,
			DetectedSource: unitResult.DetectedSource,
		}
	}

	return success(c, map[string]any{
		"translations": translations,
	})
}
