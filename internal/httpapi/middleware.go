package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"horse.fit/babel/internal/auth"
	"horse.fit/babel/internal/credstore"
	"horse.fit/babel/internal/ratelimit"
)

const identityContextKey = "auth.identity"

// requireAuth resolves the bearer credential to an identity and stores it
// on the request context. Absent credential → 401, unresolved → 403.
func (s *Server) requireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rawToken, found := bearerToken(c.Request())
			if !found {
				return fail(c, http.StatusUnauthorized, "Authentication required", nil)
			}

			identity, err := s.authn.Authenticate(c.Request().Context(), rawToken)
			if err != nil {
				if errors.Is(err, auth.ErrUnauthorized) {
					return fail(c, http.StatusUnauthorized, "Authentication required", nil)
				}
				return fail(c, http.StatusForbidden, "Credential is not valid", nil)
			}

			c.Set(identityContextKey, identity)
			return next(c)
		}
	}
}

// enforceRateLimit admits the authenticated identity against its window.
// Rejections carry a Retry-After header and a retry_after_ms body field.
func (s *Server) enforceRateLimit() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity, ok := identityFromContext(c)
			if !ok {
				return fail(c, http.StatusUnauthorized, "Authentication required", nil)
			}

			if err := s.limiter.Admit(identity.Subject); err != nil {
				var limitErr *ratelimit.LimitExceededError
				if errors.As(err, &limitErr) {
					retryAfterSeconds := int64(limitErr.RetryAfter.Seconds())
					if limitErr.RetryAfter > time.Duration(retryAfterSeconds)*time.Second {
						retryAfterSeconds++
					}
					c.Response().Header().Set("Retry-After", fmt.Sprintf("%d", retryAfterSeconds))
					return fail(c, http.StatusTooManyRequests, "Rate limit exceeded", map[string]any{
						"retry_after_ms": limitErr.RetryAfter.Milliseconds(),
					})
				}
				s.logger.Error().Err(err).Str("subject", identity.Subject).Msg("rate limiter failed")
				return internalError(c, "Failed to admit request")
			}

			return next(c)
		}
	}
}

func identityFromContext(c echo.Context) (credstore.Identity, bool) {
	value := c.Get(identityContextKey)
	identity, ok := value.(credstore.Identity)
	return identity, ok
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}
	return token, true
}
