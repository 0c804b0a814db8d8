package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pageza/foodgram/backend/internal/apperrors"
	"github.com/pageza/foodgram/backend/internal/logging"
)

// ErrorHandler renders the last error pushed with c.Error and turns panics
// into 500 responses.
//
// Field validation errors render as {"<field>": ["message"]}, other domain
// errors as {"errors": "message"}. Anything without a domain code is logged
// and hidden behind a generic 500.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logging.Ctx(c.Request.Context()).Error().
					Interface("panic", r).
					Str("path", c.Request.URL.Path).
					Msg("panic recovered")
				if !c.Writer.Written() {
					c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
				}
			}
		}()

		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		status, body := RenderError(c.Errors.Last().Err)
		if status >= http.StatusInternalServerError {
			logging.Ctx(c.Request.Context()).Error().
				Err(c.Errors.Last().Err).
				Str("method", c.Request.Method).
				Str("path", c.Request.URL.Path).
				Int("status", status).
				Msg("request failed")
		}
		c.JSON(status, body)
	}
}

// RenderError maps err to a status and response body.
func RenderError(err error) (int, gin.H) {
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError, gin.H{"error": "internal server error"}
	}
	status := appErr.Code.HTTPStatus()
	if status >= http.StatusInternalServerError && appErr.Code != apperrors.CodeUnavailable {
		return status, gin.H{"error": "internal server error"}
	}
	if appErr.Field != "" {
		return status, gin.H{appErr.Field: []string{appErr.Message}}
	}
	return status, gin.H{"errors": appErr.Message}
}
