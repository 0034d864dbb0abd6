package middleware

import (
	"errors"
	"net/http"
	"time"

	"cashledger/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// ErrorHandler translates errors attached to the Gin context into JSON
// responses. Typed apierror values carry their own status; everything else
// becomes a plain 500 — stack traces are never exposed to clients.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err

		var apiErr *apierror.Error
		if errors.As(err, &apiErr) {
			if apiErr.Kind == apierror.KindValidation && len(apiErr.Fields) > 0 {
				c.AbortWithStatusJSON(apiErr.HTTPStatus(), apierror.NewValidation(apiErr.Fields))
				return
			}
			if apiErr.Kind == apierror.KindInternal {
				log.Error().
					Str("request_id", c.GetString(RequestIDKey)).
					Str("path", c.FullPath()).
					Err(apiErr).
					Msg("internal error")
				c.AbortWithStatusJSON(http.StatusInternalServerError, apierror.New("internal server error"))
				return
			}
			c.AbortWithStatusJSON(apiErr.HTTPStatus(), apierror.New(apiErr.Msg))
			return
		}

		log.Error().
			Str("request_id", c.GetString(RequestIDKey)).
			Str("path", c.FullPath()).
			Str("method", c.Request.Method).
			Err(err).
			Msg("unhandled error")

		c.AbortWithStatusJSON(http.StatusInternalServerError, apierror.New("internal server error"))
	}
}

// Recovery handles panics and converts them into 500 responses.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().
					Str("request_id", c.GetString(RequestIDKey)).
					Interface("panic", r).
					Msg("panic recovered")
				c.AbortWithStatusJSON(http.StatusInternalServerError, apierror.New("internal server error"))
			}
		}()
		c.Next()
	}
}

// Logger logs each request with method, path, status, latency, and request_id.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info().
			Str("request_id", c.GetString(RequestIDKey)).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}
