package middleware

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"

	apperrors "budgetwatch/internal/errors"
	"budgetwatch/internal/logger"
)

const (
	// APIKeyHeader carries the shared secret of an external scheduler.
	APIKeyHeader = "X-API-Key"
	// PipelineCallerKey is set to true on requests authenticated by API key.
	PipelineCallerKey = "pipelineCaller"
)

// PipelineAuthMiddleware guards the endpoints an external scheduler uses to
// trigger evaluations. An empty apiKey disables them entirely.
func PipelineAuthMiddleware(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" {
			abortWithAppError(c, apperrors.ErrPipelineNotConfigured)
			return
		}
		key := c.GetHeader(APIKeyHeader)
		if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) != 1 {
			logger.Get().Warnw("rejected pipeline request",
				"path", c.Request.URL.Path,
				"client_ip", c.ClientIP(),
				"key_present", key != "",
			)
			abortWithAppError(c, apperrors.ErrInvalidAPIKey)
			return
		}
		c.Set(PipelineCallerKey, true)
		c.Next()
	}
}
