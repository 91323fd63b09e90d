// internal/common/errors/handler.go
package errors

import (
	"github.com/gin-gonic/gin"
)

// ErrorHandler writes callable error envelopes with standardized logging
type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// HandleCallableError normalizes err, logs it and aborts the request with
// {"error":{"status":...,"message":...}}.
func (h *ErrorHandler) HandleCallableError(c *gin.Context, err error) {
	stdErr := AsStandardError(err)
	callableErr := ConvertToCallableError(stdErr)

	h.logError(c, stdErr, callableErr)

	c.AbortWithStatusJSON(callableErr.Status.HTTPStatus(), Envelope{Error: callableErr})
}

func (h *ErrorHandler) logError(c *gin.Context, stdErr *StandardError, callableErr *CallableError) {
	fields := map[string]interface{}{
		"path":          c.FullPath(),
		"errorCode":     string(stdErr.Code),
		"status":        string(callableErr.Status),
		"message":       stdErr.Message,
		"details":       stdErr.Details,
		"retryable":     stdErr.Retryable,
		"errorCategory": GetErrorCategory(stdErr.Code),
	}
	if rid := c.GetString("request_id"); rid != "" {
		fields["requestId"] = rid
	}
	for k, v := range stdErr.Metadata {
		fields[k] = v
	}

	if callableErr.Status == KindInternal {
		h.logger.Error("Callable request failed", fields)
		return
	}
	h.logger.Warn("Callable request rejected", fields)
}
