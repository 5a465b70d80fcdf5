package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/notebookrag/internal/access"
	"github.com/xxxsen/notebookrag/internal/middleware"
	"github.com/xxxsen/notebookrag/internal/pkg/errcode"
	appErr "github.com/xxxsen/notebookrag/internal/pkg/errors"
	"github.com/xxxsen/notebookrag/internal/pkg/response"
)

func getUserID(c *gin.Context) string {
	value, _ := c.Get(middleware.ContextUserIDKey)
	userID, _ := value.(string)
	return userID
}

// handleError maps pipeline errors to status codes. Messages stay generic
// so upstream details never reach the caller.
func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	logger := logutil.GetLogger(c.Request.Context()).With(
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
	)
	var rl *access.RateLimitError
	switch {
	case errors.As(err, &rl):
		c.Header("Retry-After", strconv.Itoa(rl.RetryAfterSeconds()))
		response.Error(c, http.StatusTooManyRequests, errcode.ErrTooMany, "too many requests")
	case errors.Is(err, appErr.ErrUnauthorized):
		response.Error(c, http.StatusUnauthorized, errcode.ErrUnauthorized, "unauthorized")
	case errors.Is(err, appErr.ErrForbidden):
		response.Error(c, http.StatusForbidden, errcode.ErrForbidden, "forbidden")
	case errors.Is(err, appErr.ErrNotFound):
		response.Error(c, http.StatusNotFound, errcode.ErrNotFound, "not found")
	case errors.Is(err, appErr.ErrInvalid):
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "invalid request")
	case errors.Is(err, appErr.ErrTimeout):
		logger.Warn("request timed out", zap.Error(err))
		response.Error(c, http.StatusGatewayTimeout, errcode.ErrTimeout, "request timed out")
	case errors.Is(err, context.Canceled):
		c.Abort()
	case errors.Is(err, appErr.ErrUpstream):
		logger.Error("upstream failure", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, errcode.ErrUpstream, "service temporarily unavailable, please try again")
	default:
		logger.Error("request failed", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, errcode.ErrInternal, "internal error")
	}
}
