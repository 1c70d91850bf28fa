// internal/httpapi/response.go
package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/SyedDaiam9101/transfer-classifier/internal/logging"
	"github.com/SyedDaiam9101/transfer-classifier/internal/pkg/errs"
)

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"data": data})
}

func fail(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": APIError{Code: code, Message: message}})
}

func handleError(c *gin.Context, err error) {
	logging.FromContext(c.Request.Context()).Warn("request failed", zap.Error(err))
	switch {
	case errors.Is(err, errs.ErrPipelineNotFitted):
		fail(c, http.StatusServiceUnavailable, "not_fitted", err.Error())
	case errors.Is(err, errs.ErrRetrainInProgress):
		fail(c, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, errs.ErrEmptyTrainingSet), errors.Is(err, errs.ErrSingleClass):
		fail(c, http.StatusUnprocessableEntity, "bad_training_set", err.Error())
	case errs.IsNotFound(err):
		fail(c, http.StatusNotFound, "not_found", err.Error())
	case errs.IsInvalidInput(err):
		fail(c, http.StatusBadRequest, "invalid", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		fail(c, http.StatusGatewayTimeout, "timeout", err.Error())
	default:
		fail(c, http.StatusInternalServerError, "internal", "internal error")
	}
}
