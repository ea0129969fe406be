package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	derrors "github.com/mamadbah2/dairy/internal/domain/errors"
)

// writeError maps service errors to HTTP responses. Locked-period rejections
// carry "locked": true so clients can tell them apart from validation failures.
func writeError(c *gin.Context, logger *zap.Logger, err error) {
	var (
		lerr *derrors.LockedPeriodError
		verr *derrors.ValidationError
	)

	switch {
	case errors.As(err, &lerr):
		body := gin.H{"error": err.Error(), "locked": true}
		if lerr.PeriodID != "" {
			body["periodId"] = lerr.PeriodID
		}
		if lerr.Date != "" {
			body["date"] = lerr.Date
		}
		c.JSON(http.StatusLocked, body)
	case derrors.IsLocked(err):
		c.JSON(http.StatusLocked, gin.H{"error": err.Error(), "locked": true})
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "field": verr.Field})
	case derrors.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case derrors.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case derrors.IsConflict(err):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func badRequest(c *gin.Context, logger *zap.Logger, err error) {
	logger.Debug("invalid request body", zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
}
