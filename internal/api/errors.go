package api

import (
	"errors"
	"net/http"

	"github.com/Chaitanya-pati/wheatflow-agro/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// respondError переводит ошибку сервиса в HTTP ответ
func respondError(c *gin.Context, log *zap.Logger, err error) {
	var vErr *services.ValidationError
	var pErr *services.PersistenceError

	switch {
	case errors.As(err, &vErr):
		body := gin.H{"error": vErr.Message}
		if vErr.Detail != "" {
			body["details"] = vErr.Detail
		}
		c.JSON(http.StatusUnprocessableEntity, body)
	case errors.Is(err, services.ErrOrderNotFound), errors.Is(err, services.ErrReminderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrStageConflict),
		errors.Is(err, services.ErrTimerRunning),
		errors.Is(err, services.ErrTimerNotRunning):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &pErr):
		log.Error("storage failure", zap.String("op", pErr.Op), zap.String("path", c.FullPath()), zap.Error(pErr.Err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "Storage not available",
			"details": pErr.Op,
		})
	default:
		log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
	}
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "Invalid request body",
		"details": err.Error(),
	})
}
