package handlers

import (
	"errors"
	"net/http"
	"strings"

	"wishlist-service/internal/dto"
	"wishlist-service/internal/money"
	"wishlist-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// respondError переводит ошибку сервиса в HTTP-ответ. Всё, что не
// относится к известным категориям,: 500 с записью в лог.
func respondError(c *gin.Context, log *zap.Logger, err error) {
	msg := clientMessage(err)

	var limit *service.LimitExceededError
	switch {
	case errors.As(err, &limit):
		c.JSON(http.StatusBadRequest, dto.NewLimitExceededError(msg, money.FromCents(limit.RemainingCents)))
	case errors.Is(err, service.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, dto.NewUnauthorizedError(msg))
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, dto.NewForbiddenError(msg))
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, dto.NewNotFoundError(msg))
	case errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, dto.NewConflictError(msg))
	case errors.Is(err, service.ErrInvalidState):
		c.JSON(http.StatusBadRequest, dto.NewInvalidStateError(msg))
	case errors.Is(err, service.ErrInvalidArgument):
		c.JSON(http.StatusBadRequest, dto.NewValidationError(msg, nil))
	default:
		log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.NewInternalError(""))
	}
}

// clientMessage убирает префикс категории: "not found: item not found" -> "item not found".
func clientMessage(err error) string {
	msg := err.Error()
	if parts := strings.SplitN(msg, ": ", 2); len(parts) == 2 {
		return parts[1]
	}
	return msg
}

func badRequest(c *gin.Context, log *zap.Logger, what string, err error) {
	log.Warn("invalid request", zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusBadRequest, dto.NewValidationError(what, []dto.FieldError{}))
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusNotFound, dto.NewNotFoundError("resource not found"))
		return uuid.Nil, false
	}
	return id, true
}
