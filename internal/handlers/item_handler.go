package handlers

import (
	"errors"
	"io"
	"net/http"

	"wishlist-service/internal/dto"
	"wishlist-service/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ItemHandler struct {
	svc *service.WishlistService
	log *zap.Logger
}

func NewItemHandler(svc *service.WishlistService, log *zap.Logger) *ItemHandler {
	return &ItemHandler{
		svc: svc,
		log: log,
	}
}

// Update godoc
// @Summary Изменить позицию
// @Security BearerAuth
// @Tags items
// @Accept json
// @Produce json
// @Param id path string true "ID позиции"
// @Param item body dto.ItemUpdateRequest true "Изменяемые поля"
// @Success 200 {object} dto.ItemOwnerResponse
// @Failure 400 {object} dto.InvalidStateErrorResponse "Изменение недопустимо"
// @Failure 403 {object} dto.ForbiddenErrorResponse "Чужая позиция"
// @Failure 404 {object} dto.NotFoundErrorResponse "Не найдена"
// @Router /api/items/{id} [put]
func (h *ItemHandler) Update(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req dto.ItemUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.log, "invalid request body", err)
		return
	}
	it, err := h.svc.UpdateItem(c.Request.Context(), id, req.Patch())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewItemOwnerResponse(it))
}

// Delete godoc
// @Summary Удалить позицию
// @Description Позицию с вкладами удалить нельзя
// @Security BearerAuth
// @Tags items
// @Param id path string true "ID позиции"
// @Success 204
// @Failure 400 {object} dto.InvalidStateErrorResponse "Есть вклады"
// @Failure 403 {object} dto.ForbiddenErrorResponse "Чужая позиция"
// @Failure 404 {object} dto.NotFoundErrorResponse "Не найдена"
// @Router /api/items/{id} [delete]
func (h *ItemHandler) Delete(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteItem(c.Request.Context(), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Reserve godoc
// @Summary Зарезервировать подарок
// @Description Доступно без авторизации. Позицию со сбором зарезервировать нельзя
// @Tags reservations
// @Accept json
// @Produce json
// @Param id path string true "ID позиции"
// @Param reservation body dto.ReserveRequest true "Данные гостя"
// @Success 201 {object} dto.ReservationResponse
// @Failure 400 {object} dto.InvalidStateErrorResponse "Позиция со сбором"
// @Failure 404 {object} dto.NotFoundErrorResponse "Не найдена"
// @Failure 409 {object} dto.ConflictErrorResponse "Уже зарезервирована"
// @Router /api/items/{id}/reserve [post]
func (h *ItemHandler) Reserve(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req dto.ReserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.log, "invalid request body", err)
		return
	}
	r, err := h.svc.Reserve(c.Request.Context(), id, req.Input())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewReservationResponse(r))
}

// CancelReservation godoc
// @Summary Отменить резервацию
// @Description Отменить может тот, кто резервировал (по email), или владелец вишлиста
// @Tags reservations
// @Accept json
// @Param id path string true "ID позиции"
// @Param cancel body dto.CancelReservationRequest false "Email резервировавшего"
// @Success 204
// @Failure 403 {object} dto.ForbiddenErrorResponse "Email не совпадает"
// @Failure 404 {object} dto.NotFoundErrorResponse "Резервации нет"
// @Router /api/items/{id}/reserve [delete]
func (h *ItemHandler) CancelReservation(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req dto.CancelReservationRequest
	// тело необязательно: владелец отменяет по токену
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, h.log, "invalid request body", err)
		return
	}
	if err := h.svc.CancelReservation(c.Request.Context(), id, req.ReserverEmail); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Contribute godoc
// @Summary Внести вклад
// @Description Вклад в коллективный подарок; сумма не может превышать остаток
// @Tags contributions
// @Accept json
// @Produce json
// @Param id path string true "ID позиции"
// @Param contribution body dto.ContributeRequest true "Вклад"
// @Success 201 {object} dto.ContributionResponse
// @Failure 400 {object} dto.LimitExceededErrorResponse "Превышен остаток"
// @Failure 404 {object} dto.NotFoundErrorResponse "Не найдена"
// @Router /api/items/{id}/contribute [post]
func (h *ItemHandler) Contribute(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req dto.ContributeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.log, "invalid request body", err)
		return
	}
	contrib, err := h.svc.Contribute(c.Request.Context(), id, req.Input())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewContributionResponse(contrib))
}
