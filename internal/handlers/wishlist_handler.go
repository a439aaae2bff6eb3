package handlers

import (
	"net/http"

	"wishlist-service/internal/dto"
	"wishlist-service/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type WishlistHandler struct {
	svc *service.WishlistService
	log *zap.Logger
}

func NewWishlistHandler(svc *service.WishlistService, log *zap.Logger) *WishlistHandler {
	return &WishlistHandler{
		svc: svc,
		log: log,
	}
}

// List godoc
// @Summary Мои вишлисты
// @Description Вишлисты владельца с позициями, без деталей резерваций и вкладов
// @Security BearerAuth
// @Tags wishlists
// @Produce json
// @Success 200 {array} dto.WishlistOwnerResponse
// @Failure 401 {object} dto.UnauthorizedErrorResponse "Неавторизован"
// @Router /api/wishlists [get]
func (h *WishlistHandler) List(c *gin.Context) {
	views, err := h.svc.ListWishlists(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewWishlistOwnerList(views))
}

// Create godoc
// @Summary Создать вишлист
// @Security BearerAuth
// @Tags wishlists
// @Accept json
// @Produce json
// @Param wishlist body dto.WishlistCreateRequest true "Вишлист"
// @Success 201 {object} dto.WishlistOwnerResponse
// @Failure 400 {object} dto.ValidationErrorResponse "Неверные данные"
// @Failure 401 {object} dto.UnauthorizedErrorResponse "Неавторизован"
// @Router /api/wishlists [post]
func (h *WishlistHandler) Create(c *gin.Context) {
	var req dto.WishlistCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.log, "invalid request body", err)
		return
	}
	eventDate, err := dto.ParseDate(req.EventDate)
	if err != nil {
		badRequest(c, h.log, "event_date must be YYYY-MM-DD", err)
		return
	}

	in := service.WishlistInput{
		Title:       req.Title,
		Description: req.Description,
		IsPublic:    true,
		EventDate:   eventDate,
	}
	if req.IsPublic != nil {
		in.IsPublic = *req.IsPublic
	}

	view, err := h.svc.CreateWishlist(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewWishlistOwnerResponse(view))
}

// Get godoc
// @Summary Вишлист владельца
// @Security BearerAuth
// @Tags wishlists
// @Produce json
// @Param id path string true "ID вишлиста"
// @Success 200 {object} dto.WishlistOwnerResponse
// @Failure 404 {object} dto.NotFoundErrorResponse "Не найден"
// @Router /api/wishlists/{id} [get]
func (h *WishlistHandler) Get(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	view, err := h.svc.GetWishlist(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewWishlistOwnerResponse(view))
}

// Update godoc
// @Summary Изменить вишлист
// @Security BearerAuth
// @Tags wishlists
// @Accept json
// @Produce json
// @Param id path string true "ID вишлиста"
// @Param wishlist body dto.WishlistUpdateRequest true "Изменяемые поля"
// @Success 200 {object} dto.WishlistOwnerResponse
// @Failure 400 {object} dto.ValidationErrorResponse "Неверные данные"
// @Failure 404 {object} dto.NotFoundErrorResponse "Не найден"
// @Router /api/wishlists/{id} [put]
func (h *WishlistHandler) Update(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req dto.WishlistUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.log, "invalid request body", err)
		return
	}
	eventDate, err := dto.ParseDate(req.EventDate)
	if err != nil {
		badRequest(c, h.log, "event_date must be YYYY-MM-DD", err)
		return
	}

	view, err := h.svc.UpdateWishlist(c.Request.Context(), id, service.WishlistPatch{
		Title:       req.Title,
		Description: req.Description,
		IsPublic:    req.IsPublic,
		EventDate:   eventDate,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewWishlistOwnerResponse(view))
}

// Delete godoc
// @Summary Удалить вишлист
// @Description Удаляет вишлист вместе с позициями, резервациями и вкладами
// @Security BearerAuth
// @Tags wishlists
// @Param id path string true "ID вишлиста"
// @Success 204
// @Failure 404 {object} dto.NotFoundErrorResponse "Не найден"
// @Router /api/wishlists/{id} [delete]
func (h *WishlistHandler) Delete(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteWishlist(c.Request.Context(), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Public godoc
// @Summary Публичный вишлист
// @Description Гостевое представление по slug. Владелец видит его без деталей резерваций и вкладов
// @Tags wishlists
// @Produce json
// @Param slug path string true "Slug"
// @Success 200 {object} dto.WishlistGuestResponse
// @Failure 404 {object} dto.NotFoundErrorResponse "Не найден или приватный"
// @Router /api/wishlists/public/{slug} [get]
func (h *WishlistHandler) Public(c *gin.Context) {
	view, err := h.svc.GetPublicWishlist(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewWishlistGuestResponse(view))
}

// CreateItem godoc
// @Summary Добавить позицию
// @Security BearerAuth
// @Tags items
// @Accept json
// @Produce json
// @Param id path string true "ID вишлиста"
// @Param item body dto.ItemCreateRequest true "Позиция"
// @Success 201 {object} dto.ItemOwnerResponse
// @Failure 400 {object} dto.ValidationErrorResponse "Неверные данные"
// @Failure 403 {object} dto.ForbiddenErrorResponse "Чужой вишлист"
// @Failure 404 {object} dto.NotFoundErrorResponse "Вишлист не найден"
// @Router /api/wishlists/{id}/items [post]
func (h *WishlistHandler) CreateItem(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req dto.ItemCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.log, "invalid request body", err)
		return
	}
	it, err := h.svc.CreateItem(c.Request.Context(), id, req.Input())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewItemOwnerResponse(it))
}
