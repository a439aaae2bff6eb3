package handlers

import (
	"errors"
	"net/http"

	"wishlist-service/internal/dto"
	"wishlist-service/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuthHandler struct {
	auth *service.AuthService
	log  *zap.Logger
}

func NewAuthHandler(auth *service.AuthService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		auth: auth,
		log:  log,
	}
}

func tokenResponse(res *service.AuthResult) dto.TokenResponse {
	return dto.TokenResponse{
		AccessToken: res.AccessToken,
		TokenType:   "bearer",
		ExpiresAt:   res.ExpiresAt,
		User:        dto.NewUserResponse(res.User),
	}
}

// Register godoc
// @Summary Регистрация пользователя
// @Description Создаёт пользователя и сразу выдаёт access token
// @Tags auth
// @Accept json
// @Produce json
// @Param register body dto.RegisterRequest true "Данные регистрации"
// @Success 200 {object} dto.TokenResponse
// @Failure 400 {object} dto.ValidationErrorResponse "Неверные данные"
// @Failure 409 {object} dto.ConflictErrorResponse "Email или имя заняты"
// @Failure 500 {object} dto.InternalErrorResponse "Внутренняя ошибка"
// @Router /api/auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.log, "invalid request body", err)
		return
	}

	res, err := h.auth.Register(c.Request.Context(), req.Email, req.Username, req.Password)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, tokenResponse(res))
}

// Login godoc
// @Summary Вход формой
// @Description OAuth2-совместимый вход: username содержит email
// @Tags auth
// @Accept x-www-form-urlencoded
// @Produce json
// @Param username formData string true "Email"
// @Param password formData string true "Пароль"
// @Success 200 {object} dto.TokenResponse
// @Failure 400 {object} dto.ValidationErrorResponse "Неверные данные"
// @Failure 401 {object} dto.UnauthorizedErrorResponse "Неверный email или пароль"
// @Router /api/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var form dto.LoginForm
	if err := c.ShouldBind(&form); err != nil {
		badRequest(c, h.log, "invalid form", err)
		return
	}
	h.login(c, form.Username, form.Password)
}

// LoginJSON godoc
// @Summary Вход по email и паролю
// @Tags auth
// @Accept json
// @Produce json
// @Param login body dto.LoginRequest true "Данные входа"
// @Success 200 {object} dto.TokenResponse
// @Failure 400 {object} dto.ValidationErrorResponse "Неверные данные"
// @Failure 401 {object} dto.UnauthorizedErrorResponse "Неверный email или пароль"
// @Router /api/auth/login/json [post]
func (h *AuthHandler) LoginJSON(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.log, "invalid request body", err)
		return
	}
	h.login(c, req.Email, req.Password)
}

func (h *AuthHandler) login(c *gin.Context, email, password string) {
	res, err := h.auth.Login(c.Request.Context(), email, password)
	if err != nil {
		if errors.Is(err, service.ErrUnauthorized) {
			h.log.Warn("login rejected", zap.String("email", email))
		}
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, tokenResponse(res))
}

// Me godoc
// @Summary Текущий пользователь
// @Security BearerAuth
// @Tags auth
// @Produce json
// @Success 200 {object} dto.UserResponse
// @Failure 401 {object} dto.UnauthorizedErrorResponse "Неавторизован"
// @Router /api/auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	u, err := h.auth.Me(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewUserResponse(u))
}
