package middleware

import (
	"context"
	"net/http"
	"strings"

	"wishlist-service/internal/dto"
	"wishlist-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CtxUserID: ключ id пользователя в контексте gin
const CtxUserID = "user_id"

// Authenticator проверяет access token и возвращает id активного пользователя.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (uuid.UUID, error)
}

// AuthRequired пропускает только запросы с валидным Bearer токеном.
func AuthRequired(auth Authenticator, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if authz == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewUnauthorizedError("missing Authorization header"))
			return
		}
		token, ok := ExtractBearerToken(authz)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewUnauthorizedError("invalid Authorization header"))
			return
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewUnauthorizedError("empty token"))
			return
		}

		userID, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			log.Warn("authenticate failed", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewUnauthorizedError("could not validate credentials"))
			return
		}

		setUser(c, userID)
		c.Next()
	}
}

// AuthOptional узнаёт пользователя, если токен передан и валиден; иначе
// запрос идёт как анонимный.
func AuthOptional(auth Authenticator, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := ExtractBearerToken(c.GetHeader("Authorization"))
		if ok && token != "" {
			userID, err := auth.Authenticate(c.Request.Context(), token)
			if err == nil {
				setUser(c, userID)
			} else {
				log.Debug("optional auth ignored", zap.Error(err))
			}
		}
		c.Next()
	}
}

func setUser(c *gin.Context, userID uuid.UUID) {
	c.Set(CtxUserID, userID)
	c.Request = c.Request.WithContext(service.WithUserID(c.Request.Context(), userID))
}

// ExtractBearerToken извлекает токен из заголовка Authorization, устойчиво к лишним символам
// Примеры допустимых значений:
// - "Bearer abc.def.ghi"
// - "Bearer \"abc.def.ghi\""
// - "Bearer abc.def.ghi, extra"
func ExtractBearerToken(authz string) (string, bool) {
	if authz == "" {
		return "", false
	}
	parts := strings.SplitN(authz, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	t := strings.Trim(strings.TrimSpace(parts[1]), " \"'")
	// всё после запятой: мусор
	if i := strings.IndexRune(t, ','); i >= 0 {
		t = strings.Trim(strings.TrimSpace(t[:i]), " \"'")
	}
	if i := strings.IndexByte(t, ' '); i >= 0 {
		t = strings.Trim(strings.TrimSpace(t[:i]), " \"'")
	}
	return t, true
}
