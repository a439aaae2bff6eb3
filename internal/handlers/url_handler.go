package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"wishlist-service/internal/dto"
	"wishlist-service/internal/urlmeta"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type MetadataParser interface {
	Parse(ctx context.Context, rawURL string) (*urlmeta.Metadata, error)
}

type URLHandler struct {
	parser MetadataParser
	log    *zap.Logger
}

func NewURLHandler(parser MetadataParser, log *zap.Logger) *URLHandler {
	return &URLHandler{
		parser: parser,
		log:    log,
	}
}

// Parse godoc
// @Summary Метаданные товара по ссылке
// @Description Тело запроса: JSON-строка с адресом ("https://...") или объект {"url": "..."}
// @Tags url
// @Accept json
// @Produce json
// @Param url body string true "Адрес страницы"
// @Success 200 {object} urlmeta.Metadata
// @Failure 400 {object} dto.ValidationErrorResponse "Адрес неверный или страница недоступна"
// @Failure 408 {object} dto.TimeoutErrorResponse "Таймаут"
// @Failure 429 {object} dto.RateLimitedErrorResponse "Слишком много запросов"
// @Router /api/url/parse [post]
func (h *URLHandler) Parse(c *gin.Context) {
	target, err := readURL(c)
	if err != nil {
		badRequest(c, h.log, "url is required", err)
		return
	}

	md, err := h.parser.Parse(c.Request.Context(), target)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, md)
	case errors.Is(err, urlmeta.ErrBlockedAddress):
		h.log.Warn("url points to internal network", zap.String("url", target))
		c.JSON(http.StatusBadRequest, dto.NewValidationError("url not allowed", []dto.FieldError{{Field: "url", Message: "must point to a public host"}}))
	case errors.Is(err, urlmeta.ErrInvalidURL):
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid url", []dto.FieldError{{Field: "url", Message: "must be an http(s) url"}}))
	case errors.Is(err, urlmeta.ErrTimeout):
		h.log.Warn("url parse timeout", zap.String("url", target))
		c.JSON(http.StatusRequestTimeout, dto.NewTimeoutError("request timeout"))
	case errors.Is(err, urlmeta.ErrFetchFailed):
		h.log.Warn("url fetch failed", zap.String("url", target), zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.NewValidationError("could not fetch url", []dto.FieldError{}))
	default:
		h.log.Error("url parse failed", zap.String("url", target), zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.NewValidationError("error parsing url", []dto.FieldError{}))
	}
}

// readURL принимает адрес как JSON-строку, как объект {"url": ...} или как
// query-параметр url.
func readURL(c *gin.Context) (string, error) {
	if q := strings.TrimSpace(c.Query("url")); q != "" {
		return q, nil
	}
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 8<<10))
	if err != nil {
		return "", err
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return "", errors.New("empty body")
	}

	var s string
	if body[0] == '"' {
		if err := json.Unmarshal(body, &s); err != nil {
			return "", err
		}
	} else {
		var req dto.URLParseRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return "", err
		}
		s = req.URL
	}
	if s = strings.TrimSpace(s); s == "" {
		return "", errors.New("empty url")
	}
	return s, nil
}
