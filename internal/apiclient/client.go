package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"wishlist-service/internal/dto"
	"wishlist-service/internal/urlmeta"

	"github.com/google/uuid"
)

const defaultTimeout = 15 * time.Second

// APIError: ответ сервера с кодом не 2xx в формате {code, message}.
type APIError struct {
	Status    int
	Code      string
	Message   string
	Remaining *float64 // только для limit_exceeded
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("api error: status %d", e.Status)
	}
	return fmt.Sprintf("api error: status %d: %s: %s", e.Status, e.Code, e.Message)
}

// IsStatus сообщает, что err: APIError с данным HTTP-статусом.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// Client: типизированный REST-клиент wishlist API. Безопасен для
// конкурентного использования.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// WebSocketURL: адрес канала живых обновлений вишлиста.
func (c *Client) WebSocketURL(wishlistID uuid.UUID) string {
	base := c.baseURL
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + "/api/items/ws/" + wishlistID.String()
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if tok := c.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var body struct {
		Code      string   `json:"code"`
		Message   string   `json:"message"`
		Remaining *float64 `json:"remaining"`
	}
	if json.Unmarshal(raw, &body) == nil {
		apiErr.Code = body.Code
		apiErr.Message = body.Message
		apiErr.Remaining = body.Remaining
	} else {
		apiErr.Message = strings.TrimSpace(string(raw))
	}
	return apiErr
}

// Auth

func (c *Client) Register(ctx context.Context, req dto.RegisterRequest) (*dto.TokenResponse, error) {
	var out dto.TokenResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*dto.TokenResponse, error) {
	var out dto.TokenResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/login/json", dto.LoginRequest{Email: email, Password: password}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Me(ctx context.Context) (*dto.UserResponse, error) {
	var out dto.UserResponse
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Wishlists

func (c *Client) ListWishlists(ctx context.Context) ([]dto.WishlistOwnerResponse, error) {
	var out []dto.WishlistOwnerResponse
	if err := c.do(ctx, http.MethodGet, "/api/wishlists", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateWishlist(ctx context.Context, req dto.WishlistCreateRequest) (*dto.WishlistOwnerResponse, error) {
	var out dto.WishlistOwnerResponse
	if err := c.do(ctx, http.MethodPost, "/api/wishlists", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetWishlist(ctx context.Context, id uuid.UUID) (*dto.WishlistOwnerResponse, error) {
	var out dto.WishlistOwnerResponse
	if err := c.do(ctx, http.MethodGet, "/api/wishlists/"+id.String(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateWishlist(ctx context.Context, id uuid.UUID, req dto.WishlistUpdateRequest) (*dto.WishlistOwnerResponse, error) {
	var out dto.WishlistOwnerResponse
	if err := c.do(ctx, http.MethodPut, "/api/wishlists/"+id.String(), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteWishlist(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/api/wishlists/"+id.String(), nil, nil)
}

func (c *Client) PublicWishlist(ctx context.Context, slug string) (*dto.WishlistGuestResponse, error) {
	var out dto.WishlistGuestResponse
	if err := c.do(ctx, http.MethodGet, "/api/wishlists/public/"+url.PathEscape(slug), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Items

func (c *Client) CreateItem(ctx context.Context, wishlistID uuid.UUID, req dto.ItemCreateRequest) (*dto.ItemOwnerResponse, error) {
	var out dto.ItemOwnerResponse
	if err := c.do(ctx, http.MethodPost, "/api/wishlists/"+wishlistID.String()+"/items", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateItem(ctx context.Context, id uuid.UUID, req dto.ItemUpdateRequest) (*dto.ItemOwnerResponse, error) {
	var out dto.ItemOwnerResponse
	if err := c.do(ctx, http.MethodPut, "/api/items/"+id.String(), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteItem(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/api/items/"+id.String(), nil, nil)
}

func (c *Client) Reserve(ctx context.Context, itemID uuid.UUID, req dto.ReserveRequest) (*dto.ReservationResponse, error) {
	var out dto.ReservationResponse
	if err := c.do(ctx, http.MethodPost, "/api/items/"+itemID.String()+"/reserve", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CancelReservation(ctx context.Context, itemID uuid.UUID, reserverEmail string) error {
	return c.do(ctx, http.MethodDelete, "/api/items/"+itemID.String()+"/reserve",
		dto.CancelReservationRequest{ReserverEmail: reserverEmail}, nil)
}

func (c *Client) Contribute(ctx context.Context, itemID uuid.UUID, req dto.ContributeRequest) (*dto.ContributionResponse, error) {
	var out dto.ContributionResponse
	if err := c.do(ctx, http.MethodPost, "/api/items/"+itemID.String()+"/contribute", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ParseURL отправляет адрес JSON-строкой, как ожидает сервер.
func (c *Client) ParseURL(ctx context.Context, target string) (*urlmeta.Metadata, error) {
	var out urlmeta.Metadata
	if err := c.do(ctx, http.MethodPost, "/api/url/parse", target, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
