package dto

import (
	"time"

	"wishlist-service/internal/money"
	"wishlist-service/internal/service"

	"github.com/google/uuid"
)

// DateLayout: формат event_date в запросах и ответах.
const DateLayout = "2006-01-02"

type WishlistCreateRequest struct {
	Title       string  `json:"title" binding:"required"`
	Description *string `json:"description"`
	IsPublic    *bool   `json:"is_public"`
	EventDate   *string `json:"event_date"`
}

type WishlistUpdateRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	IsPublic    *bool   `json:"is_public"`
	EventDate   *string `json:"event_date"`
}

// WishlistOwnerResponse: вишлист глазами владельца: без резерваций и вкладов.
type WishlistOwnerResponse struct {
	ID          uuid.UUID           `json:"id"`
	OwnerID     uuid.UUID           `json:"owner_id"`
	Title       string              `json:"title"`
	Description *string             `json:"description"`
	Slug        string              `json:"slug"`
	IsPublic    bool                `json:"is_public"`
	EventDate   *string             `json:"event_date"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
	Items       []ItemOwnerResponse `json:"items"`
}

// WishlistGuestResponse: публичное представление. Email гостей не отдаются.
type WishlistGuestResponse struct {
	ID          uuid.UUID           `json:"id"`
	Title       string              `json:"title"`
	Description *string             `json:"description"`
	Slug        string              `json:"slug"`
	EventDate   *string             `json:"event_date"`
	CreatedAt   time.Time           `json:"created_at"`
	Items       []ItemGuestResponse `json:"items"`
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(DateLayout)
	return &s
}

// ParseDate разбирает event_date; пустая строка означает отсутствие даты.
func ParseDate(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := time.Parse(DateLayout, *s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func NewWishlistOwnerResponse(v *service.WishlistView) WishlistOwnerResponse {
	items := make([]ItemOwnerResponse, 0, len(v.Items))
	for i := range v.Items {
		items = append(items, NewItemOwnerResponse(&v.Items[i].Item))
	}
	return WishlistOwnerResponse{
		ID:          v.ID,
		OwnerID:     v.OwnerID,
		Title:       v.Title,
		Description: v.Description,
		Slug:        v.Slug,
		IsPublic:    v.IsPublic,
		EventDate:   formatDate(v.EventDate),
		CreatedAt:   v.CreatedAt,
		UpdatedAt:   v.UpdatedAt,
		Items:       items,
	}
}

func NewWishlistOwnerList(views []service.WishlistView) []WishlistOwnerResponse {
	out := make([]WishlistOwnerResponse, 0, len(views))
	for i := range views {
		out = append(out, NewWishlistOwnerResponse(&views[i]))
	}
	return out
}

// NewWishlistGuestResponse строит гостевое представление. Если представление
// не детальное (смотрит владелец), списки резерваций и вкладов пустые.
func NewWishlistGuestResponse(v *service.WishlistView) WishlistGuestResponse {
	items := make([]ItemGuestResponse, 0, len(v.Items))
	for i := range v.Items {
		items = append(items, NewItemGuestResponse(&v.Items[i]))
	}
	return WishlistGuestResponse{
		ID:          v.ID,
		Title:       v.Title,
		Description: v.Description,
		Slug:        v.Slug,
		EventDate:   formatDate(v.EventDate),
		CreatedAt:   v.CreatedAt,
		Items:       items,
	}
}

func centsOrNil(c *int64) *float64 {
	return money.FromCentsPtr(c)
}
