package dto

import (
	"time"

	"wishlist-service/internal/models"
	"wishlist-service/internal/money"
	"wishlist-service/internal/service"

	"github.com/google/uuid"
)

type ItemCreateRequest struct {
	Title       string   `json:"title" binding:"required"`
	Description *string  `json:"description"`
	URL         *string  `json:"url" binding:"omitempty,url"`
	ImageURL    *string  `json:"image_url" binding:"omitempty,url"`
	Price       *float64 `json:"price" binding:"omitempty,gt=0"`
	Currency    string   `json:"currency"`
	Priority    int16    `json:"priority" binding:"min=0,max=2"`
	IsPooling   bool     `json:"is_pooling"`
}

type ItemUpdateRequest struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	URL         *string  `json:"url" binding:"omitempty,url"`
	ImageURL    *string  `json:"image_url" binding:"omitempty,url"`
	Price       *float64 `json:"price" binding:"omitempty,gt=0"`
	Currency    *string  `json:"currency"`
	Priority    *int16   `json:"priority" binding:"omitempty,min=0,max=2"`
	IsPooling   *bool    `json:"is_pooling"`
}

func (r ItemCreateRequest) Input() service.ItemInput {
	return service.ItemInput{
		Title:       r.Title,
		Description: r.Description,
		URL:         r.URL,
		ImageURL:    r.ImageURL,
		PriceCents:  toCentsPtr(r.Price),
		Currency:    r.Currency,
		Priority:    models.Priority(r.Priority),
		IsPooling:   r.IsPooling,
	}
}

func (r ItemUpdateRequest) Patch() service.ItemPatch {
	p := service.ItemPatch{
		Title:       r.Title,
		Description: r.Description,
		URL:         r.URL,
		ImageURL:    r.ImageURL,
		PriceCents:  toCentsPtr(r.Price),
		Currency:    r.Currency,
		IsPooling:   r.IsPooling,
	}
	if r.Priority != nil {
		pr := models.Priority(*r.Priority)
		p.Priority = &pr
	}
	return p
}

func toCentsPtr(v *float64) *int64 {
	if v == nil {
		return nil
	}
	c := money.ToCents(*v)
	return &c
}

// ItemOwnerResponse: позиция без деталей резерваций и вкладов.
// Собранная полностью позиция считается зарезервированной.
// TotalContributed заполняется только для позиций со сбором.
type ItemOwnerResponse struct {
	ID               uuid.UUID `json:"id"`
	WishlistID       uuid.UUID `json:"wishlist_id"`
	Title            string    `json:"title"`
	Description      *string   `json:"description"`
	URL              *string   `json:"url"`
	ImageURL         *string   `json:"image_url"`
	Price            *float64  `json:"price"`
	Currency         string    `json:"currency"`
	Priority         int16     `json:"priority"`
	IsPooling        bool      `json:"is_pooling"`
	IsReserved       bool      `json:"is_reserved"`
	IsFunded         bool      `json:"is_funded"`
	TotalContributed *float64  `json:"total_contributed"`
	Version          int64     `json:"version"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type ItemGuestResponse struct {
	ItemOwnerResponse
	Reservations  []ReservationPublic  `json:"reservations"`
	Contributions []ContributionPublic `json:"contributions"`
}

func NewItemOwnerResponse(it *models.Item) ItemOwnerResponse {
	r := ItemOwnerResponse{
		ID:          it.ID,
		WishlistID:  it.WishlistID,
		Title:       it.Title,
		Description: it.Description,
		URL:         it.URL,
		ImageURL:    it.ImageURL,
		Price:       centsOrNil(it.PriceCents),
		Currency:    it.CurrencyCode,
		Priority:    int16(it.Priority),
		IsPooling:   it.IsPooling,
		IsReserved:  it.IsReserved || it.IsFunded(),
		IsFunded:    it.IsFunded(),
		Version:     it.Version,
		CreatedAt:   it.CreatedAt,
		UpdatedAt:   it.UpdatedAt,
	}
	if it.IsPooling {
		total := money.FromCents(it.ContributedCents)
		r.TotalContributed = &total
	}
	return r
}

func NewItemGuestResponse(v *service.ItemView) ItemGuestResponse {
	r := ItemGuestResponse{
		ItemOwnerResponse: NewItemOwnerResponse(&v.Item),
		Reservations:      []ReservationPublic{},
		Contributions:     make([]ContributionPublic, 0, len(v.Contributions)),
	}
	if v.Reservation != nil {
		r.Reservations = append(r.Reservations, NewReservationPublic(v.Reservation))
	}
	for i := range v.Contributions {
		r.Contributions = append(r.Contributions, NewContributionPublic(&v.Contributions[i]))
	}
	return r
}
