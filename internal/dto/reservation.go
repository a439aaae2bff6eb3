package dto

import (
	"time"

	"wishlist-service/internal/models"
	"wishlist-service/internal/money"
	"wishlist-service/internal/service"

	"github.com/google/uuid"
)

type ReserveRequest struct {
	ReserverName  string  `json:"reserver_name" binding:"required"`
	ReserverEmail *string `json:"reserver_email" binding:"omitempty,email"`
	Message       *string `json:"message"`
}

func (r ReserveRequest) Input() service.ReserveInput {
	return service.ReserveInput{Name: r.ReserverName, Email: r.ReserverEmail, Message: r.Message}
}

type CancelReservationRequest struct {
	ReserverEmail string `json:"reserver_email"`
}

type ContributeRequest struct {
	ContributorName  string  `json:"contributor_name" binding:"required"`
	ContributorEmail *string `json:"contributor_email" binding:"omitempty,email"`
	Amount           float64 `json:"amount" binding:"required,gt=0"`
	Message          *string `json:"message"`
}

func (r ContributeRequest) Input() service.ContributeInput {
	return service.ContributeInput{
		Name:        r.ContributorName,
		Email:       r.ContributorEmail,
		AmountCents: money.ToCents(r.Amount),
		Message:     r.Message,
	}
}

// ReservationResponse возвращается самому гостю после резерва.
type ReservationResponse struct {
	ID            uuid.UUID `json:"id"`
	ItemID        uuid.UUID `json:"item_id"`
	ReserverName  string    `json:"reserver_name"`
	ReserverEmail *string   `json:"reserver_email"`
	Message       *string   `json:"message"`
	CreatedAt     time.Time `json:"created_at"`
}

// ReservationPublic: резервация в публичном представлении, без email.
type ReservationPublic struct {
	ID           uuid.UUID `json:"id"`
	ItemID       uuid.UUID `json:"item_id"`
	ReserverName string    `json:"reserver_name"`
	Message      *string   `json:"message"`
	CreatedAt    time.Time `json:"created_at"`
}

type ContributionResponse struct {
	ID               uuid.UUID `json:"id"`
	ItemID           uuid.UUID `json:"item_id"`
	ContributorName  string    `json:"contributor_name"`
	ContributorEmail *string   `json:"contributor_email"`
	Amount           float64   `json:"amount"`
	Message          *string   `json:"message"`
	CreatedAt        time.Time `json:"created_at"`
}

type ContributionPublic struct {
	ID              uuid.UUID `json:"id"`
	ItemID          uuid.UUID `json:"item_id"`
	ContributorName string    `json:"contributor_name"`
	Amount          float64   `json:"amount"`
	Message         *string   `json:"message"`
	CreatedAt       time.Time `json:"created_at"`
}

func NewReservationResponse(r *models.Reservation) ReservationResponse {
	return ReservationResponse{
		ID:            r.ID,
		ItemID:        r.ItemID,
		ReserverName:  r.ReserverName,
		ReserverEmail: r.ReserverEmail,
		Message:       r.Message,
		CreatedAt:     r.CreatedAt,
	}
}

func NewReservationPublic(r *models.Reservation) ReservationPublic {
	return ReservationPublic{
		ID:           r.ID,
		ItemID:       r.ItemID,
		ReserverName: r.ReserverName,
		Message:      r.Message,
		CreatedAt:    r.CreatedAt,
	}
}

func NewContributionResponse(c *models.Contribution) ContributionResponse {
	return ContributionResponse{
		ID:               c.ID,
		ItemID:           c.ItemID,
		ContributorName:  c.ContributorName,
		ContributorEmail: c.ContributorEmail,
		Amount:           money.FromCents(c.AmountCents),
		Message:          c.Message,
		CreatedAt:        c.CreatedAt,
	}
}

func NewContributionPublic(c *models.Contribution) ContributionPublic {
	return ContributionPublic{
		ID:              c.ID,
		ItemID:          c.ItemID,
		ContributorName: c.ContributorName,
		Amount:          money.FromCents(c.AmountCents),
		Message:         c.Message,
		CreatedAt:       c.CreatedAt,
	}
}

type SuccessResponse struct {
	Message string `json:"message"`
}

func NewSuccessResponse(msg string) SuccessResponse {
	return SuccessResponse{Message: msg}
}

type URLParseRequest struct {
	URL string `json:"url"`
}
