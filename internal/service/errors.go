package service

import (
	"errors"
	"fmt"

	"wishlist-service/internal/money"
)

// Категории ошибок; конкретные ошибки оборачивают одну из них через %w.
var (
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrInvalidState    = errors.New("invalid state")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrLimitExceeded   = errors.New("limit exceeded")
)

var (
	ErrInvalidCredentials = fmt.Errorf("%w: invalid email or password", ErrUnauthorized)
	ErrUserInactive       = fmt.Errorf("%w: user is inactive", ErrUnauthorized)
	ErrEmailTaken         = fmt.Errorf("%w: email already registered", ErrConflict)
	ErrUsernameTaken      = fmt.Errorf("%w: username already taken", ErrConflict)

	ErrWishlistNotFound    = fmt.Errorf("%w: wishlist not found", ErrNotFound)
	ErrItemNotFound        = fmt.Errorf("%w: item not found", ErrNotFound)
	ErrReservationNotFound = fmt.Errorf("%w: reservation not found", ErrNotFound)
	ErrUserNotFound        = fmt.Errorf("%w: user not found", ErrNotFound)

	ErrAlreadyReserved = fmt.Errorf("%w: item already reserved", ErrConflict)
	ErrNotReserver     = fmt.Errorf("%w: only the reserver or the owner can cancel", ErrForbidden)

	ErrItemIsPooling         = fmt.Errorf("%w: item is a group gift, contribute instead", ErrInvalidState)
	ErrItemNotPooling        = fmt.Errorf("%w: item does not accept contributions", ErrInvalidState)
	ErrItemHasNoPrice        = fmt.Errorf("%w: item has no price", ErrInvalidState)
	ErrItemHasContributions  = fmt.Errorf("%w: cannot delete item with contributions", ErrInvalidState)
	ErrPoolingLocked         = fmt.Errorf("%w: cannot change pooling mode of a reserved or funded item", ErrInvalidState)
	ErrPriceBelowContributed = fmt.Errorf("%w: price is below the amount already contributed", ErrInvalidState)

	ErrTitleRequired     = fmt.Errorf("%w: title is required", ErrInvalidArgument)
	ErrNameRequired      = fmt.Errorf("%w: name is required", ErrInvalidArgument)
	ErrAmountNotPositive = fmt.Errorf("%w: amount must be > 0", ErrInvalidArgument)
	ErrPriceNotPositive  = fmt.Errorf("%w: price must be > 0", ErrInvalidArgument)
	ErrPoolingNeedsPrice = fmt.Errorf("%w: pooling requires a positive price", ErrInvalidArgument)
	ErrInvalidPriority   = fmt.Errorf("%w: priority must be 0, 1 or 2", ErrInvalidArgument)
	ErrInvalidCurrency   = fmt.Errorf("%w: currency must be a 3-letter code", ErrInvalidArgument)
	ErrWeakPassword      = fmt.Errorf("%w: password must be at least 6 characters", ErrInvalidArgument)
	ErrUsernameRequired  = fmt.Errorf("%w: username is required", ErrInvalidArgument)

	ErrSlugExhausted = errors.New("could not generate a unique slug")
)

// LimitExceededError: вклад больше остатка до полной стоимости.
type LimitExceededError struct {
	RemainingCents int64
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("limit exceeded: contribution exceeds the remaining amount %.2f", money.FromCents(e.RemainingCents))
}

func (e *LimitExceededError) Is(target error) bool {
	return target == ErrLimitExceeded
}
