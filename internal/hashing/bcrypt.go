package hashing

import (
	"errors"
	"fmt"

	"wishlist-service/internal/service"

	"golang.org/x/crypto/bcrypt"
)

// ErrPasswordTooLong: bcrypt учитывает только первые 72 байта.
var ErrPasswordTooLong = fmt.Errorf("%w: password must be at most 72 bytes", service.ErrInvalidArgument)

// Bcrypt реализует service.PasswordHasher.
type Bcrypt struct {
	cost int
}

// NewBcrypt: cost вне [MinCost, MaxCost] заменяется на DefaultCost.
func NewBcrypt(cost int) *Bcrypt {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Bcrypt{cost: cost}
}

func (b *Bcrypt) Hash(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), b.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", ErrPasswordTooLong
	}
	return string(h), err
}

func (b *Bcrypt) Compare(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
