package models

import (
	"time"

	"github.com/google/uuid"
)

// Статусы модерации объявления
const (
	ListingStatusPending  = "pending"
	ListingStatusApproved = "approved"
	ListingStatusRejected = "rejected"
	ListingStatusSold     = "sold"
)

// Listing представляет объявление в системе
type Listing struct {
	ID          uuid.UUID      `json:"id"`
	UserID      uuid.UUID      `json:"user_id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Category    string         `json:"category"`
	Location    string         `json:"location"`
	PriceCents  int64          `json:"price_cents"`
	Status      string         `json:"status"`
	Boost       Boost          `json:"boost"`
	Images      []ListingImage `json:"images"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`

	// OwnerEmail нужен только для предзаполнения формы оплаты
	OwnerEmail string `json:"-"`
}

// ListingImage представляет изображение объявления
type ListingImage struct {
	ID        uuid.UUID `json:"id"`
	ListingID uuid.UUID `json:"listing_id"`
	URL       string    `json:"url"`
	IsMain    bool      `json:"is_main"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
}

// ForReaders возвращает копию объявления с учётом истечения буста
func (l Listing) ForReaders(now time.Time) Listing {
	l.Boost = l.Boost.Effective(now)
	return l
}
