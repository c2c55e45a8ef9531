// Package payment описывает общий контракт платёжных провайдеров
// и метаданные, которые проходят через провайдера от создания оплаты до подтверждения.
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rajivgeraev/bonplan-api/internal/models"
)

// ProviderName дискриминатор провайдера на границе API
type ProviderName string

const (
	ProviderStripe ProviderName = "stripe"
	ProviderPayPal ProviderName = "paypal"
)

// Ключи метаданных. Формат общий для обоих провайдеров.
const (
	MetaListingID = "listingId"
	MetaBoostType = "boostType"
	MetaUserID    = "userId"
)

var (
	ErrProviderUnavailable   = errors.New("платёжный провайдер недоступен")
	ErrCheckoutNotFound      = errors.New("платёжная сессия не найдена")
	ErrAlreadyCaptured       = errors.New("платёж по заказу уже списан")
	ErrCaptureInProgress     = errors.New("списание по заказу уже выполняется")
	ErrCaptureOutcomeUnknown = errors.New("результат списания неизвестен")
	ErrLedgerUnavailable     = errors.New("журнал списаний недоступен")
	ErrInvalidMetadata       = errors.New("некорректные метаданные платежа")
)

// CheckoutRequest параметры создания оплаты
type CheckoutRequest struct {
	AmountCents   int64
	Currency      string
	ProductName   string
	Description   string
	CustomerEmail string
	Metadata      Metadata
}

// Checkout результат создания оплаты у провайдера
type Checkout struct {
	RedirectURL string
	ProviderRef string
}

// Confirmation состояние платежа, как его видит провайдер.
// Metadata содержит сырые метаданные и может быть nil, если провайдер вернул мусор.
type Confirmation struct {
	Completed bool              `json:"completed"`
	Status    string            `json:"status"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Provider платёжный провайдер
type Provider interface {
	Name() ProviderName
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error)
	Confirm(ctx context.Context, providerRef string) (*Confirmation, error)
}

// Metadata корреляционные данные оплаты
type Metadata struct {
	ListingID uuid.UUID
	BoostType models.BoostType
	UserID    uuid.UUID
}

// Map возвращает метаданные в виде плоского словаря
func (m Metadata) Map() map[string]string {
	out := map[string]string{
		MetaListingID: m.ListingID.String(),
		MetaBoostType: string(m.BoostType),
	}
	if m.UserID != uuid.Nil {
		out[MetaUserID] = m.UserID.String()
	}
	return out
}

// JSON сериализует метаданные в плоский JSON-объект
func (m Metadata) JSON() (string, error) {
	b, err := json.Marshal(m.Map())
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ParseMetadata восстанавливает метаданные, вернувшиеся от провайдера
func ParseMetadata(raw map[string]string) (Metadata, error) {
	var m Metadata
	if len(raw) == 0 {
		return m, fmt.Errorf("%w: метаданные отсутствуют", ErrInvalidMetadata)
	}

	listingID, err := uuid.Parse(raw[MetaListingID])
	if err != nil {
		return m, fmt.Errorf("%w: %s=%q", ErrInvalidMetadata, MetaListingID, raw[MetaListingID])
	}

	boostType := models.BoostType(raw[MetaBoostType])
	if _, ok := models.LookupBoost(boostType); !ok {
		return m, fmt.Errorf("%w: %s=%q", ErrInvalidMetadata, MetaBoostType, raw[MetaBoostType])
	}

	m.ListingID = listingID
	m.BoostType = boostType

	if v, ok := raw[MetaUserID]; ok && v != "" {
		userID, err := uuid.Parse(v)
		if err != nil {
			return Metadata{}, fmt.Errorf("%w: %s=%q", ErrInvalidMetadata, MetaUserID, v)
		}
		m.UserID = userID
	}

	return m, nil
}

// DecodeMetadataJSON разбирает метаданные, переданные провайдеру как JSON-строка.
// Возвращает nil, если строка не является плоским JSON-объектом.
func DecodeMetadataJSON(s string) map[string]string {
	if s == "" {
		return nil
	}
	var out map[string]string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil
	}
	return out
}

// Registry набор подключенных провайдеров
type Registry map[ProviderName]Provider

// NewRegistry собирает реестр из переданных провайдеров
func NewRegistry(providers ...Provider) Registry {
	r := make(Registry, len(providers))
	for _, p := range providers {
		r[p.Name()] = p
	}
	return r
}

// Get возвращает провайдера по имени
func (r Registry) Get(name ProviderName) (Provider, bool) {
	p, ok := r[name]
	return p, ok
}
