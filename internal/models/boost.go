package models

import (
	"fmt"
	"time"
)

// BoostType тип платного продвижения объявления
type BoostType string

const (
	BoostNone     BoostType = ""
	BoostVedette  BoostType = "vedette"
	BoostUrgent   BoostType = "urgent"
	BoostRemontee BoostType = "remontee"
)

// BoostDuration срок действия любого буста с момента активации
const BoostDuration = 7 * 24 * time.Hour

// BoostCurrency валюта, в которой выставляются все бусты
const BoostCurrency = "EUR"

// BoostProduct описывает позицию каталога бустов
type BoostProduct struct {
	Type        BoostType     `json:"type"`
	AmountCents int64         `json:"amount_cents"`
	Currency    string        `json:"currency"`
	Duration    time.Duration `json:"-"`
	DisplayName string        `json:"display_name"`
	Description string        `json:"description"`
}

// DurationDays возвращает срок действия в днях
func (p BoostProduct) DurationDays() int {
	return int(p.Duration / (24 * time.Hour))
}

// AmountDecimal возвращает цену в основных единицах валюты, например "1.50"
func (p BoostProduct) AmountDecimal() string {
	return fmt.Sprintf("%d.%02d", p.AmountCents/100, p.AmountCents%100)
}

var boostCatalog = map[BoostType]BoostProduct{
	BoostVedette: {
		Type:        BoostVedette,
		AmountCents: 600,
		Currency:    BoostCurrency,
		Duration:    BoostDuration,
		DisplayName: "Boost Vedette",
		Description: "Mise en avant premium pendant 7 jours",
	},
	BoostUrgent: {
		Type:        BoostUrgent,
		AmountCents: 300,
		Currency:    BoostCurrency,
		Duration:    BoostDuration,
		DisplayName: "Boost Urgent",
		Description: "Badge urgent pendant 7 jours",
	},
	BoostRemontee: {
		Type:        BoostRemontee,
		AmountCents: 150,
		Currency:    BoostCurrency,
		Duration:    BoostDuration,
		DisplayName: "Remontée",
		Description: "Remonter en haut des résultats",
	},
}

// LookupBoost ищет буст в каталоге
func LookupBoost(t BoostType) (BoostProduct, bool) {
	p, ok := boostCatalog[t]
	return p, ok
}

// BoostCatalog возвращает все позиции каталога в порядке убывания цены
func BoostCatalog() []BoostProduct {
	return []BoostProduct{
		boostCatalog[BoostVedette],
		boostCatalog[BoostUrgent],
		boostCatalog[BoostRemontee],
	}
}

// Boost текущее состояние продвижения объявления.
// Записывается только через активацию буста после подтверждённой оплаты.
type Boost struct {
	Type      BoostType  `json:"type,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Active сообщает, действует ли буст в момент now.
// Истёкший буст считается отсутствующим, даже если поля в базе ещё не очищены.
func (b Boost) Active(now time.Time) bool {
	if b.Type == BoostNone || b.ExpiresAt == nil {
		return false
	}
	return b.ExpiresAt.After(now)
}

// Effective возвращает буст в том виде, в каком его должны видеть читатели
func (b Boost) Effective(now time.Time) Boost {
	if !b.Active(now) {
		return Boost{}
	}
	return b
}
