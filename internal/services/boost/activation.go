package boost

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rajivgeraev/bonplan-api/internal/models"
	"github.com/rajivgeraev/bonplan-api/internal/repository"
)

// BoostWriter привилегированная запись буста в хранилище
type BoostWriter interface {
	SetBoost(ctx context.Context, id uuid.UUID, boostType models.BoostType, expiresAt time.Time) error
}

// ActivationRequest команда на активацию буста после подтверждённой оплаты
type ActivationRequest struct {
	ListingID uuid.UUID
	BoostType models.BoostType
	ExpiresAt time.Time
}

// Activator единственный путь записи полей буста
type Activator struct {
	store   BoostWriter
	timeout time.Duration
}

// NewActivator создает активатор бустов
func NewActivator(store BoostWriter) *Activator {
	return &Activator{store: store, timeout: 5 * time.Second}
}

// Activate безусловно перезаписывает буст объявления одним атомарным обновлением
func (a *Activator) Activate(ctx context.Context, req ActivationRequest) error {
	if _, ok := models.LookupBoost(req.BoostType); !ok {
		return ErrInvalidBoostType
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	if err := a.store.SetBoost(ctx, req.ListingID, req.BoostType, req.ExpiresAt); err != nil {
		if errors.Is(err, repository.ErrListingNotFound) {
			return fmt.Errorf("%w: %s", ErrListingVanished, req.ListingID)
		}
		return fmt.Errorf("ошибка активации буста %s: %w", req.ListingID, err)
	}
	return nil
}
