package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rajivgeraev/bonplan-api/internal/models"
)

// Причины ручной сверки оплаченного буста
const (
	ReasonCorruptedMetadata = "corrupted_metadata"
	ReasonListingVanished   = "listing_vanished"
	ReasonActivationFailed  = "activation_failed"
)

// Reconciliation оплаченная транзакция, которую не удалось отразить в объявлении
type Reconciliation struct {
	Provider    string
	ProviderRef string
	ListingID   uuid.UUID
	BoostType   models.BoostType
	Reason      string
	Details     string
	Metadata    map[string]string
}

// ReconciliationRepository журнал транзакций для ручной сверки
type ReconciliationRepository interface {
	Record(ctx context.Context, rec Reconciliation) error
}

// PGReconciliationRepository реализация на PostgreSQL
type PGReconciliationRepository struct {
	db Querier
}

var _ ReconciliationRepository = (*PGReconciliationRepository)(nil)

// NewReconciliationRepository создает журнал сверки
func NewReconciliationRepository(db Querier) *PGReconciliationRepository {
	return &PGReconciliationRepository{db: db}
}

func (r *PGReconciliationRepository) Record(ctx context.Context, rec Reconciliation) error {
	var metadata []byte
	if rec.Metadata != nil {
		var err error
		if metadata, err = json.Marshal(rec.Metadata); err != nil {
			return err
		}
	}

	var listingID *uuid.UUID
	if rec.ListingID != uuid.Nil {
		listingID = &rec.ListingID
	}
	var boostType *string
	if rec.BoostType != models.BoostNone {
		s := string(rec.BoostType)
		boostType = &s
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO boost_reconciliations (provider, provider_ref, listing_id, boost_type, reason, details, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, rec.Provider, rec.ProviderRef, listingID, boostType, rec.Reason, rec.Details, metadata)
	if err != nil {
		return fmt.Errorf("ошибка записи в журнал сверки: %w", err)
	}
	return nil
}
