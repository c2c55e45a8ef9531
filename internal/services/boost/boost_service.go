package boost

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3/log"
	"github.com/google/uuid"
	"github.com/rajivgeraev/bonplan-api/internal/kafka"
	"github.com/rajivgeraev/bonplan-api/internal/models"
	"github.com/rajivgeraev/bonplan-api/internal/payment"
	"github.com/rajivgeraev/bonplan-api/internal/repository"
)

// ListingReader чтение объявлений для проверки владельца
type ListingReader interface {
	GetListing(ctx context.Context, id uuid.UUID) (*models.Listing, error)
}

// EventPublisher отправка событий о бустах
type EventPublisher interface {
	Publish(ctx context.Context, topic, key string, payload interface{}) error
}

// BoostService покупка и активация бустов
type BoostService struct {
	listings        ListingReader
	activator       *Activator
	providers       payment.Registry
	reconciliations repository.ReconciliationRepository
	events          EventPublisher
	topic           string
	now             func() time.Time
	validate        *validator.Validate
}

// Option настройка BoostService
type Option func(*BoostService)

// WithEvents включает публикацию событий в topic
func WithEvents(events EventPublisher, topic string) Option {
	return func(s *BoostService) {
		s.events = events
		s.topic = topic
	}
}

// WithClock подменяет источник текущего времени
func WithClock(now func() time.Time) Option {
	return func(s *BoostService) {
		s.now = now
	}
}

// NewBoostService создает сервис бустов
func NewBoostService(
	listings repository.ListingRepository,
	providers payment.Registry,
	reconciliations repository.ReconciliationRepository,
	opts ...Option,
) *BoostService {
	s := &BoostService{
		listings:        listings,
		activator:       NewActivator(listings),
		providers:       providers,
		reconciliations: reconciliations,
		now:             time.Now,
		validate:        validator.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// InitiateRequest запрос на покупку буста
type InitiateRequest struct {
	ListingID uuid.UUID
	BoostType models.BoostType
	Provider  payment.ProviderName
	UserID    uuid.UUID
}

// InitiateResult ссылка на оплату у провайдера
type InitiateResult struct {
	RedirectURL string `json:"redirect_url"`
	ProviderRef string `json:"provider_ref"`
}

// ConfirmResult итог подтверждения оплаты
type ConfirmResult struct {
	Success   bool             `json:"success"`
	BoostType models.BoostType `json:"boost_type,omitempty"`
	ExpiresAt *time.Time       `json:"expires_at,omitempty"`
	// Processing оплата подтверждается параллельным запросом, результат будет позже
	Processing bool `json:"processing,omitempty"`
}

// Initiate проверяет запрос и создает оплату у провайдера. Объявление не изменяется.
func (s *BoostService) Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error) {
	product, ok := models.LookupBoost(req.BoostType)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBoostType, req.BoostType)
	}

	provider, ok := s.providers.Get(req.Provider)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, req.Provider)
	}

	listing, err := s.listings.GetListing(ctx, req.ListingID)
	if err != nil {
		if errors.Is(err, repository.ErrListingNotFound) {
			return nil, ErrListingNotFound
		}
		return nil, fmt.Errorf("ошибка получения объявления: %w", err)
	}

	if listing.UserID != req.UserID {
		log.Warnf("Пользователь %s пытается продвинуть чужое объявление %s", req.UserID, req.ListingID)
		return nil, ErrNotAuthorized
	}

	checkout, err := provider.CreateCheckout(ctx, payment.CheckoutRequest{
		AmountCents:   product.AmountCents,
		Currency:      product.Currency,
		ProductName:   product.DisplayName,
		Description:   fmt.Sprintf("%s pour: %s", product.DisplayName, listing.Title),
		CustomerEmail: listing.OwnerEmail,
		Metadata: payment.Metadata{
			ListingID: listing.ID,
			BoostType: product.Type,
			UserID:    req.UserID,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка создания оплаты %s: %w", req.Provider, err)
	}

	log.Infof("Создана оплата %s %s: буст %s для объявления %s", req.Provider, checkout.ProviderRef, product.Type, listing.ID)

	return &InitiateResult{
		RedirectURL: checkout.RedirectURL,
		ProviderRef: checkout.ProviderRef,
	}, nil
}

// Confirm проверяет оплату у провайдера и активирует оплаченный буст.
// Незавершённая оплата не является ошибкой и ничего не меняет.
func (s *BoostService) Confirm(ctx context.Context, providerName payment.ProviderName, providerRef string) (*ConfirmResult, error) {
	provider, ok := s.providers.Get(providerName)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, providerName)
	}

	providerRef = strings.TrimSpace(providerRef)
	if providerRef == "" {
		return nil, ErrMissingProviderRef
	}

	confirmation, err := provider.Confirm(ctx, providerRef)
	if errors.Is(err, payment.ErrCaptureInProgress) {
		// Повторная отправка формы, пока первый запрос списывает оплату
		log.Infof("Оплата %s %s уже подтверждается другим запросом", providerName, providerRef)
		return &ConfirmResult{Success: false, Processing: true}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка подтверждения оплаты %s %s: %w", providerName, providerRef, err)
	}

	if !confirmation.Completed {
		log.Infof("Оплата %s %s не завершена (статус %s)", providerName, providerRef, confirmation.Status)
		return &ConfirmResult{Success: false}, nil
	}

	meta, err := payment.ParseMetadata(confirmation.Metadata)
	if err != nil {
		s.reconcile(ctx, repository.Reconciliation{
			Provider:    string(providerName),
			ProviderRef: providerRef,
			Reason:      repository.ReasonCorruptedMetadata,
			Details:     err.Error(),
			Metadata:    confirmation.Metadata,
		})
		return nil, fmt.Errorf("%w: %v", ErrCorruptedPaymentMetadata, err)
	}

	expiresAt := s.now().UTC().Add(models.BoostDuration)

	err = s.activator.Activate(ctx, ActivationRequest{
		ListingID: meta.ListingID,
		BoostType: meta.BoostType,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		reason := repository.ReasonActivationFailed
		if errors.Is(err, ErrListingVanished) {
			reason = repository.ReasonListingVanished
		}
		s.reconcile(ctx, repository.Reconciliation{
			Provider:    string(providerName),
			ProviderRef: providerRef,
			ListingID:   meta.ListingID,
			BoostType:   meta.BoostType,
			Reason:      reason,
			Details:     err.Error(),
			Metadata:    confirmation.Metadata,
		})
		return nil, err
	}

	log.Infof("✅ Буст %s активирован для объявления %s до %s (%s %s)",
		meta.BoostType, meta.ListingID, expiresAt.Format(time.RFC3339), providerName, providerRef)

	s.publish(ctx, meta.ListingID.String(), kafka.BoostEvent{
		Type:        kafka.EventBoostActivated,
		ListingID:   meta.ListingID.String(),
		BoostType:   string(meta.BoostType),
		Provider:    string(providerName),
		ProviderRef: providerRef,
		ExpiresAt:   &expiresAt,
		OccurredAt:  s.now().UTC(),
	})

	return &ConfirmResult{
		Success:   true,
		BoostType: meta.BoostType,
		ExpiresAt: &expiresAt,
	}, nil
}

// reconcile фиксирует оплаченную, но не отражённую транзакцию.
// Запись не должна теряться при отмене запроса клиентом.
func (s *BoostService) reconcile(ctx context.Context, rec repository.Reconciliation) {
	log.Errorf("❌ Требуется сверка: %s %s, объявление %s, причина %s: %s",
		rec.Provider, rec.ProviderRef, rec.ListingID, rec.Reason, rec.Details)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if s.reconciliations != nil {
		if err := s.reconciliations.Record(ctx, rec); err != nil {
			log.Errorf("❌ Не удалось записать сверку %s %s (метаданные %v): %v", rec.Provider, rec.ProviderRef, rec.Metadata, err)
		}
	}

	event := kafka.BoostEvent{
		Type:        kafka.EventReconciliationRequired,
		BoostType:   string(rec.BoostType),
		Provider:    rec.Provider,
		ProviderRef: rec.ProviderRef,
		Reason:      rec.Reason,
		OccurredAt:  s.now().UTC(),
	}
	key := rec.ProviderRef
	if rec.ListingID != uuid.Nil {
		event.ListingID = rec.ListingID.String()
		key = event.ListingID
	}
	s.publish(ctx, key, event)
}

func (s *BoostService) publish(ctx context.Context, key string, event kafka.BoostEvent) {
	if s.events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()

	if err := s.events.Publish(ctx, s.topic, key, event); err != nil {
		log.Warnf("Не удалось отправить событие %s для %s: %v", event.Type, key, err)
	}
}
