package boost

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/log"
	"github.com/google/uuid"
	"github.com/rajivgeraev/bonplan-api/internal/middleware"
	"github.com/rajivgeraev/bonplan-api/internal/models"
	"github.com/rajivgeraev/bonplan-api/internal/payment"
)

// Покрывает авторизацию у провайдера и создание оплаты
const requestTimeout = 30 * time.Second

type initiateBoostRequest struct {
	ListingID string `json:"listing_id" validate:"required,uuid"`
	BoostType string `json:"boost_type" validate:"required"`
	Provider  string `json:"provider" validate:"required"`
}

type confirmBoostRequest struct {
	Provider    string `json:"provider" validate:"required"`
	ProviderRef string `json:"provider_ref" validate:"required"`
}

type catalogItem struct {
	Type         models.BoostType `json:"type"`
	DisplayName  string           `json:"display_name"`
	Description  string           `json:"description"`
	AmountCents  int64            `json:"amount_cents"`
	Price        string           `json:"price"`
	Currency     string           `json:"currency"`
	DurationDays int              `json:"duration_days"`
}

// GetCatalog возвращает доступные бусты и их цены
func (s *BoostService) GetCatalog(c fiber.Ctx) error {
	catalog := models.BoostCatalog()
	items := make([]catalogItem, 0, len(catalog))
	for _, p := range catalog {
		items = append(items, catalogItem{
			Type:         p.Type,
			DisplayName:  p.DisplayName,
			Description:  p.Description,
			AmountCents:  p.AmountCents,
			Price:        p.AmountDecimal(),
			Currency:     p.Currency,
			DurationDays: p.DurationDays(),
		})
	}
	return c.JSON(fiber.Map{"boosts": items})
}

// InitiateBoost создает оплату буста для объявления текущего пользователя
func (s *BoostService) InitiateBoost(c fiber.Ctx) error {
	userIDStr, _ := c.Locals(middleware.LocalsUserID).(string)
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Пользователь не авторизован"})
	}

	var req initiateBoostRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}
	if err := s.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Некорректные параметры запроса",
			"details": validationDetails(err),
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	result, err := s.Initiate(ctx, InitiateRequest{
		ListingID: uuid.MustParse(req.ListingID),
		BoostType: models.BoostType(req.BoostType),
		Provider:  payment.ProviderName(req.Provider),
		UserID:    userID,
	})
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"success":      true,
		"redirect_url": result.RedirectURL,
		"provider_ref": result.ProviderRef,
	})
}

// ConfirmBoost подтверждает оплату после возврата пользователя от провайдера
func (s *BoostService) ConfirmBoost(c fiber.Ctx) error {
	var req confirmBoostRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат данных"})
	}
	if err := s.validate.Struct(req); err != nil {
		if req.Provider != "" {
			return errorResponse(c, ErrMissingProviderRef)
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Некорректные параметры запроса",
			"details": validationDetails(err),
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	result, err := s.Confirm(ctx, payment.ProviderName(req.Provider), req.ProviderRef)
	if err != nil {
		return errorResponse(c, err)
	}

	if !result.Success {
		message := "Оплата ещё не завершена"
		if result.Processing {
			message = "Оплата обрабатывается, обновите страницу через несколько секунд"
		}
		return c.JSON(fiber.Map{
			"success": false,
			"message": message,
		})
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"boost_type": result.BoostType,
		"expires_at": result.ExpiresAt,
	})
}

func errorResponse(c fiber.Ctx, err error) error {
	status, message := httpStatus(err)
	if status >= fiber.StatusInternalServerError {
		log.Errorf("Ошибка %s %s: %v", c.Method(), c.Path(), err)
	}
	return c.Status(status).JSON(fiber.Map{"error": message})
}

func validationDetails(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	details := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, fe.Field()+": "+fe.Tag())
	}
	return details
}
