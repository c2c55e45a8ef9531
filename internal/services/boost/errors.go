package boost

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/rajivgeraev/bonplan-api/internal/payment"
)

// Ошибки бустов. Ошибки инициации - ошибки вызывающего, ошибки после оплаты требуют сверки.
var (
	ErrInvalidBoostType         = errors.New("неизвестный тип буста")
	ErrUnknownProvider          = errors.New("платёжный провайдер не поддерживается")
	ErrListingNotFound          = errors.New("объявление не найдено")
	ErrNotAuthorized            = errors.New("вы не можете продвигать это объявление")
	ErrMissingProviderRef       = errors.New("не указан идентификатор платежа")
	ErrCorruptedPaymentMetadata = errors.New("метаданные оплаты повреждены, требуется ручная сверка")
	ErrListingVanished          = errors.New("объявление удалено после оплаты, требуется ручная сверка")
)

// httpStatus сопоставляет ошибку с HTTP-кодом и текстом для клиента
func httpStatus(err error) (int, string) {
	switch {
	case errors.Is(err, ErrInvalidBoostType):
		return fiber.StatusBadRequest, ErrInvalidBoostType.Error()
	case errors.Is(err, ErrUnknownProvider):
		return fiber.StatusBadRequest, ErrUnknownProvider.Error()
	case errors.Is(err, ErrMissingProviderRef):
		return fiber.StatusBadRequest, ErrMissingProviderRef.Error()
	case errors.Is(err, ErrNotAuthorized):
		return fiber.StatusForbidden, ErrNotAuthorized.Error()
	case errors.Is(err, ErrListingNotFound):
		return fiber.StatusNotFound, ErrListingNotFound.Error()
	case errors.Is(err, payment.ErrCheckoutNotFound):
		return fiber.StatusNotFound, payment.ErrCheckoutNotFound.Error()
	case errors.Is(err, payment.ErrAlreadyCaptured):
		return fiber.StatusConflict, payment.ErrAlreadyCaptured.Error()
	case errors.Is(err, ErrListingVanished):
		return fiber.StatusGone, ErrListingVanished.Error()
	case errors.Is(err, ErrCorruptedPaymentMetadata):
		return fiber.StatusInternalServerError, ErrCorruptedPaymentMetadata.Error()
	case errors.Is(err, payment.ErrCaptureOutcomeUnknown):
		return fiber.StatusBadGateway, "результат оплаты пока неизвестен, не повторяйте оплату и обратитесь в поддержку"
	case errors.Is(err, payment.ErrProviderUnavailable):
		return fiber.StatusBadGateway, payment.ErrProviderUnavailable.Error()
	case errors.Is(err, payment.ErrLedgerUnavailable):
		return fiber.StatusServiceUnavailable, "сервис временно недоступен, попробуйте позже"
	}
	return fiber.StatusInternalServerError, "внутренняя ошибка сервера"
}
