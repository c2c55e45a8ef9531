package boost

import (
	"github.com/gofiber/fiber/v3"
)

// SetupRoutes регистрирует маршруты бустов
func (s *BoostService) SetupRoutes(app *fiber.App, authMiddleware fiber.Handler) {
	api := app.Group("/api/boost")

	// Публичные маршруты
	api.Get("/catalog", s.GetCatalog)

	// Подтверждение вызывается со страницы возврата от провайдера
	api.Post("/confirm", s.ConfirmBoost)

	// Покупка буста только для владельца объявления.
	// В fiber v3 middleware из хвоста аргументов выполняются до обработчика.
	api.Post("/initiate", s.InitiateBoost, authMiddleware)
}
