package listing

import (
	"github.com/gofiber/fiber/v3"
)

// SetupRoutes настраивает маршруты для API объявлений
func (s *ListingService) SetupRoutes(app *fiber.App, authMiddleware fiber.Handler) {
	api := app.Group("/api/listings")

	// Публичная лента
	api.Get("/", s.GetPublicListings)

	// Объявления текущего пользователя, до маршрута с параметром
	api.Get("/my", s.GetMyListings, authMiddleware)

	// Маршрут для получения одного объявления по ID
	api.Get("/:id", s.GetListing)
}
