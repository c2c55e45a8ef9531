package listing

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/log"
	"github.com/google/uuid"
	"github.com/rajivgeraev/bonplan-api/internal/db"
	"github.com/rajivgeraev/bonplan-api/internal/middleware"
	"github.com/rajivgeraev/bonplan-api/internal/models"
	"github.com/rajivgeraev/bonplan-api/internal/repository"
)

const (
	defaultLimit = 20
	maxLimit     = 50
)

// ListingReader чтение одного объявления
type ListingReader interface {
	GetListing(ctx context.Context, id uuid.UUID) (*models.Listing, error)
}

// ListingService представляет сервис для чтения объявлений
type ListingService struct {
	listings ListingReader
	queries  repository.ListingQueries
	now      func() time.Time
}

// NewListingService создает новый экземпляр ListingService
func NewListingService(listings ListingReader, queries repository.ListingQueries) *ListingService {
	return &ListingService{
		listings: listings,
		queries:  queries,
		now:      time.Now,
	}
}

// GetPublicListings возвращает ленту одобренных объявлений, продвинутые первыми
func (s *ListingService) GetPublicListings(c fiber.Ctx) error {
	limit, err := strconv.Atoi(c.Query("limit", strconv.Itoa(defaultLimit)))
	if err != nil || limit <= 0 || limit > maxLimit {
		limit = defaultLimit
	}
	offset, err := strconv.Atoi(c.Query("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	boostType := models.BoostType(c.Query("boost"))
	if boostType != models.BoostNone {
		if _, ok := models.LookupBoost(boostType); !ok {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неизвестный тип буста"})
		}
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	listings, err := s.queries.ListPublic(ctx, repository.ListingFilter{
		Boost:    boostType,
		Category: c.Query("category"),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		log.Errorf("Ошибка запроса объявлений: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения объявлений"})
	}

	listings = s.prepare(ctx, listings)

	return c.JSON(fiber.Map{
		"listings": listings,
		"pagination": fiber.Map{
			"limit":  limit,
			"offset": offset,
			"count":  len(listings),
		},
	})
}

// GetListing возвращает одобренное объявление по ID
func (s *ListingService) GetListing(c fiber.Ctx) error {
	listingID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Неверный формат ID объявления"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	listing, err := s.listings.GetListing(ctx, listingID)
	if err != nil {
		if errors.Is(err, repository.ErrListingNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Объявление не найдено"})
		}
		log.Errorf("Ошибка получения объявления %s: %v", listingID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения объявления"})
	}

	if listing.Status != models.ListingStatusApproved {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Объявление не найдено"})
	}

	prepared := s.prepare(ctx, []models.Listing{*listing})
	return c.JSON(fiber.Map{"listing": prepared[0]})
}

// GetMyListings возвращает объявления текущего пользователя с учётом истечения бустов
func (s *ListingService) GetMyListings(c fiber.Ctx) error {
	userIDStr, _ := c.Locals(middleware.LocalsUserID).(string)
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Пользователь не авторизован"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	listings, err := s.queries.ListByOwner(ctx, userID)
	if err != nil {
		log.Errorf("Ошибка запроса объявлений пользователя %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Ошибка получения объявлений"})
	}

	return c.JSON(fiber.Map{"listings": s.prepare(ctx, listings)})
}

// prepare скрывает истёкшие бусты и подгружает изображения.
// Без изображений объявление всё равно отдаётся.
func (s *ListingService) prepare(ctx context.Context, listings []models.Listing) []models.Listing {
	now := s.now()

	ids := make([]uuid.UUID, 0, len(listings))
	for _, l := range listings {
		ids = append(ids, l.ID)
	}

	images, err := s.queries.ListImages(ctx, ids)
	if err != nil {
		log.Warnf("Ошибка запроса изображений: %v", err)
	}

	out := make([]models.Listing, 0, len(listings))
	for _, l := range listings {
		l = l.ForReaders(now)
		l.Images = images[l.ID]
		if l.Images == nil {
			l.Images = []models.ListingImage{}
		}
		out = append(out, l)
	}
	return out
}
