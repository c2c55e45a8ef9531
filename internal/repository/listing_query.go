package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rajivgeraev/bonplan-api/internal/models"
)

// RowsQuerier выполнение запросов, возвращающих несколько строк
type RowsQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// ListingFilter параметры публичной ленты
type ListingFilter struct {
	Boost    models.BoostType
	Category string
	Limit    int
	Offset   int
}

// ListingQueries чтение объявлений для ленты и кабинета
type ListingQueries interface {
	ListPublic(ctx context.Context, f ListingFilter) ([]models.Listing, error)
	ListByOwner(ctx context.Context, userID uuid.UUID) ([]models.Listing, error)
	ListImages(ctx context.Context, listingIDs []uuid.UUID) (map[uuid.UUID][]models.ListingImage, error)
}

// PGListingQueries реализация на PostgreSQL
type PGListingQueries struct {
	db RowsQuerier
}

var _ ListingQueries = (*PGListingQueries)(nil)

// NewListingQueries создает запросы к объявлениям
func NewListingQueries(db RowsQuerier) *PGListingQueries {
	return &PGListingQueries{db: db}
}

const listingColumns = `
	l.id, l.user_id, l.title, l.description, l.category, l.location, l.price_cents, l.status,
	l.boost, l.boost_expires_at, l.created_at, l.updated_at`

// Действующие бусты идут первыми: vedette, urgent, remontee, затем остальные
const boostOrder = `
	CASE WHEN l.boost_expires_at > NOW() THEN
		CASE l.boost WHEN 'vedette' THEN 0 WHEN 'urgent' THEN 1 WHEN 'remontee' THEN 2 END
	ELSE 3 END`

// ListPublic возвращает одобренные объявления, продвинутые первыми.
// Фильтр по бусту учитывает только действующие бусты.
func (q *PGListingQueries) ListPublic(ctx context.Context, f ListingFilter) ([]models.Listing, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+listingColumns+`
		FROM listings l
		WHERE l.status = 'approved'
		  AND ($1 = '' OR (l.boost = $1 AND l.boost_expires_at > NOW()))
		  AND ($2 = '' OR l.category = $2)
		ORDER BY `+boostOrder+`, l.created_at DESC
		LIMIT $3 OFFSET $4
	`, string(f.Boost), f.Category, f.Limit, f.Offset)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса объявлений: %w", err)
	}
	return collectListings(rows)
}

// ListByOwner возвращает все объявления пользователя, новые первыми
func (q *PGListingQueries) ListByOwner(ctx context.Context, userID uuid.UUID) ([]models.Listing, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+listingColumns+`
		FROM listings l
		WHERE l.user_id = $1
		ORDER BY l.created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса объявлений пользователя: %w", err)
	}
	return collectListings(rows)
}

// ListImages загружает изображения сразу для нескольких объявлений
func (q *PGListingQueries) ListImages(ctx context.Context, listingIDs []uuid.UUID) (map[uuid.UUID][]models.ListingImage, error) {
	out := make(map[uuid.UUID][]models.ListingImage, len(listingIDs))
	if len(listingIDs) == 0 {
		return out, nil
	}

	rows, err := q.db.Query(ctx, `
		SELECT id, listing_id, url, is_main, position, created_at
		FROM listing_images
		WHERE listing_id = ANY($1)
		ORDER BY listing_id, position ASC
	`, listingIDs)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса изображений: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var img models.ListingImage
		if err := rows.Scan(&img.ID, &img.ListingID, &img.URL, &img.IsMain, &img.Position, &img.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования изображения: %w", err)
		}
		out[img.ListingID] = append(out[img.ListingID], img)
	}
	return out, rows.Err()
}

func collectListings(rows pgx.Rows) ([]models.Listing, error) {
	defer rows.Close()

	listings := make([]models.Listing, 0)
	for rows.Next() {
		var (
			l         models.Listing
			boost     pgtype.Text
			expiresAt *time.Time
		)
		if err := rows.Scan(
			&l.ID, &l.UserID, &l.Title, &l.Description, &l.Category, &l.Location, &l.PriceCents, &l.Status,
			&boost, &expiresAt, &l.CreatedAt, &l.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования объявления: %w", err)
		}
		l.Boost = models.Boost{Type: models.BoostType(boost.String), ExpiresAt: expiresAt}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}
