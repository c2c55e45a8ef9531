package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rajivgeraev/bonplan-api/internal/models"
)

// ErrListingNotFound объявление не существует
var ErrListingNotFound = errors.New("объявление не найдено")

// Querier общий интерфейс pgxpool.Pool, pgx.Conn и pgx.Tx
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// ListingRepository чтение объявлений и запись состояния буста
type ListingRepository interface {
	GetListing(ctx context.Context, id uuid.UUID) (*models.Listing, error)
	SetBoost(ctx context.Context, id uuid.UUID, boostType models.BoostType, expiresAt time.Time) error
}

// PGListingRepository реализация на PostgreSQL.
// SetBoost выполняется через admin_set_boost на отдельном подключении с повышенными правами.
type PGListingRepository struct {
	db    Querier
	admin Querier
}

var _ ListingRepository = (*PGListingRepository)(nil)

// NewListingRepository создает репозиторий объявлений
func NewListingRepository(db, admin Querier) *PGListingRepository {
	return &PGListingRepository{db: db, admin: admin}
}

func (r *PGListingRepository) GetListing(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	var (
		l          models.Listing
		boost      pgtype.Text
		expiresAt  *time.Time
		ownerEmail pgtype.Text
	)

	err := r.db.QueryRow(ctx, `
		SELECT l.id, l.user_id, l.title, l.description, l.category, l.location, l.price_cents, l.status,
			   l.boost, l.boost_expires_at, l.created_at, l.updated_at, u.email
		FROM listings l
		LEFT JOIN users u ON u.id = l.user_id
		WHERE l.id = $1
	`, id).Scan(
		&l.ID, &l.UserID, &l.Title, &l.Description, &l.Category, &l.Location, &l.PriceCents, &l.Status,
		&boost, &expiresAt, &l.CreatedAt, &l.UpdatedAt, &ownerEmail,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrListingNotFound
		}
		return nil, fmt.Errorf("ошибка получения объявления %s: %w", id, err)
	}

	l.Boost = models.Boost{Type: models.BoostType(boost.String), ExpiresAt: expiresAt}
	l.OwnerEmail = ownerEmail.String
	return &l, nil
}

// SetBoost перезаписывает буст одним атомарным UPDATE внутри admin_set_boost
func (r *PGListingRepository) SetBoost(ctx context.Context, id uuid.UUID, boostType models.BoostType, expiresAt time.Time) error {
	var found bool
	err := r.admin.QueryRow(ctx, `SELECT admin_set_boost($1, $2, $3)`, id, string(boostType), expiresAt).Scan(&found)
	if err != nil {
		return fmt.Errorf("ошибка admin_set_boost для объявления %s: %w", id, err)
	}
	if !found {
		return ErrListingNotFound
	}
	return nil
}
