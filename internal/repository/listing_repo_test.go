package repository

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rajivgeraev/bonplan-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRow отдаёт заранее заданные значения в Scan
type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.values) {
		return errors.New("scan: wrong number of destinations")
	}
	for i, d := range dest {
		reflect.ValueOf(d).Elem().Set(reflect.ValueOf(r.values[i]))
	}
	return nil
}

type fakeQuerier struct {
	row      fakeRow
	execErr  error
	lastSQL  string
	lastArgs []any
}

func (q *fakeQuerier) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	q.lastSQL = sql
	q.lastArgs = args
	return q.row
}

func (q *fakeQuerier) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	q.lastSQL = sql
	q.lastArgs = args
	return pgconn.NewCommandTag("INSERT 0 1"), q.execErr
}

func TestGetListing(t *testing.T) {
	id, owner := uuid.New(), uuid.New()
	expires := time.Now().Add(time.Hour).UTC()
	created := time.Now().Add(-time.Hour).UTC()

	q := &fakeQuerier{row: fakeRow{values: []any{
		id, owner, "Vélo", "Bon état", "sport", "Moroni", int64(15000), models.ListingStatusApproved,
		pgtype.Text{String: "urgent", Valid: true}, &expires, created, created,
		pgtype.Text{String: "seller@bonplan.test", Valid: true},
	}}}
	repo := NewListingRepository(q, nil)

	l, err := repo.GetListing(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, l.ID)
	assert.Equal(t, owner, l.UserID)
	assert.Equal(t, models.BoostUrgent, l.Boost.Type)
	require.NotNil(t, l.Boost.ExpiresAt)
	assert.Equal(t, expires, *l.Boost.ExpiresAt)
	assert.Equal(t, "seller@bonplan.test", l.OwnerEmail)
	assert.Equal(t, []any{id}, q.lastArgs)
}

func TestGetListingWithoutBoost(t *testing.T) {
	id := uuid.New()
	var noExpiry *time.Time
	q := &fakeQuerier{row: fakeRow{values: []any{
		id, uuid.New(), "Table", "", "", "", int64(0), models.ListingStatusPending,
		pgtype.Text{}, noExpiry, time.Now(), time.Now(), pgtype.Text{},
	}}}

	l, err := NewListingRepository(q, nil).GetListing(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.BoostNone, l.Boost.Type)
	assert.Nil(t, l.Boost.ExpiresAt)
	assert.Empty(t, l.OwnerEmail)
}

func TestGetListingNotFound(t *testing.T) {
	q := &fakeQuerier{row: fakeRow{err: pgx.ErrNoRows}}

	_, err := NewListingRepository(q, nil).GetListing(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrListingNotFound)
}

func TestGetListingDatabaseError(t *testing.T) {
	q := &fakeQuerier{row: fakeRow{err: errors.New("connection reset")}}

	_, err := NewListingRepository(q, nil).GetListing(context.Background(), uuid.New())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrListingNotFound)
}

func TestSetBoostUsesAdminConnection(t *testing.T) {
	db := &fakeQuerier{}
	admin := &fakeQuerier{row: fakeRow{values: []any{true}}}
	repo := NewListingRepository(db, admin)

	id := uuid.New()
	expires := time.Now().Add(models.BoostDuration)

	require.NoError(t, repo.SetBoost(context.Background(), id, models.BoostVedette, expires))
	assert.Equal(t, `SELECT admin_set_boost($1, $2, $3)`, admin.lastSQL)
	assert.Equal(t, []any{id, "vedette", expires}, admin.lastArgs)
	assert.Empty(t, db.lastSQL)
}

func TestSetBoostListingGone(t *testing.T) {
	admin := &fakeQuerier{row: fakeRow{values: []any{false}}}

	err := NewListingRepository(nil, admin).SetBoost(context.Background(), uuid.New(), models.BoostUrgent, time.Now())
	assert.ErrorIs(t, err, ErrListingNotFound)
}

func TestRecordReconciliation(t *testing.T) {
	q := &fakeQuerier{}
	repo := NewReconciliationRepository(q)

	listingID := uuid.New()
	err := repo.Record(context.Background(), Reconciliation{
		Provider:    "paypal",
		ProviderRef: "ORDER-1",
		ListingID:   listingID,
		BoostType:   models.BoostVedette,
		Reason:      ReasonListingVanished,
		Details:     "объявление удалено",
		Metadata:    map[string]string{"listingId": listingID.String()},
	})
	require.NoError(t, err)

	require.Len(t, q.lastArgs, 7)
	assert.Equal(t, "paypal", q.lastArgs[0])
	assert.Equal(t, &listingID, q.lastArgs[2])
	assert.Equal(t, ReasonListingVanished, q.lastArgs[4])
	assert.JSONEq(t, `{"listingId":"`+listingID.String()+`"}`, string(q.lastArgs[6].([]byte)))
}

func TestRecordReconciliationWithoutListing(t *testing.T) {
	q := &fakeQuerier{}

	err := NewReconciliationRepository(q).Record(context.Background(), Reconciliation{
		Provider:    "stripe",
		ProviderRef: "cs_1",
		Reason:      ReasonCorruptedMetadata,
	})
	require.NoError(t, err)
	assert.Nil(t, q.lastArgs[2])
	assert.Nil(t, q.lastArgs[3])
	assert.Nil(t, q.lastArgs[6])
}
