package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/rajivgeraev/bonplan-api/internal/config"
	"github.com/rajivgeraev/bonplan-api/internal/payment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestRedis поднимает Redis в памяти на время теста
func newTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	c := NewRedisCache(config.RedisConfig{Addr: mr.Addr()})
	require.NoError(t, c.Ping(context.Background()))
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestRedisCaptureLock(t *testing.T) {
	c, _ := newTestRedis(t)
	ctx := context.Background()
	orderID := "test-" + uuid.NewString()

	ok, err := c.AcquireCaptureLock(ctx, orderID, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.AcquireCaptureLock(ctx, orderID, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.ReleaseCaptureLock(ctx, orderID))

	ok, err = c.AcquireCaptureLock(ctx, orderID, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, c.ReleaseCaptureLock(ctx, orderID))
}

func TestRedisCaptureLockExpires(t *testing.T) {
	c, mr := newTestRedis(t)
	ctx := context.Background()

	ok, err := c.AcquireCaptureLock(ctx, "ORDER-1", 30*time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 30*time.Second, mr.TTL(captureLockKey("ORDER-1")))

	// Зависший обработчик не должен блокировать заказ навсегда
	mr.FastForward(31 * time.Second)

	ok, err = c.AcquireCaptureLock(ctx, "ORDER-1", 30*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisCaptureResult(t *testing.T) {
	c, mr := newTestRedis(t)
	ctx := context.Background()
	orderID := "test-" + uuid.NewString()

	stored, err := c.LoadCapture(ctx, orderID)
	require.NoError(t, err)
	assert.Nil(t, stored)

	conf := payment.Confirmation{
		Completed: true,
		Status:    "COMPLETED",
		Metadata:  map[string]string{payment.MetaListingID: uuid.NewString(), payment.MetaBoostType: "urgent"},
	}
	require.NoError(t, c.SaveCapture(ctx, orderID, conf, time.Hour))
	assert.True(t, mr.Exists(captureResultKey(orderID)))

	stored, err = c.LoadCapture(ctx, orderID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, conf, *stored)

	mr.FastForward(time.Hour + time.Second)

	stored, err = c.LoadCapture(ctx, orderID)
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestRedisCaptureResultCorrupted(t *testing.T) {
	c, mr := newTestRedis(t)
	require.NoError(t, mr.Set(captureResultKey("ORDER-1"), "{not json"))

	_, err := c.LoadCapture(context.Background(), "ORDER-1")
	assert.Error(t, err)
}

func TestRedisUnavailable(t *testing.T) {
	c, mr := newTestRedis(t)
	mr.Close()

	_, err := c.AcquireCaptureLock(context.Background(), "ORDER-1", time.Minute)
	assert.Error(t, err)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "paypal:capture:ORDER-1:result", captureResultKey("ORDER-1"))
	assert.Equal(t, "lock:paypal:capture:ORDER-1", captureLockKey("ORDER-1"))
}
