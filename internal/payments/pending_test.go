package payments

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, ttl time.Duration) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStore(client, ttl), mr
}

func TestStore_SaveAndConsumeOnce(t *testing.T) {
	store, _ := newTestStore(t, 15*time.Minute)
	ctx := context.Background()

	p := &PendingPayment{TxnRef: NewTxnRef("SC-20261020-ABC123"), AppointmentID: uuid.New(), Amount: 50000}
	require.NoError(t, store.Save(ctx, p))
	assert.Equal(t, 15*time.Minute, p.ExpiresAt.Sub(p.CreatedAt))

	got, err := store.Consume(ctx, p.TxnRef)
	require.NoError(t, err)
	assert.Equal(t, p.AppointmentID, got.AppointmentID)
	assert.Equal(t, int64(50000), got.Amount)

	_, err = store.Consume(ctx, p.TxnRef)
	assert.ErrorIs(t, err, ErrPendingNotFound)
}

func TestStore_Expires(t *testing.T) {
	store, mr := newTestStore(t, time.Minute)
	ctx := context.Background()

	p := &PendingPayment{TxnRef: "DEP-1", AppointmentID: uuid.New()}
	require.NoError(t, store.Save(ctx, p))

	mr.FastForward(2 * time.Minute)

	_, err := store.Consume(ctx, "DEP-1")
	assert.ErrorIs(t, err, ErrPendingNotFound)
}

func TestStore_DuplicateRef(t *testing.T) {
	store, _ := newTestStore(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &PendingPayment{TxnRef: "DEP-2"}))
	assert.ErrorIs(t, store.Save(ctx, &PendingPayment{TxnRef: "DEP-2"}), ErrDuplicateRef)
}

func TestNewTxnRef(t *testing.T) {
	ref := NewTxnRef("SC-20261020-ABC123")
	assert.True(t, strings.HasPrefix(ref, "DEP-SC-20261020-ABC123-"))
	assert.Len(t, ref, len("DEP-SC-20261020-ABC123-")+8)
	assert.NotEqual(t, ref, NewTxnRef("SC-20261020-ABC123"))
}
