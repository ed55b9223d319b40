package draft

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T, ttl time.Duration) (*Store, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewStore(client, ttl), mr
}

func TestStore_PutGet(t *testing.T) {
	store, _ := setupStore(t, time.Hour)
	ctx := context.Background()

	d := &Draft{UserID: 1, ChartID: 2, Spec: []byte(`{"mark":"bar"}`), Revision: 3}
	require.NoError(t, store.Put(ctx, d))
	assert.WithinDuration(t, time.Now().Add(time.Hour), d.ExpiresAt, time.Second)

	got, err := store.Get(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Revision)
	assert.JSONEq(t, `{"mark":"bar"}`, string(got.Spec))

	_, err = store.Get(ctx, 2, 2)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_Expires(t *testing.T) {
	store, mr := setupStore(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, &Draft{UserID: 1, ChartID: 1, Spec: []byte(`{}`)}))
	mr.FastForward(2 * time.Minute)

	_, err := store.Get(ctx, 1, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_Delete(t *testing.T) {
	store, _ := setupStore(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, &Draft{UserID: 1, ChartID: 1, Spec: []byte(`{}`)}))

	ok, err := store.Delete(ctx, 1, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Delete(ctx, 1, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_DeleteAll(t *testing.T) {
	store, _ := setupStore(t, time.Hour)
	ctx := context.Background()

	for chartID := int64(1); chartID <= 3; chartID++ {
		require.NoError(t, store.Put(ctx, &Draft{UserID: 7, ChartID: chartID, Spec: []byte(`{}`)}))
	}
	require.NoError(t, store.Put(ctx, &Draft{UserID: 70, ChartID: 1, Spec: []byte(`{}`)}))

	n, err := store.DeleteAll(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = store.Get(ctx, 70, 1)
	assert.NoError(t, err)
}
