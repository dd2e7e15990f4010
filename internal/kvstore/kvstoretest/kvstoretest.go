// Package kvstoretest holds the behaviour every kvstore.Store backend must share.
package kvstoretest

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openkcm/oauth-client/internal/kvstore"
	"github.com/openkcm/oauth-client/internal/serviceerr"
)

// Run exercises store. Keys are derived from t.Name() so a shared backend
// can be reused between runs. advance must move the store's clock forward by
// at least the given duration.
func Run(t *testing.T, store kvstore.Store, advance func(time.Duration)) {
	t.Helper()

	key := func(name string) string {
		return fmt.Sprintf("%s/%s", t.Name(), name)
	}

	t.Run("set and get", func(t *testing.T) {
		ctx := t.Context()

		err := store.Set(ctx, key("set-get"), []byte(`{"a":1}`), time.Minute)
		require.NoError(t, err)

		got, err := store.Get(ctx, key("set-get"))
		require.NoError(t, err)
		assert.JSONEq(t, `{"a":1}`, string(got))
	})

	t.Run("set overwrites", func(t *testing.T) {
		ctx := t.Context()

		require.NoError(t, store.Set(ctx, key("overwrite"), []byte("one"), time.Minute))
		require.NoError(t, store.Set(ctx, key("overwrite"), []byte("two"), time.Minute))

		got, err := store.Get(ctx, key("overwrite"))
		require.NoError(t, err)
		assert.Equal(t, "two", string(got))
	})

	t.Run("get missing key", func(t *testing.T) {
		_, err := store.Get(t.Context(), key("missing"))
		assert.ErrorIs(t, err, serviceerr.ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		ctx := t.Context()

		require.NoError(t, store.Set(ctx, key("delete"), []byte("v"), time.Minute))
		require.NoError(t, store.Delete(ctx, key("delete")))

		_, err := store.Get(ctx, key("delete"))
		assert.ErrorIs(t, err, serviceerr.ErrNotFound)
	})

	t.Run("delete missing key does not error", func(t *testing.T) {
		assert.NoError(t, store.Delete(t.Context(), key("delete-missing")))
	})

	t.Run("take returns the value once", func(t *testing.T) {
		ctx := t.Context()

		require.NoError(t, store.Set(ctx, key("take"), []byte("1"), time.Minute))

		got, err := store.Take(ctx, key("take"))
		require.NoError(t, err)
		assert.Equal(t, "1", string(got))

		_, err = store.Take(ctx, key("take"))
		assert.ErrorIs(t, err, serviceerr.ErrNotFound)

		_, err = store.Get(ctx, key("take"))
		assert.ErrorIs(t, err, serviceerr.ErrNotFound)
	})

	t.Run("concurrent take has a single winner", func(t *testing.T) {
		ctx := t.Context()

		require.NoError(t, store.Set(ctx, key("race"), []byte("1"), time.Minute))

		const callers = 16
		var (
			wg   sync.WaitGroup
			wins atomic.Int32
		)
		for range callers {
			wg.Go(func() {
				if _, err := store.Take(ctx, key("race")); err == nil {
					wins.Add(1)
				}
			})
		}
		wg.Wait()

		assert.Equal(t, int32(1), wins.Load())
	})

	t.Run("values expire", func(t *testing.T) {
		ctx := t.Context()

		require.NoError(t, store.Set(ctx, key("expire"), []byte("v"), time.Second))
		_, err := store.Get(ctx, key("expire"))
		require.NoError(t, err)

		advance(2 * time.Second)

		_, err = store.Get(ctx, key("expire"))
		assert.ErrorIs(t, err, serviceerr.ErrNotFound)

		_, err = store.Take(ctx, key("expire"))
		assert.ErrorIs(t, err, serviceerr.ErrNotFound)
	})

	t.Run("zero ttl does not expire", func(t *testing.T) {
		ctx := t.Context()

		require.NoError(t, store.Set(ctx, key("forever"), []byte("v"), 0))

		advance(2 * time.Second)

		_, err := store.Get(ctx, key("forever"))
		assert.NoError(t, err)
	})
}
