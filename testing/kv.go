package testing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/btclayer2/polkadot-sdk/kv"
)

// KVStore tests the strict key value store contract over the provided
// schema store. The same suite runs against every store implementation.
func KVStore(t *testing.T, store kv.SchemaStore) {
	ctx := context.Background()

	t.Run("bucket requires creation", func(t *testing.T) {
		err := store.View(ctx, func(tx kv.Tx) error {
			_, err := tx.Bucket([]byte("nevercreatedv1"))
			return err
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, kv.ErrBucketNotFound)
	})

	t.Run("missing key is reported as not found", func(t *testing.T) {
		bucket := []byte("emptybucketv1")
		require.NoError(t, store.CreateBucket(ctx, bucket))

		err := store.View(ctx, func(tx kv.Tx) error {
			bkt, err := tx.Bucket(bucket)
			if err != nil {
				return err
			}

			_, err = bkt.Get([]byte("absent"))
			return err
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, kv.ErrKeyNotFound)
	})

	t.Run("put get delete round trip", func(t *testing.T) {
		bucket := []byte("roundtripv1")
		require.NoError(t, store.CreateBucket(ctx, bucket))

		require.NoError(t, store.Update(ctx, func(tx kv.Tx) error {
			bkt, err := tx.Bucket(bucket)
			if err != nil {
				return err
			}

			return bkt.Put([]byte("widget"), []byte("one"))
		}))

		require.NoError(t, store.View(ctx, func(tx kv.Tx) error {
			bkt, err := tx.Bucket(bucket)
			if err != nil {
				return err
			}

			v, err := bkt.Get([]byte("widget"))
			if err != nil {
				return err
			}

			assert.Equal(t, []byte("one"), v)
			return nil
		}))

		require.NoError(t, store.Update(ctx, func(tx kv.Tx) error {
			bkt, err := tx.Bucket(bucket)
			if err != nil {
				return err
			}

			return bkt.Delete([]byte("widget"))
		}))

		err := store.View(ctx, func(tx kv.Tx) error {
			bkt, err := tx.Bucket(bucket)
			if err != nil {
				return err
			}

			_, err = bkt.Get([]byte("widget"))
			return err
		})
		assert.ErrorIs(t, err, kv.ErrKeyNotFound)
	})

	t.Run("view transactions are not writable", func(t *testing.T) {
		bucket := []byte("readonlyv1")
		require.NoError(t, store.CreateBucket(ctx, bucket))

		err := store.View(ctx, func(tx kv.Tx) error {
			bkt, err := tx.Bucket(bucket)
			if err != nil {
				return err
			}

			return bkt.Put([]byte("widget"), []byte("one"))
		})
		assert.ErrorIs(t, err, kv.ErrTxNotWritable)

		err = store.View(ctx, func(tx kv.Tx) error {
			bkt, err := tx.Bucket(bucket)
			if err != nil {
				return err
			}

			return bkt.Delete([]byte("widget"))
		})
		assert.ErrorIs(t, err, kv.ErrTxNotWritable)
	})

	t.Run("cursor walks keys in ascending order", func(t *testing.T) {
		bucket := []byte("orderedv1")
		require.NoError(t, store.CreateBucket(ctx, bucket))

		require.NoError(t, store.Update(ctx, func(tx kv.Tx) error {
			bkt, err := tx.Bucket(bucket)
			if err != nil {
				return err
			}

			for _, key := range []string{"charlie", "alpha", "bravo"} {
				if err := bkt.Put([]byte(key), []byte("x")); err != nil {
					return err
				}
			}
			return nil
		}))

		require.NoError(t, store.View(ctx, func(tx kv.Tx) error {
			bkt, err := tx.Bucket(bucket)
			if err != nil {
				return err
			}

			cursor, err := bkt.Cursor()
			if err != nil {
				return err
			}

			var keys []string
			for k, _ := cursor.First(); k != nil; k, _ = cursor.Next() {
				keys = append(keys, string(k))
			}
			assert.Equal(t, []string{"alpha", "bravo", "charlie"}, keys)

			k, _ := cursor.Last()
			assert.Equal(t, "charlie", string(k))

			k, _ = cursor.Seek([]byte("bra"))
			assert.Equal(t, "bravo", string(k))

			return nil
		}))
	})

	t.Run("deleting a bucket removes it", func(t *testing.T) {
		bucket := []byte("doomedv1")
		require.NoError(t, store.CreateBucket(ctx, bucket))
		require.NoError(t, store.DeleteBucket(ctx, bucket))

		err := store.View(ctx, func(tx kv.Tx) error {
			_, err := tx.Bucket(bucket)
			return err
		})
		assert.ErrorIs(t, err, kv.ErrBucketNotFound)

		// Deleting an absent bucket is not an error.
		assert.NoError(t, store.DeleteBucket(ctx, bucket))
	})
}
