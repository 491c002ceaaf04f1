package configuration_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/btclayer2/polkadot-sdk/inmem"
	"github.com/btclayer2/polkadot-sdk/kv"
	"github.com/btclayer2/polkadot-sdk/kv/migration"
	"github.com/btclayer2/polkadot-sdk/parachains/configuration"
	"github.com/btclayer2/polkadot-sdk/primitives"
)

func newTestStore(t *testing.T) (*configuration.Store, kv.SchemaStore) {
	t.Helper()

	kvStore := inmem.NewKVStore()
	store := configuration.NewStore(zaptest.NewLogger(t), kvStore)
	require.NoError(t, store.Init(context.Background()))

	return store, kvStore
}

func TestStoreInit(t *testing.T) {
	t.Run("fresh store is stamped with the current version", func(t *testing.T) {
		_, kvStore := newTestStore(t)

		version, err := migration.StorageVersion(context.Background(), kvStore, configuration.StorageComponent)
		require.NoError(t, err)
		assert.Equal(t, configuration.CurrentStorageVersion, version)
	})

	t.Run("init is idempotent", func(t *testing.T) {
		store, kvStore := newTestStore(t)
		require.NoError(t, store.Init(context.Background()))

		version, err := migration.StorageVersion(context.Background(), kvStore, configuration.StorageComponent)
		require.NoError(t, err)
		assert.Equal(t, configuration.CurrentStorageVersion, version)
	})

	t.Run("outdated store keeps its version", func(t *testing.T) {
		ctx := context.Background()

		kvStore := inmem.NewKVStore()
		require.NoError(t, migration.EnsureVersionBucket(ctx, kvStore))
		require.NoError(t, migration.SetStorageVersion(ctx, kvStore, configuration.StorageComponent, 8))

		store := configuration.NewStore(zaptest.NewLogger(t), kvStore)
		require.NoError(t, store.Init(ctx))

		version, err := migration.StorageVersion(ctx, kvStore, configuration.StorageComponent)
		require.NoError(t, err)
		assert.Equal(t, uint32(8), version)
	})
}

func TestStoreActiveConfig(t *testing.T) {
	t.Run("missing active configuration is reported as not found", func(t *testing.T) {
		store, _ := newTestStore(t)

		_, err := store.ActiveConfig(context.Background())
		require.Error(t, err)
		assert.True(t, kv.IsNotFound(err))
	})

	t.Run("round trips the active configuration", func(t *testing.T) {
		store, _ := newTestStore(t)

		config := configuration.DefaultHostConfiguration()
		config.NeededApprovals = 30
		config.MaxPoVSize = 1111

		require.NoError(t, store.SetActiveConfig(context.Background(), config))

		got, err := store.ActiveConfig(context.Background())
		require.NoError(t, err)
		assert.Equal(t, config, got)
	})

	t.Run("rejects an inconsistent configuration", func(t *testing.T) {
		store, _ := newTestStore(t)

		config := configuration.DefaultHostConfiguration()
		config.GroupRotationFrequency = 0

		err := store.SetActiveConfig(context.Background(), config)
		assert.ErrorIs(t, err, configuration.ErrZeroGroupRotationFrequency)

		_, err = store.ActiveConfig(context.Background())
		assert.True(t, kv.IsNotFound(err))
	})
}

func TestStorePendingConfigs(t *testing.T) {
	t.Run("fresh store has no pending configurations", func(t *testing.T) {
		store, _ := newTestStore(t)

		pending, err := store.PendingConfigs(context.Background())
		require.NoError(t, err)
		assert.Empty(t, pending)
	})

	t.Run("round trips pending configurations", func(t *testing.T) {
		store, _ := newTestStore(t)

		pending := []configuration.PendingConfig{
			{AppliesAt: 100, Config: configuration.DefaultHostConfiguration()},
			{AppliesAt: 300, Config: configuration.DefaultHostConfiguration()},
		}

		require.NoError(t, store.SetPendingConfigs(context.Background(), pending))

		got, err := store.PendingConfigs(context.Background())
		require.NoError(t, err)
		if diff := cmp.Diff(pending, got); diff != "" {
			t.Errorf("unexpected pending configurations -want/+got:\n%s", diff)
		}
	})

	t.Run("an empty list is persisted rather than cleared", func(t *testing.T) {
		store, kvStore := newTestStore(t)

		require.NoError(t, store.SetPendingConfigs(context.Background(), nil))

		var raw []byte
		require.NoError(t, kvStore.View(context.Background(), func(tx kv.Tx) error {
			bkt, err := tx.Bucket([]byte("hostconfigurationv9"))
			if err != nil {
				return err
			}

			raw, err = bkt.Get([]byte("pending"))
			return err
		}))
		assert.Equal(t, "[]", string(raw))
	})
}

func TestStoreSchedule(t *testing.T) {
	t.Run("keeps entries in activation order", func(t *testing.T) {
		store, _ := newTestStore(t)

		ctx := context.Background()
		for _, appliesAt := range []primitives.SessionIndex{300, 100, 200} {
			require.NoError(t, store.Schedule(ctx, appliesAt, configuration.DefaultHostConfiguration()))
		}

		pending, err := store.PendingConfigs(ctx)
		require.NoError(t, err)
		require.Len(t, pending, 3)
		assert.Equal(t, primitives.SessionIndex(100), pending[0].AppliesAt)
		assert.Equal(t, primitives.SessionIndex(200), pending[1].AppliesAt)
		assert.Equal(t, primitives.SessionIndex(300), pending[2].AppliesAt)
	})

	t.Run("replaces an entry scheduled for the same session", func(t *testing.T) {
		store, _ := newTestStore(t)

		ctx := context.Background()
		require.NoError(t, store.Schedule(ctx, 100, configuration.DefaultHostConfiguration()))

		config := configuration.DefaultHostConfiguration()
		config.NeededApprovals = 42
		require.NoError(t, store.Schedule(ctx, 100, config))

		pending, err := store.PendingConfigs(ctx)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, uint32(42), pending[0].Config.NeededApprovals)
	})

	t.Run("rejects an inconsistent configuration", func(t *testing.T) {
		store, _ := newTestStore(t)

		config := configuration.DefaultHostConfiguration()
		config.NoShowSlots = 0

		err := store.Schedule(context.Background(), 100, config)
		assert.ErrorIs(t, err, configuration.ErrZeroNoShowSlots)
	})
}
