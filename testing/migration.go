package testing

import (
	"context"
	"errors"
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/btclayer2/polkadot-sdk/kv"
	"github.com/btclayer2/polkadot-sdk/kv/migration"
)

// NewMigratorFunc constructs a migrator over the provided store with
// the provided clock installed in place of the wall clock.
type NewMigratorFunc func(t *testing.T, logger *zap.Logger, store kv.SchemaStore, clk clock.Clock) *migration.Migrator

// checkedSpec decorates a migration with recording pre and post check
// hooks so the suite can observe how the migrator drives them.
type checkedSpec struct {
	*migration.Migration

	preState []byte
	postErr  error

	gotState []byte
	verified int
}

func (s *checkedSpec) PreCheck(ctx context.Context, store migration.Store) ([]byte, error) {
	return s.preState, nil
}

func (s *checkedSpec) PostCheck(ctx context.Context, store migration.Store, state []byte) error {
	s.gotState = state
	s.verified++
	return s.postErr
}

func noopUp(ctx context.Context, store migration.Store) (migration.Cost, error) {
	return migration.Cost{}, nil
}

// Migrator tests the behavior of a migrator over the provided schema
// store. The same suite runs against every store implementation.
func Migrator(t *testing.T, store kv.SchemaStore, newMigrator NewMigratorFunc) {
	var (
		ctx    = context.Background()
		logger = zaptest.NewLogger(t)
		mock   = clock.NewMock()
	)

	t.Run("storage versions", func(t *testing.T) {
		// constructing a migrator ensures the version bucket exists
		newMigrator(t, logger, store, mock)

		version, err := migration.StorageVersion(ctx, store, "widgets")
		require.NoError(t, err)
		require.Equal(t, uint32(0), version)

		require.NoError(t, migration.SetStorageVersion(ctx, store, "widgets", 3))

		version, err = migration.StorageVersion(ctx, store, "widgets")
		require.NoError(t, err)
		require.Equal(t, uint32(3), version)

		versions, err := migration.StorageVersions(ctx, store)
		require.NoError(t, err)
		require.Contains(t, versions, migration.ComponentVersion{Component: "widgets", Version: 3})
	})

	t.Run("up applies specs in order and accumulates cost", func(t *testing.T) {
		var order []string

		migrator := newMigrator(t, logger, store, mock)
		migrator.AddMigrations(
			migration.CreateBuckets("create gadget buckets", []byte("gadgetsv1")),
			migration.NewMigration("seed gadgets", func(ctx context.Context, store migration.Store) (migration.Cost, error) {
				order = append(order, "seed gadgets")

				if err := store.Update(ctx, func(tx kv.Tx) error {
					bkt, err := tx.Bucket([]byte("gadgetsv1"))
					if err != nil {
						return err
					}
					return bkt.Put([]byte("gadget"), []byte("one"))
				}); err != nil {
					return migration.Cost{}, err
				}

				return migration.ReadsWrites(0, 1), nil
			}),
			migration.NewMigration("count gadgets", func(ctx context.Context, store migration.Store) (migration.Cost, error) {
				order = append(order, "count gadgets")
				return migration.Reads(1), nil
			}),
		)

		cost, err := migrator.Up(ctx)
		require.NoError(t, err)
		assert.Equal(t, migration.ReadsWrites(1, 1), cost)
		assert.Equal(t, []string{"seed gadgets", "count gadgets"}, order)

		require.NoError(t, store.View(ctx, func(tx kv.Tx) error {
			bkt, err := tx.Bucket([]byte("gadgetsv1"))
			if err != nil {
				return err
			}

			v, err := bkt.Get([]byte("gadget"))
			if err != nil {
				return err
			}

			assert.Equal(t, []byte("one"), v)
			return nil
		}))
	})

	t.Run("version gated spec applies once", func(t *testing.T) {
		applied := 0
		gated := migration.NewMigration("gizmos to v1", func(ctx context.Context, store migration.Store) (migration.Cost, error) {
			version, err := migration.StorageVersion(ctx, store, "gizmos")
			if err != nil {
				return migration.Cost{}, err
			}
			if version != 0 {
				return migration.Reads(1), nil
			}

			applied++
			if err := migration.SetStorageVersion(ctx, store, "gizmos", 1); err != nil {
				return migration.Reads(1), err
			}
			return migration.ReadsWrites(1, 1), nil
		})

		migrator := newMigrator(t, logger, store, mock)
		migrator.AddMigrations(gated)

		cost, err := migrator.Up(ctx)
		require.NoError(t, err)
		require.Equal(t, migration.ReadsWrites(1, 1), cost)

		cost, err = migrator.Up(ctx)
		require.NoError(t, err)
		require.Equal(t, migration.Reads(1), cost)

		require.Equal(t, 1, applied)
	})

	t.Run("pre check state reaches post check", func(t *testing.T) {
		checked := &checkedSpec{
			Migration: migration.NewMigration("checked", noopUp),
			preState:  []byte("before"),
		}

		migrator := newMigrator(t, logger, store, mock)
		migrator.AddMigrations(checked)

		_, err := migrator.Up(ctx)
		require.NoError(t, err)
		assert.Equal(t, []byte("before"), checked.gotState)
	})

	t.Run("post check failure aborts the pass", func(t *testing.T) {
		var tail bool

		failing := &checkedSpec{
			Migration: migration.NewMigration("failing", noopUp),
			postErr:   errors.New("gadgets missing"),
		}

		migrator := newMigrator(t, logger, store, mock)
		migrator.AddMigrations(
			failing,
			migration.NewMigration("tail", func(ctx context.Context, store migration.Store) (migration.Cost, error) {
				tail = true
				return migration.Cost{}, nil
			}),
		)

		_, err := migrator.Up(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `post-check "failing": gadgets missing`)
		assert.False(t, tail)
	})

	t.Run("verify runs post checks standalone", func(t *testing.T) {
		healthy := &checkedSpec{
			Migration: migration.NewMigration("healthy", noopUp),
			preState:  []byte("ignored"),
		}
		broken := &checkedSpec{
			Migration: migration.NewMigration("broken", noopUp),
			postErr:   errors.New("version too old"),
		}

		migrator := newMigrator(t, logger, store, mock)
		migrator.AddMigrations(healthy, broken)

		err := migrator.Verify(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `verify "broken": version too old`)

		assert.Equal(t, 1, healthy.verified)
		assert.Nil(t, healthy.gotState)
	})
}
