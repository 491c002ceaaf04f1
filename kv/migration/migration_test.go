package migration_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/btclayer2/polkadot-sdk/bolt"
	"github.com/btclayer2/polkadot-sdk/inmem"
	"github.com/btclayer2/polkadot-sdk/kv"
	"github.com/btclayer2/polkadot-sdk/kv/migration"
	sdktesting "github.com/btclayer2/polkadot-sdk/testing"
)

func newMigrator(t *testing.T, logger *zap.Logger, store kv.SchemaStore, clk clock.Clock) *migration.Migrator {
	migrator, err := migration.NewMigrator(logger, store)
	if err != nil {
		t.Fatal(err)
	}

	migration.MigratorSetClock(migrator, clk)
	return migrator
}

func Test_Inmem_Migrator(t *testing.T) {
	sdktesting.Migrator(t, inmem.NewKVStore(), newMigrator)
}

func Test_Bolt_Migrator(t *testing.T) {
	store, closeBolt, err := newTestBoltStore(t)
	if err != nil {
		t.Fatalf("failed to create new kv store: %v", err)
	}
	defer closeBolt()

	sdktesting.Migrator(t, store, newMigrator)
}

func newTestBoltStore(t *testing.T) (kv.SchemaStore, func(), error) {
	f, err := os.CreateTemp("", "polkadot-bolt-")
	if err != nil {
		return nil, nil, errors.New("unable to open temporary boltdb file")
	}
	f.Close()

	path := f.Name()
	s := bolt.NewKVStore(zaptest.NewLogger(t), path, bolt.WithNoSync)
	if err := s.Open(context.Background()); err != nil {
		return nil, nil, err
	}

	close := func() {
		s.Close()
		os.Remove(path)
	}

	return s, close, nil
}
