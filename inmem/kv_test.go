package inmem_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/btclayer2/polkadot-sdk/inmem"
	sdktesting "github.com/btclayer2/polkadot-sdk/testing"
)

func TestKVStore(t *testing.T) {
	sdktesting.KVStore(t, inmem.NewKVStore())
}

func TestKVStoreBuckets(t *testing.T) {
	ctx := context.Background()
	store := inmem.NewKVStore()

	for _, name := range []string{"gadgetsv1", "widgetsv1", "doodadsv1"} {
		require.NoError(t, store.CreateBucket(ctx, []byte(name)))
	}

	assert.Equal(t, [][]byte{
		[]byte("doodadsv1"),
		[]byte("gadgetsv1"),
		[]byte("widgetsv1"),
	}, store.Buckets(ctx))
}
