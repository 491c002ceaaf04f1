package bolt_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/btclayer2/polkadot-sdk/bolt"
	"github.com/btclayer2/polkadot-sdk/kit/prom/promtest"
	"github.com/btclayer2/polkadot-sdk/kv"
)

func TestInitialMetrics(t *testing.T) {
	t.Parallel()

	store, teardown, err := newTestKVStore(t)
	if err != nil {
		t.Fatalf("unable to setup bolt store: %v", err)
	}
	defer teardown()

	reg := prometheus.NewRegistry()
	reg.MustRegister(store)

	mfs := promtest.MustGather(t, reg)

	metrics := map[string]int{
		"polkadot_host_configuration_v8_total": 0,
		"polkadot_host_configuration_v9_total": 0,
		"polkadot_storage_versions_total":      0,
		"boltdb_reads_total":                   0,
	}
	for name, count := range metrics {
		c := promtest.MustFindMetric(t, mfs, name, nil)
		if got := c.GetCounter().GetValue(); int(got) != count {
			t.Errorf("expected %s counter to be %d, got %v", name, count, got)
		}
	}
}

func TestSeededMetrics(t *testing.T) {
	t.Parallel()

	store, teardown, err := newTestKVStore(t)
	require.NoError(t, err)
	defer teardown()

	ctx := context.Background()
	for _, bucket := range [][]byte{
		[]byte("hostconfigurationv8"),
		[]byte("hostconfigurationv9"),
		[]byte("storageversionsv1"),
	} {
		require.NoError(t, store.CreateBucket(ctx, bucket))
	}

	// Two host configuration records and one storage version marker.
	err = store.Update(ctx, func(tx kv.Tx) error {
		v9, err := tx.Bucket([]byte("hostconfigurationv9"))
		if err != nil {
			return err
		}
		if err := v9.Put([]byte("active"), []byte("{}")); err != nil {
			return err
		}
		if err := v9.Put([]byte("pending"), []byte("[]")); err != nil {
			return err
		}

		versions, err := tx.Bucket([]byte("storageversionsv1"))
		if err != nil {
			return err
		}
		return versions.Put([]byte("hostconfiguration"), []byte{0, 0, 0, 9})
	})
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	reg.MustRegister(store)

	mfs := promtest.MustGather(t, reg)

	metrics := map[string]int{
		"polkadot_host_configuration_v8_total": 0,
		"polkadot_host_configuration_v9_total": 2,
		"polkadot_storage_versions_total":      1,
	}
	for name, count := range metrics {
		c := promtest.MustFindMetric(t, mfs, name, nil)
		if got := c.GetCounter().GetValue(); int(got) != count {
			t.Errorf("expected %s counter to be %d, got %v", name, count, got)
		}
	}
}

func newTestKVStore(t *testing.T) (*bolt.KVStore, func(), error) {
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
