package bolt

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	bolt "go.etcd.io/bbolt"
)

var _ prometheus.Collector = (*KVStore)(nil)

var (
	kvWritesDesc = prometheus.NewDesc(
		"boltdb_writes_total",
		"Total number of boltdb writes",
		nil, nil)

	kvReadsDesc = prometheus.NewDesc(
		"boltdb_reads_total",
		"Total number of boltdb reads",
		nil, nil)
)

var resourceBuckets = map[string][]byte{
	"host_configuration_v8": []byte("hostconfigurationv8"),
	"host_configuration_v9": []byte("hostconfigurationv9"),
	"storage_versions":      []byte("storageversionsv1"),
}

// Describe returns all descriptions of the collector.
func (s *KVStore) Describe(ch chan<- *prometheus.Desc) {
	ch <- kvWritesDesc
	ch <- kvReadsDesc
	for resource := range resourceBuckets {
		resourceDesc := prometheus.NewDesc(
			fmt.Sprintf("polkadot_%s_total", resource),
			fmt.Sprintf("Number of total %s keys in the store", resource),
			nil, nil)
		ch <- resourceDesc
	}
}

// Collect returns the current state of all metrics of the collector.
func (s *KVStore) Collect(ch chan<- prometheus.Metric) {
	stats := s.db.Stats()
	writes := stats.TxStats.Write
	reads := stats.TxN

	ch <- prometheus.MustNewConstMetric(
		kvReadsDesc,
		prometheus.CounterValue,
		float64(reads),
	)

	ch <- prometheus.MustNewConstMetric(
		kvWritesDesc,
		prometheus.CounterValue,
		float64(writes),
	)

	_ = s.db.View(func(tx *bolt.Tx) error {
		for resource, bucketName := range resourceBuckets {
			resourceDesc := prometheus.NewDesc(
				fmt.Sprintf("polkadot_%s_total", resource),
				fmt.Sprintf("Number of total %s keys in the store", resource),
				nil, nil)

			keyNum := 0
			if b := tx.Bucket(bucketName); b != nil {
				keyNum = b.Stats().KeyN
			}

			ch <- prometheus.MustNewConstMetric(
				resourceDesc,
				prometheus.CounterValue,
				float64(keyNum),
			)
		}
		return nil
	})
}
