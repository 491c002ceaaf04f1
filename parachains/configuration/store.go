package configuration

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/btclayer2/polkadot-sdk/kv"
	"github.com/btclayer2/polkadot-sdk/kv/migration"
	"github.com/btclayer2/polkadot-sdk/primitives"
)

var (
	configBucket = []byte("hostconfigurationv9")

	activeKey  = []byte("active")
	pendingKey = []byte("pending")
)

// Store reads and writes host configuration records on a key value
// store. It operates exclusively on current schema records; older
// records are reachable only through the migrations.
type Store struct {
	logger *zap.Logger
	kv     kv.SchemaStore
}

// NewStore constructs a configuration store on top of the provided
// key value store.
func NewStore(logger *zap.Logger, store kv.SchemaStore) *Store {
	return &Store{
		logger: logger,
		kv:     store,
	}
}

// Init creates the buckets backing the store and stamps the storage
// version of a fresh store. A store already carrying a version is left
// untouched so that outdated records keep demanding migration.
func (s *Store) Init(ctx context.Context) error {
	if err := s.kv.CreateBucket(ctx, configBucket); err != nil {
		return fmt.Errorf("creating host configuration bucket: %w", err)
	}

	if err := migration.EnsureVersionBucket(ctx, s.kv); err != nil {
		return err
	}

	version, err := migration.StorageVersion(ctx, s.kv, StorageComponent)
	if err != nil {
		return err
	}

	if version != 0 {
		return nil
	}

	s.logger.Debug("Stamping storage version of fresh host configuration store",
		zap.Uint32("version", CurrentStorageVersion))

	return migration.SetStorageVersion(ctx, s.kv, StorageComponent, CurrentStorageVersion)
}

// ActiveConfig returns the configuration the host is currently running
// with. A store without an active configuration reports an error which
// satisfies kv.IsNotFound.
func (s *Store) ActiveConfig(ctx context.Context) (HostConfiguration, error) {
	var config HostConfiguration
	if err := s.kv.View(ctx, func(tx kv.Tx) error {
		c, err := activeConfig(tx)
		if err != nil {
			return err
		}

		config = c
		return nil
	}); err != nil {
		return HostConfiguration{}, fmt.Errorf("loading active host configuration: %w", err)
	}

	return config, nil
}

// SetActiveConfig makes config the active configuration. The
// configuration is validated before any write happens.
func (s *Store) SetActiveConfig(ctx context.Context, config HostConfiguration) error {
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid host configuration: %w", err)
	}

	v, err := json.Marshal(config)
	if err != nil {
		return fmt.Errorf("marshaling host configuration: %w", err)
	}

	if err := s.kv.Update(ctx, func(tx kv.Tx) error {
		bkt, err := tx.Bucket(configBucket)
		if err != nil {
			return err
		}

		return bkt.Put(activeKey, v)
	}); err != nil {
		return fmt.Errorf("storing active host configuration: %w", err)
	}

	return nil
}

// PendingConfigs returns the configuration changes scheduled for future
// sessions in ascending activation order. A store which has never
// scheduled a change reports no pending configurations.
func (s *Store) PendingConfigs(ctx context.Context) ([]PendingConfig, error) {
	var pending []PendingConfig
	if err := s.kv.View(ctx, func(tx kv.Tx) error {
		p, err := pendingConfigs(tx)
		if err != nil {
			return err
		}

		pending = p
		return nil
	}); err != nil {
		return nil, fmt.Errorf("loading pending host configurations: %w", err)
	}

	return pending, nil
}

// SetPendingConfigs replaces the scheduled configuration changes with
// pending. An empty list is persisted as such rather than clearing the
// record.
func (s *Store) SetPendingConfigs(ctx context.Context, pending []PendingConfig) error {
	if err := s.kv.Update(ctx, func(tx kv.Tx) error {
		return putPendingConfigs(tx, pending)
	}); err != nil {
		return fmt.Errorf("storing pending host configurations: %w", err)
	}

	return nil
}

// Schedule queues config to become active at the start of the appliesAt
// session. Scheduling twice for the same session replaces the earlier
// entry, otherwise the entry is inserted in activation order.
func (s *Store) Schedule(ctx context.Context, appliesAt primitives.SessionIndex, config HostConfiguration) error {
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid host configuration: %w", err)
	}

	if err := s.kv.Update(ctx, func(tx kv.Tx) error {
		pending, err := pendingConfigs(tx)
		if err != nil {
			return err
		}

		entry := PendingConfig{AppliesAt: appliesAt, Config: config}

		i := sort.Search(len(pending), func(i int) bool {
			return pending[i].AppliesAt >= appliesAt
		})
		if i < len(pending) && pending[i].AppliesAt == appliesAt {
			pending[i] = entry
		} else {
			pending = append(pending, PendingConfig{})
			copy(pending[i+1:], pending[i:])
			pending[i] = entry
		}

		if err := putPendingConfigs(tx, pending); err != nil {
			return err
		}

		s.logger.Debug("Scheduled host configuration change",
			zap.Uint32("applies_at", uint32(appliesAt)),
			zap.Int("pending_count", len(pending)))

		return nil
	}); err != nil {
		return fmt.Errorf("scheduling host configuration change: %w", err)
	}

	return nil
}

func activeConfig(tx kv.Tx) (HostConfiguration, error) {
	bkt, err := tx.Bucket(configBucket)
	if err != nil {
		return HostConfiguration{}, err
	}

	v, err := bkt.Get(activeKey)
	if err != nil {
		return HostConfiguration{}, err
	}

	var config HostConfiguration
	if err := json.Unmarshal(v, &config); err != nil {
		return HostConfiguration{}, fmt.Errorf("unmarshaling host configuration: %w", err)
	}

	return config, nil
}

func pendingConfigs(tx kv.Tx) ([]PendingConfig, error) {
	bkt, err := tx.Bucket(configBucket)
	if err != nil {
		return nil, err
	}

	v, err := bkt.Get(pendingKey)
	if kv.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var pending []PendingConfig
	if err := json.Unmarshal(v, &pending); err != nil {
		return nil, fmt.Errorf("unmarshaling pending host configurations: %w", err)
	}

	return pending, nil
}

func putPendingConfigs(tx kv.Tx, pending []PendingConfig) error {
	if pending == nil {
		pending = []PendingConfig{}
	}

	v, err := json.Marshal(pending)
	if err != nil {
		return fmt.Errorf("marshaling pending host configurations: %w", err)
	}

	bkt, err := tx.Bucket(configBucket)
	if err != nil {
		return err
	}

	return bkt.Put(pendingKey, v)
}
