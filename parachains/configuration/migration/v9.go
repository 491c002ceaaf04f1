package migration

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/btclayer2/polkadot-sdk/kv"
	kvmigration "github.com/btclayer2/polkadot-sdk/kv/migration"
	"github.com/btclayer2/polkadot-sdk/parachains/configuration"
	"github.com/btclayer2/polkadot-sdk/primitives"
)

var (
	v8Bucket = []byte("hostconfigurationv8")
	v9Bucket = []byte("hostconfigurationv9")

	activeKey  = []byte("active")
	pendingKey = []byte("pending")
)

var (
	_ kvmigration.Spec        = (*MigrateToV9)(nil)
	_ kvmigration.PreChecker  = (*MigrateToV9)(nil)
	_ kvmigration.PostChecker = (*MigrateToV9)(nil)
)

// Migrations returns the canonical ordered list of host configuration
// migrations. Every entry gates itself on the recorded storage version,
// so the whole list can be applied on each startup.
func Migrations(logger *zap.Logger) []kvmigration.Spec {
	return []kvmigration.Spec{
		kvmigration.CreateBuckets("create host configuration buckets", v8Bucket, v9Bucket),
		NewMigrateToV9(logger),
	}
}

// MigrateToV9 brings host configuration records from schema v8 to
// schema v9, which introduced the minimum backing votes parameter.
type MigrateToV9 struct {
	logger *zap.Logger
}

// NewMigrateToV9 constructs the v8 to v9 host configuration migration.
func NewMigrateToV9(logger *zap.Logger) *MigrateToV9 {
	return &MigrateToV9{logger: logger}
}

// MigrationName returns the name of the migration.
func (m *MigrateToV9) MigrationName() string {
	return "migrate parachain host configuration to v9"
}

// Up migrates the active and pending host configuration records to
// schema v9 and bumps the recorded storage version. A store whose
// version is not exactly 8 is left untouched beyond the version read.
func (m *MigrateToV9) Up(ctx context.Context, store kvmigration.Store) (kvmigration.Cost, error) {
	m.logger.Info("HostConfiguration MigrateToV9 started")

	version, err := kvmigration.StorageVersion(ctx, store, configuration.StorageComponent)
	if err != nil {
		return kvmigration.Cost{}, err
	}

	if version != 8 {
		m.logger.Warn("HostConfiguration MigrateToV9 should be removed.", zap.Uint32("version", version))
		return kvmigration.Reads(1), nil
	}

	var numConfigs uint64
	if err := store.Update(ctx, func(tx kv.Tx) error {
		n, err := m.migrateTx(tx)
		if err != nil {
			return err
		}

		numConfigs = n
		return kvmigration.SetStorageVersionTx(tx, configuration.StorageComponent, 9)
	}); err != nil {
		return kvmigration.Cost{}, fmt.Errorf("migrating host configuration to v9: %w", err)
	}

	m.logger.Info("HostConfiguration MigrateToV9 executed successfully")

	return kvmigration.ReadsWrites(numConfigs, numConfigs), nil
}

// migrateTx performs the record rewrites within a single write
// transaction and returns the number of records migrated.
func (m *MigrateToV9) migrateTx(tx kv.Tx) (uint64, error) {
	v8, err := tx.Bucket(v8Bucket)
	if err != nil {
		return 0, err
	}

	v9, err := tx.Bucket(v9Bucket)
	if err != nil {
		return 0, err
	}

	active := DefaultV8HostConfiguration()

	raw, err := v8.Get(activeKey)
	switch {
	case kv.IsNotFound(err):
		m.logger.Error("Could not decode old config", zap.Error(err))
	case err != nil:
		return 0, err
	default:
		var decoded V8HostConfiguration
		if err := json.Unmarshal(raw, &decoded); err != nil {
			m.logger.Error("Could not decode old config", zap.Error(err))
		} else {
			active = decoded
		}
	}

	v, err := json.Marshal(translateV8(active))
	if err != nil {
		return 0, err
	}

	if err := v9.Put(activeKey, v); err != nil {
		return 0, err
	}

	var pending []V8PendingConfig

	raw, err = v8.Get(pendingKey)
	switch {
	case kv.IsNotFound(err):
		// Allowed to be empty.
	case err != nil:
		return 0, err
	default:
		if err := json.Unmarshal(raw, &pending); err != nil {
			m.logger.Error("Could not decode pending configs", zap.Error(err))
			pending = nil
		}
	}

	migrated := make([]configuration.PendingConfig, 0, len(pending))
	for _, p := range pending {
		migrated = append(migrated, configuration.PendingConfig{
			AppliesAt: p.AppliesAt,
			Config:    translateV8(p.Config),
		})
	}

	v, err = json.Marshal(migrated)
	if err != nil {
		return 0, err
	}

	if err := v9.Put(pendingKey, v); err != nil {
		return 0, err
	}

	return uint64(len(migrated)) + 1, nil
}

// PreCheck captures no state, the post condition is verifiable from the
// store alone.
func (m *MigrateToV9) PreCheck(context.Context, kvmigration.Store) ([]byte, error) {
	m.logger.Debug("Running pre-check for HostConfiguration MigrateToV9")
	return nil, nil
}

// PostCheck asserts the storage version reached v9.
func (m *MigrateToV9) PostCheck(ctx context.Context, store kvmigration.Store, _ []byte) error {
	m.logger.Debug("Running post-check for HostConfiguration MigrateToV9")

	version, err := kvmigration.StorageVersion(ctx, store, configuration.StorageComponent)
	if err != nil {
		return err
	}

	if version < 9 {
		return fmt.Errorf("storage version should be >= 9 after the migration, got %d", version)
	}

	return nil
}

func translateV8(pre V8HostConfiguration) configuration.HostConfiguration {
	return configuration.HostConfiguration{
		MaxCodeSize:                           pre.MaxCodeSize,
		MaxHeadDataSize:                       pre.MaxHeadDataSize,
		MaxUpwardQueueCount:                   pre.MaxUpwardQueueCount,
		MaxUpwardQueueSize:                    pre.MaxUpwardQueueSize,
		MaxUpwardMessageSize:                  pre.MaxUpwardMessageSize,
		MaxUpwardMessageNumPerCandidate:       pre.MaxUpwardMessageNumPerCandidate,
		HRMPMaxMessageNumPerCandidate:         pre.HRMPMaxMessageNumPerCandidate,
		ValidationUpgradeCooldown:             pre.ValidationUpgradeCooldown,
		ValidationUpgradeDelay:                pre.ValidationUpgradeDelay,
		MaxPoVSize:                            pre.MaxPoVSize,
		MaxDownwardMessageSize:                pre.MaxDownwardMessageSize,
		HRMPSenderDeposit:                     pre.HRMPSenderDeposit,
		HRMPRecipientDeposit:                  pre.HRMPRecipientDeposit,
		HRMPChannelMaxCapacity:                pre.HRMPChannelMaxCapacity,
		HRMPChannelMaxTotalSize:               pre.HRMPChannelMaxTotalSize,
		HRMPMaxParachainInboundChannels:       pre.HRMPMaxParachainInboundChannels,
		HRMPMaxParachainOutboundChannels:      pre.HRMPMaxParachainOutboundChannels,
		HRMPChannelMaxMessageSize:             pre.HRMPChannelMaxMessageSize,
		CodeRetentionPeriod:                   pre.CodeRetentionPeriod,
		OnDemandCores:                         pre.OnDemandCores,
		OnDemandRetries:                       pre.OnDemandRetries,
		GroupRotationFrequency:                pre.GroupRotationFrequency,
		ParasAvailabilityPeriod:               pre.ParasAvailabilityPeriod,
		SchedulingLookahead:                   pre.SchedulingLookahead,
		MaxValidatorsPerCore:                  pre.MaxValidatorsPerCore,
		MaxValidators:                         pre.MaxValidators,
		DisputePeriod:                         pre.DisputePeriod,
		DisputePostConclusionAcceptancePeriod: pre.DisputePostConclusionAcceptancePeriod,
		NoShowSlots:                           pre.NoShowSlots,
		NDelayTranches:                        pre.NDelayTranches,
		ZerothDelayTrancheWidth:               pre.ZerothDelayTrancheWidth,
		NeededApprovals:                       pre.NeededApprovals,
		RelayVRFModuloSamples:                 pre.RelayVRFModuloSamples,
		PVFVotingTTL:                          pre.PVFVotingTTL,
		MinimumValidationUpgradeDelay:         pre.MinimumValidationUpgradeDelay,
		AsyncBackingParams:                    pre.AsyncBackingParams,
		ExecutorParams:                        pre.ExecutorParams,
		OnDemandQueueMaxSize:                  pre.OnDemandQueueMaxSize,
		OnDemandBaseFee:                       pre.OnDemandBaseFee,
		OnDemandFeeVariability:                pre.OnDemandFeeVariability,
		OnDemandTargetQueueUtilization:        pre.OnDemandTargetQueueUtilization,
		OnDemandTTL:                           pre.OnDemandTTL,
		MinimumBackingVotes:                   primitives.LegacyMinBackingVotes,
	}
}
