// Package configuration manages the persisted configuration records of
// the parachain host. The active configuration drives the host right
// now, while pending configurations are scheduled to take effect at
// future sessions.
package configuration

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"

	"github.com/btclayer2/polkadot-sdk/primitives"
)

const (
	// StorageComponent is the name under which this package records the
	// storage version of its persisted records.
	StorageComponent = "hostconfiguration"

	// CurrentStorageVersion is the storage version of the records this
	// package reads and writes.
	CurrentStorageVersion uint32 = 9
)

// Consistency errors reported by HostConfiguration.Validate.
var (
	ErrZeroGroupRotationFrequency       = errors.New("group rotation frequency is zero")
	ErrZeroParasAvailabilityPeriod      = errors.New("paras availability period is zero")
	ErrZeroNoShowSlots                  = errors.New("no show slots is zero")
	ErrMaxCodeSizeExceedsLimit          = errors.New("max code size exceeds hard limit")
	ErrMaxHeadDataSizeExceedsLimit      = errors.New("max head data size exceeds hard limit")
	ErrMaxPoVSizeExceedsLimit           = errors.New("max pov size exceeds hard limit")
	ErrMinimumValidationUpgradeDelayLow = errors.New("minimum validation upgrade delay does not exceed paras availability period")
	ErrValidationUpgradeDelayTooLow     = errors.New("validation upgrade delay must be at least two")
	ErrZeroMinimumBackingVotes          = errors.New("minimum backing votes is zero")
	ErrPerbillExceedsOne                = errors.New("perbill value exceeds one")
)

// AsyncBackingParams governs the availability of asynchronous backing.
type AsyncBackingParams struct {
	// MaxCandidateDepth is the number of candidates a parachain may
	// build ahead of the included head.
	MaxCandidateDepth uint32 `json:"maxCandidateDepth"`
	// AllowedAncestryLen is how far back from the included head a
	// candidate may build on top of.
	AllowedAncestryLen uint32 `json:"allowedAncestryLen"`
}

// ExecutorParam is a single customization of the executor environment.
type ExecutorParam struct {
	Kind  string `json:"kind"`
	Value uint64 `json:"value,omitempty"`
}

// ExecutorParams is the ordered set of executor environment
// customizations active for a configuration.
type ExecutorParams []ExecutorParam

// HostConfiguration holds all the tunable parameters of the parachain
// host. The fields follow the order of the persisted record.
type HostConfiguration struct {
	// The maximum validation code size, in bytes.
	MaxCodeSize uint32 `json:"maxCodeSize"`
	// The maximum head data size, in bytes.
	MaxHeadDataSize uint32 `json:"maxHeadDataSize"`
	// The maximum number of outstanding upward messages per parachain.
	MaxUpwardQueueCount uint32 `json:"maxUpwardQueueCount"`
	// The combined size bound of the upward message queue, in bytes.
	MaxUpwardQueueSize   uint32 `json:"maxUpwardQueueSize"`
	MaxUpwardMessageSize uint32 `json:"maxUpwardMessageSize"`
	// The maximum number of upward messages a candidate may carry.
	MaxUpwardMessageNumPerCandidate uint32 `json:"maxUpwardMessageNumPerCandidate"`
	// The maximum number of horizontal messages a candidate may carry.
	HRMPMaxMessageNumPerCandidate uint32 `json:"hrmpMaxMessageNumPerCandidate"`

	// The number of blocks a parachain has to wait between two code
	// upgrades, and the number of blocks after an upgrade is signalled
	// before it is applied.
	ValidationUpgradeCooldown primitives.BlockNumber `json:"validationUpgradeCooldown"`
	ValidationUpgradeDelay    primitives.BlockNumber `json:"validationUpgradeDelay"`

	// The maximum proof of validity size, in bytes.
	MaxPoVSize             uint32 `json:"maxPovSize"`
	MaxDownwardMessageSize uint32 `json:"maxDownwardMessageSize"`

	// Deposits and channel limits for horizontal message passing.
	HRMPSenderDeposit                primitives.Balance `json:"hrmpSenderDeposit"`
	HRMPRecipientDeposit             primitives.Balance `json:"hrmpRecipientDeposit"`
	HRMPChannelMaxCapacity           uint32             `json:"hrmpChannelMaxCapacity"`
	HRMPChannelMaxTotalSize          uint32             `json:"hrmpChannelMaxTotalSize"`
	HRMPMaxParachainInboundChannels  uint32             `json:"hrmpMaxParachainInboundChannels"`
	HRMPMaxParachainOutboundChannels uint32             `json:"hrmpMaxParachainOutboundChannels"`
	HRMPChannelMaxMessageSize        uint32             `json:"hrmpChannelMaxMessageSize"`

	// The number of blocks for which old validation code is kept
	// available after a code upgrade.
	CodeRetentionPeriod primitives.BlockNumber `json:"codeRetentionPeriod"`

	// On demand core allocation.
	OnDemandCores   uint32 `json:"onDemandCores"`
	OnDemandRetries uint32 `json:"onDemandRetries"`

	// Scheduling of validator groups onto availability cores.
	GroupRotationFrequency  primitives.BlockNumber `json:"groupRotationFrequency"`
	ParasAvailabilityPeriod primitives.BlockNumber `json:"parasAvailabilityPeriod"`
	SchedulingLookahead     uint32                 `json:"schedulingLookahead"`
	MaxValidatorsPerCore    *uint32                `json:"maxValidatorsPerCore,omitempty"`
	MaxValidators           *uint32                `json:"maxValidators,omitempty"`

	// Dispute and approval voting parameters.
	DisputePeriod                         primitives.SessionIndex `json:"disputePeriod"`
	DisputePostConclusionAcceptancePeriod primitives.BlockNumber  `json:"disputePostConclusionAcceptancePeriod"`
	NoShowSlots                           uint32                  `json:"noShowSlots"`
	NDelayTranches                        uint32                  `json:"nDelayTranches"`
	ZerothDelayTrancheWidth               uint32                  `json:"zerothDelayTrancheWidth"`
	NeededApprovals                       uint32                  `json:"neededApprovals"`
	RelayVRFModuloSamples                 uint32                  `json:"relayVrfModuloSamples"`

	// The number of sessions a PVF pre-checking vote stays open, and
	// the floor on how quickly an upgrade may be applied.
	PVFVotingTTL                  primitives.SessionIndex `json:"pvfVotingTtl"`
	MinimumValidationUpgradeDelay primitives.BlockNumber  `json:"minimumValidationUpgradeDelay"`

	AsyncBackingParams AsyncBackingParams `json:"asyncBackingParams"`
	ExecutorParams     ExecutorParams     `json:"executorParams,omitempty"`

	// On demand parachain economics.
	OnDemandQueueMaxSize           uint32                 `json:"onDemandQueueMaxSize"`
	OnDemandBaseFee                primitives.Balance     `json:"onDemandBaseFee"`
	OnDemandFeeVariability         primitives.Perbill     `json:"onDemandFeeVariability"`
	OnDemandTargetQueueUtilization primitives.Perbill     `json:"onDemandTargetQueueUtilization"`
	OnDemandTTL                    primitives.BlockNumber `json:"onDemandTtl"`

	// The minimum number of backing votes needed for a candidate.
	MinimumBackingVotes uint32 `json:"minimumBackingVotes"`
}

// DefaultHostConfiguration returns the configuration a host runs with
// before any has been persisted. The non-zero values keep the default
// internally consistent.
func DefaultHostConfiguration() HostConfiguration {
	return HostConfiguration{
		GroupRotationFrequency:                1,
		ParasAvailabilityPeriod:               1,
		NoShowSlots:                           1,
		ValidationUpgradeDelay:                2,
		SchedulingLookahead:                   1,
		DisputePeriod:                         6,
		DisputePostConclusionAcceptancePeriod: 100,
		PVFVotingTTL:                          2,
		MinimumValidationUpgradeDelay:         2,
		OnDemandQueueMaxSize:                  10_000,
		OnDemandBaseFee:                       10_000_000,
		OnDemandFeeVariability:                primitives.PerbillFromPercent(3),
		OnDemandTargetQueueUtilization:        primitives.PerbillFromPercent(25),
		OnDemandTTL:                           5,
		MinimumBackingVotes:                   primitives.LegacyMinBackingVotes,
	}
}

// Validate reports every respect in which the configuration is
// inconsistent. A nil result means the configuration is safe to
// activate or schedule.
func (c HostConfiguration) Validate() error {
	var errs error

	if c.GroupRotationFrequency == 0 {
		errs = multierr.Append(errs, ErrZeroGroupRotationFrequency)
	}

	if c.ParasAvailabilityPeriod == 0 {
		errs = multierr.Append(errs, ErrZeroParasAvailabilityPeriod)
	}

	if c.NoShowSlots == 0 {
		errs = multierr.Append(errs, ErrZeroNoShowSlots)
	}

	if c.MaxCodeSize > primitives.MaxCodeSize {
		errs = multierr.Append(errs, fmt.Errorf("%w: %d > %d", ErrMaxCodeSizeExceedsLimit, c.MaxCodeSize, primitives.MaxCodeSize))
	}

	if c.MaxHeadDataSize > primitives.MaxHeadDataSize {
		errs = multierr.Append(errs, fmt.Errorf("%w: %d > %d", ErrMaxHeadDataSizeExceedsLimit, c.MaxHeadDataSize, primitives.MaxHeadDataSize))
	}

	if c.MaxPoVSize > primitives.MaxPoVSize {
		errs = multierr.Append(errs, fmt.Errorf("%w: %d > %d", ErrMaxPoVSizeExceedsLimit, c.MaxPoVSize, primitives.MaxPoVSize))
	}

	if c.MinimumValidationUpgradeDelay <= c.ParasAvailabilityPeriod {
		errs = multierr.Append(errs, fmt.Errorf("%w: %d <= %d", ErrMinimumValidationUpgradeDelayLow, c.MinimumValidationUpgradeDelay, c.ParasAvailabilityPeriod))
	}

	if c.ValidationUpgradeDelay <= 1 {
		errs = multierr.Append(errs, fmt.Errorf("%w: got %d", ErrValidationUpgradeDelayTooLow, c.ValidationUpgradeDelay))
	}

	if c.MinimumBackingVotes == 0 {
		errs = multierr.Append(errs, ErrZeroMinimumBackingVotes)
	}

	if c.OnDemandFeeVariability > primitives.OnePerbill {
		errs = multierr.Append(errs, fmt.Errorf("%w: fee variability %d", ErrPerbillExceedsOne, c.OnDemandFeeVariability))
	}

	if c.OnDemandTargetQueueUtilization > primitives.OnePerbill {
		errs = multierr.Append(errs, fmt.Errorf("%w: target queue utilization %d", ErrPerbillExceedsOne, c.OnDemandTargetQueueUtilization))
	}

	return errs
}

// PendingConfig is a configuration scheduled to become active at the
// start of a future session.
type PendingConfig struct {
	AppliesAt primitives.SessionIndex `json:"appliesAt"`
	Config    HostConfiguration       `json:"config"`
}
