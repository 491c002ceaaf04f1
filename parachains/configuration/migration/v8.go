package migration

import (
	"github.com/btclayer2/polkadot-sdk/parachains/configuration"
	"github.com/btclayer2/polkadot-sdk/primitives"
)

// V8HostConfiguration is the schema v8 shape of the host configuration
// record, frozen at the point v9 superseded it.
type V8HostConfiguration struct {
	MaxCodeSize                           uint32                           `json:"maxCodeSize"`
	MaxHeadDataSize                       uint32                           `json:"maxHeadDataSize"`
	MaxUpwardQueueCount                   uint32                           `json:"maxUpwardQueueCount"`
	MaxUpwardQueueSize                    uint32                           `json:"maxUpwardQueueSize"`
	MaxUpwardMessageSize                  uint32                           `json:"maxUpwardMessageSize"`
	MaxUpwardMessageNumPerCandidate       uint32                           `json:"maxUpwardMessageNumPerCandidate"`
	HRMPMaxMessageNumPerCandidate         uint32                           `json:"hrmpMaxMessageNumPerCandidate"`
	ValidationUpgradeCooldown             primitives.BlockNumber           `json:"validationUpgradeCooldown"`
	ValidationUpgradeDelay                primitives.BlockNumber           `json:"validationUpgradeDelay"`
	MaxPoVSize                            uint32                           `json:"maxPovSize"`
	MaxDownwardMessageSize                uint32                           `json:"maxDownwardMessageSize"`
	HRMPSenderDeposit                     primitives.Balance               `json:"hrmpSenderDeposit"`
	HRMPRecipientDeposit                  primitives.Balance               `json:"hrmpRecipientDeposit"`
	HRMPChannelMaxCapacity                uint32                           `json:"hrmpChannelMaxCapacity"`
	HRMPChannelMaxTotalSize               uint32                           `json:"hrmpChannelMaxTotalSize"`
	HRMPMaxParachainInboundChannels       uint32                           `json:"hrmpMaxParachainInboundChannels"`
	HRMPMaxParachainOutboundChannels      uint32                           `json:"hrmpMaxParachainOutboundChannels"`
	HRMPChannelMaxMessageSize             uint32                           `json:"hrmpChannelMaxMessageSize"`
	CodeRetentionPeriod                   primitives.BlockNumber           `json:"codeRetentionPeriod"`
	OnDemandCores                         uint32                           `json:"onDemandCores"`
	OnDemandRetries                       uint32                           `json:"onDemandRetries"`
	GroupRotationFrequency                primitives.BlockNumber           `json:"groupRotationFrequency"`
	ParasAvailabilityPeriod               primitives.BlockNumber           `json:"parasAvailabilityPeriod"`
	SchedulingLookahead                   uint32                           `json:"schedulingLookahead"`
	MaxValidatorsPerCore                  *uint32                          `json:"maxValidatorsPerCore,omitempty"`
	MaxValidators                         *uint32                          `json:"maxValidators,omitempty"`
	DisputePeriod                         primitives.SessionIndex          `json:"disputePeriod"`
	DisputePostConclusionAcceptancePeriod primitives.BlockNumber           `json:"disputePostConclusionAcceptancePeriod"`
	NoShowSlots                           uint32                           `json:"noShowSlots"`
	NDelayTranches                        uint32                           `json:"nDelayTranches"`
	ZerothDelayTrancheWidth               uint32                           `json:"zerothDelayTrancheWidth"`
	NeededApprovals                       uint32                           `json:"neededApprovals"`
	RelayVRFModuloSamples                 uint32                           `json:"relayVrfModuloSamples"`
	PVFVotingTTL                          primitives.SessionIndex          `json:"pvfVotingTtl"`
	MinimumValidationUpgradeDelay         primitives.BlockNumber           `json:"minimumValidationUpgradeDelay"`
	AsyncBackingParams                    configuration.AsyncBackingParams `json:"asyncBackingParams"`
	ExecutorParams                        configuration.ExecutorParams     `json:"executorParams,omitempty"`
	OnDemandQueueMaxSize                  uint32                           `json:"onDemandQueueMaxSize"`
	OnDemandBaseFee                       primitives.Balance               `json:"onDemandBaseFee"`
	OnDemandFeeVariability                primitives.Perbill               `json:"onDemandFeeVariability"`
	OnDemandTargetQueueUtilization        primitives.Perbill               `json:"onDemandTargetQueueUtilization"`
	OnDemandTTL                           primitives.BlockNumber           `json:"onDemandTtl"`
}

// V8PendingConfig is a schema v8 configuration scheduled to become
// active at the start of a future session.
type V8PendingConfig struct {
	AppliesAt primitives.SessionIndex `json:"appliesAt"`
	Config    V8HostConfiguration     `json:"config"`
}

// DefaultV8HostConfiguration returns the configuration a schema v8 host
// ran with before any was persisted. It agrees with the current default
// on every shared field.
func DefaultV8HostConfiguration() V8HostConfiguration {
	return V8HostConfiguration{
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
	}
}
