package configuration_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/btclayer2/polkadot-sdk/parachains/configuration"
	"github.com/btclayer2/polkadot-sdk/primitives"
)

func TestDefaultHostConfiguration(t *testing.T) {
	config := configuration.DefaultHostConfiguration()

	require.NoError(t, config.Validate())

	assert.Equal(t, primitives.BlockNumber(1), config.GroupRotationFrequency)
	assert.Equal(t, primitives.BlockNumber(1), config.ParasAvailabilityPeriod)
	assert.Equal(t, uint32(1), config.NoShowSlots)
	assert.Equal(t, primitives.BlockNumber(2), config.ValidationUpgradeDelay)
	assert.Equal(t, primitives.BlockNumber(2), config.MinimumValidationUpgradeDelay)
	assert.Equal(t, primitives.SessionIndex(6), config.DisputePeriod)
	assert.Equal(t, primitives.PerbillFromPercent(3), config.OnDemandFeeVariability)
	assert.Equal(t, primitives.PerbillFromPercent(25), config.OnDemandTargetQueueUtilization)
	assert.Equal(t, primitives.LegacyMinBackingVotes, config.MinimumBackingVotes)
	assert.Nil(t, config.MaxValidatorsPerCore)
	assert.Nil(t, config.MaxValidators)
	assert.Zero(t, config.MaxCodeSize)
}

func TestHostConfigurationValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(config *configuration.HostConfiguration)
		wantErr error
	}{
		{
			name:   "default is consistent",
			modify: func(*configuration.HostConfiguration) {},
		},
		{
			name: "zero group rotation frequency",
			modify: func(config *configuration.HostConfiguration) {
				config.GroupRotationFrequency = 0
			},
			wantErr: configuration.ErrZeroGroupRotationFrequency,
		},
		{
			name: "zero paras availability period",
			modify: func(config *configuration.HostConfiguration) {
				config.ParasAvailabilityPeriod = 0
			},
			wantErr: configuration.ErrZeroParasAvailabilityPeriod,
		},
		{
			name: "zero no show slots",
			modify: func(config *configuration.HostConfiguration) {
				config.NoShowSlots = 0
			},
			wantErr: configuration.ErrZeroNoShowSlots,
		},
		{
			name: "zero minimum backing votes",
			modify: func(config *configuration.HostConfiguration) {
				config.MinimumBackingVotes = 0
			},
			wantErr: configuration.ErrZeroMinimumBackingVotes,
		},
		{
			name: "max code size above hard limit",
			modify: func(config *configuration.HostConfiguration) {
				config.MaxCodeSize = primitives.MaxCodeSize + 1
			},
			wantErr: configuration.ErrMaxCodeSizeExceedsLimit,
		},
		{
			name: "max head data size above hard limit",
			modify: func(config *configuration.HostConfiguration) {
				config.MaxHeadDataSize = primitives.MaxHeadDataSize + 1
			},
			wantErr: configuration.ErrMaxHeadDataSizeExceedsLimit,
		},
		{
			name: "max pov size above hard limit",
			modify: func(config *configuration.HostConfiguration) {
				config.MaxPoVSize = primitives.MaxPoVSize + 1
			},
			wantErr: configuration.ErrMaxPoVSizeExceedsLimit,
		},
		{
			name: "minimum validation upgrade delay within availability period",
			modify: func(config *configuration.HostConfiguration) {
				config.ParasAvailabilityPeriod = 55
				config.MinimumValidationUpgradeDelay = 20
			},
			wantErr: configuration.ErrMinimumValidationUpgradeDelayLow,
		},
		{
			name: "validation upgrade delay of one",
			modify: func(config *configuration.HostConfiguration) {
				config.ValidationUpgradeDelay = 1
			},
			wantErr: configuration.ErrValidationUpgradeDelayTooLow,
		},
		{
			name: "fee variability above one",
			modify: func(config *configuration.HostConfiguration) {
				config.OnDemandFeeVariability = primitives.OnePerbill + 1
			},
			wantErr: configuration.ErrPerbillExceedsOne,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := configuration.DefaultHostConfiguration()
			tt.modify(&config)

			err := config.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}

			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("all violations reported together", func(t *testing.T) {
		config := configuration.DefaultHostConfiguration()
		config.GroupRotationFrequency = 0
		config.NoShowSlots = 0
		config.MinimumBackingVotes = 0

		err := config.Validate()
		require.Error(t, err)
		assert.Len(t, multierr.Errors(err), 3)
	})
}

func TestHostConfigurationJSON(t *testing.T) {
	maxValidators := uint32(200)

	config := configuration.DefaultHostConfiguration()
	config.MaxPoVSize = 1111
	config.NeededApprovals = 69
	config.MaxValidators = &maxValidators
	config.AsyncBackingParams = configuration.AsyncBackingParams{
		MaxCandidateDepth:  4,
		AllowedAncestryLen: 2,
	}
	config.ExecutorParams = configuration.ExecutorParams{
		{Kind: "maxMemoryPages", Value: 8192},
		{Kind: "wasmExtBulkMemory"},
	}

	v, err := json.Marshal(config)
	require.NoError(t, err)

	assert.Contains(t, string(v), `"maxPovSize":1111`)
	assert.Contains(t, string(v), `"neededApprovals":69`)
	assert.Contains(t, string(v), `"maxValidators":200`)
	assert.Contains(t, string(v), `"minimumBackingVotes":2`)
	assert.NotContains(t, string(v), "maxValidatorsPerCore")

	var got configuration.HostConfiguration
	require.NoError(t, json.Unmarshal(v, &got))
	assert.Equal(t, config, got)
}
