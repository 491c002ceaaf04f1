package primitives_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/btclayer2/polkadot-sdk/primitives"
)

func TestPerbillFromPercent(t *testing.T) {
	assert.Equal(t, primitives.Perbill(0), primitives.PerbillFromPercent(0))
	assert.Equal(t, primitives.Perbill(30_000_000), primitives.PerbillFromPercent(3))
	assert.Equal(t, primitives.Perbill(250_000_000), primitives.PerbillFromPercent(25))
	assert.Equal(t, primitives.OnePerbill, primitives.PerbillFromPercent(100))
}
