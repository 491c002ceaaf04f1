// Package primitives holds the scalar types shared by the parachains
// runtime services and their persisted records.
package primitives

// BlockNumber is the relay chain block number type.
type BlockNumber uint32

// SessionIndex identifies a session of the relay chain. Sessions are
// strictly ordered, a larger index is a later session.
type SessionIndex uint32

// Balance is the relay chain currency balance type.
type Balance uint64

// Perbill is a fixed point fraction with nine decimal places, so one
// billion parts equal one whole.
type Perbill uint32

// OnePerbill is the Perbill representation of 100%.
const OnePerbill Perbill = 1_000_000_000

// PerbillFromPercent converts a whole percentage into a Perbill.
func PerbillFromPercent(percent uint32) Perbill {
	return Perbill(percent * 10_000_000)
}

const (
	// MaxCodeSize is the maximum validation code size the relay chain
	// accepts, in bytes.
	MaxCodeSize uint32 = 3 * 1024 * 1024

	// MaxHeadDataSize is the maximum head data size the relay chain
	// accepts, in bytes.
	MaxHeadDataSize uint32 = 1 * 1024 * 1024

	// MaxPoVSize is the maximum proof of validity size the relay chain
	// accepts, in bytes.
	MaxPoVSize uint32 = 5 * 1024 * 1024

	// LegacyMinBackingVotes is the backing votes threshold that applied
	// everywhere before the threshold became a configuration value.
	LegacyMinBackingVotes uint32 = 2
)
