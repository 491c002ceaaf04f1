package migration

import (
	"github.com/benbjohnson/clock"
)

// MigratorSetClock sets the clock on the migrator.
// This function is only reachable via tests defined within this
// package folder.
func MigratorSetClock(migrator *Migrator, c clock.Clock) {
	migrator.clock = c
}
