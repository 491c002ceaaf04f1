// Package migration holds the schema migrations of the persisted
// parachain host configuration records.
//
// Each migration gates itself on the storage version recorded for the
// host configuration component and reduces to a no-op when its prior
// schema is not the one on disk. Migrations therefore run on every
// startup, in the order returned by Migrations, and applying the list
// twice is indistinguishable from applying it once.
package migration
