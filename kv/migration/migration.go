package migration

import (
	"context"
	"fmt"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/btclayer2/polkadot-sdk/kv"
)

// Store is the schema capable store migrations operate against.
type Store = kv.SchemaStore

// Cost accounts for the storage operations a migration performed in
// terms of whole item reads and writes.
type Cost struct {
	Reads  uint64
	Writes uint64
}

// Reads returns a Cost of n reads and no writes.
func Reads(n uint64) Cost {
	return Cost{Reads: n}
}

// ReadsWrites returns a Cost of r reads and w writes.
func ReadsWrites(r, w uint64) Cost {
	return Cost{Reads: r, Writes: w}
}

// Add returns the sum of c and other.
func (c Cost) Add(other Cost) Cost {
	return Cost{
		Reads:  c.Reads + other.Reads,
		Writes: c.Writes + other.Writes,
	}
}

// Spec is a specification for a particular migration. It describes the
// name of the migration and the up operation needed to fulfill it.
//
// Up runs unconditionally on every pass. Each migration inspects the
// storage version of the component it owns and reduces to a no-op when
// the version gate does not match, so applying a list of specs is
// idempotent.
type Spec interface {
	MigrationName() string
	Up(ctx context.Context, store Store) (Cost, error)
}

// PreChecker is implemented by specs which capture state ahead of a
// migration pass for later inspection by their PostCheck.
type PreChecker interface {
	PreCheck(ctx context.Context, store Store) ([]byte, error)
}

// PostChecker is implemented by specs which can assert the storage they
// own is well formed after a migration pass. The state argument carries
// whatever the matching PreCheck returned, and is nil when PostCheck
// runs standalone.
type PostChecker interface {
	PostCheck(ctx context.Context, store Store, state []byte) error
}

// UpFunc is the operation applied when a migration runs.
type UpFunc func(ctx context.Context, store Store) (Cost, error)

// Migration is a Spec built from a name and an up operation.
type Migration struct {
	name string
	up   UpFunc
}

// NewMigration constructs a Spec with the provided name and up operation.
func NewMigration(name string, up UpFunc) *Migration {
	return &Migration{
		name: name,
		up:   up,
	}
}

// MigrationName returns the name of the migration.
func (m *Migration) MigrationName() string {
	return m.name
}

// Up applies the up operation against the provided store.
func (m *Migration) Up(ctx context.Context, store Store) (Cost, error) {
	return m.up(ctx, store)
}

// Migrator is a type which manages migrations. It takes a list of
// migration specifications and applies all outstanding migrations,
// accumulating the storage cost of the pass.
type Migrator struct {
	logger *zap.Logger
	store  Store

	Specs []Spec

	clock clock.Clock
}

// NewMigrator constructs and configures a new Migrator.
func NewMigrator(logger *zap.Logger, store Store, ms ...Spec) (*Migrator, error) {
	m := &Migrator{
		logger: logger,
		store:  store,
		clock:  clock.New(),
	}

	// create the storage version bucket if it does not exist
	if err := store.CreateBucket(context.Background(), versionBucket); err != nil {
		return nil, err
	}

	m.AddMigrations(ms...)

	return m, nil
}

// AddMigrations appends the provided migration specs onto the Migrator.
func (m *Migrator) AddMigrations(ms ...Spec) {
	m.Specs = append(m.Specs, ms...)
}

// Up applies each migration in order and returns the accumulated cost
// of the pass. Migrations which implement PreChecker or PostChecker
// have those hooks run around their up operation, and a failed check
// aborts the pass.
func (m *Migrator) Up(ctx context.Context) (Cost, error) {
	wrapErr := func(err error) error {
		if err == nil {
			return nil
		}

		return fmt.Errorf("up: %w", err)
	}

	if len(m.Specs) > 0 {
		m.logger.Info("Bringing up metadata migrations", zap.Int("migration_count", len(m.Specs)))
	}

	var total Cost
	for _, spec := range m.Specs {
		started := m.clock.Now()

		m.logMigrationEvent(spec, "started")

		var state []byte
		if pre, ok := spec.(PreChecker); ok {
			s, err := pre.PreCheck(ctx, m.store)
			if err != nil {
				return total, wrapErr(fmt.Errorf("pre-check %q: %w", spec.MigrationName(), err))
			}
			state = s
		}

		cost, err := spec.Up(ctx, m.store)
		total = total.Add(cost)
		if err != nil {
			return total, wrapErr(fmt.Errorf("%q: %w", spec.MigrationName(), err))
		}

		if post, ok := spec.(PostChecker); ok {
			if err := post.PostCheck(ctx, m.store, state); err != nil {
				return total, wrapErr(fmt.Errorf("post-check %q: %w", spec.MigrationName(), err))
			}
		}

		m.logMigrationEvent(spec, "completed",
			zap.Uint64("reads", cost.Reads),
			zap.Uint64("writes", cost.Writes),
			zap.Duration("took", m.clock.Now().Sub(started)),
		)
	}

	return total, nil
}

// Verify runs the PostCheck of every spec which has one against the
// current contents of the store, without applying any migration. All
// failures are collected rather than aborting on the first.
func (m *Migrator) Verify(ctx context.Context) error {
	var errs error
	for _, spec := range m.Specs {
		post, ok := spec.(PostChecker)
		if !ok {
			continue
		}

		if err := post.PostCheck(ctx, m.store, nil); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("verify %q: %w", spec.MigrationName(), err))
		}
	}

	return errs
}

func (m *Migrator) logMigrationEvent(spec Spec, event string, fields ...zap.Field) {
	m.logger.Debug(
		"Executing metadata migration",
		append([]zap.Field{
			zap.String("migration_name", spec.MigrationName()),
			zap.String("migration_event", event),
		}, fields...)...,
	)
}
