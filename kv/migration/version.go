package migration

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/btclayer2/polkadot-sdk/kv"
)

// versionBucket holds one record per component, keyed by component name,
// carrying the storage version of that component's persisted records as
// a big endian uint32.
var versionBucket = []byte("storageversionsv1")

// ComponentVersion pairs a component name with its recorded storage version.
type ComponentVersion struct {
	Component string
	Version   uint32
}

// EnsureVersionBucket creates the bucket which backs the storage version
// records. Stores initialized outside the migration framework call this
// before stamping their components.
func EnsureVersionBucket(ctx context.Context, store kv.SchemaStore) error {
	if err := store.CreateBucket(ctx, versionBucket); err != nil {
		return fmt.Errorf("creating version bucket: %w", err)
	}

	return nil
}

// StorageVersion returns the storage version recorded for the named
// component. A component which has never recorded a version reports
// version zero.
func StorageVersion(ctx context.Context, store kv.Store, component string) (uint32, error) {
	var version uint32
	if err := store.View(ctx, func(tx kv.Tx) error {
		v, err := StorageVersionTx(tx, component)
		if err != nil {
			return err
		}

		version = v
		return nil
	}); err != nil && !kv.IsNotFound(err) {
		return 0, fmt.Errorf("reading storage version for %q: %w", component, err)
	}

	return version, nil
}

// SetStorageVersion records version as the storage version of the named
// component.
func SetStorageVersion(ctx context.Context, store kv.Store, component string, version uint32) error {
	if err := store.Update(ctx, func(tx kv.Tx) error {
		return SetStorageVersionTx(tx, component, version)
	}); err != nil {
		return fmt.Errorf("recording storage version %d for %q: %w", version, component, err)
	}

	return nil
}

// StorageVersionTx reads the storage version of the named component
// within an open transaction. A missing record reports version zero.
func StorageVersionTx(tx kv.Tx, component string) (uint32, error) {
	bkt, err := tx.Bucket(versionBucket)
	if err != nil {
		return 0, err
	}

	v, err := bkt.Get([]byte(component))
	if errors.Is(err, kv.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	version, err := decodeVersion(v)
	if err != nil {
		return 0, fmt.Errorf("component %q: %w", component, err)
	}

	return version, nil
}

// SetStorageVersionTx records version as the storage version of the
// named component within an open write transaction.
func SetStorageVersionTx(tx kv.Tx, component string, version uint32) error {
	bkt, err := tx.Bucket(versionBucket)
	if err != nil {
		return err
	}

	return bkt.Put([]byte(component), encodeVersion(version))
}

// StorageVersions lists the storage version of every component recorded
// on the store in lexicographical component order. A store without a
// version bucket reports no versions.
func StorageVersions(ctx context.Context, store kv.Store) ([]ComponentVersion, error) {
	var versions []ComponentVersion
	if err := store.View(ctx, func(tx kv.Tx) error {
		bkt, err := tx.Bucket(versionBucket)
		if err != nil {
			return err
		}

		cursor, err := bkt.Cursor()
		if err != nil {
			return err
		}

		for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
			version, err := decodeVersion(v)
			if err != nil {
				return fmt.Errorf("component %q: %w", string(k), err)
			}

			versions = append(versions, ComponentVersion{
				Component: string(k),
				Version:   version,
			})
		}

		return nil
	}); err != nil {
		if kv.IsNotFound(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("listing storage versions: %w", err)
	}

	return versions, nil
}

func encodeVersion(version uint32) []byte {
	v := make([]byte, 4)
	binary.BigEndian.PutUint32(v, version)
	return v
}

func decodeVersion(v []byte) (uint32, error) {
	if len(v) != 4 {
		return 0, fmt.Errorf("invalid storage version encoding length %d", len(v))
	}

	return binary.BigEndian.Uint32(v), nil
}
