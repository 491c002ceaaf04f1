package kv

import (
	"context"
	"errors"
)

var (
	// ErrKeyNotFound is the error returned when the key requested is not found.
	ErrKeyNotFound = errors.New("key not found")
	// ErrBucketNotFound is the error returned when the bucket requested has not
	// been created on the store.
	ErrBucketNotFound = errors.New("bucket not found")
	// ErrTxNotWritable is the error returned when a mutable operation is called during
	// a non-writable transaction.
	ErrTxNotWritable = errors.New("transaction is not writable")
)

// IsNotFound reports whether err indicates a missing key or bucket.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrKeyNotFound) || errors.Is(err, ErrBucketNotFound)
}

// Store is an interface for a generic key value store. It is modeled after
// the boltdb database struct.
type Store interface {
	// View opens up a transaction that will not write to any data. Implementing interfaces
	// should take care to ensure that all view transactions do not mutate any data.
	View(context.Context, func(Tx) error) error
	// Update opens up a transaction that will mutate data.
	Update(context.Context, func(Tx) error) error
}

// SchemaStore is a Store which supports creating and deleting buckets.
// Bucket creation is explicit: transactions against buckets which have not
// been created return ErrBucketNotFound.
type SchemaStore interface {
	Store

	// CreateBucket creates a bucket on the underlying store if it does not exist.
	CreateBucket(ctx context.Context, bucket []byte) error
	// DeleteBucket deletes a bucket on the underlying store if it exists.
	DeleteBucket(ctx context.Context, bucket []byte) error
}

// Tx is a transaction in the store.
type Tx interface {
	// Bucket returns the bucket named b. The bucket must have been created
	// beforehand via SchemaStore.CreateBucket.
	Bucket(b []byte) (Bucket, error)
	// Context returns the context for the transaction.
	Context() context.Context
	// WithContext sets the context for the transaction.
	WithContext(ctx context.Context)
}

// Bucket is the abstraction used to perform get/put/delete/get-many operations
// in a key value store.
type Bucket interface {
	Get(key []byte) ([]byte, error)
	Cursor() (Cursor, error)
	// Put should error if the transaction it was called in is not writable.
	Put(key, value []byte) error
	// Delete should error if the transaction it was called in is not writable.
	Delete(key []byte) error
}

// Cursor is an abstraction for iterating/ranging through data. A concrete implementation
// of a cursor can be found in static_cursor.go.
type Cursor interface {
	Seek(prefix []byte) (k []byte, v []byte)
	First() (k []byte, v []byte)
	Last() (k []byte, v []byte)
	Next() (k []byte, v []byte)
	Prev() (k []byte, v []byte)
}
