package inmem

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/btree"

	"github.com/btclayer2/polkadot-sdk/kv"
)

// ensure *KVStore implements kv.SchemaStore
var _ kv.SchemaStore = (*KVStore)(nil)

// KVStore is an in memory btree backed kv.SchemaStore implementation.
// It is intended for testing and for try-runtime style dry runs where
// durability is not required.
type KVStore struct {
	mu      sync.RWMutex
	buckets map[string]*bucket
}

// NewKVStore creates an instance of a KVStore.
func NewKVStore() *KVStore {
	return &KVStore{
		buckets: map[string]*bucket{},
	}
}

// View opens up a transaction with a read lock.
func (s *KVStore) View(ctx context.Context, fn func(kv.Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return fn(&Tx{
		kv:       s,
		writable: false,
		ctx:      ctx,
	})
}

// Update opens up a transaction with a write lock.
func (s *KVStore) Update(ctx context.Context, fn func(kv.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return fn(&Tx{
		kv:       s,
		writable: true,
		ctx:      ctx,
	})
}

// CreateBucket creates a btree bucket at the provided name if one does
// not already exist.
func (s *KVStore) CreateBucket(ctx context.Context, name []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.buckets[string(name)]; !ok {
		s.buckets[string(name)] = &bucket{btree: btree.New(2)}
	}

	return nil
}

// DeleteBucket removes the bucket at the provided name if it exists.
func (s *KVStore) DeleteBucket(ctx context.Context, name []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.buckets, string(name))

	return nil
}

// Buckets returns the names of all created buckets in lexicographical order.
func (s *KVStore) Buckets(ctx context.Context) [][]byte {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([][]byte, 0, len(s.buckets))
	for name := range s.buckets {
		names = append(names, []byte(name))
	}
	sort.Slice(names, func(i, j int) bool {
		return bytes.Compare(names[i], names[j]) < 0
	})
	return names
}

// Tx is an in memory transaction.
// TODO: make transactions actually transactional
type Tx struct {
	kv       *KVStore
	writable bool
	ctx      context.Context
}

// Context returns the context for the transaction.
func (t *Tx) Context() context.Context {
	return t.ctx
}

// WithContext sets the context for the transaction.
func (t *Tx) WithContext(ctx context.Context) {
	t.ctx = ctx
}

// Bucket retrieves the bucket at the provided name. It returns
// kv.ErrBucketNotFound when the bucket has not been created.
func (t *Tx) Bucket(b []byte) (kv.Bucket, error) {
	bkt, ok := t.kv.buckets[string(b)]
	if !ok {
		return nil, fmt.Errorf("bucket %q: %w", string(b), kv.ErrBucketNotFound)
	}

	return &bucketTx{
		bucket:   bkt,
		writable: t.writable,
	}, nil
}

// item is a btree item carrying a key value pair.
type item struct {
	key   []byte
	value []byte
}

// Less reports whether i is ordered before other.
func (i *item) Less(other btree.Item) bool {
	return bytes.Compare(i.key, other.(*item).key) < 0
}

// bucket is a non thread safe collection of key value pairs.
// Thread safety is provided by the lock held over the transaction
// that reaches it.
type bucket struct {
	btree *btree.BTree
}

// bucketTx scopes a bucket to the writability of the transaction
// it was retrieved in.
type bucketTx struct {
	bucket   *bucket
	writable bool
}

// Get retrieves the value at the provided key. It returns
// kv.ErrKeyNotFound when no value is present.
func (b *bucketTx) Get(key []byte) ([]byte, error) {
	i := b.bucket.btree.Get(&item{key: key})
	if i == nil {
		return nil, kv.ErrKeyNotFound
	}

	j, ok := i.(*item)
	if !ok {
		return nil, fmt.Errorf("error item is type %T not *item", i)
	}

	return j.value, nil
}

// Put stores the key value pair. It fails with kv.ErrTxNotWritable
// inside a read only transaction.
func (b *bucketTx) Put(key []byte, value []byte) error {
	if !b.writable {
		return kv.ErrTxNotWritable
	}

	_ = b.bucket.btree.ReplaceOrInsert(&item{key: key, value: value})
	return nil
}

// Delete removes the key from the bucket. It fails with
// kv.ErrTxNotWritable inside a read only transaction.
func (b *bucketTx) Delete(key []byte) error {
	if !b.writable {
		return kv.ErrTxNotWritable
	}

	_ = b.bucket.btree.Delete(&item{key: key})
	return nil
}

// Cursor returns a static cursor over the key value pairs currently
// present in the bucket.
// TODO: implement direct btree cursor rather than pairs snapshot
func (b *bucketTx) Cursor() (kv.Cursor, error) {
	pairs := make([]kv.Pair, 0, b.bucket.btree.Len())

	b.bucket.btree.Ascend(func(i btree.Item) bool {
		j, ok := i.(*item)
		if !ok {
			return false
		}

		pairs = append(pairs, kv.Pair{Key: j.key, Value: j.value})
		return true
	})

	return kv.NewStaticCursor(pairs), nil
}
