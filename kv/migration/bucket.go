package migration

import "context"

// CreateBuckets returns a Spec which creates the provided buckets on
// the schema store. Bucket creation is idempotent and carries no
// storage cost.
func CreateBuckets(name string, buckets ...[]byte) Spec {
	return NewMigration(name, func(ctx context.Context, store Store) (Cost, error) {
		for _, bucket := range buckets {
			if err := store.CreateBucket(ctx, bucket); err != nil {
				return Cost{}, err
			}
		}
		return Cost{}, nil
	})
}
