package cs

// ObjectStore is exported for testing
type ObjectStore = objectStore

// NewWithStore creates a Repository over a custom object store for testing
func NewWithStore(bucket, prefix string, store objectStore) *Repository {
	return newRepository(bucket, prefix, store)
}
