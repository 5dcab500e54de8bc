package storage

import "poolScope/internal/model"

// Storage defines a sink for collected pool states and the failures
// that accompanied them.
type Storage interface {
	PutStateBatch(states []*model.PoolState) error
	PutErrorBatch(errs []model.CollectError) error
}
