package service

import (
	"context"
	"time"

	"assura/internal/gdpr/metrics"
	id "assura/pkg/domain"
	dErrors "assura/pkg/domain-errors"
	platformsync "assura/pkg/platform/sync"
)

// TxRunner provides the transactional boundary for GDPR mutations. key is
// the person the transaction is about; implementations may use it to
// serialise work on the same person.
type TxRunner interface {
	RunInTx(ctx context.Context, key id.PersonID, fn func(ctx context.Context, stores Stores) error) error
}

// DefaultTxTimeout bounds a transaction when the context has no deadline.
const DefaultTxTimeout = 5 * time.Second

// Checkpointer is implemented by in-memory stores that can put one person's
// rows back the way they were.
type Checkpointer interface {
	Checkpoint(personID id.PersonID) (restore func())
}

// ShardedTx is the in-memory TxRunner. Work on the same person is
// serialised through a sharded mutex. Stores implementing Checkpointer are
// checkpointed before fn runs and restored when fn fails or panics, so a
// failed transaction leaves none of its writes behind.
type ShardedTx struct {
	mu          *platformsync.ShardedMutex[id.PersonID]
	stores      Stores
	checkpoints []Checkpointer
	timeout     time.Duration
	metrics     *metrics.Metrics
}

func NewShardedTx(stores Stores, m *metrics.Metrics) *ShardedTx {
	t := &ShardedTx{
		mu:      platformsync.NewShardedMutex[id.PersonID](),
		stores:  stores,
		timeout: DefaultTxTimeout,
		metrics: m,
	}
	for _, st := range []any{stores.Persons, stores.Consents, stores.Audit} {
		if c, ok := st.(Checkpointer); ok {
			t.checkpoints = append(t.checkpoints, c)
		}
	}
	return t
}

func (t *ShardedTx) RunInTx(ctx context.Context, key id.PersonID, fn func(ctx context.Context, stores Stores) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	lockStart := time.Now()
	unlock := t.mu.Lock(key)
	t.metrics.ObserveShardLockWait(time.Since(lockStart).Seconds())
	defer unlock()

	// The wait may have outlived the deadline.
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	restores := make([]func(), len(t.checkpoints))
	for i, c := range t.checkpoints {
		restores[i] = c.Checkpoint(key)
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		for i := len(restores) - 1; i >= 0; i-- {
			restores[i]()
		}
	}()
	if err := fn(ctx, t.stores); err != nil {
		return err
	}
	committed = true
	return nil
}
