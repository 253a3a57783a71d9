package main

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"assura/internal/encryption"
	gdprservice "assura/internal/gdpr/service"
	gdprstore "assura/internal/gdpr/store"
	insured "assura/internal/insured/models"
	insuredstore "assura/internal/insured/store"
	"assura/internal/platform/database"
	id "assura/pkg/domain"
	dErrors "assura/pkg/domain-errors"
)

// gdprPostgresTx runs GDPR mutations in one database transaction. Row locks
// taken inside fn (SELECT ... FOR UPDATE) serialise work on the same person,
// so the key is unused.
type gdprPostgresTx struct {
	pool    *database.Pool
	codec   *encryption.Codec[insured.Person]
	timeout time.Duration
}

func newGDPRPostgresTx(pool *database.Pool, codec *encryption.Codec[insured.Person]) *gdprPostgresTx {
	return &gdprPostgresTx{pool: pool, codec: codec, timeout: gdprservice.DefaultTxTimeout}
}

func (t *gdprPostgresTx) RunInTx(ctx context.Context, _ id.PersonID, fn func(ctx context.Context, stores gdprservice.Stores) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	err := t.pool.InTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted}, func(tx *sql.Tx) error {
		return fn(ctx, gdprservice.Stores{
			Persons:  insuredstore.NewPostgresTx(tx, t.codec),
			Consents: gdprstore.NewPostgresConsentTx(tx),
			Audit:    gdprstore.NewPostgresAuditTx(tx),
		})
	})
	var domainErr *dErrors.Error
	if err != nil && !errors.As(err, &domainErr) {
		// Begin and commit failures carry no domain code.
		return dErrors.Wrap(err, dErrors.CodeInternal, "gdpr transaction failed")
	}
	return err
}
