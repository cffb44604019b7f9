package services

import (
	"context"
	"database/sql"
	"errors"

	"duochat/pkg/tx"
)

// Transactor runs fn as one unit of work.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type TxManager struct {
	db *sql.DB
}

func NewTxManager(db *sql.DB) *TxManager {
	return &TxManager{db: db}
}

// WithTx joins a transaction already carried by ctx, otherwise begins one and
// commits it when fn succeeds.
func (tm *TxManager) WithTx(
	ctx context.Context,
	fn func(ctx context.Context) error,
) error {
	if _, ok := tx.From(ctx); ok {
		return fn(ctx)
	}
	sqlTx, err := tm.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx.WithTx(ctx, sqlTx)); err != nil {
		return errors.Join(err, ignoreDone(sqlTx.Rollback()))
	}
	return sqlTx.Commit()
}

func ignoreDone(err error) error {
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

// NopTxManager runs fn directly. The in-memory stores serialize their own
// writes, so there is nothing to begin or commit.
type NopTxManager struct{}

func (NopTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
