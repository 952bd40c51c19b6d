package db

import (
	"context"

	"gorm.io/gorm"
)

// TxRunner runs fn inside a single database transaction. The transaction
// commits only when fn returns nil; any error or panic rolls it back.
type TxRunner interface {
	InTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type gormTxRunner struct {
	db *gorm.DB
}

// NewTxRunner returns a TxRunner backed by gorm transactions on db.
func NewTxRunner(db *gorm.DB) TxRunner {
	return gormTxRunner{db: db}
}

func (r gormTxRunner) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if r.db == nil {
		return gorm.ErrInvalidDB
	}
	return r.db.WithContext(ctx).Transaction(fn)
}
