package repository

import (
	"gorm.io/gorm"
)

// TxRunner runs a function inside a single database transaction. Every
// multi-record commit (status + log + wallet credit) goes through this so
// no client can observe a half-applied transition.
type TxRunner interface {
	InTransaction(fn func(tx *gorm.DB) error) error
}

type gormTxRunner struct {
	db *gorm.DB
}

// NewTxRunner creates a TxRunner backed by the given database handle
func NewTxRunner(db *gorm.DB) TxRunner {
	return &gormTxRunner{db: db}
}

func (r *gormTxRunner) InTransaction(fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(fn)
}
