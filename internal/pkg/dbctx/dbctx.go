package dbctx

import (
	"context"

	"gorm.io/gorm"
)

// Context bundles a request context with an optional GORM transaction.
type Context struct {
	Ctx context.Context
	Tx  *gorm.DB
}

// InTx runs fn inside one transaction. When dbc already carries a transaction
// fn joins it (gorm turns the nested call into a savepoint), otherwise a new
// transaction is opened on db.
func InTx(dbc Context, db *gorm.DB, fn func(dbc Context) error) error {
	ctx := dbc.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	base := dbc.Tx
	if base == nil {
		base = db
	}
	return base.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(Context{Ctx: ctx, Tx: tx})
	})
}
