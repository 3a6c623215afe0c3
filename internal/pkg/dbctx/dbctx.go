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

// Of is shorthand for a Context without a transaction.
func Of(ctx context.Context) Context { return Context{Ctx: ctx} }

// DB returns the transaction when set, else fallback, bound to Ctx.
func (c Context) DB(fallback *gorm.DB) *gorm.DB {
	db := fallback
	if c.Tx != nil {
		db = c.Tx
	}
	if c.Ctx != nil {
		db = db.WithContext(c.Ctx)
	}
	return db
}

// Context returns Ctx, or Background when unset.
func (c Context) Context() context.Context {
	if c.Ctx == nil {
		return context.Background()
	}
	return c.Ctx
}
