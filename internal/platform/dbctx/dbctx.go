package dbctx

import (
	"context"

	"gorm.io/gorm"
)

// Context bundles a request context with an optional GORM transaction.
// Repos treat a nil Tx as "use the pool handle"; callers that need
// transactional semantics (the reconciler, the materialization cascade, the
// approval engine) always populate Tx from an open gorm.DB.Transaction.
type Context struct {
	Ctx context.Context
	Tx  *gorm.DB
}

func (c Context) WithTx(tx *gorm.DB) Context {
	return Context{Ctx: c.Ctx, Tx: tx}
}
