package graph

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// forUpdate applies a row-level "FOR UPDATE" lock when the underlying driver
// supports it. SQLite (used by the hermetic test suite, see graphtest) has no
// such clause and serializes writers at the database-file level regardless,
// so the lock is a postgres-only concern here.
func forUpdate(db *gorm.DB) *gorm.DB {
	if db.Dialector.Name() == "sqlite" {
		return db
	}
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}
