// Package graphtest provides a hermetic in-memory GORM database for the
// Graph Store, Materialization Engine, Approval Engine, and Query/
// Projection Service test suites. It stands in for the package-level
// testutil.DB (internal/data/repos/testutil) used by the teacher's other
// domains, which requires a live Postgres via TEST_POSTGRES_DSN; this
// domain's structs carry no Postgres-only column defaults, so an
// in-memory gorm.io/driver/sqlite database (the same library the teacher
// reaches for in local/dev tooling) is enough to exercise every query.
package graphtest

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	domain "github.com/yungbote/neurobridge-backend/internal/domain"
)

// DB returns a fresh in-memory database migrated with every Graph Store
// table, isolated per test via a unique DSN (":memory:" shares state across
// connections in the same process unless named).
func DB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&domain.Stage{},
		&domain.Task{},
		&domain.StageExecution{},
		&domain.TaskExecution{},
		&domain.Application{},
		&domain.ApprovalRule{},
		&domain.ApprovalLog{},
		&domain.TaskApplyDetail{},
	); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}
