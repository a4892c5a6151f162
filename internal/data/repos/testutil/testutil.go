package testutil

import (
	"os"
	"testing"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/FernandoPintoL/plataforma-educativa-sub011/internal/db"
	"github.com/FernandoPintoL/plataforma-educativa-sub011/internal/platform/logger"
)

// Logger returns a quiet logger for repository tests.
func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	log, err := logger.New("test")
	if err != nil {
		tb.Fatalf("logger: %v", err)
	}
	return log
}

// DB opens the database named by TEST_POSTGRES_DSN and migrates the schema.
// Tests that need a real database skip when the variable is unset, so the
// suite stays runnable on machines without Postgres.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		tb.Skip("TEST_POSTGRES_DSN not set; skipping database test")
	}
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		tb.Fatalf("open test database: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		tb.Fatalf("migrate test database: %v", err)
	}
	return gdb
}

// Tx runs the test inside a transaction that is always rolled back, keeping
// the shared test database clean between cases.
func Tx(tb testing.TB) *gorm.DB {
	tb.Helper()
	gdb := DB(tb)
	tx := gdb.Begin()
	if tx.Error != nil {
		tb.Fatalf("begin: %v", tx.Error)
	}
	tb.Cleanup(func() { tx.Rollback() })
	return tx
}
