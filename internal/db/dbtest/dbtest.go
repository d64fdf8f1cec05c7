// Package dbtest runs the durable store against an in-memory SQLite database.
package dbtest

import (
	"context"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sociallink/backend/internal/db"
)

// New returns a migrated database that is closed when the test ends. Every call
// gets its own database.
func New(t testing.TB) *db.DB {
	t.Helper()

	g, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := g.DB()
	if err != nil {
		t.Fatal(err)
	}
	// each connection to :memory: is a separate database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	d := &db.DB{DB: g}
	if err := d.Migrate(context.Background()); err != nil {
		t.Fatal(err)
	}
	return d
}
