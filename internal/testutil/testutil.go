package testutil

import (
	"context"
	"strings"
	"testing"

	"gorm.io/gorm"

	"userapi/internal/model"
	"userapi/internal/platform/database"
)

// OpenInMemoryDB opens a migrated in-memory SQLite database named after the
// test. The database is dropped when the test finishes.
func OpenInMemoryDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())
	db, err := database.Open(context.Background(), database.Options{
		URL: "file:" + name + "?mode=memory&cache=shared",
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = database.Close(db) })

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

// CountUsers returns the number of rows in the users table.
func CountUsers(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var count int64
	if err := db.Model(&model.User{}).Count(&count).Error; err != nil {
		t.Fatalf("count users: %v", err)
	}
	return count
}
