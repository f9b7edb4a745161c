package services

import (
	"fmt"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"akkani-backend/models/users"
)

// newTestDB opens an in-memory sqlite database scoped to one test. The
// named shared-cache DSN keeps gorm's pooled connections on the same
// database.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(&users.User{}, &users.OAuthToken{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}
