// Package dbtest opens throwaway SQLite databases for tests.
package dbtest

import (
	"fmt"
	"strings"
	"testing"

	"campusdesk/internal/authz"
	"campusdesk/internal/db"
	"campusdesk/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// New returns a migrated in-memory database private to t. A single
// connection serialises concurrent transactions the way row locks would, so
// tests that need a lost race inject the competing row from a create callback.
func New(t testing.TB) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000&_foreign_keys=1", name)

	conn, err := gorm.Open(sqlite.Open(dsn), db.Config())
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.Migrate(conn))
	return conn
}

// User inserts a user with the given role.
func User(t testing.TB, conn *gorm.DB, email string, role authz.Role) *models.User {
	t.Helper()
	u := &models.User{Name: strings.Split(email, "@")[0], Email: email, Password: "x", Phone: "9876543210", Role: role}
	if role == authz.RoleStudent {
		roll := "2106001"
		u.RollNumber = &roll
	}
	require.NoError(t, conn.Create(u).Error)
	return u
}
