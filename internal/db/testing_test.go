package db

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	gdb, err := Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name), true)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return gdb
}

func createTestUser(t *testing.T, gdb *gorm.DB, username, tier string) *User {
	t.Helper()
	user := User{Username: username, Password: "hashed", Tier: tier}
	require.NoError(t, gdb.Create(&user).Error)
	return &user
}
