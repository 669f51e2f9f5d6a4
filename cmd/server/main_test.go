package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/explainer/internal/db"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("DATABASE_PATH", filepath.Join(t.TempDir(), "explainer.db"))

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	t.Cleanup(func() {
		if db.DB != nil {
			if sqlDB, err := db.DB.DB(); err == nil {
				_ = sqlDB.Close()
			}
			db.DB = nil
		}
	})
	return out.String(), err
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"serve", "init-user", "seed-achievements"} {
		if cmd, _, err := root.Find([]string{name}); err != nil || cmd.Name() != name {
			t.Fatalf("expected subcommand %s, got %v (%v)", name, cmd, err)
		}
	}
}

func TestInitUserCreatesAccount(t *testing.T) {
	out, err := runCLI(t, "init-user", "--username", "ada", "--password", "lovelace", "--tier", "Starter", "--admin")
	if err != nil {
		t.Fatalf("init-user failed: %v", err)
	}
	if !strings.Contains(out, "ada (tier=starter, admin=true)") {
		t.Fatalf("unexpected output %q", out)
	}

	var user db.User
	if err := db.DB.Where("username = ?", "ada").First(&user).Error; err != nil {
		t.Fatalf("user not stored: %v", err)
	}
	if user.Password == "lovelace" {
		t.Fatalf("password must be hashed")
	}
}

func TestInitUserValidatesInput(t *testing.T) {
	if _, err := runCLI(t, "init-user", "--username", "ada"); err == nil {
		t.Fatalf("expected missing password to fail")
	}
	if _, err := runCLI(t, "init-user", "--username", "ada", "--password", "x", "--tier", "gold"); err == nil || !strings.Contains(err.Error(), "unknown tier") {
		t.Fatalf("expected unknown tier error, got %v", err)
	}
}

func TestSeedAchievements(t *testing.T) {
	out, err := runCLI(t, "seed-achievements")
	if err != nil {
		t.Fatalf("seed-achievements failed: %v", err)
	}
	if !strings.Contains(out, "已同步") {
		t.Fatalf("unexpected output %q", out)
	}

	var count int64
	if err := db.DB.Model(&db.Achievement{}).Count(&count).Error; err != nil {
		t.Fatalf("count achievements: %v", err)
	}
	if int(count) != len(db.DefaultAchievements) {
		t.Fatalf("expected %d achievements, got %d", len(db.DefaultAchievements), count)
	}
}
