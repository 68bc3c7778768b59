package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestOpen(t *testing.T) {
	t.Run("creates database file and directory", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "subdir", "nested", "audit.db")

		db, err := Open(Config{Path: dbPath, WALMode: true, BusyTimeout: 5 * time.Second})
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer db.Close() //nolint:errcheck // Test cleanup

		info, err := os.Stat(dbPath)
		if err != nil {
			t.Fatalf("database file was not created: %v", err)
		}
		if perm := info.Mode().Perm(); perm != filePermissions {
			t.Errorf("file permissions = %o, want %o", perm, filePermissions)
		}
		if db.Path() != dbPath {
			t.Errorf("Path() = %v, want %v", db.Path(), dbPath)
		}
	})

	t.Run("single writer pool", func(t *testing.T) {
		db := openTestDB(t)
		if got := db.Stats().MaxOpenConnections; got != 1 {
			t.Errorf("MaxOpenConnections = %d, want 1", got)
		}
	})

	t.Run("fails when directory cannot be created", func(t *testing.T) {
		blocker := filepath.Join(t.TempDir(), "file")
		if err := os.WriteFile(blocker, nil, 0600); err != nil {
			t.Fatal(err)
		}
		if _, err := Open(Config{Path: filepath.Join(blocker, "audit.db")}); err == nil {
			t.Error("Open() error = nil, want directory error")
		}
	})
}

func TestHealthCheck(t *testing.T) {
	db := openTestDB(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}

	db.Close() //nolint:errcheck // Test cleanup
	if err := db.HealthCheck(ctx); err == nil {
		t.Error("HealthCheck() on closed DB error = nil")
	}
}

func TestClose(t *testing.T) {
	db := openTestDB(t)

	if err := db.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}

	db.DB = nil
	if err := db.Close(); err != nil {
		t.Errorf("Close() on nil DB error = %v", err)
	}
}

// openTestDB creates a temporary database closed at test end.
func openTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(Config{
		Path:        filepath.Join(t.TempDir(), "test.db"),
		WALMode:     true,
		BusyTimeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup
	return db
}

func TestConfig_DSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "rollback journal",
			cfg:  Config{Path: "/var/lib/rfsocket/audit.db", BusyTimeout: 2 * time.Second},
			want: "file:/var/lib/rfsocket/audit.db?_busy_timeout=2000&_foreign_keys=on",
		},
		{
			name: "wal",
			cfg:  Config{Path: "audit.db", WALMode: true},
			want: "file:audit.db?_busy_timeout=0&_foreign_keys=on&_journal_mode=WAL&_synchronous=NORMAL",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.dsn(); got != tt.want {
				t.Errorf("dsn() = %q, want %q", got, tt.want)
			}
		})
	}
}
