package shared

import (
	"testing"
)

func TestMigrationRunner(t *testing.T) {
	t.Run("loadMigrations", func(t *testing.T) {
		migrations, err := loadMigrations()
		if err != nil {
			t.Fatalf("failed to load migrations: %v", err)
		}

		if len(migrations) == 0 {
			t.Fatal("expected at least one migration")
		}

		for i := 1; i < len(migrations); i++ {
			if migrations[i].Version <= migrations[i-1].Version {
				t.Errorf("migrations not sorted: version %d comes after %d", migrations[i].Version, migrations[i-1].Version)
			}
		}

		for _, m := range migrations {
			if m.Up == "" {
				t.Errorf("migration version %d missing up SQL", m.Version)
			}
			if m.Down == "" {
				t.Errorf("migration version %d missing down SQL", m.Version)
			}
		}
	})

	t.Run("RunMigrations And Rollback", func(t *testing.T) {
		db, err := NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		defer db.Close()

		if err := RunMigrations(db); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}

		var count int
		err = db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
		if err != nil {
			t.Fatalf("failed to query schema_migrations: %v", err)
		}
		if count == 0 {
			t.Error("expected at least one migration to be applied")
		}

		_, err = db.Exec("SELECT 1 FROM session_cache LIMIT 1")
		if err != nil {
			t.Errorf("session_cache table should exist after migrations: %v", err)
		}

		if err := RollbackMigration(db); err != nil {
			t.Fatalf("failed to rollback migration: %v", err)
		}

		var newCount int
		err = db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&newCount)
		if err != nil {
			t.Fatalf("failed to query schema_migrations after rollback: %v", err)
		}
		if newCount >= count {
			t.Errorf("expected migration count to decrease after rollback, got %d (was %d)", newCount, count)
		}

		version, err := SchemaVersion(db)
		if err != nil {
			t.Fatalf("failed to read schema version: %v", err)
		}
		if version != count-1 {
			t.Errorf("expected schema version %d after rollback, got %d", count-1, version)
		}
	})

	t.Run("Idempotent Migrations", func(t *testing.T) {
		db, err := NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		defer db.Close()

		if err := RunMigrations(db); err != nil {
			t.Fatalf("failed to run migrations first time: %v", err)
		}

		if err := RunMigrations(db); err != nil {
			t.Fatalf("failed to run migrations second time: %v", err)
		}

		var count int
		err = db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
		if err != nil {
			t.Fatalf("failed to query schema_migrations: %v", err)
		}

		migrations, _ := loadMigrations()
		if count != len(migrations) {
			t.Errorf("expected %d migrations to be applied, got %d", len(migrations), count)
		}
	})
}

func TestMigrationFiles(t *testing.T) {
	t.Run("parseMigrationName", func(t *testing.T) {
		tests := []struct {
			file      string
			version   int
			name      string
			direction string
			ok        bool
		}{
			{"0001_create_session_cache_up.sql", 1, "create_session_cache", "up", true},
			{"0012_add_index_down.sql", 12, "add_index", "down", true},
			{"0001_create_session_cache.sql", 0, "", "", false},
			{"readme.md", 0, "", "", false},
			{"abcd_thing_up.sql", 0, "", "", false},
			{"0000_zero_up.sql", 0, "", "", false},
		}

		for _, tt := range tests {
			t.Run(tt.file, func(t *testing.T) {
				version, name, direction, ok := parseMigrationName(tt.file)
				if ok != tt.ok || version != tt.version || name != tt.name || direction != tt.direction {
					t.Errorf("got (%d, %q, %q, %v), want (%d, %q, %q, %v)",
						version, name, direction, ok, tt.version, tt.name, tt.direction, tt.ok)
				}
			})
		}
	})

	t.Run("statements", func(t *testing.T) {
		script := "-- header\nCREATE TABLE a (x TEXT); -- trailing\n\nCREATE TABLE b (y TEXT);\n"
		got := statements(script)
		if len(got) != 2 {
			t.Fatalf("expected 2 statements, got %q", got)
		}
		if got[0] != "CREATE TABLE a (x TEXT)" || got[1] != "CREATE TABLE b (y TEXT)" {
			t.Errorf("unexpected statements %q", got)
		}
	})
}

func TestOpenDatabase(t *testing.T) {
	db, err := OpenDatabase(DatabaseConfig{Path: ":memory:", MaxOpenConns: 1, MaxIdleConns: 1})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	if _, err := db.Exec("INSERT INTO session_cache (key, value) VALUES ('k', 'v')"); err != nil {
		t.Errorf("expected migrated session_cache table, got %v", err)
	}
}
