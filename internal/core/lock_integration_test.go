package core_test

import (
	"context"
	"os"
	"testing"

	"clic-tools/internal/core"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	_ = godotenv.Load("../../.env")

	// Use a dedicated TEST database to avoid wiping the live app database.
	// Set TEST_DATABASE_URL in your .env or environment to run integration tests.
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set — skipping integration test to protect live database")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	// Clean and seed test DB: two users, a small warehouse with one rack of
	// two levels (bins under level 1, level 2 childless), and two products.
	_, err = pool.Exec(ctx, `
		TRUNCATE TABLE item_assignments, wizard_sessions, notifications, notification_rules, locations, products, users RESTART IDENTITY CASCADE;

		INSERT INTO users (id, username, display_name, password_hash, role) VALUES
		(1, 'jdoe',   'J. Doe',   'x', 'warehouse'),
		(2, 'asmith', 'A. Smith', 'x', 'warehouse');
		SELECT setval('users_id_seq', 10);

		INSERT INTO locations (id, name, code, loc_type, parent_id) VALUES
		(1, 'Main Warehouse', 'WH1',      'warehouse', NULL),
		(2, 'Rack 1',         'R01',      'rack',  1),
		(3, 'Rack 1 Level 1', 'R01-1',    'level', 2),
		(4, 'Rack 1 Level 2', 'R01-2',    'level', 2),
		(5, 'Bin R01-1-01',   'R01-1-01', 'bin',   3),
		(6, 'Bin R01-1-02',   'R01-1-02', 'bin',   3),
		(7, 'Bin R01-1-10',   'R01-1-10', 'bin',   3);
		SELECT setval('locations_id_seq', 100);

		INSERT INTO products (id, code, description, unit) VALUES
		(1, 'SKU-1001', 'Hex bolts M8', 'box'),
		(2, 'SKU-2001', 'Bearing 6204', 'pc');
		SELECT setval('products_id_seq', 10);
	`)
	if err != nil {
		t.Fatalf("Failed to seed test database: %v", err)
	}

	return pool
}

func TestLockService_AcquireAndRelease(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	locks := core.NewLockService(pool)
	ctx := context.Background()

	result, err := locks.AcquireLocks(ctx, []int{3, 4}, 1, "J. Doe")
	if err != nil {
		t.Fatalf("AcquireLocks failed: %v", err)
	}
	if !result.Acquired {
		t.Fatalf("Expected acquisition to succeed, conflicts: %v", result.Conflicts)
	}

	var lockedBy string
	if err := pool.QueryRow(ctx, `SELECT locked_by FROM locations WHERE id = 3`).Scan(&lockedBy); err != nil {
		t.Fatalf("Failed to read lock state: %v", err)
	}
	if lockedBy != "J. Doe" {
		t.Errorf("Expected locked_by 'J. Doe', got %q", lockedBy)
	}

	if err := locks.ReleaseLocks(ctx, []int{3, 4}); err != nil {
		t.Fatalf("ReleaseLocks failed: %v", err)
	}
	var isLocked bool
	if err := pool.QueryRow(ctx, `SELECT is_locked FROM locations WHERE id = 3`).Scan(&isLocked); err != nil {
		t.Fatalf("Failed to read lock state: %v", err)
	}
	if isLocked {
		t.Error("Expected location 3 unlocked after release")
	}
}

func TestLockService_AllOrNothingOnConflict(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	locks := core.NewLockService(pool)
	ctx := context.Background()

	// User 1 holds level 3.
	if _, err := locks.AcquireLocks(ctx, []int{3}, 1, "J. Doe"); err != nil {
		t.Fatalf("Setup acquisition failed: %v", err)
	}

	// User 2 asks for 3 and 4: the batch must be refused and 4 untouched.
	result, err := locks.AcquireLocks(ctx, []int{3, 4}, 2, "A. Smith")
	if err != nil {
		t.Fatalf("AcquireLocks failed: %v", err)
	}
	if result.Acquired {
		t.Fatal("Expected conflict, got acquisition")
	}
	if len(result.Conflicts) != 1 || result.Conflicts[0].ID != 3 {
		t.Fatalf("Expected conflict on location 3, got %v", result.Conflicts)
	}

	var isLocked bool
	if err := pool.QueryRow(ctx, `SELECT is_locked FROM locations WHERE id = 4`).Scan(&isLocked); err != nil {
		t.Fatalf("Failed to read lock state: %v", err)
	}
	if isLocked {
		t.Error("Location 4 must stay unlocked after a refused batch")
	}
}

func TestLockService_SameUserReacquire(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	locks := core.NewLockService(pool)
	ctx := context.Background()

	if _, err := locks.AcquireLocks(ctx, []int{3}, 1, "J. Doe"); err != nil {
		t.Fatalf("First acquisition failed: %v", err)
	}

	// A resumed session re-asserts its own locks: not a conflict.
	result, err := locks.AcquireLocks(ctx, []int{3, 4}, 1, "J. Doe")
	if err != nil {
		t.Fatalf("Reacquisition failed: %v", err)
	}
	if !result.Acquired {
		t.Errorf("Same-user reacquisition must succeed, conflicts: %v", result.Conflicts)
	}
}

func TestLockService_MissingLocationRejected(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	locks := core.NewLockService(pool)
	ctx := context.Background()

	if _, err := locks.AcquireLocks(ctx, []int{3, 999}, 1, "J. Doe"); err == nil {
		t.Error("Expected error for nonexistent location id, got nil")
	}
}

func TestLockService_ReleaseUnlockedIsNoop(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	locks := core.NewLockService(pool)
	ctx := context.Background()

	if err := locks.ReleaseLocks(ctx, []int{3, 4}); err != nil {
		t.Errorf("Releasing unlocked locations must not error: %v", err)
	}
}
