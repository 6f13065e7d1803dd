// restore-seed is a one-shot tool to restore the development seed data:
// the warehouse structure, the product catalog, the default users and the
// notification rules. Run it after a fresh migration or when the structure
// has been accidentally wiped.
//
// Usage: go run ./cmd/restore-seed
package main

import (
	"context"
	"fmt"
	"log"

	"clic-tools/internal/db"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	_ = godotenv.Load()

	ctx := context.Background()
	pool, err := db.NewPool(ctx)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer pool.Close()

	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Fatalf("Failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx)

	log.Println("Clearing assignments, sessions and lock state...")
	_, err = tx.Exec(ctx, `
		DELETE FROM item_assignments;
		DELETE FROM wizard_sessions;
		UPDATE locations SET is_locked = false, locked_by = NULL,
			locked_by_user_id = NULL, locked_at = NULL;
	`)
	if err != nil {
		log.Fatalf("Failed to clear session data: %v", err)
	}

	log.Println("Restoring warehouse structure...")
	if err := seedStructure(ctx, tx); err != nil {
		log.Fatalf("Failed to restore structure: %v", err)
	}

	log.Println("Restoring product catalog...")
	_, err = tx.Exec(ctx, `
		INSERT INTO products (code, description, unit)
		VALUES
		  ('SKU-1001', 'Hex bolts M8 (box of 100)',      'box'),
		  ('SKU-1002', 'Hex nuts M8 (box of 200)',       'box'),
		  ('SKU-1003', 'Washers M8 (box of 500)',        'box'),
		  ('SKU-2001', 'Bearing 6204-2RS',               'pc'),
		  ('SKU-2002', 'Bearing 6205-2RS',               'pc'),
		  ('SKU-3001', 'Hydraulic oil HLP 46 (20 L)',    'can'),
		  ('SKU-3002', 'Grease cartridge EP2',           'pc')
		ON CONFLICT (code) DO UPDATE
		  SET description = EXCLUDED.description,
		      unit = EXCLUDED.unit,
		      is_active = true;
	`)
	if err != nil {
		log.Fatalf("Failed to restore products: %v", err)
	}

	log.Println("Restoring users...")
	if err := seedUsers(ctx, tx); err != nil {
		log.Fatalf("Failed to restore users: %v", err)
	}

	log.Println("Restoring notification rules...")
	_, err = tx.Exec(ctx, `
		INSERT INTO notification_rules (event_key, recipient, template, priority)
		VALUES
		  ('rack.created', 'warehouse-leads', 'Rack {code} ({name}) was created with {levels} levels.', 10)
		ON CONFLICT (event_key, recipient) DO UPDATE
		  SET template = EXCLUDED.template,
		      priority = EXCLUDED.priority,
		      is_active = true;
	`)
	if err != nil {
		log.Fatalf("Failed to restore notification rules: %v", err)
	}

	if err := tx.Commit(ctx); err != nil {
		log.Fatalf("Failed to commit: %v", err)
	}

	log.Println("Seed data restored successfully.")
}

// seedStructure builds warehouse → two racks → levels → bins. Existing
// locations are matched by code so reruns are idempotent.
func seedStructure(ctx context.Context, tx pgx.Tx) error {
	rootID, err := upsertLocation(ctx, tx, "Main Warehouse", "WH1", "warehouse", nil)
	if err != nil {
		return err
	}

	racks := []struct {
		name, code   string
		levels, bins int
	}{
		{"Rack 1", "R01", 3, 4},
		{"Rack 2", "R02", 2, 6},
	}
	for _, r := range racks {
		rackID, err := upsertLocation(ctx, tx, r.name, r.code, "rack", &rootID)
		if err != nil {
			return err
		}
		for lvl := 1; lvl <= r.levels; lvl++ {
			levelCode := fmt.Sprintf("%s-%d", r.code, lvl)
			levelID, err := upsertLocation(ctx, tx, fmt.Sprintf("%s Level %d", r.name, lvl), levelCode, "level", &rackID)
			if err != nil {
				return err
			}
			for bin := 1; bin <= r.bins; bin++ {
				binCode := fmt.Sprintf("%s-%02d", levelCode, bin)
				if _, err := upsertLocation(ctx, tx, fmt.Sprintf("Bin %s", binCode), binCode, "bin", &levelID); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func upsertLocation(ctx context.Context, tx pgx.Tx, name, code, locType string, parentID *int) (int, error) {
	var id int
	err := tx.QueryRow(ctx, `
		INSERT INTO locations (name, code, loc_type, parent_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (code) DO UPDATE
		  SET name = EXCLUDED.name,
		      loc_type = EXCLUDED.loc_type,
		      parent_id = EXCLUDED.parent_id
		RETURNING id
	`, name, code, locType, parentID).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert location %s: %w", code, err)
	}
	return id, nil
}

func seedUsers(ctx context.Context, tx pgx.Tx) error {
	users := []struct {
		username, displayName, email, password, role string
	}{
		{"admin", "Site Admin", "admin@example.test", "admin123", "admin"},
		{"jdoe", "J. Doe", "jdoe@example.test", "warehouse1", "warehouse"},
		{"asmith", "A. Smith", "asmith@example.test", "warehouse1", "warehouse"},
	}
	for _, u := range users {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash password for %s: %w", u.username, err)
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO users (username, display_name, email, password_hash, role)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (username) DO UPDATE
			  SET display_name = EXCLUDED.display_name,
			      email = EXCLUDED.email,
			      password_hash = EXCLUDED.password_hash,
			      role = EXCLUDED.role,
			      is_active = true
		`, u.username, u.displayName, u.email, string(hash), u.role)
		if err != nil {
			return fmt.Errorf("upsert user %s: %w", u.username, err)
		}
	}
	return nil
}
