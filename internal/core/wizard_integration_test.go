package core_test

import (
	"context"
	"errors"
	"testing"

	"clic-tools/internal/core"

	"github.com/jackc/pgx/v5/pgxpool"
)

func setupWizardTestDB(t *testing.T) (*pgxpool.Pool, core.WizardService, context.Context) {
	t.Helper()
	pool := setupTestDB(t)

	locations := core.NewLocationService(pool)
	locks := core.NewLockService(pool)
	sessions := core.NewSessionService(pool)
	products := core.NewProductService(pool)
	wizard := core.NewWizardService(pool, locations, locks, sessions, products)
	return pool, wizard, context.Background()
}

var (
	jdoe   = core.Identity{ID: 1, DisplayName: "J. Doe"}
	asmith = core.Identity{ID: 2, DisplayName: "A. Smith"}
)

func TestWizard_FullRun(t *testing.T) {
	pool, wizard, ctx := setupWizardTestDB(t)
	defer pool.Close()

	// Entry with no session: setup, full location list for the picker.
	view, err := wizard.Load(ctx, jdoe)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if view.State != core.WizardSetup {
		t.Fatalf("Expected setup state, got %s", view.State)
	}
	if len(view.Locations) == 0 {
		t.Error("Setup view must carry the location list")
	}

	// Start on both levels: leaves are the three bins of level 1 plus the
	// childless level 2 itself, in natural code order.
	view, err = wizard.Start(ctx, jdoe, 2, []int{3, 4})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if view.State != core.WizardPopulating {
		t.Fatalf("Expected populating state, got %s", view.State)
	}
	wantOrder := []string{"R01-1-01", "R01-1-02", "R01-1-10", "R01-2"}
	if len(view.Leaves) != len(wantOrder) {
		t.Fatalf("Expected %d leaves, got %d", len(wantOrder), len(view.Leaves))
	}
	for i, code := range wantOrder {
		if view.Leaves[i].Code != code {
			t.Errorf("Leaf %d: expected %s, got %s", i, code, view.Leaves[i].Code)
		}
	}
	if view.Current == nil || view.Current.Code != "R01-1-01" {
		t.Fatalf("Expected to start at R01-1-01, got %+v", view.Current)
	}

	// Assign a product to the first bin.
	view, err = wizard.Assign(ctx, jdoe, "SKU-1001")
	if err != nil {
		t.Fatalf("Assign failed: %v", err)
	}
	if view.Session.CurrentIndex != 1 {
		t.Errorf("Expected index 1 after assign, got %d", view.Session.CurrentIndex)
	}
	if view.LastAssignment == nil || view.LastAssignment.LocationCode != "R01-1-01" {
		t.Errorf("Expected assignment feedback for R01-1-01, got %+v", view.LastAssignment)
	}
	var assignments int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM item_assignments`).Scan(&assignments); err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if assignments != 1 {
		t.Errorf("Expected 1 assignment row, got %d", assignments)
	}

	// Empty code skips: index advances, no row written.
	view, err = wizard.Assign(ctx, jdoe, "")
	if err != nil {
		t.Fatalf("Skip failed: %v", err)
	}
	if view.Session.CurrentIndex != 2 {
		t.Errorf("Expected index 2 after skip, got %d", view.Session.CurrentIndex)
	}
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM item_assignments`).Scan(&assignments); err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if assignments != 1 {
		t.Errorf("Skip must not write an assignment, got %d rows", assignments)
	}

	// Back steps to the previous leaf without undoing anything.
	view, err = wizard.Back(ctx, jdoe)
	if err != nil {
		t.Fatalf("Back failed: %v", err)
	}
	if view.Session.CurrentIndex != 1 {
		t.Errorf("Expected index 1 after back, got %d", view.Session.CurrentIndex)
	}

	// Unknown product: error, index stays.
	if _, err := wizard.Assign(ctx, jdoe, "NOPE"); !errors.Is(err, core.ErrProductNotFound) {
		t.Errorf("Expected ErrProductNotFound, got %v", err)
	}
	resumed, err := wizard.Resume(ctx, jdoe)
	if err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	if resumed.Session.CurrentIndex != 1 {
		t.Errorf("Failed assign must not advance, index is %d", resumed.Session.CurrentIndex)
	}

	// Walk to the end; the last advance finishes the run.
	for i := 0; i < 3; i++ {
		view, err = wizard.Assign(ctx, jdoe, "")
		if err != nil {
			t.Fatalf("Skip %d failed: %v", i, err)
		}
	}
	if view.State != core.WizardFinished {
		t.Fatalf("Expected finished state, got %s", view.State)
	}

	var sessionCount, lockedCount int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM wizard_sessions`).Scan(&sessionCount); err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if sessionCount != 0 {
		t.Error("Finishing must clear the session")
	}
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM locations WHERE is_locked`).Scan(&lockedCount); err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if lockedCount != 0 {
		t.Error("Finishing must release every lock")
	}
}

func TestWizard_StartConflictLeavesNoTrace(t *testing.T) {
	pool, wizard, ctx := setupWizardTestDB(t)
	defer pool.Close()

	if _, err := wizard.Start(ctx, jdoe, 2, []int{3}); err != nil {
		t.Fatalf("First start failed: %v", err)
	}

	// Second user wants levels 3 and 4; 3 is held, so nothing is locked and
	// no session is created. The refusal is a view, not an error.
	view, err := wizard.Start(ctx, asmith, 2, []int{3, 4})
	if err != nil {
		t.Fatalf("Conflicting start errored: %v", err)
	}
	if view.State != core.WizardSetup {
		t.Errorf("Expected setup state on conflict, got %s", view.State)
	}
	if len(view.Conflicts) != 1 || view.Conflicts[0].ID != 3 {
		t.Errorf("Expected conflict on location 3, got %v", view.Conflicts)
	}
	if len(view.Locations) == 0 {
		t.Error("Conflict view must refresh the location list")
	}

	var count int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM wizard_sessions WHERE user_id = 2`).Scan(&count); err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 0 {
		t.Error("A refused start must not create a session")
	}
	var isLocked bool
	if err := pool.QueryRow(ctx, `SELECT is_locked FROM locations WHERE id = 4`).Scan(&isLocked); err != nil {
		t.Fatalf("Lock state read failed: %v", err)
	}
	if isLocked {
		t.Error("A refused start must not lock the free level")
	}
}

func TestWizard_SecondStartRejectedWhileSessionActive(t *testing.T) {
	pool, wizard, ctx := setupWizardTestDB(t)
	defer pool.Close()

	if _, err := wizard.Start(ctx, jdoe, 2, []int{3}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if _, err := wizard.Start(ctx, jdoe, 2, []int{4}); !errors.Is(err, core.ErrActiveSessionExists) {
		t.Errorf("Expected ErrActiveSessionExists, got %v", err)
	}
}

func TestWizard_ResumeContinuesAtStoredIndex(t *testing.T) {
	pool, wizard, ctx := setupWizardTestDB(t)
	defer pool.Close()

	if _, err := wizard.Start(ctx, jdoe, 2, []int{3}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if _, err := wizard.Assign(ctx, jdoe, "SKU-1001"); err != nil {
		t.Fatalf("Assign failed: %v", err)
	}

	// A fresh Load (new page, new day) offers resume.
	view, err := wizard.Load(ctx, jdoe)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if view.State != core.WizardResume {
		t.Fatalf("Expected resume state, got %s", view.State)
	}

	view, err = wizard.Resume(ctx, jdoe)
	if err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	if view.State != core.WizardPopulating {
		t.Fatalf("Expected populating state, got %s", view.State)
	}
	if view.Session.CurrentIndex != 1 || view.Current.Code != "R01-1-02" {
		t.Errorf("Expected to continue at index 1 (R01-1-02), got index %d at %v",
			view.Session.CurrentIndex, view.Current)
	}
}

func TestWizard_AbandonReleasesExactlyTheRecordedLocks(t *testing.T) {
	pool, wizard, ctx := setupWizardTestDB(t)
	defer pool.Close()

	if _, err := wizard.Start(ctx, jdoe, 2, []int{3}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	// Level 4 is locked by someone else and must survive the abandon.
	locks := core.NewLockService(pool)
	if _, err := locks.AcquireLocks(ctx, []int{4}, 2, "A. Smith"); err != nil {
		t.Fatalf("Second lock failed: %v", err)
	}

	view, err := wizard.Abandon(ctx, jdoe)
	if err != nil {
		t.Fatalf("Abandon failed: %v", err)
	}
	if view.State != core.WizardSetup {
		t.Errorf("Expected setup after abandon, got %s", view.State)
	}

	var locked3, locked4 bool
	if err := pool.QueryRow(ctx, `SELECT is_locked FROM locations WHERE id = 3`).Scan(&locked3); err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if err := pool.QueryRow(ctx, `SELECT is_locked FROM locations WHERE id = 4`).Scan(&locked4); err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if locked3 {
		t.Error("Abandon must release the session's locks")
	}
	if !locked4 {
		t.Error("Abandon must not touch locks it does not own")
	}
}

func TestWizard_TransitionsWithoutSession(t *testing.T) {
	pool, wizard, ctx := setupWizardTestDB(t)
	defer pool.Close()

	if _, err := wizard.Resume(ctx, jdoe); !errors.Is(err, core.ErrNoActiveSession) {
		t.Errorf("Resume: expected ErrNoActiveSession, got %v", err)
	}
	if _, err := wizard.Assign(ctx, jdoe, "SKU-1001"); !errors.Is(err, core.ErrNoActiveSession) {
		t.Errorf("Assign: expected ErrNoActiveSession, got %v", err)
	}
	if _, err := wizard.Finish(ctx, jdoe); !errors.Is(err, core.ErrNoActiveSession) {
		t.Errorf("Finish: expected ErrNoActiveSession, got %v", err)
	}
}

func TestWizard_BackFlooredAtStart(t *testing.T) {
	pool, wizard, ctx := setupWizardTestDB(t)
	defer pool.Close()

	if _, err := wizard.Start(ctx, jdoe, 2, []int{3}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	view, err := wizard.Back(ctx, jdoe)
	if err != nil {
		t.Fatalf("Back failed: %v", err)
	}
	if view.Session.CurrentIndex != 0 {
		t.Errorf("Back at index 0 must stay at 0, got %d", view.Session.CurrentIndex)
	}
}

func TestWizard_StaleSessionDetectedOnResume(t *testing.T) {
	pool, wizard, ctx := setupWizardTestDB(t)
	defer pool.Close()

	if _, err := wizard.Start(ctx, jdoe, 2, []int{4}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	// The level disappears behind the session's back.
	if _, err := pool.Exec(ctx, `DELETE FROM locations WHERE id = 4`); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if _, err := wizard.Resume(ctx, jdoe); !errors.Is(err, core.ErrSessionStale) {
		t.Errorf("Expected ErrSessionStale, got %v", err)
	}

	// The session survives so an explicit abandon can still clean up.
	sessions := core.NewSessionService(pool)
	session, err := sessions.GetActiveSession(ctx, 1)
	if err != nil {
		t.Fatalf("GetActiveSession failed: %v", err)
	}
	if session == nil {
		t.Fatal("Stale detection must not clear the session")
	}
	if _, err := wizard.Abandon(ctx, jdoe); err != nil {
		t.Fatalf("Abandon of stale session failed: %v", err)
	}
}

func TestWizard_StartValidatesLevelParent(t *testing.T) {
	pool, wizard, ctx := setupWizardTestDB(t)
	defer pool.Close()

	// Location 5 is a bin, not a level of rack 2.
	if _, err := wizard.Start(ctx, jdoe, 2, []int{5}); err == nil {
		t.Error("Expected error when selection is not a level of the rack")
	}
	if _, err := wizard.Start(ctx, jdoe, 2, nil); err == nil {
		t.Error("Expected error for empty level selection")
	}
	if _, err := wizard.Start(ctx, jdoe, 999, []int{3}); err == nil {
		t.Error("Expected error for unknown rack")
	}
}
