package core

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// LockResult reports the outcome of a batch lock acquisition. A conflict
// is a normal outcome, not an error: callers surface the conflicting rows
// to the user and refresh displayed lock state.
type LockResult struct {
	// Acquired is true when every requested id is now locked by the caller.
	Acquired bool `json:"acquired"`
	// Conflicts holds the locations already locked by a different user.
	// Empty when Acquired is true.
	Conflicts []Location `json:"conflicts,omitempty"`
}

// LockService enforces advisory mutual exclusion over sets of location ids.
type LockService interface {
	// AcquireLocks marks every id in ids as locked by the given user,
	// all-or-nothing: if any id is held by a different user, no row is
	// mutated and the conflicting rows are returned. Ids already held by
	// the same user are kept (a resumed session re-asserts its locks).
	// The check-then-write sequence runs in one transaction with the
	// candidate rows locked FOR UPDATE, so two concurrent acquisitions
	// over overlapping sets cannot both pass the conflict check.
	AcquireLocks(ctx context.Context, ids []int, userID int, userName string) (*LockResult, error)

	// ReleaseLocks unconditionally clears lock state on every given id.
	// Releasing an unlocked id is a no-op, not an error.
	ReleaseLocks(ctx context.Context, ids []int) error
}

type lockService struct {
	pool *pgxpool.Pool
}

// NewLockService constructs a LockService backed by the locations table.
func NewLockService(pool *pgxpool.Pool) LockService {
	return &lockService{pool: pool}
}

func (s *lockService) AcquireLocks(ctx context.Context, ids []int, userID int, userName string) (*LockResult, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("no location ids given")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Serialize against concurrent acquisitions over the same rows.
	rows, err := tx.Query(ctx, `
		SELECT `+locationColumns+`
		FROM locations
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to lock candidate rows: %w", err)
	}
	candidates, err := collectLocations(rows)
	if err != nil {
		return nil, err
	}
	if len(candidates) != len(dedupeInts(ids)) {
		return nil, fmt.Errorf("some locations do not exist: requested %d, found %d", len(dedupeInts(ids)), len(candidates))
	}

	var conflicts []Location
	for _, loc := range candidates {
		if loc.IsLocked && (loc.LockedByUserID == nil || *loc.LockedByUserID != userID) {
			conflicts = append(conflicts, loc)
		}
	}
	if len(conflicts) > 0 {
		// All-or-nothing: the deferred rollback discards the row locks and
		// no state is mutated.
		return &LockResult{Acquired: false, Conflicts: conflicts}, nil
	}

	_, err = tx.Exec(ctx, `
		UPDATE locations
		SET is_locked = true, locked_by = $2, locked_by_user_id = $3, locked_at = now()
		WHERE id = ANY($1)
	`, ids, userName, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to mark locations locked: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit lock acquisition: %w", err)
	}
	return &LockResult{Acquired: true}, nil
}

func (s *lockService) ReleaseLocks(ctx context.Context, ids []int) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx, `
		UPDATE locations
		SET is_locked = false, locked_by = NULL, locked_by_user_id = NULL, locked_at = NULL
		WHERE id = ANY($1)
	`, ids)
	if err != nil {
		return fmt.Errorf("failed to release locks: %w", err)
	}
	return nil
}

func dedupeInts(ids []int) []int {
	seen := make(map[int]bool, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
