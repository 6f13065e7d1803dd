package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LocationService answers structural queries over the warehouse location
// tree. A single warehouse fits comfortably in memory, so descendant
// queries load the full set and walk it in-process.
type LocationService interface {
	// GetAllLocations returns every location of every type, including
	// current lock state.
	GetAllLocations(ctx context.Context) ([]Location, error)

	// GetLocation returns one location by id.
	GetLocation(ctx context.Context, id int) (*Location, error)

	// GetRacks returns the locations one level below the warehouse root.
	GetRacks(ctx context.Context) ([]Location, error)

	// GetLevels returns the direct children of the given rack.
	GetLevels(ctx context.Context, rackID int) ([]Location, error)

	// GetChildLocations returns the leaf descendants (any depth) of any id
	// in parentIDs, sorted naturally by code.
	GetChildLocations(ctx context.Context, parentIDs []int) ([]Location, error)
}

type locationService struct {
	pool *pgxpool.Pool
}

// NewLocationService constructs a LocationService backed by PostgreSQL.
func NewLocationService(pool *pgxpool.Pool) LocationService {
	return &locationService{pool: pool}
}

const locationColumns = `id, name, code, loc_type, parent_id, is_locked, locked_by, locked_by_user_id, locked_at, created_at`

func scanLocation(row pgx.Row) (*Location, error) {
	var l Location
	err := row.Scan(&l.ID, &l.Name, &l.Code, &l.Type, &l.ParentID,
		&l.IsLocked, &l.LockedBy, &l.LockedByUserID, &l.LockedAt, &l.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func collectLocations(rows pgx.Rows) ([]Location, error) {
	defer rows.Close()
	var locs []Location
	for rows.Next() {
		l, err := scanLocation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan location: %w", err)
		}
		locs = append(locs, *l)
	}
	return locs, rows.Err()
}

func (s *locationService) GetAllLocations(ctx context.Context) ([]Location, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+locationColumns+`
		FROM locations
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query locations: %w", err)
	}
	return collectLocations(rows)
}

func (s *locationService) GetLocation(ctx context.Context, id int) (*Location, error) {
	l, err := scanLocation(s.pool.QueryRow(ctx, `
		SELECT `+locationColumns+`
		FROM locations
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("location %d not found", id)
		}
		return nil, fmt.Errorf("failed to fetch location %d: %w", id, err)
	}
	return l, nil
}

func (s *locationService) GetRacks(ctx context.Context) ([]Location, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+locationColumns+`
		FROM locations
		WHERE parent_id IN (SELECT id FROM locations WHERE parent_id IS NULL)
		ORDER BY code
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query racks: %w", err)
	}
	return collectLocations(rows)
}

func (s *locationService) GetLevels(ctx context.Context, rackID int) ([]Location, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+locationColumns+`
		FROM locations
		WHERE parent_id = $1
		ORDER BY code
	`, rackID)
	if err != nil {
		return nil, fmt.Errorf("failed to query levels of rack %d: %w", rackID, err)
	}
	return collectLocations(rows)
}

func (s *locationService) GetChildLocations(ctx context.Context, parentIDs []int) ([]Location, error) {
	if len(parentIDs) == 0 {
		return nil, nil
	}
	all, err := s.GetAllLocations(ctx)
	if err != nil {
		return nil, err
	}
	leaves := LeafDescendants(all, parentIDs)
	SortLocationsByCode(leaves)
	return leaves, nil
}
