package core

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StructureService provisions warehouse location subtrees. Only the rack
// builder the population wizard depends on is implemented here; general
// structure CRUD belongs to the ERP-side administration screens.
type StructureService interface {
	// CreateRack creates a rack under the warehouse root together with
	// `levels` levels of `bins` bins each. Codes are generated from the
	// rack code ("R01" → levels "R01-1".. and bins "R01-1-01"..). The
	// whole subtree is created in one transaction and a rack.created
	// event is dispatched on success.
	CreateRack(ctx context.Context, name, code string, levels, bins int) (*Location, error)
}

type structureService struct {
	pool       *pgxpool.Pool
	ruleEngine RuleEngine
}

// NewStructureService constructs a StructureService that reports rack
// creation through the given rule engine.
func NewStructureService(pool *pgxpool.Pool, ruleEngine RuleEngine) StructureService {
	return &structureService{pool: pool, ruleEngine: ruleEngine}
}

func (s *structureService) CreateRack(ctx context.Context, name, code string, levels, bins int) (*Location, error) {
	if code == "" || name == "" {
		return nil, fmt.Errorf("rack name and code are required")
	}
	if levels < 1 || bins < 1 {
		return nil, fmt.Errorf("a rack needs at least one level and one bin per level")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var rootID int
	err = tx.QueryRow(ctx, `SELECT id FROM locations WHERE parent_id IS NULL ORDER BY id LIMIT 1`).Scan(&rootID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("no warehouse root location exists, seed the structure first")
		}
		return nil, fmt.Errorf("failed to resolve warehouse root: %w", err)
	}

	rack, err := insertLocation(ctx, tx, name, code, "rack", &rootID)
	if err != nil {
		return nil, err
	}

	for lvl := 1; lvl <= levels; lvl++ {
		levelCode := code + "-" + strconv.Itoa(lvl)
		level, err := insertLocation(ctx, tx, fmt.Sprintf("%s level %d", name, lvl), levelCode, "level", &rack.ID)
		if err != nil {
			return nil, err
		}
		for bin := 1; bin <= bins; bin++ {
			binCode := fmt.Sprintf("%s-%02d", levelCode, bin)
			if _, err := insertLocation(ctx, tx, fmt.Sprintf("%s bin %d", level.Name, bin), binCode, "bin", &level.ID); err != nil {
				return nil, err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit rack creation: %w", err)
	}

	// Notification delivery is best-effort: the rack exists either way.
	if _, err := s.ruleEngine.Dispatch(ctx, "rack.created", map[string]string{
		"code":   rack.Code,
		"name":   rack.Name,
		"levels": strconv.Itoa(levels),
		"bins":   strconv.Itoa(bins),
	}); err != nil {
		return rack, fmt.Errorf("rack %s created, but notification dispatch failed: %w", rack.Code, err)
	}
	return rack, nil
}

func insertLocation(ctx context.Context, tx pgx.Tx, name, code, locType string, parentID *int) (*Location, error) {
	l := &Location{Name: name, Code: code, Type: locType, ParentID: parentID}
	err := tx.QueryRow(ctx, `
		INSERT INTO locations (name, code, loc_type, parent_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, name, code, locType, parentID).Scan(&l.ID, &l.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create location %s: %w", code, err)
	}
	return l, nil
}
