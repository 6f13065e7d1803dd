package core

import "time"

// Location is one node of the warehouse spatial hierarchy
// (building → zone → rack → level → bin; the depth is not fixed).
// The lock columns carry the advisory exclusivity claim held by an
// active wizard session.
type Location struct {
	ID             int        `json:"id"`
	Name           string     `json:"name"`
	Code           string     `json:"code"`
	Type           string     `json:"type"`
	ParentID       *int       `json:"parent_id,omitempty"`
	IsLocked       bool       `json:"is_locked"`
	LockedBy       *string    `json:"locked_by,omitempty"`
	LockedByUserID *int       `json:"locked_by_user_id,omitempty"`
	LockedAt       *time.Time `json:"locked_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// IsRoot reports whether the location has no parent.
func (l Location) IsRoot() bool { return l.ParentID == nil }

// WizardSession is one user's resumable guided-population run.
// The unique user_id key guarantees at most one active session per user.
type WizardSession struct {
	ID           int       `json:"id"`
	UserID       int       `json:"user_id"`
	RackID       int       `json:"rack_id"`
	LevelIDs     []int     `json:"level_ids"`
	CurrentIndex int       `json:"current_index"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Product is a catalog entry resolved from a scanned or typed code
// during populating.
type Product struct {
	ID          int       `json:"id"`
	Code        string    `json:"code"`
	Description string    `json:"description"`
	Unit        string    `json:"unit"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// ItemAssignment maps a product onto a leaf location. Assignments are
// append-only: re-assigning a location records a new row, the history
// stays intact.
type ItemAssignment struct {
	ID               int       `json:"id"`
	ProductID        int       `json:"product_id"`
	LocationID       int       `json:"location_id"`
	AssignedBy       string    `json:"assigned_by"`
	AssignedByUserID *int      `json:"assigned_by_user_id,omitempty"`
	AssignedAt       time.Time `json:"assigned_at"`
}
