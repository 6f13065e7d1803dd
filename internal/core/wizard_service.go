package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// WizardState names the phase of a guided population run.
type WizardState string

const (
	// WizardSetup: no active session; the user picks a rack and levels.
	WizardSetup WizardState = "setup"
	// WizardResume: an active session exists; the user continues or abandons.
	WizardResume WizardState = "resume"
	// WizardPopulating: the user walks the leaf list assigning products.
	WizardPopulating WizardState = "populating"
	// WizardFinished: the run completed; session cleared, locks released.
	WizardFinished WizardState = "finished"
)

var (
	// ErrNoActiveSession is returned by transitions that require a running
	// session when the user has none.
	ErrNoActiveSession = errors.New("no active wizard session")

	// ErrActiveSessionExists is returned by Start when the user already has
	// a resumable session; it must be resumed or abandoned first.
	ErrActiveSessionExists = errors.New("an active wizard session already exists")

	// ErrSessionStale is returned when a stored session's rack or levels no
	// longer resolve to live locations. The session is kept so an explicit
	// Abandon can still release exactly the locks it recorded.
	ErrSessionStale = errors.New("stored wizard session no longer resolves to live locations")
)

// Identity is the acting user as supplied by the authorization layer.
type Identity struct {
	ID          int
	DisplayName string
}

// AssignmentFeedback describes the most recent assignment for user display.
type AssignmentFeedback struct {
	ProductCode        string `json:"product_code"`
	ProductDescription string `json:"product_description"`
	LocationCode       string `json:"location_code"`
	LocationName       string `json:"location_name"`
}

// WizardView is the state returned to adapters after every transition.
type WizardView struct {
	State          WizardState         `json:"state"`
	Session        *WizardSession      `json:"session,omitempty"`
	Leaves         []Location          `json:"leaves,omitempty"`
	Current        *Location           `json:"current,omitempty"`
	Conflicts      []Location          `json:"conflicts,omitempty"`
	Locations      []Location          `json:"locations,omitempty"`
	LastAssignment *AssignmentFeedback `json:"last_assignment,omitempty"`
}

// WizardService drives the setup → resume? → populating → finished flow.
// The service itself is stateless: progress lives in the session row and
// the leaf list is re-derived from the stored rack/level ids on every
// call, which the deterministic code ordering makes index-stable.
type WizardService interface {
	// Load reports the entry state for a user: resume when an active
	// session exists, setup otherwise.
	Load(ctx context.Context, user Identity) (*WizardView, error)

	// Start validates the selection, acquires locks on the level ids and
	// creates a fresh session at index 0. A lock conflict is returned in
	// the view (state stays setup, Conflicts populated, Locations
	// refreshed) and creates no session.
	Start(ctx context.Context, user Identity, rackID int, levelIDs []int) (*WizardView, error)

	// Resume re-derives the leaf list from the stored session and
	// continues at the stored index. Locks stay held. Returns
	// ErrSessionStale if the stored ids no longer resolve.
	Resume(ctx context.Context, user Identity) (*WizardView, error)

	// Abandon clears the session and releases exactly the level ids it
	// recorded, then returns to setup.
	Abandon(ctx context.Context, user Identity) (*WizardView, error)

	// Assign writes an item-to-location assignment for the current leaf
	// (productCode empty means skip — no write) and advances. Advancing
	// past the last leaf finishes the run exactly like Finish. On a
	// failed assignment write the index is not advanced and the session
	// is left untouched, so a retry is safe.
	Assign(ctx context.Context, user Identity, productCode string) (*WizardView, error)

	// Back moves one leaf backwards, floored at index 0. It never writes
	// or undoes assignments.
	Back(ctx context.Context, user Identity) (*WizardView, error)

	// Finish clears the session and releases its locks.
	Finish(ctx context.Context, user Identity) (*WizardView, error)
}

type wizardService struct {
	pool      *pgxpool.Pool
	locations LocationService
	locks     LockService
	sessions  SessionService
	products  ProductService
}

// NewWizardService wires the wizard over its collaborating stores.
func NewWizardService(pool *pgxpool.Pool, locations LocationService, locks LockService,
	sessions SessionService, products ProductService) WizardService {
	return &wizardService{
		pool:      pool,
		locations: locations,
		locks:     locks,
		sessions:  sessions,
		products:  products,
	}
}

func (s *wizardService) Load(ctx context.Context, user Identity) (*WizardView, error) {
	session, err := s.sessions.GetActiveSession(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if session != nil {
		return &WizardView{State: WizardResume, Session: session}, nil
	}
	locs, err := s.locations.GetAllLocations(ctx)
	if err != nil {
		return nil, err
	}
	return &WizardView{State: WizardSetup, Locations: locs}, nil
}

func (s *wizardService) Start(ctx context.Context, user Identity, rackID int, levelIDs []int) (*WizardView, error) {
	existing, err := s.sessions.GetActiveSession(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrActiveSessionExists
	}

	// Validation happens before any side effect.
	if len(levelIDs) == 0 {
		return nil, fmt.Errorf("at least one level must be selected")
	}
	levelIDs = dedupeInts(levelIDs)
	all, err := s.locations.GetAllLocations(ctx)
	if err != nil {
		return nil, err
	}
	byID := indexLocations(all)
	if _, ok := byID[rackID]; !ok {
		return nil, fmt.Errorf("rack %d not found", rackID)
	}
	for _, id := range levelIDs {
		lvl, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("level %d not found", id)
		}
		if lvl.ParentID == nil || *lvl.ParentID != rackID {
			return nil, fmt.Errorf("location %s is not a level of the selected rack", lvl.Code)
		}
	}

	// The server-side all-or-nothing check is the authoritative guard;
	// any lock state the client displayed is advisory and may be stale.
	result, err := s.locks.AcquireLocks(ctx, levelIDs, user.ID, user.DisplayName)
	if err != nil {
		return nil, err
	}
	if !result.Acquired {
		fresh, err := s.locations.GetAllLocations(ctx)
		if err != nil {
			return nil, err
		}
		return &WizardView{State: WizardSetup, Conflicts: result.Conflicts, Locations: fresh}, nil
	}

	leaves := LeafDescendants(all, levelIDs)
	SortLocationsByCode(leaves)
	if len(leaves) == 0 {
		// Nothing to populate: undo the acquisition rather than strand locks.
		if relErr := s.locks.ReleaseLocks(ctx, levelIDs); relErr != nil {
			return nil, relErr
		}
		return nil, fmt.Errorf("selected levels contain no locations to populate")
	}

	session := &WizardSession{
		UserID:       user.ID,
		RackID:       rackID,
		LevelIDs:     levelIDs,
		CurrentIndex: 0,
	}
	if err := s.sessions.SaveSession(ctx, session); err != nil {
		// Session write failed after the locks were taken; release them so
		// the levels are not stranded behind a session that never existed.
		if relErr := s.locks.ReleaseLocks(ctx, levelIDs); relErr != nil {
			return nil, fmt.Errorf("%w (and releasing locks also failed: %v)", err, relErr)
		}
		return nil, err
	}
	return s.populatingView(session, leaves, nil), nil
}

func (s *wizardService) Resume(ctx context.Context, user Identity) (*WizardView, error) {
	session, err := s.sessions.GetActiveSession(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrNoActiveSession
	}
	leaves, err := s.resolveLeaves(ctx, session)
	if err != nil {
		return nil, err
	}
	if session.CurrentIndex >= len(leaves) {
		// The run was already complete when it was interrupted.
		return s.finishSession(ctx, session, nil)
	}
	return s.populatingView(session, leaves, nil), nil
}

func (s *wizardService) Abandon(ctx context.Context, user Identity) (*WizardView, error) {
	session, err := s.sessions.GetActiveSession(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrNoActiveSession
	}
	if err := s.sessions.ClearSession(ctx, user.ID); err != nil {
		return nil, err
	}
	// Release exactly the ids the session recorded, never whatever the UI
	// currently has selected.
	if err := s.locks.ReleaseLocks(ctx, session.LevelIDs); err != nil {
		return nil, err
	}
	locs, err := s.locations.GetAllLocations(ctx)
	if err != nil {
		return nil, err
	}
	return &WizardView{State: WizardSetup, Locations: locs}, nil
}

func (s *wizardService) Assign(ctx context.Context, user Identity, productCode string) (*WizardView, error) {
	session, err := s.sessions.GetActiveSession(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrNoActiveSession
	}
	leaves, err := s.resolveLeaves(ctx, session)
	if err != nil {
		return nil, err
	}
	if session.CurrentIndex >= len(leaves) {
		return s.finishSession(ctx, session, nil)
	}
	current := leaves[session.CurrentIndex]

	var feedback *AssignmentFeedback
	if productCode != "" {
		product, err := s.products.GetByCode(ctx, productCode)
		if err != nil {
			// Unknown code or write failure: stay on the same index so the
			// user can rescan. The session row is untouched.
			return nil, err
		}
		_, err = s.pool.Exec(ctx, `
			INSERT INTO item_assignments (product_id, location_id, assigned_by, assigned_by_user_id)
			VALUES ($1, $2, $3, $4)
		`, product.ID, current.ID, user.DisplayName, user.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to record assignment of %s to %s: %w", product.Code, current.Code, err)
		}
		feedback = &AssignmentFeedback{
			ProductCode:        product.Code,
			ProductDescription: product.Description,
			LocationCode:       current.Code,
			LocationName:       current.Name,
		}
	}

	session.CurrentIndex++
	if session.CurrentIndex >= len(leaves) {
		return s.finishSession(ctx, session, feedback)
	}
	if err := s.sessions.SaveSession(ctx, session); err != nil {
		return nil, err
	}
	return s.populatingView(session, leaves, feedback), nil
}

func (s *wizardService) Back(ctx context.Context, user Identity) (*WizardView, error) {
	session, err := s.sessions.GetActiveSession(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrNoActiveSession
	}
	leaves, err := s.resolveLeaves(ctx, session)
	if err != nil {
		return nil, err
	}
	if session.CurrentIndex > 0 {
		session.CurrentIndex--
		if err := s.sessions.SaveSession(ctx, session); err != nil {
			return nil, err
		}
	}
	return s.populatingView(session, leaves, nil), nil
}

func (s *wizardService) Finish(ctx context.Context, user Identity) (*WizardView, error) {
	session, err := s.sessions.GetActiveSession(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrNoActiveSession
	}
	return s.finishSession(ctx, session, nil)
}

// finishSession performs the shared cleanup of explicit finish, auto-finish
// after the last leaf, and resume of an already-complete run.
func (s *wizardService) finishSession(ctx context.Context, session *WizardSession, feedback *AssignmentFeedback) (*WizardView, error) {
	if err := s.sessions.ClearSession(ctx, session.UserID); err != nil {
		return nil, err
	}
	if err := s.locks.ReleaseLocks(ctx, session.LevelIDs); err != nil {
		return nil, err
	}
	return &WizardView{State: WizardFinished, LastAssignment: feedback}, nil
}

// resolveLeaves re-derives the ordered leaf list from the stored rack and
// level ids. The stored session is never trusted to carry a leaf list; the
// tree is the source of truth.
func (s *wizardService) resolveLeaves(ctx context.Context, session *WizardSession) ([]Location, error) {
	all, err := s.locations.GetAllLocations(ctx)
	if err != nil {
		return nil, err
	}
	byID := indexLocations(all)
	if _, ok := byID[session.RackID]; !ok {
		return nil, fmt.Errorf("rack %d: %w", session.RackID, ErrSessionStale)
	}
	for _, id := range session.LevelIDs {
		if _, ok := byID[id]; !ok {
			return nil, fmt.Errorf("level %d: %w", id, ErrSessionStale)
		}
	}
	leaves := LeafDescendants(all, session.LevelIDs)
	SortLocationsByCode(leaves)
	if len(leaves) == 0 {
		return nil, fmt.Errorf("no leaf locations remain: %w", ErrSessionStale)
	}
	return leaves, nil
}

func (s *wizardService) populatingView(session *WizardSession, leaves []Location, feedback *AssignmentFeedback) *WizardView {
	view := &WizardView{
		State:          WizardPopulating,
		Session:        session,
		Leaves:         leaves,
		LastAssignment: feedback,
	}
	if session.CurrentIndex < len(leaves) {
		current := leaves[session.CurrentIndex]
		view.Current = &current
	}
	return view
}

func indexLocations(all []Location) map[int]Location {
	byID := make(map[int]Location, len(all))
	for _, loc := range all {
		byID[loc.ID] = loc
	}
	return byID
}
