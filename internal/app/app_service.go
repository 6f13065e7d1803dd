package app

import (
	"context"
	"fmt"
	"io"

	"clic-tools/internal/core"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

type appService struct {
	pool       *pgxpool.Pool
	locations  core.LocationService
	locks      core.LockService
	sessions   core.SessionService
	products   core.ProductService
	wizard     core.WizardService
	structure  core.StructureService
	users      core.UserService
	ruleEngine core.RuleEngine
}

// NewAppService constructs an appService that satisfies ApplicationService.
func NewAppService(
	pool *pgxpool.Pool,
	locations core.LocationService,
	locks core.LockService,
	sessions core.SessionService,
	products core.ProductService,
	wizard core.WizardService,
	structure core.StructureService,
	users core.UserService,
	ruleEngine core.RuleEngine,
) ApplicationService {
	return &appService{
		pool:       pool,
		locations:  locations,
		locks:      locks,
		sessions:   sessions,
		products:   products,
		wizard:     wizard,
		structure:  structure,
		users:      users,
		ruleEngine: ruleEngine,
	}
}

// identity resolves the acting user for wizard calls. The authorization
// layer supplies only the user id; the display name recorded on locks and
// assignments comes from the user row.
func (s *appService) identity(ctx context.Context, userID int) (core.Identity, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return core.Identity{}, err
	}
	return user.Identity(), nil
}

func (s *appService) LoadWizard(ctx context.Context, userID int) (*WizardResult, error) {
	user, err := s.identity(ctx, userID)
	if err != nil {
		return nil, err
	}
	view, err := s.wizard.Load(ctx, user)
	if err != nil {
		return nil, err
	}
	return &WizardResult{View: view}, nil
}

func (s *appService) StartWizard(ctx context.Context, req StartWizardRequest) (*WizardResult, error) {
	user, err := s.identity(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	view, err := s.wizard.Start(ctx, user, req.RackID, req.LevelIDs)
	if err != nil {
		return nil, err
	}
	return &WizardResult{View: view}, nil
}

func (s *appService) ResumeWizard(ctx context.Context, userID int) (*WizardResult, error) {
	user, err := s.identity(ctx, userID)
	if err != nil {
		return nil, err
	}
	view, err := s.wizard.Resume(ctx, user)
	if err != nil {
		return nil, err
	}
	return &WizardResult{View: view}, nil
}

func (s *appService) AbandonWizard(ctx context.Context, userID int) (*WizardResult, error) {
	user, err := s.identity(ctx, userID)
	if err != nil {
		return nil, err
	}
	view, err := s.wizard.Abandon(ctx, user)
	if err != nil {
		return nil, err
	}
	return &WizardResult{View: view}, nil
}

func (s *appService) AssignItem(ctx context.Context, req AssignItemRequest) (*WizardResult, error) {
	user, err := s.identity(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	view, err := s.wizard.Assign(ctx, user, req.ProductCode)
	if err != nil {
		return nil, err
	}
	return &WizardResult{View: view}, nil
}

func (s *appService) StepBack(ctx context.Context, userID int) (*WizardResult, error) {
	user, err := s.identity(ctx, userID)
	if err != nil {
		return nil, err
	}
	view, err := s.wizard.Back(ctx, user)
	if err != nil {
		return nil, err
	}
	return &WizardResult{View: view}, nil
}

func (s *appService) FinishWizard(ctx context.Context, userID int) (*WizardResult, error) {
	user, err := s.identity(ctx, userID)
	if err != nil {
		return nil, err
	}
	view, err := s.wizard.Finish(ctx, user)
	if err != nil {
		return nil, err
	}
	return &WizardResult{View: view}, nil
}

func (s *appService) ListLocations(ctx context.Context) (*LocationListResult, error) {
	locs, err := s.locations.GetAllLocations(ctx)
	if err != nil {
		return nil, err
	}
	return &LocationListResult{Locations: locs}, nil
}

func (s *appService) ListRacks(ctx context.Context) (*LocationListResult, error) {
	racks, err := s.locations.GetRacks(ctx)
	if err != nil {
		return nil, err
	}
	return &LocationListResult{Locations: racks}, nil
}

func (s *appService) ListLevels(ctx context.Context, rackID int) (*LocationListResult, error) {
	levels, err := s.locations.GetLevels(ctx, rackID)
	if err != nil {
		return nil, err
	}
	return &LocationListResult{Locations: levels}, nil
}

func (s *appService) ListProducts(ctx context.Context) (*ProductListResult, error) {
	products, err := s.products.GetProducts(ctx)
	if err != nil {
		return nil, err
	}
	return &ProductListResult{Products: products}, nil
}

func (s *appService) CreateRack(ctx context.Context, req CreateRackRequest) (*RackResult, error) {
	rack, err := s.structure.CreateRack(ctx, req.Name, req.Code, req.Levels, req.Bins)
	if err != nil {
		return nil, err
	}
	return &RackResult{Rack: rack}, nil
}

func (s *appService) ReleaseLocks(ctx context.Context, locationIDs []int) error {
	if len(locationIDs) == 0 {
		return fmt.Errorf("no location ids given")
	}
	return s.locks.ReleaseLocks(ctx, locationIDs)
}

func (s *appService) ClearUserSession(ctx context.Context, userID int) error {
	session, err := s.sessions.GetActiveSession(ctx, userID)
	if err != nil {
		return err
	}
	if session == nil {
		return nil
	}
	if err := s.sessions.ClearSession(ctx, userID); err != nil {
		return err
	}
	return s.locks.ReleaseLocks(ctx, session.LevelIDs)
}

func (s *appService) ListSessions(ctx context.Context) ([]core.WizardSession, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, rack_id, level_ids, current_index, created_at, updated_at
		FROM wizard_sessions
		ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query wizard sessions: %w", err)
	}
	defer rows.Close()

	var out []core.WizardSession
	for rows.Next() {
		var ws core.WizardSession
		if err := rows.Scan(&ws.ID, &ws.UserID, &ws.RackID, &ws.LevelIDs, &ws.CurrentIndex,
			&ws.CreatedAt, &ws.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan wizard session: %w", err)
		}
		out = append(out, ws)
	}
	return out, rows.Err()
}

func (s *appService) ProrateInvoice(ctx context.Context, invoiceXML io.Reader) (*ProrationResult, error) {
	invoice, err := core.ParseSupplierInvoice(invoiceXML)
	if err != nil {
		return nil, err
	}
	allocations, err := core.ProrateAncillary(invoice)
	if err != nil {
		return nil, err
	}
	return &ProrationResult{Invoice: invoice, Allocations: allocations}, nil
}

func (s *appService) AuthenticateUser(ctx context.Context, username, password string) (*UserSession, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("authentication failed: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("authentication failed: invalid credentials")
	}
	return &UserSession{
		UserID:      user.ID,
		Username:    user.Username,
		DisplayName: user.DisplayName,
		Role:        user.Role,
	}, nil
}

func (s *appService) GetUser(ctx context.Context, userID int) (*UserResult, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &UserResult{
		Username:    user.Username,
		DisplayName: user.DisplayName,
		Email:       user.Email,
		Role:        user.Role,
	}, nil
}

func (s *appService) ListNotifications(ctx context.Context, limit int) ([]core.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, event_key, recipient, message, created_at
		FROM notifications
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var out []core.Notification
	for rows.Next() {
		var n core.Notification
		if err := rows.Scan(&n.ID, &n.EventKey, &n.Recipient, &n.Message, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
