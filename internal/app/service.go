package app

import (
	"context"
	"io"

	"clic-tools/internal/core"
)

// ApplicationService is the single interface all UI adapters (web, REPL,
// CLI) call. It decouples presentation from business logic. Implementations
// must contain no fmt.Println, no ANSI codes, and no display logic of any
// kind.
type ApplicationService interface {
	// LoadWizard reports the entry state for a user: resume when an active
	// session exists, setup otherwise.
	LoadWizard(ctx context.Context, userID int) (*WizardResult, error)

	// StartWizard locks the selected levels and begins populating. A lock
	// conflict is reported inside the result, not as an error.
	StartWizard(ctx context.Context, req StartWizardRequest) (*WizardResult, error)

	// ResumeWizard continues the user's stored session at its saved index.
	ResumeWizard(ctx context.Context, userID int) (*WizardResult, error)

	// AbandonWizard discards the stored session and releases its locks.
	AbandonWizard(ctx context.Context, userID int) (*WizardResult, error)

	// AssignItem records a product assignment for the current leaf location
	// and advances. An empty product code skips the location.
	AssignItem(ctx context.Context, req AssignItemRequest) (*WizardResult, error)

	// StepBack moves the wizard one leaf backwards, floored at the start.
	StepBack(ctx context.Context, userID int) (*WizardResult, error)

	// FinishWizard ends the run: session cleared, locks released.
	FinishWizard(ctx context.Context, userID int) (*WizardResult, error)

	// ListLocations returns the full location tree with lock state.
	ListLocations(ctx context.Context) (*LocationListResult, error)

	// ListRacks returns the rack-type locations under the warehouse root.
	ListRacks(ctx context.Context) (*LocationListResult, error)

	// ListLevels returns the direct children of a rack.
	ListLevels(ctx context.Context, rackID int) (*LocationListResult, error)

	// ListProducts returns the active product catalog.
	ListProducts(ctx context.Context) (*ProductListResult, error)

	// CreateRack provisions a rack subtree and dispatches rack.created.
	CreateRack(ctx context.Context, req CreateRackRequest) (*RackResult, error)

	// ReleaseLocks force-clears lock state on the given location ids.
	// Administrative escape hatch for sessions whose owner is gone.
	ReleaseLocks(ctx context.Context, locationIDs []int) error

	// ClearUserSession force-deletes a user's wizard session and releases
	// the locks it recorded. Administrative counterpart of AbandonWizard.
	ClearUserSession(ctx context.Context, userID int) error

	// ListSessions returns every stored wizard session, for the admin tools.
	ListSessions(ctx context.Context) ([]core.WizardSession, error)

	// ProrateInvoice parses a supplier invoice XML document and spreads
	// its ancillary costs across the goods lines.
	ProrateInvoice(ctx context.Context, invoiceXML io.Reader) (*ProrationResult, error)

	// AuthenticateUser verifies credentials and returns a session on success.
	AuthenticateUser(ctx context.Context, username, password string) (*UserSession, error)

	// GetUser returns user profile by ID.
	GetUser(ctx context.Context, userID int) (*UserResult, error)

	// ListNotifications returns recently dispatched notifications, newest
	// first, for the admin screens.
	ListNotifications(ctx context.Context, limit int) ([]core.Notification, error)
}
