package app

import "clic-tools/internal/core"

// WizardResult wraps the wizard view returned by every transition.
type WizardResult struct {
	View *core.WizardView
}

// LocationListResult is returned by the location queries.
type LocationListResult struct {
	Locations []core.Location
}

// ProductListResult is returned by ListProducts.
type ProductListResult struct {
	Products []core.Product
}

// RackResult is returned by CreateRack.
type RackResult struct {
	Rack *core.Location
}

// ProrationResult is returned by ProrateInvoice.
type ProrationResult struct {
	Invoice     *core.SupplierInvoice
	Allocations []core.CostAllocation
}

// UserSession is returned by AuthenticateUser.
type UserSession struct {
	UserID      int    `json:"user_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

// UserResult is returned by GetUser.
type UserResult struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Role        string `json:"role"`
}
