package app

// StartWizardRequest is the input for starting a guided population run.
type StartWizardRequest struct {
	UserID   int
	RackID   int
	LevelIDs []int
}

// AssignItemRequest is the input for one assign-and-advance step.
// An empty ProductCode means "skip this location".
type AssignItemRequest struct {
	UserID      int
	ProductCode string
}

// CreateRackRequest is the input for provisioning a rack subtree.
type CreateRackRequest struct {
	Name   string
	Code   string
	Levels int
	Bins   int
}
