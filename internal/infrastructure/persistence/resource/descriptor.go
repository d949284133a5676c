// Package resource implements the generic CRUD engine shared by every
// registered entity. One Engine instance serves one model type; the
// Descriptor declares the model's query surface and lifecycle capabilities,
// and all tenant/branch scoping, soft-delete visibility and filter
// translation flow through the query package so each operation enforces the
// same policy.
package resource

import "github.com/schoolms/backend/internal/infrastructure/persistence/query"

// Descriptor declares one registered resource.
type Descriptor struct {
	// Name is the URL path segment and registry key, e.g. "students".
	Name string
	// Schema is the declared filter/sort surface.
	Schema query.Schema
	// SoftDelete marks resources whose delete is a reversible state
	// transition instead of a row removal.
	SoftDelete bool
	// BranchScoped marks resources isolated per branch. Reads without a
	// branch identity return nothing; writes without one are rejected.
	BranchScoped bool
}
