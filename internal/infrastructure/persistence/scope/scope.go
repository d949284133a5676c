// Package scope carries the ambient tenant/branch identity of one inbound
// request and turns it into GORM query predicates.
//
// The identity is attached to the request context once, by the scope
// middleware, and read by every downstream data access call without being
// threaded through function signatures. Because it rides on context.Context,
// any goroutine started with that context (or a context derived from it, for
// example via context.WithoutCancel) observes the same scope, which is what
// keeps detached work such as the audit pre-image fetch correctly scoped.
//
// Usage:
//
//	ctx = scope.WithScope(ctx, scope.Scope{TenantID: t, BranchID: b})
//	sc := scope.FromContext(ctx)
//	db.Scopes(scope.BranchScope(sc.BranchID)).Find(&students)
package scope

import (
	"context"

	"gorm.io/gorm"
)

// Scope is the ambient tenant/branch identity of one inbound request.
// It is immutable for the request's lifetime: created once by the middleware
// and only ever read afterwards.
type Scope struct {
	TenantID string
	BranchID string
}

// IsZero reports whether no identity was established at all.
func (s Scope) IsZero() bool {
	return s.TenantID == "" && s.BranchID == ""
}

// HasBranch reports whether a branch identity is present.
func (s Scope) HasBranch() bool {
	return s.BranchID != ""
}

type contextKey struct{}

// WithScope returns a context carrying the given scope.
func WithScope(ctx context.Context, s Scope) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the scope attached to ctx, or the zero scope when none
// was established.
func FromContext(ctx context.Context) Scope {
	if s, ok := ctx.Value(contextKey{}).(Scope); ok {
		return s
	}
	return Scope{}
}

// TenantScope applies tenant filtering to a GORM query.
func TenantScope(tenantID string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("tenant_id = ?", tenantID)
	}
}

// BranchScope applies branch filtering to a GORM query.
func BranchScope(branchID string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("branch_id = ?", branchID)
	}
}

// NoneScope matches no rows. It is the predicate a branch-scoped resource
// falls back to when no branch identity is present: missing scope means "no
// results", never "all branches".
func NoneScope() func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("1 = 0")
	}
}
