package resource

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/schoolms/backend/internal/domain/shared"
	"github.com/schoolms/backend/internal/infrastructure/logger"
	"github.com/schoolms/backend/internal/infrastructure/persistence/query"
	"github.com/schoolms/backend/internal/infrastructure/persistence/scope"
)

// identified is the minimal capability every registered model must have.
type identified interface {
	GetID() string
}

// scoped is implemented by models embedding the tenant/branch columns.
type scoped interface {
	ApplyScope(tenantID, branchID string)
}

// softDeletable is implemented by models carrying the soft-delete lifecycle.
type softDeletable interface {
	MarkDeleted(at time.Time, by string)
	ClearDeleted()
	IsDeleted() bool
}

// Engine is the generic data-access engine for one model type. Every
// operation resolves the ambient scope from the context, so callers never
// pass tenant or branch identity explicitly.
type Engine[M any] struct {
	db   *gorm.DB
	desc Descriptor
	log  *zap.Logger
}

// NewEngine builds the engine for one descriptor. It panics at wiring time
// when the model type lacks a capability the descriptor claims, so a
// misconfigured registration fails on startup instead of mid-request.
func NewEngine[M any](db *gorm.DB, desc Descriptor, log *zap.Logger) *Engine[M] {
	var m M
	if _, ok := any(&m).(identified); !ok {
		panic(fmt.Sprintf("resource %q: model %T has no GetID", desc.Name, &m))
	}
	if desc.BranchScoped {
		if _, ok := any(&m).(scoped); !ok {
			panic(fmt.Sprintf("resource %q: model %T is not branch-scopable", desc.Name, &m))
		}
	}
	if desc.SoftDelete {
		if _, ok := any(&m).(softDeletable); !ok {
			panic(fmt.Sprintf("resource %q: model %T has no soft-delete fields", desc.Name, &m))
		}
	}
	return &Engine[M]{db: db, desc: desc, log: log.With(zap.String("resource", desc.Name))}
}

// Name returns the resource's registry key.
func (e *Engine[M]) Name() string { return e.desc.Name }

// SoftDelete reports whether the resource has a reversible delete.
func (e *Engine[M]) SoftDelete() bool { return e.desc.SoftDelete }

// Schema returns the declared query surface.
func (e *Engine[M]) Schema() query.Schema { return e.desc.Schema }

func (e *Engine[M]) translate(ctx context.Context, p query.ListParams, mode query.DeletedMode) query.Result {
	return query.Translate(e.desc.Schema, p, query.Options{
		SoftDelete:   e.desc.SoftDelete,
		Deleted:      mode,
		BranchScoped: e.desc.BranchScoped,
		Scope:        scope.FromContext(ctx),
	})
}

// requireScope enforces the write-side scope policy: mutating a
// branch-scoped resource without a branch identity is an error, never a
// cross-branch write.
func (e *Engine[M]) requireScope(ctx context.Context) (scope.Scope, error) {
	sc := scope.FromContext(ctx)
	if e.desc.BranchScoped && !sc.HasBranch() {
		return sc, shared.ErrUnscoped
	}
	return sc, nil
}

// List returns one page of active rows plus the total count under the same
// predicate. When the params carry a distinct grouping field, the grouped
// listing is attempted first and any failure falls back to the plain listing
// with a logged warning.
func (e *Engine[M]) List(ctx context.Context, p query.ListParams) ([]M, int64, error) {
	p.Normalize()
	if p.Distinct() != "" {
		recs, total, err := e.listDistinct(ctx, p)
		if err == nil {
			return recs, total, nil
		}
		logger.L(ctx).Warn("distinct listing failed, falling back to plain listing",
			zap.String("resource", e.desc.Name),
			zap.Error(err))
	}
	return e.list(ctx, p, query.DeletedExclude)
}

// GetDeleted returns one page of soft-deleted rows. Resources without a
// soft-delete lifecycle have no deleted listing.
func (e *Engine[M]) GetDeleted(ctx context.Context, p query.ListParams) ([]M, int64, error) {
	if !e.desc.SoftDelete {
		return nil, 0, shared.ErrNotSoftDelete
	}
	p.Normalize()
	return e.list(ctx, p, query.DeletedOnly)
}

func (e *Engine[M]) list(ctx context.Context, p query.ListParams, mode query.DeletedMode) ([]M, int64, error) {
	tr := e.translate(ctx, p, mode)

	recs := []M{}
	if err := tr.Apply(e.model(ctx)).Find(&recs).Error; err != nil {
		return nil, 0, fmt.Errorf("list %s: %w", e.desc.Name, err)
	}

	var total int64
	if err := tr.ApplyWhere(e.model(ctx)).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count %s: %w", e.desc.Name, err)
	}
	return recs, total, nil
}

// GetOne returns one active row by id under the ambient scope. An id that
// exists outside the scope, or a soft-deleted row, is a not-found.
func (e *Engine[M]) GetOne(ctx context.Context, id string) (*M, error) {
	return e.getOne(ctx, id, query.DeletedExclude)
}

func (e *Engine[M]) getOne(ctx context.Context, id string, mode query.DeletedMode) (*M, error) {
	tr := e.translate(ctx, query.ListParams{}, mode)

	var rec M
	err := tr.ApplyWhere(e.model(ctx)).
		Where(e.desc.Schema.Table+".id = ?", id).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, shared.ErrNotFound.WithMessage(e.desc.Name + " not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get %s %s: %w", e.desc.Name, id, err)
	}
	return &rec, nil
}

// GetMany returns the subset of the given ids that exist as active rows
// under the ambient scope. Missing ids are silently absent, not errors.
func (e *Engine[M]) GetMany(ctx context.Context, ids []string) ([]M, error) {
	if len(ids) == 0 {
		return []M{}, nil
	}
	tr := e.translate(ctx, query.ListParams{IDs: ids}, query.DeletedExclude)

	recs := []M{}
	if err := tr.ApplyWhere(e.model(ctx)).Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("get many %s: %w", e.desc.Name, err)
	}
	return recs, nil
}

// GetManyReference lists active rows whose reference field points at the
// given id, with the full pagination/sort/filter surface of List.
func (e *Engine[M]) GetManyReference(ctx context.Context, target, id string, p query.ListParams) ([]M, int64, error) {
	return e.List(ctx, p.WithFilter(target, id))
}

// Create inserts one row. Scope columns are stamped from the ambient
// identity and lifecycle columns are reset, overwriting anything the
// payload carried: a row is always born active, never pre-deleted.
func (e *Engine[M]) Create(ctx context.Context, rec *M) (*M, error) {
	sc, err := e.requireScope(ctx)
	if err != nil {
		return nil, err
	}
	if s, ok := any(rec).(scoped); ok {
		s.ApplyScope(sc.TenantID, sc.BranchID)
	}
	if sd, ok := any(rec).(softDeletable); ok {
		sd.ClearDeleted()
	}
	if err := e.db.WithContext(ctx).Create(rec).Error; err != nil {
		return nil, e.writeError(err)
	}
	return rec, nil
}

// Update applies a partial column patch to one row and returns the updated
// row. Unknown fields and protected columns are dropped from the patch; an
// effectively empty patch is a no-op read.
func (e *Engine[M]) Update(ctx context.Context, id string, patch map[string]any) (*M, error) {
	if _, err := e.requireScope(ctx); err != nil {
		return nil, err
	}
	if _, err := e.GetOne(ctx, id); err != nil {
		return nil, err
	}

	cols := e.columnPatch(patch)
	if len(cols) == 0 {
		return e.GetOne(ctx, id)
	}
	cols["updated_at"] = time.Now()

	tr := e.translate(ctx, query.ListParams{}, query.DeletedExclude)
	err := tr.ApplyWhere(e.model(ctx)).
		Where(e.desc.Schema.Table+".id = ?", id).
		Updates(cols).Error
	if err != nil {
		return nil, e.writeError(err)
	}
	return e.GetOne(ctx, id)
}

// UpdateMany applies the same patch to every given id that exists under the
// ambient scope. Ids that do not match are skipped, and the requested id set
// is echoed back regardless, matching the bulk contract.
func (e *Engine[M]) UpdateMany(ctx context.Context, ids []string, patch map[string]any) ([]string, error) {
	if _, err := e.requireScope(ctx); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []string{}, nil
	}

	cols := e.columnPatch(patch)
	if len(cols) == 0 {
		return ids, nil
	}
	cols["updated_at"] = time.Now()

	tr := e.translate(ctx, query.ListParams{IDs: ids}, query.DeletedExclude)
	if err := tr.ApplyWhere(e.model(ctx)).Updates(cols).Error; err != nil {
		return nil, e.writeError(err)
	}
	return ids, nil
}

// Delete removes one row and returns its pre-delete state. Soft-deletable
// resources transition to the deleted state with the acting user recorded;
// everything else is a hard row removal.
func (e *Engine[M]) Delete(ctx context.Context, id string) (*M, error) {
	if _, err := e.requireScope(ctx); err != nil {
		return nil, err
	}
	rec, err := e.GetOne(ctx, id)
	if err != nil {
		return nil, err
	}

	if e.desc.SoftDelete {
		now := time.Now()
		actor := e.actor(ctx)
		tr := e.translate(ctx, query.ListParams{}, query.DeletedExclude)
		err := tr.ApplyWhere(e.model(ctx)).
			Where(e.desc.Schema.Table+".id = ?", id).
			Updates(map[string]any{"deleted_at": now, "deleted_by": actor}).Error
		if err != nil {
			return nil, e.writeError(err)
		}
		if sd, ok := any(rec).(softDeletable); ok {
			sd.MarkDeleted(now, actor)
		}
		return rec, nil
	}

	tr := e.translate(ctx, query.ListParams{}, query.DeletedAny)
	err = tr.ApplyWhere(e.db.WithContext(ctx)).
		Where(e.desc.Schema.Table+".id = ?", id).
		Delete(new(M)).Error
	if err != nil {
		return nil, e.writeError(err)
	}
	return rec, nil
}

// DeleteMany removes every given id that exists under the ambient scope and
// echoes the requested id set back.
func (e *Engine[M]) DeleteMany(ctx context.Context, ids []string) ([]string, error) {
	if _, err := e.requireScope(ctx); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []string{}, nil
	}

	if e.desc.SoftDelete {
		tr := e.translate(ctx, query.ListParams{IDs: ids}, query.DeletedExclude)
		err := tr.ApplyWhere(e.model(ctx)).
			Updates(map[string]any{"deleted_at": time.Now(), "deleted_by": e.actor(ctx)}).Error
		if err != nil {
			return nil, e.writeError(err)
		}
		return ids, nil
	}

	tr := e.translate(ctx, query.ListParams{IDs: ids}, query.DeletedAny)
	if err := tr.ApplyWhere(e.db.WithContext(ctx)).Delete(new(M)).Error; err != nil {
		return nil, e.writeError(err)
	}
	return ids, nil
}

// Restore transitions one soft-deleted row back to the active state and
// returns it. Restoring a row that is not soft-deleted is a not-found.
func (e *Engine[M]) Restore(ctx context.Context, id string) (*M, error) {
	if !e.desc.SoftDelete {
		return nil, shared.ErrNotSoftDelete
	}
	if _, err := e.requireScope(ctx); err != nil {
		return nil, err
	}
	if _, err := e.getOne(ctx, id, query.DeletedOnly); err != nil {
		return nil, err
	}

	tr := e.translate(ctx, query.ListParams{}, query.DeletedOnly)
	err := tr.ApplyWhere(e.model(ctx)).
		Where(e.desc.Schema.Table+".id = ?", id).
		Updates(map[string]any{"deleted_at": nil, "deleted_by": nil}).Error
	if err != nil {
		return nil, e.writeError(err)
	}
	return e.GetOne(ctx, id)
}

// Fetch loads one row for the audit pre-image without knowing the model
// type. Soft-deleted rows are visible here: the pre-image of a restore is
// the deleted row.
func (e *Engine[M]) Fetch(ctx context.Context, id string) (any, error) {
	rec, err := e.getOne(ctx, id, query.DeletedAny)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (e *Engine[M]) model(ctx context.Context) *gorm.DB {
	return e.db.WithContext(ctx).Model(new(M))
}

// actor resolves who performs a mutation for the deleted_by stamp.
func (e *Engine[M]) actor(ctx context.Context) string {
	if uid := logger.GetUserID(ctx); uid != "" {
		return uid
	}
	return "system"
}

// columnPatch converts a client field patch into a column update map.
// Only fields the schema declares are writable; identity, scope and
// lifecycle columns are never client-writable.
func (e *Engine[M]) columnPatch(patch map[string]any) map[string]any {
	cols := make(map[string]any, len(patch))
	for name, value := range patch {
		if protectedFields[name] {
			continue
		}
		f, ok := e.desc.Schema.Fields[name]
		if !ok {
			continue
		}
		if coerced, ok := query.Coerce(f, value); ok {
			cols[f.Column] = coerced
		} else {
			cols[f.Column] = value
		}
	}
	return cols
}

var protectedFields = map[string]bool{
	"id":        true,
	"createdAt": true,
	"updatedAt": true,
	"tenantId":  true,
	"branchId":  true,
	"deletedAt": true,
	"deletedBy": true,
}

// writeError maps driver-level constraint violations onto the domain error
// taxonomy. TranslateError is enabled on the connection, so the sentinels
// are dialect-independent.
func (e *Engine[M]) writeError(err error) error {
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return shared.ErrConflict.WithMessage("duplicate value for a unique field on " + e.desc.Name)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return shared.ErrBadReference.WithMessage("referenced record does not exist")
	case errors.Is(err, gorm.ErrRecordNotFound):
		return shared.ErrNotFound.WithMessage(e.desc.Name + " not found")
	default:
		return err
	}
}
