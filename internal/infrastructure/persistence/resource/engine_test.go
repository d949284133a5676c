package resource

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/schoolms/backend/internal/domain/shared"
	"github.com/schoolms/backend/internal/infrastructure/logger"
	"github.com/schoolms/backend/internal/infrastructure/persistence/models"
	"github.com/schoolms/backend/internal/infrastructure/persistence/query"
	"github.com/schoolms/backend/internal/infrastructure/persistence/scope"
)

func setupEngineTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
	})
	require.NoError(t, err)

	// A single pooled connection keeps the in-memory database and the
	// foreign_keys pragma stable across queries.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.Exec("PRAGMA foreign_keys = ON").Error)
	require.NoError(t, models.AutoMigrate(db))
	return db
}

func testStudentDescriptor() Descriptor {
	return Descriptor{
		Name:         "students",
		SoftDelete:   true,
		BranchScoped: true,
		Schema: query.Schema{
			Table: "students",
			Fields: map[string]query.Field{
				"id":          query.F("id", query.UUID),
				"firstName":   query.F("first_name", query.String),
				"lastName":    query.F("last_name", query.String),
				"admissionNo": query.F("admission_no", query.String),
				"status":      query.F("status", query.String),
				"classId":     query.F("class_id", query.UUID),
			},
			SearchFields: []string{"firstName", "lastName", "admissionNo"},
		},
	}
}

func testGuardianDescriptor() Descriptor {
	return Descriptor{
		Name:         "guardians",
		SoftDelete:   false,
		BranchScoped: true,
		Schema: query.Schema{
			Table: "guardians",
			Fields: map[string]query.Field{
				"id":        query.F("id", query.UUID),
				"firstName": query.F("first_name", query.String),
				"lastName":  query.F("last_name", query.String),
				"phone":     query.F("phone", query.String),
				"studentId": query.F("student_id", query.UUID),
			},
			SearchFields: []string{"firstName", "lastName"},
		},
	}
}

func scopedCtx(tenantID, branchID string) context.Context {
	return scope.WithScope(context.Background(), scope.Scope{
		TenantID: tenantID,
		BranchID: branchID,
	})
}

func newStudent(first, last, admissionNo, status string) *models.Student {
	return &models.Student{
		FirstName:   first,
		LastName:    last,
		AdmissionNo: admissionNo,
		Status:      status,
	}
}

var (
	tenantA = uuid.NewString()
	branchA = uuid.NewString()
	branchB = uuid.NewString()
)

func TestEngine_CreateAndScope(t *testing.T) {
	db := setupEngineTestDB(t)
	eng := NewEngine[models.Student](db, testStudentDescriptor(), zap.NewNop())
	ctx := scopedCtx(tenantA, branchA)

	t.Run("create stamps the ambient scope", func(t *testing.T) {
		created, err := eng.Create(ctx, newStudent("Ada", "Lovelace", "S-001", "active"))
		require.NoError(t, err)
		assert.Equal(t, tenantA, created.TenantID)
		assert.Equal(t, branchA, created.BranchID)
		assert.NotEqual(t, uuid.Nil, created.ID)
	})

	t.Run("payload scope is overwritten", func(t *testing.T) {
		rec := newStudent("Alan", "Turing", "S-002", "active")
		rec.TenantID = "spoofed"
		rec.BranchID = "spoofed"
		created, err := eng.Create(ctx, rec)
		require.NoError(t, err)
		assert.Equal(t, branchA, created.BranchID)
	})

	t.Run("create without branch scope is rejected", func(t *testing.T) {
		_, err := eng.Create(context.Background(), newStudent("No", "Scope", "S-003", "active"))
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "UNSCOPED", domainErr.Code)
	})

	t.Run("duplicate admission number is a conflict", func(t *testing.T) {
		_, err := eng.Create(ctx, newStudent("Ada", "Again", "S-001", "active"))
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "CONFLICT", domainErr.Code)
	})

	t.Run("the same admission number under another tenant is fine", func(t *testing.T) {
		otherTenant := scopedCtx(uuid.NewString(), uuid.NewString())
		_, err := eng.Create(otherTenant, newStudent("Else", "Where", "S-001", "active"))
		require.NoError(t, err, "uniqueness must not leak across tenants")
	})

	t.Run("the same admission number under another branch is fine", func(t *testing.T) {
		otherBranch := scopedCtx(tenantA, uuid.NewString())
		_, err := eng.Create(otherBranch, newStudent("Next", "Door", "S-001", "active"))
		require.NoError(t, err)
	})

	t.Run("payload lifecycle fields are reset", func(t *testing.T) {
		rec := newStudent("Ghost", "Free", "S-004", "active")
		rec.MarkDeleted(time.Now(), "spoofed")
		created, err := eng.Create(ctx, rec)
		require.NoError(t, err)
		assert.False(t, created.IsDeleted())
		assert.Nil(t, created.DeletedBy)

		fetched, err := eng.GetOne(ctx, created.GetID())
		require.NoError(t, err)
		assert.False(t, fetched.IsDeleted())
	})
}

func TestEngine_ListAndIsolation(t *testing.T) {
	db := setupEngineTestDB(t)
	eng := NewEngine[models.Student](db, testStudentDescriptor(), zap.NewNop())
	ctxA := scopedCtx(tenantA, branchA)
	ctxB := scopedCtx(tenantA, branchB)

	for i, spec := range []struct{ first, no, status string }{
		{"Ada", "L-001", "active"},
		{"Alan", "L-002", "active"},
		{"Grace", "L-003", "graduated"},
	} {
		_, err := eng.Create(ctxA, newStudent(spec.first, "Test", spec.no, spec.status))
		require.NoError(t, err, "seed %d", i)
	}
	_, err := eng.Create(ctxB, newStudent("Other", "Branch", "L-100", "active"))
	require.NoError(t, err)

	t.Run("lists only the ambient branch", func(t *testing.T) {
		recs, total, err := eng.List(ctxA, query.ListParams{})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		assert.Len(t, recs, 3)
	})

	t.Run("pagination returns the correct page and the full total", func(t *testing.T) {
		recs, total, err := eng.List(ctxA, query.ListParams{Page: 2, PerPage: 2})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		assert.Len(t, recs, 1)
	})

	t.Run("filter narrows the listing", func(t *testing.T) {
		recs, total, err := eng.List(ctxA, query.ListParams{
			Filter: map[string]any{"status": "graduated"},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, recs, 1)
		assert.Equal(t, "Grace", recs[0].FirstName)
	})

	t.Run("search term replaces filters", func(t *testing.T) {
		recs, total, err := eng.List(ctxA, query.ListParams{
			Filter: map[string]any{"q": "ada", "status": "graduated"},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, recs, 1)
		assert.Equal(t, "Ada", recs[0].FirstName)
	})

	t.Run("sort orders the page", func(t *testing.T) {
		recs, _, err := eng.List(ctxA, query.ListParams{Sort: "-firstName"})
		require.NoError(t, err)
		require.Len(t, recs, 3)
		assert.Equal(t, "Grace", recs[0].FirstName)
	})

	t.Run("missing branch scope reads empty, not everything", func(t *testing.T) {
		recs, total, err := eng.List(context.Background(), query.ListParams{})
		require.NoError(t, err)
		assert.Zero(t, total)
		assert.Empty(t, recs)
	})

	t.Run("get one refuses cross-branch ids", func(t *testing.T) {
		recs, _, err := eng.List(ctxA, query.ListParams{})
		require.NoError(t, err)
		_, err = eng.GetOne(ctxB, recs[0].GetID())
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "NOT_FOUND", domainErr.Code)
	})

	t.Run("get many returns the existing subset", func(t *testing.T) {
		recs, _, err := eng.List(ctxA, query.ListParams{})
		require.NoError(t, err)
		got, err := eng.GetMany(ctxA, []string{recs[0].GetID(), uuid.NewString()})
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})
}

func TestEngine_UpdateAndPatchPolicy(t *testing.T) {
	db := setupEngineTestDB(t)
	eng := NewEngine[models.Student](db, testStudentDescriptor(), zap.NewNop())
	ctx := scopedCtx(tenantA, branchA)

	created, err := eng.Create(ctx, newStudent("Ada", "Lovelace", "U-001", "active"))
	require.NoError(t, err)

	t.Run("patch updates declared fields", func(t *testing.T) {
		updated, err := eng.Update(ctx, created.GetID(), map[string]any{
			"status": "suspended",
		})
		require.NoError(t, err)
		assert.Equal(t, "suspended", updated.Status)
		assert.Equal(t, "Ada", updated.FirstName)
	})

	t.Run("protected and unknown fields are dropped", func(t *testing.T) {
		updated, err := eng.Update(ctx, created.GetID(), map[string]any{
			"tenantId":  "spoofed",
			"deletedAt": "2024-01-01T00:00:00Z",
			"nonsense":  "x",
			"firstName": "Augusta",
		})
		require.NoError(t, err)
		assert.Equal(t, "Augusta", updated.FirstName)
		assert.Equal(t, tenantA, updated.TenantID)
		assert.False(t, updated.IsDeleted())
	})

	t.Run("empty patch is a no-op read", func(t *testing.T) {
		updated, err := eng.Update(ctx, created.GetID(), map[string]any{"nonsense": "x"})
		require.NoError(t, err)
		assert.Equal(t, "Augusta", updated.FirstName)
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		_, err := eng.Update(ctx, uuid.NewString(), map[string]any{"status": "active"})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "NOT_FOUND", domainErr.Code)
	})

	t.Run("update many echoes the requested ids", func(t *testing.T) {
		other, err := eng.Create(ctx, newStudent("Alan", "Turing", "U-002", "active"))
		require.NoError(t, err)

		ids := []string{created.GetID(), other.GetID(), uuid.NewString()}
		got, err := eng.UpdateMany(ctx, ids, map[string]any{"status": "graduated"})
		require.NoError(t, err)
		assert.Equal(t, ids, got)

		refreshed, err := eng.GetOne(ctx, other.GetID())
		require.NoError(t, err)
		assert.Equal(t, "graduated", refreshed.Status)
	})

	t.Run("update without branch scope is rejected", func(t *testing.T) {
		_, err := eng.Update(context.Background(), created.GetID(), map[string]any{"status": "active"})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "UNSCOPED", domainErr.Code)
	})
}

func TestEngine_SoftDeleteLifecycle(t *testing.T) {
	db := setupEngineTestDB(t)
	eng := NewEngine[models.Student](db, testStudentDescriptor(), zap.NewNop())
	ctx := scopedCtx(tenantA, branchA)

	created, err := eng.Create(ctx, newStudent("Ada", "Lovelace", "D-001", "active"))
	require.NoError(t, err)

	t.Run("delete marks instead of removing", func(t *testing.T) {
		deleted, err := eng.Delete(ctx, created.GetID())
		require.NoError(t, err)
		assert.True(t, deleted.IsDeleted())
		require.NotNil(t, deleted.DeletedBy)
		assert.Equal(t, "system", *deleted.DeletedBy)

		var count int64
		require.NoError(t, db.Model(&models.Student{}).Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	t.Run("deleted rows leave the main listing", func(t *testing.T) {
		_, total, err := eng.List(ctx, query.ListParams{})
		require.NoError(t, err)
		assert.Zero(t, total)

		_, err = eng.GetOne(ctx, created.GetID())
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "NOT_FOUND", domainErr.Code)
	})

	t.Run("deleted listing shows them", func(t *testing.T) {
		recs, total, err := eng.GetDeleted(ctx, query.ListParams{})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, recs, 1)
		assert.True(t, recs[0].IsDeleted())
	})

	t.Run("restore returns the row to the active state", func(t *testing.T) {
		restored, err := eng.Restore(ctx, created.GetID())
		require.NoError(t, err)
		assert.False(t, restored.IsDeleted())
		assert.Nil(t, restored.DeletedBy)

		_, total, err := eng.List(ctx, query.ListParams{})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
	})

	t.Run("restoring an active row is not found", func(t *testing.T) {
		_, err := eng.Restore(ctx, created.GetID())
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "NOT_FOUND", domainErr.Code)
	})

	t.Run("deleted-by records the acting user", func(t *testing.T) {
		userCtx, _ := logger.WithUser(ctx, zap.NewNop(), "user-42", "user@school.example")
		deleted, err := eng.Delete(userCtx, created.GetID())
		require.NoError(t, err)
		require.NotNil(t, deleted.DeletedBy)
		assert.Equal(t, "user-42", *deleted.DeletedBy)
	})

	t.Run("delete many soft-deletes the scoped subset", func(t *testing.T) {
		a, err := eng.Create(ctx, newStudent("Bulk", "One", "D-002", "active"))
		require.NoError(t, err)
		b, err := eng.Create(ctx, newStudent("Bulk", "Two", "D-003", "active"))
		require.NoError(t, err)

		ids, err := eng.DeleteMany(ctx, []string{a.GetID(), b.GetID()})
		require.NoError(t, err)
		assert.Len(t, ids, 2)

		_, total, err := eng.List(ctx, query.ListParams{})
		require.NoError(t, err)
		assert.Zero(t, total)
	})
}

func TestEngine_HardDeleteAndReferences(t *testing.T) {
	db := setupEngineTestDB(t)
	students := NewEngine[models.Student](db, testStudentDescriptor(), zap.NewNop())
	guardians := NewEngine[models.Guardian](db, testGuardianDescriptor(), zap.NewNop())
	ctx := scopedCtx(tenantA, branchA)

	student, err := students.Create(ctx, newStudent("Ada", "Lovelace", "H-001", "active"))
	require.NoError(t, err)

	guardian, err := guardians.Create(ctx, &models.Guardian{
		FirstName: "Anne",
		LastName:  "Byron",
		Phone:     "555-0100",
		StudentID: student.ID,
	})
	require.NoError(t, err)

	t.Run("creating against a missing reference fails", func(t *testing.T) {
		_, err := guardians.Create(ctx, &models.Guardian{
			FirstName: "No",
			LastName:  "Student",
			Phone:     "555-0101",
			StudentID: uuid.New(),
		})
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "BAD_REFERENCE", domainErr.Code)
	})

	t.Run("hard delete removes the row", func(t *testing.T) {
		_, err := guardians.Delete(ctx, guardian.GetID())
		require.NoError(t, err)

		var count int64
		require.NoError(t, db.Model(&models.Guardian{}).Count(&count).Error)
		assert.Zero(t, count)
	})

	t.Run("deleted listing is unsupported without soft delete", func(t *testing.T) {
		_, _, err := guardians.GetDeleted(ctx, query.ListParams{})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "NOT_SOFT_DELETE", domainErr.Code)
	})

	t.Run("get many reference lists by the target field", func(t *testing.T) {
		_, err := guardians.Create(ctx, &models.Guardian{
			FirstName: "Anne",
			LastName:  "Byron",
			Phone:     "555-0100",
			StudentID: student.ID,
		})
		require.NoError(t, err)

		recs, total, err := guardians.GetManyReference(ctx, "studentId", student.GetID(), query.ListParams{})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Len(t, recs, 1)
	})
}

func TestEngine_DistinctListing(t *testing.T) {
	db := setupEngineTestDB(t)
	eng := NewEngine[models.Student](db, testStudentDescriptor(), zap.NewNop())
	ctx := scopedCtx(tenantA, branchA)

	for _, spec := range []struct{ no, status string }{
		{"G-001", "active"},
		{"G-002", "active"},
		{"G-003", "graduated"},
		{"G-004", "suspended"},
	} {
		_, err := eng.Create(ctx, newStudent("S", "T", spec.no, spec.status))
		require.NoError(t, err)
	}

	t.Run("one representative per group, total counts groups", func(t *testing.T) {
		recs, total, err := eng.List(ctx, query.ListParams{
			Filter: map[string]any{query.DistinctKey: "status"},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		require.Len(t, recs, 3)

		seen := map[string]bool{}
		for _, rec := range recs {
			assert.False(t, seen[rec.Status], "duplicate group %s", rec.Status)
			seen[rec.Status] = true
		}
	})

	t.Run("grouping respects filters", func(t *testing.T) {
		_, total, err := eng.List(ctx, query.ListParams{
			Filter: map[string]any{
				query.DistinctKey: "status",
				"status":          "active",
			},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
	})

	t.Run("null group values form no group", func(t *testing.T) {
		// The four seeded students have no class; only the one assigned
		// below may appear when grouping by classId, and total must agree
		// with the page.
		class := models.SchoolClass{Name: "1A", GradeLevel: "1"}
		class.ApplyScope(tenantA, branchA)
		require.NoError(t, db.Create(&class).Error)

		assigned := newStudent("With", "Class", "G-005", "active")
		assigned.ClassID = &class.ID
		_, err := eng.Create(ctx, assigned)
		require.NoError(t, err)

		recs, total, err := eng.List(ctx, query.ListParams{
			Filter: map[string]any{query.DistinctKey: "classId"},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, recs, 1)
		require.NotNil(t, recs[0].ClassID)
		assert.Equal(t, class.ID, *recs[0].ClassID)
	})

	t.Run("unknown grouping field falls back to the plain listing", func(t *testing.T) {
		recs, total, err := eng.List(ctx, query.ListParams{
			Filter: map[string]any{query.DistinctKey: "nonsense"},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(5), total)
		assert.Len(t, recs, 5)
	})
}
