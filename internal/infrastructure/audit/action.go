// Package audit implements the write-behind audit side-channel: one
// append-only record per mutating request, written by a background worker so
// the primary request path never waits on, or fails because of, audit
// persistence.
package audit

import (
	"strings"

	"github.com/google/uuid"

	"github.com/schoolms/backend/internal/infrastructure/persistence/models"
)

// path segments that are routing structure, not entity names.
var structuralSegments = map[string]bool{
	"api":     true,
	"v1":      true,
	"auth":    true,
	"deleted": true,
	"restore": true,
	"bulk":    true,
}

// DeriveAction classifies a request into an audit action from its method and
// path. Restore and auth endpoints are recognized by path; everything else
// follows the method.
func DeriveAction(method, path string) string {
	switch {
	case strings.HasSuffix(path, "/restore"):
		return models.AuditActionRestore
	case strings.HasSuffix(path, "/login"):
		return models.AuditActionLogin
	case strings.HasSuffix(path, "/logout"):
		return models.AuditActionLogout
	}
	switch method {
	case "POST":
		return models.AuditActionCreate
	case "PUT", "PATCH":
		return models.AuditActionUpdate
	case "DELETE":
		return models.AuditActionDelete
	default:
		return method
	}
}

// DeriveEntity extracts the entity type and id from a request path such as
// /api/v1/students/3f1c.../restore. The type is the first segment that is
// neither routing structure nor an id; the id is the first UUID segment.
func DeriveEntity(path string) (entityType, entityID string) {
	for _, seg := range strings.Split(strings.Trim(path, "/"), "/") {
		if seg == "" || structuralSegments[seg] {
			continue
		}
		if _, err := uuid.Parse(seg); err == nil {
			if entityID == "" {
				entityID = seg
			}
			continue
		}
		if entityType == "" {
			entityType = seg
		}
	}
	return entityType, entityID
}
