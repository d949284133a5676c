// Package middleware contains the gin middleware chain: request
// identification, CORS, scope resolution and the audit side-channel.
package middleware

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/schoolms/backend/internal/infrastructure/logger"
	"github.com/schoolms/backend/internal/infrastructure/persistence/scope"
)

// Scope-carrying request headers. X-School-Id is the preferred branch
// header; X-Branch-Id is the legacy spelling and only read when the
// preferred one is absent.
const (
	HeaderTenantID  = "X-Tenant-Id"
	HeaderSchoolID  = "X-School-Id"
	HeaderBranchID  = "X-Branch-Id"
	HeaderUserID    = "X-User-Id"
	HeaderUserEmail = "X-User-Email"
)

// Scope resolves the tenant/branch identity from the request headers and
// attaches it, together with the request-scoped logger and acting user, to
// the request context. Everything downstream of this middleware reads
// identity from the context only.
func Scope(base *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		branchID := c.GetHeader(HeaderSchoolID)
		if branchID == "" {
			branchID = c.GetHeader(HeaderBranchID)
		}
		sc := scope.Scope{
			TenantID: c.GetHeader(HeaderTenantID),
			BranchID: branchID,
		}

		log := base
		if sc.TenantID != "" {
			log = log.With(zap.String("tenant_id", sc.TenantID))
		}
		if sc.BranchID != "" {
			log = log.With(zap.String("branch_id", sc.BranchID))
		}

		ctx := scope.WithScope(c.Request.Context(), sc)
		ctx, log = logger.WithRequestID(ctx, log, c.GetString("request_id"))
		ctx, _ = logger.WithUser(ctx, log, c.GetHeader(HeaderUserID), c.GetHeader(HeaderUserEmail))

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
