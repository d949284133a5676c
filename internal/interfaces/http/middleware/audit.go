package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/schoolms/backend/internal/infrastructure/audit"
	"github.com/schoolms/backend/internal/infrastructure/logger"
	"github.com/schoolms/backend/internal/infrastructure/persistence/models"
	"github.com/schoolms/backend/internal/infrastructure/persistence/resource"
	"github.com/schoolms/backend/internal/infrastructure/persistence/scope"
)

// maxAuditBody bounds how much of a request or response body lands in one
// audit record.
const maxAuditBody = 64 << 10

// Audit records one audit entry per mutating request. The record is built
// after the handler ran and handed to the recorder's queue; nothing on this
// path can block or fail the primary request. For updates, deletes and
// restores a pre-image fetch is started before the handler runs, on a
// context detached from the request's cancellation, and joined later by the
// recorder worker.
func Audit(rec *audit.Recorder, reg *resource.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !auditable(c) {
			c.Next()
			return
		}

		start := time.Now()
		action := audit.DeriveAction(c.Request.Method, c.Request.URL.Path)
		entityType, entityID := audit.DeriveEntity(c.Request.URL.Path)

		reqBody := captureRequestBody(c)
		preImage := fetchPreImage(c.Request.Context(), reg, action, entityType, entityID)

		writer := &bodyCapture{ResponseWriter: c.Writer}
		c.Writer = writer

		// Deferred so a panicking handler is still audited: the record is
		// enqueued during unwinding and the panic re-raised for the recovery
		// middleware further up the chain.
		defer func() {
			panicked := recover()

			record := models.AuditLog{
				Action:     action,
				Method:     c.Request.Method,
				Endpoint:   c.Request.URL.Path,
				EntityType: entityType,
				EntityID:   entityID,
				IPAddress:  c.ClientIP(),
				UserAgent:  c.Request.UserAgent(),
				StatusCode: writer.Status(),
				DurationMs: time.Since(start).Milliseconds(),
				CreatedAt:  time.Now(),
			}

			ctx := c.Request.Context()
			sc := scope.FromContext(ctx)
			record.TenantID = sc.TenantID
			record.BranchID = sc.BranchID
			record.UserID = logger.GetUserID(ctx)
			record.UserEmail = logger.GetUserEmail(ctx)

			if record.EntityID == "" {
				record.EntityID = responseDataID(writer.body.Bytes())
			}
			if len(reqBody) > 0 && c.Request.Method != "DELETE" {
				s := truncate(reqBody)
				record.NewData = &s
			}
			if panicked != nil {
				record.StatusCode = http.StatusInternalServerError
				msg := fmt.Sprintf("%v", panicked)
				record.ErrorMessage = &msg
			} else if record.StatusCode >= 400 {
				if msg := responseErrorMessage(writer.body.Bytes()); msg != "" {
					record.ErrorMessage = &msg
				}
			}

			rec.Record(audit.Entry{Record: record, PreImage: preImage})

			if panicked != nil {
				panic(panicked)
			}
		}()

		c.Next()
	}
}

// auditable excludes reads and the health endpoint from the audit trail.
func auditable(c *gin.Context) bool {
	switch c.Request.Method {
	case "GET", "HEAD", "OPTIONS":
		return false
	}
	return !strings.HasSuffix(c.Request.URL.Path, "/health")
}

// fetchPreImage starts the detached prior-state fetch for actions that
// change an existing row. The context is detached from the request's
// cancellation but keeps its values, so the fetch stays tenant-scoped even
// when the client disconnects before it completes.
func fetchPreImage(ctx context.Context, reg *resource.Registry, action, entityType, entityID string) <-chan []byte {
	switch action {
	case models.AuditActionUpdate, models.AuditActionDelete, models.AuditActionRestore:
	default:
		return nil
	}
	if entityType == "" || entityID == "" {
		return nil
	}
	res, ok := reg.Lookup(entityType)
	if !ok {
		return nil
	}

	out := make(chan []byte, 1)
	detached := context.WithoutCancel(ctx)
	go func() {
		defer close(out)
		rec, err := res.Fetch(detached, entityID)
		if err != nil {
			logger.L(detached).Debug("audit pre-image fetch failed",
				zap.String("entity_type", entityType),
				zap.String("entity_id", entityID),
				zap.Error(err))
			return
		}
		if raw, err := json.Marshal(rec); err == nil {
			out <- raw
		}
	}()
	return out
}

// captureRequestBody reads the body for the audit record and restores it
// for the handler.
func captureRequestBody(c *gin.Context) []byte {
	if c.Request.Body == nil {
		return nil
	}
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(raw))
	return raw
}

// bodyCapture tees the response body so the audit record can extract the
// created id and error messages.
type bodyCapture struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *bodyCapture) Write(b []byte) (int, error) {
	if w.body.Len() < maxAuditBody {
		w.body.Write(b)
	}
	return w.ResponseWriter.Write(b)
}

func (w *bodyCapture) WriteString(s string) (int, error) {
	if w.body.Len() < maxAuditBody {
		w.body.WriteString(s)
	}
	return w.ResponseWriter.WriteString(s)
}

// responseDataID extracts data.id from a single-record response envelope,
// which is how creates get their entity id.
func responseDataID(raw []byte) string {
	var envelope struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return ""
	}
	return envelope.Data.ID
}

// responseErrorMessage extracts error.message from an error envelope.
func responseErrorMessage(raw []byte) string {
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return ""
	}
	return envelope.Error.Message
}

func truncate(raw []byte) string {
	if len(raw) > maxAuditBody {
		raw = raw[:maxAuditBody]
	}
	return string(raw)
}
