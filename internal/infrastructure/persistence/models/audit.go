package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Audit actions
const (
	AuditActionCreate  = "CREATE"
	AuditActionUpdate  = "UPDATE"
	AuditActionDelete  = "DELETE"
	AuditActionRestore = "RESTORE"
	AuditActionLogin   = "LOGIN"
	AuditActionLogout  = "LOGOUT"
)

// AuditLog is one append-only record per mutating request. Rows are written
// by the audit recorder and never updated or deleted by the application.
type AuditLog struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID     string    `gorm:"type:uuid;index" json:"tenantId"`
	BranchID     string    `gorm:"type:uuid;index" json:"branchId"`
	UserID       string    `gorm:"size:64" json:"userId"`
	UserEmail    string    `gorm:"size:255" json:"userEmail"`
	Action       string    `gorm:"size:16;not null" json:"action"`
	Method       string    `gorm:"size:8;not null" json:"method"`
	Endpoint     string    `gorm:"size:512;not null" json:"endpoint"`
	EntityType   string    `gorm:"size:64;index" json:"entityType"`
	EntityID     string    `gorm:"size:64;index" json:"entityId"`
	OldData      *string   `gorm:"type:text" json:"oldData,omitempty"`
	NewData      *string   `gorm:"type:text" json:"newData,omitempty"`
	IPAddress    string    `gorm:"size:64" json:"ipAddress"`
	UserAgent    string    `gorm:"size:512" json:"userAgent"`
	StatusCode   int       `json:"statusCode"`
	DurationMs   int64     `json:"durationMs"`
	ErrorMessage *string   `gorm:"type:text" json:"errorMessage,omitempty"`
	CreatedAt    time.Time `gorm:"not null;index" json:"createdAt"`
}

// TableName implements the GORM table name override
func (AuditLog) TableName() string { return "audit_logs" }

// BeforeCreate assigns a UUID primary key when none was provided.
func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// GetID returns the primary key as a string.
func (a *AuditLog) GetID() string {
	return a.ID.String()
}

// ApplyScope overwrites the scope columns with the ambient identity.
func (a *AuditLog) ApplyScope(tenantID, branchID string) {
	a.TenantID = tenantID
	a.BranchID = branchID
}
