package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BaseModel provides common persistence fields for all models.
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null" json:"updatedAt"`
}

// BeforeCreate assigns a UUID primary key when none was provided.
func (m *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// GetID returns the primary key as a string.
func (m *BaseModel) GetID() string {
	return m.ID.String()
}

// ScopedModel extends BaseModel with the tenant and branch identity columns.
// Both are stamped from the ambient request scope on create and must never be
// taken from client payloads.
type ScopedModel struct {
	BaseModel
	TenantID string `gorm:"type:uuid;index" json:"tenantId"`
	BranchID string `gorm:"type:uuid;index" json:"branchId"`
}

// ApplyScope overwrites the scope columns with the ambient identity.
func (m *ScopedModel) ApplyScope(tenantID, branchID string) {
	m.TenantID = tenantID
	m.BranchID = branchID
}

// SoftDeleteFields carries the soft-delete lifecycle columns. A nil DeletedAt
// means the row is active.
type SoftDeleteFields struct {
	DeletedAt *time.Time `gorm:"index" json:"deletedAt,omitempty"`
	DeletedBy *string    `gorm:"size:64" json:"deletedBy,omitempty"`
}

// MarkDeleted transitions the row into the soft-deleted state.
func (f *SoftDeleteFields) MarkDeleted(at time.Time, by string) {
	f.DeletedAt = &at
	f.DeletedBy = &by
}

// ClearDeleted restores the row into the active state.
func (f *SoftDeleteFields) ClearDeleted() {
	f.DeletedAt = nil
	f.DeletedBy = nil
}

// IsDeleted reports whether the row is currently soft-deleted.
func (f *SoftDeleteFields) IsDeleted() bool {
	return f.DeletedAt != nil
}
