package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Invoice statuses
const (
	InvoiceStatusPending = "pending"
	InvoiceStatusPartial = "partial"
	InvoiceStatusPaid    = "paid"
	InvoiceStatusOverdue = "overdue"
)

// Invoice is a fee invoice issued to a student. Soft-deletable so that
// voided invoices stay visible in the deleted listing.
type Invoice struct {
	ScopedModel
	SoftDeleteFields
	InvoiceNo  string          `gorm:"size:32;not null" json:"invoiceNo"`
	StudentID  uuid.UUID       `gorm:"type:uuid;not null;index" json:"studentId"`
	Student    *Student        `gorm:"foreignKey:StudentID" json:"student,omitempty"`
	Amount     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	PaidAmount decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"paidAmount"`
	Status     string          `gorm:"size:16;not null;default:pending" json:"status"`
	DueDate    *time.Time      `json:"dueDate,omitempty"`
	IssuedAt   time.Time       `json:"issuedAt"`
}

// TableName implements the GORM table name override
func (Invoice) TableName() string { return "invoices" }

// Payment records money received against an invoice. Hard-deleted; a wrong
// payment is corrected by a counter-entry, not by editing history.
type Payment struct {
	ScopedModel
	InvoiceID uuid.UUID       `gorm:"type:uuid;not null;index" json:"invoiceId"`
	Invoice   *Invoice        `gorm:"foreignKey:InvoiceID" json:"invoice,omitempty"`
	Amount    decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	Method    string          `gorm:"size:32" json:"method"`
	Reference string          `gorm:"size:64" json:"reference"`
	PaidAt    time.Time       `json:"paidAt"`
}

// TableName implements the GORM table name override
func (Payment) TableName() string { return "payments" }
