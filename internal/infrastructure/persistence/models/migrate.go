package models

import "gorm.io/gorm"

// Business-number uniqueness is scoped to the owning tenant and branch: one
// school's admission numbers must never block another's. The indexes span
// columns of the embedded scope struct, which GORM struct tags cannot
// express, so they are created explicitly after the tables.
var scopedUniqueIndexes = []string{
	"CREATE UNIQUE INDEX IF NOT EXISTS ux_students_admission_no ON students (tenant_id, branch_id, admission_no)",
	"CREATE UNIQUE INDEX IF NOT EXISTS ux_teachers_staff_no ON teachers (tenant_id, branch_id, staff_no)",
	"CREATE UNIQUE INDEX IF NOT EXISTS ux_invoices_invoice_no ON invoices (tenant_id, branch_id, invoice_no)",
}

// AutoMigrate creates the full schema, including the tenant-scoped unique
// indexes. Production deployments run the SQL migrations instead; this is
// the sqlite path for tests and local development.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&Teacher{},
		&SchoolClass{},
		&Student{},
		&Guardian{},
		&Invoice{},
		&Payment{},
		&AuditLog{},
	); err != nil {
		return err
	}
	for _, stmt := range scopedUniqueIndexes {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}
