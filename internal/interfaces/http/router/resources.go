package router

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/schoolms/backend/internal/infrastructure/persistence/models"
	"github.com/schoolms/backend/internal/infrastructure/persistence/query"
	"github.com/schoolms/backend/internal/infrastructure/persistence/resource"
	"github.com/schoolms/backend/internal/interfaces/http/handler"
)

// RegisterResources builds the engine and handler for every exposed resource
// and adds them to the router and the registry. The registry is what the
// audit middleware uses for pre-image fetches, so a resource must be
// registered here to have prior state in its audit records.
func RegisterResources(r *Router, db *gorm.DB, reg *resource.Registry, log *zap.Logger) {
	registerResource[models.Student](r, db, reg, log, studentDescriptor())
	registerResource[models.Teacher](r, db, reg, log, teacherDescriptor())
	registerResource[models.SchoolClass](r, db, reg, log, classDescriptor())
	registerResource[models.Guardian](r, db, reg, log, guardianDescriptor())
	registerResource[models.Invoice](r, db, reg, log, invoiceDescriptor())
	registerResource[models.Payment](r, db, reg, log, paymentDescriptor())

	// The audit trail is exposed read-only and stays out of the registry:
	// audit records are never pre-imaged.
	auditEngine := resource.NewEngine[models.AuditLog](db, auditLogDescriptor(), log)
	r.Register(handler.NewReadOnlyResourceHandler(auditEngine))
}

func registerResource[M any](r *Router, db *gorm.DB, reg *resource.Registry, log *zap.Logger, desc resource.Descriptor) {
	engine := resource.NewEngine[M](db, desc, log)
	reg.Register(engine)
	r.Register(handler.NewResourceHandler(engine))
}

func studentDescriptor() resource.Descriptor {
	return resource.Descriptor{
		Name:         "students",
		SoftDelete:   true,
		BranchScoped: true,
		Schema: query.Schema{
			Table: "students",
			Fields: map[string]query.Field{
				"id":            query.F("id", query.UUID),
				"firstName":     query.F("first_name", query.String),
				"lastName":      query.F("last_name", query.String),
				"admissionNo":   query.F("admission_no", query.String),
				"email":         query.F("email", query.String),
				"phone":         query.F("phone", query.String),
				"gender":        query.F("gender", query.String),
				"dateOfBirth":   query.F("date_of_birth", query.Time),
				"admissionDate": query.F("admission_date", query.Time),
				"status":        query.F("status", query.String),
				"classId":       query.F("class_id", query.UUID),
				"createdAt":     query.F("created_at", query.Time),
				"updatedAt":     query.F("updated_at", query.Time),
			},
			Relations: map[string]query.Relation{
				"class": {
					Table: "school_classes",
					Join:  "LEFT JOIN school_classes ON school_classes.id = students.class_id",
					Fields: map[string]query.Field{
						"name":       query.F("name", query.String),
						"gradeLevel": query.F("grade_level", query.String),
						"section":    query.F("section", query.String),
					},
				},
			},
			SearchFields: []string{"firstName", "lastName", "admissionNo", "email"},
		},
	}
}

func teacherDescriptor() resource.Descriptor {
	return resource.Descriptor{
		Name:         "teachers",
		SoftDelete:   true,
		BranchScoped: true,
		Schema: query.Schema{
			Table: "teachers",
			Fields: map[string]query.Field{
				"id":        query.F("id", query.UUID),
				"firstName": query.F("first_name", query.String),
				"lastName":  query.F("last_name", query.String),
				"staffNo":   query.F("staff_no", query.String),
				"email":     query.F("email", query.String),
				"phone":     query.F("phone", query.String),
				"subject":   query.F("subject", query.String),
				"hiredAt":   query.F("hired_at", query.Time),
				"status":    query.F("status", query.String),
				"createdAt": query.F("created_at", query.Time),
				"updatedAt": query.F("updated_at", query.Time),
			},
			SearchFields: []string{"firstName", "lastName", "staffNo", "email"},
		},
	}
}

func classDescriptor() resource.Descriptor {
	return resource.Descriptor{
		Name:         "classes",
		SoftDelete:   false,
		BranchScoped: true,
		Schema: query.Schema{
			Table: "school_classes",
			Fields: map[string]query.Field{
				"id":         query.F("id", query.UUID),
				"name":       query.F("name", query.String),
				"gradeLevel": query.F("grade_level", query.String),
				"section":    query.F("section", query.String),
				"capacity":   query.F("capacity", query.Number),
				"teacherId":  query.F("teacher_id", query.UUID),
				"createdAt":  query.F("created_at", query.Time),
				"updatedAt":  query.F("updated_at", query.Time),
			},
			Relations: map[string]query.Relation{
				"teacher": {
					Table: "teachers",
					Join:  "LEFT JOIN teachers ON teachers.id = school_classes.teacher_id",
					Fields: map[string]query.Field{
						"firstName": query.F("first_name", query.String),
						"lastName":  query.F("last_name", query.String),
						"subject":   query.F("subject", query.String),
					},
				},
			},
			SearchFields: []string{"name", "gradeLevel"},
		},
	}
}

func guardianDescriptor() resource.Descriptor {
	return resource.Descriptor{
		Name:         "guardians",
		SoftDelete:   false,
		BranchScoped: true,
		Schema: query.Schema{
			Table: "guardians",
			Fields: map[string]query.Field{
				"id":           query.F("id", query.UUID),
				"firstName":    query.F("first_name", query.String),
				"lastName":     query.F("last_name", query.String),
				"phone":        query.F("phone", query.String),
				"email":        query.F("email", query.String),
				"relationship": query.F("relationship", query.String),
				"studentId":    query.F("student_id", query.UUID),
				"createdAt":    query.F("created_at", query.Time),
				"updatedAt":    query.F("updated_at", query.Time),
			},
			Relations: map[string]query.Relation{
				"student": {
					Table: "students",
					Join:  "LEFT JOIN students ON students.id = guardians.student_id",
					Fields: map[string]query.Field{
						"firstName":   query.F("first_name", query.String),
						"lastName":    query.F("last_name", query.String),
						"admissionNo": query.F("admission_no", query.String),
					},
				},
			},
			SearchFields: []string{"firstName", "lastName", "phone"},
		},
	}
}

func invoiceDescriptor() resource.Descriptor {
	return resource.Descriptor{
		Name:         "invoices",
		SoftDelete:   true,
		BranchScoped: true,
		Schema: query.Schema{
			Table: "invoices",
			Fields: map[string]query.Field{
				"id":         query.F("id", query.UUID),
				"invoiceNo":  query.F("invoice_no", query.String),
				"studentId":  query.F("student_id", query.UUID),
				"amount":     query.F("amount", query.Number),
				"paidAmount": query.F("paid_amount", query.Number),
				"status":     query.F("status", query.String),
				"dueDate":    query.F("due_date", query.Time),
				"issuedAt":   query.F("issued_at", query.Time),
				"createdAt":  query.F("created_at", query.Time),
				"updatedAt":  query.F("updated_at", query.Time),
			},
			Relations: map[string]query.Relation{
				"student": {
					Table: "students",
					Join:  "LEFT JOIN students ON students.id = invoices.student_id",
					Fields: map[string]query.Field{
						"firstName":   query.F("first_name", query.String),
						"lastName":    query.F("last_name", query.String),
						"admissionNo": query.F("admission_no", query.String),
					},
				},
			},
			SearchFields: []string{"invoiceNo"},
		},
	}
}

func paymentDescriptor() resource.Descriptor {
	return resource.Descriptor{
		Name:         "payments",
		SoftDelete:   false,
		BranchScoped: true,
		Schema: query.Schema{
			Table: "payments",
			Fields: map[string]query.Field{
				"id":        query.F("id", query.UUID),
				"invoiceId": query.F("invoice_id", query.UUID),
				"amount":    query.F("amount", query.Number),
				"method":    query.F("method", query.String),
				"reference": query.F("reference", query.String),
				"paidAt":    query.F("paid_at", query.Time),
				"createdAt": query.F("created_at", query.Time),
				"updatedAt": query.F("updated_at", query.Time),
			},
			Relations: map[string]query.Relation{
				"invoice": {
					Table: "invoices",
					Join:  "LEFT JOIN invoices ON invoices.id = payments.invoice_id",
					Fields: map[string]query.Field{
						"invoiceNo": query.F("invoice_no", query.String),
						"status":    query.F("status", query.String),
					},
				},
			},
			SearchFields: []string{"reference"},
		},
	}
}

func auditLogDescriptor() resource.Descriptor {
	return resource.Descriptor{
		Name:         "audit-logs",
		SoftDelete:   false,
		BranchScoped: true,
		Schema: query.Schema{
			Table: "audit_logs",
			Fields: map[string]query.Field{
				"id":         query.F("id", query.UUID),
				"action":     query.F("action", query.String),
				"method":     query.F("method", query.String),
				"endpoint":   query.F("endpoint", query.String),
				"entityType": query.F("entity_type", query.String),
				"entityId":   query.F("entity_id", query.String),
				"userId":     query.F("user_id", query.String),
				"userEmail":  query.F("user_email", query.String),
				"statusCode": query.F("status_code", query.Number),
				"createdAt":  query.F("created_at", query.Time),
			},
			SearchFields: []string{"endpoint", "entityId", "userId"},
		},
	}
}
