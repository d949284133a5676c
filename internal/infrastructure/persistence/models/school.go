package models

import (
	"time"

	"github.com/google/uuid"
)

// Student statuses
const (
	StudentStatusActive    = "active"
	StudentStatusGraduated = "graduated"
	StudentStatusSuspended = "suspended"
	StudentStatusWithdrawn = "withdrawn"
)

// Student is a pupil enrolled at a branch. Soft-deletable.
type Student struct {
	ScopedModel
	SoftDeleteFields
	FirstName     string       `gorm:"size:100;not null" json:"firstName"`
	LastName      string       `gorm:"size:100;not null" json:"lastName"`
	AdmissionNo   string       `gorm:"size:32;not null" json:"admissionNo"`
	Email         string       `gorm:"size:255" json:"email"`
	Phone         string       `gorm:"size:32" json:"phone"`
	Gender        string       `gorm:"size:16" json:"gender"`
	DateOfBirth   *time.Time   `json:"dateOfBirth,omitempty"`
	AdmissionDate *time.Time   `json:"admissionDate,omitempty"`
	Status        string       `gorm:"size:16;not null;default:active" json:"status"`
	ClassID       *uuid.UUID   `gorm:"type:uuid;index" json:"classId,omitempty"`
	Class         *SchoolClass `gorm:"foreignKey:ClassID" json:"class,omitempty"`
}

// TableName implements the GORM table name override
func (Student) TableName() string { return "students" }

// Teacher is a member of the teaching staff. Soft-deletable.
type Teacher struct {
	ScopedModel
	SoftDeleteFields
	FirstName string     `gorm:"size:100;not null" json:"firstName"`
	LastName  string     `gorm:"size:100;not null" json:"lastName"`
	StaffNo   string     `gorm:"size:32;not null" json:"staffNo"`
	Email     string     `gorm:"size:255" json:"email"`
	Phone     string     `gorm:"size:32" json:"phone"`
	Subject   string     `gorm:"size:100" json:"subject"`
	HiredAt   *time.Time `json:"hiredAt,omitempty"`
	Status    string     `gorm:"size:16;not null;default:active" json:"status"`
}

// TableName implements the GORM table name override
func (Teacher) TableName() string { return "teachers" }

// SchoolClass is a class/grade grouping of students. Hard-deleted: a class
// row is removed physically and has no restore path.
type SchoolClass struct {
	ScopedModel
	Name       string     `gorm:"size:100;not null" json:"name"`
	GradeLevel string     `gorm:"size:32;not null" json:"gradeLevel"`
	Section    string     `gorm:"size:16" json:"section"`
	Capacity   int        `json:"capacity"`
	TeacherID  *uuid.UUID `gorm:"type:uuid;index" json:"teacherId,omitempty"`
	Teacher    *Teacher   `gorm:"foreignKey:TeacherID" json:"teacher,omitempty"`
}

// TableName implements the GORM table name override
func (SchoolClass) TableName() string { return "school_classes" }

// Guardian is a parent or guardian linked to a student. Hard-deleted.
type Guardian struct {
	ScopedModel
	FirstName    string    `gorm:"size:100;not null" json:"firstName"`
	LastName     string    `gorm:"size:100;not null" json:"lastName"`
	Phone        string    `gorm:"size:32;not null" json:"phone"`
	Email        string    `gorm:"size:255" json:"email"`
	Relationship string    `gorm:"size:32" json:"relationship"`
	StudentID    uuid.UUID `gorm:"type:uuid;not null;index" json:"studentId"`
	Student      *Student  `gorm:"foreignKey:StudentID" json:"student,omitempty"`
}

// TableName implements the GORM table name override
func (Guardian) TableName() string { return "guardians" }
