// Package models contains the GORM persistence models for all school
// resources served through the generic resource engine, plus the audit log.
//
// Every scoped model embeds ScopedModel, which carries the tenant and branch
// columns the engine stamps from the ambient request scope. Soft-deletable
// models embed SoftDeleteFields; deletion for those resources is an update,
// not a removal.
package models
