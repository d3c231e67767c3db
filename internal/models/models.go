package models

import (
	"time"
)

// Model is a persisted record with timestamps and soft deletion.
type Model interface {
	ID() string
	CreatedAt() time.Time
	UpdatedAt() time.Time
	DeletedAt() *time.Time // nil while the record is live
	Validate() error       // run before every insert and update
}

// Repository is the CRUD surface shared by the SQLite repositories.
//
// Delete is a soft delete: Get and List skip records whose DeletedAt is set.
type Repository[T Model] interface {
	Create(model T) error
	Get(id string) (T, error)
	Update(model T) error
	Delete(id string) error
	List(criteria map[string]any) ([]T, error) // criteria keys are repository specific
}
