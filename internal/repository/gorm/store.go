package gormrepository

import (
	"gorm.io/gorm"
)

// Store is the postgres-backed repository. A nil Store or nil db turns
// every call into a no-op.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}
