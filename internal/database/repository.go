package database

import (
	"github.com/robalyx/followbot/internal/database/models"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// Repository provides access to all database models.
type Repository struct {
	entry *models.EntryModel
}

// NewRepository creates a new repository instance with all models.
func NewRepository(db *bun.DB, logger *zap.Logger) *Repository {
	return &Repository{
		entry: models.NewEntry(db, logger),
	}
}

// Entry returns the lifecycle entry model repository.
func (r *Repository) Entry() *models.EntryModel {
	return r.entry
}
