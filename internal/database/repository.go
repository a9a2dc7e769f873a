package database

import (
	"github.com/driftshell/driftshell/internal/models"

	"github.com/pkg/errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned when a key is absent from a store
var ErrNotFound = errors.New("key not found")

// Repository handles all database operations for key-value entries
type Repository struct {
	db *DB
}

// NewRepository creates a new repository instance
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// Get retrieves the entry for key in store
func (r *Repository) Get(store, key string) (*models.Entry, error) {
	var entry models.Entry
	result := r.db.Where("store = ? AND key_name = ?", store, key).First(&entry)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, errors.Wrapf(ErrNotFound, "%s/%s", store, key)
		}
		return nil, errors.Wrap(result.Error, "failed to get entry")
	}
	return &entry, nil
}

// Set inserts or replaces the value of key in store
func (r *Repository) Set(store, key, value string) error {
	entry := models.Entry{Store: store, Key: key, Value: value}
	result := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "store"}, {Name: "key_name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to set entry")
	}
	return nil
}

// Delete removes key from store and reports whether it existed
func (r *Repository) Delete(store, key string) (bool, error) {
	result := r.db.Where("store = ? AND key_name = ?", store, key).Delete(&models.Entry{})
	if result.Error != nil {
		return false, errors.Wrap(result.Error, "failed to delete entry")
	}
	return result.RowsAffected > 0, nil
}

// Has reports whether key exists in store
func (r *Repository) Has(store, key string) (bool, error) {
	var count int64
	result := r.db.Model(&models.Entry{}).Where("store = ? AND key_name = ?", store, key).Count(&count)
	if result.Error != nil {
		return false, errors.Wrap(result.Error, "failed to check entry")
	}
	return count > 0, nil
}

// Entries lists every entry in store ordered by key
func (r *Repository) Entries(store string) ([]*models.Entry, error) {
	var entries []*models.Entry
	result := r.db.Where("store = ?", store).Order("key_name ASC").Find(&entries)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query entries")
	}
	return entries, nil
}

// Keys lists the keys of store in ascending order
func (r *Repository) Keys(store string) ([]string, error) {
	var keys []string
	result := r.db.Model(&models.Entry{}).Where("store = ?", store).Order("key_name ASC").Pluck("key_name", &keys)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query keys")
	}
	if keys == nil {
		keys = []string{}
	}
	return keys, nil
}

// Clear removes every entry of store and returns how many were deleted
func (r *Repository) Clear(store string) (int64, error) {
	result := r.db.Where("store = ?", store).Delete(&models.Entry{})
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to clear store")
	}
	return result.RowsAffected, nil
}

// Summary returns entry counts grouped by store
func (r *Repository) Summary() ([]models.StoreSummary, error) {
	var summaries []models.StoreSummary

	result := r.db.Model(&models.Entry{}).
		Select("store, COUNT(*) as entries").
		Group("store").
		Order("store ASC").
		Scan(&summaries)

	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query store summary")
	}

	return summaries, nil
}
