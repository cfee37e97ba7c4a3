package repository

import (
	"autosendpic/internal/dto"
	"autosendpic/internal/model"
)

// PictureRepository defines the interface for catalogued picture operations.
type PictureRepository interface {
	// Create operations
	Insert(pic *model.Picture) error

	// Read operations
	GetByID(id string) (*model.Picture, error)
	GetAll(filter *dto.PictureFilters) ([]model.Picture, error)
	GetTotalCount(filter *dto.PictureFilters) (int, error)
	Exists(filename string) (bool, error)

	// Delete operations
	DeleteAll() error
}

// DeliveryRepository defines the interface for the delivery journal.
type DeliveryRepository interface {
	Insert(d *model.Delivery) (int64, error)
	GetByItemID(itemID string) ([]model.Delivery, error)
	GetStats() (*model.DeliveryStats, error)
}
