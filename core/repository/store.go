package repository

import (
	"errors"

	"print-scheduler/core/models"
)

var (
	// ErrNotFound is returned when no metrics snapshot has been stored
	ErrNotFound = errors.New("not found")

	// ErrCorrupt is returned when a stored file exists but is not valid JSON
	ErrCorrupt = errors.New("stored data is corrupt")
)

// OrderStore persists orders, devices and metrics snapshots
type OrderStore interface {
	// LoadOrders returns stored orders undecoded, so callers can validate them.
	// An absent or empty store yields an empty list.
	LoadOrders() ([]models.RawRecord, error)
	SaveOrders(orders []models.JobRecord) error
	LoadDevices() ([]models.Device, error)
	LoadMetrics() (*models.MetricsSnapshot, error)
	SaveMetrics(snapshot models.MetricsSnapshot) error
}
