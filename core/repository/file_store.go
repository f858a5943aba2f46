package repository

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"print-scheduler/core/models"
	"print-scheduler/core/spec"
	"print-scheduler/pkg/json"
)

// FileStore keeps orders, devices and metrics in JSON files on disk
type FileStore struct {
	ordersPath  string
	devicesPath string
	metricsPath string
	mu          sync.RWMutex
}

// NewFileStore creates a new file-backed store
func NewFileStore(ordersPath, devicesPath, metricsPath string) *FileStore {
	return &FileStore{
		ordersPath:  ordersPath,
		devicesPath: devicesPath,
		metricsPath: metricsPath,
	}
}

// OrdersPath returns the location of the orders file
func (s *FileStore) OrdersPath() string {
	return s.ordersPath
}

// LoadOrders reads the orders file as raw records
func (s *FileStore) LoadOrders() ([]models.RawRecord, error) {
	data, err := s.read(s.ordersPath)
	if err != nil || data == nil {
		return []models.RawRecord{}, err
	}

	records, err := spec.ParseBatch(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, s.ordersPath, err)
	}
	return records, nil
}

// SaveOrders replaces the orders file
func (s *FileStore) SaveOrders(orders []models.JobRecord) error {
	if orders == nil {
		orders = []models.JobRecord{}
	}
	return s.write(s.ordersPath, orders)
}

// LoadDevices reads the device list
func (s *FileStore) LoadDevices() ([]models.Device, error) {
	devices := []models.Device{}

	data, err := s.read(s.devicesPath)
	if err != nil || data == nil {
		return devices, err
	}

	if err := json.Unmarshal(data, &devices); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, s.devicesPath, err)
	}
	return devices, nil
}

// LoadMetrics reads the latest metrics snapshot
func (s *FileStore) LoadMetrics() (*models.MetricsSnapshot, error) {
	data, err := s.read(s.metricsPath)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, ErrNotFound
	}

	var snapshot models.MetricsSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, s.metricsPath, err)
	}
	return &snapshot, nil
}

// SaveMetrics overwrites the metrics file
func (s *FileStore) SaveMetrics(snapshot models.MetricsSnapshot) error {
	return s.write(s.metricsPath, snapshot)
}

// read returns nil data for a missing or blank file
func (s *FileStore) read(path string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	return data, nil
}

// write encodes v as indented JSON and replaces path atomically
func (s *FileStore) write(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return WriteFileAtomic(path, data)
}

// WriteFileAtomic writes data to a temp file next to path and renames it into place
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
