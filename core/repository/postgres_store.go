package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"print-scheduler/core/models"
	"print-scheduler/pkg/json"

	"github.com/google/uuid"
)

// PostgresStore keeps orders, devices and metrics snapshots in PostgreSQL
type PostgresStore struct {
	db *DB
}

// NewPostgresStore creates a new PostgreSQL-backed store
func NewPostgresStore(db *DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// LoadOrders returns stored orders in their saved sequence
func (r *PostgresStore) LoadOrders() ([]models.RawRecord, error) {
	query := `
		SELECT order_id, product_name, printing_method, delivery_date
		FROM orders
		ORDER BY position
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	records := []models.RawRecord{}
	for rows.Next() {
		var order models.JobRecord
		if err := rows.Scan(
			&order.ID,
			&order.ProductName,
			&order.ChangeoverKey,
			&order.DueDate,
		); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}

		encoded, err := json.Marshal(order)
		if err != nil {
			return nil, fmt.Errorf("failed to encode order %s: %w", order.ID, err)
		}
		records = append(records, models.RawRecord(encoded))
	}

	return records, rows.Err()
}

// SaveOrders replaces all stored orders atomically
func (r *PostgresStore) SaveOrders(orders []models.JobRecord) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM orders`); err != nil {
		return fmt.Errorf("failed to clear orders: %w", err)
	}

	query := `
		INSERT INTO orders (order_id, product_name, printing_method, delivery_date)
		VALUES ($1, $2, $3, $4)
	`
	for _, order := range orders {
		if _, err := tx.Exec(query,
			order.ID,
			order.ProductName,
			order.ChangeoverKey,
			order.DueDate,
		); err != nil {
			return fmt.Errorf("failed to insert order %s: %w", order.ID, err)
		}
	}

	return tx.Commit()
}

// LoadDevices returns the stored device list
func (r *PostgresStore) LoadDevices() ([]models.Device, error) {
	rows, err := r.db.Query(`SELECT id, data FROM devices ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query devices: %w", err)
	}
	defer rows.Close()

	devices := []models.Device{}
	for rows.Next() {
		var id int64
		var data []byte
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("failed to scan device: %w", err)
		}

		device, err := decodeDevice(id, data)
		if err != nil {
			return nil, err
		}
		devices = append(devices, device)
	}

	return devices, rows.Err()
}

// decodeDevice decodes one stored device row
func decodeDevice(id int64, data []byte) (models.Device, error) {
	var device models.Device
	if err := json.Unmarshal(data, &device); err != nil {
		return nil, fmt.Errorf("%w: device %d: %v", ErrCorrupt, id, err)
	}
	if device == nil {
		return nil, fmt.Errorf("%w: device %d: not an object", ErrCorrupt, id)
	}
	return device, nil
}

// LoadMetrics returns the most recent metrics snapshot
func (r *PostgresStore) LoadMetrics() (*models.MetricsSnapshot, error) {
	query := `
		SELECT run_id, parser_accuracy, changeover_before, changeover_after,
			changeover_reduction, mobile_dashboard_pass, unit_test_coverage, generated_at
		FROM metrics_snapshots
		ORDER BY generated_at DESC
		LIMIT 1
	`

	var snapshot models.MetricsSnapshot
	var generatedAt time.Time

	err := r.db.QueryRow(query).Scan(
		&snapshot.RunID,
		&snapshot.ParserAccuracy,
		&snapshot.ChangeoverBefore,
		&snapshot.ChangeoverAfter,
		&snapshot.ChangeoverReduction,
		&snapshot.MobileDashboardPass,
		&snapshot.UnitTestCoverage,
		&generatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load metrics: %w", err)
	}

	snapshot.GeneratedAt = &generatedAt
	return &snapshot, nil
}

// SaveMetrics records a new metrics snapshot
func (r *PostgresStore) SaveMetrics(snapshot models.MetricsSnapshot) error {
	runID := uuid.New()
	if snapshot.RunID != "" {
		var err error
		runID, err = uuid.Parse(snapshot.RunID)
		if err != nil {
			return fmt.Errorf("invalid run id: %w", err)
		}
	}

	generatedAt := time.Now()
	if snapshot.GeneratedAt != nil {
		generatedAt = *snapshot.GeneratedAt
	}

	query := `
		INSERT INTO metrics_snapshots (
			run_id, parser_accuracy, changeover_before, changeover_after,
			changeover_reduction, mobile_dashboard_pass, unit_test_coverage, generated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)
	`

	_, err := r.db.Exec(query,
		runID,
		snapshot.ParserAccuracy,
		snapshot.ChangeoverBefore,
		snapshot.ChangeoverAfter,
		snapshot.ChangeoverReduction,
		snapshot.MobileDashboardPass,
		snapshot.UnitTestCoverage,
		generatedAt,
	)
	return err
}
