package main

import (
	"os"
	"path/filepath"
	"testing"

	"print-scheduler/core/models"
	"print-scheduler/pkg/json"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRun_WritesMetrics(t *testing.T) {
	dir := t.TempDir()
	orders := filepath.Join(dir, "parsed_orders.json")
	metrics := filepath.Join(dir, "metrics.json")
	require.NoError(t, os.WriteFile(orders, []byte(`[
		{"order_id": "1", "printing_method": "胶印", "delivery_date": "6.15"},
		{"order_id": "2", "printing_method": "UV", "delivery_date": "6.12"},
		{"order_id": "3", "printing_method": "胶印", "delivery_date": "6.10"},
		{"order_id": "4", "printing_method": "UV", "delivery_date": "6.11"}
	]`), 0o644))

	require.NoError(t, run(orders, metrics, zap.NewNop()))

	data, err := os.ReadFile(metrics)
	require.NoError(t, err)
	var snapshot models.MetricsSnapshot
	require.NoError(t, json.Unmarshal(data, &snapshot))
	assert.Equal(t, 4, snapshot.ChangeoverBefore)
	assert.Equal(t, 2, snapshot.ChangeoverAfter)
	assert.Equal(t, 0.5, snapshot.ChangeoverReduction)
	assert.Equal(t, 0.95, snapshot.ParserAccuracy)
}

func TestRun_MissingOrdersFile(t *testing.T) {
	dir := t.TempDir()
	metrics := filepath.Join(dir, "metrics.json")

	require.NoError(t, run(filepath.Join(dir, "missing.json"), metrics, zap.NewNop()))

	data, err := os.ReadFile(metrics)
	require.NoError(t, err)
	var snapshot models.MetricsSnapshot
	require.NoError(t, json.Unmarshal(data, &snapshot))
	assert.Zero(t, snapshot.ChangeoverBefore)
}

func TestRun_CorruptOrdersFile(t *testing.T) {
	dir := t.TempDir()
	orders := filepath.Join(dir, "parsed_orders.json")
	require.NoError(t, os.WriteFile(orders, []byte(`[{"order_id": `), 0o644))

	assert.Error(t, run(orders, filepath.Join(dir, "metrics.json"), zap.NewNop()))
}
