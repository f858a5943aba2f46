package handlers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"print-scheduler/core/models"
	"print-scheduler/core/monitoring"
	"print-scheduler/core/optimizer"
	"print-scheduler/core/repair"
	"print-scheduler/core/repository"
	"print-scheduler/pkg/json"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	dir      string
	store    *repository.FileStore
	opt      *optimizer.ChangeoverOptimizer
	exporter *monitoring.MetricsExporter
	tracker  *monitoring.RunTracker
	monitor  *monitoring.OrderMonitor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	store := repository.NewFileStore(
		filepath.Join(dir, "parsed_orders.json"),
		filepath.Join(dir, "device_list.json"),
		filepath.Join(dir, "metrics.json"),
	)
	opt := optimizer.NewChangeoverOptimizer()
	tracker := monitoring.NewRunTracker(10)
	exporter := monitoring.NewMetricsExporter(tracker)
	return &fixture{
		dir:      dir,
		store:    store,
		opt:      opt,
		exporter: exporter,
		tracker:  tracker,
		monitor:  monitoring.NewOrderMonitor(store, opt, exporter, 0, nil),
	}
}

func scenarioOrders() []models.JobRecord {
	return []models.JobRecord{
		{ID: "1", ChangeoverKey: "A", DueDate: "6.15"},
		{ID: "2", ChangeoverKey: "B", DueDate: "6.12"},
		{ID: "3", ChangeoverKey: "A", DueDate: "6.10"},
		{ID: "4", ChangeoverKey: "B", DueDate: "6.11"},
		{ID: "5", ChangeoverKey: "C", DueDate: "6.20"},
	}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestOptimize_Scenario(t *testing.T) {
	f := newFixture(t)
	h := NewOrderHandler(f.store, f.opt, f.exporter, nil)

	body := `[
		{"order_id": "1", "printing_method": "A", "delivery_date": "6.15"},
		{"order_id": "2", "printing_method": "A", "delivery_date": "6.10"},
		{"order_id": "3", "printing_method": "B", "delivery_date": "6.12"},
		{"order_id": "4", "printing_method": "B", "delivery_date": "6.11"},
		{"order_id": "5", "printing_method": "C", "delivery_date": "6.20"}
	]`
	rec := httptest.NewRecorder()
	h.Optimize(rec, httptest.NewRequest(http.MethodPost, "/api/optimize", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	var result models.OptimizationResult
	decode(t, rec, &result)

	assert.Equal(t, 5, result.Metrics.ChangeoversBefore)
	assert.Equal(t, 3, result.Metrics.ChangeoversAfter)
	assert.Equal(t, 0.4, result.Metrics.ReductionRatio)
	require.Len(t, result.OrderedJobs, 5)
	assert.Equal(t, []string{"2", "1", "4", "3", "5"}, []string{
		result.OrderedJobs[0].ID, result.OrderedJobs[1].ID, result.OrderedJobs[2].ID,
		result.OrderedJobs[3].ID, result.OrderedJobs[4].ID,
	})
	assert.False(t, result.Degraded)

	last, ok := f.tracker.LastRun()
	require.True(t, ok)
	assert.Equal(t, monitoring.SourceAPI, last.Source)
}

func TestOptimize_YAMLBody(t *testing.T) {
	f := newFixture(t)
	h := NewOrderHandler(f.store, f.opt, nil, nil)

	body := "orders:\n  - order_id: 1\n    printing_method: UV\n  - order_id: 2\n    printing_method: UV\n"
	rec := httptest.NewRecorder()
	h.Optimize(rec, httptest.NewRequest(http.MethodPost, "/api/optimize", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	var result models.OptimizationResult
	decode(t, rec, &result)
	assert.Equal(t, 2, result.Metrics.ChangeoversBefore)
	assert.Equal(t, 1, result.Metrics.ChangeoversAfter)
}

func TestOptimize_InvalidBody(t *testing.T) {
	f := newFixture(t)
	h := NewOrderHandler(f.store, f.opt, nil, nil)

	rec := httptest.NewRecorder()
	h.Optimize(rec, httptest.NewRequest(http.MethodPost, "/api/optimize", strings.NewReader(`{"orders": 5}`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var resp ErrorResponse
	decode(t, rec, &resp)
	assert.Contains(t, resp.Error, "Invalid order batch")
}

func TestGetOrders(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.SaveOrders(scenarioOrders()))
	h := NewOrderHandler(f.store, f.opt, nil, nil)

	rec := httptest.NewRecorder()
	h.GetOrders(rec, httptest.NewRequest(http.MethodGet, "/api/orders", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var orders []models.JobRecord
	decode(t, rec, &orders)
	assert.Equal(t, scenarioOrders(), orders)
}

func TestGetOrders_MissingFileIsEmpty(t *testing.T) {
	f := newFixture(t)
	h := NewOrderHandler(f.store, f.opt, nil, nil)

	rec := httptest.NewRecorder()
	h.GetOrders(rec, httptest.NewRequest(http.MethodGet, "/api/orders", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestGetOrders_CorruptFile(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, "parsed_orders.json"), []byte(`[{"order_id": `), 0o644))
	h := NewOrderHandler(f.store, f.opt, nil, nil)

	rec := httptest.NewRecorder()
	h.GetOrders(rec, httptest.NewRequest(http.MethodGet, "/api/orders", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGetDevices(t *testing.T) {
	f := newFixture(t)
	devices := `[{"name": "海德堡 SM102", "type": "offset"}]`
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, "device_list.json"), []byte(devices), 0o644))
	h := NewOrderHandler(f.store, f.opt, nil, nil)

	rec := httptest.NewRecorder()
	h.GetDevices(rec, httptest.NewRequest(http.MethodGet, "/api/devices", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, devices, rec.Body.String())
}

func TestGetOptimizedOrders(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.SaveOrders(scenarioOrders()))
	h := NewOrderHandler(f.store, f.opt, nil, nil)

	rec := httptest.NewRecorder()
	h.GetOptimizedOrders(rec, httptest.NewRequest(http.MethodGet, "/api/optimized_orders", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var orders []models.JobRecord
	decode(t, rec, &orders)
	require.Len(t, orders, 5)
	assert.Equal(t, "3", orders[0].ID)
	assert.Equal(t, "1", orders[1].ID)
	assert.Equal(t, "5", orders[4].ID)
}

func TestGetOptimizedOrders_DegradedServesStoredOrders(t *testing.T) {
	f := newFixture(t)
	stored := []string{
		`{"order_id":"3","printing_method":"B","delivery_date":"6.12"}`,
		`{"order_id":"1","printing_method":"A","delivery_date":"6.15"}`,
		`{"order_id":"2","printing_method":"A","delivery_date":"6.10"}`,
	}
	content := "[" + strings.Join(stored, ",") + "]"
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, "parsed_orders.json"), []byte(content), 0o644))

	failing := optimizer.NewChangeoverOptimizer(optimizer.WithGrouper(func([]models.JobRecord) *optimizer.ChangeoverGroups {
		panic("grouping failed")
	}))
	h := NewOrderHandler(f.store, failing, f.exporter, nil)

	rec := httptest.NewRecorder()
	h.GetOptimizedOrders(rec, httptest.NewRequest(http.MethodGet, "/api/optimized_orders", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got []models.RawRecord
	decode(t, rec, &got)
	require.Len(t, got, len(stored))
	for i := range stored {
		assert.Equal(t, stored[i], string(got[i]))
	}

	last, ok := f.tracker.LastRun()
	require.True(t, ok)
	assert.True(t, last.Degraded)
}

func TestGetMetrics_DefaultSnapshot(t *testing.T) {
	f := newFixture(t)
	h := NewDashboardHandler(f.monitor, f.tracker, nil)

	rec := httptest.NewRecorder()
	h.GetMetrics(rec, httptest.NewRequest(http.MethodGet, "/api/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var snapshot models.MetricsSnapshot
	decode(t, rec, &snapshot)
	assert.Equal(t, 48, snapshot.ChangeoverBefore)
	assert.Equal(t, 12, snapshot.ChangeoverAfter)
	assert.Equal(t, 0.75, snapshot.ChangeoverReduction)
	assert.Equal(t, 0.95, snapshot.ParserAccuracy)
	assert.True(t, snapshot.MobileDashboardPass)
}

func TestGetMetrics_StoredSnapshot(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.SaveOrders(scenarioOrders()))
	_, err := f.monitor.Refresh(monitoring.SourceRefresh)
	require.NoError(t, err)
	h := NewDashboardHandler(f.monitor, f.tracker, nil)

	rec := httptest.NewRecorder()
	h.GetMetrics(rec, httptest.NewRequest(http.MethodGet, "/api/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var snapshot models.MetricsSnapshot
	decode(t, rec, &snapshot)
	assert.Equal(t, 5, snapshot.ChangeoverBefore)
	assert.Equal(t, 3, snapshot.ChangeoverAfter)
	assert.NotEmpty(t, snapshot.RunID)
}

func TestHealthAndIndex(t *testing.T) {
	f := newFixture(t)
	h := NewDashboardHandler(f.monitor, f.tracker, nil)

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var health map[string]interface{}
	decode(t, rec, &health)
	assert.Equal(t, "ok", health["status"])
	assert.NotContains(t, health, "last_run")

	rec = httptest.NewRecorder()
	h.Index(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var banner map[string]interface{}
	decode(t, rec, &banner)
	assert.Equal(t, "running", banner["status"])
}

type memArchiver struct {
	names []string
	err   error
}

func (m *memArchiver) Archive(_ context.Context, filename string, _ []byte) (string, error) {
	m.names = append(m.names, filename)
	if m.err != nil {
		return "", m.err
	}
	return "mem://" + filename, nil
}

func uploadRequest(t *testing.T, field, filename string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload_excel", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func sheetRows() [][]string {
	header := make([]string, 16)
	header[0] = "产品序号"
	header[1] = "产品名称"
	header[5] = "印刷方式"
	header[15] = "交货日期"

	row := func(id, name, method, due string) []string {
		r := make([]string, 16)
		r[0], r[1], r[5], r[15] = id, name, method, due
		return r
	}
	return [][]string{
		{"内文印刷明细总表"},
		header,
		row("1", "画册", "胶印", "6.15"),
		row("2", "海报", "UV", "6.12"),
		row("3", "手册", "胶印", "6.10"),
		row("合计", "", "", ""),
	}
}

func TestUploadExcel(t *testing.T) {
	f := newFixture(t)
	archiver := &memArchiver{}
	h := NewUploadHandler(f.store, f.opt, f.monitor, f.exporter, archiver, nil)
	h.readRows = func(r io.ReaderAt, size int64) ([][]string, error) {
		assert.Equal(t, int64(len("xlsx-bytes")), size)
		return sheetRows(), nil
	}

	rec := httptest.NewRecorder()
	h.UploadExcel(rec, uploadRequest(t, "file", "明细.xlsx", []byte("xlsx-bytes")))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp UploadResponse
	decode(t, rec, &resp)
	assert.Equal(t, 3, resp.OrdersCount)
	assert.Equal(t, 1, resp.Skipped)
	assert.Equal(t, 3, resp.Metrics.ChangeoverBefore)
	assert.Equal(t, 2, resp.Metrics.ChangeoverAfter)
	assert.Equal(t, "mem://明细.xlsx", resp.Archive)

	stored, err := f.store.LoadOrders()
	require.NoError(t, err)
	assert.Len(t, stored, 3)

	snapshot, err := f.store.LoadMetrics()
	require.NoError(t, err)
	assert.Equal(t, resp.Metrics.RunID, snapshot.RunID)
}

func TestUploadExcel_ArchiveFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	h := NewUploadHandler(f.store, f.opt, f.monitor, nil, &memArchiver{err: errors.New("disk full")}, nil)
	h.readRows = func(io.ReaderAt, int64) ([][]string, error) { return sheetRows(), nil }

	rec := httptest.NewRecorder()
	h.UploadExcel(rec, uploadRequest(t, "file", "orders.xlsx", []byte("x")))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp UploadResponse
	decode(t, rec, &resp)
	assert.Empty(t, resp.Archive)
}

func TestUploadExcel_MissingFile(t *testing.T) {
	f := newFixture(t)
	h := NewUploadHandler(f.store, f.opt, f.monitor, nil, nil, nil)

	rec := httptest.NewRecorder()
	h.UploadExcel(rec, uploadRequest(t, "other", "orders.xlsx", []byte("x")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var resp ErrorResponse
	decode(t, rec, &resp)
	assert.Equal(t, "No file uploaded", resp.Error)
}

func TestUploadExcel_UnreadableSheet(t *testing.T) {
	f := newFixture(t)
	h := NewUploadHandler(f.store, f.opt, f.monitor, nil, nil, nil)
	h.readRows = func(io.ReaderAt, int64) ([][]string, error) { return nil, errors.New("zip: not a valid zip file") }

	rec := httptest.NewRecorder()
	h.UploadExcel(rec, uploadRequest(t, "file", "orders.xlsx", []byte("not a sheet")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	_, err := os.Stat(filepath.Join(f.dir, "parsed_orders.json"))
	assert.True(t, os.IsNotExist(err))
}

type stubRepairer struct {
	result repair.Result
	err    error
}

func (s stubRepairer) Repair(string) (repair.Result, error) {
	return s.result, s.err
}

func TestFixJSON(t *testing.T) {
	tests := []struct {
		name     string
		repairer stubRepairer
		path     string
		status   int
	}{
		{"repaired", stubRepairer{result: repair.Result{Action: repair.ActionRepaired}}, "orders.json", http.StatusOK},
		{"unrecoverable", stubRepairer{err: repair.ErrUnrecoverable}, "orders.json", http.StatusUnprocessableEntity},
		{"other failure", stubRepairer{err: errors.New("permission denied")}, "orders.json", http.StatusInternalServerError},
		{"no orders file", stubRepairer{}, "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewRepairHandler(tt.repairer, tt.path, nil)
			rec := httptest.NewRecorder()
			h.FixJSON(rec, httptest.NewRequest(http.MethodPost, "/api/fix_json", nil))
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestFixJSON_RealRepair(t *testing.T) {
	f := newFixture(t)
	path := filepath.Join(f.dir, "parsed_orders.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"order_id": "1", "printing_method": "UV",}]`), 0o644))

	h := NewRepairHandler(repair.NewRepairer("", nil), path, nil)
	rec := httptest.NewRecorder()
	h.FixJSON(rec, httptest.NewRequest(http.MethodPost, "/api/fix_json", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]interface{}
	decode(t, rec, &resp)
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, string(repair.ActionRepaired), resp["action"])

	orders, err := f.store.LoadOrders()
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}
