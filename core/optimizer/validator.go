package optimizer

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"print-scheduler/core/models"
	"print-scheduler/pkg/json"

	"go.uber.org/zap"
)

var errNotObject = errors.New("record is not a JSON object")

// Field names of a raw order record
const (
	fieldID            = "order_id"
	fieldProductName   = "product_name"
	fieldChangeoverKey = "printing_method"
	fieldDueDate       = "delivery_date"
)

// ValidationResult holds the records that survived validation
type ValidationResult struct {
	Jobs       []models.JobRecord
	Rejected   int // Malformed records, excluded from all counts
	MissingKey int // Kept records with an empty changeover key
}

// Validator filters and normalizes incoming order records
type Validator struct {
	log *zap.Logger
}

// NewValidator creates a new validator
func NewValidator(log *zap.Logger) *Validator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Validator{log: log}
}

// ValidateRecords decodes raw records, dropping any that are not order-shaped
func (v *Validator) ValidateRecords(raw []models.RawRecord) ValidationResult {
	result := ValidationResult{Jobs: make([]models.JobRecord, 0, len(raw))}

	for i, rec := range raw {
		job, err := decodeRecord(rec)
		if err != nil {
			result.Rejected++
			v.log.Warn("Rejected malformed order record",
				zap.Int("index", i),
				zap.Error(err))
			continue
		}
		if v.normalize(&job, i) {
			result.MissingKey++
		}
		result.Jobs = append(result.Jobs, job)
	}

	return result
}

// ValidateJobs normalizes records that are already typed. Typed records always
// have a valid shape, so nothing is rejected.
func (v *Validator) ValidateJobs(jobs []models.JobRecord) ValidationResult {
	result := ValidationResult{Jobs: make([]models.JobRecord, 0, len(jobs))}

	for i, job := range jobs {
		if v.normalize(&job, i) {
			result.MissingKey++
		}
		result.Jobs = append(result.Jobs, job)
	}

	return result
}

// normalize trims the changeover key and reports whether it is empty
func (v *Validator) normalize(job *models.JobRecord, index int) bool {
	job.ChangeoverKey = strings.TrimSpace(job.ChangeoverKey)
	if job.ChangeoverKey != "" {
		return false
	}
	v.log.Warn("Order has no printing method, grouping under empty key",
		zap.Int("index", index),
		zap.String("order_id", job.ID))
	return true
}

func decodeRecord(raw models.RawRecord) (models.JobRecord, error) {
	var job models.JobRecord

	src := bytes.NewReader(raw)
	dec := json.NewDecoder(src)
	dec.UseNumber()

	var fields map[string]interface{}
	if err := dec.Decode(&fields); err != nil {
		return job, fmt.Errorf("%w: %v", errNotObject, err)
	}
	if fields == nil {
		return job, errNotObject
	}

	rest, err := io.ReadAll(io.MultiReader(dec.Buffered(), src))
	if err != nil {
		return job, fmt.Errorf("%w: %v", errNotObject, err)
	}
	if len(bytes.TrimSpace(rest)) > 0 {
		return job, fmt.Errorf("%w: trailing data after object", errNotObject)
	}

	targets := []struct {
		name string
		dst  *string
	}{
		{fieldID, &job.ID},
		{fieldProductName, &job.ProductName},
		{fieldChangeoverKey, &job.ChangeoverKey},
		{fieldDueDate, &job.DueDate},
	}
	for _, t := range targets {
		text, err := scalarText(fields[t.name])
		if err != nil {
			return job, fmt.Errorf("field %s: %w", t.name, err)
		}
		*t.dst = text
	}

	return job, nil
}

// scalarText renders a decoded JSON scalar as plain text. Numbers keep their
// literal form because the decoder runs with UseNumber.
func scalarText(v interface{}) (string, error) {
	switch val := v.(type) {
	case nil:
		return "", nil
	case string:
		return val, nil
	case bool:
		if val {
			return "true", nil
		}
		return "false", nil
	case map[string]interface{}, []interface{}:
		return "", fmt.Errorf("expected scalar, got %T", v)
	default:
		return fmt.Sprint(val), nil
	}
}
