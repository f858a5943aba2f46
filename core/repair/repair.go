package repair

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"regexp"
	"unicode/utf8"

	"print-scheduler/core/ingest"
	"print-scheduler/core/repository"
	"print-scheduler/pkg/json"

	"go.uber.org/zap"
)

// ErrUnrecoverable is returned when the file could not be repaired or rebuilt
var ErrUnrecoverable = errors.New("orders file could not be repaired")

// Action describes what Repair did to the file
type Action string

const (
	ActionNone     Action = "none"     // File was already valid
	ActionRepaired Action = "repaired" // Syntax was fixed in place
	ActionRebuilt  Action = "rebuilt"  // Content was regenerated from the source sheet
)

// Result reports the outcome of a repair
type Result struct {
	Action Action `json:"action"`
	Orders int    `json:"orders,omitempty"` // Orders written when rebuilt
	Detail string `json:"detail"`
}

var (
	trailingCommaObject = regexp.MustCompile(`,\s*}`)
	trailingCommaArray  = regexp.MustCompile(`,\s*]`)
)

// Repairer fixes a malformed orders JSON file
type Repairer struct {
	excelPath string
	log       *zap.Logger
	readSheet func(path string) (ingest.SheetResult, error)
}

// NewRepairer creates a repairer that falls back to rebuilding from excelPath
func NewRepairer(excelPath string, log *zap.Logger) *Repairer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Repairer{
		excelPath: excelPath,
		log:       log,
		readSheet: ingest.ReadFile,
	}
}

// Fix normalizes typographic quotes and drops trailing commas before closing
// brackets. It does not check that the result is valid.
func Fix(content []byte) []byte {
	fixed := []byte(ingest.NormalizeQuotes(string(content)))
	fixed = trailingCommaObject.ReplaceAll(fixed, []byte("}"))
	fixed = trailingCommaArray.ReplaceAll(fixed, []byte("]"))
	return fixed
}

// Repair checks the orders file at path and fixes it when needed. Valid JSON
// with intact text is left alone; garbled text or unfixable syntax triggers a
// rebuild from the source sheet.
func (r *Repairer) Repair(path string) (Result, error) {
	content, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Result{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if len(bytes.TrimSpace(content)) > 0 && json.Valid(content) {
		if !garbled(content) {
			r.log.Info("Orders file is valid JSON", zap.String("path", path))
			return Result{Action: ActionNone, Detail: "orders file is valid"}, nil
		}
		r.log.Warn("Orders file contains garbled text, rebuilding from sheet", zap.String("path", path))
		return r.rebuild(path)
	}

	fixed := Fix(content)
	if len(bytes.TrimSpace(fixed)) > 0 && json.Valid(fixed) {
		if err := repository.WriteFileAtomic(path, fixed); err != nil {
			return Result{}, err
		}
		r.log.Info("Repaired orders file syntax", zap.String("path", path))
		return Result{Action: ActionRepaired, Detail: "fixed quotes and trailing commas"}, nil
	}

	r.log.Warn("Orders file syntax could not be fixed, rebuilding from sheet", zap.String("path", path))
	return r.rebuild(path)
}

func (r *Repairer) rebuild(path string) (Result, error) {
	sheet, err := r.readSheet(r.excelPath)
	if err != nil {
		r.log.Error("Failed to rebuild orders from sheet",
			zap.String("sheet", r.excelPath),
			zap.Error(err))
		return Result{}, fmt.Errorf("%w: %v", ErrUnrecoverable, err)
	}
	if len(sheet.Orders) == 0 {
		return Result{}, fmt.Errorf("%w: sheet %s has no orders", ErrUnrecoverable, r.excelPath)
	}

	data, err := json.MarshalIndent(sheet.Orders, "", "  ")
	if err != nil {
		return Result{}, fmt.Errorf("failed to encode orders: %w", err)
	}
	if err := repository.WriteFileAtomic(path, data); err != nil {
		return Result{}, err
	}

	r.log.Info("Rebuilt orders file from sheet",
		zap.String("path", path),
		zap.Int("orders", len(sheet.Orders)))
	return Result{
		Action: ActionRebuilt,
		Orders: len(sheet.Orders),
		Detail: "rebuilt from " + r.excelPath,
	}, nil
}

// garbled reports whether the text was mangled by a bad encoding round trip
func garbled(content []byte) bool {
	return !utf8.Valid(content) || bytes.ContainsRune(content, utf8.RuneError)
}
