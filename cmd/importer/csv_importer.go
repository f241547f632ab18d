package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/lychee-technology/classifieds"
	"go.uber.org/zap"
)

// ImportError represents an error that occurred while importing a single CSV row.
type ImportError struct {
	RowNumber int    // CSV row number (1-based, including header)
	CSVColumn string // CSV column that caused the error, if known
	RawValue  string
	Code      string
	Reason    string
}

func (e *ImportError) Error() string {
	if e.CSVColumn != "" {
		return fmt.Sprintf("row %d, column %q: value %q - %s", e.RowNumber, e.CSVColumn, e.RawValue, e.Reason)
	}
	if e.Code != "" {
		return fmt.Sprintf("row %d: [%s] %s", e.RowNumber, e.Code, e.Reason)
	}
	return fmt.Sprintf("row %d: %s", e.RowNumber, e.Reason)
}

// ImportResult contains the results of a CSV import operation.
type ImportResult struct {
	TotalRows    int
	SuccessCount int
	FailedCount  int
	Errors       []*ImportError
	Duration     time.Duration
}

// Summary returns a human-readable summary of the import result.
func (r *ImportResult) Summary() string {
	return fmt.Sprintf("Import completed: %d/%d rows successful, %d failed, duration: %v",
		r.SuccessCount, r.TotalRows, r.FailedCount, r.Duration)
}

// CSVImporter creates one listing per CSV row on behalf of actor. A failing
// row does not stop the import.
type CSVImporter struct {
	listings classifieds.ListingManager
	mapper   *ListingMapper
	actor    classifieds.Actor
	logger   *zap.SugaredLogger
}

func NewCSVImporter(listings classifieds.ListingManager, mapper *ListingMapper, actor classifieds.Actor) *CSVImporter {
	return &CSVImporter{
		listings: listings,
		mapper:   mapper,
		actor:    actor,
		logger:   zap.S().Named("import"),
	}
}

// SetLogger sets a custom logger for the importer.
func (i *CSVImporter) SetLogger(logger *zap.SugaredLogger) {
	i.logger = logger
}

// ImportFromFile imports CSV data from a file.
func (i *CSVImporter) ImportFromFile(ctx context.Context, filePath string) (*ImportResult, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	return i.ImportFromReader(ctx, file)
}

// ImportFromReader imports CSV data from an io.Reader.
func (i *CSVImporter) ImportFromReader(ctx context.Context, reader io.Reader) (*ImportResult, error) {
	startTime := time.Now()

	csvReader := csv.NewReader(reader)
	csvReader.TrimLeadingSpace = true
	csvReader.FieldsPerRecord = -1

	header, err := csvReader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	result := &ImportResult{Errors: make([]*ImportError, 0)}
	fail := func(importErr *ImportError) {
		i.logger.Errorw("row failed", "error", importErr.Error())
		result.FailedCount++
		result.Errors = append(result.Errors, importErr)
	}

	rowNum := 1 // Header is row 1
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rowNum++
		record, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			fail(&ImportError{RowNumber: rowNum, Reason: fmt.Sprintf("CSV parsing error: %v", err)})
			continue
		}

		result.TotalRows++

		csvRecord := make(map[string]string, len(header))
		for idx, col := range header {
			if idx < len(record) {
				csvRecord[col] = record[idx]
			}
		}

		req, err := i.mapper.MapRecord(header, csvRecord)
		if err != nil {
			var mappingErr *MappingError
			if errors.As(err, &mappingErr) {
				fail(&ImportError{RowNumber: rowNum, CSVColumn: mappingErr.CSVColumn, RawValue: mappingErr.RawValue, Reason: mappingErr.Reason})
			} else {
				fail(&ImportError{RowNumber: rowNum, Reason: err.Error()})
			}
			continue
		}

		view, err := i.listings.CreateListing(ctx, i.actor, req)
		if err != nil {
			var ce *classifieds.ClassifiedsError
			if errors.As(err, &ce) {
				fail(&ImportError{RowNumber: rowNum, Code: ce.Code, Reason: ce.Error()})
			} else {
				fail(&ImportError{RowNumber: rowNum, Reason: err.Error()})
			}
			continue
		}
		result.SuccessCount++
		i.logger.Debugw("row imported", "row", rowNum, "listingID", view.ID)
	}

	result.Duration = time.Since(startTime)
	i.logger.Info(result.Summary())
	return result, nil
}
