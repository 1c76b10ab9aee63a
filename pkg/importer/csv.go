package importer

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jordanlanch/leadbook/pkg/authz"
	"github.com/jordanlanch/leadbook/pkg/buyers"
	"github.com/jordanlanch/leadbook/pkg/domain"
	"github.com/jordanlanch/leadbook/pkg/enums"
	"github.com/jordanlanch/leadbook/pkg/logger"
	"github.com/jordanlanch/leadbook/pkg/models"
)

// headerAliases maps the header spellings accepted in uploaded files to
// internal field names. Both human labels and machine names are valid.
var headerAliases = map[string]string{
	"Full Name":    "full_name",
	"fullName":     "full_name",
	"full_name":    "full_name",
	"Email":        "email",
	"email":        "email",
	"Phone":        "phone",
	"phone":        "phone",
	"City":         "city",
	"city":         "city",
	"Property Type": "property_type",
	"propertyType":  "property_type",
	"property_type": "property_type",
	"BHK":           "bhk",
	"bhk":           "bhk",
	"bhkRequirement": "bhk",
	"Purpose":       "purpose",
	"purpose":       "purpose",
	"Budget Min":    "budget_min",
	"budgetMin":     "budget_min",
	"budget_min":    "budget_min",
	"Budget Max":    "budget_max",
	"budgetMax":     "budget_max",
	"budget_max":    "budget_max",
	"Timeline":           "timeline",
	"possessionTimeline": "timeline",
	"timeline":           "timeline",
	"Requirements":         "requirements",
	"specificRequirements": "requirements",
	"requirements":         "requirements",
	"Lead Source": "source",
	"leadSource":  "source",
	"source":      "source",
	"Status":   "status",
	"status":   "status",
	"Priority": "priority",
	"priority": "priority",
	"Notes":    "notes",
	"notes":    "notes",
	// Date columns from exported files are accepted and ignored.
	"Created Date": "created_at",
	"Updated Date": "updated_at",
}

// RowError attributes an import failure to one row and field, carrying
// the raw row so the client can show what was rejected.
type RowError struct {
	Row     int               `json:"row"`
	Field   string            `json:"field"`
	Message string            `json:"message"`
	Data    map[string]string `json:"data,omitempty"`
}

// Result summarizes an import run.
type Result struct {
	Success int        `json:"success"`
	Errors  []RowError `json:"errors"`
	Total   int        `json:"total"`
}

// Service ingests CSV files of buyer leads. Rows are processed
// sequentially and committed row by row: a bad row is recorded and
// skipped while the rest of the file goes through.
type Service struct {
	buyers  *buyers.Service
	norm    *enums.Normalizer
	maxRows int
	log     logger.Logger
}

// NewService creates a new CSV import service
func NewService(buyerSvc *buyers.Service, norm *enums.Normalizer, maxRows int, log logger.Logger) *Service {
	if maxRows <= 0 {
		maxRows = 10000
	}
	return &Service{buyers: buyerSvc, norm: norm, maxRows: maxRows, log: log}
}

// ImportCSV reads the file and creates one lead per valid row, owned by
// the principal. Row numbers in errors are 1-based and count the header,
// so the first data row is row 2.
func (s *Service) ImportCSV(ctx context.Context, p authz.Principal, r io.Reader) (*Result, error) {
	csvReader := csv.NewReader(r)
	csvReader.TrimLeadingSpace = true
	csvReader.FieldsPerRecord = -1

	headers, err := csvReader.Read()
	if err != nil {
		return nil, domain.NewFieldError("file", "failed to read CSV header")
	}

	fields := make([]string, len(headers))
	for i, h := range headers {
		h = strings.TrimSpace(h)
		if mapped, ok := headerAliases[h]; ok {
			fields[i] = mapped
		} else {
			fields[i] = h
		}
	}

	result := &Result{Errors: []RowError{}}
	rowNum := 1 // header

	for {
		record, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		rowNum++
		if err != nil {
			result.Total++
			result.Errors = append(result.Errors, RowError{
				Row: rowNum, Field: "row", Message: fmt.Sprintf("unreadable row: %v", err),
			})
			continue
		}

		if result.Total >= s.maxRows {
			result.Errors = append(result.Errors, RowError{
				Row: rowNum, Field: "file",
				Message: fmt.Sprintf("row limit of %d exceeded, remaining rows ignored", s.maxRows),
			})
			break
		}
		result.Total++

		raw := make(map[string]string, len(fields))
		if len(record) != len(headers) {
			// A malformed row is reported, not silently dropped.
			result.Errors = append(result.Errors, RowError{
				Row: rowNum, Field: "row",
				Message: fmt.Sprintf("expected %d columns, got %d", len(headers), len(record)),
				Data:    rawRow(fields, record),
			})
			continue
		}
		for i, value := range record {
			raw[fields[i]] = strings.TrimSpace(value)
		}

		input, rowErrs := s.buildInput(raw, rowNum)
		if len(rowErrs) > 0 {
			result.Errors = append(result.Errors, rowErrs...)
			continue
		}

		if _, err := s.buyers.Create(ctx, p, input); err != nil {
			result.Errors = append(result.Errors, importErrors(err, rowNum, raw)...)
			continue
		}
		result.Success++
	}

	s.log.Info("csv import finished",
		"user_id", p.ID, "total", result.Total, "success", result.Success, "errors", len(result.Errors))
	return result, nil
}

// buildInput converts a raw row into a BuyerInput, applying the
// documented per-field defaults for absent enum values.
func (s *Service) buildInput(raw map[string]string, rowNum int) (models.BuyerInput, []RowError) {
	var errs []RowError

	parseBudget := func(field string) *int {
		value := raw[field]
		if value == "" {
			return nil
		}
		n, err := strconv.Atoi(value)
		if err != nil {
			errs = append(errs, RowError{
				Row: rowNum, Field: field,
				Message: fmt.Sprintf("invalid number %q", value), Data: raw,
			})
			return nil
		}
		return &n
	}

	withDefault := func(field string) string {
		if raw[field] == "" {
			return s.norm.DefaultFor(field)
		}
		return raw[field]
	}

	input := models.BuyerInput{
		FullName:     raw["full_name"],
		Email:        raw["email"],
		Phone:        raw["phone"],
		City:         withDefault(enums.FieldCity),
		PropertyType: withDefault(enums.FieldPropertyType),
		BHK:          raw["bhk"],
		Purpose:      raw["purpose"],
		BudgetMin:    parseBudget("budget_min"),
		BudgetMax:    parseBudget("budget_max"),
		Timeline:     withDefault(enums.FieldTimeline),
		Source:       withDefault(enums.FieldSource),
		Status:       raw["status"],
		Priority:     raw["priority"],
		Requirements: raw["requirements"],
		Notes:        raw["notes"],
	}
	return input, errs
}

// importErrors flattens a creation failure into row errors, one per
// offending field for validation failures.
func importErrors(err error, rowNum int, raw map[string]string) []RowError {
	if fields := domain.ValidationFields(err); len(fields) > 0 {
		out := make([]RowError, 0, len(fields))
		for _, f := range fields {
			out = append(out, RowError{Row: rowNum, Field: f.Field, Message: f.Message, Data: raw})
		}
		return out
	}
	return []RowError{{Row: rowNum, Field: "general", Message: err.Error(), Data: raw}}
}

func rawRow(fields, record []string) map[string]string {
	raw := make(map[string]string)
	for i, value := range record {
		if i < len(fields) {
			raw[fields[i]] = strings.TrimSpace(value)
		}
	}
	return raw
}
