package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/jordanlanch/leadbook/pkg/domain"
	"github.com/jordanlanch/leadbook/pkg/enums"
	"github.com/jordanlanch/leadbook/pkg/logger"
	"github.com/jordanlanch/leadbook/pkg/models"
)

// DefaultFields is the field selection used when the client asks for
// everything, in column order.
var DefaultFields = []string{
	"full_name", "email", "phone", "city", "property_type", "bhk", "purpose",
	"budget_min", "budget_max", "timeline", "requirements", "source",
	"status", "priority", "notes", "created_at", "updated_at",
}

// fieldLabels maps internal field names to the human column headers
// written into exported files. The importer accepts these same labels.
var fieldLabels = map[string]string{
	"full_name":     "Full Name",
	"email":         "Email",
	"phone":         "Phone",
	"city":          "City",
	"property_type": "Property Type",
	"bhk":           "BHK",
	"purpose":       "Purpose",
	"budget_min":    "Budget Min",
	"budget_max":    "Budget Max",
	"timeline":      "Timeline",
	"requirements":  "Requirements",
	"source":        "Lead Source",
	"status":        "Status",
	"priority":      "Priority",
	"notes":         "Notes",
	"created_at":    "Created Date",
	"updated_at":    "Updated Date",
}

// enumFields are rendered as display labels on the way out.
var enumFields = map[string]string{
	"city":          enums.FieldCity,
	"property_type": enums.FieldPropertyType,
	"bhk":           enums.FieldBHK,
	"purpose":       enums.FieldPurpose,
	"timeline":      enums.FieldTimeline,
	"source":        enums.FieldSource,
	"status":        enums.FieldStatus,
	"priority":      enums.FieldPriority,
}

// Service renders filtered lead sets as CSV or XLSX. Exports are
// unpaginated: whatever the filter matches goes into the file.
type Service struct {
	repo domain.BuyerRepository
	norm *enums.Normalizer
	log  logger.Logger
}

// NewService creates a new export service
func NewService(repo domain.BuyerRepository, norm *enums.Normalizer, log logger.Logger) *Service {
	return &Service{repo: repo, norm: norm, log: log}
}

// Filename returns a date-stamped download name for the given format.
func Filename(format string) string {
	return fmt.Sprintf("buyers_export_%s.%s", time.Now().Format("2006-01-02"), format)
}

// ExportCSV writes all leads matching the filter as CSV and returns the
// number of data rows written.
func (s *Service) ExportCSV(ctx context.Context, filter models.BuyerFilter, fields []string, w io.Writer) (int, error) {
	fields = normalizeFields(fields)
	buyers, err := s.repo.ListAll(ctx, filter)
	if err != nil {
		return 0, err
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(headerRow(fields)); err != nil {
		return 0, domain.NewInternalError(err)
	}
	for _, buyer := range buyers {
		row := make([]string, len(fields))
		for i, field := range fields {
			row[i] = s.value(field, &buyer)
		}
		if err := writer.Write(row); err != nil {
			return 0, domain.NewInternalError(err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return 0, domain.NewInternalError(err)
	}

	s.log.Info("csv export written", "rows", len(buyers))
	return len(buyers), nil
}

// ExportXLSX writes all leads matching the filter as a spreadsheet with
// a styled header row.
func (s *Service) ExportXLSX(ctx context.Context, filter models.BuyerFilter, fields []string, w io.Writer) (int, error) {
	fields = normalizeFields(fields)
	buyers, err := s.repo.ListAll(ctx, filter)
	if err != nil {
		return 0, err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Buyers"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return 0, domain.NewInternalError(err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	if err != nil {
		return 0, domain.NewInternalError(err)
	}

	for i, label := range headerRow(fields) {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return 0, domain.NewInternalError(err)
		}
		f.SetCellValue(sheetName, cell, label)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for rowIdx, buyer := range buyers {
		for colIdx, field := range fields {
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err != nil {
				return 0, domain.NewInternalError(err)
			}
			f.SetCellValue(sheetName, cell, s.value(field, &buyer))
		}
	}

	for i := range fields {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return 0, domain.NewInternalError(err)
		}
		f.SetColWidth(sheetName, col, col, 15)
	}
	f.SetActiveSheet(index)

	if _, err := f.WriteTo(w); err != nil {
		return 0, domain.NewInternalError(err)
	}

	s.log.Info("xlsx export written", "rows", len(buyers))
	return len(buyers), nil
}

// TemplateCSV writes the import template: the accepted header row plus
// two example rows showing the expected display values.
func (s *Service) TemplateCSV(w io.Writer) error {
	writer := csv.NewWriter(w)

	header := []string{
		"Full Name", "Email", "Phone", "City", "Property Type", "BHK", "Purpose",
		"Budget Min", "Budget Max", "Timeline", "Requirements", "Lead Source",
		"Status", "Notes",
	}
	examples := [][]string{
		{"Asha Verma", "asha@example.com", "9876543210", "Chandigarh", "Apartment", "2 BHK", "Buy",
			"5000000", "7500000", "0-3 months", "Near a good school", "Website", "New", "Prefers sector 22"},
		{"Binod Kumar", "", "9123456780", "Mohali", "Plot", "", "Buy",
			"", "", "Exploring", "", "Referral", "New", ""},
	}

	if err := writer.Write(header); err != nil {
		return domain.NewInternalError(err)
	}
	for _, row := range examples {
		if err := writer.Write(row); err != nil {
			return domain.NewInternalError(err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return domain.NewInternalError(err)
	}
	return nil
}

func (s *Service) value(field string, buyer *models.Buyer) string {
	switch field {
	case "full_name":
		return buyer.FullName
	case "email":
		return buyer.Email
	case "phone":
		return buyer.Phone
	case "budget_min":
		return formatBudget(buyer.BudgetMin)
	case "budget_max":
		return formatBudget(buyer.BudgetMax)
	case "requirements":
		return buyer.Requirements
	case "notes":
		return buyer.Notes
	case "created_at":
		return buyer.CreatedAt.Format("2006-01-02")
	case "updated_at":
		return buyer.UpdatedAt.Format("2006-01-02")
	}

	if enumField, ok := enumFields[field]; ok {
		return s.norm.ToDisplay(enumField, enumValue(field, buyer))
	}
	return ""
}

func enumValue(field string, buyer *models.Buyer) string {
	switch field {
	case "city":
		return buyer.City
	case "property_type":
		return buyer.PropertyType
	case "bhk":
		return buyer.BHK
	case "purpose":
		return buyer.Purpose
	case "timeline":
		return buyer.Timeline
	case "source":
		return buyer.Source
	case "status":
		return buyer.Status
	case "priority":
		return buyer.Priority
	}
	return ""
}

func formatBudget(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func headerRow(fields []string) []string {
	header := make([]string, len(fields))
	for i, field := range fields {
		if label, ok := fieldLabels[field]; ok {
			header[i] = label
		} else {
			header[i] = field
		}
	}
	return header
}

// normalizeFields drops unknown field names from a selection; an empty
// selection means everything.
func normalizeFields(fields []string) []string {
	if len(fields) == 0 {
		return DefaultFields
	}
	out := make([]string, 0, len(fields))
	for _, field := range fields {
		if _, ok := fieldLabels[field]; ok {
			out = append(out, field)
		}
	}
	if len(out) == 0 {
		return DefaultFields
	}
	return out
}
