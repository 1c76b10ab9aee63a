package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/jordanlanch/leadbook/pkg/api/errors"
	"github.com/jordanlanch/leadbook/pkg/domain"
	"github.com/jordanlanch/leadbook/pkg/export"
	"github.com/jordanlanch/leadbook/pkg/importer"
	"github.com/jordanlanch/leadbook/pkg/logger"
	"github.com/jordanlanch/leadbook/pkg/metrics"
	"github.com/jordanlanch/leadbook/pkg/middleware"
	"github.com/jordanlanch/leadbook/pkg/models"
)

// TransferHandler handles CSV import and file export endpoints
type TransferHandler struct {
	importer *importer.Service
	exporter *export.Service
	metrics  *metrics.Metrics
	log      logger.Logger
}

// NewTransferHandler creates a new transfer handler
func NewTransferHandler(imp *importer.Service, exp *export.Service, m *metrics.Metrics, log logger.Logger) *TransferHandler {
	return &TransferHandler{importer: imp, exporter: exp, metrics: m, log: log}
}

// Import handles POST /buyers/import
func (h *TransferHandler) Import(c echo.Context) error {
	p, ok := middleware.PrincipalFromContext(c)
	if !ok {
		return errors.Respond(c, h.log, domain.NewUnauthorizedError())
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return errors.Respond(c, h.log, domain.NewFieldError("file", "no file provided"))
	}
	if !strings.HasSuffix(strings.ToLower(fileHeader.Filename), ".csv") {
		return errors.Respond(c, h.log, domain.NewFieldError("file", "invalid file type, please upload a CSV file"))
	}

	file, err := fileHeader.Open()
	if err != nil {
		return errors.Respond(c, h.log, domain.NewInternalError(err))
	}
	defer file.Close()

	result, err := h.importer.ImportCSV(c.Request().Context(), p, file)
	if err != nil {
		return errors.Respond(c, h.log, err)
	}

	h.metrics.RecordImportRows(result.Success, len(result.Errors))
	return c.JSON(http.StatusOK, result)
}

// Export handles GET /buyers/export
func (h *TransferHandler) Export(c echo.Context) error {
	if _, ok := middleware.PrincipalFromContext(c); !ok {
		return errors.Respond(c, h.log, domain.NewUnauthorizedError())
	}

	var filter models.BuyerFilter
	if err := c.Bind(&filter); err != nil {
		return errors.Respond(c, h.log, domain.NewFieldError("query", "invalid query parameters"))
	}

	var fields []string
	if raw := c.QueryParam("fields"); raw != "" {
		fields = strings.Split(raw, ",")
	}

	format := c.QueryParam("format")
	if format == "" {
		format = "csv"
	}

	// The file is rendered into memory first so a failure can still
	// produce a proper error response instead of a truncated download.
	var buf bytes.Buffer
	var contentType string

	switch format {
	case "csv":
		contentType = "text/csv"
		if _, err := h.exporter.ExportCSV(c.Request().Context(), filter, fields, &buf); err != nil {
			return errors.Respond(c, h.log, err)
		}
	case "xlsx":
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		if _, err := h.exporter.ExportXLSX(c.Request().Context(), filter, fields, &buf); err != nil {
			return errors.Respond(c, h.log, err)
		}
	default:
		return errors.Respond(c, h.log, domain.NewFieldError("format", "must be csv or xlsx"))
	}

	h.metrics.RecordExportCreated(format)
	setDisposition(c, export.Filename(format))
	return c.Blob(http.StatusOK, contentType, buf.Bytes())
}

// Template handles GET /buyers/import/template
func (h *TransferHandler) Template(c echo.Context) error {
	var buf bytes.Buffer
	if err := h.exporter.TemplateCSV(&buf); err != nil {
		return errors.Respond(c, h.log, err)
	}
	setDisposition(c, "buyers_import_template.csv")
	return c.Blob(http.StatusOK, "text/csv", buf.Bytes())
}

func setDisposition(c echo.Context, filename string) {
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename=%q`, filename))
}
