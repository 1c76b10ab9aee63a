package importer

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jordanlanch/leadbook/pkg/authz"
	"github.com/jordanlanch/leadbook/pkg/buyers"
	"github.com/jordanlanch/leadbook/pkg/database"
	"github.com/jordanlanch/leadbook/pkg/enums"
	"github.com/jordanlanch/leadbook/pkg/logger"
	"github.com/jordanlanch/leadbook/pkg/models"
)

func newImportService(t *testing.T, maxRows int) (*Service, *database.BuyerRepository) {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "import.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))

	norm := enums.NewNormalizer(enums.DefaultMapping())
	repo := database.NewBuyerRepository(db)
	svc := buyers.NewService(repo, database.NewHistoryRepository(db), authz.NewGate(),
		buyers.NewValidator(norm), logger.New("error"))
	return NewService(svc, norm, maxRows, logger.New("error")), repo
}

func errorByRow(result *Result) map[int][]RowError {
	out := make(map[int][]RowError)
	for _, e := range result.Errors {
		out[e.Row] = append(out[e.Row], e)
	}
	return out
}

func TestImportCSV_HappyPath(t *testing.T) {
	svc, repo := newImportService(t, 0)
	csvData := strings.Join([]string{
		`Full Name,Email,Phone,City,Property Type,BHK,Purpose,Budget Min,Budget Max,Timeline,Requirements,Lead Source,Status,Notes`,
		`Asha Verma,asha@example.com,9876543210,Chandigarh,Apartment,2 BHK,Buy,5000000,7500000,0-3 months,Near school,Website,New,Prefers sector 22`,
		`Binod Kumar,,9123456780,Mohali,Plot,,Buy,,,Exploring,,Referral,,`,
	}, "\n")

	result, err := svc.ImportCSV(context.Background(), authz.Principal{ID: "u1"}, strings.NewReader(csvData))
	require.NoError(t, err)

	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 2, result.Success)
	assert.Empty(t, result.Errors)

	stored, err := repo.ListAll(context.Background(), models.BuyerFilter{})
	require.NoError(t, err)
	require.Len(t, stored, 2)

	byName := map[string]models.Buyer{}
	for _, b := range stored {
		byName[b.FullName] = b
	}
	asha := byName["Asha Verma"]
	assert.Equal(t, enums.CityChandigarh, asha.City)
	assert.Equal(t, enums.BHKTwo, asha.BHK)
	require.NotNil(t, asha.BudgetMin)
	assert.Equal(t, 5000000, *asha.BudgetMin)
	assert.Equal(t, "u1", asha.OwnerID)

	// Status and priority defaulted on the sparse row.
	binod := byName["Binod Kumar"]
	assert.Equal(t, enums.StatusNew, binod.Status)
	assert.Equal(t, enums.PriorityMedium, binod.Priority)
	assert.Nil(t, binod.BudgetMin)
}

func TestImportCSV_MachineHeadersAccepted(t *testing.T) {
	svc, repo := newImportService(t, 0)
	csvData := strings.Join([]string{
		`fullName,phone,city,propertyType,bhkRequirement,purpose,possessionTimeline,leadSource`,
		`Chitra Rao,9876501234,MOHALI,Villa,3 BHK,Rent,IMMEDIATE,WEBSITE`,
	}, "\n")

	result, err := svc.ImportCSV(context.Background(), authz.Principal{ID: "u1"}, strings.NewReader(csvData))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Success)
	assert.Empty(t, result.Errors)

	stored, err := repo.ListAll(context.Background(), models.BuyerFilter{})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, enums.PropertyVilla, stored[0].PropertyType)
	assert.Equal(t, enums.TimelineImmediate, stored[0].Timeline)
}

func TestImportCSV_RowNumbersCountHeader(t *testing.T) {
	svc, _ := newImportService(t, 0)
	csvData := strings.Join([]string{
		`Full Name,Phone,City,Property Type,Purpose,Timeline,Lead Source`,
		`Good Lead,9876543210,Chandigarh,Plot,Buy,Immediate,Website`,
		`Bad Lead,123,Chandigarh,Plot,Buy,Immediate,Website`,
	}, "\n")

	result, err := svc.ImportCSV(context.Background(), authz.Principal{ID: "u1"}, strings.NewReader(csvData))
	require.NoError(t, err)

	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 1, result.Success)
	byRow := errorByRow(result)
	require.Contains(t, byRow, 3, "first data row is row 2, so the bad second row is row 3")
	assert.Equal(t, "phone", byRow[3][0].Field)
	assert.Equal(t, "Bad Lead", byRow[3][0].Data["full_name"])
}

func TestImportCSV_ColumnCountMismatchIsRowError(t *testing.T) {
	svc, _ := newImportService(t, 0)
	csvData := strings.Join([]string{
		`Full Name,Phone,City,Property Type,Purpose,Timeline,Lead Source`,
		`Short Row,9876543210`,
		`Full Row,9876543210,Chandigarh,Plot,Buy,Immediate,Website`,
	}, "\n")

	result, err := svc.ImportCSV(context.Background(), authz.Principal{ID: "u1"}, strings.NewReader(csvData))
	require.NoError(t, err)

	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 1, result.Success)
	byRow := errorByRow(result)
	require.Contains(t, byRow, 2)
	assert.Equal(t, "row", byRow[2][0].Field)
	assert.Contains(t, byRow[2][0].Message, "expected 7 columns, got 2")
}

func TestImportCSV_BadRowDoesNotStopTheRest(t *testing.T) {
	svc, _ := newImportService(t, 0)
	csvData := strings.Join([]string{
		`Full Name,Phone,City,Property Type,Purpose,Timeline,Lead Source,Budget Min`,
		`First,9876543210,Chandigarh,Plot,Buy,Immediate,Website,1000`,
		`Broken,9876543210,Atlantis,Plot,Buy,Immediate,Website,not-a-number`,
		`Last,9876543211,Mohali,Plot,Buy,Immediate,Website,`,
	}, "\n")

	result, err := svc.ImportCSV(context.Background(), authz.Principal{ID: "u1"}, strings.NewReader(csvData))
	require.NoError(t, err)

	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 2, result.Success)
	byRow := errorByRow(result)
	fields := make([]string, 0, len(byRow[3]))
	for _, e := range byRow[3] {
		fields = append(fields, e.Field)
	}
	assert.Contains(t, fields, "budget_min")
}

func TestImportCSV_DefaultsForEmptyEnumColumns(t *testing.T) {
	svc, repo := newImportService(t, 0)
	csvData := strings.Join([]string{
		`Full Name,Phone,Purpose,City,Property Type,Timeline,Lead Source`,
		`Default Dina,9876543210,Buy,,,,`,
	}, "\n")

	result, err := svc.ImportCSV(context.Background(), authz.Principal{ID: "u1"}, strings.NewReader(csvData))
	require.NoError(t, err)
	require.Equal(t, 1, result.Success, "errors: %v", result.Errors)

	stored, err := repo.ListAll(context.Background(), models.BuyerFilter{})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, enums.CityOther, stored[0].City)
	assert.Equal(t, enums.PropertyApartment, stored[0].PropertyType)
	assert.Equal(t, enums.TimelineWithin1Year, stored[0].Timeline)
	assert.Equal(t, enums.SourceOther, stored[0].Source)
}

func TestImportCSV_MissingPurposeIsNotDefaulted(t *testing.T) {
	svc, _ := newImportService(t, 0)
	csvData := strings.Join([]string{
		`Full Name,Phone,City,Property Type,Purpose,Timeline,Lead Source`,
		`No Purpose,9876543210,Chandigarh,Plot,,Immediate,Website`,
	}, "\n")

	result, err := svc.ImportCSV(context.Background(), authz.Principal{ID: "u1"}, strings.NewReader(csvData))
	require.NoError(t, err)
	assert.Equal(t, 0, result.Success)
	byRow := errorByRow(result)
	require.Contains(t, byRow, 2)
	assert.Equal(t, "purpose", byRow[2][0].Field)
}

func TestImportCSV_RowLimit(t *testing.T) {
	svc, _ := newImportService(t, 2)
	csvData := strings.Join([]string{
		`Full Name,Phone,City,Property Type,Purpose,Timeline,Lead Source`,
		`One,9876543210,Chandigarh,Plot,Buy,Immediate,Website`,
		`Two,9876543211,Chandigarh,Plot,Buy,Immediate,Website`,
		`Three,9876543212,Chandigarh,Plot,Buy,Immediate,Website`,
	}, "\n")

	result, err := svc.ImportCSV(context.Background(), authz.Principal{ID: "u1"}, strings.NewReader(csvData))
	require.NoError(t, err)

	assert.Equal(t, 2, result.Success)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "file", result.Errors[0].Field)
	assert.Contains(t, result.Errors[0].Message, "row limit")
}
