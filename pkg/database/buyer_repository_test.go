package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jordanlanch/leadbook/pkg/domain"
	"github.com/jordanlanch/leadbook/pkg/enums"
	"github.com/jordanlanch/leadbook/pkg/models"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "leadbook.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, Migrate(db))
	return db
}

func testBuyer(owner string) *models.Buyer {
	now := time.Now().UTC().Truncate(time.Microsecond)
	min := 5000000
	return &models.Buyer{
		ID:           uuid.NewString(),
		FullName:     "Asha Verma",
		Email:        "asha@example.com",
		Phone:        "9876543210",
		City:         enums.CityChandigarh,
		PropertyType: enums.PropertyApartment,
		BHK:          enums.BHKTwo,
		Purpose:      enums.PurposeBuy,
		BudgetMin:    &min,
		Timeline:     enums.TimelineWithin3Months,
		Source:       enums.SourceWebsite,
		Status:       enums.StatusNew,
		Priority:     enums.PriorityMedium,
		OwnerID:      owner,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func testEntry(buyerID, userID, action string) *models.HistoryEntry {
	return &models.HistoryEntry{
		ID:        uuid.NewString(),
		BuyerID:   buyerID,
		ChangedBy: userID,
		Action:    action,
		Changes:   `{"status":{"old":"NEW","new":"CONTACTED"}}`,
		ChangedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
}

func TestBuyerRepository_CreateAndGet(t *testing.T) {
	db := openTestDB(t)
	repo := NewBuyerRepository(db)
	ctx := context.Background()

	buyer := testBuyer("u1")
	require.NoError(t, repo.Create(ctx, buyer, testEntry(buyer.ID, "u1", models.HistoryActionCreated)))

	got, err := repo.GetByID(ctx, buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, buyer.FullName, got.FullName)
	assert.Equal(t, buyer.City, got.City)
	require.NotNil(t, got.BudgetMin)
	assert.Equal(t, *buyer.BudgetMin, *got.BudgetMin)
	assert.Nil(t, got.BudgetMax)
	assert.True(t, got.UpdatedAt.Equal(buyer.UpdatedAt))

	history := NewHistoryRepository(db)
	entries, err := history.ListByBuyer(ctx, buyer.ID, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.HistoryActionCreated, entries[0].Action)
}

func TestBuyerRepository_GetMissing(t *testing.T) {
	repo := NewBuyerRepository(openTestDB(t))

	_, err := repo.GetByID(context.Background(), "no-such-id")
	require.Error(t, err)
	assert.True(t, domain.IsNotFound(err))
}

func TestBuyerRepository_UpdateCAS(t *testing.T) {
	db := openTestDB(t)
	repo := NewBuyerRepository(db)
	ctx := context.Background()

	buyer := testBuyer("u1")
	require.NoError(t, repo.Create(ctx, buyer, testEntry(buyer.ID, "u1", models.HistoryActionCreated)))

	base := buyer.UpdatedAt
	updated := *buyer
	updated.Status = enums.StatusContacted
	updated.UpdatedAt = base.Add(time.Microsecond)

	require.NoError(t, repo.Update(ctx, &updated, base, testEntry(buyer.ID, "u1", models.HistoryActionUpdated)))

	got, err := repo.GetByID(ctx, buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.StatusContacted, got.Status)
	assert.True(t, got.UpdatedAt.Equal(updated.UpdatedAt))

	// A second writer still holding the original version loses.
	stale := *buyer
	stale.Status = enums.StatusConverted
	stale.UpdatedAt = base.Add(2 * time.Microsecond)
	err = repo.Update(ctx, &stale, base, testEntry(buyer.ID, "u2", models.HistoryActionUpdated))
	require.Error(t, err)
	assert.True(t, domain.IsConflict(err))

	// The conflict left neither record nor history behind.
	got, err = repo.GetByID(ctx, buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.StatusContacted, got.Status)

	entries, err := NewHistoryRepository(db).ListByBuyer(ctx, buyer.ID, 10)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestBuyerRepository_UpdateMissingIsNotFound(t *testing.T) {
	repo := NewBuyerRepository(openTestDB(t))

	ghost := testBuyer("u1")
	err := repo.Update(context.Background(), ghost, ghost.UpdatedAt, testEntry(ghost.ID, "u1", models.HistoryActionUpdated))
	require.Error(t, err)
	assert.True(t, domain.IsNotFound(err))
}

func TestBuyerRepository_DeleteRemovesHistory(t *testing.T) {
	db := openTestDB(t)
	repo := NewBuyerRepository(db)
	ctx := context.Background()

	buyer := testBuyer("u1")
	require.NoError(t, repo.Create(ctx, buyer, testEntry(buyer.ID, "u1", models.HistoryActionCreated)))
	require.NoError(t, repo.Delete(ctx, buyer.ID))

	_, err := repo.GetByID(ctx, buyer.ID)
	assert.True(t, domain.IsNotFound(err))

	entries, err := NewHistoryRepository(db).ListByBuyer(ctx, buyer.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, entries)

	assert.True(t, domain.IsNotFound(repo.Delete(ctx, buyer.ID)))
}

func TestBuyerRepository_ListFiltersAndPaginates(t *testing.T) {
	db := openTestDB(t)
	repo := NewBuyerRepository(db)
	ctx := context.Background()

	cities := []string{enums.CityChandigarh, enums.CityMohali, enums.CityChandigarh}
	for i, city := range cities {
		b := testBuyer("u1")
		b.City = city
		b.FullName = []string{"Asha Verma", "Binod Kumar", "Chitra Rao"}[i]
		b.UpdatedAt = b.UpdatedAt.Add(time.Duration(i) * time.Second)
		require.NoError(t, repo.Create(ctx, b, testEntry(b.ID, "u1", models.HistoryActionCreated)))
	}

	resp, err := repo.List(ctx, models.BuyerFilter{City: enums.CityChandigarh})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Pagination.Total)
	require.Len(t, resp.Data, 2)
	// Default ordering is updated_at descending.
	assert.Equal(t, "Chitra Rao", resp.Data[0].FullName)

	// Search matches name case-insensitively.
	resp, err = repo.List(ctx, models.BuyerFilter{Search: "binod"})
	require.NoError(t, err)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "Binod Kumar", resp.Data[0].FullName)

	// Pagination metadata.
	resp, err = repo.List(ctx, models.BuyerFilter{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, resp.Pagination.Total)
	assert.Equal(t, 2, resp.Pagination.TotalPages)
	assert.True(t, resp.Pagination.HasNext)
	assert.False(t, resp.Pagination.HasPrev)

	resp, err = repo.List(ctx, models.BuyerFilter{Page: 2, Limit: 2})
	require.NoError(t, err)
	require.Len(t, resp.Data, 1)
	assert.True(t, resp.Pagination.HasPrev)
}

func TestBuyerRepository_ListSortWhitelist(t *testing.T) {
	db := openTestDB(t)
	repo := NewBuyerRepository(db)
	ctx := context.Background()

	names := []string{"Zara", "Amit"}
	for _, name := range names {
		b := testBuyer("u1")
		b.FullName = name
		require.NoError(t, repo.Create(ctx, b, testEntry(b.ID, "u1", models.HistoryActionCreated)))
	}

	resp, err := repo.List(ctx, models.BuyerFilter{SortBy: "full_name", SortOrder: "asc"})
	require.NoError(t, err)
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "Amit", resp.Data[0].FullName)

	// An unknown sort column falls back to updated_at instead of
	// reaching the SQL text.
	_, err = repo.List(ctx, models.BuyerFilter{SortBy: "full_name; DROP TABLE buyers"})
	require.NoError(t, err)
}

func TestBuyerRepository_Stats(t *testing.T) {
	db := openTestDB(t)
	repo := NewBuyerRepository(db)
	ctx := context.Background()

	statuses := []string{enums.StatusNew, enums.StatusContacted, enums.StatusConverted, enums.StatusConverted}
	for _, status := range statuses {
		b := testBuyer("u1")
		b.Status = status
		require.NoError(t, repo.Create(ctx, b, testEntry(b.ID, "u1", models.HistoryActionCreated)))
	}
	other := testBuyer("u2")
	require.NoError(t, repo.Create(ctx, other, testEntry(other.ID, "u2", models.HistoryActionCreated)))

	stats, err := repo.Stats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 1, stats.New)
	assert.Equal(t, 1, stats.Contacted)
	assert.Equal(t, 2, stats.Converted)
	assert.Equal(t, "50.0%", stats.ConversionRate)

	empty, err := repo.Stats(ctx, "nobody")
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Total)
	assert.Equal(t, "0%", empty.ConversionRate)
}

func TestHistoryRepository_WindowAndOrder(t *testing.T) {
	db := openTestDB(t)
	repo := NewBuyerRepository(db)
	history := NewHistoryRepository(db)
	ctx := context.Background()

	buyer := testBuyer("u1")
	require.NoError(t, repo.Create(ctx, buyer, testEntry(buyer.ID, "u1", models.HistoryActionCreated)))

	version := buyer.UpdatedAt
	for i := 0; i < 12; i++ {
		next := *buyer
		next.Notes = string(rune('a' + i))
		next.UpdatedAt = version.Add(time.Duration(i+1) * time.Second)
		entry := testEntry(buyer.ID, "u1", models.HistoryActionUpdated)
		entry.ChangedAt = next.UpdatedAt
		require.NoError(t, repo.Update(ctx, &next, version, entry))
		version = next.UpdatedAt
	}

	entries, err := history.ListByBuyer(ctx, buyer.ID, 10)
	require.NoError(t, err)
	require.Len(t, entries, 10)
	for i := 1; i < len(entries); i++ {
		assert.False(t, entries[i].ChangedAt.After(entries[i-1].ChangedAt), "entries must be newest first")
	}
}

func TestUserRepository_CreateAndFetch(t *testing.T) {
	db := openTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        "agent@example.com",
		PasswordHash: "$2a$10$abcdefghijklmnopqrstuv",
		Role:         models.RoleAgent,
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, repo.Create(ctx, user))

	byEmail, err := repo.GetByEmail(ctx, "agent@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	byID, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, byID.Email)

	// Duplicate email is a conflict.
	dup := *user
	dup.ID = uuid.NewString()
	err = repo.Create(ctx, &dup)
	require.Error(t, err)
	assert.True(t, domain.IsConflict(err))

	_, err = repo.GetByEmail(ctx, "ghost@example.com")
	assert.True(t, domain.IsNotFound(err))
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pq.Error{Code: "23505"}))
	assert.False(t, isUniqueViolation(&pq.Error{Code: "23503"}))
	assert.True(t, isUniqueViolation(errors.New("UNIQUE constraint failed: users.email")))
	assert.False(t, isUniqueViolation(errors.New("connection reset by peer")))
}
