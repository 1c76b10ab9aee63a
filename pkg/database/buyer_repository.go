package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jordanlanch/leadbook/pkg/domain"
	"github.com/jordanlanch/leadbook/pkg/enums"
	"github.com/jordanlanch/leadbook/pkg/models"
)

const buyerColumns = `id, full_name, email, phone, city, property_type, bhk, purpose,
	budget_min, budget_max, timeline, source, status, priority,
	requirements, notes, owner_id, created_at, updated_at`

// BuyerRepository persists buyer leads over database/sql. Mutations
// write the record and its audit entry in one transaction; Update adds
// a compare-and-swap on updated_at so a stale writer can never clobber
// a newer version.
type BuyerRepository struct {
	DB *sql.DB
}

// NewBuyerRepository creates a new buyer repository
func NewBuyerRepository(db *sql.DB) *BuyerRepository {
	return &BuyerRepository{DB: db}
}

// Create inserts a lead and its creation history entry atomically.
func (r *BuyerRepository) Create(ctx context.Context, buyer *models.Buyer, entry *models.HistoryEntry) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.NewInternalError(err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO buyers (`+buyerColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
		buyer.ID, buyer.FullName, buyer.Email, buyer.Phone, buyer.City,
		buyer.PropertyType, buyer.BHK, buyer.Purpose,
		nullInt(buyer.BudgetMin), nullInt(buyer.BudgetMax),
		buyer.Timeline, buyer.Source, buyer.Status, buyer.Priority,
		buyer.Requirements, buyer.Notes, buyer.OwnerID,
		buyer.CreatedAt, buyer.UpdatedAt,
	)
	if err != nil {
		return domain.NewInternalError(err)
	}

	if err := insertHistory(ctx, tx, entry); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return domain.NewInternalError(err)
	}
	return nil
}

// GetByID fetches one lead by id.
func (r *BuyerRepository) GetByID(ctx context.Context, id string) (*models.Buyer, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+buyerColumns+` FROM buyers WHERE id = $1`, id)
	buyer, err := scanBuyer(row)
	if err == sql.ErrNoRows {
		return nil, domain.NewNotFoundError("buyer")
	}
	if err != nil {
		return nil, domain.NewInternalError(err)
	}
	return buyer, nil
}

// List returns a filtered, sorted page of leads plus pagination info.
func (r *BuyerRepository) List(ctx context.Context, filter models.BuyerFilter) (*models.BuyerListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 20
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}

	where, args := buildWhere(filter)

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM buyers`+where, args...).Scan(&total); err != nil {
		return nil, domain.NewInternalError(err)
	}

	offset := (filter.Page - 1) * filter.Limit
	args = append(args, filter.Limit, offset)
	query := fmt.Sprintf(`SELECT %s FROM buyers%s ORDER BY %s LIMIT $%d OFFSET $%d`,
		buyerColumns, where, orderClause(filter), len(args)-1, len(args))

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.NewInternalError(err)
	}
	defer rows.Close()

	buyers, err := collectBuyers(rows)
	if err != nil {
		return nil, err
	}

	totalPages := (total + filter.Limit - 1) / filter.Limit
	return &models.BuyerListResponse{
		Data: buyers,
		Pagination: models.PaginationInfo{
			Page:       filter.Page,
			Limit:      filter.Limit,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    filter.Page < totalPages,
			HasPrev:    filter.Page > 1,
		},
	}, nil
}

// ListAll returns every lead matching the filter, unpaginated, for
// export. Ordering matches the default listing order.
func (r *BuyerRepository) ListAll(ctx context.Context, filter models.BuyerFilter) ([]models.Buyer, error) {
	where, args := buildWhere(filter)
	query := fmt.Sprintf(`SELECT %s FROM buyers%s ORDER BY %s`, buyerColumns, where, orderClause(filter))

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.NewInternalError(err)
	}
	defer rows.Close()

	return collectBuyers(rows)
}

// Update overwrites a lead if and only if its stored updated_at still
// equals baseVersion, and appends the history entry in the same
// transaction. Zero rows affected on an existing lead means another
// writer got there first.
func (r *BuyerRepository) Update(ctx context.Context, buyer *models.Buyer, baseVersion time.Time, entry *models.HistoryEntry) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.NewInternalError(err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE buyers SET
			full_name = $1, email = $2, phone = $3, city = $4,
			property_type = $5, bhk = $6, purpose = $7,
			budget_min = $8, budget_max = $9, timeline = $10,
			source = $11, status = $12, priority = $13,
			requirements = $14, notes = $15, updated_at = $16
		WHERE id = $17 AND updated_at = $18`,
		buyer.FullName, buyer.Email, buyer.Phone, buyer.City,
		buyer.PropertyType, buyer.BHK, buyer.Purpose,
		nullInt(buyer.BudgetMin), nullInt(buyer.BudgetMax), buyer.Timeline,
		buyer.Source, buyer.Status, buyer.Priority,
		buyer.Requirements, buyer.Notes, buyer.UpdatedAt,
		buyer.ID, baseVersion,
	)
	if err != nil {
		return domain.NewInternalError(err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return domain.NewInternalError(err)
	}
	if affected == 0 {
		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM buyers WHERE id = $1`, buyer.ID).Scan(&exists); err != nil {
			return domain.NewInternalError(err)
		}
		if exists == 0 {
			return domain.NewNotFoundError("buyer")
		}
		return domain.NewConflictError("Record changed, please refresh")
	}

	if err := insertHistory(ctx, tx, entry); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return domain.NewInternalError(err)
	}
	return nil
}

// Delete removes a lead and its history. The history delete is explicit
// rather than relying on the cascade so behavior matches across drivers.
func (r *BuyerRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.NewInternalError(err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM buyer_history WHERE buyer_id = $1`, id); err != nil {
		return domain.NewInternalError(err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM buyers WHERE id = $1`, id)
	if err != nil {
		return domain.NewInternalError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.NewInternalError(err)
	}
	if affected == 0 {
		return domain.NewNotFoundError("buyer")
	}

	if err := tx.Commit(); err != nil {
		return domain.NewInternalError(err)
	}
	return nil
}

// Stats aggregates pipeline counts for one owner's leads.
func (r *BuyerRepository) Stats(ctx context.Context, ownerID string) (*models.BuyerStatsResponse, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN status = $1 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = $2 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = $3 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = $4 THEN 1 ELSE 0 END), 0)
		FROM buyers WHERE owner_id = $5`,
		enums.StatusNew, enums.StatusContacted, enums.StatusConverted, enums.StatusNotInterested, ownerID,
	)

	stats := &models.BuyerStatsResponse{}
	if err := row.Scan(&stats.Total, &stats.New, &stats.Contacted, &stats.Converted, &stats.Dropped); err != nil {
		return nil, domain.NewInternalError(err)
	}

	stats.ConversionRate = "0%"
	if stats.Total > 0 {
		stats.ConversionRate = fmt.Sprintf("%.1f%%", float64(stats.Converted)/float64(stats.Total)*100)
	}
	return stats, nil
}

// buildWhere assembles the WHERE clause shared by List and ListAll.
func buildWhere(filter models.BuyerFilter) (string, []any) {
	var conds []string
	var args []any

	add := func(expr string, value any) {
		args = append(args, value)
		conds = append(conds, fmt.Sprintf(expr, len(args)))
	}

	if filter.Search != "" {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		args = append(args, pattern, pattern, pattern)
		n := len(args)
		conds = append(conds, fmt.Sprintf(
			"(LOWER(full_name) LIKE $%d OR LOWER(email) LIKE $%d OR phone LIKE $%d)", n-2, n-1, n))
	}
	if filter.City != "" {
		add("city = $%d", filter.City)
	}
	if filter.PropertyType != "" {
		add("property_type = $%d", filter.PropertyType)
	}
	if filter.Status != "" {
		add("status = $%d", filter.Status)
	}
	if filter.Timeline != "" {
		add("timeline = $%d", filter.Timeline)
	}
	if filter.Source != "" {
		add("source = $%d", filter.Source)
	}
	if filter.Priority != "" {
		add("priority = $%d", filter.Priority)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// orderClause maps the requested sort onto a whitelisted column. Sort
// input never reaches the SQL text unvalidated.
func orderClause(filter models.BuyerFilter) string {
	column := "updated_at"
	switch filter.SortBy {
	case "created_at", "full_name", "city", "status", "priority":
		column = filter.SortBy
	case "", "updated_at":
	}

	direction := "DESC"
	if strings.EqualFold(filter.SortOrder, "asc") {
		direction = "ASC"
	}
	return column + " " + direction
}

func insertHistory(ctx context.Context, tx *sql.Tx, entry *models.HistoryEntry) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO buyer_history (id, buyer_id, changed_by, action, changes, changed_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.ID, entry.BuyerID, entry.ChangedBy, entry.Action, entry.Changes, entry.ChangedAt,
	)
	if err != nil {
		return domain.NewInternalError(err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBuyer(row rowScanner) (*models.Buyer, error) {
	var b models.Buyer
	var budgetMin, budgetMax sql.NullInt64
	err := row.Scan(
		&b.ID, &b.FullName, &b.Email, &b.Phone, &b.City,
		&b.PropertyType, &b.BHK, &b.Purpose,
		&budgetMin, &budgetMax,
		&b.Timeline, &b.Source, &b.Status, &b.Priority,
		&b.Requirements, &b.Notes, &b.OwnerID,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	b.BudgetMin = intPtr(budgetMin)
	b.BudgetMax = intPtr(budgetMax)
	b.CreatedAt = b.CreatedAt.UTC()
	b.UpdatedAt = b.UpdatedAt.UTC()
	return &b, nil
}

func collectBuyers(rows *sql.Rows) ([]models.Buyer, error) {
	buyers := []models.Buyer{}
	for rows.Next() {
		b, err := scanBuyer(rows)
		if err != nil {
			return nil, domain.NewInternalError(err)
		}
		buyers = append(buyers, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewInternalError(err)
	}
	return buyers, nil
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}
