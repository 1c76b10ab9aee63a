package database

import (
	"context"
	"database/sql"

	"github.com/jordanlanch/leadbook/pkg/domain"
	"github.com/jordanlanch/leadbook/pkg/models"
)

// HistoryRepository reads the buyer audit trail. Writes go through the
// buyer repository so they share the mutation's transaction.
type HistoryRepository struct {
	DB *sql.DB
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{DB: db}
}

// ListByBuyer returns the most recent entries for a buyer, newest first.
func (r *HistoryRepository) ListByBuyer(ctx context.Context, buyerID string, limit int) ([]models.HistoryEntry, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, buyer_id, changed_by, action, changes, changed_at
		FROM buyer_history
		WHERE buyer_id = $1
		ORDER BY changed_at DESC, id DESC
		LIMIT $2`, buyerID, limit)
	if err != nil {
		return nil, domain.NewInternalError(err)
	}
	defer rows.Close()

	entries := []models.HistoryEntry{}
	for rows.Next() {
		var e models.HistoryEntry
		if err := rows.Scan(&e.ID, &e.BuyerID, &e.ChangedBy, &e.Action, &e.Changes, &e.ChangedAt); err != nil {
			return nil, domain.NewInternalError(err)
		}
		e.ChangedAt = e.ChangedAt.UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewInternalError(err)
	}
	return entries, nil
}
