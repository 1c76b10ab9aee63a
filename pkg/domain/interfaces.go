package domain

import (
	"context"
	"time"

	"github.com/jordanlanch/leadbook/pkg/models"
)

// BuyerRepository defines data access operations for buyer leads.
//
// Create and Update write the record and its history entry in a single
// transaction: there is never a committed mutation without its audit
// record. Update performs a compare-and-swap on updated_at and returns a
// CONFLICT domain error when the stored version no longer matches
// baseVersion.
type BuyerRepository interface {
	Create(ctx context.Context, buyer *models.Buyer, entry *models.HistoryEntry) error
	GetByID(ctx context.Context, id string) (*models.Buyer, error)
	List(ctx context.Context, filter models.BuyerFilter) (*models.BuyerListResponse, error)
	ListAll(ctx context.Context, filter models.BuyerFilter) ([]models.Buyer, error)
	Update(ctx context.Context, buyer *models.Buyer, baseVersion time.Time, entry *models.HistoryEntry) error
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context, ownerID string) (*models.BuyerStatsResponse, error)
}

// HistoryRepository reads the append-only audit trail of a buyer.
// Entries are returned most-recent-first.
type HistoryRepository interface {
	ListByBuyer(ctx context.Context, buyerID string, limit int) ([]models.HistoryEntry, error)
}

// UserRepository defines data access operations for users.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
}
