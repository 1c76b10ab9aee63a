package models

import "time"

// Buyer is a buyer-intent lead record. Enum-typed fields hold canonical
// codes (see pkg/enums); display labels only exist at the CSV boundary.
type Buyer struct {
	ID           string    `json:"id"`
	FullName     string    `json:"full_name"`
	Email        string    `json:"email,omitempty"`
	Phone        string    `json:"phone"`
	City         string    `json:"city"`
	PropertyType string    `json:"property_type"`
	BHK          string    `json:"bhk,omitempty"`
	Purpose      string    `json:"purpose"`
	BudgetMin    *int      `json:"budget_min,omitempty"`
	BudgetMax    *int      `json:"budget_max,omitempty"`
	Timeline     string    `json:"timeline"`
	Source       string    `json:"source"`
	Status       string    `json:"status"`
	Priority     string    `json:"priority"`
	Requirements string    `json:"requirements,omitempty"`
	Notes        string    `json:"notes,omitempty"`
	OwnerID      string    `json:"owner_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// HistoryEntry is an immutable audit record of one mutation on a buyer.
type HistoryEntry struct {
	ID        string    `json:"id"`
	BuyerID   string    `json:"buyer_id"`
	ChangedBy string    `json:"changed_by"`
	Action    string    `json:"action"`
	Changes   string    `json:"changes,omitempty"`
	ChangedAt time.Time `json:"changed_at"`
}

// History action tags.
const (
	HistoryActionCreated = "created"
	HistoryActionUpdated = "updated"
	HistoryActionDeleted = "deleted"
)

// BuyerInput is the untrusted shape of a buyer record as it arrives from
// a form submission or a CSV row, before normalization and validation.
type BuyerInput struct {
	FullName     string `json:"full_name" validate:"required,min=2,max=100"`
	Email        string `json:"email" validate:"omitempty,email"`
	Phone        string `json:"phone" validate:"required"`
	City         string `json:"city" validate:"required"`
	PropertyType string `json:"property_type" validate:"required"`
	BHK          string `json:"bhk"`
	Purpose      string `json:"purpose" validate:"required"`
	BudgetMin    *int   `json:"budget_min" validate:"omitempty,min=0"`
	BudgetMax    *int   `json:"budget_max" validate:"omitempty,min=0"`
	Timeline     string `json:"timeline" validate:"required"`
	Source       string `json:"source" validate:"required"`
	Status       string `json:"status"`
	Priority     string `json:"priority"`
	Requirements string `json:"requirements" validate:"max=1000"`
	Notes        string `json:"notes" validate:"max=2000"`
}

// BuyerUpdateRequest carries a candidate patch plus the updated_at value
// the client observed when it last read the record. That timestamp is the
// version token for conflict detection.
type BuyerUpdateRequest struct {
	BuyerInput
	UpdatedAt time.Time `json:"updated_at"`
}

// BuyerDetailResponse is a single buyer plus edit permission and the
// recent history window.
type BuyerDetailResponse struct {
	Buyer
	CanEdit bool           `json:"can_edit"`
	History []HistoryEntry `json:"history,omitempty"`
}

// BuyerFilter represents search parameters for the buyer listing.
type BuyerFilter struct {
	Search       string `query:"search"`
	City         string `query:"city"`
	PropertyType string `query:"property_type"`
	Status       string `query:"status"`
	Timeline     string `query:"timeline"`
	Source       string `query:"source"`
	Priority     string `query:"priority"`
	Page         int    `query:"page"`
	Limit        int    `query:"limit"`
	SortBy       string `query:"sort_by"`
	SortOrder    string `query:"sort_order"`
}

// BuyerListResponse represents a paginated list of buyers.
type BuyerListResponse struct {
	Data       []Buyer        `json:"data"`
	Pagination PaginationInfo `json:"pagination"`
}

// PaginationInfo contains pagination metadata
type PaginationInfo struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// BuyerStatsResponse aggregates pipeline counts for the dashboard.
type BuyerStatsResponse struct {
	Total          int    `json:"total"`
	New            int    `json:"new"`
	Contacted      int    `json:"contacted"`
	Converted      int    `json:"converted"`
	Dropped        int    `json:"dropped"`
	ConversionRate string `json:"conversion_rate"`
}
