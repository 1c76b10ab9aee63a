package buyers

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/jordanlanch/leadbook/pkg/authz"
	"github.com/jordanlanch/leadbook/pkg/domain"
	"github.com/jordanlanch/leadbook/pkg/enums"
	"github.com/jordanlanch/leadbook/pkg/logger"
	"github.com/jordanlanch/leadbook/pkg/models"
)

// historyWindow is how many recent audit entries the detail view carries.
const historyWindow = 10

// Service handles buyer lead business logic
type Service struct {
	repo      domain.BuyerRepository
	history   domain.HistoryRepository
	gate      *authz.Gate
	validator *Validator
	log       logger.Logger
}

// NewService creates a new buyer service
func NewService(repo domain.BuyerRepository, history domain.HistoryRepository, gate *authz.Gate, validator *Validator, log logger.Logger) *Service {
	return &Service{
		repo:      repo,
		history:   history,
		gate:      gate,
		validator: validator,
		log:       log,
	}
}

// Create validates the input and persists a new lead owned by the
// principal, together with its creation audit entry.
func (s *Service) Create(ctx context.Context, p authz.Principal, input models.BuyerInput) (*models.Buyer, error) {
	if err := s.validator.ValidateAndNormalize(&input); err != nil {
		return nil, err
	}

	now := time.Now().UTC().Truncate(time.Microsecond)
	buyer := buyerFromInput(input)
	buyer.ID = uuid.NewString()
	buyer.OwnerID = p.ID
	buyer.CreatedAt = now
	buyer.UpdatedAt = now

	entry := &models.HistoryEntry{
		ID:        uuid.NewString(),
		BuyerID:   buyer.ID,
		ChangedBy: p.ID,
		Action:    models.HistoryActionCreated,
		Changes:   marshalChanges(diff(nil, buyer)),
		ChangedAt: now,
	}

	if err := s.repo.Create(ctx, buyer, entry); err != nil {
		s.log.Error("failed to create buyer", "error", err, "owner_id", p.ID)
		return nil, err
	}

	s.log.Info("buyer created", "buyer_id", buyer.ID, "owner_id", p.ID)
	return buyer, nil
}

// Get returns one lead with the principal's edit permission and the
// recent slice of its audit trail.
func (s *Service) Get(ctx context.Context, p authz.Principal, id string) (*models.BuyerDetailResponse, error) {
	buyer, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	history, err := s.history.ListByBuyer(ctx, id, historyWindow)
	if err != nil {
		return nil, err
	}

	return &models.BuyerDetailResponse{
		Buyer:   *buyer,
		CanEdit: s.gate.CanWrite(p, buyer),
		History: history,
	}, nil
}

// List returns a filtered, sorted page of leads. Filter enum values may
// arrive as display labels; they are canonicalized leniently so an
// unknown value simply matches nothing rather than failing the request.
func (s *Service) List(ctx context.Context, filter models.BuyerFilter) (*models.BuyerListResponse, error) {
	s.canonicalizeFilter(&filter)
	return s.repo.List(ctx, filter)
}

// Update applies a full-record patch guarded by ownership and by the
// version token the client read. The flow is strict: validate, load,
// authorize, then a compare-and-swap in the repository. A stale token
// surfaces as a conflict error with no partial write.
func (s *Service) Update(ctx context.Context, p authz.Principal, id string, req models.BuyerUpdateRequest) (*models.Buyer, error) {
	if err := s.validator.ValidateAndNormalize(&req.BuyerInput); err != nil {
		return nil, err
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.gate.RequireWrite(p, current); err != nil {
		return nil, err
	}

	base := req.UpdatedAt.UTC().Truncate(time.Microsecond)

	updated := buyerFromInput(req.BuyerInput)
	updated.ID = current.ID
	updated.OwnerID = current.OwnerID
	updated.CreatedAt = current.CreatedAt
	updated.UpdatedAt = nextVersion(base)

	changes := diff(current, updated)
	if len(changes) == 0 {
		// A stale token is rejected even when the submitted content
		// matches the stored record; the client is still working from
		// an outdated read.
		if !base.Equal(current.UpdatedAt) {
			return nil, domain.NewConflictError("Record changed, please refresh")
		}
		// Nothing changed; skip the write and keep history clean.
		return current, nil
	}

	entry := &models.HistoryEntry{
		ID:        uuid.NewString(),
		BuyerID:   current.ID,
		ChangedBy: p.ID,
		Action:    models.HistoryActionUpdated,
		Changes:   marshalChanges(changes),
		ChangedAt: updated.UpdatedAt,
	}

	if err := s.repo.Update(ctx, updated, base, entry); err != nil {
		if domain.IsConflict(err) {
			s.log.Warn("concurrent update rejected", "buyer_id", id, "user_id", p.ID)
		}
		return nil, err
	}

	s.log.Info("buyer updated", "buyer_id", id, "user_id", p.ID, "fields", len(changes))
	return updated, nil
}

// Delete removes a lead the principal owns. History rows go with it.
func (s *Service) Delete(ctx context.Context, p authz.Principal, id string) error {
	buyer, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.gate.RequireWrite(p, buyer); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.log.Info("buyer deleted", "buyer_id", id, "user_id", p.ID)
	return nil
}

// Stats aggregates pipeline counts for the principal's own leads.
func (s *Service) Stats(ctx context.Context, p authz.Principal) (*models.BuyerStatsResponse, error) {
	return s.repo.Stats(ctx, p.ID)
}

func (s *Service) canonicalizeFilter(filter *models.BuyerFilter) {
	norm := s.validator.norm
	if filter.City != "" {
		filter.City = norm.ToCanonicalLenient(enums.FieldCity, filter.City)
	}
	if filter.PropertyType != "" {
		filter.PropertyType = norm.ToCanonicalLenient(enums.FieldPropertyType, filter.PropertyType)
	}
	if filter.Status != "" {
		filter.Status = norm.ToCanonicalLenient(enums.FieldStatus, filter.Status)
	}
	if filter.Timeline != "" {
		filter.Timeline = norm.ToCanonicalLenient(enums.FieldTimeline, filter.Timeline)
	}
	if filter.Source != "" {
		filter.Source = norm.ToCanonicalLenient(enums.FieldSource, filter.Source)
	}
	if filter.Priority != "" {
		filter.Priority = norm.ToCanonicalLenient(enums.FieldPriority, filter.Priority)
	}
}

// nextVersion picks the stored updated_at for a successful write. Wall
// clocks can be coarse enough that now equals the base version; the new
// version must still move strictly forward or a following update could
// pass the compare-and-swap with a stale token.
func nextVersion(base time.Time) time.Time {
	now := time.Now().UTC().Truncate(time.Microsecond)
	if !now.After(base) {
		return base.Add(time.Microsecond)
	}
	return now
}

func buyerFromInput(input models.BuyerInput) *models.Buyer {
	return &models.Buyer{
		FullName:     input.FullName,
		Email:        input.Email,
		Phone:        input.Phone,
		City:         input.City,
		PropertyType: input.PropertyType,
		BHK:          input.BHK,
		Purpose:      input.Purpose,
		BudgetMin:    input.BudgetMin,
		BudgetMax:    input.BudgetMax,
		Timeline:     input.Timeline,
		Source:       input.Source,
		Status:       input.Status,
		Priority:     input.Priority,
		Requirements: input.Requirements,
		Notes:        input.Notes,
	}
}

// fieldChange records one field's transition inside a history entry.
type fieldChange struct {
	Old any `json:"old"`
	New any `json:"new"`
}

// diff computes the per-field changes between two versions of a record.
// A nil old side marks creation and reports every populated field.
func diff(old, new *models.Buyer) map[string]fieldChange {
	changes := make(map[string]fieldChange)

	cmp := func(name string, oldVal, newVal any) {
		if old == nil {
			if s, ok := newVal.(string); ok && s == "" {
				return
			}
			if newVal == nil {
				return
			}
			changes[name] = fieldChange{New: newVal}
			return
		}
		if oldVal != newVal {
			changes[name] = fieldChange{Old: oldVal, New: newVal}
		}
	}

	var oldB models.Buyer
	if old != nil {
		oldB = *old
	}

	cmp("full_name", oldB.FullName, new.FullName)
	cmp("email", oldB.Email, new.Email)
	cmp("phone", oldB.Phone, new.Phone)
	cmp("city", oldB.City, new.City)
	cmp("property_type", oldB.PropertyType, new.PropertyType)
	cmp("bhk", oldB.BHK, new.BHK)
	cmp("purpose", oldB.Purpose, new.Purpose)
	cmp("budget_min", intOrNil(oldB.BudgetMin), intOrNil(new.BudgetMin))
	cmp("budget_max", intOrNil(oldB.BudgetMax), intOrNil(new.BudgetMax))
	cmp("timeline", oldB.Timeline, new.Timeline)
	cmp("source", oldB.Source, new.Source)
	cmp("status", oldB.Status, new.Status)
	cmp("priority", oldB.Priority, new.Priority)
	cmp("requirements", oldB.Requirements, new.Requirements)
	cmp("notes", oldB.Notes, new.Notes)

	return changes
}

func intOrNil(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func marshalChanges(changes map[string]fieldChange) string {
	if len(changes) == 0 {
		return ""
	}
	data, err := json.Marshal(changes)
	if err != nil {
		return ""
	}
	return string(data)
}
