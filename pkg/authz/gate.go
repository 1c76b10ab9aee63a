package authz

import (
	"github.com/jordanlanch/leadbook/pkg/domain"
	"github.com/jordanlanch/leadbook/pkg/models"
)

// Principal is the authenticated identity a request acts as.
type Principal struct {
	ID    string
	Email string
	Role  string
}

// BypassFunc reports whether a principal may write records it does not
// own. Deployments that want an admin override plug one in; the zero
// gate has none and ownership is the only write path.
type BypassFunc func(p Principal) bool

// Gate decides read and write access to buyer records.
//
// Every authenticated principal can read every record. Writes require
// ownership, unless the bypass grants an override.
type Gate struct {
	bypass BypassFunc
}

// NewGate creates an ownership gate with no bypass.
func NewGate() *Gate {
	return &Gate{}
}

// NewGateWithBypass creates an ownership gate with an override hook.
func NewGateWithBypass(bypass BypassFunc) *Gate {
	return &Gate{bypass: bypass}
}

// AdminBypass grants write access to principals with the admin role.
func AdminBypass(p Principal) bool {
	return p.Role == models.RoleAdmin
}

// CanRead reports whether the principal may view the buyer.
func (g *Gate) CanRead(p Principal, buyer *models.Buyer) bool {
	return true
}

// CanWrite reports whether the principal may modify or delete the buyer.
func (g *Gate) CanWrite(p Principal, buyer *models.Buyer) bool {
	if buyer.OwnerID == p.ID {
		return true
	}
	if g.bypass != nil {
		return g.bypass(p)
	}
	return false
}

// RequireWrite returns a forbidden error when the principal may not
// modify the buyer.
func (g *Gate) RequireWrite(p Principal, buyer *models.Buyer) error {
	if g.CanWrite(p, buyer) {
		return nil
	}
	return domain.NewForbiddenError("You can only modify leads you own")
}
