package permissions

import (
	"github.com/google/uuid"

	"github.com/visioncare/optometry-backend/shared/models"
)

// Gate is the single request-time authorization decision point. The admin
// bypass lives here and nowhere else; every denial is fail-closed, whether
// the permission was explicitly false or simply never configured.
type Gate struct {
	lookup RecordLookup
}

// NewGate returns a gate backed by the given permission record lookup.
func NewGate(lookup RecordLookup) *Gate {
	return &Gate{lookup: lookup}
}

// Authorize decides a (module, action) pair for an account. Admins always
// pass without touching the resolver, so a missing or broken permission
// record can never lock an admin out.
func (g *Gate) Authorize(user *models.User, module, action string) (bool, error) {
	if user.Role == models.RoleAdmin {
		return true, nil
	}
	resolved, err := Resolve(user, g.lookup)
	if err != nil {
		return false, err
	}
	return resolved.Allows(module, action), nil
}

// AuthorizePage decides page access for an account with the same admin
// short-circuit as Authorize.
func (g *Gate) AuthorizePage(user *models.User, page string) (bool, error) {
	if user.Role == models.RoleAdmin {
		return true, nil
	}
	resolved, err := Resolve(user, g.lookup)
	if err != nil {
		return false, err
	}
	return resolved.AllowsPage(page), nil
}

// AuthorizeShop checks that the account may act on resources of the given
// shop. Admins bypass; anyone else must belong to that exact shop, no matter
// what module permissions they hold.
func (g *Gate) AuthorizeShop(user *models.User, shopID uuid.UUID) bool {
	if user.Role == models.RoleAdmin {
		return true
	}
	return user.BelongsToShop(shopID)
}

// AuthorizeShopManagement checks that the account may manage shop-level
// configuration (permission registry, settings, staff): admins anywhere,
// shop owners only for their own shop.
func (g *Gate) AuthorizeShopManagement(user *models.User, shopID uuid.UUID) bool {
	if user.Role == models.RoleAdmin {
		return true
	}
	return user.Role == models.RoleShopOwner && user.BelongsToShop(shopID)
}
