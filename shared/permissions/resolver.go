package permissions

import (
	"github.com/google/uuid"

	"github.com/visioncare/optometry-backend/shared/models"
)

// RecordLookup fetches the active permission record for a (shop, role) pair.
// A missing record is reported as (nil, nil), never as an error: the resolver
// fails closed on absent configuration.
type RecordLookup interface {
	ActiveRecord(shopID uuid.UUID, role models.UserRole) (*models.Permission, error)
}

// Resolved is the effective permission view for one account: role defaults
// merged with account-level overrides.
type Resolved struct {
	Role            models.UserRole      `json:"role"`
	Permissions     models.CapabilityMap `json:"permissions"`
	AccessiblePages models.StringList    `json:"accessible_pages"`
}

// Allows reports whether the resolved view grants an action on a module.
// Missing module, unknown action and explicit false all deny.
func (r *Resolved) Allows(module, action string) bool {
	capability, ok := r.Permissions[module]
	if !ok {
		return false
	}
	switch action {
	case ActionView:
		return capability.View
	case ActionCreate:
		return capability.Create
	case ActionEdit:
		return capability.Edit
	case ActionDelete:
		return capability.Delete
	case ActionExport:
		return capability.Export
	case ActionImport:
		return capability.Import
	case ActionManage:
		return capability.Manage
	default:
		return false
	}
}

// AllowsPage reports whether the resolved view grants access to a page.
func (r *Resolved) AllowsPage(page string) bool {
	for _, p := range r.AccessiblePages {
		if p == page {
			return true
		}
	}
	return false
}

// Resolve computes the effective permission view for an account. It is pure
// given the account snapshot and the matching permission record: no caching,
// no side effects. Admins get a hard-coded universal grant regardless of any
// stored record. For everyone else the role defaults (empty when no active
// record exists) are merged with the account's overrides: capability flags
// merge field-level, page access is a union.
func Resolve(user *models.User, lookup RecordLookup) (*Resolved, error) {
	if user.Role == models.RoleAdmin {
		return &Resolved{
			Role:            user.Role,
			Permissions:     AllModuleGrants(),
			AccessiblePages: AllPages(),
		}, nil
	}

	merged := models.CapabilityMap{}
	pages := models.StringList{}

	if user.ShopID != nil {
		record, err := lookup.ActiveRecord(*user.ShopID, user.Role)
		if err != nil {
			return nil, err
		}
		if record != nil {
			for module, capability := range record.Permissions {
				merged[module] = capability
			}
			pages = append(pages, record.PageAccess...)
		}
	}

	for module, override := range user.Permissions {
		merged[module] = applyOverride(merged[module], override)
	}

	return &Resolved{
		Role:            user.Role,
		Permissions:     merged,
		AccessiblePages: unionPages(pages, user.AccessiblePages),
	}, nil
}

// applyOverride overwrites only the flags the override defines; nil fields
// keep the role default.
func applyOverride(base models.Capability, override models.CapabilityOverride) models.Capability {
	if override.View != nil {
		base.View = *override.View
	}
	if override.Create != nil {
		base.Create = *override.Create
	}
	if override.Edit != nil {
		base.Edit = *override.Edit
	}
	if override.Delete != nil {
		base.Delete = *override.Delete
	}
	if override.Export != nil {
		base.Export = *override.Export
	}
	if override.Import != nil {
		base.Import = *override.Import
	}
	if override.Manage != nil {
		base.Manage = *override.Manage
	}
	return base
}

func unionPages(base, extra models.StringList) models.StringList {
	out := make(models.StringList, 0, len(base)+len(extra))
	seen := make(map[string]struct{}, len(base)+len(extra))
	for _, list := range []models.StringList{base, extra} {
		for _, page := range list {
			if _, dup := seen[page]; dup {
				continue
			}
			seen[page] = struct{}{}
			out = append(out, page)
		}
	}
	return out
}
