package review

// Permissions is the edit capability of a role against an item in a given
// status.
type Permissions struct {
	CanEdit   bool
	CanAdd    bool
	CanDelete bool
}

// ReadOnly reports whether the item must render as read-only.
func (p Permissions) ReadOnly() bool { return !p.CanEdit }

// ResolvePermissions returns the fixed permission matrix entry for
// (role, status). It is a pure function; invalid or missing input yields
// all-false (fail-safe deny).
//
// Matrix:
//
//	admin              full access at every status
//	manager/researcher read-only at every status
//	annotator          draft: edit+add+delete; submitted: read-only;
//	                   reviewed: edit only; approved: read-only
func ResolvePermissions(role Role, status ItemStatus) Permissions {
	if !role.Valid() || !status.Valid() {
		return Permissions{}
	}
	switch role {
	case RoleAdmin:
		return Permissions{CanEdit: true, CanAdd: true, CanDelete: true}
	case RoleManager, RoleResearcher:
		return Permissions{}
	case RoleAnnotator:
		switch status {
		case StatusDraft:
			return Permissions{CanEdit: true, CanAdd: true, CanDelete: true}
		case StatusReviewed:
			return Permissions{CanEdit: true}
		case StatusSubmitted, StatusApproved:
			return Permissions{}
		}
	}
	return Permissions{}
}

const (
	msgReviewerReadOnly = "Managers and researchers have read-only access to labeling items."
	msgSubmitted        = "This item has been submitted and is awaiting review."
	msgApproved         = "This item has been approved and is locked."
	msgReadOnly         = "This item is currently read-only."
)

// BannerMessage returns the explanation shown above a read-only item, or
// "" when the item is editable. A role-based message takes priority over a
// status-based one; admins never see a banner.
func BannerMessage(role Role, status ItemStatus) string {
	if role == RoleAdmin {
		return ""
	}
	if ResolvePermissions(role, status).CanEdit {
		return ""
	}
	if role.IsReviewer() {
		return msgReviewerReadOnly
	}
	switch status {
	case StatusSubmitted:
		return msgSubmitted
	case StatusApproved:
		return msgApproved
	default:
		return msgReadOnly
	}
}

// TooltipMessage is the short form of BannerMessage for disabled controls.
func TooltipMessage(role Role, status ItemStatus) string {
	if BannerMessage(role, status) == "" {
		return ""
	}
	if role.IsReviewer() {
		return "Read-only for reviewers"
	}
	switch status {
	case StatusSubmitted:
		return "Awaiting review"
	case StatusApproved:
		return "Approved and locked"
	default:
		return "Read-only"
	}
}

// ShowBanner reports whether a read-only banner applies for (role, status).
func ShowBanner(role Role, status ItemStatus) bool {
	return BannerMessage(role, status) != ""
}
