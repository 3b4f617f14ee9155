package service

import "github.com/obe-labs/sheetflow/internal/models"

// Actor identifies the authenticated account an operation runs as.
type Actor struct {
	ID       uint
	Role     string
	FullName string
}

// Visibility constrains which sheets a role sees when listing.
type Visibility int

const (
	// VisibilityOwn limits listings to sheets the actor owns.
	VisibilityOwn Visibility = iota
	// VisibilityApproved limits listings to approved sheets.
	VisibilityApproved
	// VisibilityAll applies no listing filter.
	VisibilityAll
)

// Capability describes what a role may do. Keeping role dispatch in one pure
// function avoids per-role branching scattered across call sites.
type Capability struct {
	CanCreateSheets bool
	CanSubmitSheets bool
	CanDecideSheets bool
	CanEditAny      bool
	CanManageUsers  bool
	Visibility      Visibility
}

// CapabilitiesFor maps a role onto its capability set. Unknown roles get the
// most restrictive set: approved-only visibility and nothing else.
func CapabilitiesFor(role string) Capability {
	switch role {
	case models.RoleFaculty:
		return Capability{
			CanCreateSheets: true,
			CanSubmitSheets: true,
			Visibility:      VisibilityOwn,
		}
	case models.RoleHOD:
		return Capability{
			CanDecideSheets: true,
			CanEditAny:      true,
			Visibility:      VisibilityAll,
		}
	case models.RoleAdmin:
		return Capability{
			CanEditAny:     true,
			CanManageUsers: true,
			Visibility:     VisibilityAll,
		}
	case models.RoleStudent:
		return Capability{Visibility: VisibilityApproved}
	default:
		return Capability{Visibility: VisibilityApproved}
	}
}
