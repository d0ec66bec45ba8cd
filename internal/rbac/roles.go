package rbac

// Role names. Keep these stable; they are part of auth/RBAC contracts.
const (
	// RoleFounder can resolve pending entries and see the full audit trail.
	RoleFounder = "founder"
	// RoleReviewer can see the pending queue and actor history.
	RoleReviewer = "reviewer"
	// RoleOperator submits checks on behalf of interactive users.
	RoleOperator = "operator"
	// RoleService is the non-interactive identity used by backend jobs.
	RoleService = "service" // hidden role
)

func IsFounder(role string) bool { return role == RoleFounder }

func IsHiddenRole(role string) bool { return role == RoleService }
