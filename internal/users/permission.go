package users

// Reason explains a permission decision.
type Reason string

const (
	ReasonAdmin              Reason = "admin"
	ReasonSecurityDepartment Reason = "security_department"
	ReasonNotAuthorized      Reason = "not_authorized"
	ReasonUnauthenticated    Reason = "unauthenticated"
)

// POAMDeniedMessage is shown to users who may not manage PO&AMs.
const POAMDeniedMessage = "You do not have permission to manage PO&AMs. Only Security department users and administrators can add or modify PO&AMs."

// Decision is the outcome of a permission check.
type Decision struct {
	Allowed bool
	Reason  Reason
	Message string
}

// AuthorizePOAM decides whether a user may create, edit or delete PO&AMs.
// departmentName is empty when the user has no profile or no department.
func AuthorizePOAM(isAdmin bool, departmentName string) Decision {
	if isAdmin {
		return Decision{Allowed: true, Reason: ReasonAdmin}
	}
	if departmentName == SecurityDepartment {
		return Decision{Allowed: true, Reason: ReasonSecurityDepartment}
	}
	return Decision{Reason: ReasonNotAuthorized, Message: POAMDeniedMessage}
}

// CheckPOAMAccess applies AuthorizePOAM to a resolved user. A nil user is
// unauthenticated.
func CheckPOAMAccess(u *User) Decision {
	if u == nil {
		return Decision{Reason: ReasonUnauthenticated}
	}
	return AuthorizePOAM(u.IsAdmin(), u.DepartmentName)
}
