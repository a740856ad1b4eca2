package users

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAuthorizePOAM(t *testing.T) {
	cases := []struct {
		name       string
		isAdmin    bool
		department string
		allowed    bool
		reason     Reason
	}{
		{name: "admin without department", isAdmin: true, allowed: true, reason: ReasonAdmin},
		{name: "admin in other department", isAdmin: true, department: "Finance", allowed: true, reason: ReasonAdmin},
		{name: "security member", department: "Security", allowed: true, reason: ReasonSecurityDepartment},
		{name: "lowercase security", department: "security", reason: ReasonNotAuthorized},
		{name: "it security", department: "IT Security", reason: ReasonNotAuthorized},
		{name: "other department", department: "Finance", reason: ReasonNotAuthorized},
		{name: "no profile", reason: ReasonNotAuthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := AuthorizePOAM(tc.isAdmin, tc.department)
			assert.Equal(t, tc.allowed, d.Allowed)
			assert.Equal(t, tc.reason, d.Reason)
			if tc.allowed {
				assert.Empty(t, d.Message)
			} else {
				assert.Equal(t, POAMDeniedMessage, d.Message)
			}
		})
	}
}

func TestCheckPOAMAccess(t *testing.T) {
	assert.Equal(t, ReasonUnauthenticated, CheckPOAMAccess(nil).Reason)
	assert.False(t, CheckPOAMAccess(nil).Allowed)

	staff := &User{IsStaff: true}
	assert.True(t, CheckPOAMAccess(staff).Allowed)

	superuser := &User{IsSuperuser: true, DepartmentName: "Finance"}
	assert.True(t, CheckPOAMAccess(superuser).Allowed)

	member := &User{DepartmentName: SecurityDepartment}
	assert.Equal(t, ReasonSecurityDepartment, CheckPOAMAccess(member).Reason)

	assert.False(t, CheckPOAMAccess(&User{DepartmentName: "Human Resources"}).Allowed)
}
