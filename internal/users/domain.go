package users

import "time"

// SecurityDepartment is the department whose members may manage PO&AMs.
// The comparison is exact and case-sensitive.
const SecurityDepartment = "Security"

// User is an account together with its profile department.
type User struct {
	ID             int64
	Username       string
	Email          string
	IsActive       bool
	IsStaff        bool
	IsSuperuser    bool
	DepartmentID   *int64
	DepartmentName string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsAdmin reports whether the account carries staff or superuser rights.
func (u User) IsAdmin() bool {
	return u.IsSuperuser || u.IsStaff
}

// Profile extends an account with its department membership.
type Profile struct {
	ID             int64
	UserID         int64
	DepartmentID   *int64
	DepartmentName string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
