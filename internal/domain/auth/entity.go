package auth

type Role string

const (
	RoleEmployee Role = "employee" // Checks in and out for themselves
	RoleManager  Role = "manager"  // Reads their own department's attendance
	RoleAdmin    Role = "admin"    // Reads every department, corrects sessions
)

func (r Role) Valid() bool {
	switch r {
	case RoleEmployee, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// Principal is the authenticated caller as carried by the access token.
type Principal struct {
	UserID     string
	Department string
	Role       Role
}

// CanViewDepartment reports whether the principal may read department-wide data.
func (p Principal) CanViewDepartment(department string) bool {
	switch p.Role {
	case RoleAdmin:
		return true
	case RoleManager:
		return p.Department == department
	default:
		return false
	}
}
