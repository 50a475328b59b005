package core

// RoleAdmin grants removal of indicators and their sub-records
const RoleAdmin = "admin"

// Analyst is the authenticated user a request acts as
type Analyst struct {
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
}

// IsAdmin reports whether the analyst holds the admin role
func (a Analyst) IsAdmin() bool {
	for _, r := range a.Roles {
		if r == RoleAdmin {
			return true
		}
	}
	return false
}
