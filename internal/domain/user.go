package domain

import "time"

const (
	RoleCandidate   = "CANDIDATE"
	RoleTenantAdmin = "TENANT_ADMIN"
	RoleSuperAdmin  = "SUPER_ADMIN"
)

type User struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id,omitempty"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func (u User) IsAdmin() bool {
	return u.Role == RoleTenantAdmin || u.Role == RoleSuperAdmin
}
