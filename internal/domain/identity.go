package domain

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Identity is the caller as resolved by the access gate.
type Identity struct {
	UserID string
	Role   string
	Name   string
	Email  string
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}
