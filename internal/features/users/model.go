package users

import "slices"

// Roles and statuses used by the seed data.
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleUser    = "user"

	StatusActive   = "active"
	StatusInactive = "inactive"
)

// User is one account record.
type User struct {
	ID          string   `json:"id"`
	Username    string   `json:"username"`
	Name        string   `json:"name"`
	Email       string   `json:"email"`
	Phone       string   `json:"phone,omitempty"`
	Role        string   `json:"role"`
	Status      string   `json:"status"`
	Avatar      string   `json:"avatar,omitempty"`
	Bio         string   `json:"bio,omitempty"`
	Groups      []string `json:"groups"`
	Permissions []string `json:"permissions"`
	CreatedAt   string   `json:"createdAt"`
	UpdatedAt   string   `json:"updatedAt"`
	LastLoginAt string   `json:"lastLoginAt,omitempty"`
	LoginCount  int      `json:"loginCount"`
}

func (u User) clone() User {
	u.Groups = cloneStrings(u.Groups)
	u.Permissions = cloneStrings(u.Permissions)
	return u
}

// cloneStrings copies s, turning nil into an empty slice so lists serialize
// as [].
func cloneStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return slices.Clone(s)
}

// Activity is an audit entry shown on the user detail page.
type Activity struct {
	ID          string `json:"id"`
	UserID      string `json:"userId"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Type        string `json:"type"`
	CreatedAt   string `json:"createdAt"`
}

// Input is the body of a create request.
type Input struct {
	Username    string   `json:"username"`
	Name        string   `json:"name"`
	Email       string   `json:"email"`
	Phone       string   `json:"phone"`
	Role        string   `json:"role"`
	Status      string   `json:"status"`
	Avatar      string   `json:"avatar"`
	Bio         string   `json:"bio"`
	Groups      []string `json:"groups"`
	Permissions []string `json:"permissions"`
}

// Patch is the body of an update request. Nil fields are left unchanged.
type Patch struct {
	Username    *string   `json:"username"`
	Name        *string   `json:"name"`
	Email       *string   `json:"email"`
	Phone       *string   `json:"phone"`
	Role        *string   `json:"role"`
	Status      *string   `json:"status"`
	Avatar      *string   `json:"avatar"`
	Bio         *string   `json:"bio"`
	Groups      *[]string `json:"groups"`
	Permissions *[]string `json:"permissions"`
}
