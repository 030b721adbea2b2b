package model

// Role is the enumerated credential role.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Credential maps the canonical credentials table. DisplayName is nullable.
type Credential struct {
	Username     string  `gorm:"column:username;primaryKey" json:"username"`
	PasswordHash string  `gorm:"column:password_hash;not null" json:"-"`
	DisplayName  *string `gorm:"column:display_name" json:"displayName"`
	Role         Role    `gorm:"column:role;default:user" json:"role"`
}

func (Credential) TableName() string {
	return "credentials"
}

// LoginResult is the dashboard login answer. A failed login carries no
// detail about why it failed.
type LoginResult struct {
	Authenticated bool   `json:"authenticated"`
	Role          Role   `json:"role,omitempty"`
	DisplayName   string `json:"displayName,omitempty"`
}

// UserSummary is the admin listing of a credential without its hash.
type UserSummary struct {
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	Role        Role   `json:"role"`
}
