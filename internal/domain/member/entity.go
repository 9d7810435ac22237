package member

import "time"

// Org is a tenant (one gym).
type Org struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name"`
	Timezone  string    `json:"timezone"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Org) TableName() string { return "orgs" }

// Member is a gym's customer.
type Member struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	OrgID     int64     `json:"org_id" gorm:"index;not null"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email" gorm:"index"`
	Phone     string    `json:"phone,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Member) TableName() string { return "members" }

// StaffRole for staff users.
type StaffRole string

const (
	RoleAdmin StaffRole = "admin"
	RoleStaff StaffRole = "staff"
)

// StaffUser is a gym employee who operates the platform.
type StaffUser struct {
	ID           int64     `json:"id" gorm:"primaryKey"`
	OrgID        int64     `json:"org_id" gorm:"index;not null"`
	Email        string    `json:"email" gorm:"uniqueIndex"`
	PasswordHash string    `json:"-" gorm:"column:password_hash"`
	Role         StaffRole `json:"role" gorm:"size:20"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (StaffUser) TableName() string { return "staff_users" }
