package auth

// LoginRequest is the staff login payload.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse returns the access token and the staff identity.
type LoginResponse struct {
	Token string    `json:"token"`
	User  StaffView `json:"user"`
}

type StaffView struct {
	ID    int64  `json:"id"`
	OrgID int64  `json:"org_id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}
