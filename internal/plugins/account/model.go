// Package account handles user accounts for Taskloop: registration, login,
// logout, profile management, password reset, and the cookie-auth middleware
// that gates every protected route. Passwords are stored as argon2id hashes
// only; the session token itself lives in internal/session.
package account

import (
	"time"
)

// User represents a registered Taskloop user. This is the domain model used
// throughout the application; database scanning and JSON marshaling use it
// directly.
type User struct {
	ID                 int        `json:"id"`
	Username           string     `json:"username"`
	Email              string     `json:"email"`
	PasswordHash       string     `json:"-"` // Never expose in JSON responses.
	ProfilePicturePath *string    `json:"profile_picture_path,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
	LastLogin          *time.Time `json:"last_login,omitempty"`
	LastLogout         *time.Time `json:"last_logout,omitempty"`
}

// --- Request DTOs (bound from HTTP requests) ---

// LoginRequest holds the credentials submitted to POST /login.
type LoginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// ResetPasswordRequest holds the payload for POST /reset-password.
type ResetPasswordRequest struct {
	Email       string `json:"email" form:"email"`
	NewPassword string `json:"new_password" form:"new_password"`
}

// --- Service input DTOs (passed from handler to service) ---

// RegisterInput is the validated input for creating a new user. PicturePath
// is the already-stored relative URL of the uploaded profile picture, or
// empty when none was uploaded.
type RegisterInput struct {
	Username    string
	Email       string
	Password    string
	PicturePath string
}

// LoginInput is the validated input for authenticating a user.
type LoginInput struct {
	Email    string
	Password string
}

// UpdateProfileInput is a partial profile update. Nil fields are left
// untouched; a non-nil Password is re-hashed before persistence.
type UpdateProfileInput struct {
	Username    *string
	Email       *string
	Password    *string
	PicturePath *string
}

// LoginResponse is the JSON body returned by POST /login. The token is also
// set as an HTTP-only cookie; it is included in the body for clients that
// prefer to manage it themselves.
type LoginResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}
