package domain

import "time"

const (
	MaxUsernameLength = 32
	// bcrypt ignores input past 72 bytes.
	MaxPasswordLength = 72
)

// User models an authenticated actor in the system.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Claims is the identity carried by a session token.
type Claims struct {
	Subject   string
	Role      Role
	ExpiresAt time.Time
}
